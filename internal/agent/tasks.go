package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

func validTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

// Task is one item on the board.
type Task struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Status    TaskStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TaskBoard tracks the model's working plan across a session. The model
// drives it through the task_* tools; hosts read it for display.
type TaskBoard struct {
	mu    sync.Mutex
	tasks map[string]*Task
	order []string
}

// NewTaskBoard creates an empty board.
func NewTaskBoard() *TaskBoard {
	return &TaskBoard{tasks: make(map[string]*Task)}
}

// Create adds a pending task and returns a copy of it.
func (b *TaskBoard) Create(title string) Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	t := &Task{
		ID:        uuid.New().String()[:8],
		Title:     title,
		Status:    TaskPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.tasks[t.ID] = t
	b.order = append(b.order, t.ID)
	return *t
}

// Update changes a task's status and optionally its title.
func (b *TaskBoard) Update(id string, status TaskStatus, title string) (Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("no task with id %q", id)
	}
	if !validTaskStatus(status) {
		return Task{}, fmt.Errorf("invalid status %q", status)
	}
	t.Status = status
	if title != "" {
		t.Title = title
	}
	t.UpdatedAt = time.Now()
	return *t, nil
}

// Get returns a copy of the task with the given id.
func (b *TaskBoard) Get(id string) (Task, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// List returns copies of all tasks in creation order.
func (b *TaskBoard) List() []Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Task, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, *b.tasks[id])
	}
	return out
}

// Clear removes every task.
func (b *TaskBoard) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tasks = make(map[string]*Task)
	b.order = nil
}

// RegisterTaskTools exposes the board to the model as task_create,
// task_update, and task_list.
func RegisterTaskTools(reg *ToolRegistry, board *TaskBoard) {
	reg.Register(Registration{
		Name:        "task_create",
		Description: "Add a task to the working plan. Returns the created task with its id.",
		Schema: InputSchema{
			Type: "object",
			Properties: map[string]any{
				"title": map[string]any{"type": "string", "description": "Short task title"},
			},
			Required: []string{"title"},
		},
		Execute: func(ctx context.Context, args json.RawMessage) (any, error) {
			return board.Create(gjson.GetBytes(args, "title").String()), nil
		},
	})

	reg.Register(Registration{
		Name:        "task_update",
		Description: "Update a task's status (pending, in_progress, completed) and optionally its title.",
		Schema: InputSchema{
			Type: "object",
			Properties: map[string]any{
				"id":     map[string]any{"type": "string"},
				"status": map[string]any{"type": "string", "enum": []string{"pending", "in_progress", "completed"}},
				"title":  map[string]any{"type": "string"},
			},
			Required: []string{"id", "status"},
		},
		Execute: func(ctx context.Context, args json.RawMessage) (any, error) {
			return board.Update(
				gjson.GetBytes(args, "id").String(),
				TaskStatus(gjson.GetBytes(args, "status").String()),
				gjson.GetBytes(args, "title").String(),
			)
		},
	})

	reg.Register(Registration{
		Name:        "task_list",
		Description: "List all tasks in the working plan in creation order.",
		Schema:      InputSchema{Type: "object"},
		Execute: func(ctx context.Context, args json.RawMessage) (any, error) {
			return board.List(), nil
		},
	})
}
