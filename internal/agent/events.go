package agent

import "time"

// EventKind names the observable moments of a turn.
type EventKind string

const (
	EventHistoryChanged EventKind = "history_changed"
	EventHistoryPruned  EventKind = "history_pruned"
	EventRoundStart     EventKind = "round_start"
	EventToolCallStart  EventKind = "tool_call_start"
	EventToolCallEnd    EventKind = "tool_call_end"
	EventTurnComplete   EventKind = "turn_complete"
	EventWarning        EventKind = "warning"
)

// Event carries a progress notification to observers. Data keys are
// event-specific; see the emit sites in agent.go and conversation.go.
type Event struct {
	Kind      EventKind
	Timestamp time.Time
	Data      map[string]any
}

// Observer receives events synchronously on the turn's goroutine.
// Implementations must not call back into the Agent from OnEvent.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

type observerList struct {
	observers []Observer
}

func (l *observerList) add(o Observer) {
	if o != nil {
		l.observers = append(l.observers, o)
	}
}

func (l *observerList) emit(kind EventKind, data map[string]any) {
	if len(l.observers) == 0 {
		return
	}
	e := Event{Kind: kind, Timestamp: time.Now(), Data: data}
	for _, o := range l.observers {
		o.OnEvent(e)
	}
}
