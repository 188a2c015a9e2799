package agent

import (
	"fmt"
	"time"
)

// SnapshotVersion tags the snapshot format for forward compatibility.
const SnapshotVersion = 1

// Snapshot is a self-contained copy of a session: the conversation, the
// system prompt, and the tunables in force when it was taken. It holds
// no references into live state.
type Snapshot struct {
	Version      int       `json:"version"`
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	SystemPrompt string    `json:"system_prompt"`
	Messages     []Message `json:"messages"`
	Config       Config    `json:"config"`
}

// SaveSession captures the current session under the given id.
func (a *Agent) SaveSession(id string) Snapshot {
	return Snapshot{
		Version:      SnapshotVersion,
		ID:           id,
		Timestamp:    time.Now(),
		SystemPrompt: a.conv.SystemPrompt(),
		Messages:     a.conv.Messages(),
		Config:       a.Config(),
	}
}

// LoadSession replaces the conversation and tunables wholesale with the
// snapshot's contents. Structurally invalid snapshots are rejected
// without touching live state.
func (a *Agent) LoadSession(snap Snapshot) error {
	if snap.Version != SnapshotVersion {
		return fmt.Errorf("unsupported session version %d (want %d)", snap.Version, SnapshotVersion)
	}
	if snap.ID == "" {
		return fmt.Errorf("session snapshot has no id")
	}
	for i, m := range snap.Messages {
		switch m.Role {
		case RoleUser, RoleAssistant, RoleTool:
		default:
			return fmt.Errorf("session message %d has invalid role %q", i, m.Role)
		}
	}

	a.conv.restore(snap.SystemPrompt, snap.Messages)
	a.SetConfig(snap.Config)
	return nil
}
