// Package store persists session snapshots. Two backends are provided:
// a one-file-per-session JSON store and a SQLite store.
package store

import (
	"errors"
	"time"

	"github.com/aidekit/aide/internal/agent"
)

// ErrNotFound is returned when no session exists under the given id.
var ErrNotFound = errors.New("session not found")

// SessionInfo summarizes a stored session for listings.
type SessionInfo struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Messages  int       `json:"messages"`
}

// SessionStore saves and restores session snapshots by id.
type SessionStore interface {
	Save(snap agent.Snapshot) error
	Load(id string) (agent.Snapshot, error)
	List() ([]SessionInfo, error)
	Delete(id string) error
	Close() error
}
