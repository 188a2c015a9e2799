package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aidekit/aide/internal/agent"
	"github.com/aidekit/aide/internal/logging"
)

// FileStore keeps each session as a pretty-printed JSON file named
// <id>.json under a directory. Writes go through a temp file and rename
// so a crash never leaves a half-written session.
type FileStore struct {
	dir string
	log *logging.Logger
}

// NewFileStore creates the directory if needed and returns a store.
func NewFileStore(dir string, log *logging.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}
	return &FileStore{dir: dir, log: log.Sub("store")}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// validID rejects ids that could escape the store directory.
func validID(id string) error {
	if id == "" || strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return fmt.Errorf("invalid session id %q", id)
	}
	return nil
}

// Save writes the snapshot under its id, replacing any previous save.
func (s *FileStore) Save(snap agent.Snapshot) error {
	if err := validID(snap.ID); err != nil {
		return err
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", snap.ID, err)
	}

	tmp := s.path(snap.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing session %s: %w", snap.ID, err)
	}
	if err := os.Rename(tmp, s.path(snap.ID)); err != nil {
		return fmt.Errorf("writing session %s: %w", snap.ID, err)
	}

	s.log.Debug().Str("id", snap.ID).Int("messages", len(snap.Messages)).Msg("session saved")
	return nil
}

// Load reads the snapshot saved under id.
func (s *FileStore) Load(id string) (agent.Snapshot, error) {
	var snap agent.Snapshot
	if err := validID(id); err != nil {
		return snap, err
	}

	data, err := os.ReadFile(s.path(id))
	if os.IsNotExist(err) {
		return snap, ErrNotFound
	}
	if err != nil {
		return snap, fmt.Errorf("reading session %s: %w", id, err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("decoding session %s: %w", id, err)
	}
	return snap, nil
}

// List returns stored sessions, newest first.
func (s *FileStore) List() ([]SessionInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	var infos []SessionInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".json")
		snap, err := s.Load(id)
		if err != nil {
			s.log.Warn().Str("id", id).Err(err).Msg("skipping unreadable session")
			continue
		}
		infos = append(infos, SessionInfo{
			ID:        snap.ID,
			Timestamp: snap.Timestamp,
			Messages:  len(snap.Messages),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Timestamp.After(infos[j].Timestamp)
	})
	return infos, nil
}

// Delete removes the session saved under id.
func (s *FileStore) Delete(id string) error {
	if err := validID(id); err != nil {
		return err
	}
	err := os.Remove(s.path(id))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error { return nil }
