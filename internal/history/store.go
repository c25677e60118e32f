package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/screenq/screenq/internal/relay"
)

// ErrNotFound is returned when no record exists for a session id.
var ErrNotFound = errors.New("session not found")

// Record is the persisted state of one session. The full record is rewritten
// on every save; a session's lifetime is one process run.
type Record struct {
	Timestamp time.Time       `json:"timestamp"`
	Context   map[string]any  `json:"context"`
	Messages  []relay.Message `json:"messages"`
}

// Store keeps one JSON file per session in a directory. Single writer per
// process; concurrent writers to the same session id are not supported.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Save overwrites the session file with the full current record.
func (s *Store) Save(sessionID string, rec Record) error {
	if rec.Messages == nil {
		rec.Messages = []relay.Message{}
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", sessionID, err)
	}

	if err := os.WriteFile(s.path(sessionID), data, 0o644); err != nil {
		return fmt.Errorf("write session %s: %w", sessionID, err)
	}

	return nil
}

// Load returns the stored record, or ErrNotFound when the session has never
// been saved.
func (s *Store) Load(sessionID string) (*Record, error) {
	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read session %s: %w", sessionID, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", sessionID, err)
	}

	return &rec, nil
}

func (s *Store) path(sessionID string) string {
	return filepath.Join(s.dir, "session_"+sessionID+".json")
}
