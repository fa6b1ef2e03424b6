// Package syncstate persists the cursor of the last successful
// user-data sync so the client can resume where it left off.
package syncstate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"streamnet/pkg/logger"
)

// State is the persisted outcome of the last successful sync
type State struct {
	Cursor     string    `json:"cursor"`
	LastSyncAt time.Time `json:"last_sync_at"`
	Synced     int       `json:"synced"`
	Version    int       `json:"version"`
}

// Manager handles sync state persistence. Saves are atomic
// (temp file + rename) and guarded by an advisory lock against
// concurrent processes.
type Manager struct {
	path   string
	lock   *flock.Flock
	logger logger.Logger
}

// NewManager creates a sync state manager rooted at dir
func NewManager(dir string, log logger.Logger) (*Manager, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sync state directory: %w", err)
	}

	path := filepath.Join(dir, "sync_state.json")
	return &Manager{
		path:   path,
		lock:   flock.New(path + ".lock"),
		logger: log,
	}, nil
}

// Load reads the persisted state. A missing file returns (nil, nil).
func (m *Manager) Load() (*State, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read sync state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode sync state: %w", err)
	}

	m.logger.DebugWithFields("sync state loaded", map[string]interface{}{
		"cursor":       state.Cursor,
		"last_sync_at": state.LastSyncAt,
	})
	return &state, nil
}

// Save writes the state atomically
func (m *Manager) Save(state *State) error {
	state.LastSyncAt = time.Now()
	if state.Version == 0 {
		state.Version = 1
	}

	if err := m.lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock sync state: %w", err)
	}
	defer m.lock.Unlock()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode sync state: %w", err)
	}

	tempPath := m.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write sync state: %w", err)
	}
	if err := os.Rename(tempPath, m.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename sync state: %w", err)
	}

	m.logger.DebugWithFields("sync state saved", map[string]interface{}{
		"cursor": state.Cursor,
	})
	return nil
}

// Clear removes the persisted state. Clearing a missing file is not an
// error.
func (m *Manager) Clear() error {
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove sync state: %w", err)
	}
	return nil
}
