package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	apperrors "github.com/modulwissen/interview-go/internal/errors"
	"github.com/modulwissen/interview-go/internal/logger"
)

// Store keeps all session states in memory and mirrors them to a JSON
// snapshot file. States are deep-copied on the way in and out; the stored
// instances are never handed to callers.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*State

	turnMu sync.Mutex
	turns  map[string]*sync.Mutex

	path string
	log  *logger.Logger
}

// NewStore creates a store snapshotting to path.
func NewStore(path string, log *logger.Logger) *Store {
	return &Store{
		sessions: make(map[string]*State),
		turns:    make(map[string]*sync.Mutex),
		path:     path,
		log:      log.WithModule("session.store"),
	}
}

// LockTurn serializes turns of one session while other sessions proceed.
// The returned function releases the lock.
func (st *Store) LockTurn(sessionID string) func() {
	st.turnMu.Lock()
	mu, ok := st.turns[sessionID]
	if !ok {
		mu = &sync.Mutex{}
		st.turns[sessionID] = mu
	}
	st.turnMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// Get returns a deep copy of the session state.
func (st *Store) Get(sessionID string) (*State, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

// Put sanitizes and stores a deep copy of the state.
func (st *Store) Put(sessionID string, s *State) {
	c := s.Clone()
	c.Sanitize()

	st.mu.Lock()
	st.sessions[sessionID] = c
	st.mu.Unlock()
}

// Delete removes a session. The turn mutex is kept; it is tiny and a
// late turn for the deleted id must still serialize against re-creation.
func (st *Store) Delete(sessionID string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[sessionID]; !ok {
		return fmt.Errorf("deleting session %q: %w", sessionID, apperrors.ErrSessionNotFound)
	}
	delete(st.sessions, sessionID)
	return nil
}

// All returns deep copies of every session keyed by id.
func (st *Store) All() map[string]*State {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make(map[string]*State, len(st.sessions))
	for id, s := range st.sessions {
		out[id] = s.Clone()
	}
	return out
}

// IDs returns all session ids sorted for stable output.
func (st *Store) IDs() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	ids := make([]string, 0, len(st.sessions))
	for id := range st.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of stored sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

type snapshotFile struct {
	Sessions map[string]json.RawMessage `json:"sessions"`
}

// Snapshot writes all sessions to the snapshot file atomically. Called
// after every completed turn.
func (st *Store) Snapshot() error {
	st.mu.RLock()
	payload := struct {
		Sessions map[string]*State `json:"sessions"`
	}{Sessions: st.sessions}
	data, err := json.MarshalIndent(payload, "", "  ")
	st.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshaling sessions: %w", err)
	}

	dir := filepath.Dir(st.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(st.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating snapshot temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing snapshot temp file: %w", err)
	}
	if err := os.Rename(tmpName, st.path); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// Load restores sessions from the snapshot file. A missing file is a
// clean start. A session that fails to decode is dropped with a warning
// instead of failing the whole load.
func (st *Store) Load() error {
	data, err := os.ReadFile(st.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading snapshot: %w", err)
	}

	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	for id, raw := range file.Sessions {
		var s State
		if err := json.Unmarshal(raw, &s); err != nil {
			st.log.WithError(err).WithField("session_id", id).Warn("dropping corrupted session from snapshot")
			continue
		}
		s.Sanitize()
		st.sessions[id] = &s
	}
	st.log.WithField("sessions", len(st.sessions)).Info("session snapshot loaded")
	return nil
}
