package oracle

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	apperrors "github.com/modulwissen/interview-go/internal/errors"
	"github.com/modulwissen/interview-go/internal/logger"
)

// TraceEvent is one audit line: the full request messages and the raw
// model output of a single completed oracle call.
type TraceEvent struct {
	Timestamp time.Time `json:"ts"`
	SessionID string    `json:"session_id"`
	Op        string    `json:"op"`
	Phase     string    `json:"phase"`
	Messages  []Message `json:"messages"`
	Output    string    `json:"output"`
}

// sessionIDPattern limits trace file names to safe session ids.
var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// TraceWriter appends oracle call records to per-session JSONL files.
type TraceWriter struct {
	mu  sync.Mutex
	dir string
	log *logger.Logger
}

// NewTraceWriter creates a writer rooted at dir. The directory is
// created lazily on first append.
func NewTraceWriter(dir string, log *logger.Logger) *TraceWriter {
	return &TraceWriter{
		dir: dir,
		log: log.WithModule("oracle.trace"),
	}
}

// Append writes one trace line for the event's session.
func (w *TraceWriter) Append(ev TraceEvent) error {
	if w == nil {
		return nil
	}
	if !sessionIDPattern.MatchString(ev.SessionID) {
		return fmt.Errorf("invalid session id %q in trace event", ev.SessionID)
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling trace event: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("creating trace directory: %w", err)
	}

	f, err := os.OpenFile(w.path(ev.SessionID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening trace file: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("writing trace line: %w", err)
	}
	return f.Close()
}

// Open streams the raw trace file for a session. The caller closes the
// reader. Missing files map to ErrTraceNotFound.
func (w *TraceWriter) Open(sessionID string) (io.ReadCloser, error) {
	if w == nil || !sessionIDPattern.MatchString(sessionID) {
		return nil, apperrors.ErrTraceNotFound
	}

	f, err := os.Open(w.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.ErrTraceNotFound
		}
		return nil, fmt.Errorf("opening trace for session %s: %w", sessionID, err)
	}
	return f, nil
}

func (w *TraceWriter) path(sessionID string) string {
	return filepath.Join(w.dir, sessionID+".jsonl")
}
