package session

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/modulwissen/interview-go/internal/errors"
	"github.com/modulwissen/interview-go/internal/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sessions.json")
	return NewStore(path, logger.NewWithWriter("error", io.Discard))
}

func TestStorePutGet(t *testing.T) {
	st := newTestStore(t)

	s := New(ModeInterview)
	s.AppendUser("hallo")
	st.Put("sess-1", s)

	got, ok := st.Get("sess-1")
	require.True(t, ok)
	require.Len(t, got.Transcript, 1)

	// mutating the returned copy does not touch the stored state
	got.AppendUser("noch was")
	again, _ := st.Get("sess-1")
	assert.Len(t, again.Transcript, 1)

	// mutating the put state afterwards does not either
	s.AppendUser("drittens")
	again, _ = st.Get("sess-1")
	assert.Len(t, again.Transcript, 1)

	_, ok = st.Get("sess-2")
	assert.False(t, ok)
}

func TestStorePutSanitizes(t *testing.T) {
	st := newTestStore(t)

	s := New(ModeInterview)
	s.Stage = "unsinn"
	st.Put("sess-1", s)

	got, _ := st.Get("sess-1")
	assert.Equal(t, StageAwaitSemesterProgress, got.Stage)
}

func TestStoreDelete(t *testing.T) {
	st := newTestStore(t)
	st.Put("sess-1", New(ModeInterview))

	require.NoError(t, st.Delete("sess-1"))
	_, ok := st.Get("sess-1")
	assert.False(t, ok)

	err := st.Delete("sess-1")
	assert.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestStoreAllAndIDs(t *testing.T) {
	st := newTestStore(t)
	st.Put("b", New(ModeInterview))
	st.Put("a", New(ModeQA))

	all := st.All()
	assert.Len(t, all, 2)
	assert.Equal(t, ModeQA, all["a"].Mode)
	assert.Equal(t, []string{"a", "b"}, st.IDs())
	assert.Equal(t, 2, st.Len())
}

func TestSnapshotAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	log := logger.NewWithWriter("error", io.Discard)

	st := NewStore(path, log)
	s := New(ModeInterview)
	s.Stage = StageInTL
	s.Current.TLID = "T-WIWI-102816"
	s.AppendUser("hallo")
	st.Put("sess-1", s)
	require.NoError(t, st.Snapshot())

	restored := NewStore(path, log)
	require.NoError(t, restored.Load())

	got, ok := restored.Get("sess-1")
	require.True(t, ok)
	assert.Equal(t, StageInTL, got.Stage)
	assert.Equal(t, "T-WIWI-102816", got.Current.TLID)
	require.Len(t, got.Transcript, 1)
	assert.Equal(t, "hallo", got.Transcript[0].Content)
}

func TestLoadMissingFile(t *testing.T) {
	st := newTestStore(t)
	assert.NoError(t, st.Load())
	assert.Equal(t, 0, st.Len())
}

func TestLoadDropsCorruptedSession(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	log := logger.NewWithWriter("error", io.Discard)

	good := New(ModeInterview)
	goodRaw, err := json.Marshal(good)
	require.NoError(t, err)
	payload := map[string]map[string]json.RawMessage{
		"sessions": {
			"ok":     goodRaw,
			"broken": json.RawMessage(`{"stage": 42}`),
		},
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	st := NewStore(path, log)
	require.NoError(t, st.Load())

	assert.Equal(t, 1, st.Len())
	_, ok := st.Get("ok")
	assert.True(t, ok)
}

func TestLockTurnSerializesPerSession(t *testing.T) {
	st := newTestStore(t)
	st.Put("sess-1", New(ModeInterview))

	var mu sync.Mutex
	var order []int

	unlock := st.LockTurn("sess-1")
	done := make(chan struct{})
	go func() {
		inner := st.LockTurn("sess-1")
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
		inner()
		close(done)
	}()

	// another session is not blocked by sess-1's lock
	other := st.LockTurn("sess-2")
	mu.Lock()
	order = append(order, 1)
	mu.Unlock()
	other()

	unlock()
	<-done

	assert.Equal(t, []int{1, 2}, order)
}
