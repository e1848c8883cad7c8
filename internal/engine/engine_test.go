package engine

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"docchat/internal/models"
	"docchat/internal/util"

	"github.com/stretchr/testify/require"
)

func TestRenameRefreshesLastUpdated(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, te.store.Create(ctx, models.Session{SessionID: "s1", Title: "New Chat"}))
	before := te.store.revision("s1")

	require.NoError(t, te.eng.Rename(ctx, "s1", "Renamed"))
	require.Greater(t, te.store.revision("s1"), before)

	sess, err := te.store.Get(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, "Renamed", sess.Title)

	// Renaming to the current title still counts as activity.
	mid := te.store.revision("s1")
	require.NoError(t, te.eng.Rename(ctx, "s1", "Renamed"))
	require.Greater(t, te.store.revision("s1"), mid)
}

func TestRenameUnknownSession(t *testing.T) {
	te := newTestEngine(t)
	err := te.eng.Rename(context.Background(), "missing", "title")
	require.ErrorIs(t, err, util.ErrSessionNotFound)
}

func TestDeleteRemovesRecordAndIndex(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	res, err := te.eng.Ingest(ctx, IngestInput{
		Files: []FileUpload{upload("paper.pdf", strings.Repeat("a", 30))},
	})
	require.NoError(t, err)
	require.True(t, te.indexes.Exists(res.SessionID))

	require.NoError(t, te.eng.Delete(ctx, res.SessionID))
	require.False(t, te.indexes.Exists(res.SessionID))
	_, err = te.store.Get(ctx, res.SessionID)
	require.ErrorIs(t, err, util.ErrSessionNotFound)

	// Deleting again is a no-op.
	require.NoError(t, te.eng.Delete(ctx, res.SessionID))
}

func TestDeleteWaitsForHeldLock(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, te.store.Create(ctx, models.Session{SessionID: "s1", Title: "New Chat"}))

	lk := te.eng.locks.get("s1")
	lk.Lock()

	done := make(chan error, 1)
	go func() {
		done <- te.eng.Delete(ctx, "s1")
	}()

	select {
	case <-done:
		t.Fatal("delete completed while the session lock was held")
	case <-time.After(50 * time.Millisecond):
	}

	lk.Unlock()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("delete never completed after the lock was released")
	}
}

func TestListSessions(t *testing.T) {
	te := newTestEngine(t)
	ctx := context.Background()

	sums, err := te.eng.ListSessions(ctx)
	require.NoError(t, err)
	require.Empty(t, sums)

	require.NoError(t, te.store.Create(ctx, models.Session{SessionID: "s1", Title: "One"}))
	require.NoError(t, te.store.Create(ctx, models.Session{SessionID: "s2", Title: "Two"}))

	sums, err = te.eng.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sums, 2)
}

func TestSessionLocksSameKeySameMutex(t *testing.T) {
	locks := newSessionLocks()
	a := locks.get("s1")
	b := locks.get("s1")
	require.Same(t, a, b)
	require.NotSame(t, a, locks.get("s2"))
}

func TestSessionLocksConcurrentGet(t *testing.T) {
	locks := newSessionLocks()
	var wg sync.WaitGroup
	results := make([]*sync.Mutex, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = locks.get("shared")
		}(i)
	}
	wg.Wait()
	for i := 1; i < len(results); i++ {
		require.Same(t, results[0], results[i])
	}
}
