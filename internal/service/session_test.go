package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"fitsearch/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(clock *fakeClock) *SessionStore {
	return NewSessionStore(SessionConfig{TTL: 30 * time.Minute, SweepInterval: time.Minute, Clock: clock.Now})
}

func TestSessionStoreWithSession(t *testing.T) {
	store := newTestStore(newFakeClock())

	_, err := store.Get("s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	err = store.WithSession("s1", func(sess *model.Session) error {
		sess.TurnCount++
		sess.LastFilter = &model.FilterSpec{Technology: ptr(model.TechWind)}
		return nil
	})
	require.NoError(t, err)

	got, err := store.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.TurnCount)
	assert.Equal(t, testNow, got.CreatedAt)

	// the returned session is a copy
	*got.LastFilter.Technology = model.TechHydro
	again, err := store.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, model.TechWind, *again.LastFilter.Technology)
}

func TestSessionStoreExpiry(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(clock)

	require.NoError(t, store.WithSession("s1", func(sess *model.Session) error {
		sess.TurnCount = 3
		return nil
	}))

	clock.Advance(30 * time.Minute)
	_, err := store.Get("s1")
	assert.NoError(t, err, "exactly the TTL is still live")

	clock.Advance(time.Second)
	_, err = store.Get("s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, store.RecordResult("s1", model.ResultHandle{SearchID: "x", Total: 1}), ErrSessionNotFound)

	// a turn on an expired session starts from scratch
	require.NoError(t, store.WithSession("s1", func(sess *model.Session) error {
		assert.Equal(t, 0, sess.TurnCount)
		assert.Nil(t, sess.LastFilter)
		return nil
	}))
}

func TestSessionStoreSweep(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(clock)
	noop := func(*model.Session) error { return nil }

	require.NoError(t, store.WithSession("old", noop))
	clock.Advance(20 * time.Minute)
	require.NoError(t, store.WithSession("new", noop))
	clock.Advance(15 * time.Minute)

	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())

	_, err := store.Get("old")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.Get("new")
	assert.NoError(t, err)

	assert.Equal(t, 0, store.Sweep())
}

func TestSessionStoreClear(t *testing.T) {
	store := newTestStore(newFakeClock())
	require.NoError(t, store.WithSession("s1", func(*model.Session) error { return nil }))

	require.NoError(t, store.Clear("s1"))
	_, err := store.Get("s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, store.Clear("s1"), ErrSessionNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestSessionStoreRecordResult(t *testing.T) {
	clock := newFakeClock()
	store := newTestStore(clock)

	assert.ErrorIs(t, store.RecordResult("missing", model.ResultHandle{SearchID: "x"}), ErrSessionNotFound)

	require.NoError(t, store.WithSession("s1", func(*model.Session) error { return nil }))
	clock.Advance(10 * time.Minute)
	handle := model.ResultHandle{SearchID: "search-1", Total: 2, InstallationIDs: []string{"100101", "100103"}}
	require.NoError(t, store.RecordResult("s1", handle))

	got, err := store.Get("s1")
	require.NoError(t, err)
	require.NotNil(t, got.LastResultHandle)
	assert.Equal(t, handle, *got.LastResultHandle)
	assert.True(t, got.HasResults())
	assert.Equal(t, testNow.Add(10*time.Minute), got.LastActiveAt)
}

func TestSessionStoreSerializesTurns(t *testing.T) {
	store := newTestStore(newFakeClock())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.WithSession("shared", func(sess *model.Session) error {
				n := sess.TurnCount
				time.Sleep(time.Microsecond)
				sess.TurnCount = n + 1
				return nil
			})
		}()
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.WithSession(NewSessionID(), func(sess *model.Session) error {
				sess.TurnCount = i
				return nil
			})
		}(i)
	}
	wg.Wait()

	got, err := store.Get("shared")
	require.NoError(t, err)
	assert.Equal(t, 50, got.TurnCount)
	assert.Equal(t, 51, store.Len())
}

func TestSessionStoreSweeperStops(t *testing.T) {
	clock := newFakeClock()
	store := NewSessionStore(SessionConfig{TTL: time.Minute, SweepInterval: 5 * time.Millisecond, Clock: clock.Now})
	require.NoError(t, store.WithSession("s1", func(*model.Session) error { return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store.StartSweeper(ctx)

	clock.Advance(2 * time.Minute)
	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestSessionStoreReleasesLockOnPanic(t *testing.T) {
	store := newTestStore(newFakeClock())

	assert.Panics(t, func() {
		_ = store.WithSession("s1", func(sess *model.Session) error {
			sess.TurnCount++
			panic("handler bug")
		})
	})

	done := make(chan error, 1)
	go func() {
		done <- store.WithSession("s1", func(sess *model.Session) error {
			sess.TurnCount++
			return nil
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("session stayed locked after a panic")
	}
	got, err := store.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.TurnCount)
}
