package service

import (
	"sync"
	"testing"
	"time"

	"fitsearch/internal/geo"
	"fitsearch/internal/model"
	"fitsearch/internal/repository"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: testNow}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func ptr[T any](v T) *T { return &v }

func newTestExtractor() *Extractor {
	return NewExtractor(geo.MustDefault(), fixedNow)
}

func newTestEngine() *QueryEngine {
	sessions := NewSessionStore(SessionConfig{Clock: fixedNow})
	return NewQueryEngine(geo.MustDefault(), sessions, EngineConfig{Clock: fixedNow})
}

func newTestSearchService(t *testing.T) (*SearchService, *repository.MemoryRepository) {
	t.Helper()
	repo, err := repository.LoadMemoryRepository("../repository/testdata/installations.yaml")
	require.NoError(t, err)
	svc := NewSearchService(newTestEngine(), repo, NewRanker(0.4, 0.35, 0.25), nil, SearchConfig{
		DefaultTopK: 20,
		MaxTopK:     100,
	})
	return svc, repo
}

// recordDummyResult gives a session something for follow-ups to refer to
func recordDummyResult(t *testing.T, e *QueryEngine, sessionID string) {
	t.Helper()
	require.NoError(t, e.Sessions().RecordResult(sessionID, model.ResultHandle{
		SearchID:        "search-1",
		Total:           2,
		InstallationIDs: []string{"100101", "100103"},
	}))
}
