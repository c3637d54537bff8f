package practice

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/korbot/internal/database"
	"github.com/example/korbot/pkg/models"
)

var testStart = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: testStart}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	t     *testing.T
	ctx   context.Context
	store *database.Store
	clock *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s, err := database.Open(database.Config{Driver: database.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return &testEnv{t: t, ctx: context.Background(), store: s, clock: newFakeClock()}
}

func (e *testEnv) options() []Option {
	return []Option{WithClock(e.clock.Now), WithRand(rand.New(rand.NewSource(1)))}
}

func (e *testEnv) student(username string) *models.Student {
	e.t.Helper()
	student := &models.Student{Username: username, CreatedAt: testStart}
	require.NoError(e.t, e.store.CreateStudent(e.ctx, student))
	return student
}

func (e *testEnv) item(korean string, itemType models.ItemType, level int, source models.Source) *models.Item {
	e.t.Helper()
	item := &models.Item{
		Korean:     korean,
		English:    korean + " (en)",
		ItemType:   itemType,
		TopikLevel: level,
		Source:     source,
		CreatedAt:  e.clock.Now(),
	}
	require.NoError(e.t, e.store.CreateItem(e.ctx, item))
	return item
}

func (e *testEnv) vocab(korean string, level int) *models.Item {
	return e.item(korean, models.ItemTypeVocab, level, models.SourceSeed)
}

// schedule creates state for the pair due at dueAt with the given mastery
func (e *testEnv) schedule(studentID, itemID int64, dueAt time.Time, overall float64) {
	e.t.Helper()
	require.NoError(e.t, e.store.EnsureItemState(e.ctx, studentID, itemID, dueAt))
	require.NoError(e.t, e.store.SaveMastery(e.ctx, &models.MasteryRecord{
		StudentID:     studentID,
		ItemID:        itemID,
		OverallScore:  overall,
		PracticeCount: 1,
		ExposureCount: 1,
		UpdatedAt:     testStart,
	}))
}

func (e *testEnv) count(query string, args ...interface{}) int {
	e.t.Helper()
	var n int
	require.NoError(e.t, e.store.DB().Get(&n, e.store.DB().Rebind(query), args...))
	return n
}

func itemIDs(items []models.PracticeItem) []int64 {
	out := make([]int64, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}
