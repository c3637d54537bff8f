package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/korbot/internal/store"
	"github.com/example/korbot/pkg/models"
)

var testNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Driver: DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func mustStudent(t *testing.T, s *Store, username string) *models.Student {
	t.Helper()
	student := &models.Student{Username: username, CreatedAt: testNow}
	require.NoError(t, s.CreateStudent(context.Background(), student))
	return student
}

func mustItem(t *testing.T, s *Store, korean string, level int, source models.Source, createdAt time.Time) *models.Item {
	t.Helper()
	item := &models.Item{
		Korean:     korean,
		English:    korean + " (en)",
		TopikLevel: level,
		Source:     source,
		CreatedAt:  createdAt,
	}
	require.NoError(t, s.CreateItem(context.Background(), item))
	return item
}

func ids(items []models.PracticeItem) []int64 {
	out := make([]int64, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "mysql", DSN: "x"})
	assert.Error(t, err)
}

func TestItemRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	item := &models.Item{Korean: "-고 싶다", English: "want to", ItemType: models.ItemTypeGrammar, TopikLevel: 2, Tags: models.Tags{"desire"}}
	require.NoError(t, s.CreateItem(ctx, item))
	require.NotZero(t, item.ID)

	got, err := s.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "-고 싶다", got.Korean)
	assert.Equal(t, models.ItemTypeGrammar, got.ItemType)
	assert.Equal(t, models.SourceSeed, got.Source)
	assert.Equal(t, models.Tags{"desire"}, got.Tags)

	found, err := s.FindItemByKorean(ctx, "-고 싶다", models.ItemTypeGrammar)
	require.NoError(t, err)
	assert.Equal(t, item.ID, found.ID)

	_, err = s.FindItemByKorean(ctx, "-고 싶다", models.ItemTypeVocab)
	assert.True(t, errors.Is(err, store.ErrNotFound))

	_, err = s.GetItem(ctx, 9999)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestStudentByChat(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	chatID := int64(555)
	student := &models.Student{Username: "minji", TelegramChatID: &chatID}
	require.NoError(t, s.CreateStudent(ctx, student))
	mustStudent(t, s, "offline")

	got, err := s.GetStudentByChatID(ctx, chatID)
	require.NoError(t, err)
	assert.Equal(t, student.ID, got.ID)

	withChat, err := s.ListStudentsWithChat(ctx)
	require.NoError(t, err)
	require.Len(t, withChat, 1)
	assert.Equal(t, "minji", withChat[0].Username)
}

func TestEnsureItemStateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	student := mustStudent(t, s, "a")
	item := mustItem(t, s, "사과", 1, models.SourceSeed, testNow)

	require.NoError(t, s.EnsureItemState(ctx, student.ID, item.ID, testNow))

	state, err := s.GetSchedulingState(ctx, student.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultEaseFactor, state.EaseFactor)
	assert.Equal(t, 0, state.Repetitions)
	assert.True(t, state.NextReview.Equal(testNow))
	assert.Nil(t, state.LastReviewed)

	state.Repetitions = 3
	require.NoError(t, s.SaveSchedulingState(ctx, state))
	require.NoError(t, s.EnsureItemState(ctx, student.ID, item.ID, testNow.Add(time.Hour)))

	state, err = s.GetSchedulingState(ctx, student.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, state.Repetitions)

	mastery, err := s.GetMastery(ctx, student.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, mastery.PracticeCount)
}

func TestSaveMissingStateIsNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.SaveSchedulingState(ctx, &models.SchedulingState{StudentID: 1, ItemID: 1, EaseFactor: 2.5, NextReview: testNow})
	assert.True(t, errors.Is(err, store.ErrNotFound))

	_, err = s.GetMastery(ctx, 1, 1)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestMasteryRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	student := mustStudent(t, s, "a")
	item := mustItem(t, s, "사과", 1, models.SourceSeed, testNow)
	require.NoError(t, s.EnsureItemState(ctx, student.ID, item.ID, testNow))

	practiced := testNow.Add(time.Minute)
	record := &models.MasteryRecord{
		StudentID:     student.ID,
		ItemID:        item.ID,
		OverallScore:  0.9,
		VocabScore:    0.8,
		PracticeCount: 1,
		ExposureCount: 2,
		UsageCount:    1,
		LastPracticed: &practiced,
		UpdatedAt:     practiced,
	}
	require.NoError(t, s.SaveMastery(ctx, record))

	got, err := s.GetMastery(ctx, student.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.9, got.OverallScore)
	assert.Equal(t, 0.8, got.VocabScore)
	assert.Equal(t, 2, got.ExposureCount)
	require.NotNil(t, got.LastPracticed)
	assert.True(t, got.LastPracticed.Equal(practiced))
}

func TestRecordEncounter(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	student := mustStudent(t, s, "a")
	item := mustItem(t, s, "사과", 1, models.SourceSeed, testNow)

	require.NoError(t, s.RecordEncounter(ctx, student.ID, item.ID, models.EncounterExposed, testNow))
	enc, err := s.GetEncounter(ctx, student.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, enc.EncounterCount)
	assert.Equal(t, models.EncounterExposed, enc.EncounterType)
	assert.Nil(t, enc.FirstPracticed)

	later := testNow.Add(time.Hour)
	require.NoError(t, s.RecordEncounter(ctx, student.ID, item.ID, models.EncounterUsedIncorrectly, later))
	require.NoError(t, s.RecordEncounter(ctx, student.ID, item.ID, models.EncounterExposed, later.Add(time.Hour)))
	require.NoError(t, s.RecordEncounter(ctx, student.ID, item.ID, models.EncounterUsedCorrectly, later.Add(2*time.Hour)))

	enc, err = s.GetEncounter(ctx, student.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, enc.EncounterCount)
	assert.Equal(t, models.EncounterUsedCorrectly, enc.EncounterType)
	assert.True(t, enc.FirstSeen.Equal(testNow))
	require.NotNil(t, enc.FirstPracticed)
	assert.True(t, enc.FirstPracticed.Equal(later))
}

func TestTierQueries(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	student := mustStudent(t, s, "a")

	seedA := mustItem(t, s, "가", 1, models.SourceSeed, testNow)
	seedB := mustItem(t, s, "나", 2, models.SourceSeed, testNow)
	seedC := mustItem(t, s, "다", 1, models.SourceSeed, testNow)
	curatorLate := mustItem(t, s, "라", 1, models.SourceTelegram, testNow.Add(time.Hour))
	curatorEarly := mustItem(t, s, "마", 1, models.SourceManual, testNow)

	q := models.ItemQuery{StudentID: student.ID, Now: testNow}

	unseen, err := s.ListCuratorUnseen(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []int64{curatorEarly.ID, curatorLate.ID}, ids(unseen))

	fresh, err := s.ListCurriculumNew(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []int64{seedA.ID, seedC.ID, curatorLate.ID, curatorEarly.ID, seedB.ID}, ids(fresh))

	leveled := q
	leveled.Level = 2
	fresh, err = s.ListCurriculumNew(ctx, leveled)
	require.NoError(t, err)
	assert.Equal(t, []int64{seedB.ID}, ids(fresh))

	excluded := q
	excluded.Exclude = []int64{seedA.ID, curatorEarly.ID}
	excluded.Limit = 2
	fresh, err = s.ListCurriculumNew(ctx, excluded)
	require.NoError(t, err)
	assert.Equal(t, []int64{seedC.ID, curatorLate.ID}, ids(fresh))

	// seedA and curatorLate due, seedC in the future
	require.NoError(t, s.EnsureItemState(ctx, student.ID, seedA.ID, testNow.Add(-2*time.Hour)))
	require.NoError(t, s.EnsureItemState(ctx, student.ID, curatorLate.ID, testNow.Add(-time.Hour)))
	require.NoError(t, s.EnsureItemState(ctx, student.ID, seedC.ID, testNow.Add(24*time.Hour)))

	overdue, err := s.ListOverdue(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []int64{curatorLate.ID, seedA.ID}, ids(overdue))
	assert.Nil(t, overdue[0].OverallScore, "never practised")
	require.NotNil(t, overdue[0].NextReview)

	due, err := s.ListDue(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []int64{seedA.ID, curatorLate.ID}, ids(due))

	count, err := s.CountDue(ctx, student.ID, testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	scheduled, err := s.ListScheduled(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []int64{seedA.ID, seedC.ID, curatorLate.ID}, ids(scheduled))

	unseen, err = s.ListCuratorUnseen(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []int64{curatorEarly.ID}, ids(unseen))
}

func TestScoreOnlyAfterPractice(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	student := mustStudent(t, s, "a")
	practised := mustItem(t, s, "가", 1, models.SourceSeed, testNow)
	exposed := mustItem(t, s, "나", 1, models.SourceSeed, testNow)

	require.NoError(t, s.EnsureItemState(ctx, student.ID, practised.ID, testNow.Add(-time.Hour)))
	require.NoError(t, s.EnsureItemState(ctx, student.ID, exposed.ID, testNow.Add(-time.Hour)))
	require.NoError(t, s.SaveMastery(ctx, &models.MasteryRecord{
		StudentID: student.ID, ItemID: practised.ID, OverallScore: 0, PracticeCount: 1, ExposureCount: 1, UpdatedAt: testNow,
	}))

	q := models.ItemQuery{StudentID: student.ID, Now: testNow}
	for name, list := range map[string]func(context.Context, models.ItemQuery) ([]models.PracticeItem, error){
		"overdue":   s.ListOverdue,
		"scheduled": s.ListScheduled,
		"due":       s.ListDue,
	} {
		items, err := list(ctx, q)
		require.NoError(t, err, name)
		require.Equal(t, []int64{practised.ID, exposed.ID}, ids(items), name)
		require.NotNil(t, items[0].OverallScore, name)
		assert.Equal(t, 0.0, *items[0].OverallScore, name)
		assert.Nil(t, items[1].OverallScore, name)
	}
}

func TestZeroReferenceTimeIsRejected(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	student := mustStudent(t, s, "a")
	item := mustItem(t, s, "가", 1, models.SourceSeed, testNow)
	q := models.ItemQuery{StudentID: student.ID}

	_, err := s.ListOverdue(ctx, q)
	assert.True(t, errors.Is(err, errZeroTime))
	_, err = s.ListDue(ctx, q)
	assert.True(t, errors.Is(err, errZeroTime))
	_, err = s.CountDue(ctx, student.ID, time.Time{})
	assert.True(t, errors.Is(err, errZeroTime))
	assert.True(t, errors.Is(s.EnsureItemState(ctx, student.ID, item.ID, time.Time{}), errZeroTime))
	assert.True(t, errors.Is(s.RecordEncounter(ctx, student.ID, item.ID, models.EncounterExposed, time.Time{}), errZeroTime))

	count, err := s.CountDue(ctx, student.ID, testNow)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCurriculumStateUpsert(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	student := mustStudent(t, s, "a")

	_, err := s.GetCurriculumState(ctx, student.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))

	require.NoError(t, s.SaveCurriculumState(ctx, &models.CurriculumState{
		StudentID: student.ID, CurrentTopikLevel: 1, CurrentPosition: 4, ItemsIntroduced: 2, UpdatedAt: testNow,
	}))
	require.NoError(t, s.SaveCurriculumState(ctx, &models.CurriculumState{
		StudentID: student.ID, CurrentTopikLevel: 2, CurrentPosition: 9, ItemsIntroduced: 4, UpdatedAt: testNow,
	}))

	state, err := s.GetCurriculumState(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, state.CurrentTopikLevel)
	assert.Equal(t, int64(9), state.CurrentPosition)
	assert.Equal(t, 4, state.ItemsIntroduced)
}

func TestLevelHistoryAndSamples(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	student := mustStudent(t, s, "a")
	item := mustItem(t, s, "사과", 3, models.SourceSeed, testNow)
	untouched := mustItem(t, s, "배", 1, models.SourceSeed, testNow)
	require.NoError(t, s.EnsureItemState(ctx, student.ID, item.ID, testNow))
	require.NoError(t, s.EnsureItemState(ctx, student.ID, untouched.ID, testNow))

	require.NoError(t, s.SaveMastery(ctx, &models.MasteryRecord{
		StudentID: student.ID, ItemID: item.ID, OverallScore: 0.7, PracticeCount: 2, ExposureCount: 2, UpdatedAt: testNow,
	}))

	samples, err := s.ListLevelSamples(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, models.LevelSample{TopikLevel: 3, OverallScore: 0.7, PracticeCount: 2}, samples[0])

	metrics, err := s.ListItemMetrics(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.Equal(t, item.ID, metrics[0].ID)
	assert.Equal(t, 2, metrics[0].ExposureCount)

	_, err = s.LatestLevel(ctx, student.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))

	require.NoError(t, s.AppendLevelHistory(ctx, &models.LevelHistory{StudentID: student.ID, EstimatedLevel: 1.5, CalculatedAt: testNow}))
	second := &models.LevelHistory{StudentID: student.ID, EstimatedLevel: 2.25, CalculatedAt: testNow}
	require.NoError(t, s.AppendLevelHistory(ctx, second))
	assert.NotZero(t, second.ID)

	latest, err := s.LatestLevel(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.25, latest.EstimatedLevel)
}

func TestInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	boom := errors.New("boom")

	err := s.InTx(ctx, func(tx store.Store) error {
		if err := tx.CreateItem(ctx, &models.Item{Korean: "임시", English: "temp"}); err != nil {
			return err
		}
		return tx.InTx(ctx, func(inner store.Store) error {
			return boom
		})
	})
	assert.True(t, errors.Is(err, boom))

	_, err = s.FindItemByKorean(ctx, "임시", "")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	require.NoError(t, s.InTx(ctx, func(tx store.Store) error {
		return tx.CreateItem(ctx, &models.Item{Korean: "영구", English: "kept"})
	}))
	_, err = s.FindItemByKorean(ctx, "영구", "")
	assert.NoError(t, err)
}

func TestPracticeLog(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	student := mustStudent(t, s, "a")

	entry := &models.PracticeLog{SessionID: "abc", StudentID: student.ID, Transcript: "안녕하세요", OverallScore: 0.8}
	require.NoError(t, s.CreatePracticeLog(ctx, entry))
	assert.NotZero(t, entry.ID)
	assert.Equal(t, "[]", entry.ItemIDs)
}
