package practice

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHistoryMode(t *testing.T) {
	mode, err := ParseHistoryMode("")
	require.NoError(t, err)
	assert.Equal(t, HistoryAlways, mode)

	mode, err = ParseHistoryMode("on_change")
	require.NoError(t, err)
	assert.Equal(t, HistoryOnChange, mode)

	_, err = ParseHistoryMode("sometimes")
	assert.Error(t, err)
}

func TestEstimateLevelWithoutPractice(t *testing.T) {
	env := newTestEnv(t)
	student := env.student("minji")
	estimator := NewLevelEstimator(env.store, HistoryAlways, env.options()...)

	level, err := estimator.EstimateLevel(env.ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, level)

	latest, err := env.store.LatestLevel(env.ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, latest.EstimatedLevel)

	_, err = estimator.EstimateLevel(env.ctx, 404)
	assert.True(t, errors.Is(err, ErrInvalidReference))
}

func TestEstimateLevelFromMastery(t *testing.T) {
	env := newTestEnv(t)
	student := env.student("minji")
	later := env.clock.Now().Add(time.Hour)

	samples := []struct {
		korean  string
		level   int
		overall float64
	}{
		{"하나", 1, 0.9},
		{"둘", 1, 0.9},
		{"경제", 2, 0.8},
		{"관계", 3, 0.2},
	}
	for _, s := range samples {
		item := env.vocab(s.korean, s.level)
		env.schedule(student.ID, item.ID, later, s.overall)
	}

	estimator := NewLevelEstimator(env.store, HistoryAlways, env.options()...)
	level, err := estimator.EstimateLevel(env.ctx, student.ID)
	require.NoError(t, err)
	assert.InDelta(t, 2.2, level, 1e-9)
}

func TestEstimateLevelHistoryModes(t *testing.T) {
	env := newTestEnv(t)
	student := env.student("minji")
	historyRows := func() int {
		return env.count(`SELECT COUNT(*) FROM student_level_history WHERE student_id = ?`, student.ID)
	}

	always := NewLevelEstimator(env.store, HistoryAlways, env.options()...)
	for i := 0; i < 3; i++ {
		_, err := always.EstimateLevel(env.ctx, student.ID)
		require.NoError(t, err)
		env.clock.Advance(time.Minute)
	}
	assert.Equal(t, 3, historyRows())

	onChange := NewLevelEstimator(env.store, HistoryOnChange, env.options()...)
	_, err := onChange.EstimateLevel(env.ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, historyRows())

	item := env.vocab("사과", 2)
	env.schedule(student.ID, item.ID, env.clock.Now(), 1.0)
	env.clock.Advance(time.Minute)

	level, err := onChange.EstimateLevel(env.ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.5, level)
	assert.Equal(t, 4, historyRows())

	latest, err := env.store.LatestLevel(env.ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.5, latest.EstimatedLevel)
}
