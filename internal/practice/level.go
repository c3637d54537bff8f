package practice

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/example/korbot/internal/spaced_repetition"
	"github.com/example/korbot/internal/store"
	"github.com/example/korbot/pkg/models"
)

// HistoryMode decides when a level estimate is appended to the history
type HistoryMode string

const (
	// HistoryAlways appends a row on every estimate
	HistoryAlways HistoryMode = "always"
	// HistoryOnChange appends only when the rounded level differs from the latest row
	HistoryOnChange HistoryMode = "on_change"
)

// ParseHistoryMode validates a configured history mode. Empty means always.
func ParseHistoryMode(s string) (HistoryMode, error) {
	switch HistoryMode(s) {
	case "", HistoryAlways:
		return HistoryAlways, nil
	case HistoryOnChange:
		return HistoryOnChange, nil
	}
	return "", errors.Errorf("unknown level history mode %q", s)
}

// LevelEstimator derives a student's TOPIK level from mastery records
type LevelEstimator struct {
	store store.Store
	mode  HistoryMode
	opts  options
}

// NewLevelEstimator creates a LevelEstimator backed by st
func NewLevelEstimator(st store.Store, mode HistoryMode, opts ...Option) *LevelEstimator {
	if mode == "" {
		mode = HistoryAlways
	}
	return &LevelEstimator{store: st, mode: mode, opts: newOptions(opts)}
}

// EstimateLevel returns the student's level in [1.0, 6.0], rounded to two
// decimals, and records it in the level history
func (e *LevelEstimator) EstimateLevel(ctx context.Context, studentID int64) (float64, error) {
	now := e.opts.clock()
	var level float64
	err := e.store.InTx(ctx, func(tx store.Store) error {
		if _, err := tx.GetStudent(ctx, studentID); err != nil {
			return reference(err, "student %d", studentID)
		}

		samples, err := tx.ListLevelSamples(ctx, studentID)
		if err != nil {
			return err
		}
		level = spaced_repetition.EstimateLevel(samples)

		if e.mode == HistoryOnChange {
			latest, err := tx.LatestLevel(ctx, studentID)
			switch {
			case err == nil && latest.EstimatedLevel == level:
				return nil
			case err != nil && !errors.Is(err, store.ErrNotFound):
				return err
			}
		}

		return tx.AppendLevelHistory(ctx, &models.LevelHistory{
			StudentID:      studentID,
			EstimatedLevel: level,
			CalculatedAt:   now,
		})
	})
	if err != nil {
		return 0, err
	}

	e.opts.metrics.LevelEstimated(level)
	e.opts.logger.Debug("estimated level", zap.Int64("student_id", studentID), zap.Float64("level", level))
	return level, nil
}
