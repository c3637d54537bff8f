package practice

import (
	"context"
	"math"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/example/korbot/internal/spaced_repetition"
	"github.com/example/korbot/internal/store"
	"github.com/example/korbot/pkg/models"
)

const lockStripes = 64

// keyLocks serializes work on the same student+item pair within the process
type keyLocks struct {
	stripes [lockStripes]sync.Mutex
}

func (k *keyLocks) lock(studentID, itemID int64) func() {
	h := uint64(studentID)*0x9E3779B97F4A7C15 ^ uint64(itemID)
	mu := &k.stripes[h%lockStripes]
	mu.Lock()
	return mu.Unlock
}

// Recorder applies practice outcomes to scheduling state, mastery and
// encounter counters
type Recorder struct {
	store store.Store
	sm2   *spaced_repetition.SM2
	opts  options
	locks keyLocks
}

// NewRecorder creates a Recorder backed by st
func NewRecorder(st store.Store, opts ...Option) *Recorder {
	return &Recorder{
		store: st,
		sm2:   spaced_repetition.NewSM2(),
		opts:  newOptions(opts),
	}
}

// RecordOutcome runs one SM-2 step for the outcome, folds it into the mastery
// record and bumps the usage counters. All writes for the pair commit
// together. It returns the new scheduling state.
func (r *Recorder) RecordOutcome(ctx context.Context, outcome models.Outcome) (*models.SchedulingState, error) {
	if outcome.Kind == "" {
		outcome.Kind = models.EncounterExposed
	}
	if err := validateOutcome(outcome); err != nil {
		return nil, err
	}

	unlock := r.locks.lock(outcome.StudentID, outcome.ItemID)
	defer unlock()

	now := r.opts.clock()
	var next models.SchedulingState
	err := r.store.InTx(ctx, func(tx store.Store) error {
		if _, err := tx.GetStudent(ctx, outcome.StudentID); err != nil {
			return reference(err, "student %d", outcome.StudentID)
		}
		if _, err := tx.GetItem(ctx, outcome.ItemID); err != nil {
			return reference(err, "item %d", outcome.ItemID)
		}
		if err := tx.EnsureItemState(ctx, outcome.StudentID, outcome.ItemID, now); err != nil {
			return err
		}

		state, err := tx.GetSchedulingState(ctx, outcome.StudentID, outcome.ItemID)
		if err != nil {
			return err
		}
		next = r.sm2.Calculate(*state, outcome.Quality, outcome.SubScores, now)
		if err := tx.SaveSchedulingState(ctx, &next); err != nil {
			return err
		}

		mastery, err := tx.GetMastery(ctx, outcome.StudentID, outcome.ItemID)
		if err != nil {
			return err
		}
		spaced_repetition.ApplyObservation(mastery, outcome.Quality, outcome.SubScores, outcome.Kind, now)
		if err := tx.SaveMastery(ctx, mastery); err != nil {
			return err
		}

		return tx.RecordEncounter(ctx, outcome.StudentID, outcome.ItemID, outcome.Kind, now)
	})
	if err != nil {
		return nil, err
	}

	r.opts.metrics.OutcomeRecorded(string(outcome.Kind))
	r.opts.logger.Debug("recorded outcome",
		zap.Int64("student_id", outcome.StudentID),
		zap.Int64("item_id", outcome.ItemID),
		zap.Float64("quality", outcome.Quality),
		zap.String("kind", string(outcome.Kind)),
		zap.Float64("interval_days", next.IntervalDays),
		zap.Float64("ease_factor", next.EaseFactor),
	)
	return &next, nil
}

func validateOutcome(o models.Outcome) error {
	if !o.Kind.Valid() {
		return errors.Wrapf(ErrInvalidOutcome, "unknown encounter kind %q", o.Kind)
	}
	if !unitInterval(o.Quality) {
		return errors.Wrapf(ErrInvalidOutcome, "quality %v outside [0, 1]", o.Quality)
	}
	if s := o.SubScores; s != nil {
		for _, v := range []float64{s.Grammar, s.Vocab, s.Formality} {
			if !unitInterval(v) {
				return errors.Wrapf(ErrInvalidOutcome, "sub-score %v outside [0, 1]", v)
			}
		}
	}
	return nil
}

func unitInterval(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
