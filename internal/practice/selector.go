package practice

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/example/korbot/internal/store"
	"github.com/example/korbot/pkg/models"
)

// Selector decides which items a student practises next.
//
// Candidates are drawn from four tiers, in order, until the batch is full:
//  1. curator-introduced items the student has never seen
//  2. overdue items, curator items first
//  3. scheduled items with the lowest mastery
//  4. new items in curriculum order, capped per session
type Selector struct {
	store store.Store
	opts  options

	// guards opts.rng
	mu sync.Mutex
}

// NewSelector creates a Selector backed by st
func NewSelector(st store.Store, opts ...Option) *Selector {
	return &Selector{store: st, opts: newOptions(opts)}
}

// SelectItems returns at most count items for the student. level restricts
// every tier to one TOPIK level, 0 means any. newItemsCap bounds how many
// never-seen curriculum items may join the batch. A short or empty batch is
// not an error. The tier queries skip items without rows, but an unknown
// student is not treated the same way: it fails with ErrInvalidReference
// instead of yielding an empty batch.
func (s *Selector) SelectItems(ctx context.Context, studentID int64, count, level, newItemsCap int) ([]models.PracticeItem, error) {
	if count <= 0 {
		return []models.PracticeItem{}, nil
	}

	now := s.opts.clock()
	var batch []models.PracticeItem
	err := s.store.InTx(ctx, func(tx store.Store) error {
		if _, err := tx.GetStudent(ctx, studentID); err != nil {
			return reference(err, "student %d", studentID)
		}
		var err error
		batch, err = s.selectTiers(ctx, tx, studentID, count, level, newItemsCap, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, item := range batch {
		s.opts.metrics.ItemSelected(item.Tier.String())
	}
	s.opts.logger.Debug("selected practice items",
		zap.Int64("student_id", studentID),
		zap.Int("requested", count),
		zap.Int("selected", len(batch)),
		zap.Int("level", level),
	)
	return batch, nil
}

func (s *Selector) selectTiers(ctx context.Context, tx store.Store, studentID int64, count, level, newItemsCap int, now time.Time) ([]models.PracticeItem, error) {
	batch := make([]models.PracticeItem, 0, count)
	query := func(limit int) models.ItemQuery {
		exclude := make([]int64, 0, len(batch))
		for _, item := range batch {
			exclude = append(exclude, item.ID)
		}
		return models.ItemQuery{
			StudentID: studentID,
			Level:     level,
			Exclude:   exclude,
			Limit:     limit,
			Now:       now,
		}
	}

	// Tier 1
	curator, err := tx.ListCuratorUnseen(ctx, query(count))
	if err != nil {
		return nil, err
	}
	for _, item := range curator {
		if err := tx.EnsureItemState(ctx, studentID, item.ID, now); err != nil {
			return nil, err
		}
		batch = append(batch, introduced(item, models.TierCuratorUnseen, now))
	}

	// Tier 2
	if remaining := count - len(batch); remaining > 0 {
		overdue, err := tx.ListOverdue(ctx, query(remaining))
		if err != nil {
			return nil, err
		}
		batch = appendTier(batch, overdue, models.TierOverdue)
	}

	// Tier 3
	if remaining := count - len(batch); remaining > 0 {
		scheduled, err := tx.ListScheduled(ctx, query(0))
		if err != nil {
			return nil, err
		}
		weakest := s.rankByMastery(scheduled)
		if len(weakest) > remaining {
			weakest = weakest[:remaining]
		}
		batch = appendTier(batch, weakest, models.TierLowestMastery)
	}

	// Tier 4
	if remaining := count - len(batch); remaining > 0 && newItemsCap > 0 {
		limit := remaining
		if newItemsCap < limit {
			limit = newItemsCap
		}
		fresh, err := tx.ListCurriculumNew(ctx, query(limit))
		if err != nil {
			return nil, err
		}
		for _, item := range fresh {
			if err := tx.EnsureItemState(ctx, studentID, item.ID, now); err != nil {
				return nil, err
			}
			batch = append(batch, introduced(item, models.TierCurriculumNew, now))
		}
		if len(fresh) > 0 {
			if err := advanceCurriculum(ctx, tx, studentID, fresh, now); err != nil {
				return nil, err
			}
		}
	}

	return batch, nil
}

// rankByMastery orders items by overall score, lowest first, with unscored
// items counted as 0. Equal scores are ordered randomly.
func (s *Selector) rankByMastery(items []models.PracticeItem) []models.PracticeItem {
	s.mu.Lock()
	s.opts.rng.Shuffle(len(items), func(i, j int) {
		items[i], items[j] = items[j], items[i]
	})
	s.mu.Unlock()

	sort.SliceStable(items, func(i, j int) bool {
		return score(items[i]) < score(items[j])
	})
	return items
}

func score(item models.PracticeItem) float64 {
	if item.OverallScore == nil {
		return 0
	}
	return *item.OverallScore
}

func appendTier(batch, items []models.PracticeItem, tier models.Tier) []models.PracticeItem {
	for _, item := range items {
		item.Tier = tier
		batch = append(batch, item)
	}
	return batch
}

// introduced annotates an item whose state was just created
func introduced(item models.PracticeItem, tier models.Tier, now time.Time) models.PracticeItem {
	next := now
	item.NextReview = &next
	item.OverallScore = nil
	item.Tier = tier
	return item
}

// advanceCurriculum moves the student's curriculum position past the newly
// introduced items
func advanceCurriculum(ctx context.Context, tx store.Store, studentID int64, fresh []models.PracticeItem, now time.Time) error {
	state, err := tx.GetCurriculumState(ctx, studentID)
	if errors.Is(err, store.ErrNotFound) {
		state = &models.CurriculumState{StudentID: studentID}
	} else if err != nil {
		return err
	}

	maxLevel := 0
	for _, item := range fresh {
		if item.TopikLevel > maxLevel {
			maxLevel = item.TopikLevel
		}
	}
	state.CurrentTopikLevel = maxLevel
	state.CurrentPosition = fresh[len(fresh)-1].ID
	state.ItemsIntroduced += len(fresh)
	state.UpdatedAt = now
	return tx.SaveCurriculumState(ctx, state)
}
