package practice

import (
	"context"
	"sort"

	"github.com/example/korbot/internal/spaced_repetition"
	"github.com/example/korbot/internal/store"
	"github.com/example/korbot/pkg/models"
)

// WeaknessType explains why an item shows up in the weakness report
type WeaknessType string

const (
	WeaknessNotAbsorbing  WeaknessType = "not_absorbing"
	WeaknessHighErrors    WeaknessType = "high_errors"
	WeaknessStagnant      WeaknessType = "stagnant"
	WeaknessNeedsPractice WeaknessType = "needs_practice"
)

// Weakness is one row of the weakness report
type Weakness struct {
	models.ItemMetrics
	Score          float64      `json:"weakness_score"`
	AbsorptionRate float64      `json:"absorption_rate"`
	ErrorRate      float64      `json:"error_rate"`
	Stagnant       bool         `json:"is_stagnant"`
	Type           WeaknessType `json:"weakness_type"`
}

// Analytics answers read-only questions about a student's progress
type Analytics struct {
	store store.Store
	opts  options
}

// NewAnalytics creates an Analytics backed by st
func NewAnalytics(st store.Store, opts ...Option) *Analytics {
	return &Analytics{store: st, opts: newOptions(opts)}
}

// Weaknesses ranks exposed items by how poorly they are being absorbed.
// A non-positive limit returns every exposed item.
func (a *Analytics) Weaknesses(ctx context.Context, studentID int64, limit int) ([]Weakness, error) {
	metrics, err := a.store.ListItemMetrics(ctx, studentID)
	if err != nil {
		return nil, err
	}

	weaknesses := make([]Weakness, 0, len(metrics))
	for _, m := range metrics {
		weaknesses = append(weaknesses, assessWeakness(m))
	}
	sort.SliceStable(weaknesses, func(i, j int) bool {
		return weaknesses[i].Score > weaknesses[j].Score
	})
	if limit > 0 && len(weaknesses) > limit {
		weaknesses = weaknesses[:limit]
	}
	return weaknesses, nil
}

func assessWeakness(m models.ItemMetrics) Weakness {
	var absorption, errorRate float64
	if m.ExposureCount > 0 {
		absorption = float64(m.UsageCount) / float64(m.ExposureCount)
	}
	if m.UsageCount > 0 {
		errorRate = float64(m.ErrorCount) / float64(m.UsageCount)
	}

	w := Weakness{
		ItemMetrics:    m,
		AbsorptionRate: spaced_repetition.Round(absorption, 2),
		ErrorRate:      spaced_repetition.Round(errorRate, 2),
		Stagnant:       m.ExposureCount >= 5 && m.OverallScore < 0.5,
	}

	if m.UsageCount == 0 {
		w.Score = float64(m.ExposureCount) * 2
	} else {
		w.Score = errorRate * float64(m.ExposureCount) * (1 - m.OverallScore)
	}

	switch {
	case absorption < 0.3 && m.ExposureCount > 3:
		w.Type = WeaknessNotAbsorbing
	case errorRate > 0.5 && m.UsageCount > 2:
		w.Type = WeaknessHighErrors
	case w.Stagnant:
		w.Type = WeaknessStagnant
	default:
		w.Type = WeaknessNeedsPractice
	}
	return w
}

// DueQueue returns the student's review queue, most overdue first.
// A non-positive limit returns every due item.
func (a *Analytics) DueQueue(ctx context.Context, studentID int64, limit int) ([]models.PracticeItem, error) {
	return a.store.ListDue(ctx, models.ItemQuery{
		StudentID: studentID,
		Limit:     limit,
		Now:       a.opts.clock(),
	})
}

// CountDue returns how many items are due for review now
func (a *Analytics) CountDue(ctx context.Context, studentID int64) (int, error) {
	return a.store.CountDue(ctx, studentID, a.opts.clock())
}
