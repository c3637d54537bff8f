package spaced_repetition

import (
	"sort"

	"github.com/example/korbot/pkg/models"
)

// Bounds of the TOPIK scale
const (
	MinLevel = 1.0
	MaxLevel = 6.0
)

// maxSampleWeight caps how much a single heavily practised item counts
const maxSampleWeight = 10

// EstimateLevel derives a TOPIK level from practised items. Levels are
// scanned upwards: a level mastered at 0.5 or better contributes its surplus,
// the first level below 0.5 ends the scan with partial credit.
func EstimateLevel(samples []models.LevelSample) float64 {
	type bucket struct {
		weighted float64
		weight   float64
	}
	buckets := make(map[int]*bucket)
	for _, s := range samples {
		if s.PracticeCount <= 0 {
			continue
		}
		w := float64(s.PracticeCount)
		if w > maxSampleWeight {
			w = maxSampleWeight
		}
		b, ok := buckets[s.TopikLevel]
		if !ok {
			b = &bucket{}
			buckets[s.TopikLevel] = b
		}
		b.weighted += s.OverallScore * w
		b.weight += w
	}

	if len(buckets) == 0 {
		return MinLevel
	}

	levels := make([]int, 0, len(buckets))
	for level := range buckets {
		levels = append(levels, level)
	}
	sort.Ints(levels)

	estimate := MinLevel
	for _, level := range levels {
		b := buckets[level]
		mastery := b.weighted / b.weight
		if mastery >= 0.5 {
			estimate = float64(level) + (mastery - 0.5)
			continue
		}
		estimate = float64(level-1) + mastery
		break
	}

	if estimate < MinLevel {
		estimate = MinLevel
	}
	if estimate > MaxLevel {
		estimate = MaxLevel
	}
	return Round(estimate, 2)
}
