package models

import "time"

// Defaults for a freshly created scheduling state
const (
	DefaultEaseFactor = 2.5
	MinEaseFactor     = 1.3
)

// SchedulingState holds the SM-2 parameters of one student for one item
type SchedulingState struct {
	StudentID    int64      `json:"student_id" db:"student_id"`
	ItemID       int64      `json:"item_id" db:"item_id"`
	EaseFactor   float64    `json:"ease_factor" db:"ease_factor"`
	IntervalDays float64    `json:"interval_days" db:"interval_days"`
	Repetitions  int        `json:"repetitions" db:"repetitions"`
	NextReview   time.Time  `json:"next_review" db:"next_review"`
	LastReviewed *time.Time `json:"last_reviewed" db:"last_reviewed"`
}
