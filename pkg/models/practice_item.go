package models

import "time"

// Tier identifies which selection stage picked an item
type Tier int

const (
	TierCuratorUnseen Tier = iota + 1
	TierOverdue
	TierLowestMastery
	TierCurriculumNew
)

// String returns a short label used in logs and metrics
func (t Tier) String() string {
	switch t {
	case TierCuratorUnseen:
		return "curator_unseen"
	case TierOverdue:
		return "overdue"
	case TierLowestMastery:
		return "lowest_mastery"
	case TierCurriculumNew:
		return "curriculum_new"
	default:
		return "unknown"
	}
}

// PracticeItem is an item selected for practice, annotated with the student's state where known
type PracticeItem struct {
	Item
	OverallScore *float64  `json:"overall_score" db:"overall_score"`
	NextReview   *time.Time `json:"next_review" db:"next_review"`
	Tier         Tier       `json:"tier" db:"-"`
}

// ItemQuery narrows a tier query to one student's candidate pool
type ItemQuery struct {
	StudentID int64
	// Level restricts candidates to one TOPIK level; 0 means any level
	Level   int
	Exclude []int64
	Limit   int
	Now     time.Time
}
