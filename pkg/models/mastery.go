package models

import "time"

// MasteryRecord tracks running-mean scores and usage counters of one student for one item
type MasteryRecord struct {
	StudentID      int64      `json:"student_id" db:"student_id"`
	ItemID         int64      `json:"item_id" db:"item_id"`
	GrammarScore   float64    `json:"grammar_score" db:"grammar_score"`
	VocabScore     float64    `json:"vocab_score" db:"vocab_score"`
	FormalityScore float64    `json:"formality_score" db:"formality_score"`
	OverallScore   float64    `json:"overall_score" db:"overall_score"`
	PracticeCount  int        `json:"practice_count" db:"practice_count"`
	ExposureCount  int        `json:"exposure_count" db:"exposure_count"`
	UsageCount     int        `json:"usage_count" db:"usage_count"`
	ErrorCount     int        `json:"error_count" db:"error_count"`
	LastPracticed  *time.Time `json:"last_practiced" db:"last_practiced"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// AbsorptionRate is usage/exposure, 0 before the first exposure
func (m *MasteryRecord) AbsorptionRate() float64 {
	if m.ExposureCount == 0 {
		return 0
	}
	return float64(m.UsageCount) / float64(m.ExposureCount)
}

// ErrorRate is errors/usage, 0 before the first usage
func (m *MasteryRecord) ErrorRate() float64 {
	if m.UsageCount == 0 {
		return 0
	}
	return float64(m.ErrorCount) / float64(m.UsageCount)
}

// LevelSample is one practised item's contribution to the level estimate
type LevelSample struct {
	TopikLevel    int     `json:"topik_level" db:"topik_level"`
	OverallScore  float64 `json:"overall_score" db:"overall_score"`
	PracticeCount int     `json:"practice_count" db:"practice_count"`
}

// ItemMetrics joins an item with the counters used for weakness analytics
type ItemMetrics struct {
	Item
	ExposureCount int        `json:"exposure_count" db:"exposure_count"`
	UsageCount    int        `json:"usage_count" db:"usage_count"`
	ErrorCount    int        `json:"error_count" db:"error_count"`
	OverallScore  float64    `json:"overall_score" db:"overall_score"`
	PracticeCount int        `json:"practice_count" db:"practice_count"`
	LastPracticed *time.Time `json:"last_practiced" db:"last_practiced"`
}
