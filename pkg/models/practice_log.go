package models

import "time"

// PracticeLog records one submitted practice attempt
type PracticeLog struct {
	ID           int64     `json:"id" db:"id"`
	SessionID    string    `json:"session_id" db:"session_id"`
	StudentID    int64     `json:"student_id" db:"student_id"`
	ItemIDs      string    `json:"item_ids" db:"item_ids"`
	Prompt       string    `json:"prompt" db:"prompt"`
	Formality    string    `json:"formality" db:"formality"`
	Transcript   string    `json:"transcript" db:"transcript"`
	OverallScore float64   `json:"overall_score" db:"overall_score"`
	FeedbackJSON string    `json:"feedback_json" db:"feedback_json"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
