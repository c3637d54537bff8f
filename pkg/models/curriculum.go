package models

import "time"

// CurriculumState is a student's position in the TOPIK progression
type CurriculumState struct {
	StudentID         int64     `json:"student_id" db:"student_id"`
	CurrentTopikLevel int       `json:"current_topik_level" db:"current_topik_level"`
	CurrentPosition   int64     `json:"current_position" db:"current_position"`
	ItemsIntroduced   int       `json:"items_introduced" db:"items_introduced"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}
