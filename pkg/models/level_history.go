package models

import "time"

// LevelHistory is one sampled level estimate
type LevelHistory struct {
	ID             int64     `json:"id" db:"id"`
	StudentID      int64     `json:"student_id" db:"student_id"`
	EstimatedLevel float64   `json:"estimated_level" db:"estimated_level"`
	CalculatedAt   time.Time `json:"calculated_at" db:"calculated_at"`
}
