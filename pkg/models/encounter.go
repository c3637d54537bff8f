package models

import "time"

// EncounterKind classifies how an item showed up in a session
type EncounterKind string

const (
	EncounterExposed         EncounterKind = "exposed"
	EncounterUsedCorrectly   EncounterKind = "used_correctly"
	EncounterUsedIncorrectly EncounterKind = "used_incorrectly"
	EncounterMissing         EncounterKind = "missing"
)

// Valid reports whether k is a known encounter kind
func (k EncounterKind) Valid() bool {
	switch k {
	case EncounterExposed, EncounterUsedCorrectly, EncounterUsedIncorrectly, EncounterMissing:
		return true
	}
	return false
}

// WasUsed reports whether the student actually produced the item
func (k EncounterKind) WasUsed() bool {
	return k == EncounterUsedCorrectly || k == EncounterUsedIncorrectly
}

// WasError reports whether the student produced the item incorrectly
func (k EncounterKind) WasError() bool {
	return k == EncounterUsedIncorrectly
}

// EncounterRecord tracks when a student first saw and first used an item
type EncounterRecord struct {
	StudentID      int64         `json:"student_id" db:"student_id"`
	ItemID         int64         `json:"item_id" db:"item_id"`
	FirstSeen      time.Time     `json:"first_seen" db:"first_seen"`
	FirstPracticed *time.Time    `json:"first_practiced" db:"first_practiced"`
	EncounterCount int           `json:"encounter_count" db:"encounter_count"`
	EncounterType  EncounterKind `json:"encounter_type" db:"encounter_type"`
}
