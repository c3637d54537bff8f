package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ItemType distinguishes vocabulary from grammar patterns
type ItemType string

const (
	ItemTypeVocab   ItemType = "vocab"
	ItemTypeGrammar ItemType = "grammar"
)

// Valid reports whether t is a known item type
func (t ItemType) Valid() bool {
	return t == ItemTypeVocab || t == ItemTypeGrammar
}

// Source records who introduced an item
type Source string

const (
	SourceSeed     Source = "seed"
	SourceTelegram Source = "telegram"
	SourceSignal   Source = "signal"
	SourceManual   Source = "manual"
)

// CuratorSources lists the provenance tags of items added by a teacher rather than seeded
var CuratorSources = []Source{SourceTelegram, SourceSignal, SourceManual}

// IsCurator reports whether the item was introduced by a curator
func (s Source) IsCurator() bool {
	for _, c := range CuratorSources {
		if s == c {
			return true
		}
	}
	return false
}

// Item is a vocabulary word or grammar pattern shared by all students
type Item struct {
	ID         int64     `json:"id" db:"id"`
	Korean     string    `json:"korean" db:"korean"`
	English    string    `json:"english" db:"english"`
	ItemType   ItemType  `json:"item_type" db:"item_type"`
	TopikLevel int       `json:"topik_level" db:"topik_level"`
	Source     Source    `json:"source" db:"source"`
	Tags       Tags      `json:"tags" db:"tags"`
	Notes      string    `json:"notes" db:"notes"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Tags is a list of free-form labels stored as a JSON array
type Tags []string

// Value implements driver.Valuer
func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (t *Tags) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*t = Tags{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported tags type %T", src)
	}
	if len(raw) == 0 {
		*t = Tags{}
		return nil
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return fmt.Errorf("failed to decode tags: %w", err)
	}
	*t = tags
	return nil
}
