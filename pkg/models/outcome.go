package models

// SubScores are the optional per-dimension observations of one attempt
type SubScores struct {
	Grammar   float64 `json:"grammar"`
	Vocab     float64 `json:"vocab"`
	Formality float64 `json:"formality"`
}

// Outcome is the result of one item in one practice attempt
type Outcome struct {
	StudentID int64         `json:"student_id"`
	ItemID    int64         `json:"item_id"`
	Quality   float64       `json:"quality"`
	SubScores *SubScores    `json:"sub_scores,omitempty"`
	Kind      EncounterKind `json:"kind"`
}
