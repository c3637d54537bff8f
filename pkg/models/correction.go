package models

// Usage statuses reported by the correction service
const (
	StatusCorrect   = "correct"
	StatusWrongForm = "wrong_form"
	StatusIncorrect = "incorrect"
)

// UsedItem is a vocabulary word the student produced
type UsedItem struct {
	Korean      string `json:"korean"`
	Status      string `json:"status"`
	Explanation string `json:"explanation"`
}

// UsedGrammar is a grammar pattern the student produced
type UsedGrammar struct {
	Pattern     string `json:"pattern"`
	Status      string `json:"status"`
	Explanation string `json:"explanation"`
}

// FormalityFeedback compares the expected and detected speech level
type FormalityFeedback struct {
	Expected string   `json:"expected"`
	Detected string   `json:"detected"`
	Issues   []string `json:"issues"`
}

// CorrectionReport is the structured result of correcting one spoken answer
type CorrectionReport struct {
	OverallScore       float64           `json:"overall_score"`
	ItemsUsed          []UsedItem        `json:"items_used"`
	GrammarUsed        []UsedGrammar     `json:"grammar_used"`
	Formality          FormalityFeedback `json:"formality"`
	CorrectedSentence  string            `json:"corrected_sentence"`
	NaturalAlternative string            `json:"natural_alternative"`
	Explanation        string            `json:"explanation"`
	Transcript         string            `json:"transcript"`
}

// Formality levels a prompt can ask for
const (
	FormalityFormal = "formal"
	FormalityPolite = "polite"
	FormalityCasual = "casual"
)

// CorrectionRequest is everything the corrector needs to grade one answer
type CorrectionRequest struct {
	Prompt     string
	Formality  string
	Targets    []Item
	Transcript string
}
