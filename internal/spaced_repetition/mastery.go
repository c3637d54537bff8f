package spaced_repetition

import (
	"time"

	"github.com/example/korbot/pkg/models"
)

// RunningMean folds one observation into a mean over n previous observations
func RunningMean(mean float64, n int, observation float64) float64 {
	if n <= 0 {
		return observation
	}
	return (mean*float64(n) + observation) / float64(n+1)
}

// ApplyObservation updates the running means and usage counters of a mastery
// record in place. Without sub-scores every dimension is fed by quality.
func ApplyObservation(record *models.MasteryRecord, quality float64, subScores *models.SubScores, kind models.EncounterKind, now time.Time) {
	grammar, vocab, formality := quality, quality, quality
	if subScores != nil {
		grammar, vocab, formality = subScores.Grammar, subScores.Vocab, subScores.Formality
	}

	n := record.PracticeCount
	record.GrammarScore = RunningMean(record.GrammarScore, n, grammar)
	record.VocabScore = RunningMean(record.VocabScore, n, vocab)
	record.FormalityScore = RunningMean(record.FormalityScore, n, formality)
	record.OverallScore = RunningMean(record.OverallScore, n, quality)
	record.PracticeCount = n + 1

	record.ExposureCount++
	if kind.WasUsed() {
		record.UsageCount++
	}
	if kind.WasError() {
		record.ErrorCount++
	}

	practiced := now
	record.LastPracticed = &practiced
	record.UpdatedAt = now
}
