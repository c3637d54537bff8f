package spaced_repetition

import (
	"math"
	"time"

	"github.com/example/korbot/pkg/models"
)

// SM2 implements a modified SuperMemo-2 algorithm. Quality is given on a
// 0.0-1.0 scale and mapped onto SM-2's 0-5 grades. A sub-score below
// WeakThreshold multiplies the interval by WeakMultiplier, one below
// ShakyThreshold by ShakyMultiplier.
type SM2 struct {
	PassThreshold   float64
	FirstInterval   float64
	SecondInterval  float64
	MinEaseFactor   float64
	WeakThreshold   float64
	WeakMultiplier  float64
	ShakyThreshold  float64
	ShakyMultiplier float64
}

// NewSM2 creates an SM2 with the default settings
func NewSM2() *SM2 {
	return &SM2{
		PassThreshold:   3,
		FirstInterval:   1,
		SecondInterval:  6,
		MinEaseFactor:   models.MinEaseFactor,
		WeakThreshold:   0.5,
		WeakMultiplier:  0.5,
		ShakyThreshold:  0.75,
		ShakyMultiplier: 0.75,
	}
}

// Calculate returns the scheduling state that follows one review of quality
// (0.0-1.0). When subScores is non-nil every weak dimension shortens the
// interval. The input state is not modified.
func (sm *SM2) Calculate(state models.SchedulingState, quality float64, subScores *models.SubScores, now time.Time) models.SchedulingState {
	q := quality * 5
	next := state

	if q < sm.PassThreshold {
		// Failed: start over
		next.Repetitions = 0
		next.IntervalDays = 0
	} else {
		switch state.Repetitions {
		case 0:
			next.IntervalDays = sm.FirstInterval
		case 1:
			next.IntervalDays = sm.SecondInterval
		default:
			next.IntervalDays = state.IntervalDays * state.EaseFactor
		}
		next.Repetitions = state.Repetitions + 1
	}

	ease := state.EaseFactor + (0.1 - (5-q)*(0.08+(5-q)*0.02))
	if ease < sm.MinEaseFactor {
		ease = sm.MinEaseFactor
	}

	next.IntervalDays *= sm.WeaknessMultiplier(subScores)
	if next.IntervalDays < 0 {
		next.IntervalDays = 0
	}

	next.EaseFactor = Round(ease, 2)
	next.IntervalDays = Round(next.IntervalDays, 1)

	reviewed := now
	next.LastReviewed = &reviewed
	next.NextReview = now.Add(Days(next.IntervalDays))
	return next
}

// WeaknessMultiplier compounds the interval penalty of every weak sub-score.
// No sub-scores means no penalty.
func (sm *SM2) WeaknessMultiplier(subScores *models.SubScores) float64 {
	if subScores == nil {
		return 1
	}
	multiplier := 1.0
	for _, score := range []float64{subScores.Grammar, subScores.Vocab, subScores.Formality} {
		switch {
		case score < sm.WeakThreshold:
			multiplier *= sm.WeakMultiplier
		case score < sm.ShakyThreshold:
			multiplier *= sm.ShakyMultiplier
		}
	}
	return multiplier
}

// Days converts a fractional number of days into a duration
func Days(days float64) time.Duration {
	return time.Duration(days * float64(24*time.Hour))
}

// Round rounds x to the given number of decimal places
func Round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
