package practice

import (
	"context"

	"github.com/pkg/errors"

	"github.com/example/korbot/internal/store"
	"github.com/example/korbot/pkg/models"
)

// neutralScore is given to the dimension an observation says nothing about
const neutralScore = 0.5

// ItemResolver maps surface text reported by the corrector back to an item
type ItemResolver interface {
	FindItemByKorean(ctx context.Context, korean string, itemType models.ItemType) (*models.Item, error)
}

// Classify turns a correction report into one outcome per touched item.
// Every item the student produced is scored by its status; target items the
// student did not produce are recorded as missing. Text that matches no
// known item is skipped.
func Classify(ctx context.Context, resolver ItemResolver, studentID int64, targets []models.Item, report *models.CorrectionReport) ([]models.Outcome, error) {
	formality := 1.0
	if len(report.Formality.Issues) > 0 {
		formality = neutralScore
	}

	var order []int64
	byItem := make(map[int64]models.Outcome)
	put := func(o models.Outcome) {
		if _, seen := byItem[o.ItemID]; !seen {
			order = append(order, o.ItemID)
		}
		byItem[o.ItemID] = o
	}

	for _, used := range report.ItemsUsed {
		item, err := resolve(ctx, resolver, used.Korean, models.ItemTypeVocab)
		if err != nil {
			return nil, err
		}
		if item == nil {
			continue
		}
		s := statusScore(used.Status)
		put(models.Outcome{
			StudentID: studentID,
			ItemID:    item.ID,
			Quality:   s,
			SubScores: &models.SubScores{Grammar: neutralScore, Vocab: s, Formality: formality},
			Kind:      usageKind(used.Status),
		})
	}

	for _, used := range report.GrammarUsed {
		item, err := resolve(ctx, resolver, used.Pattern, models.ItemTypeGrammar)
		if err != nil {
			return nil, err
		}
		if item == nil {
			continue
		}
		s := statusScore(used.Status)
		put(models.Outcome{
			StudentID: studentID,
			ItemID:    item.ID,
			Quality:   s,
			SubScores: &models.SubScores{Grammar: s, Vocab: neutralScore, Formality: formality},
			Kind:      usageKind(used.Status),
		})
	}

	for _, target := range targets {
		if _, seen := byItem[target.ID]; seen {
			continue
		}
		sub := &models.SubScores{Grammar: neutralScore, Vocab: neutralScore, Formality: formality}
		if target.ItemType == models.ItemTypeGrammar {
			sub.Grammar = 0
		} else {
			sub.Vocab = 0
		}
		put(models.Outcome{
			StudentID: studentID,
			ItemID:    target.ID,
			Quality:   0,
			SubScores: sub,
			Kind:      models.EncounterMissing,
		})
	}

	outcomes := make([]models.Outcome, 0, len(order))
	for _, id := range order {
		outcomes = append(outcomes, byItem[id])
	}
	return outcomes, nil
}

func resolve(ctx context.Context, resolver ItemResolver, korean string, itemType models.ItemType) (*models.Item, error) {
	if korean == "" {
		return nil, nil
	}
	item, err := resolver.FindItemByKorean(ctx, korean, itemType)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return item, err
}

func statusScore(status string) float64 {
	switch status {
	case models.StatusCorrect:
		return 1.0
	case models.StatusWrongForm:
		return 0.5
	default:
		return 0
	}
}

func usageKind(status string) models.EncounterKind {
	if status == models.StatusIncorrect || status == models.StatusWrongForm {
		return models.EncounterUsedIncorrectly
	}
	return models.EncounterUsedCorrectly
}
