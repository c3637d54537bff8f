package database

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/example/korbot/pkg/models"
)

// itemFilter accumulates the level and exclusion clauses shared by every tier
type itemFilter struct {
	where []string
	args  []interface{}
}

func (f *itemFilter) add(clause string, args ...interface{}) {
	f.where = append(f.where, clause)
	f.args = append(f.args, args...)
}

func (f *itemFilter) apply(q models.ItemQuery) {
	if q.Level > 0 {
		f.add("i.topik_level = ?", q.Level)
	}
	if len(q.Exclude) > 0 {
		f.add("i.id NOT IN (?)", q.Exclude)
	}
}

func (f *itemFilter) sql() string {
	if len(f.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.where, " AND ")
}

// masteryScore yields NULL until the item has been practised at least once
const masteryScore = `CASE WHEN m.practice_count > 0 THEN m.overall_score END AS overall_score`

func limitClause(limit int) string {
	if limit > 0 {
		return " LIMIT ?"
	}
	return ""
}

func withLimit(args []interface{}, limit int) []interface{} {
	if limit > 0 {
		return append(args, limit)
	}
	return args
}

func curatorSources() []string {
	sources := make([]string, 0, len(models.CuratorSources))
	for _, src := range models.CuratorSources {
		sources = append(sources, string(src))
	}
	return sources
}

// ListCuratorUnseen returns curator-introduced items the student has never
// scheduled, oldest first
func (s *Store) ListCuratorUnseen(ctx context.Context, q models.ItemQuery) ([]models.PracticeItem, error) {
	f := &itemFilter{}
	f.add("i.source IN (?)", curatorSources())
	f.add("NOT EXISTS (SELECT 1 FROM srs_state s WHERE s.item_id = i.id AND s.student_id = ?)", q.StudentID)
	f.apply(q)

	query := `SELECT ` + itemColumns + ` FROM items i` + f.sql() +
		` ORDER BY i.created_at ASC, i.id ASC` + limitClause(q.Limit)

	var items []models.PracticeItem
	if err := s.selectAll(ctx, &items, query, withLimit(f.args, q.Limit)...); err != nil {
		return nil, errors.Wrap(err, "failed to list curator items")
	}
	return items, nil
}

// ListOverdue returns scheduled items due at q.Now, curator items first and
// then the most overdue
func (s *Store) ListOverdue(ctx context.Context, q models.ItemQuery) ([]models.PracticeItem, error) {
	now, err := at(q.Now, "failed to list overdue items")
	if err != nil {
		return nil, err
	}
	f := &itemFilter{}
	f.add("s.next_review <= ?", now)
	f.apply(q)

	args := []interface{}{q.StudentID, q.StudentID}
	args = append(args, f.args...)
	args = append(args, curatorSources())

	query := `SELECT ` + itemColumns + `, ` + masteryScore + `, s.next_review
		FROM items i
		JOIN srs_state s ON s.item_id = i.id AND s.student_id = ?
		LEFT JOIN mastery m ON m.item_id = i.id AND m.student_id = ?` + f.sql() + `
		ORDER BY CASE WHEN i.source IN (?) THEN 0 ELSE 1 END, s.next_review ASC, i.id ASC` +
		limitClause(q.Limit)

	var items []models.PracticeItem
	if err := s.selectAll(ctx, &items, query, withLimit(args, q.Limit)...); err != nil {
		return nil, errors.Wrap(err, "failed to list overdue items")
	}
	return items, nil
}

// ListScheduled returns every item the student has scheduling state for,
// together with its mastery score. Ordering is left to the caller.
func (s *Store) ListScheduled(ctx context.Context, q models.ItemQuery) ([]models.PracticeItem, error) {
	f := &itemFilter{}
	f.apply(q)

	args := []interface{}{q.StudentID, q.StudentID}
	args = append(args, f.args...)

	query := `SELECT ` + itemColumns + `, ` + masteryScore + `, s.next_review
		FROM items i
		JOIN srs_state s ON s.item_id = i.id AND s.student_id = ?
		LEFT JOIN mastery m ON m.item_id = i.id AND m.student_id = ?` + f.sql() + `
		ORDER BY i.id ASC` + limitClause(q.Limit)

	var items []models.PracticeItem
	if err := s.selectAll(ctx, &items, query, withLimit(args, q.Limit)...); err != nil {
		return nil, errors.Wrap(err, "failed to list scheduled items")
	}
	return items, nil
}

// ListCurriculumNew returns never-scheduled items in curriculum order
func (s *Store) ListCurriculumNew(ctx context.Context, q models.ItemQuery) ([]models.PracticeItem, error) {
	f := &itemFilter{}
	f.add("NOT EXISTS (SELECT 1 FROM srs_state s WHERE s.item_id = i.id AND s.student_id = ?)", q.StudentID)
	f.apply(q)

	query := `SELECT ` + itemColumns + ` FROM items i` + f.sql() +
		` ORDER BY i.topik_level ASC, i.id ASC` + limitClause(q.Limit)

	var items []models.PracticeItem
	if err := s.selectAll(ctx, &items, query, withLimit(f.args, q.Limit)...); err != nil {
		return nil, errors.Wrap(err, "failed to list new items")
	}
	return items, nil
}

// ListDue returns the review queue: due items ordered by next review only
func (s *Store) ListDue(ctx context.Context, q models.ItemQuery) ([]models.PracticeItem, error) {
	now, err := at(q.Now, "failed to list due items")
	if err != nil {
		return nil, err
	}
	f := &itemFilter{}
	f.add("s.next_review <= ?", now)
	f.apply(q)

	args := []interface{}{q.StudentID, q.StudentID}
	args = append(args, f.args...)

	query := `SELECT ` + itemColumns + `, ` + masteryScore + `, s.next_review
		FROM items i
		JOIN srs_state s ON s.item_id = i.id AND s.student_id = ?
		LEFT JOIN mastery m ON m.item_id = i.id AND m.student_id = ?` + f.sql() + `
		ORDER BY s.next_review ASC, i.id ASC` + limitClause(q.Limit)

	var items []models.PracticeItem
	if err := s.selectAll(ctx, &items, query, withLimit(args, q.Limit)...); err != nil {
		return nil, errors.Wrap(err, "failed to list due items")
	}
	return items, nil
}

// CountDue returns how many items are due for the student at now
func (s *Store) CountDue(ctx context.Context, studentID int64, now time.Time) (int, error) {
	now, err := at(now, "failed to count due items")
	if err != nil {
		return 0, err
	}
	var count int
	err = s.get(ctx, &count,
		`SELECT COUNT(*) FROM srs_state WHERE student_id = ? AND next_review <= ?`,
		studentID, now)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count due items")
	}
	return count, nil
}
