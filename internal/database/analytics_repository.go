package database

import (
	"context"

	"github.com/pkg/errors"

	"github.com/example/korbot/pkg/models"
)

// ListLevelSamples returns level, score and practice count of every practised item
func (s *Store) ListLevelSamples(ctx context.Context, studentID int64) ([]models.LevelSample, error) {
	var samples []models.LevelSample
	err := s.selectAll(ctx, &samples, `
		SELECT i.topik_level, m.overall_score, m.practice_count
		FROM mastery m
		JOIN items i ON i.id = m.item_id
		WHERE m.student_id = ? AND m.practice_count > 0
		ORDER BY i.topik_level ASC, i.id ASC`,
		studentID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list level samples")
	}
	return samples, nil
}

// LatestLevel returns the most recent level estimate of a student
func (s *Store) LatestLevel(ctx context.Context, studentID int64) (*models.LevelHistory, error) {
	var entry models.LevelHistory
	err := s.get(ctx, &entry, `
		SELECT id, student_id, estimated_level, calculated_at
		FROM student_level_history
		WHERE student_id = ?
		ORDER BY calculated_at DESC, id DESC
		LIMIT 1`,
		studentID)
	if err != nil {
		return nil, notFound(err, "failed to get latest level for student %d", studentID)
	}
	return &entry, nil
}

// AppendLevelHistory stores a new level estimate
func (s *Store) AppendLevelHistory(ctx context.Context, entry *models.LevelHistory) error {
	entry.CalculatedAt = utc(entry.CalculatedAt)
	id, err := s.insertReturningID(ctx, `
		INSERT INTO student_level_history (student_id, estimated_level, calculated_at)
		VALUES (?, ?, ?)
		RETURNING id`,
		entry.StudentID, entry.EstimatedLevel, entry.CalculatedAt)
	if err != nil {
		return errors.Wrap(err, "failed to append level history")
	}
	entry.ID = id
	return nil
}

// ListItemMetrics returns every exposed item of a student with its counters
func (s *Store) ListItemMetrics(ctx context.Context, studentID int64) ([]models.ItemMetrics, error) {
	var metrics []models.ItemMetrics
	err := s.selectAll(ctx, &metrics, `
		SELECT `+itemColumns+`,
		       m.exposure_count, m.usage_count, m.error_count,
		       m.overall_score, m.practice_count, m.last_practiced
		FROM items i
		JOIN mastery m ON m.item_id = i.id
		WHERE m.student_id = ? AND m.exposure_count > 0
		ORDER BY i.id ASC`,
		studentID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list item metrics")
	}
	return metrics, nil
}

// CreatePracticeLog stores one practice attempt
func (s *Store) CreatePracticeLog(ctx context.Context, entry *models.PracticeLog) error {
	entry.CreatedAt = createdAt(entry.CreatedAt)
	if entry.ItemIDs == "" {
		entry.ItemIDs = "[]"
	}
	if entry.FeedbackJSON == "" {
		entry.FeedbackJSON = "{}"
	}
	id, err := s.insertReturningID(ctx, `
		INSERT INTO practice_log (session_id, student_id, item_ids, prompt, formality, transcript,
		                          overall_score, feedback_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		entry.SessionID,
		entry.StudentID,
		entry.ItemIDs,
		entry.Prompt,
		entry.Formality,
		entry.Transcript,
		entry.OverallScore,
		entry.FeedbackJSON,
		entry.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create practice log")
	}
	entry.ID = id
	return nil
}
