package database

import (
	"context"

	"github.com/pkg/errors"

	"github.com/example/korbot/pkg/models"
)

// GetCurriculumState returns the curriculum position of a student
func (s *Store) GetCurriculumState(ctx context.Context, studentID int64) (*models.CurriculumState, error) {
	var state models.CurriculumState
	err := s.get(ctx, &state, `
		SELECT student_id, current_topik_level, current_position, items_introduced, updated_at
		FROM curriculum_state
		WHERE student_id = ?`,
		studentID)
	if err != nil {
		return nil, notFound(err, "failed to get curriculum state for student %d", studentID)
	}
	return &state, nil
}

// SaveCurriculumState creates or replaces the curriculum position of a student
func (s *Store) SaveCurriculumState(ctx context.Context, state *models.CurriculumState) error {
	state.UpdatedAt = utc(state.UpdatedAt)
	_, err := s.exec(ctx, `
		INSERT INTO curriculum_state (student_id, current_topik_level, current_position, items_introduced, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (student_id) DO UPDATE SET
			current_topik_level = excluded.current_topik_level,
			current_position = excluded.current_position,
			items_introduced = excluded.items_introduced,
			updated_at = excluded.updated_at`,
		state.StudentID,
		state.CurrentTopikLevel,
		state.CurrentPosition,
		state.ItemsIntroduced,
		state.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to save curriculum state for student %d", state.StudentID)
	}
	return nil
}
