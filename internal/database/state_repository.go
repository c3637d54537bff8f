package database

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/example/korbot/pkg/models"
)

// EnsureItemState lazily creates scheduling and mastery rows for a student+item
// pair. Existing rows are left untouched.
func (s *Store) EnsureItemState(ctx context.Context, studentID, itemID int64, now time.Time) error {
	now, err := at(now, "failed to create item state")
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, `
		INSERT INTO srs_state (student_id, item_id, ease_factor, interval_days, repetitions, next_review)
		VALUES (?, ?, ?, 0, 0, ?)
		ON CONFLICT (student_id, item_id) DO NOTHING`,
		studentID, itemID, models.DefaultEaseFactor, now)
	if err != nil {
		return errors.Wrapf(err, "failed to create scheduling state for item %d", itemID)
	}

	_, err = s.exec(ctx, `
		INSERT INTO mastery (student_id, item_id, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (student_id, item_id) DO NOTHING`,
		studentID, itemID, now)
	if err != nil {
		return errors.Wrapf(err, "failed to create mastery record for item %d", itemID)
	}
	return nil
}

// GetSchedulingState returns the SM-2 state of a student+item pair. Inside a
// PostgreSQL transaction the row is locked until commit.
func (s *Store) GetSchedulingState(ctx context.Context, studentID, itemID int64) (*models.SchedulingState, error) {
	var state models.SchedulingState
	err := s.get(ctx, &state, `
		SELECT student_id, item_id, ease_factor, interval_days, repetitions, next_review, last_reviewed
		FROM srs_state
		WHERE student_id = ? AND item_id = ?`+s.forUpdate(),
		studentID, itemID)
	if err != nil {
		return nil, notFound(err, "failed to get scheduling state for item %d", itemID)
	}
	return &state, nil
}

// SaveSchedulingState overwrites an existing scheduling state
func (s *Store) SaveSchedulingState(ctx context.Context, state *models.SchedulingState) error {
	res, err := s.exec(ctx, `
		UPDATE srs_state SET
			ease_factor = ?,
			interval_days = ?,
			repetitions = ?,
			next_review = ?,
			last_reviewed = ?
		WHERE student_id = ? AND item_id = ?`,
		state.EaseFactor,
		state.IntervalDays,
		state.Repetitions,
		utc(state.NextReview),
		utcPtr(state.LastReviewed),
		state.StudentID,
		state.ItemID,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to update scheduling state for item %d", state.ItemID)
	}
	return expectRow(res, "scheduling state for item %d", state.ItemID)
}

// GetMastery returns the mastery record of a student+item pair
func (s *Store) GetMastery(ctx context.Context, studentID, itemID int64) (*models.MasteryRecord, error) {
	var record models.MasteryRecord
	err := s.get(ctx, &record, `
		SELECT student_id, item_id, grammar_score, vocab_score, formality_score, overall_score,
		       practice_count, exposure_count, usage_count, error_count, last_practiced, updated_at
		FROM mastery
		WHERE student_id = ? AND item_id = ?`+s.forUpdate(),
		studentID, itemID)
	if err != nil {
		return nil, notFound(err, "failed to get mastery for item %d", itemID)
	}
	return &record, nil
}

// SaveMastery overwrites an existing mastery record
func (s *Store) SaveMastery(ctx context.Context, record *models.MasteryRecord) error {
	res, err := s.exec(ctx, `
		UPDATE mastery SET
			grammar_score = ?,
			vocab_score = ?,
			formality_score = ?,
			overall_score = ?,
			practice_count = ?,
			exposure_count = ?,
			usage_count = ?,
			error_count = ?,
			last_practiced = ?,
			updated_at = ?
		WHERE student_id = ? AND item_id = ?`,
		record.GrammarScore,
		record.VocabScore,
		record.FormalityScore,
		record.OverallScore,
		record.PracticeCount,
		record.ExposureCount,
		record.UsageCount,
		record.ErrorCount,
		utcPtr(record.LastPracticed),
		utc(record.UpdatedAt),
		record.StudentID,
		record.ItemID,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to update mastery for item %d", record.ItemID)
	}
	return expectRow(res, "mastery for item %d", record.ItemID)
}

// RecordEncounter upserts the encounter row for a student+item pair. A plain
// exposure bumps the counter without replacing the last classification.
func (s *Store) RecordEncounter(ctx context.Context, studentID, itemID int64, kind models.EncounterKind, now time.Time) error {
	now, err := at(now, "failed to record encounter")
	if err != nil {
		return err
	}
	var practicedAt *time.Time
	if kind.WasUsed() {
		practicedAt = &now
	}

	_, err = s.exec(ctx, `
		INSERT INTO encounters (student_id, item_id, first_seen, first_practiced, encounter_count, encounter_type)
		VALUES (?, ?, ?, ?, 1, ?)
		ON CONFLICT (student_id, item_id) DO UPDATE SET
			encounter_count = encounters.encounter_count + 1,
			first_practiced = COALESCE(encounters.first_practiced, excluded.first_practiced),
			encounter_type = CASE
				WHEN excluded.encounter_type = 'exposed' THEN encounters.encounter_type
				ELSE excluded.encounter_type
			END`,
		studentID, itemID, now, practicedAt, kind)
	if err != nil {
		return errors.Wrapf(err, "failed to record encounter for item %d", itemID)
	}
	return nil
}

// GetEncounter returns the encounter row of a student+item pair
func (s *Store) GetEncounter(ctx context.Context, studentID, itemID int64) (*models.EncounterRecord, error) {
	var record models.EncounterRecord
	err := s.get(ctx, &record, `
		SELECT student_id, item_id, first_seen, first_practiced, encounter_count, encounter_type
		FROM encounters
		WHERE student_id = ? AND item_id = ?`,
		studentID, itemID)
	if err != nil {
		return nil, notFound(err, "failed to get encounter for item %d", itemID)
	}
	return &record, nil
}
