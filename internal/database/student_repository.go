package database

import (
	"context"

	"github.com/pkg/errors"

	"github.com/example/korbot/pkg/models"
)

const studentColumns = `id, username, display_name, telegram_chat_id, created_at`

// CreateStudent inserts a new student and fills in its ID
func (s *Store) CreateStudent(ctx context.Context, student *models.Student) error {
	student.CreatedAt = createdAt(student.CreatedAt)
	id, err := s.insertReturningID(ctx, `
		INSERT INTO students (username, display_name, telegram_chat_id, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`,
		student.Username,
		student.DisplayName,
		student.TelegramChatID,
		student.CreatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to create student")
	}
	student.ID = id
	return nil
}

// GetStudent returns a student by ID
func (s *Store) GetStudent(ctx context.Context, studentID int64) (*models.Student, error) {
	var student models.Student
	err := s.get(ctx, &student, `SELECT `+studentColumns+` FROM students WHERE id = ?`, studentID)
	if err != nil {
		return nil, notFound(err, "failed to get student %d", studentID)
	}
	return &student, nil
}

// GetStudentByChatID returns the student linked to a Telegram chat
func (s *Store) GetStudentByChatID(ctx context.Context, chatID int64) (*models.Student, error) {
	var student models.Student
	err := s.get(ctx, &student, `SELECT `+studentColumns+` FROM students WHERE telegram_chat_id = ?`, chatID)
	if err != nil {
		return nil, notFound(err, "failed to get student for chat %d", chatID)
	}
	return &student, nil
}

// ListStudentsWithChat returns students that can receive reminders
func (s *Store) ListStudentsWithChat(ctx context.Context) ([]models.Student, error) {
	var students []models.Student
	err := s.selectAll(ctx, &students, `
		SELECT `+studentColumns+`
		FROM students
		WHERE telegram_chat_id IS NOT NULL
		ORDER BY id ASC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list students")
	}
	return students, nil
}
