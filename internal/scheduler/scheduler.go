package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/example/korbot/internal/metrics"
	"github.com/example/korbot/pkg/models"
)

// Default notification window, in UTC hours
const (
	DefaultNotificationStartHour = 4
	DefaultNotificationEndHour   = 18
)

// Notifier delivers a due-items reminder to a student
type Notifier interface {
	SendReminder(ctx context.Context, student models.Student, dueCount int) error
}

// DueSource lists reminder recipients and their due items
type DueSource interface {
	ListStudentsWithChat(ctx context.Context) ([]models.Student, error)
	CountDue(ctx context.Context, studentID int64, now time.Time) (int, error)
}

// Config sets the hours (inclusive) during which reminders may be sent
type Config struct {
	StartHour int
	EndHour   int
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	source    DueSource
	notifier  Notifier
	cfg       Config
	logger    *zap.Logger
	metrics   *metrics.Manager
	now       func() time.Time
}

// New creates a new scheduler instance
func New(source DueSource, notifier Notifier, cfg Config, logger *zap.Logger, m *metrics.Manager) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		source:    source,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// Start schedules the hourly reminder check and runs it in the background
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.scheduler.Every(1).Hour().Do(func() {
		if _, err := s.CheckAndSendReminders(ctx); err != nil {
			s.logger.Error("reminder check failed", zap.Error(err))
		}
	})
	if err != nil {
		return errors.Wrap(err, "failed to schedule reminders")
	}
	s.scheduler.StartAsync()
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// InWindow reports whether reminders may be sent at t
func (s *Scheduler) InWindow(t time.Time) bool {
	hour := t.UTC().Hour()
	return hour >= s.cfg.StartHour && hour <= s.cfg.EndHour
}

// CheckAndSendReminders notifies every reachable student with due items and
// returns how many reminders went out. A failed delivery is logged and does
// not stop the others.
func (s *Scheduler) CheckAndSendReminders(ctx context.Context) (int, error) {
	now := s.now()
	if !s.InWindow(now) {
		s.logger.Debug("outside notification hours, skipping reminders",
			zap.Int("hour", now.UTC().Hour()),
			zap.Int("start_hour", s.cfg.StartHour),
			zap.Int("end_hour", s.cfg.EndHour),
		)
		return 0, nil
	}

	students, err := s.source.ListStudentsWithChat(ctx)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, student := range students {
		due, err := s.source.CountDue(ctx, student.ID, now)
		if err != nil {
			s.logger.Error("failed to count due items", zap.Int64("student_id", student.ID), zap.Error(err))
			continue
		}
		if due == 0 {
			continue
		}
		if err := s.notifier.SendReminder(ctx, student, due); err != nil {
			s.logger.Error("failed to send reminder", zap.Int64("student_id", student.ID), zap.Error(err))
			continue
		}
		s.metrics.ReminderSent()
		sent++
	}
	return sent, nil
}
