package practice

import (
	"context"
	"encoding/json"
	"io"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/example/korbot/internal/store"
	"github.com/example/korbot/pkg/models"
)

// Corrector grades spoken answers and transcribes audio
type Corrector interface {
	Correct(ctx context.Context, req models.CorrectionRequest) (*models.CorrectionReport, error)
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// ServiceConfig holds the per-session defaults
type ServiceConfig struct {
	ItemsPerSession    int
	NewItemsPerSession int
	HistoryMode        HistoryMode
}

// Session is a batch of items handed to a student
type Session struct {
	ID        string                `json:"id"`
	StudentID int64                 `json:"student_id"`
	Items     []models.PracticeItem `json:"items"`
}

// SessionRequest asks for a new session. Zero values fall back to the
// configured defaults.
type SessionRequest struct {
	Count int
	Level int
}

// SubmitRequest carries a graded answer for a session
type SubmitRequest struct {
	StudentID     int64
	SessionID     string
	Prompt        string
	Formality     string
	TargetItemIDs []int64
	Report        *models.CorrectionReport
}

// SpeechRequest carries a recorded answer that still needs grading
type SpeechRequest struct {
	StudentID     int64
	SessionID     string
	Prompt        string
	Formality     string
	TargetItemIDs []int64
	Audio         io.Reader
	Filename      string
}

// SessionResult reports what a submission changed
type SessionResult struct {
	SessionID string                    `json:"session_id"`
	Outcomes  []models.Outcome          `json:"outcomes"`
	States    []*models.SchedulingState `json:"states"`
	Level     float64                   `json:"level"`
	Report    *models.CorrectionReport  `json:"report"`
}

// Service ties selection, grading, recording and level estimation into
// practice sessions
type Service struct {
	store     store.Store
	corrector Corrector
	cfg       ServiceConfig
	opts      options

	selector  *Selector
	recorder  *Recorder
	levels    *LevelEstimator
	analytics *Analytics
}

// NewService wires the engine components around st. corrector may be nil
// when only pre-graded reports are submitted.
func NewService(st store.Store, corrector Corrector, cfg ServiceConfig, opts ...Option) *Service {
	if cfg.ItemsPerSession <= 0 {
		cfg.ItemsPerSession = 3
	}
	if cfg.NewItemsPerSession < 0 {
		cfg.NewItemsPerSession = 0
	}
	return &Service{
		store:     st,
		corrector: corrector,
		cfg:       cfg,
		opts:      newOptions(opts),
		selector:  NewSelector(st, opts...),
		recorder:  NewRecorder(st, opts...),
		levels:    NewLevelEstimator(st, cfg.HistoryMode, opts...),
		analytics: NewAnalytics(st, opts...),
	}
}

// Selector returns the item selector
func (s *Service) Selector() *Selector { return s.selector }

// Recorder returns the outcome recorder
func (s *Service) Recorder() *Recorder { return s.recorder }

// Levels returns the level estimator
func (s *Service) Levels() *LevelEstimator { return s.levels }

// Analytics returns the progress analytics
func (s *Service) Analytics() *Analytics { return s.analytics }

// StartSession selects items for the student and marks each as seen
func (s *Service) StartSession(ctx context.Context, studentID int64, req SessionRequest) (*Session, error) {
	count := req.Count
	if count <= 0 {
		count = s.cfg.ItemsPerSession
	}

	items, err := s.selector.SelectItems(ctx, studentID, count, req.Level, s.cfg.NewItemsPerSession)
	if err != nil {
		return nil, err
	}

	now := s.opts.clock()
	err = s.store.InTx(ctx, func(tx store.Store) error {
		for _, item := range items {
			if err := tx.RecordEncounter(ctx, studentID, item.ID, models.EncounterExposed, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	session := &Session{ID: uuid.NewString(), StudentID: studentID, Items: items}
	s.opts.logger.Info("session started",
		zap.String("session_id", session.ID),
		zap.Int64("student_id", studentID),
		zap.Int("items", len(items)),
	)
	return session, nil
}

// SubmitReport applies a correction report: every touched item gets an
// outcome, the level is re-estimated and the attempt is logged
func (s *Service) SubmitReport(ctx context.Context, req SubmitRequest) (*SessionResult, error) {
	if req.Report == nil {
		return nil, errors.New("correction report is required")
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	if req.Formality == "" {
		req.Formality = models.FormalityPolite
	}

	targets, err := s.loadTargets(ctx, req.TargetItemIDs)
	if err != nil {
		return nil, err
	}

	outcomes, err := Classify(ctx, s.store, req.StudentID, targets, req.Report)
	if err != nil {
		return nil, err
	}

	result := &SessionResult{SessionID: req.SessionID, Outcomes: outcomes, Report: req.Report}
	itemIDs := make([]int64, 0, len(outcomes))
	for _, outcome := range outcomes {
		state, err := s.recorder.RecordOutcome(ctx, outcome)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to record outcome for item %d", outcome.ItemID)
		}
		result.States = append(result.States, state)
		itemIDs = append(itemIDs, outcome.ItemID)
	}

	result.Level, err = s.levels.EstimateLevel(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}

	idsJSON, err := json.Marshal(itemIDs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode item ids")
	}
	feedback, err := json.Marshal(req.Report)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode feedback")
	}
	err = s.store.CreatePracticeLog(ctx, &models.PracticeLog{
		SessionID:    req.SessionID,
		StudentID:    req.StudentID,
		ItemIDs:      string(idsJSON),
		Prompt:       req.Prompt,
		Formality:    req.Formality,
		Transcript:   req.Report.Transcript,
		OverallScore: req.Report.OverallScore,
		FeedbackJSON: string(feedback),
		CreatedAt:    s.opts.clock(),
	})
	if err != nil {
		return nil, err
	}

	s.opts.logger.Info("practice submitted",
		zap.String("session_id", req.SessionID),
		zap.Int64("student_id", req.StudentID),
		zap.Int("outcomes", len(outcomes)),
		zap.Float64("level", result.Level),
	)
	return result, nil
}

// SubmitSpeech transcribes and grades a recorded answer, then submits it
func (s *Service) SubmitSpeech(ctx context.Context, req SpeechRequest) (*SessionResult, error) {
	if s.corrector == nil {
		return nil, errors.New("no corrector configured")
	}

	transcript, err := s.corrector.Transcribe(ctx, req.Audio, req.Filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to transcribe answer")
	}

	targets, err := s.loadTargets(ctx, req.TargetItemIDs)
	if err != nil {
		return nil, err
	}

	report, err := s.corrector.Correct(ctx, models.CorrectionRequest{
		Prompt:     req.Prompt,
		Formality:  req.Formality,
		Targets:    targets,
		Transcript: transcript,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to correct answer")
	}
	report.Transcript = transcript

	return s.SubmitReport(ctx, SubmitRequest{
		StudentID:     req.StudentID,
		SessionID:     req.SessionID,
		Prompt:        req.Prompt,
		Formality:     req.Formality,
		TargetItemIDs: req.TargetItemIDs,
		Report:        report,
	})
}

func (s *Service) loadTargets(ctx context.Context, ids []int64) ([]models.Item, error) {
	targets := make([]models.Item, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		item, err := s.store.GetItem(ctx, id)
		if err != nil {
			return nil, reference(err, "item %d", id)
		}
		targets = append(targets, *item)
	}
	return targets, nil
}
