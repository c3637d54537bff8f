// Package bot is the Telegram front end of the practice engine.
package bot

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/example/korbot/internal/metrics"
	"github.com/example/korbot/internal/practice"
	"github.com/example/korbot/internal/scheduler"
	"github.com/example/korbot/internal/store"
	"github.com/example/korbot/pkg/models"
)

// sender is the part of tgbotapi.BotAPI the bot sends through
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// ExampleGenerator writes an example sentence for a newly added item
type ExampleGenerator interface {
	GenerateExample(ctx context.Context, item *models.Item) (string, error)
}

// Config holds the bot settings
type Config struct {
	Token string
	// Admins may add items; empty means every chat may
	Admins []int64
	// Formality requested in practice prompts
	Formality string
}

// pendingSession is a practice session waiting for the student's answer
type pendingSession struct {
	session *practice.Session
	prompt  string
}

// Bot represents the Telegram bot application
type Bot struct {
	api       sender
	botAPI    *tgbotapi.BotAPI
	cfg       Config
	store     store.Store
	service   *practice.Service
	corrector practice.Corrector
	examples  ExampleGenerator
	logger    *zap.Logger
	metrics   *metrics.Manager

	mu       sync.Mutex
	sessions map[int64]pendingSession
}

var _ scheduler.Notifier = (*Bot)(nil)

// New creates a new bot instance. corrector and examples may be nil when no
// language model is configured.
func New(cfg Config, st store.Store, service *practice.Service, corrector practice.Corrector,
	examples ExampleGenerator, logger *zap.Logger, m *metrics.Manager) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Formality == "" {
		cfg.Formality = models.FormalityPolite
	}
	return &Bot{
		cfg:       cfg,
		store:     st,
		service:   service,
		corrector: corrector,
		examples:  examples,
		logger:    logger,
		metrics:   m,
		sessions:  make(map[int64]pendingSession),
	}
}

// Start connects to Telegram and handles updates until ctx is cancelled
func (b *Bot) Start(ctx context.Context) error {
	if b.cfg.Token == "" {
		return errors.New("telegram bot token is not set")
	}
	botAPI, err := tgbotapi.NewBotAPI(b.cfg.Token)
	if err != nil {
		return errors.Wrap(err, "unable to create bot")
	}
	b.botAPI = botAPI
	b.api = botAPI
	b.logger.Info("authorized on telegram", zap.String("account", botAPI.Self.UserName))

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := botAPI.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			botAPI.StopReceivingUpdates()
			b.logger.Info("bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

// SendReminder implements scheduler.Notifier
func (b *Bot) SendReminder(ctx context.Context, student models.Student, dueCount int) error {
	if student.TelegramChatID == nil {
		return errors.Errorf("student %d has no chat", student.ID)
	}
	if b.api == nil {
		return errors.New("bot is not started")
	}
	if err := b.send(*student.TelegramChatID, reminderText(dueCount)); err != nil {
		return errors.Wrapf(err, "failed to send reminder to student %d", student.ID)
	}
	b.logger.Debug("reminder sent",
		zap.Int64("student_id", student.ID),
		zap.Int("due", dueCount),
	)
	return nil
}

func (b *Bot) send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := b.api.Send(msg)
	return err
}

// reply sends text and logs delivery failures
func (b *Bot) reply(chatID int64, text string) {
	if err := b.send(chatID, text); err != nil {
		b.logger.Warn("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) isAdmin(chatID int64) bool {
	if len(b.cfg.Admins) == 0 {
		return true
	}
	for _, id := range b.cfg.Admins {
		if id == chatID {
			return true
		}
	}
	return false
}

func (b *Bot) setSession(chatID int64, p pendingSession) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[chatID] = p
}

func (b *Bot) hasSession(chatID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.sessions[chatID]
	return ok
}

// takeSession removes and returns the chat's pending session
func (b *Bot) takeSession(chatID int64) (pendingSession, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.sessions[chatID]
	if ok {
		delete(b.sessions, chatID)
	}
	return p, ok
}

// studentFor resolves the chat's student, replying when none is registered
func (b *Bot) studentFor(ctx context.Context, chatID int64) (*models.Student, bool) {
	student, err := b.store.GetStudentByChatID(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		b.reply(chatID, "You are not registered yet. Send /start first.")
		return nil, false
	}
	if err != nil {
		b.logger.Error("failed to load student", zap.Int64("chat_id", chatID), zap.Error(err))
		b.reply(chatID, errorText)
		return nil, false
	}
	return student, true
}

const errorText = "❌ Something went wrong. Please try again later."

func sessionPrompt(items []models.PracticeItem, formality string) string {
	words := make([]string, 0, len(items))
	for _, it := range items {
		words = append(words, it.Korean)
	}
	return fmt.Sprintf("Say a few %s sentences that use: %s", formality, joinKorean(words))
}
