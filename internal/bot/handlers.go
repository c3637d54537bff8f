package bot

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/example/korbot/internal/practice"
	"github.com/example/korbot/internal/store"
	"github.com/example/korbot/pkg/models"
)

const helpText = `안녕하세요! Korean speaking practice.

/practice - get a new set of items to talk about
/due - how many items are due for review
/level - your estimated TOPIK level
/weak - items that need more work
/add - add items, one per line: 한국어 - english

Answer a practice set with a voice message or a text reply.`

// handleUpdate routes one update from Telegram
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil {
		return
	}
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "help":
			b.handleStartCommand(ctx, msg)
		case "practice":
			b.handlePracticeCommand(ctx, chatID)
		case "due":
			b.handleDueCommand(ctx, chatID)
		case "level":
			b.handleLevelCommand(ctx, chatID)
		case "weak":
			b.handleWeakCommand(ctx, chatID)
		case "add":
			b.handleAddCommand(ctx, chatID, msg.CommandArguments())
		default:
			b.reply(chatID, "Unknown command. Use /help to see what I can do.")
		}
		return
	}

	switch {
	case msg.Voice != nil:
		b.handleVoiceAnswer(ctx, chatID, msg.Voice)
	case strings.TrimSpace(msg.Text) != "":
		b.handleText(ctx, chatID, msg.Text)
	default:
		b.reply(chatID, "I don't understand. Use /help to see what I can do.")
	}
}

// handleStartCommand registers the chat as a student
func (b *Bot) handleStartCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	_, err := b.store.GetStudentByChatID(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		student := &models.Student{
			Username:       studentUsername(msg.From, chatID),
			DisplayName:    displayName(msg.From),
			TelegramChatID: &chatID,
		}
		if err := b.store.CreateStudent(ctx, student); err != nil {
			b.logger.Error("failed to register student", zap.Int64("chat_id", chatID), zap.Error(err))
			b.reply(chatID, errorText)
			return
		}
		b.logger.Info("student registered",
			zap.Int64("student_id", student.ID),
			zap.Int64("chat_id", chatID),
		)
	} else if err != nil {
		b.logger.Error("failed to load student", zap.Int64("chat_id", chatID), zap.Error(err))
		b.reply(chatID, errorText)
		return
	}
	b.reply(chatID, helpText)
}

func (b *Bot) handlePracticeCommand(ctx context.Context, chatID int64) {
	student, ok := b.studentFor(ctx, chatID)
	if !ok {
		return
	}
	session, err := b.service.StartSession(ctx, student.ID, practice.SessionRequest{})
	if err != nil {
		b.logger.Error("failed to start session", zap.Int64("student_id", student.ID), zap.Error(err))
		b.reply(chatID, errorText)
		return
	}
	if len(session.Items) == 0 {
		b.reply(chatID, "Nothing to practice right now. Ask your teacher to add new items!")
		return
	}

	prompt := sessionPrompt(session.Items, b.cfg.Formality)
	b.setSession(chatID, pendingSession{session: session, prompt: prompt})
	b.reply(chatID, formatSession(session.Items, prompt))
}

func (b *Bot) handleDueCommand(ctx context.Context, chatID int64) {
	student, ok := b.studentFor(ctx, chatID)
	if !ok {
		return
	}
	count, err := b.service.Analytics().CountDue(ctx, student.ID)
	if err != nil {
		b.logger.Error("failed to count due items", zap.Int64("student_id", student.ID), zap.Error(err))
		b.reply(chatID, errorText)
		return
	}
	if count == 0 {
		b.reply(chatID, reminderText(0))
		return
	}
	queue, err := b.service.Analytics().DueQueue(ctx, student.ID, 5)
	if err != nil {
		b.logger.Error("failed to load due queue", zap.Int64("student_id", student.ID), zap.Error(err))
		b.reply(chatID, errorText)
		return
	}
	b.reply(chatID, formatDue(count, queue))
}

func (b *Bot) handleLevelCommand(ctx context.Context, chatID int64) {
	student, ok := b.studentFor(ctx, chatID)
	if !ok {
		return
	}
	level, err := b.service.Levels().EstimateLevel(ctx, student.ID)
	if err != nil {
		b.logger.Error("failed to estimate level", zap.Int64("student_id", student.ID), zap.Error(err))
		b.reply(chatID, errorText)
		return
	}
	b.reply(chatID, fmt.Sprintf("📈 Estimated TOPIK level: %.1f", level))
}

func (b *Bot) handleWeakCommand(ctx context.Context, chatID int64) {
	student, ok := b.studentFor(ctx, chatID)
	if !ok {
		return
	}
	weak, err := b.service.Analytics().Weaknesses(ctx, student.ID, 5)
	if err != nil {
		b.logger.Error("failed to load weaknesses", zap.Int64("student_id", student.ID), zap.Error(err))
		b.reply(chatID, errorText)
		return
	}
	b.reply(chatID, formatWeaknesses(weak))
}

// handleAddCommand adds curator items from "한국어 - english" lines
func (b *Bot) handleAddCommand(ctx context.Context, chatID int64, text string) {
	if !b.isAdmin(chatID) {
		b.reply(chatID, "This command is only available for administrators.")
		return
	}
	parsed, problems := parseItemLines(text)
	if len(parsed) == 0 && len(problems) == 0 {
		b.reply(chatID, "Send items after the command, one per line:\n/add 사과 - apple")
		return
	}

	var added, skipped int
	for _, item := range parsed {
		existing, err := b.store.FindItemByKorean(ctx, item.Korean, item.ItemType)
		if err == nil && existing != nil {
			skipped++
			continue
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			problems = append(problems, fmt.Sprintf("%s: %v", item.Korean, err))
			continue
		}

		item.Source = models.SourceTelegram
		if b.examples != nil {
			if example, err := b.examples.GenerateExample(ctx, &item); err == nil {
				item.Notes = example
			} else {
				b.logger.Warn("failed to generate example", zap.String("korean", item.Korean), zap.Error(err))
			}
		}
		if err := b.store.CreateItem(ctx, &item); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", item.Korean, err))
			continue
		}
		added++
	}
	b.metrics.ItemsImported(added)
	b.logger.Info("items added from telegram",
		zap.Int64("chat_id", chatID),
		zap.Int("added", added),
		zap.Int("skipped", skipped),
	)
	b.reply(chatID, formatAddResult(added, skipped, problems))
}

// handleText treats text as an answer while a practice set is pending and as
// new items otherwise
func (b *Bot) handleText(ctx context.Context, chatID int64, text string) {
	if !b.hasSession(chatID) {
		if items, problems := parseItemLines(text); len(items) > 0 && len(problems) == 0 {
			b.handleAddCommand(ctx, chatID, text)
			return
		}
	}
	b.handleTextAnswer(ctx, chatID, text)
}

func (b *Bot) handleTextAnswer(ctx context.Context, chatID int64, text string) {
	if b.corrector == nil {
		b.reply(chatID, "Answer checking is not configured.")
		return
	}
	student, ok := b.studentFor(ctx, chatID)
	if !ok {
		return
	}
	pending, ok := b.takeSession(chatID)
	if !ok {
		b.reply(chatID, "Start a practice set with /practice first.")
		return
	}

	targets := make([]models.Item, 0, len(pending.session.Items))
	for _, it := range pending.session.Items {
		targets = append(targets, it.Item)
	}
	report, err := b.corrector.Correct(ctx, models.CorrectionRequest{
		Prompt:     pending.prompt,
		Formality:  b.cfg.Formality,
		Targets:    targets,
		Transcript: text,
	})
	if err != nil {
		b.logger.Error("failed to correct answer", zap.Int64("student_id", student.ID), zap.Error(err))
		b.setSession(chatID, pending)
		b.reply(chatID, errorText)
		return
	}
	report.Transcript = text

	result, err := b.service.SubmitReport(ctx, practice.SubmitRequest{
		StudentID:     student.ID,
		SessionID:     pending.session.ID,
		Prompt:        pending.prompt,
		Formality:     b.cfg.Formality,
		TargetItemIDs: itemIDs(pending.session.Items),
		Report:        report,
	})
	b.finishAnswer(chatID, student.ID, result, err)
}

func (b *Bot) handleVoiceAnswer(ctx context.Context, chatID int64, voice *tgbotapi.Voice) {
	if b.corrector == nil || b.botAPI == nil {
		b.reply(chatID, "Answer checking is not configured.")
		return
	}
	student, ok := b.studentFor(ctx, chatID)
	if !ok {
		return
	}
	pending, ok := b.takeSession(chatID)
	if !ok {
		b.reply(chatID, "Start a practice set with /practice first.")
		return
	}

	url, err := b.botAPI.GetFileDirectURL(voice.FileID)
	if err != nil {
		b.logger.Error("failed to resolve voice file", zap.Error(err))
		b.setSession(chatID, pending)
		b.reply(chatID, errorText)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		b.setSession(chatID, pending)
		b.reply(chatID, errorText)
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		b.logger.Error("failed to download voice message", zap.Error(err))
		b.setSession(chatID, pending)
		b.reply(chatID, errorText)
		return
	}
	defer resp.Body.Close()

	result, err := b.service.SubmitSpeech(ctx, practice.SpeechRequest{
		StudentID:     student.ID,
		SessionID:     pending.session.ID,
		Prompt:        pending.prompt,
		Formality:     b.cfg.Formality,
		TargetItemIDs: itemIDs(pending.session.Items),
		Audio:         resp.Body,
		Filename:      "answer.ogg",
	})
	b.finishAnswer(chatID, student.ID, result, err)
}

func (b *Bot) finishAnswer(chatID, studentID int64, result *practice.SessionResult, err error) {
	if err != nil {
		b.logger.Error("failed to submit answer", zap.Int64("student_id", studentID), zap.Error(err))
		b.reply(chatID, errorText)
		return
	}
	b.reply(chatID, formatResult(result))
}

// parseItemLines reads "한국어 - english" lines. A "grammar:" prefix marks a
// grammar pattern.
func parseItemLines(text string) ([]models.Item, []string) {
	var items []models.Item
	var problems []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		itemType := models.ItemTypeVocab
		if rest, ok := cutPrefixFold(line, "grammar:"); ok {
			itemType = models.ItemTypeGrammar
			line = strings.TrimSpace(rest)
		}
		korean, english, ok := strings.Cut(line, " - ")
		if !ok {
			korean, english, ok = strings.Cut(line, "-")
		}
		korean, english = strings.TrimSpace(korean), strings.TrimSpace(english)
		if !ok || korean == "" || english == "" {
			problems = append(problems, fmt.Sprintf("invalid format: %s", line))
			continue
		}
		items = append(items, models.Item{
			Korean:     korean,
			English:    english,
			ItemType:   itemType,
			TopikLevel: 1,
		})
	}
	return items, problems
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}

func studentUsername(user *tgbotapi.User, chatID int64) string {
	if user != nil && user.UserName != "" {
		return user.UserName
	}
	return fmt.Sprintf("tg%d", chatID)
}

func displayName(user *tgbotapi.User) string {
	if user == nil {
		return ""
	}
	return strings.TrimSpace(user.FirstName + " " + user.LastName)
}

func itemIDs(items []models.PracticeItem) []int64 {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	return ids
}

func joinKorean(words []string) string {
	return strings.Join(words, ", ")
}

func reminderText(count int) string {
	switch count {
	case 0:
		return "✅ Nothing is due. Great job!"
	case 1:
		return "⏰ You have 1 item due for review. Send /practice to start."
	default:
		return fmt.Sprintf("⏰ You have %d items due for review. Send /practice to start.", count)
	}
}

func formatDue(count int, queue []models.PracticeItem) string {
	var sb strings.Builder
	sb.WriteString(reminderText(count))
	for _, it := range queue {
		fmt.Fprintf(&sb, "\n• %s - %s", it.Korean, it.English)
	}
	return sb.String()
}

func formatSession(items []models.PracticeItem, prompt string) string {
	var sb strings.Builder
	sb.WriteString("📚 Practice set\n\n")
	for i, it := range items {
		fmt.Fprintf(&sb, "%d. %s - %s", i+1, it.Korean, it.English)
		if it.ItemType == models.ItemTypeGrammar {
			sb.WriteString(" (grammar)")
		}
		sb.WriteString("\n")
		if it.Notes != "" {
			fmt.Fprintf(&sb, "   %s\n", it.Notes)
		}
	}
	fmt.Fprintf(&sb, "\n🎤 %s\nReply with a voice message or text.", prompt)
	return sb.String()
}

func formatResult(result *practice.SessionResult) string {
	var sb strings.Builder
	report := result.Report
	fmt.Fprintf(&sb, "📝 Score: %.0f%%\n", report.OverallScore*100)
	if report.CorrectedSentence != "" {
		fmt.Fprintf(&sb, "\n✏️ %s\n", report.CorrectedSentence)
	}
	if report.NaturalAlternative != "" {
		fmt.Fprintf(&sb, "💬 %s\n", report.NaturalAlternative)
	}
	if report.Explanation != "" {
		fmt.Fprintf(&sb, "\n%s\n", report.Explanation)
	}
	for i, state := range result.States {
		if i >= len(result.Outcomes) {
			break
		}
		outcome := result.Outcomes[i]
		fmt.Fprintf(&sb, "\n• item %d: %s, next review in %s", outcome.ItemID, outcome.Kind,
			formatInterval(state.IntervalDays))
	}
	fmt.Fprintf(&sb, "\n\n📈 Level: %.1f", result.Level)
	return sb.String()
}

func formatInterval(days float64) string {
	if days < 1 {
		return "less than a day"
	}
	if days < 1.5 {
		return "1 day"
	}
	return fmt.Sprintf("%.0f days", days)
}

func formatWeaknesses(weak []practice.Weakness) string {
	if len(weak) == 0 {
		return "No weak spots yet. Keep practicing!"
	}
	var sb strings.Builder
	sb.WriteString("🔍 Items that need work\n")
	for i, w := range weak {
		fmt.Fprintf(&sb, "\n%d. %s - %s (%s, score %.2f)", i+1, w.Korean, w.English,
			strings.ReplaceAll(string(w.Type), "_", " "), w.Score)
	}
	return sb.String()
}

func formatAddResult(added, skipped int, problems []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ Items processed:\n- Added: %d\n- Already known: %d\n", added, skipped)
	if len(problems) > 0 {
		fmt.Fprintf(&sb, "\n❌ Errors (%d):\n", len(problems))
		for _, p := range problems {
			sb.WriteString("- " + p + "\n")
		}
	}
	return sb.String()
}
