package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/example/korbot/pkg/models"
)

const correctionSystemPrompt = `You are an expert Korean language teacher analyzing a student's spoken Korean.
You will receive the practice prompt, the expected formality level, the target vocabulary and
grammar items, and the student's transcribed speech.

Identify and assess EVERY vocabulary word and grammar pattern the student actually used, not just
the target items. Use dictionary forms for verbs and adjectives (e.g. "먹다", not "먹었어").

Return JSON with exactly this structure:
{
  "overall_score": 0.0-1.0,
  "items_used": [{"korean": "어제", "status": "correct|incorrect|wrong_form", "explanation": "..."}],
  "grammar_used": [{"pattern": "-았/었어요", "status": "correct|incorrect|wrong_form", "explanation": "..."}],
  "formality": {"expected": "formal|polite|casual", "detected": "...", "issues": []},
  "corrected_sentence": "...",
  "natural_alternative": "...",
  "explanation": "Brief overall feedback in English (2-3 sentences)"
}

Scoring guide: 1.0 perfect, 0.8-0.9 minor issues, 0.6-0.7 some errors but communicative,
0.4-0.5 significant errors, 0.0-0.3 mostly incorrect. Be encouraging but honest.`

const exampleSystemPrompt = `You help students learn Korean. Reply with one short, natural Korean example
sentence using the given word or pattern, followed by its English translation on a new line.`

// Config configures the OpenAI client
type Config struct {
	APIKey string
	// BaseURL overrides the API endpoint, e.g. for a compatible proxy
	BaseURL string
	// Model is the chat model used for corrections
	Model string
	// TranscriptionModel is the speech-to-text model
	TranscriptionModel string
	// Language is the ISO code passed to speech-to-text
	Language string
}

// ChatGPT grades Korean answers and transcribes speech through the OpenAI API
type ChatGPT struct {
	client      *openai.Client
	model       string
	sttModel    string
	language    string
	temperature float32
}

// New creates a new ChatGPT client
func New(cfg Config) (*ChatGPT, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("OpenAI API key is not set")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	c := &ChatGPT{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		sttModel:    cfg.TranscriptionModel,
		language:    cfg.Language,
		temperature: 0.3,
	}
	if c.model == "" {
		c.model = openai.GPT4o
	}
	if c.sttModel == "" {
		c.sttModel = openai.Whisper1
	}
	if c.language == "" {
		c.language = "ko"
	}
	return c, nil
}

// Correct asks the model to grade a transcribed answer
func (c *ChatGPT) Correct(ctx context.Context, req models.CorrectionRequest) (*models.CorrectionReport, error) {
	content, err := c.complete(ctx, correctionSystemPrompt, correctionPrompt(req), true)
	if err != nil {
		return nil, err
	}

	var report models.CorrectionReport
	if err := json.Unmarshal([]byte(content), &report); err != nil {
		return nil, errors.Wrap(err, "failed to decode correction")
	}
	report.Transcript = req.Transcript
	return &report, nil
}

// Transcribe converts recorded speech to text
func (c *ChatGPT) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	if filename == "" {
		filename = "audio.webm"
	}
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.sttModel,
		Reader:   audio,
		FilePath: filename,
		Language: c.language,
	})
	if err != nil {
		return "", errors.Wrap(err, "transcription request failed")
	}
	return strings.TrimSpace(resp.Text), nil
}

// GenerateExample returns an example sentence for a newly added item
func (c *ChatGPT) GenerateExample(ctx context.Context, item *models.Item) (string, error) {
	prompt := fmt.Sprintf("%s (%s) [%s]", item.Korean, item.English, item.ItemType)
	content, err := c.complete(ctx, exampleSystemPrompt, prompt, false)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

func (c *ChatGPT) complete(ctx context.Context, system, user string, jsonOutput bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: c.temperature,
	}
	if jsonOutput {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", errors.Wrap(err, "chat completion request failed")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response from model")
	}
	return resp.Choices[0].Message.Content, nil
}

func correctionPrompt(req models.CorrectionRequest) string {
	var targets strings.Builder
	for _, item := range req.Targets {
		fmt.Fprintf(&targets, "- %s (%s) [%s]\n", item.Korean, item.English, item.ItemType)
	}
	formality := req.Formality
	if formality == "" {
		formality = models.FormalityPolite
	}
	return fmt.Sprintf("Practice prompt: %s\nExpected formality: %s\n\nTarget items:\n%s\nStudent's transcribed speech:\n%s",
		req.Prompt, formality, targets.String(), req.Transcript)
}
