package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/korbot/pkg/models"
)

func chatResponse(content string) map[string]interface{} {
	return map[string]interface{}{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o",
		"choices": []map[string]interface{}{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]interface{}{"role": "assistant", "content": content},
		}},
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *ChatGPT {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)
	return c
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestCorrect(t *testing.T) {
	var got map[string]interface{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		content := `{"overall_score":0.8,"items_used":[{"korean":"먹다","status":"correct","explanation":"ok"}],` +
			`"grammar_used":[{"pattern":"-았/었어요","status":"wrong_form","explanation":"tense"}],` +
			`"formality":{"expected":"polite","detected":"casual","issues":["반말"]},"corrected_sentence":"밥을 먹었어요"}`
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse(content))
	})

	report, err := c.Correct(context.Background(), models.CorrectionRequest{
		Prompt:     "What did you eat?",
		Targets:    []models.Item{{Korean: "먹다", English: "to eat", ItemType: models.ItemTypeVocab}},
		Transcript: "밥 먹었어",
	})
	require.NoError(t, err)

	assert.Equal(t, 0.8, report.OverallScore)
	require.Len(t, report.ItemsUsed, 1)
	assert.Equal(t, models.StatusCorrect, report.ItemsUsed[0].Status)
	require.Len(t, report.GrammarUsed, 1)
	assert.Equal(t, models.StatusWrongForm, report.GrammarUsed[0].Status)
	assert.Equal(t, []string{"반말"}, report.Formality.Issues)
	assert.Equal(t, "밥 먹었어", report.Transcript)

	assert.Equal(t, "gpt-4o", got["model"])
	format, ok := got["response_format"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "json_object", format["type"])
	messages := got["messages"].([]interface{})
	require.Len(t, messages, 2)
	user := messages[1].(map[string]interface{})["content"].(string)
	assert.Contains(t, user, "- 먹다 (to eat) [vocab]")
	assert.Contains(t, user, "Expected formality: polite")
}

func TestCorrectRejectsMalformedJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse("not json"))
	})
	_, err := c.Correct(context.Background(), models.CorrectionRequest{Transcript: "안녕"})
	assert.Error(t, err)
}

func TestTranscribe(t *testing.T) {
	var audio string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		b, _ := io.ReadAll(file)
		audio = string(b)
		assert.Equal(t, "answer.webm", header.Filename)
		assert.Equal(t, "ko", r.FormValue("language"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":" 안녕하세요 "}`))
	})

	text, err := c.Transcribe(context.Background(), strings.NewReader("RIFF-audio"), "answer.webm")
	require.NoError(t, err)
	assert.Equal(t, "안녕하세요", text)
	assert.Equal(t, "RIFF-audio", audio)
}

func TestGenerateExample(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse("사과를 먹어요.\nI eat an apple.\n"))
	})
	example, err := c.GenerateExample(context.Background(), &models.Item{Korean: "사과", English: "apple", ItemType: models.ItemTypeVocab})
	require.NoError(t, err)
	assert.Equal(t, "사과를 먹어요.\nI eat an apple.", example)
}
