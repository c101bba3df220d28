package ai_test

import (
	"context"
	"encoding/json"
	"github.com/myrjola/casebook/internal/ai"
	"github.com/myrjola/casebook/internal/models"
	"github.com/myrjola/casebook/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// fakeProvider is an HTTP stand-in for a provider endpoint. It replies with the queued texts in order and records the
// request bodies.
type fakeProvider struct {
	mu       sync.Mutex
	replies  []string
	requests [][]byte
	wrap     func(text string) any
}

func (f *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, body)
	var reply string
	if len(f.replies) > 0 {
		reply, f.replies = f.replies[0], f.replies[1:]
	}
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(f.wrap(reply))
}

func (f *fakeProvider) lastRequest(t *testing.T) map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	var req map[string]any
	require.NoError(t, json.Unmarshal(f.requests[len(f.requests)-1], &req))
	return req
}

func newOpenAIClient(t *testing.T, replies ...string) (*ai.Client, *fakeProvider) {
	t.Helper()
	fake := &fakeProvider{replies: replies, wrap: func(text string) any {
		return map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []any{map[string]any{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": text},
				"finish_reason": "stop",
			}},
		}
	}}
	mux := http.NewServeMux()
	mux.Handle("POST /v1/chat/completions", fake)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := ai.New(context.Background(), ai.Config{
		Provider:     ai.ProviderOpenAI,
		BaseURL:      server.URL + "/v1",
		OpenAIAPIKey: "test-key",
	}, testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	return client, fake
}

func newGeminiClient(t *testing.T, replies ...string) (*ai.Client, *fakeProvider) {
	t.Helper()
	fake := &fakeProvider{replies: replies, wrap: func(text string) any {
		return map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": text}},
				},
				"finishReason": "STOP",
			}},
		}
	}}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		fake.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := ai.New(context.Background(), ai.Config{
		Provider:     ai.ProviderGemini,
		BaseURL:      server.URL,
		GeminiAPIKey: "test-key",
	}, testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	return client, fake
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ai.Config
		wantErr error
	}{
		{name: "unknown provider", cfg: ai.Config{Provider: "llama", OpenAIAPIKey: "k"}, wantErr: ai.ErrUnknownProvider},
		{name: "missing gemini key", cfg: ai.Config{Provider: ai.ProviderGemini}, wantErr: ai.ErrMissingAPIKey},
		{name: "missing openai key", cfg: ai.Config{Provider: ai.ProviderOpenAI}, wantErr: ai.ErrMissingAPIKey},
		{name: "openai", cfg: ai.Config{Provider: "OpenAI", OpenAIAPIKey: "k"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client, err := ai.New(context.Background(), tt.cfg, testhelpers.NewLogger(io.Discard))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, client)
		})
	}
}

func TestClient_GenerateCase(t *testing.T) {
	t.Parallel()
	details := testhelpers.SampleCase("The Pharaoh's Ledger")

	t.Run("openai", func(t *testing.T) {
		t.Parallel()
		client, fake := newOpenAIClient(t, mustJSON(t, details))
		got, err := client.GenerateCase(context.Background(), models.DifficultyHard, models.LanguageArabic)
		require.NoError(t, err)
		require.Equal(t, details, got)

		req := fake.lastRequest(t)
		require.Equal(t, map[string]any{"type": "json_object"}, req["response_format"])
		prompt := mustJSON(t, req["messages"])
		require.Contains(t, prompt, "Difficulty: Hard")
		require.Contains(t, prompt, "Arabic")
		require.Contains(t, prompt, "Egyptian dialect")
	})

	t.Run("gemini", func(t *testing.T) {
		t.Parallel()
		client, fake := newGeminiClient(t, mustJSON(t, details))
		got, err := client.GenerateCase(context.Background(), models.DifficultyEasy, models.LanguageEnglish)
		require.NoError(t, err)
		require.Equal(t, details, got)

		raw := mustJSON(t, fake.lastRequest(t))
		require.Contains(t, raw, "application/json")
		require.Contains(t, raw, "keyEvidenceIds")
		require.Contains(t, raw, "Difficulty: Easy")
		require.NotContains(t, raw, "Egyptian dialect")
	})
}

func TestClient_MalformedPayload(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		reply string
	}{
		{name: "prose", reply: "Here is your mystery!"},
		{name: "truncated", reply: `{"case": {"title": "Half`},
		{name: "array", reply: `[1, 2, 3]`},
		{name: "empty", reply: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client, _ := newOpenAIClient(t, tt.reply)
			_, err := client.GenerateCase(context.Background(), models.DifficultyMedium, models.LanguageEnglish)
			require.ErrorIs(t, err, ai.ErrMalformedPayload)
		})
	}
}

func TestClient_Interrogate(t *testing.T) {
	t.Parallel()
	details := testhelpers.SampleCase("The Silent Felucca")
	req := models.InterrogationRequest{
		CaseDescription: details.Case.Description,
		Suspect:         details.Suspects[1],
		Message:         "Where were you at midnight?",
		Transcript: []models.Message{
			{Speaker: models.SpeakerPlayer, Text: "Did you know the victim?"},
			{Speaker: models.SpeakerSuspect, Text: "Only in passing."},
		},
		Language: models.LanguageEnglish,
	}

	t.Run("openai", func(t *testing.T) {
		t.Parallel()
		client, fake := newOpenAIClient(t, "  I was asleep, detective.\n")
		reply, err := client.Interrogate(context.Background(), req)
		require.NoError(t, err)
		require.Equal(t, "I was asleep, detective.", reply)

		sent := fake.lastRequest(t)
		require.Nil(t, sent["response_format"])
		messages, ok := sent["messages"].([]any)
		require.True(t, ok)
		var roles []string
		for _, m := range messages {
			msg, _ := m.(map[string]any)
			role, _ := msg["role"].(string)
			roles = append(roles, role)
		}
		require.Equal(t, []string{"system", "user", "assistant", "user"}, roles)
		system := mustJSON(t, messages[0])
		require.Contains(t, system, details.Suspects[1].Name)
		require.Contains(t, mustJSON(t, messages[3]), "Where were you at midnight?")
	})

	t.Run("gemini", func(t *testing.T) {
		t.Parallel()
		client, fake := newGeminiClient(t, "I was asleep, detective.")
		reply, err := client.Interrogate(context.Background(), req)
		require.NoError(t, err)
		require.Equal(t, "I was asleep, detective.", reply)

		sent := fake.lastRequest(t)
		contents, ok := sent["contents"].([]any)
		require.True(t, ok)
		require.Len(t, contents, 3)
		raw := mustJSON(t, sent)
		require.Contains(t, raw, details.Suspects[1].Motive)
		require.NotContains(t, raw, "application/json")
	})
}

func TestClient_EvaluateDeduction(t *testing.T) {
	t.Parallel()
	details := testhelpers.SampleCase("The Cairo Cipher")
	want := models.Evaluation{IsCorrect: true, Score: 85, Feedback: "Well reasoned.", Comment: "There is only one truth!"}
	req := models.EvaluationRequest{
		Details:   details,
		Deduction: models.Deduction{SuspectID: details.Solution.CulpritID, Reasoning: "The ledger was forged."},
		Language:  models.LanguageEnglish,
	}

	for _, provider := range []string{ai.ProviderOpenAI, ai.ProviderGemini} {
		t.Run(provider, func(t *testing.T) {
			t.Parallel()
			var (
				client *ai.Client
				fake   *fakeProvider
			)
			if provider == ai.ProviderOpenAI {
				client, fake = newOpenAIClient(t, mustJSON(t, want))
			} else {
				client, fake = newGeminiClient(t, mustJSON(t, want))
			}
			got, err := client.EvaluateDeduction(context.Background(), req)
			require.NoError(t, err)
			require.Equal(t, want, got)

			raw := mustJSON(t, fake.lastRequest(t))
			require.Contains(t, raw, details.Solution.Reasoning, "the grader sees the hidden solution")
			require.Contains(t, raw, "The ledger was forged.")
		})
	}
}

func TestClient_ProviderError(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": {"message": "overloaded", "type": "server_error"}}`, http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	client, err := ai.New(context.Background(), ai.Config{
		Provider:     ai.ProviderOpenAI,
		BaseURL:      server.URL + "/v1",
		OpenAIAPIKey: "test-key",
	}, testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)

	_, err = client.Interrogate(context.Background(), models.InterrogationRequest{Message: "Hello?"})
	require.Error(t, err)
	require.NotErrorIs(t, err, ai.ErrMalformedPayload)
}
