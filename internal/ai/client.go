package ai

import (
	"context"
	"encoding/json"
	"github.com/myrjola/casebook/internal/errors"
	"github.com/myrjola/casebook/internal/models"
	"log/slog"
	"strings"
	"time"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

var (
	ErrMalformedPayload = errors.NewSentinel("malformed oracle payload")
	ErrUnknownProvider  = errors.NewSentinel("unknown oracle provider")
	ErrMissingAPIKey    = errors.NewSentinel("oracle API key not set")
)

// Config selects and configures the generation service.
type Config struct {
	Provider     string `env:"CASEBOOK_ORACLE" envDefault:"gemini"`
	Model        string `env:"CASEBOOK_MODEL" envDefault:""`
	BaseURL      string `env:"CASEBOOK_ORACLE_BASE_URL" envDefault:""`
	GeminiAPIKey string `env:"GEMINI_API_KEY" envDefault:""`
	OpenAIAPIKey string `env:"OPENAI_API_KEY" envDefault:""`
}

type role string

const (
	roleUser  role = "user"
	roleModel role = "model"
)

type turn struct {
	role role
	text string
}

type responseFormat int

const (
	formatText responseFormat = iota
	formatCaseDetails
	formatEvaluation
)

type completionRequest struct {
	system string
	turns  []turn
	format responseFormat
}

// backend sends a single completion request to a provider and returns the raw response text.
type backend interface {
	complete(ctx context.Context, req completionRequest) (string, error)
}

// Client talks to the generation service. It renders the prompts, calls the configured provider once per operation
// and decodes structured responses. It never retries.
type Client struct {
	backend  backend
	prompts  *Prompts
	logger   *slog.Logger
	provider string
}

// New creates a Client for the provider selected in cfg.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	prompts, err := DefaultPrompts()
	if err != nil {
		return nil, errors.Wrap(err, "load prompts")
	}

	var b backend
	switch strings.ToLower(cfg.Provider) {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, errors.Wrap(ErrMissingAPIKey, "configure gemini", slog.String("env", "GEMINI_API_KEY"))
		}
		if b, err = newGeminiBackend(ctx, cfg.GeminiAPIKey, cfg.Model, cfg.BaseURL); err != nil {
			return nil, errors.Wrap(err, "create gemini backend")
		}
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.Wrap(ErrMissingAPIKey, "configure openai", slog.String("env", "OPENAI_API_KEY"))
		}
		b = newOpenAIBackend(cfg.OpenAIAPIKey, cfg.Model, cfg.BaseURL)
	default:
		return nil, errors.Wrap(ErrUnknownProvider, "select provider", slog.String("provider", cfg.Provider))
	}

	return newClient(b, prompts, logger, strings.ToLower(cfg.Provider)), nil
}

func newClient(b backend, prompts *Prompts, logger *slog.Logger, provider string) *Client {
	return &Client{
		backend:  b,
		prompts:  prompts,
		logger:   logger.With("source", "ai", "provider", provider),
		provider: provider,
	}
}

func (c *Client) complete(ctx context.Context, operation string, req completionRequest) (string, error) {
	start := time.Now()
	text, err := c.backend.complete(ctx, req)
	if err != nil {
		return "", errors.Wrap(err, "complete", slog.String("operation", operation))
	}
	c.logger.LogAttrs(ctx, slog.LevelDebug, "oracle responded",
		slog.String("operation", operation),
		slog.Duration("duration", time.Since(start)),
		slog.Int("length", len(text)))
	return text, nil
}

// GenerateCase asks for a new mystery of the given difficulty written in lang.
func (c *Client) GenerateCase(
	ctx context.Context,
	difficulty models.Difficulty,
	lang models.Language,
) (models.CaseDetails, error) {
	prompt, err := c.prompts.GenerateCase(difficulty, lang)
	if err != nil {
		return models.CaseDetails{}, err
	}
	text, err := c.complete(ctx, "generate_case", completionRequest{
		turns:  []turn{{role: roleUser, text: prompt}},
		format: formatCaseDetails,
	})
	if err != nil {
		return models.CaseDetails{}, err
	}
	return decode[models.CaseDetails](text)
}

// Interrogate returns the suspect's in-character reply. The earlier transcript is sent as conversation history.
func (c *Client) Interrogate(ctx context.Context, req models.InterrogationRequest) (string, error) {
	system, err := c.prompts.Interrogate(req)
	if err != nil {
		return "", err
	}
	turns := make([]turn, 0, len(req.Transcript)+1)
	for _, msg := range req.Transcript {
		r := roleUser
		if msg.Speaker == models.SpeakerSuspect {
			r = roleModel
		}
		turns = append(turns, turn{role: r, text: msg.Text})
	}
	turns = append(turns, turn{role: roleUser, text: req.Message})

	text, err := c.complete(ctx, "interrogate", completionRequest{
		system: system,
		turns:  turns,
		format: formatText,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// EvaluateDeduction grades the player's accusation against the hidden solution.
func (c *Client) EvaluateDeduction(ctx context.Context, req models.EvaluationRequest) (models.Evaluation, error) {
	prompt, err := c.prompts.Evaluate(req)
	if err != nil {
		return models.Evaluation{}, err
	}
	text, err := c.complete(ctx, "evaluate_deduction", completionRequest{
		turns:  []turn{{role: roleUser, text: prompt}},
		format: formatEvaluation,
	})
	if err != nil {
		return models.Evaluation{}, err
	}
	return decode[models.Evaluation](text)
}

// decode parses a JSON object response. Anything else is a malformed payload; no repair is attempted.
func decode[T any](text string) (T, error) {
	var v T
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "{") {
		return v, errors.Wrap(ErrMalformedPayload, "expected JSON object", slog.Int("length", len(text)))
	}
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return v, errors.Wrap(errors.Mark(err, ErrMalformedPayload), "unmarshal payload")
	}
	return v, nil
}
