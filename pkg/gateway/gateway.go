// Package gateway is the boundary between the pipeline and a hosted language
// model: it builds role prompts, calls an inference provider and shapes the
// replies. All three operations are fallible; callers choose the fallback.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/syntor/forge/pkg/inference"
	"github.com/syntor/forge/pkg/logging"
	"github.com/syntor/forge/pkg/metrics"
	"github.com/syntor/forge/pkg/models"
	"github.com/syntor/forge/pkg/profile"
	"github.com/syntor/forge/pkg/resilience"
)

// Operation names used in logs and metrics
const (
	OpQuestions = "generate_questions"
	OpImprove   = "improve_prompt"
	OpRunStep   = "run_step"
)

// emptyStepReply stands in for a step that produced no text
const emptyStepReply = "Analysis complete."

// ErrMalformedQuestions is returned when the question reply is not a JSON list of strings
var ErrMalformedQuestions = errors.New("gateway: malformed question list")

// QA pairs a clarification question with the user's answer
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// StepRequest carries everything one role step needs
type StepRequest struct {
	Role        models.Role
	Idea        string
	Transcript  []models.TranscriptEntry
	Attachments []models.Attachment
	Mode        models.Mode
	Lang        models.BotLanguage
}

// Gateway executes generation calls
type Gateway interface {
	// Ready reports whether calls can be attempted at all
	Ready() error
	GenerateQuestions(ctx context.Context, idea string, attachments []models.Attachment) ([]string, error)
	ImprovePrompt(ctx context.Context, idea string, answers []QA) (string, error)
	RunStep(ctx context.Context, req StepRequest) (string, error)
}

// Config tunes a ProviderGateway
type Config struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Retry       resilience.RetryConfig
	Logger      logging.Logger
	Metrics     metrics.Collector
}

// ProviderGateway implements Gateway on top of an inference.Provider
type ProviderGateway struct {
	provider inference.Provider
	config   Config
	retryer  *resilience.Retryer
	logger   logging.Logger
	metrics  metrics.Collector
}

// New creates a gateway for provider
func New(provider inference.Provider, config Config) *ProviderGateway {
	if config.Logger == nil {
		config.Logger = logging.NewNop()
	}
	if config.Metrics == nil {
		config.Metrics = metrics.NopCollector{}
	}

	g := &ProviderGateway{
		provider: provider,
		config:   config,
		logger:   config.Logger,
		metrics:  config.Metrics,
	}

	retry := config.Retry
	retry.ShouldRetry = inference.IsTransient
	retry.OnRetry = func(attempt int, err error, delay time.Duration) {
		g.logger.Warn("provider call failed, retrying",
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Err(err),
		)
	}
	g.retryer = resilience.NewRetryer(retry)
	return g
}

// Provider returns the underlying provider
func (g *ProviderGateway) Provider() inference.Provider {
	return g.provider
}

// Ready returns inference.ErrMissingCredential when a hosted provider has no key
func (g *ProviderGateway) Ready() error {
	if g.provider == nil {
		return inference.ErrProviderNotAvailable
	}
	if g.provider.RequiresCredential() && !g.provider.IsAvailable(context.Background()) {
		return fmt.Errorf("%s: %w", g.provider.Name(), inference.ErrMissingCredential)
	}
	return nil
}

// GenerateQuestions asks for clarifying questions. The list is returned as
// parsed; see NormalizeQuestions for coercing it to the expected length.
func (g *ProviderGateway) GenerateQuestions(ctx context.Context, idea string, attachments []models.Attachment) ([]string, error) {
	reply, err := g.chat(ctx, OpQuestions, inference.ChatRequest{
		JSON: true,
		Messages: []inference.Message{{
			Role:        "user",
			Content:     questionsPrompt(idea),
			Attachments: blobs(attachments),
		}},
	})
	if err != nil {
		return nil, err
	}

	questions, err := ParseQuestions(reply)
	if err != nil {
		g.logger.Debug("question reply not parseable", logging.Int("chars", len(reply)), logging.Err(err))
		return nil, err
	}
	return questions, nil
}

// ImprovePrompt folds the answers into a rewritten specification
func (g *ProviderGateway) ImprovePrompt(ctx context.Context, idea string, answers []QA) (string, error) {
	reply, err := g.chat(ctx, OpImprove, inference.ChatRequest{
		Messages: []inference.Message{{Role: "user", Content: improvePrompt(idea, answers)}},
	})
	if err != nil {
		return "", err
	}
	if reply == "" {
		return idea, nil
	}
	return reply, nil
}

// RunStep executes one role against the transcript so far
func (g *ProviderGateway) RunStep(ctx context.Context, req StepRequest) (string, error) {
	p := profile.Lookup(req.Role, req.Mode, req.Lang)
	reply, err := g.chat(ctx, OpRunStep, inference.ChatRequest{
		System: p.Instruction,
		Messages: []inference.Message{{
			Role:        "user",
			Content:     stepPrompt(req),
			Attachments: blobs(req.Attachments),
		}},
	})
	if err != nil {
		return "", err
	}
	if reply == "" {
		return emptyStepReply, nil
	}
	return reply, nil
}

func (g *ProviderGateway) chat(ctx context.Context, op string, req inference.ChatRequest) (string, error) {
	if err := g.Ready(); err != nil {
		return "", err
	}

	req.Model = g.config.Model
	req.MaxTokens = g.config.MaxTokens
	req.Temperature = g.config.Temperature

	logger := g.logger.WithContext(ctx).With(
		logging.String("operation", op),
		logging.String("provider", g.provider.Name()),
		logging.String("model", req.Model),
	)
	start := time.Now()

	var resp *inference.ChatResponse
	result := g.retryer.Execute(ctx, func(ctx context.Context) error {
		var err error
		resp, err = g.provider.Chat(ctx, req)
		return err
	})

	if !result.Success {
		g.metrics.IncrementCounter(metrics.GatewayCalls.Name, metrics.Labels("operation", op, "status", "error"))
		logger.Warn("provider call failed",
			logging.Int("attempts", result.Attempts),
			logging.Duration("elapsed", time.Since(start)),
			logging.Err(result.LastError),
		)
		if errors.Is(result.LastError, resilience.ErrContextCanceled) && ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", result.LastError
	}

	g.metrics.IncrementCounter(metrics.GatewayCalls.Name, metrics.Labels("operation", op, "status", "ok"))
	logger.Debug("provider call finished",
		logging.Int("attempts", result.Attempts),
		logging.Duration("elapsed", time.Since(start)),
		logging.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return resp.Message.Content, nil
}

func blobs(attachments []models.Attachment) []inference.Blob {
	if len(attachments) == 0 {
		return nil
	}
	out := make([]inference.Blob, len(attachments))
	for i, a := range attachments {
		out[i] = inference.Blob{MIMEType: a.MIMEType, Data: a.Data}
	}
	return out
}
