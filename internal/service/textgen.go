package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/lynixity/lynix-go/internal/domain"
	"github.com/lynixity/lynix-go/internal/infra/observability"
	"github.com/lynixity/lynix-go/internal/infra/resilience"
	"github.com/lynixity/lynix-go/internal/port"
)

// Messages of the text-generation proxy.
const (
	MsgPromptRequired   = "Prompt is required."
	MsgGenerationFailed = "Sorry, I encountered an error while processing your request."
)

// ErrTextGenNotConfigured is returned when no API key was configured.
var ErrTextGenNotConfigured = errors.New("API Key not configured on the server.")

// TextGenService proxies prompts to the text-generation model.
type TextGenService struct {
	generator port.TextGenerator // nil when no API key is configured
	bulkhead  *resilience.Bulkhead
	metrics   *observability.Metrics
	logger    *zap.Logger
}

func NewTextGenService(generator port.TextGenerator, metrics *observability.Metrics, logger *zap.Logger) *TextGenService {
	return &TextGenService{generator: generator, metrics: metrics, logger: logger}
}

// WithBulkhead caps the number of in-flight upstream calls.
func (s *TextGenService) WithBulkhead(b *resilience.Bulkhead) *TextGenService {
	s.bulkhead = b
	return s
}

// Configured reports whether a generator is wired.
func (s *TextGenService) Configured() bool {
	return s.generator != nil
}

// Generate answers prompt. Upstream failures are logged and returned as
// ErrExternalService; the handler turns them into the apology message.
func (s *TextGenService) Generate(ctx context.Context, prompt string) (*domain.Generation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "TextGenService.Generate")
	defer span.End()
	span.SetAttributes(attribute.Int("prompt.length", len(prompt)))

	if s.generator == nil {
		s.logger.Error("text generation requested but no API key is configured")
		return nil, ErrTextGenNotConfigured
	}
	if strings.TrimSpace(prompt) == "" {
		return nil, &domain.ErrValidation{Field: "prompt", Message: MsgPromptRequired}
	}

	if s.bulkhead != nil {
		if err := s.bulkhead.Acquire(ctx); err != nil {
			return nil, &domain.ErrTimeout{Operation: "generate-text"}
		}
		defer s.bulkhead.Release()
	}

	start := time.Now()
	gen, err := s.generator.Generate(ctx, prompt)
	s.metrics.RecordRequestDuration("generate-text", time.Since(start))
	if err != nil {
		s.logger.Error("text generation failed", zap.Error(err))
		s.metrics.IncrExternalError("gemini")
		var ext *domain.ErrExternalService
		if errors.As(err, &ext) {
			return nil, err
		}
		return nil, &domain.ErrExternalService{Service: "gemini", Err: err}
	}

	s.metrics.RecordTokens(gen.PromptTokens, gen.CompletionTokens)
	return gen, nil
}
