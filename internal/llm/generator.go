package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/venuescope/internal/explain"
	"github.com/ppiankov/venuescope/internal/metrics"
)

// ErrEmptyCompletion is returned when a provider answers with no text
var ErrEmptyCompletion = errors.New("empty completion")

// Generator adapts a Provider to explain.Generator
type Generator struct {
	provider  Provider
	maxTokens int
	logger    zerolog.Logger
}

// NewGenerator wraps provider. A nil provider yields a nil Generator so the
// explanation service falls back to plain text.
func NewGenerator(provider Provider, maxTokens int, logger zerolog.Logger) explain.Generator {
	if provider == nil {
		return nil
	}
	return &Generator{
		provider:  provider,
		maxTokens: maxTokens,
		logger:    logger.With().Str("component", "llm").Str("provider", provider.Name()).Logger(),
	}
}

// Generate implements explain.Generator
func (g *Generator) Generate(ctx context.Context, req explain.Request) (string, error) {
	start := time.Now()
	resp, err := g.provider.Complete(ctx, CompletionRequest{
		System:    systemPrompt,
		Prompt:    BuildPrompt(req),
		MaxTokens: g.maxTokens,
	})
	if err != nil {
		g.logger.Warn().Err(err).Str("venue_id", req.VenueID).Msg("generation failed")
		return "", err
	}
	metrics.ObserveLLMGeneration(resp.Model, time.Since(start), resp.TokensUsed)

	if resp.Text == "" {
		return "", fmt.Errorf("%s: %w", g.provider.Name(), ErrEmptyCompletion)
	}
	g.logger.Debug().
		Str("venue_id", req.VenueID).
		Str("model", resp.Model).
		Int("tokens", resp.TokensUsed).
		Dur("took", time.Since(start)).
		Msg("explanation generated")
	return resp.Text, nil
}
