// Package advice turns an analysis into natural-language care guidance using
// a generative-text provider, degrading to local text when the provider fails.
package advice

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hpungsan/flourish/internal/analysis"
	"github.com/hpungsan/flourish/internal/errors"
	"github.com/hpungsan/flourish/internal/observability"
)

// Generator produces text for a prompt.
type Generator interface {
	Configured() bool
	Generate(ctx context.Context, prompt string) (string, error)
}

// Modes label logs and metrics.
const (
	ModeInitial = "initial"
	ModeChat    = "chat"
)

// Advisor builds prompts and absorbs provider failures.
type Advisor struct {
	gen Generator
}

// NewAdvisor wraps a Generator.
func NewAdvisor(gen Generator) *Advisor {
	return &Advisor{gen: gen}
}

// Configured reports whether the underlying provider has a credential.
func (a *Advisor) Configured() bool {
	return a.gen != nil && a.gen.Configured()
}

// GenerateAdvice returns initial care advice when question is empty, or a
// short conversational answer otherwise.
//
// The only error returned is CONFIGURATION when no credential is set. Every
// other failure is logged and replaced by fallback text naming the plant.
func (a *Advisor) GenerateAdvice(ctx context.Context, plant *analysis.PlantInfo, health *analysis.HealthInfo, question string) (string, error) {
	if !a.Configured() {
		return "", errors.NewConfiguration("advice_api_key")
	}

	question = strings.TrimSpace(question)
	mode := ModeInitial
	if question != "" {
		mode = ModeChat
	}

	text, err := a.generate(ctx, plant, health, question)
	if err == nil {
		return text, nil
	}

	fErr := errors.As(err)
	if fErr.Code == errors.ErrConfiguration {
		return "", fErr
	}

	slog.Warn("advice provider failed, using fallback", "mode", mode, "code", fErr.Code, "error", fErr.Message)
	observability.AdviceFallbacks.WithLabelValues(mode).Inc()

	name := fallbackName(plant)
	if mode == ModeChat {
		return FallbackChat(name), nil
	}
	return FallbackAdvice(name), nil
}

func (a *Advisor) generate(ctx context.Context, plant *analysis.PlantInfo, health *analysis.HealthInfo, question string) (string, error) {
	if plant == nil && health == nil {
		return "", errors.NewInvalidRequest("no plant or health information provided")
	}

	pc := newPromptContext(plant, health)
	prompt := initialPrompt(pc)
	if question != "" {
		prompt = chatPrompt(pc, question)
	}

	start := time.Now()
	text, err := a.gen.Generate(ctx, prompt)
	observability.StageDuration.WithLabelValues("advice").Observe(time.Since(start).Seconds())
	return text, err
}
