package campaign

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

const DefaultStrategyTemperature float32 = 0.2

type StrategistOptions struct {
	Generator   TextGenerator
	Model       string
	Temperature float32
	Logger      *slog.Logger
}

// Strategist runs the analysis stage. It never writes copy.
type Strategist struct {
	gen         TextGenerator
	model       string
	temperature float32
	logger      *slog.Logger
}

// NewStrategist builds the analysis stage. Generator is required; without one Run
// fails with ErrConfiguration.
func NewStrategist(opts StrategistOptions) *Strategist {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	temperature := opts.Temperature
	if temperature <= 0 {
		temperature = DefaultStrategyTemperature
	}
	return &Strategist{
		gen:         opts.Generator,
		model:       opts.Model,
		temperature: temperature,
		logger:      logger,
	}
}

// Run asks the generator for a Strategy. A transport failure or empty payload is a
// GenerationFailed error; output that does not decode into four non-empty fields is
// MalformedOutput. There is no retry.
func (s *Strategist) Run(ctx context.Context, req Request) (Strategy, error) {
	if s.gen == nil {
		return Strategy{}, fmt.Errorf("%w: strategist has no text generator", ErrConfiguration)
	}
	raw, err := s.gen.Generate(ctx, s.Prompt(req))
	if err != nil {
		return Strategy{}, GenerationFailure(StageStrategy, err)
	}

	strategy, err := decodeStage[Strategy](StageStrategy, raw)
	if err != nil {
		s.logger.Warn("strategy rejected", "err", err)
		return Strategy{}, err
	}
	s.logger.Debug("strategy ready", "topic", req.Topic)
	return strategy, nil
}

// Prompt builds the strategist's call without sending it.
func (s *Strategist) Prompt(req Request) TextPrompt {
	return TextPrompt{
		Model:       s.model,
		System:      strategySystem(req),
		Task:        strategyTask(req),
		Schema:      StrategySchema,
		Temperature: s.temperature,
	}
}

func strategySystem(req Request) string {
	return fmt.Sprintf(`You are the Chief Brand Strategist for a high-end agency.
Your goal is Brand Safety and Strategic Alignment.

ARCHETYPE: %s
BRAND MISSION: %s
BRAND TONE: %s
CONSTRAINTS: %s

Analyze the user's request. Do NOT generate the final content yet.
Think deeply about the risks, the angle, and the alignment.

Output JSON only.`,
		req.Brand.Archetype, req.Brand.Mission, req.Brand.Tone, req.Brand.Constraints)
}

func strategyTask(req Request) string {
	return fmt.Sprintf(`Request Topic: %s
Context: %s
Target Audience: %s

Provide a strategic analysis.`,
		req.Topic, req.Context, req.TargetAudience)
}
