package campaign

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"align-bot/internal/visual"
)

const DefaultExecutionTemperature float32 = 0.7

type ExecutorOptions struct {
	Generator   TextGenerator
	Model       string
	Temperature float32
	Logger      *slog.Logger
}

// Executor writes the copy and image prompt under an approved Strategy.
type Executor struct {
	gen         TextGenerator
	model       string
	temperature float32
	logger      *slog.Logger
}

// NewExecutor builds the copy stage. Generator is required; without one Run fails
// with ErrConfiguration.
func NewExecutor(opts ExecutorOptions) *Executor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	temperature := opts.Temperature
	if temperature <= 0 {
		temperature = DefaultExecutionTemperature
	}
	return &Executor{
		gen:         opts.Generator,
		model:       opts.Model,
		temperature: temperature,
		logger:      logger,
	}
}

// Run produces Content without an image. Failures are attributed to StageExecution.
func (e *Executor) Run(ctx context.Context, req Request, strategy Strategy) (Content, error) {
	if e.gen == nil {
		return Content{}, fmt.Errorf("%w: executor has no text generator", ErrConfiguration)
	}
	if _, mapped := visual.Lookup(req.Brand.Archetype, req.Preset); !mapped {
		e.logger.Info("visual rule fallback", "archetype", req.Brand.Archetype, "preset", req.Preset)
	}

	raw, err := e.gen.Generate(ctx, e.Prompt(req, strategy))
	if err != nil {
		return Content{}, GenerationFailure(StageExecution, err)
	}

	payload, err := decodeStage[contentPayload](StageExecution, raw)
	if err != nil {
		e.logger.Warn("content rejected", "err", err)
		return Content{}, err
	}
	return payload.content(), nil
}

// Prompt builds the executor's call. The visual rule for the request's archetype
// and preset is embedded in the system brief. It has no side effects.
func (e *Executor) Prompt(req Request, strategy Strategy) TextPrompt {
	rule, mapped := visual.Lookup(req.Brand.Archetype, req.Preset)
	if !mapped {
		rule = visual.Fallback
	}
	return TextPrompt{
		Model:       e.model,
		System:      executionSystem(req, strategy, rule),
		Task:        executionTask(req),
		Schema:      ContentSchema,
		Temperature: e.temperature,
	}
}

func executionSystem(req Request, strategy Strategy, rule string) string {
	return fmt.Sprintf(`You are a Senior Copywriter and Art Director.
Execute the content based strictly on the provided STRATEGY.

STRATEGY ANGLE: %s
TONE INSTRUCTIONS: %s

--- VISUAL DIRECTOR INSTRUCTIONS (STRICT) ---
You must generate an image prompt that adheres to these physics/camera rules:
%s

The image prompt should be descriptive, referencing specific lighting, lens type, and composition mentioned above.

--- COPYWRITING INSTRUCTIONS ---
Adhere to the brand constraints: %s
Tone: %s`,
		strategy.StrategicAngle, strategy.ToneInstruction, rule, req.Brand.Constraints, req.Brand.Tone)
}

func executionTask(req Request) string {
	return fmt.Sprintf(`Write a LinkedIn/Social post about: %s
Audience: %s

Also provide a detailed prompt for an image generation model that visualizes this concept.`,
		req.Topic, req.TargetAudience)
}
