package campaign

import (
	"errors"
	"fmt"
)

// Stage names a step of the campaign pipeline for error attribution.
type Stage string

const (
	StageStrategy  Stage = "strategy"
	StageExecution Stage = "execution"
	StageVisual    Stage = "visual"
)

var (
	// ErrConfiguration marks a fatal setup problem such as a missing credential.
	// It is raised before any stage call is attempted.
	ErrConfiguration = errors.New("configuration error")

	ErrGenerationFailed = errors.New("generation failed")
	ErrMalformedOutput  = errors.New("malformed output")

	errEmptyPayload = errors.New("empty payload")
)

// StageError attributes a GenerationFailed or MalformedOutput error to a stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// GenerationFailure wraps err as ErrGenerationFailed attributed to stage.
func GenerationFailure(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: fmt.Errorf("%w: %w", ErrGenerationFailed, err)}
}

func MalformedOutput(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: fmt.Errorf("%w: %w", ErrMalformedOutput, err)}
}

// StageOf returns the stage an error is attributed to, if any.
func StageOf(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
