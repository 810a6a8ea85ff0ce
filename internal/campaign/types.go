// Package campaign holds the two generation stages of a brand-safe campaign, the
// strategist and the executor, plus the visual synthesizer that renders the image
// prompt the executor writes. Stages talk to models only through TextGenerator and
// ImageGenerator.
package campaign

import (
	"fmt"
	"strings"

	"align-bot/internal/brand"
)

// Request is one campaign ask. It is immutable once a pipeline run has started.
type Request struct {
	Topic          string             `json:"topic" validate:"required,nonempty"`
	Context        string             `json:"context" validate:"required,nonempty"`
	TargetAudience string             `json:"targetAudience"`
	Brand          brand.Profile      `json:"brand"`
	Preset         brand.VisualPreset `json:"preset"`
}

// NewRequest trims the free-text fields, fills in the archetype's default preset
// when none is given, and rejects presets the archetype does not allow.
func NewRequest(profile brand.Profile, preset brand.VisualPreset, topic, context, audience string) (Request, error) {
	if err := profile.Validate(); err != nil {
		return Request{}, err
	}
	if preset == "" {
		preset = brand.DefaultPreset(profile.Archetype)
	}
	if !brand.Allows(profile.Archetype, preset) {
		return Request{}, fmt.Errorf("%w: %s is not available for %s", brand.ErrUnknownPreset, preset, profile.Archetype)
	}

	req := Request{
		Topic:          strings.TrimSpace(topic),
		Context:        strings.TrimSpace(context),
		TargetAudience: strings.TrimSpace(audience),
		Brand:          profile,
		Preset:         preset,
	}
	if err := validateStruct(req); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Strategy is the strategist's analysis. All four fields are non-empty once decoded.
type Strategy struct {
	MarketAnalysis  string `json:"marketAnalysis" validate:"required,nonempty"`
	StrategicAngle  string `json:"strategicAngle" validate:"required,nonempty"`
	AlignmentCheck  string `json:"alignmentCheck" validate:"required,nonempty"`
	ToneInstruction string `json:"toneInstruction" validate:"required,nonempty"`
}

// Content is the executor's deliverable. ImageURL is empty until the synthesizer
// has run; ImagePlaceholder reports that the image is a stand-in.
type Content struct {
	Headline         string `json:"headline"`
	Body             string `json:"body"`
	ImagePrompt      string `json:"imagePrompt"`
	Rationale        string `json:"rationale"`
	ImageURL         string `json:"imageUrl,omitempty"`
	ImagePlaceholder bool   `json:"imagePlaceholder,omitempty"`
}

// contentPayload is the executor's wire shape. The image fields are never taken
// from model output.
type contentPayload struct {
	Headline    string `json:"headline" validate:"required,nonempty"`
	Body        string `json:"body" validate:"required,nonempty"`
	ImagePrompt string `json:"imagePrompt" validate:"required,nonempty"`
	Rationale   string `json:"rationale" validate:"required,nonempty"`
}

func (p contentPayload) content() Content {
	return Content{
		Headline:    p.Headline,
		Body:        p.Body,
		ImagePrompt: p.ImagePrompt,
		Rationale:   p.Rationale,
	}
}

// Visual is the synthesizer's result.
type Visual struct {
	URL         string `json:"url"`
	Placeholder bool   `json:"placeholder"`
}
