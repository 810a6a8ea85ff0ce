package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"align-bot/internal/campaign"
)

const (
	DefaultTextModel  = "gemini-2.5-flash"
	DefaultImageModel = "imagen-3.0-generate-001"
)

type Options struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	// TextModel is used when a prompt does not name its own model.
	TextModel  string
	ImageModel string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client adapts the Gemini API to campaign.TextGenerator and campaign.ImageGenerator.
type Client struct {
	models     *genai.Models
	textModel  string
	imageModel string
	logger     *slog.Logger
}

// New fails with campaign.ErrConfiguration when no API key is set, before any
// network call is made.
func New(ctx context.Context, opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY is required", campaign.ErrConfiguration)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	textModel := strings.TrimSpace(opts.TextModel)
	if textModel == "" {
		textModel = DefaultTextModel
	}
	imageModel := strings.TrimSpace(opts.ImageModel)
	if imageModel == "" {
		imageModel = DefaultImageModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    strings.TrimSpace(opts.BaseURL),
			APIVersion: strings.TrimSpace(opts.APIVersion),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create gemini client: %w", campaign.ErrConfiguration, err)
	}

	return &Client{
		models:     client.Models,
		textModel:  textModel,
		imageModel: imageModel,
		logger:     logger,
	}, nil
}

// Generate requests JSON constrained to the prompt's schema and returns the raw
// text of the first candidate. An empty response is returned as "" without error.
func (c *Client) Generate(ctx context.Context, p campaign.TextPrompt) (string, error) {
	model := p.Model
	if model == "" {
		model = c.textModel
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(p.Temperature),
		ResponseMIMEType: "application/json",
		ResponseSchema:   toSchema(p.Schema),
	}
	if strings.TrimSpace(p.System) != "" {
		cfg.SystemInstruction = genai.NewContentFromText(p.System, genai.RoleUser)
	}

	c.logger.Debug("gemini generate", "model", model, "schema", p.Schema.Name, "temperature", p.Temperature)
	resp, err := c.models.GenerateContent(ctx, model, genai.Text(p.Task), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return resp.Text(), nil
}

// GenerateImage uses the Imagen predict endpoint for imagen models and image
// output modality on generateContent for Gemini image models.
func (c *Client) GenerateImage(ctx context.Context, req campaign.ImageRequest) ([]campaign.Image, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("prompt is empty")
	}
	count := req.Count
	if count < 1 {
		count = 1
	}

	c.logger.Debug("gemini image", "model", c.imageModel, "aspect_ratio", req.AspectRatio)
	if strings.HasPrefix(c.imageModel, "imagen") {
		return c.imagen(ctx, prompt, int32(count), req.AspectRatio)
	}
	return c.inlineImage(ctx, prompt, req.AspectRatio)
}

func (c *Client) imagen(ctx context.Context, prompt string, count int32, aspect string) ([]campaign.Image, error) {
	resp, err := c.models.GenerateImages(ctx, c.imageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: count,
		AspectRatio:    aspect,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini generate images: %w", err)
	}

	var out []campaign.Image
	for _, gi := range resp.GeneratedImages {
		if gi == nil || gi.Image == nil || len(gi.Image.ImageBytes) == 0 {
			continue
		}
		out = append(out, campaign.Image{Data: gi.Image.ImageBytes, MimeType: gi.Image.MIMEType})
	}
	return out, nil
}

func (c *Client) inlineImage(ctx context.Context, prompt, aspect string) ([]campaign.Image, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
	}
	if aspect != "" {
		cfg.ImageConfig = &genai.ImageConfig{AspectRatio: aspect}
	}

	resp, err := c.models.GenerateContent(ctx, c.imageModel, genai.Text(prompt), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate image content: %w", err)
	}

	var out []campaign.Image
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			out = append(out, campaign.Image{Data: part.InlineData.Data, MimeType: part.InlineData.MIMEType})
		}
	}
	return out, nil
}
