package campaign

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const (
	DefaultPlaceholderBase = "https://picsum.photos"
	placeholderSize        = 800
	seedLength             = 12
)

var errNoImage = errors.New("no image generated")

type SynthesizerOptions struct {
	Generator       ImageGenerator
	PlaceholderBase string
	Logger          *slog.Logger
}

// Synthesizer turns an image prompt into a displayable reference. It always
// returns something usable.
type Synthesizer struct {
	gen             ImageGenerator
	placeholderBase string
	logger          *slog.Logger
}

// NewSynthesizer builds the image stage. A nil Generator is allowed and makes every
// call return a placeholder.
func NewSynthesizer(opts SynthesizerOptions) *Synthesizer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	base := strings.TrimRight(strings.TrimSpace(opts.PlaceholderBase), "/")
	if base == "" {
		base = DefaultPlaceholderBase
	}
	return &Synthesizer{
		gen:             opts.Generator,
		placeholderBase: base,
		logger:          logger,
	}
}

// Synthesize asks for one square image and falls back to Placeholder on any error
// or empty result.
func (s *Synthesizer) Synthesize(ctx context.Context, imagePrompt string) Visual {
	url, err := s.render(ctx, imagePrompt)
	if err != nil {
		s.logger.Warn("image synthesis degraded", "stage", StageVisual, "err", err)
		return Visual{URL: s.Placeholder(imagePrompt), Placeholder: true}
	}
	return Visual{URL: url}
}

func (s *Synthesizer) render(ctx context.Context, imagePrompt string) (string, error) {
	if s.gen == nil {
		return "", errNoImage
	}
	images, err := s.gen.GenerateImage(ctx, ImageRequest{Prompt: imagePrompt, Count: 1, AspectRatio: "1:1"})
	if err != nil {
		return "", err
	}
	for _, img := range images {
		if img.URL != "" {
			return img.URL, nil
		}
		if len(img.Data) > 0 {
			return DataURL(img.MimeType, img.Data), nil
		}
	}
	return "", errNoImage
}

// Placeholder returns a stock image URL seeded from the prompt, so the same prompt
// always maps to the same picture.
func (s *Synthesizer) Placeholder(imagePrompt string) string {
	sum := sha256.Sum256([]byte(imagePrompt))
	seed := hex.EncodeToString(sum[:])[:seedLength]
	return fmt.Sprintf("%s/seed/%s/%d/%d", s.placeholderBase, seed, placeholderSize, placeholderSize)
}

func DataURL(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = "image/png"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
