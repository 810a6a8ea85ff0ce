package campaign

import "context"

// TextGenerator produces a raw text payload constrained to Schema. Implementations
// return an error when the backing service is unreachable or refuses the call; they
// do not interpret the payload.
type TextGenerator interface {
	Generate(ctx context.Context, prompt TextPrompt) (string, error)
}

// ImageGenerator renders images for a prompt. An empty result with a nil error is
// treated by callers as a failure.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req ImageRequest) ([]Image, error)
}

type TextPrompt struct {
	// Model overrides the generator's default model when set.
	Model       string
	System      string
	Task        string
	Schema      Schema
	Temperature float32
}

// Schema declares an object whose fields are all required strings.
type Schema struct {
	Name   string
	Fields []Field
}

type Field struct {
	Name        string
	Description string
}

func (s Schema) Required() []string {
	out := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		out = append(out, f.Name)
	}
	return out
}

type ImageRequest struct {
	Prompt      string
	Count       int
	AspectRatio string
}

type Image struct {
	Data     []byte
	MimeType string
	// URL is set instead of Data by generators that host their output.
	URL string
}
