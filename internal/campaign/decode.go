package campaign

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = validate.RegisterValidation("nonempty", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

// codeFence matches a ```json ... ``` block some models wrap around JSON even when
// asked for a bare object.
var codeFence = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// decodePayload parses a stage's raw output into T and enforces its validate tags.
// An empty payload is reported as errEmptyPayload; anything else that does not
// produce a valid T is a decode or validation error.
func decodePayload[T any](raw string) (T, error) {
	var out T
	text := strings.TrimSpace(raw)
	if text == "" {
		return out, errEmptyPayload
	}

	if err := json.Unmarshal([]byte(text), &out); err != nil {
		m := codeFence.FindStringSubmatch(text)
		if len(m) < 2 {
			return out, fmt.Errorf("decode json: %w", err)
		}
		out = *new(T)
		if err := json.Unmarshal([]byte(strings.TrimSpace(m[1])), &out); err != nil {
			return out, fmt.Errorf("decode fenced json: %w", err)
		}
	}

	if err := validateStruct(out); err != nil {
		return out, err
	}
	return out, nil
}

func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, formatFieldError(fe))
	}
	return errors.New(strings.Join(parts, "; "))
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "nonempty":
		return fmt.Sprintf("%s cannot be empty or whitespace", fe.Field())
	default:
		return fmt.Sprintf("%s failed validation: %s", fe.Field(), fe.Tag())
	}
}

// decodeStage maps decodePayload failures onto the stage error taxonomy.
func decodeStage[T any](stage Stage, raw string) (T, error) {
	out, err := decodePayload[T](raw)
	switch {
	case err == nil:
		return out, nil
	case errors.Is(err, errEmptyPayload):
		return out, GenerationFailure(stage, err)
	default:
		return out, MalformedOutput(stage, err)
	}
}
