package brand

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

type Archetype string

const (
	Space   Archetype = "SPACE"
	Product Archetype = "PRODUCT"
	Service Archetype = "SERVICE"
)

type VisualPreset string

const (
	Listing   VisualPreset = "LISTING"
	Ambiance  VisualPreset = "AMBIANCE"
	Studio    VisualPreset = "STUDIO"
	Lifestyle VisualPreset = "LIFESTYLE"
	Authority VisualPreset = "AUTHORITY"
	Craft     VisualPreset = "CRAFT"
	Corporate VisualPreset = "CORPORATE"
)

var (
	ErrUnknownArchetype = errors.New("unknown archetype")
	ErrUnknownPreset    = errors.New("unknown visual preset")
)

// Profile is the identity being marketed. Constraints lists forbidden topics and
// negative guidance; the free-text fields may be empty.
type Profile struct {
	Name        string    `json:"name" yaml:"name"`
	Archetype   Archetype `json:"archetype" yaml:"archetype"`
	Mission     string    `json:"mission" yaml:"mission"`
	Tone        string    `json:"tone" yaml:"tone"`
	Constraints string    `json:"constraints" yaml:"constraints"`
}

func DefaultProfile() Profile {
	return Profile{
		Name:      "New Brand",
		Archetype: Product,
	}
}

func (p Profile) Validate() error {
	if !p.Archetype.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownArchetype, p.Archetype)
	}
	return nil
}

func (a Archetype) Valid() bool {
	_, ok := presetsByArchetype[a]
	return ok
}

func (p VisualPreset) Valid() bool {
	for _, presets := range presetsByArchetype {
		for _, v := range presets {
			if v == p {
				return true
			}
		}
	}
	return false
}

func ParseArchetype(value string) (Archetype, error) {
	a := Archetype(strings.ToUpper(strings.TrimSpace(value)))
	if !a.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownArchetype, value)
	}
	return a, nil
}

func ParsePreset(value string) (VisualPreset, error) {
	p := VisualPreset(strings.ToUpper(strings.TrimSpace(value)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPreset, value)
	}
	return p, nil
}

// DecodeProfile reads a profile document. YAML is a superset of JSON, so both work.
// Missing fields take their DefaultProfile values.
func DecodeProfile(r io.Reader) (Profile, error) {
	var raw struct {
		Name        string `yaml:"name"`
		Archetype   string `yaml:"archetype"`
		Mission     string `yaml:"mission"`
		Tone        string `yaml:"tone"`
		Constraints string `yaml:"constraints"`
	}
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return Profile{}, fmt.Errorf("decode brand profile: %w", err)
	}

	p := DefaultProfile()
	if name := strings.TrimSpace(raw.Name); name != "" {
		p.Name = name
	}
	if strings.TrimSpace(raw.Archetype) != "" {
		a, err := ParseArchetype(raw.Archetype)
		if err != nil {
			return Profile{}, err
		}
		p.Archetype = a
	}
	p.Mission = strings.TrimSpace(raw.Mission)
	p.Tone = strings.TrimSpace(raw.Tone)
	p.Constraints = strings.TrimSpace(raw.Constraints)
	return p, nil
}
