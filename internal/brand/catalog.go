package brand

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type NamedOption struct {
	Key  string
	Name string
}

var archetypeOrder = []Archetype{Space, Product, Service}

var presetsByArchetype = map[Archetype][]VisualPreset{
	Space:   {Listing, Ambiance},
	Product: {Studio, Lifestyle},
	Service: {Authority, Corporate, Craft},
}

var archetypeBlurbs = map[Archetype]string{
	Space:   "Real Estate, Hotels, Venues",
	Product: "Retail, E-Commerce, Objects",
	Service: "Consulting, Experts, Agencies",
}

func Archetypes() []Archetype {
	return append([]Archetype(nil), archetypeOrder...)
}

// Presets returns the ordered presets an archetype may use, or nil for an unknown one.
func Presets(a Archetype) []VisualPreset {
	presets, ok := presetsByArchetype[a]
	if !ok {
		return nil
	}
	return append([]VisualPreset(nil), presets...)
}

func DefaultPreset(a Archetype) VisualPreset {
	presets := presetsByArchetype[a]
	if len(presets) == 0 {
		return ""
	}
	return presets[0]
}

func Allows(a Archetype, p VisualPreset) bool {
	for _, v := range presetsByArchetype[a] {
		if v == p {
			return true
		}
	}
	return false
}

func Describe(a Archetype) string {
	return archetypeBlurbs[a]
}

// Label turns an enum value such as "CORPORATE" into "Corporate".
func Label[T ~string](v T) string {
	return cases.Title(language.English).String(strings.ToLower(string(v)))
}

func ArchetypeOptions() []NamedOption {
	out := make([]NamedOption, 0, len(archetypeOrder))
	for _, a := range archetypeOrder {
		out = append(out, NamedOption{Key: string(a), Name: Label(a)})
	}
	return out
}

func PresetOptions(a Archetype) []NamedOption {
	presets := presetsByArchetype[a]
	out := make([]NamedOption, 0, len(presets))
	for _, p := range presets {
		out = append(out, NamedOption{Key: string(p), Name: Label(p)})
	}
	return out
}
