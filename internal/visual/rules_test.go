package visual

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"align-bot/internal/brand"
)

func TestResolveMappedPairs(t *testing.T) {
	cases := map[ruleKey]string{
		{brand.Space, brand.Listing}:     "Wide angle 16mm lens, f/8",
		{brand.Space, brand.Ambiance}:    "50mm lens, f/1.8",
		{brand.Product, brand.Studio}:    "Macro lens 100mm, hard studio lighting",
		{brand.Product, brand.Lifestyle}: "35mm lens, natural chaotic light",
		{brand.Service, brand.Authority}: "85mm portrait lens, rim lighting",
		{brand.Service, brand.Craft}:     "Close-up on hands",
		{brand.Service, brand.Corporate}: "glass and steel environment",
	}

	for key, fragment := range cases {
		got := Resolve(key.Archetype, key.Preset)
		assert.Equal(t, rules[key], got)
		assert.Contains(t, got, fragment)
		assert.NotEqual(t, Fallback, got)
	}
}

func TestEveryAllowedPresetIsMapped(t *testing.T) {
	for _, a := range brand.Archetypes() {
		for _, p := range brand.Presets(a) {
			_, ok := Lookup(a, p)
			assert.True(t, ok, "%s/%s has no rule", a, p)
		}
	}
}

func TestResolveFallback(t *testing.T) {
	misses := []ruleKey{
		{brand.Product, brand.Listing},
		{brand.Space, brand.Studio},
		{brand.Service, brand.Lifestyle},
		{brand.Archetype("BOAT"), brand.Studio},
		{brand.Product, brand.VisualPreset("")},
		{"", ""},
	}

	for _, key := range misses {
		got := Resolve(key.Archetype, key.Preset)
		assert.Equal(t, Fallback, got)
		_, ok := Lookup(key.Archetype, key.Preset)
		assert.False(t, ok)
	}
}
