// Package visual maps a brand archetype and visual preset to the photographic
// direction handed to the copywriter stage. The table is static.
package visual

import "align-bot/internal/brand"

// Fallback is returned for any pair the table does not cover.
const Fallback = "Photography style: Professional, high resolution, consistent lighting."

type ruleKey struct {
	Archetype brand.Archetype
	Preset    brand.VisualPreset
}

var rules = map[ruleKey]string{
	{brand.Space, brand.Listing}: "Photography style: Architectural Digest. " +
		"Technical: Wide angle 16mm lens, f/8, natural light, vertical lines corrected. " +
		"Mood: Airy, spacious, pristine.",
	{brand.Space, brand.Ambiance}: "Photography style: Boutique Hotel Editorial. " +
		"Technical: 50mm lens, f/1.8, bokeh effect, warm evening light, focus on textures (velvet, wood).",

	{brand.Product, brand.Studio}: "Photography style: High-end Commercial. " +
		"Technical: Macro lens 100mm, hard studio lighting, infinite background, sharp focus, 8k resolution.",
	{brand.Product, brand.Lifestyle}: "Photography style: Social Media Influencer. " +
		"Technical: 35mm lens, natural chaotic light, shallow depth of field, product placed in a living environment.",

	{brand.Service, brand.Authority}: "Photography style: Forbes Portrait. " +
		"Technical: 85mm portrait lens, rim lighting, confident pose, blurred office background.",
	{brand.Service, brand.Craft}: "Photography style: National Geographic Workshop. " +
		"Technical: Close-up on hands, motion blur on tools, high contrast, gritty texture.",
	{brand.Service, brand.Corporate}: "Photography style: Modern Tech Company. " +
		"Technical: Wide shot, symmetry, glass and steel environment, diverse team interaction.",
}

// Resolve returns the technical instruction for the pair, or Fallback.
func Resolve(a brand.Archetype, p brand.VisualPreset) string {
	if rule, ok := Lookup(a, p); ok {
		return rule
	}
	return Fallback
}

// Lookup reports whether the pair has a configured rule.
func Lookup(a brand.Archetype, p brand.VisualPreset) (string, bool) {
	rule, ok := rules[ruleKey{Archetype: a, Preset: p}]
	return rule, ok
}
