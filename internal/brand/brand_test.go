package brand

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetsOrderPerArchetype(t *testing.T) {
	assert.Equal(t, []VisualPreset{Listing, Ambiance}, Presets(Space))
	assert.Equal(t, []VisualPreset{Studio, Lifestyle}, Presets(Product))
	assert.Equal(t, []VisualPreset{Authority, Corporate, Craft}, Presets(Service))
	assert.Nil(t, Presets(Archetype("BOAT")))
}

func TestPresetsReturnsCopy(t *testing.T) {
	presets := Presets(Product)
	presets[0] = Craft
	assert.Equal(t, Studio, Presets(Product)[0])
}

func TestDefaultPresetAndAllows(t *testing.T) {
	assert.Equal(t, Listing, DefaultPreset(Space))
	assert.Equal(t, Studio, DefaultPreset(Product))
	assert.Equal(t, Authority, DefaultPreset(Service))
	assert.Equal(t, VisualPreset(""), DefaultPreset(Archetype("")))

	assert.True(t, Allows(Service, Craft))
	assert.False(t, Allows(Product, Listing))
	assert.False(t, Allows(Archetype("X"), Studio))
}

func TestParse(t *testing.T) {
	a, err := ParseArchetype("  service ")
	require.NoError(t, err)
	assert.Equal(t, Service, a)

	_, err = ParseArchetype("boat")
	assert.ErrorIs(t, err, ErrUnknownArchetype)

	p, err := ParsePreset("Lifestyle")
	require.NoError(t, err)
	assert.Equal(t, Lifestyle, p)

	_, err = ParsePreset("")
	assert.ErrorIs(t, err, ErrUnknownPreset)
}

func TestProfileValidate(t *testing.T) {
	assert.NoError(t, DefaultProfile().Validate())
	assert.ErrorIs(t, Profile{Name: "x"}.Validate(), ErrUnknownArchetype)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Corporate", Label(Corporate))
	assert.Equal(t, "Space", Label(Space))

	opts := PresetOptions(Service)
	require.Len(t, opts, 3)
	assert.Equal(t, NamedOption{Key: "AUTHORITY", Name: "Authority"}, opts[0])
	assert.Len(t, ArchetypeOptions(), 3)
}

func TestDecodeProfile(t *testing.T) {
	doc := `
name: Lumen Lofts
archetype: space
mission: Calm, light-filled city living.
tone: Warm, precise
constraints: No pricing claims. No competitor names.
`
	p, err := DecodeProfile(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, Profile{
		Name:        "Lumen Lofts",
		Archetype:   Space,
		Mission:     "Calm, light-filled city living.",
		Tone:        "Warm, precise",
		Constraints: "No pricing claims. No competitor names.",
	}, p)
}

func TestDecodeProfileJSONAndDefaults(t *testing.T) {
	p, err := DecodeProfile(strings.NewReader(`{"tone": "Direct"}`))
	require.NoError(t, err)
	assert.Equal(t, "New Brand", p.Name)
	assert.Equal(t, Product, p.Archetype)
	assert.Equal(t, "Direct", p.Tone)

	p, err = DecodeProfile(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultProfile(), p)

	_, err = DecodeProfile(strings.NewReader("archetype: castle"))
	assert.ErrorIs(t, err, ErrUnknownArchetype)
}
