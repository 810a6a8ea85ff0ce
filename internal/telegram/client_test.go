package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDataURL(t *testing.T) {
	mimeType, data, err := parseDataURL("data:image/jpeg;base64,AAAA")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mimeType)
	assert.Equal(t, "AAAA", data)

	mimeType, data, err = parseDataURL("AAAA")
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, "AAAA", data)

	_, _, err = parseDataURL("data:image/png;base64")
	assert.Error(t, err)
	_, _, err = parseDataURL(" ")
	assert.Error(t, err)
}

func TestSplitByBytes(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitByBytes("short", 10))

	text := strings.Repeat("é", 5) // two bytes each
	parts := splitByBytes(text, 4)
	assert.Equal(t, []string{"éé", "éé", "é"}, parts)
}

func TestTruncateCaption(t *testing.T) {
	long := strings.Repeat("a", maxCaptionBytes+10)
	assert.Len(t, TruncateCaption(long), maxCaptionBytes)
	assert.Equal(t, "ok", TruncateCaption("ok"))
	assert.Equal(t, "é", truncateByBytes("éé", 3))
}
