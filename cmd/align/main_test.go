package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"align-bot/internal/campaign"
	"align-bot/internal/pipeline"
	"align-bot/internal/visual"
)

type recordingText struct {
	mu     sync.Mutex
	topics []string
}

func (r *recordingText) Generate(_ context.Context, p campaign.TextPrompt) (string, error) {
	if p.Schema.Name == campaign.StrategySchema.Name {
		r.mu.Lock()
		r.topics = append(r.topics, p.Task)
		r.mu.Unlock()
		if strings.Contains(p.Task, "Broken") {
			return "", errors.New("upstream 503")
		}
		return `{"marketAnalysis":"m","strategicAngle":"Craft over specs","alignmentCheck":"a","toneInstruction":"t"}`, nil
	}
	return `{"headline":"Summer, pre-ordered","body":"Reserve yours.","imagePrompt":"speaker on marble","rationale":"No discounts"}`, nil
}

type failingImage struct{}

func (failingImage) GenerateImage(context.Context, campaign.ImageRequest) ([]campaign.Image, error) {
	return nil, errors.New("quota")
}

func fakeLoader(text *recordingText) stageLoader {
	return func(context.Context, string) (pipeline.Options, error) {
		return pipeline.Options{
			Strategist:  campaign.NewStrategist(campaign.StrategistOptions{Generator: text}),
			Executor:    campaign.NewExecutor(campaign.ExecutorOptions{Generator: text}),
			Synthesizer: campaign.NewSynthesizer(campaign.SynthesizerOptions{Generator: failingImage{}}),
		}, nil
	}
}

func execute(t *testing.T, loader stageLoader, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(loader)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func noStages(context.Context, string) (pipeline.Options, error) {
	return pipeline.Options{}, campaign.ErrConfiguration
}

func TestPresetsCommand(t *testing.T) {
	out, err := execute(t, noStages, "", "presets")
	require.NoError(t, err)
	assert.Contains(t, out, "SPACE (Real Estate, Hotels, Venues)")
	assert.Contains(t, out, "  LISTING [default]")
	assert.Contains(t, out, "  CRAFT\n")

	out, err = execute(t, noStages, "", "presets", "--json")
	require.NoError(t, err)
	var rows []presetRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Len(t, rows, 7)
}

func TestRuleCommand(t *testing.T) {
	out, err := execute(t, noStages, "", "rule", "--archetype", "service", "--preset", "craft")
	require.NoError(t, err)
	assert.Contains(t, out, "National Geographic Workshop")

	out, err = execute(t, noStages, "", "rule", "--archetype", "SPACE", "--preset", "STUDIO")
	require.NoError(t, err)
	assert.Equal(t, visual.Fallback+"\n", out)

	_, err = execute(t, noStages, "", "rule", "--archetype", "FOOD", "--preset", "STUDIO")
	require.Error(t, err)
}

func TestRunAutoApprove(t *testing.T) {
	text := &recordingText{}
	out, err := execute(t, fakeLoader(text), "",
		"run", "--topic", "Summer Launch", "--context", "Drive pre-orders", "--yes", "--json")
	require.NoError(t, err)

	var snap struct {
		State   pipeline.State   `json:"state"`
		Content campaign.Content `json:"content"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, pipeline.StateDone, snap.State)
	assert.Equal(t, "Summer, pre-ordered", snap.Content.Headline)
	assert.True(t, snap.Content.ImagePlaceholder)
	assert.True(t, strings.HasPrefix(snap.Content.ImageURL, campaign.DefaultPlaceholderBase+"/seed/"))
}

func TestRunRefineThenApprove(t *testing.T) {
	text := &recordingText{}
	stdin := "r\nAutumn Launch\n\n\na\n"
	out, err := execute(t, fakeLoader(text), stdin,
		"run", "--topic", "Summer Launch", "--context", "Drive pre-orders")
	require.NoError(t, err)

	require.Len(t, text.topics, 2)
	assert.Contains(t, text.topics[0], "Summer Launch")
	assert.Contains(t, text.topics[1], "Autumn Launch")
	assert.Contains(t, text.topics[1], "Drive pre-orders")

	assert.Contains(t, out, "STRATEGIC ANGLE\nCraft over specs")
	assert.Contains(t, out, "Topic [Summer Launch]: ")
	assert.Contains(t, out, "Image (placeholder): "+campaign.DefaultPlaceholderBase)
}

func TestRunQuitAndEOF(t *testing.T) {
	_, err := execute(t, fakeLoader(&recordingText{}), "q\n",
		"run", "--topic", "Summer Launch", "--context", "Drive pre-orders")
	require.ErrorIs(t, err, errAborted)

	_, err = execute(t, fakeLoader(&recordingText{}), "",
		"run", "--topic", "Summer Launch", "--context", "Drive pre-orders")
	require.ErrorIs(t, err, errAborted)
}

func TestRunStrategyFailure(t *testing.T) {
	_, err := execute(t, fakeLoader(&recordingText{}), "",
		"run", "--topic", "Broken", "--context", "x")
	require.ErrorIs(t, err, campaign.ErrGenerationFailed)
}

func TestRunRejectsBadInput(t *testing.T) {
	_, err := execute(t, noStages, "", "run", "--topic", " ", "--context", "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, campaign.ErrConfiguration, "validation happens before stages are built")

	_, err = execute(t, noStages, "", "run", "--topic", "t", "--context", "x")
	require.ErrorIs(t, err, campaign.ErrConfiguration)
}

const batchDoc = `
brand:
  name: Acme Audio
  archetype: product
  constraints: No discounts
campaigns:
  - topic: Summer Launch
    context: Drive pre-orders
    preset: lifestyle
  - topic: Broken
    context: This one fails
  - topic: Winter Sale
    context: Clear stock
    audience: Students
`

func TestReadBatch(t *testing.T) {
	reqs, err := readBatch(strings.NewReader(batchDoc))
	require.NoError(t, err)
	require.Len(t, reqs, 3)
	assert.Equal(t, "Acme Audio", reqs[0].Brand.Name)
	assert.Equal(t, "LIFESTYLE", string(reqs[0].Preset))
	assert.Equal(t, "STUDIO", string(reqs[1].Preset))
	assert.Equal(t, "Students", reqs[2].TargetAudience)

	_, err = readBatch(strings.NewReader("campaigns: []"))
	require.Error(t, err)

	_, err = readBatch(strings.NewReader("campaigns:\n  - topic: t\n"))
	require.ErrorContains(t, err, "campaign 1")
}

func TestBatchCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(batchDoc), 0o600))

	out, err := execute(t, fakeLoader(&recordingText{}), "", "batch", path, "--concurrency", "3")
	require.ErrorContains(t, err, "1 of 3 campaigns failed")
	assert.Contains(t, out, "#1 Summer Launch\n  angle: Craft over specs")
	assert.Contains(t, out, "#2 Broken\n  failed: ")
	assert.Contains(t, out, "#3 Winter Sale")
}
