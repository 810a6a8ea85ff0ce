package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"align-bot/internal/brand"
	"align-bot/internal/campaign"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const strategyJSON = `{"marketAnalysis":"Premium audio is crowded","strategicAngle":"Craft over specs","alignmentCheck":"Aligned with mission","toneInstruction":"Confident, spare"}`

// scriptedText answers the strategist with strategyReply and the executor with
// content whose image prompt quotes the camera rule from the system brief.
type scriptedText struct {
	strategyReply string
	contentErr    error
}

func (s *scriptedText) Generate(_ context.Context, p campaign.TextPrompt) (string, error) {
	switch p.Schema.Name {
	case campaign.StrategySchema.Name:
		return s.strategyReply, nil
	case campaign.ContentSchema.Name:
		if s.contentErr != nil {
			return "", s.contentErr
		}
		rule := ""
		if _, after, ok := strings.Cut(p.System, "camera rules:\n"); ok {
			rule, _, _ = strings.Cut(after, "\n")
		}
		out, _ := json.Marshal(map[string]string{
			"headline":    "Summer, pre-ordered",
			"body":        "Reserve yours today.",
			"imagePrompt": "Hero shot of the speaker. " + rule,
			"rationale":   "Stays within brand constraints",
		})
		return string(out), nil
	}
	return "", errors.New("unexpected schema")
}

type scriptedImage struct {
	err error
}

func (s *scriptedImage) GenerateImage(context.Context, campaign.ImageRequest) ([]campaign.Image, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []campaign.Image{{Data: []byte{0x89, 0x50}, MimeType: "image/png"}}, nil
}

func stages(text campaign.TextGenerator, img campaign.ImageGenerator) Options {
	return Options{
		Strategist:  campaign.NewStrategist(campaign.StrategistOptions{Generator: text}),
		Executor:    campaign.NewExecutor(campaign.ExecutorOptions{Generator: text}),
		Synthesizer: campaign.NewSynthesizer(campaign.SynthesizerOptions{Generator: img}),
	}
}

func summerLaunch() campaign.Request {
	return campaign.Request{
		Topic:   "Summer Launch",
		Context: "Drive pre-orders",
		Brand:   brand.Profile{Name: "Tone Audio", Archetype: brand.Product, Constraints: "No discounts"},
		Preset:  brand.Studio,
	}
}

func waitIdle(t *testing.T, c *Controller) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Wait(ctx))
	return c.Snapshot()
}

func TestTransitionTable(t *testing.T) {
	legal := map[edge]State{
		{StateInput, EventStart}:              StateThinking,
		{StateThinking, EventStrategyReady}:   StateReview,
		{StateThinking, EventStrategyFailed}:  StateInput,
		{StateReview, EventRefine}:            StateInput,
		{StateReview, EventApprove}:           StateGenerating,
		{StateGenerating, EventContentReady}:  StateDone,
		{StateGenerating, EventContentFailed}: StateReview,
		{StateDone, EventNewCampaign}:         StateInput,
	}
	states := []State{StateInput, StateThinking, StateReview, StateGenerating, StateDone}
	events := []Event{EventStart, EventStrategyReady, EventStrategyFailed, EventRefine,
		EventApprove, EventContentReady, EventContentFailed, EventNewCampaign}

	for _, s := range states {
		for _, ev := range events {
			next, ok := Transition(s, ev)
			want, legalEdge := legal[edge{s, ev}]
			assert.Equal(t, legalEdge, ok, "%s --%s-->", s, ev)
			if legalEdge {
				assert.Equal(t, want, next)
			}
		}
	}
}

func TestScenarioFullRun(t *testing.T) {
	c := New(context.Background(), stages(&scriptedText{strategyReply: strategyJSON}, &scriptedImage{}))
	defer c.Close()

	require.True(t, c.Start(summerLaunch()))
	snap := waitIdle(t, c)
	require.Equal(t, StateReview, snap.State)
	require.NotNil(t, snap.Strategy)
	assert.Equal(t, "Craft over specs", snap.Strategy.StrategicAngle)
	assert.Empty(t, snap.Error)

	require.True(t, c.Approve())
	snap = waitIdle(t, c)
	require.Equal(t, StateDone, snap.State)
	require.NotNil(t, snap.Content)
	assert.Equal(t, "data:image/png;base64,iVA=", snap.Content.ImageURL)
	assert.False(t, snap.Content.ImagePlaceholder)
	assert.Contains(t, snap.Content.ImagePrompt, "Macro lens 100mm")
	assert.Contains(t, snap.Content.ImagePrompt, "hard studio lighting")
}

func TestScenarioImageFallback(t *testing.T) {
	opts := stages(&scriptedText{strategyReply: strategyJSON}, &scriptedImage{err: errors.New("model not allowed")})
	c := New(context.Background(), opts)
	defer c.Close()

	require.True(t, c.Start(summerLaunch()))
	waitIdle(t, c)
	require.True(t, c.Approve())
	snap := waitIdle(t, c)

	require.Equal(t, StateDone, snap.State)
	require.NotNil(t, snap.Content)
	assert.True(t, snap.Content.ImagePlaceholder)
	want := campaign.NewSynthesizer(campaign.SynthesizerOptions{}).Placeholder(snap.Content.ImagePrompt)
	assert.Equal(t, want, snap.Content.ImageURL)
}

func TestScenarioMalformedStrategy(t *testing.T) {
	c := New(context.Background(), stages(&scriptedText{strategyReply: "Here is my analysis: it's great"}, &scriptedImage{}))
	defer c.Close()

	require.True(t, c.Start(summerLaunch()))
	snap := waitIdle(t, c)

	assert.Equal(t, StateInput, snap.State)
	assert.NotEmpty(t, snap.Error)
	assert.ErrorIs(t, snap.Err, campaign.ErrMalformedOutput)
	assert.Nil(t, snap.Strategy)
	assert.Equal(t, "Summer Launch", snap.Request.Topic)
}

func TestScenarioRefineClearsStrategy(t *testing.T) {
	c := New(context.Background(), stages(&scriptedText{strategyReply: strategyJSON}, &scriptedImage{}))
	defer c.Close()

	require.True(t, c.Start(summerLaunch()))
	waitIdle(t, c)

	require.True(t, c.Refine())
	snap := c.Snapshot()
	assert.Equal(t, StateInput, snap.State)
	assert.Nil(t, snap.Strategy)

	assert.False(t, c.Approve())
	assert.Equal(t, StateInput, c.Snapshot().State)
}

func TestScenarioExecutorFailureKeepsStrategy(t *testing.T) {
	text := &scriptedText{strategyReply: strategyJSON, contentErr: errors.New("503")}
	c := New(context.Background(), stages(text, &scriptedImage{}))
	defer c.Close()

	require.True(t, c.Start(summerLaunch()))
	before := waitIdle(t, c).Strategy
	require.NotNil(t, before)

	require.True(t, c.Approve())
	snap := waitIdle(t, c)
	assert.Equal(t, StateReview, snap.State)
	assert.Same(t, before, snap.Strategy)
	assert.NotEmpty(t, snap.Error)
	assert.ErrorIs(t, snap.Err, campaign.ErrGenerationFailed)
	stage, _ := campaign.StageOf(snap.Err)
	assert.Equal(t, campaign.StageExecution, stage)
	assert.Nil(t, snap.Content)

	// approval can be retried without re-running the strategist
	text.contentErr = nil
	require.True(t, c.Approve())
	snap = waitIdle(t, c)
	assert.Equal(t, StateDone, snap.State)
	assert.Empty(t, snap.Error)
}

func TestNewCampaignClearsEverything(t *testing.T) {
	c := New(context.Background(), stages(&scriptedText{strategyReply: strategyJSON}, &scriptedImage{}))
	defer c.Close()

	assert.False(t, c.NewCampaign())
	require.True(t, c.Start(summerLaunch()))
	waitIdle(t, c)
	assert.False(t, c.NewCampaign())
	require.True(t, c.Approve())
	waitIdle(t, c)

	require.True(t, c.NewCampaign())
	snap := c.Snapshot()
	assert.Equal(t, StateInput, snap.State)
	assert.Nil(t, snap.Strategy)
	assert.Nil(t, snap.Content)
}

func TestStartRequiresTopicAndContext(t *testing.T) {
	c := New(context.Background(), stages(&scriptedText{strategyReply: strategyJSON}, &scriptedImage{}))
	defer c.Close()

	req := summerLaunch()
	req.Topic = "   "
	assert.False(t, c.Start(req))

	req = summerLaunch()
	req.Context = ""
	assert.False(t, c.Start(req))
	assert.Equal(t, StateInput, c.Snapshot().State)
}

type blockingStrategy struct {
	entered chan struct{}
	release chan struct{}
}

func newBlockingStrategy() *blockingStrategy {
	return &blockingStrategy{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (b *blockingStrategy) Run(ctx context.Context, _ campaign.Request) (campaign.Strategy, error) {
	b.entered <- struct{}{}
	select {
	case <-b.release:
		return campaign.Strategy{MarketAnalysis: "a", StrategicAngle: "b", AlignmentCheck: "c", ToneInstruction: "d"}, nil
	case <-ctx.Done():
		return campaign.Strategy{}, ctx.Err()
	}
}

func TestActionsIgnoredWhileBusy(t *testing.T) {
	strat := newBlockingStrategy()
	opts := stages(&scriptedText{}, &scriptedImage{})
	opts.Strategist = strat
	c := New(context.Background(), opts)
	defer c.Close()

	require.True(t, c.Start(summerLaunch()))
	<-strat.entered
	assert.Equal(t, StateThinking, c.Snapshot().State)

	assert.False(t, c.Start(summerLaunch()))
	assert.False(t, c.Approve())
	assert.False(t, c.Refine())
	assert.False(t, c.NewCampaign())

	close(strat.release)
	assert.Equal(t, StateReview, waitIdle(t, c).State)
}

func TestStageTimeoutIsGenerationFailure(t *testing.T) {
	strat := newBlockingStrategy()
	opts := stages(&scriptedText{}, &scriptedImage{})
	opts.Strategist = strat
	opts.StageTimeout = 20 * time.Millisecond
	c := New(context.Background(), opts)
	defer c.Close()

	require.True(t, c.Start(summerLaunch()))
	snap := waitIdle(t, c)

	assert.Equal(t, StateInput, snap.State)
	assert.ErrorIs(t, snap.Err, campaign.ErrGenerationFailed)
	assert.ErrorIs(t, snap.Err, context.DeadlineExceeded)
	stage, _ := campaign.StageOf(snap.Err)
	assert.Equal(t, campaign.StageStrategy, stage)
}

type lateStrategy struct{}

func (lateStrategy) Run(ctx context.Context, _ campaign.Request) (campaign.Strategy, error) {
	<-ctx.Done()
	return campaign.Strategy{MarketAnalysis: "a", StrategicAngle: "b", AlignmentCheck: "c", ToneInstruction: "d"}, nil
}

func TestDeadlineWinsOverLateSuccess(t *testing.T) {
	opts := stages(&scriptedText{}, &scriptedImage{})
	opts.Strategist = lateStrategy{}
	opts.StageTimeout = 10 * time.Millisecond
	c := New(context.Background(), opts)
	defer c.Close()

	require.True(t, c.Start(summerLaunch()))
	snap := waitIdle(t, c)
	assert.Equal(t, StateInput, snap.State)
	assert.ErrorIs(t, snap.Err, context.DeadlineExceeded)
}

func TestCloseCancelsInFlightCall(t *testing.T) {
	strat := newBlockingStrategy()
	var (
		mu      sync.Mutex
		changes []State
	)
	opts := stages(&scriptedText{}, &scriptedImage{})
	opts.Strategist = strat
	opts.OnChange = func(s Snapshot) {
		mu.Lock()
		changes = append(changes, s.State)
		mu.Unlock()
	}
	c := New(context.Background(), opts)

	require.True(t, c.Start(summerLaunch()))
	<-strat.entered
	c.Close()

	assert.Equal(t, StateThinking, c.Snapshot().State)
	assert.False(t, c.Start(summerLaunch()))
	assert.False(t, c.Refine())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateThinking}, changes)

	// closing twice is harmless
	c.Close()
}

func TestParentContextCancelFailsStage(t *testing.T) {
	strat := newBlockingStrategy()
	opts := stages(&scriptedText{}, &scriptedImage{})
	opts.Strategist = strat
	ctx, cancel := context.WithCancel(context.Background())
	c := New(ctx, opts)
	defer c.Close()

	require.True(t, c.Start(summerLaunch()))
	<-strat.entered
	cancel()

	snap := waitIdle(t, c)
	assert.Equal(t, StateInput, snap.State)
	assert.ErrorIs(t, snap.Err, context.Canceled)
	assert.ErrorIs(t, snap.Err, campaign.ErrGenerationFailed)
}

func TestOnChangeSequence(t *testing.T) {
	var (
		mu     sync.Mutex
		states []State
	)
	opts := stages(&scriptedText{strategyReply: strategyJSON}, &scriptedImage{})
	opts.OnChange = func(s Snapshot) {
		mu.Lock()
		states = append(states, s.State)
		mu.Unlock()
	}
	c := New(context.Background(), opts)
	defer c.Close()

	require.True(t, c.Start(summerLaunch()))
	waitIdle(t, c)
	require.True(t, c.Approve())
	waitIdle(t, c)
	require.True(t, c.NewCampaign())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateThinking, StateReview, StateGenerating, StateDone, StateInput}, states)
}

func TestOnChangeOrderWithSlowObserver(t *testing.T) {
	var (
		mu     sync.Mutex
		states []State
	)
	opts := stages(&scriptedText{strategyReply: strategyJSON}, &scriptedImage{})
	opts.OnChange = func(s Snapshot) {
		if s.State == StateReview {
			time.Sleep(100 * time.Millisecond)
		}
		mu.Lock()
		states = append(states, s.State)
		mu.Unlock()
	}
	c := New(context.Background(), opts)
	defer c.Close()

	require.True(t, c.Start(summerLaunch()))
	require.Eventually(t, func() bool {
		return c.Snapshot().State == StateReview
	}, 5*time.Second, time.Millisecond)
	require.True(t, c.Approve())
	waitIdle(t, c)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateThinking, StateReview, StateGenerating, StateDone}, states)
}

func TestMissingStagesRefuseActions(t *testing.T) {
	empty := New(context.Background(), Options{})
	defer empty.Close()
	assert.False(t, empty.Start(summerLaunch()))
	assert.Equal(t, StateInput, empty.Snapshot().State)

	opts := stages(&scriptedText{strategyReply: strategyJSON}, &scriptedImage{})
	opts.Executor = nil
	c := New(context.Background(), opts)
	defer c.Close()

	require.True(t, c.Start(summerLaunch()))
	snap := waitIdle(t, c)
	require.Equal(t, StateReview, snap.State)
	assert.False(t, c.Approve())
	assert.Equal(t, StateReview, c.Snapshot().State)
}
