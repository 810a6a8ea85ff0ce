// Package pipeline sequences one campaign through strategy, human review and
// execution. A Controller is the single writer of its state; stage calls run on
// their own goroutine and never hold the lock.
package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"align-bot/internal/campaign"
)

const DefaultStageTimeout = 90 * time.Second

type StrategyStage interface {
	Run(ctx context.Context, req campaign.Request) (campaign.Strategy, error)
}

type ExecutionStage interface {
	Run(ctx context.Context, req campaign.Request, strategy campaign.Strategy) (campaign.Content, error)
}

type VisualStage interface {
	Synthesize(ctx context.Context, imagePrompt string) campaign.Visual
}

// Options configures a Controller. Start is refused without a Strategist and
// Approve without an Executor and a Synthesizer.
type Options struct {
	Strategist  StrategyStage
	Executor    ExecutionStage
	Synthesizer VisualStage
	// StageTimeout bounds each stage call. Zero means DefaultStageTimeout.
	StageTimeout time.Duration
	Logger       *slog.Logger
	// OnChange is called after every accepted action and every stage result, in
	// the order the changes happened. Calls never overlap. It must not call any
	// Controller method other than Snapshot.
	OnChange func(Snapshot)
}

// Snapshot is a consistent copy of a controller's state. Strategy and Content
// are shared with the controller and must be treated as read-only.
type Snapshot struct {
	State     State              `json:"state"`
	Error     string             `json:"error,omitempty"`
	Request   campaign.Request   `json:"request"`
	Strategy  *campaign.Strategy `json:"strategy,omitempty"`
	Content   *campaign.Content  `json:"content,omitempty"`
	UpdatedAt time.Time          `json:"updatedAt"`

	Err error `json:"-"`
}

type Controller struct {
	strategist  StrategyStage
	executor    ExecutionStage
	synthesizer VisualStage
	timeout     time.Duration
	logger      *slog.Logger
	onChange    func(Snapshot)

	ctx    context.Context
	cancel context.CancelFunc

	// notifyMu is held from a state change until its OnChange returns, so
	// deliveries are serialized. Lock order: notifyMu, then mu.
	notifyMu sync.Mutex

	mu       sync.Mutex
	state    State
	err      error
	req      campaign.Request
	strategy *campaign.Strategy
	content  *campaign.Content
	updated  time.Time
	inflight chan struct{}
	closed   bool
}

// New returns a controller in INPUT. Stage calls inherit ctx, so cancelling it
// has the same effect on in-flight work as Close.
func New(ctx context.Context, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	timeout := opts.StageTimeout
	if timeout <= 0 {
		timeout = DefaultStageTimeout
	}

	runCtx, cancel := context.WithCancel(ctx)
	return &Controller{
		strategist:  opts.Strategist,
		executor:    opts.Executor,
		synthesizer: opts.Synthesizer,
		timeout:     timeout,
		logger:      logger,
		onChange:    opts.OnChange,
		ctx:         runCtx,
		cancel:      cancel,
		state:       StateInput,
		updated:     time.Now(),
	}
}

// Start submits a request to the strategist. It is ignored unless the controller
// is in INPUT and both topic and context are non-blank.
func (c *Controller) Start(req campaign.Request) bool {
	if strings.TrimSpace(req.Topic) == "" || strings.TrimSpace(req.Context) == "" {
		return false
	}
	if c.strategist == nil {
		c.logger.Error("start refused: no strategist configured")
		return false
	}

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if !c.applyLocked(EventStart) {
		c.mu.Unlock()
		return false
	}
	c.req = req
	c.strategy = nil
	c.content = nil
	c.err = nil
	done := c.beginLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	go c.runStrategy(req, done)
	return true
}

// Approve runs the executor and then the synthesizer under the held strategy.
func (c *Controller) Approve() bool {
	if c.executor == nil || c.synthesizer == nil {
		c.logger.Error("approve refused: no executor or synthesizer configured")
		return false
	}

	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if c.strategy == nil || !c.applyLocked(EventApprove) {
		c.mu.Unlock()
		return false
	}
	c.err = nil
	req, strategy := c.req, *c.strategy
	done := c.beginLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	go c.runExecution(req, strategy, done)
	return true
}

// Refine discards the strategy under review and returns to INPUT.
func (c *Controller) Refine() bool {
	return c.reset(EventRefine)
}

// NewCampaign clears a finished campaign and returns to INPUT.
func (c *Controller) NewCampaign() bool {
	return c.reset(EventNewCampaign)
}

func (c *Controller) reset(ev Event) bool {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if !c.applyLocked(ev) {
		c.mu.Unlock()
		return false
	}
	c.strategy = nil
	c.content = nil
	c.err = nil
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	return true
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Wait blocks until no stage call is in flight or ctx is done. A stage result has
// been delivered to OnChange by the time Wait returns.
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	done := c.inflight
	c.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels any in-flight stage call and waits for it to return. Its result
// is discarded and every later action is ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	done := c.inflight
	c.mu.Unlock()

	c.cancel()
	if done != nil {
		<-done
	}
}

func (c *Controller) runStrategy(req campaign.Request, done chan struct{}) {
	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	strategy, err := c.strategist.Run(ctx, req)
	err = stageErr(ctx, campaign.StageStrategy, err)
	cancel()

	c.notifyMu.Lock()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.notifyMu.Unlock()
		close(done)
		return
	}
	if err != nil {
		c.applyLocked(EventStrategyFailed)
		c.err = err
		c.logger.Warn("strategy failed", "topic", req.Topic, "err", err)
	} else {
		c.applyLocked(EventStrategyReady)
		c.strategy = &strategy
		c.logger.Info("strategy ready", "topic", req.Topic)
	}
	c.inflight = nil
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	c.notifyMu.Unlock()
	close(done)
}

func (c *Controller) runExecution(req campaign.Request, strategy campaign.Strategy, done chan struct{}) {
	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	content, err := c.executor.Run(ctx, req, strategy)
	err = stageErr(ctx, campaign.StageExecution, err)
	cancel()

	if err == nil {
		ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
		v := c.synthesizer.Synthesize(ctx, content.ImagePrompt)
		cancel()
		content.ImageURL = v.URL
		content.ImagePlaceholder = v.Placeholder
	}

	c.notifyMu.Lock()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.notifyMu.Unlock()
		close(done)
		return
	}
	if err != nil {
		c.applyLocked(EventContentFailed)
		c.err = err
		c.logger.Warn("content failed", "topic", req.Topic, "err", err)
	} else {
		c.applyLocked(EventContentReady)
		c.content = &content
		c.logger.Info("content ready", "topic", req.Topic, "image_placeholder", content.ImagePlaceholder)
	}
	c.inflight = nil
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
	c.notifyMu.Unlock()
	close(done)
}

// stageErr reports an expired stage deadline as a generation failure even when
// the stage itself returned no error.
func stageErr(ctx context.Context, stage campaign.Stage, err error) error {
	if err == nil {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
			return campaign.GenerationFailure(stage, ctxErr)
		}
		return nil
	}
	if _, ok := campaign.StageOf(err); ok {
		return err
	}
	return campaign.GenerationFailure(stage, err)
}

func (c *Controller) applyLocked(ev Event) bool {
	if c.closed {
		return false
	}
	next, ok := Transition(c.state, ev)
	if !ok {
		c.logger.Debug("action ignored", "state", c.state, "event", ev)
		return false
	}
	c.state = next
	c.updated = time.Now()
	return true
}

func (c *Controller) beginLocked() chan struct{} {
	done := make(chan struct{})
	c.inflight = done
	return done
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		State:     c.state,
		Request:   c.req,
		Strategy:  c.strategy,
		Content:   c.content,
		UpdatedAt: c.updated,
		Err:       c.err,
	}
	if c.err != nil {
		s.Error = c.err.Error()
	}
	return s
}

func (c *Controller) notify(s Snapshot) {
	if c.onChange != nil {
		c.onChange(s)
	}
}
