package pipeline

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"align-bot/internal/campaign"
)

// Result is the outcome of one unattended campaign.
type Result struct {
	Index    int                `json:"index"`
	Request  campaign.Request   `json:"request"`
	Strategy *campaign.Strategy `json:"strategy,omitempty"`
	Content  *campaign.Content  `json:"content,omitempty"`
	Error    string             `json:"error,omitempty"`

	Err error `json:"-"`
}

var errRejected = errors.New("request rejected")

// RunBatch drives every request through its own controller, approving each
// strategy without review. At most limit campaigns run at once; one failing does
// not stop the others. Results keep the order of reqs.
func RunBatch(ctx context.Context, opts Options, reqs []campaign.Request, limit int) []Result {
	if limit < 1 {
		limit = 1
	}
	opts.OnChange = nil

	results := make([]Result, len(reqs))
	var g errgroup.Group
	g.SetLimit(limit)

	for i, req := range reqs {
		g.Go(func() error {
			res := runOne(ctx, opts, req)
			res.Index = i
			if res.Err != nil {
				res.Error = res.Err.Error()
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func runOne(ctx context.Context, opts Options, req campaign.Request) Result {
	c := New(ctx, opts)
	defer c.Close()

	res := Result{Request: req}
	if !c.Start(req) {
		res.Err = fmt.Errorf("%w: start refused", errRejected)
		return res
	}
	if err := c.Wait(ctx); err != nil {
		res.Err = err
		return res
	}

	snap := c.Snapshot()
	res.Strategy = snap.Strategy
	if snap.State != StateReview {
		res.Err = snap.Err
		return res
	}

	if !c.Approve() {
		res.Err = fmt.Errorf("%w: approve refused", errRejected)
		return res
	}
	if err := c.Wait(ctx); err != nil {
		res.Err = err
		return res
	}

	snap = c.Snapshot()
	res.Content = snap.Content
	if snap.State != StateDone {
		res.Err = snap.Err
	}
	return res
}
