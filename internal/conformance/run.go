package conformance

import (
	"context"
	"iter"
	"time"

	"structest/internal/util"

	"golang.org/x/sync/errgroup"
)

// RunOptions tunes Run.
type RunOptions struct {
	// Workers bounds the number of checks evaluated at once; values below one
	// mean sequential.
	Workers int
	// CheckTimeout bounds each check; zero disables it.
	CheckTimeout time.Duration
	// OnOutcome, when set, is called once per finished check. It may be
	// called from several goroutines.
	OnOutcome func(Outcome)
}

// Run evaluates checks and returns their outcomes in enumeration order. The
// first error stops the run: it is either a fatal provider error or the
// cancellation of ctx.
func Run(ctx context.Context, checks iter.Seq[Check], opts RunOptions) ([]Outcome, error) {
	var list []Check
	for c := range checks {
		list = append(list, c)
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	outcomes := make([]Outcome, len(list))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, c := range list {
		g.Go(func() error {
			checkCtx := gctx
			if opts.CheckTimeout > 0 {
				var cancel context.CancelFunc
				checkCtx, cancel = context.WithTimeout(gctx, opts.CheckTimeout)
				defer cancel()
			}
			out, err := c.Run(checkCtx)
			if err != nil {
				return err
			}
			outcomes[i] = out
			if opts.OnOutcome != nil {
				opts.OnOutcome(out)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		util.Warnf("structural run stopped after error: %v", err)
		return nil, err
	}
	return outcomes, nil
}
