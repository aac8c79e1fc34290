package script

import (
	"context"
	stderrors "errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arthur-debert/beout/pkg/display"
	"github.com/arthur-debert/beout/pkg/errors"
)

// Options tunes a replay
type Options struct {
	// Scale multiplies every step duration; 0 replays instantly
	Scale float64
	// Banner prints a step banner, typically Session.Banner
	Banner func(text string) error
}

// Play replays p under root, which is started first and succeeded once
// every step has. It returns a
// STEP_FAILED error when any step fails; the failing activity and the
// steps it cut short are already marked failed on the display.
func Play(ctx context.Context, root *display.Handle, p *Pipeline, opts Options) error {
	pl := &player{opts: opts}
	if err := root.Start(); err != nil {
		return err
	}
	if p.Substeps {
		if err := root.Substeps(); err != nil {
			return err
		}
	}
	if err := pl.steps(ctx, root, p.Steps, p.Parallel); err != nil {
		_ = root.Fail(reason(err))
		return err
	}
	return ignoreClosed(root.Succeed())
}

type player struct {
	opts Options
}

// steps creates every child up front, so an auto-closing parent waits for
// the last of them, then plays them in order or concurrently.
func (pl *player) steps(ctx context.Context, parent *display.Handle, steps []Step, parallel bool) error {
	handles := make([]*display.Handle, len(steps))
	for i, st := range steps {
		h, err := parent.Child(st.Name, display.WithAutoClose(st.autoClose()))
		if err != nil {
			return err
		}
		handles[i] = h
	}

	if !parallel {
		for i, st := range steps {
			if err := pl.step(ctx, handles[i], st); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, st := range steps {
		h, st := handles[i], st
		g.Go(func() error {
			return pl.step(gctx, h, st)
		})
	}
	return g.Wait()
}

func (pl *player) step(ctx context.Context, h *display.Handle, st Step) error {
	if st.Banner != "" && pl.opts.Banner != nil {
		if err := pl.opts.Banner(st.Banner); err != nil {
			return err
		}
	}
	return pl.run(ctx, h, st)
}

func (pl *player) run(ctx context.Context, h *display.Handle, st Step) error {
	if st.Skip {
		return ignoreClosed(h.Skip())
	}
	if err := h.Start(); err != nil {
		return ignoreClosed(err)
	}
	if st.Estimate > 0 {
		if err := h.Estimate(st.Estimate); err != nil {
			return err
		}
	}
	if st.Detail != "" {
		if err := h.Detail(st.Detail); err != nil {
			return err
		}
	}
	if st.Substeps {
		if err := h.Substeps(); err != nil {
			return err
		}
	}

	err := pl.emit(ctx, h, st)
	if err == nil {
		err = pl.steps(ctx, h, st.Steps, st.Parallel)
	}
	if err == nil && st.Fail != "" {
		err = errors.New(errors.ErrStepFailed, st.Fail).WithDetail("step", st.Name)
	}
	if err != nil {
		_ = h.Fail(reason(err))
		return err
	}
	if len(st.Steps) == 0 || !st.autoClose() {
		return ignoreClosed(h.Succeed())
	}
	return nil
}

// emit spreads the log lines over the step duration
func (pl *player) emit(ctx context.Context, h *display.Handle, st Step) error {
	total := pl.scale(st.Duration)
	gap := total / time.Duration(len(st.Logs)+1)
	for _, line := range st.Logs {
		if err := sleep(ctx, gap); err != nil {
			return err
		}
		if err := h.Log(line); err != nil {
			return err
		}
	}
	return sleep(ctx, total-gap*time.Duration(len(st.Logs)))
}

func (pl *player) scale(d time.Duration) time.Duration {
	if pl.opts.Scale <= 0 {
		return 0
	}
	return time.Duration(float64(d) * pl.opts.Scale)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// reason is the fail text shown for err
func reason(err error) string {
	var e *errors.Error
	if stderrors.As(err, &e) && e.Code == errors.ErrStepFailed {
		return e.Message
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return "cancelled"
	}
	return err.Error()
}

// ignoreClosed drops InvalidTransition, raised when propagation or
// auto-close already ended the activity.
func ignoreClosed(err error) error {
	if errors.IsErrorCode(err, errors.ErrInvalidTransition) {
		return nil
	}
	return err
}
