package display

import (
	"context"
	"fmt"

	"github.com/arthur-debert/beout/pkg/errors"
)

// Run opens a session, calls fn with its root and closes the session on
// every exit path. A panic in fn fails the open activities, paints the final
// frame, restores the cursor and is then re-raised.
func Run(ctx context.Context, label string, fn func(ctx context.Context, root *Handle) error, opts ...Option) (err error) {
	s, err := Open(ctx, label, opts...)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = s.Close(fmt.Errorf("panic: %v", r))
			panic(r)
		}
	}()

	err = fn(ctx, s.Root())
	if cerr := s.Close(err); cerr != nil && err == nil {
		if errors.IsErrorCode(cerr, errors.ErrSessionClosed) && ctx != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		return cerr
	}
	return err
}
