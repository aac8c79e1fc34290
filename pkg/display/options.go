package display

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/beout/pkg/config"
	"github.com/arthur-debert/beout/pkg/terminal"
	"github.com/arthur-debert/beout/pkg/theme"
)

// Option configures a session
type Option func(*options)

type options struct {
	output        io.Writer
	cfg           *config.Config
	term          *terminal.Terminal
	logger        zerolog.Logger
	clock         func() time.Time
	rootAutoClose bool
	theme         *theme.Theme
	summary       *bool
}

func defaultOptions() options {
	return options{
		logger: zerolog.Nop(),
		clock:  time.Now,
	}
}

// WithOutput sets the output stream. The default is standard error.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.output = w }
}

// WithConfig replaces the configuration resolved from the environment
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithTerminal supplies a ready terminal, bypassing detection
func WithTerminal(t *terminal.Terminal) Option {
	return func(o *options) { o.term = t }
}

// WithLogger mirrors status changes and log lines to logger
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithClock replaces the wall clock used for activity timestamps
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithRootAutoClose sets whether the root closes with its last child.
// The default is false: the root stays running until Close, so producers
// adding children one at a time never race a closed root.
func WithRootAutoClose(autoClose bool) Option {
	return func(o *options) { o.rootAutoClose = autoClose }
}

// WithTheme replaces the theme named by the configuration
func WithTheme(th theme.Theme) Option {
	return func(o *options) { o.theme = &th }
}

// WithSummary prints a one-line tally after the final frame
func WithSummary(summary bool) Option {
	return func(o *options) { o.summary = &summary }
}

// ChildOption configures a child activity
type ChildOption func(*childOptions)

type childOptions struct {
	autoClose bool
}

// WithAutoClose sets whether the child closes with its last child.
// Children auto-close by default.
func WithAutoClose(autoClose bool) ChildOption {
	return func(o *childOptions) { o.autoClose = autoClose }
}
