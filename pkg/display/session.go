// Package display runs a live view of an activity tree on a terminal.
//
// A Session owns the tree. Callers mutate it through Handles; every mutation
// travels through a bounded queue to a single engine goroutine that applies
// it, verifies the tree and schedules repaints.
package display

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/beout/pkg/activity"
	"github.com/arthur-debert/beout/pkg/config"
	"github.com/arthur-debert/beout/pkg/errors"
	"github.com/arthur-debert/beout/pkg/logging"
	"github.com/arthur-debert/beout/pkg/render"
	"github.com/arthur-debert/beout/pkg/status"
	"github.com/arthur-debert/beout/pkg/terminal"
	"github.com/arthur-debert/beout/pkg/theme"
)

// Stats counts engine work for diagnostics and tests
type Stats struct {
	Batches     int
	Paints      int
	Changes     int
	DroppedLogs int64
	Degraded    bool
}

// Session is one live display. It is safe for concurrent use.
type Session struct {
	cfg      *config.Config
	term     *terminal.Terminal
	tree     *activity.Tree
	theme    theme.Theme
	palette  *terminal.Palette
	renderer *render.Renderer
	painter  render.Painter
	logger   zerolog.Logger
	clock    func() time.Time
	interval time.Duration
	summary  bool

	queue   chan request
	closing chan struct{}
	done    chan struct{}
	diag    chan error

	closeOnce   sync.Once
	closeStatus status.Status
	finished    func()

	// engine goroutine state
	dirty        bool
	lastPaint    time.Time
	reported     bool
	cursorHidden bool
	replies      []pendingReply

	mu      sync.Mutex
	snap    activity.Snapshot
	stats   Stats
	dropped atomic.Int64
}

// Open starts a session whose root activity is labelled label. Cancelling
// ctx cancels the session.
func Open(ctx context.Context, label string, opts ...Option) (*Session, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	cfg := o.cfg
	if cfg == nil {
		cfg = config.FromEnv()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, w := range cfg.Warnings {
		o.logger.Warn().Str("component", "display").Msg(w)
	}

	th, err := resolveTheme(o.theme, cfg.Theme)
	if err != nil {
		return nil, err
	}

	term := o.term
	if term == nil {
		out := o.output
		if out == nil {
			out = os.Stderr
		}
		term = terminal.Detect(out, cfg)
	}

	summary := cfg.Summary
	if o.summary != nil {
		summary = *o.summary
	}

	now := o.clock()
	s := &Session{
		cfg:      cfg,
		term:     term,
		tree:     activity.NewTree(label, o.rootAutoClose, activity.WithMaxTail(cfg.LogTail)),
		theme:    th,
		logger:   o.logger.With().Str("component", "display").Logger(),
		clock:    o.clock,
		interval: cfg.FrameInterval(),
		summary:  summary,
		queue:    make(chan request, cfg.QueueSize),
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
		diag:     make(chan error, 1),
	}
	s.palette = terminal.NewPalette(th, term.Color())
	s.renderer = render.New(th, s.palette, now)
	s.finished = logging.LogOperationStart(s.logger, "session")

	s.logger.Debug().
		Str("label", label).
		Bool("tty", term.IsTTY()).
		Bool("color", term.Color()).
		Dur("frame", s.interval).
		Msg("Session opened")

	s.start(now)
	go s.loop()
	if ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				s.Cancel()
			case <-s.done:
			}
		}()
	}
	return s, nil
}

func resolveTheme(explicit *theme.Theme, path string) (theme.Theme, error) {
	switch {
	case explicit != nil:
		return *explicit, nil
	case path != "":
		th, err := theme.Load(path)
		if err != nil {
			return theme.Theme{}, errors.Wrap(err, errors.ErrConfigLoad, "failed to load theme").
				WithDetail("path", path)
		}
		return th, nil
	default:
		return theme.Default(), nil
	}
}

// Root returns the handle of the root activity
func (s *Session) Root() *Handle {
	return &Handle{s: s, id: s.tree.Root()}
}

// Handle returns a handle for an existing activity
func (s *Session) Handle(id activity.ID) (*Handle, error) {
	if _, err := s.call(request{op: opLookup, id: id}); err != nil {
		return nil, err
	}
	return &Handle{s: s, id: id}, nil
}

// Print writes line above the live frame. In plain mode it is appended as is.
func (s *Session) Print(line string) error {
	return s.send(request{op: opPrint, lines: []string{line}})
}

// Banner prints text inside a box above the live frame
func (s *Session) Banner(text string) error {
	return s.send(request{op: opBanner, text: text})
}

// Diagnostics delivers at most one recovered terminal failure. The channel
// is closed when the session ends.
func (s *Session) Diagnostics() <-chan error {
	return s.diag
}

// Stats returns engine counters
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.DroppedLogs = s.dropped.Load()
	return st
}

// Snapshot returns the tree as of the last applied batch
func (s *Session) Snapshot() activity.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Done is closed once the final frame has been painted
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close ends the session. Open activities fail when err is non-nil and
// succeed otherwise. The final frame stays in scrollback and the cursor is
// restored. Closing a closed session returns SessionClosed.
func (s *Session) Close(err error) error {
	to := status.Succeeded
	if err != nil {
		to = status.Failed
	}
	if !s.shutdown(to) {
		return errors.New(errors.ErrSessionClosed, "session already closed")
	}
	return nil
}

// Cancel fails every open activity and ends the session. It is idempotent.
func (s *Session) Cancel() {
	s.shutdown(status.Failed)
}

// shutdown asks the engine to finish and waits for it. It reports whether
// this call did the closing.
func (s *Session) shutdown(to status.Status) bool {
	first := false
	s.closeOnce.Do(func() {
		first = true
		s.closeStatus = to
		close(s.closing)
	})
	<-s.done
	return first
}
