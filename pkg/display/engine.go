package display

import (
	"fmt"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/arthur-debert/beout/pkg/activity"
	"github.com/arthur-debert/beout/pkg/errors"
	"github.com/arthur-debert/beout/pkg/render"
	"github.com/arthur-debert/beout/pkg/status"
	"github.com/arthur-debert/beout/pkg/terminal"
)

type opKind uint8

const (
	opChild opKind = iota
	opStatus
	opFail
	opDetail
	opLog
	opEstimate
	opLookup
	opSubsteps
	opPrint
	opBanner
)

func (k opKind) String() string {
	switch k {
	case opChild:
		return "child"
	case opStatus:
		return "status"
	case opFail:
		return "fail"
	case opDetail:
		return "detail"
	case opLog:
		return "log"
	case opEstimate:
		return "estimate"
	case opLookup:
		return "lookup"
	case opSubsteps:
		return "substeps"
	case opPrint:
		return "print"
	case opBanner:
		return "banner"
	default:
		return "unknown"
	}
}

// request is one queued mutation. reply is nil for fire-and-forget requests.
type request struct {
	op        opKind
	id        activity.ID
	text      string
	lines     []string
	to        status.Status
	autoClose bool
	d         time.Duration
	reply     chan result
}

type result struct {
	id  activity.ID
	err error
}

type pendingReply struct {
	ch  chan result
	res result
}

// call submits req and waits until its batch has been applied
func (s *Session) call(req request) (activity.ID, error) {
	req.reply = make(chan result, 1)
	if err := s.send(req); err != nil {
		return "", err
	}
	select {
	case res := <-req.reply:
		return res.id, res.err
	case <-s.done:
		select {
		case res := <-req.reply:
			return res.id, res.err
		default:
			return "", errors.New(errors.ErrSessionClosed, "session closed")
		}
	}
}

// send enqueues req, blocking while the queue is full
func (s *Session) send(req request) error {
	select {
	case <-s.closing:
		return errors.New(errors.ErrSessionClosed, "session closed")
	default:
	}
	select {
	case s.queue <- req:
		return nil
	case <-s.closing:
		return errors.New(errors.ErrSessionClosed, "session closed")
	}
}

// offer enqueues req unless the queue is full, in which case it is dropped
func (s *Session) offer(req request) error {
	select {
	case <-s.closing:
		return errors.New(errors.ErrSessionClosed, "session closed")
	default:
	}
	select {
	case s.queue <- req:
	default:
		s.dropped.Add(1)
	}
	return nil
}

// start paints the first frame before the engine goroutine runs
func (s *Session) start(now time.Time) {
	if s.term.IsTTY() {
		s.term.HideCursor()
		s.cursorHidden = true
		s.paint(now)
	}
	s.publish(s.tree.Snapshot(now))
}

func (s *Session) loop() {
	defer close(s.done)
	defer close(s.diag)
	defer func() {
		if r := recover(); r != nil {
			s.term.Discard()
			if s.cursorHidden {
				s.term.ShowCursor()
			}
			_ = s.term.Flush()
			panic(r)
		}
	}()

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		var tick <-chan time.Time
		if wait, ok := s.nextPaint(); ok {
			timer.Reset(wait)
			tick = timer.C
		}

		select {
		case req := <-s.queue:
			s.batch(req)
		case <-tick:
			s.paint(s.clock())
		case <-s.closing:
			s.drain()
			s.finish()
			return
		}
	}
}

// nextPaint returns how long until the next frame is due, if one is
func (s *Session) nextPaint() (time.Duration, bool) {
	if !s.term.IsTTY() {
		return 0, false
	}
	if !s.dirty && !s.tree.AnyRunning() {
		return 0, false
	}
	wait := s.interval - time.Since(s.lastPaint)
	if wait < 0 {
		wait = 0
	}
	return wait, true
}

// batch applies first and whatever else is already queued as one unit
func (s *Session) batch(first request) {
	now := s.clock()
	printed := s.apply(first, now)
	for i := 1; i < cap(s.queue); i++ {
		req, ok := s.take()
		if !ok {
			break
		}
		printed = s.apply(req, now) || printed
	}
	s.endBatch(now, printed)
}

func (s *Session) take() (request, bool) {
	select {
	case req := <-s.queue:
		return req, true
	default:
		return request{}, false
	}
}

// drain applies everything left in the queue at shutdown
func (s *Session) drain() {
	now := s.clock()
	printed := false
	for {
		req, ok := s.take()
		if !ok {
			break
		}
		printed = s.apply(req, now) || printed
	}
	s.endBatch(now, printed)
}

func (s *Session) endBatch(now time.Time, printed bool) {
	if err := s.tree.Verify(); err != nil {
		panic(fmt.Sprintf("display: activity tree invariant violated: %v", err))
	}

	s.mu.Lock()
	s.stats.Batches++
	s.mu.Unlock()

	s.dirty = true
	if s.term.IsTTY() && (printed || time.Since(s.lastPaint) >= s.interval) {
		s.paint(now)
	} else {
		s.flush()
	}
	s.publish(s.tree.Snapshot(now))

	for _, r := range s.replies {
		r.ch <- r.res
	}
	s.replies = s.replies[:0]
}

// apply runs one request against the tree and reports whether it printed
// above the frame.
func (s *Session) apply(req request, now time.Time) bool {
	var (
		res     result
		changes []activity.Change
	)

	switch req.op {
	case opChild:
		res.id, res.err = s.tree.AddChild(req.id, req.text, req.autoClose)
		if res.err == nil {
			s.logger.Debug().Str("parent", string(req.id)).Str("id", string(res.id)).Str("label", req.text).Msg("Activity added")
		}
	case opStatus:
		changes, res.err = s.tree.SetStatus(req.id, req.to, now)
	case opFail:
		changes, res.err = s.tree.Fail(req.id, req.text, now)
	case opDetail:
		res.err = s.tree.SetDetail(req.id, req.text)
	case opEstimate:
		res.err = s.tree.SetEstimate(req.id, req.d)
	case opLookup:
		_, res.err = s.tree.Get(req.id)
	case opSubsteps:
		res.err = s.tree.SetSubsteps(req.id, true)
	case opLog:
		var lines []string
		lines, res.err = s.tree.AppendLog(req.id, req.text)
		s.emitLog(req.id, lines)
	case opPrint:
		s.emitPrint(req.lines)
	case opBanner:
		s.emitPrint(render.Box(req.text, s.palette))
	}

	if res.err != nil {
		s.logger.Debug().Err(res.err).Str("op", req.op.String()).Str("id", string(req.id)).Msg("Mutation rejected")
	}
	s.emitChanges(changes)

	if req.reply != nil {
		s.replies = append(s.replies, pendingReply{ch: req.reply, res: res})
	}
	return req.op == opPrint || req.op == opBanner
}

func (s *Session) emitChanges(changes []activity.Change) {
	if len(changes) == 0 {
		return
	}
	s.mu.Lock()
	s.stats.Changes += len(changes)
	s.mu.Unlock()

	for _, c := range changes {
		a, _ := s.tree.Get(c.ID)
		event := s.logger.Info()
		if c.To == status.Failed {
			event = s.logger.Warn()
		}
		event.Str("id", string(c.ID)).
			Str("label", c.Label).
			Stringer("from", c.From).
			Stringer("to", c.To).
			Stringer("cause", c.Cause).
			Str("reason", a.Reason).
			Msg(render.PlainLine(c, a))

		if !s.term.IsTTY() {
			s.writeLine(render.PlainLine(c, a))
		}
	}
}

func (s *Session) emitLog(id activity.ID, lines []string) {
	for _, line := range lines {
		s.logger.Debug().Str("id", string(id)).Msg(line)
		if !s.term.IsTTY() {
			s.writeLine(render.PlainLog(line))
		}
	}
}

func (s *Session) emitPrint(lines []string) {
	if s.term.IsTTY() {
		s.painter.Erase(s.term)
	}
	for _, line := range lines {
		s.logger.Info().Msg(ansi.Strip(line))
		if !s.term.Color() {
			line = ansi.Strip(line)
		}
		s.writeLine(line)
	}
}

func (s *Session) writeLine(line string) {
	_, _ = s.term.WriteString(line)
	_, _ = s.term.WriteString("\n")
}

// paint draws the frame for now and flushes it
func (s *Session) paint(now time.Time) {
	s.dirty = false
	s.lastPaint = time.Now()
	if !s.term.IsTTY() {
		s.flush()
		return
	}

	snap := s.tree.Snapshot(now)
	changed := s.painter.Paint(s.term, s.renderer.Rows(snap, s.term.Width()))
	s.flush()

	s.mu.Lock()
	s.stats.Paints++
	s.mu.Unlock()
	s.logger.Trace().Int("rows", len(snap.Nodes)).Int("changed", changed).Msg("Frame painted")
}

// flush writes buffered output. A failure drops to append-only output for
// the rest of the session and is reported once.
func (s *Session) flush() {
	err := s.term.Flush()
	if err == nil {
		return
	}

	wasTTY := s.term.IsTTY()
	if wasTTY {
		s.term.Degrade()
		s.painter.Reset()
		s.palette = terminal.NewPalette(s.theme, false)
		s.renderer.SetPalette(s.palette)
	}

	s.mu.Lock()
	s.stats.Degraded = true
	s.mu.Unlock()

	if s.reported {
		return
	}
	s.reported = true
	s.logger.Warn().Err(err).Bool("wasTTY", wasTTY).Msg("Terminal write failed, switching to plain output")
	select {
	case s.diag <- err:
	default:
	}
}

// finish closes every open activity, paints the final frame and restores
// the cursor.
func (s *Session) finish() {
	now := s.clock()
	s.emitChanges(s.tree.ForceTerminal(s.closeStatus, now))
	if err := s.tree.Verify(); err != nil {
		panic(fmt.Sprintf("display: activity tree invariant violated: %v", err))
	}

	snap := s.tree.Snapshot(now)
	if s.term.IsTTY() {
		s.paint(now)
	}
	if s.cursorHidden {
		s.term.ShowCursor()
		s.cursorHidden = false
	}
	if s.summary {
		s.writeLine(render.Summary(snap))
	}
	s.flush()
	s.painter.Reset()
	s.publish(snap)

	s.logger.Debug().Str("status", s.closeStatus.String()).Int("activities", len(snap.Nodes)).Msg("Session closed")
	s.finished()
}

func (s *Session) publish(snap activity.Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}
