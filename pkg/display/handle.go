package display

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/arthur-debert/beout/pkg/activity"
	"github.com/arthur-debert/beout/pkg/errors"
	"github.com/arthur-debert/beout/pkg/status"
)

// Handle refers to one activity of a session. It holds no state of its own
// and may be shared between goroutines.
type Handle struct {
	s  *Session
	id activity.ID
}

// ID returns the activity identifier
func (h *Handle) ID() activity.ID {
	return h.id
}

// Child creates a pending child activity. Children auto-close by default.
func (h *Handle) Child(label string, opts ...ChildOption) (*Handle, error) {
	o := childOptions{autoClose: true}
	for _, opt := range opts {
		opt(&o)
	}
	id, err := h.s.call(request{op: opChild, id: h.id, text: label, autoClose: o.autoClose})
	if err != nil {
		return nil, err
	}
	return &Handle{s: h.s, id: id}, nil
}

// Start marks the activity running
func (h *Handle) Start() error {
	return h.setStatus(status.Running)
}

// Succeed marks the activity succeeded
func (h *Handle) Succeed() error {
	return h.setStatus(status.Succeeded)
}

// Skip marks the activity skipped
func (h *Handle) Skip() error {
	return h.setStatus(status.Skipped)
}

// Fail marks the activity failed. reason may be empty.
func (h *Handle) Fail(reason string) error {
	_, err := h.s.call(request{op: opFail, id: h.id, text: reason})
	return err
}

func (h *Handle) setStatus(to status.Status) error {
	_, err := h.s.call(request{op: opStatus, id: h.id, to: to})
	return err
}

// Detail replaces the transient detail text; an empty string clears it.
// It waits for queue space but not for the update to be applied.
func (h *Handle) Detail(text string) error {
	return h.s.send(request{op: opDetail, id: h.id, text: text})
}

// Substeps numbers this activity's children "(1/n)", "(2/n)" and so on,
// n being the current number of children
func (h *Handle) Substeps() error {
	_, err := h.s.call(request{op: opSubsteps, id: h.id})
	return err
}

// Estimate records how long the activity is expected to run
func (h *Handle) Estimate(d time.Duration) error {
	_, err := h.s.call(request{op: opEstimate, id: h.id, d: d})
	return err
}

// Log appends a line to the activity's tail. It never blocks: when the
// queue is full the line is dropped and counted in Stats.
func (h *Handle) Log(line string) error {
	return h.s.offer(request{op: opLog, id: h.id, text: line})
}

// Logf formats and appends a log line
func (h *Handle) Logf(format string, args ...interface{}) error {
	return h.Log(fmt.Sprintf(format, args...))
}

// Writer returns a stream whose complete lines become log lines. Close
// flushes a trailing partial line.
func (h *Handle) Writer() io.WriteCloser {
	return &logWriter{h: h}
}

type logWriter struct {
	h      *Handle
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, errors.New(errors.ErrSessionClosed, "log writer closed")
	}

	w.buf.Write(p)
	for {
		i := bytes.IndexByte(w.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := string(w.buf.Next(i + 1))
		if err := w.h.Log(line); err != nil {
			return len(p), err
		}
	}
	return len(p), nil
}

func (w *logWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.buf.Len() == 0 {
		return nil
	}
	line := w.buf.String()
	w.buf.Reset()
	return w.h.Log(line)
}
