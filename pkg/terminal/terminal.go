// Package terminal is the capability surface between the display engine and
// its output stream. It is the only package that emits escape sequences.
//
// Operations append to a frame buffer; Flush hands the whole frame to the
// underlying writer in one Write call.
package terminal

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/arthur-debert/beout/pkg/config"
	"github.com/arthur-debert/beout/pkg/errors"
)

// DefaultWidth is used when the width cannot be measured
const DefaultWidth = 80

// Surface is what the renderer paints on
type Surface interface {
	io.Writer
	WriteString(s string) (int, error)
	MoveCursorUp(n int)
	MoveCursorToColumn(c int)
	ClearToEndOfLine()
	ClearToEndOfScreen()
	Width() int
}

// Terminal buffers output for one stream
type Terminal struct {
	w         io.Writer
	buf       bytes.Buffer
	seq       *termenv.Output
	tty       bool
	color     bool
	width     int
	widthFunc func() int
}

// Option configures a Terminal
type Option func(*Terminal)

// WithTTY sets whether the stream supports cursor movement
func WithTTY(tty bool) Option {
	return func(t *Terminal) { t.tty = tty }
}

// WithColor enables colour styling
func WithColor(color bool) Option {
	return func(t *Terminal) { t.color = color }
}

// WithWidth fixes the width. Values below 1 are ignored.
func WithWidth(width int) Option {
	return func(t *Terminal) {
		if width > 0 {
			t.width = width
		}
	}
}

// WithWidthFunc measures the width on every call to Width
func WithWidthFunc(f func() int) Option {
	return func(t *Terminal) { t.widthFunc = f }
}

// New wraps w. Without options it is a plain, colourless, 80 column stream.
func New(w io.Writer, opts ...Option) *Terminal {
	t := &Terminal{w: w, width: DefaultWidth}
	t.seq = termenv.NewOutput(&t.buf, termenv.WithProfile(termenv.Ascii))
	for _, opt := range opts {
		opt(t)
	}
	if !t.tty {
		t.color = false
	}
	return t
}

// Detect builds a Terminal for w from the configuration and the environment.
func Detect(w io.Writer, cfg *config.Config) *Terminal {
	if cfg == nil {
		cfg = config.Default()
	}

	f, isFile := w.(*os.File)
	isTTY := isFile && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
	tty := cfg.LiveFrames(isTTY)

	color := tty && !cfg.NoColor
	if color && isTTY && termenv.NewOutput(w).EnvColorProfile() == termenv.Ascii {
		color = false
	}

	opts := []Option{WithTTY(tty), WithColor(color)}
	switch {
	case cfg.Width > 0:
		opts = append(opts, WithWidth(cfg.Width))
	case isFile:
		fd := int(f.Fd())
		opts = append(opts, WithWidthFunc(func() int { return measure(fd) }))
	default:
		opts = append(opts, WithWidthFunc(func() int { return measure(-1) }))
	}
	return New(w, opts...)
}

// measure asks the terminal, then COLUMNS, then gives up
func measure(fd int) int {
	if fd >= 0 {
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			return w
		}
	}
	if cols, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && cols > 0 {
		return cols
	}
	return DefaultWidth
}

// IsTTY reports whether frames are redrawn in place
func (t *Terminal) IsTTY() bool {
	return t.tty
}

// Color reports whether colour styling is enabled
func (t *Terminal) Color() bool {
	return t.color
}

// Degrade switches to append-only output for the rest of the session
func (t *Terminal) Degrade() {
	t.tty = false
	t.color = false
}

// Width returns the current width in columns
func (t *Terminal) Width() int {
	if t.widthFunc != nil {
		if w := t.widthFunc(); w > 0 {
			return w
		}
	}
	return t.width
}

// Write buffers p
func (t *Terminal) Write(p []byte) (int, error) {
	return t.buf.Write(p)
}

// WriteString buffers s
func (t *Terminal) WriteString(s string) (int, error) {
	return t.buf.WriteString(s)
}

// MoveCursorUp moves n rows up. Zero is a no-op.
func (t *Terminal) MoveCursorUp(n int) {
	if n > 0 {
		t.seq.CursorUp(n)
	}
}

// MoveCursorToColumn moves to column c, counting from 0
func (t *Terminal) MoveCursorToColumn(c int) {
	if c < 0 {
		c = 0
	}
	fmt.Fprintf(&t.buf, termenv.CSI+termenv.CursorHorizontalSeq, c+1)
}

// ClearToEndOfLine erases from the cursor to the end of the row
func (t *Terminal) ClearToEndOfLine() {
	t.seq.ClearLineRight()
}

// ClearToEndOfScreen erases from the cursor to the bottom of the screen
func (t *Terminal) ClearToEndOfScreen() {
	fmt.Fprintf(&t.buf, termenv.CSI+termenv.EraseDisplaySeq, 0)
}

// HideCursor hides the cursor
func (t *Terminal) HideCursor() {
	t.seq.HideCursor()
}

// ShowCursor shows the cursor
func (t *Terminal) ShowCursor() {
	t.seq.ShowCursor()
}

// Pending returns the number of buffered bytes
func (t *Terminal) Pending() int {
	return t.buf.Len()
}

// Discard drops buffered bytes
func (t *Terminal) Discard() {
	t.buf.Reset()
}

// Flush writes the buffered frame. The buffer is emptied even on failure.
func (t *Terminal) Flush() error {
	if t.buf.Len() == 0 {
		return nil
	}
	defer t.buf.Reset()

	want := t.buf.Len()
	n, err := t.w.Write(t.buf.Bytes())
	if err == nil && n < want {
		err = io.ErrShortWrite
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrTerminalWrite, "failed to write frame").
			WithDetail("bytes", want).
			WithDetail("written", n)
	}
	return nil
}
