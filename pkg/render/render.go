// Package render turns activity snapshots into terminal rows and paints the
// difference between consecutive frames.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/arthur-debert/beout/pkg/activity"
	"github.com/arthur-debert/beout/pkg/status"
	"github.com/arthur-debert/beout/pkg/terminal"
	"github.com/arthur-debert/beout/pkg/theme"
)

// SpinnerFPS is the spinner advance rate
const SpinnerFPS = 10

// indentWidth is the number of spaces per tree level
const indentWidth = 2

// Renderer builds rows for a snapshot. It holds no frame state.
type Renderer struct {
	theme   theme.Theme
	palette *terminal.Palette
	epoch   time.Time
}

// New creates a Renderer whose spinner phase counts from epoch
func New(th theme.Theme, palette *terminal.Palette, epoch time.Time) *Renderer {
	return &Renderer{theme: th, palette: palette, epoch: epoch}
}

// SetPalette swaps the palette, e.g. when colour is turned off mid-session
func (r *Renderer) SetPalette(p *terminal.Palette) {
	r.palette = p
}

// SpinnerFrame returns the frame index shared by every running row at now
func (r *Renderer) SpinnerFrame(now time.Time) int {
	d := now.Sub(r.epoch)
	if d < 0 {
		return 0
	}
	return int(d * SpinnerFPS / time.Second)
}

// Rows renders the snapshot in pre-order. No row is wider than width-1
// columns and none contains a newline.
func (r *Renderer) Rows(snap activity.Snapshot, width int) []string {
	frame := r.SpinnerFrame(snap.Now)
	rows := make([]string, 0, len(snap.Nodes))
	for _, n := range snap.Nodes {
		rows = append(rows, fit(r.Row(n, snap.Now, frame), width, r.theme.Ellipsis))
		if !showsTail(n.Status) {
			continue
		}
		for _, line := range n.LogTail {
			rows = append(rows, fit(r.logRow(n.Depth, line), width, r.theme.Ellipsis))
		}
	}
	return rows
}

// Row renders one activity row without width fitting:
//
//	<indent><glyph> [(<i>/<n>) ]<label>[ (<elapsed>)][ <eta>][<sep><detail>]
func (r *Renderer) Row(n activity.Node, now time.Time, frame int) string {
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", n.Depth*indentWidth))
	b.WriteString(r.palette.Status(n.Status, r.theme.Glyph(n.Status, frame)))
	b.WriteByte(' ')
	if n.Siblings > 0 {
		b.WriteString(r.palette.Element(theme.ElementCounter, fmt.Sprintf("(%d/%d)", n.Position, n.Siblings)))
		b.WriteByte(' ')
	}
	b.WriteString(n.Label)

	if d, ok := n.Elapsed(now); ok {
		b.WriteByte(' ')
		b.WriteString(r.palette.Element(theme.ElementElapsed, "("+FormatElapsed(d)+")"))
	}
	if eta := ETA(n.Activity, now); eta != "" {
		b.WriteByte(' ')
		b.WriteString(r.palette.Element(theme.ElementETA, eta))
	}

	detail := n.Detail
	if detail == "" && n.Status == status.Failed {
		detail = n.Reason
	}
	if detail != "" {
		b.WriteString(r.theme.DetailSeparator)
		b.WriteString(detail)
	}
	return b.String()
}

func (r *Renderer) logRow(depth int, line string) string {
	indent := strings.Repeat(" ", (depth+1)*indentWidth+2)
	return indent + r.palette.Element(theme.ElementLog, line)
}

func showsTail(s status.Status) bool {
	return s == status.Running || s == status.Failed
}

// fit truncates row so it ends one column before the right margin
func fit(row string, width int, ellipsis string) string {
	limit := width - 1
	if limit < 1 {
		limit = 1
	}
	if ansi.StringWidth(row) <= limit {
		return row
	}
	return ansi.Truncate(row, limit, ellipsis)
}

// FormatElapsed renders HH:MM:SS from one hour, MM:SS from one minute and
// whole seconds below that.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	switch {
	case secs >= 3600:
		return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs/60%60, secs%60)
	case secs >= 60:
		return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
	default:
		return fmt.Sprintf("%ds", secs)
	}
}

// ETA describes the time left for a running activity with an estimate,
// e.g. "2 minutes left" or "5 seconds overdue". It is empty otherwise.
func ETA(a activity.Activity, now time.Time) string {
	if a.Status != status.Running || a.Estimate <= 0 || !a.Started() {
		return ""
	}
	deadline := a.StartedAt.Add(a.Estimate)
	if rel := humanize.RelTime(now, deadline, "left", "overdue"); rel != "now" {
		return rel
	}
	return "due now"
}
