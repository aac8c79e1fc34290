package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/pterm/pterm"

	"github.com/arthur-debert/beout/pkg/activity"
	"github.com/arthur-debert/beout/pkg/status"
	"github.com/arthur-debert/beout/pkg/terminal"
	"github.com/arthur-debert/beout/pkg/theme"
)

// LogPrefix starts every log line in append-only output
const LogPrefix = "  | "

// PlainLine renders one status change for append-only output:
//
//	[status] label (elapsed)
//
// Elapsed is included once the activity has ended.
func PlainLine(c activity.Change, a activity.Activity) string {
	line := fmt.Sprintf("[%s] %s", c.To, c.Label)
	if c.To.IsTerminal() {
		if d, ok := a.Elapsed(c.At); ok {
			line += " (" + FormatElapsed(d) + ")"
		}
	}
	if c.To == status.Failed && a.Reason != "" && c.Cause == activity.CauseExplicit {
		line += ": " + a.Reason
	}
	return line
}

// PlainLog renders one log line for append-only output
func PlainLog(line string) string {
	return LogPrefix + line
}

// Box draws text inside a single-line border, one string per row
func Box(text string, palette *terminal.Palette) []string {
	text = ansi.Strip(text)
	box := pterm.DefaultBox.
		WithBoxStyle(pterm.NewStyle()).
		WithTextStyle(pterm.NewStyle()).
		Sprint(text)
	rows := strings.Split(strings.Trim(ansi.Strip(box), "\n"), "\n")
	for i, row := range rows {
		rows[i] = palette.Element(theme.ElementBox, row)
	}
	return rows
}

// Summary is the one-line tally printed after the final frame, e.g.
// "4 activities: 3 succeeded, 1 failed in 12s".
func Summary(snap activity.Snapshot) string {
	counts := snap.Counts()
	var parts []string
	for _, s := range status.All {
		if n := counts[s]; n > 0 {
			parts = append(parts, humanize.Comma(int64(n))+" "+s.String())
		}
	}
	line := english.Plural(len(snap.Nodes), "activity", "activities")
	if len(parts) > 0 {
		line += ": " + strings.Join(parts, ", ")
	}
	if d, ok := snap.Root().Elapsed(snap.Now); ok {
		line += " in " + FormatElapsed(d)
	}
	return line
}
