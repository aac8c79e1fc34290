package render

import (
	"github.com/arthur-debert/beout/pkg/terminal"
)

// Painter remembers the last painted frame and emits only the rows that
// changed since.
type Painter struct {
	prev []string
}

// Rows returns the rows of the last painted frame
func (p *Painter) Rows() []string {
	return append([]string(nil), p.prev...)
}

// Paint transforms the previous frame into rows on s and returns how many
// rows were rewritten. Identical frames write nothing.
func (p *Painter) Paint(s terminal.Surface, rows []string) int {
	if len(rows) == len(p.prev) && p.unchanged(rows) {
		return 0
	}

	if len(p.prev) > 0 {
		s.MoveCursorUp(len(p.prev))
	}
	s.MoveCursorToColumn(0)

	changed := 0
	for i, row := range rows {
		if i < len(p.prev) && p.prev[i] == row {
			_, _ = s.WriteString("\n")
			continue
		}
		s.ClearToEndOfLine()
		_, _ = s.WriteString(row)
		s.ClearToEndOfLine()
		_, _ = s.WriteString("\n")
		changed++
	}
	if len(rows) < len(p.prev) {
		s.ClearToEndOfScreen()
	}

	p.prev = append(p.prev[:0], rows...)
	return changed
}

func (p *Painter) unchanged(rows []string) bool {
	for i := range rows {
		if rows[i] != p.prev[i] {
			return false
		}
	}
	return true
}

// Erase clears the painted frame and leaves the cursor where it started.
// The next Paint draws every row.
func (p *Painter) Erase(s terminal.Surface) {
	if len(p.prev) == 0 {
		return
	}
	s.MoveCursorUp(len(p.prev))
	s.MoveCursorToColumn(0)
	s.ClearToEndOfScreen()
	p.prev = p.prev[:0]
}

// Reset forgets the painted frame without touching the terminal, leaving the
// frame in scrollback.
func (p *Painter) Reset() {
	p.prev = nil
}
