package terminal

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/arthur-debert/beout/pkg/status"
	"github.com/arthur-debert/beout/pkg/theme"
)

// namedColors maps theme colour names to ANSI palette indexes
var namedColors = map[string]string{
	"black":   "0",
	"red":     "1",
	"green":   "2",
	"yellow":  "3",
	"blue":    "4",
	"magenta": "5",
	"cyan":    "6",
	"white":   "7",
	"gray":    "8",
	"grey":    "8",
}

// Palette styles row fragments with the theme colours. A disabled palette
// returns text unchanged.
type Palette struct {
	enabled  bool
	statuses map[status.Status]lipgloss.Style
	elements map[theme.Element]lipgloss.Style
}

// NewPalette binds th to a lipgloss renderer. Colour names are ANSI names,
// "dim", "bold", palette indexes or hex values.
func NewPalette(th theme.Theme, enabled bool) *Palette {
	p := &Palette{
		enabled:  enabled,
		statuses: make(map[status.Status]lipgloss.Style),
		elements: make(map[theme.Element]lipgloss.Style),
	}
	if !enabled {
		return p
	}

	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.ANSI256)
	for s, name := range th.StatusColors {
		p.statuses[s] = styleFor(r, name)
	}
	for e, name := range th.ElementColors {
		p.elements[e] = styleFor(r, name)
	}
	return p
}

func styleFor(r *lipgloss.Renderer, name string) lipgloss.Style {
	style := r.NewStyle()
	for _, part := range strings.Fields(strings.ToLower(name)) {
		switch part {
		case "dim", "faint":
			style = style.Faint(true)
		case "bold":
			style = style.Bold(true)
		case "none", "default":
		default:
			if idx, ok := namedColors[part]; ok {
				style = style.Foreground(lipgloss.Color(idx))
			} else {
				style = style.Foreground(lipgloss.Color(part))
			}
		}
	}
	return style
}

// Enabled reports whether styling is applied
func (p *Palette) Enabled() bool {
	return p != nil && p.enabled
}

// Status styles text with the colour of s
func (p *Palette) Status(s status.Status, text string) string {
	if !p.Enabled() || text == "" {
		return text
	}
	if style, ok := p.statuses[s]; ok {
		return style.Render(text)
	}
	return text
}

// Element styles text with the colour of e
func (p *Palette) Element(e theme.Element, text string) string {
	if !p.Enabled() || text == "" {
		return text
	}
	if style, ok := p.elements[e]; ok {
		return style.Render(text)
	}
	return text
}
