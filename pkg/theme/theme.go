// Package theme holds the glyphs and colour names the renderer uses for each
// activity status. The built-in theme is embedded from theme.yaml; callers
// may load their own.
package theme

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/beout/pkg/status"
)

//go:embed theme.yaml
var embeddedTheme []byte

// Element names a styled part of a row that is not a status.
type Element string

const (
	ElementLog     Element = "log"
	ElementElapsed Element = "elapsed"
	ElementETA     Element = "eta"
	ElementBox     Element = "box"
	ElementCounter Element = "counter"
)

// Theme is the resolved set of glyphs and colour names.
type Theme struct {
	Glyphs          map[status.Status]string
	Spinner         []string
	StatusColors    map[status.Status]string
	ElementColors   map[Element]string
	Ellipsis        string
	DetailSeparator string
}

// fileFormat is the YAML shape of a theme file
type fileFormat struct {
	Glyphs          map[string]string `yaml:"glyphs"`
	Spinner         []string          `yaml:"spinner"`
	Colors          map[string]string `yaml:"colors"`
	Ellipsis        string            `yaml:"ellipsis"`
	DetailSeparator string            `yaml:"detail_separator"`
}

var builtin = mustBuiltin()

func mustBuiltin() Theme {
	t, err := decode(fallback(), embeddedTheme)
	if err != nil {
		panic(fmt.Sprintf("theme: embedded theme.yaml is invalid: %v", err))
	}
	return t
}

// Default returns a copy of the built-in theme
func Default() Theme {
	return builtin.clone()
}

// Load reads a theme file and layers it over the built-in theme
func Load(path string) (Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Theme{}, fmt.Errorf("failed to read theme file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes theme YAML. Keys it leaves out keep their built-in values,
// so a file may override a single glyph.
func Parse(data []byte) (Theme, error) {
	return decode(builtin.clone(), data)
}

func decode(t Theme, data []byte) (Theme, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Theme{}, fmt.Errorf("failed to parse theme: %w", err)
	}

	for name, glyph := range f.Glyphs {
		st, err := status.Parse(name)
		if err != nil {
			return Theme{}, fmt.Errorf("theme glyphs: %w", err)
		}
		if st == status.Running {
			return Theme{}, fmt.Errorf("theme glyphs: running uses the spinner list")
		}
		t.Glyphs[st] = glyph
	}
	if len(f.Spinner) > 0 {
		t.Spinner = append([]string(nil), f.Spinner...)
	}
	for name, color := range f.Colors {
		if st, err := status.Parse(name); err == nil {
			t.StatusColors[st] = color
			continue
		}
		switch el := Element(name); el {
		case ElementLog, ElementElapsed, ElementETA, ElementBox, ElementCounter:
			t.ElementColors[el] = color
		default:
			return Theme{}, fmt.Errorf("theme colors: unknown key %q", name)
		}
	}
	if f.Ellipsis != "" {
		t.Ellipsis = f.Ellipsis
	}
	if f.DetailSeparator != "" {
		t.DetailSeparator = f.DetailSeparator
	}
	return t, nil
}

// fallback is the theme used before the embedded file is parsed
func fallback() Theme {
	return Theme{
		Glyphs:          map[status.Status]string{},
		Spinner:         append([]string(nil), spinner.MiniDot.Frames...),
		StatusColors:    map[status.Status]string{},
		ElementColors:   map[Element]string{},
		Ellipsis:        "…",
		DetailSeparator: " - ",
	}
}

func (t Theme) clone() Theme {
	c := t
	c.Glyphs = make(map[status.Status]string, len(t.Glyphs))
	for k, v := range t.Glyphs {
		c.Glyphs[k] = v
	}
	c.Spinner = append([]string(nil), t.Spinner...)
	c.StatusColors = make(map[status.Status]string, len(t.StatusColors))
	for k, v := range t.StatusColors {
		c.StatusColors[k] = v
	}
	c.ElementColors = make(map[Element]string, len(t.ElementColors))
	for k, v := range t.ElementColors {
		c.ElementColors[k] = v
	}
	return c
}

// Glyph returns the status glyph. Running activities use the spinner frame
// selected by frame.
func (t Theme) Glyph(s status.Status, frame int) string {
	if s == status.Running {
		if len(t.Spinner) == 0 {
			return "*"
		}
		if frame < 0 {
			frame = -frame
		}
		return t.Spinner[frame%len(t.Spinner)]
	}
	if g, ok := t.Glyphs[s]; ok {
		return g
	}
	return "?"
}
