package topics

import (
	"github.com/charmbracelet/glamour"
)

// Renderer formats topic content for the terminal
type Renderer interface {
	// Render takes raw content and its file extension and returns the text to print
	Render(content string, ext string) (string, error)
}

// PlainRenderer returns content as-is
type PlainRenderer struct{}

// Render returns the content unchanged
func (r PlainRenderer) Render(content string, ext string) (string, error) {
	return content, nil
}

// GlamourRenderer renders markdown with glamour. Other formats pass through.
type GlamourRenderer struct {
	// Styled selects the auto-detected dark/light style; otherwise the
	// colourless "notty" style is used.
	Styled bool
	// Width wraps output; 0 leaves glamour's default
	Width int
}

// Render converts markdown to terminal output
func (r GlamourRenderer) Render(content string, ext string) (string, error) {
	if ext != ".md" {
		return content, nil
	}

	var options []glamour.TermRendererOption
	if r.Styled {
		options = append(options, glamour.WithAutoStyle())
	} else {
		options = append(options, glamour.WithStandardStyle("notty"))
	}
	if r.Width > 0 {
		options = append(options, glamour.WithWordWrap(r.Width))
	}

	renderer, err := glamour.NewTermRenderer(options...)
	if err != nil {
		return "", err
	}
	return renderer.Render(content)
}
