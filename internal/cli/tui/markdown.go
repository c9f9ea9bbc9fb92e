package tui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// MarkdownRenderer renders transcript prose for the terminal
type MarkdownRenderer struct {
	renderer *glamour.TermRenderer
	width    int
}

// NewMarkdownRenderer creates a renderer wrapping at width
func NewMarkdownRenderer(width int) (*MarkdownRenderer, error) {
	r, err := newTermRenderer(width)
	if err != nil {
		return nil, err
	}
	return &MarkdownRenderer{renderer: r, width: width}, nil
}

// dark style is set explicitly so glamour never queries the terminal
// background while bubbletea owns stdin
func newTermRenderer(width int) (*glamour.TermRenderer, error) {
	return glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(width),
	)
}

// Render renders markdown content to styled terminal output
func (m *MarkdownRenderer) Render(content string) (string, error) {
	out, err := m.renderer.Render(content)
	if err != nil {
		return "", err
	}
	return strings.Trim(out, "\n"), nil
}

// Width returns the current wrap width
func (m *MarkdownRenderer) Width() int {
	return m.width
}

// UpdateWidth rebuilds the renderer when the wrap width changes
func (m *MarkdownRenderer) UpdateWidth(width int) error {
	if width == m.width {
		return nil
	}
	r, err := newTermRenderer(width)
	if err != nil {
		return err
	}
	m.renderer = r
	m.width = width
	return nil
}
