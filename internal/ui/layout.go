package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/novelbell/internal/theme"
)

// Layout tracks the terminal size and the fixed chrome around the content.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with one-line header and status bar.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentHeight returns the rows left between header and status bar.
func (l Layout) ContentHeight() int {
	h := l.Height - l.HeaderHeight - l.StatusBarHeight
	if h < 0 {
		return 0
	}
	return h
}

// RenderHeader renders the title on the left and the bell on the right,
// with the header background filling the gap.
func (l Layout) RenderHeader(title string, bell string) string {
	left := theme.HeaderStyle.Render(title)
	right := theme.HeaderStyle.Render(bell)

	gap := l.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	filler := lipgloss.NewStyle().
		Width(gap).
		Background(theme.HeaderStyle.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, left, filler, right)
}

// RenderStatusBar renders the bottom bar padded to the full width.
func (l Layout) RenderStatusBar(text string) string {
	return theme.StatusBarStyle.
		Width(l.Width).
		MaxWidth(l.Width).
		Render(text)
}

// Compose stacks header, content and status bar, padding the content so
// the status bar stays on the last row.
func (l Layout) Compose(header, content, statusBar string) string {
	body := lipgloss.NewStyle().
		Height(l.ContentHeight()).
		MaxHeight(l.ContentHeight()).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, body, statusBar)
}

// PlaceTopRight pins panel to the right edge of the content area, with
// base filling the columns to its left.
func (l Layout) PlaceTopRight(base, panel string) string {
	pw := lipgloss.Width(panel)
	lw := l.Width - pw
	if lw <= 0 {
		return lipgloss.PlaceHorizontal(l.Width, lipgloss.Right, panel)
	}
	left := lipgloss.NewStyle().
		Width(lw).
		MaxWidth(lw).
		Render(base)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, panel)
}
