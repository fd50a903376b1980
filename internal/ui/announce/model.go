package announce

import (
	"fmt"
	"net/url"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/novelbell/internal/model"
	"github.com/nhle/novelbell/internal/theme"
)

// SubmittedMsg carries the announcement an admin filled in.
type SubmittedMsg struct {
	Announcement model.Announcement
}

// CancelMsg is dispatched when the form is aborted.
type CancelMsg struct{}

type formBindings struct {
	title   string
	message string
	link    string
}

// Model is the admin form for broadcasting a system announcement.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	width  int
	height int
}

// New creates an announcement form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// Start resets the form and returns its init command.
func (m *Model) Start() tea.Cmd {
	m.fb.title = ""
	m.fb.message = ""
	m.fb.link = ""
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Placeholder("Scheduled maintenance").
				Value(&m.fb.title).
				Validate(validateRequired("Title")),
			huh.NewText().
				Title("Message").
				Placeholder("What should every reader know?").
				Value(&m.fb.message).
				Validate(validateRequired("Message")),
			huh.NewInput().
				Title("Link").
				Placeholder("/announcements/... (optional)").
				Value(&m.fb.link).
				Validate(validateOptionalLink),
			huh.NewConfirm().
				Title("Send to all readers?").
				Affirmative("Send").
				Negative("Cancel").
				Validate(func(ok bool) error {
					if !ok {
						return fmt.Errorf("press esc to discard")
					}
					return nil
				}),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
	return m.form.Init()
}

// Update handles messages for the announcement form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		a := m.announcement()
		m.form = nil
		return m, func() tea.Msg { return SubmittedMsg{Announcement: a} }
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the announcement form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render("New Announcement") + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) announcement() model.Announcement {
	return model.Announcement{
		Title:   strings.TrimSpace(m.fb.title),
		Message: strings.TrimSpace(m.fb.message),
		Link:    strings.TrimSpace(m.fb.link),
	}
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 12 {
		h = 12
	}
	return h
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

// validateOptionalLink accepts an empty value, a site-relative path or an
// absolute http(s) URL.
func validateOptionalLink(s string) error {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "/") {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("link must be a path or an http(s) URL")
	}
	return nil
}
