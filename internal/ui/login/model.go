package login

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/novelbell/internal/theme"
)

// SubmittedMsg carries the token entered by the reader.
type SubmittedMsg struct {
	Token string
}

// CancelMsg is dispatched when the reader aborts the form.
type CancelMsg struct{}

// formBindings keeps the field value on the heap so huh's Value pointer
// survives Bubble Tea model copies.
type formBindings struct {
	token string
}

// Model is the bearer-token login form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	width  int
	height int
}

// New creates a login form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// Start resets the form and returns its init command.
func (m *Model) Start() tea.Cmd {
	m.fb.token = ""
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("API token").
				Description("Paste the token from your account settings.").
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.token).
				Validate(validateToken),
		),
	).WithWidth(m.formWidth())
	return m.form.Init()
}

// Update handles messages for the login form.
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
		token := strings.TrimSpace(m.fb.token)
		m.form = nil
		return m, func() tea.Msg { return SubmittedMsg{Token: token} }
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the login form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render("Log in") + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 80 {
		w = 80
	}
	return w
}

// validateToken accepts anything shaped like a JWT: three dot-separated
// non-empty segments.
func validateToken(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("token is required")
	}
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return fmt.Errorf("token must have three dot-separated parts")
	}
	for _, p := range parts {
		if p == "" {
			return fmt.Errorf("token has an empty segment")
		}
	}
	return nil
}
