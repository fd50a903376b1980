package bell

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/novelbell/internal/feed"
	"github.com/nhle/novelbell/internal/keys"
	"github.com/nhle/novelbell/internal/model"
	"github.com/nhle/novelbell/internal/theme"
)

// actionTimeout bounds a single read/delete/mark-all request.
const actionTimeout = 15 * time.Second

// maxPanelWidth caps the dropdown width on wide terminals.
const maxPanelWidth = 60

// ActionDoneMsg is sent when a feed action started from the panel finishes.
type ActionDoneMsg struct {
	Op  string
	Err error
}

// Model is the notification dropdown: a bell with an unread badge in the
// header and, when open, a panel listing the cached notifications.
type Model struct {
	feed   *feed.Feed
	keys   *keys.KeyMap
	cursor int
	width  int
	top    int
	now    func() time.Time
}

// New creates a panel over f. top is the row the panel starts on, i.e.
// the header height.
func New(f *feed.Feed, k *keys.KeyMap, width, top int) Model {
	return Model{
		feed:  f,
		keys:  k,
		width: width,
		top:   top,
		now:   time.Now,
	}
}

// SetSize updates the terminal width.
func (m *Model) SetSize(width int) {
	m.width = width
}

// SetClock overrides the time source used for relative ages.
func (m *Model) SetClock(now func() time.Time) {
	m.now = now
}

// IsOpen reports whether the panel is visible.
func (m Model) IsOpen() bool {
	return m.feed.Snapshot().IsOpen
}

// Update handles keys and mouse presses for the panel.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		if m.onBell(msg.X, msg.Y) {
			m.feed.Toggle()
			m.cursor = 0
			return m, nil
		}
		m.feed.PointerDown(m.insidePanel(msg.X, msg.Y))
		return m, nil
	}

	return m, nil
}

// handleKey processes key input.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Bell) {
		m.feed.Toggle()
		m.cursor = 0
		return m, nil
	}

	st := m.feed.Snapshot()
	if !st.IsOpen {
		return m, nil
	}
	m.cursor = clamp(m.cursor, len(st.Notifications))

	switch {
	case key.Matches(msg, m.keys.Back):
		m.feed.Close()
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(st.Notifications)-1 {
			m.cursor++
		}
		return m, nil

	case key.Matches(msg, m.keys.Select):
		if len(st.Notifications) == 0 {
			return m, nil
		}
		n := st.Notifications[m.cursor]
		return m, m.run("select", func(ctx context.Context) error {
			return m.feed.Select(ctx, n)
		})

	case key.Matches(msg, m.keys.Delete):
		if len(st.Notifications) == 0 {
			return m, nil
		}
		id := st.Notifications[m.cursor].ID
		return m, m.run("delete", func(ctx context.Context) error {
			return m.feed.Delete(ctx, id)
		})

	case key.Matches(msg, m.keys.ReadAll):
		if st.UnreadCount == 0 || st.IsLoading {
			return m, nil
		}
		return m, m.run("mark_all_read", m.feed.MarkAllRead)
	}

	return m, nil
}

// run wraps a feed action in a tea.Cmd.
func (m Model) run(op string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return ActionDoneMsg{Op: op, Err: fn(ctx)}
	}
}

// Bell renders the header bell with the unread badge.
func (m Model) Bell() string {
	st := m.feed.Snapshot()
	if st.UnreadCount == 0 {
		return "🔔"
	}
	count := fmt.Sprintf("%d", st.UnreadCount)
	if st.UnreadCount > 99 {
		count = "99+"
	}
	return "🔔 " + theme.BadgeStyle.Render(count)
}

// View renders the dropdown, or an empty string when closed.
func (m Model) View() string {
	st := m.feed.Snapshot()
	if !st.IsOpen {
		return ""
	}
	return m.renderPanel(st)
}

// renderPanel draws the framed list for st.
func (m Model) renderPanel(st feed.State) string {
	inner := m.panelWidth() - 4
	if inner < 10 {
		inner = 10
	}

	title := lipgloss.NewStyle().Bold(true).Render("Notifications")
	var action string
	switch {
	case st.IsLoading:
		action = theme.DimmedStyle.Render("marking…")
	case st.UnreadCount > 0:
		action = theme.HelpStyle.Render("A mark all read")
	default:
		action = theme.DimmedStyle.Render("all caught up")
	}
	gap := inner - lipgloss.Width(title) - lipgloss.Width(action)
	if gap < 1 {
		gap = 1
	}
	lines := []string{title + strings.Repeat(" ", gap) + action, ""}

	if len(st.Notifications) == 0 {
		lines = append(lines, theme.DimmedStyle.Render("No notifications yet"))
	}

	cursor := clamp(m.cursor, len(st.Notifications))
	now := m.now()
	for i, n := range st.Notifications {
		lines = append(lines, renderItem(n, now, inner, i == cursor))
	}

	return theme.PanelStyle.
		Width(m.panelWidth() - 2).
		Render(strings.Join(lines, "\n"))
}

// renderItem draws one notification as two lines: the headline with the
// age, then the message.
func renderItem(n model.Notification, now time.Time, width int, selected bool) string {
	dot := " "
	if !n.IsRead {
		dot = theme.UnreadDotStyle.Render("●")
	}

	age := theme.DimmedStyle.Render(feed.RelativeAge(now, n.CreatedAt))
	headWidth := width - lipgloss.Width(age) - 6
	if headWidth < 1 {
		headWidth = 1
	}

	head := theme.TypeStyle(n.Type).Render(n.Type.Icon()) + " " +
		lipgloss.NewStyle().MaxWidth(headWidth).Render(n.Title)
	msg := lipgloss.NewStyle().MaxWidth(width - 4).Render(n.Message)

	if n.IsRead {
		head = theme.DimmedStyle.Render(head)
	}
	msg = theme.DimmedStyle.Render(msg)

	line := fmt.Sprintf("%s %s  %s\n  %s", dot, head, age, msg)
	if selected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

// panelWidth is the outer width of the dropdown.
func (m Model) panelWidth() int {
	if m.width <= 0 || m.width > maxPanelWidth {
		return maxPanelWidth
	}
	return m.width
}

// panelRect returns the on-screen rectangle of the open panel.
func (m Model) panelRect() (x, y, w, h int) {
	w = m.panelWidth()
	x = m.width - w
	if x < 0 {
		x = 0
	}
	h = lipgloss.Height(m.renderPanel(m.feed.Snapshot()))
	return x, m.top, w, h
}

// insidePanel reports whether (x, y) falls on the open panel.
func (m Model) insidePanel(x, y int) bool {
	if !m.IsOpen() {
		return false
	}
	px, py, pw, ph := m.panelRect()
	return x >= px && x < px+pw && y >= py && y < py+ph
}

// onBell reports whether (x, y) hits the bell in the header's right corner.
func (m Model) onBell(x, y int) bool {
	if y >= m.top {
		return false
	}
	return x >= m.width-lipgloss.Width(theme.HeaderStyle.Render(m.Bell()))
}

func clamp(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
