package app

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/nhle/novelbell/internal/api"
	"github.com/nhle/novelbell/internal/feed"
	"github.com/nhle/novelbell/internal/keys"
	"github.com/nhle/novelbell/internal/model"
	"github.com/nhle/novelbell/internal/session"
	appsync "github.com/nhle/novelbell/internal/sync"
	"github.com/nhle/novelbell/internal/theme"
	"github.com/nhle/novelbell/internal/ui"
	"github.com/nhle/novelbell/internal/ui/announce"
	"github.com/nhle/novelbell/internal/ui/bell"
	helpview "github.com/nhle/novelbell/internal/ui/help"
	"github.com/nhle/novelbell/internal/ui/login"
)

// requestTimeout bounds announcement requests started from the UI.
const requestTimeout = 15 * time.Second

// Announcer publishes system announcements. *api.Client satisfies it.
type Announcer interface {
	CreateAnnouncement(ctx context.Context, a model.Announcement) error
}

type loginResultMsg struct {
	claims session.Claims
	err    error
}

type logoutResultMsg struct {
	err error
}

type announceResultMsg struct {
	err error
}

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewHome ViewState = iota
	ViewHelp
	ViewLogin
	ViewAnnounce
)

// Deps are the long-lived collaborators the root model drives.
type Deps struct {
	Feed      *feed.Feed
	Poller    *appsync.Poller
	Session   *session.Session
	Announcer Announcer
	Router    *Router
	Log       logrus.FieldLogger
}

// Model is the root Bubble Tea model: it routes between views, owns the
// notification panel and reacts to poller results.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	feed         *feed.Feed
	poller       *appsync.Poller
	session      *session.Session
	announcer    Announcer
	router       *Router
	log          logrus.FieldLogger
	bell         bell.Model
	helpView     helpview.Model
	loginView    login.Model
	announceView announce.Model
	ready        bool
	lastSync     time.Time
	syncWarning  string
	notice       string
	now          func() time.Time
}

// New creates the root application model.
func New(d Deps) Model {
	k := keys.DefaultKeyMap()
	log := d.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	m := Model{
		currentView:  ViewHome,
		layout:       ui.NewLayout(80, 24),
		keys:         k,
		feed:         d.Feed,
		poller:       d.Poller,
		session:      d.Session,
		announcer:    d.Announcer,
		router:       d.Router,
		log:          log,
		helpView:     helpview.New(k, 80, 24),
		loginView:    login.New(80, 24),
		announceView: announce.New(80, 24),
		now:          time.Now,
	}
	m.bell = bell.New(d.Feed, k, 80, m.layout.HeaderHeight)

	if !m.session.LoggedIn() {
		m.currentView = ViewLogin
	}
	return m
}

// Init starts polling and, for a reader without a saved token, the login
// form.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.poller.Start()}
	if m.currentView == ViewLogin {
		cmds = append(cmds, m.loginView.Start())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentHeight := m.layout.ContentHeight()
		m.bell.SetSize(msg.Width)
		m.helpView.SetSize(msg.Width, contentHeight)
		m.loginView.SetSize(msg.Width, contentHeight)
		m.announceView.SetSize(msg.Width, contentHeight)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case appsync.RefreshedMsg:
		m.lastSync = msg.At
		m.syncWarning = describeSyncError(msg.Error)
		return m, m.poller.WaitForNextResult()

	case bell.ActionDoneMsg:
		if msg.Err != nil {
			if api.IsAuthError(msg.Err) {
				m.syncWarning = describeSyncError(msg.Err)
			} else {
				m.notice = fmt.Sprintf("⚠ %s failed: %v", actionLabel(msg.Op), msg.Err)
			}
			return m, nil
		}
		switch msg.Op {
		case "mark_all_read":
			m.notice = "All caught up"
		case "delete":
			m.notice = "Notification deleted"
		default:
			m.notice = ""
		}
		return m, nil

	case login.SubmittedMsg:
		m.currentView = ViewHome
		return m, m.login(msg.Token)

	case loginResultMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("⚠ login failed: %v", msg.err)
			return m, nil
		}
		m.syncWarning = ""
		m.notice = "Logged in"
		if msg.claims.Subject != "" {
			m.notice = "Logged in as " + msg.claims.Subject
		}
		m.poller.RefreshNow()
		return m, nil

	case logoutResultMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("⚠ logout failed: %v", msg.err)
			return m, nil
		}
		m.feed.Reset()
		m.notice = "Logged out"
		return m, nil

	case login.CancelMsg, announce.CancelMsg:
		m.currentView = ViewHome
		return m, nil

	case announce.SubmittedMsg:
		m.currentView = ViewHome
		m.notice = "Sending announcement…"
		return m, m.createAnnouncement(msg.Announcement)

	case announceResultMsg:
		if msg.err != nil {
			m.notice = fmt.Sprintf("⚠ announcement failed: %v", msg.err)
			return m, nil
		}
		m.notice = "Announcement sent"
		m.poller.RefreshNow()
		return m, nil

	case tea.MouseMsg:
		if m.currentView != ViewHome {
			return m, nil
		}
		var cmd tea.Cmd
		m.bell, cmd = m.bell.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.poller.Stop()
			return m, tea.Quit
		}

		switch m.currentView {
		case ViewLogin, ViewAnnounce:
			if key.Matches(msg, m.keys.Back) {
				m.currentView = ViewHome
				return m, nil
			}
			return m.updateActiveView(msg)

		case ViewHelp:
			if key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Back) {
				m.currentView = m.previousView
			}
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			m.poller.Stop()
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.previousView = m.currentView
			m.currentView = ViewHelp
			return m, nil

		case key.Matches(msg, m.keys.Refresh):
			m.poller.RefreshNow()
			m.notice = "Refreshing…"
			return m, nil

		case key.Matches(msg, m.keys.Login):
			m.previousView = m.currentView
			m.currentView = ViewLogin
			return m, m.loginView.Start()

		case key.Matches(msg, m.keys.Logout):
			if !m.session.LoggedIn() {
				return m, nil
			}
			return m, m.logout()

		case key.Matches(msg, m.keys.Announce):
			if !m.session.IsAdmin() {
				m.notice = "⚠ announcements need an admin account"
				return m, nil
			}
			m.feed.Close()
			m.previousView = m.currentView
			m.currentView = ViewAnnounce
			return m, m.announceView.Start()
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewHome:
		m.bell, cmd = m.bell.Update(msg)
	case ViewLogin:
		m.loginView, cmd = m.loginView.Update(msg)
	case ViewAnnounce:
		m.announceView, cmd = m.announceView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("novelbell", m.bell.Bell())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.statusText())

	return m.layout.Compose(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewHelp:
		return m.helpView.View()
	case ViewLogin:
		return m.loginView.View()
	case ViewAnnounce:
		return m.announceView.View()
	}

	home := m.renderHome()
	if m.bell.IsOpen() {
		return m.layout.PlaceTopRight(home, m.bell.View())
	}
	return home
}

// renderHome shows who is signed in, where the last notification led and
// when the feed last synced.
func (m Model) renderHome() string {
	style := lipgloss.NewStyle().Padding(1, 2)

	who := theme.DimmedStyle.Render("Not logged in. Press L to log in.")
	if claims, err := m.session.Claims(); err == nil {
		who = "Reading as " + lipgloss.NewStyle().Bold(true).Render(claims.Subject)
		if claims.Role != "" {
			who += theme.DimmedStyle.Render(" (" + claims.Role + ")")
		}
		if m.session.Expired(m.now()) {
			who += " " + theme.WarningStyle.Render("token expired")
		}
	}

	page := theme.DimmedStyle.Render("Open a notification to follow its link.")
	if m.router != nil {
		if last, n := m.router.Last(); n > 0 {
			page = "Last opened: " + lipgloss.NewStyle().Foreground(theme.ColorBlue).Render(last)
		}
	}

	synced := theme.DimmedStyle.Render("Waiting for first sync…")
	if !m.lastSync.IsZero() {
		synced = theme.DimmedStyle.Render("Synced " + feed.RelativeAge(m.now(), m.lastSync))
	}

	return style.Render(lipgloss.JoinVertical(lipgloss.Left, who, "", page, "", synced))
}

// statusText returns the status bar contents; problems take priority
// over key hints.
func (m Model) statusText() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewLogin, ViewAnnounce:
		return "enter submit | esc cancel"
	}

	if m.syncWarning != "" {
		return theme.WarningStyle.Render(m.syncWarning)
	}
	if m.notice != "" {
		return m.notice
	}
	return m.helpView.Short()
}

// describeSyncError turns a refresh failure into a status bar line.
func describeSyncError(err error) string {
	switch {
	case err == nil:
		return ""
	case api.IsAuthError(err):
		return "⚠ not authorized, press L to log in"
	case api.IsNetworkError(err):
		return "⚠ backend unreachable, retrying"
	default:
		return fmt.Sprintf("⚠ sync failed: %v", err)
	}
}

func actionLabel(op string) string {
	switch op {
	case "select":
		return "mark as read"
	case "mark_all_read":
		return "mark all read"
	default:
		return op
	}
}

// login returns a command that stores token in the session.
func (m Model) login(token string) tea.Cmd {
	s := m.session
	log := m.log
	return func() tea.Msg {
		if err := s.Login(token); err != nil {
			log.WithError(err).Warn("login")
			return loginResultMsg{err: err}
		}
		claims, err := s.Claims()
		if err != nil {
			log.WithError(err).Debug("token claims unreadable")
		}
		return loginResultMsg{claims: claims}
	}
}

// logout returns a command that clears the session.
func (m Model) logout() tea.Cmd {
	s := m.session
	return func() tea.Msg {
		return logoutResultMsg{err: s.Logout()}
	}
}

// createAnnouncement returns a command that publishes a.
func (m Model) createAnnouncement(a model.Announcement) tea.Cmd {
	client := m.announcer
	log := m.log
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		err := client.CreateAnnouncement(ctx, a)
		if err != nil {
			log.WithError(err).WithField("title", a.Title).Warn("create announcement")
		}
		return announceResultMsg{err: err}
	}
}
