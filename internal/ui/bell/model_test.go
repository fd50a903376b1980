package bell

import (
	"context"
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/novelbell/internal/feed"
	"github.com/nhle/novelbell/internal/keys"
	"github.com/nhle/novelbell/internal/model"
)

type stubRemote struct {
	list     []model.Notification
	count    int
	marked   []string
	allCalls int
}

func (s *stubRemote) ListNotifications(context.Context, int, int) ([]model.Notification, error) {
	return s.list, nil
}

func (s *stubRemote) UnreadCount(context.Context) (int, error) { return s.count, nil }

func (s *stubRemote) MarkRead(_ context.Context, id string) (*model.Notification, error) {
	s.marked = append(s.marked, id)
	return &model.Notification{ID: id, IsRead: true}, nil
}

func (s *stubRemote) MarkAllRead(context.Context) error {
	s.allCalls++
	return nil
}

func (s *stubRemote) DeleteNotification(context.Context, string) error { return nil }

type stubRouter struct{ links []string }

func (r *stubRouter) Navigate(link string) { r.links = append(r.links, link) }

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}
}

func newPanel(t *testing.T, remote *stubRemote) (Model, *feed.Feed, *stubRouter) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	router := &stubRouter{}
	f := feed.New(remote, router, feed.WithLogger(log))
	require.NoError(t, f.Refresh(context.Background()))

	m := New(f, keys.DefaultKeyMap(), 100, 1)
	now := time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)
	m.SetClock(func() time.Time { return now })
	return m, f, router
}

func sampleList() []model.Notification {
	at := time.Date(2026, time.May, 1, 11, 55, 0, 0, time.UTC)
	return []model.Notification{
		{ID: "a", Type: model.NotificationNewChapter, Title: "Chapter 3 is out", Message: "The Long Road", Link: "/novels/road/3", CreatedAt: at},
		{ID: "b", Type: model.NotificationCommentReply, Title: "New reply", Message: "Agreed!", Link: "/novels/road#c1", IsRead: true, CreatedAt: at.Add(-3 * time.Hour)},
	}
}

func TestBellTogglesPanel(t *testing.T) {
	m, f, _ := newPanel(t, &stubRemote{list: sampleList(), count: 1})

	assert.Empty(t, m.View())
	m, _ = m.Update(runes("b"))
	assert.True(t, f.Snapshot().IsOpen)

	view := m.View()
	assert.Contains(t, view, "Notifications")
	assert.Contains(t, view, "Chapter 3 is out")
	assert.Contains(t, view, "5m ago")
	assert.Contains(t, view, "3h ago")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, f.Snapshot().IsOpen)
}

func TestBellBadge(t *testing.T) {
	m, _, _ := newPanel(t, &stubRemote{list: sampleList(), count: 4})
	assert.Contains(t, m.Bell(), "4")

	m2, _, _ := newPanel(t, &stubRemote{count: 0})
	assert.Equal(t, "🔔", m2.Bell())

	m3, _, _ := newPanel(t, &stubRemote{count: 250})
	assert.Contains(t, m3.Bell(), "99+")
}

func TestSelectMarksAndNavigates(t *testing.T) {
	remote := &stubRemote{list: sampleList(), count: 1}
	m, f, router := newPanel(t, remote)
	m, _ = m.Update(runes("b"))

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	done, ok := cmd().(ActionDoneMsg)
	require.True(t, ok)
	assert.Equal(t, "select", done.Op)
	assert.NoError(t, done.Err)

	assert.Equal(t, []string{"a"}, remote.marked)
	assert.Equal(t, []string{"/novels/road/3"}, router.links)
	assert.False(t, f.Snapshot().IsOpen)
	assert.Zero(t, f.Snapshot().UnreadCount)
}

func TestCursorMovement(t *testing.T) {
	remote := &stubRemote{list: sampleList(), count: 1}
	m, _, router := newPanel(t, remote)
	m, _ = m.Update(runes("b"))
	m, _ = m.Update(runes("j"))
	m, _ = m.Update(runes("j"))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	cmd()

	assert.Empty(t, remote.marked, "second item is already read")
	assert.Equal(t, []string{"/novels/road#c1"}, router.links)
}

func TestMarkAllReadDisabledWithNothingUnread(t *testing.T) {
	remote := &stubRemote{list: sampleList(), count: 0}
	m, _, _ := newPanel(t, remote)
	m, _ = m.Update(runes("b"))

	_, cmd := m.Update(runes("A"))
	assert.Nil(t, cmd)
	assert.Zero(t, remote.allCalls)
	assert.Contains(t, m.View(), "all caught up")
}

func TestMarkAllRead(t *testing.T) {
	remote := &stubRemote{list: sampleList(), count: 1}
	m, f, _ := newPanel(t, remote)
	m, _ = m.Update(runes("b"))

	_, cmd := m.Update(runes("A"))
	require.NotNil(t, cmd)
	cmd()

	assert.Equal(t, 1, remote.allCalls)
	assert.Zero(t, f.Snapshot().UnreadCount)
}

func TestKeysIgnoredWhileClosed(t *testing.T) {
	remote := &stubRemote{list: sampleList(), count: 1}
	m, _, _ := newPanel(t, remote)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	_, cmd = m.Update(runes("d"))
	assert.Nil(t, cmd)
}

func TestClickOutsideCloses(t *testing.T) {
	m, f, _ := newPanel(t, &stubRemote{list: sampleList(), count: 1})
	m, _ = m.Update(runes("b"))

	// The panel hugs the right edge below the header.
	m, _ = m.Update(press(99, 2))
	assert.True(t, f.Snapshot().IsOpen, "click inside keeps the panel open")

	m, _ = m.Update(press(0, 10))
	assert.False(t, f.Snapshot().IsOpen)

	m, _ = m.Update(press(0, 10))
	assert.False(t, f.Snapshot().IsOpen, "click outside while closed stays closed")

	m, _ = m.Update(tea.MouseMsg{X: 0, Y: 10, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	assert.False(t, f.Snapshot().IsOpen)
}

func TestClickOnBellToggles(t *testing.T) {
	m, f, _ := newPanel(t, &stubRemote{list: sampleList(), count: 1})

	m, _ = m.Update(press(99, 0))
	assert.True(t, f.Snapshot().IsOpen)

	_, _ = m.Update(press(99, 0))
	assert.False(t, f.Snapshot().IsOpen)
}
