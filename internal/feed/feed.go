// Package feed holds the reader's notification feed: a cached page of the
// most recent notifications, an unread counter, and the panel visibility.
//
// The cache is replaced wholesale on every refresh. Read, delete and
// mark-all-read actions are confirmed by the backend first and then applied
// locally, so the UI stays current without a re-fetch. Failures are logged
// and leave the state untouched.
package feed

import (
	"context"
	gosync "sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/novelbell/internal/model"
)

// DefaultPageSize is the number of notifications kept in the cache.
const DefaultPageSize = 10

// Remote is the subset of the platform API the feed talks to.
// *api.Client satisfies it.
type Remote interface {
	ListNotifications(ctx context.Context, limit, skip int) ([]model.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id string) (*model.Notification, error)
	MarkAllRead(ctx context.Context) error
	DeleteNotification(ctx context.Context, id string) error
}

// Router takes the reader to a notification's link.
type Router interface {
	Navigate(link string)
}

// State is a point-in-time copy of the feed for rendering.
type State struct {
	Notifications []model.Notification
	UnreadCount   int
	IsOpen        bool
	IsLoading     bool
}

// Option configures a Feed.
type Option func(*Feed)

// WithPageSize overrides the number of notifications fetched per refresh.
func WithPageSize(n int) Option {
	return func(f *Feed) {
		if n > 0 {
			f.pageSize = n
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(f *Feed) {
		if l != nil {
			f.log = l
		}
	}
}

// Feed is the notification feed. All state is guarded by mu; remote calls
// are made without holding it, so rendering never waits on the network.
type Feed struct {
	remote   Remote
	router   Router
	log      logrus.FieldLogger
	pageSize int

	mu            gosync.Mutex
	notifications []model.Notification
	unreadCount   int
	isOpen        bool
	isLoading     bool
}

// New creates an empty, closed feed.
func New(remote Remote, router Router, opts ...Option) *Feed {
	f := &Feed{
		remote:   remote,
		router:   router,
		log:      logrus.StandardLogger(),
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Snapshot returns a copy of the current state.
func (f *Feed) Snapshot() State {
	f.mu.Lock()
	defer f.mu.Unlock()

	list := make([]model.Notification, len(f.notifications))
	copy(list, f.notifications)
	return State{
		Notifications: list,
		UnreadCount:   f.unreadCount,
		IsOpen:        f.isOpen,
		IsLoading:     f.isLoading,
	}
}

// Refresh fetches the latest page and the unread count concurrently and
// replaces the cached state with the results. On error the state is left
// as it was. Overlapping refreshes are last-write-wins.
func (f *Feed) Refresh(ctx context.Context) error {
	var (
		list  []model.Notification
		count int
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list, err = f.remote.ListNotifications(gCtx, f.pageSize, 0)
		return err
	})
	g.Go(func() error {
		var err error
		count, err = f.remote.UnreadCount(gCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		f.log.WithError(err).WithField("op", "refresh").Warn("failed to fetch notifications")
		return err
	}

	if list == nil {
		list = []model.Notification{}
	}
	if count < 0 {
		count = 0
	}

	f.mu.Lock()
	f.notifications = list
	f.unreadCount = count
	f.mu.Unlock()
	return nil
}

// Open shows the panel.
func (f *Feed) Open() {
	f.mu.Lock()
	f.isOpen = true
	f.mu.Unlock()
}

// Close hides the panel.
func (f *Feed) Close() {
	f.mu.Lock()
	f.isOpen = false
	f.mu.Unlock()
}

// Toggle flips panel visibility and returns the new value.
func (f *Feed) Toggle() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.isOpen = !f.isOpen
	return f.isOpen
}

// PointerDown reports a pointer press. A press outside the panel closes it;
// anything else is ignored.
func (f *Feed) PointerDown(insidePanel bool) {
	if insidePanel {
		return
	}
	f.mu.Lock()
	if f.isOpen {
		f.isOpen = false
	}
	f.mu.Unlock()
}

// Select handles the reader picking a notification. An unread one is marked
// read remotely first and, on success, locally. Whatever the outcome, the
// panel closes and the reader is taken to the notification's link. The
// returned error is the mark-read failure, if any.
func (f *Feed) Select(ctx context.Context, n model.Notification) error {
	var markErr error
	if !n.IsRead {
		if _, err := f.remote.MarkRead(ctx, n.ID); err != nil {
			f.log.WithError(err).
				WithFields(logrus.Fields{"op": "mark_read", "id": n.ID}).
				Warn("failed to mark notification as read")
			markErr = err
		} else {
			f.mu.Lock()
			// The cache decides, so overlapping selects of one entry count once.
			switch i := f.indexOf(n.ID); {
			case i < 0:
				f.decrementUnread()
			case !f.notifications[i].IsRead:
				f.notifications[i].IsRead = true
				f.decrementUnread()
			}
			f.mu.Unlock()
		}
	}

	f.Close()
	if f.router != nil {
		f.router.Navigate(n.Link)
	}
	return markErr
}

// Reset drops the cached page and unread count, e.g. after the reader
// logs out. The panel is closed.
func (f *Feed) Reset() {
	f.mu.Lock()
	f.notifications = []model.Notification{}
	f.unreadCount = 0
	f.isOpen = false
	f.mu.Unlock()
}

// MarkAllRead marks every notification read. It does nothing when there
// is nothing unread or when a previous call is still in flight.
func (f *Feed) MarkAllRead(ctx context.Context) error {
	f.mu.Lock()
	if f.isLoading || f.unreadCount == 0 {
		f.mu.Unlock()
		return nil
	}
	f.isLoading = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.isLoading = false
		f.mu.Unlock()
	}()

	if err := f.remote.MarkAllRead(ctx); err != nil {
		f.log.WithError(err).WithField("op", "mark_all_read").Warn("failed to mark all notifications as read")
		return err
	}

	f.mu.Lock()
	for i := range f.notifications {
		f.notifications[i].IsRead = true
	}
	f.unreadCount = 0
	f.mu.Unlock()
	return nil
}

// Delete removes a notification remotely and then from the cache. Deleting
// an unread notification lowers the unread count by one.
func (f *Feed) Delete(ctx context.Context, id string) error {
	if err := f.remote.DeleteNotification(ctx, id); err != nil {
		f.log.WithError(err).
			WithFields(logrus.Fields{"op": "delete", "id": id}).
			Warn("failed to delete notification")
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.indexOf(id)
	if i < 0 {
		return nil
	}
	wasUnread := !f.notifications[i].IsRead
	f.notifications = append(f.notifications[:i:i], f.notifications[i+1:]...)
	if wasUnread {
		f.decrementUnread()
	}
	return nil
}

// indexOf returns the cache index of id, or -1. Callers hold mu.
func (f *Feed) indexOf(id string) int {
	for i := range f.notifications {
		if f.notifications[i].ID == id {
			return i
		}
	}
	return -1
}

// decrementUnread lowers the counter by one, never below zero. Callers hold mu.
func (f *Feed) decrementUnread() {
	if f.unreadCount > 0 {
		f.unreadCount--
	}
}
