package feed

import (
	"context"
	"errors"
	"io"
	gosync "sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/novelbell/internal/model"
)

type fakeRemote struct {
	mu gosync.Mutex

	list    []model.Notification
	count   int
	listErr error
	markErr error
	allErr  error
	delErr  error

	// block, when set, is waited on inside MarkAllRead.
	block chan struct{}

	listCalls    int
	lastLimit    int
	lastSkip     int
	markCalls    []string
	markAllCalls int
	deleteCalls  []string
}

func (r *fakeRemote) ListNotifications(_ context.Context, limit, skip int) ([]model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	r.lastLimit, r.lastSkip = limit, skip
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]model.Notification, len(r.list))
	copy(out, r.list)
	return out, nil
}

func (r *fakeRemote) UnreadCount(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count, nil
}

func (r *fakeRemote) MarkRead(_ context.Context, id string) (*model.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markCalls = append(r.markCalls, id)
	if r.markErr != nil {
		return nil, r.markErr
	}
	return &model.Notification{ID: id, IsRead: true}, nil
}

func (r *fakeRemote) MarkAllRead(context.Context) error {
	r.mu.Lock()
	r.markAllCalls++
	block := r.block
	err := r.allErr
	r.mu.Unlock()
	if block != nil {
		<-block
	}
	return err
}

func (r *fakeRemote) DeleteNotification(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteCalls = append(r.deleteCalls, id)
	return r.delErr
}

type fakeRouter struct {
	mu    gosync.Mutex
	links []string
}

func (r *fakeRouter) Navigate(link string) {
	r.mu.Lock()
	r.links = append(r.links, link)
	r.mu.Unlock()
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func sample() []model.Notification {
	now := time.Now()
	return []model.Notification{
		{ID: "n3", Type: model.NotificationNewChapter, Title: "Chapter 12", Link: "/novels/a/12", CreatedAt: now},
		{ID: "n2", Type: model.NotificationCommentReply, Title: "Reply", Link: "/novels/a#c9", IsRead: true, CreatedAt: now.Add(-time.Hour)},
		{ID: "n1", Type: model.NotificationAnnouncement, Title: "Maintenance", Link: "/news/1", CreatedAt: now.Add(-2 * time.Hour)},
	}
}

func newTestFeed(t *testing.T, remote *fakeRemote) (*Feed, *fakeRouter) {
	t.Helper()
	router := &fakeRouter{}
	f := New(remote, router, WithLogger(quietLogger()))
	return f, router
}

func TestRefreshReplacesCache(t *testing.T) {
	remote := &fakeRemote{list: sample(), count: 7}
	f, _ := newTestFeed(t, remote)

	require.NoError(t, f.Refresh(context.Background()))

	st := f.Snapshot()
	assert.Equal(t, sample()[0].ID, st.Notifications[0].ID)
	assert.Len(t, st.Notifications, 3)
	assert.Equal(t, 7, st.UnreadCount, "count comes from the unread endpoint, not the page")
	assert.Equal(t, DefaultPageSize, remote.lastLimit)
	assert.Equal(t, 0, remote.lastSkip)

	remote.mu.Lock()
	remote.list = []model.Notification{{ID: "n9", Title: "only"}}
	remote.count = 1
	remote.mu.Unlock()

	require.NoError(t, f.Refresh(context.Background()))
	st = f.Snapshot()
	require.Len(t, st.Notifications, 1, "refresh must not merge with the previous cache")
	assert.Equal(t, "n9", st.Notifications[0].ID)
	assert.Equal(t, 1, st.UnreadCount)
}

func TestRefreshKeepsOrder(t *testing.T) {
	remote := &fakeRemote{list: sample(), count: 2}
	f, _ := newTestFeed(t, remote)
	require.NoError(t, f.Refresh(context.Background()))

	var ids []string
	for _, n := range f.Snapshot().Notifications {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"n3", "n2", "n1"}, ids)
}

func TestRefreshFailureLeavesState(t *testing.T) {
	remote := &fakeRemote{list: sample(), count: 2}
	f, _ := newTestFeed(t, remote)
	require.NoError(t, f.Refresh(context.Background()))

	remote.mu.Lock()
	remote.listErr = errors.New("boom")
	remote.count = 99
	remote.mu.Unlock()

	err := f.Refresh(context.Background())
	require.Error(t, err)

	st := f.Snapshot()
	assert.Len(t, st.Notifications, 3)
	assert.Equal(t, 2, st.UnreadCount)
}

func TestWithPageSize(t *testing.T) {
	remote := &fakeRemote{}
	f := New(remote, nil, WithPageSize(25), WithLogger(quietLogger()))
	require.NoError(t, f.Refresh(context.Background()))
	assert.Equal(t, 25, remote.lastLimit)
	assert.NotNil(t, f.Snapshot().Notifications)
}

func TestSelectUnread(t *testing.T) {
	remote := &fakeRemote{list: sample(), count: 2}
	f, router := newTestFeed(t, remote)
	require.NoError(t, f.Refresh(context.Background()))
	f.Open()

	err := f.Select(context.Background(), f.Snapshot().Notifications[0])
	require.NoError(t, err)

	st := f.Snapshot()
	assert.True(t, st.Notifications[0].IsRead)
	assert.Equal(t, 1, st.UnreadCount)
	assert.False(t, st.IsOpen)
	assert.Equal(t, []string{"n3"}, remote.markCalls)
	assert.Equal(t, []string{"/novels/a/12"}, router.links)
}

func TestSelectAlreadyReadIsNoop(t *testing.T) {
	remote := &fakeRemote{list: sample(), count: 2}
	f, router := newTestFeed(t, remote)
	require.NoError(t, f.Refresh(context.Background()))
	f.Open()

	require.NoError(t, f.Select(context.Background(), model.Notification{ID: "n2", IsRead: true, Link: "/x"}))

	st := f.Snapshot()
	assert.Empty(t, remote.markCalls)
	assert.Equal(t, 2, st.UnreadCount)
	assert.False(t, st.IsOpen)
	assert.Equal(t, []string{"/x"}, router.links)
}

func TestSelectFailureStillNavigates(t *testing.T) {
	remote := &fakeRemote{list: sample(), count: 2, markErr: errors.New("offline")}
	f, router := newTestFeed(t, remote)
	require.NoError(t, f.Refresh(context.Background()))
	f.Open()

	err := f.Select(context.Background(), f.Snapshot().Notifications[0])
	require.Error(t, err)

	st := f.Snapshot()
	assert.False(t, st.Notifications[0].IsRead)
	assert.Equal(t, 2, st.UnreadCount)
	assert.False(t, st.IsOpen)
	assert.Equal(t, []string{"/novels/a/12"}, router.links)
}

func TestSelectFloorsAtZero(t *testing.T) {
	remote := &fakeRemote{list: sample(), count: 0}
	f, _ := newTestFeed(t, remote)
	require.NoError(t, f.Refresh(context.Background()))

	require.NoError(t, f.Select(context.Background(), f.Snapshot().Notifications[0]))
	assert.Equal(t, 0, f.Snapshot().UnreadCount)
}

func TestSelectSameEntryTwiceCountsOnce(t *testing.T) {
	remote := &fakeRemote{list: sample(), count: 2}
	f, router := newTestFeed(t, remote)
	require.NoError(t, f.Refresh(context.Background()))

	n := f.Snapshot().Notifications[0]
	require.False(t, n.IsRead)

	var wg gosync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.Select(context.Background(), n))
		}()
	}
	wg.Wait()

	st := f.Snapshot()
	assert.Equal(t, 1, st.UnreadCount)
	assert.True(t, st.Notifications[0].IsRead)
	assert.Len(t, router.links, 2)
}

func TestSelectUncachedUnreadDecrements(t *testing.T) {
	remote := &fakeRemote{list: sample(), count: 2}
	f, _ := newTestFeed(t, remote)
	require.NoError(t, f.Refresh(context.Background()))

	require.NoError(t, f.Select(context.Background(), model.Notification{ID: "old", Link: "/x"}))
	assert.Equal(t, 1, f.Snapshot().UnreadCount)
}

func TestReset(t *testing.T) {
	remote := &fakeRemote{list: sample(), count: 2}
	f, _ := newTestFeed(t, remote)
	require.NoError(t, f.Refresh(context.Background()))
	f.Open()

	f.Reset()

	st := f.Snapshot()
	assert.Empty(t, st.Notifications)
	assert.Zero(t, st.UnreadCount)
	assert.False(t, st.IsOpen)
}

func TestMarkAllRead(t *testing.T) {
	remote := &fakeRemote{list: sample(), count: 2}
	f, _ := newTestFeed(t, remote)
	require.NoError(t, f.Refresh(context.Background()))

	require.NoError(t, f.MarkAllRead(context.Background()))

	st := f.Snapshot()
	assert.Equal(t, 0, st.UnreadCount)
	assert.False(t, st.IsLoading)
	for _, n := range st.Notifications {
		assert.True(t, n.IsRead, n.ID)
	}
}

func TestMarkAllReadWithNothingUnread(t *testing.T) {
	remote := &fakeRemote{list: sample(), count: 0}
	f, _ := newTestFeed(t, remote)
	require.NoError(t, f.Refresh(context.Background()))

	assert.NotPanics(t, func() {
		assert.NoError(t, f.MarkAllRead(context.Background()))
	})
	assert.Equal(t, 0, remote.markAllCalls)
}

func TestMarkAllReadFailure(t *testing.T) {
	remote := &fakeRemote{list: sample(), count: 2, allErr: errors.New("500")}
	f, _ := newTestFeed(t, remote)
	require.NoError(t, f.Refresh(context.Background()))

	require.Error(t, f.MarkAllRead(context.Background()))

	st := f.Snapshot()
	assert.Equal(t, 2, st.UnreadCount)
	assert.False(t, st.IsLoading, "loading flag is reset on failure")
	assert.False(t, st.Notifications[0].IsRead)
}

func TestMarkAllReadIsGuarded(t *testing.T) {
	remote := &fakeRemote{list: sample(), count: 2, block: make(chan struct{})}
	f, _ := newTestFeed(t, remote)
	require.NoError(t, f.Refresh(context.Background()))

	done := make(chan error, 1)
	go func() { done <- f.MarkAllRead(context.Background()) }()

	require.Eventually(t, func() bool { return f.Snapshot().IsLoading }, time.Second, time.Millisecond)

	// A second call while the first is in flight must not reach the remote.
	require.NoError(t, f.MarkAllRead(context.Background()))

	close(remote.block)
	require.NoError(t, <-done)

	remote.mu.Lock()
	defer remote.mu.Unlock()
	assert.Equal(t, 1, remote.markAllCalls)
	assert.False(t, f.Snapshot().IsLoading)
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name      string
		id        string
		count     int
		wantCount int
		wantLen   int
	}{
		{name: "unread decrements", id: "n3", count: 2, wantCount: 1, wantLen: 2},
		{name: "read leaves count", id: "n2", count: 2, wantCount: 2, wantLen: 2},
		{name: "unread at zero floors", id: "n1", count: 0, wantCount: 0, wantLen: 2},
		{name: "unknown id", id: "zz", count: 2, wantCount: 2, wantLen: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := &fakeRemote{list: sample(), count: tt.count}
			f, _ := newTestFeed(t, remote)
			require.NoError(t, f.Refresh(context.Background()))
			f.Open()

			require.NoError(t, f.Delete(context.Background(), tt.id))

			st := f.Snapshot()
			assert.Equal(t, tt.wantCount, st.UnreadCount)
			assert.Len(t, st.Notifications, tt.wantLen)
			assert.True(t, st.IsOpen, "delete does not touch the panel")
			assert.Equal(t, []string{tt.id}, remote.deleteCalls)
		})
	}
}

func TestDeleteFailureKeepsEntry(t *testing.T) {
	remote := &fakeRemote{list: sample(), count: 2, delErr: errors.New("nope")}
	f, _ := newTestFeed(t, remote)
	require.NoError(t, f.Refresh(context.Background()))

	require.Error(t, f.Delete(context.Background(), "n3"))
	st := f.Snapshot()
	assert.Len(t, st.Notifications, 3)
	assert.Equal(t, 2, st.UnreadCount)
}

func TestPanelState(t *testing.T) {
	f, _ := newTestFeed(t, &fakeRemote{})

	f.Open()
	f.Open()
	assert.True(t, f.Snapshot().IsOpen, "opening twice stays open")

	f.PointerDown(true)
	assert.True(t, f.Snapshot().IsOpen, "press inside keeps it open")

	f.PointerDown(false)
	assert.False(t, f.Snapshot().IsOpen)

	f.PointerDown(false)
	assert.False(t, f.Snapshot().IsOpen, "press outside while closed is a no-op")

	assert.True(t, f.Toggle())
	assert.False(t, f.Toggle())
}

func TestSnapshotIsACopy(t *testing.T) {
	remote := &fakeRemote{list: sample(), count: 2}
	f, _ := newTestFeed(t, remote)
	require.NoError(t, f.Refresh(context.Background()))

	st := f.Snapshot()
	st.Notifications[0].IsRead = true
	assert.False(t, f.Snapshot().Notifications[0].IsRead)
}
