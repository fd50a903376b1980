package api_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/novelbell/internal/api"
	"github.com/nhle/novelbell/internal/devserver"
	"github.com/nhle/novelbell/internal/model"
	"github.com/nhle/novelbell/tests/testutil"
)

var testSecret = []byte("test-secret")

type staticToken string

func (s staticToken) Token() (string, error) {
	if s == "" {
		return "", errors.New("not logged in")
	}
	return string(s), nil
}

// newBackend starts a dev backend and returns a client authenticated as
// the given subject and role.
func newBackend(t *testing.T, subject, role string) (*api.Client, *httptest.Server, *devserver.Server) {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	srv := devserver.New(testutil.NewTestStore(t), testSecret, log)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	tok, err := devserver.IssueToken(testSecret, subject, role, time.Hour)
	require.NoError(t, err)

	return api.NewClient(ts.URL, staticToken(tok), 5*time.Second), ts, srv
}

func seedVia(t *testing.T, ts *httptest.Server, subject string, titles ...string) {
	t.Helper()
	tok, err := devserver.IssueToken(testSecret, subject, "reader", time.Hour)
	require.NoError(t, err)

	base := time.Now().Add(-time.Hour)
	for i, title := range titles {
		body := `{"type":"new_chapter","title":"` + title + `","link":"/novels/` + title +
			`","createdAt":"` + base.Add(time.Duration(i)*time.Minute).UTC().Format(time.RFC3339) + `"}`
		req, err := http.NewRequest(http.MethodPost, ts.URL+"/notifications", strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}
}

func TestClientNotificationLifecycle(t *testing.T) {
	ctx := context.Background()
	client, ts, _ := newBackend(t, "reader-1", "reader")
	seedVia(t, ts, "reader-1", "a", "b", "c")

	list, err := client.ListNotifications(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].Title, "newest first")
	assert.Equal(t, model.NotificationNewChapter, list[0].Type)

	count, err := client.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	updated, err := client.MarkRead(ctx, list[0].ID)
	require.NoError(t, err)
	assert.True(t, updated.IsRead)
	assert.Equal(t, list[0].ID, updated.ID)

	require.NoError(t, client.DeleteNotification(ctx, list[1].ID))

	count, err = client.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, client.MarkAllRead(ctx))
	count, err = client.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	rest, err := client.ListNotifications(ctx, 10, 1)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestClientNotFound(t *testing.T) {
	client, _, _ := newBackend(t, "reader-1", "reader")

	err := client.DeleteNotification(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, api.IsRemoteError(err))
	assert.False(t, api.IsAuthError(err))
	assert.Equal(t, http.StatusNotFound, api.StatusCode(err))
	assert.Contains(t, err.Error(), "notification not found")
}

func TestClientAnnouncementRequiresAdmin(t *testing.T) {
	ctx := context.Background()
	reader, ts, _ := newBackend(t, "reader-1", "reader")

	err := reader.CreateAnnouncement(ctx, model.Announcement{Title: "Hi", Message: "All"})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, api.StatusCode(err))

	tok, err := devserver.IssueToken(testSecret, "boss", "admin", time.Hour)
	require.NoError(t, err)
	admin := api.NewClient(ts.URL, staticToken(tok), time.Second)
	require.NoError(t, admin.CreateAnnouncement(ctx, model.Announcement{Title: "Hi", Message: "All", Link: "/news"}))

	list, err := reader.ListNotifications(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.NotificationAnnouncement, list[0].Type)
	assert.Equal(t, "/news", list[0].Link)
}

func TestClientUnauthorized(t *testing.T) {
	_, ts, _ := newBackend(t, "reader-1", "reader")

	bad := api.NewClient(ts.URL, staticToken("not-a-jwt"), time.Second)
	_, err := bad.UnreadCount(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsAuthError(err))
	assert.True(t, api.IsRemoteError(err), "a 401 is still a remote error")
	assert.Equal(t, http.StatusUnauthorized, api.StatusCode(err))

	none := api.NewClient(ts.URL, staticToken(""), time.Second)
	_, err = none.ListNotifications(context.Background(), 10, 0)
	require.Error(t, err)
	assert.True(t, api.IsAuthError(err))
	assert.Zero(t, api.StatusCode(err))
}

func TestClientNetworkError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	client := api.NewClient(url, staticToken("t"), time.Second)
	_, err := client.UnreadCount(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsNetworkError(err))
	assert.False(t, api.IsRemoteError(err))
}

func TestClientSendsBearerAndDecodesErrors(t *testing.T) {
	var gotAuth, gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"database down"}`))
	}))
	t.Cleanup(ts.Close)

	client := api.NewClient(ts.URL+"/", staticToken("abc"), time.Second)
	_, err := client.ListNotifications(context.Background(), 10, 20)
	require.Error(t, err)

	assert.Equal(t, "Bearer abc", gotAuth)
	assert.Contains(t, gotQuery, "limit=10")
	assert.Contains(t, gotQuery, "skip=20")

	var remote *api.RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusInternalServerError, remote.StatusCode)
	assert.Equal(t, "database down", remote.Message)
}

func TestClientAcceptsMongoIDs(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"_id":"64f0","type":"comment_reply","title":"Reply","isRead":false,"createdAt":"2026-01-01T00:00:00Z","metadata":{"novelId":"n1"}}]`))
	}))
	t.Cleanup(ts.Close)

	client := api.NewClient(ts.URL, staticToken("abc"), time.Second)
	list, err := client.ListNotifications(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "64f0", list[0].ID)
	require.NotNil(t, list[0].Metadata)
	assert.Equal(t, "n1", list[0].Metadata.NovelID)
}
