package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"

	"github.com/nhle/novelbell/internal/model"
)

// TokenSource supplies the bearer token for each request.
// *session.Session satisfies it.
type TokenSource interface {
	Token() (string, error)
}

// Client is a thin REST client for the platform's notification endpoints.
// It handles bearer authentication and JSON (de)serialization and maps
// failures onto NetworkError, RemoteError and AuthError. It does not retry
// or cache.
type Client struct {
	http   *resty.Client
	tokens TokenSource
}

// errorBody is the shape of error responses. The backend uses either key.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// NewClient creates a client for the API rooted at baseURL
// (e.g., https://novels.example.com/api).
func NewClient(baseURL string, tokens TokenSource, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)

	return &Client{http: rc, tokens: tokens}
}

// ListNotifications returns one page of notifications, most recent first.
func (c *Client) ListNotifications(
	ctx context.Context,
	limit, skip int,
) ([]model.Notification, error) {
	var out []model.Notification
	err := c.do(ctx, http.MethodGet, "/notifications", func(r *resty.Request) {
		r.SetQueryParams(map[string]string{
			"limit": strconv.Itoa(limit),
			"skip":  strconv.Itoa(skip),
		})
		r.SetResult(&out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UnreadCount returns the authoritative number of unread notifications.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var out model.UnreadCount
	err := c.do(ctx, http.MethodGet, "/notifications/unread-count", func(r *resty.Request) {
		r.SetResult(&out)
	})
	if err != nil {
		return 0, err
	}
	return out.Count, nil
}

// MarkRead marks a single notification as read and returns its updated form.
func (c *Client) MarkRead(ctx context.Context, id string) (*model.Notification, error) {
	var out model.Notification
	err := c.do(ctx, http.MethodPut, "/notifications/{id}/read", func(r *resty.Request) {
		r.SetPathParam("id", id)
		r.SetResult(&out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkAllRead marks every notification of the reader as read.
func (c *Client) MarkAllRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPut, "/notifications/read-all", nil)
}

// DeleteNotification removes a notification.
func (c *Client) DeleteNotification(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/notifications/{id}", func(r *resty.Request) {
		r.SetPathParam("id", id)
	})
}

// CreateAnnouncement broadcasts a system announcement. Admin only.
func (c *Client) CreateAnnouncement(ctx context.Context, a model.Announcement) error {
	return c.do(ctx, http.MethodPost, "/notifications/announcement", func(r *resty.Request) {
		r.SetHeader("Content-Type", "application/json")
		r.SetBody(a)
	})
}

// do builds the request, attaches the token, executes it and translates
// the outcome into the package's error types.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	configure func(*resty.Request),
) error {
	token, err := c.tokens.Token()
	if err != nil {
		return &AuthError{Message: err.Error(), Err: err}
	}

	var errBody errorBody
	req := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetError(&errBody)
	if configure != nil {
		configure(req)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return &NetworkError{Method: method, Path: path, Err: err}
	}

	if !resp.IsError() && resp.StatusCode() >= 200 && resp.StatusCode() < 300 {
		return nil
	}

	msg := errBody.Message
	if msg == "" {
		msg = errBody.Error
	}
	if msg == "" {
		msg = strings.TrimSpace(string(resp.Body()))
	}

	remote := &RemoteError{
		StatusCode: resp.StatusCode(),
		Method:     method,
		Path:       path,
		Message:    msg,
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		return &AuthError{Message: msg, Err: remote}
	}
	return remote
}
