package store

import (
	"context"
	"errors"

	"github.com/nhle/novelbell/internal/model"
)

// ErrNotFound is returned when a notification does not exist for the
// given reader.
var ErrNotFound = errors.New("notification not found")

// Store defines the persistence interface behind the development backend.
// Every notification belongs to exactly one reader.
type Store interface {
	// === Readers ===

	EnsureUser(ctx context.Context, userID, role string) error

	// === Notifications ===

	CreateNotification(ctx context.Context, userID string, n model.Notification) (model.Notification, error)
	ListNotifications(ctx context.Context, userID string, limit, offset int) ([]model.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkNotificationRead(ctx context.Context, userID, id string) (*model.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	DeleteNotification(ctx context.Context, userID, id string) error

	// Broadcast creates one system_announcement per known reader and
	// returns how many were created.
	Broadcast(ctx context.Context, a model.Announcement) (int, error)
}
