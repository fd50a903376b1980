package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/nhle/novelbell/internal/model"
	"github.com/nhle/novelbell/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// SeedBase is the creation time of the first seeded notification.
var SeedBase = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

// SeedNotifications registers userID and inserts count unread new-chapter
// notifications one minute apart, oldest first. The returned slice is in
// insertion order.
func SeedNotifications(t *testing.T, s store.Store, userID string, count int) []model.Notification {
	t.Helper()
	ctx := context.Background()

	if err := s.EnsureUser(ctx, userID, "reader"); err != nil {
		t.Fatalf("registering %s: %v", userID, err)
	}

	out := make([]model.Notification, 0, count)
	for i := 0; i < count; i++ {
		n, err := s.CreateNotification(ctx, userID, model.Notification{
			Type:      model.NotificationNewChapter,
			Title:     "Chapter",
			Link:      "/novels/x",
			CreatedAt: SeedBase.Add(time.Duration(i) * time.Minute),
			Metadata:  &model.NotificationMetadata{NovelID: "x"},
		})
		if err != nil {
			t.Fatalf("seeding notification %d for %s: %v", i, userID, err)
		}
		out = append(out, n)
	}
	return out
}
