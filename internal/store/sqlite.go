package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/novelbell/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// notificationRow mirrors the notifications table.
type notificationRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Type      string    `db:"type"`
	Title     string    `db:"title"`
	Message   string    `db:"message"`
	Link      string    `db:"link"`
	Read      int       `db:"read"`
	Metadata  string    `db:"metadata"`
	CreatedAt time.Time `db:"created_at"`
}

const notificationColumns = `id, user_id, type, title, message, link, read, metadata, created_at`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// A single connection keeps ":memory:" databases coherent and
	// serializes writers.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// EnsureUser registers a reader if unknown and updates their role.
func (s *SQLiteStore) EnsureUser(ctx context.Context, userID, role string) error {
	if role == "" {
		role = "reader"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, role) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET role = excluded.role`,
		userID, role,
	)
	if err != nil {
		return fmt.Errorf("ensuring user %s: %w", userID, err)
	}
	return nil
}

// CreateNotification inserts a notification for userID, assigning an ID
// and creation time when missing.
func (s *SQLiteStore) CreateNotification(
	ctx context.Context,
	userID string,
	n model.Notification,
) (model.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	n.CreatedAt = n.CreatedAt.UTC()

	if err := s.insertNotification(ctx, s.db, userID, n); err != nil {
		return model.Notification{}, err
	}
	return n, nil
}

// insertNotification writes a single row through db or a transaction.
func (s *SQLiteStore) insertNotification(
	ctx context.Context,
	ex sqlx.ExecerContext,
	userID string,
	n model.Notification,
) error {
	var metadata string
	if n.Metadata != nil {
		data, err := json.Marshal(n.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata for notification %s: %w", n.ID, err)
		}
		metadata = string(data)
	}

	_, err := ex.ExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, userID, string(n.Type), n.Title, n.Message, n.Link,
		boolToInt(n.IsRead), metadata, n.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}
	return nil
}

// ListNotifications returns a page of the reader's notifications ordered
// by creation time descending.
func (s *SQLiteStore) ListNotifications(
	ctx context.Context,
	userID string,
	limit, offset int,
) ([]model.Notification, error) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}

	var rows []notificationRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}

	out := make([]model.Notification, 0, len(rows))
	for _, r := range rows {
		n, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// UnreadCount returns the number of unread notifications for the reader.
func (s *SQLiteStore) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read = 0", userID,
	)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return count, nil
}

// MarkNotificationRead marks a single notification as read and returns it.
func (s *SQLiteStore) MarkNotificationRead(
	ctx context.Context,
	userID, id string,
) (*model.Notification, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?", id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("marking notification %s as read: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	var row notificationRow
	err = s.db.GetContext(ctx, &row,
		"SELECT "+notificationColumns+" FROM notifications WHERE id = ?", id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading notification %s: %w", id, err)
	}

	n, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkAllRead marks all of the reader's notifications read and returns
// how many changed.
func (s *SQLiteStore) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET read = 1 WHERE user_id = ? AND read = 0", userID,
	)
	if err != nil {
		return 0, fmt.Errorf("marking all notifications read: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// DeleteNotification removes one of the reader's notifications.
func (s *SQLiteStore) DeleteNotification(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM notifications WHERE id = ? AND user_id = ?", id, userID,
	)
	if err != nil {
		return fmt.Errorf("deleting notification %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Broadcast fans an announcement out to every known reader in one
// transaction.
func (s *SQLiteStore) Broadcast(ctx context.Context, a model.Announcement) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var users []string
	if err := tx.SelectContext(ctx, &users, "SELECT id FROM users ORDER BY id"); err != nil {
		return 0, fmt.Errorf("listing users: %w", err)
	}

	now := time.Now().UTC()
	for _, u := range users {
		n := model.Notification{
			ID:        uuid.New().String(),
			Type:      model.NotificationAnnouncement,
			Title:     a.Title,
			Message:   a.Message,
			Link:      a.Link,
			CreatedAt: now,
		}
		if err := s.insertNotification(ctx, tx, u, n); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing broadcast: %w", err)
	}
	return len(users), nil
}

// toModel converts a scanned row into a model.Notification.
func (r notificationRow) toModel() (model.Notification, error) {
	n := model.Notification{
		ID:        r.ID,
		Type:      model.NotificationType(r.Type),
		Title:     r.Title,
		Message:   r.Message,
		Link:      r.Link,
		IsRead:    r.Read != 0,
		CreatedAt: r.CreatedAt,
	}
	if r.Metadata != "" {
		var md model.NotificationMetadata
		if err := json.Unmarshal([]byte(r.Metadata), &md); err != nil {
			return model.Notification{}, fmt.Errorf("unmarshaling metadata for notification %s: %w", r.ID, err)
		}
		n.Metadata = &md
	}
	return n, nil
}

// boolToInt converts a bool to an int for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
