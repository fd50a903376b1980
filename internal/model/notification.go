package model

import (
	"time"

	"github.com/goccy/go-json"
)

// NotificationType selects the icon a notification is displayed with.
type NotificationType string

const (
	NotificationNewChapter   NotificationType = "new_chapter"
	NotificationCommentReply NotificationType = "comment_reply"
	NotificationAnnouncement NotificationType = "system_announcement"
)

// Icon returns the glyph shown next to a notification of this type.
func (t NotificationType) Icon() string {
	switch t {
	case NotificationNewChapter:
		return "📖"
	case NotificationCommentReply:
		return "💬"
	case NotificationAnnouncement:
		return "📢"
	default:
		return "🔔"
	}
}

// NotificationMetadata holds auxiliary identifiers attached by the backend.
// They are opaque to the feed.
type NotificationMetadata struct {
	NovelID   string `json:"novelId,omitempty"`
	ChapterID string `json:"chapterId,omitempty"`
	CommentID string `json:"commentId,omitempty"`
}

// Notification is a single event surfaced to a reader: a new chapter,
// a reply to one of their comments, or a platform announcement.
type Notification struct {
	// ID is the opaque identifier assigned by the backend.
	ID string `json:"id"`

	// Type determines the display icon only.
	Type NotificationType `json:"type"`

	Title   string `json:"title"`
	Message string `json:"message"`

	// Link is where the reader is taken when the notification is selected.
	Link string `json:"link"`

	// IsRead is the only field the client mutates.
	IsRead bool `json:"isRead"`

	// CreatedAt is immutable and drives the relative age display.
	CreatedAt time.Time `json:"createdAt"`

	Metadata *NotificationMetadata `json:"metadata,omitempty"`
}

// UnmarshalJSON accepts both "id" and the Mongo-style "_id" key.
func (n *Notification) UnmarshalJSON(data []byte) error {
	type plain Notification
	aux := struct {
		*plain
		MongoID string `json:"_id"`
	}{plain: (*plain)(n)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if n.ID == "" {
		n.ID = aux.MongoID
	}
	return nil
}

// UnreadCount is the body of the unread-count endpoint.
type UnreadCount struct {
	Count int `json:"count"`
}

// Announcement is the payload an admin posts to broadcast a
// system_announcement to every reader.
type Announcement struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Link    string `json:"link,omitempty"`
}
