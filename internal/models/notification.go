package models

import "time"

// Notification kinds.
const (
	NotificationKindStatusChange   = "status_change"
	NotificationKindContentUpdated = "content_updated"
	NotificationKindAnnouncement   = "announcement"
)

// Notification is an in-app message addressed to one user.
type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Kind      string    `json:"kind"`
	Link      string    `json:"link,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
