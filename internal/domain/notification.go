package domain

import "time"

type NotificationKind string

const (
	NotificationReminder    NotificationKind = "reminder"
	NotificationTransaction NotificationKind = "transaction"
	NotificationCategory    NotificationKind = "category"
	NotificationSystem      NotificationKind = "system"
)

type Notification struct {
	ID        string
	UserID    string
	Kind      NotificationKind
	Title     string
	Message   string
	ActionURL string
	Read      bool
	CreatedAt time.Time
}
