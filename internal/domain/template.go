package domain

import "time"

// ReminderTemplate is an admin-curated preset used to seed new reminders.
// Templates carry no owner and are never scheduled themselves.
type ReminderTemplate struct {
	ID        string
	Kind      ReminderKind
	Title     string
	Message   string
	Rule      Recurrence
	CreatedAt time.Time
}
