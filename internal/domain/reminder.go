package domain

import "time"

type ReminderKind string

const (
	ReminderIncome         ReminderKind = "income"
	ReminderExpense        ReminderKind = "expense"
	ReminderGeneral        ReminderKind = "general"
	ReminderMonthlySummary ReminderKind = "monthly_summary"
)

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyCustom  Frequency = "custom"
)

const (
	MaxTitleLen   = 100
	MaxMessageLen = 500
)

// Recurrence describes when a reminder fires. Which fields matter depends
// on Frequency: daily uses TimeOfDay only, weekly adds DayOfWeek (0=Sunday),
// monthly adds DayOfMonth, custom carries a raw cron expression that the
// calculator never parses.
type Recurrence struct {
	Frequency  Frequency
	TimeOfDay  string // "HH:MM", evaluated in UTC
	DayOfWeek  int    // 0-6, weekly only
	DayOfMonth int    // 1-31, monthly only
	Expression string // custom only
}

type Reminder struct {
	ID         string
	UserID     string
	Kind       ReminderKind
	Title      string
	Message    string
	Rule       Recurrence
	Active     bool
	LastFired  *time.Time
	NextFireAt *time.Time
	CreatedAt  time.Time
}
