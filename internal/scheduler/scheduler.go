// Package scheduler keeps every active reminder backed by a live cron job,
// sweeps for occurrences missed while the process was down, and dispatches
// due reminders as email plus an in-app notification.
//
// One scheduler instance runs per process. Delivery is at-least-once: a
// reminder's own cron job and the catch-up sweep can both fire around the
// same wall-clock occurrence, and no lease is taken around dispatch.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/tazhate/fintrack/internal/domain"
	"github.com/tazhate/fintrack/internal/email"
	"github.com/tazhate/fintrack/internal/recurrence"
)

// Collaborators. *storage.Storage and *email.Sender satisfy these; tests
// substitute fakes.
type ReminderStore interface {
	ListActiveReminders() ([]*domain.Reminder, error)
	ListDueReminders(now time.Time) ([]*domain.Reminder, error)
	UpdateReminderFired(id string, firedAt time.Time) error
	UpdateReminderNextFire(id string, next time.Time) error
}

type UserStore interface {
	GetUser(id string) (*domain.User, error)
}

type TransactionStore interface {
	ListTransactionsByRange(userID string, from, to time.Time) ([]*domain.Transaction, error)
}

type EmailSender interface {
	Send(to string, kind email.Kind, data any) error
}

type NotificationSink interface {
	CreateNotification(n *domain.Notification) error
}

type Scheduler struct {
	log          zerolog.Logger
	appURL       string
	sweepAt      string // "HH:MM", UTC
	reminders    ReminderStore
	users        UserStore
	transactions TransactionStore
	email        EmailSender
	notifier     NotificationSink

	now func() time.Time

	mu      sync.Mutex
	running bool
	cron    *cron.Cron
	jobs    map[string]cron.EntryID
}

func New(log zerolog.Logger, appURL, sweepAt string, reminders ReminderStore, users UserStore, transactions TransactionStore, sender EmailSender, notifier NotificationSink) *Scheduler {
	return &Scheduler{
		log:          log.With().Str("component", "scheduler").Logger(),
		appURL:       appURL,
		sweepAt:      sweepAt,
		reminders:    reminders,
		users:        users,
		transactions: transactions,
		email:        sender,
		notifier:     notifier,
		now:          time.Now,
		jobs:         make(map[string]cron.EntryID),
	}
}

// Start registers the daily catch-up sweep, loads every active reminder and
// schedules a job for each. Calling Start on a running scheduler is a
// logged no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.log.Warn().Msg("scheduler already running")
		return nil
	}

	// All schedules evaluate in UTC, matching how rules are stored.
	s.cron = cron.New(cron.WithLocation(time.UTC))

	sweepSpec := "8 0 * * *"
	if h, m, err := recurrence.Clock(s.sweepAt); err == nil {
		sweepSpec = fmt.Sprintf("%d %d * * *", m, h)
	} else {
		s.log.Warn().Str("sweep_at", s.sweepAt).Msg("invalid sweep time, using 00:08 UTC")
	}
	if _, err := s.cron.AddFunc(sweepSpec, s.runCatchUp); err != nil {
		return fmt.Errorf("add catch-up job: %w", err)
	}

	reminders, err := s.reminders.ListActiveReminders()
	if err != nil {
		return fmt.Errorf("load active reminders: %w", err)
	}
	for _, r := range reminders {
		s.registerLocked(r)
	}

	s.cron.Start()
	s.running = true
	s.log.Info().Int("reminders", len(reminders)).Str("sweep", sweepSpec).Msg("scheduler started")
	return nil
}

// Stop cancels every job, including the sweep, and waits for in-flight
// callbacks to finish. Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		s.log.Warn().Msg("scheduler already stopped")
		return
	}

	<-s.cron.Stop().Done()
	s.cron = nil
	s.jobs = make(map[string]cron.EntryID)
	s.running = false
	s.log.Info().Msg("scheduler stopped")
}

// AddReminder schedules a job for a newly created reminder. Inactive
// reminders get no job.
func (s *Scheduler) AddReminder(r *domain.Reminder) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running || !r.Active {
		return
	}
	s.registerLocked(r)
}

// UpdateReminder replaces the reminder's job after any persisted change,
// dropping it entirely when the reminder was deactivated.
func (s *Scheduler) UpdateReminder(r *domain.Reminder) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cancelLocked(r.ID)
	if r.Active {
		s.registerLocked(r)
	}
}

// RemoveReminder cancels the reminder's job; deleting the row is the
// caller's business. No-op for unknown IDs.
func (s *Scheduler) RemoveReminder(reminderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cancelLocked(reminderID)
}

// registerLocked starts a recurring job for the reminder, replacing any
// existing one so a reminder never has two live jobs. A rule that does not
// translate to a cron spec is logged and left unscheduled; the catch-up
// sweep still covers it through next_fire_at.
func (s *Scheduler) registerLocked(r *domain.Reminder) {
	spec, err := recurrence.CronSpec(r.Rule)
	if err != nil {
		s.log.Error().Err(err).Str("reminder_id", r.ID).Msg("cannot build schedule, reminder left unscheduled")
		return
	}

	s.cancelLocked(r.ID)

	rc := *r
	id, err := s.cron.AddFunc(spec, func() {
		s.SendReminder(&rc)
	})
	if err != nil {
		s.log.Error().Err(err).Str("reminder_id", r.ID).Str("spec", spec).Msg("invalid schedule, reminder left unscheduled")
		return
	}
	s.jobs[r.ID] = id
	s.log.Debug().Str("reminder_id", r.ID).Str("spec", spec).Msg("reminder scheduled")
}

func (s *Scheduler) cancelLocked(reminderID string) {
	id, ok := s.jobs[reminderID]
	if !ok {
		return
	}
	s.cron.Remove(id)
	delete(s.jobs, reminderID)
}

// jobCount reports live per-reminder jobs (the sweep excluded).
func (s *Scheduler) jobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}
