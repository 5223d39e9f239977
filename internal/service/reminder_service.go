package service

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tazhate/fintrack/internal/domain"
	"github.com/tazhate/fintrack/internal/recurrence"
	"github.com/tazhate/fintrack/internal/storage"
)

// Jobs is the slice of the scheduler the service needs to keep live cron
// jobs in sync with reminder rows. *scheduler.Scheduler satisfies it.
type Jobs interface {
	AddReminder(r *domain.Reminder)
	UpdateReminder(r *domain.Reminder)
	RemoveReminder(reminderID string)
}

type ReminderService struct {
	storage *storage.Storage
	jobs    Jobs
}

func NewReminderService(s *storage.Storage, jobs Jobs) *ReminderService {
	return &ReminderService{storage: s, jobs: jobs}
}

func (s *ReminderService) Create(userID string, kind domain.ReminderKind, title, message string, rule domain.Recurrence) (*domain.Reminder, error) {
	title = strings.TrimSpace(title)
	message = strings.TrimSpace(message)
	if err := validateReminder(kind, title, message, rule); err != nil {
		return nil, err
	}

	next := recurrence.Next(rule, time.Now().UTC())
	reminder := &domain.Reminder{
		UserID:     userID,
		Kind:       kind,
		Title:      title,
		Message:    message,
		Rule:       rule,
		Active:     true,
		NextFireAt: &next,
	}

	if err := s.storage.CreateReminder(reminder); err != nil {
		return nil, fmt.Errorf("create reminder: %w", err)
	}

	s.jobs.AddReminder(reminder)
	return reminder, nil
}

// CreateFromTemplate seeds a reminder for userID from an admin-curated
// template.
func (s *ReminderService) CreateFromTemplate(userID, templateID string) (*domain.Reminder, error) {
	tpl, err := s.storage.GetReminderTemplate(templateID)
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	if tpl == nil {
		return nil, fmt.Errorf("template not found")
	}
	return s.Create(userID, tpl.Kind, tpl.Title, tpl.Message, tpl.Rule)
}

func (s *ReminderService) Get(reminderID string) (*domain.Reminder, error) {
	return s.storage.GetReminder(reminderID)
}

func (s *ReminderService) List(userID string) ([]*domain.Reminder, error) {
	return s.storage.ListRemindersByUser(userID)
}

// Update persists the changed fields and replaces the reminder's job,
// whatever changed; a deactivated reminder loses its job.
func (s *ReminderService) Update(userID string, r *domain.Reminder) error {
	existing, err := s.storage.GetReminder(r.ID)
	if err != nil {
		return fmt.Errorf("get reminder: %w", err)
	}
	if existing == nil {
		return fmt.Errorf("reminder not found")
	}
	if existing.UserID != userID {
		return fmt.Errorf("access denied")
	}

	r.Title = strings.TrimSpace(r.Title)
	r.Message = strings.TrimSpace(r.Message)
	if err := validateReminder(r.Kind, r.Title, r.Message, r.Rule); err != nil {
		return err
	}

	next := recurrence.Next(r.Rule, time.Now().UTC())
	r.UserID = existing.UserID
	r.NextFireAt = &next

	if err := s.storage.UpdateReminder(r); err != nil {
		return fmt.Errorf("update reminder: %w", err)
	}

	s.jobs.UpdateReminder(r)
	return nil
}

func (s *ReminderService) SetActive(userID, reminderID string, active bool) (*domain.Reminder, error) {
	r, err := s.storage.GetReminder(reminderID)
	if err != nil {
		return nil, fmt.Errorf("get reminder: %w", err)
	}
	if r == nil {
		return nil, fmt.Errorf("reminder not found")
	}
	if r.UserID != userID {
		return nil, fmt.Errorf("access denied")
	}

	r.Active = active
	if active {
		next := recurrence.Next(r.Rule, time.Now().UTC())
		r.NextFireAt = &next
	}
	if err := s.storage.UpdateReminder(r); err != nil {
		return nil, fmt.Errorf("update reminder: %w", err)
	}

	s.jobs.UpdateReminder(r)
	return r, nil
}

func (s *ReminderService) Delete(userID, reminderID string) error {
	r, err := s.storage.GetReminder(reminderID)
	if err != nil {
		return fmt.Errorf("get reminder: %w", err)
	}
	if r == nil {
		return fmt.Errorf("reminder not found")
	}
	if r.UserID != userID {
		return fmt.Errorf("access denied")
	}

	s.jobs.RemoveReminder(reminderID)
	return s.storage.DeleteReminder(reminderID)
}

func validateReminder(kind domain.ReminderKind, title, message string, rule domain.Recurrence) error {
	switch kind {
	case domain.ReminderIncome, domain.ReminderExpense, domain.ReminderGeneral, domain.ReminderMonthlySummary:
	default:
		return fmt.Errorf("unknown reminder kind %q", kind)
	}

	if title == "" || utf8.RuneCountInString(title) > domain.MaxTitleLen {
		return fmt.Errorf("title must be 1-%d characters", domain.MaxTitleLen)
	}
	if message == "" || utf8.RuneCountInString(message) > domain.MaxMessageLen {
		return fmt.Errorf("message must be 1-%d characters", domain.MaxMessageLen)
	}

	// A rule that cannot become a cron spec would leave the reminder
	// permanently unscheduled; reject it at the door instead.
	if _, err := recurrence.CronSpec(rule); err != nil {
		return fmt.Errorf("invalid recurrence: %w", err)
	}
	return nil
}
