package scheduler

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tazhate/fintrack/internal/domain"
	"github.com/tazhate/fintrack/internal/email"
)

// SendReminder runs the dispatch pipeline for one reminder: resolve the
// owner, send the reminder email, write an in-app notification, stamp
// last_fired. Errors are logged and swallowed so a failing dispatch can
// never take down the cron entry that invoked it; the next occurrence or
// sweep pass is the retry.
func (s *Scheduler) SendReminder(r *domain.Reminder) {
	if err := s.dispatch(r); err != nil {
		s.log.Error().Err(err).Str("reminder_id", r.ID).Str("user_id", r.UserID).Msg("dispatch failed")
	}
}

func (s *Scheduler) dispatch(r *domain.Reminder) error {
	user, err := s.users.GetUser(r.UserID)
	if err != nil {
		return fmt.Errorf("resolve user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("user %s not found", r.UserID)
	}

	// A monthly_summary reminder delivers last month's report instead of a
	// plain nudge.
	if r.Kind == domain.ReminderMonthlySummary {
		prev := s.now().UTC().AddDate(0, -1, 0)
		if err := s.sendSummary(user, prev.Year(), int(prev.Month())); err != nil {
			return err
		}
		return s.markFired(r)
	}

	data := email.ReminderData{
		Title:   r.Title,
		Message: r.Message,
		AppURL:  s.appURL,
	}
	if err := s.email.Send(user.Email, email.KindReminder, data); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	n := &domain.Notification{
		UserID:    r.UserID,
		Kind:      domain.NotificationReminder,
		Title:     r.Title,
		Message:   r.Message,
		ActionURL: s.appURL + "/transactions/new",
	}
	if err := s.notifier.CreateNotification(n); err != nil {
		// Email already went out; don't fail the whole dispatch over the
		// in-app copy.
		s.log.Error().Err(err).Str("reminder_id", r.ID).Msg("create notification failed")
	}

	s.log.Info().Str("reminder_id", r.ID).Str("email", user.Email).Msg("reminder sent")
	return s.markFired(r)
}

func (s *Scheduler) markFired(r *domain.Reminder) error {
	if err := s.reminders.UpdateReminderFired(r.ID, s.now().UTC()); err != nil {
		return fmt.Errorf("update last_fired: %w", err)
	}
	return nil
}

// SendMonthlySummary aggregates the user's transactions for the given month
// and delivers income/expense/net totals plus the top five categories. It is
// invoked on demand and from monthly_summary reminders; it never touches any
// reminder's next_fire_at.
func (s *Scheduler) SendMonthlySummary(userID string, year, month int) error {
	user, err := s.users.GetUser(userID)
	if err != nil {
		return fmt.Errorf("resolve user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("user %s not found", userID)
	}
	return s.sendSummary(user, year, month)
}

func (s *Scheduler) sendSummary(user *domain.User, year, month int) error {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0).Add(-time.Nanosecond)

	txs, err := s.transactions.ListTransactionsByRange(user.ID, from, to)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}

	summary := Summarize(txs, year, month)
	monthName := time.Month(month).String()

	data := email.MonthlySummaryData{
		Month:         monthName,
		Year:          year,
		Income:        summary.Income,
		Expenses:      summary.Expenses,
		Net:           summary.Net,
		TopCategories: summary.TopCategories,
		AppURL:        s.appURL,
	}
	if err := s.email.Send(user.Email, email.KindMonthlySummary, data); err != nil {
		return fmt.Errorf("send summary email: %w", err)
	}

	n := &domain.Notification{
		UserID:    user.ID,
		Kind:      domain.NotificationSystem,
		Title:     "Monthly Summary Sent",
		Message:   fmt.Sprintf("Your %s %d finance summary has been sent to your email.", monthName, year),
		ActionURL: fmt.Sprintf("%s/analytics/monthly/%d/%d", s.appURL, year, month),
	}
	if err := s.notifier.CreateNotification(n); err != nil {
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("create summary notification failed")
	}

	s.log.Info().Str("email", user.Email).Int("year", year).Int("month", month).Msg("monthly summary sent")
	return nil
}

// Summarize computes a month's totals. Top categories are ordered by summed
// amount descending; ties keep first-appearance order.
func Summarize(txs []*domain.Transaction, year, month int) domain.MonthlySummary {
	income := decimal.Zero
	expenses := decimal.Zero

	var order []string
	totals := make(map[string]decimal.Decimal)

	for _, t := range txs {
		switch t.Type {
		case domain.TypeIncome:
			income = income.Add(t.Amount)
		case domain.TypeExpense:
			expenses = expenses.Add(t.Amount)
		}

		if t.CategoryName == "" {
			continue
		}
		if _, seen := totals[t.CategoryName]; !seen {
			order = append(order, t.CategoryName)
		}
		totals[t.CategoryName] = totals[t.CategoryName].Add(t.Amount)
	}

	top := make([]domain.CategoryTotal, 0, len(order))
	for _, name := range order {
		top = append(top, domain.CategoryTotal{Name: name, Total: totals[name]})
	}
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Total.GreaterThan(top[j].Total)
	})
	if len(top) > 5 {
		top = top[:5]
	}

	return domain.MonthlySummary{
		Year:          year,
		Month:         month,
		Income:        income,
		Expenses:      expenses,
		Net:           income.Sub(expenses),
		TopCategories: top,
	}
}
