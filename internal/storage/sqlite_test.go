package storage

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tazhate/fintrack/internal/domain"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestUser(t *testing.T, s *Storage, email string) *domain.User {
	t.Helper()
	u := &domain.User{Email: email, Name: "Test"}
	require.NoError(t, s.CreateUser(u))
	require.NotEmpty(t, u.ID)
	return u
}

func TestUserRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	u := createTestUser(t, s, "alice@example.com")

	got, err := s.GetUser(u.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, "Test", got.Name)

	byEmail, err := s.GetUserByEmail("alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, u.ID, byEmail.ID)

	missing, err := s.GetUser("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDuplicateEmailRejected(t *testing.T) {
	s := newTestStorage(t)
	createTestUser(t, s, "alice@example.com")

	err := s.CreateUser(&domain.User{Email: "alice@example.com"})
	require.Error(t, err)
}

func TestCategoryCRUD(t *testing.T) {
	s := newTestStorage(t)
	u := createTestUser(t, s, "alice@example.com")

	c := &domain.Category{UserID: u.ID, Name: "Food", Type: domain.TypeExpense}
	require.NoError(t, s.CreateCategory(c))

	got, err := s.GetCategory(c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Food", got.Name)
	assert.Equal(t, domain.TypeExpense, got.Type)

	list, err := s.ListCategoriesByUser(u.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, s.DeleteCategory(c.ID))
	got, err = s.GetCategory(c.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTransactionRangeQuery(t *testing.T) {
	s := newTestStorage(t)
	u := createTestUser(t, s, "alice@example.com")

	food := &domain.Category{UserID: u.ID, Name: "Food", Type: domain.TypeExpense}
	require.NoError(t, s.CreateCategory(food))

	inMarch := &domain.Transaction{
		UserID:     u.ID,
		CategoryID: food.ID,
		Type:       domain.TypeExpense,
		Amount:     decimal.RequireFromString("12.50"),
		Date:       time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.CreateTransaction(inMarch))

	inApril := &domain.Transaction{
		UserID:     u.ID,
		CategoryID: food.ID,
		Type:       domain.TypeExpense,
		Amount:     decimal.RequireFromString("99"),
		Date:       time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.CreateTransaction(inApril))

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0).Add(-time.Nanosecond)
	txs, err := s.ListTransactionsByRange(u.ID, from, to)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, inMarch.ID, txs[0].ID)
	assert.Equal(t, "Food", txs[0].CategoryName)
	assert.True(t, txs[0].Amount.Equal(decimal.RequireFromString("12.50")),
		"amount %s should survive the round trip", txs[0].Amount)
}

func TestGetTransactionOwnershipFields(t *testing.T) {
	s := newTestStorage(t)
	u := createTestUser(t, s, "alice@example.com")
	c := &domain.Category{UserID: u.ID, Name: "Salary", Type: domain.TypeIncome}
	require.NoError(t, s.CreateCategory(c))

	tx := &domain.Transaction{
		UserID:     u.ID,
		CategoryID: c.ID,
		Type:       domain.TypeIncome,
		Amount:     decimal.NewFromInt(1000),
		Date:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.CreateTransaction(tx))

	got, err := s.GetTransaction(tx.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.UserID)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(1000)))

	require.NoError(t, s.DeleteTransaction(tx.ID))
	got, err = s.GetTransaction(tx.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func dailyReminder(userID, title string, next *time.Time, active bool) *domain.Reminder {
	return &domain.Reminder{
		UserID:  userID,
		Kind:    domain.ReminderGeneral,
		Title:   title,
		Message: "msg",
		Rule: domain.Recurrence{
			Frequency: domain.FrequencyDaily,
			TimeOfDay: "09:00",
		},
		Active:     active,
		NextFireAt: next,
	}
}

func TestReminderRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	u := createTestUser(t, s, "alice@example.com")

	next := time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC)
	r := dailyReminder(u.ID, "Log expenses", &next, true)
	r.Rule = domain.Recurrence{
		Frequency:  domain.FrequencyWeekly,
		TimeOfDay:  "10:30",
		DayOfWeek:  5,
		Expression: "",
	}
	require.NoError(t, s.CreateReminder(r))

	got, err := s.GetReminder(r.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.FrequencyWeekly, got.Rule.Frequency)
	assert.Equal(t, "10:30", got.Rule.TimeOfDay)
	assert.Equal(t, 5, got.Rule.DayOfWeek)
	require.NotNil(t, got.NextFireAt)
	assert.True(t, got.NextFireAt.Equal(next))
	assert.Nil(t, got.LastFired)

	got.Title = "Renamed"
	got.Active = false
	require.NoError(t, s.UpdateReminder(got))

	again, err := s.GetReminder(r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", again.Title)
	assert.False(t, again.Active)
}

func TestListDueReminders(t *testing.T) {
	s := newTestStorage(t)
	u := createTestUser(t, s, "alice@example.com")
	now := time.Date(2024, 3, 10, 0, 8, 0, 0, time.UTC)

	past := now.Add(-2 * time.Hour)
	future := now.Add(2 * time.Hour)

	due := dailyReminder(u.ID, "due", &past, true)
	notYet := dailyReminder(u.ID, "not yet", &future, true)
	inactive := dailyReminder(u.ID, "inactive", &past, false)
	unscheduled := dailyReminder(u.ID, "unscheduled", nil, true)

	for _, r := range []*domain.Reminder{due, notYet, inactive, unscheduled} {
		require.NoError(t, s.CreateReminder(r))
	}

	got, err := s.ListDueReminders(now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, due.ID, got[0].ID)

	active, err := s.ListActiveReminders()
	require.NoError(t, err)
	assert.Len(t, active, 3)
}

func TestUpdateReminderFiredAndNextFire(t *testing.T) {
	s := newTestStorage(t)
	u := createTestUser(t, s, "alice@example.com")

	r := dailyReminder(u.ID, "due", nil, true)
	require.NoError(t, s.CreateReminder(r))

	fired := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	next := fired.Add(24 * time.Hour)
	require.NoError(t, s.UpdateReminderFired(r.ID, fired))
	require.NoError(t, s.UpdateReminderNextFire(r.ID, next))

	got, err := s.GetReminder(r.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastFired)
	require.NotNil(t, got.NextFireAt)
	assert.True(t, got.LastFired.Equal(fired))
	assert.True(t, got.NextFireAt.Equal(next))
}

func TestReminderTemplates(t *testing.T) {
	s := newTestStorage(t)

	tpl := &domain.ReminderTemplate{
		Kind:    domain.ReminderExpense,
		Title:   "Log today's expenses",
		Message: "Take two minutes to record what you spent.",
		Rule:    domain.Recurrence{Frequency: domain.FrequencyDaily, TimeOfDay: "21:00"},
	}
	require.NoError(t, s.CreateReminderTemplate(tpl))

	got, err := s.GetReminderTemplate(tpl.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.ReminderExpense, got.Kind)
	assert.Equal(t, "21:00", got.Rule.TimeOfDay)

	list, err := s.ListReminderTemplates()
	require.NoError(t, err)
	assert.Len(t, list, 1)

	missing, err := s.GetReminderTemplate("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestNotificationsUnreadFilter(t *testing.T) {
	s := newTestStorage(t)
	u := createTestUser(t, s, "alice@example.com")

	first := &domain.Notification{UserID: u.ID, Kind: domain.NotificationReminder, Title: "one", Message: "m"}
	second := &domain.Notification{UserID: u.ID, Kind: domain.NotificationSystem, Title: "two", Message: "m", ActionURL: "/x"}
	require.NoError(t, s.CreateNotification(first))
	require.NoError(t, s.CreateNotification(second))

	require.NoError(t, s.MarkNotificationRead(first.ID))

	unread, err := s.ListNotificationsByUser(u.ID, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, second.ID, unread[0].ID)
	assert.Equal(t, "/x", unread[0].ActionURL)

	all, err := s.ListNotificationsByUser(u.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.DeleteNotification(second.ID))
	all, err = s.ListNotificationsByUser(u.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
