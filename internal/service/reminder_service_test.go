package service

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tazhate/fintrack/internal/domain"
	"github.com/tazhate/fintrack/internal/storage"
)

// fakeJobs records the scheduler calls the service makes.
type fakeJobs struct {
	mu      sync.Mutex
	added   []string
	updated []string
	removed []string
}

func (f *fakeJobs) AddReminder(r *domain.Reminder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, r.ID)
}

func (f *fakeJobs) UpdateReminder(r *domain.Reminder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, r.ID)
}

func (f *fakeJobs) RemoveReminder(reminderID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, reminderID)
}

func newReminderFixture(t *testing.T) (*ReminderService, *storage.Storage, *fakeJobs, string) {
	t.Helper()
	st, err := storage.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	u := &domain.User{Email: "alice@example.com", Name: "Alice"}
	require.NoError(t, st.CreateUser(u))

	jobs := &fakeJobs{}
	return NewReminderService(st, jobs), st, jobs, u.ID
}

func weeklyRule() domain.Recurrence {
	return domain.Recurrence{Frequency: domain.FrequencyWeekly, TimeOfDay: "09:00", DayOfWeek: 1}
}

func TestCreateReminderSchedulesJob(t *testing.T) {
	svc, st, jobs, uid := newReminderFixture(t)

	r, err := svc.Create(uid, domain.ReminderGeneral, "  Budget check  ", "Look at the numbers.", weeklyRule())
	require.NoError(t, err)
	assert.Equal(t, "Budget check", r.Title)
	assert.True(t, r.Active)
	require.NotNil(t, r.NextFireAt)
	assert.True(t, r.NextFireAt.After(time.Now().UTC()))

	stored, err := st.GetReminder(r.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)

	assert.Equal(t, []string{r.ID}, jobs.added)
}

func TestCreateReminderValidation(t *testing.T) {
	svc, _, jobs, uid := newReminderFixture(t)

	cases := []struct {
		name    string
		kind    domain.ReminderKind
		title   string
		message string
		rule    domain.Recurrence
	}{
		{"unknown kind", "nonsense", "t", "m", weeklyRule()},
		{"empty title", domain.ReminderGeneral, "", "m", weeklyRule()},
		{"title too long", domain.ReminderGeneral, strings.Repeat("x", domain.MaxTitleLen+1), "m", weeklyRule()},
		{"empty message", domain.ReminderGeneral, "t", "", weeklyRule()},
		{"message too long", domain.ReminderGeneral, "t", strings.Repeat("x", domain.MaxMessageLen+1), weeklyRule()},
		{"bad time of day", domain.ReminderGeneral, "t", "m", domain.Recurrence{Frequency: domain.FrequencyDaily, TimeOfDay: "25:99"}},
		{"day of week out of range", domain.ReminderGeneral, "t", "m", domain.Recurrence{Frequency: domain.FrequencyWeekly, TimeOfDay: "09:00", DayOfWeek: 7}},
		{"day of month out of range", domain.ReminderGeneral, "t", "m", domain.Recurrence{Frequency: domain.FrequencyMonthly, TimeOfDay: "09:00", DayOfMonth: 32}},
		{"empty custom expression", domain.ReminderGeneral, "t", "m", domain.Recurrence{Frequency: domain.FrequencyCustom}},
		{"unknown frequency", domain.ReminderGeneral, "t", "m", domain.Recurrence{Frequency: "yearly", TimeOfDay: "09:00"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(uid, tc.kind, tc.title, tc.message, tc.rule)
			require.Error(t, err)
		})
	}
	assert.Empty(t, jobs.added)
}

func TestUpdateReminderResyncsJob(t *testing.T) {
	svc, _, jobs, uid := newReminderFixture(t)

	r, err := svc.Create(uid, domain.ReminderGeneral, "Budget check", "msg", weeklyRule())
	require.NoError(t, err)

	r.Title = "Renamed"
	r.Rule = domain.Recurrence{Frequency: domain.FrequencyDaily, TimeOfDay: "07:30"}
	require.NoError(t, svc.Update(uid, r))

	got, err := svc.Get(r.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, domain.FrequencyDaily, got.Rule.Frequency)

	assert.Equal(t, []string{r.ID}, jobs.updated)
}

func TestUpdateForeignReminderDenied(t *testing.T) {
	svc, st, jobs, uid := newReminderFixture(t)

	other := &domain.User{Email: "bob@example.com"}
	require.NoError(t, st.CreateUser(other))

	r, err := svc.Create(uid, domain.ReminderGeneral, "Budget check", "msg", weeklyRule())
	require.NoError(t, err)

	r.Title = "Hijacked"
	err = svc.Update(other.ID, r)
	require.Error(t, err)
	assert.Empty(t, jobs.updated)
}

func TestSetActiveTogglesJob(t *testing.T) {
	svc, _, jobs, uid := newReminderFixture(t)

	r, err := svc.Create(uid, domain.ReminderGeneral, "Budget check", "msg", weeklyRule())
	require.NoError(t, err)

	got, err := svc.SetActive(uid, r.ID, false)
	require.NoError(t, err)
	assert.False(t, got.Active)

	got, err = svc.SetActive(uid, r.ID, true)
	require.NoError(t, err)
	assert.True(t, got.Active)
	require.NotNil(t, got.NextFireAt)

	assert.Equal(t, []string{r.ID, r.ID}, jobs.updated)
}

func TestDeleteReminderDropsJobFirst(t *testing.T) {
	svc, st, jobs, uid := newReminderFixture(t)

	r, err := svc.Create(uid, domain.ReminderGeneral, "Budget check", "msg", weeklyRule())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(uid, r.ID))
	assert.Equal(t, []string{r.ID}, jobs.removed)

	got, err := st.GetReminder(r.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCreateFromTemplate(t *testing.T) {
	svc, st, jobs, uid := newReminderFixture(t)

	tpl := &domain.ReminderTemplate{
		Kind:    domain.ReminderExpense,
		Title:   "Log today's expenses",
		Message: "Take two minutes to record what you spent.",
		Rule:    domain.Recurrence{Frequency: domain.FrequencyDaily, TimeOfDay: "21:00"},
	}
	require.NoError(t, st.CreateReminderTemplate(tpl))

	r, err := svc.CreateFromTemplate(uid, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, tpl.Title, r.Title)
	assert.Equal(t, domain.ReminderExpense, r.Kind)
	assert.Equal(t, uid, r.UserID)
	assert.Len(t, jobs.added, 1)

	_, err = svc.CreateFromTemplate(uid, "nope")
	require.Error(t, err)
}
