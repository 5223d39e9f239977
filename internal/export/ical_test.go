package export

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tazhate/fintrack/internal/domain"
)

func reminder(id string, rule domain.Recurrence) *domain.Reminder {
	return &domain.Reminder{
		ID:      id,
		UserID:  "u1",
		Kind:    domain.ReminderGeneral,
		Title:   "Budget check",
		Message: "Look at the numbers.",
		Rule:    rule,
		Active:  true,
	}
}

func TestFeedContainsRRules(t *testing.T) {
	from := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	reminders := []*domain.Reminder{
		reminder("r1", domain.Recurrence{Frequency: domain.FrequencyDaily, TimeOfDay: "09:00"}),
		reminder("r2", domain.Recurrence{Frequency: domain.FrequencyWeekly, TimeOfDay: "10:00", DayOfWeek: 0}),
		reminder("r3", domain.Recurrence{Frequency: domain.FrequencyMonthly, TimeOfDay: "08:00", DayOfMonth: 15}),
	}

	cal, err := Feed(reminders, from)
	require.NoError(t, err)

	data, err := Encode(cal)
	require.NoError(t, err)
	ics := string(data)

	assert.Contains(t, ics, "BEGIN:VCALENDAR")
	assert.Contains(t, ics, "FREQ=DAILY")
	assert.Contains(t, ics, "FREQ=WEEKLY;BYDAY=SU")
	assert.Contains(t, ics, "FREQ=MONTHLY;BYMONTHDAY=15")
	assert.Equal(t, 3, strings.Count(ics, "BEGIN:VEVENT"))
	assert.Contains(t, ics, "r1@fintrack")
}

func TestFeedSkipsInactiveAndCustomHasNoRRule(t *testing.T) {
	from := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)

	inactive := reminder("r1", domain.Recurrence{Frequency: domain.FrequencyDaily, TimeOfDay: "09:00"})
	inactive.Active = false
	custom := reminder("r2", domain.Recurrence{Frequency: domain.FrequencyCustom, Expression: "0 12 * * 1"})

	cal, err := Feed([]*domain.Reminder{inactive, custom}, from)
	require.NoError(t, err)

	data, err := Encode(cal)
	require.NoError(t, err)
	ics := string(data)

	assert.Equal(t, 1, strings.Count(ics, "BEGIN:VEVENT"))
	assert.NotContains(t, ics, "RRULE")
	// Next Monday noon after the reference.
	assert.Contains(t, ics, "DTSTART:20240311T120000Z")
}

func TestFeedEmpty(t *testing.T) {
	_, err := Feed(nil, time.Now())
	require.Error(t, err)
}

func TestOccurrencesWeekly(t *testing.T) {
	from := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC) // Tuesday
	r := reminder("r1", domain.Recurrence{Frequency: domain.FrequencyWeekly, TimeOfDay: "10:00", DayOfWeek: 0})

	got, err := Occurrences(r, from, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC), got[0])
	assert.Equal(t, time.Date(2024, 3, 17, 10, 0, 0, 0, time.UTC), got[1])
	assert.Equal(t, time.Date(2024, 3, 24, 10, 0, 0, 0, time.UTC), got[2])
}

func TestOccurrencesCustom(t *testing.T) {
	from := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	r := reminder("r1", domain.Recurrence{Frequency: domain.FrequencyCustom, Expression: "0 12 * * *"})

	got, err := Occurrences(r, from, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC), got[0])
	assert.Equal(t, time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC), got[1])
}

func TestOccurrencesBadCustomExpression(t *testing.T) {
	r := reminder("r1", domain.Recurrence{Frequency: domain.FrequencyCustom, Expression: "bogus"})
	_, err := Occurrences(r, time.Now(), 3)
	require.Error(t, err)
}
