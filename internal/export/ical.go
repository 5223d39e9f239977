// Package export renders a user's reminder schedules as an iCalendar feed.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-ical"
	"github.com/robfig/cron/v3"
	"github.com/teambition/rrule-go"

	"github.com/tazhate/fintrack/internal/domain"
	"github.com/tazhate/fintrack/internal/recurrence"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// weekday 0-6 (Sunday first) to rrule's Monday-first constants.
var rruleWeekdays = []rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// Feed builds a VCALENDAR with one VEVENT per active reminder. Daily,
// weekly and monthly rules carry an RRULE; custom cron expressions don't
// map onto RRULE, so those events hold only their next occurrence.
func Feed(reminders []*domain.Reminder, from time.Time) (*ical.Calendar, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//fintrack//reminders//EN")

	for _, r := range reminders {
		if !r.Active {
			continue
		}
		cal.Children = append(cal.Children, Event(r, from).Component)
	}

	if len(cal.Children) == 0 {
		return nil, fmt.Errorf("no active reminders to export")
	}
	return cal, nil
}

// Event builds the VEVENT for one reminder: next occurrence as DTSTART and,
// for the three fixed shapes, an RRULE.
func Event(r *domain.Reminder, from time.Time) *ical.Event {
	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, r.ID+"@fintrack")
	event.Props.SetText(ical.PropSummary, r.Title)
	if r.Message != "" {
		event.Props.SetText(ical.PropDescription, r.Message)
	}

	start := recurrence.Next(r.Rule, from)
	if r.Rule.Frequency == domain.FrequencyCustom {
		if sched, err := cronParser.Parse(r.Rule.Expression); err == nil {
			start = sched.Next(from)
		}
	}
	event.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
	event.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())

	if rule, err := rruleFor(r.Rule); err == nil && rule != "" {
		event.Props.SetText(ical.PropRecurrenceRule, rule)
	}
	return event
}

// Encode serializes the calendar for an HTTP response.
func Encode(cal *ical.Calendar) ([]byte, error) {
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}

func rruleFor(rule domain.Recurrence) (string, error) {
	var opt rrule.ROption

	switch rule.Frequency {
	case domain.FrequencyDaily:
		opt = rrule.ROption{Freq: rrule.DAILY}
	case domain.FrequencyWeekly:
		if rule.DayOfWeek < 0 || rule.DayOfWeek > 6 {
			return "", fmt.Errorf("day of week %d out of range", rule.DayOfWeek)
		}
		opt = rrule.ROption{Freq: rrule.WEEKLY, Byweekday: []rrule.Weekday{rruleWeekdays[rule.DayOfWeek]}}
	case domain.FrequencyMonthly:
		opt = rrule.ROption{Freq: rrule.MONTHLY, Bymonthday: []int{rule.DayOfMonth}}
	case domain.FrequencyCustom:
		return "", nil
	default:
		return "", fmt.Errorf("unknown frequency %q", rule.Frequency)
	}

	rr, err := rrule.NewRRule(opt)
	if err != nil {
		return "", err
	}
	return rr.String(), nil
}

// Occurrences previews the next n fire times of a reminder strictly after
// from.
func Occurrences(r *domain.Reminder, from time.Time, n int) ([]time.Time, error) {
	if n <= 0 {
		return nil, nil
	}
	from = from.UTC()

	if r.Rule.Frequency == domain.FrequencyCustom {
		sched, err := cronParser.Parse(r.Rule.Expression)
		if err != nil {
			return nil, fmt.Errorf("parse custom expression: %w", err)
		}
		out := make([]time.Time, 0, n)
		t := from
		for i := 0; i < n; i++ {
			t = sched.Next(t)
			out = append(out, t)
		}
		return out, nil
	}

	ruleStr, err := rruleFor(r.Rule)
	if err != nil {
		return nil, err
	}
	opt, err := rrule.StrToROption(ruleStr)
	if err != nil {
		return nil, err
	}
	opt.Dtstart = recurrence.Next(r.Rule, from)

	rr, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, err
	}

	out := make([]time.Time, 0, n)
	next := rr.Iterator()
	for len(out) < n {
		t, ok := next()
		if !ok {
			break
		}
		out = append(out, t)
	}
	return out, nil
}
