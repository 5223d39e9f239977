// Package recurrence turns reminder recurrence rules into concrete fire
// times. All math is done in UTC and is deterministic given the reference
// instant; custom cron expressions are opaque here and only ever parsed by
// the cron library.
package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tazhate/fintrack/internal/domain"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Next returns the first occurrence of rule strictly after ref.
//
// Daily rolls to tomorrow when today's time has passed. Weekly walks
// (dow-refDow+7)%7 days ahead and adds a week when that lands at or before
// ref. Monthly targets the rule's day-of-month in the reference month,
// clamped to the month's last day, and rolls one month forward when passed.
// Custom rules get a reference+1h bookkeeping estimate (actual firing is the
// job registry's business); unknown frequencies fall back to reference+24h.
func Next(rule domain.Recurrence, ref time.Time) time.Time {
	ref = ref.UTC()

	switch rule.Frequency {
	case domain.FrequencyDaily:
		h, m := mustClock(rule.TimeOfDay)
		next := time.Date(ref.Year(), ref.Month(), ref.Day(), h, m, 0, 0, time.UTC)
		if !next.After(ref) {
			next = next.AddDate(0, 0, 1)
		}
		return next

	case domain.FrequencyWeekly:
		h, m := mustClock(rule.TimeOfDay)
		ahead := (rule.DayOfWeek - int(ref.Weekday()) + 7) % 7
		next := time.Date(ref.Year(), ref.Month(), ref.Day()+ahead, h, m, 0, 0, time.UTC)
		if !next.After(ref) {
			next = next.AddDate(0, 0, 7)
		}
		return next

	case domain.FrequencyMonthly:
		h, m := mustClock(rule.TimeOfDay)
		next := monthDay(ref.Year(), ref.Month(), rule.DayOfMonth, h, m)
		if !next.After(ref) {
			next = monthDay(ref.Year(), ref.Month()+1, rule.DayOfMonth, h, m)
		}
		return next

	case domain.FrequencyCustom:
		// Bookkeeping estimate only; never used to drive firing.
		return ref.Add(time.Hour)

	default:
		return ref.Add(24 * time.Hour)
	}
}

// Advance computes the post-fire NextFireAt used by the catch-up sweep:
// daily +24h, weekly +7d, monthly the same (clamped) day next month, custom
// via the cron parser. The second return is false when the frequency is
// unknown, in which case the stored value is left alone.
func Advance(rule domain.Recurrence, now time.Time) (time.Time, bool) {
	now = now.UTC()

	switch rule.Frequency {
	case domain.FrequencyDaily:
		return now.Add(24 * time.Hour), true
	case domain.FrequencyWeekly:
		return now.Add(7 * 24 * time.Hour), true
	case domain.FrequencyMonthly:
		dom := rule.DayOfMonth
		if dom == 0 {
			dom = now.Day()
		}
		return monthDay(now.Year(), now.Month()+1, dom, now.Hour(), now.Minute()), true
	case domain.FrequencyCustom:
		sched, err := cronParser.Parse(rule.Expression)
		if err != nil {
			return time.Time{}, false
		}
		return sched.Next(now), true
	default:
		return time.Time{}, false
	}
}

// CronSpec translates a rule into a five-field cron expression for the job
// registry. Custom expressions pass through untouched.
func CronSpec(rule domain.Recurrence) (string, error) {
	if rule.Frequency == domain.FrequencyCustom {
		if strings.TrimSpace(rule.Expression) == "" {
			return "", fmt.Errorf("custom rule has empty expression")
		}
		return rule.Expression, nil
	}

	h, m, err := Clock(rule.TimeOfDay)
	if err != nil {
		return "", err
	}

	switch rule.Frequency {
	case domain.FrequencyDaily:
		return fmt.Sprintf("%d %d * * *", m, h), nil
	case domain.FrequencyWeekly:
		if rule.DayOfWeek < 0 || rule.DayOfWeek > 6 {
			return "", fmt.Errorf("day of week %d out of range", rule.DayOfWeek)
		}
		return fmt.Sprintf("%d %d * * %d", m, h, rule.DayOfWeek), nil
	case domain.FrequencyMonthly:
		if rule.DayOfMonth < 1 || rule.DayOfMonth > 31 {
			return "", fmt.Errorf("day of month %d out of range", rule.DayOfMonth)
		}
		return fmt.Sprintf("%d %d %d * *", m, h, rule.DayOfMonth), nil
	default:
		return "", fmt.Errorf("unknown frequency %q", rule.Frequency)
	}
}

// Clock parses "HH:MM" (seconds tolerated and ignored, matching the
// original TIME column format).
func Clock(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}

func mustClock(s string) (hour, minute int) {
	h, m, err := Clock(s)
	if err != nil {
		// Callers validate rules before persisting; a bad stored value
		// degrades to midnight rather than skewing the whole schedule.
		return 0, 0
	}
	return h, m
}

// monthDay builds the instant at day dom of the given month, clamping dom to
// the month's last day (dom=31 in April yields April 30). Month may be
// outside 1-12; time.Date normalizes it first.
func monthDay(year int, month time.Month, dom, hour, minute int) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	if dom > last {
		dom = last
	}
	return time.Date(first.Year(), first.Month(), dom, hour, minute, 0, 0, time.UTC)
}
