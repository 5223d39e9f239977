package scheduler

import (
	"github.com/tazhate/fintrack/internal/recurrence"
)

// runCatchUp is the durability pass: any reminder whose next_fire_at has
// slipped into the past, typically because the process was down when its
// cron job should have fired, is dispatched now and its next_fire_at
// advanced. Failures are isolated per reminder so one bad row cannot starve
// the rest of the batch.
func (s *Scheduler) runCatchUp() {
	now := s.now().UTC()

	due, err := s.reminders.ListDueReminders(now)
	if err != nil {
		s.log.Error().Err(err).Msg("catch-up: list due reminders failed")
		return
	}

	for _, r := range due {
		s.SendReminder(r)

		next, ok := recurrence.Advance(r.Rule, now)
		if !ok {
			// Unknown frequency or unparseable custom expression; the
			// stored next_fire_at stays put.
			s.log.Warn().Str("reminder_id", r.ID).Str("frequency", string(r.Rule.Frequency)).Msg("catch-up: cannot advance next fire time")
			continue
		}
		if err := s.reminders.UpdateReminderNextFire(r.ID, next); err != nil {
			s.log.Error().Err(err).Str("reminder_id", r.ID).Msg("catch-up: update next fire time failed")
		}
	}

	if len(due) > 0 {
		s.log.Info().Int("processed", len(due)).Msg("catch-up pass complete")
	}
}
