package schedule

import "time"

// SubtractBefore removes everything up to the given instant.
func (t *Timetable[M]) SubtractBefore(now time.Time) {
	t.Subtract(NewSpan(nil, At(now)))
}

// SubtractWeekends removes every Saturday-midnight-to-Monday-midnight
// window, starting from the most recent Saturday at or before now and
// stepping a week at a time until past the timetable's last timestamp.
// The bound is computed once up front so mutation during the loop
// cannot move it.
func (t *Timetable[M]) SubtractWeekends(now time.Time) {
	last, ok := t.lastTime()
	if !ok {
		return
	}
	saturday := midnight(now)
	for saturday.Weekday() != time.Saturday {
		saturday = saturday.AddDate(0, 0, -1)
	}
	weekend := NewSpan(At(saturday), At(saturday.AddDate(0, 0, 2)))
	for !weekend.Start.After(last) {
		t.Subtract(weekend)
		weekend = weekend.AddDays(7)
	}
}

// SubtractAfterHours removes the nightly 5pm-to-8am window, seeded two
// days back from today and stepping a day at a time until past the
// timetable's last timestamp.
func (t *Timetable[M]) SubtractAfterHours(now time.Time) {
	last, ok := t.lastTime()
	if !ok {
		return
	}
	day := midnight(now)
	dayEnd := day.Add(17 * time.Hour)
	nextDayStart := day.AddDate(0, 0, 1).Add(8 * time.Hour)
	overnight := NewSpan(At(dayEnd), At(nextDayStart)).AddDays(-2)
	for !overnight.Start.After(last) {
		t.Subtract(overnight)
		overnight = overnight.AddDays(1)
	}
}

// SubtractShorterThan drops every slot shorter than min. Slots with an
// absent bound have no duration and always survive: an open-ended slot
// is never too short.
func (t *Timetable[M]) SubtractShorterThan(min time.Duration) {
	kept := t.slots[:0]
	for _, s := range t.slots {
		if d, ok := s.Duration(); !ok || d >= min {
			kept = append(kept, s)
		}
	}
	t.slots = kept
}

// midnight truncates an instant to the start of its calendar day.
func midnight(at time.Time) time.Time {
	return time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())
}
