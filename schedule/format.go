package schedule

import (
	"fmt"
	"strings"
	"time"
)

// String renders the timetable grouped by calendar day: a centered date
// header per day, then one "start - end" line per slot. An absent bound
// renders as blank space in its position. A bound falling on a new day
// starts a new header block, even mid-line.
func (t *Timetable[M]) String() string {
	if len(t.slots) == 0 {
		return "Empty Timetable"
	}
	first := t.slots[0]
	var prevDate time.Time
	switch {
	case first.Start != nil:
		prevDate = midnight(*first.Start)
	case first.End != nil:
		prevDate = midnight(*first.End)
	default:
		return "Anytime"
	}
	var b strings.Builder
	writeDayHeader(&b, prevDate)
	i := 0
	for _, s := range t.slots {
		for _, bound := range []*time.Time{s.Start, s.End} {
			if bound != nil && !midnight(*bound).Equal(prevDate) {
				prevDate = midnight(*bound)
				if i%2 == 1 {
					b.WriteString(" - ")
				}
				b.WriteString("\n")
				writeDayHeader(&b, prevDate)
				if i%2 == 1 {
					b.WriteString(blankBound)
				}
			}
			if i%2 == 1 {
				b.WriteString(" - ")
			}
			if bound != nil {
				fmt.Fprintf(&b, "%7s", bound.Format("3:04pm"))
			} else {
				b.WriteString(blankBound)
			}
			if i%2 == 1 {
				b.WriteString("\n")
			}
			i++
		}
	}
	return b.String()
}

// blankBound is as wide as a rendered time like " 9:00am".
const blankBound = "       "

func writeDayHeader(b *strings.Builder, day time.Time) {
	fmt.Fprintf(b, "[ %s ]\n", center(day.Format("Monday Jan _2 2006"), 23))
}

func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	left := (width - len(s)) / 2
	right := width - len(s) - left
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
}
