package client

import (
	"fmt"
	"strings"
	"time"
)

const (
	// toolBookingTimeLayout matches the titled cells of the bookings
	// table, e.g. "9:00am Tue Mar 3" (after ordinal trimming).
	toolBookingTimeLayout = "3:04pm Mon Jan 2"

	// userBookingTimeLayout matches the user bookings modal,
	// e.g. "Mar 3 @ 9:00 am".
	userBookingTimeLayout = "Jan 2 @ 3:04 pm"
)

// trimOrdinal strips the ordinal suffix the portal appends to day
// numbers ("Mar 3rd" becomes "Mar 3").
func trimOrdinal(s string) string {
	return strings.TrimRight(s, "stndrh")
}

// parsePortalTime parses a portal timestamp that carries no year. It
// probes the current year and up to nine years either side, nearest
// first, taking the first year that yields a valid date. A February 29
// rules out non-leap years; when the layout carries a weekday, any year
// where the weekday contradicts the date is ruled out too. Go's parser
// accepts but ignores the weekday token, so that check is explicit.
func parsePortalTime(value, layout string, now time.Time) (time.Time, error) {
	wantWeekday := ""
	if i := fieldIndex(layout, "Mon"); i >= 0 {
		fields := strings.Fields(value)
		if i >= len(fields) {
			return time.Time{}, fmt.Errorf("parse %q: missing weekday field", value)
		}
		wantWeekday = fields[i]
	}
	base := now.Year()
	years := []int{base}
	for n := 1; n < 10; n++ {
		years = append(years, base+n, base-n)
	}
	for _, year := range years {
		t, err := time.ParseInLocation(layout+" 2006", fmt.Sprintf("%s %d", value, year), time.Local)
		if err != nil {
			if strings.Contains(err.Error(), "out of range") {
				continue
			}
			return time.Time{}, fmt.Errorf("parse %q: %w", value, err)
		}
		if wantWeekday != "" && t.Format("Mon") != wantWeekday {
			continue
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("could not resolve year for %q", value)
}

func fieldIndex(s, field string) int {
	for i, f := range strings.Fields(s) {
		if f == field {
			return i
		}
	}
	return -1
}
