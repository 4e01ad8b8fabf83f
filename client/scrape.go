package client

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"nanofab-cli/schedule"
)

// extractNonce pulls the nonce pair out of a modal fragment's hidden
// form fields.
func extractNonce(fragment string) (nonce, nonceKey string, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", "", err
	}
	nonceSel := doc.Find("[name=nonce]")
	keySel := doc.Find("[name=nonce_key]")
	if nonceSel.Length() != 1 || keySel.Length() != 1 {
		return "", "", fmt.Errorf("modal fragment carried %d nonce and %d nonce_key fields",
			nonceSel.Length(), keySel.Length())
	}
	nonce, _ = nonceSel.Attr("value")
	nonceKey, _ = keySel.Attr("value")
	if nonce == "" || nonceKey == "" {
		return "", "", fmt.Errorf("modal fragment carried empty nonce fields")
	}
	return nonce, nonceKey, nil
}

// parseBookingsFragment scrapes booking rows from the tool bookings
// fragment. Every row exposes three titled cells, in order: start time,
// end time, tool name. Times look like "9:00am Tue Mar 3rd" with no
// year attached.
func parseBookingsFragment(fragment string, now time.Time) ([]schedule.Slot[string], error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, err
	}
	var slots []schedule.Slot[string]
	var firstErr error
	doc.Find("[id^=booking-]").Each(func(_ int, row *goquery.Selection) {
		if firstErr != nil {
			return
		}
		titles := row.Find("[title]")
		if titles.Length() < 3 {
			firstErr = fmt.Errorf("booking row carried %d titled cells, want 3", titles.Length())
			return
		}
		startText, _ := titles.Eq(0).Attr("title")
		endText, _ := titles.Eq(1).Attr("title")
		name, _ := titles.Eq(2).Attr("title")
		start, err := parsePortalTime(trimOrdinal(startText), toolBookingTimeLayout, now)
		if err != nil {
			firstErr = err
			return
		}
		end, err := parsePortalTime(trimOrdinal(endText), toolBookingTimeLayout, now)
		if err != nil {
			firstErr = err
			return
		}
		slots = append(slots, schedule.NewSlot(schedule.At(start), schedule.At(end), name))
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return slots, nil
}

// userBookingRow is one entry of the user bookings modal: the tool's
// display label and the booking's start time.
type userBookingRow struct {
	Label string
	Start time.Time
}

// parseUserBookingRows scrapes the user bookings modal. Each row holds
// column cells whose text carries the tool name and a start time like
// "Mar 3 @ 9:00 am".
func parseUserBookingRows(fragment string, now time.Time) ([]userBookingRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, err
	}
	var rows []userBookingRow
	var firstErr error
	doc.Find("[id^=booking-]").Each(func(_ int, row *goquery.Selection) {
		if firstErr != nil {
			return
		}
		cells := row.Find("[class^=columns]")
		if cells.Length() < 2 {
			firstErr = fmt.Errorf("user booking row carried %d cells, want 2", cells.Length())
			return
		}
		label := strings.TrimSpace(cells.Eq(0).Text())
		start, err := parsePortalTime(strings.TrimSpace(cells.Eq(1).Text()), userBookingTimeLayout, now)
		if err != nil {
			firstErr = err
			return
		}
		rows = append(rows, userBookingRow{Label: label, Start: start})
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return rows, nil
}
