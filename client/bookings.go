package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"nanofab-cli/schedule"
)

// ToolBookings fetches a tool's booked slots between the given dates,
// either of which may be nil for an open range. The bookings endpoint
// wants a fresh nonce per request and fails sporadically, so the whole
// nonce-then-fetch sequence is retried.
func (c *Client) ToolBookings(ctx context.Context, tool Tool, from, to *time.Time) (schedule.Timetable[string], error) {
	form := url.Values{"tool_id[]": {tool.ID}}
	if from != nil {
		form.Set("start_date", from.Format("2006-01-02"))
	}
	if to != nil {
		form.Set("end_date", to.Format("2006-01-02"))
	}
	fragment, err := retry(ctx, bookingRetries, func() (string, error) {
		nonce, nonceKey, err := c.nonce(ctx, "modal.search-tool-bookings.php")
		if err != nil {
			return "", err
		}
		withNonce := url.Values{}
		for k, v := range form {
			withNonce[k] = v
		}
		withNonce.Set("nonce", nonce)
		withNonce.Set("nonce_key", nonceKey)
		return c.postForm(ctx, "/ajax.get-bookings.php", withNonce)
	})
	if err != nil {
		return schedule.Timetable[string]{}, fmt.Errorf("get bookings for %q: %w", tool.Label, err)
	}
	slots, err := parseBookingsFragment(fragment, time.Now())
	if err != nil {
		return schedule.Timetable[string]{}, fmt.Errorf("parse bookings for %q: %w", tool.Label, err)
	}
	return schedule.NewSorted(slots), nil
}

// ToolBookingAt finds the booking on the given tool that starts exactly
// at the given instant.
func (c *Client) ToolBookingAt(ctx context.Context, tool Tool, at time.Time) (schedule.Slot[string], error) {
	day := at
	bookings, err := c.ToolBookings(ctx, tool, &day, &day)
	if err != nil {
		return schedule.Slot[string]{}, err
	}
	for _, slot := range bookings.Slots() {
		if slot.Start != nil && slot.Start.Equal(at) {
			return slot, nil
		}
	}
	return schedule.Slot[string]{}, fmt.Errorf("no booking on %q starts at %s", tool.Label, at.Format("2006-01-02 15:04"))
}

// UserBookings fetches the signed-in user's bookings. The modal only
// exposes tool name and start time, so every row is resolved to its
// concrete slot through the tool's own schedule.
func (c *Client) UserBookings(ctx context.Context) (schedule.Timetable[string], error) {
	fragment, err := c.postForm(ctx, "/ajax.load-modal.php", url.Values{
		"noclass": {"1"},
		"load":    {"modal.user.bookings.php"},
	})
	if err != nil {
		return schedule.Timetable[string]{}, fmt.Errorf("load user bookings: %w", err)
	}
	rows, err := parseUserBookingRows(fragment, time.Now())
	if err != nil {
		return schedule.Timetable[string]{}, fmt.Errorf("parse user bookings: %w", err)
	}
	var slots []schedule.Slot[string]
	for _, row := range rows {
		tool, err := c.ToolByLabel(ctx, row.Label)
		if err != nil {
			return schedule.Timetable[string]{}, err
		}
		slot, err := c.ToolBookingAt(ctx, tool, row.Start)
		if err != nil {
			return schedule.Timetable[string]{}, err
		}
		slots = append(slots, slot)
	}
	return schedule.NewSorted(slots), nil
}
