package checker

import (
	"testing"
	"time"

	"nanofab-cli/schedule"
)

// Monday 2026-03-02. Day 4 is Friday, day 7 the next Monday.
var day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func dhm(d, h, m int) *time.Time {
	return schedule.At(day.AddDate(0, 0, d).Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute))
}

func openingsEqual(a, b []Opening) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Key() != b[i].Key() {
			return false
		}
	}
	return true
}

func TestComputeOpenings(t *testing.T) {
	bookings := schedule.New(
		schedule.NewSlot(dhm(4, 10, 0), dhm(4, 12, 0), "sputter"),
		schedule.NewSlot(dhm(7, 9, 0), dhm(7, 10, 0), "sputter"),
	)
	now := *dhm(4, 9, 0)

	got := computeOpenings(bookings, now, 0)
	want := []Opening{
		{dhm(4, 9, 0), dhm(4, 10, 0)},
		{dhm(4, 12, 0), dhm(4, 17, 0)},
		{dhm(7, 8, 0), dhm(7, 9, 0)},
		{dhm(7, 10, 0), nil},
	}
	if !openingsEqual(got, want) {
		t.Errorf("want %v, got %v", want, got)
	}
}

func TestComputeOpeningsMinDuration(t *testing.T) {
	bookings := schedule.New(
		schedule.NewSlot(dhm(4, 10, 0), dhm(4, 12, 0), "sputter"),
		schedule.NewSlot(dhm(7, 9, 0), dhm(7, 10, 0), "sputter"),
	)
	now := *dhm(4, 9, 0)

	got := computeOpenings(bookings, now, 2*time.Hour)
	want := []Opening{
		{dhm(4, 12, 0), dhm(4, 17, 0)},
		{dhm(7, 10, 0), nil},
	}
	if !openingsEqual(got, want) {
		t.Errorf("want %v, got %v", want, got)
	}
}

func TestComputeOpeningsEmptySchedule(t *testing.T) {
	now := *dhm(4, 9, 0)
	got := computeOpenings(schedule.New[string](), now, 0)
	// A fully free board inverts to one open-ended opening starting now.
	if len(got) == 0 {
		t.Fatal("free board should yield openings")
	}
	first := got[0]
	if first.Start == nil || !first.Start.Equal(now) {
		t.Errorf("first opening should start now, got %v", first.Start)
	}
}

func TestOpeningKey(t *testing.T) {
	a := Opening{dhm(4, 9, 0), dhm(4, 10, 0)}
	b := Opening{dhm(4, 9, 0), dhm(4, 10, 0)}
	c := Opening{dhm(4, 9, 0), nil}
	if a.Key() != b.Key() {
		t.Error("equal openings should share a key")
	}
	if a.Key() == c.Key() {
		t.Error("different end bounds should not collide")
	}
}

func TestNewOpeningsNoPrevious(t *testing.T) {
	cur := []Opening{{dhm(4, 9, 0), dhm(4, 10, 0)}}
	if got := newOpenings(nil, cur); !openingsEqual(got, cur) {
		t.Errorf("everything is new without history, got %v", got)
	}
}

func TestNewOpeningsDiff(t *testing.T) {
	prev := []Opening{
		{dhm(4, 9, 0), dhm(4, 10, 0)},
		{dhm(4, 12, 0), dhm(4, 17, 0)},
	}
	cur := []Opening{
		{dhm(4, 12, 0), dhm(4, 17, 0)},
		{dhm(7, 8, 0), dhm(7, 9, 0)},
	}
	got := newOpenings(prev, cur)
	want := []Opening{{dhm(7, 8, 0), dhm(7, 9, 0)}}
	if !openingsEqual(got, want) {
		t.Errorf("want %v, got %v", want, got)
	}
}

func TestNewOpeningsNothingNew(t *testing.T) {
	prev := []Opening{{dhm(4, 9, 0), dhm(4, 10, 0)}}
	if got := newOpenings(prev, prev); len(got) != 0 {
		t.Errorf("unchanged openings should diff to nothing, got %v", got)
	}
}
