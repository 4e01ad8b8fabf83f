package schedule

import "testing"

func assertSortedDisjoint[M any](t *testing.T, tt *Timetable[M]) {
	t.Helper()
	slots := tt.Slots()
	for i, s := range slots {
		if s.Start != nil && s.End != nil && !s.Start.Before(*s.End) {
			t.Errorf("slot %d is empty or inverted: %v..%v", i, s.Start, s.End)
		}
		if i == 0 {
			continue
		}
		prev := slots[i-1]
		if s.Start == nil {
			t.Errorf("slot %d has absent start but is not first", i)
			continue
		}
		if prev.End == nil {
			t.Errorf("slot %d has absent end but is not last", i-1)
			continue
		}
		if prev.End.After(*s.Start) {
			t.Errorf("slots %d and %d overlap: %v > %v", i-1, i, prev.End, s.Start)
		}
	}
}

func spans[M any](tt *Timetable[M]) []Span {
	out := make([]Span, 0, tt.Len())
	for _, s := range tt.Slots() {
		out = append(out, s.Span)
	}
	return out
}

func assertSpans[M any](t *testing.T, tt *Timetable[M], want []Span) {
	t.Helper()
	got := spans(tt)
	if len(got) != len(want) {
		t.Fatalf("want %d slots, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if !sameBound(got[i].Start, want[i].Start) || !sameBound(got[i].End, want[i].End) {
			t.Errorf("slot %d: want %v..%v, got %v..%v",
				i, want[i].Start, want[i].End, got[i].Start, got[i].End)
		}
	}
}

func TestInvertEmpty(t *testing.T) {
	tt := New[string]()
	inv := tt.Invert()
	assertSpans(t, &inv, []Span{{nil, nil}})
}

func TestInvertFullyOccupied(t *testing.T) {
	tt := New(NewSlot(nil, nil, "busy forever"))
	inv := tt.Invert()
	if inv.Len() != 0 {
		t.Fatalf("want empty, got %d slots", inv.Len())
	}
}

func TestInvertOpenStart(t *testing.T) {
	tt := New(NewSlot(nil, hm(9, 0), "a"))
	inv := tt.Invert()
	assertSpans(t, &inv, []Span{{hm(9, 0), nil}})
}

func TestInvertBoundedPair(t *testing.T) {
	tt := New(
		NewSlot(hm(9, 0), hm(11, 0), "a"),
		NewSlot(hm(13, 0), hm(15, 0), "b"),
	)
	inv := tt.Invert()
	assertSpans(t, &inv, []Span{
		{nil, hm(9, 0)},
		{hm(11, 0), hm(13, 0)},
		{hm(15, 0), nil},
	})
	assertSortedDisjoint(t, &inv)
}

func TestInvertTouchingSlotsEmitNoGap(t *testing.T) {
	tt := New(
		NewSlot(hm(9, 0), hm(11, 0), "a"),
		NewSlot(hm(11, 0), hm(13, 0), "b"),
	)
	inv := tt.Invert()
	assertSpans(t, &inv, []Span{
		{nil, hm(9, 0)},
		{hm(13, 0), nil},
	})
}

func TestInvertTwiceRestoresBoundaries(t *testing.T) {
	tt := New(
		NewSlot(hm(9, 0), hm(11, 0), "a"),
		NewSlot(hm(13, 0), hm(15, 0), "b"),
	)
	inv := tt.Invert()
	back := inv.Invert()
	assertSpans(t, &back, []Span{
		{hm(9, 0), hm(11, 0)},
		{hm(13, 0), hm(15, 0)},
	})
}

func TestSubtractSplitsSlot(t *testing.T) {
	tt := New(NewSlot(hm(9, 0), hm(11, 0), "litho"))
	tt.Subtract(NewSpan(hm(10, 0), hm(10, 30)))
	assertSpans(t, &tt, []Span{
		{hm(9, 0), hm(10, 0)},
		{hm(10, 30), hm(11, 0)},
	})
	for i, s := range tt.Slots() {
		if s.Meta != "litho" {
			t.Errorf("fragment %d lost its payload: %q", i, s.Meta)
		}
	}
	assertSortedDisjoint(t, &tt)
}

func TestSubtractConsumesCoveredSlot(t *testing.T) {
	tt := New(NewSlot(hm(9, 0), hm(10, 0), "a"))
	tt.Subtract(NewSpan(hm(9, 0), hm(11, 0)))
	if tt.Len() != 0 {
		t.Fatalf("want empty, got %v", spans(&tt))
	}
}

func TestSubtractEverything(t *testing.T) {
	tt := New(
		NewSlot(hm(9, 0), hm(11, 0), "a"),
		NewSlot(hm(13, 0), nil, "b"),
	)
	tt.Subtract(NewSpan(nil, nil))
	if tt.Len() != 0 {
		t.Fatalf("want empty, got %v", spans(&tt))
	}
}

func TestSubtractZeroWidthIsNoop(t *testing.T) {
	tt := New(NewSlot(hm(9, 0), hm(11, 0), "a"))
	tt.Subtract(NewSpan(hm(10, 0), hm(10, 0)))
	assertSpans(t, &tt, []Span{{hm(9, 0), hm(11, 0)}})
}

func TestSubtractIsIdempotent(t *testing.T) {
	once := New(NewSlot(hm(9, 0), hm(11, 0), "a"))
	other := NewSpan(hm(10, 0), hm(10, 30))
	once.Subtract(other)
	twice := New(NewSlot(hm(9, 0), hm(11, 0), "a"))
	twice.Subtract(other)
	twice.Subtract(other)
	assertSpans(t, &twice, spans(&once))
}

func TestSubtractOpenEndedSpan(t *testing.T) {
	tt := New(
		NewSlot(hm(9, 0), hm(11, 0), "a"),
		NewSlot(hm(13, 0), hm(15, 0), "b"),
		NewSlot(hm(16, 0), nil, "c"),
	)
	tt.Subtract(NewSpan(hm(14, 0), nil))
	assertSpans(t, &tt, []Span{
		{hm(9, 0), hm(11, 0)},
		{hm(13, 0), hm(14, 0)},
	})
}

func TestSubtractOpenStartedSpan(t *testing.T) {
	tt := New(
		NewSlot(nil, hm(9, 0), "a"),
		NewSlot(hm(10, 0), hm(12, 0), "b"),
	)
	tt.Subtract(NewSpan(nil, hm(11, 0)))
	assertSpans(t, &tt, []Span{{hm(11, 0), hm(12, 0)}})
}

func TestSubtractExactBoundaryDropsZeroWidthFragment(t *testing.T) {
	// Trimming at a slot's own boundary must not leave an instantaneous
	// fragment behind.
	tt := New(NewSlot(hm(9, 0), hm(11, 0), "a"))
	tt.Subtract(NewSpan(hm(9, 0), hm(10, 0)))
	assertSpans(t, &tt, []Span{{hm(10, 0), hm(11, 0)}})

	tt = New(NewSlot(hm(9, 0), hm(11, 0), "a"))
	tt.Subtract(NewSpan(hm(10, 0), hm(11, 0)))
	assertSpans(t, &tt, []Span{{hm(9, 0), hm(10, 0)}})
}

func TestSubtractLeavesUntouchedNeighbors(t *testing.T) {
	tt := New(
		NewSlot(hm(8, 0), hm(9, 0), "a"),
		NewSlot(hm(10, 0), hm(11, 0), "b"),
		NewSlot(hm(12, 0), hm(13, 0), "c"),
	)
	tt.Subtract(NewSpan(hm(10, 0), hm(11, 0)))
	assertSpans(t, &tt, []Span{
		{hm(8, 0), hm(9, 0)},
		{hm(12, 0), hm(13, 0)},
	})
	if got := tt.Slots()[1].Meta; got != "c" {
		t.Errorf("payload shifted: want c, got %q", got)
	}
}

func TestNewSortedOrdersByStart(t *testing.T) {
	tt := NewSorted([]Slot[string]{
		NewSlot(hm(13, 0), hm(15, 0), "b"),
		NewSlot(hm(9, 0), hm(11, 0), "a"),
		NewSlot(nil, hm(8, 0), "open"),
	})
	assertSpans(t, &tt, []Span{
		{nil, hm(8, 0)},
		{hm(9, 0), hm(11, 0)},
		{hm(13, 0), hm(15, 0)},
	})
}
