package schedule

import (
	"sort"
	"time"
)

// Timetable is an ordered collection of non-overlapping slots, sorted
// ascending by start (an absent start sorts first). Callers of New hand
// over slots already in that shape; every operation preserves it.
type Timetable[M any] struct {
	slots []Slot[M]
}

// New builds a timetable from slots that are already sorted and
// pairwise disjoint. The contract is not validated.
func New[M any](slots ...Slot[M]) Timetable[M] {
	return Timetable[M]{slots: slots}
}

// NewSorted builds a timetable from slots in arbitrary order. Overlaps
// are still the caller's problem, only ordering is established here.
func NewSorted[M any](slots []Slot[M]) Timetable[M] {
	sorted := make([]Slot[M], len(slots))
	copy(sorted, slots)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Start, sorted[j].Start
		if a == nil || b == nil {
			return a == nil && b != nil
		}
		return a.Before(*b)
	})
	return Timetable[M]{slots: sorted}
}

// Slots exposes the underlying slots in order.
func (t *Timetable[M]) Slots() []Slot[M] {
	return t.slots
}

// Len reports the number of slots.
func (t *Timetable[M]) Len() int {
	return len(t.slots)
}

// Invert returns the gaps between the slots as a new timetable,
// discarding payloads. An empty timetable inverts to a single fully
// unbounded slot; a single fully unbounded slot inverts to empty.
// Touching slots produce no zero-width gap.
func (t *Timetable[M]) Invert() Timetable[struct{}] {
	switch {
	case len(t.slots) == 0:
		return New(NewSlot(nil, nil, struct{}{}))
	case len(t.slots) == 1 && t.slots[0].Start == nil && t.slots[0].End == nil:
		return New[struct{}]()
	}
	var gaps []Slot[struct{}]
	if first := t.slots[0].Start; first != nil {
		gaps = append(gaps, NewSlot(nil, first, struct{}{}))
	}
	for i := 0; i+1 < len(t.slots); i++ {
		a, b := t.slots[i], t.slots[i+1]
		if !sameBound(a.End, b.Start) {
			gaps = append(gaps, NewSlot(a.End, b.Start, struct{}{}))
		}
	}
	if last := t.slots[len(t.slots)-1].End; last != nil {
		gaps = append(gaps, NewSlot(last, nil, struct{}{}))
	}
	return New(gaps...)
}

// Subtract removes the given span from every slot, trimming, splitting,
// or dropping slots as needed. Payloads carry over to surviving
// fragments; a split copies the payload to both halves. Fragments that
// would be zero-width are dropped rather than stored.
func (t *Timetable[M]) Subtract(other Span) {
	if other.Start == nil && other.End == nil {
		t.slots = nil
		return
	}
	// A zero-width span covers no time; without this check it would
	// split a containing slot into two touching halves.
	if other.Start != nil && other.End != nil && other.Start.Equal(*other.End) {
		return
	}
	out := make([]Slot[M], 0, len(t.slots)+1)
	switch {
	case other.Start == nil:
		for _, e := range t.slots {
			switch e.Compare(*other.End) {
			case Before:
				out = append(out, e)
			case Contains:
				out = appendFragment(out, other.End, e.End, e.Meta)
			case After:
			}
		}
	case other.End == nil:
		for _, e := range t.slots {
			switch e.Compare(*other.Start) {
			case Before:
			case Contains:
				out = appendFragment(out, e.Start, other.Start, e.Meta)
			case After:
				out = append(out, e)
			}
		}
	default:
		for _, e := range t.slots {
			atStart, atEnd := e.Compare(*other.Start), e.Compare(*other.End)
			switch {
			case atStart == Before && atEnd == Before,
				atStart == After && atEnd == After:
				out = append(out, e)
			case atStart == Before && atEnd == After:
				// consumed entirely
			case atStart == Before && atEnd == Contains:
				out = appendFragment(out, other.End, e.End, e.Meta)
			case atStart == Contains && atEnd == After:
				out = appendFragment(out, e.Start, other.Start, e.Meta)
			case atStart == Contains && atEnd == Contains:
				out = appendFragment(out, e.Start, other.Start, e.Meta)
				out = appendFragment(out, other.End, e.End, e.Meta)
			}
		}
	}
	t.slots = out
}

// appendFragment appends a trimmed slot unless it would be zero-width.
func appendFragment[M any](dst []Slot[M], start, end *time.Time, meta M) []Slot[M] {
	if sameBound(start, end) {
		return dst
	}
	return append(dst, NewSlot(start, end, meta))
}

// lastTime reports the latest timestamp present in the timetable: the
// last slot's end, or its start when the end is unbounded. ok is false
// when the timetable is empty or holds no concrete bound at all.
func (t *Timetable[M]) lastTime() (last time.Time, ok bool) {
	if len(t.slots) == 0 {
		return time.Time{}, false
	}
	tail := t.slots[len(t.slots)-1]
	switch {
	case tail.End != nil:
		return *tail.End, true
	case tail.Start != nil:
		return *tail.Start, true
	default:
		return time.Time{}, false
	}
}
