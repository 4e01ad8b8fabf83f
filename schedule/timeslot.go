package schedule

import "time"

// Rel classifies an instant relative to a span.
type Rel int

const (
	Before Rel = iota
	Contains
	After
)

// Span is a contiguous range of time. A nil bound means the span is
// unbounded in that direction. Two spans that share a boundary
// (a.End == b.Start) touch, they do not overlap.
type Span struct {
	Start *time.Time
	End   *time.Time
}

// NewSpan builds a span from optional bounds.
func NewSpan(start, end *time.Time) Span {
	return Span{Start: start, End: end}
}

// At returns a pointer to t, for building spans with concrete bounds.
func At(t time.Time) *time.Time {
	return &t
}

// Compare classifies the instant against the span. Bounds are treated
// inclusively; absent bounds act as -inf/+inf.
func (s Span) Compare(at time.Time) Rel {
	switch {
	case s.Start == nil && s.End == nil:
		return Contains
	case s.Start == nil:
		if !at.After(*s.End) {
			return Contains
		}
		return After
	case s.End == nil:
		if !s.Start.After(at) {
			return Contains
		}
		return Before
	default:
		if !s.Start.After(at) && !at.After(*s.End) {
			return Contains
		}
		if at.Before(*s.Start) {
			return Before
		}
		return After
	}
}

// AddDays returns the span translated forward by n calendar days.
// Nil bounds stay nil. Negative n shifts backward.
func (s Span) AddDays(n int) Span {
	shifted := Span{}
	if s.Start != nil {
		shifted.Start = At(s.Start.AddDate(0, 0, n))
	}
	if s.End != nil {
		shifted.End = At(s.End.AddDate(0, 0, n))
	}
	return shifted
}

// Duration reports the length of the span. ok is false when either
// bound is absent.
func (s Span) Duration() (d time.Duration, ok bool) {
	if s.Start == nil || s.End == nil {
		return 0, false
	}
	return s.End.Sub(*s.Start), true
}

// sameBound reports whether two optional bounds are equal. Two nil
// bounds are equal; a nil bound never equals a concrete one.
func sameBound(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// Slot is a span with an attached payload.
type Slot[M any] struct {
	Span
	Meta M
}

// NewSlot builds a slot from optional bounds and a payload.
func NewSlot[M any](start, end *time.Time, meta M) Slot[M] {
	return Slot[M]{Span: Span{Start: start, End: end}, Meta: meta}
}
