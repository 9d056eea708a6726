package gbasave

import "fmt"

// BoundKind describes one end of a Range.
type BoundKind int

const (
	// Unbounded leaves the end open: 0 for a start bound, the device
	// capacity for an end bound.
	Unbounded BoundKind = iota
	// Included means the index itself is part of the range.
	Included
	// Excluded means the range starts or ends next to the index.
	Excluded
)

// Bound is one end of a Range.
type Bound struct {
	Kind  BoundKind
	Index int
}

// Range selects a span of a device's address space. The zero value selects
// the whole space.
type Range struct {
	Start Bound
	End   Bound
}

// Full returns a range covering the whole address space.
func Full() Range {
	return Range{}
}

// Span returns the half-open range [start, end).
func Span(start, end int) Range {
	return Range{
		Start: Bound{Kind: Included, Index: start},
		End:   Bound{Kind: Excluded, Index: end},
	}
}

// Closed returns the inclusive range [start, end].
func Closed(start, end int) Range {
	return Range{
		Start: Bound{Kind: Included, Index: start},
		End:   Bound{Kind: Included, Index: end},
	}
}

// From returns the range [start, capacity).
func From(start int) Range {
	return Range{Start: Bound{Kind: Included, Index: start}}
}

// To returns the half-open range [0, end).
func To(end int) Range {
	return Range{End: Bound{Kind: Excluded, Index: end}}
}

// Translate converts the range into a (base offset, length) pair over an
// address space whose highest valid index is max. An inclusive start is used
// as-is, an exclusive start is start+1, an unbounded start is 0; an
// inclusive end is end+1, an exclusive end is end, an unbounded end is
// max+1.
//
// A bound index outside [0, max], or an end that resolves before the start,
// is a programmer error and panics.
func (r Range) Translate(max int) (offset, length int) {
	r.Start.check(max)
	r.End.check(max)

	switch r.Start.Kind {
	case Included:
		offset = r.Start.Index
	case Excluded:
		offset = r.Start.Index + 1
	default:
		offset = 0
	}

	end := max + 1
	switch r.End.Kind {
	case Included:
		end = r.End.Index + 1
	case Excluded:
		end = r.End.Index
	}

	if end < offset {
		panic(fmt.Sprintf("gbasave: range end %d resolves before start %d", end, offset))
	}
	return offset, end - offset
}

func (b Bound) check(max int) {
	if b.Kind == Unbounded {
		return
	}
	if b.Index < 0 || b.Index > max {
		panic(fmt.Sprintf("gbasave: range bound %d outside [0, %d]", b.Index, max))
	}
}
