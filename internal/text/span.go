package text

import "fmt"

// Span is a half-open byte range [Start, Start+Length) inside one snapshot.
type Span struct {
	Start  int
	Length int
}

func NewSpan(start, length int) Span {
	return Span{Start: start, Length: length}
}

func SpanFromBounds(start, end int) Span {
	if end < start {
		end = start
	}
	return Span{Start: start, Length: end - start}
}

func (s Span) End() int {
	return s.Start + s.Length
}

func (s Span) IsEmpty() bool {
	return s.Length == 0
}

func (s Span) Contains(offset int) bool {
	return offset >= s.Start && offset < s.End()
}

// Overlaps reports whether the two spans share at least one offset. An empty
// span overlaps a span that contains its start.
func (s Span) Overlaps(other Span) bool {
	if s.IsEmpty() {
		return other.Contains(s.Start) || s.Start == other.Start
	}
	if other.IsEmpty() {
		return s.Contains(other.Start)
	}
	return s.Start < other.End() && other.Start < s.End()
}

func (s Span) String() string {
	return fmt.Sprintf("[%d..%d)", s.Start, s.End())
}
