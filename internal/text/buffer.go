package text

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Edit replaces the bytes [Start, End) of the current text with NewText.
type Edit struct {
	Start   int
	End     int
	NewText string
}

// EditError describes an edit that does not fit the text it is applied to.
type EditError struct {
	Edit    Edit
	Message string
}

func (e *EditError) Error() string {
	return fmt.Sprintf("invalid edit [%d:%d]: %s", e.Edit.Start, e.Edit.End, e.Message)
}

// OverlapError describes two edits of one batch touching the same text.
type OverlapError struct {
	First  Edit
	Second Edit
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("overlapping edits: [%d:%d] and [%d:%d]",
		e.First.Start, e.First.End, e.Second.Start, e.Second.End)
}

// TrackingMode decides where a point lands when text is inserted exactly at
// it or when the text around it is replaced.
type TrackingMode int

const (
	// TrackNegative keeps the point before inserted text.
	TrackNegative TrackingMode = iota
	// TrackPositive moves the point after inserted text.
	TrackPositive
)

// change is one replacement in a version step, in both coordinate spaces.
type change struct {
	oldStart  int
	oldLength int
	newStart  int
	newLength int
}

// revision links a version to the change set that produced it from the
// previous version. Revisions carry no text so old snapshot contents can be
// collected once no tag refers to them.
type revision struct {
	version int
	changes []change
	prev    *revision
}

// Buffer is a mutable text buffer. Every Apply produces a new immutable
// snapshot with the next version number.
type Buffer struct {
	id      string
	mu      sync.Mutex
	current *BufferSnapshot
}

func NewBuffer(id, content string) *Buffer {
	b := &Buffer{id: id}
	b.current = newBufferSnapshot(b, &revision{version: 0}, content)
	return b
}

func (b *Buffer) ID() string {
	return b.id
}

func (b *Buffer) Current() *BufferSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Replace swaps the whole text in one version step.
func (b *Buffer) Replace(content string) *BufferSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	edit := Edit{Start: 0, End: b.current.Length(), NewText: content}
	snapshot, _ := b.applyLocked([]Edit{edit})
	return snapshot
}

// Apply applies edits, all expressed against the current text, as a single
// version step. Applying no edits still bumps the version.
func (b *Buffer) Apply(edits ...Edit) (*BufferSnapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.applyLocked(edits)
}

func (b *Buffer) applyLocked(edits []Edit) (*BufferSnapshot, error) {
	sorted, err := prepareEdits(edits, b.current.Length())
	if err != nil {
		return nil, err
	}

	old := b.current.content
	var out strings.Builder
	changes := make([]change, 0, len(sorted))
	cursor, delta := 0, 0
	for _, e := range sorted {
		out.WriteString(old[cursor:e.Start])
		out.WriteString(e.NewText)
		changes = append(changes, change{
			oldStart:  e.Start,
			oldLength: e.End - e.Start,
			newStart:  e.Start + delta,
			newLength: len(e.NewText),
		})
		delta += len(e.NewText) - (e.End - e.Start)
		cursor = e.End
	}
	out.WriteString(old[cursor:])

	rev := &revision{
		version: b.current.Version() + 1,
		changes: changes,
		prev:    b.current.revision,
	}
	b.current = newBufferSnapshot(b, rev, out.String())
	return b.current, nil
}

func prepareEdits(edits []Edit, length int) ([]Edit, error) {
	for _, e := range edits {
		if e.Start < 0 {
			return nil, &EditError{Edit: e, Message: "start offset is negative"}
		}
		if e.End < e.Start {
			return nil, &EditError{Edit: e, Message: "end offset is before start offset"}
		}
		if e.End > length {
			return nil, &EditError{Edit: e, Message: fmt.Sprintf("end offset exceeds text length %d", length)}
		}
	}

	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if cur.Start < prev.End || cur.Start == prev.Start {
			return nil, &OverlapError{First: prev, Second: cur}
		}
	}
	return sorted, nil
}

// collectRevisions walks back from newest until version stop, returning the
// revisions newer than stop, newest first.
func collectRevisions(newest *revision, stop int) ([]*revision, error) {
	var steps []*revision
	for r := newest; r.version > stop; r = r.prev {
		steps = append(steps, r)
		if r.prev == nil {
			return nil, fmt.Errorf("version %d: %w", stop, ErrHistoryUnavailable)
		}
	}
	return steps, nil
}

func invert(changes []change) []change {
	inverted := make([]change, len(changes))
	for i, c := range changes {
		inverted[i] = change{
			oldStart:  c.newStart,
			oldLength: c.newLength,
			newStart:  c.oldStart,
			newLength: c.oldLength,
		}
	}
	return inverted
}

// translateThrough maps a span across one change set. The start tracks
// positive and the end negative, so text inserted at either edge stays
// outside the span.
func translateThrough(span Span, changes []change) Span {
	start := translatePoint(span.Start, changes, TrackPositive)
	end := translatePoint(span.End(), changes, TrackNegative)
	return SpanFromBounds(start, end)
}

func translatePoint(pos int, changes []change, mode TrackingMode) int {
	delta := 0
	for _, c := range changes {
		oldEnd := c.oldStart + c.oldLength
		newEnd := c.newStart + c.newLength
		switch {
		case pos < c.oldStart:
			return pos + delta
		case pos > oldEnd:
			delta = newEnd - oldEnd
			continue
		case c.oldLength == 0:
			if mode == TrackPositive {
				return newEnd
			}
			return c.newStart
		case pos == c.oldStart:
			return c.newStart
		case pos == oldEnd:
			return newEnd
		default:
			if mode == TrackPositive {
				return newEnd
			}
			return c.newStart
		}
	}
	return pos + delta
}

// TranslatePoint maps a single offset from one snapshot to another of the
// same buffer using mode at edit boundaries.
func TranslatePoint(from *BufferSnapshot, offset int, to *BufferSnapshot, mode TrackingMode) (int, error) {
	if from == nil || to == nil || from.buffer != to.buffer {
		return 0, ErrForeignSnapshot
	}
	if offset < 0 || offset > from.Length() {
		return 0, fmt.Errorf("offset %d: %w", offset, ErrSpanOutOfRange)
	}
	if from.Version() == to.Version() {
		return offset, nil
	}
	if from.Version() < to.Version() {
		steps, err := collectRevisions(to.revision, from.Version())
		if err != nil {
			return 0, err
		}
		for i := len(steps) - 1; i >= 0; i-- {
			offset = translatePoint(offset, steps[i].changes, mode)
		}
		return offset, nil
	}
	steps, err := collectRevisions(from.revision, to.Version())
	if err != nil {
		return 0, err
	}
	for _, step := range steps {
		offset = translatePoint(offset, invert(step.changes), mode)
	}
	return offset, nil
}
