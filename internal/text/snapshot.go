// Package text holds versioned text buffers and the immutable snapshots
// taken from them. Offsets are byte offsets into the snapshot content.
package text

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

var (
	// ErrForeignSnapshot is returned when a span is translated to a snapshot
	// that does not belong to the same buffer.
	ErrForeignSnapshot = errors.New("snapshot belongs to a different buffer")
	// ErrSpanOutOfRange is returned when a span does not fit the snapshot it
	// is claimed to be anchored to.
	ErrSpanOutOfRange = errors.New("span out of range")
	// ErrHistoryUnavailable is returned when the edit history between two
	// versions of a buffer cannot be followed.
	ErrHistoryUnavailable = errors.New("edit history unavailable")
)

// Snapshot is a point-in-time, immutable view of a text buffer.
//
// Implementations must be comparable (pointer types) since two snapshots are
// the same snapshot exactly when they compare equal.
type Snapshot interface {
	Version() int
	Length() int
	// TranslateSpan maps span, anchored to the receiver, into target's
	// coordinate space. The mapping is best-effort across edits.
	TranslateSpan(span Span, target Snapshot) (Span, error)
	Text(span Span) string
	// LineExtent returns the extent of the line containing offset, without
	// its line break.
	LineExtent(offset int) (Span, error)
}

// BufferSnapshot is the Snapshot implementation handed out by Buffer.
type BufferSnapshot struct {
	buffer     *Buffer
	revision   *revision
	content    string
	lineStarts []int
}

var _ Snapshot = (*BufferSnapshot)(nil)

func newBufferSnapshot(buffer *Buffer, rev *revision, content string) *BufferSnapshot {
	return &BufferSnapshot{
		buffer:     buffer,
		revision:   rev,
		content:    content,
		lineStarts: buildLineStarts(content),
	}
}

func buildLineStarts(content string) []int {
	starts := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func (s *BufferSnapshot) BufferID() string {
	return s.buffer.id
}

func (s *BufferSnapshot) Version() int {
	return s.revision.version
}

func (s *BufferSnapshot) Length() int {
	return len(s.content)
}

// Content returns the full text of the snapshot.
func (s *BufferSnapshot) Content() string {
	return s.content
}

// Text returns the text under span, clamped to the snapshot bounds.
func (s *BufferSnapshot) Text(span Span) string {
	start := clamp(span.Start, 0, len(s.content))
	end := clamp(span.End(), start, len(s.content))
	return s.content[start:end]
}

func (s *BufferSnapshot) LineCount() int {
	return len(s.lineStarts)
}

// LineNumber returns the 0-based line containing offset.
func (s *BufferSnapshot) LineNumber(offset int) (int, error) {
	if offset < 0 || offset > len(s.content) {
		return 0, fmt.Errorf("offset %d: %w", offset, ErrSpanOutOfRange)
	}
	idx := sort.Search(len(s.lineStarts), func(i int) bool {
		return s.lineStarts[i] > offset
	})
	return idx - 1, nil
}

// Line returns the extent of the 0-based line, without its line break.
func (s *BufferSnapshot) Line(line int) (Span, error) {
	if line < 0 || line >= len(s.lineStarts) {
		return Span{}, fmt.Errorf("line %d: %w", line, ErrSpanOutOfRange)
	}
	start := s.lineStarts[line]
	end := len(s.content)
	if line+1 < len(s.lineStarts) {
		end = s.lineStarts[line+1] - 1
		if end > start && s.content[end-1] == '\r' {
			end--
		}
	}
	return SpanFromBounds(start, end), nil
}

func (s *BufferSnapshot) LineExtent(offset int) (Span, error) {
	line, err := s.LineNumber(offset)
	if err != nil {
		return Span{}, err
	}
	return s.Line(line)
}

// PositionAt converts an offset to a 0-based line and a character counted
// in UTF-16 code units, the way LSP clients address text.
func (s *BufferSnapshot) PositionAt(offset int) (int, int) {
	offset = clamp(offset, 0, len(s.content))
	line, _ := s.LineNumber(offset)
	character := 0
	for i := s.lineStarts[line]; i < offset; {
		r, size := utf8.DecodeRuneInString(s.content[i:])
		if i+size > offset {
			break
		}
		if r > 0xFFFF {
			character += 2
		} else {
			character++
		}
		i += size
	}
	return line, character
}

// OffsetAt converts a 0-based line and UTF-16 character to an offset.
// Positions past the end of a line clamp to the line end and lines past the
// end of the text clamp to the text length.
func (s *BufferSnapshot) OffsetAt(line, character int) int {
	if line < 0 {
		return 0
	}
	if line >= len(s.lineStarts) {
		return len(s.content)
	}
	extent, _ := s.Line(line)
	units := 0
	offset := extent.Start
	for offset < extent.End() && units < character {
		r, size := utf8.DecodeRuneInString(s.content[offset:])
		need := 1
		if r > 0xFFFF {
			need = 2
		}
		if units+need > character {
			break
		}
		units += need
		offset += size
	}
	return offset
}

// TranslateSpan maps span into target, which must be a snapshot of the same
// buffer. Older and newer targets are both supported.
func (s *BufferSnapshot) TranslateSpan(span Span, target Snapshot) (Span, error) {
	other, ok := target.(*BufferSnapshot)
	if !ok || other == nil || other.buffer != s.buffer {
		return Span{}, ErrForeignSnapshot
	}
	if span.Start < 0 || span.Length < 0 || span.End() > s.Length() {
		return Span{}, fmt.Errorf("%s in snapshot of length %d: %w", span, s.Length(), ErrSpanOutOfRange)
	}

	from, to := s.Version(), other.Version()
	switch {
	case from == to:
		return span, nil
	case from < to:
		steps, err := collectRevisions(other.revision, from)
		if err != nil {
			return Span{}, err
		}
		// collected newest first; replay oldest first
		for i := len(steps) - 1; i >= 0; i-- {
			span = translateThrough(span, steps[i].changes)
		}
		return span, nil
	default:
		steps, err := collectRevisions(s.revision, to)
		if err != nil {
			return Span{}, err
		}
		for _, step := range steps {
			span = translateThrough(span, invert(step.changes))
		}
		return span, nil
	}
}

// String renders the snapshot identity for log output.
func (s *BufferSnapshot) String() string {
	return fmt.Sprintf("%s@%d", s.buffer.id, s.Version())
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// TrimLeadingSpace shrinks span so it starts at the first non-blank
// character of its text.
func TrimLeadingSpace(snapshot Snapshot, span Span) Span {
	content := snapshot.Text(span)
	trimmed := strings.TrimLeft(content, " \t\f\v")
	skipped := len(content) - len(trimmed)
	return NewSpan(span.Start+skipped, len(trimmed))
}
