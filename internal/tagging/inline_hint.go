package tagging

import (
	"slices"
	"strings"

	"github.com/matkrin/tagd/internal/text"
)

// HintKind mirrors the LSP inlay hint kinds.
type HintKind int

const (
	HintType HintKind = iota + 1
	HintParameter
)

// TaggedText is one display fragment of a hint.
type TaggedText struct {
	Tag  string
	Text string
}

// TextChange replaces Span with NewText when a hint is accepted in place.
type TextChange struct {
	Span    text.Span
	NewText string
}

// InlineHint is the value an inline hint engine produces.
type InlineHint struct {
	// Span anchors the hint. Parameter hints render before it, all other
	// kinds after it.
	Span                  text.Span
	DisplayParts          []TaggedText
	ReplacementTextChange *TextChange
	Kind                  HintKind
}

// InlineHintDataTag is one inline hint of a snapshot.
//
// Like StructureTag it has no value hash.
type InlineHintDataTag struct {
	_ noCompare

	provider Provider
	snapshot text.Snapshot
	hint     InlineHint
}

func NewInlineHintDataTag(provider Provider, snapshot text.Snapshot, hint InlineHint) *InlineHintDataTag {
	if provider == nil {
		provider = defaultProvider
	}
	hint.DisplayParts = slices.Clone(hint.DisplayParts)
	if hint.ReplacementTextChange != nil {
		change := *hint.ReplacementTextChange
		hint.ReplacementTextChange = &change
	}
	return &InlineHintDataTag{
		provider: provider,
		snapshot: snapshot,
		hint:     hint,
	}
}

func (t *InlineHintDataTag) Snapshot() text.Snapshot {
	return t.snapshot
}

func (t *InlineHintDataTag) Span() text.Span {
	return t.hint.Span
}

func (t *InlineHintDataTag) Kind() HintKind {
	return t.hint.Kind
}

func (t *InlineHintDataTag) DisplayParts() []TaggedText {
	return slices.Clone(t.hint.DisplayParts)
}

func (t *InlineHintDataTag) ReplacementTextChange() *TextChange {
	if t.hint.ReplacementTextChange == nil {
		return nil
	}
	change := *t.hint.ReplacementTextChange
	return &change
}

// Label joins the display parts.
func (t *InlineHintDataTag) Label() string {
	var b strings.Builder
	for _, part := range t.hint.DisplayParts {
		b.WriteString(part.Text)
	}
	return b.String()
}

// Equal reports whether t and other describe the same hint, even when they
// were computed against different snapshots of the buffer.
func (t *InlineHintDataTag) Equal(other *InlineHintDataTag) bool {
	if t == other {
		return true
	}
	if t == nil || other == nil {
		return false
	}

	change, otherChange := t.hint.ReplacementTextChange, other.hint.ReplacementTextChange
	if (change == nil) != (otherChange == nil) {
		return false
	}
	if change != nil && change.NewText != otherChange.NewText {
		return false
	}
	if !t.provider.SpanEquals(t.snapshot, &t.hint.Span, other.snapshot, &other.hint.Span) {
		return false
	}
	if change != nil && !t.provider.SpanEquals(t.snapshot, &change.Span, other.snapshot, &otherChange.Span) {
		return false
	}
	return slices.Equal(t.hint.DisplayParts, other.hint.DisplayParts)
}
