package tagging

import (
	"strings"

	"github.com/matkrin/tagd/internal/text"
)

// Classification is the closed set of structural region kinds.
type Classification int

const (
	Structural Classification = iota
	Conditional
	Comment
	Expression
	Imports
	Loop
	Member
	Namespace
	Nonstructural
	PreprocessorRegion
	Statement
	Type
)

var classificationNames = map[Classification]string{
	Structural:         "structural",
	Conditional:        "conditional",
	Comment:            "comment",
	Expression:         "expression",
	Imports:            "imports",
	Loop:               "loop",
	Member:             "member",
	Namespace:          "namespace",
	Nonstructural:      "nonstructural",
	PreprocessorRegion: "preprocessor_region",
	Statement:          "statement",
	Type:               "type",
}

func (c Classification) String() string {
	if name, ok := classificationNames[c]; ok {
		return name
	}
	return classificationNames[Structural]
}

// ParseClassification maps a block kind to its classification. Unknown
// kinds fall back to Structural.
func ParseClassification(kind string) Classification {
	kind = strings.ToLower(strings.TrimSpace(kind))
	for c, name := range classificationNames {
		if name == kind {
			return c
		}
	}
	return Structural
}

// BlockSpan is the raw structural block a structure engine produces.
type BlockSpan struct {
	Kind               string
	IsCollapsible      bool
	IsDefaultCollapsed bool
	// AutoCollapse marks implementation bodies.
	AutoCollapse bool
	// TextSpan is the region hidden when the block collapses.
	TextSpan text.Span
	// HintSpan is the region shown when a collapsed block is hovered.
	HintSpan   text.Span
	BannerText string
}

// noCompare makes a struct non-comparable, so it cannot be compared with ==
// or used as a map key by value.
type noCompare [0]func()

// StructureTag is one collapsible region of a snapshot.
//
// StructureTag has no value hash: compare tags with Equal, and key maps by
// pointer only.
type StructureTag struct {
	_ noCompare

	provider          Provider
	snapshot          text.Snapshot
	outliningSpan     *text.Span
	headerSpan        *text.Span
	guideLineSpan     *text.Span
	classification    Classification
	collapsible       bool
	defaultCollapsed  bool
	implementation    bool
	collapsedForm     string
	collapsedHintSpan text.Span
}

func NewStructureTag(provider Provider, snapshot text.Snapshot, block BlockSpan) *StructureTag {
	if provider == nil {
		provider = defaultProvider
	}
	outlining := block.TextSpan
	return &StructureTag{
		provider:          provider,
		snapshot:          snapshot,
		outliningSpan:     &outlining,
		headerSpan:        headerSpan(snapshot, block),
		guideLineSpan:     nil,
		classification:    ParseClassification(block.Kind),
		collapsible:       block.IsCollapsible,
		defaultCollapsed:  block.IsDefaultCollapsed,
		implementation:    block.AutoCollapse,
		collapsedForm:     block.BannerText,
		collapsedHintSpan: block.HintSpan,
	}
}

// headerSpan is the part of the block that stays visible when it collapses.
// A hint region starting inside the outlined text points at the header line
// itself; one starting before it covers everything up to the outlined text.
func headerSpan(snapshot text.Snapshot, block BlockSpan) *text.Span {
	if block.HintSpan.Start < block.TextSpan.Start {
		span := text.SpanFromBounds(block.HintSpan.Start, block.TextSpan.Start)
		return &span
	}
	if snapshot == nil {
		return nil
	}
	line, err := snapshot.LineExtent(block.HintSpan.Start)
	if err != nil {
		return nil
	}
	span := text.TrimLeadingSpace(snapshot, line)
	return &span
}

func (t *StructureTag) Snapshot() text.Snapshot {
	return t.snapshot
}

func (t *StructureTag) OutliningSpan() *text.Span {
	return copySpan(t.outliningSpan)
}

func (t *StructureTag) HeaderSpan() *text.Span {
	return copySpan(t.headerSpan)
}

// GuideLineSpan is always nil for structure tags.
func (t *StructureTag) GuideLineSpan() *text.Span {
	return copySpan(t.guideLineSpan)
}

func (t *StructureTag) Classification() Classification {
	return t.classification
}

func (t *StructureTag) IsCollapsible() bool {
	return t.collapsible
}

func (t *StructureTag) IsDefaultCollapsed() bool {
	return t.defaultCollapsed
}

func (t *StructureTag) IsImplementation() bool {
	return t.implementation
}

// CollapsedForm is the text shown in place of a collapsed block.
func (t *StructureTag) CollapsedForm() string {
	return t.collapsedForm
}

func (t *StructureTag) CollapsedHintSpan() text.Span {
	return t.collapsedHintSpan
}

// CollapsedHintForm is the text shown when a collapsed block is hovered.
func (t *StructureTag) CollapsedHintForm() string {
	return t.provider.CollapsedHintForm(t.snapshot, t.collapsedHintSpan)
}

// Equal reports whether t and other describe the same region, even when
// they were computed against different snapshots of the buffer.
func (t *StructureTag) Equal(other *StructureTag) bool {
	if t == other {
		return true
	}
	if t == nil || other == nil {
		return false
	}
	return t.classification == other.classification &&
		t.collapsible == other.collapsible &&
		t.defaultCollapsed == other.defaultCollapsed &&
		t.implementation == other.implementation &&
		t.provider.SpanEquals(t.snapshot, t.outliningSpan, other.snapshot, other.outliningSpan) &&
		t.provider.SpanEquals(t.snapshot, t.headerSpan, other.snapshot, other.headerSpan) &&
		t.provider.SpanEquals(t.snapshot, t.guideLineSpan, other.snapshot, other.guideLineSpan)
}

func copySpan(span *text.Span) *text.Span {
	if span == nil {
		return nil
	}
	c := *span
	return &c
}
