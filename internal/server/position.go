package server

import (
	"fortio.org/safecast"

	"github.com/matkrin/tagd/internal/lsp"
	"github.com/matkrin/tagd/internal/text"
)

func toPosition(snapshot *text.BufferSnapshot, offset int) lsp.Position {
	line, character := snapshot.PositionAt(offset)
	return lsp.Position{
		Line:      safecast.MustConv[uint](line),
		Character: safecast.MustConv[uint](character),
	}
}

func toRange(snapshot *text.BufferSnapshot, span text.Span) lsp.Range {
	return lsp.Range{
		Start: toPosition(snapshot, span.Start),
		End:   toPosition(snapshot, span.End()),
	}
}

// toOffset converts an LSP position; positions beyond the text clamp to
// its end.
func toOffset(snapshot *text.BufferSnapshot, position lsp.Position) int {
	line, err := safecast.Conv[int](position.Line)
	if err != nil {
		return snapshot.Length()
	}
	character, err := safecast.Conv[int](position.Character)
	if err != nil {
		character = snapshot.Length()
	}
	return snapshot.OffsetAt(line, character)
}

func toSpan(snapshot *text.BufferSnapshot, r lsp.Range) text.Span {
	return text.SpanFromBounds(toOffset(snapshot, r.Start), toOffset(snapshot, r.End))
}
