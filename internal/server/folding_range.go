package server

import (
	"log/slog"

	"fortio.org/safecast"

	"github.com/matkrin/tagd/internal/lsp"
	"github.com/matkrin/tagd/internal/tagging"
	"github.com/matkrin/tagd/internal/text"
)

func (s *Server) handleFoldingRange(request *lsp.FoldingRangeRequest) *lsp.FoldingRangeResponse {
	uri := request.Params.TextDocument.URI
	document := s.state.Document(uri)
	if document == nil {
		slog.Error("Folding ranges for unknown document", "URI", uri)
		return nil
	}

	pass := s.currentPass(document)
	current := document.Buffer.Current()
	foldingRanges := []lsp.FoldingRange{}
	for _, tag := range pass.Structure {
		if !tag.IsCollapsible() {
			continue
		}
		foldingRange, ok := toFoldingRange(tag, current)
		if ok {
			foldingRanges = append(foldingRanges, foldingRange)
		}
	}

	response := lsp.NewFoldingRangeResponse(request.ID, foldingRanges)
	return &response
}

// toFoldingRange folds the lines of a structure tag's block after its first
// line. The block is translated to current first.
func toFoldingRange(tag *tagging.StructureTag, current *text.BufferSnapshot) (lsp.FoldingRange, bool) {
	span, err := tag.Snapshot().TranslateSpan(tag.CollapsedHintSpan(), current)
	if err != nil || span.IsEmpty() {
		return lsp.FoldingRange{}, false
	}

	startLine, err := current.LineNumber(span.Start)
	if err != nil {
		return lsp.FoldingRange{}, false
	}
	endLine, err := current.LineNumber(span.End() - 1)
	if err != nil || endLine <= startLine {
		return lsp.FoldingRange{}, false
	}

	return lsp.FoldingRange{
		StartLine:     safecast.MustConv[uint](startLine),
		EndLine:       safecast.MustConv[uint](endLine),
		Kind:          foldingRangeKind(tag.Classification()),
		CollapsedText: tag.CollapsedForm(),
	}, true
}

func foldingRangeKind(classification tagging.Classification) lsp.FoldingRangeKind {
	switch classification {
	case tagging.Comment:
		return lsp.FoldingRangeComment
	case tagging.Imports:
		return lsp.FoldingRangeImports
	case tagging.PreprocessorRegion:
		return lsp.FoldingRangeRegion
	default:
		return ""
	}
}
