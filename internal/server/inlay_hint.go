package server

import (
	"log/slog"

	"github.com/matkrin/tagd/internal/lsp"
	"github.com/matkrin/tagd/internal/tagging"
	"github.com/matkrin/tagd/internal/text"
)

func (s *Server) handleInlayHint(request *lsp.InlayHintRequest) *lsp.InlayHintResponse {
	uri := request.Params.TextDocument.URI
	document := s.state.Document(uri)
	if document == nil {
		slog.Error("Inlay hints for unknown document", "URI", uri)
		return nil
	}

	pass := s.currentPass(document)
	current := document.Buffer.Current()
	requested := toSpan(current, request.Params.Range)

	inlayHints := []lsp.InlayHint{}
	for _, tag := range pass.Hints {
		inlayHint, ok := toInlayHint(uri, tag, current, requested)
		if ok {
			inlayHints = append(inlayHints, inlayHint)
		}
	}

	response := lsp.NewInlayHintResponse(request.ID, inlayHints)
	return &response
}

// toInlayHint renders a hint tag against current. Hints anchored outside
// the requested span are left out.
func toInlayHint(uri string, tag *tagging.InlineHintDataTag, current *text.BufferSnapshot, requested text.Span) (lsp.InlayHint, bool) {
	span, err := tag.Snapshot().TranslateSpan(tag.Span(), current)
	if err != nil {
		return lsp.InlayHint{}, false
	}
	if span.End() < requested.Start || span.Start > requested.End() {
		return lsp.InlayHint{}, false
	}

	inlayHint := lsp.InlayHint{
		Data: &lsp.InlayHintData{
			URI:     uri,
			Version: current.Version(),
			Offset:  span.Start,
		},
	}
	for _, part := range tag.DisplayParts() {
		inlayHint.Label = append(inlayHint.Label, lsp.InlayHintLabelPart{Value: part.Text})
	}

	switch tag.Kind() {
	case tagging.HintParameter:
		inlayHint.Kind = lsp.InlayHintParameter
		inlayHint.Position = toPosition(current, span.Start)
		inlayHint.PaddingRight = true
	default:
		inlayHint.Kind = lsp.InlayHintType
		inlayHint.Position = toPosition(current, span.End())
		inlayHint.PaddingLeft = true
	}

	if change := tag.ReplacementTextChange(); change != nil {
		changeSpan, err := tag.Snapshot().TranslateSpan(change.Span, current)
		if err == nil {
			inlayHint.TextEdits = []lsp.TextEdit{{
				Range:   toRange(current, changeSpan),
				NewText: change.NewText,
			}}
		}
	}

	return inlayHint, true
}

// handleInlayHintResolve adds the text of the hint's line as tooltip.
func (s *Server) handleInlayHintResolve(request *lsp.InlayHintResolveRequest) *lsp.InlayHintResolveResponse {
	inlayHint := request.Params
	response := lsp.NewInlayHintResolveResponse(request.ID, inlayHint)

	data := inlayHint.Data
	if data == nil {
		return &response
	}
	document := s.state.Document(data.URI)
	if document == nil {
		return &response
	}

	current := document.Buffer.Current()
	offset := data.Offset
	if current.Version() != data.Version {
		pass := document.Pass()
		if pass == nil || pass.Snapshot.Version() != data.Version {
			slog.Debug("Inlay hint resolve for a stale version", "URI", data.URI, "version", data.Version)
			return &response
		}
		translated, err := text.TranslatePoint(pass.Snapshot, offset, current, text.TrackPositive)
		if err != nil {
			return &response
		}
		offset = translated
	}

	line, err := current.LineExtent(offset)
	if err != nil {
		return &response
	}
	tooltip := document.Session.CollapsedHintForm(current, text.TrimLeadingSpace(current, line))
	if tooltip != "" {
		response.Result.Tooltip = &tooltip
	}
	return &response
}
