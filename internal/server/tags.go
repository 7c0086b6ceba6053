package server

import (
	"log/slog"

	"github.com/matkrin/tagd/internal/ast"
	"github.com/matkrin/tagd/internal/inlay"
	"github.com/matkrin/tagd/internal/lsp"
	"github.com/matkrin/tagd/internal/outline"
	"github.com/matkrin/tagd/internal/tagging"
	"github.com/matkrin/tagd/internal/text"
	"github.com/matkrin/tagd/internal/utils"
)

// TagPass is the set of tags computed on one snapshot.
type TagPass struct {
	Snapshot  *text.BufferSnapshot
	Structure []*tagging.StructureTag
	Hints     []*tagging.InlineHintDataTag
	// ParseErr is the strict parse error; the tags then come from a
	// recovering parse.
	ParseErr error
}

// computeTags parses the snapshot and wraps the blocks and hints of the
// engines into tags created through session.
func computeTags(snapshot *text.BufferSnapshot, session *tagging.Session, config Config) *TagPass {
	pass := &TagPass{Snapshot: snapshot}
	name := utils.DocumentName(snapshot.BufferID())
	content := snapshot.Content()

	doc, err := ast.ParseDocument(content, name, false)
	if err != nil {
		pass.ParseErr = err
		doc, err = ast.ParseDocument(content, name, true)
		if err != nil {
			doc = nil
		}
	}

	for _, block := range outline.Blocks(doc, snapshot, config.Outline) {
		pass.Structure = append(pass.Structure, tagging.NewStructureTag(session, snapshot, block))
	}
	for _, hint := range inlay.Hints(doc, snapshot, config.InlayHints) {
		pass.Hints = append(pass.Hints, tagging.NewInlineHintDataTag(session, snapshot, hint))
	}
	return pass
}

// retag runs a tag pass on the current snapshot of document and keeps it.
// It reports whether the inline hints changed against the previous pass.
func (s *Server) retag(document *Document) (*TagPass, bool) {
	return s.tagSnapshot(document, document.Buffer.Current())
}

// tagSnapshot tags snapshot and keeps the pass unless the document already
// holds one of a newer snapshot.
func (s *Server) tagSnapshot(document *Document, snapshot *text.BufferSnapshot) (*TagPass, bool) {
	config := s.state.CurrentConfig()
	pass := computeTags(snapshot, document.Session, config)

	document.mu.Lock()
	previous := document.pass
	if previous != nil && previous.Snapshot.Version() > snapshot.Version() {
		// a newer pass won the race
		document.mu.Unlock()
		return previous, false
	}
	document.pass = pass
	document.mu.Unlock()

	var prevStructure []*tagging.StructureTag
	var prevHints []*tagging.InlineHintDataTag
	if previous != nil {
		prevStructure = previous.Structure
		prevHints = previous.Hints
	}
	structureDiff := tagging.DiffStructureTags(prevStructure, pass.Structure)
	hintDiff := tagging.DiffInlineHintTags(prevHints, pass.Hints)
	slog.Debug("Tag pass",
		"URI", document.URI,
		"version", snapshot.Version(),
		"structure", structureDiff.String(),
		"hints", hintDiff.String(),
	)

	// the client asks for hints of a new document on its own
	return pass, previous != nil && hintDiff.Changed()
}

// currentPass returns a tag pass for the current snapshot, re-tagging when
// the latest pass is stale.
func (s *Server) currentPass(document *Document) *TagPass {
	pass := document.Pass()
	if pass != nil && pass.Snapshot == document.Buffer.Current() {
		return pass
	}
	pass, changed := s.retag(document)
	if changed {
		s.requestInlayHintRefresh()
	}
	return pass
}

// runTagPass is the debounced pass after an edit: it re-tags, refreshes
// hints when they changed and publishes parse diagnostics.
func (s *Server) runTagPass(document *Document) {
	pass, changed := s.retag(document)
	if changed {
		s.requestInlayHintRefresh()
	}
	version := pass.Snapshot.Version()
	s.pushDiagnostic(document.URI, &version, passDiagnostics(pass))
}

func (s *Server) requestInlayHintRefresh() {
	s.state.mu.RLock()
	supported := s.state.RefreshSupport
	s.state.mu.RUnlock()
	if !supported {
		return
	}

	id := int(s.requestID.Add(1))
	slog.Debug("Requesting inlay hint refresh", "id", id)
	s.writeResponse(lsp.NewInlayHintRefreshRequest(id))
}

func passDiagnostics(pass *TagPass) []lsp.Diagnostic {
	diagnostics := []lsp.Diagnostic{}
	if pass.ParseErr != nil {
		diagnostics = append(diagnostics, diagnosticParseError(pass.ParseErr, pass.Snapshot))
	}
	return diagnostics
}
