package tagging

import (
	"log/slog"
	"strings"

	"github.com/matkrin/tagd/internal/text"
)

// DefaultHintFormLines caps the lines shown when a collapsed block is hovered.
const DefaultHintFormLines = 12

// Provider is the shared collaborator every tag keeps a reference to. Tags
// never own or mutate it.
type Provider interface {
	SpanEquals(snapshotA text.Snapshot, spanA *text.Span, snapshotB text.Snapshot, spanB *text.Span) bool
	CollapsedHintForm(snapshot text.Snapshot, span text.Span) string
}

// Session is the Provider of one host tagging session. It outlives all tags
// created through it.
type Session struct {
	oracle        *Oracle
	hintFormLines int
}

var _ Provider = (*Session)(nil)

func NewSession(logger *slog.Logger, hintFormLines int) *Session {
	if hintFormLines <= 0 {
		hintFormLines = DefaultHintFormLines
	}
	return &Session{
		oracle:        NewOracle(logger),
		hintFormLines: hintFormLines,
	}
}

func (s *Session) SpanEquals(snapshotA text.Snapshot, spanA *text.Span, snapshotB text.Snapshot, spanB *text.Span) bool {
	return s.oracle.SpanEquals(snapshotA, spanA, snapshotB, spanB)
}

// CollapsedHintForm renders the text shown for a collapsed region: the text
// under span, cut after the configured number of lines.
func (s *Session) CollapsedHintForm(snapshot text.Snapshot, span text.Span) string {
	if snapshot == nil {
		return ""
	}
	content := strings.TrimRight(snapshot.Text(span), " \t\r\n")
	lines := strings.Split(content, "\n")
	if len(lines) <= s.hintFormLines {
		return content
	}
	lines = append(lines[:s.hintFormLines], "...")
	return strings.Join(lines, "\n")
}

var defaultProvider = NewSession(nil, DefaultHintFormLines)
