// Package tagging wraps structural blocks and inline hints into immutable
// tags anchored to the snapshot they were computed on, and decides when two
// tags from possibly different snapshots denote the same thing.
package tagging

import (
	"log/slog"

	"github.com/matkrin/tagd/internal/text"
)

// Oracle compares spans anchored to snapshots of the same evolving buffer.
type Oracle struct {
	logger *slog.Logger
}

// NewOracle returns an oracle logging to logger, or to the default slog
// logger at the time of logging when logger is nil.
func NewOracle(logger *slog.Logger) *Oracle {
	return &Oracle{logger: logger}
}

func (o *Oracle) log() *slog.Logger {
	if o.logger == nil {
		return slog.Default()
	}
	return o.logger
}

// SpanEquals reports whether spanA in snapshotA and spanB in snapshotB denote
// the same region. A nil span means the span is absent. Spans from different
// snapshots are translated into each other's coordinates; any translation
// failure makes them unequal.
func (o *Oracle) SpanEquals(snapshotA text.Snapshot, spanA *text.Span, snapshotB text.Snapshot, spanB *text.Span) bool {
	if spanA == nil && spanB == nil {
		return true
	}
	if spanA == nil || spanB == nil {
		return false
	}
	if snapshotA == snapshotB {
		return *spanA == *spanB
	}

	translated, ok := o.translate(snapshotB, *spanB, snapshotA)
	if !ok || translated != *spanA {
		return false
	}
	// Translation is lossy across deletions; both directions must agree.
	back, ok := o.translate(snapshotA, *spanA, snapshotB)
	return ok && back == *spanB
}

func (o *Oracle) translate(from text.Snapshot, span text.Span, to text.Snapshot) (result text.Span, ok bool) {
	if from == nil || to == nil {
		return text.Span{}, false
	}
	defer func() {
		if r := recover(); r != nil {
			o.log().Debug("Span translation panicked", "span", span, "panic", r)
			result, ok = text.Span{}, false
		}
	}()

	translated, err := from.TranslateSpan(span, to)
	if err != nil {
		o.log().Debug("Span translation failed",
			"span", span,
			"fromVersion", from.Version(),
			"toVersion", to.Version(),
			"err", err,
		)
		return text.Span{}, false
	}
	return translated, true
}
