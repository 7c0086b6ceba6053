package inlay

import (
	"cmp"
	"slices"

	"mvdan.cc/sh/v3/syntax"

	"github.com/matkrin/tagd/internal/ast"
	"github.com/matkrin/tagd/internal/tagging"
	"github.com/matkrin/tagd/internal/text"
)

type Options struct {
	ParameterNames bool
	Escapes        bool
}

func DefaultOptions() Options {
	return Options{ParameterNames: true, Escapes: true}
}

// Hints computes the inline hints of a script. Parameter hints need a parsed
// document; escape hints only need the snapshot text, so doc may be nil.
func Hints(doc *ast.Ast, snap text.Snapshot, opts Options) []tagging.InlineHint {
	if snap == nil {
		return nil
	}

	var hints []tagging.InlineHint
	if opts.ParameterNames && doc != nil && doc.File != nil {
		hints = append(hints, parameterHints(doc, snap)...)
	}
	if opts.Escapes {
		hints = append(hints, escapeHints(snap.Text(text.NewSpan(0, snap.Length())))...)
	}

	slices.SortStableFunc(hints, func(a, b tagging.InlineHint) int {
		return cmp.Compare(a.Span.Start, b.Span.Start)
	})
	return hints
}

// parameterHints labels the arguments of calls to functions that name their
// positional parameters.
func parameterHints(doc *ast.Ast, snap text.Snapshot) []tagging.InlineHint {
	functions := doc.FunctionParams()
	if len(functions) == 0 {
		return nil
	}

	var hints []tagging.InlineHint
	for _, call := range doc.Calls() {
		params, ok := functions[ast.CommandName(call)]
		if !ok {
			continue
		}
		for i, arg := range call.Args[1:] {
			name, ok := params[i+1]
			if !ok || passesSameName(arg, name) {
				continue
			}
			pos, end := arg.Pos(), arg.End()
			if !pos.IsValid() || !end.IsValid() {
				continue
			}
			span := text.SpanFromBounds(ast.Offset(pos), ast.Offset(end))
			if span.End() > snap.Length() {
				continue
			}
			hints = append(hints, tagging.InlineHint{
				Span: span,
				DisplayParts: []tagging.TaggedText{
					{Tag: "parameter", Text: name},
					{Tag: "punctuation", Text: ":"},
				},
				Kind: tagging.HintParameter,
			})
		}
	}
	return hints
}

// passesSameName reports whether arg is just the expansion of a variable
// named like the parameter, as in `greet "$name"`.
func passesSameName(arg *syntax.Word, name string) bool {
	if len(arg.Parts) != 1 {
		return false
	}
	part := arg.Parts[0]
	if quoted, ok := part.(*syntax.DblQuoted); ok && len(quoted.Parts) == 1 {
		part = quoted.Parts[0]
	}
	param, ok := part.(*syntax.ParamExp)
	return ok && param.Param != nil && param.Param.Value == name && !param.Length && param.Exp == nil
}

// escapeHints names the attributes of SGR escapes and offers to rewrite
// spelled-out escapes into canonical form.
func escapeHints(content string) []tagging.InlineHint {
	var hints []tagging.InlineHint
	for _, escape := range FindEscapes(content) {
		label := escape.Label()
		if label == "" {
			continue
		}
		hint := tagging.InlineHint{
			Span:         escape.Span,
			DisplayParts: []tagging.TaggedText{{Tag: "escape", Text: label}},
			Kind:         tagging.HintType,
		}
		if canonical := escape.Canonical(); escape.Textual() && canonical != escape.Raw {
			hint.ReplacementTextChange = &tagging.TextChange{Span: escape.Span, NewText: canonical}
		}
		hints = append(hints, hint)
	}
	return hints
}
