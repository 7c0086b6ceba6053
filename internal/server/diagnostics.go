package server

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
	"mvdan.cc/sh/v3/syntax"

	"github.com/matkrin/tagd/internal/ast"
	"github.com/matkrin/tagd/internal/lsp"
	"github.com/matkrin/tagd/internal/text"
	"github.com/matkrin/tagd/internal/utils"
)

func findDiagnostics(snapshot *text.BufferSnapshot) []lsp.Diagnostic {
	diagnostics := []lsp.Diagnostic{}
	name := utils.DocumentName(snapshot.BufferID())
	if _, err := ast.ParseDocument(snapshot.Content(), name, false); err != nil {
		diagnostics = append(diagnostics, diagnosticParseError(err, snapshot))
	}
	return diagnostics
}

// findDiagnosticsWorkspace parses the workspace scripts concurrently and
// returns the diagnostics of those that do not parse.
func findDiagnosticsWorkspace(ctx context.Context, state *State) map[string][]lsp.Diagnostic {
	workspaceDiagnostics := map[string][]lsp.Diagnostic{}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, shFile := range state.WorkspaceShFiles() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fileContent, err := os.ReadFile(shFile)
			if err != nil {
				slog.Error("Could not read file content", "file", shFile, "err", err)
				return nil
			}

			uri := utils.PathToURI(shFile)
			snapshot := text.NewBuffer(uri, string(fileContent)).Current()
			diagnostics := findDiagnostics(snapshot)
			if len(diagnostics) == 0 {
				return nil
			}
			mu.Lock()
			workspaceDiagnostics[uri] = diagnostics
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Warn("Workspace scan stopped", "err", err)
	}

	return workspaceDiagnostics
}

// diagnosticParseError turns a parse error of snapshot into a diagnostic at
// the error position, in UTF-16 characters.
func diagnosticParseError(err error, snapshot *text.BufferSnapshot) lsp.Diagnostic {
	var at lsp.Position
	message := err.Error()

	var parseErr syntax.ParseError
	var langErr syntax.LangError
	var quoteErr syntax.QuoteError
	switch {
	case errors.As(err, &parseErr):
		at = position(snapshot, parseErr.Pos)
		message = parseErr.Text
	case errors.As(err, &langErr):
		at = position(snapshot, langErr.Pos)
		message = langErr.Feature + " is not supported"
	case errors.As(err, &quoteErr):
		message = quoteErr.Message
	default:
		slog.Info("Unknown parser error", "err", err)
	}

	return lsp.Diagnostic{
		Range:    lsp.Range{Start: at, End: at},
		Severity: lsp.DiagnosticError,
		Code:     nil,
		Source:   "tagd",
		Message:  message,
	}
}

func position(snapshot *text.BufferSnapshot, pos syntax.Pos) lsp.Position {
	if !pos.IsValid() {
		return lsp.Position{}
	}
	offset := min(ast.Offset(pos), snapshot.Length())
	return toPosition(snapshot, offset)
}
