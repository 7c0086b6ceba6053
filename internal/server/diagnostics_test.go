package server

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mvdan.cc/sh/v3/syntax"

	"github.com/matkrin/tagd/internal/ast"
	"github.com/matkrin/tagd/internal/lsp"
	"github.com/matkrin/tagd/internal/text"
)

func TestFindDiagnostics(t *testing.T) {
	snapshot := text.NewBuffer(testURI, "echo ok\n").Current()
	assert.Empty(t, findDiagnostics(snapshot))

	snapshot = text.NewBuffer(testURI, "echo ok\nfi\n").Current()
	diagnostics := findDiagnostics(snapshot)
	require.Len(t, diagnostics, 1)
	assert.Equal(t, uint(1), diagnostics[0].Range.Start.Line)
	assert.Equal(t, diagnostics[0].Range.Start, diagnostics[0].Range.End)
	assert.Equal(t, lsp.DiagnosticError, diagnostics[0].Severity)
}

func TestDiagnosticParseError_UTF16Character(t *testing.T) {
	// é is two bytes in UTF-8 and one UTF-16 code unit
	script := "echo é; fi\n"
	snapshot := text.NewBuffer(testURI, script).Current()

	_, err := ast.ParseDocument(script, "test.sh", false)
	var parseErr syntax.ParseError
	require.True(t, errors.As(err, &parseErr))
	byteColumn := parseErr.Pos.Col() - 1
	require.Greater(t, byteColumn, uint(6), "error should be reported after the é")

	diagnostic := diagnosticParseError(err, snapshot)
	assert.Equal(t, uint(0), diagnostic.Range.Start.Line)
	assert.Equal(t, byteColumn-1, diagnostic.Range.Start.Character)
	assert.Equal(t, parseErr.Text, diagnostic.Message)
}
