package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matkrin/tagd/internal/inlay"
	"github.com/matkrin/tagd/internal/lsp"
	"github.com/matkrin/tagd/internal/tagging"
	"github.com/matkrin/tagd/internal/text"
	"github.com/matkrin/tagd/internal/utils"
)

const testURI = "file:///workspace/test.sh"

// syncBuffer is written by the message loop and the tag pass timers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func mockState1() *State {
	state := NewState(Config{
		ExcludeDirs:     nil,
		TagDebounceTime: time.Hour,
		InlayHints:      inlay.DefaultOptions(),
		HintFormLines:   tagging.DefaultHintFormLines,
	})
	state.WorkspaceFolders = []lsp.WorkspaceFolder{
		{URI: "file:///workspace", Name: "workspace"},
	}
	return state
}

// message builds a request, or a notification when id is 0.
func message(t *testing.T, id int, method string, params any) []byte {
	t.Helper()
	msg := map[string]any{"jsonrpc": "2.0", "method": method, "params": params}
	if id != 0 {
		msg["id"] = id
	}
	contents, err := json.Marshal(msg)
	require.NoError(t, err)
	return contents
}

type sentMessage struct {
	ID     *int            `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
}

func sentMessages(t *testing.T, output string) []sentMessage {
	t.Helper()
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Split(lsp.Split)

	var messages []sentMessage
	for scanner.Scan() {
		_, contents, err := lsp.DecodeMessage(scanner.Bytes())
		require.NoError(t, err)
		var msg sentMessage
		require.NoError(t, json.Unmarshal(contents, &msg))
		messages = append(messages, msg)
	}
	require.NoError(t, scanner.Err())
	return messages
}

func resultOf[T any](t *testing.T, messages []sentMessage, id int) T {
	t.Helper()
	var result T
	for _, msg := range messages {
		if msg.ID != nil && *msg.ID == id && msg.Method == "" {
			require.NoError(t, json.Unmarshal(msg.Result, &result))
			return result
		}
	}
	t.Fatalf("no response with id %d", id)
	return result
}

func countMethod(messages []sentMessage, method string) int {
	count := 0
	for _, msg := range messages {
		if msg.Method == method {
			count++
		}
	}
	return count
}

func openParams(uri, documentText string) map[string]any {
	return map[string]any{
		"textDocument": map[string]any{
			"uri":        uri,
			"languageId": "shellscript",
			"version":    1,
			"text":       documentText,
		},
	}
}

func changeParams(uri string, version int, changes ...map[string]any) map[string]any {
	return map[string]any{
		"textDocument":   map[string]any{"uri": uri, "version": version},
		"contentChanges": changes,
	}
}

func documentParams(uri string) map[string]any {
	return map[string]any{"textDocument": map[string]any{"uri": uri}}
}

func wholeDocument(uri string) map[string]any {
	return map[string]any{
		"textDocument": map[string]any{"uri": uri},
		"range":        lsp.NewRange(0, 0, 100, 0),
	}
}

func TestHandleMessage(t *testing.T) {
	var testCases = []struct {
		method   string
		contents []byte
	}{
		{
			method:   "initialize",
			contents: []byte(`{"id": 1, "params": {"clientInfo": {"name": "TestClient", "version": "1.0"}, "workspaceFolders": [{"uri": "file:///workspace", "name": "workspace"}]}}`),
		},
		{
			method:   "shutdown",
			contents: []byte(`{"id": 1}`),
		},
	}

	for _, tt := range testCases {
		t.Run(tt.method, func(t *testing.T) {
			writer := &syncBuffer{}

			state := mockState1()
			state.OpenDocument(testURI, `#!/usr/bin/env bash

echo "hello world"

`)

			server := NewServer("tagd", "test", state, writer)
			server.HandleMessage(tt.method, tt.contents)
			server.Stop()

			switch tt.method {
			case "initialize":
				expectedIn := []string{
					`"jsonrpc":"2.0"`,
					`"textDocumentSync":2`,
					`"foldingRangeProvider":true`,
					`"inlayHintProvider":{"resolveProvider":true}`,
					`"serverInfo":{"name":"tagd","version":"test"}`,
				}
				response := writer.String()
				for _, exp := range expectedIn {
					if !strings.Contains(response, exp) {
						t.Errorf("'%s' failed. expected '%s' in '%s'", tt.method, exp, response)
					}
				}

			case "shutdown":
				expectedIn := []string{"Content-Length: 38", `"jsonrpc"`, `"result":null`}
				response := writer.String()
				for _, exp := range expectedIn {
					if !strings.Contains(response, exp) {
						t.Errorf("'%s' failed. expected '%s' in '%s'", tt.method, exp, response)
					}
				}
			}
		})
	}
}

func TestServer_Exit(t *testing.T) {
	tests := []struct {
		name     string
		shutdown bool
		want     int
	}{
		{"after shutdown", true, 0},
		{"without shutdown", false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := NewServer("tagd", "test", mockState1(), &syncBuffer{})
			code := -1
			server.exit = func(c int) { code = c }

			if tt.shutdown {
				server.HandleMessage("shutdown", []byte(`{"jsonrpc":"2.0","id":1,"method":"shutdown"}`))
			}
			server.HandleMessage("exit", []byte(`{"jsonrpc":"2.0","method":"exit"}`))
			server.Stop()

			assert.Equal(t, tt.want, code)
		})
	}
}

func TestServer_FoldingRange(t *testing.T) {
	writer := &syncBuffer{}
	server := NewServer("tagd", "test", mockState1(), writer)

	server.HandleMessage("textDocument/didOpen", message(t, 0, "textDocument/didOpen",
		openParams(testURI, "foo() {\n  echo hi\n}\n# a\n# b\n")))
	server.HandleMessage("textDocument/foldingRange", message(t, 2, "textDocument/foldingRange",
		documentParams(testURI)))
	server.Stop()

	ranges := resultOf[[]lsp.FoldingRange](t, sentMessages(t, writer.String()), 2)
	assert.Equal(t, []lsp.FoldingRange{
		{StartLine: 0, EndLine: 2, CollapsedText: "foo() {...}"},
		{StartLine: 3, EndLine: 4, Kind: lsp.FoldingRangeComment, CollapsedText: "# a"},
	}, ranges)
}

func TestServer_InlayHintRefresh(t *testing.T) {
	writer := &syncBuffer{}
	server := NewServer("tagd", "test", NewState(mockState1().Config), writer)

	server.HandleMessage("initialize", message(t, 1, "initialize", map[string]any{
		"capabilities": map[string]any{
			"workspace": map[string]any{"inlayHint": map[string]any{"refreshSupport": true}},
		},
	}))
	server.HandleMessage("textDocument/didOpen", message(t, 0, "textDocument/didOpen",
		openParams(testURI, "greet() {\n  local name=$1\n}\ngreet bob\n")))
	server.HandleMessage("textDocument/inlayHint", message(t, 2, "textDocument/inlayHint", wholeDocument(testURI)))

	// moves the hint without changing it
	server.HandleMessage("textDocument/didChange", message(t, 0, "textDocument/didChange",
		changeParams(testURI, 2, map[string]any{"range": lsp.NewRange(0, 0, 0, 0), "text": "#!/bin/bash\n"})))
	server.HandleMessage("textDocument/inlayHint", message(t, 3, "textDocument/inlayHint", wholeDocument(testURI)))

	// renames the parameter
	server.HandleMessage("textDocument/didChange", message(t, 0, "textDocument/didChange",
		changeParams(testURI, 3, map[string]any{"range": lsp.NewRange(2, 8, 2, 12), "text": "who"})))
	server.HandleMessage("textDocument/inlayHint", message(t, 4, "textDocument/inlayHint", wholeDocument(testURI)))
	server.Stop()

	messages := sentMessages(t, writer.String())

	first := resultOf[[]lsp.InlayHint](t, messages, 2)
	require.Len(t, first, 1)
	assert.Equal(t, "name:", labelText(first[0]))
	assert.Equal(t, lsp.Position{Line: 3, Character: 6}, first[0].Position)
	assert.Equal(t, lsp.InlayHintParameter, first[0].Kind)

	moved := resultOf[[]lsp.InlayHint](t, messages, 3)
	require.Len(t, moved, 1)
	assert.Equal(t, "name:", labelText(moved[0]))
	assert.Equal(t, lsp.Position{Line: 4, Character: 6}, moved[0].Position)

	renamed := resultOf[[]lsp.InlayHint](t, messages, 4)
	require.Len(t, renamed, 1)
	assert.Equal(t, "who:", labelText(renamed[0]))

	assert.Equal(t, 1, countMethod(messages, "workspace/inlayHint/refresh"))
}

func TestServer_InlayHintResolve(t *testing.T) {
	writer := &syncBuffer{}
	state := mockState1()
	state.OpenDocument(testURI, "greet() {\n  local name=$1\n}\n  greet bob\n")
	server := NewServer("tagd", "test", state, writer)

	hint := lsp.InlayHint{
		Position: lsp.Position{Line: 3, Character: 8},
		Label:    []lsp.InlayHintLabelPart{{Value: "name"}, {Value: ":"}},
		Kind:     lsp.InlayHintParameter,
		Data:     &lsp.InlayHintData{URI: testURI, Version: 0, Offset: 36},
	}
	server.HandleMessage("inlayHint/resolve", message(t, 5, "inlayHint/resolve", hint))

	// a hint without data is returned as is
	hint.Data = nil
	server.HandleMessage("inlayHint/resolve", message(t, 6, "inlayHint/resolve", hint))
	server.Stop()

	messages := sentMessages(t, writer.String())
	resolved := resultOf[lsp.InlayHint](t, messages, 5)
	require.NotNil(t, resolved.Tooltip)
	assert.Equal(t, "greet bob", *resolved.Tooltip)
	assert.Equal(t, "name:", labelText(resolved))

	unresolved := resultOf[lsp.InlayHint](t, messages, 6)
	assert.Nil(t, unresolved.Tooltip)
}

func TestServer_InlayHintResolveAfterChange(t *testing.T) {
	writer := &syncBuffer{}
	server := NewServer("tagd", "test", mockState1(), writer)

	server.HandleMessage("textDocument/didOpen", message(t, 0, "textDocument/didOpen",
		openParams(testURI, "greet() {\n  local name=$1\n}\ngreet bob\n")))
	server.HandleMessage("textDocument/inlayHint", message(t, 2, "textDocument/inlayHint", wholeDocument(testURI)))
	server.HandleMessage("textDocument/didChange", message(t, 0, "textDocument/didChange",
		changeParams(testURI, 2, map[string]any{"range": lsp.NewRange(0, 0, 0, 0), "text": "#!/bin/bash\n"})))

	// the hint was rendered on version 0, the buffer is at version 1
	hint := lsp.InlayHint{
		Position: lsp.Position{Line: 3, Character: 6},
		Label:    []lsp.InlayHintLabelPart{{Value: "name"}, {Value: ":"}},
		Kind:     lsp.InlayHintParameter,
		Data:     &lsp.InlayHintData{URI: testURI, Version: 0, Offset: 34},
	}
	server.HandleMessage("inlayHint/resolve", message(t, 3, "inlayHint/resolve", hint))

	// once the latest pass is of version 1, version 0 hints are not resolved
	server.HandleMessage("textDocument/inlayHint", message(t, 4, "textDocument/inlayHint", wholeDocument(testURI)))
	server.HandleMessage("inlayHint/resolve", message(t, 5, "inlayHint/resolve", hint))
	server.Stop()

	messages := sentMessages(t, writer.String())
	require.Len(t, resultOf[[]lsp.InlayHint](t, messages, 2), 1)

	translated := resultOf[lsp.InlayHint](t, messages, 3)
	require.NotNil(t, translated.Tooltip)
	assert.Equal(t, "greet bob", *translated.Tooltip)

	current := resultOf[[]lsp.InlayHint](t, messages, 4)
	require.Len(t, current, 1)
	require.NotNil(t, current[0].Data)
	assert.Equal(t, 1, current[0].Data.Version)
	assert.Equal(t, 46, current[0].Data.Offset)

	stale := resultOf[lsp.InlayHint](t, messages, 5)
	assert.Nil(t, stale.Tooltip)
	assert.Equal(t, "name:", labelText(stale))
}

func TestServer_DocumentColor(t *testing.T) {
	writer := &syncBuffer{}
	server := NewServer("tagd", "test", mockState1(), writer)

	server.HandleMessage("textDocument/didOpen", message(t, 0, "textDocument/didOpen",
		openParams(testURI, "echo -e \"\\e[31mred\\e[0m \\e[38;2;255;0;255mpink\"\n")))
	server.HandleMessage("textDocument/documentColor", message(t, 2, "textDocument/documentColor",
		documentParams(testURI)))
	server.Stop()

	colors := resultOf[[]lsp.ColorInformation](t, sentMessages(t, writer.String()), 2)
	require.Len(t, colors, 2)
	assert.Equal(t, lsp.NewRange(0, 9, 0, 15), colors[0].Range)
	assert.Equal(t, lsp.Color{Red: 0.8, Green: 0, Blue: 0, Alpha: 1}, colors[0].Color)
	assert.Equal(t, lsp.Color{Red: 1, Green: 0, Blue: 1, Alpha: 1}, colors[1].Color)
}

func TestServer_DidChangeConfiguration(t *testing.T) {
	writer := &syncBuffer{}
	state := mockState1()
	state.RefreshSupport = true
	server := NewServer("tagd", "test", state, writer)

	server.HandleMessage("textDocument/didOpen", message(t, 0, "textDocument/didOpen",
		openParams(testURI, "echo -e \"\\e[1mbold\"\n")))
	server.HandleMessage("textDocument/inlayHint", message(t, 2, "textDocument/inlayHint", wholeDocument(testURI)))
	server.HandleMessage("workspace/didChangeConfiguration", message(t, 0, "workspace/didChangeConfiguration",
		map[string]any{"settings": map[string]any{"tagd": map[string]any{"inlayHints": map[string]any{"escapes": false}}}}))
	server.HandleMessage("textDocument/inlayHint", message(t, 3, "textDocument/inlayHint", wholeDocument(testURI)))
	server.Stop()

	messages := sentMessages(t, writer.String())
	assert.Len(t, resultOf[[]lsp.InlayHint](t, messages, 2), 1)
	assert.Empty(t, resultOf[[]lsp.InlayHint](t, messages, 3))
	assert.Equal(t, 1, countMethod(messages, "workspace/inlayHint/refresh"))

	config := state.CurrentConfig()
	assert.False(t, config.InlayHints.Escapes)
	assert.True(t, config.InlayHints.ParameterNames)
}

func TestServer_Diagnostics(t *testing.T) {
	writer := &syncBuffer{}
	state := mockState1()
	state.Config.TagDebounceTime = 10 * time.Millisecond
	server := NewServer("tagd", "test", state, writer)

	server.HandleMessage("textDocument/didOpen", message(t, 0, "textDocument/didOpen",
		openParams(testURI, "if true; then\n")))

	require.Eventually(t, func() bool {
		return strings.Contains(writer.String(), `"method":"textDocument/publishDiagnostics"`)
	}, 5*time.Second, 10*time.Millisecond)

	server.HandleMessage("textDocument/didClose", message(t, 0, "textDocument/didClose", documentParams(testURI)))
	server.Stop()

	var published []lsp.PublishDiagnosticsParams
	for _, msg := range sentMessages(t, writer.String()) {
		if msg.Method != "textDocument/publishDiagnostics" {
			continue
		}
		var params lsp.PublishDiagnosticsParams
		require.NoError(t, json.Unmarshal(msg.Params, &params))
		published = append(published, params)
	}

	require.Len(t, published, 2)
	assert.Equal(t, testURI, published[0].URI)
	require.NotNil(t, published[0].Version)
	assert.Equal(t, 0, *published[0].Version)
	assert.Nil(t, published[1].Version)
	require.Len(t, published[0].Diagnostics, 1)
	assert.Equal(t, "tagd", published[0].Diagnostics[0].Source)
	assert.Equal(t, lsp.DiagnosticError, published[0].Diagnostics[0].Severity)
	assert.Empty(t, published[1].Diagnostics)
	assert.Nil(t, state.Document(testURI))
}

func TestServer_WorkspaceDiagnostics(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"broken.sh":         "if true; then\n",
		"ok.sh":             "echo ok\n",
		"script":            "#!/bin/bash\nfor\n",
		"notes":             "for\n",
		"node_modules/x.sh": "if\n",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	writer := &syncBuffer{}
	state := mockState1()
	state.Config.ExcludeDirs = []string{"node_modules"}
	server := NewServer("tagd", "test", state, writer)
	server.HandleMessage("initialize", message(t, 1, "initialize", map[string]any{
		"workspaceFolders": []lsp.WorkspaceFolder{{URI: utils.PathToURI(dir), Name: "workspace"}},
	}))
	server.Stop()

	var uris []string
	for _, msg := range sentMessages(t, writer.String()) {
		if msg.Method != "textDocument/publishDiagnostics" {
			continue
		}
		var params lsp.PublishDiagnosticsParams
		require.NoError(t, json.Unmarshal(msg.Params, &params))
		assert.NotEmpty(t, params.Diagnostics)
		assert.Nil(t, params.Version)
		uris = append(uris, params.URI)
	}

	assert.ElementsMatch(t, []string{
		utils.PathToURI(filepath.Join(dir, "broken.sh")),
		utils.PathToURI(filepath.Join(dir, "script")),
	}, uris)
}

func TestApplyChanges(t *testing.T) {
	buffer := text.NewBuffer(testURI, "echo a\necho b\n")
	initial := buffer.Current()

	bRange := lsp.NewRange(1, 5, 1, 6)
	startRange := lsp.NewRange(0, 0, 0, 0)
	err := applyChanges(buffer, []lsp.TextDocumentContentChangeEvent{
		{Range: &bRange, Text: "bee"},
		// in the coordinates left by the first change
		{Range: &startRange, Text: "# x\n"},
	})
	require.NoError(t, err)

	current := buffer.Current()
	assert.Equal(t, "# x\necho a\necho bee\n", current.Content())
	assert.Equal(t, 2, current.Version())

	span, err := initial.TranslateSpan(text.NewSpan(7, 6), current)
	require.NoError(t, err)
	assert.Equal(t, "echo bee", current.Text(span))

	require.NoError(t, applyChanges(buffer, []lsp.TextDocumentContentChangeEvent{{Text: "new\n"}}))
	assert.Equal(t, "new\n", buffer.Current().Content())
}
