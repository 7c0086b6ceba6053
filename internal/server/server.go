package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/matkrin/tagd/internal/lsp"
	"github.com/matkrin/tagd/internal/text"
)

type queuedMessage struct {
	method   string
	contents []byte
}

type Server struct {
	name         string
	version      string
	state        *State
	writer       io.Writer
	messageQueue chan queuedMessage
	wg           sync.WaitGroup
	requestID    atomic.Int32
	exit         func(code int)

	// guards the debounce timers and the stopped flag
	mu      sync.Mutex
	timers  map[string]*time.Timer
	passes  sync.WaitGroup
	stopped bool

	writeMu sync.Mutex
}

func NewServer(name, version string, state *State, writer io.Writer) *Server {
	s := &Server{
		name:         name,
		version:      version,
		state:        state,
		writer:       writer,
		messageQueue: make(chan queuedMessage),
		exit:         os.Exit,
		timers:       map[string]*time.Timer{},
	}

	s.wg.Add(1)
	go s.run()

	return s
}

func (s *Server) run() {
	defer s.wg.Done()
	for msg := range s.messageQueue {
		s.dispatchMessage(msg.method, msg.contents)
	}
}

func (s *Server) HandleMessage(method string, contents []byte) {
	s.messageQueue <- queuedMessage{method: method, contents: contents}
}

// Stop drains the message queue, cancels pending tag passes and waits for
// running ones.
func (s *Server) Stop() {
	close(s.messageQueue)
	s.wg.Wait()

	s.mu.Lock()
	s.stopped = true
	for uri, timer := range s.timers {
		timer.Stop()
		delete(s.timers, uri)
	}
	s.mu.Unlock()
	s.passes.Wait()
}

func decode[T any](method string, contents []byte) (*T, bool) {
	var request T
	if err := json.Unmarshal(contents, &request); err != nil {
		slog.Error("Could not parse request", "method", method, "err", err)
		return nil, false
	}
	return &request, true
}

func (s *Server) dispatchMessage(method string, contents []byte) {
	slog.Info("Received message", "method", method)

	switch method {
	case "initialize":
		request, ok := decode[lsp.InitializeRequest](method, contents)
		if !ok {
			return
		}
		s.handleInitialize(request)

	case "initialized":

	case "shutdown":
		request, ok := decode[lsp.ShutdownRequest](method, contents)
		if !ok {
			return
		}

		slog.Info("Received shutdown request")
		s.state.mu.Lock()
		s.state.ShutdownRequested = true
		s.state.mu.Unlock()

		s.writeResponse(lsp.NewShutdownResponse(request.ID))

	case "exit":
		slog.Info("Exiting")
		s.state.mu.RLock()
		shutdownRequested := s.state.ShutdownRequested
		s.state.mu.RUnlock()
		if shutdownRequested {
			s.exit(0)
		} else {
			slog.Warn("Exiting without shutdown preceding shutdown request")
			s.exit(1)
		}

	case "textDocument/didOpen":
		request, ok := decode[lsp.DidOpenTextDocumentNotification](method, contents)
		if !ok {
			return
		}

		uri := request.Params.TextDocument.URI
		slog.Info("Opened document", "URI", uri)
		document := s.state.OpenDocument(uri, request.Params.TextDocument.Text)
		s.scheduleTagPass(document)

	case "textDocument/didChange":
		request, ok := decode[lsp.TextDocumentDidChangeNotification](method, contents)
		if !ok {
			return
		}

		uri := request.Params.TextDocument.URI
		slog.Info("Changed document", "URI", uri, "version", request.Params.TextDocument.Version)
		document := s.state.Document(uri)
		if document == nil {
			slog.Error("Change for unknown document", "URI", uri)
			return
		}
		if err := applyChanges(document.Buffer, request.Params.ContentChanges); err != nil {
			slog.Error("Could not apply document changes", "URI", uri, "err", err)
			return
		}
		s.scheduleTagPass(document)

	case "textDocument/didClose":
		request, ok := decode[lsp.DidCloseTextDocumentNotification](method, contents)
		if !ok {
			return
		}

		uri := request.Params.TextDocument.URI
		slog.Info("Closed document", "URI", uri)
		s.cancelTagPass(uri)
		s.state.CloseDocument(uri)
		s.pushDiagnostic(uri, nil, []lsp.Diagnostic{})

	case "textDocument/foldingRange":
		request, ok := decode[lsp.FoldingRangeRequest](method, contents)
		if !ok {
			return
		}
		response := s.handleFoldingRange(request)
		if response != nil {
			s.writeResponse(response)
		}

	case "textDocument/inlayHint":
		request, ok := decode[lsp.InlayHintRequest](method, contents)
		if !ok {
			return
		}
		response := s.handleInlayHint(request)
		if response != nil {
			s.writeResponse(response)
		}

	case "inlayHint/resolve":
		request, ok := decode[lsp.InlayHintResolveRequest](method, contents)
		if !ok {
			return
		}
		s.writeResponse(s.handleInlayHintResolve(request))

	case "textDocument/documentColor":
		request, ok := decode[lsp.DocumentColorRequest](method, contents)
		if !ok {
			return
		}
		response := s.handleDocumentColor(request)
		if response != nil {
			s.writeResponse(response)
		}

	case "workspace/didChangeConfiguration":
		request, ok := decode[lsp.DidChangeConfigurationNotification](method, contents)
		if !ok {
			return
		}
		s.handleDidChangeConfiguration(request)

	case "":
		// a client response to one of our requests
		slog.Debug("Received response", "contents", string(contents))

	default:
		slog.Debug("Unhandled method", "method", method)
	}
}

func (s *Server) handleInitialize(request *lsp.InitializeRequest) {
	if clientInfo := request.Params.ClientInfo; clientInfo != nil {
		slog.Info("Connected to client",
			"name", clientInfo.Name,
			"version", clientInfo.Version,
		)
	}

	s.state.mu.Lock()
	s.state.WorkspaceFolders = request.Params.WorkspaceFolders
	s.state.RefreshSupport = request.Params.Capabilities.Workspace.InlayHint.RefreshSupport
	s.state.mu.Unlock()
	slog.Info("Workspace folders set", "workspaceFolders", request.Params.WorkspaceFolders)

	capabilities := lsp.ServerCapabilities{
		TextDocumentSync:     lsp.TextDocumentSyncIncremental,
		FoldingRangeProvider: true,
		ColorProvider:        true,
		InlayHintProvider: lsp.InlayHintOptions{
			ResolveProvider: true,
		},
	}
	info := lsp.ServerInfo{
		Name:    s.name,
		Version: s.version,
	}

	msg := lsp.NewInitializeResponse(request.ID, &capabilities, &info)
	s.writeResponse(msg)

	workspaceDiagnostics := findDiagnosticsWorkspace(context.Background(), s.state)
	for uri, diagnostics := range workspaceDiagnostics {
		s.pushDiagnostic(uri, nil, diagnostics)
	}
}

func (s *Server) handleDidChangeConfiguration(request *lsp.DidChangeConfigurationNotification) {
	settings := request.Params.Settings.Tagd
	s.state.UpdateConfig(func(config *Config) {
		if v := settings.InlayHints.ParameterNames; v != nil {
			config.InlayHints.ParameterNames = *v
		}
		if v := settings.InlayHints.Escapes; v != nil {
			config.InlayHints.Escapes = *v
		}
		if v := settings.Folding.CollapseRegions; v != nil {
			config.Outline.CollapseRegions = *v
		}
	})
	slog.Info("Configuration changed", "config", s.state.CurrentConfig())

	refresh := false
	for _, document := range s.state.OpenDocuments() {
		if _, changed := s.retag(document); changed {
			refresh = true
		}
	}
	if refresh {
		s.requestInlayHintRefresh()
	}
}

// applyChanges applies the content changes of one didChange notification in
// order. A change without a range replaces the whole text.
func applyChanges(buffer *text.Buffer, changes []lsp.TextDocumentContentChangeEvent) error {
	for _, change := range changes {
		if change.Range == nil {
			buffer.Replace(change.Text)
			continue
		}
		current := buffer.Current()
		span := toSpan(current, *change.Range)
		if _, err := buffer.Apply(text.Edit{Start: span.Start, End: span.End(), NewText: change.Text}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) scheduleTagPass(document *Document) {
	debounceTime := s.state.CurrentConfig().TagDebounceTime

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if timer, ok := s.timers[document.URI]; ok {
		timer.Stop()
	}
	s.timers[document.URI] = time.AfterFunc(debounceTime, func() {
		s.mu.Lock()
		if s.stopped || s.state.Document(document.URI) != document {
			s.mu.Unlock()
			return
		}
		s.passes.Add(1)
		s.mu.Unlock()
		defer s.passes.Done()

		s.runTagPass(document)
	})
}

func (s *Server) cancelTagPass(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[uri]; ok {
		timer.Stop()
		delete(s.timers, uri)
	}
}

func (s *Server) pushDiagnostic(uri string, version *int, diagnostics []lsp.Diagnostic) {
	notification := lsp.NewDiagnosticNotification(uri, version, diagnostics)
	s.writeResponse(notification)
}

func (s *Server) writeResponse(msg any) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	reply := lsp.EncodeMessage(msg)
	if _, err := io.WriteString(s.writer, reply); err != nil {
		slog.Error("Could not write message", "err", err)
	}
}
