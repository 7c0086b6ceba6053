package lsp

// https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification/#textDocument_publishDiagnostics
type DiagnosticNotification struct {
	Notification
	Params PublishDiagnosticsParams `json:"params"`
}

// NewDiagnosticNotification publishes diagnostics for uri. version is the
// document version they were computed on, nil when they do not belong to an
// open document version.
func NewDiagnosticNotification(uri string, version *int, diagnostics []Diagnostic) DiagnosticNotification {
	return DiagnosticNotification{
		Notification: Notification{
			RPC:    RPC_VERSION,
			Method: "textDocument/publishDiagnostics",
		},
		Params: PublishDiagnosticsParams{
			URI:         uri,
			Version:     version,
			Diagnostics: diagnostics,
		},
	}
}

type PublishDiagnosticsParams struct {
	URI         string       `json:"uri"`
	Version     *int         `json:"version,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

type Diagnostic struct {
	Range    Range              `json:"range"`
	Severity DiagnosticSeverity `json:"severity"`
	Code     *string            `json:"code,omitempty"`
	Source   string             `json:"source"`
	Message  string             `json:"message"`
}

type DiagnosticSeverity int

const (
	DiagnosticError DiagnosticSeverity = iota + 1
	DiagnosticWarning
	DiagnosticInformation
	DiagnosticHint
)
