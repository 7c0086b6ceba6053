package lsp

type InlayHintRequest struct {
	Request
	Params InlayHintParams `json:"params"`
}

type InlayHintParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Range        Range                  `json:"range"`
}

type InlayHintResponse struct {
	Response
	Result []InlayHint `json:"result"`
}

type InlayHint struct {
	Position     Position             `json:"position"`
	Label        []InlayHintLabelPart `json:"label"`
	Kind         InlayHintKind        `json:"kind"`
	TextEdits    []TextEdit           `json:"textEdits,omitempty"`
	Tooltip      *string              `json:"tooltip,omitempty"`
	PaddingLeft  bool                 `json:"paddingLeft"`
	PaddingRight bool                 `json:"paddingRight"`
	Data         *InlayHintData       `json:"data,omitempty"`
}

type InlayHintLabelPart struct {
	Value   string  `json:"value"`
	Tooltip *string `json:"tooltip,omitempty"`
}

// InlayHintData is echoed back by the client on inlayHint/resolve.
type InlayHintData struct {
	URI     string `json:"uri"`
	Version int    `json:"version"`
	Offset  int    `json:"offset"`
}

type InlayHintKind int

const (
	InlayHintType InlayHintKind = iota + 1
	InlayHintParameter
)

type InlayHintOptions struct {
	ResolveProvider bool `json:"resolveProvider"`
}

func NewInlayHintResponse(id int, hints []InlayHint) InlayHintResponse {
	return InlayHintResponse{
		Response: Response{
			RPC: RPC_VERSION,
			ID:  &id,
		},
		Result: hints,
	}
}

// https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification/#inlayHint_resolve
type InlayHintResolveRequest struct {
	Request
	Params InlayHint `json:"params"`
}

type InlayHintResolveResponse struct {
	Response
	Result InlayHint `json:"result"`
}

func NewInlayHintResolveResponse(id int, hint InlayHint) InlayHintResolveResponse {
	return InlayHintResolveResponse{
		Response: Response{
			RPC: RPC_VERSION,
			ID:  &id,
		},
		Result: hint,
	}
}

// https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification/#workspace_inlayHint_refresh
type InlayHintRefreshRequest struct {
	Request
}

func NewInlayHintRefreshRequest(id int) InlayHintRefreshRequest {
	return InlayHintRefreshRequest{
		Request: Request{
			RPC:    RPC_VERSION,
			ID:     id,
			Method: "workspace/inlayHint/refresh",
		},
	}
}
