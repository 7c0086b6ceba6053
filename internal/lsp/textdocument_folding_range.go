package lsp

// https://microsoft.github.io/language-server-protocol/specifications/lsp/3.17/specification/#textDocument_foldingRange
type FoldingRangeRequest struct {
	Request
	Params FoldingRangeParams `json:"params"`
}

type FoldingRangeParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

type FoldingRangeResponse struct {
	Response
	Result []FoldingRange `json:"result"`
}

type FoldingRange struct {
	StartLine      uint             `json:"startLine"`
	StartCharacter *uint            `json:"startCharacter,omitempty"`
	EndLine        uint             `json:"endLine"`
	EndCharacter   *uint            `json:"endCharacter,omitempty"`
	Kind           FoldingRangeKind `json:"kind,omitempty"`
	CollapsedText  string           `json:"collapsedText,omitempty"`
}

type FoldingRangeKind string

const (
	FoldingRangeComment FoldingRangeKind = "comment"
	FoldingRangeImports FoldingRangeKind = "imports"
	FoldingRangeRegion  FoldingRangeKind = "region"
)

func NewFoldingRangeResponse(id int, ranges []FoldingRange) FoldingRangeResponse {
	return FoldingRangeResponse{
		Response: Response{
			RPC: RPC_VERSION,
			ID:  &id,
		},
		Result: ranges,
	}
}
