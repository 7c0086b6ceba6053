package lsp

type ShutdownRequest struct {
	Request
}

type ShutdownResponse struct {
	Response
	Result *any `json:"result"`
}

func NewShutdownResponse(id int) ShutdownResponse {
	return ShutdownResponse{
		Response: Response{
			RPC: RPC_VERSION,
			ID:  &id,
		},
		Result: nil,
	}
}
