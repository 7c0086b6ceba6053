package lsp

type DidChangeConfigurationNotification struct {
	Notification
	Params DidChangeConfigurationParams `json:"params"`
}

type DidChangeConfigurationParams struct {
	Settings Settings `json:"settings"`
}

// Settings holds the client settings under the "tagd" section. Absent
// fields leave the server configuration unchanged.
type Settings struct {
	Tagd struct {
		InlayHints struct {
			ParameterNames *bool `json:"parameterNames"`
			Escapes        *bool `json:"escapes"`
		} `json:"inlayHints"`
		Folding struct {
			CollapseRegions *bool `json:"collapseRegions"`
		} `json:"folding"`
	} `json:"tagd"`
}
