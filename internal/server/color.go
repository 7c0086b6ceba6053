package server

import (
	"log/slog"

	"github.com/matkrin/tagd/internal/inlay"
	"github.com/matkrin/tagd/internal/lsp"
	"github.com/matkrin/tagd/internal/text"
)

func (s *Server) handleDocumentColor(request *lsp.DocumentColorRequest) *lsp.DocumentColorResponse {
	uri := request.Params.TextDocument.URI
	document := s.state.Document(uri)
	if document == nil {
		slog.Error("Colors for unknown document", "URI", uri)
		return nil
	}

	colorInformation := extractColors(document.Buffer.Current())
	response := lsp.NewDocumentColorResponse(request.ID, colorInformation)
	return &response
}

func extractColors(snapshot *text.BufferSnapshot) []lsp.ColorInformation {
	results := []lsp.ColorInformation{}
	for _, escape := range inlay.FindEscapes(snapshot.Content()) {
		color, ok := parseColorFromSGR(escape.Params)
		if !ok {
			continue
		}
		results = append(results, lsp.ColorInformation{
			Range: toRange(snapshot, escape.Span),
			Color: color,
		})
	}
	return results
}

// parseColorFromSGR finds the color an escape sets: the first extended
// color, else the first basic one.
func parseColorFromSGR(params []int) (lsp.Color, bool) {
	for i := 0; i < len(params); i++ {
		if params[i] != 38 && params[i] != 48 {
			continue
		}
		// 256-color: 38;5;<n> / 48;5;<n>
		if i+2 < len(params) && params[i+1] == 5 {
			return xterm256ToRGB(params[i+2]), true
		}
		// True color: 38;2;<r>;<g>;<b> / 48;2;<r>;<g>;<b>
		if i+4 < len(params) && params[i+1] == 2 {
			return lsp.Color{
				Red:   channel(params[i+2]),
				Green: channel(params[i+3]),
				Blue:  channel(params[i+4]),
				Alpha: 1.0,
			}, true
		}
	}

	// Fall back to basic color approximations
	for _, param := range params {
		if color, ok := escapeCodeToColor(param); ok {
			return color, true
		}
	}
	return lsp.Color{}, false
}

func channel(value int) float32 {
	return float32(min(max(value, 0), 255)) / 255
}

// Converts a color index (0-255) to RGB according to xterm palette
func xterm256ToRGB(index int) lsp.Color {
	if index >= 0 && index < 16 {
		// Basic colors (only approximinations, depend on user's terminal emulator)
		// 0-  7:  standard colors (as in ESC [ 30–37 m)
		// 8- 15:  high intensity colors (as in ESC [ 90–97 m)
		return approxColor(index)
	} else if index >= 16 && index < 232 {
		// 16-231:  6 × 6 × 6 cube (216 colors): 16 + 36 × r + 6 × g + b (0 ≤ r, g, b ≤ 5)
		index -= 16
		r := (index / 36) % 6
		g := (index / 6) % 6
		b := index % 6
		return lsp.Color{
			Red:   float32(r) / 5.0,
			Green: float32(g) / 5.0,
			Blue:  float32(b) / 5.0,
			Alpha: 1.0,
		}
	} else if index >= 232 && index <= 255 {
		// 232-255:  grayscale from dark to light in 24 steps
		gray := float32(index-232) / 23.0
		return lsp.Color{Red: gray, Green: gray, Blue: gray, Alpha: 1.0}
	}
	return lsp.Color{Red: 0, Green: 0, Blue: 0, Alpha: 0}
}

func escapeCodeToColor(code int) (lsp.Color, bool) {
	switch {
	case code >= 30 && code <= 37:
		return approxColor(code - 30), true
	case code >= 40 && code <= 47:
		return approxColor(code - 40), true
	case code >= 90 && code <= 97:
		return approxColor(code - 90 + 8), true
	case code >= 100 && code <= 107:
		return approxColor(code - 100 + 8), true
	}
	return lsp.Color{}, false
}

func approxColor(index int) lsp.Color {
	approxColors := []lsp.Color{
		{Red: 0, Green: 0, Blue: 0, Alpha: 1},       // 0: black
		{Red: 0.8, Green: 0, Blue: 0, Alpha: 1},     // 1: red
		{Red: 0, Green: 0.8, Blue: 0, Alpha: 1},     // 2: green
		{Red: 0.8, Green: 0.8, Blue: 0, Alpha: 1},   // 3: yellow
		{Red: 0, Green: 0, Blue: 0.8, Alpha: 1},     // 4: blue
		{Red: 0.8, Green: 0, Blue: 0.8, Alpha: 1},   // 5: magenta
		{Red: 0, Green: 0.8, Blue: 0.8, Alpha: 1},   // 6: cyan
		{Red: 0.8, Green: 0.8, Blue: 0.8, Alpha: 1}, // 7: white

		{Red: 0.2, Green: 0.2, Blue: 0.2, Alpha: 1}, // 8: bright black
		{Red: 1, Green: 0, Blue: 0, Alpha: 1},       // 9: bright red
		{Red: 0, Green: 1, Blue: 0, Alpha: 1},       // 10: bright green
		{Red: 1, Green: 1, Blue: 0, Alpha: 1},       // 11: bright yellow
		{Red: 0.4, Green: 0.4, Blue: 1, Alpha: 1},   // 12: bright blue
		{Red: 1, Green: 0, Blue: 1, Alpha: 1},       // 13: bright magenta
		{Red: 0, Green: 1, Blue: 1, Alpha: 1},       // 14: bright cyan
		{Red: 1, Green: 1, Blue: 1, Alpha: 1},       // 15: bright white
	}
	return approxColors[index]
}
