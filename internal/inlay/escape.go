package inlay

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/matkrin/tagd/internal/text"
)

var ansiRegex = regexp.MustCompile(`(\\e|\\033|\\x1b|\\u001b|\x1b)\[[0-9;]*m`)

// Escape is one SGR escape sequence found in a script.
type Escape struct {
	Span text.Span
	Raw  string
	// Params are the numeric SGR parameters; an empty parameter reads as 0.
	Params []int
}

// Textual reports whether the escape is spelled out in the source rather
// than written as a raw ESC byte.
func (e Escape) Textual() bool {
	return !strings.HasPrefix(e.Raw, "\x1b")
}

// Canonical renders the escape in `\e[Nm` form.
func (e Escape) Canonical() string {
	codes := make([]string, len(e.Params))
	for i, param := range e.Params {
		codes[i] = strconv.Itoa(param)
	}
	return `\e[` + strings.Join(codes, ";") + "m"
}

// Label names the attributes the escape sets, e.g. "bold, red fg".
func (e Escape) Label() string {
	return describeSGR(e.Params)
}

// FindEscapes returns every SGR escape in content, in order.
func FindEscapes(content string) []Escape {
	var escapes []Escape
	for _, match := range ansiRegex.FindAllStringIndex(content, -1) {
		raw := content[match[0]:match[1]]
		escapes = append(escapes, Escape{
			Span:   text.SpanFromBounds(match[0], match[1]),
			Raw:    raw,
			Params: parseSGR(normalizeEscape(raw)),
		})
	}
	return escapes
}

// Transform different escape notations to \x1b format
func normalizeEscape(raw string) string {
	raw = strings.ReplaceAll(raw, `\e`, "\x1b")
	raw = strings.ReplaceAll(raw, `\033`, "\x1b")
	raw = strings.ReplaceAll(raw, `\x1b`, "\x1b")
	raw = strings.ReplaceAll(raw, `\u001b`, "\x1b")
	return raw
}

func parseSGR(normalized string) []int {
	code := strings.TrimSuffix(strings.TrimPrefix(normalized, "\x1b["), "m")
	if code == "" {
		return []int{0}
	}
	parts := strings.Split(code, ";")
	params := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			n = 0
		}
		params[i] = n
	}
	return params
}

func describeSGR(params []int) string {
	var labels []string
	for i := 0; i < len(params); i++ {
		n := params[i]
		// extended colors: 38;5;<n>, 48;5;<n>, 38;2;<r>;<g>;<b>, 48;2;<r>;<g>;<b>
		if (n == 38 || n == 48) && i+1 < len(params) {
			layer := "fg"
			if n == 48 {
				layer = "bg"
			}
			switch {
			case params[i+1] == 5 && i+2 < len(params):
				labels = append(labels, "color "+strconv.Itoa(params[i+2])+" "+layer)
				i += 2
				continue
			case params[i+1] == 2 && i+4 < len(params):
				rgb := strconv.Itoa(params[i+2]) + "," + strconv.Itoa(params[i+3]) + "," + strconv.Itoa(params[i+4])
				labels = append(labels, "rgb("+rgb+") "+layer)
				i += 4
				continue
			}
		}
		if label, ok := sgrTable[n]; ok {
			labels = append(labels, label)
		}
	}
	return strings.Join(labels, ", ")
}

var sgrTable = map[int]string{
	0:   "reset",
	1:   "bold",
	2:   "dim",
	3:   "italic",
	4:   "underline",
	5:   "slow blink",
	6:   "rapid blink",
	7:   "invert",
	8:   "hide",
	9:   "strike",
	10:  "primary font",
	20:  "fraktur",
	21:  "doubly underline",
	22:  "normal intensity",
	23:  "no italic",
	24:  "not underline",
	25:  "not blinking",
	26:  "proportional spacing",
	27:  "not reversed",
	28:  "reveal",
	29:  "not crossed out",
	30:  "black fg",
	31:  "red fg",
	32:  "green fg",
	33:  "yellow fg",
	34:  "blue fg",
	35:  "magenta fg",
	36:  "cyan fg",
	37:  "white fg",
	39:  "default fg",
	40:  "black bg",
	41:  "red bg",
	42:  "green bg",
	43:  "yellow bg",
	44:  "blue bg",
	45:  "magenta bg",
	46:  "cyan bg",
	47:  "white bg",
	49:  "default bg",
	51:  "framed",
	52:  "encircled",
	53:  "overlined",
	58:  "underline color",
	90:  "black bright fg",
	91:  "red bright fg",
	92:  "green bright fg",
	93:  "yellow bright fg",
	94:  "blue bright fg",
	95:  "magenta bright fg",
	96:  "cyan bright fg",
	97:  "white bright fg",
	100: "black bright bg",
	101: "red bright bg",
	102: "green bright bg",
	103: "yellow bright bg",
	104: "blue bright bg",
	105: "magenta bright bg",
	106: "cyan bright bg",
	107: "white bright bg",
}
