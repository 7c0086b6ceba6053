// Command tagdump prints the structure blocks and inline hints tagd computes
// for a script, or the parsed syntax tree with --ast.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"mvdan.cc/sh/v3/syntax"

	"github.com/matkrin/tagd/internal/ast"
	"github.com/matkrin/tagd/internal/inlay"
	"github.com/matkrin/tagd/internal/outline"
	"github.com/matkrin/tagd/internal/text"
)

func main() {
	printAst := pflag.Bool("ast", false, "print the syntax tree instead of the tags")
	fallible := pflag.Bool("recover", false, "recover from syntax errors")
	pflag.Parse()

	name := "stdin"
	var data []byte
	var err error
	if pflag.NArg() == 0 {
		data, err = io.ReadAll(os.Stdin)
	} else {
		name = pflag.Arg(0)
		data, err = os.ReadFile(name)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Cannot read script: %v\n", err)
		os.Exit(1)
	}
	script := string(data)

	doc, err := ast.ParseDocument(script, name, *fallible)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: Cannot parse script: %v\n", err)
		os.Exit(1)
	}

	if *printAst {
		syntax.DebugPrint(os.Stdout, doc.File)
		return
	}

	snapshot := text.NewBuffer(name, script).Current()
	for _, block := range outline.Blocks(doc, snapshot, outline.Options{}) {
		fmt.Printf("%-20s %-12s %s\n", block.Kind, block.HintSpan, block.BannerText)
	}
	for _, hint := range inlay.Hints(doc, snapshot, inlay.DefaultOptions()) {
		var label strings.Builder
		for _, part := range hint.DisplayParts {
			label.WriteString(part.Text)
		}
		fmt.Printf("%-20s %-12s %s\n", "hint", hint.Span, label.String())
	}
}
