package ast

import (
	"strings"

	"fortio.org/safecast"
	"mvdan.cc/sh/v3/syntax"
)

type Ast struct {
	File *syntax.File
}

// ParseDocument parses a bash script. A fallible parse recovers from syntax
// errors so the engines still see the parts of a script being edited.
func ParseDocument(documentText, documentName string, fallible bool) (*Ast, error) {
	reader := strings.NewReader(documentText)
	var parser *syntax.Parser
	if fallible {
		parser = syntax.NewParser(syntax.KeepComments(true), syntax.RecoverErrors(9999))
	} else {
		parser = syntax.NewParser(syntax.KeepComments(true))
	}
	file, err := parser.Parse(reader, documentName)
	if err != nil {
		return nil, err
	}
	return &Ast{File: file}, nil
}

// Offset converts a parser position to a byte offset.
func Offset(pos syntax.Pos) int {
	offset, err := safecast.Conv[int](pos.Offset())
	if err != nil {
		return 0
	}
	return offset
}

func ExtractIdentifier(node syntax.Node) string {
	switch n := node.(type) {
	case *syntax.Lit:
		return n.Value
	case *syntax.ParamExp:
		if n.Param != nil {
			return n.Param.Value
		}
	case *syntax.Word:
		if len(n.Parts) == 1 {
			switch p := n.Parts[0].(type) {
			case *syntax.Lit:
				return p.Value
			}
		}
	case *syntax.Assign:
		if n.Name != nil {
			return n.Name.Value
		}
	case *syntax.FuncDecl:
		if n.Name != nil {
			return n.Name.Value
		}
	}
	return ""
}

// CommandName returns the literal command name of a simple command.
func CommandName(call *syntax.CallExpr) string {
	if call == nil || len(call.Args) == 0 {
		return ""
	}
	return ExtractIdentifier(call.Args[0])
}
