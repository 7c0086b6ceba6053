package ast

import (
	"strconv"

	"mvdan.cc/sh/v3/syntax"
)

// FuncDecls returns all function declarations in source order.
func (a *Ast) FuncDecls() []*syntax.FuncDecl {
	var funcs []*syntax.FuncDecl
	syntax.Walk(a.File, func(node syntax.Node) bool {
		if fn, ok := node.(*syntax.FuncDecl); ok && fn.Name != nil {
			funcs = append(funcs, fn)
		}
		return true
	})
	return funcs
}

// Calls returns all simple commands with a command word.
func (a *Ast) Calls() []*syntax.CallExpr {
	var calls []*syntax.CallExpr
	syntax.Walk(a.File, func(node syntax.Node) bool {
		if call, ok := node.(*syntax.CallExpr); ok && len(call.Args) > 0 {
			calls = append(calls, call)
		}
		return true
	})
	return calls
}

// PositionalParams finds the names a function gives its positional
// parameters, e.g. `local name=$1` or `target="${2}"`. The first binding of
// each position wins. Nested functions are not searched.
func PositionalParams(fn *syntax.FuncDecl) map[int]string {
	params := map[int]string{}
	if fn == nil || fn.Body == nil {
		return params
	}

	bind := func(assign *syntax.Assign) {
		if assign == nil || assign.Name == nil || assign.Value == nil {
			return
		}
		position, ok := positionalIndex(assign.Value)
		if !ok {
			return
		}
		if _, seen := params[position]; !seen {
			params[position] = assign.Name.Value
		}
	}

	syntax.Walk(fn.Body, func(node syntax.Node) bool {
		switch n := node.(type) {
		case *syntax.FuncDecl:
			return false
		// `local`, `declare`, `typeset`, `readonly`, `export`
		case *syntax.DeclClause:
			for _, assign := range n.Args {
				bind(assign)
			}
			return false
		// Plain assignments
		case *syntax.CallExpr:
			if len(n.Args) == 0 {
				for _, assign := range n.Assigns {
					bind(assign)
				}
			}
		}
		return true
	})

	return params
}

// FunctionParams maps function names to their named positional parameters.
// Functions that name none are left out.
func (a *Ast) FunctionParams() map[string]map[int]string {
	functions := map[string]map[int]string{}
	for _, fn := range a.FuncDecls() {
		params := PositionalParams(fn)
		if len(params) == 0 {
			continue
		}
		functions[fn.Name.Value] = params
	}
	return functions
}

func positionalIndex(word *syntax.Word) (int, bool) {
	if word == nil || len(word.Parts) != 1 {
		return 0, false
	}
	part := word.Parts[0]
	if quoted, ok := part.(*syntax.DblQuoted); ok {
		if len(quoted.Parts) != 1 {
			return 0, false
		}
		part = quoted.Parts[0]
	}
	param, ok := part.(*syntax.ParamExp)
	if !ok || param.Param == nil || param.Length || param.Excl || param.Index != nil {
		return 0, false
	}
	position, err := strconv.Atoi(param.Param.Value)
	if err != nil || position < 1 {
		return 0, false
	}
	return position, true
}
