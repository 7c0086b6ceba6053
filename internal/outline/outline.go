package outline

import (
	"cmp"
	"slices"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/matkrin/tagd/internal/ast"
	"github.com/matkrin/tagd/internal/tagging"
	"github.com/matkrin/tagd/internal/text"
)

const (
	kindMember      = "member"
	kindConditional = "conditional"
	kindLoop        = "loop"
	kindStatement   = "statement"
	kindExpression  = "expression"
	kindComment     = "comment"
	kindRegion      = "preprocessor_region"
	kindImports     = "imports"
)

type Options struct {
	// CollapseRegions marks `# region` blocks as collapsed by default.
	CollapseRegions bool
}

// Blocks computes the collapsible blocks of a parsed script. Offsets are
// taken from the parser and measured against snap, which must hold the text
// doc was parsed from. Single-line constructs produce no block.
func Blocks(doc *ast.Ast, snap text.Snapshot, opts Options) []tagging.BlockSpan {
	if doc == nil || doc.File == nil || snap == nil {
		return nil
	}

	c := &collector{
		snap:   snap,
		opts:   opts,
		bodies: map[syntax.Command]bool{},
		elses:  map[*syntax.IfClause]bool{},
	}
	syntax.Walk(doc.File, c.visit)
	c.commentBlocks()

	slices.SortStableFunc(c.blocks, func(a, b tagging.BlockSpan) int {
		return cmp.Or(
			cmp.Compare(a.HintSpan.Start, b.HintSpan.Start),
			cmp.Compare(b.HintSpan.End(), a.HintSpan.End()),
		)
	})
	return c.blocks
}

type collector struct {
	snap     text.Snapshot
	opts     Options
	blocks   []tagging.BlockSpan
	comments []syntax.Comment
	// function bodies fold with their declaration
	bodies map[syntax.Command]bool
	// elif and else branches fold with the root if
	elses map[*syntax.IfClause]bool
}

func (c *collector) visit(node syntax.Node) bool {
	switch n := node.(type) {
	case *syntax.Comment:
		c.comments = append(c.comments, *n)
	case *syntax.File:
		c.imports(n.Stmts)
	case *syntax.FuncDecl:
		if n.Body != nil && n.Body.Cmd != nil {
			c.bodies[n.Body.Cmd] = true
		}
		name := ast.ExtractIdentifier(n)
		c.add(n, block{kind: kindMember, banner: name + "() {...}", autoCollapse: true})
	case *syntax.IfClause:
		if n.Else != nil {
			c.elses[n.Else] = true
		}
		if !c.elses[n] {
			c.add(n, block{kind: kindConditional, banner: "if ..."})
		}
		c.imports(n.Then)
	case *syntax.CaseClause:
		c.add(n, block{kind: kindConditional, banner: "case ..."})
	case *syntax.CaseItem:
		c.imports(n.Stmts)
	case *syntax.ForClause:
		banner := "for ..."
		if n.Select {
			banner = "select ..."
		}
		c.add(n, block{kind: kindLoop, banner: banner})
		c.imports(n.Do)
	case *syntax.WhileClause:
		banner := "while ..."
		if n.Until {
			banner = "until ..."
		}
		c.add(n, block{kind: kindLoop, banner: banner})
		c.imports(n.Do)
	case *syntax.Block:
		if !c.bodies[n] {
			c.add(n, block{kind: kindStatement, banner: "{...}"})
		}
		c.imports(n.Stmts)
	case *syntax.Subshell:
		if !c.bodies[n] {
			c.add(n, block{kind: kindStatement, banner: "(...)"})
		}
		c.imports(n.Stmts)
	case *syntax.ArithmCmd:
		c.add(n, block{kind: kindExpression, banner: "((...))"})
	case *syntax.CmdSubst:
		banner := "$(...)"
		if n.Backquotes {
			banner = "`...`"
		}
		c.add(n, block{kind: kindExpression, banner: banner})
		c.imports(n.Stmts)
	}
	return true
}

type block struct {
	kind             string
	banner           string
	autoCollapse     bool
	defaultCollapsed bool
}

func (c *collector) add(node syntax.Node, b block) {
	start, end, ok := nodeBounds(node)
	if !ok {
		return
	}
	c.addRange(start, end, b)
}

// addRange records a block covering [start, end). The header is the rest of
// the line start is on; the outlined text runs from the end of that line.
func (c *collector) addRange(start, end int, b block) {
	if start < 0 || end > c.snap.Length() || end <= start {
		return
	}
	header, err := c.snap.LineExtent(start)
	if err != nil || header.End() >= end {
		return
	}

	c.blocks = append(c.blocks, tagging.BlockSpan{
		Kind:               b.kind,
		IsCollapsible:      true,
		IsDefaultCollapsed: b.defaultCollapsed,
		AutoCollapse:       b.autoCollapse,
		TextSpan:           text.SpanFromBounds(header.End(), end),
		HintSpan:           text.SpanFromBounds(start, end),
		BannerText:         b.banner,
	})
}

func nodeBounds(node syntax.Node) (int, int, bool) {
	pos, end := node.Pos(), node.End()
	if !pos.IsValid() || !end.IsValid() {
		return 0, 0, false
	}
	return ast.Offset(pos), ast.Offset(end), true
}

// imports folds runs of two or more adjacent source statements.
func (c *collector) imports(stmts []*syntax.Stmt) {
	var run []*syntax.Stmt
	flush := func() {
		if len(run) >= 2 {
			start, _, okStart := nodeBounds(run[0])
			_, end, okEnd := nodeBounds(run[len(run)-1])
			if okStart && okEnd {
				c.addRange(start, end, block{kind: kindImports, banner: "source ..."})
			}
		}
		run = run[:0]
	}

	for _, stmt := range stmts {
		if !isSource(stmt) {
			flush()
			continue
		}
		if len(run) > 0 && stmt.Pos().Line() != run[len(run)-1].End().Line()+1 {
			flush()
		}
		run = append(run, stmt)
	}
	flush()
}

func isSource(stmt *syntax.Stmt) bool {
	call, ok := stmt.Cmd.(*syntax.CallExpr)
	if !ok {
		return false
	}
	name := ast.CommandName(call)
	return name == "source" || name == "."
}

// commentBlocks folds runs of full-line comments and `# region` pairs.
func (c *collector) commentBlocks() {
	slices.SortFunc(c.comments, func(a, b syntax.Comment) int {
		return cmp.Compare(a.Hash.Offset(), b.Hash.Offset())
	})
	c.comments = slices.CompactFunc(c.comments, func(a, b syntax.Comment) bool {
		return a.Hash == b.Hash
	})

	var run []syntax.Comment
	var regions []syntax.Comment
	flush := func() {
		if len(run) >= 2 {
			first, last := run[0], run[len(run)-1]
			c.addRange(ast.Offset(first.Hash), ast.Offset(last.End()), block{
				kind:   kindComment,
				banner: "#" + first.Text,
			})
		}
		run = run[:0]
	}

	for _, comment := range c.comments {
		if !comment.Hash.IsValid() || !c.fullLine(comment) {
			flush()
			continue
		}

		marker := strings.TrimSpace(comment.Text)
		switch {
		case isMarker(marker, "region"):
			flush()
			regions = append(regions, comment)
			continue
		case isMarker(marker, "endregion"):
			flush()
			if len(regions) == 0 {
				continue
			}
			open := regions[len(regions)-1]
			regions = regions[:len(regions)-1]
			banner := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(open.Text), "region"))
			if banner == "" {
				banner = "region"
			}
			c.addRange(ast.Offset(open.Hash), ast.Offset(comment.End()), block{
				kind:             kindRegion,
				banner:           banner,
				defaultCollapsed: c.opts.CollapseRegions,
			})
			continue
		}

		if len(run) > 0 && comment.Hash.Line() != run[len(run)-1].Hash.Line()+1 {
			flush()
		}
		run = append(run, comment)
	}
	flush()
}

func isMarker(comment, marker string) bool {
	rest, ok := strings.CutPrefix(comment, marker)
	return ok && (rest == "" || rest[0] == ' ' || rest[0] == '\t')
}

// fullLine reports whether nothing but whitespace precedes the comment on
// its line.
func (c *collector) fullLine(comment syntax.Comment) bool {
	offset := ast.Offset(comment.Hash)
	line, err := c.snap.LineExtent(offset)
	if err != nil {
		return false
	}
	return text.TrimLeadingSpace(c.snap, line).Start == offset
}
