package syntax

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// Node is a script syntax node with a back-reference to its parent.
// All nodes of a Tree are owned by that tree; nothing outside the analysis
// run that built it keeps references to them.
type Node struct {
	Type     string
	Field    string // field name in the parent, e.g. "condition", "consequence"
	Named    bool
	Start    int // byte offset, inclusive
	End      int // byte offset, exclusive
	Line     int // 1-based
	Column   int // 1-based
	Parent   *Node
	Children []*Node
}

// Tree is an augmented syntax tree together with the source it was built from.
type Tree struct {
	Source []byte
	Root   *Node
}

// ParseError reports a script that failed to parse.
type ParseError struct {
	Line    int
	Column  int
	Snippet string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("syntax error at line %d, column %d near %q", e.Line, e.Column, e.Snippet)
}

// knownFields lists the javascript grammar fields the analyzers navigate by.
var knownFields = []string{
	"name", "body", "parameters", "parameter", "condition", "consequence", "alternative",
	"function", "arguments", "constructor", "object", "property", "index", "left", "right",
	"value", "key", "operator", "argument", "initializer", "increment", "label",
}

// Parse parses script text and returns the tree with parent links set.
func Parse(ctx context.Context, src []byte) (*Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(javascript.GetLanguage())
	tsTree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}

	tsRoot := tsTree.RootNode()
	if tsRoot.HasError() {
		return nil, locateError(tsRoot, src)
	}

	return &Tree{Source: src, Root: convert(tsRoot, nil, "")}, nil
}

// MustParse is Parse for sources known to be valid; it panics otherwise.
func MustParse(src string) *Tree {
	t, err := Parse(context.Background(), []byte(src))
	if err != nil {
		panic(err)
	}
	return t
}

func convert(n *sitter.Node, parent *Node, field string) *Node {
	start := n.StartPoint()
	node := &Node{
		Type:   n.Type(),
		Field:  field,
		Named:  n.IsNamed(),
		Start:  int(n.StartByte()),
		End:    int(n.EndByte()),
		Line:   int(start.Row) + 1,
		Column: int(start.Column) + 1,
		Parent: parent,
	}

	count := int(n.ChildCount())
	if count == 0 {
		return node
	}

	fields := childFields(n)
	node.Children = make([]*Node, 0, count)
	for i := 0; i < count; i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		node.Children = append(node.Children, convert(child, node, fields[span{child.StartByte(), child.EndByte(), child.Type()}]))
	}
	return node
}

type span struct {
	start, end uint32
	typ        string
}

func childFields(n *sitter.Node) map[span]string {
	fields := make(map[span]string)
	for _, name := range knownFields {
		child := n.ChildByFieldName(name)
		if child == nil {
			continue
		}
		key := span{child.StartByte(), child.EndByte(), child.Type()}
		if _, taken := fields[key]; !taken {
			fields[key] = name
		}
	}
	return fields
}

func locateError(root *sitter.Node, src []byte) *ParseError {
	var found *sitter.Node
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if found != nil {
			return
		}
		if n.Type() == "ERROR" || n.IsMissing() {
			found = n
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if c := n.Child(i); c != nil && (c.HasError() || c.IsMissing()) {
				visit(c)
			}
		}
	}
	visit(root)

	if found == nil {
		found = root
	}
	p := found.StartPoint()
	snippet := found.Content(src)
	if i := strings.IndexByte(snippet, '\n'); i >= 0 {
		snippet = snippet[:i]
	}
	if len(snippet) > 40 {
		snippet = snippet[:40]
	}
	return &ParseError{Line: int(p.Row) + 1, Column: int(p.Column) + 1, Snippet: snippet}
}

// Text returns the source text covered by n.
func (t *Tree) Text(n *Node) string {
	if n == nil {
		return ""
	}
	return string(t.Source[n.Start:n.End])
}

// Child returns the first child attached under the given field name.
func (n *Node) Child(field string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Field == field {
			return c
		}
	}
	return nil
}

// NamedChildren returns the named children of n, skipping comments.
func (n *Node) NamedChildren() []*Node {
	if n == nil {
		return nil
	}
	out := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		if c.Named && c.Type != "comment" {
			out = append(out, c)
		}
	}
	return out
}

// FirstNamed returns the first named non-comment child.
func (n *Node) FirstNamed() *Node {
	if named := n.NamedChildren(); len(named) > 0 {
		return named[0]
	}
	return nil
}

// Token returns the first anonymous child with the given type, e.g. "else" or "of".
func (n *Node) Token(typ string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if !c.Named && c.Type == typ {
			return c
		}
	}
	return nil
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s@%d:%d", n.Type, n.Line, n.Column)
}
