package syntax

// Inspect traverses the subtree rooted at n in source order. If fn returns
// false the children of that node are skipped.
func Inspect(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		Inspect(c, fn)
	}
}

// Find returns every node in the subtree with one of the given types.
func Find(n *Node, types ...string) []*Node {
	var out []*Node
	Inspect(n, func(c *Node) bool {
		for _, t := range types {
			if c.Type == t {
				out = append(out, c)
				break
			}
		}
		return true
	})
	return out
}

// Contains reports whether inner is n or a descendant of n.
func (n *Node) Contains(inner *Node) bool {
	for cur := inner; cur != nil; cur = cur.Parent {
		if cur == n {
			return true
		}
	}
	return false
}

// Index returns the position of n among its parent's children, or -1.
func (n *Node) Index() int {
	if n == nil || n.Parent == nil {
		return -1
	}
	for i, c := range n.Parent.Children {
		if c == n {
			return i
		}
	}
	return -1
}

// IsFunctionLike reports whether n introduces a callable body.
func (n *Node) IsFunctionLike() bool {
	switch n.Type {
	case "function_declaration", "generator_function_declaration",
		"function", "function_expression", "generator_function",
		"arrow_function", "method_definition":
		return true
	}
	return false
}

// IsBlockLike reports whether n holds a statement list.
func (n *Node) IsBlockLike() bool {
	switch n.Type {
	case "statement_block", "program", "switch_case", "switch_default", "class_static_block":
		return true
	}
	return false
}

// Callee returns the identifier name of a call_expression's callee, or "".
func (t *Tree) Callee(call *Node) string {
	fn := call.Child("function")
	if fn == nil || fn.Type != "identifier" {
		return ""
	}
	return t.Text(fn)
}

// StripParens unwraps parenthesized expressions.
func StripParens(n *Node) *Node {
	for n != nil && n.Type == "parenthesized_expression" {
		inner := n.FirstNamed()
		if inner == nil {
			return n
		}
		n = inner
	}
	return n
}
