package syntax

import "strings"

// commutative operators whose operands are ordered when building a canonical key.
var commutative = map[string]bool{
	"&&": true, "||": true,
	"==": true, "!=": true, "===": true, "!==": true,
}

// Canonical renders an expression in a whitespace- and operand-order-independent
// form, so that `a&&b`, `a && b` and `b && a` share one key.
func (t *Tree) Canonical(n *Node) string {
	return t.canon(StripParens(n))
}

func (t *Tree) canon(n *Node) string {
	if n == nil {
		return ""
	}
	switch n.Type {
	case "string", "template_string", "regex", "number", "identifier",
		"property_identifier", "private_property_identifier", "this", "true", "false", "null", "undefined":
		return t.Text(n)
	case "comment":
		return ""
	case "parenthesized_expression":
		return "(" + t.canon(n.FirstNamed()) + ")"
	case "binary_expression":
		left := t.canon(n.Child("left"))
		right := t.canon(n.Child("right"))
		op := t.Text(n.Child("operator"))
		if commutative[op] && right < left {
			left, right = right, left
		}
		return left + " " + op + " " + right
	case "unary_expression":
		op := t.Text(n.Child("operator"))
		arg := t.canon(n.Child("argument"))
		if op == "typeof" || op == "void" || op == "delete" {
			return op + " " + arg
		}
		return op + arg
	case "member_expression":
		return t.canon(n.Child("object")) + "." + t.canon(n.Child("property"))
	case "subscript_expression":
		return t.canon(n.Child("object")) + "[" + t.canon(n.Child("index")) + "]"
	case "call_expression":
		return t.canon(n.Child("function")) + t.canon(n.Child("arguments"))
	case "arguments":
		parts := make([]string, 0, len(n.Children))
		for _, c := range n.NamedChildren() {
			parts = append(parts, t.canon(c))
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}

	if len(n.Children) == 0 {
		return t.Text(n)
	}
	parts := make([]string, 0, len(n.Children))
	for _, c := range n.Children {
		if s := t.canon(c); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
