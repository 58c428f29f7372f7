package sketch

import (
	"strings"

	"sketchscan/internal/syntax"
)

// Kind tags the declaration shape of a callable.
type Kind string

const (
	KindFunction Kind = "function"
	KindMethod   Kind = "method"
	KindArrow    Kind = "arrow"
)

// Callable is a function-like declaration: a plain function, a class or
// object-literal method, or an arrow function.
type Callable struct {
	Kind      Kind
	Node      *syntax.Node // the function-like node itself
	Name      string       // "" for anonymous callables
	Class     string       // owning class or constructor function, if any
	ClassNode *syntax.Node
}

// Body returns the callable's body node.
func (c *Callable) Body() *syntax.Node {
	if c == nil {
		return nil
	}
	return c.Node.Child("body")
}

// IsMethod reports whether the callable is invoked through an instance.
func (c *Callable) IsMethod() bool {
	return c != nil && (c.Kind == KindMethod || c.Class != "")
}

// EnclosingCallable walks parents from n to the nearest function-like node.
// It returns nil when n sits at the top level of the script.
func EnclosingCallable(t *syntax.Tree, n *syntax.Node) *Callable {
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		if cur.IsFunctionLike() {
			return Describe(t, cur)
		}
	}
	return nil
}

// NamedEnclosing returns the nearest enclosing callable that has a name.
// Anonymous callbacks are transparent, so the arrow in
// `this.pts.forEach(p => rect(p.x, p.y, 1, 1))` resolves to the method
// around it.
func NamedEnclosing(t *syntax.Tree, n *syntax.Node) *Callable {
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		if !cur.IsFunctionLike() {
			continue
		}
		if c := Describe(t, cur); c.Name != "" {
			return c
		}
	}
	return nil
}

// Describe names a function-like node and resolves its owning class.
func Describe(t *syntax.Tree, fn *syntax.Node) *Callable {
	c := &Callable{Node: fn, Kind: KindFunction}
	if fn.Type == "arrow_function" {
		c.Kind = KindArrow
	}

	switch fn.Type {
	case "function_declaration", "generator_function_declaration":
		c.Name = t.Text(fn.Child("name"))
		return c
	case "method_definition":
		c.Kind = KindMethod
		c.Name = t.Text(fn.Child("name"))
		if body := fn.Parent; body != nil && body.Type == "class_body" {
			c.ClassNode = body.Parent
			c.Class = className(t, body.Parent)
		}
		return c
	}

	if name := t.Text(fn.Child("name")); name != "" {
		c.Name = name
	}

	parent := fn.Parent
	switch {
	case parent == nil:
	case parent.Type == "variable_declarator":
		c.Name = t.Text(parent.Child("name"))
	case parent.Type == "pair":
		c.Kind = KindMethod
		c.Name = strings.Trim(t.Text(parent.Child("key")), `"'`)
	case parent.Type == "assignment_expression":
		describeAssigned(t, c, parent.Child("left"))
	}
	return c
}

// describeAssigned handles `name = function`, `this.name = function` inside a
// constructor function and `Class.prototype.name = function`.
func describeAssigned(t *syntax.Tree, c *Callable, left *syntax.Node) {
	switch left.Type {
	case "identifier":
		c.Name = t.Text(left)
	case "member_expression":
		c.Name = t.Text(left.Child("property"))
		obj := left.Child("object")
		switch {
		case obj.Type == "this":
			if owner := enclosingConstructor(t, left); owner != nil {
				c.Class = t.Text(owner.Child("name"))
				c.ClassNode = owner
			}
		case obj.Type == "member_expression" && t.Text(obj.Child("property")) == "prototype":
			c.Class = t.Text(obj.Child("object"))
			c.ClassNode = findDeclaration(t, c.Class)
		}
	}
}

func enclosingConstructor(t *syntax.Tree, n *syntax.Node) *syntax.Node {
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		switch cur.Type {
		case "function_declaration":
			name := t.Text(cur.Child("name"))
			if name != "" && isUpper(name[0]) {
				return cur
			}
			return nil
		case "method_definition", "arrow_function":
			return nil
		}
	}
	return nil
}

func findDeclaration(t *syntax.Tree, name string) *syntax.Node {
	for _, n := range syntax.Find(t.Root, "function_declaration", "class_declaration") {
		if t.Text(n.Child("name")) == name {
			return n
		}
	}
	return nil
}

func className(t *syntax.Tree, class *syntax.Node) string {
	if class == nil {
		return ""
	}
	if name := class.Child("name"); name != nil {
		return t.Text(name)
	}
	if p := class.Parent; p != nil && p.Type == "variable_declarator" {
		return t.Text(p.Child("name"))
	}
	return ""
}

func isUpper(b byte) bool {
	return b >= 'A' && b <= 'Z'
}
