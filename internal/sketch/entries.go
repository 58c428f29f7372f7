package sketch

import "sketchscan/internal/syntax"

// EntryNames names the two designated entry routines.
type EntryNames struct {
	Setup string `yaml:"setup" json:"setup" validate:"required"`
	Draw  string `yaml:"draw" json:"draw" validate:"required,nefield=Setup"`
}

// DefaultEntryNames returns the conventional setup/draw pair.
func DefaultEntryNames() EntryNames {
	return EntryNames{Setup: "setup", Draw: "draw"}
}

// Entries holds the isolated entry routines of a script. Either may be nil.
type Entries struct {
	Names EntryNames
	Setup *Callable
	Draw  *Callable
}

// Scopes returns the entry routines that were found, setup first.
func (e Entries) Scopes() []*Callable {
	var out []*Callable
	if e.Setup != nil {
		out = append(out, e.Setup)
	}
	if e.Draw != nil {
		out = append(out, e.Draw)
	}
	return out
}

// Contains reports whether n lies inside one of the entry routines.
func (e Entries) Contains(n *syntax.Node) bool {
	for _, c := range e.Scopes() {
		if c.Node.Contains(n) {
			return true
		}
	}
	return false
}

// Split locates the entry routines in a parsed script: top-level function
// declarations and bindings first, then global assignments such as
// `draw = function` or `window.draw = () => {}`. Instance-mode routines
// (`p.draw = ...` inside `new p5(...)`) are not entry routines: their drawing
// calls go through the instance and are invisible to the analysis.
func Split(t *syntax.Tree, names EntryNames) Entries {
	return Entries{
		Names: names,
		Setup: locate(t, names.Setup),
		Draw:  locate(t, names.Draw),
	}
}

func locate(t *syntax.Tree, name string) *Callable {
	if name == "" {
		return nil
	}

	for _, stmt := range t.Root.NamedChildren() {
		switch stmt.Type {
		case "function_declaration", "generator_function_declaration":
			if t.Text(stmt.Child("name")) == name {
				return Describe(t, stmt)
			}
		case "lexical_declaration", "variable_declaration":
			for _, decl := range stmt.NamedChildren() {
				if decl.Type != "variable_declarator" || t.Text(decl.Child("name")) != name {
					continue
				}
				if v := decl.Child("value"); v != nil && v.IsFunctionLike() {
					return Describe(t, v)
				}
			}
		}
	}

	var found *Callable
	syntax.Inspect(t.Root, func(n *syntax.Node) bool {
		if found != nil {
			return false
		}
		if n.Type != "assignment_expression" {
			return true
		}
		right := n.Child("right")
		if right == nil || !right.IsFunctionLike() {
			return true
		}
		left := n.Child("left")
		switch {
		case left.Type == "identifier" && t.Text(left) == name,
			left.Type == "member_expression" && isGlobalObject(t, left.Child("object")) && t.Text(left.Child("property")) == name:
			found = Describe(t, right)
			return false
		}
		return true
	})
	return found
}

func isGlobalObject(t *syntax.Tree, n *syntax.Node) bool {
	if n == nil || n.Type != "identifier" {
		return false
	}
	switch t.Text(n) {
	case "window", "globalThis", "self":
		return true
	}
	return false
}
