package classify

import (
	"sort"

	"sketchscan/internal/registry"
	"sketchscan/internal/syntax"
)

// Requirements are the support-library switches derived from a script.
type Requirements struct {
	Transform bool            `json:"transform"`
	Color     bool            `json:"color"`
	Math      bool            `json:"math"`
	Shape     map[string]bool `json:"shape"` // every registry base type, false until used
}

// DependencySet is the minimal set of drawing API modules a script uses.
type DependencySet struct {
	Shapes      map[string]bool `json:"shapes"`
	Transforms  map[string]bool `json:"transforms"`
	Colors      map[string]bool `json:"colors"`
	Math        map[string]bool `json:"math"`
	Environment map[string]bool `json:"environment"`
	Controllers map[string]bool `json:"controllers"`
	Requires    Requirements    `json:"requires"`
}

// NewDependencySet returns an empty set with one false shape requirement per
// base type of reg.
func NewDependencySet(reg *registry.Registry) *DependencySet {
	d := &DependencySet{
		Shapes:      make(map[string]bool),
		Transforms:  make(map[string]bool),
		Colors:      make(map[string]bool),
		Math:        make(map[string]bool),
		Environment: make(map[string]bool),
		Controllers: make(map[string]bool),
		Requires:    Requirements{Shape: make(map[string]bool)},
	}
	for _, base := range reg.BaseTypes() {
		d.Requires.Shape[base] = false
	}
	return d
}

// Category returns the flag map for one registry category.
func (d *DependencySet) Category(cat registry.Category) map[string]bool {
	switch cat {
	case registry.Shapes:
		return d.Shapes
	case registry.Transforms:
		return d.Transforms
	case registry.Colors:
		return d.Colors
	case registry.Math:
		return d.Math
	case registry.Environment:
		return d.Environment
	case registry.Controllers:
		return d.Controllers
	}
	return nil
}

// List returns the names set in one category, sorted.
func (d *DependencySet) List(cat registry.Category) []string {
	var out []string
	for name, on := range d.Category(cat) {
		if on {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// RequiredShapes returns the base types flipped to true, sorted.
func (d *DependencySet) RequiredShapes() []string {
	var out []string
	for base, on := range d.Requires.Shape {
		if on {
			out = append(out, base)
		}
	}
	sort.Strings(out)
	return out
}

func (d *DependencySet) mark(e registry.Entry) {
	flags := d.Category(e.Category)
	if flags == nil {
		return
	}
	flags[e.Canonical] = true

	switch e.Category {
	case registry.Shapes:
		if _, known := d.Requires.Shape[e.BaseType]; known {
			d.Requires.Shape[e.BaseType] = true
		}
	case registry.Transforms:
		d.Requires.Transform = true
	case registry.Colors:
		d.Requires.Color = true
	case registry.Math:
		d.Requires.Math = true
	}
}

// Classify walks the whole tree once and matches every call, free identifier
// and namespace reference against reg. Names the registry does not know are
// skipped.
func Classify(t *syntax.Tree, reg *registry.Registry) *DependencySet {
	d := NewDependencySet(reg)
	syntax.Inspect(t.Root, func(n *syntax.Node) bool {
		switch n.Type {
		case "call_expression":
			if name := t.Callee(n); name != "" {
				if e, ok := reg.ResolveCall(name); ok {
					d.mark(e)
				}
			}
		case "identifier":
			if isCallee(n) || isDeclaration(n) {
				return true
			}
			if e, ok := reg.ResolveSymbol(t.Text(n)); ok {
				d.mark(e)
			}
		case "member_expression":
			if e, ok := reg.ResolveNamespace(t.Canonical(n)); ok {
				d.mark(e)
			}
		case "new_expression":
			ctor := n.Child("constructor")
			if ctor != nil && ctor.Type == "identifier" {
				if e, ok := reg.ResolveNamespace(t.Text(ctor)); ok {
					d.mark(e)
				}
			}
		}
		return true
	})
	return d
}

func isCallee(n *syntax.Node) bool {
	return n.Field == "function" && n.Parent != nil && n.Parent.Type == "call_expression"
}

// isDeclaration reports whether an identifier introduces a binding rather than
// reading one, e.g. `let width = 10` or a parameter named `height`.
func isDeclaration(n *syntax.Node) bool {
	p := n.Parent
	if p == nil {
		return false
	}
	switch p.Type {
	case "variable_declarator", "function_declaration", "function_expression", "function",
		"class_declaration", "class":
		return n.Field == "name"
	case "formal_parameters":
		return true
	case "arrow_function":
		return n.Field == "parameter"
	}
	return false
}
