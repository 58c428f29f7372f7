package graph

import (
	"fmt"
	"sort"

	"sketchscan/internal/sketch"
	"sketchscan/internal/syntax"
)

type RelationKind string

const (
	RelationCalls        RelationKind = "calls"
	RelationInstantiates RelationKind = "instantiates"
	RelationBelongsTo    RelationKind = "belongs_to"
)

// ScriptID is the pseudo-declaration owning top-level statements.
const ScriptID = "<script>"

// Symbol is a declaration found in the script.
type Symbol struct {
	ID       string
	Name     string
	UnitType string // "function", "method", "class"
	Class    string
	Line     int
	Node     *syntax.Node
	Callable *sketch.Callable
}

// Edge represents a directed relationship between two declarations. Site is
// the call or new expression that produced it.
type Edge struct {
	From string
	To   string
	Kind RelationKind
	Site *syntax.Node
}

// Graph indexes the declarations of one script and how they reach each other.
type Graph struct {
	Nodes map[string]*Symbol
	Edges []Edge

	// Name -> []ID, for resolving call-site names to declarations.
	nameIndex map[string][]string
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes:     make(map[string]*Symbol),
		Edges:     []Edge{},
		nameIndex: make(map[string][]string),
	}
}

// Build indexes every class and named callable in the tree and links call and
// instantiation edges between them.
func Build(t *syntax.Tree) *Graph {
	g := NewGraph()
	g.AddSymbol(&Symbol{ID: ScriptID, Name: ScriptID, UnitType: "script", Node: t.Root})

	// 1. Declarations
	syntax.Inspect(t.Root, func(n *syntax.Node) bool {
		switch {
		case n.Type == "class_declaration" || n.Type == "class":
			if c := classSymbol(t, n); c != nil {
				g.AddSymbol(c)
			}
		case n.IsFunctionLike():
			c := sketch.Describe(t, n)
			if c.Name == "" {
				return true
			}
			s := &Symbol{Name: c.Name, UnitType: "function", Class: c.Class, Line: n.Line, Node: n, Callable: c}
			if c.IsMethod() {
				s.UnitType = "method"
			}
			s.ID = symbolID(s)
			g.AddSymbol(s)
		}
		return true
	})

	// 2. Relations
	syntax.Inspect(t.Root, func(n *syntax.Node) bool {
		switch n.Type {
		case "call_expression":
			g.linkCall(t, n)
		case "new_expression":
			name := t.Text(n.Child("constructor"))
			for _, id := range g.nameIndex[name] {
				if s := g.Nodes[id]; s.UnitType == "class" || (s.UnitType == "function" && s.Class == "") {
					g.Edges = append(g.Edges, Edge{From: g.ownerID(t, n), To: id, Kind: RelationInstantiates, Site: n})
				}
			}
		}
		return true
	})

	for id, s := range g.Nodes {
		if s.Class == "" {
			continue
		}
		if owner := g.Class(s.Class); owner != nil && owner.ID != id {
			g.Edges = append(g.Edges, Edge{From: id, To: owner.ID, Kind: RelationBelongsTo})
		}
	}
	return g
}

func (g *Graph) linkCall(t *syntax.Tree, call *syntax.Node) {
	fn := call.Child("function")
	if fn == nil {
		return
	}
	from := g.ownerID(t, call)

	switch fn.Type {
	case "identifier":
		for _, id := range g.nameIndex[t.Text(fn)] {
			if s := g.Nodes[id]; s.UnitType == "function" {
				g.Edges = append(g.Edges, Edge{From: from, To: id, Kind: RelationCalls, Site: call})
			}
		}
	case "member_expression":
		for _, id := range g.nameIndex[t.Text(fn.Child("property"))] {
			if s := g.Nodes[id]; s.UnitType == "method" {
				g.Edges = append(g.Edges, Edge{From: from, To: id, Kind: RelationCalls, Site: call})
			}
		}
	}
}

func (g *Graph) ownerID(t *syntax.Tree, n *syntax.Node) string {
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		if !cur.IsFunctionLike() {
			continue
		}
		c := sketch.Describe(t, cur)
		if c.Name == "" {
			continue
		}
		id := symbolID(&Symbol{Name: c.Name, Class: c.Class, Line: cur.Line})
		if _, ok := g.Nodes[id]; ok {
			return id
		}
	}
	return ScriptID
}

func classSymbol(t *syntax.Tree, n *syntax.Node) *Symbol {
	name := t.Text(n.Child("name"))
	if name == "" && n.Parent != nil && n.Parent.Type == "variable_declarator" {
		name = t.Text(n.Parent.Child("name"))
	}
	if name == "" {
		return nil
	}
	s := &Symbol{Name: name, UnitType: "class", Line: n.Line, Node: n}
	s.ID = symbolID(s)
	return s
}

func symbolID(s *Symbol) string {
	if s.Class != "" {
		return fmt.Sprintf("%s.%s:%d", s.Class, s.Name, s.Line)
	}
	return fmt.Sprintf("%s:%d", s.Name, s.Line)
}

// AddSymbol adds a declaration and indexes it by name.
func (g *Graph) AddSymbol(s *Symbol) {
	if s == nil {
		return
	}
	g.Nodes[s.ID] = s
	g.nameIndex[s.Name] = append(g.nameIndex[s.Name], s.ID)
}

// Lookup returns every declaration with the given name.
func (g *Graph) Lookup(name string) []*Symbol {
	var out []*Symbol
	for _, id := range g.nameIndex[name] {
		out = append(out, g.Nodes[id])
	}
	return out
}

// Class returns the class (or constructor function) declared under name.
func (g *Graph) Class(name string) *Symbol {
	var ctor *Symbol
	for _, s := range g.Lookup(name) {
		switch {
		case s.UnitType == "class":
			return s
		case s.UnitType == "function" && s.Class == "" && ctor == nil:
			ctor = s
		}
	}
	return ctor
}

// SymbolFor returns the declaration whose node is fn, if indexed.
func (g *Graph) SymbolFor(fn *syntax.Node) *Symbol {
	for _, s := range g.Nodes {
		if s.Node == fn {
			return s
		}
	}
	return nil
}

// Callers returns the edges calling the given declaration, in source order.
func (g *Graph) Callers(id string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.To == id && e.Kind == RelationCalls {
			out = append(out, e)
		}
	}
	sortBySite(out)
	return out
}

// Instantiations returns the new expressions constructing the given class or
// constructor function, in source order.
func (g *Graph) Instantiations(id string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.To == id && e.Kind == RelationInstantiates {
			out = append(out, e)
		}
	}
	sortBySite(out)
	return out
}

// Owner returns the class or constructor function a method belongs to.
func (g *Graph) Owner(id string) *Symbol {
	for _, e := range g.Edges {
		if e.From == id && e.Kind == RelationBelongsTo {
			return g.Nodes[e.To]
		}
	}
	return nil
}

func sortBySite(edges []Edge) {
	sort.SliceStable(edges, func(i, j int) bool {
		return edges[i].Site.Start < edges[j].Site.Start
	})
}
