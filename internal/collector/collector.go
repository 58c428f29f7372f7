package collector

import (
	"fmt"

	"sketchscan/internal/graph"
	"sketchscan/internal/registry"
	"sketchscan/internal/sketch"
	"sketchscan/internal/syntax"
)

// CallChainInfo captures how a call inside a method (or helper function) body
// is triggered from an entry routine: directly on a tracked instance, or
// through an element of a tracked array of instances.
type CallChainInfo struct {
	MethodName           string
	MethodNode           *syntax.Node
	ClassName            string // "" for plain helper functions
	ClassNode            *syntax.Node
	InstanceNames        map[string]bool
	ArrayContainerNames  map[string]bool
	CallerNode           *syntax.Node
	CallerIsInEntryScope bool
}

// RenderCallSite is one call of a render primitive. Enclosing is the nearest
// function-like node; Boundary is the nearest named one, which differs when
// the call sits in an anonymous callback such as `pts.forEach(p => ...)`.
// The call chain is resolved from Boundary.
type RenderCallSite struct {
	Node      *syntax.Node
	Name      string
	Enclosing *sketch.Callable // nil at top level
	Boundary  *sketch.Callable // nil at top level or inside anonymous top-level code
	CallChain *CallChainInfo
}

// DiagnosticKind names a non-fatal analysis condition.
type DiagnosticKind string

const AmbiguousCallChain DiagnosticKind = "ambiguous_call_chain"

// Diagnostic reports a degraded-precision decision made during collection.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Line    int            `json:"line"`
	Message string         `json:"message"`
}

// Result is the output of one collection pass.
type Result struct {
	Sites []*RenderCallSite
	Graph *graph.Graph

	collector *Collector
}

// Diagnostics returns the conditions recorded so far, including those raised
// by later ResolveCallChain calls.
func (r *Result) Diagnostics() []Diagnostic {
	if r == nil || r.collector == nil {
		return nil
	}
	return r.collector.diags
}

// ResolveCallChain resolves the chain of any callable in the collected script,
// e.g. the function enclosing a chain's caller.
func (r *Result) ResolveCallChain(fn *sketch.Callable) *CallChainInfo {
	if r == nil || r.collector == nil {
		return nil
	}
	return r.collector.ResolveCallChain(fn)
}

// Collector finds render calls and resolves their call chains.
type Collector struct {
	tree    *syntax.Tree
	reg     *registry.Registry
	entries sketch.Entries
	graph   *graph.Graph

	chains map[*syntax.Node]*CallChainInfo
	diags  []Diagnostic
}

// Collect walks the whole tree and returns every render call site in source order.
func Collect(t *syntax.Tree, reg *registry.Registry, entries sketch.Entries) *Result {
	c := &Collector{
		tree:    t,
		reg:     reg,
		entries: entries,
		graph:   graph.Build(t),
		chains:  make(map[*syntax.Node]*CallChainInfo),
	}

	var sites []*RenderCallSite
	syntax.Inspect(t.Root, func(n *syntax.Node) bool {
		if n.Type != "call_expression" {
			return true
		}
		name := t.Callee(n)
		if name == "" || !reg.IsRenderPrimitive(name) {
			return true
		}
		site := &RenderCallSite{
			Node:      n,
			Name:      name,
			Enclosing: sketch.EnclosingCallable(t, n),
			Boundary:  sketch.NamedEnclosing(t, n),
		}
		site.CallChain = c.ResolveCallChain(site.Boundary)
		sites = append(sites, site)
		return true
	})

	return &Result{Sites: sites, Graph: c.graph, collector: c}
}

// ResolveCallChain resolves how the given callable is reached from an entry
// routine. Results are memoized per callable node.
func (c *Collector) ResolveCallChain(fn *sketch.Callable) *CallChainInfo {
	if fn == nil || fn.Name == "" || c.isEntry(fn) {
		return nil
	}
	if chain, ok := c.chains[fn.Node]; ok {
		return chain
	}

	var chain *CallChainInfo
	if fn.IsMethod() {
		chain = c.resolveMethod(fn)
	} else {
		chain = c.resolveFunction(fn)
	}
	c.chains[fn.Node] = chain
	return chain
}

func (c *Collector) isEntry(fn *sketch.Callable) bool {
	for _, e := range c.entries.Scopes() {
		if e.Node == fn.Node {
			return true
		}
	}
	return false
}

func (c *Collector) resolveMethod(fn *sketch.Callable) *CallChainInfo {
	chain := &CallChainInfo{
		MethodName:          fn.Name,
		MethodNode:          fn.Node,
		ClassName:           fn.Class,
		ClassNode:           fn.ClassNode,
		InstanceNames:       make(map[string]bool),
		ArrayContainerNames: make(map[string]bool),
	}

	// 1. Class declaration
	if chain.ClassName == "" {
		c.diagnose(fn.Node, "method %s has no owning class", fn.Name)
		return nil
	}
	class := c.graph.Class(chain.ClassName)
	if s := c.graph.SymbolFor(fn.Node); s != nil {
		if owner := c.graph.Owner(s.ID); owner != nil {
			class = owner
		}
	}
	if class != nil && chain.ClassNode == nil {
		chain.ClassNode = class.Node
	}

	// 2. Instances constructed inside the entry routines
	if class != nil {
		c.trackInstances(class, chain)
	}
	for _, scope := range c.entries.Scopes() {
		c.trackLoopVariables(scope.Node, chain)
	}
	if len(chain.InstanceNames) == 0 && len(chain.ArrayContainerNames) == 0 {
		c.diagnose(fn.Node, "no instance of %s is constructed in an entry routine; analyzing %s.%s directly",
			chain.ClassName, chain.ClassName, fn.Name)
		return nil
	}

	// 3. Call sites, entry routines first
	for _, scope := range c.entries.Scopes() {
		if call := c.findMethodCall(scope.Node, chain); call != nil {
			chain.CallerNode = call
			chain.CallerIsInEntryScope = true
			return chain
		}
	}
	if call := c.findMethodCall(c.tree.Root, chain); call != nil {
		chain.CallerNode = call
		return chain
	}

	c.diagnose(fn.Node, "no call of %s.%s on a tracked instance", chain.ClassName, fn.Name)
	return chain
}

func (c *Collector) resolveFunction(fn *sketch.Callable) *CallChainInfo {
	s := c.graph.SymbolFor(fn.Node)
	if s == nil {
		return nil
	}
	callers := c.graph.Callers(s.ID)
	if len(callers) == 0 {
		return nil
	}

	chain := &CallChainInfo{
		MethodName: fn.Name,
		MethodNode: fn.Node,
		CallerNode: callers[0].Site,
	}
	for _, e := range callers {
		if c.entries.Contains(e.Site) {
			chain.CallerNode = e.Site
			chain.CallerIsInEntryScope = true
			break
		}
	}
	return chain
}

// trackInstances records the names bound to `new ClassName(...)` inside the
// entry routines, either directly or by storing into an array container.
func (c *Collector) trackInstances(class *graph.Symbol, chain *CallChainInfo) {
	for _, e := range c.graph.Instantiations(class.ID) {
		if c.entries.Contains(e.Site) {
			c.bind(e.Site, chain)
		}
	}
}

// trackLoopVariables treats loop variables iterating a tracked container as
// instances: `for (const b of balls)` and `balls.forEach(b => ...)`.
func (c *Collector) trackLoopVariables(scope *syntax.Node, chain *CallChainInfo) {
	t := c.tree
	syntax.Inspect(scope, func(n *syntax.Node) bool {
		switch n.Type {
		case "for_in_statement":
			if chain.ArrayContainerNames[t.Text(n.Child("right"))] {
				if name := loopVariable(t, n.Child("left")); name != "" {
					chain.InstanceNames[name] = true
				}
			}
		case "call_expression":
			fn := n.Child("function")
			if fn == nil || fn.Type != "member_expression" || t.Text(fn.Child("property")) != "forEach" {
				return true
			}
			if !chain.ArrayContainerNames[t.Text(fn.Child("object"))] {
				return true
			}
			if cb := n.Child("arguments").FirstNamed(); cb != nil && cb.IsFunctionLike() {
				if name := firstParam(t, cb); name != "" {
					chain.InstanceNames[name] = true
				}
			}
		}
		return true
	})
}

func (c *Collector) bind(newExpr *syntax.Node, chain *CallChainInfo) {
	t := c.tree
	n := newExpr
	for n.Parent != nil && n.Parent.Type == "parenthesized_expression" {
		n = n.Parent
	}
	parent := n.Parent
	if parent == nil {
		return
	}

	switch parent.Type {
	case "variable_declarator":
		chain.InstanceNames[t.Text(parent.Child("name"))] = true
	case "assignment_expression":
		left := parent.Child("left")
		if left.Type == "subscript_expression" {
			chain.ArrayContainerNames[t.Text(left.Child("object"))] = true
		} else {
			chain.InstanceNames[t.Text(left)] = true
		}
	case "arguments":
		call := parent.Parent
		fn := call.Child("function")
		if fn != nil && fn.Type == "member_expression" {
			switch t.Text(fn.Child("property")) {
			case "push", "unshift":
				chain.ArrayContainerNames[t.Text(fn.Child("object"))] = true
			}
		}
	case "array":
		holder := parent.Parent
		switch {
		case holder == nil:
		case holder.Type == "variable_declarator":
			chain.ArrayContainerNames[t.Text(holder.Child("name"))] = true
		case holder.Type == "assignment_expression":
			chain.ArrayContainerNames[t.Text(holder.Child("left"))] = true
		}
	}
}

// findMethodCall returns the first `instance.method(...)` or
// `container[i].method(...)` call in scope matching the chain.
func (c *Collector) findMethodCall(scope *syntax.Node, chain *CallChainInfo) *syntax.Node {
	t := c.tree
	var found *syntax.Node
	syntax.Inspect(scope, func(n *syntax.Node) bool {
		if found != nil {
			return false
		}
		if n.Type != "call_expression" {
			return true
		}
		fn := n.Child("function")
		if fn == nil || fn.Type != "member_expression" || t.Text(fn.Child("property")) != chain.MethodName {
			return true
		}
		obj := fn.Child("object")
		switch {
		case obj.Type == "subscript_expression" && chain.ArrayContainerNames[t.Text(obj.Child("object"))]:
			found = n
		case chain.InstanceNames[t.Text(obj)]:
			found = n
		}
		return found == nil
	})
	return found
}

func (c *Collector) diagnose(n *syntax.Node, format string, args ...any) {
	c.diags = append(c.diags, Diagnostic{
		Kind:    AmbiguousCallChain,
		Line:    n.Line,
		Message: fmt.Sprintf(format, args...),
	})
}

func loopVariable(t *syntax.Tree, left *syntax.Node) string {
	if left == nil {
		return ""
	}
	if left.Type == "identifier" {
		return t.Text(left)
	}
	if ids := syntax.Find(left, "identifier"); len(ids) > 0 {
		return t.Text(ids[0])
	}
	return ""
}

func firstParam(t *syntax.Tree, fn *syntax.Node) string {
	if p := fn.Child("parameter"); p != nil {
		return t.Text(p)
	}
	params := fn.Child("parameters")
	if params == nil {
		return ""
	}
	if first := params.FirstNamed(); first != nil && first.Type == "identifier" {
		return t.Text(first)
	}
	return ""
}
