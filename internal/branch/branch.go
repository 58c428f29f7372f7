package branch

import (
	"sketchscan/internal/collector"
	"sketchscan/internal/sketch"
	"sketchscan/internal/syntax"
)

// FindGatingConditions returns the conditions that must be forced for call to
// execute, walking from call up to boundary. A nil boundary walks to the
// script root.
func FindGatingConditions(t *syntax.Tree, call, boundary *syntax.Node, renderName string) []*ConditionRecord {
	p := newPass(t, renderName)
	p.walk(call, boundary)
	return p.set.Records()
}

// Analyze collects the gating conditions of every render call site and merges
// them by condition text. Sites inside methods or helper functions also pick
// up the conditions around the call chain that reaches them.
func Analyze(t *syntax.Tree, res *collector.Result) *ConditionSet {
	all := NewConditionSet(t)
	for _, site := range res.Sites {
		p := newPass(t, site.Name)
		p.follow(site.Node, res)
		all.Merge(p.set)
	}
	return all
}

// pass analyzes one render call site. Each if statement is recorded at most
// once per pass.
type pass struct {
	tree       *syntax.Tree
	renderName string
	set        *ConditionSet
	visited    map[*syntax.Node]bool
}

func newPass(t *syntax.Tree, renderName string) *pass {
	return &pass{
		tree:       t,
		renderName: renderName,
		set:        NewConditionSet(t),
		visited:    make(map[*syntax.Node]bool),
	}
}

// follow walks from n to its named boundary, then hops to the call site that
// invokes that boundary until an entry routine or the top level is reached.
func (p *pass) follow(n *syntax.Node, res *collector.Result) {
	seen := make(map[*syntax.Node]bool)
	for n != nil {
		fn := sketch.NamedEnclosing(p.tree, n)
		if fn == nil {
			p.walk(n, nil)
			return
		}
		p.walk(n, fn.Node)

		if seen[fn.Node] {
			return
		}
		seen[fn.Node] = true

		chain := res.ResolveCallChain(fn)
		if chain == nil || chain.CallerNode == nil {
			return
		}
		n = chain.CallerNode
	}
}

func (p *pass) walk(from, boundary *syntax.Node) {
	cur := from
	for cur != boundary && cur.Parent != nil {
		parent := cur.Parent
		switch {
		case parent.Type == "if_statement" && cur.Field == "consequence":
			p.record(parent, true, false)
		case parent.Type == "else_clause" && parent.Parent != nil:
			p.record(parent.Parent, false, true)
		case parent.IsBlockLike():
			for _, sib := range parent.Children[:cur.Index()] {
				if sib.Type == "if_statement" {
					p.skipEarlyExit(sib)
				}
			}
		}
		cur = parent
	}
}

// skipEarlyExit forces ifStmt so that an arm exiting the enclosing block is
// not taken, then checks nested ifs inside arms that do not exit directly.
func (p *pass) skipEarlyExit(ifStmt *syntax.Node) {
	if p.visited[ifStmt] {
		return
	}

	then := ifStmt.Child("consequence")
	alt := elseBody(ifStmt)
	thenExits, elseExits := exits(then), exits(alt)

	switch {
	case thenExits && elseExits:
		// unreachable either way
		return
	case thenExits:
		p.record(ifStmt, false, true)
	case elseExits:
		p.record(ifStmt, true, false)
	}
	p.visited[ifStmt] = true

	if !thenExits {
		for _, nested := range nestedIfs(then) {
			p.skipEarlyExit(nested)
		}
	}
	if !elseExits {
		for _, nested := range nestedIfs(alt) {
			p.skipEarlyExit(nested)
		}
	}
}

func (p *pass) record(ifStmt *syntax.Node, forceThen, forceElse bool) {
	if p.visited[ifStmt] {
		return
	}
	p.visited[ifStmt] = true
	p.set.Add(ifStmt, forceThen, forceElse, p.renderName)
}

// elseBody returns the statement under an if's else clause, or nil.
func elseBody(ifStmt *syntax.Node) *syntax.Node {
	clause := ifStmt.Child("alternative")
	if clause == nil {
		return nil
	}
	return clause.FirstNamed()
}

// armStatements returns the statements an arm executes directly.
func armStatements(arm *syntax.Node) []*syntax.Node {
	switch {
	case arm == nil:
		return nil
	case arm.Type == "statement_block":
		return arm.NamedChildren()
	default:
		return []*syntax.Node{arm}
	}
}

// exits reports whether an arm directly leaves the enclosing routine.
// Only return and throw count: forcing past a break would turn a
// terminating loop into an endless one. Exits nested deeper are not
// counted here.
func exits(arm *syntax.Node) bool {
	for _, st := range armStatements(arm) {
		switch st.Type {
		case "return_statement", "throw_statement":
			return true
		}
	}
	return false
}

func nestedIfs(arm *syntax.Node) []*syntax.Node {
	var out []*syntax.Node
	for _, st := range armStatements(arm) {
		if st.Type == "if_statement" {
			out = append(out, st)
		}
	}
	return out
}
