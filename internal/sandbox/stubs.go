package sandbox

import (
	"math/rand"
	"strings"

	"github.com/dop251/goja"

	"sketchscan/internal/registry"
)

// pass is one sandboxed execution: a fresh runtime whose global scope holds
// the stub table for this pass only.
type pass struct {
	vm    *goja.Runtime
	reg   *registry.Registry
	opts  Options
	entry string
	rng   *rand.Rand

	count     int
	recording bool
	calls     []Call
	alpha     bool
}

func newPass(reg *registry.Registry, opts Options, entry string) *pass {
	p := &pass{
		vm:    goja.New(),
		reg:   reg,
		opts:  opts,
		entry: entry,
		rng:   rand.New(rand.NewSource(opts.Seed)),
		calls: []Call{},
	}
	p.install()
	return p
}

// begin resets the counter and starts recording the entry routine.
func (p *pass) begin() {
	p.count = 0
	p.calls = []Call{}
	p.alpha = false
	p.recording = true
}

func (p *pass) install() {
	vm := p.vm
	global := vm.GlobalObject()
	_ = vm.Set("window", global)
	_ = vm.Set("globalThis", global)

	noop := func(goja.FunctionCall) goja.Value { return goja.Undefined() }
	console := vm.NewObject()
	for _, name := range []string{"log", "info", "warn", "error", "debug"} {
		_ = console.Set(name, noop)
	}
	_ = vm.Set("console", console)
	_ = vm.Set("print", noop)

	// a name declared in several categories gets the stub of the category
	// classification resolves it to
	done := make(map[string]bool)
	for _, e := range p.reg.Functions() {
		if done[e.Name] {
			continue
		}
		done[e.Name] = true
		if r, ok := p.reg.ResolveCall(e.Name); ok {
			e = r
		}
		_ = vm.Set(e.Name, p.stub(e))
	}
	// base-type aliases are callable too
	for _, base := range p.reg.BaseTypes() {
		if done[base] {
			continue
		}
		done[base] = true
		if e, ok := p.reg.Shape(base); ok {
			_ = vm.Set(base, p.stub(e))
		}
	}

	for _, e := range p.reg.Symbols() {
		if done[e.Name] {
			continue
		}
		done[e.Name] = true
		if r, ok := p.reg.ResolveSymbol(e.Name); ok {
			e = r
		}
		v := 0.0
		if e.Value != nil {
			v = *e.Value
		}
		_ = vm.Set(e.Name, v)
	}

	seen := make(map[string]bool)
	for _, e := range p.reg.Namespaces() {
		if seen[e.Name] {
			continue
		}
		seen[e.Name] = true
		if r, ok := p.reg.ResolveNamespace(e.Name); ok {
			e = r
		}
		p.installNamespace(e)
	}
}

func (p *pass) stub(e registry.Entry) func(goja.FunctionCall) goja.Value {
	switch e.Category {
	case registry.Shapes:
		return p.render(e)
	case registry.Math:
		return p.mathStub(e)
	case registry.Controllers:
		return func(goja.FunctionCall) goja.Value { return p.handle() }
	}
	return func(goja.FunctionCall) goja.Value { return goja.Undefined() }
}

// render counts every call and records it while the entry routine runs.
// Passing the loop budget interrupts the runtime; the interrupt cannot be
// caught by the script.
func (p *pass) render(e registry.Entry) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		p.count++
		if p.count > p.opts.LoopBudget {
			p.vm.Interrupt(&LoopBudgetExceeded{Entry: p.entry, Budget: p.opts.LoopBudget, Calls: p.count})
			return goja.Undefined()
		}
		if !p.recording {
			return goja.Undefined()
		}

		argc := len(call.Arguments)
		c := Call{
			Name:             e.Name,
			Argc:             argc,
			Signature:        signature(call.Arguments),
			HasAlphaArgument: e.HasAlpha(argc),
		}
		p.calls = append(p.calls, c)
		p.alpha = p.alpha || c.HasAlphaArgument
		return goja.Undefined()
	}
}

// handle returns an inert object standing in for a UI controller. Any
// property is a chainable no-op method; it converts to 0 or "".
func (p *pass) handle() *goja.Object {
	h := &handle{vm: p.vm}
	h.self = p.vm.NewDynamicObject(h)
	return h.self
}

type handle struct {
	vm   *goja.Runtime
	self *goja.Object
}

func (h *handle) Get(key string) goja.Value {
	switch key {
	case "valueOf":
		return h.vm.ToValue(func(goja.FunctionCall) goja.Value { return h.vm.ToValue(0) })
	case "toString":
		return h.vm.ToValue(func(goja.FunctionCall) goja.Value { return h.vm.ToValue("") })
	case "then":
		// not a thenable
		return goja.Undefined()
	}
	return h.vm.ToValue(func(goja.FunctionCall) goja.Value { return h.self })
}

func (h *handle) Set(string, goja.Value) bool { return true }
func (h *handle) Has(string) bool             { return true }
func (h *handle) Delete(string) bool          { return true }
func (h *handle) Keys() []string              { return nil }

// installNamespace defines a dotted constructor path such as p5.Vector.
func (p *pass) installNamespace(e registry.Entry) {
	parts := strings.Split(e.Name, ".")
	if len(parts) == 0 {
		return
	}

	ctor := func(call goja.ConstructorCall) *goja.Object {
		if e.Category == registry.Math && e.Canonical == "vector" && p.opts.ForwardMath {
			return p.vector(floatArgs(call.Arguments, 3))
		}
		return p.handle()
	}

	obj := p.vm.GlobalObject()
	for _, part := range parts[:len(parts)-1] {
		next, ok := obj.Get(part).(*goja.Object)
		if !ok || next == nil {
			next = p.vm.NewObject()
			_ = obj.Set(part, next)
		}
		obj = next
	}
	_ = obj.Set(parts[len(parts)-1], ctor)
}

func signature(args []goja.Value) string {
	kinds := make([]string, len(args))
	for i, a := range args {
		kinds[i] = kind(a)
	}
	return strings.Join(kinds, ", ")
}

func kind(v goja.Value) string {
	switch {
	case v == nil || goja.IsUndefined(v):
		return "undefined"
	case goja.IsNull(v):
		return "null"
	}
	if obj, ok := v.(*goja.Object); ok {
		if _, fn := goja.AssertFunction(obj); fn {
			return "function"
		}
		if obj.ClassName() == "Array" {
			return "array"
		}
		return "object"
	}
	switch v.Export().(type) {
	case int64, float64:
		return "number"
	case string:
		return "string"
	case bool:
		return "boolean"
	}
	return "object"
}
