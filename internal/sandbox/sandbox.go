package sandbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode"

	"github.com/dop251/goja"

	"sketchscan/internal/registry"
	"sketchscan/internal/sketch"
)

// Options tune a dry run.
type Options struct {
	LoopBudget  int           // render calls allowed per pass
	Timeout     time.Duration // host-level limit per pass, 0 disables it
	ForwardMath bool          // math stubs compute real values instead of returning 0
	Seed        int64         // seed for random() and noise()
}

// DefaultOptions returns the stock dry-run settings.
func DefaultOptions() Options {
	return Options{
		LoopBudget:  1000,
		Timeout:     5 * time.Second,
		ForwardMath: true,
		Seed:        1,
	}
}

// Call is one recorded render primitive call.
type Call struct {
	Name             string `json:"name"`
	Argc             int    `json:"argc"`
	Signature        string `json:"signature"`
	HasAlphaArgument bool   `json:"has_alpha_argument,omitempty"`
}

// Trace is the ordered render calls observed while running one entry routine.
type Trace struct {
	Entry            string        `json:"entry"`
	Found            bool          `json:"found"`
	Calls            []Call        `json:"calls"`
	HasAlphaArgument bool          `json:"has_alpha_argument"`
	Duration         time.Duration `json:"duration"`
	Err              error         `json:"-"`
}

// Names returns the recorded call names in order.
func (t *Trace) Names() []string {
	out := make([]string, len(t.Calls))
	for i, c := range t.Calls {
		out[i] = c.Name
	}
	return out
}

// Traces holds the independent results of the setup and draw passes.
type Traces struct {
	Setup *Trace `json:"setup"`
	Draw  *Trace `json:"draw"`
}

// Sandbox runs scripts against recording stubs generated from a registry.
// Every pass gets a fresh runtime; passes sharing a Sandbox are serialized.
type Sandbox struct {
	reg  *registry.Registry
	opts Options

	mu sync.Mutex
}

// New creates a sandbox. A non-positive loop budget falls back to the default.
func New(reg *registry.Registry, opts Options) *Sandbox {
	if opts.LoopBudget <= 0 {
		opts.LoopBudget = DefaultOptions().LoopBudget
	}
	return &Sandbox{reg: reg, opts: opts}
}

// Options returns the effective options.
func (s *Sandbox) Options() Options {
	return s.opts
}

// Execute runs the script's top level, then calls entry and records its
// render calls. Failures inside the pass (loop budget, script exceptions,
// host timeout) are recorded on the trace; the returned error is reserved for
// scripts that do not compile and invalid entry names.
func (s *Sandbox) Execute(ctx context.Context, src, entry string) (*Trace, error) {
	prog, err := compile(src)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, prog, entry, "")
}

// Run executes the setup and draw routines in separate passes. The draw pass
// replays setup first, unrecorded, so state it initializes is available.
func (s *Sandbox) Run(ctx context.Context, src string, names sketch.EntryNames) (*Traces, error) {
	prog, err := compile(src)
	if err != nil {
		return nil, err
	}

	setup, err := s.execute(ctx, prog, names.Setup, "")
	if err != nil {
		return nil, err
	}
	draw, err := s.execute(ctx, prog, names.Draw, names.Setup)
	if err != nil {
		return nil, err
	}
	return &Traces{Setup: setup, Draw: draw}, nil
}

func compile(src string) (*goja.Program, error) {
	prog, err := goja.Compile("sketch.js", src, false)
	if err != nil {
		return nil, fmt.Errorf("failed to compile script: %w", err)
	}
	return prog, nil
}

func (s *Sandbox) execute(ctx context.Context, prog *goja.Program, entry, preamble string) (*Trace, error) {
	if !isIdentifier(entry) {
		return nil, fmt.Errorf("invalid entry routine name %q", entry)
	}
	if preamble != "" && !isIdentifier(preamble) {
		return nil, fmt.Errorf("invalid entry routine name %q", preamble)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	p := newPass(s.reg, s.opts, entry)
	trace := &Trace{Entry: entry, Calls: []Call{}}
	start := time.Now()
	defer func() { trace.Duration = time.Since(start) }()

	stop := p.watch(ctx)
	defer stop()

	if _, err := p.vm.RunProgram(prog); err != nil {
		trace.Err = p.classify(err)
		return trace, nil
	}
	p.vm.ClearInterrupt()

	if preamble != "" {
		if fn, ok := p.lookup(preamble); ok {
			// state only; failures here are not this pass' failures
			_, _ = fn(goja.Undefined())
			p.vm.ClearInterrupt()
		}
	}
	if err := ctx.Err(); err != nil {
		trace.Err = hostError(err)
		return trace, nil
	}

	fn, ok := p.lookup(entry)
	if !ok {
		return trace, nil
	}
	trace.Found = true

	p.begin()
	_, err := fn(goja.Undefined())
	p.recording = false

	trace.Calls = p.calls
	trace.HasAlphaArgument = p.alpha
	if err != nil {
		trace.Err = p.classify(err)
	}
	return trace, nil
}

// classify maps a runtime error to the sandbox error taxonomy.
func (p *pass) classify(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		switch v := interrupted.Value().(type) {
		case *LoopBudgetExceeded:
			return v
		case error:
			return v
		}
		return fmt.Errorf("pass interrupted: %v", interrupted.Value())
	}

	var ex *goja.Exception
	if errors.As(err, &ex) {
		return &ScriptError{Entry: p.entry, Message: ex.Error()}
	}
	return &ScriptError{Entry: p.entry, Message: err.Error()}
}

func hostError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrHostTimeout
	}
	return err
}

// watch interrupts the runtime once ctx is done. The returned func stops it.
func (p *pass) watch(ctx context.Context) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			p.vm.Interrupt(hostError(ctx.Err()))
		case <-done:
		}
	}()
	return func() { close(done) }
}

// lookup resolves a global callable, including top-level let/const bindings
// that are not properties of the global object.
func (p *pass) lookup(name string) (goja.Callable, bool) {
	v, err := p.vm.RunString(fmt.Sprintf("typeof %[1]s === 'function' ? %[1]s : undefined", name))
	if err != nil || v == nil || goja.IsUndefined(v) {
		return nil, false
	}
	return goja.AssertFunction(v)
}

func isIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || r == '$' || unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}
