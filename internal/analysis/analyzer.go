package analysis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/phuslu/log"

	"sketchscan/internal/branch"
	"sketchscan/internal/classify"
	"sketchscan/internal/collector"
	"sketchscan/internal/logging"
	"sketchscan/internal/registry"
	"sketchscan/internal/sandbox"
	"sketchscan/internal/sketch"
	"sketchscan/internal/syntax"
	"sketchscan/internal/transform"
)

// Analyzer runs the whole pipeline: parse, split, collect, branch analysis,
// forcing, classification and the dry run. It holds no per-script state and
// is safe for concurrent use; dry-run passes are serialized by the sandbox.
type Analyzer struct {
	reg     *registry.Registry
	names   sketch.EntryNames
	sandbox *sandbox.Sandbox
	logger  *log.Logger
}

// NewAnalyzer creates an analyzer. A nil logger discards output.
func NewAnalyzer(reg *registry.Registry, names sketch.EntryNames, sb *sandbox.Sandbox, logger *log.Logger) *Analyzer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Analyzer{reg: reg, names: names, sandbox: sb, logger: logger}
}

// Analyze parses src, locates the entry routines and analyzes the script.
// A *syntax.ParseError is the only failure; every other condition is
// reported on the Report.
func (a *Analyzer) Analyze(ctx context.Context, src []byte) (*Report, error) {
	tree, err := syntax.Parse(ctx, src)
	if err != nil {
		return nil, err
	}
	return a.AnalyzeEntries(ctx, tree, sketch.Split(tree, a.names))
}

// AnalyzeFile reads and analyzes one script file.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*Report, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sketch %s: %w", path, err)
	}
	report, err := a.Analyze(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	report.Path = path
	return report, nil
}

// AnalyzeEntries analyzes an already parsed script whose entry routines were
// isolated by the caller.
func (a *Analyzer) AnalyzeEntries(ctx context.Context, tree *syntax.Tree, entries sketch.Entries) (*Report, error) {
	r := &run{src: tree.Source, tree: tree, entries: entries}

	chain := newStageChain(
		stageFunc{"collect", a.collectStage},
		stageFunc{"branch", a.branchStage},
		stageFunc{"transform", a.transformStage},
		stageFunc{"classify", a.classifyStage},
		stageFunc{"sandbox", a.sandboxStage},
	)
	stages := chain.Run(ctx, r)
	for _, st := range stages {
		a.logger.Debug().Str("stage", st.Stage).Int("items", st.Items).Dur("duration", st.Duration).Msg("analysis stage finished")
		if st.Err != nil {
			return nil, fmt.Errorf("%s stage failed: %w", st.Stage, st.Err)
		}
	}

	report := &Report{
		ID:           uuid.NewString(),
		Hash:         ContentHash(tree.Source),
		CreatedAt:    time.Now().UTC(),
		Entries:      entries.Names,
		Dependencies: r.deps,
		Sites:        summarizeSites(tree, r.collected.Sites),
		Conditions:   summarizeConditions(r.conditions),
		ForcedSource: r.forced,
		Traces:       r.traces,
		Diagnostics:  r.collected.Diagnostics(),
		Stages:       stages,
	}
	if report.Diagnostics == nil {
		report.Diagnostics = []collector.Diagnostic{}
	}
	if r.sandboxErr != nil {
		report.SandboxError = r.sandboxErr.Error()
	}
	if r.traces != nil {
		for _, tr := range []*sandbox.Trace{r.traces.Setup, r.traces.Draw} {
			if tr == nil || tr.Err == nil {
				continue
			}
			if report.PassErrors == nil {
				report.PassErrors = make(map[string]string)
			}
			report.PassErrors[tr.Entry] = tr.Err.Error()
		}
	}
	return report, nil
}

func (a *Analyzer) collectStage(_ context.Context, r *run) (int, error) {
	r.collected = collector.Collect(r.tree, a.reg, r.entries)
	return len(r.collected.Sites), nil
}

func (a *Analyzer) branchStage(_ context.Context, r *run) (int, error) {
	r.conditions = branch.Analyze(r.tree, r.collected)
	for _, d := range r.collected.Diagnostics() {
		a.logger.Debug().Str("kind", string(d.Kind)).Int("line", d.Line).Msg(d.Message)
	}
	return r.conditions.Len(), nil
}

func (a *Analyzer) transformStage(_ context.Context, r *run) (int, error) {
	records := r.conditions.Records()
	forced, err := transform.ApplyForcing(string(r.src), records)
	if err != nil {
		// run the unforced script rather than nothing
		a.logger.Warn().Err(err).Msg("branch forcing failed, dry run uses the original script")
		r.forced = string(r.src)
		return 0, nil
	}
	r.forced = forced
	return len(records), nil
}

func (a *Analyzer) classifyStage(_ context.Context, r *run) (int, error) {
	r.deps = classify.Classify(r.tree, a.reg)
	n := 0
	for _, cat := range registry.Categories {
		n += len(r.deps.List(cat))
	}
	return n, nil
}

func (a *Analyzer) sandboxStage(ctx context.Context, r *run) (int, error) {
	if a.sandbox == nil {
		return 0, nil
	}

	traces, err := a.sandbox.Run(ctx, r.forced, r.entries.Names)
	if err != nil {
		a.logger.Warn().Err(err).Msg("dry run could not start")
		r.sandboxErr = err
		return 0, nil
	}
	r.traces = traces

	n := 0
	for _, tr := range []*sandbox.Trace{traces.Setup, traces.Draw} {
		n += len(tr.Calls)
		if tr.Err == nil {
			continue
		}
		var budget *sandbox.LoopBudgetExceeded
		if errors.As(tr.Err, &budget) {
			a.logger.Warn().Str("entry", budget.Entry).Int("budget", budget.Budget).Msg("loop budget exceeded, pass aborted")
			continue
		}
		a.logger.Warn().Str("entry", tr.Entry).Err(tr.Err).Msg("dry run pass failed")
	}
	return n, nil
}

// ContentHash identifies script text in the report archive.
func ContentHash(src []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(src))
}
