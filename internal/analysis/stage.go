package analysis

import (
	"context"
	"time"

	"sketchscan/internal/branch"
	"sketchscan/internal/classify"
	"sketchscan/internal/collector"
	"sketchscan/internal/sandbox"
	"sketchscan/internal/sketch"
	"sketchscan/internal/syntax"
)

// run carries the intermediate products of one analysis call. Nothing in it
// outlives the call.
type run struct {
	src     []byte
	tree    *syntax.Tree
	entries sketch.Entries

	collected  *collector.Result
	conditions *branch.ConditionSet
	forced     string
	deps       *classify.DependencySet
	traces     *sandbox.Traces

	sandboxErr error
}

// Stage is one step of the analysis pipeline. Items is a stage-specific
// count reported for diagnostics (sites found, conditions recorded, ...).
type Stage interface {
	Name() string
	Run(ctx context.Context, r *run) (items int, err error)
}

type stageFunc struct {
	name string
	fn   func(ctx context.Context, r *run) (int, error)
}

func (s stageFunc) Name() string { return s.name }
func (s stageFunc) Run(ctx context.Context, r *run) (int, error) {
	return s.fn(ctx, r)
}

// StageResult records how one stage went.
type StageResult struct {
	Stage    string        `json:"stage"`
	Items    int           `json:"items"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

type stageChain struct {
	stages []Stage
}

func newStageChain(stages ...Stage) *stageChain {
	return &stageChain{stages: stages}
}

// Run executes the stages in order and stops at the first failure.
func (c *stageChain) Run(ctx context.Context, r *run) []StageResult {
	var out []StageResult
	for _, s := range c.stages {
		if err := ctx.Err(); err != nil {
			out = append(out, StageResult{Stage: s.Name(), Err: err})
			break
		}
		start := time.Now()
		items, err := s.Run(ctx, r)
		out = append(out, StageResult{
			Stage:    s.Name(),
			Items:    items,
			Duration: time.Since(start),
			Err:      err,
		})
		if err != nil {
			break
		}
	}
	return out
}
