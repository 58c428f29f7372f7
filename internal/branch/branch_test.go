package branch

import (
	"testing"

	"sketchscan/internal/collector"
	"sketchscan/internal/registry"
	"sketchscan/internal/sketch"
	"sketchscan/internal/syntax"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyze(t *testing.T, src string) (*syntax.Tree, *ConditionSet) {
	t.Helper()
	reg, err := registry.Default()
	require.NoError(t, err)
	tree := syntax.MustParse(src)
	res := collector.Collect(tree, reg, sketch.Split(tree, sketch.DefaultEntryNames()))
	return tree, Analyze(tree, res)
}

func record(t *testing.T, set *ConditionSet, text string) *ConditionRecord {
	t.Helper()
	rec, ok := set.Lookup(text)
	require.True(t, ok, "no record for %q", text)
	return rec
}

func TestAnalyze_NoConditionals(t *testing.T) {
	_, set := analyze(t, `
function setup() { createCanvas(100, 100); }
function draw() { background(0); ellipse(1, 2, 3); }
`)
	assert.Zero(t, set.Len())
}

func TestAnalyze_ThenOnly(t *testing.T) {
	_, set := analyze(t, `
function draw() {
  if (mouseIsPressed) { ellipse(0, 0, 5); } else { print("no"); }
}
`)
	require.Equal(t, 1, set.Len())
	rec := record(t, set, "mouseIsPressed")
	assert.True(t, rec.ForceThen)
	assert.False(t, rec.ForceElse)
	assert.Equal(t, []string{"ellipse"}, rec.RenderNames())
}

func TestAnalyze_BothArms(t *testing.T) {
	_, set := analyze(t, `
let x;
function draw() {
  if (x > 0) { ellipse(0, 0, 5); } else { rect(0, 0, 5, 5); }
}
`)
	require.Equal(t, 1, set.Len())
	rec := record(t, set, "x > 0")
	assert.True(t, rec.Both())
	assert.Equal(t, []string{"ellipse", "rect"}, rec.RenderNames())
}

func TestAnalyze_ElseIfChain(t *testing.T) {
	_, set := analyze(t, `
function draw() {
  if (a) {
    point(1, 1);
  } else if (b) {
    line(0, 0, 1, 1);
  } else {
    rect(0, 0, 1, 1);
  }
}
`)
	a := record(t, set, "a")
	assert.True(t, a.Both())

	b := record(t, set, "b")
	assert.True(t, b.Both())
	assert.Equal(t, []string{"line", "rect"}, b.RenderNames())
}

func TestAnalyze_EarlyExit(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		condition string
		forceThen bool
		forceElse bool
	}{
		{
			name: "return in then arm",
			src: `function draw() {
  if (paused) { return; }
  ellipse(0, 0, 1);
}`,
			condition: "paused",
			forceElse: true,
		},
		{
			name: "return in else arm",
			src: `function draw() {
  if (ready) { fill(0); } else return;
  ellipse(0, 0, 1);
}`,
			condition: "ready",
			forceThen: true,
		},
		{
			name: "nested early exit",
			src: `function draw() {
  if (a) {
    if (b) { throw new Error("stop"); }
  }
  ellipse(0, 0, 1);
}`,
			condition: "b",
			forceElse: true,
		},
		{
			name: "exit inside gating arm",
			src: `function draw() {
  if (show) {
    if (hidden) return;
    ellipse(0, 0, 1);
  }
}`,
			condition: "hidden",
			forceElse: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, set := analyze(t, tt.src)
			rec := record(t, set, tt.condition)
			assert.Equal(t, tt.forceThen, rec.ForceThen)
			assert.Equal(t, tt.forceElse, rec.ForceElse)
		})
	}
}

func TestAnalyze_LoopExitsAreNotForced(t *testing.T) {
	tests := []struct {
		name string
		src  string
		cond string
	}{
		{
			name: "break",
			src: `function draw() {
  let i = 0;
  while (true) { if (i > 3) break; rect(0, 0, 1, 1); i++; }
  ellipse(0, 0, 1);
}`,
			cond: "i > 3",
		},
		{
			name: "continue",
			src: `function draw() {
  for (let i = 0; i < 4; i++) { if (i % 2) { continue; } rect(i, 0, 1, 1); }
}`,
			cond: "i % 2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, set := analyze(t, tt.src)
			_, ok := set.Lookup(tt.cond)
			assert.False(t, ok)
		})
	}
}

func TestAnalyze_ExitAfterCallIsIgnored(t *testing.T) {
	_, set := analyze(t, `
function draw() {
  ellipse(0, 0, 1);
  if (done) { return; }
}
`)
	_, ok := set.Lookup("done")
	assert.False(t, ok)
}

func TestAnalyze_CanonicalConditionsMerge(t *testing.T) {
	_, set := analyze(t, `
function draw() {
  if (a&&b) { ellipse(0, 0, 1); }
  if (b && a) { rect(0, 0, 1, 1); }
}
`)
	require.Equal(t, 1, set.Len())
	rec := set.Records()[0]
	assert.Len(t, rec.Statements, 2)
	assert.Equal(t, []string{"ellipse", "rect"}, rec.RenderNames())
}

func TestAnalyze_ClassMethodChain(t *testing.T) {
	_, set := analyze(t, `
class Circle {
  intersect(other) {
    if (this.x > other.x) { line(0, 0, 1, 1); }
  }
}
let c1, c2;
function setup() { c1 = new Circle(); c2 = new Circle(); }
function draw() {
  if (showLines) { c1.intersect(c2); }
}
`)
	assert.True(t, record(t, set, "this.x > other.x").ForceThen)
	assert.True(t, record(t, set, "showLines").ForceThen)
}

func TestAnalyze_HelperChainAndCallback(t *testing.T) {
	_, set := analyze(t, `
function face(mood) {
  if (mood === "happy") { arc(0, 0, 10, 10, 0, PI); }
}
let moods = [];
function draw() {
  moods.forEach(m => {
    if (m) { face(m); }
  });
}
`)
	assert.True(t, record(t, set, `"happy" === mood`).ForceThen)
	assert.True(t, record(t, set, "m").ForceThen)
}

func TestAnalyze_RecursiveHelperTerminates(t *testing.T) {
	_, set := analyze(t, `
function branch(depth) {
  if (depth > 0) { line(0, 0, 1, 1); branch(depth - 1); }
}
function draw() { branch(3); }
`)
	assert.True(t, record(t, set, "depth > 0").ForceThen)
}

func TestFindGatingConditions(t *testing.T) {
	tree := syntax.MustParse(`
function draw() {
  if (a) { return; }
  if (b) { ellipse(0, 0, 1); }
}
`)
	calls := syntax.Find(tree.Root, "call_expression")
	require.Len(t, calls, 1)
	draw := syntax.Find(tree.Root, "function_declaration")[0]

	recs := FindGatingConditions(tree, calls[0], draw, "ellipse")
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].ConditionText)
	assert.True(t, recs[0].ForceElse)
	assert.Equal(t, "b", recs[1].ConditionText)
	assert.True(t, recs[1].ForceThen)
}

func TestConditionSet_MergeUnionsFlags(t *testing.T) {
	tree := syntax.MustParse(`if (x) { a(); } else { b(); }`)
	ifStmt := syntax.Find(tree.Root, "if_statement")[0]

	first := NewConditionSet(tree)
	first.Add(ifStmt, true, false, "ellipse")
	second := NewConditionSet(tree)
	second.Add(ifStmt, false, true, "rect")

	first.Merge(second)
	rec := record(t, first, "x")
	assert.True(t, rec.Both())
	assert.Len(t, rec.Statements, 1)
	assert.Equal(t, []string{"ellipse", "rect"}, rec.RenderNames())
}
