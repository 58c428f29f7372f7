package sketch

import (
	"testing"

	"sketchscan/internal/syntax"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callNamed(t *testing.T, tree *syntax.Tree, name string) *syntax.Node {
	t.Helper()
	for _, c := range syntax.Find(tree.Root, "call_expression") {
		if tree.Callee(c) == name {
			return c
		}
	}
	t.Fatalf("call %s not found", name)
	return nil
}

func TestEnclosingCallable(t *testing.T) {
	tree := syntax.MustParse(`
class Circle {
  show() { ellipse(0, 0, 5); }
}
const Shape = class { draw() { rect(0, 0, 1, 1); } };
function Blob() {
  this.show = function () { point(1, 1); };
}
Blob.prototype.grow = function () { circle(1, 1, 1); };
const helper = () => { line(0, 0, 1, 1); };
const ui = { paint() { triangle(0, 0, 1, 1, 2, 2); } };
quad(0, 0, 1, 1, 2, 2, 3, 3);
`)

	tests := []struct {
		call   string
		kind   Kind
		name   string
		class  string
		method bool
	}{
		{"ellipse", KindMethod, "show", "Circle", true},
		{"rect", KindMethod, "draw", "Shape", true},
		{"point", KindFunction, "show", "Blob", true},
		{"circle", KindFunction, "grow", "Blob", true},
		{"line", KindArrow, "helper", "", false},
		{"triangle", KindMethod, "paint", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.call, func(t *testing.T) {
			c := EnclosingCallable(tree, callNamed(t, tree, tt.call))
			require.NotNil(t, c)
			assert.Equal(t, tt.kind, c.Kind)
			assert.Equal(t, tt.name, c.Name)
			assert.Equal(t, tt.class, c.Class)
			assert.Equal(t, tt.method, c.IsMethod())
		})
	}

	t.Run("top level has no callable", func(t *testing.T) {
		assert.Nil(t, EnclosingCallable(tree, callNamed(t, tree, "quad")))
	})
}

func TestNamedEnclosing(t *testing.T) {
	tree := syntax.MustParse(`
class Trail {
  show() { this.pts.forEach(p => rect(p, 0, 1, 1)); }
}
function draw() { [1, 2].map(function (x) { return point(x, 0); }); }
[1].forEach(v => line(v, 0, 1, 1));
`)

	c := NamedEnclosing(tree, callNamed(t, tree, "rect"))
	require.NotNil(t, c)
	assert.Equal(t, "show", c.Name)
	assert.Equal(t, "Trail", c.Class)

	c = NamedEnclosing(tree, callNamed(t, tree, "point"))
	require.NotNil(t, c)
	assert.Equal(t, "draw", c.Name)

	assert.Nil(t, NamedEnclosing(tree, callNamed(t, tree, "line")))
	require.NotNil(t, EnclosingCallable(tree, callNamed(t, tree, "line")))
}

func TestSplit(t *testing.T) {
	t.Run("declarations", func(t *testing.T) {
		tree := syntax.MustParse(`
function setup() { createCanvas(100, 100); }
const draw = () => { background(0); };
`)
		entries := Split(tree, DefaultEntryNames())
		require.NotNil(t, entries.Setup)
		require.NotNil(t, entries.Draw)
		assert.Equal(t, "setup", entries.Setup.Name)
		assert.Equal(t, KindArrow, entries.Draw.Kind)
		assert.Len(t, entries.Scopes(), 2)
		assert.True(t, entries.Contains(callNamed(t, tree, "background")))
	})

	t.Run("global assignments", func(t *testing.T) {
		tree := syntax.MustParse(`
window.setup = function () { createCanvas(10, 10); };
draw = () => { ellipse(1, 1, 1); };
`)
		entries := Split(tree, DefaultEntryNames())
		require.NotNil(t, entries.Setup)
		require.NotNil(t, entries.Draw)
		assert.True(t, entries.Draw.Node.Contains(callNamed(t, tree, "ellipse")))
	})

	t.Run("instance mode is not an entry", func(t *testing.T) {
		tree := syntax.MustParse(`
new p5(function (p) {
  p.setup = function () { p.createCanvas(10, 10); };
  p.draw = function () { p.ellipse(1, 1, 1); };
});
`)
		entries := Split(tree, DefaultEntryNames())
		assert.Nil(t, entries.Setup)
		assert.Nil(t, entries.Draw)
		assert.Empty(t, entries.Scopes())
	})

	t.Run("missing routines", func(t *testing.T) {
		tree := syntax.MustParse(`function setup() {}`)
		entries := Split(tree, DefaultEntryNames())
		assert.NotNil(t, entries.Setup)
		assert.Nil(t, entries.Draw)
		assert.Len(t, entries.Scopes(), 1)
	})
}
