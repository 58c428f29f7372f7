package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	again, err := Default()
	require.NoError(t, err)
	assert.Same(t, reg, again, "default registry is built once")

	t.Run("aliases share a base type", func(t *testing.T) {
		circle, ok := reg.Shape("circle")
		require.True(t, ok)
		ellipse, ok := reg.Shape("ellipse")
		require.True(t, ok)
		assert.Equal(t, ellipse.BaseType, circle.BaseType)
		assert.Equal(t, "circle", circle.Canonical)
	})

	t.Run("builders are render primitives", func(t *testing.T) {
		b, ok := reg.Builder("vertex")
		require.True(t, ok)
		assert.Equal(t, RoleAdd, b.Role)
		assert.True(t, reg.IsRenderPrimitive("vertex"))
		assert.True(t, reg.IsRenderPrimitive("rect"))
		assert.False(t, reg.IsRenderPrimitive("fill"))
		assert.False(t, reg.IsRenderPrimitive("myHelper"))
	})

	t.Run("base types", func(t *testing.T) {
		bases := reg.BaseTypes()
		assert.Contains(t, bases, "ellipse")
		assert.Contains(t, bases, "polygon")
		assert.NotContains(t, bases, "circle")
		assert.True(t, reg.IsBaseType("rect"))
	})

	t.Run("background alpha arities", func(t *testing.T) {
		bg, ok := reg.Shape("background")
		require.True(t, ok)
		assert.True(t, bg.HasAlpha(4))
		assert.True(t, bg.HasAlpha(2))
		assert.False(t, bg.HasAlpha(3))
	})

	t.Run("symbols carry values", func(t *testing.T) {
		pi, ok := reg.Symbol(Math, "PI")
		require.True(t, ok)
		require.NotNil(t, pi.Value)
		assert.InDelta(t, 3.14159, *pi.Value, 1e-4)
	})
}

func TestResolve_PriorityOrder(t *testing.T) {
	reg, err := Parse([]byte(`
environment:
  functions:
    shared: {}
  symbols:
    knob: {value: 1}
controllers:
  functions:
    shared: {}
  symbols:
    knob: {value: 2}
colors:
  functions:
    tint: {}
math:
  functions:
    tint: {}
`), "yaml")
	require.NoError(t, err)

	e, ok := reg.Resolve("shared")
	require.True(t, ok)
	assert.Equal(t, Controllers, e.Category)

	e, ok = reg.ResolveSymbol("knob")
	require.True(t, ok)
	assert.Equal(t, Controllers, e.Category)

	e, ok = reg.Resolve("tint")
	require.True(t, ok)
	assert.Equal(t, Math, e.Category)

	_, ok = reg.Resolve("nothing")
	assert.False(t, ok)
}

func TestResolveCall(t *testing.T) {
	reg, err := Parse([]byte(`
shapes:
  functions:
    ellipse: {}
    circle: {base: ellipse}
builders:
  vertex: {role: add, base: polygon}
transforms:
  functions:
    rotate: {}
environment:
  functions:
    rotate: {}
    knob: {}
controllers:
  functions:
    knob: {}
`), "yaml")
	require.NoError(t, err)

	tests := []struct {
		name string
		want Category
	}{
		{"circle", Shapes},
		{"ellipse", Shapes},
		{"polygon", Shapes},
		{"vertex", Shapes},
		{"rotate", Transforms},
		{"knob", Controllers},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, ok := reg.ResolveCall(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.want, e.Category)
		})
	}

	_, ok := reg.ResolveCall("nothing")
	assert.False(t, ok)
}

func TestLoad_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[shapes.functions.blob]
base = "ellipse"

[builders.begin]
role = "begin"
base = "polygon"

[math.symbols.E]
value = 2.718
`), 0o644))

	reg, err := Load(path)
	require.NoError(t, err)

	blob, ok := reg.Shape("blob")
	require.True(t, ok)
	assert.Equal(t, "ellipse", blob.BaseType)
	assert.True(t, reg.IsRenderPrimitive("begin"))

	e, ok := reg.ResolveSymbol("E")
	require.True(t, ok)
	assert.Equal(t, Math, e.Category)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("builders:\n  vertex: {role: middle, base: polygon}\n"), "yaml")
	assert.Error(t, err)

	_, err = Parse([]byte("builders:\n  vertex: {role: add}\n"), "yaml")
	assert.Error(t, err)

	_, err = Parse([]byte("{}"), "json")
	assert.Error(t, err)
}
