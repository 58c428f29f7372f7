package classify

import (
	"testing"

	"sketchscan/internal/registry"
	"sketchscan/internal/syntax"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sketchSource = `
let slider;
let pos;
function setup() {
  createCanvas(400, 400);
  slider = createSlider(0, 255, 100);
  pos = new p5.Vector(width / 2, height / 2);
}
function draw() {
  background(220, 40);
  push();
  translate(pos.x, pos.y);
  rotate(frameCount * 0.01 + PI);
  fill(slider.value());
  circle(0, 0, random(10, 20));
  beginShape();
  vertex(0, 0);
  endShape();
  pop();
  myHelper(unknownThing);
}
`

func TestClassify(t *testing.T) {
	reg, err := registry.Default()
	require.NoError(t, err)
	deps := Classify(syntax.MustParse(sketchSource), reg)

	assert.Equal(t, []string{"background", "beginShape", "circle", "endShape", "vertex"}, deps.List(registry.Shapes))
	assert.Equal(t, []string{"pop", "push", "rotate", "translate"}, deps.List(registry.Transforms))
	assert.Equal(t, []string{"fill"}, deps.List(registry.Colors))
	assert.Equal(t, []string{"PI", "random", "vector"}, deps.List(registry.Math))
	assert.Equal(t, []string{"createCanvas", "frameCount", "height", "width"}, deps.List(registry.Environment))
	assert.Equal(t, []string{"createSlider"}, deps.List(registry.Controllers))

	assert.True(t, deps.Requires.Transform)
	assert.True(t, deps.Requires.Color)
	assert.True(t, deps.Requires.Math)
	assert.Equal(t, []string{"background", "ellipse", "polygon"}, deps.RequiredShapes())

	t.Run("every base type is present", func(t *testing.T) {
		for _, base := range reg.BaseTypes() {
			_, ok := deps.Requires.Shape[base]
			assert.True(t, ok, base)
		}
		assert.Len(t, deps.Requires.Shape, len(reg.BaseTypes()))
		assert.False(t, deps.Requires.Shape["rect"])
	})
}

func TestClassify_Idempotent(t *testing.T) {
	reg, err := registry.Default()
	require.NoError(t, err)
	tree := syntax.MustParse(sketchSource)

	first := Classify(tree, reg)
	second := Classify(tree, reg)
	assert.Equal(t, first, second)
}

func TestClassify_UnresolvedNamesAreSkipped(t *testing.T) {
	reg, err := registry.Default()
	require.NoError(t, err)
	deps := Classify(syntax.MustParse(`function draw() { console.log(Date.now()); helper(); }`), reg)

	for _, cat := range registry.Categories {
		assert.Empty(t, deps.List(cat), cat)
	}
	assert.Empty(t, deps.RequiredShapes())
}

func TestClassify_Declarations(t *testing.T) {
	reg, err := registry.Default()
	require.NoError(t, err)
	deps := Classify(syntax.MustParse(`function draw(width) { let height = 3; return height; }`), reg)

	assert.Equal(t, []string{"height"}, deps.List(registry.Environment), "only the read of height counts")
}

func TestClassify_Priority(t *testing.T) {
	reg, err := registry.Parse([]byte(`
[environment.functions.knob]
[environment.symbols.level]
value = 1
[controllers.functions.knob]
[controllers.symbols.level]
value = 2
[colors.functions.shade]
[math.functions.shade]
`), "toml")
	require.NoError(t, err)

	deps := Classify(syntax.MustParse(`knob(); shade(level);`), reg)
	assert.Equal(t, []string{"knob", "level"}, deps.List(registry.Controllers))
	assert.Empty(t, deps.List(registry.Environment))
	assert.Equal(t, []string{"shade"}, deps.List(registry.Math))
	assert.Empty(t, deps.List(registry.Colors))
	assert.False(t, deps.Requires.Color)
}
