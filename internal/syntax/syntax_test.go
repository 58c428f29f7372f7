package syntax

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ParentLinks(t *testing.T) {
	tree, err := Parse(context.Background(), []byte(`function draw() { if (x > 0) { ellipse(1, 2, 3); } }`))
	require.NoError(t, err)
	require.NotNil(t, tree.Root)
	assert.Nil(t, tree.Root.Parent)

	calls := Find(tree.Root, "call_expression")
	require.Len(t, calls, 1)
	call := calls[0]
	assert.Equal(t, "ellipse", tree.Callee(call))

	t.Run("every child points back to its parent", func(t *testing.T) {
		Inspect(tree.Root, func(n *Node) bool {
			for _, c := range n.Children {
				assert.Same(t, n, c.Parent)
			}
			return true
		})
	})

	t.Run("fields are attached", func(t *testing.T) {
		ifs := Find(tree.Root, "if_statement")
		require.Len(t, ifs, 1)
		cond := ifs[0].Child("condition")
		require.NotNil(t, cond)
		assert.Equal(t, "(x > 0)", tree.Text(cond))
		assert.True(t, ifs[0].Child("consequence").Contains(call))
		assert.Nil(t, ifs[0].Child("alternative"))
	})

	t.Run("upward walk reaches the function", func(t *testing.T) {
		var fn *Node
		for cur := call; cur != nil; cur = cur.Parent {
			if cur.IsFunctionLike() {
				fn = cur
				break
			}
		}
		require.NotNil(t, fn)
		assert.Equal(t, "draw", tree.Text(fn.Child("name")))
	})
}

func TestParse_SyntaxError(t *testing.T) {
	_, err := Parse(context.Background(), []byte("function draw() {\n  ellipse(1, 2,\n}"))
	require.Error(t, err)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.GreaterOrEqual(t, perr.Line, 1)
	assert.Contains(t, perr.Error(), "syntax error")
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{"whitespace", "if (a&&b) {}", "if (a && b) {}"},
		{"operand order", "if (a && b) {}", "if (b && a) {}"},
		{"equality order", "if (x === 1) {}", "if (1===x) {}"},
		{"extra parens", "if ((x > 0)) {}", "if (x>0) {}"},
		{"member calls", "if (this.on(1,2)) {}", "if (this.on( 1, 2 )) {}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := MustParse(tt.a)
			tb := MustParse(tt.b)
			ca := ta.Canonical(Find(ta.Root, "if_statement")[0].Child("condition"))
			cb := tb.Canonical(Find(tb.Root, "if_statement")[0].Child("condition"))
			assert.Equal(t, ca, cb)
		})
	}

	t.Run("ordering is kept for non-commutative operators", func(t *testing.T) {
		ta := MustParse("if (a < b) {}")
		tb := MustParse("if (b < a) {}")
		ca := ta.Canonical(Find(ta.Root, "if_statement")[0].Child("condition"))
		cb := tb.Canonical(Find(tb.Root, "if_statement")[0].Child("condition"))
		assert.NotEqual(t, ca, cb)
	})
}
