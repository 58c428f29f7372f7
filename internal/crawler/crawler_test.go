package crawler

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrawler_Scan(t *testing.T) {
	root := filepath.Join("testdata", "sketches")

	t.Run("default ignore list", func(t *testing.T) {
		paths, err := NewCrawler().Collect(root)
		require.NoError(t, err)

		var rel []string
		for _, p := range paths {
			r, err := filepath.Rel(root, p)
			require.NoError(t, err)
			rel = append(rel, filepath.ToSlash(r))
		}
		assert.Equal(t, []string{"bounce/sketch.js", "broken.js", "circles.js"}, rel)
	})

	t.Run("custom ignore list", func(t *testing.T) {
		paths, err := NewCrawler("bounce", "node_modules").Collect(root)
		require.NoError(t, err)
		assert.Len(t, paths, 3, "broken.js, circles.js and the non-minified library")
	})

	t.Run("callback error stops the walk", func(t *testing.T) {
		stop := errors.New("stop")
		calls := 0
		err := NewCrawler().Scan(root, func(string) error {
			calls++
			return stop
		})
		assert.ErrorIs(t, err, stop)
		assert.Equal(t, 1, calls)
	})

	t.Run("missing root", func(t *testing.T) {
		_, err := NewCrawler().Collect(filepath.Join(root, "absent"))
		assert.Error(t, err)
	})
}
