package crawler

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// Crawler scans a directory tree for sketch scripts.
type Crawler struct {
	ignored []string
}

// NewCrawler creates a crawler skipping the given directory names. With no
// names it skips the usual vendored and generated directories.
func NewCrawler(ignored ...string) *Crawler {
	if len(ignored) == 0 {
		ignored = []string{".git", "node_modules", "vendor", "libraries"}
	}
	return &Crawler{ignored: ignored}
}

// Scan walks root and calls onSketch for every .js file in walk order.
// Minified files are skipped. Returning an error from onSketch stops the walk.
func (c *Crawler) Scan(root string, onSketch func(path string) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip ignored directories
		if d.IsDir() {
			if path != root && c.isIgnored(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		if !strings.HasSuffix(name, ".js") || strings.HasSuffix(name, ".min.js") {
			return nil
		}
		return onSketch(path)
	})
}

// Collect returns every sketch path under root.
func (c *Crawler) Collect(root string) ([]string, error) {
	var paths []string
	err := c.Scan(root, func(path string) error {
		paths = append(paths, path)
		return nil
	})
	return paths, err
}

func (c *Crawler) isIgnored(name string) bool {
	for _, ign := range c.ignored {
		if name == ign {
			return true
		}
	}
	return false
}
