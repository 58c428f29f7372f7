package git

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ChangedFile is one file of a diff with the line numbers it touches in the
// new version.
type ChangedFile struct {
	Path    string
	Lines   []int
	Deleted bool
}

// Touches reports whether any changed line falls in [from, to].
func (c ChangedFile) Touches(from, to int) bool {
	i := sort.SearchInts(c.Lines, from)
	return i < len(c.Lines) && c.Lines[i] <= to
}

// ChangedSketches runs git diff in dir against baseRef and returns the changed
// script files, paths relative to the repository root.
func ChangedSketches(ctx context.Context, dir, baseRef string) ([]ChangedFile, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", dir, "diff", "--no-color", "-U0", baseRef, "--", "*.js")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git diff failed: %w", err)
	}

	return parseDiff(output), nil
}

// Toplevel returns the root of the work tree containing dir.
func Toplevel(ctx context.Context, dir string) (string, error) {
	out, err := exec.CommandContext(ctx, "git", "-C", dir, "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return "", fmt.Errorf("not a git work tree: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// @@ -oldStart,oldLen +newStart,newLen @@
var hunkHeader = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+(\d+)(?:,(\d+))? @@`)

func parseDiff(output []byte) []ChangedFile {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var changes []ChangedFile
	var current *ChangedFile
	flush := func() {
		if current != nil {
			sort.Ints(current.Lines)
			changes = append(changes, *current)
		}
	}

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "diff --git "):
			flush()
			current = nil
			parts := strings.Fields(line)
			if len(parts) >= 4 {
				current = &ChangedFile{Path: strings.TrimPrefix(parts[3], "b/"), Lines: []int{}}
			}
		case current == nil:
		case line == "+++ /dev/null":
			current.Deleted = true
		case strings.HasPrefix(line, "@@"):
			m := hunkHeader.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			start, _ := strconv.Atoi(m[1])
			count := 1
			if m[2] != "" {
				count, _ = strconv.Atoi(m[2])
			}
			// pure deletions leave no new lines; mark the line they follow
			if count == 0 {
				if start > 0 {
					current.Lines = append(current.Lines, start)
				}
				continue
			}
			for i := 0; i < count; i++ {
				current.Lines = append(current.Lines, start+i)
			}
		}
	}
	flush()

	out := changes[:0]
	for _, c := range changes {
		if path.Ext(c.Path) == ".js" {
			out = append(out, c)
		}
	}
	return out
}
