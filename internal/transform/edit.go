package transform

import (
	"fmt"
	"sort"
	"strings"
)

// Edit replaces the source bytes in [Start, End) with Text. Start == End is an
// insertion.
type Edit struct {
	Start int
	End   int
	Text  string
}

// ApplyEdits applies non-overlapping edits to src. Edits are applied from the
// highest offset down so earlier offsets stay valid; insertions sharing an
// offset keep their relative order.
func ApplyEdits(src string, edits []Edit) (string, error) {
	if len(edits) == 0 {
		return src, nil
	}

	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	for i, e := range sorted {
		if e.Start < 0 || e.End < e.Start || e.End > len(src) {
			return "", fmt.Errorf("edit [%d, %d) out of range for %d bytes", e.Start, e.End, len(src))
		}
		if i > 0 && e.Start < sorted[i-1].End {
			return "", fmt.Errorf("edit [%d, %d) overlaps [%d, %d)", e.Start, e.End, sorted[i-1].Start, sorted[i-1].End)
		}
	}

	var b strings.Builder
	b.Grow(len(src))
	out := src
	for i := len(sorted) - 1; i >= 0; i-- {
		e := sorted[i]
		b.Reset()
		b.WriteString(out[:e.Start])
		b.WriteString(e.Text)
		b.WriteString(out[e.End:])
		out = b.String()
	}
	return out, nil
}
