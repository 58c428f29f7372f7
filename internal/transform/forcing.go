package transform

import (
	"fmt"

	"sketchscan/internal/branch"
	"sketchscan/internal/syntax"
)

// ApplyForcing rewrites src so every recorded condition takes its forced arm.
// A condition forced both ways with an else arm is split: the test becomes
// `true` and `else` becomes an independent `if (true)`, so both arms run one
// after the other. The records must come from a tree parsed from src.
func ApplyForcing(src string, records []*branch.ConditionRecord) (string, error) {
	edits, err := PlanEdits(records)
	if err != nil {
		return "", err
	}
	out, err := ApplyEdits(src, edits)
	if err != nil {
		return "", fmt.Errorf("failed to apply branch forcing: %w", err)
	}
	return out, nil
}

// PlanEdits computes the text edits for the given records without applying them.
func PlanEdits(records []*branch.ConditionRecord) ([]Edit, error) {
	split := make(map[*syntax.Node]bool)
	for _, rec := range records {
		if !rec.Both() {
			continue
		}
		for _, st := range rec.Statements {
			if st.Child("alternative") != nil {
				split[st] = true
			}
		}
	}

	var edits []Edit
	for _, rec := range records {
		for _, st := range rec.Statements {
			cond := st.Child("condition")
			if cond == nil {
				return nil, fmt.Errorf("if statement at line %d has no condition", st.Line)
			}

			if !split[st] {
				edits = append(edits, Edit{Start: cond.Start, End: cond.End, Text: literal(rec.ForceThen)})
				continue
			}

			edits = append(edits, Edit{Start: cond.Start, End: cond.End, Text: "(true)"})
			clause := st.Child("alternative")
			elseTok := clause.Token("else")
			if elseTok == nil {
				return nil, fmt.Errorf("else clause at line %d has no else keyword", clause.Line)
			}
			if body := clause.FirstNamed(); body != nil && body.Type == "if_statement" {
				// else if: the inner if stands alone and keeps its own record
				edits = append(edits, Edit{Start: elseTok.Start, End: elseTok.End})
			} else {
				edits = append(edits, Edit{Start: elseTok.Start, End: elseTok.End, Text: "if (true)"})
			}

			if needsBraces(st, split) {
				edits = append(edits,
					Edit{Start: st.Start, End: st.Start, Text: "{ "},
					Edit{Start: st.End, End: st.End, Text: " }"},
				)
			}
		}
	}
	return edits, nil
}

// needsBraces reports whether a split statement must be wrapped to stay a
// single statement in its position, e.g. the body of a brace-less loop.
func needsBraces(st *syntax.Node, split map[*syntax.Node]bool) bool {
	parent := st.Parent
	switch {
	case parent == nil || parent.IsBlockLike():
		return false
	case parent.Type == "else_clause" && parent.Parent != nil && split[parent.Parent]:
		// the outer else is dropped and this if becomes its sibling, inside
		// whatever braces the outer statement gets
		return false
	}
	return true
}

func literal(v bool) string {
	if v {
		return "(true)"
	}
	return "(false)"
}
