package branch

import (
	"sort"

	"sketchscan/internal/syntax"
)

// ConditionRecord is one gating condition and the arms that must run.
// Records are keyed by canonical condition text; force flags from different
// render calls are unioned, so a condition that must yield both arms ends up
// with both flags set.
type ConditionRecord struct {
	ConditionText       string
	ForceThen           bool
	ForceElse           bool
	Node                *syntax.Node   // first if statement seen with this condition
	Statements          []*syntax.Node // every if statement sharing the condition text
	AffectedRenderNames map[string]bool
}

// Both reports whether the condition must yield both arms.
func (r *ConditionRecord) Both() bool {
	return r.ForceThen && r.ForceElse
}

// RenderNames returns the affected render call names, sorted.
func (r *ConditionRecord) RenderNames() []string {
	out := make([]string, 0, len(r.AffectedRenderNames))
	for name := range r.AffectedRenderNames {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ConditionSet deduplicates records by condition text.
type ConditionSet struct {
	tree    *syntax.Tree
	records map[string]*ConditionRecord
}

// NewConditionSet creates an empty set over the given tree.
func NewConditionSet(t *syntax.Tree) *ConditionSet {
	return &ConditionSet{tree: t, records: make(map[string]*ConditionRecord)}
}

// Add merges a forcing requirement for ifStmt into the set.
func (s *ConditionSet) Add(ifStmt *syntax.Node, forceThen, forceElse bool, renderName string) *ConditionRecord {
	text := s.tree.Canonical(ifStmt.Child("condition"))
	rec, ok := s.records[text]
	if !ok {
		rec = &ConditionRecord{
			ConditionText:       text,
			Node:                ifStmt,
			AffectedRenderNames: make(map[string]bool),
		}
		s.records[text] = rec
	}

	rec.ForceThen = rec.ForceThen || forceThen
	rec.ForceElse = rec.ForceElse || forceElse
	if renderName != "" {
		rec.AffectedRenderNames[renderName] = true
	}

	known := false
	for _, st := range rec.Statements {
		if st == ifStmt {
			known = true
			break
		}
	}
	if !known {
		rec.Statements = append(rec.Statements, ifStmt)
		if ifStmt.Start < rec.Node.Start {
			rec.Node = ifStmt
		}
	}
	return rec
}

// Merge folds every record of other into s.
func (s *ConditionSet) Merge(other *ConditionSet) {
	for _, rec := range other.Records() {
		for _, st := range rec.Statements {
			merged := s.Add(st, rec.ForceThen, rec.ForceElse, "")
			for name := range rec.AffectedRenderNames {
				merged.AffectedRenderNames[name] = true
			}
		}
	}
}

// Lookup returns the record for a canonical condition text.
func (s *ConditionSet) Lookup(text string) (*ConditionRecord, bool) {
	rec, ok := s.records[text]
	return rec, ok
}

// Len returns the number of distinct conditions.
func (s *ConditionSet) Len() int {
	return len(s.records)
}

// Records returns the records in source order of their first statement.
func (s *ConditionSet) Records() []*ConditionRecord {
	out := make([]*ConditionRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Node.Start < out[j].Node.Start
	})
	return out
}
