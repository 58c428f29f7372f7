package analysis

import (
	"sort"
	"time"

	"sketchscan/internal/branch"
	"sketchscan/internal/classify"
	"sketchscan/internal/collector"
	"sketchscan/internal/sandbox"
	"sketchscan/internal/sketch"
	"sketchscan/internal/syntax"
)

// Report is the outcome of analyzing one script.
type Report struct {
	ID        string            `json:"id"`
	Path      string            `json:"path,omitempty"`
	Hash      string            `json:"hash"`
	CreatedAt time.Time         `json:"created_at"`
	Entries   sketch.EntryNames `json:"entries"`

	Dependencies *classify.DependencySet `json:"dependencies"`
	Sites        []Site                  `json:"sites"`
	Conditions   []Condition             `json:"conditions"`
	ForcedSource string                  `json:"forced_source"`
	Traces       *sandbox.Traces         `json:"traces,omitempty"`
	PassErrors   map[string]string       `json:"pass_errors,omitempty"`
	SandboxError string                  `json:"sandbox_error,omitempty"`

	Diagnostics []collector.Diagnostic `json:"diagnostics"`
	Stages      []StageResult          `json:"stages"`
}

// Site summarizes one render call site.
type Site struct {
	Name          string `json:"name"`
	Line          int    `json:"line"`
	Column        int    `json:"column"`
	Enclosing     string `json:"enclosing,omitempty"`
	Class         string `json:"class,omitempty"`
	Caller        string `json:"caller,omitempty"`
	CallerLine    int    `json:"caller_line,omitempty"`
	CallerInEntry bool   `json:"caller_in_entry,omitempty"`
}

// Condition summarizes one forced condition.
type Condition struct {
	Text        string   `json:"text"`
	ForceThen   bool     `json:"force_then"`
	ForceElse   bool     `json:"force_else"`
	Lines       []int    `json:"lines"`
	RenderNames []string `json:"render_names"`
}

func summarizeSites(t *syntax.Tree, sites []*collector.RenderCallSite) []Site {
	out := make([]Site, 0, len(sites))
	for _, s := range sites {
		site := Site{Name: s.Name, Line: s.Node.Line, Column: s.Node.Column}
		if s.Boundary != nil {
			site.Enclosing = s.Boundary.Name
			site.Class = s.Boundary.Class
		}
		if c := s.CallChain; c != nil {
			if c.ClassName != "" {
				site.Class = c.ClassName
			}
			if c.CallerNode != nil {
				site.Caller = t.Text(c.CallerNode)
				site.CallerLine = c.CallerNode.Line
				site.CallerInEntry = c.CallerIsInEntryScope
			}
		}
		out = append(out, site)
	}
	return out
}

func summarizeConditions(set *branch.ConditionSet) []Condition {
	recs := set.Records()
	out := make([]Condition, 0, len(recs))
	for _, rec := range recs {
		lines := make([]int, 0, len(rec.Statements))
		for _, st := range rec.Statements {
			lines = append(lines, st.Line)
		}
		sort.Ints(lines)
		out = append(out, Condition{
			Text:        rec.ConditionText,
			ForceThen:   rec.ForceThen,
			ForceElse:   rec.ForceElse,
			Lines:       lines,
			RenderNames: rec.RenderNames(),
		})
	}
	return out
}
