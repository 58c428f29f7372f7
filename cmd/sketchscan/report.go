package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"sketchscan/internal/analysis"
	"sketchscan/internal/git"
	"sketchscan/internal/registry"
	"sketchscan/internal/sandbox"
)

func printReport(w io.Writer, r *analysis.Report, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "text", "":
		writeReport(w, r)
		return nil
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

func writeReport(w io.Writer, r *analysis.Report) {
	name := r.Path
	if name == "" {
		name = "<stdin>"
	}
	fmt.Fprintf(w, "%s  (report %s, hash %s)\n", name, r.ID, r.Hash)

	fmt.Fprintln(w, "\nDependencies")
	if d := r.Dependencies; d != nil {
		for _, cat := range registry.Categories {
			if names := d.List(cat); len(names) > 0 {
				fmt.Fprintf(w, "  %-12s %s\n", cat, strings.Join(names, ", "))
			}
		}
		if shapes := d.RequiredShapes(); len(shapes) > 0 {
			fmt.Fprintf(w, "  %-12s %s\n", "base types", strings.Join(shapes, ", "))
		}
	}

	if len(r.Conditions) > 0 {
		fmt.Fprintln(w, "\nForced conditions")
		for _, c := range r.Conditions {
			fmt.Fprintf(w, "  line %v  (%s)  %s  -> %s\n", c.Lines, c.Text, arms(c), strings.Join(c.RenderNames, ", "))
		}
	}

	if len(r.Sites) > 0 {
		fmt.Fprintln(w, "\nRender calls")
		for _, s := range r.Sites {
			fmt.Fprintf(w, "  %4d:%-3d %-14s %s\n", s.Line, s.Column, s.Name, siteScope(s))
		}
	}

	if r.Traces != nil {
		fmt.Fprintln(w, "\nDry run")
		for _, tr := range []*sandbox.Trace{r.Traces.Setup, r.Traces.Draw} {
			if tr != nil {
				writeTrace(w, tr, r.PassErrors[tr.Entry])
			}
		}
	}
	if r.SandboxError != "" {
		fmt.Fprintf(w, "\nDry run unavailable: %s\n", r.SandboxError)
	}

	for _, d := range r.Diagnostics {
		fmt.Fprintf(w, "\nnote: line %d: %s\n", d.Line, d.Message)
	}
}

func arms(c analysis.Condition) string {
	switch {
	case c.ForceThen && c.ForceElse:
		return "both arms"
	case c.ForceElse:
		return "else arm"
	default:
		return "then arm"
	}
}

func siteScope(s analysis.Site) string {
	var b strings.Builder
	switch {
	case s.Class != "" && s.Enclosing != "":
		fmt.Fprintf(&b, "in %s.%s", s.Class, s.Enclosing)
	case s.Enclosing != "":
		fmt.Fprintf(&b, "in %s", s.Enclosing)
	}
	if s.Caller != "" {
		fmt.Fprintf(&b, " via %s (line %d)", s.Caller, s.CallerLine)
	}
	return b.String()
}

func writeTrace(w io.Writer, tr *sandbox.Trace, passErr string) {
	if !tr.Found {
		fmt.Fprintf(w, "  %-6s not defined\n", tr.Entry)
		return
	}

	counts := make(map[string]int)
	for _, c := range tr.Calls {
		counts[c.Name]++
	}
	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%s x%d", n, counts[n])
	}

	alpha := ""
	if tr.HasAlphaArgument {
		alpha = "  [alpha]"
	}
	fmt.Fprintf(w, "  %-6s %d calls%s  %s\n", tr.Entry, len(tr.Calls), alpha, strings.Join(parts, ", "))
	if passErr != "" {
		fmt.Fprintf(w, "         aborted: %s\n", passErr)
	}
}

// writeImpact lists the render calls and forced conditions of a changed
// sketch that sit on changed lines.
func writeImpact(w io.Writer, change git.ChangedFile, r *analysis.Report) {
	fmt.Fprintf(w, "%s: %d changed lines\n", change.Path, len(change.Lines))
	for _, s := range r.Sites {
		if change.Touches(s.Line, s.Line) || (s.CallerLine > 0 && change.Touches(s.CallerLine, s.CallerLine)) {
			fmt.Fprintf(w, "  render  %4d %-14s %s\n", s.Line, s.Name, siteScope(s))
		}
	}
	for _, c := range r.Conditions {
		for _, line := range c.Lines {
			if change.Touches(line, line) {
				fmt.Fprintf(w, "  branch  %4d (%s) %s\n", line, c.Text, arms(c))
				break
			}
		}
	}
	if r.Traces != nil && r.Traces.Draw != nil {
		fmt.Fprintf(w, "  draw pass: %d render calls\n", len(r.Traces.Draw.Calls))
	}
}
