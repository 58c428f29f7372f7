package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"sketchscan/internal/analysis"
	"sketchscan/internal/git"
	"sketchscan/internal/registry"
	"sketchscan/internal/storage"
)

var (
	analyzeFormat  string
	analyzeSave    bool
	analyzeCached  bool
	scanSave       bool
	diffDir        string
	historyLimit   int
	showFormat     string
	registryFormat string
)

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeFormat, "format", "f", "text", "Output format (text|json)")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "Store the report in the archive")
	analyzeCmd.Flags().BoolVar(&analyzeCached, "cached", false, "Reuse an archived report for identical script text")

	scanCmd.Flags().BoolVar(&scanSave, "save", true, "Store the reports in the archive")

	diffCmd.Flags().StringVar(&diffDir, "dir", ".", "Directory inside the git work tree")

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of reports to list (0 for all)")

	showCmd.Flags().StringVarP(&showFormat, "format", "f", "text", "Output format (text|json)")

	registryCmd.Flags().StringVarP(&registryFormat, "format", "f", "yaml", "Output format (yaml|json)")
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze one sketch and print its report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := loadEnv()
		if err != nil {
			return err
		}

		var store *storage.SQLiteStore
		if analyzeSave || analyzeCached {
			if store, err = e.initStore(); err != nil {
				return err
			}
			defer store.Close()
		}

		if analyzeCached {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read sketch: %w", err)
			}
			report, err := store.FindByHash(ctx, analysis.ContentHash(src))
			switch {
			case err == nil:
				e.logger.Info().Str("id", report.ID).Msg("Using archived report")
				return printReport(cmd.OutOrStdout(), report, analyzeFormat)
			case !errors.Is(err, storage.ErrNotFound):
				return err
			}
		}

		report, err := e.analyzer.AnalyzeFile(ctx, args[0])
		if err != nil {
			return err
		}
		if analyzeSave {
			if err := store.SaveReport(ctx, report); err != nil {
				return fmt.Errorf("failed to save report: %w", err)
			}
		}
		return printReport(cmd.OutOrStdout(), report, analyzeFormat)
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan [dir]",
	Short: "Analyze every sketch under a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		root := "."
		if len(args) > 0 {
			root = args[0]
		}
		e, err := loadEnv()
		if err != nil {
			return err
		}

		var store *storage.SQLiteStore
		if scanSave {
			if store, err = e.initStore(); err != nil {
				return err
			}
			defer store.Close()
		}

		results, stats, err := e.analyzer.AnalyzeDir(ctx, root, e.crawler, e.cfg.Scan.Concurrency)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}

		out := cmd.OutOrStdout()
		for _, res := range results {
			if res.Err != nil {
				fmt.Fprintf(out, "FAIL  %s: %v\n", res.Path, res.Err)
				continue
			}
			if store != nil {
				if err := store.SaveReport(ctx, res.Report); err != nil {
					return fmt.Errorf("failed to save report for %s: %w", res.Path, err)
				}
			}
			fmt.Fprintf(out, "ok    %s  %s  %d sites, %d conditions\n", res.Path, res.Report.ID, len(res.Report.Sites), len(res.Report.Conditions))
		}
		fmt.Fprintf(out, "\n%d sketches, %d analyzed, %d parse errors, %d failed in %v\n",
			stats.Files, stats.Analyzed, stats.ParseErrors, stats.Failed, stats.Duration.Round(time.Millisecond))
		return nil
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff [ref]",
	Short: "Re-analyze sketches changed since a git ref and show affected render calls",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ref := "HEAD"
		if len(args) > 0 {
			ref = args[0]
		}
		e, err := loadEnv()
		if err != nil {
			return err
		}

		top, err := git.Toplevel(ctx, diffDir)
		if err != nil {
			return err
		}
		changes, err := git.ChangedSketches(ctx, top, ref)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(changes) == 0 {
			fmt.Fprintln(out, "No sketch changes detected.")
			return nil
		}
		for _, change := range changes {
			if change.Deleted {
				fmt.Fprintf(out, "%s: deleted\n", change.Path)
				continue
			}
			report, err := e.analyzer.AnalyzeFile(ctx, filepath.Join(top, change.Path))
			if err != nil {
				e.logger.Warn().Str("path", change.Path).Err(err).Msg("changed sketch analysis failed")
				fmt.Fprintf(out, "%s: %v\n", change.Path, err)
				continue
			}
			writeImpact(out, change, report)
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived reports, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		store, err := e.initStore()
		if err != nil {
			return err
		}
		defer store.Close()

		list, err := store.ListReports(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, s := range list {
			fmt.Fprintf(out, "%s  %s  %s  %-40s  sites=%d conditions=%d pass_errors=%d\n",
				s.ID, s.CreatedAt.Local().Format("2006-01-02 15:04:05"), s.Hash, s.Path, s.Sites, s.Conditions, s.PassErrors)
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print an archived report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		store, err := e.initStore()
		if err != nil {
			return err
		}
		defer store.Close()

		report, err := store.GetReport(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		return printReport(cmd.OutOrStdout(), report, showFormat)
	},
}

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Print the effective drawing API registry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		return dumpRegistry(cmd.OutOrStdout(), e.reg, registryFormat)
	},
}

type registryDump struct {
	BaseTypes  []string                                       `yaml:"base_types" json:"base_types"`
	Functions  map[registry.Category]map[string]registry.Entry `yaml:"functions" json:"functions"`
	Symbols    map[registry.Category]map[string]registry.Entry `yaml:"symbols" json:"symbols"`
	Namespaces map[registry.Category]map[string]registry.Entry `yaml:"namespaces" json:"namespaces"`
}

func dumpRegistry(w io.Writer, reg *registry.Registry, format string) error {
	group := func(entries []registry.Entry) map[registry.Category]map[string]registry.Entry {
		out := make(map[registry.Category]map[string]registry.Entry)
		for _, e := range entries {
			if out[e.Category] == nil {
				out[e.Category] = make(map[string]registry.Entry)
			}
			out[e.Category][e.Name] = e
		}
		return out
	}
	dump := registryDump{
		BaseTypes:  reg.BaseTypes(),
		Functions:  group(reg.Functions()),
		Symbols:    group(reg.Symbols()),
		Namespaces: group(reg.Namespaces()),
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(dump)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(dump)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}
