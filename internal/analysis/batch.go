package analysis

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"sketchscan/internal/crawler"
	"sketchscan/internal/syntax"
)

// FileResult is the outcome for one sketch of a directory scan.
type FileResult struct {
	Path   string
	Report *Report
	Err    error
}

// BatchStats summarizes a directory scan.
type BatchStats struct {
	Files       int
	Analyzed    int
	ParseErrors int
	Failed      int
	Duration    time.Duration
}

// AnalyzeDir analyzes every sketch the crawler finds under root with at most
// concurrency scripts in flight. A script that fails is recorded on its
// FileResult; only walking the directory or cancellation fails the call.
// Results keep the crawler's walk order.
func (a *Analyzer) AnalyzeDir(ctx context.Context, root string, cr *crawler.Crawler, concurrency int) ([]FileResult, BatchStats, error) {
	start := time.Now()
	paths, err := cr.Collect(root)
	if err != nil {
		return nil, BatchStats{}, err
	}
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]FileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report, err := a.AnalyzeFile(gctx, path)
			results[i] = FileResult{Path: path, Report: report, Err: err}
			if err != nil {
				a.logger.Warn().Str("path", path).Err(err).Msg("sketch analysis failed")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, BatchStats{}, err
	}

	stats := BatchStats{Files: len(paths), Duration: time.Since(start)}
	for _, res := range results {
		var parseErr *syntax.ParseError
		switch {
		case res.Err == nil:
			stats.Analyzed++
		case errors.As(res.Err, &parseErr):
			stats.ParseErrors++
		default:
			stats.Failed++
		}
	}

	a.logger.Info().
		Int("files", stats.Files).
		Int("analyzed", stats.Analyzed).
		Int("parse_errors", stats.ParseErrors).
		Dur("duration", stats.Duration).
		Msg("Sketch scan complete")
	return results, stats, nil
}
