package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ekaraca522/dolapscraper/config"
	"ekaraca522/dolapscraper/internal/parser"
	"ekaraca522/dolapscraper/internal/scraper"
	"ekaraca522/dolapscraper/logger"
	scrapeerrors "ekaraca522/dolapscraper/pkg/errors"
	"ekaraca522/dolapscraper/services/cache"
	"ekaraca522/dolapscraper/services/sink"
)

// CategoryScraper is what the worker drives per category. Production runs
// use scraper.Scraper; tests substitute fakes.
type CategoryScraper interface {
	Start() error
	Close()
	ScrapeCategory(out scraper.RecordSink) ([]*parser.Listing, error)
	Stats() scraper.StatsSnapshot
}

// Worker runs one scrape cohort: every configured category gets its own
// browser session and goroutine, records stream into per-category JSONL
// files (and the Redis stream when configured), and a single summary file
// is written once every category has finished.
type Worker struct {
	cfg   *config.Config
	log   *logger.Logger
	cache cache.CacheService

	newScraper func(ctx context.Context, category string) CategoryScraper
}

// New creates a worker.
func New(cfg *config.Config, cacheSvc cache.CacheService) *Worker {
	w := &Worker{
		cfg:   cfg,
		log:   logger.ForWorker(),
		cache: cacheSvc,
	}
	w.newScraper = func(ctx context.Context, category string) CategoryScraper {
		return scraper.New(ctx, cfg, category, cacheSvc)
	}
	return w
}

// categoryResult summarizes one category's outcome for the run summary.
type categoryResult struct {
	Category   string                `json:"category"`
	Records    int                   `json:"records"`
	OutputFile string                `json:"output_file"`
	Error      string                `json:"error,omitempty"`
	Stats      scraper.StatsSnapshot `json:"stats"`
}

// runSummary is the meta.json document written at the end of a run.
type runSummary struct {
	CohortID        string           `json:"cohort_id"`
	StartedAt       time.Time        `json:"started_at"`
	FinishedAt      time.Time        `json:"finished_at"`
	DurationSeconds float64          `json:"duration_seconds"`
	Categories      []categoryResult `json:"categories"`
	Config          *config.Config   `json:"config"`
}

// Run scrapes every configured category concurrently and writes the run
// summary. A category that fails is reported in the summary; it does not
// abort the others.
func (w *Worker) Run(ctx context.Context) error {
	outDir := filepath.Join(w.cfg.OutputDir, "cohort_"+w.cfg.CohortID)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return scrapeerrors.NewSink("", "create cohort directory", err)
	}

	started := time.Now().UTC()
	w.log.Info().
		Str("cohort", w.cfg.CohortID).
		Strs("categories", w.cfg.Categories).
		Str("output", outDir).
		Msg("Run started")

	results := make([]categoryResult, len(w.cfg.Categories))
	var wg sync.WaitGroup
	for i, category := range w.cfg.Categories {
		wg.Add(1)
		go func(i int, category string) {
			defer wg.Done()
			results[i] = w.runCategory(ctx, category, outDir)
		}(i, category)
	}
	wg.Wait()

	finished := time.Now().UTC()
	summary := runSummary{
		CohortID:        w.cfg.CohortID,
		StartedAt:       started,
		FinishedAt:      finished,
		DurationSeconds: finished.Sub(started).Seconds(),
		Categories:      results,
		Config:          w.cfg,
	}
	if err := writeSummary(filepath.Join(outDir, "meta.json"), summary); err != nil {
		return err
	}

	w.log.Info().
		Float64("duration_seconds", summary.DurationSeconds).
		Msg("Run finished")
	return nil
}

func (w *Worker) runCategory(ctx context.Context, category, outDir string) categoryResult {
	result := categoryResult{Category: category}
	log := w.log.WithField("category", category)

	outFile := filepath.Join(outDir, category+".jsonl")
	result.OutputFile = outFile

	out, err := w.buildSink(outFile)
	if err != nil {
		log.WithError(err).Error().Msg("Sink setup failed")
		result.Error = err.Error()
		return result
	}
	defer out.Close()

	s := w.newScraper(ctx, category)
	if err := s.Start(); err != nil {
		log.WithError(err).Error().Msg("Scraper start failed")
		result.Error = err.Error()
		return result
	}
	defer s.Close()

	records, err := s.ScrapeCategory(out)
	result.Stats = s.Stats()
	if err != nil {
		log.WithError(err).Error().Msg("Category scrape failed")
		result.Error = err.Error()
		return result
	}

	result.Records = len(records)
	log.Info().Int("records", len(records)).Msg("Category complete")
	return result
}

// buildSink composes the per-category output: always a JSONL file, plus
// the Redis stream when one is configured.
func (w *Worker) buildSink(path string) (sink.Sink, error) {
	jsonl, err := sink.NewJSONLSink(path)
	if err != nil {
		return nil, err
	}
	if !w.cfg.RedisEnabled() {
		return jsonl, nil
	}

	stream, err := sink.NewRedisStreamSink(
		w.cfg.RedisAddr, w.cfg.RedisDB, w.cfg.RedisStream, w.cfg.RedisStreamMaxLen)
	if err != nil {
		jsonl.Close()
		return nil, fmt.Errorf("redis sink: %w", err)
	}
	return sink.NewFanout(jsonl, stream), nil
}

func writeSummary(path string, summary runSummary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return scrapeerrors.NewSink("", "marshal run summary", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return scrapeerrors.NewSink("", "write run summary", err)
	}
	return nil
}
