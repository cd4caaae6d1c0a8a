package worker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ekaraca522/dolapscraper/config"
	"ekaraca522/dolapscraper/internal/parser"
	"ekaraca522/dolapscraper/internal/scraper"
)

type fakeScraper struct {
	category string
	records  []*parser.Listing
	startErr error
	closed   bool
}

func (f *fakeScraper) Start() error { return f.startErr }

func (f *fakeScraper) Close() { f.closed = true }

func (f *fakeScraper) ScrapeCategory(out scraper.RecordSink) ([]*parser.Listing, error) {
	for _, r := range f.records {
		if err := out.Append(r); err != nil {
			return nil, err
		}
	}
	return f.records, nil
}

func (f *fakeScraper) Stats() scraper.StatsSnapshot {
	return scraper.StatsSnapshot{ListingsScraped: int64(len(f.records))}
}

func strPtr(s string) *string { return &s }

func record(url string) *parser.Listing {
	now := time.Now().UTC()
	return &parser.Listing{URL: url, ListingID: strPtr("100000001"), ScrapedAt: &now}
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Categories: []string{"kazak", "elbise"},
		OutputDir:  t.TempDir(),
		CohortID:   "20260830",
	}
}

func TestRunWritesRecordsAndSummary(t *testing.T) {
	cfg := testConfig(t)
	scrapers := map[string]*fakeScraper{
		"kazak":  {category: "kazak", records: []*parser.Listing{record("/urun/a-1"), record("/urun/a-2")}},
		"elbise": {category: "elbise", records: []*parser.Listing{record("/urun/b-1")}},
	}

	w := New(cfg, nil)
	w.newScraper = func(_ context.Context, category string) CategoryScraper {
		return scrapers[category]
	}

	assert.NoError(t, w.Run(context.Background()))

	outDir := filepath.Join(cfg.OutputDir, "cohort_20260830")

	for category, count := range map[string]int{"kazak": 2, "elbise": 1} {
		data, err := os.ReadFile(filepath.Join(outDir, category+".jsonl"))
		assert.NoError(t, err)
		assert.Equal(t, count, lineCount(data), category)
		assert.True(t, scrapers[category].closed, category)
	}

	data, err := os.ReadFile(filepath.Join(outDir, "meta.json"))
	assert.NoError(t, err)

	var summary map[string]interface{}
	assert.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, "20260830", summary["cohort_id"])

	categories := summary["categories"].([]interface{})
	assert.Len(t, categories, 2)
	first := categories[0].(map[string]interface{})
	assert.Equal(t, "kazak", first["category"])
	assert.Equal(t, 2.0, first["records"])
	assert.NotContains(t, first, "error")

	// The resolved configuration is embedded for reproducibility.
	assert.Contains(t, summary, "config")
}

func TestRunReportsFailedCategory(t *testing.T) {
	cfg := testConfig(t)

	w := New(cfg, nil)
	w.newScraper = func(_ context.Context, category string) CategoryScraper {
		if category == "kazak" {
			return &fakeScraper{category: category, startErr: errors.New("chrome not found")}
		}
		return &fakeScraper{category: category, records: []*parser.Listing{record("/urun/b-1")}}
	}

	assert.NoError(t, w.Run(context.Background()))

	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, "cohort_20260830", "meta.json"))
	assert.NoError(t, err)

	var summary struct {
		Categories []struct {
			Category string `json:"category"`
			Records  int    `json:"records"`
			Error    string `json:"error"`
		} `json:"categories"`
	}
	assert.NoError(t, json.Unmarshal(data, &summary))

	assert.Equal(t, "kazak", summary.Categories[0].Category)
	assert.Contains(t, summary.Categories[0].Error, "chrome not found")
	assert.Equal(t, "elbise", summary.Categories[1].Category)
	assert.Equal(t, 1, summary.Categories[1].Records)
	assert.Empty(t, summary.Categories[1].Error)
}

func lineCount(data []byte) int {
	count := 0
	for _, b := range data {
		if b == '\n' {
			count++
		}
	}
	return count
}
