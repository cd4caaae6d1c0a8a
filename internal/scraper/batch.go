package scraper

import (
	"fmt"
	"strings"
	"time"

	"ekaraca522/dolapscraper/internal/parser"
)

// detailWaitTimeout bounds the wait for the price and engagement widgets
// on a detail page.
const detailWaitTimeout = 10 * time.Second

// progressInterval is how many listings pass between batch progress lines.
const progressInterval = 10

// RecordSink receives scraped records as they are produced.
type RecordSink interface {
	Append(record *parser.Listing) error
}

// ScrapeListing fetches and parses one product detail page. It always
// returns a record: a navigation failure yields a minimal record whose
// diagnostics name the failure, never a nil.
func (s *Scraper) ScrapeListing(rawURL string) *parser.Listing {
	s.randomDelay()

	res, err := s.navigate(rawURL)
	if err != nil {
		record := &parser.Listing{
			URL:       rawURL,
			ListingID: parser.ExtractListingID(rawURL),
		}
		record.ParseErrors = append(record.ParseErrors, fmt.Sprintf("navigation failed: %v", err))
		return record
	}

	content := s.settleListingDetails(res.Content)

	record := parser.ParseListing(content, rawURL)
	now := time.Now().UTC()
	record.ScrapedAt = &now

	s.stats.AddListing()
	if len(record.ParseErrors) > 0 {
		s.log.Warn().Str("url", rawURL).Strs("issues", record.ParseErrors).Msg("Listing parsed with gaps")
	}
	return record
}

// settleListingDetails waits for the price and engagement widgets so the
// hydrated markup, not the server shell, is what gets parsed.
func (s *Scraper) settleListingDetails(initial string) string {
	if hasListingDetails(initial) {
		return initial
	}
	return s.session.WaitFor(hasListingDetails, detailWaitTimeout)
}

func hasListingDetails(content string) bool {
	return strings.Contains(content, "TL") && strings.Contains(content, "Beğeni")
}

// ScrapeBatch scrapes every URL in order, streaming each record to the
// sink the moment it exists. One failed URL never aborts the batch, and
// the result holds exactly one record per input URL, in input order.
func (s *Scraper) ScrapeBatch(urls []string, out RecordSink) []*parser.Listing {
	records := make([]*parser.Listing, 0, len(urls))

	for i, u := range urls {
		record := s.ScrapeListing(u)
		records = append(records, record)

		if out != nil {
			if err := out.Append(record); err != nil {
				s.log.Error().Err(err).Str("url", u).Msg("Sink append failed")
			}
		}

		if (i+1)%progressInterval == 0 {
			s.log.Info().Int("scraped", i+1).Int("total", len(urls)).Msg("Batch progress")
		}
	}

	return records
}

// ScrapeCategory crawls the category and scrapes every discovered listing.
// An empty crawl returns an empty record list without starting the batch.
func (s *Scraper) ScrapeCategory(out RecordSink) ([]*parser.Listing, error) {
	urls, err := s.CrawlCategory(s.cfg.MaxPagesPerCategory)
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		s.log.Info().Msg("Crawl found no listings")
		return []*parser.Listing{}, nil
	}

	s.log.Info().Int("urls", len(urls)).Msg("Crawl complete, scraping listings")
	return s.ScrapeBatch(urls, out), nil
}
