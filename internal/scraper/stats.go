package scraper

import "sync/atomic"

// Stats counts what one scraper run did. All methods are safe for
// concurrent use; the runner and the navigation layer both write to it.
type Stats struct {
	pagesLoaded     atomic.Int64
	listingsScraped atomic.Int64
	errors          atomic.Int64
}

// StatsSnapshot is a point-in-time copy of the counters, shaped for the
// run summary.
type StatsSnapshot struct {
	PagesLoaded     int64 `json:"pages_loaded"`
	ListingsScraped int64 `json:"listings_scraped"`
	Errors          int64 `json:"errors"`
}

// PageLoaded records one successfully loaded page.
func (s *Stats) PageLoaded() {
	s.pagesLoaded.Add(1)
}

// AddListing records one successfully scraped listing.
func (s *Stats) AddListing() {
	s.listingsScraped.Add(1)
}

// AddError records one terminal failure.
func (s *Stats) AddError() {
	s.errors.Add(1)
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		PagesLoaded:     s.pagesLoaded.Load(),
		ListingsScraped: s.listingsScraped.Load(),
		Errors:          s.errors.Load(),
	}
}
