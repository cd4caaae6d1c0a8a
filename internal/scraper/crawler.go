package scraper

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"ekaraca522/dolapscraper/internal/parser"
	scrapeerrors "ekaraca522/dolapscraper/pkg/errors"
	"ekaraca522/dolapscraper/services/cache"
)

// productWaitTimeout bounds the wait for product links after a category
// page navigation.
const productWaitTimeout = 10 * time.Second

// blockKeyPrefix namespaces the per-category block flags in the shared cache.
const blockKeyPrefix = "dolap_block_"

// CrawlCategory walks the category's paginated pages and collects unique
// detail URLs in discovery order. Pagination stops at maxPages, when a page
// contributes no URL not already seen, or when a page fails to load; a
// failed page never discards what earlier pages collected. A category
// flagged as blocked in the cache is skipped outright, and a persistent
// bot challenge flags it for the configured block window.
func (s *Scraper) CrawlCategory(maxPages int) ([]string, error) {
	if s.isBlocked() {
		s.log.Warn().Msg("Category is block-flagged, skipping crawl")
		return nil, scrapeerrors.NewRateLimit(s.category, s.cfg.CategoryBlock)
	}

	limit := maxPages
	if limit <= 0 || limit > s.cfg.MaxPagesPerCategory {
		limit = s.cfg.MaxPagesPerCategory
	}

	seen := make(map[string]struct{})
	urls := []string{}

	for page := 1; page <= limit; page++ {
		pageURL := fmt.Sprintf("%s/%s?sayfa=%d", baseURL, s.category, page)

		res, err := s.navigate(pageURL)
		if err != nil {
			var challenge *scrapeerrors.ChallengeError
			if errors.As(err, &challenge) {
				s.markBlocked()
			}
			s.log.Warn().Err(err).Int("page", page).Msg("Category page failed, keeping collected URLs")
			break
		}

		content := s.settleProductGrid(res.Content)

		added := 0
		for _, u := range parser.ExtractListingURLs(content) {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			urls = append(urls, u)
			added++
		}

		s.log.Info().Int("page", page).Int("new_urls", added).Int("total", len(urls)).Msg("Category page crawled")

		if added == 0 {
			break
		}
		if page < limit {
			s.randomDelay()
		}
	}

	return urls, nil
}

// settleProductGrid gives a freshly navigated category page time to render
// its product links, then scrolls so lazy-loaded cards appear, and returns
// the settled markup.
func (s *Scraper) settleProductGrid(initial string) string {
	content := initial
	if !strings.Contains(content, parser.DetailPathMarker) {
		content = s.session.WaitFor(func(c string) bool {
			return strings.Contains(c, parser.DetailPathMarker)
		}, productWaitTimeout)
	}

	s.session.ScrollThrough()
	if c, err := s.session.Content(); err == nil && c != "" {
		content = c
	}
	return content
}

func (s *Scraper) blockKey() string {
	return blockKeyPrefix + s.category
}

func (s *Scraper) isBlocked() bool {
	if s.cache == nil {
		return false
	}
	_, err := s.cache.Get(s.blockKey())
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		s.log.Warn().Err(err).Msg("Block flag lookup failed, assuming not blocked")
	}
	return err == nil
}

func (s *Scraper) markBlocked() {
	if s.cache == nil {
		return
	}
	value := []byte(time.Now().UTC().Format(time.RFC3339))
	if err := s.cache.Set(s.blockKey(), value, s.cfg.CategoryBlock); err != nil {
		s.log.Warn().Err(err).Msg("Failed to set category block flag")
		return
	}
	s.log.Warn().Dur("window", s.cfg.CategoryBlock).Msg("Category block-flagged after persistent challenge")
}
