package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ekaraca522/dolapscraper/config"
	"ekaraca522/dolapscraper/internal/browser"
	"ekaraca522/dolapscraper/internal/parser"
	scrapeerrors "ekaraca522/dolapscraper/pkg/errors"
	"ekaraca522/dolapscraper/services/cache"
)

// fakeSession serves canned markup per URL and records every load.
type fakeSession struct {
	pages      map[string]string
	failURLs   map[string]bool
	loaded     []string
	current    string
	bootstraps int
	closed     int
}

func (f *fakeSession) Bootstrap(string) error {
	f.bootstraps++
	return nil
}

func (f *fakeSession) Load(url string) error {
	f.loaded = append(f.loaded, url)
	if f.failURLs[url] {
		return errors.New("net::ERR_CONNECTION_RESET")
	}
	content, ok := f.pages[url]
	if !ok {
		return fmt.Errorf("no fixture for %s", url)
	}
	f.current = content
	return nil
}

func (f *fakeSession) WaitReady(time.Duration) error { return nil }

func (f *fakeSession) Content() (string, error) { return f.current, nil }

func (f *fakeSession) WaitFor(pred func(string) bool, _ time.Duration) string {
	return f.current
}

func (f *fakeSession) ScrollThrough() {}

func (f *fakeSession) Close() { f.closed++ }

// fakeCache is an in-memory CacheService.
type fakeCache struct {
	data map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (f *fakeCache) Get(key string) ([]byte, error) {
	v, ok := f.data[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return v, nil
}

func (f *fakeCache) Set(key string, value []byte, _ time.Duration) error {
	f.data[key] = value
	return nil
}

func (f *fakeCache) Delete(key string) error {
	delete(f.data, key)
	return nil
}

// sinkRecorder captures appended records.
type sinkRecorder struct {
	records []*parser.Listing
}

func (r *sinkRecorder) Append(record *parser.Listing) error {
	r.records = append(r.records, record)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		DelayMin:            0,
		DelayMax:            0,
		MaxRetries:          3,
		BackoffFactor:       2.0,
		Timeout:             time.Second,
		MaxPagesPerCategory: 5,
		CategoryBlock:       5 * time.Minute,
	}
}

// newTestScraper wires a scraper to a fake session and records every sleep.
func newTestScraper(t *testing.T, session *fakeSession, cacheSvc cache.CacheService) (*Scraper, *[]time.Duration) {
	t.Helper()

	s := New(context.Background(), testConfig(), "kazak", cacheSvc)
	s.newSession = func() (browser.Session, error) { return session, nil }

	var sleeps []time.Duration
	s.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }

	assert.NoError(t, s.Start())
	return s, &sleeps
}

func categoryPage(ids ...string) string {
	page := "<html><body>"
	for _, id := range ids {
		page += fmt.Sprintf(`<a href="/urun/zara-bej-kazak-az-ayse-%s">item</a>`, id)
	}
	return page + "</body></html>"
}

const detailPage = `<html><body>
	<h1>Zara</h1>
	<span>249 TL</span>
	<span>Az Kullanılmış</span>
	<span>12 Beğeni</span>
	<div><a href="/profil/ayse">ayse</a> (3)</div>
</body></html>`

func TestNavigateRetriesWithGrowingBackoff(t *testing.T) {
	session := &fakeSession{
		pages:    map[string]string{},
		failURLs: map[string]bool{"https://dolap.com/kazak?sayfa=1": true},
	}
	s, sleeps := newTestScraper(t, session, nil)

	res, err := s.navigate("/kazak?sayfa=1")

	assert.Nil(t, res)
	var navErr *scrapeerrors.NavigationError
	assert.ErrorAs(t, err, &navErr)
	assert.Equal(t, 3, navErr.Attempts)
	assert.Len(t, session.loaded, 3)

	// One pause per retry, factor^attempt seconds, each strictly longer
	// than the previous.
	assert.Len(t, *sleeps, 2)
	assert.Equal(t, 2*time.Second, (*sleeps)[0])
	assert.Equal(t, 4*time.Second, (*sleeps)[1])
	assert.Greater(t, (*sleeps)[1], (*sleeps)[0])

	assert.Equal(t, int64(1), s.Stats().Errors)
}

func TestNavigatePersistentChallenge(t *testing.T) {
	session := &fakeSession{
		pages: map[string]string{
			"https://dolap.com/kazak?sayfa=1": `<html><title>Attention Required! | Cloudflare</title></html>`,
		},
	}
	s, sleeps := newTestScraper(t, session, nil)

	res, err := s.navigate("/kazak?sayfa=1")

	assert.Nil(t, res)
	var navErr *scrapeerrors.NavigationError
	assert.ErrorAs(t, err, &navErr)
	var challenge *scrapeerrors.ChallengeError
	assert.ErrorAs(t, err, &challenge)
	assert.Equal(t, "Attention Required", challenge.Marker)

	// Each attempt waits out the challenge before rechecking, longer on
	// later attempts, plus the backoff pauses between attempts.
	assert.Contains(t, *sleeps, 5*time.Second)
	assert.Contains(t, *sleeps, 7*time.Second)
	assert.Contains(t, *sleeps, 9*time.Second)

	assert.Equal(t, int64(1), s.Stats().Errors)
}

func TestCrawlCategoryStopsOnNoNewURLs(t *testing.T) {
	session := &fakeSession{
		pages: map[string]string{
			"https://dolap.com/kazak?sayfa=1": categoryPage("100000001", "100000002"),
			"https://dolap.com/kazak?sayfa=2": categoryPage("100000002", "100000003"),
			"https://dolap.com/kazak?sayfa=3": categoryPage("100000001", "100000003"),
		},
	}
	s, _ := newTestScraper(t, session, nil)

	urls, err := s.CrawlCategory(5)

	assert.NoError(t, err)
	assert.Equal(t, []string{
		"/urun/zara-bej-kazak-az-ayse-100000001",
		"/urun/zara-bej-kazak-az-ayse-100000002",
		"/urun/zara-bej-kazak-az-ayse-100000003",
	}, urls)

	// Pages 4 and 5 were never requested.
	assert.Equal(t, []string{
		"https://dolap.com/kazak?sayfa=1",
		"https://dolap.com/kazak?sayfa=2",
		"https://dolap.com/kazak?sayfa=3",
	}, session.loaded)
}

func TestCrawlCategoryKeepsURLsWhenPageFails(t *testing.T) {
	session := &fakeSession{
		pages: map[string]string{
			"https://dolap.com/kazak?sayfa=1": categoryPage("100000001", "100000002"),
		},
		failURLs: map[string]bool{"https://dolap.com/kazak?sayfa=2": true},
	}
	s, _ := newTestScraper(t, session, nil)

	urls, err := s.CrawlCategory(5)

	assert.NoError(t, err)
	assert.Len(t, urls, 2)
	assert.Equal(t, int64(1), s.Stats().Errors)
}

func TestCrawlCategorySkipsBlockedCategory(t *testing.T) {
	blockCache := newFakeCache()
	blockCache.data["dolap_block_kazak"] = []byte("2026-08-30T10:00:00Z")

	session := &fakeSession{pages: map[string]string{}}
	s, _ := newTestScraper(t, session, blockCache)

	urls, err := s.CrawlCategory(5)

	assert.Nil(t, urls)
	var scrapeErr *scrapeerrors.ScrapeError
	assert.ErrorAs(t, err, &scrapeErr)
	assert.Equal(t, scrapeerrors.ErrorTypeRateLimit, scrapeErr.Type)
	assert.Empty(t, session.loaded)
}

func TestCrawlCategoryFlagsBlockOnPersistentChallenge(t *testing.T) {
	blockCache := newFakeCache()
	session := &fakeSession{
		pages: map[string]string{
			"https://dolap.com/kazak?sayfa=1": `<html><body><div class="cf-error-details">cf-error</div></body></html>`,
		},
	}
	s, _ := newTestScraper(t, session, blockCache)

	urls, err := s.CrawlCategory(5)

	assert.NoError(t, err)
	assert.Empty(t, urls)
	assert.Contains(t, blockCache.data, "dolap_block_kazak")
}

func TestScrapeBatchSurvivesFailingURL(t *testing.T) {
	session := &fakeSession{
		pages: map[string]string{
			"https://dolap.com/urun/zara-bej-kazak-az-ayse-100000001": detailPage,
			"https://dolap.com/urun/zara-bej-kazak-az-ayse-100000003": detailPage,
		},
		failURLs: map[string]bool{"https://dolap.com/urun/zara-bej-kazak-az-ayse-100000002": true},
	}
	s, _ := newTestScraper(t, session, nil)
	sink := &sinkRecorder{}

	records := s.ScrapeBatch([]string{
		"/urun/zara-bej-kazak-az-ayse-100000001",
		"/urun/zara-bej-kazak-az-ayse-100000002",
		"/urun/zara-bej-kazak-az-ayse-100000003",
	}, sink)

	assert.Len(t, records, 3)
	assert.Len(t, sink.records, 3)

	assert.NotNil(t, records[0].ScrapedAt)
	assert.Empty(t, records[0].ParseErrors)

	assert.Len(t, records[1].ParseErrors, 1)
	assert.Contains(t, records[1].ParseErrors[0], "navigation failed")
	assert.Nil(t, records[1].ScrapedAt)
	assert.NotNil(t, records[1].ListingID)
	assert.Equal(t, "100000002", *records[1].ListingID)

	snap := s.Stats()
	assert.Equal(t, int64(1), snap.Errors)
	assert.Equal(t, int64(2), snap.ListingsScraped)
}

func TestStartIsIdempotent(t *testing.T) {
	session := &fakeSession{pages: map[string]string{}}
	s, _ := newTestScraper(t, session, nil)

	assert.NoError(t, s.Start())
	assert.NoError(t, s.Start())
	assert.Equal(t, 1, session.bootstraps)
}

func TestCloseWithoutStart(t *testing.T) {
	s := New(context.Background(), testConfig(), "kazak", nil)

	// Must not panic or touch a session that never existed.
	s.Close()
	s.Close()
}

func TestCloseTearsDownSession(t *testing.T) {
	session := &fakeSession{pages: map[string]string{}}
	s, _ := newTestScraper(t, session, nil)

	s.Close()
	s.Close()
	assert.Equal(t, 1, session.closed)
}
