package scraper

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"time"

	"ekaraca522/dolapscraper/config"
	"ekaraca522/dolapscraper/internal/browser"
	"ekaraca522/dolapscraper/logger"
	scrapeerrors "ekaraca522/dolapscraper/pkg/errors"
	"ekaraca522/dolapscraper/services/cache"
)

const baseURL = "https://dolap.com"

// userAgents is the desktop pool one of which every fresh session adopts.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
}

// bootstrapScript runs before every document load and hides the headless
// automation flag the site's bot detection inspects.
const bootstrapScript = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined})`

// challengeMarkers identify an interstitial bot-challenge page.
var challengeMarkers = []string{"Attention Required", "cf-error"}

// FetchResult is the outcome of a successful navigation.
type FetchResult struct {
	Content  string
	Attempts int
}

// Scraper drives one browser session through category and detail pages of
// a single category. It is not safe for concurrent use; run one Scraper
// per goroutine.
type Scraper struct {
	ctx      context.Context
	cfg      *config.Config
	category string
	log      *logger.Logger

	cache      cache.CacheService
	session    browser.Session
	newSession func() (browser.Session, error)

	stats *Stats
	rnd   *rand.Rand

	// sleep is swapped out by tests that assert on backoff schedules.
	sleep func(time.Duration)
}

// New creates a scraper for one category. Start must be called before any
// page operation.
func New(ctx context.Context, cfg *config.Config, category string, cacheSvc cache.CacheService) *Scraper {
	s := &Scraper{
		ctx:      ctx,
		cfg:      cfg,
		category: category,
		log:      logger.ForScraper(category),
		cache:    cacheSvc,
		stats:    &Stats{},
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:    time.Sleep,
	}
	s.newSession = func() (browser.Session, error) {
		return browser.NewChromeSession(ctx, browser.Options{
			Headless:  cfg.Headless,
			UserAgent: userAgents[s.rnd.Intn(len(userAgents))],
			Width:     1920,
			Height:    1080,
		})
	}
	return s
}

// Start launches the browser session. Calling Start on an already started
// scraper is a no-op.
func (s *Scraper) Start() error {
	if s.session != nil {
		return nil
	}

	session, err := s.newSession()
	if err != nil {
		return scrapeerrors.New(scrapeerrors.ErrorTypeNavigation, s.category, "session start failed", err)
	}
	if err := session.Bootstrap(bootstrapScript); err != nil {
		session.Close()
		return scrapeerrors.New(scrapeerrors.ErrorTypeNavigation, s.category, "bootstrap script failed", err)
	}

	s.session = session
	s.log.Info().Msg("Browser session started")
	return nil
}

// Close tears down the browser session and logs the run counters. Safe to
// call on a scraper that never started.
func (s *Scraper) Close() {
	if s.session != nil {
		s.session.Close()
		s.session = nil
	}

	snap := s.stats.Snapshot()
	s.log.Info().
		Int64("pages_loaded", snap.PagesLoaded).
		Int64("listings_scraped", snap.ListingsScraped).
		Int64("errors", snap.Errors).
		Msg("Scraper closed")
}

// Stats returns a snapshot of the run counters.
func (s *Scraper) Stats() StatsSnapshot {
	return s.stats.Snapshot()
}

// navigate loads a page with retries. Each attempt waits for the body,
// then inspects the markup for a bot-challenge interstitial; a challenge
// gets one extra wait-and-recheck before the attempt counts as failed.
// Attempts are separated by exponentially growing pauses. On exhaustion
// the error counter is incremented exactly once and a NavigationError is
// returned.
func (s *Scraper) navigate(rawURL string) (*FetchResult, error) {
	target := rawURL
	if strings.HasPrefix(rawURL, "/") {
		target = baseURL + rawURL
	}

	var lastErr error
	for attempt := 0; attempt < s.cfg.MaxRetries; attempt++ {
		if err := s.ctx.Err(); err != nil {
			return nil, scrapeerrors.New(scrapeerrors.ErrorTypeNavigation, s.category, "navigation canceled", err)
		}
		if attempt > 0 {
			pause := time.Duration(math.Pow(s.cfg.BackoffFactor, float64(attempt)) * float64(time.Second))
			s.log.Debug().Dur("pause", pause).Int("attempt", attempt+1).Msg("Retrying navigation")
			s.sleep(pause)
		}

		content, err := s.attempt(target, attempt)
		if err != nil {
			lastErr = err
			s.log.Warn().Err(err).Str("url", target).Int("attempt", attempt+1).Msg("Navigation attempt failed")
			continue
		}

		return &FetchResult{Content: content, Attempts: attempt + 1}, nil
	}

	s.stats.AddError()
	return nil, &scrapeerrors.NavigationError{URL: target, Attempts: s.cfg.MaxRetries, Err: lastErr}
}

func (s *Scraper) attempt(target string, attempt int) (string, error) {
	if err := s.session.Load(target); err != nil {
		return "", err
	}
	if err := s.session.WaitReady(s.cfg.Timeout); err != nil {
		return "", err
	}
	s.stats.PageLoaded()

	content, err := s.session.Content()
	if err != nil {
		return "", err
	}

	marker := challengeMarker(content)
	if marker == "" {
		return content, nil
	}

	// The interstitial usually resolves itself; wait longer on each
	// attempt before giving up on this one.
	wait := 5*time.Second + time.Duration(attempt)*2*time.Second
	s.log.Warn().Str("marker", marker).Dur("wait", wait).Msg("Bot challenge detected")
	s.sleep(wait)

	content, err = s.session.Content()
	if err != nil {
		return "", err
	}
	if m := challengeMarker(content); m != "" {
		return "", &scrapeerrors.ChallengeError{URL: target, Marker: m}
	}
	return content, nil
}

func challengeMarker(content string) string {
	for _, marker := range challengeMarkers {
		if strings.Contains(content, marker) {
			return marker
		}
	}
	return ""
}

// randomDelay sleeps a uniformly random duration between the configured
// bounds. Used between page operations to pace requests.
func (s *Scraper) randomDelay() {
	min := s.cfg.DelayMin
	max := s.cfg.DelayMax
	if max <= min {
		s.sleep(min)
		return
	}
	s.sleep(min + time.Duration(s.rnd.Int63n(int64(max-min))))
}
