package browser

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"ekaraca522/dolapscraper/logger"
)

// Session is the capability surface the scraper needs from one browser tab.
// Production sessions run on headless Chrome; tests substitute fixtures.
type Session interface {
	// Bootstrap registers a script evaluated before every document loads.
	Bootstrap(script string) error

	// Load performs a single navigation attempt without retry logic.
	Load(url string) error

	// WaitReady blocks until the body element is present, bounded by timeout.
	WaitReady(timeout time.Duration) error

	// Content returns the current fully rendered markup.
	Content() (string, error)

	// WaitFor polls the rendered content until pred is satisfied or the
	// timeout elapses, returning the latest content read either way.
	WaitFor(pred func(content string) bool, timeout time.Duration) string

	// ScrollThrough fires scripted scroll events with short pauses so
	// lazy-loaded content renders.
	ScrollThrough()

	// Close tears the tab and browser process down.
	Close()
}

// Options configure a Chrome session.
type Options struct {
	Headless  bool
	UserAgent string
	Width     int
	Height    int
}

const contentPollInterval = 500 * time.Millisecond

type chromeSession struct {
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	log         *logger.Logger
}

// NewChromeSession launches headless Chrome and opens one tab bound to ctx.
func NewChromeSession(ctx context.Context, opts Options) (Session, error) {
	flags := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.WindowSize(opts.Width, opts.Height),
		chromedp.UserAgent(opts.UserAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, flags...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// Run a no-op task to force the browser process to start now, so a
	// broken Chrome install fails Start instead of the first navigation.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, err
	}

	return &chromeSession{
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		log:         logger.ForBrowser(),
	}, nil
}

func (s *chromeSession) Bootstrap(script string) error {
	return chromedp.Run(s.tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx)
		return err
	}))
}

func (s *chromeSession) Load(url string) error {
	return chromedp.Run(s.tabCtx, chromedp.Navigate(url))
}

func (s *chromeSession) WaitReady(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(s.tabCtx, timeout)
	defer cancel()
	return chromedp.Run(ctx, chromedp.WaitReady("body", chromedp.ByQuery))
}

func (s *chromeSession) Content() (string, error) {
	var html string
	err := chromedp.Run(s.tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	if err != nil {
		return "", err
	}
	return html, nil
}

func (s *chromeSession) WaitFor(pred func(content string) bool, timeout time.Duration) string {
	deadline := time.Now().Add(timeout)
	var latest string
	for {
		content, err := s.Content()
		if err == nil {
			latest = content
			if pred(content) {
				return latest
			}
		}
		if time.Now().After(deadline) {
			s.log.Debug().Msg("content condition not met within timeout")
			return latest
		}
		select {
		case <-s.tabCtx.Done():
			return latest
		case <-time.After(contentPollInterval):
		}
	}
}

func (s *chromeSession) ScrollThrough() {
	err := chromedp.Run(s.tabCtx,
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight);`, nil),
		chromedp.Sleep(1500*time.Millisecond),
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight / 2);`, nil),
		chromedp.Sleep(time.Second),
	)
	if err != nil {
		s.log.Debug().Err(err).Msg("scripted scroll failed")
	}
}

func (s *chromeSession) Close() {
	s.tabCancel()
	s.allocCancel()
}
