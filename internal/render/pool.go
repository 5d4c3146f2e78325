// Package render provides a pooled chromedp browser used for JS-rendered
// custom career pages and for re-crawling such pages during maintenance.
package render

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/atsforge/internal/interfaces"
)

// Config controls pool size and per-navigation behavior.
type Config struct {
	PoolSize       int
	UserAgent      string
	NavigateTimeout time.Duration
	SettleDelay    time.Duration // time to let JS finish after navigation
}

// DefaultConfig returns sane defaults for the pool.
func DefaultConfig() Config {
	return Config{
		PoolSize:        3,
		UserAgent:       "Mozilla/5.0 (compatible; atsforge-renderer/1.0)",
		NavigateTimeout: 20 * time.Second,
		SettleDelay:     1500 * time.Millisecond,
	}
}

// Pool manages a fixed set of headless Chrome contexts, handed out
// round-robin to spread load evenly across instances.
type Pool struct {
	mu               sync.Mutex
	browsers         []context.Context
	browserCancels   []context.CancelFunc
	allocatorCancels []context.CancelFunc
	currentIndex     int
	initialized      bool
	cfg              Config
	logger           arbor.ILogger
}

// NewPool builds an uninitialized Pool; call Start to spin up browsers.
func NewPool(cfg Config, logger arbor.ILogger) *Pool {
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = DefaultConfig().PoolSize
	}
	if cfg.NavigateTimeout <= 0 {
		cfg.NavigateTimeout = DefaultConfig().NavigateTimeout
	}
	return &Pool{cfg: cfg, logger: logger}
}

// Start launches cfg.PoolSize headless browser instances. Failing to
// start any instance is an error; partial failure shrinks the pool.
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return fmt.Errorf("render pool already started")
	}

	p.browsers = make([]context.Context, 0, p.cfg.PoolSize)
	p.browserCancels = make([]context.CancelFunc, 0, p.cfg.PoolSize)
	p.allocatorCancels = make([]context.CancelFunc, 0, p.cfg.PoolSize)

	started := 0
	var lastErr error
	for i := 0; i < p.cfg.PoolSize; i++ {
		if err := p.startOne(); err != nil {
			lastErr = err
			if p.logger != nil {
				p.logger.Warn().Err(err).Int("index", i).Msg("render pool instance failed to start")
			}
			continue
		}
		started++
	}

	if started == 0 {
		return fmt.Errorf("render pool: no browser instances started: %w", lastErr)
	}

	p.cfg.PoolSize = started
	p.initialized = true
	if p.logger != nil {
		p.logger.Info().Int("pool_size", started).Msg("render pool started")
	}
	return nil
}

func (p *Pool) startOne() error {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(p.cfg.UserAgent),
	)

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	testCtx, testCancel := context.WithTimeout(browserCtx, p.cfg.NavigateTimeout)
	defer testCancel()

	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocatorCancel()
		return fmt.Errorf("browser startup test failed: %w", err)
	}

	p.browsers = append(p.browsers, browserCtx)
	p.browserCancels = append(p.browserCancels, browserCancel)
	p.allocatorCancels = append(p.allocatorCancels, allocatorCancel)
	return nil
}

// next returns the next browser context round-robin.
func (p *Pool) next() (context.Context, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized || len(p.browsers) == 0 {
		return nil, false
	}
	idx := p.currentIndex % len(p.browsers)
	p.currentIndex = (p.currentIndex + 1) % len(p.browsers)
	return p.browsers[idx], true
}

// Stop cancels every browser and allocator context.
func (p *Pool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return
	}
	for _, cancel := range p.browserCancels {
		cancel()
	}
	for _, cancel := range p.allocatorCancels {
		cancel()
	}
	p.browsers = nil
	p.browserCancels = nil
	p.allocatorCancels = nil
	p.initialized = false
}

var _ interfaces.Renderer = (*Pool)(nil)

// Render navigates to url on a pooled browser, waits SettleDelay for
// client-side JS to finish, and returns the rendered outer HTML.
func (p *Pool) Render(ctx context.Context, targetURL string) (string, error) {
	browserCtx, ok := p.next()
	if !ok {
		return "", fmt.Errorf("render pool not started")
	}

	navCtx, cancel := context.WithTimeout(browserCtx, p.cfg.NavigateTimeout)
	defer cancel()
	// A fresh tab per call keeps concurrent Render calls on the same
	// pooled browser from stepping on each other's navigation state.
	tabCtx, tabCancel := chromedp.NewContext(navCtx)
	defer tabCancel()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(targetURL),
		chromedp.Sleep(p.cfg.SettleDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("rendering %s: %w", targetURL, err)
	}
	return html, nil
}
