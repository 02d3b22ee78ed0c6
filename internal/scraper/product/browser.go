package product

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// PageFetcher returns the rendered HTML of a page.
type PageFetcher interface {
	FetchHTML(ctx context.Context, pageURL string) (string, error)
}

// BrowserFetcher renders pages in a shared headless Chrome. The browser is
// launched on first use and lives until Close.
type BrowserFetcher struct {
	headless  bool
	userAgent string
	timeout   time.Duration

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

func NewBrowserFetcher(headless bool, userAgent string, timeout time.Duration) *BrowserFetcher {
	return &BrowserFetcher{headless: headless, userAgent: userAgent, timeout: timeout}
}

func (f *BrowserFetcher) connect() (*rod.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser != nil {
		return f.browser, nil
	}

	l := launcher.New().Headless(f.headless)
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	f.launcher, f.browser = l, b
	return b, nil
}

// FetchHTML opens pageURL in a fresh stealth tab and returns the document
// once the load event fired.
func (f *BrowserFetcher) FetchHTML(ctx context.Context, pageURL string) (string, error) {
	b, err := f.connect()
	if err != nil {
		return "", err
	}

	page, err := stealth.Page(b)
	if err != nil {
		return "", fmt.Errorf("open page: %w", err)
	}
	defer func() { _ = page.Close() }()

	if f.userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: f.userAgent}); err != nil {
			return "", fmt.Errorf("set user agent: %w", err)
		}
	}

	p := page.Context(ctx)
	if f.timeout > 0 {
		p = p.Timeout(f.timeout)
	}
	if err := p.Navigate(pageURL); err != nil {
		return "", fmt.Errorf("navigate %s: %w", pageURL, err)
	}
	if err := p.WaitLoad(); err != nil {
		return "", fmt.Errorf("wait load %s: %w", pageURL, err)
	}

	body, err := p.HTML()
	if err != nil {
		return "", fmt.Errorf("read html %s: %w", pageURL, err)
	}
	return body, nil
}

// Close shuts the browser down if it was ever started.
func (f *BrowserFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser == nil {
		return nil
	}
	err := f.browser.Close()
	f.launcher.Kill()
	f.browser, f.launcher = nil, nil
	return err
}
