// Package browser provides the page-session implementations behind the
// harvest engine: a shared headless Chrome and a plain-HTTP colly session.
package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pbaranau/offersnap/internal/scrape"
)

// Config captures the session knobs shared by both engines.
type Config struct {
	UserAgent  string
	NavTimeout time.Duration
	DomainQPS  float64
}

// Chromedp owns one headless Chrome process; each NewPage opens a tab on it.
type Chromedp struct {
	allocatorCancel context.CancelFunc
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	domainLimiters  sync.Map
	cfg             Config
	logger          *zap.Logger
}

// NewChromedp starts and warms up the browser.
func NewChromedp(cfg Config, logger *zap.Logger) (*Chromedp, error) {
	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts,
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.UserAgent(cfg.UserAgent),
	)
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		allocatorCancel()
		browserCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	return &Chromedp{
		allocatorCancel: allocatorCancel,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		cfg:             cfg,
		logger:          logger,
	}, nil
}

// Close tears down the browser and allocator contexts.
func (b *Chromedp) Close(_ context.Context) error {
	if b == nil {
		return nil
	}
	b.browserCancel()
	b.allocatorCancel()
	return nil
}

// NewPage opens a fresh tab.
func (b *Chromedp) NewPage(_ context.Context) (scrape.Page, error) {
	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	return &chromedpPage{owner: b, tabCtx: tabCtx, cancel: cancel}, nil
}

type chromedpPage struct {
	owner  *Chromedp
	tabCtx context.Context
	cancel context.CancelFunc
}

// Navigate loads the URL with JavaScript enabled and returns the DOM
// snapshot together with the document response status. A navigation that
// produced no document response yields a nil response.
func (p *chromedpPage) Navigate(ctx context.Context, rawURL string) (*scrape.Response, error) {
	if err := p.owner.waitDomainBudget(ctx, rawURL); err != nil {
		return nil, fmt.Errorf("navigate rate limit: %w", err)
	}

	taskCtx, cancelTask := context.WithTimeout(p.tabCtx, p.owner.cfg.NavTimeout)
	defer cancelTask()

	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	meta := newResponseMeta()
	recordResponse(p.tabCtx, meta)

	var html string
	tasks := chromedp.Tasks{
		network.Enable(),
		emulation.SetUserAgentOverride(p.owner.cfg.UserAgent),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, tasks); err != nil {
		return nil, fmt.Errorf("chromedp run: %w", err)
	}

	if meta.statusCode == 0 {
		return nil, nil
	}
	return &scrape.Response{
		Status: meta.statusCode,
		Body:   []byte(html),
	}, nil
}

// Close releases the tab.
func (p *chromedpPage) Close(_ context.Context) error {
	p.cancel()
	return nil
}

type responseMeta struct {
	once       sync.Once
	statusCode int
}

func newResponseMeta() *responseMeta {
	return &responseMeta{}
}

func recordResponse(tabCtx context.Context, meta *responseMeta) {
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		resp, ok := ev.(*network.EventResponseReceived)
		if !ok || resp.Type != network.ResourceTypeDocument {
			return
		}
		meta.once.Do(func() {
			meta.statusCode = int(resp.Response.Status)
		})
	})
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}

func (b *Chromedp) waitDomainBudget(ctx context.Context, rawURL string) error {
	if b.cfg.DomainQPS <= 0 {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	host := strings.ToLower(parsed.Host)
	val, _ := b.domainLimiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(b.cfg.DomainQPS), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait limiter: %w", err)
	}
	return nil
}
