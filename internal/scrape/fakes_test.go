package scrape

import (
	"context"
	"errors"
	"sync"
	"time"
)

// fakeClock is a manual clock advanced by fakeSleeper.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeSleeper records requested delays and advances the clock instead of
// sleeping.
type fakeSleeper struct {
	clock *fakeClock

	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *fakeSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	s.sleeps = append(s.sleeps, d)
	s.mu.Unlock()
	s.clock.advance(d)
	return nil
}

func (s *fakeSleeper) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.sleeps))
	copy(out, s.sleeps)
	return out
}

// scriptedResult is one navigation outcome served by fakeBrowser.
type scriptedResult struct {
	resp *Response
	err  error
}

// fakeBrowser serves scripted results per URL, in order, and counts opened
// and closed pages.
type fakeBrowser struct {
	mu      sync.Mutex
	scripts map[string][]scriptedResult
	visits  []string
	opened  int
	closed  int
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{scripts: make(map[string][]scriptedResult)}
}

func (b *fakeBrowser) serve(url string, results ...scriptedResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scripts[url] = append(b.scripts[url], results...)
}

func (b *fakeBrowser) serveHTML(url, html string) {
	b.serve(url, scriptedResult{resp: &Response{Status: 200, Body: []byte(html)}})
}

func (b *fakeBrowser) NewPage(_ context.Context) (Page, error) {
	b.mu.Lock()
	b.opened++
	b.mu.Unlock()
	return &fakePage{browser: b}, nil
}

func (b *fakeBrowser) Close(_ context.Context) error {
	return nil
}

func (b *fakeBrowser) visited() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.visits))
	copy(out, b.visits)
	return out
}

func (b *fakeBrowser) openClosed() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opened, b.closed
}

type fakePage struct {
	browser *fakeBrowser
}

func (p *fakePage) Navigate(_ context.Context, url string) (*Response, error) {
	b := p.browser
	b.mu.Lock()
	defer b.mu.Unlock()
	b.visits = append(b.visits, url)
	script := b.scripts[url]
	if len(script) == 0 {
		return nil, errors.New("no scripted response for " + url)
	}
	next := script[0]
	if len(script) > 1 {
		b.scripts[url] = script[1:]
	}
	return next.resp, next.err
}

func (p *fakePage) Close(_ context.Context) error {
	p.browser.mu.Lock()
	defer p.browser.mu.Unlock()
	p.browser.closed++
	return nil
}
