package browser

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/pbaranau/offersnap/internal/scrape"
)

// Colly is the plain-HTTP session for sites that render server-side; it
// satisfies the same Browser contract as the headless engine.
type Colly struct {
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// NewColly constructs the collector-backed session. transport may be nil;
// tests inject a mock one.
func NewColly(cfg Config, transport http.RoundTripper, logger *zap.Logger) (*Colly, error) {
	base := colly.NewCollector(
		colly.Async(true),
		colly.UserAgent(cfg.UserAgent),
	)
	// Retry loops re-visit the same URL.
	base.AllowURLRevisit = true
	if transport == nil {
		transport = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          128,
			MaxIdleConnsPerHost:   32,
			IdleConnTimeout:       30 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: cfg.NavTimeout,
			ForceAttemptHTTP2:     true,
		}
	}
	base.WithTransport(transport)
	base.SetRequestTimeout(cfg.NavTimeout)

	return &Colly{
		baseCollector: base,
		logger:        logger,
	}, nil
}

// NewPage clones the base collector; each clone handles one navigation.
func (c *Colly) NewPage(_ context.Context) (scrape.Page, error) {
	return &collyPage{collector: c.baseCollector.Clone()}, nil
}

// Close is a no-op; collector clones hold no long-lived resources.
func (c *Colly) Close(_ context.Context) error {
	return nil
}

type collyPage struct {
	collector *colly.Collector
}

type navResult struct {
	resp *scrape.Response
	err  error
}

// Navigate fetches the URL. Non-200 statuses come back as responses so the
// loader can classify them; transport failures come back as errors.
func (p *collyPage) Navigate(ctx context.Context, rawURL string) (*scrape.Response, error) {
	resultCh := make(chan navResult, 1)
	var once sync.Once
	send := func(res navResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	p.collector.OnResponse(func(r *colly.Response) {
		send(navResult{resp: &scrape.Response{
			Status: r.StatusCode,
			Body:   append([]byte{}, r.Body...),
		}})
	})

	p.collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			send(navResult{resp: &scrape.Response{
				Status: r.StatusCode,
				Body:   append([]byte{}, r.Body...),
			}})
			return
		}
		if err == nil {
			err = errors.New("unknown colly error")
		}
		send(navResult{err: err})
	})

	if err := p.collector.Visit(rawURL); err != nil {
		return nil, err
	}
	p.collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return res.resp, res.err
	default:
		// Navigation finished without producing any response object.
		return nil, nil
	}
}

// Close is a no-op; the clone is garbage once the navigation ends.
func (p *collyPage) Close(_ context.Context) error {
	return nil
}
