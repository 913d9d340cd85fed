package scrape

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// seenCacheSize bounds the per-crawl duplicate-offer cache. Promoted entries
// repeat on every listing page, so the cache only needs to span one run.
const seenCacheSize = 4096

// Crawler drives one site: load a page, extract its offers, derive the
// remaining page URLs after the first page, and repeat until a stale entry
// ends the listing or the queue drains. All state is local to one Run call.
type Crawler struct {
	loader    *Loader
	extractor *Extractor
	budget    time.Duration
	logger    *zap.Logger
}

// NewCrawler builds a Crawler. budget is the wall-clock retry budget granted
// to each page load.
func NewCrawler(loader *Loader, extractor *Extractor, budget time.Duration, logger *zap.Logger) *Crawler {
	return &Crawler{
		loader:    loader,
		extractor: extractor,
		budget:    budget,
		logger:    logger,
	}
}

// Run crawls one site. Offers gathered before a failure are always returned
// alongside the error; a later page's failure never discards earlier pages.
func (c *Crawler) Run(ctx context.Context, site Site) ([]Offer, error) {
	queue := []string{site.StartURL}
	var offers []Offer
	pageCount := 0
	done := false
	paginator := NewPaginator(site)

	seen, err := lru.New[string, struct{}](seenCacheSize)
	if err != nil {
		return nil, fmt.Errorf("seen cache: %w", err)
	}

	for !done && len(queue) > 0 {
		pageURL := queue[0]
		queue = queue[1:]

		resp, err := c.loader.Acquire(ctx, pageURL, site.Name, c.budget)
		if err != nil {
			return offers, fmt.Errorf("load %s: %w", pageURL, err)
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
		if err != nil {
			return offers, fmt.Errorf("parse %s: %w", pageURL, err)
		}

		pageOffers, pageDone, err := c.extractor.ExtractPage(doc, site, pageURL)
		if err != nil {
			return offers, fmt.Errorf("extract %s: %w", pageURL, err)
		}

		kept := 0
		for _, offer := range pageOffers {
			if offer.URL != "" {
				if _, dup := seen.Get(offer.URL); dup {
					continue
				}
				seen.Add(offer.URL, struct{}{})
			}
			offers = append(offers, offer)
			kept++
		}

		done = pageDone
		pageCount++
		PagesScraped.Inc()
		c.logger.Debug("page processed",
			zap.String("site", site.Name),
			zap.String("url", pageURL),
			zap.Int("offers", kept),
			zap.Int("page", pageCount),
			zap.Bool("done", done),
		)

		// Pagination is derived exactly once, from the first page.
		if pageCount == 1 && !done {
			next, perr := paginator.NextPageURLs(site, doc)
			if perr != nil {
				return offers, fmt.Errorf("paginate %s: %w", site.Name, perr)
			}
			queue = append(queue, next...)
		}
	}

	return offers, nil
}
