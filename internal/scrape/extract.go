package scrape

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Extractor turns one fetched listing page into offers plus a done signal.
// Entries are assumed reverse-chronological, newest first: the first stale
// timestamp proves everything after it is older still, so the page — and the
// site's crawl — ends there.
type Extractor struct {
	normalizer *Normalizer
	clock      Clock
	logger     *zap.Logger
}

// NewExtractor builds an Extractor.
func NewExtractor(normalizer *Normalizer, clock Clock, logger *zap.Logger) *Extractor {
	return &Extractor{
		normalizer: normalizer,
		clock:      clock,
		logger:     logger,
	}
}

// ExtractPage walks listing entries in document order. Entries with raw
// (unparseable) date labels are kept and never trigger the cutoff. A stale
// timestamp discards that entry and every remaining one, returning done.
// An unrecognized month abbreviation is fatal for the site.
func (e *Extractor) ExtractPage(doc *goquery.Document, site Site, sourceURL string) ([]Offer, bool, error) {
	now := e.clock.Now()
	base, err := url.Parse(sourceURL)
	if err != nil {
		// Hrefs stay as found; nothing to resolve against.
		e.logger.Debug("source url unparseable",
			zap.String("site", site.Name),
			zap.String("url", sourceURL),
			zap.Error(err),
		)
		base = nil
	}

	var offers []Offer
	done := false
	var fatal error

	doc.Find(site.Selectors.Entry).EachWithBreak(func(i int, entry *goquery.Selection) bool {
		dateText := strings.TrimSpace(entry.Find(site.Selectors.Date).First().Text())
		posted, err := e.normalizer.Normalize(dateText, now)
		if err != nil {
			fatal = err
			return false
		}

		if ts, ok := posted.Time(); ok && e.normalizer.IsStale(ts, posted.HasClock(), now) {
			StaleCutoffs.Inc()
			e.logger.Debug("stale entry ends page",
				zap.String("site", site.Name),
				zap.String("url", sourceURL),
				zap.Int("index", i),
				zap.Time("posted", ts),
			)
			done = true
			return false
		}

		offers = append(offers, e.buildOffer(entry, site, base, sourceURL, i, posted))
		return true
	})

	if fatal != nil {
		return nil, false, fatal
	}
	OffersExtracted.Add(float64(len(offers)))
	return offers, done, nil
}

func (e *Extractor) buildOffer(entry *goquery.Selection, site Site, base *url.URL, sourceURL string, index int, posted PostedAt) Offer {
	sel := site.Selectors

	id, _ := entry.Attr(sel.IDAttr)
	if id == "" {
		id = uuid.NewString()
	}

	href, _ := entry.Find(sel.Link).First().Attr("href")
	img, _ := entry.Find(sel.Image).First().Attr("src")

	return Offer{
		ID:          id,
		Title:       strings.TrimSpace(entry.Find(sel.Title).First().Text()),
		Price:       ParsePrice(entry.Find(sel.Price).First().Text()),
		URL:         absoluteURL(base, href),
		Posted:      posted,
		ImageURL:    absoluteURL(base, img),
		Description: strings.TrimSpace(entry.Find(sel.Description).First().Text()),
		Debug: Debug{
			SourceURL: sourceURL,
			Index:     index,
		},
	}
}

func absoluteURL(base *url.URL, href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
