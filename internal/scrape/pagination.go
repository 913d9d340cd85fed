package scrape

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/PuerkitoBio/goquery"
)

// Default parameter names when a site config leaves them unset.
const (
	defaultPageParam   = "page"
	defaultOffsetParam = "cursor"
)

// Paginator derives the ordered follow-up page URLs for a site after its
// first page has been fetched. Implementations must be deterministic: the
// same input yields the same sequence. An empty sequence is valid and means
// the site is single-page or its link structure was not recognized.
type Paginator interface {
	NextPageURLs(site Site, firstPage *goquery.Document) ([]string, error)
}

// NewPaginator picks the strategy for a site's content shape. The choice is
// made once per crawl and held for its lifetime.
func NewPaginator(site Site) Paginator {
	if site.Pagination == PaginationHandle {
		return handlePaginator{}
	}
	return contentPaginator{}
}

// contentPaginator counts pagination-link elements on the first page and
// synthesizes page-indexed URLs against the start URL. The first counted
// link is a markup artifact (the current-page element), so indices run
// from 2 up to count-1.
type contentPaginator struct{}

func (contentPaginator) NextPageURLs(site Site, firstPage *goquery.Document) ([]string, error) {
	if firstPage == nil {
		return nil, nil
	}
	count := firstPage.Find(site.Selectors.PageLink).Length()

	base, err := url.Parse(site.StartURL)
	if err != nil {
		return nil, fmt.Errorf("parse start url %q: %w", site.StartURL, err)
	}
	param := site.PageParam
	if param == "" {
		param = defaultPageParam
	}

	var pages []string
	for i := 2; i < count; i++ {
		u := *base
		q := u.Query()
		q.Set(param, strconv.Itoa(i))
		u.RawQuery = q.Encode()
		pages = append(pages, u.String())
	}
	return pages, nil
}

// handlePaginator derives follow-up URLs purely from the start URL: the
// offset parameter advances by a fixed step for a configured number of
// pages. The parsed content is not consulted.
type handlePaginator struct{}

func (handlePaginator) NextPageURLs(site Site, _ *goquery.Document) ([]string, error) {
	if site.HandlePages <= 1 || site.OffsetStep <= 0 {
		return nil, nil
	}

	base, err := url.Parse(site.StartURL)
	if err != nil {
		return nil, fmt.Errorf("parse start url %q: %w", site.StartURL, err)
	}
	param := site.OffsetParam
	if param == "" {
		param = defaultOffsetParam
	}
	startOffset := 0
	if v := base.Query().Get(param); v != "" {
		parsed, perr := strconv.Atoi(v)
		if perr != nil {
			return nil, fmt.Errorf("offset param %s=%q is not an integer: %w", param, v, perr)
		}
		startOffset = parsed
	}

	var pages []string
	for p := 1; p < site.HandlePages; p++ {
		u := *base
		q := u.Query()
		q.Set(param, strconv.Itoa(startOffset+p*site.OffsetStep))
		u.RawQuery = q.Encode()
		pages = append(pages, u.String())
	}
	return pages, nil
}
