// Package scrape implements the listing harvest engine: bounded-concurrency
// site scheduling, page acquisition with retry and backoff, per-site
// pagination loops, and the recency cutoff that ends a site's crawl.
package scrape

import (
	"encoding/json"
	"strconv"
	"strings"
)

// PaginationVariant selects how follow-up page URLs are derived for a site.
type PaginationVariant string

// Pagination variants configured per site.
const (
	// PaginationContent counts pagination links on the fetched first page.
	PaginationContent PaginationVariant = "content"
	// PaginationHandle derives page URLs from the start URL alone.
	PaginationHandle PaginationVariant = "handle"
)

// Selectors locates listing fields inside a site's markup.
type Selectors struct {
	Entry       string `mapstructure:"entry"`
	Title       string `mapstructure:"title"`
	Link        string `mapstructure:"link"`
	Price       string `mapstructure:"price"`
	Image       string `mapstructure:"image"`
	Date        string `mapstructure:"date"`
	Description string `mapstructure:"description"`
	PageLink    string `mapstructure:"page_link"`
	IDAttr      string `mapstructure:"id_attr"`
}

// Site is the static per-site descriptor, loaded once per run and never
// mutated.
type Site struct {
	Name        string            `mapstructure:"name"`
	StartURL    string            `mapstructure:"start_url"`
	Pagination  PaginationVariant `mapstructure:"pagination"`
	Selectors   Selectors         `mapstructure:"selectors"`
	PageParam   string            `mapstructure:"page_param"`
	OffsetParam string            `mapstructure:"offset_param"`
	OffsetStep  int               `mapstructure:"offset_step"`
	HandlePages int               `mapstructure:"handle_pages"`
}

// Debug records where an offer was found, for traceability across sinks.
type Debug struct {
	SourceURL string `json:"source_url"`
	Index     int    `json:"index"`
}

// Offer is one parsed listing entry. Immutable after extraction; owned by
// the crawl that produced it until handed to a sink.
type Offer struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Price       Price    `json:"price"`
	URL         string   `json:"url"`
	Posted      PostedAt `json:"date"`
	ImageURL    string   `json:"image_url"`
	Description string   `json:"description,omitempty"`
	Debug       Debug    `json:"debug"`
}

// Price is either a parsed amount or the stripped raw text when the listing
// price does not parse as a number. Consumers must check which variant they
// hold; there is no implicit coercion.
type Price struct {
	amount  float64
	raw     string
	numeric bool
}

// NumericPrice wraps a parsed amount.
func NumericPrice(v float64) Price {
	return Price{amount: v, numeric: true}
}

// RawPrice wraps price text that failed numeric parsing.
func RawPrice(s string) Price {
	return Price{raw: s}
}

// Amount returns the parsed amount, if this price is numeric.
func (p Price) Amount() (float64, bool) {
	return p.amount, p.numeric
}

// Raw returns the stripped text of a non-numeric price.
func (p Price) Raw() string {
	return p.raw
}

// MarshalJSON emits a number for numeric prices and a string otherwise.
func (p Price) MarshalJSON() ([]byte, error) {
	if p.numeric {
		return json.Marshal(p.amount)
	}
	return json.Marshal(p.raw)
}

// ParsePrice normalizes listing price text. Every character except digits,
// '.' and ',' is stripped and commas become dots. A remainder that still does
// not parse is kept raw; downstream validation flags it instead of failing
// the extraction.
func ParsePrice(text string) Price {
	var b strings.Builder
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		case r == ',':
			b.WriteRune('.')
		}
	}
	stripped := b.String()
	v, err := strconv.ParseFloat(stripped, 64)
	if err != nil {
		return RawPrice(stripped)
	}
	return NumericPrice(v)
}
