package scrape

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesScraped counts listing pages successfully loaded and extracted.
	PagesScraped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offersnap_pages_scraped_total",
		Help: "The total number of listing pages loaded and extracted.",
	})
	// LoadRetries counts failed page-load attempts that were retried.
	LoadRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offersnap_load_retries_total",
		Help: "The total number of page load attempts that failed and were retried.",
	})
	// LoadFailures counts page loads abandoned after the budget ran out.
	LoadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offersnap_load_failures_total",
		Help: "The total number of page loads that exhausted their retry budget.",
	})
	// OffersExtracted counts offers kept after extraction.
	OffersExtracted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offersnap_offers_extracted_total",
		Help: "The total number of offers extracted from listing pages.",
	})
	// StaleCutoffs counts pages ended early by a stale entry.
	StaleCutoffs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offersnap_stale_cutoffs_total",
		Help: "The total number of pages cut short by the recency window.",
	})
	// SnapshotsWritten counts per-site snapshots handed to persistence.
	SnapshotsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "offersnap_snapshots_written_total",
		Help: "The total number of site snapshots persisted.",
	})
)
