package scrape

import (
	"context"
	"time"
)

// Browser owns a page session (headless Chrome or plain HTTP) and opens
// pages on demand.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close(ctx context.Context) error
}

// Page is one open page or tab. Navigate returns the document response; a
// nil response with a nil error means navigation produced no response object
// at all. Close must release the underlying resource and is safe to call
// after a failed navigation.
type Page interface {
	Navigate(ctx context.Context, url string) (*Response, error)
	Close(ctx context.Context) error
}

// Response is the fully loaded document for a page URL.
type Response struct {
	Status int
	Body   []byte
}

// Clock returns the current time (injectable for tests).
type Clock interface {
	Now() time.Time
}

// Sleeper performs backoff delays (injectable for tests).
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SiteRunner crawls one site and returns whatever offers it gathered, even
// when it also returns an error.
type SiteRunner interface {
	Run(ctx context.Context, site Site) ([]Offer, error)
}

// SnapshotWriter persists one site's harvested offers for the current run.
type SnapshotWriter interface {
	WriteSnapshot(ctx context.Context, site string, takenAt time.Time, offers []Offer) error
}
