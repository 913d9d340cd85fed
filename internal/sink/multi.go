package sink

import (
	"context"
	"errors"
	"time"

	"github.com/pbaranau/offersnap/internal/scrape"
)

// Multi fans one snapshot out to several writers. Every writer is attempted
// even when an earlier one fails; failures are joined into a single error.
type Multi struct {
	writers []scrape.SnapshotWriter
}

// NewMulti builds a fan-out writer.
func NewMulti(writers ...scrape.SnapshotWriter) *Multi {
	return &Multi{writers: writers}
}

// WriteSnapshot delivers the snapshot to every configured writer.
func (m *Multi) WriteSnapshot(ctx context.Context, site string, takenAt time.Time, offers []scrape.Offer) error {
	var errs []error
	for _, w := range m.writers {
		if err := w.WriteSnapshot(ctx, site, takenAt, offers); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
