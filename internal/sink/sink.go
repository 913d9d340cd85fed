// Package sink persists harvested offer snapshots. Each writer stores one
// document per site per calendar day; the filesystem writer is the primary
// destination and the Postgres and GCS writers are optional mirrors.
package sink

import (
	"time"

	"github.com/pbaranau/offersnap/internal/scrape"
)

// dateLayout names snapshot documents by harvest day.
const dateLayout = "2006-01-02"

// Snapshot is the persisted document shape. Date is the full run timestamp;
// the document's storage key carries the day.
type Snapshot struct {
	Date   string         `json:"date"`
	Offers []scrape.Offer `json:"offers"`
}

// NewSnapshot stamps offers with the harvest time. A nil offer slice is
// persisted as an empty array so readers always see a list.
func NewSnapshot(takenAt time.Time, offers []scrape.Offer) Snapshot {
	if offers == nil {
		offers = []scrape.Offer{}
	}
	return Snapshot{
		Date:   takenAt.UTC().Format(time.RFC3339),
		Offers: offers,
	}
}

// Day formats the harvest day used as the snapshot's storage key.
func Day(takenAt time.Time) string {
	return takenAt.UTC().Format(dateLayout)
}
