package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/storage"

	"github.com/pbaranau/offersnap/internal/scrape"
)

// GCS mirrors snapshot documents into a Cloud Storage bucket under
// <site>/<YYYY-MM-DD>.json.
type GCS struct {
	client *storage.Client
	bucket string
}

// NewGCS creates a bucket-backed snapshot sink.
func NewGCS(client *storage.Client, bucket string) (*GCS, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &GCS{client: client, bucket: bucket}, nil
}

// WriteSnapshot uploads one site's snapshot object.
func (g *GCS) WriteSnapshot(ctx context.Context, site string, takenAt time.Time, offers []scrape.Offer) error {
	if site == "" {
		return fmt.Errorf("site is required")
	}
	snap := NewSnapshot(takenAt, offers)
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	object := fmt.Sprintf("%s/%s.json", site, Day(takenAt))
	writer := g.client.Bucket(g.bucket).Object(object).NewWriter(ctx)
	writer.ContentType = "application/json"
	if _, err := writer.Write(data); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return fmt.Errorf("write object: %w (close writer: %v)", err, closeErr)
		}
		return fmt.Errorf("write object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}
