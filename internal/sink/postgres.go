package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pbaranau/offersnap/internal/scrape"
)

const snapshotsDDL = `
CREATE TABLE IF NOT EXISTS snapshots (
	site          TEXT NOT NULL,
	snapshot_date DATE NOT NULL,
	taken_at      TIMESTAMPTZ NOT NULL,
	offer_count   INTEGER NOT NULL,
	document      JSONB NOT NULL,
	PRIMARY KEY (site, snapshot_date)
)`

const snapshotUpsert = `
INSERT INTO snapshots (site, snapshot_date, taken_at, offer_count, document)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (site, snapshot_date)
DO UPDATE SET taken_at = EXCLUDED.taken_at,
	offer_count = EXCLUDED.offer_count,
	document = EXCLUDED.document`

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// Postgres mirrors snapshot documents into a snapshots table, one row per
// site per day, overwriting earlier harvests of the same day.
type Postgres struct {
	pool execCloser
}

// NewPostgres connects a pool from dsn and ensures the schema exists.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sink.postgres_dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	p := &Postgres{pool: pool}
	if err := p.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// NewPostgresWithPool constructs a sink from an existing pool (primarily for
// testing). The schema is not created.
func NewPostgresWithPool(pool execCloser) (*Postgres, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, snapshotsDDL); err != nil {
		return fmt.Errorf("ensure snapshots table: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (p *Postgres) Close() {
	if p == nil || p.pool == nil {
		return
	}
	p.pool.Close()
}

// WriteSnapshot upserts one site's snapshot row.
func (p *Postgres) WriteSnapshot(ctx context.Context, site string, takenAt time.Time, offers []scrape.Offer) error {
	if p == nil || p.pool == nil {
		return fmt.Errorf("postgres sink is not configured")
	}
	if site == "" {
		return fmt.Errorf("site is required")
	}
	snap := NewSnapshot(takenAt, offers)
	doc, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if _, err := p.pool.Exec(ctx, snapshotUpsert,
		site, Day(takenAt), takenAt.UTC(), len(snap.Offers), doc,
	); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}
