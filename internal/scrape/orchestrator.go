package scrape

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// fanOut is the number of concurrent site crawls: a deliberate cap on
// simultaneously open browser sessions.
const fanOut = 2

// Orchestrator runs the site list two at a time and hands each site's offers
// to the snapshot writer. One site's failure is logged and never blocks its
// pair sibling or later pairs.
type Orchestrator struct {
	runner      SiteRunner
	writer      SnapshotWriter
	clock       Clock
	logger      *zap.Logger
	development bool
}

// NewOrchestrator builds an Orchestrator. development enables the
// warn-only offer validation pass.
func NewOrchestrator(runner SiteRunner, writer SnapshotWriter, clock Clock, logger *zap.Logger, development bool) *Orchestrator {
	return &Orchestrator{
		runner:      runner,
		writer:      writer,
		clock:       clock,
		logger:      logger,
		development: development,
	}
}

// Run processes sites in pairs: launch two crawls, wait for both, advance.
// An odd final site runs alone. Run returns once every site has completed,
// successfully or not.
func (o *Orchestrator) Run(ctx context.Context, sites []Site) {
	runID := uuid.NewString()
	o.logger.Info("harvest run started",
		zap.String("run_id", runID),
		zap.Int("sites", len(sites)),
	)

	for i := 0; i < len(sites); i += fanOut {
		end := min(i+fanOut, len(sites))
		var wg sync.WaitGroup
		for _, site := range sites[i:end] {
			wg.Add(1)
			go func(site Site) {
				defer wg.Done()
				o.harvestSite(ctx, runID, site)
			}(site)
		}
		wg.Wait()
	}

	o.logger.Info("harvest run finished", zap.String("run_id", runID))
}

func (o *Orchestrator) harvestSite(ctx context.Context, runID string, site Site) {
	offers, err := o.runSite(ctx, site)
	if err != nil {
		// Partial results are still persisted below.
		o.logger.Error("site crawl failed",
			zap.String("run_id", runID),
			zap.String("site", site.Name),
			zap.Error(err),
		)
	}

	if o.development {
		o.validateOffers(site, offers)
	}

	if werr := o.writer.WriteSnapshot(ctx, site.Name, o.clock.Now(), offers); werr != nil {
		o.logger.Error("snapshot write failed",
			zap.String("run_id", runID),
			zap.String("site", site.Name),
			zap.Error(werr),
		)
		return
	}
	SnapshotsWritten.Inc()
	o.logger.Info("site harvested",
		zap.String("run_id", runID),
		zap.String("site", site.Name),
		zap.Int("offers", len(offers)),
	)
}

// runSite shields the run from a crawl that panics: the panic becomes an
// error for that site alone, and its pair sibling and later pairs proceed.
func (o *Orchestrator) runSite(ctx context.Context, site Site) (offers []Offer, err error) {
	defer func() {
		if r := recover(); r != nil {
			offers = nil
			err = fmt.Errorf("site crawl panicked: %v", r)
		}
	}()
	return o.runner.Run(ctx, site)
}

// validateOffers is a development aid. It only warns about suspicious
// offers; it never changes the run's outcome.
func (o *Orchestrator) validateOffers(site Site, offers []Offer) {
	for _, offer := range offers {
		if offer.Title == "" || offer.URL == "" {
			o.logger.Warn("offer missing required fields",
				zap.String("site", site.Name),
				zap.String("offer_id", offer.ID),
				zap.String("source_url", offer.Debug.SourceURL),
				zap.Int("index", offer.Debug.Index),
			)
		}
		if _, numeric := offer.Price.Amount(); !numeric {
			o.logger.Warn("offer price not numeric",
				zap.String("site", site.Name),
				zap.String("offer_id", offer.ID),
				zap.String("price", offer.Price.Raw()),
			)
		}
	}
}
