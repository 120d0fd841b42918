// Package pipeline orchestrates the per-business enrichment flow: foundation
// licenses in, one merged directory record out per license, regardless of how
// many sources fail along the way.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/okanogan-digital/directory-cli/internal/config"
	"github.com/okanogan-digital/directory-cli/internal/dataset"
	"github.com/okanogan-digital/directory-cli/internal/match"
	"github.com/okanogan-digital/directory-cli/internal/merge"
	"github.com/okanogan-digital/directory-cli/internal/model"
	"github.com/okanogan-digital/directory-cli/internal/scrape"
	"github.com/okanogan-digital/directory-cli/internal/store"
	"github.com/okanogan-digital/directory-cli/pkg/places"
	"github.com/okanogan-digital/directory-cli/pkg/socrata"
	"github.com/okanogan-digital/directory-cli/pkg/yelp"
)

// Result is the structured outcome of one enrichment run. Records always has
// one entry per foundation business, in foundation order; source failures are
// visible only through Diagnostics.
type Result struct {
	RunID       string             `json:"run_id,omitempty"`
	Records     []model.Business   `json:"records"`
	Diagnostics *model.Diagnostics `json:"diagnostics"`
}

// Enricher runs the enrichment pipeline. Any of the source clients, the
// scraper, and the store may be nil; a nil collaborator simply contributes no
// data.
type Enricher struct {
	cfg     *config.Config
	store   store.Store
	socrata socrata.Client
	places  places.Client
	yelp    yelp.Client
	scraper scrape.Scraper
	merger  *merge.Merger
}

// New creates an Enricher with all dependencies.
func New(
	cfg *config.Config,
	st store.Store,
	socrataClient socrata.Client,
	placesClient places.Client,
	yelpClient yelp.Client,
	scraper scrape.Scraper,
	merger *merge.Merger,
) *Enricher {
	if merger == nil {
		merger = merge.New(nil, nil)
	}
	return &Enricher{
		cfg:     cfg,
		store:   st,
		socrata: socrataClient,
		places:  placesClient,
		yelp:    yelpClient,
		scraper: scraper,
		merger:  merger,
	}
}

// Run enriches every licensed business in a ZIP code. It never returns an
// error: when the primary foundation source is unreachable it falls back to
// the bundled dataset, and when that also yields nothing the result carries
// zero records. Failures along the way are recorded in Result.Diagnostics.
func (e *Enricher) Run(ctx context.Context, zip string, limit int) *Result {
	log := zap.L().With(zap.String("zip", zip))
	diag := model.NewDiagnostics()
	result := &Result{Records: []model.Business{}, Diagnostics: diag}

	var runID string
	if e.store != nil {
		run, err := e.store.CreateRun(ctx, zip)
		if err != nil {
			log.Warn("pipeline: create run", zap.Error(err))
			diag.AddNote("run record not created: " + err.Error())
		} else {
			runID = run.ID
			result.RunID = runID
		}
	}

	foundation := e.fetchFoundation(ctx, zip, limit, diag, log)
	if len(foundation) == 0 {
		log.Warn("pipeline: no foundation businesses")
		e.completeRun(ctx, runID, model.RunStatusFailed, 0, diag, log)
		return result
	}

	// One output per input, in input order. Each worker writes only its own
	// index.
	out := make([]model.Business, len(foundation))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency())
	for i, lic := range foundation {
		g.Go(func() error {
			out[i] = e.enrichOne(gctx, lic, diag, log)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never return errors

	result.Records = out
	e.completeRun(ctx, runID, model.RunStatusComplete, len(out), diag, log)
	log.Info("pipeline: run complete", zap.Int("businesses", len(out)))
	return result
}

func (e *Enricher) concurrency() int {
	if e.cfg != nil && e.cfg.Pipeline.Concurrency > 0 {
		return e.cfg.Pipeline.Concurrency
	}
	return 1
}

func (e *Enricher) sourceTimeout() time.Duration {
	if e.cfg != nil && e.cfg.Pipeline.SourceTimeoutSecs > 0 {
		return time.Duration(e.cfg.Pipeline.SourceTimeoutSecs) * time.Second
	}
	return 30 * time.Second
}

func (e *Enricher) matchConfig() match.Config {
	cfg := match.DefaultConfig()
	if e.cfg == nil {
		return cfg
	}
	if e.cfg.Pipeline.MaxCandidates > 0 {
		cfg.MaxCandidates = e.cfg.Pipeline.MaxCandidates
	}
	if e.cfg.Pipeline.AddressThreshold > 0 {
		cfg.AddressThreshold = e.cfg.Pipeline.AddressThreshold
	}
	if e.cfg.Pipeline.NameThreshold > 0 {
		cfg.NameThreshold = e.cfg.Pipeline.NameThreshold
	}
	return cfg
}

// fetchFoundation returns the license list for a ZIP, falling back to the
// bundled dataset when the live source fails or returns nothing.
func (e *Enricher) fetchFoundation(ctx context.Context, zip string, limit int, diag *model.Diagnostics, log *zap.Logger) []socrata.License {
	if e.socrata != nil {
		sctx, cancel := context.WithTimeout(ctx, e.sourceTimeout())
		rows, err := e.socrata.FetchByZip(sctx, zip, limit)
		cancel()
		switch {
		case err != nil:
			log.Warn("pipeline: foundation fetch failed", zap.Error(err))
			diag.RecordFailure("socrata")
		case len(rows) == 0:
			diag.RecordMiss("socrata")
		default:
			diag.RecordHit("socrata")
			diag.FoundationSource = "socrata"
			return rows
		}
	}

	rows, err := dataset.Fallback(zip)
	if err != nil {
		log.Error("pipeline: fallback dataset", zap.Error(err))
		diag.AddNote("fallback dataset unavailable: " + err.Error())
		return nil
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	diag.FoundationSource = "fallback"
	return rows
}

// enrichOne runs the full per-business flow. It never fails: a panic past
// the per-step safeguards yields the raw foundation record.
func (e *Enricher) enrichOne(ctx context.Context, lic socrata.License, diag *model.Diagnostics, log *zap.Logger) (out model.Business) {
	foundation := FoundationFromLicense(lic)
	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline: business recovered",
				zap.String("business", foundation.Name),
				zap.Any("panic", r),
			)
			diag.AddNote(fmt.Sprintf("recovered while enriching %s: %v", foundation.Name, r))
			out = foundation
		}
	}()

	placesRec := e.fetchPlaces(ctx, foundation, diag, log)
	reviewsRec := e.fetchReviews(ctx, foundation, diag, log)
	scrapedRec := e.fetchWebsite(ctx, foundation, placesRec, reviewsRec, diag, log)
	e.verifyLicense(ctx, &foundation, diag, log)

	out = e.mergeOne(foundation, placesRec, reviewsRec, scrapedRec, diag, log)
	e.persist(ctx, &out, diag, log)
	return out
}

func (e *Enricher) fetchPlaces(ctx context.Context, foundation model.Business, diag *model.Diagnostics, log *zap.Logger) *model.PlacesRecord {
	if e.places == nil {
		return nil
	}
	sctx, cancel := context.WithTimeout(ctx, e.sourceTimeout())
	defer cancel()

	place, err := e.places.FindByNameAddress(sctx, foundation.Name, foundation.Address)
	if err != nil {
		log.Warn("pipeline: places lookup failed", zap.String("business", foundation.Name), zap.Error(err))
		diag.RecordFailure("places")
		return nil
	}
	if place == nil {
		diag.RecordMiss("places")
		return nil
	}
	diag.RecordHit("places")
	return placesRecord(place, e.places)
}

func (e *Enricher) fetchReviews(ctx context.Context, foundation model.Business, diag *model.Diagnostics, log *zap.Logger) *model.ReviewsRecord {
	if e.yelp == nil {
		return nil
	}
	sctx, cancel := context.WithTimeout(ctx, e.sourceTimeout())
	defer cancel()

	hits, err := e.yelp.Search(sctx, foundation.Name, foundation.Address, 1)
	if err != nil {
		log.Warn("pipeline: reviews lookup failed", zap.String("business", foundation.Name), zap.Error(err))
		diag.RecordFailure("reviews")
		return nil
	}
	if len(hits) == 0 {
		diag.RecordMiss("reviews")
		return nil
	}
	diag.RecordHit("reviews")

	biz := hits[0]
	// Details carries photos and hours the search response lacks. A details
	// failure degrades to the search result rather than losing the match.
	if detail, err := e.yelp.Details(sctx, biz.ID); err != nil {
		log.Warn("pipeline: reviews details failed", zap.String("business", foundation.Name), zap.Error(err))
	} else if detail != nil {
		biz = *detail
	}
	return reviewsRecord(&biz)
}

// fetchWebsite scrapes the business's own site when any earlier source
// surfaced a URL. Discovery priority: places, then reviews, then foundation.
func (e *Enricher) fetchWebsite(ctx context.Context, foundation model.Business, placesRec *model.PlacesRecord, reviewsRec *model.ReviewsRecord, diag *model.Diagnostics, log *zap.Logger) *model.ScrapedRecord {
	if e.scraper == nil {
		return nil
	}
	var url string
	switch {
	case placesRec != nil && placesRec.Website != "":
		url = placesRec.Website
	case reviewsRec != nil && reviewsRec.URL != "":
		url = reviewsRec.URL
	case foundation.Website != "":
		url = foundation.Website
	default:
		return nil
	}

	sctx, cancel := context.WithTimeout(ctx, e.sourceTimeout())
	defer cancel()

	scraped, err := e.scraper.Scrape(sctx, url)
	if err != nil {
		log.Warn("pipeline: website scrape failed",
			zap.String("business", foundation.Name),
			zap.String("url", url),
			zap.Error(err),
		)
		diag.RecordFailure("scrape")
		return nil
	}
	if scraped == nil {
		diag.RecordMiss("scrape")
		return nil
	}
	diag.RecordHit("scrape")
	return scraped
}

// verifyLicense re-resolves the business against the license registry and
// refreshes the provenance fields from the best match.
func (e *Enricher) verifyLicense(ctx context.Context, foundation *model.Business, diag *model.Diagnostics, log *zap.Logger) {
	if e.socrata == nil {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, e.sourceTimeout())
	defer cancel()

	m := match.New(
		licenseSource{c: e.socrata},
		func(l socrata.License) string { return licenseName(l) },
		func(l socrata.License) string { return licenseAddress(l) },
		e.matchConfig(),
	)
	found := m.Find(sctx, match.Target{
		Key:     foundation.LicenseNumber,
		Name:    foundation.Name,
		Address: foundation.Address,
	})
	if found == nil {
		diag.RecordMiss("license")
		return
	}
	diag.RecordHit("license")
	applyLicense(foundation, *found)
}

// mergeOne merges with a panic guard: a merge failure falls back to the
// license-enriched pre-merge record instead of dropping the business.
func (e *Enricher) mergeOne(foundation model.Business, placesRec *model.PlacesRecord, reviewsRec *model.ReviewsRecord, scrapedRec *model.ScrapedRecord, diag *model.Diagnostics, log *zap.Logger) (out model.Business) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("pipeline: merge failed",
				zap.String("business", foundation.Name),
				zap.Any("panic", r),
			)
			diag.RecordMergeFallback()
			out = foundation
		}
	}()
	return e.merger.Merge(foundation, placesRec, reviewsRec, scrapedRec)
}

func (e *Enricher) persist(ctx context.Context, b *model.Business, diag *model.Diagnostics, log *zap.Logger) {
	if e.store == nil {
		return
	}
	if err := e.store.UpsertBusiness(ctx, b); err != nil {
		log.Warn("pipeline: upsert failed", zap.String("business", b.Name), zap.Error(err))
		diag.RecordPersistFailure()
	}
}

func (e *Enricher) completeRun(ctx context.Context, runID string, status model.RunStatus, businesses int, diag *model.Diagnostics, log *zap.Logger) {
	if e.store == nil || runID == "" {
		return
	}
	if err := e.store.CompleteRun(ctx, runID, status, businesses, diag); err != nil {
		log.Warn("pipeline: complete run", zap.Error(err))
	}
}
