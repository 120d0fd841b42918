package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/okanogan-digital/directory-cli/internal/geo"
	"github.com/okanogan-digital/directory-cli/internal/merge"
	"github.com/okanogan-digital/directory-cli/internal/pipeline"
	"github.com/okanogan-digital/directory-cli/internal/scrape"
	"github.com/okanogan-digital/directory-cli/internal/store"
	"github.com/okanogan-digital/directory-cli/internal/taxonomy"
	"github.com/okanogan-digital/directory-cli/pkg/places"
	"github.com/okanogan-digital/directory-cli/pkg/socrata"
	"github.com/okanogan-digital/directory-cli/pkg/yelp"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "directory.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// buildEnricher wires the pipeline from config. Sources without credentials
// are skipped with a warning rather than failing the command; the pipeline
// tolerates absent collaborators.
func buildEnricher(ctx context.Context, withStore bool) (*pipeline.Enricher, store.Store, error) {
	var st store.Store
	if withStore {
		s, err := initStore(ctx)
		if err != nil {
			return nil, nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close() //nolint:errcheck
			return nil, nil, eris.Wrap(err, "migrate store")
		}
		st = s
	}

	socrataClient := socrata.NewClient(cfg.Socrata.AppToken,
		socrata.WithBaseURL(cfg.Socrata.BaseURL),
		socrata.WithDataset(cfg.Socrata.Dataset),
		socrata.WithRateLimit(cfg.Socrata.RatePerSec, 2),
	)

	var placesClient places.Client
	if cfg.Places.Key != "" {
		placesClient = places.NewClient(cfg.Places.Key, places.WithBaseURL(cfg.Places.BaseURL))
	} else {
		zap.L().Warn("places key not set, skipping places enrichment")
	}

	var yelpClient yelp.Client
	if cfg.Yelp.Key != "" {
		yelpClient = yelp.NewClient(cfg.Yelp.Key, yelp.WithBaseURL(cfg.Yelp.BaseURL))
	} else {
		zap.L().Warn("yelp key not set, skipping reviews enrichment")
	}

	var scraper scrape.Scraper
	if cfg.Scrape.Enabled {
		scraper = scrape.NewLocalScraper(time.Duration(cfg.Scrape.TimeoutSecs) * time.Second)
	}

	tax := taxonomy.Default()
	if cfg.Taxonomy.Path != "" {
		loaded, err := taxonomy.Load(cfg.Taxonomy.Path)
		if err != nil {
			zap.L().Warn("taxonomy override not loaded", zap.String("path", cfg.Taxonomy.Path), zap.Error(err))
		} else {
			tax = loaded
		}
	}
	merger := merge.New(tax, geo.ServiceArea())

	return pipeline.New(cfg, st, socrataClient, placesClient, yelpClient, scraper, merger), st, nil
}
