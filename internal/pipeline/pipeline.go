// Package pipeline resolves a place name into a merged OSM record:
// normalize, locate, fetch every entity concurrently, merge, present.
package pipeline

import (
	"log/slog"

	"github.com/ppiankov/osmlookup/internal/cache"
	"github.com/ppiankov/osmlookup/internal/model"
	"github.com/ppiankov/osmlookup/internal/osm"
	"github.com/ppiankov/osmlookup/internal/present"
)

// New wires a Resolver against the OSM services described by cfg.
// pacer may be nil to send requests unpaced.
func New(cfg *model.Config, pacer osm.Pacer, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	opts := []osm.ClientOption{
		osm.WithLogger(log),
		osm.WithCache(cache.New(cfg.Cache), 0),
	}
	if pacer != nil {
		opts = append(opts, osm.WithPacer(pacer))
	}
	client := osm.NewClient(cfg.HTTP, opts...)

	return NewResolver(
		osm.NewLocator(client, cfg.Endpoints.OverpassURL, log),
		osm.NewFetcher(client, cfg.Endpoints.OSMAPIURL, log),
		WithConcurrency(cfg.Fetch.Concurrency),
		WithPresenter(present.New(cfg.Output.WikipediaLanguage)),
		WithLogger(log),
	)
}
