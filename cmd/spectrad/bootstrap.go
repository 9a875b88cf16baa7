package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"spectra/internal/archives"
	"spectra/internal/archives/eso"
	"spectra/internal/archives/mast"
	"spectra/internal/archives/sdss"
	"spectra/internal/archives/simbad"
	"spectra/internal/config"
	"spectra/internal/exporter"
	"spectra/internal/fetchcache"
	"spectra/internal/identifier"
	"spectra/internal/normalizer"
	"spectra/internal/notifications"
	"spectra/internal/parser"
	"spectra/internal/queue"
	"spectra/internal/workflow"
)

// simbadResolver adapts the SIMBAD client to the resolver interfaces the
// identifier and SDSS fetcher expect.
type simbadResolver struct {
	client *simbad.Client
}

func (r simbadResolver) ResolveName(ctx context.Context, name string) (string, error) {
	obj, err := r.client.Resolve(ctx, name)
	if err != nil {
		return "", err
	}
	return obj.MainID, nil
}

func (r simbadResolver) ResolveCoordinates(ctx context.Context, name string) (ra, dec float64, err error) {
	obj, err := r.client.Resolve(ctx, name)
	if err != nil {
		return 0, 0, err
	}
	return obj.RA, obj.Dec, nil
}

// buildStages wires the stage handlers with the archives and caches the
// configuration enables.
func buildStages(cfg *config.Config, store *queue.Store, logger *slog.Logger) (workflow.StageSet, error) {
	httpClient := &http.Client{Timeout: time.Duration(cfg.Archives.RequestTimeout) * time.Second}

	var resolver identifier.Resolver
	var coordResolver sdss.Resolver
	if cfg.Archives.SIMBAD.Enabled {
		client, err := simbad.New(cfg.Archives.SIMBAD.BaseURL, simbad.WithHTTPClient(httpClient))
		if err != nil {
			return workflow.StageSet{}, err
		}
		adapter := simbadResolver{client: client}
		resolver = adapter
		coordResolver = adapter
	}

	var fetchers []archives.Fetcher
	if cfg.Archives.MAST.Enabled {
		client, err := mast.New(cfg.Archives.MAST.BaseURL, mast.WithHTTPClient(httpClient))
		if err != nil {
			return workflow.StageSet{}, err
		}
		fetchers = append(fetchers, client)
	}
	if cfg.Archives.SDSS.Enabled {
		opts := []sdss.Option{sdss.WithHTTPClient(httpClient)}
		if coordResolver != nil {
			opts = append(opts, sdss.WithResolver(coordResolver))
		}
		client, err := sdss.New(cfg.Archives.SDSS.BaseURL, opts...)
		if err != nil {
			return workflow.StageSet{}, err
		}
		fetchers = append(fetchers, client)
	}
	if cfg.Archives.ESO.Enabled {
		client, err := eso.New(cfg.Archives.ESO.BaseURL, eso.WithHTTPClient(httpClient))
		if err != nil {
			return workflow.StageSet{}, err
		}
		fetchers = append(fetchers, client)
	}
	registry := archives.NewRegistry(fetchers...)

	cache := buildFetchCache(cfg, logger)
	notifier := notifications.NewService(cfg)

	return workflow.StageSet{
		Identifier: identifier.New(cfg, store, logger, resolver),
		Parser:     parser.New(cfg, store, logger, registry, cache),
		Normalizer: normalizer.New(cfg, store, logger),
		Exporter:   exporter.New(cfg, store, logger, notifier),
	}, nil
}

func buildFetchCache(cfg *config.Config, logger *slog.Logger) *fetchcache.Cache {
	if !cfg.FetchCache.Enabled {
		return fetchcache.New("", 0, logger)
	}
	return fetchcache.New(cfg.FetchCache.Dir, int64(cfg.FetchCache.MaxMiB)<<20, logger)
}
