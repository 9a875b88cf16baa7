// Package parser implements the second workflow stage: turning a source
// file or fetched archive product into a typed spectrum with its source
// units preserved. Parsed spectra land in the staging area as JSON.
package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"spectra/internal/archives"
	"spectra/internal/asciitab"
	"spectra/internal/config"
	"spectra/internal/fetchcache"
	"spectra/internal/fitsio"
	"spectra/internal/identification"
	"spectra/internal/jcamp"
	"spectra/internal/logging"
	"spectra/internal/queue"
	"spectra/internal/services"
	"spectra/internal/spectrum"
	"spectra/internal/stage"
)

// Parser converts identified items into staged spectrum JSON.
type Parser struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	registry *archives.Registry
	cache    *fetchcache.Cache
}

// New constructs the parser stage handler.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, registry *archives.Registry, cache *fetchcache.Cache) *Parser {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String(logging.FieldComponent, "parser"))
	}
	return &Parser{store: store, cfg: cfg, logger: stageLogger, registry: registry, cache: cache}
}

func (p *Parser) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, p.logger)
	item.InitProgress("Parsing", "Preparing to parse")
	logger.Info("starting parse",
		logging.String(logging.FieldFormat, item.FormatHint),
		logging.String(logging.FieldTarget, item.TargetName))
	return nil
}

func (p *Parser) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, p.logger)

	data, sourceLabel, err := p.sourceData(ctx, item, logger)
	if err != nil {
		return err
	}

	format, ok := identification.ParseFormat(item.FormatHint)
	if !ok {
		detected, err := identification.SniffBytes(data, filepath.Ext(sourceLabel))
		if err != nil {
			return services.Wrap(services.ErrValidation, "parsing", "detect format",
				fmt.Sprintf("Unknown spectrum format for %s", sourceLabel), err)
		}
		format = detected
		item.FormatHint = string(format)
	}

	item.SetProgress("Parsing", fmt.Sprintf("Decoding %s data", format), 50)
	spec, trace, err := p.parse(format, data, item)
	if err != nil {
		return services.Wrap(services.ErrValidation, "parsing", "decode spectrum",
			fmt.Sprintf("Could not parse %s content from %s", format, sourceLabel), err)
	}

	spec.SortAscending()
	if err := spec.Validate(); err != nil {
		return services.Wrap(services.ErrValidation, "parsing", "validate spectrum",
			"Parsed spectrum failed validation", err)
	}

	stagingDir := filepath.Join(p.cfg.Paths.StagingDir, fmt.Sprintf("item-%d", item.ID))
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return services.Wrap(services.ErrTransient, "parsing", "create staging dir",
			fmt.Sprintf("Could not create %s", stagingDir), err)
	}
	parsedPath := filepath.Join(stagingDir, "parsed.json")
	if err := spec.WriteFile(parsedPath); err != nil {
		return services.Wrap(services.ErrTransient, "parsing", "write staged spectrum",
			fmt.Sprintf("Could not write %s", parsedPath), err)
	}

	traceJSON, err := json.Marshal(trace)
	if err != nil {
		return services.Wrap(services.ErrTransient, "parsing", "encode trace",
			"Could not encode provenance trace", err)
	}
	item.ParsedFile = parsedPath
	item.ProvenanceJSON = string(traceJSON)
	item.Status = queue.StatusParsed
	item.SetProgressComplete("Parsed", fmt.Sprintf("%d samples in %s", spec.Len(), spec.WavelengthUnit))
	logger.Info("parse complete",
		logging.Int("samples", spec.Len()),
		logging.String("wavelength_unit", spec.WavelengthUnit))
	return nil
}

// traceRecord is the per-item provenance fragment carried on the queue item
// until export merges it into the target manifest.
type traceRecord struct {
	TraceID     string            `json:"trace_id"`
	Source      string            `json:"source"`
	SourcePath  string            `json:"source_path,omitempty"`
	Query       map[string]string `json:"query,omitempty"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	SourceUnit  string            `json:"source_unit,omitempty"`
	FluxUnit    string            `json:"flux_unit,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// sourceData returns the raw bytes to parse: file content for dropped
// files, a (possibly cached) download for archive requests.
func (p *Parser) sourceData(ctx context.Context, item *queue.Item, logger *slog.Logger) ([]byte, string, error) {
	if item.SourceKind != queue.SourceArchive {
		path := strings.TrimSpace(item.SourcePath)
		if path == "" {
			return nil, "", services.Wrap(services.ErrValidation, "parsing", "validate inputs",
				"Queue item has no source path", nil)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", services.Wrap(services.ErrTransient, "parsing", "read source",
				fmt.Sprintf("Could not read %s", path), err)
		}
		return data, path, nil
	}

	fetcher, ok := p.registry.Get(item.ArchiveName)
	if !ok {
		return nil, "", services.Wrap(services.ErrConfiguration, "parsing", "select archive",
			fmt.Sprintf("Archive %q is not configured or disabled", item.ArchiveName), nil)
	}

	cacheKey := fetchcache.Key(item.ArchiveName, item.TargetName, item.ArchiveQueryJSON)
	if data, entry, hit := p.cache.Lookup(cacheKey); hit {
		item.Fingerprint = identification.FingerprintBytes(data)
		logger.Info("serving archive product from cache",
			logging.String(logging.FieldArchive, item.ArchiveName),
			logging.String("file", entry.BlobFile))
		return data, entry.BlobFile, nil
	}

	item.SetProgress("Parsing", fmt.Sprintf("Fetching from %s", item.ArchiveName), 20)
	product, err := fetcher.Fetch(ctx, item.TargetName)
	if err != nil {
		if errors.Is(err, archives.ErrNoProduct) {
			return nil, "", services.Wrap(services.ErrNotFound, "parsing", "fetch product",
				fmt.Sprintf("%s has no product for %s", item.ArchiveName, item.TargetName), err)
		}
		return nil, "", services.Wrap(services.ErrExternalService, "parsing", "fetch product",
			fmt.Sprintf("Fetch from %s failed", item.ArchiveName), err)
	}

	if err := p.cache.Store(cacheKey, product.Archive, product.Target, item.ArchiveQueryJSON, product.Data); err != nil {
		logger.Warn("could not cache archive product", logging.Error(err))
	}
	item.Fingerprint = identification.FingerprintBytes(product.Data)
	if product.Format != "" {
		item.FormatHint = product.Format
	}
	return product.Data, product.FileName, nil
}

func (p *Parser) parse(format identification.Format, data []byte, item *queue.Item) (*spectrum.Spectrum, *traceRecord, error) {
	trace := &traceRecord{
		TraceID:     uuid.NewString(),
		Source:      string(item.SourceKind),
		SourcePath:  item.SourcePath,
		Fingerprint: item.Fingerprint,
	}
	if item.SourceKind == queue.SourceArchive {
		trace.Source = item.ArchiveName
		if item.ArchiveQueryJSON != "" {
			query := map[string]string{}
			if err := json.Unmarshal([]byte(item.ArchiveQueryJSON), &query); err == nil {
				trace.Query = query
			}
		}
	}

	spec := &spectrum.Spectrum{Target: item.TargetName, TraceID: trace.TraceID}
	switch format {
	case identification.FormatFITS:
		series, err := fitsio.Read(bytes.NewReader(data))
		if err != nil {
			return nil, nil, err
		}
		spec.Wavelength = series.Wavelength
		spec.Flux = series.Flux
		spec.WavelengthUnit = series.WavelengthUnit
		spec.FluxUnit = series.FluxUnit
		trace.Extra = map[string]string{}
		if series.Telescope != "" {
			trace.Extra["telescope"] = series.Telescope
		}
		if series.Instrument != "" {
			trace.Extra["instrument"] = series.Instrument
		}
		if series.Target != "" && item.TargetName == "" {
			spec.Target = series.Target
		}
	case identification.FormatJCAMP:
		series, err := jcamp.Read(bytes.NewReader(data))
		if err != nil {
			return nil, nil, err
		}
		spec.Wavelength = series.Wavelength
		spec.Flux = series.Flux
		spec.WavelengthUnit = series.WavelengthUnit
		spec.FluxUnit = series.FluxUnit
		if series.Title != "" {
			trace.Extra = map[string]string{"title": series.Title}
		}
	default:
		series, err := asciitab.Read(bytes.NewReader(data))
		if err != nil {
			return nil, nil, err
		}
		spec.Wavelength = series.Wavelength
		spec.Flux = series.Flux
		spec.WavelengthUnit = series.WavelengthUnit
		spec.FluxUnit = series.FluxUnit
	}

	trace.SourceUnit = spec.WavelengthUnit
	trace.FluxUnit = spec.FluxUnit
	return spec, trace, nil
}

func (p *Parser) HealthCheck(ctx context.Context) stage.Health {
	if p.registry == nil {
		return stage.Unhealthy("parser", "archive registry unavailable")
	}
	if err := os.MkdirAll(p.cfg.Paths.StagingDir, 0o755); err != nil {
		return stage.Unhealthy("parser", fmt.Sprintf("staging dir: %v", err))
	}
	return stage.Healthy("parser")
}
