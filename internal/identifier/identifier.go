// Package identifier implements the first workflow stage: deciding what a
// queue item is. Dropped files get a format sniff, a content fingerprint,
// and duplicate detection; archive requests get their target resolved to a
// canonical name.
package identifier

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"spectra/internal/config"
	"spectra/internal/identification"
	"spectra/internal/logging"
	"spectra/internal/queue"
	"spectra/internal/services"
	"spectra/internal/stage"
)

// Resolver confirms a target name against a catalog, returning the
// canonical identifier the archives know it by.
type Resolver interface {
	ResolveName(ctx context.Context, name string) (string, error)
}

// Identifier inspects new queue items and fills in format, fingerprint,
// and target fields.
type Identifier struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	resolver Resolver
}

// New constructs the identifier stage handler.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, resolver Resolver) *Identifier {
	stageLogger := logger
	if stageLogger != nil {
		stageLogger = stageLogger.With(logging.String(logging.FieldComponent, "identifier"))
	}
	return &Identifier{store: store, cfg: cfg, logger: stageLogger, resolver: resolver}
}

func (id *Identifier) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, id.logger)
	item.InitProgress("Identifying", "Inspecting source")
	logger.Info("starting identification",
		logging.String(logging.FieldTarget, item.TargetName),
		logging.String("source_kind", string(item.SourceKind)))
	return nil
}

func (id *Identifier) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, id.logger)

	switch item.SourceKind {
	case queue.SourceArchive:
		return id.identifyFetch(ctx, item, logger)
	default:
		return id.identifyFile(ctx, item, logger)
	}
}

func (id *Identifier) identifyFile(ctx context.Context, item *queue.Item, logger *slog.Logger) error {
	path := strings.TrimSpace(item.SourcePath)
	if path == "" {
		return services.Wrap(services.ErrValidation, "identifying", "validate inputs",
			"Queue item has no source path", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		return services.Wrap(services.ErrValidation, "identifying", "stat source",
			fmt.Sprintf("Source file %s is not readable", path), err)
	}
	if maxBytes := int64(id.cfg.Ingest.MaxFileMiB) << 20; maxBytes > 0 && info.Size() > maxBytes {
		return services.Wrap(services.ErrValidation, "identifying", "check size",
			fmt.Sprintf("Source file %s exceeds the %d MiB ingest limit", path, id.cfg.Ingest.MaxFileMiB), nil)
	}

	item.SetProgress("Identifying", "Sniffing format", 25)

	format, err := identification.Sniff(path)
	if err != nil {
		return services.Wrap(services.ErrValidation, "identifying", "sniff format",
			fmt.Sprintf("Could not determine spectrum format of %s", path), err)
	}
	item.FormatHint = string(format)

	item.SetProgress("Identifying", "Fingerprinting content", 50)
	fingerprint, err := identification.Fingerprint(path)
	if err != nil {
		return services.Wrap(services.ErrTransient, "identifying", "fingerprint",
			fmt.Sprintf("Could not hash %s", path), err)
	}

	if existing, err := id.store.FindByFingerprint(ctx, fingerprint); err == nil &&
		existing != nil && existing.ID != item.ID && existing.Status != queue.StatusFailed {
		return services.Wrap(services.ErrValidation, "identifying", "check duplicates",
			fmt.Sprintf("Content already ingested as item %d (%s)", existing.ID, existing.TargetName), nil)
	}
	item.Fingerprint = fingerprint

	item.SetProgress("Identifying", "Resolving target name", 75)
	item.TargetName = id.resolveTarget(ctx, item.TargetName, logger)

	item.Status = queue.StatusIdentified
	item.SetProgressComplete("Identified", fmt.Sprintf("%s spectrum for %s", format, item.TargetName))
	logger.Info("identification complete",
		logging.String(logging.FieldFormat, item.FormatHint),
		logging.String(logging.FieldTarget, item.TargetName))
	return nil
}

func (id *Identifier) identifyFetch(ctx context.Context, item *queue.Item, logger *slog.Logger) error {
	target := strings.TrimSpace(item.TargetName)
	if target == "" {
		return services.Wrap(services.ErrValidation, "identifying", "validate inputs",
			"Fetch request has no target name", nil)
	}

	item.SetProgress("Identifying", "Resolving target name", 50)
	item.TargetName = id.resolveTarget(ctx, target, logger)
	item.FormatHint = string(identification.FormatFITS)

	item.Status = queue.StatusIdentified
	item.SetProgressComplete("Identified", fmt.Sprintf("fetch %s from %s", item.TargetName, item.ArchiveName))
	logger.Info("identification complete",
		logging.String(logging.FieldArchive, item.ArchiveName),
		logging.String(logging.FieldTarget, item.TargetName))
	return nil
}

// resolveTarget asks the catalog for the canonical identifier, falling back
// to local canonicalization when the resolver is absent or fails.
func (id *Identifier) resolveTarget(ctx context.Context, name string, logger *slog.Logger) string {
	canonical := identification.CanonicalTarget(name)
	if canonical == "" {
		canonical = "unknown target"
	}
	if id.resolver == nil {
		return canonical
	}
	resolved, err := id.resolver.ResolveName(ctx, name)
	if err != nil {
		logger.Warn("target resolution failed, using local canonical name",
			logging.String(logging.FieldTarget, canonical),
			logging.Error(err))
		return canonical
	}
	if resolved = identification.CanonicalTarget(resolved); resolved != "" {
		return resolved
	}
	return canonical
}

func (id *Identifier) HealthCheck(ctx context.Context) stage.Health {
	if id.store == nil {
		return stage.Unhealthy("identifier", "queue store unavailable")
	}
	return stage.Healthy("identifier")
}
