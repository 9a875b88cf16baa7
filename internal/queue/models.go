package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending     Status = "pending"
	StatusIdentifying Status = "identifying"
	StatusIdentified  Status = "identified"
	StatusParsing     Status = "parsing"
	StatusParsed      Status = "parsed"
	StatusNormalizing Status = "normalizing"
	StatusNormalized  Status = "normalized"
	StatusExporting   Status = "exporting"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusReview      Status = "review"
)

// SourceKind distinguishes dropped files from archive fetch requests.
type SourceKind string

const (
	SourceFile    SourceKind = "file"
	SourceArchive SourceKind = "archive"
)

// UserStopReason is the review reason set when a user explicitly stops an item.
const UserStopReason = "Stop requested by user"

// DaemonStopReason is the error message set when items are failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusIdentifying,
	StatusIdentified,
	StatusParsing,
	StatusParsed,
	StatusNormalizing,
	StatusNormalized,
	StatusExporting,
	StatusCompleted,
	StatusFailed,
	StatusReview,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var processingStatuses = map[Status]struct{}{
	StatusIdentifying: {},
	StatusParsing:     {},
	StatusNormalizing: {},
	StatusExporting:   {},
}

type statusTransition struct {
	from Status
	to   Status
}

var stageRollbackTransitions = []statusTransition{
	{from: StatusIdentifying, to: StatusPending},
	{from: StatusParsing, to: StatusIdentified},
	{from: StatusNormalizing, to: StatusParsed},
	{from: StatusExporting, to: StatusNormalized},
}

// DatabaseHealth captures diagnostic information about the queue database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}

// HealthSummary describes aggregated queue counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Review     int
	Completed  int
}

// Item represents a queue item persisted in SQLite.
type Item struct {
	ID               int64
	SourceKind       SourceKind
	SourcePath       string
	TargetName       string
	Status           Status
	FormatHint       string
	Fingerprint      string
	ArchiveName      string
	ArchiveQueryJSON string
	ParsedFile       string
	NormalizedFile   string
	OverlayFile      string
	ProvenanceJSON   string
	MetadataJSON     string
	ErrorMessage     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ProgressStage    string
	ProgressPercent  float64
	ProgressMessage  string
	LastHeartbeat    *time.Time
	NeedsReview      bool
	ReviewReason     string
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsProcessing returns true when the status reflects an in-flight operation.
func (i Item) IsProcessing() bool {
	_, ok := processingStatuses[i.Status]
	return ok
}

// IsProcessingStatus reports whether a status reflects an in-flight operation.
func IsProcessingStatus(status Status) bool {
	_, ok := processingStatuses[status]
	return ok
}

// IsUserStopReason reports whether a review reason represents a user-initiated stop.
func IsUserStopReason(reason string) bool {
	return strings.EqualFold(strings.TrimSpace(reason), UserStopReason)
}

// InitProgress resets progress fields for a new stage. An already populated
// ProgressStage is preserved to support resume.
func (i *Item) InitProgress(stage, message string) {
	if i.ProgressStage == "" {
		i.ProgressStage = stage
	}
	i.ProgressMessage = message
	i.ProgressPercent = 0
	i.ErrorMessage = ""
}

// SetProgress updates all three progress fields together.
func (i *Item) SetProgress(stage, message string, percent float64) {
	i.ProgressStage = stage
	i.ProgressMessage = message
	i.ProgressPercent = percent
}

// SetProgressComplete sets progress to 100% with the given stage and message.
func (i *Item) SetProgressComplete(stage, message string) {
	i.SetProgress(stage, message, 100)
}

// SetFailed marks the item as failed with the given error message.
func (i *Item) SetFailed(message string) {
	i.Status = StatusFailed
	i.ErrorMessage = message
	i.ProgressPercent = 0
	i.ProgressMessage = message
	i.LastHeartbeat = nil
	i.ProgressStage = "Failed"
}

// IsInWorkflow returns true when an item is actively progressing (or queued
// to progress) through stages.
func (i Item) IsInWorkflow() bool {
	if i.IsProcessing() {
		return true
	}
	switch i.Status {
	case StatusIdentified, StatusParsed, StatusNormalized, StatusCompleted:
		return true
	default:
		return false
	}
}

// ProcessingLane partitions workflow into user-facing foreground stages and
// background work.
type ProcessingLane string

const (
	LaneForeground ProcessingLane = "foreground"
	LaneBackground ProcessingLane = "background"
)

// LaneForItem maps a queue item to its processing lane for observability.
func LaneForItem(item *Item) ProcessingLane {
	if item == nil {
		return LaneForeground
	}
	switch item.Status {
	case StatusNormalized, StatusExporting, StatusCompleted:
		return LaneBackground
	default:
		return LaneForeground
	}
}
