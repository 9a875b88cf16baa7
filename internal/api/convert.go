package api

import (
	"encoding/json"
	"slices"

	"spectra/internal/queue"
	"spectra/internal/workflow"
)

// FromQueueItem converts a queue record to its API representation.
func FromQueueItem(item *queue.Item) QueueItem {
	if item == nil {
		return QueueItem{}
	}

	dto := QueueItem{
		ID:             item.ID,
		TargetName:     item.TargetName,
		SourceKind:     string(item.SourceKind),
		SourcePath:     item.SourcePath,
		ArchiveName:    item.ArchiveName,
		Status:         string(item.Status),
		ProcessingLane: string(queue.LaneForItem(item)),
		FormatHint:     item.FormatHint,
		Fingerprint:    item.Fingerprint,
		Progress: QueueProgress{
			Stage:   item.ProgressStage,
			Percent: item.ProgressPercent,
			Message: item.ProgressMessage,
		},
		ErrorMessage:   item.ErrorMessage,
		ParsedFile:     item.ParsedFile,
		NormalizedFile: item.NormalizedFile,
		OverlayFile:    item.OverlayFile,
		NeedsReview:    item.NeedsReview,
		ReviewReason:   item.ReviewReason,
	}

	if !item.CreatedAt.IsZero() {
		dto.CreatedAt = item.CreatedAt.UTC().Format(dateTimeFormat)
	}
	if !item.UpdatedAt.IsZero() {
		dto.UpdatedAt = item.UpdatedAt.UTC().Format(dateTimeFormat)
	}
	if raw := item.ArchiveQueryJSON; raw != "" {
		dto.ArchiveQuery = json.RawMessage(raw)
	}
	if raw := item.MetadataJSON; raw != "" {
		dto.Metadata = json.RawMessage(raw)
	}
	return dto
}

// FromQueueItems converts a slice of queue records into API DTOs.
func FromQueueItems(items []*queue.Item) []QueueItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]QueueItem, 0, len(items))
	for _, item := range items {
		out = append(out, FromQueueItem(item))
	}
	return out
}

// FromStatusSummary converts a workflow status summary to API payload.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	healthNames := make([]string, 0, len(summary.StageHealth))
	for name := range summary.StageHealth {
		healthNames = append(healthNames, name)
	}
	slices.Sort(healthNames)

	health := make([]StageHealth, 0, len(healthNames))
	for _, name := range healthNames {
		h := summary.StageHealth[name]
		health = append(health, StageHealth{
			Name:   name,
			Ready:  h.Ready,
			Detail: h.Detail,
		})
	}

	stats := make(map[string]int, len(summary.QueueStats))
	for status, count := range summary.QueueStats {
		stats[string(status)] = count
	}

	wf := WorkflowStatus{
		Running:     summary.Running,
		QueueStats:  stats,
		StageHealth: health,
	}
	if summary.LastError != "" {
		wf.LastError = summary.LastError
	}
	if summary.LastItem != nil {
		item := FromQueueItem(summary.LastItem)
		wf.LastItem = &item
	}
	return wf
}

// FromHealthSummary converts queue diagnostics to the API payload.
func FromHealthSummary(summary queue.HealthSummary) QueueHealth {
	return QueueHealth{
		Total:      summary.Total,
		Pending:    summary.Pending,
		Processing: summary.Processing,
		Failed:     summary.Failed,
		Review:     summary.Review,
		Completed:  summary.Completed,
	}
}
