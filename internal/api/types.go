package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueItem describes a queue entry in a transport-friendly format.
type QueueItem struct {
	ID             int64           `json:"id"`
	TargetName     string          `json:"targetName"`
	SourceKind     string          `json:"sourceKind"`
	SourcePath     string          `json:"sourcePath,omitempty"`
	ArchiveName    string          `json:"archiveName,omitempty"`
	ArchiveQuery   json.RawMessage `json:"archiveQuery,omitempty"`
	Status         string          `json:"status"`
	ProcessingLane string          `json:"processingLane"`
	FormatHint     string          `json:"formatHint,omitempty"`
	Fingerprint    string          `json:"fingerprint,omitempty"`
	Progress       QueueProgress   `json:"progress"`
	ErrorMessage   string          `json:"errorMessage,omitempty"`
	CreatedAt      string          `json:"createdAt,omitempty"`
	UpdatedAt      string          `json:"updatedAt,omitempty"`
	ParsedFile     string          `json:"parsedFile,omitempty"`
	NormalizedFile string          `json:"normalizedFile,omitempty"`
	OverlayFile    string          `json:"overlayFile,omitempty"`
	NeedsReview    bool            `json:"needsReview"`
	ReviewReason   string          `json:"reviewReason,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
}

// QueueProgress captures stage progress information for a queue entry.
type QueueProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	QueueStats  map[string]int `json:"queueStats"`
	LastError   string         `json:"lastError,omitempty"`
	LastItem    *QueueItem     `json:"lastItem,omitempty"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	QueueDBPath  string         `json:"queueDbPath"`
	LockFilePath string         `json:"lockFilePath"`
	Workflow     WorkflowStatus `json:"workflow"`
}

// QueueStatsResponse provides a normalized queue stats payload.
type QueueStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// QueueListResponse wraps a collection of queue items for API responses.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueItemResponse wraps a single queue item.
type QueueItemResponse struct {
	Item QueueItem `json:"item"`
}

// QueueHealth reports aggregate queue diagnostics.
type QueueHealth struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Failed     int `json:"failed"`
	Review     int `json:"review"`
	Completed  int `json:"completed"`
}
