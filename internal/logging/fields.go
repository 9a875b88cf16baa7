package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldItemID is the standardized structured logging key for queue item identifiers.
	FieldItemID = "item_id"
	// FieldStage is the standardized structured logging key for workflow stage names.
	FieldStage = "stage"
	// FieldLane is the standardized structured logging key for workflow lane names.
	FieldLane = "lane"
	// FieldTarget is the standardized structured logging key for astronomical target names.
	FieldTarget = "target"
	// FieldArchive is the standardized structured logging key for archive service names.
	FieldArchive = "archive"
	// FieldFormat is the standardized structured logging key for detected spectrum formats.
	FieldFormat = "format"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType tags log events with a machine-filterable category.
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next diagnostic step for a failure.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for the user-facing consequence of a warning.
	FieldImpact = "impact"
)
