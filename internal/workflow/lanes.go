package workflow

import (
	"log/slog"

	"spectra/internal/queue"
	"spectra/internal/stage"
)

// StageSet bundles the concrete workflow handlers the manager orchestrates.
type StageSet struct {
	Identifier stage.Handler
	Parser     stage.Handler
	Normalizer stage.Handler
	Exporter   stage.Handler
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      queue.Status
	processingStatus queue.Status
	doneStatus       queue.Status
}

type laneKind string

const (
	laneForeground laneKind = "foreground"
	laneBackground laneKind = "background"
)

type laneState struct {
	kind                 laneKind
	name                 string
	stages               []pipelineStage
	statusOrder          []queue.Status
	stageByStart         map[queue.Status]pipelineStage
	processingStatuses   []queue.Status
	logger               *slog.Logger
	notificationsEnabled bool
	runReclaimer         bool
}

func (l *laneState) finalize() {
	if l == nil {
		return
	}
	l.stageByStart = make(map[queue.Status]pipelineStage, len(l.stages))
	l.statusOrder = make([]queue.Status, 0, len(l.stages))
	seenProcessing := make(map[queue.Status]struct{})
	for _, stg := range l.stages {
		l.stageByStart[stg.startStatus] = stg
		l.statusOrder = append(l.statusOrder, stg.startStatus)
		if stg.processingStatus != "" {
			if _, ok := seenProcessing[stg.processingStatus]; !ok {
				l.processingStatuses = append(l.processingStatuses, stg.processingStatus)
				seenProcessing[stg.processingStatus] = struct{}{}
			}
		}
	}
}

func (l *laneState) stageForStatus(status queue.Status) (pipelineStage, bool) {
	if l == nil {
		return pipelineStage{}, false
	}
	stg, ok := l.stageByStart[status]
	return stg, ok
}

// ConfigureStages registers the concrete stage handlers the workflow will run.
func (m *Manager) ConfigureStages(set StageSet) {
	foreground := &laneState{kind: laneForeground, name: "foreground", notificationsEnabled: true}
	background := &laneState{kind: laneBackground, name: "background", notificationsEnabled: false}

	if set.Identifier != nil {
		foreground.stages = append(foreground.stages, pipelineStage{
			name:             "identifier",
			handler:          set.Identifier,
			startStatus:      queue.StatusPending,
			processingStatus: queue.StatusIdentifying,
			doneStatus:       queue.StatusIdentified,
		})
	}
	if set.Parser != nil {
		foreground.stages = append(foreground.stages, pipelineStage{
			name:             "parser",
			handler:          set.Parser,
			startStatus:      queue.StatusIdentified,
			processingStatus: queue.StatusParsing,
			doneStatus:       queue.StatusParsed,
		})
	}
	if set.Normalizer != nil {
		foreground.stages = append(foreground.stages, pipelineStage{
			name:             "normalizer",
			handler:          set.Normalizer,
			startStatus:      queue.StatusParsed,
			processingStatus: queue.StatusNormalizing,
			doneStatus:       queue.StatusNormalized,
		})
	}
	if set.Exporter != nil {
		background.stages = append(background.stages, pipelineStage{
			name:             "exporter",
			handler:          set.Exporter,
			startStatus:      queue.StatusNormalized,
			processingStatus: queue.StatusExporting,
			doneStatus:       queue.StatusCompleted,
		})
	}

	lanes := make(map[laneKind]*laneState)
	order := make([]laneKind, 0, 2)

	if len(foreground.stages) > 0 {
		foreground.finalize()
		lanes[foreground.kind] = foreground
		order = append(order, foreground.kind)
	}
	if len(background.stages) > 0 {
		background.finalize()
		lanes[background.kind] = background
		order = append(order, background.kind)
	}

	for _, lane := range lanes {
		lane.runReclaimer = len(lane.processingStatuses) > 0
	}

	m.mu.Lock()
	m.lanes = lanes
	m.laneOrder = order
	m.mu.Unlock()
}
