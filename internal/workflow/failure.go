package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"spectra/internal/logging"
	"spectra/internal/queue"
	"spectra/internal/services"
)

func (m *Manager) handleStageFailure(ctx context.Context, stageName string, item *queue.Item, stageErr error) {
	base := m.logger
	if base == nil {
		base = logging.NewNop()
	}
	logger := logging.WithContext(ctx, base.With(logging.String(logging.FieldComponent, "workflow-manager")))

	message := classifyStageFailure(stageName, stageErr)
	resolved := services.FailureStatus(stageErr)
	if resolved == queue.StatusReview {
		item.Status = queue.StatusReview
		item.NeedsReview = true
		item.ReviewReason = message
		item.ErrorMessage = message
		item.ProgressStage = "Review"
		item.ProgressMessage = message
		item.LastHeartbeat = nil
	} else {
		item.SetFailed(message)
	}

	logger.Error("stage failed",
		logging.Error(stageErr),
		logging.String("resolved_status", string(resolved)),
		logging.String("error_message", message),
		logging.String(logging.FieldEventType, "stage_failure"),
	)

	if err := m.store.Update(ctx, item); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not update stage failure")
		} else {
			logger.Error("failed to persist stage failure", logging.Error(err))
		}
	}

	m.setLastItem(item)
	m.notifyStageFailure(ctx, stageName, item, stageErr, resolved)
	m.checkQueueCompletion(ctx)
}

func classifyStageFailure(stageName string, stageErr error) string {
	if stageErr == nil {
		if stageName != "" {
			return fmt.Sprintf("%s failed without error detail", stageName)
		}
		return "workflow failed without error detail"
	}
	message := strings.TrimSpace(stageErr.Error())
	if message == "" {
		message = fmt.Sprintf("%s failed", stageName)
	}
	return message
}

func (m *Manager) notifyStageFailure(ctx context.Context, stageName string, item *queue.Item, stageErr error, resolved queue.Status) {
	if m.notifier == nil || stageErr == nil {
		return
	}
	logger := logging.WithContext(ctx, m.logger.With(logging.String(logging.FieldComponent, "workflow-manager")))

	var err error
	if resolved == queue.StatusReview {
		err = m.notifier.NotifyReviewRequired(ctx, item.TargetName, item.ReviewReason)
	} else {
		contextLabel := fmt.Sprintf("%s (item #%d)", stageName, item.ID)
		err = m.notifier.NotifyError(ctx, stageErr, contextLabel)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not send failure notification")
		} else {
			logger.Debug("stage failure notification failed", logging.Error(err))
		}
	}
}
