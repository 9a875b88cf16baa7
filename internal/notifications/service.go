package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"spectra/internal/config"
)

const userAgent = "Spectra-Go/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyIngestComplete(ctx context.Context, target, overlayFile string) error
	NotifyFetchQueued(ctx context.Context, archive, target string) error
	NotifyReviewRequired(ctx context.Context, target, reason string) error
	NotifyError(ctx context.Context, err error, context string) error
	NotifyQueueStarted(ctx context.Context, count int) error
	NotifyQueueCompleted(ctx context.Context, processed, failed int, duration time.Duration) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	dedup := time.Duration(cfg.Notifications.DedupWindowSeconds) * time.Second
	if dedup < 0 {
		dedup = 0
	}

	return &ntfyService{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		settings:    cfg.Notifications,
		dedupWindow: dedup,
		recent:      make(map[string]time.Time),
		now:         time.Now,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	settings    config.Notifications
	dedupWindow time.Duration

	mu     sync.Mutex
	recent map[string]time.Time
	now    func() time.Time
}

func (n *ntfyService) NotifyIngestComplete(ctx context.Context, target, overlayFile string) error {
	if !n.settings.Ingest {
		return nil
	}
	target = strings.TrimSpace(target)
	message := fmt.Sprintf("Overlay ready: %s", target)
	if overlayFile = strings.TrimSpace(overlayFile); overlayFile != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, overlayFile)
	}
	data := payload{
		title:   "Spectra - Ingest Complete",
		message: message,
		tags:    []string{"spectra", "ingest", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyFetchQueued(ctx context.Context, archive, target string) error {
	if !n.settings.Queue {
		return nil
	}
	archive = strings.TrimSpace(archive)
	target = strings.TrimSpace(target)
	data := payload{
		title:   "Spectra - Fetch Queued",
		message: fmt.Sprintf("Queued %s fetch for %s", archive, target),
		tags:    []string{"spectra", "fetch", "queued"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyReviewRequired(ctx context.Context, target, reason string) error {
	if !n.settings.Review {
		return nil
	}
	target = strings.TrimSpace(target)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "manual review required"
	}
	data := payload{
		title:    "Spectra - Review Required",
		message:  fmt.Sprintf("%s needs attention: %s", target, reason),
		tags:     []string{"spectra", "review"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.settings.Errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Spectra - Error",
		message:  builder.String(),
		tags:     []string{"spectra", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueStarted(ctx context.Context, count int) error {
	if !n.settings.Queue {
		return nil
	}
	data := payload{
		title:   "Spectra - Queue Started",
		message: fmt.Sprintf("Started processing queue with %d items", count),
		tags:    []string{"spectra", "queue", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueCompleted(ctx context.Context, processed, failed int, duration time.Duration) error {
	if !n.settings.Queue {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var title string
	var message string
	if failed == 0 {
		title = "Spectra - Queue Complete"
		message = fmt.Sprintf("Queue processing complete: %d items processed in %s", processed, durationText)
	} else {
		title = "Spectra - Queue Complete (with errors)"
		message = fmt.Sprintf("Queue processing complete: %d succeeded, %d failed in %s", processed, failed, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"spectra", "queue", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Spectra - Test",
		message:  "Notification system test",
		tags:     []string{"spectra", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

// shouldSend records the message and reports whether an identical one was
// already sent inside the dedup window.
func (n *ntfyService) shouldSend(data payload) bool {
	if n.dedupWindow <= 0 {
		return true
	}
	key := data.title + "\x00" + data.message
	now := n.now()

	n.mu.Lock()
	defer n.mu.Unlock()
	if sent, ok := n.recent[key]; ok && now.Sub(sent) < n.dedupWindow {
		return false
	}
	for k, sent := range n.recent {
		if now.Sub(sent) >= n.dedupWindow {
			delete(n.recent, k)
		}
	}
	n.recent[key] = now
	return true
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}
	if !n.shouldSend(data) {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyIngestComplete(context.Context, string, string) error          { return nil }
func (noopService) NotifyFetchQueued(context.Context, string, string) error             { return nil }
func (noopService) NotifyReviewRequired(context.Context, string, string) error          { return nil }
func (noopService) NotifyError(context.Context, error, string) error                    { return nil }
func (noopService) NotifyQueueStarted(context.Context, int) error                       { return nil }
func (noopService) NotifyQueueCompleted(context.Context, int, int, time.Duration) error { return nil }
func (noopService) TestNotification(context.Context) error                              { return nil }
