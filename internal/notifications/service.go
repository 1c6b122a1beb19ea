package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"resound/internal/config"
)

const userAgent = "Resound/0.1.0"

// Service defines the notification surface exposed to scheduler components.
type Service interface {
	NotifyBatchStarted(ctx context.Context, count int) error
	NotifyBatchCompleted(ctx context.Context, completed, failed int, duration time.Duration) error
	NotifyBatchCancelled(ctx context.Context, completed, total int) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
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

	return &ntfyService{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		batchEvents: cfg.Notifications.Batch,
		errorEvents: cfg.Notifications.Errors,
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
	batchEvents bool
	errorEvents bool
}

func (n *ntfyService) NotifyBatchStarted(ctx context.Context, count int) error {
	if !n.batchEvents {
		return nil
	}
	data := payload{
		title:   "Resound - Batch Started",
		message: fmt.Sprintf("Started converting %d files", count),
		tags:    []string{"resound", "batch", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBatchCompleted(ctx context.Context, completed, failed int, duration time.Duration) error {
	if !n.batchEvents {
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

	var title, message string
	if failed == 0 {
		title = "Resound - Batch Complete"
		message = fmt.Sprintf("Converted %d files in %s", completed, durationText)
	} else {
		title = "Resound - Batch Complete (with errors)"
		message = fmt.Sprintf("Converted %d files, %d failed in %s", completed, failed, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"resound", "batch", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBatchCancelled(ctx context.Context, completed, total int) error {
	if !n.batchEvents {
		return nil
	}
	data := payload{
		title:   "Resound - Batch Cancelled",
		message: fmt.Sprintf("Cancelled after %d of %d files", completed, total),
		tags:    []string{"resound", "batch", "cancelled"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errorEvents {
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
		title:    "Resound - Error",
		message:  builder.String(),
		tags:     []string{"resound", "error"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:   "Resound - Test",
		message: "Notifications are configured correctly",
		tags:    []string{"resound", "test"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification rejected: status %d", resp.StatusCode)
	}
	return nil
}

type noopService struct{}

func (noopService) NotifyBatchStarted(context.Context, int) error { return nil }

func (noopService) NotifyBatchCompleted(context.Context, int, int, time.Duration) error { return nil }

func (noopService) NotifyBatchCancelled(context.Context, int, int) error { return nil }

func (noopService) NotifyError(context.Context, error, string) error { return nil }

func (noopService) TestNotification(context.Context) error { return nil }
