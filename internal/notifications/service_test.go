package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"resound/internal/config"
	"resound/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyBatchStarted(context.Background(), 5); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func newCaptureServer(t *testing.T) (*httptest.Server, *http.Header, *string) {
	t.Helper()
	var header http.Header
	var body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Clone()
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, &header, &body
}

func newTestService(t *testing.T, endpoint string) notifications.Service {
	t.Helper()
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = endpoint
	return notifications.NewService(&cfg)
}

func TestBatchCompletedFormatsMessage(t *testing.T) {
	server, header, body := newCaptureServer(t)
	svc := newTestService(t, server.URL)

	if err := svc.NotifyBatchCompleted(context.Background(), 9, 0, 95*time.Second); err != nil {
		t.Fatalf("NotifyBatchCompleted failed: %v", err)
	}
	if got := header.Get("Title"); got != "Resound - Batch Complete" {
		t.Fatalf("unexpected title %q", got)
	}
	if !strings.Contains(*body, "Converted 9 files in 1m35s") {
		t.Fatalf("unexpected body %q", *body)
	}
}

func TestBatchCompletedWithFailures(t *testing.T) {
	server, header, body := newCaptureServer(t)
	svc := newTestService(t, server.URL)

	if err := svc.NotifyBatchCompleted(context.Background(), 3, 2, time.Second); err != nil {
		t.Fatalf("NotifyBatchCompleted failed: %v", err)
	}
	if got := header.Get("Title"); !strings.Contains(got, "with errors") {
		t.Fatalf("expected error title, got %q", got)
	}
	if !strings.Contains(*body, "3 files, 2 failed") {
		t.Fatalf("unexpected body %q", *body)
	}
}

func TestErrorNotificationHasHighPriority(t *testing.T) {
	server, header, _ := newCaptureServer(t)
	svc := newTestService(t, server.URL)

	if err := svc.NotifyError(context.Background(), errors.New("boom"), "batch run"); err != nil {
		t.Fatalf("NotifyError failed: %v", err)
	}
	if got := header.Get("Priority"); got != "high" {
		t.Fatalf("expected high priority, got %q", got)
	}
}

func TestRejectedNotificationSurfacesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(server.Close)
	svc := newTestService(t, server.URL)

	err := svc.NotifyBatchStarted(context.Background(), 1)
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected status error, got %v", err)
	}
}
