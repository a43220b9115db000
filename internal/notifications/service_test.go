package notifications_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storybuilder/internal/config"
	"storybuilder/internal/events"
	"storybuilder/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Notify(context.Background(), notifications.Success("Story saved successfully")); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		note           notifications.Notification
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:          "save success",
			note:          notifications.Success("Story saved successfully"),
			expectTitle:   "Story Builder",
			expectMessage: "Story saved successfully",
			expectTags:    "storybuilder,success",
		},
		{
			name:           "save failure",
			note:           notifications.Failure("Error saving story"),
			expectTitle:    "Story Builder - Error",
			expectMessage:  "Error saving story",
			expectTags:     "storybuilder,error,warning",
			expectPriority: "high",
		},
		{
			name:           "info",
			note:           notifications.Notification{Level: notifications.LevelInfo, Message: "  hello  "},
			expectMessage:  "hello",
			expectTags:     "storybuilder,info",
			expectPriority: "low",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *http.Request
			var body string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				data, _ := io.ReadAll(r.Body)
				body = string(data)
				got = r.Clone(context.Background())
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			svc := notifications.NewService(&cfg)
			if err := svc.Notify(context.Background(), tt.note); err != nil {
				t.Fatalf("Notify: %v", err)
			}

			if got == nil {
				t.Fatal("server received no request")
			}
			if got.Method != http.MethodPost {
				t.Fatalf("method = %s", got.Method)
			}
			if body != tt.expectMessage {
				t.Fatalf("body = %q, want %q", body, tt.expectMessage)
			}
			if title := got.Header.Get("Title"); title != tt.expectTitle {
				t.Fatalf("Title = %q, want %q", title, tt.expectTitle)
			}
			if tags := got.Header.Get("Tags"); tags != tt.expectTags {
				t.Fatalf("Tags = %q, want %q", tags, tt.expectTags)
			}
			if priority := got.Header.Get("Priority"); priority != tt.expectPriority {
				t.Fatalf("Priority = %q, want %q", priority, tt.expectPriority)
			}
		})
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic blocked", http.StatusForbidden)
	}))
	defer server.Close()

	svc := notifications.NewNtfy(server.URL, server.Client())
	err := svc.Notify(context.Background(), notifications.Success("x"))
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}

func TestConsoleWritesPlainLineForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	console := notifications.NewConsole(&buf, nil)
	if err := console.Notify(context.Background(), notifications.Failure("Error saving story")); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "[error] Error saving story\n" {
		t.Fatalf("console output = %q", got)
	}
}

func TestHubSinkPublishesNotificationEvent(t *testing.T) {
	hub := events.NewHub(8)
	sink := notifications.NewHubSink(hub)
	if err := sink.Notify(context.Background(), notifications.Success("Story exported successfully")); err != nil {
		t.Fatal(err)
	}
	got, _ := hub.Tail(1)
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
	if got[0].Type != events.TypeNotification || got[0].Level != "success" || got[0].Message != "Story exported successfully" {
		t.Fatalf("event = %+v", got[0])
	}
}

func TestMultiDeliversToAllAndJoinsErrors(t *testing.T) {
	var calls []string
	record := func(name string, err error) notifications.Service {
		return notifications.ServiceFunc(func(_ context.Context, n notifications.Notification) error {
			calls = append(calls, name+":"+n.Message)
			return err
		})
	}
	boom := errors.New("boom")
	svc := notifications.Multi(record("a", boom), nil, notifications.Noop(), record("b", nil))

	err := svc.Notify(context.Background(), notifications.Success("hi"))
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error to contain boom, got %v", err)
	}
	if strings.Join(calls, ",") != "a:hi,b:hi" {
		t.Fatalf("calls = %v", calls)
	}
}

func TestMultiOfNothingIsNoop(t *testing.T) {
	if err := notifications.Multi().Notify(context.Background(), notifications.Success("x")); err != nil {
		t.Fatal(err)
	}
}
