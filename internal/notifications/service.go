package notifications

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"storybuilder/internal/config"
)

const userAgent = "StoryBuilder-Go/0.1.0"

// Level classifies a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notification is one transient message.
type Notification struct {
	Level   Level  `json:"level"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message"`
}

// Success builds a success notification.
func Success(message string) Notification {
	return Notification{Level: LevelSuccess, Title: "Story Builder", Message: message}
}

// Failure builds an error notification.
func Failure(message string) Notification {
	return Notification{Level: LevelError, Title: "Story Builder - Error", Message: message}
}

// Service delivers notifications.
type Service interface {
	Notify(ctx context.Context, n Notification) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return Noop()
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return NewNtfy(topic, &http.Client{Timeout: timeout})
}

type multi []Service

// Multi delivers each notification to every non-nil service. A failing
// service does not stop delivery to the rest; their errors are joined.
func Multi(services ...Service) Service {
	out := make(multi, 0, len(services))
	for _, svc := range services {
		if svc == nil {
			continue
		}
		if _, isNoop := svc.(noopService); isNoop {
			continue
		}
		out = append(out, svc)
	}
	switch len(out) {
	case 0:
		return Noop()
	case 1:
		return out[0]
	}
	return out
}

func (m multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, svc := range m {
		if err := svc.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type noopService struct{}

// Noop returns a service that discards every notification.
func Noop() Service { return noopService{} }

func (noopService) Notify(context.Context, Notification) error { return nil }

// ServiceFunc adapts a function to the Service interface.
type ServiceFunc func(ctx context.Context, n Notification) error

func (f ServiceFunc) Notify(ctx context.Context, n Notification) error { return f(ctx, n) }
