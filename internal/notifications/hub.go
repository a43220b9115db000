package notifications

import (
	"context"

	"storybuilder/internal/events"
)

// HubSink publishes notifications to an event hub.
type HubSink struct {
	hub *events.Hub
}

// NewHubSink returns a service that publishes to hub.
func NewHubSink(hub *events.Hub) *HubSink {
	return &HubSink{hub: hub}
}

func (h *HubSink) Notify(_ context.Context, n Notification) error {
	h.hub.Publish(events.Event{
		Type:    events.TypeNotification,
		Level:   string(n.Level),
		Title:   n.Title,
		Message: n.Message,
	})
	return nil
}
