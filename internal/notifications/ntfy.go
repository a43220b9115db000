package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

// Ntfy publishes notifications to an ntfy topic URL.
type Ntfy struct {
	endpoint string
	client   *http.Client
}

// NewNtfy returns a service posting to endpoint. A nil client uses
// http.DefaultClient.
func NewNtfy(endpoint string, client *http.Client) *Ntfy {
	if client == nil {
		client = http.DefaultClient
	}
	return &Ntfy{endpoint: endpoint, client: client}
}

func (n *Ntfy) Notify(ctx context.Context, note Notification) error {
	data := payload{
		title:   note.Title,
		message: strings.TrimSpace(note.Message),
		tags:    []string{"storybuilder", string(note.Level)},
	}
	switch note.Level {
	case LevelError:
		data.priority = "high"
		data.tags = append(data.tags, "warning")
	case LevelInfo:
		data.priority = "low"
	}
	return n.send(ctx, data)
}

func (n *Ntfy) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
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
