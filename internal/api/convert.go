package api

import (
	"time"

	"storybuilder/internal/preflight"
	"storybuilder/internal/session"
	"storybuilder/internal/story"
)

// FromNodes converts session nodes, adding their index and plain text.
func FromNodes(nodes []story.Node) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = FromNode(n, i)
	}
	return out
}

// FromNode converts one node at index.
func FromNode(n story.Node, index int) Node {
	return Node{ID: n.ID, Index: index, Content: n.Content, Text: story.PlainText(n.Content)}
}

// FromSnapshot converts a session snapshot and theme.
func FromSnapshot(snap session.Snapshot, theme string) Story {
	return Story{
		Nodes:           FromNodes(snap.Nodes),
		State:           string(snap.State),
		Dirty:           snap.Dirty,
		Status:          snap.Status,
		Focus:           snap.Focus,
		Placeholder:     snap.Placeholder,
		Theme:           theme,
		LastSaved:       formatTime(snap.LastSaved),
		AutosavePending: snap.Pending,
	}
}

// FromSaveResult converts a save outcome.
func FromSaveResult(res session.SaveResult, status string) SaveResponse {
	out := SaveResponse{
		Saved:        res.Saved,
		Explicit:     res.Explicit,
		Nodes:        res.Nodes,
		LastModified: formatTime(res.LastModified),
		Status:       status,
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

// FromChecks converts preflight results.
func FromChecks(results []preflight.Result) []CheckResult {
	if len(results) == 0 {
		return nil
	}
	out := make([]CheckResult, len(results))
	for i, r := range results {
		out[i] = CheckResult{Name: r.Name, Passed: r.Passed, Detail: r.Detail}
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
