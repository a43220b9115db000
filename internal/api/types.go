package api

import "storybuilder/internal/events"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Node is one story node.
type Node struct {
	ID      string `json:"id"`
	Index   int    `json:"index"`
	Content string `json:"content"`
	Text    string `json:"text"`
}

// Story is the full editor state.
type Story struct {
	Nodes           []Node `json:"nodes"`
	State           string `json:"state"`
	Dirty           bool   `json:"dirty"`
	Status          string `json:"status"`
	Focus           string `json:"focus,omitempty"`
	Placeholder     string `json:"placeholder"`
	Theme           string `json:"theme"`
	LastSaved       string `json:"lastSaved,omitempty"`
	AutosavePending bool   `json:"autosavePending"`
}

// NodeRequest creates or updates a node.
type NodeRequest struct {
	Content string `json:"content"`
	Focus   bool   `json:"focus,omitempty"`
	Index   *int   `json:"index,omitempty"`
}

// MoveRequest reorders a node.
type MoveRequest struct {
	Index int `json:"index"`
}

// SaveResponse reports a save attempt.
type SaveResponse struct {
	Saved        bool   `json:"saved"`
	Explicit     bool   `json:"explicit"`
	Nodes        int    `json:"nodes"`
	LastModified string `json:"lastModified,omitempty"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
}

// Preview carries rendered preview markup.
type Preview struct {
	HTML string `json:"html"`
}

// Theme carries the theme preference.
type Theme struct {
	Theme string `json:"theme"`
}

// KeyRequest dispatches a keyboard chord such as "ctrl+s".
type KeyRequest struct {
	Key string `json:"key"`
}

// KeyResponse reports whether the chord was handled.
type KeyResponse struct {
	Handled bool          `json:"handled"`
	Action  string        `json:"action,omitempty"`
	Node    *Node         `json:"node,omitempty"`
	Save    *SaveResponse `json:"save,omitempty"`
}

// CheckResult mirrors one preflight check.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// DaemonStatus summarizes the running daemon.
type DaemonStatus struct {
	Running      bool          `json:"running"`
	PID          int           `json:"pid"`
	Started      string        `json:"started"`
	Backend      string        `json:"backend"`
	LockFilePath string        `json:"lockFilePath"`
	Story        Story         `json:"story"`
	Checks       []CheckResult `json:"checks,omitempty"`
}

// EventsResponse is one page of hub events.
type EventsResponse struct {
	Events []events.Event `json:"events"`
	Next   uint64         `json:"next"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
