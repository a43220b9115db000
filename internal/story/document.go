package story

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout is the persisted lastModified layout: ISO-8601 UTC with
// millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Document is the persisted form of a story.
type Document struct {
	Nodes        []string
	LastModified time.Time
}

type wireDocument struct {
	Nodes        []string `json:"nodes"`
	LastModified string   `json:"lastModified"`
}

// NewDocument snapshots the story contents with the given modification time.
func NewDocument(s *Story, modified time.Time) Document {
	return Document{Nodes: s.Contents(), LastModified: modified}
}

// Encode serializes a document to its persisted JSON form.
func Encode(doc Document) (string, error) {
	nodes := doc.Nodes
	if nodes == nil {
		nodes = []string{}
	}
	wire := wireDocument{
		Nodes:        nodes,
		LastModified: doc.LastModified.UTC().Format(TimestampLayout),
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return string(data), nil
}

// Decode parses a persisted value. The value must be one JSON object whose
// "nodes" field is an array of strings; a lastModified that does not parse is
// left as the zero time.
func Decode(value string) (Document, error) {
	var raw any
	if err := json.Unmarshal([]byte(value), &raw); err != nil {
		return Document{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	object, ok := raw.(map[string]any)
	if !ok {
		return Document{}, fmt.Errorf("%w: expected object, got %s", ErrMalformed, jsonKind(raw))
	}

	field, present := object["nodes"]
	if !present {
		return Document{}, fmt.Errorf("%w: nodes is missing", ErrMalformed)
	}
	doc := Document{Nodes: []string{}}
	switch nodes := field.(type) {
	case []any:
		for i, entry := range nodes {
			content, ok := entry.(string)
			if !ok {
				return Document{}, fmt.Errorf("%w: node %d is %s, not string", ErrMalformed, i, jsonKind(entry))
			}
			doc.Nodes = append(doc.Nodes, content)
		}
	default:
		return Document{}, fmt.Errorf("%w: nodes is %s, not array", ErrMalformed, jsonKind(nodes))
	}

	if stamp, ok := object["lastModified"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, stamp); err == nil {
			doc.LastModified = parsed.UTC()
		}
	}
	return doc, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
