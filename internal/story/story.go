package story

import (
	"fmt"

	"github.com/google/uuid"
)

// Node is one block of story content.
type Node struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// Story is an ordered sequence of nodes. The zero value is an empty story.
// Story is not safe for concurrent use; the session serializes access.
type Story struct {
	nodes []Node
	newID func() string
}

// New returns a story holding the given contents in order, each with a fresh ID.
func New(contents ...string) *Story {
	s := &Story{}
	s.Reset(contents)
	return s
}

// NewWithIDs returns an empty story that draws node IDs from next.
func NewWithIDs(next func() string) *Story {
	return &Story{newID: next}
}

// NewNodeID returns a fresh node identifier.
func NewNodeID() string {
	return "node-" + uuid.NewString()
}

func (s *Story) id() string {
	if s.newID != nil {
		return s.newID()
	}
	return NewNodeID()
}

// Reset replaces every node with the given contents.
func (s *Story) Reset(contents []string) {
	s.nodes = make([]Node, 0, len(contents))
	for _, content := range contents {
		s.nodes = append(s.nodes, Node{ID: s.id(), Content: content})
	}
}

// Len reports the number of nodes.
func (s *Story) Len() int { return len(s.nodes) }

// Nodes returns a copy of the nodes in display order.
func (s *Story) Nodes() []Node {
	out := make([]Node, len(s.nodes))
	copy(out, s.nodes)
	return out
}

// Contents returns the content of every node in display order.
func (s *Story) Contents() []string {
	out := make([]string, len(s.nodes))
	for i, node := range s.nodes {
		out[i] = node.Content
	}
	return out
}

// Node returns the node with the given ID.
func (s *Story) Node(id string) (Node, bool) {
	idx := s.indexOf(id)
	if idx < 0 {
		return Node{}, false
	}
	return s.nodes[idx], true
}

// Index returns the position of the node, or -1.
func (s *Story) Index(id string) int { return s.indexOf(id) }

// Append adds a node at the end.
func (s *Story) Append(content string) Node {
	node := Node{ID: s.id(), Content: content}
	s.nodes = append(s.nodes, node)
	return node
}

// Insert adds a node so that it ends up at index. index == Len() appends.
func (s *Story) Insert(index int, content string) (Node, error) {
	if index < 0 || index > len(s.nodes) {
		return Node{}, fmt.Errorf("insert at %d of %d: %w", index, len(s.nodes), ErrIndexOutOfRange)
	}
	node := Node{ID: s.id(), Content: content}
	s.nodes = append(s.nodes, Node{})
	copy(s.nodes[index+1:], s.nodes[index:])
	s.nodes[index] = node
	return node, nil
}

// Update replaces the content of a node.
func (s *Story) Update(id, content string) error {
	idx := s.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("update %s: %w", id, ErrNodeNotFound)
	}
	s.nodes[idx].Content = content
	return nil
}

// Duplicate inserts a copy of a node directly after it.
func (s *Story) Duplicate(id string) (Node, error) {
	idx := s.indexOf(id)
	if idx < 0 {
		return Node{}, fmt.Errorf("duplicate %s: %w", id, ErrNodeNotFound)
	}
	return s.Insert(idx+1, s.nodes[idx].Content)
}

// Remove deletes a node.
func (s *Story) Remove(id string) (Node, error) {
	idx := s.indexOf(id)
	if idx < 0 {
		return Node{}, fmt.Errorf("remove %s: %w", id, ErrNodeNotFound)
	}
	node := s.nodes[idx]
	s.nodes = append(s.nodes[:idx], s.nodes[idx+1:]...)
	return node, nil
}

// Move relocates a node so that it ends up at index.
func (s *Story) Move(id string, index int) error {
	from := s.indexOf(id)
	if from < 0 {
		return fmt.Errorf("move %s: %w", id, ErrNodeNotFound)
	}
	if index < 0 || index >= len(s.nodes) {
		return fmt.Errorf("move %s to %d of %d: %w", id, index, len(s.nodes), ErrIndexOutOfRange)
	}
	if from == index {
		return nil
	}
	node := s.nodes[from]
	s.nodes = append(s.nodes[:from], s.nodes[from+1:]...)
	s.nodes = append(s.nodes, Node{})
	copy(s.nodes[index+1:], s.nodes[index:])
	s.nodes[index] = node
	return nil
}

func (s *Story) indexOf(id string) int {
	for i, node := range s.nodes {
		if node.ID == id {
			return i
		}
	}
	return -1
}
