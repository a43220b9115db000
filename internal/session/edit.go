package session

import (
	"storybuilder/internal/logging"
	"storybuilder/internal/story"
)

// DeletePrompt is the question put to a Confirmer before a node is removed.
const DeletePrompt = "Are you sure you want to delete this node?"

// DiscardPrompt is the question put to a Confirmer before unsaved edits are
// abandoned.
const DiscardPrompt = "You have unsaved changes. Leave anyway?"

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Always confirms every prompt.
var Always Confirmer = ConfirmFunc(func(string) bool { return true })

// AddNode appends a node with the given content.
func (s *Session) AddNode(content string) (story.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return story.Node{}, wrap("add node", ErrClosed)
	}
	node := s.story.Append(content)
	s.editedLocked("node added", node.ID)
	return node, nil
}

// NewNode appends an empty node and focuses it.
func (s *Session) NewNode() (story.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return story.Node{}, wrap("new node", ErrClosed)
	}
	node := s.story.Append("")
	s.focus = node.ID
	s.editedLocked("node created", node.ID)
	return node, nil
}

// InsertNode places a node at index.
func (s *Session) InsertNode(index int, content string) (story.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return story.Node{}, wrap("insert node", ErrClosed)
	}
	node, err := s.story.Insert(index, content)
	if err != nil {
		return story.Node{}, wrap("insert node", err)
	}
	s.editedLocked("node inserted", node.ID)
	return node, nil
}

// UpdateNode replaces a node's content.
func (s *Session) UpdateNode(id, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return wrap("update node", ErrClosed)
	}
	if err := s.story.Update(id, content); err != nil {
		return wrap("update node", err)
	}
	s.editedLocked("node updated", id)
	return nil
}

// DuplicateNode inserts a copy of a node directly after it.
func (s *Session) DuplicateNode(id string) (story.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return story.Node{}, wrap("duplicate node", ErrClosed)
	}
	node, err := s.story.Duplicate(id)
	if err != nil {
		return story.Node{}, wrap("duplicate node", err)
	}
	s.editedLocked("node duplicated", node.ID)
	return node, nil
}

// RemoveNode deletes a node once confirm approves DeletePrompt. A nil or
// declining confirmer leaves the story unchanged.
func (s *Session) RemoveNode(id string, confirm Confirmer) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return wrap("remove node", ErrClosed)
	}
	if _, ok := s.story.Node(id); !ok {
		s.mu.Unlock()
		return wrap("remove node", ErrNodeNotFound)
	}
	s.mu.Unlock()

	// The prompt may block on user input, so it runs without the lock.
	if confirm == nil || !confirm.Confirm(DeletePrompt) {
		return wrap("remove node", ErrDeleteNotConfirmed)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return wrap("remove node", ErrClosed)
	}
	if _, err := s.story.Remove(id); err != nil {
		return wrap("remove node", err)
	}
	if s.focus == id {
		s.focus = ""
	}
	s.editedLocked("node removed", id)
	return nil
}

// MoveNode relocates a node to index.
func (s *Session) MoveNode(id string, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return wrap("move node", ErrClosed)
	}
	if err := s.story.Move(id, index); err != nil {
		return wrap("move node", err)
	}
	s.editedLocked("node moved", id)
	return nil
}

// Focus marks a node as focused. It is not an edit.
func (s *Session) Focus(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.story.Node(id); !ok {
		return wrap("focus", ErrNodeNotFound)
	}
	s.focus = id
	return nil
}

// ConfirmDiscard reports whether it is fine to leave the session. A clean
// session always may; a dirty one asks confirm with DiscardPrompt.
func (s *Session) ConfirmDiscard(confirm Confirmer) bool {
	if !s.Dirty() {
		return true
	}
	return confirm != nil && confirm.Confirm(DiscardPrompt)
}

func (s *Session) editedLocked(msg, nodeID string) {
	s.dirty = true
	s.setStatusLocked(StateDirty, StatusUnsaved)
	if s.autosave {
		s.scheduler.NotifyEdit()
	}
	s.logger.Debug(msg, logging.String(logging.FieldNodeID, nodeID), logging.Int("nodes", s.story.Len()))
}
