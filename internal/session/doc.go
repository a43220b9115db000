// Package session owns one open story and its persistence lifecycle.
//
// A Session holds the node list, the dirty flag, the save state and the
// status line shown to the user. Every edit marks the session dirty and
// re-arms the autosave scheduler; a save snapshots the nodes into a story
// document, writes it under the story key and clears the dirty flag only on
// success. Explicit saves always produce one transient notification, while
// autosaves only move the persistent status indicator unless they fail.
//
// All operations are serialized by a single mutex, including saves fired by
// the autosave timer, so a save always reflects the story as it stood when
// the save began. Notifications are delivered after the mutex is released.
package session
