// Package kvstore persists string values under fixed keys.
//
// It is the durable half of the editor: the session stores the serialized
// story document under one key and the theme preference under another. The
// Store interface mirrors a browser's local key-value storage (get/set of a
// string), while the backends differ in where bytes land: SQLite for the
// default workspace, a single JSON file for setups that prefer plain files,
// and an in-memory map for tests and ephemeral sessions.
//
// Every backend may fail. Callers must treat ErrStorage (and the narrower
// ErrQuotaExceeded) as expected outcomes rather than programmer errors.
package kvstore
