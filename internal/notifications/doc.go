// Package notifications delivers transient user-facing messages.
//
// The session reports save, load and export outcomes through the Service
// interface. Implementations push to ntfy, print to a terminal, or publish to
// the event hub so browser clients can render a toast. Multi fans a message
// out to several of them, and NewService degrades to a no-op when nothing is
// configured.
//
// Delivery failures are the caller's to log; they never change the outcome
// of the operation being reported.
package notifications
