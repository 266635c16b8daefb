package chathub

import "github.com/sachirademein17/mindcareapp-sub000/internal/models"

// Client is one live connection from the hub's point of view. It abstracts
// the underlying transport so the hub can manage connections uniformly and
// tests can substitute fakes.
type Client interface {
	// UserID returns the authenticated identity behind the connection.
	UserID() uint

	// Send returns the channel the hub pushes wire events into. The hub
	// never blocks on it; a connection that cannot keep up is dropped.
	Send() chan<- models.WireEvent

	// Run starts the transport pumps.
	Run()

	// Close shuts the connection down. Safe to call more than once.
	Close()
}
