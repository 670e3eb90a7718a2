package chathub

import "quotedesk/backend/internal/models"

// Client is one live duplex connection. It abstracts the transport so the
// hub can manage real WebSocket sessions and test doubles uniformly.
type Client interface {
	// GetSessionID returns the connection's unique session id.
	GetSessionID() string
	// GetIdentity returns the authenticated identity, or "" before auth.
	GetIdentity() string
	// SetIdentity binds the session to an authenticated identity. Called by
	// the hub exactly once, after successful credential validation.
	SetIdentity(identity string)
	// Authenticated reports whether the session has passed credential
	// validation. Safe to call from any goroutine.
	Authenticated() bool
	// Closed reports whether Close has run. Late frames from a closed
	// session are dropped instead of pushed onto a closed channel.
	Closed() bool

	// GetSendChannel returns the channel the hub pushes outbound events to.
	GetSendChannel() chan<- models.ServerEvent

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts the client down. Idempotent.
	Close()
}

// ClientRequest bundles a client with one raw inbound frame for the hub's
// demultiplexer.
type ClientRequest struct {
	Client Client
	Frame  []byte
}
