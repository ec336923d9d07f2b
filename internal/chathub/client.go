package chathub

import "github.com/Divine-P-77777/studylocal/internal/models"

// Client is one realtime connection of an authenticated user. A user may
// hold several connections at once (tabs, devices); each is a Client.
type Client interface {
	// GetUserID returns the account id of the connected user.
	GetUserID() string
	// GetIdentity returns the identity the connection was authenticated with.
	// Room authorization and message authorship derive from it, never from
	// event payloads.
	GetIdentity() models.Identity
	// GetDisplayName returns the name stamped on messages sent through this
	// connection.
	GetDisplayName() string

	// GetSendChannel returns the channel the hub writes outbound events to.
	// Only the hub loop sends on it.
	GetSendChannel() chan<- models.Event

	// Run starts the read and write pumps.
	Run()
	// Close stops the connection. It is safe to call more than once.
	Close()
}
