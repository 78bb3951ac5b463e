package callhub

import "randomcall/backend/internal/models"

// Client is the interface for any type of realtime connection to a user.
// It abstracts the underlying communication mechanism, allowing the hub to
// manage different client types uniformly.
type Client interface {
	// GetUserID returns the unique identifier for the user associated with the client.
	GetUserID() string

	// GetSendChannel returns the channel to which the ManagerService (hub) sends
	// events intended for this specific client. It is a send-only channel.
	GetSendChannel() chan<- models.CallEvent

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts down the client's send channel. It must be safe to call twice.
	Close()
}
