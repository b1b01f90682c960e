package gateway

import (
	"context"

	"github.com/rohan/voyager/internal/agent"
)

// Agent is the engine surface gateways talk to.
type Agent interface {
	HandleRequest(ctx context.Context, sessionID, userText string) (*agent.Reply, error)
}

// Messenger defines the interface for communication gateways (HTTP API,
// Telegram, etc.)
type Messenger interface {
	// Start begins the message listening loop
	Start() error
	// Send sends a message to a specific session
	Send(sessionID string, text string) error
	// Stop gracefully shuts down the gateway
	Stop() error
}
