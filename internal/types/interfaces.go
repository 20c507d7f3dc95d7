// internal/types/interfaces.go
package types

import (
	"context"
)

// Sender delivers a text message to the agent's room.
type Sender interface {
	SendGroupMessage(ctx context.Context, body string) error
}

// Agent reacts to room messages. Implementations own their state and are
// driven by a single dispatcher.
type Agent interface {
	HandleMessage(ctx context.Context, event MessageEvent) error
}

// OnlineHook is implemented by agents that announce themselves once the
// session has joined the room.
type OnlineHook interface {
	OnOnline(ctx context.Context) error
}
