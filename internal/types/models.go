// internal/types/models.go
package types

import (
	"time"
)

// MessageEvent is a single groupchat message addressed to the agent layer.
// SenderID is the occupant nickname (the resource of the sender's room JID).
type MessageEvent struct {
	SenderID   string    `json:"sender_id"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}
