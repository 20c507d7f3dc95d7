// internal/types/ids.go
package types

import (
	"github.com/google/uuid"
)

type StanzaID string
type RunID string

func NewStanzaID() StanzaID {
	return StanzaID(uuid.New().String())
}

func NewRunID() RunID {
	return RunID(uuid.New().String())
}
