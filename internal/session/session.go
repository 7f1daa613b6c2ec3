// Package session provides conversation persistence on PostgreSQL.
//
// Responsibilities: save/load conversation sessions and their messages so the
// agent can carry context across requests. Messages store Genkit ai.Part
// slices serialized as JSONB.
package session

import (
	"errors"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
)

// ErrNotFound indicates the requested session does not exist in the database.
var ErrNotFound = errors.New("session not found")

// Session represents a conversation session (application-level type).
type Session struct {
	ID        uuid.UUID
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message represents a single conversation message (application-level type).
// Content stores Genkit's ai.Part slice, serialized as JSONB in the database.
type Message struct {
	ID             uuid.UUID
	SessionID      uuid.UUID
	Role           string // "user" | "model" | "system" | "tool"
	Content        []*ai.Part
	SequenceNumber int
	CreatedAt      time.Time
}

// ToAIMessage converts a stored message back to a Genkit message.
func (m *Message) ToAIMessage() *ai.Message {
	return &ai.Message{
		Role:    ai.Role(m.Role),
		Content: m.Content,
	}
}
