// Package ticket implements the escalation store for unanswered queries.
//
// When the agent cannot answer a question, it files a ticket for a human.
// Humans respond through the CLI; resolved answers are reused for similar
// future questions via embedding similarity over the issue text.
package ticket

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Ticket status values.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// DefaultRequester is used when the caller did not identify themselves.
const DefaultRequester = "anonymous"

// ErrNotFound indicates the requested ticket does not exist.
var ErrNotFound = errors.New("ticket not found")

// ErrAlreadyClosed indicates a response was submitted for a closed ticket.
var ErrAlreadyClosed = errors.New("ticket already closed")

// Ticket represents a support ticket (application-level type).
type Ticket struct {
	TicketID  string // Public identifier, e.g. "TKT-3F2A9C01"
	Requester string
	Issue     string
	Response  string // Human answer; empty while open
	Status    string // StatusOpen | StatusClosed
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTicketID generates a public ticket identifier of the form TKT-XXXXXXXX
// where X is an uppercase hex digit.
func NewTicketID() (string, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generating ticket id: %w", err)
	}
	return "TKT-" + strings.ToUpper(hex.EncodeToString(buf[:])), nil
}

// ValidTicketID reports whether s looks like a ticket identifier.
// Used to reject obviously malformed lookups before hitting the database.
func ValidTicketID(s string) bool {
	if len(s) != 12 || !strings.HasPrefix(s, "TKT-") {
		return false
	}
	for _, r := range s[4:] {
		if (r < '0' || r > '9') && (r < 'A' || r > 'F') {
			return false
		}
	}
	return true
}
