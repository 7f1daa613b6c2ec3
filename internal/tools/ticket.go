package tools

// ticket.go defines the create_ticket and ticket_status tools.
//
// create_ticket is the escalation path: when no source can answer, the
// agent files the question for a human. ticket_status lets customers check
// back on an existing case.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"

	"github.com/resolvo/resolvo/internal/ticket"
)

// Genkit tool names for ticket operations.
const (
	CreateTicketName = "create_ticket"
	TicketStatusName = "ticket_status"
)

// MaxIssueLength bounds the issue text of a new ticket.
const MaxIssueLength = 5000

// CreateTicketInput defines input for the create_ticket tool.
type CreateTicketInput struct {
	Issue     string `json:"issue" jsonschema_description:"Short summary of the unanswered question or problem"`
	Requester string `json:"requester,omitempty" jsonschema_description:"Customer name or email, if known"`
}

// TicketStatusInput defines input for the ticket_status tool.
type TicketStatusInput struct {
	TicketID string `json:"ticketId" jsonschema_description:"The ticket identifier, e.g. TKT-1A2B3C4D"`
}

// TicketStore is the subset of ticket operations the tools need.
// Satisfied by *ticket.Store.
type TicketStore interface {
	Create(ctx context.Context, requester, issue string) (string, error)
	Get(ctx context.Context, ticketID string) (*ticket.Ticket, error)
}

// Tickets holds dependencies for ticket tool handlers.
type Tickets struct {
	store  TicketStore
	logger *slog.Logger
}

// NewTickets creates a Tickets handler.
func NewTickets(store TicketStore, logger *slog.Logger) (*Tickets, error) {
	if store == nil {
		return nil, fmt.Errorf("ticket store is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Tickets{store: store, logger: logger}, nil
}

// Create files a new support ticket for a human to answer.
func (t *Tickets) Create(ctx *ai.ToolContext, input CreateTicketInput) (Result, error) {
	t.logger.Info("create_ticket called", "requester", input.Requester)

	issue := strings.TrimSpace(input.Issue)
	if issue == "" {
		return errorResult(ErrCodeValidation, "issue is required"), nil
	}
	if len(issue) > MaxIssueLength {
		return errorResult(ErrCodeValidation,
			fmt.Sprintf("issue length %d exceeds maximum %d characters", len(issue), MaxIssueLength)), nil
	}

	ticketID, err := t.store.Create(ctx, strings.TrimSpace(input.Requester), issue)
	if err != nil {
		t.logger.Warn("create_ticket failed", "error", err)
		return errorResult(ErrCodeExecution, fmt.Sprintf("creating ticket: %v", err)), nil
	}

	t.logger.Info("create_ticket succeeded", "ticket_id", ticketID)
	return Result{
		Status:  StatusSuccess,
		Message: fmt.Sprintf("Ticket %s created. A human agent will follow up.", ticketID),
		Data: map[string]any{
			"ticket_id": ticketID,
			"status":    ticket.StatusOpen,
		},
	}, nil
}

// Status reports the state of an existing ticket, including the human
// response when the ticket has been resolved.
func (t *Tickets) Status(ctx *ai.ToolContext, input TicketStatusInput) (Result, error) {
	t.logger.Info("ticket_status called", "ticket_id", input.TicketID)

	ticketID := strings.ToUpper(strings.TrimSpace(input.TicketID))
	if !ticket.ValidTicketID(ticketID) {
		return errorResult(ErrCodeValidation,
			fmt.Sprintf("%q is not a valid ticket ID (expected TKT- followed by 8 hex digits)", input.TicketID)), nil
	}

	tk, err := t.store.Get(ctx, ticketID)
	if errors.Is(err, ticket.ErrNotFound) {
		return errorResult(ErrCodeNotFound, fmt.Sprintf("ticket %s does not exist", ticketID)), nil
	}
	if err != nil {
		t.logger.Warn("ticket_status failed", "ticket_id", ticketID, "error", err)
		return errorResult(ErrCodeExecution, fmt.Sprintf("looking up ticket: %v", err)), nil
	}

	data := map[string]any{
		"ticket_id":  tk.TicketID,
		"status":     tk.Status,
		"issue":      tk.Issue,
		"created_at": tk.CreatedAt,
	}
	if tk.Response != "" {
		data["response"] = tk.Response
	}

	return Result{Status: StatusSuccess, Data: data}, nil
}
