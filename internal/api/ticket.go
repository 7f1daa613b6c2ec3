package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/resolvo/resolvo/internal/ticket"
)

// ticketHandler handles ticket endpoints for support staff tooling.
type ticketHandler struct {
	store  *ticket.Store
	logger *slog.Logger
}

func newTicketHandler(store *ticket.Store, logger *slog.Logger) *ticketHandler {
	return &ticketHandler{store: store, logger: logger}
}

func (h *ticketHandler) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/tickets", h.list)
	mux.HandleFunc("POST /api/tickets", h.create)
	mux.HandleFunc("GET /api/tickets/{id}", h.get)
	mux.HandleFunc("POST /api/tickets/{id}/respond", h.respond)
}

// CreateTicketRequest is the request body for filing a ticket directly,
// bypassing the agent.
type CreateTicketRequest struct {
	Requester string `json:"requester"`
	Issue     string `json:"issue"`
}

// create files a new open ticket.
func (h *ticketHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Issue) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "issue is required")
		return
	}

	id, err := h.store.Create(r.Context(), strings.TrimSpace(req.Requester), req.Issue)
	if err != nil {
		h.logger.Error("failed to create ticket", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to create ticket")
		return
	}

	tk, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusCreated, map[string]string{"ticket_id": id})
		return
	}
	writeJSON(w, http.StatusCreated, tk)
}

// list returns tickets newest first.
// Query parameters: status (open|closed, empty for all), limit, offset.
func (h *ticketHandler) list(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && status != ticket.StatusOpen && status != ticket.StatusClosed {
		writeError(w, http.StatusBadRequest, "invalid_request", "status must be open or closed")
		return
	}

	limit := parseIntParam(r, "limit", DefaultListLimit, 1, MaxListLimit)
	offset := parseIntParam(r, "offset", 0, 0, MaxListOffset)

	tickets, err := h.store.List(r.Context(), status, limit, offset)
	if err != nil {
		h.logger.Error("failed to list tickets", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to list tickets")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tickets": tickets,
		"total":   len(tickets),
		"limit":   limit,
		"offset":  offset,
	})
}

// get returns a single ticket.
func (h *ticketHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ticketID(w, r)
	if !ok {
		return
	}

	tk, err := h.store.Get(r.Context(), id)
	if errors.Is(err, ticket.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "ticket not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get ticket", "ticket_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to get ticket")
		return
	}

	writeJSON(w, http.StatusOK, tk)
}

// RespondRequest is the request body for answering a ticket.
type RespondRequest struct {
	Response string `json:"response"`
}

// respond records a human answer and closes the ticket.
func (h *ticketHandler) respond(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ticketID(w, r)
	if !ok {
		return
	}

	var req RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if strings.TrimSpace(req.Response) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "response is required")
		return
	}

	err := h.store.Respond(r.Context(), id, req.Response)
	switch {
	case errors.Is(err, ticket.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "ticket not found")
		return
	case errors.Is(err, ticket.ErrAlreadyClosed):
		writeError(w, http.StatusConflict, "already_closed", "ticket is already resolved")
		return
	case err != nil:
		h.logger.Error("failed to respond to ticket", "ticket_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to respond to ticket")
		return
	}

	tk, err := h.store.Get(r.Context(), id)
	if err != nil {
		// The update committed; report success without the body.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, tk)
}

// ticketID validates the {id} path value; writes a 400 on failure.
func (h *ticketHandler) ticketID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.ToUpper(strings.TrimSpace(r.PathValue("id")))
	if !ticket.ValidTicketID(id) {
		writeError(w, http.StatusBadRequest, "invalid_request", "ticket id must look like TKT-1A2B3C4D")
		return "", false
	}
	return id, true
}
