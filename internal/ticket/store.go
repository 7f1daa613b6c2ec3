package ticket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ReuseSimilarityFloor is the minimum cosine similarity between a new question
// and a resolved ticket's issue for the stored answer to be reused.
const ReuseSimilarityFloor = 0.85

// ReusedAnswer is a past human response matched to a new question.
type ReusedAnswer struct {
	TicketID   string
	Issue      string
	Response   string
	Similarity float32
}

// Store manages support tickets with a PostgreSQL backend.
// Issue texts are embedded at creation time so that resolved answers can be
// matched to similar future questions.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool     *pgxpool.Pool
	embedder ai.Embedder // nil disables answer reuse
	logger   *slog.Logger
}

// New creates a new Store instance.
// embedder may be nil: tickets still work, but ReuseAnswer always misses.
func New(pool *pgxpool.Pool, embedder ai.Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, embedder: embedder, logger: logger}
}

// Create files a new open ticket and returns its public identifier.
// Embedding failures are non-fatal: the ticket is stored without an embedding
// and simply never matches in ReuseAnswer.
func (s *Store) Create(ctx context.Context, requester, issue string) (string, error) {
	if issue == "" {
		return "", errors.New("issue must not be empty")
	}
	if requester == "" {
		requester = DefaultRequester
	}

	ticketID, err := NewTicketID()
	if err != nil {
		return "", err
	}

	embedding := s.embedIssue(ctx, issue)

	_, err = s.pool.Exec(ctx,
		`INSERT INTO tickets (ticket_id, requester, issue, status, issue_embedding)
		 VALUES ($1, $2, $3, $4, $5)`,
		ticketID, requester, issue, StatusOpen, embedding,
	)
	if err != nil {
		return "", fmt.Errorf("creating ticket: %w", err)
	}

	s.logger.Info("ticket created", "ticket_id", ticketID, "requester", requester)
	return ticketID, nil
}

// Get retrieves a ticket by its public identifier.
func (s *Store) Get(ctx context.Context, ticketID string) (*Ticket, error) {
	var t Ticket
	var response *string
	err := s.pool.QueryRow(ctx,
		`SELECT ticket_id, requester, issue, response, status, created_at, updated_at
		 FROM tickets WHERE ticket_id = $1`,
		ticketID,
	).Scan(&t.TicketID, &t.Requester, &t.Issue, &response, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, ticketID)
	}
	if err != nil {
		return nil, fmt.Errorf("getting ticket %s: %w", ticketID, err)
	}
	if response != nil {
		t.Response = *response
	}
	return &t, nil
}

// Respond records a human answer and closes the ticket.
// Returns ErrAlreadyClosed if the ticket was already resolved.
func (s *Store) Respond(ctx context.Context, ticketID, response string) error {
	if response == "" {
		return errors.New("response must not be empty")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE tickets SET response = $2, status = $3, updated_at = now()
		 WHERE ticket_id = $1 AND status = $4`,
		ticketID, response, StatusClosed, StatusOpen,
	)
	if err != nil {
		return fmt.Errorf("responding to ticket %s: %w", ticketID, err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish missing from already-closed for a precise error.
		if _, getErr := s.Get(ctx, ticketID); getErr != nil {
			return getErr
		}
		return fmt.Errorf("%w: %s", ErrAlreadyClosed, ticketID)
	}

	s.logger.Info("ticket resolved", "ticket_id", ticketID)
	return nil
}

// List returns tickets filtered by status ("" = all), newest first.
func (s *Store) List(ctx context.Context, status string, limit, offset int) ([]*Ticket, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT ticket_id, requester, issue, response, status, created_at, updated_at
		 FROM tickets
		 WHERE ($1 = '' OR status = $1)
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		status, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("listing tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*Ticket
	for rows.Next() {
		var t Ticket
		var response *string
		if err := rows.Scan(&t.TicketID, &t.Requester, &t.Issue, &response, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning ticket: %w", err)
		}
		if response != nil {
			t.Response = *response
		}
		tickets = append(tickets, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tickets: %w", err)
	}
	return tickets, nil
}

// ReuseAnswer looks for a resolved ticket whose issue closely matches the
// question and returns its human answer. Returns (nil, nil) when nothing
// clears ReuseSimilarityFloor or when no embedder is configured.
func (s *Store) ReuseAnswer(ctx context.Context, question string) (*ReusedAnswer, error) {
	if s.embedder == nil {
		return nil, nil
	}

	embedding, err := s.embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	var r ReusedAnswer
	err = s.pool.QueryRow(ctx,
		`SELECT ticket_id, issue, response,
		        1 - (issue_embedding <=> $1) AS similarity
		 FROM tickets
		 WHERE status = $2 AND response IS NOT NULL AND issue_embedding IS NOT NULL
		 ORDER BY issue_embedding <=> $1
		 LIMIT 1`,
		embedding, StatusClosed,
	).Scan(&r.TicketID, &r.Issue, &r.Response, &r.Similarity)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("searching resolved tickets: %w", err)
	}

	if r.Similarity < ReuseSimilarityFloor {
		return nil, nil
	}

	s.logger.Debug("reusing resolved ticket answer",
		"ticket_id", r.TicketID, "similarity", r.Similarity)
	return &r, nil
}

// embedIssue embeds the issue text for later similarity matching.
// Returns nil on failure or when no embedder is configured.
func (s *Store) embedIssue(ctx context.Context, issue string) *pgvector.Vector {
	if s.embedder == nil {
		return nil
	}
	v, err := s.embed(ctx, issue)
	if err != nil {
		s.logger.Warn("embedding ticket issue failed, stored without embedding", "error", err)
		return nil
	}
	return v
}

func (s *Store) embed(ctx context.Context, text string) (*pgvector.Vector, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{{Content: []*ai.Part{ai.NewTextPart(text)}}},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, errors.New("empty embedding returned")
	}
	v := pgvector.NewVector(resp.Embeddings[0].Embedding)
	return &v, nil
}
