// Package directory answers structured-data questions from the SQL database:
// team member lookups and FAQ matching.
//
// Query routing mirrors the support flow: general questions try the FAQ
// first, people questions try the team table first, and each falls back to
// the other before reporting a miss.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// maxFAQCandidates is how many ranked FAQ rows are considered for
// LLM disambiguation.
const maxFAQCandidates = 3

// Answer is the result of a structured lookup.
type Answer struct {
	Response string
	Found    bool
	Source   string // "team" | "faq"
}

// FAQEntry is a question/answer pair from the faq table.
type FAQEntry struct {
	Question string
	Answer   string
}

// TeamMember is a row from the teams table.
type TeamMember struct {
	Name  string
	Role  string
	Email string
	Bio   string
}

// Picker selects the best FAQ candidate for a question.
// Implemented by the agent layer with an LLM call; nil disables
// disambiguation and the top-ranked candidate wins.
type Picker interface {
	PickFAQ(ctx context.Context, question string, candidates []FAQEntry) (int, error)
}

// Store performs structured lookups against the teams and faq tables.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool   *pgxpool.Pool
	picker Picker // nil = take top-ranked FAQ candidate
	logger *slog.Logger
}

// New creates a new directory Store.
func New(pool *pgxpool.Pool, picker Picker, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, picker: picker, logger: logger}
}

// Answer routes a question across the structured tables.
// General questions try FAQ → team; people questions try team → FAQ.
// Found=false means nothing in the structured data answers the question.
func (s *Store) Answer(ctx context.Context, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, errors.New("question must not be empty")
	}

	general := IsGeneralQuestion(question)

	if general {
		if ans, err := s.queryFAQ(ctx, question); err != nil {
			return Answer{}, err
		} else if ans.Found {
			return ans, nil
		}
	}

	if ans, err := s.queryTeam(ctx, question); err != nil {
		return Answer{}, err
	} else if ans.Found {
		return ans, nil
	}

	if !general {
		if ans, err := s.queryFAQ(ctx, question); err != nil {
			return Answer{}, err
		} else if ans.Found {
			return ans, nil
		}
	}

	return Answer{Found: false}, nil
}

// queryTeam searches the teams table for a member named in the question.
// Exact match on lowered name first, then a partial ILIKE match.
func (s *Store) queryTeam(ctx context.Context, question string) (Answer, error) {
	name := ExtractName(question)
	if name == "" {
		return Answer{Found: false}, nil
	}

	member, err := s.lookupMember(ctx,
		`SELECT name, COALESCE(role, ''), COALESCE(email, ''), bio
		 FROM teams WHERE lower(name) = $1 LIMIT 1`,
		strings.ToLower(name))
	if err != nil {
		return Answer{}, err
	}
	if member == nil {
		member, err = s.lookupMember(ctx,
			`SELECT name, COALESCE(role, ''), COALESCE(email, ''), bio
			 FROM teams WHERE lower(name) LIKE $1 LIMIT 1`,
			"%"+strings.ToLower(name)+"%")
		if err != nil {
			return Answer{}, err
		}
	}
	if member == nil {
		return Answer{Found: false}, nil
	}

	return Answer{Response: FormatTeamMember(member), Found: true, Source: "team"}, nil
}

func (s *Store) lookupMember(ctx context.Context, query, arg string) (*TeamMember, error) {
	var m TeamMember
	err := s.pool.QueryRow(ctx, query, arg).Scan(&m.Name, &m.Role, &m.Email, &m.Bio)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying team: %w", err)
	}
	return &m, nil
}

// queryFAQ searches the faq table by extracted keywords, ranking matches on
// the question text above matches on the answer text, shorter questions
// first. Ties among the top candidates go to the Picker when configured.
func (s *Store) queryFAQ(ctx context.Context, question string) (Answer, error) {
	keywords := ExtractKeywords(question)
	if len(keywords) == 0 {
		return Answer{Found: false}, nil
	}

	// Build one ILIKE condition pair per keyword. Placeholders are
	// generated, values are bound: no user input reaches the SQL text.
	var conds []string
	args := []any{strings.ToLower(question)}
	for _, kw := range keywords {
		args = append(args, "%"+kw+"%")
		p := strconv.Itoa(len(args))
		conds = append(conds, "lower(question) LIKE $"+p+" OR lower(answer) LIKE $"+p)
	}

	query := `
		SELECT question, answer,
		       (CASE
		        WHEN lower(question) LIKE '%' || $1 || '%' THEN 1
		        WHEN lower(answer) LIKE '%' || $1 || '%' THEN 2
		        ELSE 3
		        END) AS relevance
		FROM faq
		WHERE ` + strings.Join(conds, " OR ") + `
		ORDER BY relevance, length(question)
		LIMIT ` + strconv.Itoa(maxFAQCandidates)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return Answer{}, fmt.Errorf("querying faq: %w", err)
	}
	defer rows.Close()

	var candidates []FAQEntry
	for rows.Next() {
		var e FAQEntry
		var relevance int
		if err := rows.Scan(&e.Question, &e.Answer, &relevance); err != nil {
			return Answer{}, fmt.Errorf("scanning faq row: %w", err)
		}
		candidates = append(candidates, e)
	}
	if err := rows.Err(); err != nil {
		return Answer{}, fmt.Errorf("iterating faq rows: %w", err)
	}

	if len(candidates) == 0 {
		return Answer{Found: false}, nil
	}

	best := 0
	if s.picker != nil && len(candidates) > 1 {
		idx, err := s.picker.PickFAQ(ctx, question, candidates)
		if err != nil {
			s.logger.Debug("faq disambiguation failed, using top candidate", "error", err)
		} else if idx >= 0 && idx < len(candidates) {
			best = idx
		}
	}

	return Answer{Response: candidates[best].Answer, Found: true, Source: "faq"}, nil
}

// FormatTeamMember renders a team row as a one-line answer.
func FormatTeamMember(m *TeamMember) string {
	var b strings.Builder
	b.WriteString(m.Name)
	if m.Role != "" {
		b.WriteString(" (" + m.Role + ")")
	}
	b.WriteString(": " + m.Bio)
	if m.Email != "" {
		b.WriteString(" Contact: " + m.Email)
	}
	return b.String()
}
