package tools

// directory.go defines the search_directory tool.
//
// The directory is the structured side of the support data: team members,
// FAQ entries, business hours, policies. A miss is reported with found=false
// rather than an error so the model moves on to the next source.

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"

	"github.com/resolvo/resolvo/internal/directory"
)

// SearchDirectoryName is the Genkit tool name for structured lookups.
const SearchDirectoryName = "search_directory"

// MaxQuestionLength bounds tool question inputs.
const MaxQuestionLength = 2000

// DirectorySearchInput defines input for the search_directory tool.
type DirectorySearchInput struct {
	Question string `json:"question" jsonschema_description:"The customer's question, as asked"`
}

// DirectoryAnswerer answers questions from the structured database.
// Satisfied by *directory.Store.
type DirectoryAnswerer interface {
	Answer(ctx context.Context, question string) (directory.Answer, error)
}

// Directory holds dependencies for the search_directory handler.
type Directory struct {
	store  DirectoryAnswerer
	logger *slog.Logger
}

// NewDirectory creates a Directory handler.
func NewDirectory(store DirectoryAnswerer, logger *slog.Logger) (*Directory, error) {
	if store == nil {
		return nil, fmt.Errorf("directory store is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Directory{store: store, logger: logger}, nil
}

// Search answers a question from the teams and faq tables.
func (d *Directory) Search(ctx *ai.ToolContext, input DirectorySearchInput) (Result, error) {
	d.logger.Info("search_directory called", "question", input.Question)

	question := strings.TrimSpace(input.Question)
	if question == "" {
		return errorResult(ErrCodeValidation, "question is required"), nil
	}
	if len(question) > MaxQuestionLength {
		return errorResult(ErrCodeValidation,
			fmt.Sprintf("question length %d exceeds maximum %d characters", len(question), MaxQuestionLength)), nil
	}

	answer, err := d.store.Answer(ctx, question)
	if err != nil {
		d.logger.Warn("search_directory failed", "question", question, "error", err)
		return errorResult(ErrCodeExecution, fmt.Sprintf("searching directory: %v", err)), nil
	}

	if !answer.Found {
		return Result{
			Status:  StatusSuccess,
			Message: "No matching information in the directory. Try another source.",
			Data:    map[string]any{"found": false},
		}, nil
	}

	d.logger.Info("search_directory succeeded", "question", question, "source", answer.Source)
	return Result{
		Status: StatusSuccess,
		Data: map[string]any{
			"found":  true,
			"answer": answer.Response,
			"source": answer.Source,
		},
	}, nil
}
