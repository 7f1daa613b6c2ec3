package agent

// picker.go disambiguates FAQ candidates with a single cheap LLM call.
//
// Keyword search over the faq table often returns several plausible rows;
// the model picks the one that actually answers the question. On any
// failure the directory store falls back to its top-ranked candidate.

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/resolvo/resolvo/internal/directory"
)

const faqPickTimeout = 5 * time.Second

const pickFAQPrompt = `A customer asked: %q

Which of these FAQ entries best answers the question?
Reply with ONLY the number of the best entry.

%s
Number:`

// FAQPicker selects the best FAQ candidate via an LLM call.
// Implements directory.Picker.
type FAQPicker struct {
	g         *genkit.Genkit
	modelName string
	logger    *slog.Logger
}

// NewFAQPicker creates an FAQPicker.
func NewFAQPicker(g *genkit.Genkit, modelName string, logger *slog.Logger) *FAQPicker {
	if logger == nil {
		logger = slog.Default()
	}
	return &FAQPicker{g: g, modelName: modelName, logger: logger}
}

// PickFAQ returns the index of the candidate that best answers the question.
func (p *FAQPicker) PickFAQ(ctx context.Context, question string, candidates []directory.FAQEntry) (int, error) {
	if len(candidates) == 0 {
		return 0, fmt.Errorf("no candidates")
	}
	if len(candidates) == 1 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, faqPickTimeout)
	defer cancel()

	var b strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. Q: %s\n   A: %s\n", i+1, c.Question, c.Answer)
	}

	opts := []ai.GenerateOption{
		ai.WithPrompt(pickFAQPrompt, question, b.String()),
	}
	if p.modelName != "" {
		opts = append(opts, ai.WithModelName(p.modelName))
	}

	resp, err := genkit.Generate(ctx, p.g, opts...)
	if err != nil {
		return 0, fmt.Errorf("picking faq candidate: %w", err)
	}

	idx, err := parseChoice(resp.Text(), len(candidates))
	if err != nil {
		return 0, err
	}

	p.logger.Debug("faq candidate picked", "question", question, "choice", idx)
	return idx, nil
}

// parseChoice extracts a 1-based choice from model output and returns it
// 0-based. Tolerates surrounding prose by scanning for the first number.
func parseChoice(text string, n int) (int, error) {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r < '0' || r > '9'
	})
	if len(fields) == 0 {
		return 0, fmt.Errorf("no choice in model output %q", text)
	}
	choice, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, fmt.Errorf("parsing choice %q: %w", fields[0], err)
	}
	if choice < 1 || choice > n {
		return 0, fmt.Errorf("choice %d out of range [1, %d]", choice, n)
	}
	return choice - 1, nil
}
