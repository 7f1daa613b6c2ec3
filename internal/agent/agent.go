// Package agent implements the conversational support agent.
//
// The agent answers customer questions through an LLM tool-calling loop:
// structured lookups against the company database, semantic search over the
// knowledge base, web search as a last resort, and ticket escalation when
// nothing else helps. Two fast paths skip the LLM entirely: smalltalk gets a
// canned reply, and questions closely matching an already-resolved ticket
// reuse the stored human answer.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/resolvo/resolvo/internal/session"
	"github.com/resolvo/resolvo/internal/ticket"
)

const (
	// Name is the unique identifier for the support agent.
	Name = "support"

	// reuseLookupTimeout limits how long the resolved-ticket lookup can take
	// per request.
	reuseLookupTimeout = 5 * time.Second

	// fallbackResponseMessage is returned when the model produces an empty
	// response with no tool requests.
	fallbackResponseMessage = "I apologize, but I couldn't generate a response. Please try rephrasing your question."
)

// Sentinel errors for agent operations.
var (
	// ErrInvalidSession indicates the session ID is invalid or malformed.
	ErrInvalidSession = errors.New("invalid session")

	// ErrExecutionFailed indicates agent execution failed.
	ErrExecutionFailed = errors.New("execution failed")
)

// Response represents the complete result of an agent execution.
type Response struct {
	FinalText    string            // Model's final text output
	ToolRequests []*ai.ToolRequest // Tool requests made during execution
	Reused       bool              // True when a resolved ticket answered without the LLM
}

// StreamCallback is called for each chunk of streaming response.
// Return an error to abort the stream.
type StreamCallback func(ctx context.Context, chunk *ai.ModelResponseChunk) error

// AnswerReuser finds a past resolved ticket whose issue matches a question.
// Satisfied by *ticket.Store; nil disables the reuse fast path.
type AnswerReuser interface {
	ReuseAnswer(ctx context.Context, question string) (*ticket.ReusedAnswer, error)
}

// Config contains all required parameters for the support agent.
type Config struct {
	Genkit       *genkit.Genkit
	SessionStore *session.Store
	Logger       *slog.Logger
	Tools        []ai.Tool // Pre-registered tools from tools.Register()

	// Reuser matches new questions against resolved tickets (nil = disabled).
	Reuser AnswerReuser

	// Configuration values
	ModelName     string  // Provider-qualified model name (e.g. "googleai/gemini-2.5-flash")
	Temperature   float64 // Sampling temperature passed to the model
	MaxTurns      int     // Maximum agentic loop turns
	HistoryWindow int     // How many past messages to load per request

	// Resilience configuration
	RetryConfig          RetryConfig          // LLM retry settings (zero-value uses defaults)
	CircuitBreakerConfig CircuitBreakerConfig // Circuit breaker settings (zero-value uses defaults)
	RateLimiter          *rate.Limiter        // Optional: proactive rate limiting (nil = use default)
}

// validate checks if all required parameters are present.
func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.SessionStore == nil {
		return errors.New("session store is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if len(cfg.Tools) == 0 {
		return errors.New("at least one tool is required")
	}
	return nil
}

// Agent is the conversational support agent.
//
// Agent is stateless across requests; all configuration is captured
// immutably at construction time, so it is safe for concurrent use.
type Agent struct {
	// Immutable configuration (captured at construction)
	modelName     string
	temperature   float64
	maxTurns      int
	historyWindow int

	// Resilience (captured at construction)
	retryConfig    RetryConfig
	circuitBreaker *CircuitBreaker
	rateLimiter    *rate.Limiter

	// Dependencies (read-only after construction)
	g         *genkit.Genkit
	sessions  *session.Store
	reuser    AnswerReuser // nil = reuse fast path disabled
	logger    *slog.Logger
	tools     []ai.Tool
	toolRefs  []ai.ToolRef // Cached at construction (ai.Tool implements ai.ToolRef)
	toolNames string       // Cached as comma-separated for logging
}

// New creates a new Agent with required configuration.
func New(cfg Config) (*Agent, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 5
	}
	historyWindow := cfg.HistoryWindow
	if historyWindow <= 0 {
		historyWindow = 10
	}

	retryConfig := cfg.RetryConfig
	if retryConfig.MaxRetries == 0 {
		retryConfig = DefaultRetryConfig()
	}
	cbConfig := cfg.CircuitBreakerConfig
	if cbConfig.FailureThreshold == 0 {
		cbConfig = DefaultCircuitBreakerConfig()
	}

	// Default: 10 requests/sec sustained, burst of 30
	rl := cfg.RateLimiter
	if rl == nil {
		rl = rate.NewLimiter(10, 30)
	}

	// Cache tool refs and names at construction
	toolRefs := make([]ai.ToolRef, len(cfg.Tools))
	names := make([]string, len(cfg.Tools))
	for i, t := range cfg.Tools {
		toolRefs[i] = t
		names[i] = t.Name()
	}

	a := &Agent{
		modelName:     cfg.ModelName,
		temperature:   cfg.Temperature,
		maxTurns:      maxTurns,
		historyWindow: historyWindow,

		retryConfig:    retryConfig,
		circuitBreaker: NewCircuitBreaker(cbConfig),
		rateLimiter:    rl,

		g:         cfg.Genkit,
		sessions:  cfg.SessionStore,
		reuser:    cfg.Reuser,
		logger:    cfg.Logger,
		tools:     cfg.Tools,
		toolRefs:  toolRefs,
		toolNames: strings.Join(names, ", "),
	}

	a.logger.Info("support agent initialized",
		"totalTools", len(a.tools),
		"maxTurns", a.maxTurns,
		"historyWindow", a.historyWindow,
	)
	return a, nil
}

// Execute runs the agent with the given input (non-streaming).
// This is a convenience wrapper around ExecuteStream with nil callback.
func (a *Agent) Execute(ctx context.Context, sessionID uuid.UUID, input string) (*Response, error) {
	return a.ExecuteStream(ctx, sessionID, input, nil)
}

// ExecuteStream runs the agent with optional streaming output.
// If callback is non-nil, it is called for each chunk of the response as it
// is generated. The final response is always returned after completion.
func (a *Agent) ExecuteStream(ctx context.Context, sessionID uuid.UUID, input string, callback StreamCallback) (*Response, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, errors.New("input must not be empty")
	}

	a.logger.Debug("executing support agent",
		"session_id", sessionID,
		"streaming", callback != nil)

	// Fast path 1: smalltalk never needs the LLM or the session history.
	if canned, ok := Smalltalk(input); ok {
		return a.respondDirectly(ctx, sessionID, input, canned, false, callback)
	}

	// Load history and search resolved tickets in parallel.
	type historyResult struct {
		msgs []*ai.Message
		err  error
	}
	type reuseResult struct {
		answer *ticket.ReusedAnswer
		err    error
	}

	// Buffered channels (cap 1) let the goroutines exit even if the caller
	// returns early on a context error.
	historyCh := make(chan historyResult, 1)
	reuseCh := make(chan reuseResult, 1)

	go func() {
		msgs, err := a.sessions.History(ctx, sessionID, a.historyWindow)
		historyCh <- historyResult{msgs, err}
	}()

	go func() {
		if a.reuser == nil {
			reuseCh <- reuseResult{}
			return
		}
		lookupCtx, cancel := context.WithTimeout(ctx, reuseLookupTimeout)
		defer cancel()
		answer, err := a.reuser.ReuseAnswer(lookupCtx, input)
		reuseCh <- reuseResult{answer, err}
	}()

	hr := <-historyCh
	if hr.err != nil {
		return nil, fmt.Errorf("getting history: %w", hr.err)
	}

	rr := <-reuseCh
	if rr.err != nil {
		a.logger.Debug("resolved ticket lookup failed", "error", rr.err) // non-fatal
	}

	// Fast path 2: a resolved ticket already answered this question.
	if rr.answer != nil {
		a.logger.Info("reusing resolved ticket answer",
			"session_id", sessionID,
			"ticket_id", rr.answer.TicketID,
			"similarity", rr.answer.Similarity)
		text := formatReusedAnswer(rr.answer)
		return a.respondDirectly(ctx, sessionID, input, text, true, callback)
	}

	resp, err := a.generateResponse(ctx, input, hr.msgs, callback)
	if err != nil {
		return nil, err
	}

	responseText := resp.Text()

	// Only apply the fallback when truly empty: empty text alongside tool
	// requests is valid agentic behavior.
	if strings.TrimSpace(responseText) == "" && len(resp.ToolRequests()) == 0 {
		a.logger.Warn("model returned empty response with no tool requests",
			"session_id", sessionID)
		responseText = fallbackResponseMessage
	}

	a.persistTurn(ctx, sessionID, input, responseText)

	return &Response{
		FinalText:    responseText,
		ToolRequests: resp.ToolRequests(),
	}, nil
}

// respondDirectly persists and streams a response produced without the LLM.
func (a *Agent) respondDirectly(ctx context.Context, sessionID uuid.UUID, input, text string, reused bool, callback StreamCallback) (*Response, error) {
	if callback != nil {
		chunk := &ai.ModelResponseChunk{Content: []*ai.Part{ai.NewTextPart(text)}}
		if err := callback(ctx, chunk); err != nil {
			return nil, fmt.Errorf("streaming response: %w", err)
		}
	}
	a.persistTurn(ctx, sessionID, input, text)
	return &Response{FinalText: text, Reused: reused}, nil
}

// persistTurn appends the user and model messages to the session.
// Best-effort: failures are logged, not returned.
func (a *Agent) persistTurn(ctx context.Context, sessionID uuid.UUID, input, responseText string) {
	newMessages := []*ai.Message{
		ai.NewUserMessage(ai.NewTextPart(input)),
		ai.NewModelMessage(ai.NewTextPart(responseText)),
	}
	if err := a.sessions.Append(ctx, sessionID, newMessages); err != nil {
		a.logger.Warn("appending messages to history", "error", err)
	}
}

// generateResponse runs the LLM tool-calling loop.
// Used for both streaming and non-streaming modes.
func (a *Agent) generateResponse(ctx context.Context, input string, historyMessages []*ai.Message, callback StreamCallback) (*ai.ModelResponse, error) {
	// Deep copy history before handing it to Genkit: renderMessages()
	// modifies msg.Content in-place, so concurrent executions sharing the
	// same message objects would race.
	messages := deepCopyMessages(historyMessages)
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(input)))

	opts := []ai.GenerateOption{
		ai.WithSystem(systemPrompt, time.Now().Format("2006-01-02")),
		ai.WithMessages(messages...),
		ai.WithTools(a.toolRefs...),
		ai.WithMaxTurns(a.maxTurns),
		ai.WithConfig(&genai.GenerateContentConfig{
			Temperature: genai.Ptr(float32(a.temperature)),
		}),
	}
	if a.modelName != "" {
		opts = append(opts, ai.WithModelName(a.modelName))
	}
	if callback != nil {
		opts = append(opts, ai.WithStreaming(ai.ModelStreamCallback(callback)))
	}

	a.logger.Debug("generating response",
		"toolCount", len(a.tools),
		"tools", a.toolNames,
		"maxTurns", a.maxTurns,
		"queryLength", len(input),
	)

	if err := a.circuitBreaker.Allow(); err != nil {
		a.logger.Warn("circuit breaker is open, rejecting request",
			"state", a.circuitBreaker.State().String())
		return nil, fmt.Errorf("service unavailable: %w", err)
	}

	resp, err := a.executeWithRetry(ctx, opts)
	if err != nil {
		a.circuitBreaker.Failure()
		return nil, err
	}

	a.circuitBreaker.Success()
	return resp, nil
}

// formatReusedAnswer renders a resolved ticket's answer for the user.
func formatReusedAnswer(r *ticket.ReusedAnswer) string {
	return r.Response +
		"\n\n(This answer comes from a previously resolved support case, ticket " + r.TicketID + ".)"
}

// deepCopyMessages creates independent copies of Message and Part structs.
//
// Genkit's renderMessages() modifies msg.Content in-place, causing data
// races in concurrent executions sharing message objects. Verified against
// github.com/firebase/genkit/go v1.4.0; re-check with the race detector
// before removing on upgrade.
func deepCopyMessages(msgs []*ai.Message) []*ai.Message {
	if msgs == nil {
		return nil // Preserve nil vs empty slice semantics
	}
	copied := make([]*ai.Message, len(msgs))
	for i, msg := range msgs {
		parts := make([]*ai.Part, len(msg.Content))
		for j, part := range msg.Content {
			parts[j] = deepCopyPart(part)
		}
		copied[i] = &ai.Message{
			Role:     msg.Role,
			Content:  parts,
			Metadata: shallowCopyMap(msg.Metadata),
		}
	}
	return copied
}

// deepCopyPart creates an independent copy of an ai.Part struct.
// ToolRequest.Input and ToolResponse.Output are copied by reference:
// renderMessages() only mutates the Content slice, not tool data.
func deepCopyPart(p *ai.Part) *ai.Part {
	if p == nil {
		return nil
	}
	cp := &ai.Part{
		Kind:        p.Kind,
		ContentType: p.ContentType,
		Text:        p.Text,
		Custom:      shallowCopyMap(p.Custom),
		Metadata:    shallowCopyMap(p.Metadata),
	}
	if p.ToolRequest != nil {
		cp.ToolRequest = &ai.ToolRequest{
			Input: p.ToolRequest.Input,
			Name:  p.ToolRequest.Name,
			Ref:   p.ToolRequest.Ref,
		}
	}
	if p.ToolResponse != nil {
		cp.ToolResponse = &ai.ToolResponse{
			Name:   p.ToolResponse.Name,
			Output: p.ToolResponse.Output,
			Ref:    p.ToolResponse.Ref,
		}
	}
	if p.Resource != nil {
		cp.Resource = &ai.ResourcePart{Uri: p.Resource.Uri}
	}
	return cp
}

// shallowCopyMap copies map keys and values but not nested structures.
func shallowCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
