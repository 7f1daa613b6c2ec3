package agent_test

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"go.uber.org/goleak"

	"github.com/resolvo/resolvo/internal/agent"
	"github.com/resolvo/resolvo/internal/knowledge"
	"github.com/resolvo/resolvo/internal/session"
	"github.com/resolvo/resolvo/internal/testutil"
	"github.com/resolvo/resolvo/internal/ticket"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreAnyFunction("github.com/testcontainers/testcontainers-go.(*Reaper).connect.func1"),
		goleak.IgnoreAnyFunction("internal/poll.runtime_pollWait"),
	)
}

type fixture struct {
	agent    *agent.Agent
	sessions *session.Store
	tickets  *ticket.Store
	model    *testutil.ScriptedModel
	embedder *testutil.FixedEmbedder
	ctx      context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	ctx := context.Background()
	g := genkit.Init(ctx)

	model := testutil.NewScriptedModel("I'm not sure, let me escalate that.")
	model.Register(g)
	embedder := testutil.NewFixedEmbedder(knowledge.VectorDimension)

	logger := slog.New(slog.DiscardHandler)
	sessions := session.New(db.Pool, logger)
	tickets := ticket.New(db.Pool, embedder.Register(g), logger)

	echo := genkit.DefineTool(g, "echo", "Echoes the input back.",
		func(_ *ai.ToolContext, in struct {
			Text string `json:"text"`
		}) (string, error) {
			return in.Text, nil
		})

	ag, err := agent.New(agent.Config{
		Genkit:       g,
		SessionStore: sessions,
		Logger:       logger,
		Tools:        []ai.Tool{echo},
		Reuser:       tickets,
		ModelName:    "test/scripted",
		Temperature:  0.2,
	})
	if err != nil {
		t.Fatalf("agent.New() = %v", err)
	}

	return &fixture{
		agent:    ag,
		sessions: sessions,
		tickets:  tickets,
		model:    model,
		embedder: embedder,
		ctx:      ctx,
	}
}

func (f *fixture) newSession(t *testing.T) *session.Session {
	t.Helper()
	sess, err := f.sessions.Create(f.ctx, "")
	if err != nil {
		t.Fatalf("creating session: %v", err)
	}
	return sess
}

func TestExecuteSmalltalkSkipsModel(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t)

	resp, err := f.agent.Execute(f.ctx, sess.ID, "hello!")
	if err != nil {
		t.Fatalf("Execute() = %v", err)
	}
	if resp.FinalText == "" {
		t.Error("smalltalk response is empty")
	}
	if resp.Reused {
		t.Error("smalltalk must not be flagged as reused")
	}
	if calls := f.model.Calls(); len(calls) != 0 {
		t.Errorf("model was called %d times for smalltalk", len(calls))
	}

	// The turn is still persisted.
	history, err := f.sessions.History(f.ctx, sess.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Errorf("history has %d messages, want user+model pair", len(history))
	}
}

func TestExecuteGeneratesAndPersists(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t)

	f.model.Respond("return policy", "Our return window is 30 days.")

	resp, err := f.agent.Execute(f.ctx, sess.ID, "what is your return policy?")
	if err != nil {
		t.Fatalf("Execute() = %v", err)
	}
	if resp.FinalText != "Our return window is 30 days." {
		t.Errorf("final text = %q", resp.FinalText)
	}
	if calls := f.model.Calls(); len(calls) != 1 {
		t.Fatalf("model called %d times, want 1", len(calls))
	}

	history, err := f.sessions.History(f.ctx, sess.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("history has %d messages, want 2", len(history))
	}
	if history[1].Role != ai.RoleModel {
		t.Errorf("second message role = %q, want model", history[1].Role)
	}
}

func TestExecuteStreamDeliversChunks(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t)

	f.model.Respond("shipping", "Standard shipping takes 3-5 business days.")

	var streamed strings.Builder
	callback := func(_ context.Context, chunk *ai.ModelResponseChunk) error {
		for _, part := range chunk.Content {
			streamed.WriteString(part.Text)
		}
		return nil
	}

	resp, err := f.agent.ExecuteStream(f.ctx, sess.ID, "how long does shipping take?", callback)
	if err != nil {
		t.Fatalf("ExecuteStream() = %v", err)
	}
	if streamed.String() != resp.FinalText {
		t.Errorf("streamed %q, final %q", streamed.String(), resp.FinalText)
	}
}

func TestExecuteReusesResolvedTicket(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t)

	issue := "my invoice shows a duplicate charge"
	question := "why was I charged twice on my invoice?"
	vec := make([]float32, knowledge.VectorDimension)
	vec[0] = 1
	f.embedder.Pin(issue, vec)
	f.embedder.Pin(question, vec)

	id, err := f.tickets.Create(f.ctx, "pat@example.com", issue)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.tickets.Respond(f.ctx, id, "We refunded the duplicate charge."); err != nil {
		t.Fatal(err)
	}

	resp, err := f.agent.Execute(f.ctx, sess.ID, question)
	if err != nil {
		t.Fatalf("Execute() = %v", err)
	}
	if !resp.Reused {
		t.Error("response not flagged as reused")
	}
	if !strings.Contains(resp.FinalText, "We refunded the duplicate charge.") {
		t.Errorf("final text %q missing stored answer", resp.FinalText)
	}
	if !strings.Contains(resp.FinalText, id) {
		t.Errorf("final text %q missing ticket id %s", resp.FinalText, id)
	}
	if calls := f.model.Calls(); len(calls) != 0 {
		t.Errorf("model was called %d times for a reused answer", len(calls))
	}
}

func TestExecuteRejectsEmptyInput(t *testing.T) {
	f := newFixture(t)
	sess := f.newSession(t)

	if _, err := f.agent.Execute(f.ctx, sess.ID, "   "); err == nil {
		t.Error("Execute() with blank input = nil error")
	}
}
