package tools

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"

	"github.com/resolvo/resolvo/internal/directory"
	"github.com/resolvo/resolvo/internal/ticket"
	"github.com/resolvo/resolvo/internal/websearch"
)

func toolCtx() *ai.ToolContext {
	return &ai.ToolContext{Context: context.Background()}
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fakeDirectory returns a fixed answer.
type fakeDirectory struct {
	answer directory.Answer
	err    error
}

func (f *fakeDirectory) Answer(_ context.Context, _ string) (directory.Answer, error) {
	return f.answer, f.err
}

func TestDirectorySearch_Found(t *testing.T) {
	d, err := NewDirectory(&fakeDirectory{
		answer: directory.Answer{Response: "We open at 9am.", Found: true, Source: "faq"},
	}, discard())
	if err != nil {
		t.Fatal(err)
	}

	result, err := d.Search(toolCtx(), DirectorySearchInput{Question: "When do you open?"})
	if err != nil {
		t.Fatalf("Search() = %v", err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("status = %q, want success", result.Status)
	}
	if result.Data["found"] != true {
		t.Errorf("found = %v, want true", result.Data["found"])
	}
	if result.Data["answer"] != "We open at 9am." {
		t.Errorf("answer = %v", result.Data["answer"])
	}
	if result.Data["source"] != "faq" {
		t.Errorf("source = %v, want faq", result.Data["source"])
	}
}

func TestDirectorySearch_NotFoundIsNotAnError(t *testing.T) {
	d, err := NewDirectory(&fakeDirectory{answer: directory.Answer{Found: false}}, discard())
	if err != nil {
		t.Fatal(err)
	}

	result, err := d.Search(toolCtx(), DirectorySearchInput{Question: "something obscure"})
	if err != nil {
		t.Fatalf("Search() = %v", err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("status = %q, want success (miss is not a failure)", result.Status)
	}
	if result.Data["found"] != false {
		t.Errorf("found = %v, want false", result.Data["found"])
	}
}

func TestDirectorySearch_Validation(t *testing.T) {
	d, err := NewDirectory(&fakeDirectory{}, discard())
	if err != nil {
		t.Fatal(err)
	}

	result, err := d.Search(toolCtx(), DirectorySearchInput{Question: "   "})
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != StatusError || result.Error.Code != ErrCodeValidation {
		t.Errorf("result = %+v, want validation error", result)
	}

	long := strings.Repeat("x", MaxQuestionLength+1)
	result, err = d.Search(toolCtx(), DirectorySearchInput{Question: long})
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != StatusError || result.Error.Code != ErrCodeValidation {
		t.Errorf("result = %+v, want validation error for long question", result)
	}
}

func TestDirectorySearch_StoreError(t *testing.T) {
	d, err := NewDirectory(&fakeDirectory{err: errors.New("db down")}, discard())
	if err != nil {
		t.Fatal(err)
	}

	result, err := d.Search(toolCtx(), DirectorySearchInput{Question: "anything"})
	if err != nil {
		t.Fatalf("Search() returned error %v; failures must come back as Results", err)
	}
	if result.Status != StatusError || result.Error.Code != ErrCodeExecution {
		t.Errorf("result = %+v, want execution error", result)
	}
}

// fakeTicketStore implements TicketStore in memory.
type fakeTicketStore struct {
	tickets   map[string]*ticket.Ticket
	createErr error
}

func (f *fakeTicketStore) Create(_ context.Context, requester, issue string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	id := "TKT-0000AAAA"
	if f.tickets == nil {
		f.tickets = make(map[string]*ticket.Ticket)
	}
	f.tickets[id] = &ticket.Ticket{TicketID: id, Requester: requester, Issue: issue, Status: ticket.StatusOpen}
	return id, nil
}

func (f *fakeTicketStore) Get(_ context.Context, ticketID string) (*ticket.Ticket, error) {
	tk, ok := f.tickets[ticketID]
	if !ok {
		return nil, ticket.ErrNotFound
	}
	return tk, nil
}

func TestTicketsCreate(t *testing.T) {
	store := &fakeTicketStore{}
	h, err := NewTickets(store, discard())
	if err != nil {
		t.Fatal(err)
	}

	result, err := h.Create(toolCtx(), CreateTicketInput{Issue: "Cannot log in", Requester: "sam"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("status = %q: %+v", result.Status, result)
	}
	id, _ := result.Data["ticket_id"].(string)
	if !ticket.ValidTicketID(id) {
		t.Errorf("ticket_id = %q, not valid", id)
	}
	if store.tickets[id].Issue != "Cannot log in" {
		t.Errorf("stored issue = %q", store.tickets[id].Issue)
	}
}

func TestTicketsCreate_Validation(t *testing.T) {
	h, err := NewTickets(&fakeTicketStore{}, discard())
	if err != nil {
		t.Fatal(err)
	}

	result, err := h.Create(toolCtx(), CreateTicketInput{Issue: ""})
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != StatusError || result.Error.Code != ErrCodeValidation {
		t.Errorf("result = %+v, want validation error", result)
	}
}

func TestTicketsStatus(t *testing.T) {
	store := &fakeTicketStore{tickets: map[string]*ticket.Ticket{
		"TKT-12AB34CD": {
			TicketID: "TKT-12AB34CD",
			Issue:    "Refund pending",
			Status:   ticket.StatusClosed,
			Response: "Refund issued on Friday.",
		},
	}}
	h, err := NewTickets(store, discard())
	if err != nil {
		t.Fatal(err)
	}

	// Lowercase input is normalized before lookup.
	result, err := h.Status(toolCtx(), TicketStatusInput{TicketID: "tkt-12ab34cd"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("status = %q: %+v", result.Status, result)
	}
	if result.Data["status"] != ticket.StatusClosed {
		t.Errorf("ticket status = %v, want closed", result.Data["status"])
	}
	if result.Data["response"] != "Refund issued on Friday." {
		t.Errorf("response = %v", result.Data["response"])
	}
}

func TestTicketsStatus_InvalidID(t *testing.T) {
	h, err := NewTickets(&fakeTicketStore{}, discard())
	if err != nil {
		t.Fatal(err)
	}

	result, err := h.Status(toolCtx(), TicketStatusInput{TicketID: "not-a-ticket"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != StatusError || result.Error.Code != ErrCodeValidation {
		t.Errorf("result = %+v, want validation error", result)
	}
}

func TestTicketsStatus_NotFound(t *testing.T) {
	h, err := NewTickets(&fakeTicketStore{}, discard())
	if err != nil {
		t.Fatal(err)
	}

	result, err := h.Status(toolCtx(), TicketStatusInput{TicketID: "TKT-FFFFFFFF"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != StatusError || result.Error.Code != ErrCodeNotFound {
		t.Errorf("result = %+v, want not found error", result)
	}
}

// fakeSearcher returns fixed search results and pages.
type fakeSearcher struct {
	results  []websearch.Result
	err      error
	page     *websearch.Page
	pageErr  error
	fetched  []string
	searched []string
}

func (f *fakeSearcher) Search(_ context.Context, query string) ([]websearch.Result, error) {
	f.searched = append(f.searched, query)
	return f.results, f.err
}

func (f *fakeSearcher) FetchPage(_ context.Context, pageURL string) (*websearch.Page, error) {
	f.fetched = append(f.fetched, pageURL)
	return f.page, f.pageErr
}

func TestWebSearch(t *testing.T) {
	fs := &fakeSearcher{results: []websearch.Result{
		{Title: "Go docs", URL: "https://go.dev/doc", Snippet: "Documentation"},
	}}
	w, err := NewWeb(fs, discard())
	if err != nil {
		t.Fatal(err)
	}

	result, err := w.Search(toolCtx(), WebSearchInput{Query: "golang docs"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != StatusSuccess {
		t.Fatalf("status = %q: %+v", result.Status, result)
	}
	if result.Data["result_count"] != 1 {
		t.Errorf("result_count = %v", result.Data["result_count"])
	}
	if len(fs.fetched) != 0 {
		t.Errorf("fetched pages without fetchPage: %v", fs.fetched)
	}
}

func TestWebSearch_FetchesTopPage(t *testing.T) {
	fs := &fakeSearcher{
		results: []websearch.Result{{Title: "Hit", URL: "https://example.com/a", Snippet: "s"}},
		page:    &websearch.Page{URL: "https://example.com/a", Title: "Hit", Text: "Full page text."},
	}
	w, err := NewWeb(fs, discard())
	if err != nil {
		t.Fatal(err)
	}

	result, err := w.Search(toolCtx(), WebSearchInput{Query: "q", FetchPage: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(fs.fetched) != 1 || fs.fetched[0] != "https://example.com/a" {
		t.Errorf("fetched = %v, want top result", fs.fetched)
	}
	page, ok := result.Data["page"].(map[string]any)
	if !ok || page["text"] != "Full page text." {
		t.Errorf("page = %v", result.Data["page"])
	}
}

func TestWebSearch_NoResults(t *testing.T) {
	w, err := NewWeb(&fakeSearcher{err: websearch.ErrNoResults}, discard())
	if err != nil {
		t.Fatal(err)
	}

	result, err := w.Search(toolCtx(), WebSearchInput{Query: "obscure"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != StatusSuccess || result.Data["found"] != false {
		t.Errorf("result = %+v, want success with found=false", result)
	}
}

func TestClampTopK(t *testing.T) {
	tests := []struct {
		topK, def, want int
	}{
		{0, 5, 5},
		{-1, 5, 5},
		{3, 5, 3},
		{10, 5, 10},
		{11, 5, MaxTopK},
		{100, 5, MaxTopK},
	}
	for _, tt := range tests {
		if got := clampTopK(tt.topK, tt.def); got != tt.want {
			t.Errorf("clampTopK(%d, %d) = %d, want %d", tt.topK, tt.def, got, tt.want)
		}
	}
}
