package query

import (
	"context"
	"errors"
	"testing"

	"github.com/afsharalex/PaperShelf/internal/gateway"
	"github.com/afsharalex/PaperShelf/internal/history"
)

type fakeGateway struct {
	calls    int
	lastTopK int
	resp     *gateway.QueryResponse
	err      error
	started  chan struct{}
	block    chan struct{}
}

func (f *fakeGateway) QueryPapers(_ context.Context, query string, topK int) (*gateway.QueryResponse, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.calls++
	f.lastTopK = topK
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func openTestStore(t *testing.T) *history.Store {
	t.Helper()
	s, err := history.Open(":memory:")
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var ctx = context.Background()

func TestAsk_EmptyQuestion(t *testing.T) {
	gw := &fakeGateway{}
	o := New(gw, openTestStore(t), 5)

	for _, q := range []string{"", "   ", "\n\t"} {
		if _, err := o.Ask(ctx, q); !errors.Is(err, ErrEmptyQuestion) {
			t.Errorf("Ask(%q) error = %v, want ErrEmptyQuestion", q, err)
		}
	}
	if gw.calls != 0 {
		t.Errorf("expected zero gateway calls, got %d", gw.calls)
	}
}

func TestAsk_SuccessAppendsToHistory(t *testing.T) {
	gw := &fakeGateway{resp: &gateway.QueryResponse{
		Query:  "What is the main finding?",
		Answer: "X improves Y",
		RetrievedDocuments: []gateway.RetrievedDocument{
			{Text: "doc one", Metadata: gateway.DocumentMetadata{Title: "Paper A"}},
			{Text: "doc two"},
		},
	}}
	store := openTestStore(t)
	o := New(gw, store, 5)

	record, err := o.Ask(ctx, "What is the main finding?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if record.Answer != "X improves Y" {
		t.Errorf("answer = %q", record.Answer)
	}
	if len(record.Documents) != 2 || record.Documents[0].Metadata.Title != "Paper A" {
		t.Errorf("documents = %+v, want retrieval order preserved", record.Documents)
	}
	if gw.lastTopK != 5 {
		t.Errorf("top_k = %d, want 5", gw.lastTopK)
	}

	records := store.Load()
	if len(records) != 1 {
		t.Fatalf("history length = %d, want 1", len(records))
	}
	if records[0].ID != record.ID || records[0].Answer != record.Answer {
		t.Errorf("history head = %+v, want the returned record", records[0])
	}
}

func TestAsk_TrimsQuestion(t *testing.T) {
	gw := &fakeGateway{resp: &gateway.QueryResponse{Answer: "a"}}
	store := openTestStore(t)
	o := New(gw, store, 5)

	record, err := o.Ask(ctx, "  why?  ")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if record.Query != "why?" {
		t.Errorf("query = %q, want trimmed", record.Query)
	}
}

func TestAsk_FailureLeavesHistoryUntouched(t *testing.T) {
	store := openTestStore(t)

	seeded := New(&fakeGateway{resp: &gateway.QueryResponse{Answer: "first"}}, store, 5)
	if _, err := seeded.Ask(ctx, "seed"); err != nil {
		t.Fatalf("seeding: %v", err)
	}
	before := store.Load()

	failing := New(&fakeGateway{err: &gateway.RemoteError{StatusCode: 500, Detail: "boom"}}, store, 5)
	_, err := failing.Ask(ctx, "will fail")
	if err == nil {
		t.Fatal("expected error from failing gateway")
	}
	if !gateway.IsRemote(err) {
		t.Errorf("error = %v, want the remote error surfaced as-is", err)
	}

	after := store.Load()
	if len(after) != len(before) {
		t.Fatalf("history length changed on failure: %d -> %d", len(before), len(after))
	}
	if after[0].ID != before[0].ID {
		t.Errorf("history head changed on failure")
	}
}

func TestAsk_DefaultTopK(t *testing.T) {
	gw := &fakeGateway{resp: &gateway.QueryResponse{Answer: "a"}}
	o := New(gw, openTestStore(t), 0)

	if _, err := o.Ask(ctx, "q"); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if gw.lastTopK != gateway.DefaultTopK {
		t.Errorf("top_k = %d, want default %d", gw.lastTopK, gateway.DefaultTopK)
	}
}

func TestAsk_RejectsWhileInFlight(t *testing.T) {
	gw := &fakeGateway{
		resp:    &gateway.QueryResponse{Answer: "a"},
		started: make(chan struct{}, 1),
		block:   make(chan struct{}),
	}
	o := New(gw, openTestStore(t), 5)

	done := make(chan struct{})
	go func() {
		defer close(done)
		o.Ask(ctx, "slow question")
	}()

	<-gw.started
	if _, err := o.Ask(ctx, "second question"); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent Ask error = %v, want ErrBusy", err)
	}

	close(gw.block)
	<-done

	gw.started = nil
	gw.block = nil
	if _, err := o.Ask(ctx, "third question"); err != nil {
		t.Errorf("Ask after settle: %v", err)
	}
}

func TestAsk_ElevenQueriesEvictOldest(t *testing.T) {
	store := openTestStore(t)

	for i := 0; i < 11; i++ {
		gw := &fakeGateway{resp: &gateway.QueryResponse{Answer: "a"}}
		if _, err := New(gw, store, 5).Ask(ctx, questionN(i)); err != nil {
			t.Fatalf("Ask %d: %v", i, err)
		}
	}

	records := store.Load()
	if len(records) != history.MaxHistory {
		t.Fatalf("history length = %d, want %d", len(records), history.MaxHistory)
	}
	if records[len(records)-1].Query == questionN(0) {
		t.Error("oldest query should have been evicted")
	}
	if records[0].Query != questionN(10) {
		t.Errorf("head = %q, want the newest query", records[0].Query)
	}
}

func questionN(i int) string {
	return "question #" + string(rune('a'+i))
}
