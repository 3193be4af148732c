// Package query submits a single question to the gateway and records each
// successful round-trip in the local history cache.
package query

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/afsharalex/PaperShelf/internal/gateway"
	"github.com/afsharalex/PaperShelf/internal/history"
)

// ErrEmptyQuestion rejects an empty or whitespace-only question before any
// network call.
var ErrEmptyQuestion = errors.New("please enter a query")

// ErrBusy rejects a question while a previous one is still in flight.
var ErrBusy = errors.New("a query is already in progress")

// Gateway is the single gateway operation the orchestrator needs.
type Gateway interface {
	QueryPapers(ctx context.Context, query string, topK int) (*gateway.QueryResponse, error)
}

// History is the slice of the history store the orchestrator mutates.
type History interface {
	Append(r history.Record) ([]history.Record, error)
}

// Orchestrator runs one question at a time against the gateway.
type Orchestrator struct {
	gw      Gateway
	history History
	topK    int
	busy    atomic.Bool
}

// New creates an Orchestrator. topK <= 0 falls back to the gateway default.
func New(gw Gateway, hist History, topK int) *Orchestrator {
	if topK <= 0 {
		topK = gateway.DefaultTopK
	}
	return &Orchestrator{gw: gw, history: hist, topK: topK}
}

// Ask submits the question and, on success, prepends the full response to
// the history store before returning it for display. A failed query leaves
// history untouched: no partial records.
func (o *Orchestrator) Ask(ctx context.Context, question string) (history.Record, error) {
	if !o.busy.CompareAndSwap(false, true) {
		return history.Record{}, ErrBusy
	}
	defer o.busy.Store(false)

	question = strings.TrimSpace(question)
	if question == "" {
		return history.Record{}, ErrEmptyQuestion
	}

	resp, err := o.gw.QueryPapers(ctx, question, o.topK)
	if err != nil {
		return history.Record{}, err
	}

	record := history.Record{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Query:     question,
		Answer:    resp.Answer,
		Documents: resp.RetrievedDocuments,
	}
	if _, err := o.history.Append(record); err != nil {
		// The cache is a best-effort mirror; the answer is still shown.
		slog.Warn("could not record query in local history", "error", err)
	}
	return record, nil
}
