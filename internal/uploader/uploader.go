// Package uploader submits a user-selected set of PDF files to the gateway
// one at a time and keeps a per-file outcome ledger. Validation is
// all-or-nothing before any network call; per-file failures after that
// never abort the rest of the batch.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/afsharalex/PaperShelf/internal/gateway"
)

// ErrNoFiles rejects an empty selection before any gateway call.
var ErrNoFiles = errors.New("no file selected: choose at least one PDF file")

// ErrBusy rejects a submission while a previous batch is still in flight.
// One batch at a time per orchestrator; the caller retries after the
// current one settles.
var ErrBusy = errors.New("an upload is already in progress")

// NotPDFError rejects the whole selection when any file name does not end
// in .pdf. A single bad file blocks the batch.
type NotPDFError struct {
	Filename string
}

func (e *NotPDFError) Error() string {
	return fmt.Sprintf("only PDF files are accepted: %q is not a PDF", e.Filename)
}

// FileHandle is one selected file: a name for validation and reporting,
// and a way to open its content when its turn in the batch comes.
type FileHandle struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// PathHandles adapts local file paths to FileHandles.
func PathHandles(paths []string) []FileHandle {
	handles := make([]FileHandle, 0, len(paths))
	for _, p := range paths {
		path := p
		handles = append(handles, FileHandle{
			Name: filepath.Base(path),
			Open: func() (io.ReadCloser, error) { return os.Open(path) },
		})
	}
	return handles
}

// Outcome is the settled result for one submitted file.
type Outcome struct {
	Filename  string
	Succeeded bool
	Paper     *gateway.Paper // present iff Succeeded
	Err       string         // present iff !Succeeded
}

// BatchResult is the ledger for one batch: one Outcome per submitted file,
// in selection order, plus the aggregate failure flag. It is transient
// state for result rendering, discarded on the next submission.
type BatchResult struct {
	Outcomes  []Outcome
	HasErrors bool
}

// Gateway is the single gateway operation the orchestrator needs.
type Gateway interface {
	UploadPaper(ctx context.Context, filename string, content io.Reader) (*gateway.Paper, error)
}

// Orchestrator validates a selection and submits it sequentially.
type Orchestrator struct {
	gw   Gateway
	busy atomic.Bool
}

// New creates an Orchestrator backed by the given gateway.
func New(gw Gateway) *Orchestrator {
	return &Orchestrator{gw: gw}
}

// Validate applies the batch preconditions without opening any file or
// touching the network: a non-empty selection in which every name
// case-insensitively ends in .pdf.
func Validate(files []FileHandle) error {
	if len(files) == 0 {
		return ErrNoFiles
	}
	for _, f := range files {
		if !strings.HasSuffix(strings.ToLower(f.Name), ".pdf") {
			return &NotPDFError{Filename: f.Name}
		}
	}
	return nil
}

// Submit validates the selection, then uploads each file in selection
// order. Every upload fully settles before the next begins, so the ledger
// order matches the selection and the gateway never sees parallel
// large-file transfers. A failed upload records a failed Outcome and the
// batch continues; only validation and a busy orchestrator return an error.
func (o *Orchestrator) Submit(ctx context.Context, files []FileHandle) (BatchResult, error) {
	if !o.busy.CompareAndSwap(false, true) {
		return BatchResult{}, ErrBusy
	}
	defer o.busy.Store(false)

	if err := Validate(files); err != nil {
		return BatchResult{}, err
	}

	result := BatchResult{Outcomes: make([]Outcome, 0, len(files))}
	for _, f := range files {
		outcome := o.submitOne(ctx, f)
		if !outcome.Succeeded {
			result.HasErrors = true
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}
	return result, nil
}

func (o *Orchestrator) submitOne(ctx context.Context, file FileHandle) Outcome {
	content, err := file.Open()
	if err != nil {
		// A valid selection that cannot be read still occupies its
		// slot in the ledger.
		return Outcome{Filename: file.Name, Err: err.Error()}
	}
	defer content.Close()

	paper, err := o.gw.UploadPaper(ctx, file.Name, content)
	if err != nil {
		return Outcome{Filename: file.Name, Err: gateway.ErrorDetail(err)}
	}
	return Outcome{Filename: file.Name, Succeeded: true, Paper: paper}
}
