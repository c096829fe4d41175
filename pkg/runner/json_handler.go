package runner

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/observability"
)

// JSONHandler writes one JSON object per result (JSON Lines).
type JSONHandler struct {
	Writer  io.Writer
	Encoder *json.Encoder

	mu sync.Mutex
}

// ErrorRecord is the JSON form of a failed row.
type ErrorRecord struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Record is the JSON form of one result.
type Record struct {
	Line      int              `json:"line"`
	RequestID string           `json:"request_id,omitempty"`
	Decision  *domain.Decision `json:"decision,omitempty"`
	Error     *ErrorRecord     `json:"error,omitempty"`
}

// NewJSONHandler creates a handler writing JSON Lines to w.
func NewJSONHandler(w io.Writer) *JSONHandler {
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Writer:  w,
		Encoder: json.NewEncoder(w),
	}
}

// Handle writes r as a single JSON line.
func (h *JSONHandler) Handle(ctx context.Context, r Result) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Encoder.Encode(NewRecord(r))
}

// NewRecord converts a result to its JSON form.
func NewRecord(r Result) Record {
	rec := Record{Line: r.Line, RequestID: r.RequestID, Decision: r.Decision}
	if r.Err != nil {
		rec.Decision = nil
		rec.Error = &ErrorRecord{Kind: errorKind(r.Err), Message: r.Err.Error()}
	}
	return rec
}

func errorKind(err error) string {
	if kind := observability.ErrorKind(err); kind != "other" {
		return kind
	}
	switch {
	case errors.Is(err, ErrInvalidRow):
		return "invalid_row"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "other"
}
