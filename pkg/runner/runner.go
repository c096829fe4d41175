package runner

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
)

// ErrInvalidRow marks an input line that is not a row.
var ErrInvalidRow = errors.New("invalid row")

// BatchFunc evaluates rows and returns one result per row, in input order.
type BatchFunc func(ctx context.Context, rows []arbor.Row) []arbor.BatchResult

// BatchEngine is the part of the engine the runner drives.
type BatchEngine interface {
	DecideBatch(ctx context.Context, decide arbor.DecideFunc, rows []arbor.Row) []arbor.BatchResult
}

// ForEngine binds a BatchFunc to eng and a tree or generator target.
func ForEngine(eng BatchEngine, decide arbor.DecideFunc) BatchFunc {
	return func(ctx context.Context, rows []arbor.Row) []arbor.BatchResult {
		return eng.DecideBatch(ctx, decide, rows)
	}
}

// Summary counts the rows of a run.
type Summary struct {
	Rows   int `json:"rows"`
	Failed int `json:"failed"`
}

// Runner streams rows from a reader through a batch and hands every result
// to its Handler, in input order.
type Runner struct {
	// Handler presents results. If nil, results are discarded.
	Handler Handler

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	// ChunkSize is the number of rows evaluated together.
	ChunkSize int

	// RequestID tags every result of the run.
	RequestID string

	batch BatchFunc
}

// NewRunner creates a Runner over batch.
func NewRunner(batch BatchFunc, opts ...Option) *Runner {
	r := &Runner{
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		ChunkSize: DefaultChunkSize,
		batch:     batch,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type pending struct {
	line int
	row  arbor.Row
	err  error
}

// Run reads rows from in until EOF or until ctx is done. Lines that fail to
// decode become failed results. Run returns an error only when reading,
// presenting or ctx fails; rows already read are still reported.
func (r *Runner) Run(ctx context.Context, in io.Reader) (Summary, error) {
	var summary Summary
	br := bufio.NewReader(in)
	limit := getMaxLineSize()

	chunk := make([]pending, 0, r.ChunkSize)
	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		err := r.flush(ctx, chunk, &summary)
		chunk = chunk[:0]
		return err
	}

	lineNo := 0
	for {
		if err := ctx.Err(); err != nil {
			if ferr := flush(); ferr != nil {
				return summary, ferr
			}
			return summary, err
		}

		raw, tooLong, err := readLine(br, limit)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return summary, fmt.Errorf("read error: %w", err)
		}
		lineNo++

		p := pending{line: lineNo}
		switch {
		case tooLong:
			p.err = fmt.Errorf("%w: line %d: %w", ErrInvalidRow, lineNo, ErrLineTooLarge)
		case len(bytes.TrimSpace(raw)) == 0:
			continue
		default:
			p.row, p.err = decodeLine(raw)
			if p.err != nil {
				p.err = fmt.Errorf("line %d: %w", lineNo, p.err)
			}
		}

		chunk = append(chunk, p)
		if len(chunk) >= r.ChunkSize {
			if err := flush(); err != nil {
				return summary, err
			}
		}
	}

	if err := flush(); err != nil {
		return summary, err
	}
	r.Logger.Debug("batch run finished", "rows", summary.Rows, "failed", summary.Failed)
	return summary, nil
}

// flush evaluates the decodable rows of chunk and presents every result.
func (r *Runner) flush(ctx context.Context, chunk []pending, summary *Summary) error {
	rows := make([]arbor.Row, 0, len(chunk))
	for _, p := range chunk {
		if p.err == nil {
			rows = append(rows, p.row)
		}
	}

	var results []arbor.BatchResult
	if len(rows) > 0 {
		results = r.batch(ctx, rows)
		if len(results) != len(rows) {
			return fmt.Errorf("batch returned %d results for %d rows", len(results), len(rows))
		}
	}

	next := 0
	for _, p := range chunk {
		res := Result{Line: p.line, RequestID: r.RequestID, Row: p.row, Err: p.err}
		if p.err == nil {
			res.Decision, res.Err = results[next].Decision, results[next].Err
			next++
		}

		summary.Rows++
		if res.Err != nil {
			summary.Failed++
			r.Logger.Debug("row failed", "line", p.line, "err", res.Err)
		}
		if r.Handler == nil {
			continue
		}
		if err := r.Handler.Handle(ctx, res); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}
	return nil
}

// decodeLine parses one row. A line is either {"context": ..., "time": ...}
// or a bare context object.
func decodeLine(raw []byte) (arbor.Row, error) {
	clean, err := SanitizeLine(raw)
	if err != nil {
		return arbor.Row{}, fmt.Errorf("%w: %w", ErrInvalidRow, err)
	}

	var fields map[string]json.RawMessage
	if err := decodeJSON(clean, &fields); err != nil {
		return arbor.Row{}, fmt.Errorf("%w: %v", ErrInvalidRow, err)
	}
	if fields == nil {
		return arbor.Row{}, fmt.Errorf("%w: expected a JSON object", ErrInvalidRow)
	}

	if !isEnvelope(fields) {
		var c domain.Context
		if err := decodeJSON(clean, &c); err != nil {
			return arbor.Row{}, fmt.Errorf("%w: %v", ErrInvalidRow, err)
		}
		return arbor.Row{Context: c}, nil
	}

	var row arbor.Row
	if err := decodeJSON(fields["context"], &row.Context); err != nil {
		return arbor.Row{}, fmt.Errorf("%w: context: %v", ErrInvalidRow, err)
	}
	if t, ok := fields["time"]; ok && !bytes.Equal(bytes.TrimSpace(t), []byte("null")) {
		var tm domain.Time
		if err := json.Unmarshal(t, &tm); err != nil {
			return arbor.Row{}, fmt.Errorf("%w: time: %w", ErrInvalidRow, err)
		}
		row.Time = &tm
	}
	return row, nil
}

// isEnvelope reports whether fields has a "context" key and nothing besides
// "context" and "time".
func isEnvelope(fields map[string]json.RawMessage) bool {
	if _, ok := fields["context"]; !ok {
		return false
	}
	for k := range fields {
		if k != "context" && k != "time" {
			return false
		}
	}
	return true
}

func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after JSON value")
	}
	return nil
}
