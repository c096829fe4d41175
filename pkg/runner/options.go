package runner

import (
	"log/slog"
)

// DefaultChunkSize is the default number of rows handed to the batch at once.
const DefaultChunkSize = 256

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithHandler configures how results are presented.
func WithHandler(handler Handler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithChunkSize sets how many rows are read before the batch runs.
// Values below 1 are ignored.
func WithChunkSize(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.ChunkSize = n
		}
	}
}

// WithRequestID tags every result of the run with id.
func WithRequestID(id string) Option {
	return func(r *Runner) {
		r.RequestID = id
	}
}
