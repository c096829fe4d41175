package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/ports"
)

// Engine defines the engine surface the HTTP adapter drives.
type Engine interface {
	ports.DecisionEngine
	Tree(ctx context.Context, id string) (*domain.Tree, error)
	Inspect(tree *domain.Tree) (arbor.TreeInfo, error)
	ForTree(tree *domain.Tree) arbor.DecideFunc
	DecideGenerator(ctx context.Context, gen domain.Generator, agents []domain.AgentTree, partial domain.Context, t *domain.Time) (*domain.Decision, error)
	DecideBatch(ctx context.Context, decide arbor.DecideFunc, rows []arbor.Row) []arbor.BatchResult
	Watch(ctx context.Context) (<-chan string, error)
}

// Server serves the Arbor HTTP API.
type Server struct {
	Engine   Engine
	Logger   *slog.Logger
	Metrics  *observability.Metrics
	Gatherer prometheus.Gatherer
}

// Option configures the HTTP handler.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// WithMetrics records per-route request metrics on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.Metrics = m
	}
}

// WithGatherer exposes g on GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.Gatherer = g
	}
}

// NewHandler creates a new HTTP handler for the engine. Requests to the
// documented routes are validated against the embedded OpenAPI document.
func NewHandler(engine Engine, opts ...Option) (http.Handler, error) {
	s := &Server{
		Engine: engine,
		Logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	validator, err := NewValidator()
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(RequestID(s.Logger))
	r.Use(validator.Middleware)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openAPISpec)
	})
	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}

	s.route(r, http.MethodGet, "/health", s.GetHealth)
	s.route(r, http.MethodGet, "/info", s.GetInfo)
	s.route(r, http.MethodGet, "/trees", s.ListTrees)
	s.route(r, http.MethodGet, "/trees/{id}", s.InspectTree)
	s.route(r, http.MethodGet, "/trees/{id}/graph", s.GraphTree)
	s.route(r, http.MethodPost, "/trees/{id}/decide", s.DecideTree)
	s.route(r, http.MethodPost, "/trees/{id}/batch", s.BatchTree)
	s.route(r, http.MethodPost, "/decide", s.DecideInline)
	s.route(r, http.MethodPost, "/generators/decide", s.DecideGenerator)
	s.route(r, http.MethodPost, "/validate", s.ValidateTree)
	s.route(r, http.MethodGet, "/events", s.SubscribeEvents)

	return enableCORS(r), nil
}

func (s *Server) route(r chi.Router, method, pattern string, h http.HandlerFunc) {
	var handler http.Handler = h
	if s.Metrics != nil {
		handler = s.Metrics.Instrument(pattern, handler)
	}
	r.Method(method, pattern, handler)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// DecideRequest is the body of the decide endpoints.
type DecideRequest struct {
	Context domain.Context `json:"context"`
	Time    *domain.Time   `json:"time,omitempty"`
}

// InlineDecideRequest carries the tree document with the request.
type InlineDecideRequest struct {
	DecideRequest
	Tree json.RawMessage `json:"tree"`
}

// GeneratorDecideRequest asks for a merged decision over the stored trees.
type GeneratorDecideRequest struct {
	DecideRequest
	Generator domain.Generator `json:"generator"`
}

// BatchRequest holds independent rows decided against one tree.
type BatchRequest struct {
	Rows []arbor.Row `json:"rows"`
}

// BatchItem is one row outcome of a batch.
type BatchItem struct {
	Index    int              `json:"index"`
	Decision *domain.Decision `json:"decision,omitempty"`
	Error    *ErrorBody       `json:"error,omitempty"`
}

// ErrorBody is the JSON form of an engine error.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "arbor-http",
		"version":     strings.TrimSpace(arbor.Version),
		"api_version": apiVersion(),
	})
}

// ListTrees handles the GET /trees request.
func (s *Server) ListTrees(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Engine.ListTrees(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"trees": ids})
}

// InspectTree handles the GET /trees/{id} request.
func (s *Server) InspectTree(w http.ResponseWriter, r *http.Request) {
	tree, err := s.Engine.Tree(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	info, err := s.Engine.Inspect(tree)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// GraphTree handles the GET /trees/{id}/graph request.
func (s *Server) GraphTree(w http.ResponseWriter, r *http.Request) {
	tree, err := s.Engine.Tree(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, graph.GenerateMermaid(tree, nil))
}

// DecideTree handles the POST /trees/{id}/decide request.
func (s *Server) DecideTree(w http.ResponseWriter, r *http.Request) {
	var body DecideRequest
	if !s.decode(w, r, &body) {
		return
	}
	d, err := s.Engine.DecideByID(r.Context(), chi.URLParam(r, "id"), body.Context, body.Time)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// DecideInline handles the POST /decide request.
func (s *Server) DecideInline(w http.ResponseWriter, r *http.Request) {
	var body InlineDecideRequest
	if !s.decode(w, r, &body) {
		return
	}
	tree, err := s.Engine.Parse(body.Tree)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	d, err := s.Engine.Decide(r.Context(), tree, body.Context, body.Time)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// DecideGenerator handles the POST /generators/decide request.
func (s *Server) DecideGenerator(w http.ResponseWriter, r *http.Request) {
	var body GeneratorDecideRequest
	if !s.decode(w, r, &body) {
		return
	}
	d, err := s.Engine.DecideGeneratorByID(r.Context(), body.Generator, body.Context, body.Time)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// BatchTree handles the POST /trees/{id}/batch request.
func (s *Server) BatchTree(w http.ResponseWriter, r *http.Request) {
	var body BatchRequest
	if !s.decode(w, r, &body) {
		return
	}
	tree, err := s.Engine.Tree(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	results := s.Engine.DecideBatch(r.Context(), s.Engine.ForTree(tree), body.Rows)
	items := make([]BatchItem, len(results))
	for i, res := range results {
		items[i] = BatchItem{Index: res.Index, Decision: res.Decision}
		if res.Err != nil {
			items[i].Decision = nil
			items[i].Error = &ErrorBody{Kind: observability.ErrorKind(res.Err), Message: res.Err.Error()}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": items})
}

// ValidateTree handles the POST /validate request.
func (s *Server) ValidateTree(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	tree, err := s.Engine.Parse(data)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true, "outputs": tree.Configuration.Output})
}

// SubscribeEvents handles the GET /events request (SSE), sending the ID of
// every changed tree.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.Logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	events, err := s.Engine.Watch(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case id, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: tree\ndata: %s\n\n", id)
			flusher.Flush()
		}
	}
}

// -- Helpers --

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		s.badRequest(w, r, err)
		return false
	}
	return true
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	LoggerFrom(r.Context(), s.Logger).Warn("invalid request body", "err", err)
	writeJSON(w, http.StatusBadRequest, map[string]ErrorBody{"error": {Kind: "bad_request", Message: err.Error()}})
}

// fail maps an engine error to a status code and writes it.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	logger := LoggerFrom(r.Context(), s.Logger)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "err", err)
	} else {
		logger.Debug("request rejected", "err", err, "status", status)
	}
	writeJSON(w, status, map[string]ErrorBody{"error": {Kind: observability.ErrorKind(err), Message: err.Error()}})
}

// StatusFor maps engine errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrTreeNotFound):
		return http.StatusNotFound
	case errors.Is(err, arbor.ErrNoLoader):
		return http.StatusNotImplemented
	case errors.Is(err, domain.ErrInvalidContext),
		errors.Is(err, domain.ErrInvalidTime),
		errors.Is(err, domain.ErrUnserializable),
		errors.Is(err, domain.ErrMalformedTree),
		errors.Is(err, domain.ErrDecision):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}
