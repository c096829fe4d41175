package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// Engine defines the interface required by the MCP server to interact with Arbor.
type Engine interface {
	ports.DecisionEngine
	Tree(ctx context.Context, id string) (*domain.Tree, error)
	Inspect(tree *domain.Tree) (arbor.TreeInfo, error)
}

// ValidationResponse reports a tree document check.
type ValidationResponse struct {
	Valid   bool     `json:"valid" jsonschema_description:"Whether the document is a valid tree"`
	Outputs []string `json:"outputs,omitempty" jsonschema_description:"Output properties the tree predicts"`
	Error   string   `json:"error,omitempty" jsonschema_description:"Why the document was rejected"`
}

// Server wraps the Arbor Engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("arbor-mcp", strings.TrimSpace(arbor.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE, until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		slog.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: decide
	decideTool := mcp.NewTool("decide",
		mcp.WithDescription("Evaluate a stored decision tree against a context and explain the prediction."),
		mcp.WithString("tree_id", mcp.Required(), mcp.Description("ID of the stored tree")),
		mcp.WithString("context", mcp.Description("JSON object of context property values (optional)")),
		mcp.WithString("time", mcp.Description(`JSON object {"timestamp": epoch seconds, "timezone": "+01:00"} (optional, defaults to now in UTC)`)),
		mcp.WithOutputSchema[domain.Decision](),
	)
	s.mcpServer.AddTool(decideTool, mcp.NewStructuredToolHandler(s.handleDecide))

	// TOOL: decide_generator
	generatorTool := mcp.NewTool("decide_generator",
		mcp.WithDescription("Merge the decisions of the stored trees accepted by a generator."),
		mcp.WithString("generator", mcp.Required(), mcp.Description(`JSON object {"filter": [tree IDs], "configuration": {...}}`)),
		mcp.WithString("context", mcp.Description("JSON object of context property values (optional)")),
		mcp.WithString("time", mcp.Description("JSON time object (optional)")),
		mcp.WithOutputSchema[domain.Decision](),
	)
	s.mcpServer.AddTool(generatorTool, mcp.NewStructuredToolHandler(s.handleDecideGenerator))

	// TOOL: validate_tree
	validateTool := mcp.NewTool("validate_tree",
		mcp.WithDescription("Check that a tree document parses and is well formed."),
		mcp.WithString("document", mcp.Required(), mcp.Description("The tree document as JSON")),
		mcp.WithOutputSchema[ValidationResponse](),
	)
	s.mcpServer.AddTool(validateTool, mcp.NewStructuredToolHandler(s.handleValidateTree))

	// TOOL: list_trees
	s.mcpServer.AddTool(mcp.NewTool("list_trees",
		mcp.WithDescription("List the IDs of the stored trees."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids, err := s.engine.ListTrees(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(ids)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

// Handler methods for structured tools

func (s *Server) handleDecide(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (domain.Decision, error) {
	id, _ := args["tree_id"].(string)
	if id == "" {
		return domain.Decision{}, errors.New("tree_id is required")
	}
	partial, t, err := contextArgs(args)
	if err != nil {
		return domain.Decision{}, err
	}

	d, err := s.engine.DecideByID(ctx, id, partial, t)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("decide failed: %w", err)
	}
	return *d, nil
}

func (s *Server) handleDecideGenerator(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (domain.Decision, error) {
	raw, _ := args["generator"].(string)
	var gen domain.Generator
	if err := json.Unmarshal([]byte(raw), &gen); err != nil {
		return domain.Decision{}, fmt.Errorf("invalid generator: %w", err)
	}
	partial, t, err := contextArgs(args)
	if err != nil {
		return domain.Decision{}, err
	}

	d, err := s.engine.DecideGeneratorByID(ctx, gen, partial, t)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("decide_generator failed: %w", err)
	}
	return *d, nil
}

func (s *Server) handleValidateTree(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ValidationResponse, error) {
	doc, _ := args["document"].(string)
	tree, err := s.engine.Parse([]byte(doc))
	if err != nil {
		return ValidationResponse{Valid: false, Error: err.Error()}, nil
	}
	return ValidationResponse{Valid: true, Outputs: tree.Configuration.Output}, nil
}

// contextArgs decodes the optional "context" and "time" JSON arguments.
func contextArgs(args map[string]interface{}) (domain.Context, *domain.Time, error) {
	var partial domain.Context
	if raw, ok := args["context"].(string); ok && raw != "" {
		dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
		dec.UseNumber()
		if err := dec.Decode(&partial); err != nil {
			return nil, nil, fmt.Errorf("invalid context: %w", err)
		}
	}

	var t *domain.Time
	if raw, ok := args["time"].(string); ok && raw != "" {
		t = new(domain.Time)
		if err := json.Unmarshal([]byte(raw), t); err != nil {
			return nil, nil, fmt.Errorf("invalid time: %w", err)
		}
	}
	return partial, t, nil
}

func (s *Server) registerResources() {
	// EXPOSE: arbor://trees
	s.mcpServer.AddResource(mcp.NewResource("arbor://trees", "Stored decision trees",
		mcp.WithMIMEType("application/json"),
	), s.readTrees)

	// EXPOSE: arbor://trees/{id}
	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate("arbor://trees/{id}", "Decision tree summary",
		mcp.WithTemplateMIMEType("application/json"),
	), s.readTree)
}

func (s *Server) readTrees(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	ids, err := s.engine.ListTrees(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list trees: %w", err)
	}
	jsonBytes, _ := json.Marshal(ids)

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "arbor://trees",
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}

func (s *Server) readTree(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	id := strings.TrimPrefix(uri, "arbor://trees/")
	if id == "" || id == uri {
		return nil, fmt.Errorf("invalid tree URI %q", uri)
	}

	tree, err := s.engine.Tree(ctx, id)
	if err != nil {
		return nil, err
	}
	info, err := s.engine.Inspect(tree)
	if err != nil {
		return nil, err
	}
	jsonBytes, _ := json.Marshal(info)

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
