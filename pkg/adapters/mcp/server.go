package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/awaken"
	"github.com/aretw0/awaken/internal/logging"
	"github.com/aretw0/awaken/pkg/classify"
	"github.com/aretw0/awaken/pkg/domain"
	"github.com/aretw0/awaken/pkg/flow"
	"github.com/aretw0/awaken/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ArchetypesURI names the resource listing every profile.
const ArchetypesURI = "awaken://archetypes"

// Explainer classifies a code and reports which rule matched.
type Explainer interface {
	Explain(raw string) classify.Result
}

// Revealer builds the final screen from navigation parameters.
type Revealer interface {
	Reveal(p domain.Params) (flow.RevealView, error)
}

// Server exposes classification and profiles as MCP tools.
type Server struct {
	classifier Explainer
	profiles   ports.ProfileSource
	revealer   Revealer
	logger     *slog.Logger
	mcpServer  *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(classifier Explainer, profiles ports.ProfileSource, revealer Revealer, opts ...Option) *Server {
	s := &Server{
		classifier: classifier,
		profiles:   profiles,
		revealer:   revealer,
		logger:     logging.NewNop(),
		mcpServer:  server.NewMCPServer("awaken-mcp", strings.TrimSpace(awaken.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
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
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type classifyArgs struct {
	Code string `json:"code"`
}

type profileArgs struct {
	Archetype string `json:"archetype"`
}

type revealArgs struct {
	Code      string `json:"code"`
	Archetype string `json:"archetype"`
}

// ArchetypeList is the output of list_archetypes.
type ArchetypeList struct {
	Archetypes []domain.Archetype `json:"archetypes" jsonschema_description:"The six archetypes in display order"`
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("classify_code",
		mcp.WithDescription("Classify a four-letter personality code into a Nen archetype. Invalid codes resolve to the fallback."),
		mcp.WithString("code", mcp.Required(), mcp.Description("Personality code such as INTJ (case and spacing are ignored)")),
		mcp.WithOutputSchema[classify.Result](),
	), mcp.NewStructuredToolHandler(s.handleClassify))

	s.mcpServer.AddTool(mcp.NewTool("get_profile",
		mcp.WithDescription("Get the descriptive profile of one archetype."),
		mcp.WithString("archetype", mcp.Required(), mcp.Description("Archetype name, case-insensitive")),
		mcp.WithOutputSchema[domain.Profile](),
	), mcp.NewStructuredToolHandler(s.handleProfile))

	s.mcpServer.AddTool(mcp.NewTool("list_archetypes",
		mcp.WithDescription("List the six archetypes in display order."),
		mcp.WithOutputSchema[ArchetypeList](),
	), mcp.NewStructuredToolHandler(s.handleList))

	s.mcpServer.AddTool(mcp.NewTool("reveal",
		mcp.WithDescription("Build the reveal screen for a code and archetype, including the share text."),
		mcp.WithString("code", mcp.Description("The original personality code")),
		mcp.WithString("archetype", mcp.Required(), mcp.Description("Archetype name")),
		mcp.WithOutputSchema[flow.RevealView](),
	), mcp.NewStructuredToolHandler(s.handleReveal))
}

func (s *Server) handleClassify(ctx context.Context, request mcp.CallToolRequest, args classifyArgs) (classify.Result, error) {
	res := s.classifier.Explain(args.Code)
	s.logger.Debug("MCP classify", "archetype", res.Archetype, "rule", res.Rule)
	return res, nil
}

func (s *Server) handleProfile(ctx context.Context, request mcp.CallToolRequest, args profileArgs) (domain.Profile, error) {
	a, err := domain.ParseArchetype(args.Archetype)
	if err != nil {
		return domain.Profile{}, err
	}
	return s.profiles.ProfileFor(a), nil
}

func (s *Server) handleList(ctx context.Context, request mcp.CallToolRequest, _ struct{}) (ArchetypeList, error) {
	return ArchetypeList{Archetypes: s.profiles.Archetypes()}, nil
}

func (s *Server) handleReveal(ctx context.Context, request mcp.CallToolRequest, args revealArgs) (flow.RevealView, error) {
	a, err := domain.ParseArchetype(args.Archetype)
	if err != nil {
		return flow.RevealView{}, err
	}
	return s.revealer.Reveal(domain.Params{Code: args.Code, Archetype: a})
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(ArchetypesURI, "Archetype Profiles",
		mcp.WithResourceDescription("Every archetype profile in display order."),
		mcp.WithMIMEType("application/json"),
	), s.readArchetypes)
}

func (s *Server) readArchetypes(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	archetypes := s.profiles.Archetypes()
	out := make([]domain.Profile, 0, len(archetypes))
	for _, a := range archetypes {
		out = append(out, s.profiles.ProfileFor(a))
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode profiles: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      ArchetypesURI,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}
