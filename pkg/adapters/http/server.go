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

	"github.com/aretw0/awaken"
	"github.com/aretw0/awaken/internal/logging"
	"github.com/aretw0/awaken/pkg/classify"
	"github.com/aretw0/awaken/pkg/divination"
	"github.com/aretw0/awaken/pkg/domain"
	"github.com/aretw0/awaken/pkg/flow"
	"github.com/aretw0/awaken/pkg/observability"
	"github.com/aretw0/awaken/pkg/ports"
	"github.com/aretw0/awaken/pkg/quiz"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"
)

// maxBodySize caps request bodies before the quiz sanitizer sees them.
const maxBodySize = 1 << 20

// Flows is the session surface driven by the handlers.
type Flows interface {
	SubmitQuiz(ctx context.Context, flowID string, payload []byte) (*domain.FlowRecord, error)
	BeginRitual(ctx context.Context, flowID string) (*domain.FlowRecord, error)
	BeginDivination(ctx context.Context, flowID string) (*domain.FlowRecord, error)
	ResetDivination(ctx context.Context, flowID string) (*domain.FlowRecord, error)
	Continue(ctx context.Context, flowID string) (flow.RevealView, error)
	Close(ctx context.Context, flowID string) error
	Get(ctx context.Context, flowID string) (*domain.FlowRecord, error)
	Visuals(flowID string) (divination.Visuals, error)
	List(ctx context.Context) ([]string, error)
}

// Explainer classifies a code and reports which rule matched.
type Explainer interface {
	Explain(raw string) classify.Result
}

// Revealer builds the final screen from navigation parameters.
type Revealer interface {
	Reveal(p domain.Params) (flow.RevealView, error)
}

// Server holds the handlers' collaborators.
type Server struct {
	flows      Flows
	classifier Explainer
	profiles   ports.ProfileSource
	revealer   Revealer

	Streams *StreamManager
	metrics *observability.Metrics
	spec    *openapi3.T
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithStreams shares a StreamManager whose hooks were given to the session manager.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithMetrics exposes m on /metrics and counts classifications.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer validates the embedded API description and wires the handlers.
func NewServer(flows Flows, classifier Explainer, profiles ports.ProfileSource, revealer Revealer, opts ...Option) (*Server, error) {
	s := &Server{
		flows:      flows,
		classifier: classifier,
		profiles:   profiles,
		revealer:   revealer,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}

	spec, err := LoadSpec(context.Background())
	if err != nil {
		return nil, err
	}
	s.spec = spec
	return s, nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/openapi.yaml", s.GetSpec)
	r.Get("/archetypes", s.ListArchetypes)
	r.Get("/archetypes/{name}", s.GetArchetype)
	r.Post("/classify", s.Classify)
	r.Get("/reveal", s.GetReveal)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/flows", func(r chi.Router) {
		r.Get("/", s.ListFlows)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetFlow)
			r.Delete("/", s.CloseFlow)
			r.Post("/quiz", s.SubmitQuiz)
			r.Post("/ritual/begin", s.transition(s.flows.BeginRitual))
			r.Post("/divination/begin", s.transition(s.flows.BeginDivination))
			r.Post("/divination/reset", s.transition(s.flows.ResetDivination))
			r.Get("/visuals", s.GetVisuals)
			r.Post("/continue", s.Continue)
			r.Get("/events", s.SubscribeEvents)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if s.spec != nil && s.spec.Info != nil {
		apiVersion = s.spec.Info.Version
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "awaken-http",
		"version":     strings.TrimSpace(awaken.Version),
		"api_version": apiVersion,
	})
}

// GetSpec serves the embedded API description.
func (s *Server) GetSpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.Write(rawSpec)
}

// ListArchetypes handles the GET /archetypes request.
func (s *Server) ListArchetypes(w http.ResponseWriter, r *http.Request) {
	archetypes := s.profiles.Archetypes()
	out := make([]domain.Profile, 0, len(archetypes))
	for _, a := range archetypes {
		out = append(out, s.profiles.ProfileFor(a))
	}
	s.writeJSON(w, http.StatusOK, out)
}

// GetArchetype handles the GET /archetypes/{name} request.
func (s *Server) GetArchetype(w http.ResponseWriter, r *http.Request) {
	a, err := domain.ParseArchetype(chi.URLParam(r, "name"))
	if err != nil {
		s.writeStatus(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.profiles.ProfileFor(a))
}

type classifyRequest struct {
	Code *string `json:"code"`
}

// Classify handles the POST /classify request.
func (s *Server) Classify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&req); err != nil {
		s.writeStatus(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.Code == nil {
		s.writeStatus(w, http.StatusBadRequest, errors.New("code is required"))
		return
	}
	res := s.classifier.Explain(*req.Code)
	if s.metrics != nil {
		s.metrics.ObserveClassification(res)
	}
	s.writeJSON(w, http.StatusOK, res)
}

// GetReveal rebuilds the reveal screen from navigation parameters.
func (s *Server) GetReveal(w http.ResponseWriter, r *http.Request) {
	p, err := flow.ParamsFromQuery(r.URL.Query())
	if err != nil {
		s.writeStatus(w, http.StatusBadRequest, err)
		return
	}
	view, err := s.revealer.Reveal(p)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

// ListFlows handles the GET /flows request.
func (s *Server) ListFlows(w http.ResponseWriter, r *http.Request) {
	ids, err := s.flows.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, ids)
}

// GetFlow handles the GET /flows/{id} request.
func (s *Server) GetFlow(w http.ResponseWriter, r *http.Request) {
	rec, err := s.flows.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

// CloseFlow handles the DELETE /flows/{id} request.
func (s *Server) CloseFlow(w http.ResponseWriter, r *http.Request) {
	if err := s.flows.Close(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitQuiz handles the POST /flows/{id}/quiz request.
func (s *Server) SubmitQuiz(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		s.writeStatus(w, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
		return
	}
	rec, err := s.flows.SubmitQuiz(r.Context(), chi.URLParam(r, "id"), payload)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) transition(fn func(context.Context, string) (*domain.FlowRecord, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := fn(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, rec)
	}
}

// GetVisuals handles the GET /flows/{id}/visuals request.
func (s *Server) GetVisuals(w http.ResponseWriter, r *http.Request) {
	v, err := s.flows.Visuals(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, v)
}

// Continue handles the POST /flows/{id}/continue request.
func (s *Server) Continue(w http.ResponseWriter, r *http.Request) {
	view, err := s.flows.Continue(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

// SubscribeEvents handles the GET /flows/{id}/events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	var watch []string
	if err := runtime.BindQueryParameter("form", false, false, "watch", r.URL.Query(), &watch); err != nil {
		s.writeStatus(w, http.StatusBadRequest, err)
		return
	}
	filter := make(map[domain.EventType]bool, len(watch))
	for _, t := range watch {
		if t = strings.TrimSpace(t); t != "" {
			filter[domain.EventType(t)] = true
		}
	}

	flowID := chi.URLParam(r, "id")
	s.logger.Info("SSE: Subscribing to Flow Events", "flow_id", flowID)
	ch, cancel := s.Streams.Subscribe(flowID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "flow_id", flowID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(filter) > 0 {
				var head struct {
					Type domain.EventType `json:"type"`
				}
				if err := json.Unmarshal([]byte(msg), &head); err == nil && !filter[head.Type] {
					continue
				}
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// -- Helpers --

type errorBody struct {
	Error   string        `json:"error"`
	Choices []quiz.Choice `json:"choices,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var channelErr *quiz.ChannelError
	switch {
	case errors.As(err, &channelErr):
		s.writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error(), Choices: channelErr.Choices()})
	case errors.Is(err, quiz.ErrIgnored):
		s.writeJSON(w, http.StatusAccepted, map[string]any{"ignored": true, "reason": err.Error()})
	case errors.Is(err, domain.ErrSessionNotFound):
		s.writeStatus(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrNotRevealed):
		s.writeStatus(w, http.StatusConflict, err)
	case errors.Is(err, domain.ErrMissingArchetype), errors.Is(err, domain.ErrUnknownArchetype):
		s.writeStatus(w, http.StatusBadRequest, err)
	default:
		s.logger.Error("request failed", "err", err)
		s.writeStatus(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) writeStatus(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorBody{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
