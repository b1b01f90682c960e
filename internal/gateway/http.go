package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rohan/voyager/internal/agent"
)

// HTTPGateway is the JSON API surface the UI layer calls. It exposes the
// engine entry point and nothing else.
type HTTPGateway struct {
	Agent  Agent
	Addr   string
	server *http.Server
}

func NewHTTPGateway(addr string, a Agent) *HTTPGateway {
	return &HTTPGateway{Agent: a, Addr: addr}
}

type messageRequest struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (g *HTTPGateway) router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Post("/v1/sessions/{sessionID}/messages", g.handleMessage)
	return r
}

func (g *HTTPGateway) Start() error {
	g.server = &http.Server{
		Addr:              g.Addr,
		Handler:           g.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("HTTP gateway listening on %s", g.Addr)
	if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (g *HTTPGateway) handleMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Kind: "bad_request", Message: "body must be {\"message\": \"...\"}"})
		return
	}

	reply, err := g.Agent.HandleRequest(r.Context(), sessionID, req.Message)
	if err != nil {
		kind := agent.KindOf(err)
		writeJSON(w, statusFor(kind), errorResponse{Kind: string(kind), Message: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

func statusFor(kind agent.ErrorKind) int {
	switch kind {
	case agent.ErrSessionStoreUnavailable, agent.ErrAllProvidersExhausted:
		return http.StatusServiceUnavailable
	case agent.ErrRequestCancelled:
		return http.StatusRequestTimeout
	case "":
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// Send is a no-op for the HTTP gateway; replies travel on the request.
func (g *HTTPGateway) Send(sessionID string, text string) error {
	return nil
}

func (g *HTTPGateway) Stop() error {
	if g.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.server.Shutdown(ctx)
}
