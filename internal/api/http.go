package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/heysubinoy/localstore/internal/engine"
)

// Storage is the request surface of the sync engine that transports use.
type Storage interface {
	Initialize(ctx context.Context) error
	Set(ctx context.Context, key string, value json.RawMessage) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	GetAll(ctx context.Context) (map[string]json.RawMessage, error)
	State() engine.State
}

// Compile-time check to ensure the engine satisfies Storage.
var _ Storage = (*engine.Engine)(nil)

// FetchIDHeader carries the query correlation ID over HTTP.
const FetchIDHeader = "X-Fetch-Id"

// Server exposes a Storage over HTTP.
type Server struct {
	Storage Storage
	logger  *zap.Logger
}

// NewServer creates a new HTTP server for the given storage.
func NewServer(storage Storage, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		Storage: storage,
		logger:  logger.Named("http"),
	}
}

// RegisterRoutes registers all HTTP handlers on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/initialize", s.handleInitialize)
	mux.HandleFunc("/set", s.handleSet)
	mux.HandleFunc("/remove", s.handleRemove)
	mux.HandleFunc("/clear", s.handleClear)
	mux.HandleFunc("/get", s.handleGet)
	mux.HandleFunc("/getAll", s.handleGetAll)
	mux.HandleFunc("/ready", s.handleReady)
}

// handleInitialize handles POST /initialize, the host's "begin" signal.
func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.Storage.Initialize(r.Context()); err != nil {
		s.writeError(w, "initialize", err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// handleSet handles POST /set requests with JSON body.
// Expects: {"key": "foo", "value": <any JSON>}
func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Key   string          `json:"key"`
		Value json.RawMessage `json:"value"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.Key == "" {
		http.Error(w, "Missing key field", http.StatusBadRequest)
		return
	}

	if err := s.Storage.Set(r.Context(), req.Key, req.Value); err != nil {
		s.writeError(w, "set", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleRemove handles POST /remove requests with JSON body.
// Expects: {"key": "foo"}
func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Key string `json:"key"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if req.Key == "" {
		http.Error(w, "Missing key field", http.StatusBadRequest)
		return
	}

	if err := s.Storage.Remove(r.Context(), req.Key); err != nil {
		s.writeError(w, "remove", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleClear handles POST /clear.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.Storage.Clear(r.Context()); err != nil {
		s.writeError(w, "clear", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleGet handles GET /get?key=foo requests and returns the JSON value.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	key := r.URL.Query().Get("key")
	if key == "" {
		http.Error(w, "Missing key parameter", http.StatusBadRequest)
		return
	}

	value, ok, err := s.Storage.Get(s.withFetchID(w, r), key)
	if err != nil {
		s.writeError(w, "get", err)
		return
	}
	if !ok {
		http.Error(w, "Key not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(value)
}

// handleGetAll handles GET /getAll. Before the store is loaded the request
// either waits or fails with 503, depending on the engine's query policy.
func (s *Server) handleGetAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	all, err := s.Storage.GetAll(s.withFetchID(w, r))
	if err != nil {
		s.writeError(w, "getAll", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(all)
}

// handleReady handles GET /ready.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state := s.Storage.State()
	w.Header().Set("Content-Type", "application/json")
	if state != engine.Ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(map[string]string{"state": state.String()})
}

// withFetchID echoes the caller's X-Fetch-Id (or a new ID) on the response
// and attaches it to the request context for the engine's logs.
func (s *Server) withFetchID(w http.ResponseWriter, r *http.Request) context.Context {
	id := r.Header.Get(FetchIDHeader)
	if id == "" {
		id = engine.NewFetchID()
	}
	w.Header().Set(FetchIDHeader, id)
	return engine.ContextWithFetchID(r.Context(), id)
}

func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidValue):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, engine.ErrNotReady):
		http.Error(w, "Storage not loaded yet", http.StatusServiceUnavailable)
	case errors.Is(err, engine.ErrClosed):
		http.Error(w, "Storage closed", http.StatusGone)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		http.Error(w, "Request cancelled", http.StatusServiceUnavailable)
	default:
		s.logger.Error("request failed", zap.String("op", op), zap.Error(err))
		http.Error(w, "Failed to "+op, http.StatusInternalServerError)
	}
}
