// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jeranaias/quill-tui/internal/content"
	"github.com/jeranaias/quill-tui/internal/dialog"
	"github.com/jeranaias/quill-tui/internal/generate"
	"github.com/jeranaias/quill-tui/internal/history"
	"github.com/jeranaias/quill-tui/internal/storage"
	"github.com/jeranaias/quill-tui/internal/util"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is the listen address when none is configured.
	DefaultAddr = "127.0.0.1:8787"

	// DefaultGenerateTimeout bounds a single generation.
	DefaultGenerateTimeout = 5 * time.Minute

	// MaxRequestBodySize caps request bodies (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024
)

// Version is reported by /health.
var Version = "0.1.0"

// ============================================================================
// CONFIGURATION
// ============================================================================

// Config holds the server settings.
type Config struct {
	// Addr is the listen address (default 127.0.0.1:8787).
	Addr string

	// AllowedPaths restricts the content paths requests may read or touch.
	// Empty allows every path.
	AllowedPaths []string

	// RateLimit is the sustained requests per second per client and
	// RateBurst the burst size. Zero values use the defaults.
	RateLimit float64
	RateBurst int

	// MaxStreams and StreamExpiry configure the registry of streams that
	// wait for their client.
	MaxStreams   int
	StreamExpiry time.Duration

	// GenerateTimeout bounds each generation.
	GenerateTimeout time.Duration

	// AuthToken, when set, is required as a bearer token on /api routes.
	AuthToken string

	// CORSOrigins enables cross-origin access for the listed origins.
	CORSOrigins []string
}

// ============================================================================
// DEPENDENCIES
// ============================================================================

// Generator runs content creation requests.
type Generator interface {
	Generate(ctx context.Context, req generate.Request, onPartial generate.PartialFunc) (*generate.Result, error)
}

// Assistant runs the text operations besides create. A Generator that
// also implements Assistant enables the keywords, description, prompt and
// translate endpoints.
type Assistant interface {
	Keywords(ctx context.Context, text string) ([]string, error)
	Description(ctx context.Context, text string, maxWords int) (string, error)
	ExecutePrompt(ctx context.Context, req generate.PromptRequest) (*generate.Result, error)
	Translate(ctx context.Context, req generate.TranslateRequest, onPartial generate.PartialFunc) (*generate.Result, error)
}

// HistoryStore reads and deletes stored dialog histories.
type HistoryStore interface {
	LoadHistory(ctx context.Context, key storage.Key) ([]history.Snapshot, error)
	DeleteHistory(ctx context.Context, key storage.Key) error
}

// backendReporter is implemented by generators that can name their backend.
type backendReporter interface {
	Backend() generate.Backend
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the content creation HTTP API.
type Server struct {
	cfg       Config
	generator Generator
	retriever content.Retriever
	store     HistoryStore
	library   atomic.Pointer[dialog.Library]

	streams *streamRegistry
	limiter *RateLimiter
	router  chi.Router
	started time.Time

	mu       sync.Mutex
	server   *http.Server
	shutdown bool
}

// New creates a server. retriever and store may be nil; the endpoints that
// need them then answer 503.
func New(cfg Config, generator Generator, retriever content.Retriever, store HistoryStore) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = DefaultGenerateTimeout
	}

	s := &Server{
		cfg:       cfg,
		generator: generator,
		retriever: retriever,
		store:     store,
		streams:   newStreamRegistry(cfg.MaxStreams, cfg.StreamExpiry),
		limiter:   NewRateLimiter(cfg.RateLimit, cfg.RateBurst),
		started:   time.Now(),
	}
	s.library.Store(dialog.DefaultLibrary())
	s.setupRoutes()
	return s
}

// SetLibrary replaces the prompt library served by /api/prompts.
func (s *Server) SetLibrary(lib *dialog.Library) {
	if lib != nil {
		s.library.Store(lib)
	}
}

// Library returns the current prompt library.
func (s *Server) Library() *dialog.Library {
	return s.library.Load()
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.cfg.Addr
}

// Handler returns the routed handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RecoveryMiddleware())
	r.Use(SecurityHeadersMiddleware())
	r.Use(LoggingMiddleware(log.Default()))
	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(CORSMiddleware(s.cfg.CORSOrigins))
	}

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(RateLimitMiddleware(s.limiter))
		if s.cfg.AuthToken != "" {
			r.Use(AuthMiddleware(s.cfg.AuthToken))
		}
		r.Post("/create", s.handleCreate)
		r.Post("/keywords", s.handleKeywords)
		r.Post("/description", s.handleDescription)
		r.Post("/prompt", s.handlePrompt)
		r.Post("/translate", s.handleTranslate)
		r.Get("/stream", s.handleStream)
		r.Get("/approximated/*", s.handleApproximated)
		r.Get("/history", s.handleGetHistory)
		r.Delete("/history", s.handleDeleteHistory)
		r.Get("/prompts", s.handlePrompts)
	})

	s.router = r
}

// ============================================================================
// CREATE
// ============================================================================

type streamIDResult struct {
	StreamID string `json:"streamid"`
}

type partialPayload struct {
	Text string `json:"text"`
}

type errorPayload struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// handleCreate handles POST /api/create.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCreateRequest(w, r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Request body exceeds maximum size of %d bytes", MaxRequestBodySize))
			return
		}
		log.Printf("CREATE_BAD_REQUEST | error=%v", err)
		s.writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := req.Validate(); err != nil {
		s.writeGenerateError(w, err)
		return
	}
	if req.InputPath != "" && !s.pathAllowed(req.InputPath) {
		s.forbidden(w, req.InputPath)
		return
	}
	if s.generator == nil {
		s.writeGenerateError(w, generate.ErrNoBackend)
		return
	}

	if req.Streaming {
		s.startStream(w, req)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.GenerateTimeout)
	defer cancel()
	result, err := s.generator.Generate(ctx, req, nil)
	if err != nil {
		s.writeGenerateError(w, err)
		return
	}
	s.writeResult(w, http.StatusOK, result)
}

// startStream registers a stream for the create request.
func (s *Server) startStream(w http.ResponseWriter, req generate.Request) {
	s.runStream(w, "create", req.Prompt, func(ctx context.Context, onPartial generate.PartialFunc) (*generate.Result, error) {
		return s.generator.Generate(ctx, req, onPartial)
	})
}

// runStream registers a stream, starts run in the background and answers
// with the stream id.
func (s *Server) runStream(w http.ResponseWriter, op, summary string, run func(context.Context, generate.PartialFunc) (*generate.Result, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.GenerateTimeout)
	st := newStream(cancel)
	s.streams.add(st)

	go func() {
		defer cancel()
		result, err := run(ctx, func(text string) {
			st.push(eventPartial, partialPayload{Text: text}, false)
		})
		if err != nil {
			st.push(eventError, errorPayload{Message: err.Error(), Type: generate.TypeOf(err).String()}, true)
			return
		}
		st.push(eventFinished, result, true)
	}()

	log.Printf("STREAM_REGISTERED | id=%s op=%s input=%q", st.id, op, util.LogSnippet(summary, 60))
	s.writeResult(w, http.StatusOK, streamIDResult{StreamID: st.id})
}

// decodeCreateRequest reads a JSON body or form values.
func decodeCreateRequest(w http.ResponseWriter, r *http.Request) (generate.Request, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req generate.Request
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return req, err
		}
		req.Prompt = r.PostForm.Get("prompt")
		req.TextLength = r.PostForm.Get("textLength")
		req.InputText = r.PostForm.Get("inputText")
		req.InputPath = r.PostForm.Get("inputPath")
		req.RichText, _ = strconv.ParseBool(r.PostForm.Get("richText"))
		req.Streaming, _ = strconv.ParseBool(r.PostForm.Get("streaming"))
		return req, nil
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, err
	}
	return req, nil
}

// ============================================================================
// STREAM
// ============================================================================

// handleStream handles GET /api/stream?streamid=.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("streamid")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "No stream id given")
		return
	}
	st := s.streams.claim(id)
	if st == nil {
		log.Printf("STREAM_GONE | id=%s", id)
		s.writeError(w, http.StatusGone, "Stream not found or expired")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		st.cancel()
		s.writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	start := time.Now()
	if err := st.writeTo(r.Context(), w, flusher.Flush); err != nil {
		st.cancel()
		log.Printf("STREAM_ABORTED | id=%s error=%v", id, err)
		return
	}
	log.Printf("STREAM_CLOSED | id=%s duration=%v", id, time.Since(start))
}

// ============================================================================
// CONTENT
// ============================================================================

// handleApproximated handles GET /api/approximated/*.
func (s *Server) handleApproximated(w http.ResponseWriter, r *http.Request) {
	p := "/" + strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if !s.pathAllowed(p) {
		s.forbidden(w, p)
		return
	}
	if s.retriever == nil {
		s.writeError(w, http.StatusServiceUnavailable, "No content source configured")
		return
	}

	text, err := s.retriever.Retrieve(r.Context(), p)
	switch {
	case errors.Is(err, content.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "No resource found at "+p)
		return
	case errors.Is(err, content.ErrInvalidPath):
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.Printf("APPROXIMATE_FAILED | path=%s error=%v", p, err)
		s.writeError(w, http.StatusBadGateway, "Content source unavailable")
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(text))
}

// ============================================================================
// HISTORY
// ============================================================================

type historyResult struct {
	Key     storage.Key        `json:"key"`
	Entries []history.Snapshot `json:"entries"`
}

type deleteResult struct {
	Deleted bool `json:"deleted"`
}

// historyKey reads and checks the key parameters. It writes the error
// response and returns false when the request cannot proceed.
func (s *Server) historyKey(w http.ResponseWriter, r *http.Request) (storage.Key, bool) {
	key := storage.Key{
		Path:     r.URL.Query().Get("path"),
		Property: r.URL.Query().Get("property"),
	}
	if strings.TrimSpace(key.Path) == "" {
		s.writeError(w, http.StatusBadRequest, "No path given")
		return key, false
	}
	if !s.pathAllowed(key.Path) {
		s.forbidden(w, key.Path)
		return key, false
	}
	if s.store == nil {
		s.writeError(w, http.StatusServiceUnavailable, "History storage not configured")
		return key, false
	}
	return key, true
}

// handleGetHistory handles GET /api/history.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	key, ok := s.historyKey(w, r)
	if !ok {
		return
	}
	entries, err := s.store.LoadHistory(r.Context(), key)
	if err != nil {
		log.Printf("HISTORY_LOAD_FAILED | key=%s error=%v", key, err)
		s.writeError(w, http.StatusInternalServerError, "Failed to load history")
		return
	}
	if entries == nil {
		entries = []history.Snapshot{}
	}
	s.writeResult(w, http.StatusOK, historyResult{Key: key, Entries: entries})
}

// handleDeleteHistory handles DELETE /api/history.
func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	key, ok := s.historyKey(w, r)
	if !ok {
		return
	}
	err := s.store.DeleteHistory(r.Context(), key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "No history for "+key.String())
		return
	case err != nil:
		log.Printf("HISTORY_DELETE_FAILED | key=%s error=%v", key, err)
		s.writeError(w, http.StatusInternalServerError, "Failed to delete history")
		return
	}
	log.Printf("HISTORY_DELETED | key=%s client_ip=%s", key, GetClientIP(r))
	s.writeResult(w, http.StatusOK, deleteResult{Deleted: true})
}

// ============================================================================
// PROMPTS AND HEALTH
// ============================================================================

// handlePrompts handles GET /api/prompts.
func (s *Server) handlePrompts(w http.ResponseWriter, r *http.Request) {
	s.writeResult(w, http.StatusOK, s.library.Load())
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Backend       string `json:"backend,omitempty"`
	Model         string `json:"model,omitempty"`
	Content       bool   `json:"content_source"`
	History       bool   `json:"history_storage"`
	OpenStreams   int    `json:"open_streams"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:        "ok",
		Version:       Version,
		Content:       s.retriever != nil,
		History:       s.store != nil,
		OpenStreams:   s.streams.len(),
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}
	if br, ok := s.generator.(backendReporter); ok && br.Backend() != nil {
		health.Backend = br.Backend().Name()
		health.Model = br.Backend().Model()
	} else if s.generator == nil {
		health.Status = "degraded"
	}
	s.writeJSON(w, http.StatusOK, health)
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// ListenAndServe serves until Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return nil
	}
	srv := &http.Server{
		Addr:        s.cfg.Addr,
		Handler:     s.router,
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: event streams stay open for the whole generation.
		IdleTimeout: 120 * time.Second,
	}
	s.server = srv
	s.mu.Unlock()

	log.Printf("SERVER_START | addr=%s version=%s allowed_paths=%v", s.cfg.Addr, Version, s.cfg.AllowedPaths)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and cancels unclaimed streams. A
// ListenAndServe that has not started yet returns immediately.
func (s *Server) Shutdown(ctx context.Context) error {
	s.streams.closeAll()
	s.mu.Lock()
	s.shutdown = true
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	log.Printf("SERVER_SHUTDOWN | starting graceful shutdown")
	return srv.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// pathAllowed reports whether p lies under one of the allowed prefixes.
func (s *Server) pathAllowed(p string) bool {
	if len(s.cfg.AllowedPaths) == 0 {
		return true
	}
	if !strings.HasPrefix(p, "/") {
		return false
	}
	clean := path.Clean(p)
	for _, prefix := range s.cfg.AllowedPaths {
		prefix = strings.TrimSuffix(prefix, "/")
		if prefix == "" || clean == prefix || strings.HasPrefix(clean, prefix+"/") {
			return true
		}
	}
	return false
}

func (s *Server) forbidden(w http.ResponseWriter, p string) {
	log.Printf("PATH_DENIED | path=%s", p)
	s.writeError(w, http.StatusForbidden, "Access to "+p+" is not allowed")
}

// writeGenerateError maps a generation error to an HTTP status.
func (s *Server) writeGenerateError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch generate.TypeOf(err) {
	case generate.ErrTypeInvalidRequest:
		status = http.StatusBadRequest
	case generate.ErrTypeContent:
		status = http.StatusNotFound
	case generate.ErrTypeNotRunning:
		status = http.StatusServiceUnavailable
	case generate.ErrTypeTimeout:
		status = http.StatusGatewayTimeout
	case generate.ErrTypeRateLimit:
		status = http.StatusTooManyRequests
	case generate.ErrTypeAuth, generate.ErrTypeModelNotFound:
		status = http.StatusBadGateway
	}
	if status >= 500 {
		log.Printf("CREATE_FAILED | status=%d error=%v", status, err)
	}
	s.writeErrorType(w, status, err.Error(), generate.TypeOf(err).String())
}

type resultEnvelope struct {
	Data struct {
		Result any `json:"result"`
	} `json:"data"`
}

// writeResult writes v wrapped as {"data":{"result":v}}.
func (s *Server) writeResult(w http.ResponseWriter, status int, v any) {
	var env resultEnvelope
	env.Data.Result = v
	s.writeJSON(w, status, env)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeErrorType(w, status, message, "invalid_request_error")
}

func (s *Server) writeErrorType(w http.ResponseWriter, status int, message, errType string) {
	s.writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": message,
			"type":    errType,
			"code":    status,
		},
	})
}
