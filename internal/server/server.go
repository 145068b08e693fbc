/*
 * This file is part of Matilda Voice (https://github.com/matildalabs/matilda-voice).
 * Copyright (C) 2025 Matilda Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

// Package server exposes synthesis over an authenticated HTTP API for
// Matilda integration.
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matildalabs/matilda-voice/internal/api"
	"github.com/matildalabs/matilda-voice/internal/audio"
	"github.com/matildalabs/matilda-voice/internal/config"
	"github.com/matildalabs/matilda-voice/internal/events"
	"github.com/matildalabs/matilda-voice/internal/logging"
	"github.com/matildalabs/matilda-voice/internal/messaging"
	"github.com/matildalabs/matilda-voice/internal/security"
	"github.com/matildalabs/matilda-voice/internal/storage"
	"github.com/matildalabs/matilda-voice/internal/tts"
	"github.com/matildalabs/matilda-voice/internal/voice"
)

// Server is the authenticated HTTP front end over the synthesis engine.
type Server struct {
	engine *tts.Engine
	mux    *http.ServeMux
	server *http.Server

	apiToken       string
	allowedOrigins map[string]bool

	synthesisPool *WorkerPool
	fileIOPool    *WorkerPool

	// Optional history sinks; nil when running without them.
	eventsStore *storage.SynthesisEventsStore
	natsService *messaging.NATSService

	ctx    context.Context
	cancel context.CancelFunc
}

// Options configures optional server collaborators.
type Options struct {
	EventsStore *storage.SynthesisEventsStore
	NATSService *messaging.NATSService
}

// New creates a server over the given engine.
func New(engine *tts.Engine, opts Options) (*Server, error) {
	token, err := security.GetOrCreateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize API token: %w", err)
	}

	origins := make(map[string]bool)
	for _, origin := range security.AllowedOrigins() {
		origins[origin] = true
	}

	ctx, cancel := context.WithCancel(context.Background())

	waitTimeout := config.GetDuration("server_pool_wait_timeout")
	s := &Server{
		engine:         engine,
		mux:            http.NewServeMux(),
		apiToken:       token,
		allowedOrigins: origins,
		synthesisPool:  NewWorkerPool("synthesis", config.GetInt("server_synthesis_workers"), waitTimeout),
		fileIOPool:     NewWorkerPool("file_io", config.GetInt("server_file_io_workers"), waitTimeout),
		eventsStore:    opts.EventsStore,
		natsService:    opts.NATSService,
		ctx:            ctx,
		cancel:         cancel,
	}

	s.server = &http.Server{
		Addr:         config.GetString("server_host") + ":" + strconv.Itoa(config.GetInt("server_port")),
		Handler:      s.mux,
		ReadTimeout:  config.GetDuration("server_read_timeout"),
		WriteTimeout: config.GetDuration("server_write_timeout"),
		IdleTimeout:  60 * time.Second,
	}

	s.routes()

	return s, nil
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start runs the HTTP server until Stop is called.
func (s *Server) Start() error {
	logging.Sugar.Infow("Matilda Voice server starting",
		"addr", s.server.Addr,
		"synthesis_workers", s.synthesisPool.Size(),
		"file_io_workers", s.fileIOPool.Size())

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	logging.Sugar.Infow("Shutting down Matilda Voice server")

	s.cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) routes() {
	// Public endpoints
	s.mux.HandleFunc("/", s.handleHealth)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/providers", s.handleProviders)

	// Authenticated endpoints
	s.mux.HandleFunc("/speak", s.requireAuth(s.handleSpeak))
	s.mux.HandleFunc("/synthesize", s.requireAuth(s.handleSynthesize))
	s.mux.HandleFunc("/reload", s.requireAuth(s.handleReload))

	// Synthesis history REST resource, only when a store is configured.
	if s.eventsStore != nil {
		history := api.NewSynthesisHistoryHandler(s.eventsStore)
		s.mux.HandleFunc("/api/synthesis-events", s.requireAuth(history.HandleEvents))
		s.mux.HandleFunc("/api/synthesis-events/", s.requireAuth(history.HandleEventByID))
	}
}

// requireAuth enforces bearer-token authentication. OPTIONS preflight
// passes through so browsers can negotiate CORS before authenticating.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			s.addCORSHeaders(w, r)
			w.WriteHeader(http.StatusOK)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			s.writeEnvelope(w, r, http.StatusUnauthorized,
				errorEnvelope("auth", "Unauthorized: Missing or invalid Authorization header", "unauthorized", false))
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if !security.TokensEqual(token, s.apiToken) {
			s.writeEnvelope(w, r, http.StatusForbidden,
				errorEnvelope("auth", "Forbidden: Invalid token", "forbidden", false))
			return
		}

		next(w, r)
	}
}

// addCORSHeaders sets the CORS response headers. Allow-Origin is only
// echoed for origins on the configured allow-list.
func (s *Server) addCORSHeaders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if origin := r.Header.Get("Origin"); origin != "" && s.allowedOrigins[origin] {
		w.Header().Set("Access-Control-Allow-Origin", origin)
	}
}

func (s *Server) writeEnvelope(w http.ResponseWriter, r *http.Request, status int, envelope *Envelope) {
	s.addCORSHeaders(w, r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		logging.Sugar.Errorw("Failed to write response", "error", err)
	}
}

func (s *Server) writeSynthesisError(w http.ResponseWriter, r *http.Request, task string, err error) {
	status, code, retryable := classifyError(err)
	s.writeEnvelope(w, r, status, errorEnvelope(task, err.Error(), code, retryable))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	env := audio.CheckEnvironment(false)
	s.writeEnvelope(w, r, http.StatusOK, okEnvelope("health", "", map[string]any{
		"status":          "ok",
		"service":         serviceName,
		"audio_available": env.Available,
		"audio_backend":   env.Reason,
	}))
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		s.addCORSHeaders(w, r)
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		s.writeEnvelope(w, r, http.StatusMethodNotAllowed,
			errorEnvelope("providers", "Method not allowed", "method_not_allowed", false))
		return
	}

	s.writeEnvelope(w, r, http.StatusOK, okEnvelope("providers", "", map[string]any{
		"providers": s.engine.Registry().Providers(),
		"default":   s.engine.DefaultProvider(),
	}))
}

type synthesisRequestBody struct {
	Text     string         `json:"text"`
	Voice    string         `json:"voice,omitempty"`
	Provider string         `json:"provider,omitempty"`
	Format   string         `json:"format,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
}

func (s *Server) readBody(r *http.Request, out any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	defer func() { _ = r.Body.Close() }()
	return json.Unmarshal(body, out)
}

// handleSpeak synthesizes and plays audio on the server host.
func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeEnvelope(w, r, http.StatusMethodNotAllowed,
			errorEnvelope("speak", "Method not allowed", "method_not_allowed", false))
		return
	}

	var body synthesisRequestBody
	if err := s.readBody(r, &body); err != nil {
		s.writeEnvelope(w, r, http.StatusBadRequest,
			errorEnvelope("speak", "Invalid JSON", "bad_request", false))
		return
	}
	if body.Text == "" {
		s.writeEnvelope(w, r, http.StatusBadRequest,
			errorEnvelope("speak", "Missing 'text' field", "bad_request", false))
		return
	}

	req := tts.Request{
		Text:     body.Text,
		Voice:    body.Voice,
		Provider: voice.HandleProviderShortcut(body.Provider),
		Stream:   true,
		Options:  body.Options,
	}
	providerName := s.engine.ResolveProvider(req.Provider, req.Voice)

	err := s.synthesisPool.Run(r.Context(), func() error {
		_, err := s.engine.SynthesizeText(r.Context(), req)
		return err
	})
	s.recordEvent(r.Context(), providerName, &req, 0, err)
	if err != nil {
		s.writeSynthesisError(w, r, "speak", err)
		return
	}

	s.writeEnvelope(w, r, http.StatusOK, okEnvelope("speak", providerName, map[string]any{
		"text":  body.Text,
		"voice": body.Voice,
	}))
}

// handleSynthesize synthesizes to a temp file and returns the audio
// base64-encoded. The temp file never outlives the request.
func (s *Server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeEnvelope(w, r, http.StatusMethodNotAllowed,
			errorEnvelope("synthesize", "Method not allowed", "method_not_allowed", false))
		return
	}

	var body synthesisRequestBody
	if err := s.readBody(r, &body); err != nil {
		s.writeEnvelope(w, r, http.StatusBadRequest,
			errorEnvelope("synthesize", "Invalid JSON", "bad_request", false))
		return
	}
	if body.Text == "" {
		s.writeEnvelope(w, r, http.StatusBadRequest,
			errorEnvelope("synthesize", "Missing 'text' field", "bad_request", false))
		return
	}

	format := body.Format
	if format == "" {
		format = "wav"
	}

	tmpPath, err := audio.TempFilePath("." + format)
	if err != nil {
		s.writeEnvelope(w, r, http.StatusInternalServerError,
			errorEnvelope("synthesize", err.Error(), "internal_error", false))
		return
	}
	defer func() {
		if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
			logging.LogWarn("Failed to remove temporary audio file",
				zap.String("path", tmpPath), zap.Error(err))
		}
	}()

	req := tts.Request{
		Text:         body.Text,
		Voice:        body.Voice,
		Provider:     voice.HandleProviderShortcut(body.Provider),
		OutputPath:   tmpPath,
		OutputFormat: format,
		Options:      body.Options,
	}
	providerName := s.engine.ResolveProvider(req.Provider, req.Voice)

	var result *tts.Result
	err = s.synthesisPool.Run(r.Context(), func() error {
		var synthErr error
		result, synthErr = s.engine.SynthesizeText(r.Context(), req)
		return synthErr
	})
	if err != nil {
		s.recordEvent(r.Context(), providerName, &req, 0, err)
		s.writeSynthesisError(w, r, "synthesize", err)
		return
	}

	var audioBase64 string
	var sizeBytes int64
	err = s.fileIOPool.Run(r.Context(), func() error {
		data, readErr := os.ReadFile(tmpPath)
		if readErr != nil {
			return tts.ProviderErrorf("failed to read synthesized audio: %v", readErr)
		}
		audioBase64 = base64.StdEncoding.EncodeToString(data)
		sizeBytes = int64(len(data))
		return nil
	})
	if err == nil && result != nil && sizeBytes == 0 {
		sizeBytes = result.SizeBytes
	}
	s.recordEvent(r.Context(), providerName, &req, sizeBytes, err)
	if err != nil {
		s.writeSynthesisError(w, r, "synthesize", err)
		return
	}

	s.writeEnvelope(w, r, http.StatusOK, okEnvelope("synthesize", providerName, map[string]any{
		"audio":      audioBase64,
		"format":     format,
		"text":       body.Text,
		"size_bytes": sizeBytes,
	}))
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeEnvelope(w, r, http.StatusMethodNotAllowed,
			errorEnvelope("reload", "Method not allowed", "method_not_allowed", false))
		return
	}

	config.Reload()
	logging.Sugar.Infow("Configuration reloaded via API")

	s.writeEnvelope(w, r, http.StatusOK, okEnvelope("reload", "", map[string]any{
		"message": "Configuration reloaded",
	}))
}

// recordEvent persists and publishes the synthesis outcome. Best-effort:
// history failures are logged, never surfaced to the client.
func (s *Server) recordEvent(ctx context.Context, providerName string, req *tts.Request, sizeBytes int64, synthErr error) {
	if s.eventsStore == nil && s.natsService == nil {
		return
	}

	event := events.NewSynthesisEvent(uuid.NewString(), providerName, req.Voice, req.Text)
	event.SetDelivery(req.Stream, req.OutputFormat, "", sizeBytes)
	if synthErr != nil {
		kind := "internal"
		var typed *tts.Error
		if e, ok := synthErr.(*tts.Error); ok {
			typed = e
			kind = string(typed.Kind)
		}
		event.SetError(kind, synthErr)
	} else {
		event.Complete()
	}

	if s.eventsStore != nil {
		if err := s.eventsStore.Insert(event); err != nil {
			logging.LogWarn("Failed to store synthesis event", zap.Error(err))
		}
	}
	if s.natsService != nil && s.natsService.IsConnected() {
		if err := s.natsService.PublishSynthesisEvent(event); err != nil {
			logging.LogWarn("Failed to publish synthesis event", zap.Error(err))
		}
	}
}
