/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package backend exposes a template store over HTTP and provides the client
// the editor uses to reach it.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"printdesigner/internal/domain"
	"printdesigner/internal/lifecycle"
	applog "printdesigner/internal/log"
	"printdesigner/internal/version"
)

const (
	maxBodyBytes  = 8 << 20
	maxAssetBytes = 16 << 20
	// VenueHeader lets a client state the venue it expects to act on.
	VenueHeader = "X-Venue-ID"
)

// Store is what the server needs from persistence.
type Store interface {
	lifecycle.Store
	GetAsset(ctx context.Context, venueID, hash string) (domain.Asset, []byte, error)
}

// Pinger is implemented by stores that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server serves the persistence API.
type Server struct {
	store     Store
	render    lifecycle.Renderer
	secret    []byte
	devTokens bool
	log       *slog.Logger
	router    chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithRenderer proxies /api/render to r.
func WithRenderer(r lifecycle.Renderer) Option { return func(s *Server) { s.render = r } }

// WithDevTokens enables POST /api/auth/token, which signs tokens for any
// requested identity. Only for local development.
func WithDevTokens(on bool) Option { return func(s *Server) { s.devTokens = on } }

// NewServer builds the router. secret signs and verifies bearer tokens.
func NewServer(store Store, secret []byte, opts ...Option) *Server {
	s := &Server{store: store, secret: secret, log: applog.WithComponent("backend")}
	for _, o := range opts {
		o(s)
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", s.handleReady)
	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("printdesigner " + version.String()))
	})
	if s.devTokens {
		r.Post("/api/auth/token", s.handleToken)
	}

	r.Group(func(r chi.Router) {
		r.Use(requireAuth(s.secret))
		r.Use(s.checkVenue)
		r.Get("/api/templates", s.handleList)
		r.Post("/api/templates", s.handleCreate)
		r.Get("/api/templates/{id}", s.handleGet)
		r.Put("/api/templates/{id}", s.handleUpdate)
		r.Post("/api/templates/{id}/publish", s.handlePublish)
		r.Get("/api/templates/{id}/versions", s.handleVersions)
		r.Get("/api/templates/{id}/audit", s.handleAudit)
		r.Post("/api/assets", s.handleUpload)
		r.Get("/api/assets/{hash}", s.handleAsset)
		r.Post("/api/render", s.handleRender)
	})
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("listening", slog.String("addr", addr))
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		r = r.WithContext(applog.ContextWith(r.Context(), slog.String("req_id", middleware.GetReqID(r.Context()))))
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("took", time.Since(start)),
			slog.String("req_id", middleware.GetReqID(r.Context())),
		)
	})
}

// checkVenue rejects requests whose venue header disagrees with the token.
func (s *Server) checkVenue(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, _ := ClaimsFrom(r.Context())
		if v := r.Header.Get(VenueHeader); v != "" && c != nil && v != c.VenueID {
			writeError(w, http.StatusForbidden, fmt.Errorf("token is not valid for venue %q", v))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.store.(Pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User       string `json:"user"`
		Role       string `json:"role"`
		VenueID    string `json:"venue_id"`
		TTLSeconds int64  `json:"ttl_seconds"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.User == "" {
		req.User = "dev"
	}
	if req.TTLSeconds <= 0 || req.TTLSeconds > 24*3600 {
		req.TTLSeconds = 3600
	}
	ttl := time.Duration(req.TTLSeconds) * time.Second
	tok, err := IssueToken(s.secret, req.User, req.Role, req.VenueID, ttl)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      tok,
		"expires_at": time.Now().Add(ttl).UTC().Format(time.RFC3339),
	})
}

func claims(r *http.Request) *Claims {
	c, _ := ClaimsFrom(r.Context())
	return c
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListTemplates(r.Context(), claims(r).VenueID)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	t, err := s.store.GetTemplate(r.Context(), claims(r).VenueID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var t domain.Template
	if err := readJSON(r, &t); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	t.VenueID = claims(r).VenueID
	t.Status = domain.StatusDraft
	out, err := s.store.CreateTemplate(r.Context(), t)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var t domain.Template
	if err := readJSON(r, &t); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	t.ID = chi.URLParam(r, "id")
	t.VenueID = claims(r).VenueID
	out, err := s.store.UpdateTemplate(r.Context(), t)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	c := claims(r)
	if !lifecycle.CanPublish(c.Role) {
		s.fail(w, &domain.AuthorizationError{Op: "publish", User: c.User(), Role: c.Role})
		return
	}
	var req domain.PublishRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	// the token decides who published
	req.User = c.User()
	v, err := s.store.Publish(r.Context(), c.VenueID, chi.URLParam(r, "id"), req)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	vs, err := s.store.ListVersions(r.Context(), claims(r).VenueID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vs)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	es, err := s.store.ListAudit(r.Context(), claims(r).VenueID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, es)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxAssetBytes+1))
	_ = r.Body.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(data) > maxAssetBytes {
		writeError(w, http.StatusRequestEntityTooLarge, errors.New("asset too large"))
		return
	}
	a, err := s.store.UploadAsset(r.Context(), claims(r).VenueID, r.URL.Query().Get("name"), r.Header.Get("Content-Type"), data)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	a, data, err := s.store.GetAsset(r.Context(), claims(r).VenueID, chi.URLParam(r, "hash"))
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=31536000, immutable")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	if s.render == nil {
		writeError(w, http.StatusNotImplemented, errors.New("no render service configured"))
		return
	}
	var req domain.RenderRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req.VenueID = claims(r).VenueID
	out, err := s.render.Render(r.Context(), req)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// fail maps typed errors to status codes.
func (s *Server) fail(w http.ResponseWriter, err error) {
	var (
		ve *domain.ValidationError
		ae *domain.AuthorizationError
	)
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, err)
	case errors.As(err, &ae):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err)
	default:
		s.log.Error("request failed", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func readJSON(r *http.Request, dest any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dest); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}
