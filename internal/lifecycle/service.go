/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"printdesigner/internal/domain"
	"printdesigner/internal/editor"
	applog "printdesigner/internal/log"
)

// Service runs collaborator calls for one caller. Calls never block local
// editing: the session is read at call time and only touched again through
// its revision-guarded or metadata-only methods.
type Service struct {
	store  Store
	render Renderer
	caller Caller
	log    *slog.Logger

	seq atomic.Uint64

	mu       sync.Mutex
	versions listing[domain.Version]
	audit    listing[domain.AuditEntry]
}

// listing is a cached list tagged with the sequence number of the request
// that produced it.
type listing[T any] struct {
	id    string
	seq   uint64
	items []T
}

// offer stores items unless a newer request for the same template already did.
func (l *listing[T]) offer(id string, seq uint64, items []T) bool {
	if l.id == id && seq < l.seq {
		return false
	}
	l.id, l.seq, l.items = id, seq, items
	return true
}

// NewService builds a service. render may be nil when no render service is configured.
func NewService(store Store, render Renderer, caller Caller) *Service {
	return &Service{store: store, render: render, caller: caller, log: applog.WithComponent("lifecycle")}
}

// Caller returns the identity the service acts as.
func (s *Service) Caller() Caller { return s.caller }

// collaboratorErr keeps typed errors and wraps everything else as a NetworkError.
func collaboratorErr(op string, err error) error {
	var (
		ve *domain.ValidationError
		ae *domain.AuthorizationError
		ne *domain.NetworkError
	)
	if errors.As(err, &ve) || errors.As(err, &ae) || errors.As(err, &ne) ||
		errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrConflict) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return &domain.NetworkError{Op: op, Err: err}
}

func (s *Service) scoped(t domain.Template) domain.Template {
	if t.VenueID == "" {
		t.VenueID = s.caller.VenueID
	}
	return t
}

// SaveDraft creates or updates the session's template. On failure the
// session keeps its local state and the error is a NetworkError unless the
// store returned a typed error.
func (s *Service) SaveDraft(ctx context.Context, sess *editor.Session) (domain.Template, error) {
	const op = "save draft"
	l := applog.WithOperation(s.log, op)
	t := s.scoped(sess.Template())
	var (
		saved domain.Template
		err   error
	)
	if sess.Persisted() {
		saved, err = s.store.UpdateTemplate(ctx, t)
	} else {
		saved, err = s.store.CreateTemplate(ctx, t)
		if errors.Is(err, domain.ErrConflict) {
			// an earlier create committed but its response was lost
			l.InfoContext(ctx, "template already stored, updating", slog.String("template", t.ID))
			saved, err = s.store.UpdateTemplate(ctx, t)
		}
	}
	if err != nil {
		l.WarnContext(ctx, "draft not saved, local copy kept", slog.String("template", t.ID), slog.Any("err", err))
		return domain.Template{}, collaboratorErr(op, err)
	}
	sess.MarkPersisted(saved.CreatedAt, saved.UpdatedAt)
	l.InfoContext(ctx, "draft saved", slog.String("template", t.ID), slog.Int("blocks", len(t.Blocks)))
	return saved, nil
}

// Publish stores the working layout as latest and appends a version. Callers
// without an elevated role get an AuthorizationError before anything is sent.
func (s *Service) Publish(ctx context.Context, sess *editor.Session, notes string) (domain.Version, error) {
	const op = "publish"
	l := applog.WithOperation(s.log, op)
	if !CanPublish(s.caller.Role) {
		l.WarnContext(ctx, "publish denied", slog.String("user", s.caller.User), slog.String("role", s.caller.Role))
		return domain.Version{}, &domain.AuthorizationError{Op: op, User: s.caller.User, Role: s.caller.Role}
	}
	t := s.scoped(sess.Template())
	v, err := s.store.Publish(ctx, t.VenueID, t.ID, domain.PublishRequest{Template: t, Notes: notes, User: s.caller.User})
	if err != nil {
		l.WarnContext(ctx, "publish failed", slog.String("template", t.ID), slog.Any("err", err))
		return domain.Version{}, collaboratorErr(op, err)
	}
	sess.MarkActive()
	sess.MarkPersisted(v.PublishedAt, v.PublishedAt)
	s.mu.Lock()
	s.versions = listing[domain.Version]{}
	s.mu.Unlock()
	l.InfoContext(ctx, "published", slog.String("template", t.ID), slog.Int("version", v.Version))
	return v, nil
}

// Reload fetches the stored template and installs it into the session unless
// the session was edited while the request was in flight. It reports whether
// the session was replaced.
func (s *Service) Reload(ctx context.Context, sess *editor.Session) (bool, error) {
	const op = "reload"
	rev := sess.Revision()
	cur := sess.Template()
	t, err := s.store.GetTemplate(ctx, s.scoped(cur).VenueID, cur.ID)
	if err != nil {
		return false, collaboratorErr(op, err)
	}
	return sess.ReplaceIfRevision(rev, t), nil
}

// Load returns a stored template.
func (s *Service) Load(ctx context.Context, id string) (domain.Template, error) {
	t, err := s.store.GetTemplate(ctx, s.caller.VenueID, id)
	if err != nil {
		return domain.Template{}, collaboratorErr("load", err)
	}
	return t, nil
}

// List returns the templates of the caller's venue.
func (s *Service) List(ctx context.Context) ([]domain.TemplateSummary, error) {
	out, err := s.store.ListTemplates(ctx, s.caller.VenueID)
	if err != nil {
		return nil, collaboratorErr("list templates", err)
	}
	return out, nil
}

// Versions fetches the version history of a template. Listings from requests
// that were overtaken by a newer one are returned but not cached.
func (s *Service) Versions(ctx context.Context, id string) ([]domain.Version, error) {
	seq := s.seq.Add(1)
	vs, err := s.store.ListVersions(ctx, s.caller.VenueID, id)
	if err != nil {
		return nil, collaboratorErr("list versions", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.versions.offer(id, seq, vs) {
		s.log.DebugContext(ctx, "stale versions response", slog.Uint64("seq", seq))
	}
	return vs, nil
}

// CachedVersions returns the newest version listing fetched for id.
func (s *Service) CachedVersions(id string) ([]domain.Version, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.versions.id != id || s.versions.seq == 0 {
		return nil, false
	}
	return s.versions.items, true
}

// Audit fetches the audit trail of a template, guarded like Versions.
func (s *Service) Audit(ctx context.Context, id string) ([]domain.AuditEntry, error) {
	seq := s.seq.Add(1)
	es, err := s.store.ListAudit(ctx, s.caller.VenueID, id)
	if err != nil {
		return nil, collaboratorErr("list audit", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.audit.offer(id, seq, es) {
		s.log.DebugContext(ctx, "stale audit response", slog.Uint64("seq", seq))
	}
	return es, nil
}

// CachedAudit returns the newest audit listing fetched for id.
func (s *Service) CachedAudit(id string) ([]domain.AuditEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.audit.id != id || s.audit.seq == 0 {
		return nil, false
	}
	return s.audit.items, true
}

// ErrNoRenderer is wrapped in the NetworkError returned by Preview when no
// render service is configured.
var ErrNoRenderer = errors.New("no render service configured")

// Preview renders the session's current layout inline, unsaved edits included.
func (s *Service) Preview(ctx context.Context, sess *editor.Session, rc domain.RenderContext, format string) (domain.RenderOutput, error) {
	const op = "preview"
	if s.render == nil {
		return domain.RenderOutput{}, &domain.NetworkError{Op: op, Err: ErrNoRenderer}
	}
	if format == "" {
		format = "html"
	}
	t := s.scoped(sess.Template())
	layout := t.Layout
	out, err := s.render.Render(ctx, domain.RenderRequest{TemplateID: t.ID, VenueID: t.VenueID, Layout: &layout, Format: format, Context: rc})
	if err != nil {
		return domain.RenderOutput{}, collaboratorErr(op, err)
	}
	return out, nil
}

// UploadAsset stores a file for use by image blocks.
func (s *Service) UploadAsset(ctx context.Context, name, contentType string, data []byte) (domain.Asset, error) {
	a, err := s.store.UploadAsset(ctx, s.caller.VenueID, name, contentType, data)
	if err != nil {
		return domain.Asset{}, collaboratorErr("upload asset", err)
	}
	return a, nil
}
