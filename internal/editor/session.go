/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor holds the single-user editing session of one template.
//
// A Session owns the working template, the selected block and the drag state.
// Every structural operation renumbers block order to 0..N-1. Blocks are
// treated as immutable values: an edit allocates a new block slice and copies
// only the blocks it changes, so callers holding an older slice or block
// pointer never observe later edits.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"printdesigner/internal/domain"
	applog "printdesigner/internal/log"
	"printdesigner/internal/paper"
	"printdesigner/internal/undo"
)

var (
	ErrUnknownBlock = errors.New("unknown block")
	ErrNoDrag       = errors.New("no drag in progress")
)

// Direction of MoveBlock.
type Direction int

const (
	Up Direction = iota
	Down
)

// ParseDirection accepts "up" or "down".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	}
	return Up, domain.Invalid("move block", "direction must be up or down, got %q", s)
}

// Option configures a Session.
type Option func(*Session)

// WithIDGenerator replaces the block id generator.
func WithIDGenerator(gen func() string) Option { return func(s *Session) { s.newID = gen } }

// WithUndo sets the history manager. Without it undo is disabled.
func WithUndo(m *undo.Manager) Option { return func(s *Session) { s.hist = m } }

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option { return func(s *Session) { s.log = l } }

// WithClock replaces time.Now for snapshot timestamps.
func WithClock(now func() time.Time) Option { return func(s *Session) { s.now = now } }

// Session is the editing state of one template.
// Methods are safe for concurrent use; edits are serialized.
type Session struct {
	mu       sync.Mutex
	tpl      domain.Template
	selected string
	drag     DragState
	zoom     int
	rev      uint64

	newID func() string
	hist  *undo.Manager
	log   *slog.Logger
	now   func() time.Time
}

// NewBlockID returns a fresh block id.
func NewBlockID() string { return "blk_" + uuid.Must(uuid.NewV7()).String() }

// NewTemplateID returns a fresh template id.
func NewTemplateID() string { return "tpl_" + uuid.Must(uuid.NewV7()).String() }

// NewTemplate returns an empty draft with the default paper profile.
func NewTemplate(name string, typ domain.TemplateType) domain.Template {
	return domain.Template{
		ID:     NewTemplateID(),
		Name:   name,
		Type:   typ,
		Status: domain.StatusDraft,
		Layout: domain.Layout{PaperProfile: paper.Default()},
	}
}

// NewSession starts editing tpl. Block order is normalized on load.
func NewSession(tpl domain.Template, opts ...Option) *Session {
	s := &Session{drag: Idle{}, zoom: paper.DefaultZoom, newID: NewBlockID, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = applog.WithComponent("editor")
	}
	if tpl.ID == "" {
		tpl.ID = NewTemplateID()
	}
	if tpl.Status == "" {
		tpl.Status = domain.StatusDraft
	}
	tpl.Blocks = renumber(append([]*domain.Block(nil), tpl.Blocks...))
	tpl.Tags = append([]string(nil), tpl.Tags...)
	s.tpl = tpl
	return s
}

// Template returns the working template. The block slice is a copy; the
// blocks themselves are shared and must not be modified.
func (s *Session) Template() domain.Template {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() domain.Template {
	t := s.tpl
	t.Blocks = append([]*domain.Block(nil), s.tpl.Blocks...)
	t.Tags = append([]string(nil), s.tpl.Tags...)
	return t
}

// Layout returns the blocks and paper profile.
func (s *Session) Layout() domain.Layout { return s.Template().Layout }

// Blocks returns the ordered blocks.
func (s *Session) Blocks() []*domain.Block { return s.Template().Blocks }

// Block returns the block with the given id.
func (s *Session) Block(id string) (*domain.Block, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.tpl.IndexOf(id); i >= 0 {
		return s.tpl.Blocks[i], true
	}
	return nil, false
}

// Revision counts committed local edits. Responses of requests started at an
// older revision must not overwrite the working template.
func (s *Session) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rev
}

// Selected returns the selected block id, or "".
func (s *Session) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Select marks a block as selected. An empty id clears the selection.
func (s *Session) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" && s.tpl.IndexOf(id) < 0 {
		return fmt.Errorf("select %s: %w", id, ErrUnknownBlock)
	}
	s.selected = id
	return nil
}

// Zoom returns the display zoom in percent.
func (s *Session) Zoom() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zoom
}

// SetZoom clamps and applies a display zoom. Zoom is not part of the template.
func (s *Session) SetZoom(z int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zoom = paper.ClampZoom(z)
	return s.zoom
}

// Geometry resolves the current paper profile at the current zoom.
func (s *Session) Geometry() paper.Geometry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return paper.Resolve(s.tpl.PaperProfile, s.zoom)
}

// mutate applies fn to a copy of the working template. fn reports whether it
// changed anything; unchanged edits neither bump the revision nor record
// history. group tags coalescible edits for undo.
func (s *Session) mutate(op, group string, fn func(t *domain.Template) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mutateLocked(op, group, fn)
}

func (s *Session) mutateLocked(op, group string, fn func(t *domain.Template) (bool, error)) error {
	next := s.tpl
	changed, err := fn(&next)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	s.record(group)
	next.UpdatedAt = s.now().UTC()
	s.tpl = next
	s.rev++
	if s.selected != "" && s.tpl.IndexOf(s.selected) < 0 {
		s.selected = ""
	}
	s.log.Debug("edit", slog.String("op", op), slog.String("template", s.tpl.ID), slog.Uint64("rev", s.rev))
	return nil
}

// indexOrErr finds a block in t.
func indexOrErr(t *domain.Template, op, id string) (int, error) {
	i := t.IndexOf(id)
	if i < 0 {
		return -1, fmt.Errorf("%s %s: %w", op, id, ErrUnknownBlock)
	}
	return i, nil
}

// replaceBlock stores b at index i in a fresh copy of the block slice.
func replaceBlock(t *domain.Template, i int, b *domain.Block) {
	blocks := append([]*domain.Block(nil), t.Blocks...)
	blocks[i] = b
	t.Blocks = blocks
}

// renumber sets Order to the sequence position. blocks must be a slice owned
// by the caller; blocks whose order changes are copied.
func renumber(blocks []*domain.Block) []*domain.Block {
	for i, b := range blocks {
		if b.Order != i {
			cp := *b
			cp.Order = i
			blocks[i] = &cp
		}
	}
	return blocks
}

// editBlock copies the block with the given id, lets fn modify the copy, and
// stores it. fn reports whether anything changed.
func (s *Session) editBlock(op, group, id string, fn func(b *domain.Block) (bool, error)) error {
	return s.mutate(op, group, func(t *domain.Template) (bool, error) {
		i, err := indexOrErr(t, op, id)
		if err != nil {
			return false, err
		}
		cp := *t.Blocks[i]
		changed, err := fn(&cp)
		if err != nil || !changed {
			return false, err
		}
		replaceBlock(t, i, &cp)
		return true, nil
	})
}
