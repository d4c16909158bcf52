/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"printdesigner/internal/domain"
	"printdesigner/internal/undo"
)

// state is the undoable part of a template. Status and persistence
// timestamps are not undone.
type state struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Type        domain.TemplateType `json:"type"`
	Tags        []string            `json:"tags"`
	Layout      domain.Layout       `json:"layout"`
}

func (s *Session) encodeLocked() ([]byte, error) {
	return json.Marshal(state{
		Name:        s.tpl.Name,
		Description: s.tpl.Description,
		Type:        s.tpl.Type,
		Tags:        s.tpl.Tags,
		Layout:      s.tpl.Layout,
	})
}

// record pushes the pre-edit state onto the history.
func (s *Session) record(group string) {
	if s.hist == nil {
		return
	}
	blob, err := s.encodeLocked()
	if err != nil {
		s.log.Warn("undo snapshot skipped", slog.Any("err", err))
		return
	}
	s.hist.Push(undo.Snapshot{Key: s.tpl.ID, Blob: blob, TS: s.now(), Group: group})
}

func (s *Session) restoreLocked(blob []byte) error {
	var st state
	if err := json.Unmarshal(blob, &st); err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	s.tpl.Name, s.tpl.Description, s.tpl.Type, s.tpl.Tags = st.Name, st.Description, st.Type, st.Tags
	s.tpl.Layout = st.Layout
	s.tpl.UpdatedAt = s.now().UTC()
	s.rev++
	s.fixTransientLocked()
	return nil
}

// fixTransientLocked drops selection and drag state that point at removed blocks.
func (s *Session) fixTransientLocked() {
	if s.selected != "" && s.tpl.IndexOf(s.selected) < 0 {
		s.selected = ""
	}
	if d, ok := s.drag.(DraggingExisting); ok && s.tpl.IndexOf(d.BlockID) < 0 {
		s.drag = Idle{}
	}
}

// Undo reverts the last edit. It reports false when there is nothing to undo.
func (s *Session) Undo() (bool, error) {
	return s.step(func(m *undo.Manager, key string, cur []byte) (undo.Snapshot, bool) { return m.Undo(key, cur) })
}

// Redo re-applies the last undone edit.
func (s *Session) Redo() (bool, error) {
	return s.step(func(m *undo.Manager, key string, cur []byte) (undo.Snapshot, bool) { return m.Redo(key, cur) })
}

func (s *Session) step(pop func(*undo.Manager, string, []byte) (undo.Snapshot, bool)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hist == nil {
		return false, nil
	}
	cur, err := s.encodeLocked()
	if err != nil {
		return false, err
	}
	snap, ok := pop(s.hist, s.tpl.ID, cur)
	if !ok {
		return false, nil
	}
	return true, s.restoreLocked(snap.Blob)
}

// CanUndo reports whether Undo would change anything.
func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist != nil && s.hist.CanUndo(s.tpl.ID)
}

// CanRedo reports whether Redo would change anything.
func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hist != nil && s.hist.CanRedo(s.tpl.ID)
}

// ApplyImport replaces name, description, type and blocks with a validated
// import document. The paper profile is replaced only when doc carries one.
// The edit is undoable.
func (s *Session) ApplyImport(doc domain.ExportDocument) error {
	return s.mutate("import", "", func(t *domain.Template) (bool, error) {
		t.Name, t.Description, t.Type = doc.Name, doc.Description, doc.Type
		t.Blocks = renumber(append([]*domain.Block(nil), doc.Blocks...))
		if doc.PaperProfile != nil {
			t.PaperProfile = *doc.PaperProfile
		}
		s.drag = Idle{}
		return true, nil
	})
}

// ReplaceIfRevision swaps in tpl, typically a server copy, but only when no
// local edit happened since rev was read. History is cleared on replace.
func (s *Session) ReplaceIfRevision(rev uint64, tpl domain.Template) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rev != rev {
		s.log.Debug("stale template response dropped", slog.String("template", tpl.ID), slog.Uint64("rev", rev), slog.Uint64("current", s.rev))
		return false
	}
	if s.hist != nil {
		s.hist.Clear(s.tpl.ID)
	}
	tpl.Blocks = renumber(append([]*domain.Block(nil), tpl.Blocks...))
	tpl.Tags = append([]string(nil), tpl.Tags...)
	s.tpl = tpl
	s.rev++
	s.fixTransientLocked()
	return true
}

// MarkPersisted records server timestamps after a successful save. It is not
// an edit and does not bump the revision.
func (s *Session) MarkPersisted(created, updated time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tpl.CreatedAt.IsZero() {
		s.tpl.CreatedAt = created
	}
	if !updated.IsZero() {
		s.tpl.UpdatedAt = updated
	}
}

// MarkActive moves the working template to the active state after a publish.
func (s *Session) MarkActive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tpl.Activate()
}

// Persisted reports whether the template has been stored at least once.
func (s *Session) Persisted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.tpl.CreatedAt.IsZero()
}
