/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"fmt"

	"printdesigner/internal/domain"
	"printdesigner/internal/registry"
)

// DragState is the transient drag mode of a session: Idle, DraggingNew or
// DraggingExisting. At most one drag is active at a time.
type DragState interface{ dragState() }

// Idle means no drag is in progress.
type Idle struct{}

// DraggingNew carries a palette type being dragged onto the canvas.
type DraggingNew struct{ Def registry.TypeDef }

// DraggingExisting carries the id of a canvas block being moved.
type DraggingExisting struct{ BlockID string }

func (Idle) dragState()             {}
func (DraggingNew) dragState()      {}
func (DraggingExisting) dragState() {}

// Drag returns the current drag state.
func (s *Session) Drag() DragState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drag
}

// BeginPaletteDrag starts dragging a new block of def's type. Any active drag
// is replaced.
func (s *Session) BeginPaletteDrag(def registry.TypeDef) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drag = DraggingNew{Def: def}
}

// BeginBlockDrag starts moving an existing block. Any active drag is replaced.
func (s *Session) BeginBlockDrag(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tpl.IndexOf(id) < 0 {
		return fmt.Errorf("drag %s: %w", id, ErrUnknownBlock)
	}
	s.drag = DraggingExisting{BlockID: id}
	return nil
}

// CancelDrag ends a drag without changing the template.
func (s *Session) CancelDrag() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drag = Idle{}
}

// Drop commits the active drag at the drop slot index: a palette drag inserts
// a new block, a block drag reorders. It returns the dropped block. The drag
// ends whether or not the commit succeeds.
func (s *Session) Drop(index int) (*domain.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.drag
	s.drag = Idle{}
	switch d := d.(type) {
	case DraggingNew:
		b := s.newBlockLocked(d.Def)
		if err := s.insertLocked(b, index); err != nil {
			return nil, err
		}
		i := s.tpl.IndexOf(b.ID)
		return s.tpl.Blocks[i], nil
	case DraggingExisting:
		if err := s.reorderLocked(d.BlockID, index); err != nil {
			return nil, err
		}
		i := s.tpl.IndexOf(d.BlockID)
		return s.tpl.Blocks[i], nil
	}
	return nil, ErrNoDrag
}
