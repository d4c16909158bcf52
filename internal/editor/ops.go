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
	"log/slog"

	"printdesigner/internal/domain"
	"printdesigner/internal/registry"
)

// NewBlock builds a block of def's type with a fresh id, the inferred section,
// full width, no rule and a copy of the default bag. It is not inserted.
func (s *Session) NewBlock(def registry.TypeDef) *domain.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newBlockLocked(def)
}

func (s *Session) newBlockLocked(def registry.TypeDef) *domain.Block {
	id := s.newID()
	for s.tpl.IndexOf(id) >= 0 {
		id = s.newID()
	}
	return &domain.Block{
		ID:      id,
		Type:    def.Type,
		Label:   def.Label,
		Section: registry.SectionFor(def.Type),
		Width:   domain.Width100,
		Props:   def.NewProps(),
	}
}

// Add appends a block of the registered type t and selects it.
func (s *Session) Add(t domain.BlockType) (*domain.Block, error) {
	def, ok := registry.Lookup(t)
	if !ok {
		return nil, domain.Invalid("add block", "unknown block type %q", t)
	}
	return s.AddBlock(def), nil
}

// AddBlock appends a new block of def's type and selects it.
func (s *Session) AddBlock(def registry.TypeDef) *domain.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.newBlockLocked(def)
	b.Order = len(s.tpl.Blocks)
	_ = s.mutateLocked("add block", "", func(t *domain.Template) (bool, error) {
		blocks := make([]*domain.Block, 0, len(t.Blocks)+1)
		t.Blocks = append(append(blocks, t.Blocks...), b)
		return true, nil
	})
	s.selected = b.ID
	s.log.Debug("block added", slog.String("id", b.ID), slog.String("type", string(b.Type)))
	return b
}

// InsertBlockAt splices b in at index, clamped to [0, N], and selects it.
// b is copied; its order is assigned from the position.
func (s *Session) InsertBlockAt(b *domain.Block, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(b, index)
}

func (s *Session) insertLocked(b *domain.Block, index int) error {
	const op = "insert block"
	if b == nil || b.Props == nil {
		return domain.Invalid(op, "block without property bag")
	}
	if b.ID == "" {
		return domain.Invalid(op, "block without id")
	}
	if s.tpl.IndexOf(b.ID) >= 0 {
		return domain.Invalid(op, "duplicate block id %q", b.ID)
	}
	nb := *b
	if nb.Section == "" {
		nb.Section = registry.SectionFor(nb.Type)
	}
	if nb.Width == 0 {
		nb.Width = domain.Width100
	}
	err := s.mutateLocked(op, "", func(t *domain.Template) (bool, error) {
		index = max(0, min(len(t.Blocks), index))
		blocks := make([]*domain.Block, 0, len(t.Blocks)+1)
		blocks = append(blocks, t.Blocks[:index]...)
		blocks = append(blocks, &nb)
		blocks = append(blocks, t.Blocks[index:]...)
		t.Blocks = renumber(blocks)
		return true, nil
	})
	if err != nil {
		return err
	}
	s.selected = nb.ID
	return nil
}

// MoveBlock swaps the block with its neighbour. Moving past either end is a no-op.
func (s *Session) MoveBlock(id string, dir Direction) error {
	const op = "move block"
	return s.mutate(op, "", func(t *domain.Template) (bool, error) {
		i, err := indexOrErr(t, op, id)
		if err != nil {
			return false, err
		}
		j := i - 1
		if dir == Down {
			j = i + 1
		}
		if j < 0 || j >= len(t.Blocks) {
			return false, nil
		}
		blocks := append([]*domain.Block(nil), t.Blocks...)
		blocks[i], blocks[j] = blocks[j], blocks[i]
		t.Blocks = renumber(blocks)
		return true, nil
	})
}

// RemoveBlock deletes a block. The selection is cleared if it pointed at it.
func (s *Session) RemoveBlock(id string) error {
	const op = "remove block"
	return s.mutate(op, "", func(t *domain.Template) (bool, error) {
		i, err := indexOrErr(t, op, id)
		if err != nil {
			return false, err
		}
		blocks := make([]*domain.Block, 0, len(t.Blocks)-1)
		blocks = append(blocks, t.Blocks[:i]...)
		blocks = append(blocks, t.Blocks[i+1:]...)
		t.Blocks = renumber(blocks)
		return true, nil
	})
}

// ReorderBlock moves a block to target, an index in the sequence before the
// move (the drop slot). Targets after the source shift left by one once the
// block is taken out, so dropping a block onto its own slot changes nothing.
func (s *Session) ReorderBlock(id string, target int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reorderLocked(id, target)
}

func (s *Session) reorderLocked(id string, target int) error {
	const op = "reorder block"
	return s.mutateLocked(op, "", func(t *domain.Template) (bool, error) {
		src, err := indexOrErr(t, op, id)
		if err != nil {
			return false, err
		}
		n := len(t.Blocks)
		target = max(0, min(n, target))
		dst := target
		if target > src {
			dst = target - 1
		}
		if dst == src {
			return false, nil
		}
		b := t.Blocks[src]
		rest := make([]*domain.Block, 0, n)
		rest = append(rest, t.Blocks[:src]...)
		rest = append(rest, t.Blocks[src+1:]...)
		blocks := make([]*domain.Block, 0, n)
		blocks = append(blocks, rest[:dst]...)
		blocks = append(blocks, b)
		blocks = append(blocks, rest[dst:]...)
		t.Blocks = renumber(blocks)
		return true, nil
	})
}

// Describe formats a block for listings.
func Describe(b *domain.Block) string {
	rule := ""
	if b.ShowIf != nil {
		rule = fmt.Sprintf(" if %s %s", b.ShowIf.Field, b.ShowIf.Operator)
		if b.ShowIf.Value != nil {
			rule += fmt.Sprintf(" %v", b.ShowIf.Value)
		}
	}
	return fmt.Sprintf("%2d %-7s %-16s %3d%% %s%s", b.Order, b.Section, b.Type, b.Width, b.ID, rule)
}
