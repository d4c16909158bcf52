/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"slices"
	"strings"

	"printdesigner/internal/domain"
	"printdesigner/internal/paper"
	"printdesigner/internal/schema"
)

// UpdateProp sets one field of the named bag on one block. Only that block is
// copied; its new bag shares every other field with the old one. Values are
// stored as given: range clamping belongs to the input layer (schema.ParseInput).
func (s *Session) UpdateProp(id string, bag domain.PropsKind, field string, value any) error {
	const op = "update prop"
	return s.editBlock(op, id+"."+string(bag)+"."+field, id, func(b *domain.Block) (bool, error) {
		if b.Props == nil || b.Props.Kind() != bag {
			return false, domain.Invalid(op, "block %s has no %s", id, bag)
		}
		p, err := schema.Set(b.Props, field, value)
		if err != nil {
			return false, err
		}
		b.Props = p
		return true, nil
	})
}

// SetBlockWidth sets the block width; only 25, 50, 75 and 100 are accepted.
func (s *Session) SetBlockWidth(id string, w domain.BlockWidth) error {
	const op = "set block width"
	if !w.Valid() {
		return domain.Invalid(op, "width %d is not one of 25, 50, 75, 100", w)
	}
	return s.editBlock(op, "", id, func(b *domain.Block) (bool, error) {
		if b.Width == w {
			return false, nil
		}
		b.Width = w
		return true, nil
	})
}

// SetLabel renames a block in the editor outline.
func (s *Session) SetLabel(id, label string) error {
	return s.editBlock("set label", id+".label", id, func(b *domain.Block) (bool, error) {
		if b.Label == label {
			return false, nil
		}
		b.Label = label
		return true, nil
	})
}

// SetShowIf attaches a visibility rule, replacing any previous one. Numeric
// values are stored as float64.
func (s *Session) SetShowIf(id string, rule domain.ConditionalRule) error {
	const op = "set show_if"
	if !rule.Operator.Valid() {
		return domain.Invalid(op, "unknown operator %q", rule.Operator)
	}
	if strings.TrimSpace(rule.Field) == "" {
		return domain.Invalid(op, "rule needs a field path")
	}
	return s.editBlock(op, "", id, func(b *domain.Block) (bool, error) {
		r := rule.Canonical()
		b.ShowIf = &r
		return true, nil
	})
}

// ClearShowIf removes the visibility rule of a block.
func (s *Session) ClearShowIf(id string) error {
	return s.editBlock("clear show_if", "", id, func(b *domain.Block) (bool, error) {
		if b.ShowIf == nil {
			return false, nil
		}
		b.ShowIf = nil
		return true, nil
	})
}

// SetPaperProfile switches to the catalog entry named label.
func (s *Session) SetPaperProfile(label string) error {
	return s.mutate("set paper", "", func(t *domain.Template) (bool, error) {
		p, err := paper.Switch(t.PaperProfile, label)
		if err != nil {
			return false, err
		}
		if p == t.PaperProfile {
			return false, nil
		}
		t.PaperProfile = p
		return true, nil
	})
}

// SetMargins sets the four margins in millimetres.
func (s *Session) SetMargins(left, right, top, bottom float64) error {
	const op = "set margins"
	if left < 0 || right < 0 || top < 0 || bottom < 0 {
		return domain.Invalid(op, "margins must not be negative")
	}
	return s.mutate(op, "", func(t *domain.Template) (bool, error) {
		p := t.PaperProfile
		p.MarginLeft, p.MarginRight, p.MarginTop, p.MarginBottom = left, right, top, bottom
		if p == t.PaperProfile {
			return false, nil
		}
		t.PaperProfile = p
		return true, nil
	})
}

// SetCutFeed sets the number of lines fed before the cut.
func (s *Session) SetCutFeed(lines int) error {
	const op = "set cut feed"
	if lines < 0 {
		return domain.Invalid(op, "cut feed must not be negative")
	}
	return s.mutate(op, "", func(t *domain.Template) (bool, error) {
		if t.PaperProfile.CutFeed == lines {
			return false, nil
		}
		t.PaperProfile.CutFeed = lines
		return true, nil
	})
}

// SetMeta updates name, description and template type.
func (s *Session) SetMeta(name, description string, typ domain.TemplateType) error {
	const op = "set meta"
	if strings.TrimSpace(name) == "" {
		return domain.Invalid(op, "name must not be empty")
	}
	if !typ.Valid() {
		return domain.Invalid(op, "unknown template type %q", typ)
	}
	return s.mutate(op, "meta", func(t *domain.Template) (bool, error) {
		if t.Name == name && t.Description == description && t.Type == typ {
			return false, nil
		}
		t.Name, t.Description, t.Type = name, description, typ
		return true, nil
	})
}

// SetTags replaces the tag list. Tags are trimmed, deduplicated and sorted.
func (s *Session) SetTags(tags []string) error {
	var clean []string
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			clean = append(clean, tag)
		}
	}
	slices.Sort(clean)
	clean = slices.Compact(clean)
	return s.mutate("set tags", "", func(t *domain.Template) (bool, error) {
		if slices.Equal(t.Tags, clean) {
			return false, nil
		}
		t.Tags = clean
		return true, nil
	})
}
