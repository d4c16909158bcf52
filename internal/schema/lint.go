/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package schema

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"printdesigner/internal/domain"
	"printdesigner/internal/registry"
)

// Issue is one advisory finding about a layout.
type Issue struct {
	BlockID string
	Field   string
	Message string
}

func (i Issue) String() string {
	if i.Field == "" {
		return fmt.Sprintf("%s: %s", i.BlockID, i.Message)
	}
	return fmt.Sprintf("%s.%s: %s", i.BlockID, i.Field, i.Message)
}

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// Lint reports values the editor UI would not have produced: out-of-range bag
// fields, invalid widths and sections, bag kinds that do not match the block
// type, duplicate ids and broken ordering. It never modifies the layout.
func Lint(l domain.Layout) []Issue {
	var out []Issue
	seen := make(map[string]bool, len(l.Blocks))
	for i, b := range l.Blocks {
		if b == nil {
			out = append(out, Issue{BlockID: fmt.Sprintf("#%d", i), Message: "nil block"})
			continue
		}
		if seen[b.ID] {
			out = append(out, Issue{BlockID: b.ID, Message: "duplicate id"})
		}
		seen[b.ID] = true
		if b.Order != i {
			out = append(out, Issue{BlockID: b.ID, Field: "order", Message: fmt.Sprintf("order %d at position %d", b.Order, i)})
		}
		if !b.Width.Valid() {
			out = append(out, Issue{BlockID: b.ID, Field: "block_width", Message: fmt.Sprintf("width %d is not one of 25, 50, 75, 100", b.Width)})
		}
		if !b.Section.Valid() {
			out = append(out, Issue{BlockID: b.ID, Field: "section", Message: fmt.Sprintf("unknown section %q", b.Section)})
		}
		if r := b.ShowIf; r != nil {
			if !r.Operator.Valid() {
				out = append(out, Issue{BlockID: b.ID, Field: "show_if", Message: fmt.Sprintf("unknown operator %q", r.Operator)})
			}
			if strings.TrimSpace(r.Field) == "" {
				out = append(out, Issue{BlockID: b.ID, Field: "show_if", Message: "empty field path"})
			}
		}
		if b.Props == nil {
			out = append(out, Issue{BlockID: b.ID, Message: "missing property bag"})
			continue
		}
		if def, ok := registry.Lookup(b.Type); !ok {
			out = append(out, Issue{BlockID: b.ID, Field: "type", Message: fmt.Sprintf("unknown block type %q", b.Type)})
		} else if def.Kind() != b.Props.Kind() {
			out = append(out, Issue{BlockID: b.ID, Field: string(b.Props.Kind()), Message: fmt.Sprintf("type %s expects %s", b.Type, def.Kind())})
		}
		out = append(out, lintProps(b.ID, b.Props)...)
	}
	return out
}

func lintProps(id string, p domain.Props) []Issue {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []Issue{{BlockID: id, Field: string(p.Kind()), Message: err.Error()}}
	}
	out := make([]Issue, 0, len(verrs))
	for _, fe := range verrs {
		// Namespace is "TextProps.font_size"; drop the struct name.
		_, path, _ := strings.Cut(fe.Namespace(), ".")
		msg := fmt.Sprintf("value %v fails %s", fe.Value(), fe.Tag())
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		out = append(out, Issue{BlockID: id, Field: string(p.Kind()) + "." + path, Message: msg})
	}
	return out
}
