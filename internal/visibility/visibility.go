/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package visibility evaluates the show_if rules attached to blocks against a
// render context. Rules are stored by the editor and carried to the render
// service; evaluating them here lets the editor preview which blocks a given
// context would print.
package visibility

import (
	"encoding/json"
	"strings"

	"printdesigner/internal/domain"
)

// Context is the nested data a rule field path resolves into, typically
// domain.RenderContext.Map() or a decoded JSON object.
type Context map[string]any

// Resolve walks a dotted path through nested maps. ok is false when any
// segment is missing or a non-map value is reached before the last segment.
// A present null yields (nil, true).
func Resolve(ctx Context, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	var cur any = map[string]any(ctx)
	for _, seg := range strings.Split(path, ".") {
		var (
			next any
			ok   bool
		)
		switch m := cur.(type) {
		case map[string]any:
			next, ok = m[seg]
		case Context:
			next, ok = m[seg]
		case map[string]string:
			next, ok = m[seg]
		default:
			return nil, false
		}
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Evaluate reports whether rule holds for ctx. A nil rule always holds.
func Evaluate(rule *domain.ConditionalRule, ctx Context) bool {
	if rule == nil {
		return true
	}
	v, ok := Resolve(ctx, rule.Field)
	switch rule.Operator {
	case domain.OpEq:
		return equal(v, ok, rule.Value)
	case domain.OpNe:
		return !equal(v, ok, rule.Value)
	case domain.OpGt, domain.OpLt:
		if !ok {
			return false
		}
		a, aok := number(v)
		b, bok := number(rule.Value)
		if !aok || !bok {
			return false
		}
		if rule.Operator == domain.OpGt {
			return a > b
		}
		return a < b
	case domain.OpExists:
		return ok && v != nil
	}
	return false
}

// Visible reports whether b prints for ctx. With gated false the rule is not
// enforced and every block is visible.
func Visible(b *domain.Block, ctx Context, gated bool) bool {
	if !gated || b == nil || b.ShowIf == nil {
		return true
	}
	return Evaluate(b.ShowIf, ctx)
}

// Filter returns the visible blocks in their original order.
func Filter(blocks []*domain.Block, ctx Context, gated bool) []*domain.Block {
	out := make([]*domain.Block, 0, len(blocks))
	for _, b := range blocks {
		if Visible(b, ctx, gated) {
			out = append(out, b)
		}
	}
	return out
}

// equal compares a resolved value with a rule value. A missing path only
// equals a rule without a value; a nil rule value never equals a present one.
func equal(v any, defined bool, want any) bool {
	if !defined || want == nil {
		return !defined && want == nil
	}
	if v == nil {
		return false
	}
	if a, ok := number(v); ok {
		b, ok := number(want)
		return ok && a == b
	}
	switch a := v.(type) {
	case string:
		b, ok := want.(string)
		return ok && a == b
	case bool:
		b, ok := want.(bool)
		return ok && a == b
	}
	return false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
