/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package schema

import (
	"errors"
	"strings"
	"testing"

	"printdesigner/internal/domain"
	"printdesigner/internal/registry"
)

func TestSetReturnsNewBagAndSharesTheRest(t *testing.T) {
	orig := &domain.TableProps{
		Columns:    []domain.Column{{Key: "name", Label: "Item", Align: "left"}},
		DataSource: "order.items",
		GroupBy:    "none",
	}
	got, err := Set(orig, "show_totals", true)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	tp, ok := got.(*domain.TableProps)
	if !ok {
		t.Fatalf("got %T", got)
	}
	if tp == orig {
		t.Fatalf("set must return a new bag")
	}
	if orig.ShowTotals {
		t.Fatalf("original bag was mutated")
	}
	if !tp.ShowTotals || tp.DataSource != "order.items" {
		t.Fatalf("unexpected result %+v", tp)
	}
	if &tp.Columns[0] != &orig.Columns[0] {
		t.Fatalf("untouched slice field should be shared")
	}
}

func TestSetConvertsCompatibleValues(t *testing.T) {
	p := &domain.TextProps{FontSize: 12, Alignment: "left"}
	got, err := Set(p, "font_size", 18.0)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if got.(*domain.TextProps).FontSize != 18 {
		t.Fatalf("font size %d", got.(*domain.TextProps).FontSize)
	}

	got, err = Set(got, "variable", "order.table")
	if err != nil {
		t.Fatalf("set variable: %v", err)
	}
	if v := got.(*domain.TextProps).Variable; v == nil || *v != "order.table" {
		t.Fatalf("variable not set: %v", v)
	}
	got, err = Set(got, "variable", nil)
	if err != nil {
		t.Fatalf("clear variable: %v", err)
	}
	if got.(*domain.TextProps).Variable != nil {
		t.Fatalf("variable should be cleared")
	}
}

func TestSetKeepsOutOfRangeValues(t *testing.T) {
	got, err := Set(&domain.DividerProps{Style: "solid", Thickness: 1}, "thickness", 99)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if got.(*domain.DividerProps).Thickness != 99 {
		t.Fatalf("value should be stored unchanged")
	}
}

func TestSetRejectsUnknownFieldAndWrongType(t *testing.T) {
	var ve *domain.ValidationError
	if _, err := Set(&domain.TextProps{}, "nope", 1); !errors.As(err, &ve) {
		t.Fatalf("want validation error, got %v", err)
	}
	if _, err := Set(&domain.TextProps{}, "bold", "yes"); !errors.As(err, &ve) {
		t.Fatalf("want validation error for wrong type, got %v", err)
	}
	if _, err := Set(nil, "bold", true); !errors.As(err, &ve) {
		t.Fatalf("want validation error for nil bag, got %v", err)
	}
}

func TestEveryFieldIsSettable(t *testing.T) {
	for _, kind := range domain.PropsKinds() {
		for _, f := range Fields(kind) {
			if _, ok := Get(domain.NewProps(kind), f.Name); !ok {
				t.Fatalf("%s.%s has no struct field", kind, f.Name)
			}
		}
	}
}

func TestParseInputClamps(t *testing.T) {
	v, err := ParseInput(domain.KindText, "font_size", "100")
	if err != nil || v != 48 {
		t.Fatalf("got %v, %v", v, err)
	}
	v, err = ParseInput(domain.KindBarcode, "height", "3")
	if err != nil || v != 20 {
		t.Fatalf("got %v, %v", v, err)
	}
	v, err = ParseInput(domain.KindImage, "width", "120.6")
	if err != nil || v != 121 {
		t.Fatalf("got %v, %v", v, err)
	}
	if _, err := ParseInput(domain.KindDivider, "style", "wavy"); err == nil {
		t.Fatalf("unknown option must be rejected")
	}
	v, err = ParseInput(domain.KindText, "variable", "")
	if err != nil || v != nil {
		t.Fatalf("empty variable should parse to nil, got %v, %v", v, err)
	}
	v, err = ParseInput(domain.KindTable, "columns", `[{"key":"qty","label":"Qty","align":"right"}]`)
	if err != nil {
		t.Fatalf("columns: %v", err)
	}
	if cols := v.([]domain.Column); len(cols) != 1 || cols[0].Key != "qty" {
		t.Fatalf("columns %+v", cols)
	}
}

func TestClampInputLeavesNonNumericAlone(t *testing.T) {
	if got := ClampInput(domain.KindText, "content", "hi"); got != "hi" {
		t.Fatalf("got %v", got)
	}
	if got := ClampInput(domain.KindDivider, "thickness", 0); got != 1 {
		t.Fatalf("got %v", got)
	}
}

func block(id string, order int, typ domain.BlockType) *domain.Block {
	def, _ := registry.Lookup(typ)
	return &domain.Block{ID: id, Type: typ, Order: order, Section: registry.SectionFor(typ), Width: domain.Width100, Props: def.NewProps()}
}

func TestLintCleanLayout(t *testing.T) {
	l := domain.Layout{Blocks: []*domain.Block{
		block("a", 0, "logo"),
		block("b", 1, "items_table"),
		block("c", 2, "divider"),
		block("d", 3, "qr_code"),
	}}
	if issues := Lint(l); len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
}

func TestLintReportsProblems(t *testing.T) {
	bad := block("b", 1, "text")
	bad.Props = &domain.TextProps{FontSize: 99, Alignment: "left"}
	wrong := block("c", 5, "divider")
	wrong.Props = &domain.TextProps{FontSize: 12, Alignment: "left"}
	wrong.Width = 33
	l := domain.Layout{Blocks: []*domain.Block{block("a", 0, "text"), bad, wrong, block("a", 3, "text")}}

	var joined []string
	for _, is := range Lint(l) {
		joined = append(joined, is.String())
	}
	all := strings.Join(joined, "\n")
	for _, want := range []string{
		"b.text_props.font_size",
		"c.order",
		"c.block_width",
		"c.text_props: type divider expects divider_props",
		"a: duplicate id",
	} {
		if !strings.Contains(all, want) {
			t.Fatalf("missing %q in:\n%s", want, all)
		}
	}
}
