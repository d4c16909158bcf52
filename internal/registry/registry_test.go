/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package registry

import (
	"testing"

	"printdesigner/internal/domain"
)

func TestCatalogTypesAreUniqueAndLookupable(t *testing.T) {
	seen := map[domain.BlockType]bool{}
	n := 0
	for _, g := range Catalog() {
		for _, d := range g.Types {
			if seen[d.Type] {
				t.Fatalf("duplicate type %s", d.Type)
			}
			seen[d.Type] = true
			n++
			got, ok := Lookup(d.Type)
			if !ok || got.Category != g.Category || got.Kind() != d.Kind() {
				t.Fatalf("Lookup(%s) = %+v, %v", d.Type, got, ok)
			}
		}
	}
	if n < 18 {
		t.Fatalf("expected about twenty block types, got %d", n)
	}
}

func TestSectionFor(t *testing.T) {
	cases := map[domain.BlockType]domain.Section{
		"logo":           domain.SectionHeader,
		"venue_info":     domain.SectionHeader,
		"document_title": domain.SectionHeader,
		"thank_you":      domain.SectionFooter,
		"legal_footer":   domain.SectionFooter,
		"signature_line": domain.SectionFooter,
		"date_time":      domain.SectionBody,
		"items_table":    domain.SectionBody,
		"unknown":        domain.SectionBody,
	}
	for typ, want := range cases {
		if got := SectionFor(typ); got != want {
			t.Fatalf("SectionFor(%s) = %s, want %s", typ, got, want)
		}
	}
}

func TestDefaultsAreCopied(t *testing.T) {
	d, _ := Lookup("items_table")
	p := d.NewProps().(*domain.TableProps)
	p.Columns[0].Key = "mutated"
	again, _ := Lookup("items_table")
	if again.Defaults.(*domain.TableProps).Columns[0].Key != "qty" {
		t.Fatalf("catalog defaults were mutated through a copy")
	}
}
