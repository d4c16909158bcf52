/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package paper

import (
	"errors"
	"math"
	"testing"

	"printdesigner/internal/domain"
)

func TestSwitchPreservesMargins(t *testing.T) {
	cur := Default()
	cur.MarginLeft, cur.MarginRight, cur.MarginTop, cur.MarginBottom, cur.CutFeed = 5, 6, 7, 8, 9

	got, err := Switch(cur, "A4")
	if err != nil {
		t.Fatalf("switch: %v", err)
	}
	if got.WidthClass != "a4" || got.DPI != 300 {
		t.Fatalf("width class/dpi not applied: %+v", got)
	}
	if got.MarginLeft != 5 || got.MarginRight != 6 || got.MarginTop != 7 || got.MarginBottom != 8 || got.CutFeed != 9 {
		t.Fatalf("margins not preserved: %+v", got)
	}
}

func TestSwitchToCustomResets(t *testing.T) {
	cur := Default()
	cur.MarginLeft = 11
	got, err := Switch(cur, CustomLabel)
	if err != nil {
		t.Fatalf("switch: %v", err)
	}
	custom, _ := Lookup(CustomLabel)
	if got != custom.Profile() {
		t.Fatalf("custom should reset to its defaults, got %+v", got)
	}
}

func TestSwitchUnknown(t *testing.T) {
	cur := Default()
	got, err := Switch(cur, "Papyrus")
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want validation error, got %v", err)
	}
	if got != cur {
		t.Fatalf("profile must be unchanged on error")
	}
}

func TestClampZoom(t *testing.T) {
	cases := map[int]int{0: 40, 39: 40, 44: 40, 45: 50, 100: 100, 104: 100, 196: 200, 250: 200, -10: 40}
	for in, want := range cases {
		if got := ClampZoom(in); got != want {
			t.Fatalf("ClampZoom(%d) = %d want %d", in, got, want)
		}
	}
	if ZoomIn(200) != 200 || ZoomOut(40) != 40 || ZoomIn(100) != 110 {
		t.Fatalf("zoom stepping broken")
	}
}

func TestResolve(t *testing.T) {
	p := Default()
	g := Resolve(p, 150)
	if g.CanvasWidthPx != 453 {
		t.Fatalf("canvas width %v", g.CanvasWidthPx)
	}
	if g.FontPx != 18 {
		t.Fatalf("font %d", g.FontPx)
	}
	if Resolve(p, 40).FontPx != 5 {
		t.Fatalf("font at 40%% should round 4.8 to 5")
	}
	g = Resolve(p, 100)
	wantContent := 302 - 4*302.0/80
	if math.Abs(g.ContentPx-wantContent) > 1e-9 {
		t.Fatalf("content %v want %v", g.ContentPx, wantContent)
	}
	if math.Abs(g.BlockPx(domain.Width50)-wantContent/2) > 1e-9 {
		t.Fatalf("block px")
	}
}

func TestUnknownWidthClassFallsBackToCustom(t *testing.T) {
	g := Resolve(domain.PaperProfile{WidthClass: "scroll"}, 100)
	if g.Entry.Label != CustomLabel {
		t.Fatalf("got %s", g.Entry.Label)
	}
}
