/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package paper holds the fixed catalog of output formats and turns a paper
// profile plus a zoom level into canvas geometry.
package paper

import (
	"math"
	"strings"

	"printdesigner/internal/domain"
)

// CustomLabel is the catalog entry that resets margins and cut feed on selection.
const CustomLabel = "Custom"

const (
	MinZoom     = 40
	MaxZoom     = 200
	ZoomStep    = 10
	DefaultZoom = 100

	baseFontPx = 12
)

// Margins are the defaults an entry applies when selected as the initial
// profile of a template, or always for the Custom entry.
type Margins struct {
	Left, Right, Top, Bottom float64
	CutFeed                  int
}

// Entry is one catalog item. RefWidthPx is the canvas width at 100% zoom.
// HeightMM is zero for continuous rolls.
type Entry struct {
	Label      string
	WidthClass string
	RefWidthPx int
	DPI        int
	WidthMM    float64
	HeightMM   float64
	Defaults   Margins
}

var thermal = Margins{Left: 2, Right: 2, Top: 2, Bottom: 2, CutFeed: 3}

var catalog = []Entry{
	{Label: "58mm Thermal", WidthClass: "58mm", RefWidthPx: 219, DPI: 203, WidthMM: 58, Defaults: thermal},
	{Label: "80mm Thermal", WidthClass: "80mm", RefWidthPx: 302, DPI: 203, WidthMM: 80, Defaults: thermal},
	{Label: "112mm Thermal", WidthClass: "112mm", RefWidthPx: 423, DPI: 203, WidthMM: 112, Defaults: thermal},
	{Label: "A4", WidthClass: "a4", RefWidthPx: 794, DPI: 300, WidthMM: 210, HeightMM: 297, Defaults: Margins{Left: 15, Right: 15, Top: 15, Bottom: 15}},
	{Label: "Letter", WidthClass: "letter", RefWidthPx: 816, DPI: 300, WidthMM: 215.9, HeightMM: 279.4, Defaults: Margins{Left: 19, Right: 19, Top: 19, Bottom: 19}},
	{Label: "Label 4x6", WidthClass: "label_4x6", RefWidthPx: 384, DPI: 203, WidthMM: 101.6, HeightMM: 152.4, Defaults: Margins{Left: 3, Right: 3, Top: 3, Bottom: 3}},
	{Label: CustomLabel, WidthClass: "custom", RefWidthPx: 302, DPI: 203, WidthMM: 80, Defaults: Margins{}},
}

// Catalog returns the entries in display order.
func Catalog() []Entry {
	return append([]Entry(nil), catalog...)
}

// Lookup finds an entry by label or width class, ignoring case.
func Lookup(name string) (Entry, bool) {
	for _, e := range catalog {
		if strings.EqualFold(e.Label, name) || strings.EqualFold(e.WidthClass, name) {
			return e, true
		}
	}
	return Entry{}, false
}

// ForProfile returns the entry matching p.WidthClass, falling back to the
// Custom entry for classes not in the catalog.
func ForProfile(p domain.PaperProfile) Entry {
	for _, e := range catalog {
		if e.WidthClass == p.WidthClass {
			return e
		}
	}
	e, _ := Lookup(CustomLabel)
	return e
}

// Default is the profile of a new template: 80mm thermal.
func Default() domain.PaperProfile {
	e, _ := Lookup("80mm")
	return e.Profile()
}

// Profile returns a fresh profile for e with its default margins.
func (e Entry) Profile() domain.PaperProfile {
	return domain.PaperProfile{
		WidthClass:   e.WidthClass,
		DPI:          e.DPI,
		MarginLeft:   e.Defaults.Left,
		MarginRight:  e.Defaults.Right,
		MarginTop:    e.Defaults.Top,
		MarginBottom: e.Defaults.Bottom,
		CutFeed:      e.Defaults.CutFeed,
	}
}

// Switch applies the entry named by label to cur. Width class and dpi always
// change; margins and cut feed carry over unless the entry is Custom.
func Switch(cur domain.PaperProfile, label string) (domain.PaperProfile, error) {
	e, ok := Lookup(label)
	if !ok {
		return cur, domain.Invalid("switch paper", "unknown paper profile %q", label)
	}
	if e.Label == CustomLabel {
		return e.Profile(), nil
	}
	cur.WidthClass = e.WidthClass
	cur.DPI = e.DPI
	return cur, nil
}

// ClampZoom snaps z to the nearest step and clamps it to [MinZoom, MaxZoom].
func ClampZoom(z int) int {
	z = int(math.Round(float64(z)/ZoomStep)) * ZoomStep
	return max(MinZoom, min(MaxZoom, z))
}

func ZoomIn(z int) int  { return ClampZoom(z + ZoomStep) }
func ZoomOut(z int) int { return ClampZoom(z - ZoomStep) }

// Geometry is the display geometry of a profile at a zoom level.
// All pixel values are at the given zoom.
type Geometry struct {
	Entry         Entry
	Zoom          int
	CanvasWidthPx float64
	FontPx        int
	PxPerMM       float64
	ContentLeftPx float64
	ContentPx     float64
}

// Resolve computes the geometry of p at zoom. zoom is clamped first.
func Resolve(p domain.PaperProfile, zoom int) Geometry {
	zoom = ClampZoom(zoom)
	e := ForProfile(p)
	scale := float64(zoom) / 100
	g := Geometry{
		Entry:         e,
		Zoom:          zoom,
		CanvasWidthPx: float64(e.RefWidthPx) * scale,
		FontPx:        int(math.Round(baseFontPx * scale)),
	}
	if e.WidthMM > 0 {
		g.PxPerMM = g.CanvasWidthPx / e.WidthMM
	}
	g.ContentLeftPx = p.MarginLeft * g.PxPerMM
	g.ContentPx = max(0, g.CanvasWidthPx-(p.MarginLeft+p.MarginRight)*g.PxPerMM)
	return g
}

// BlockPx is the horizontal extent of a block of width w inside the content area.
func (g Geometry) BlockPx(w domain.BlockWidth) float64 {
	return g.ContentPx * float64(w) / 100
}
