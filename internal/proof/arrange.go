/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package proof draws layout proofs of a template: where each block sits on
// the paper at a given zoom. Proofs show structure, not data; variable
// references are never resolved.
package proof

import (
	"math"
	"strings"

	"printdesigner/internal/domain"
	"printdesigner/internal/paper"
	"printdesigner/internal/registry"
	"printdesigner/internal/visibility"
)

// Options controls which blocks are laid out and at which zoom.
type Options struct {
	Zoom int // 0 means paper.DefaultZoom
	// Gated applies show_if rules against Context; hidden blocks are left out.
	Gated   bool
	Context visibility.Context
}

// Box is the placement of one block in canvas pixels.
type Box struct {
	Block *domain.Block
	Label string
	X, Y  float64
	W, H  float64
}

// Sheet is an arranged layout.
type Sheet struct {
	Geometry paper.Geometry
	Profile  domain.PaperProfile
	Width    float64
	Height   float64
	Boxes    []Box
}

// Arrange flows blocks in sequence order into rows. Consecutive blocks share a
// row while their widths add up to at most 100%.
func Arrange(l domain.Layout, opt Options) Sheet {
	zoom := opt.Zoom
	if zoom == 0 {
		zoom = paper.DefaultZoom
	}
	g := paper.Resolve(l.PaperProfile, zoom)
	scale := float64(g.Zoom) / 100
	gap := float64(g.FontPx) / 2
	top := l.PaperProfile.MarginTop * g.PxPerMM

	blocks := l.Blocks
	if opt.Gated {
		blocks = visibility.Filter(blocks, opt.Context, true)
	}

	s := Sheet{Geometry: g, Profile: l.PaperProfile, Width: g.CanvasWidthPx}
	y := top
	used := 0
	rowH := 0.0
	for _, b := range blocks {
		w := b.Width
		if !w.Valid() {
			w = domain.Width100
		}
		if used > 0 && used+int(w) > 100 {
			y += rowH + gap
			used, rowH = 0, 0
		}
		box := Box{
			Block: b,
			Label: label(b),
			X:     g.ContentLeftPx + g.ContentPx*float64(used)/100,
			Y:     y,
			W:     g.BlockPx(w),
		}
		box.H = blockHeight(b, box.W, scale, g.FontPx)
		s.Boxes = append(s.Boxes, box)
		used += int(w)
		rowH = math.Max(rowH, box.H)
	}
	if used > 0 {
		y += rowH
	}
	y += l.PaperProfile.MarginBottom*g.PxPerMM + float64(l.PaperProfile.CutFeed)*lineHeight(g.FontPx)
	if g.Entry.HeightMM > 0 {
		y = math.Max(y, g.Entry.HeightMM*g.PxPerMM)
	}
	s.Height = y
	return s
}

func label(b *domain.Block) string {
	if b.Label != "" {
		return b.Label
	}
	if def, ok := registry.Lookup(b.Type); ok {
		return def.Label
	}
	return string(b.Type)
}

func lineHeight(fontPx int) float64 { return float64(fontPx) * 1.3 }

// blockHeight estimates the printed height of a block in canvas pixels.
func blockHeight(b *domain.Block, w, scale float64, fontPx int) float64 {
	minH := lineHeight(fontPx)
	var h float64
	switch p := b.Props.(type) {
	case *domain.TextProps:
		lines := strings.Count(p.Content, "\n") + 1
		h = float64(lines) * float64(p.FontSize) * 1.25 * scale
	case *domain.TableProps:
		rows := 3
		if p.ShowHeader {
			rows++
		}
		if p.ShowTotals {
			rows++
		}
		h = float64(rows) * lineHeight(fontPx)
	case *domain.DividerProps:
		return float64(p.Thickness+6) * scale
	case *domain.BarcodeProps:
		h = float64(p.Height) * scale
		if p.ShowText {
			h += minH
		}
	case *domain.ImageProps:
		h = math.Min(float64(p.Width)*scale, w) / 2
	case *domain.FiscalProps:
		if p.ShowFiscalID {
			h += minH
		}
		if p.ShowFiscalQR {
			h += 80 * scale
		}
	}
	return math.Max(h, minH)
}
