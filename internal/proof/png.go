/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package proof

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"printdesigner/internal/domain"
)

// Thumbnail rasterizes the arranged layout at canvas resolution.
func Thumbnail(t domain.Template, opt Options) *image.RGBA {
	s := Arrange(t.Layout, opt)
	pixW := int(math.Ceil(s.Width))
	pixH := int(math.Ceil(s.Height))
	img := image.NewRGBA(image.Rect(0, 0, max(1, pixW), max(1, pixH)))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	border := color.RGBA{120, 120, 120, 255}
	ink := color.RGBA{40, 40, 40, 255}
	for _, bx := range s.Boxes {
		x0 := int(math.Round(bx.X))
		y0 := int(math.Round(bx.Y))
		x1 := int(math.Round(bx.X+bx.W)) - 1
		y1 := int(math.Round(bx.Y+bx.H)) - 1
		if _, ok := bx.Block.Props.(*domain.DividerProps); ok {
			mid := (y0 + y1) / 2
			fillRect(img, x0, mid, x1, mid, color.RGBA{60, 60, 60, 255})
			continue
		}
		c := fillFor(bx.Block)
		fillRect(img, x0, y0, x1, y1, color.RGBA{c.R, c.G, c.B, 255})
		strokeRect(img, x0, y0, x1, y1, border)
		drawLabel(img, face, bx.Label, x0+2, y0+face.Ascent+1, x1-1, ink)
	}
	return img
}

// WritePNG encodes the thumbnail as PNG.
func WritePNG(w io.Writer, t domain.Template, opt Options) error {
	if err := png.Encode(w, Thumbnail(t, opt)); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// drawLabel draws s starting at (x, baseline), cut off before maxX.
func drawLabel(img *image.RGBA, face font.Face, s string, x, baseline, maxX int, col color.Color) {
	d := &font.Drawer{Dst: img, Src: image.NewUniform(col), Face: face, Dot: fixed.P(x, baseline)}
	for _, r := range s {
		adv, ok := face.GlyphAdvance(r)
		if !ok {
			r = '?'
			adv, _ = face.GlyphAdvance(r)
		}
		if (d.Dot.X + adv).Ceil() > maxX {
			return
		}
		d.DrawString(string(r))
	}
}

// strokeRect draws a 1px axis-aligned rectangle border inclusive of endpoints.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, col)
		img.SetRGBA(x, y1, col)
	}
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, col)
		img.SetRGBA(x1, y, col)
	}
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}
