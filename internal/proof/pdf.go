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
	"io"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"printdesigner/internal/domain"
)

// PDFOptions controls the wireframe proof.
type PDFOptions struct {
	Options
	// IncludeGuides draws the margin box in red.
	IncludeGuides bool
}

type rgb struct{ R, G, B uint8 }

var kindColors = map[domain.PropsKind]rgb{
	domain.KindText:    {224, 236, 255},
	domain.KindTable:   {226, 245, 228},
	domain.KindDivider: {60, 60, 60},
	domain.KindBarcode: {255, 241, 214},
	domain.KindImage:   {240, 228, 255},
	domain.KindFiscal:  {255, 226, 226},
}

func fillFor(b *domain.Block) rgb {
	if b.Props != nil {
		if c, ok := kindColors[b.Props.Kind()]; ok {
			return c
		}
	}
	return rgb{240, 240, 240}
}

// WritePDF writes a one-page wireframe of t in millimetres. The page is as
// wide as the paper and as tall as the arranged content.
func WritePDF(w io.Writer, t domain.Template, opt PDFOptions) error {
	s := Arrange(t.Layout, opt.Options)
	mm := 1 / s.Geometry.PxPerMM
	pageW := s.Width * mm
	pageH := s.Height * mm

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "mm",
		Size:    gofpdf.SizeType{Wd: pageW, Ht: pageH},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr(t.Name+" proof"), false)
	pdf.SetCreator("printdesigner", false)
	pdf.AddPage()

	if opt.IncludeGuides {
		p := s.Profile
		pdf.SetDrawColor(255, 0, 0)
		pdf.SetLineWidth(0.1)
		pdf.Rect(p.MarginLeft, p.MarginTop, pageW-p.MarginLeft-p.MarginRight, pageH-p.MarginTop-p.MarginBottom, "D")
	}

	fontPt := float64(s.Geometry.FontPx) * mm * 72 / 25.4 * 0.8
	pdf.SetFont("Helvetica", "", fontPt)
	for _, bx := range s.Boxes {
		x, y, bw, bh := bx.X*mm, bx.Y*mm, bx.W*mm, bx.H*mm
		if d, ok := bx.Block.Props.(*domain.DividerProps); ok {
			drawDivider(pdf, d, x, y+bh/2, bw)
			continue
		}
		c := fillFor(bx.Block)
		pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
		pdf.SetDrawColor(120, 120, 120)
		pdf.SetLineWidth(0.1)
		pdf.Rect(x, y, bw, bh, "FD")
		pdf.SetTextColor(40, 40, 40)
		pdf.ClipRect(x, y, bw, bh, false)
		pdf.Text(x+0.8, y+fontPt*25.4/72, tr(bx.Label))
		pdf.ClipEnd()
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func drawDivider(pdf *gofpdf.Fpdf, d *domain.DividerProps, x, y, w float64) {
	pdf.SetDrawColor(60, 60, 60)
	pdf.SetLineWidth(0.1 * float64(max(1, d.Thickness)))
	switch d.Style {
	case "dashed":
		pdf.SetDashPattern([]float64{1.5, 1}, 0)
	case "dotted":
		pdf.SetDashPattern([]float64{0.3, 0.6}, 0)
	}
	pdf.Line(x, y, x+w, y)
	if d.Style == "double" {
		pdf.Line(x, y+0.6, x+w, y+0.6)
	}
	pdf.SetDashPattern([]float64{}, 0)
}

// WritePDFFile writes the wireframe to path, creating its directory.
func WritePDFFile(path string, t domain.Template, opt PDFOptions) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create pdf: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return WritePDF(f, t, opt)
}
