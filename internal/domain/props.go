/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// PropsKind names a property bag. The value doubles as the bag's JSON key.
type PropsKind string

const (
	KindText    PropsKind = "text_props"
	KindTable   PropsKind = "table_props"
	KindDivider PropsKind = "divider_props"
	KindBarcode PropsKind = "barcode_props"
	KindImage   PropsKind = "image_props"
	KindFiscal  PropsKind = "fiscal_props"
)

// PropsKinds lists every bag kind.
func PropsKinds() []PropsKind {
	return []PropsKind{KindText, KindTable, KindDivider, KindBarcode, KindImage, KindFiscal}
}

// Props is the per-block property bag. It is a closed set: only the six bag
// types in this package implement it, so a type switch over them is exhaustive.
//
// The validate tags describe the ranges the editor UI enforces on input. The
// core does not enforce them; values outside the ranges can arrive through
// import or programmatic edits and are kept as-is.
type Props interface {
	Kind() PropsKind
	Clone() Props
	sealed()
}

// NewProps returns an empty bag of the given kind, or nil for an unknown kind.
func NewProps(kind PropsKind) Props {
	switch kind {
	case KindText:
		return &TextProps{}
	case KindTable:
		return &TableProps{}
	case KindDivider:
		return &DividerProps{}
	case KindBarcode:
		return &BarcodeProps{}
	case KindImage:
		return &ImageProps{}
	case KindFiscal:
		return &FiscalProps{}
	}
	return nil
}

type TextProps struct {
	Content   string  `json:"content"`
	FontSize  int     `json:"font_size" validate:"gte=6,lte=48"`
	Alignment string  `json:"alignment" validate:"oneof=left center right"`
	Bold      bool    `json:"bold"`
	Italic    bool    `json:"italic"`
	Underline bool    `json:"underline"`
	Variable  *string `json:"variable"`
}

func (p *TextProps) Kind() PropsKind { return KindText }
func (p *TextProps) sealed()         {}
func (p *TextProps) Clone() Props {
	cp := *p
	if p.Variable != nil {
		v := *p.Variable
		cp.Variable = &v
	}
	return &cp
}

// Column is one table column; Key names the field in the bound data rows.
type Column struct {
	Key   string `json:"key" validate:"required"`
	Label string `json:"label"`
	Align string `json:"align" validate:"oneof=left center right"`
}

type TableProps struct {
	Columns    []Column `json:"columns" validate:"dive"`
	DataSource string   `json:"data_source"`
	ShowHeader bool     `json:"show_header"`
	ShowTotals bool     `json:"show_totals"`
	GroupBy    string   `json:"group_by" validate:"oneof=none category course seat"`
}

func (p *TableProps) Kind() PropsKind { return KindTable }
func (p *TableProps) sealed()         {}
func (p *TableProps) Clone() Props {
	cp := *p
	cp.Columns = append([]Column(nil), p.Columns...)
	return &cp
}

type DividerProps struct {
	Style     string `json:"style" validate:"oneof=solid dashed dotted double"`
	Thickness int    `json:"thickness" validate:"gte=1,lte=8"`
}

func (p *DividerProps) Kind() PropsKind { return KindDivider }
func (p *DividerProps) sealed()         {}
func (p *DividerProps) Clone() Props    { cp := *p; return &cp }

type BarcodeProps struct {
	DataSource string `json:"data_source"`
	Format     string `json:"format" validate:"oneof=CODE128 QR EAN13 UPC"`
	Height     int    `json:"height" validate:"gte=20,lte=200"`
	Width      int    `json:"width" validate:"gte=1,lte=5"`
	ShowText   bool   `json:"show_text"`
}

func (p *BarcodeProps) Kind() PropsKind { return KindBarcode }
func (p *BarcodeProps) sealed()         {}
func (p *BarcodeProps) Clone() Props    { cp := *p; return &cp }

type ImageProps struct {
	URL       string `json:"url"`
	Width     int    `json:"width" validate:"gte=20,lte=576"`
	Alignment string `json:"alignment" validate:"oneof=left center right"`
}

func (p *ImageProps) Kind() PropsKind { return KindImage }
func (p *ImageProps) sealed()         {}
func (p *ImageProps) Clone() Props    { cp := *p; return &cp }

type FiscalProps struct {
	FiscalIDVariable string `json:"fiscal_id_variable"`
	FiscalQRVariable string `json:"fiscal_qr_variable"`
	ShowFiscalID     bool   `json:"show_fiscal_id"`
	ShowFiscalQR     bool   `json:"show_fiscal_qr"`
}

func (p *FiscalProps) Kind() PropsKind { return KindFiscal }
func (p *FiscalProps) sealed()         {}
func (p *FiscalProps) Clone() Props    { cp := *p; return &cp }
