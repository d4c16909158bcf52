/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package registry holds the static palette of block types: which categories
// the palette shows, the label and default property bag of every type, and
// which document section a new block of a type lands in.
package registry

import "printdesigner/internal/domain"

// Category groups block types in the palette.
type Category string

const (
	CategoryHeader  Category = "header"
	CategoryContent Category = "content"
	CategoryFooter  Category = "footer"
)

// TypeDef is one palette entry. Defaults is never handed out directly;
// NewProps returns a fresh copy.
type TypeDef struct {
	Type     domain.BlockType
	Label    string
	Category Category
	Defaults domain.Props
}

// NewProps returns a copy of the default bag for the type.
func (d TypeDef) NewProps() domain.Props { return d.Defaults.Clone() }

// Kind returns the bag kind blocks of this type carry.
func (d TypeDef) Kind() domain.PropsKind { return d.Defaults.Kind() }

// Group is one palette category with its ordered type definitions.
type Group struct {
	Category Category
	Label    string
	Types    []TypeDef
}

func strp(s string) *string { return &s }

func text(content string, size int, align string, bold bool, variable *string) *domain.TextProps {
	return &domain.TextProps{Content: content, FontSize: size, Alignment: align, Bold: bold, Variable: variable}
}

var catalog = []Group{
	{Category: CategoryHeader, Label: "Header", Types: []TypeDef{
		{Type: "logo", Label: "Logo", Defaults: &domain.ImageProps{URL: "{{venue.logo_url}}", Width: 200, Alignment: "center"}},
		{Type: "venue_info", Label: "Venue info", Defaults: text("{{venue.name}}\n{{venue.address}}", 12, "center", true, nil)},
		{Type: "document_title", Label: "Document title", Defaults: text("RECEIPT", 16, "center", true, nil)},
		{Type: "order_info", Label: "Order info", Defaults: text("Order #{{order.number}}", 12, "left", false, strp("order.number"))},
		{Type: "date_time", Label: "Date & time", Defaults: text("{{datetime}}", 10, "left", false, strp("datetime"))},
	}},
	{Category: CategoryContent, Label: "Content", Types: []TypeDef{
		{Type: "text", Label: "Text", Defaults: text("Text", 12, "left", false, nil)},
		{Type: "items_table", Label: "Items table", Defaults: &domain.TableProps{
			Columns: []domain.Column{
				{Key: "qty", Label: "Qty", Align: "left"},
				{Key: "name", Label: "Item", Align: "left"},
				{Key: "total", Label: "Total", Align: "right"},
			},
			DataSource: "order.items", ShowHeader: true, GroupBy: "none",
		}},
		{Type: "totals", Label: "Totals", Defaults: &domain.TableProps{
			Columns: []domain.Column{
				{Key: "label", Label: "", Align: "left"},
				{Key: "amount", Label: "", Align: "right"},
			},
			DataSource: "order.totals", ShowTotals: true, GroupBy: "none",
		}},
		{Type: "tax_summary", Label: "Tax summary", Defaults: &domain.TableProps{
			Columns: []domain.Column{
				{Key: "rate", Label: "Rate", Align: "left"},
				{Key: "net", Label: "Net", Align: "right"},
				{Key: "tax", Label: "Tax", Align: "right"},
			},
			DataSource: "order.taxes", ShowHeader: true, GroupBy: "none",
		}},
		{Type: "payment_summary", Label: "Payment summary", Defaults: &domain.TableProps{
			Columns: []domain.Column{
				{Key: "method", Label: "Method", Align: "left"},
				{Key: "amount", Label: "Amount", Align: "right"},
			},
			DataSource: "order.payments", ShowHeader: false, GroupBy: "none",
		}},
		{Type: "customer_info", Label: "Customer info", Defaults: text("{{order.customer.name}}", 12, "left", false, strp("order.customer.name"))},
		{Type: "notes", Label: "Order notes", Defaults: text("{{order.notes}}", 11, "left", false, strp("order.notes"))},
		{Type: "divider", Label: "Divider", Defaults: &domain.DividerProps{Style: "dashed", Thickness: 1}},
		{Type: "barcode", Label: "Barcode", Defaults: &domain.BarcodeProps{DataSource: "{{order.number}}", Format: "CODE128", Height: 60, Width: 2, ShowText: true}},
		{Type: "qr_code", Label: "QR code", Defaults: &domain.BarcodeProps{DataSource: "{{order.url}}", Format: "QR", Height: 120, Width: 3}},
		{Type: "image", Label: "Image", Defaults: &domain.ImageProps{Width: 200, Alignment: "center"}},
		{Type: "fiscal", Label: "Fiscal marker", Defaults: &domain.FiscalProps{
			FiscalIDVariable: "{{fiscal.id}}", FiscalQRVariable: "{{fiscal.qr}}", ShowFiscalID: true, ShowFiscalQR: true,
		}},
	}},
	{Category: CategoryFooter, Label: "Footer", Types: []TypeDef{
		{Type: "thank_you", Label: "Thank you", Defaults: text("Thank you for your visit!", 12, "center", false, nil)},
		{Type: "legal_footer", Label: "Legal footer", Defaults: text("{{venue.legal_name}} · VAT {{venue.vat_id}}", 8, "center", false, nil)},
		{Type: "signature_line", Label: "Signature line", Defaults: text("Signature: ______________________", 10, "left", false, nil)},
	}},
}

var byType = func() map[domain.BlockType]TypeDef {
	m := make(map[domain.BlockType]TypeDef)
	for _, g := range catalog {
		for _, d := range g.Types {
			d.Category = g.Category
			m[d.Type] = d
		}
	}
	return m
}()

// Catalog returns the palette groups in display order. The returned slices are
// copies; default bags are cloned.
func Catalog() []Group {
	out := make([]Group, len(catalog))
	for i, g := range catalog {
		types := make([]TypeDef, len(g.Types))
		for j, d := range g.Types {
			d.Category = g.Category
			d.Defaults = d.Defaults.Clone()
			types[j] = d
		}
		out[i] = Group{Category: g.Category, Label: g.Label, Types: types}
	}
	return out
}

// Lookup returns the definition for a block type.
func Lookup(t domain.BlockType) (TypeDef, bool) {
	d, ok := byType[t]
	if !ok {
		return TypeDef{}, false
	}
	d.Defaults = d.Defaults.Clone()
	return d, true
}

// SectionFor returns the section a new block of type t is placed in.
// Palette category and section differ on purpose: only these six types leave the body.
func SectionFor(t domain.BlockType) domain.Section {
	switch t {
	case "logo", "venue_info", "document_title":
		return domain.SectionHeader
	case "thank_you", "legal_footer", "signature_line":
		return domain.SectionFooter
	default:
		return domain.SectionBody
	}
}
