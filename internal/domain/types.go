/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "time"

// This file defines the core data model for printable document templates.
// Everything here serializes to the JSON shape used by the persistence service
// and by the export/import file format.

// TemplateType classifies what a template prints.
type TemplateType string

const (
	TypeReceipt      TemplateType = "receipt"
	TypeKitchenOrder TemplateType = "kitchen_order"
	TypeInvoice      TemplateType = "invoice"
	TypeReport       TemplateType = "report"
	TypeLabel        TemplateType = "label"
	TypeCustom       TemplateType = "custom"
)

// TemplateTypes lists the accepted template types in display order.
func TemplateTypes() []TemplateType {
	return []TemplateType{TypeReceipt, TypeKitchenOrder, TypeInvoice, TypeReport, TypeLabel, TypeCustom}
}

// Valid reports whether t is one of the known template types.
func (t TemplateType) Valid() bool {
	for _, k := range TemplateTypes() {
		if k == t {
			return true
		}
	}
	return false
}

// Status is the lifecycle state of a template. It only moves draft -> active.
type Status string

const (
	StatusDraft  Status = "draft"
	StatusActive Status = "active"
)

// Section groups blocks on the printed document.
type Section string

const (
	SectionHeader Section = "header"
	SectionBody   Section = "body"
	SectionFooter Section = "footer"
)

// Valid reports whether s is a known section.
func (s Section) Valid() bool {
	return s == SectionHeader || s == SectionBody || s == SectionFooter
}

// BlockWidth is the share of the printable width a block occupies, in percent.
type BlockWidth int

const (
	Width25  BlockWidth = 25
	Width50  BlockWidth = 50
	Width75  BlockWidth = 75
	Width100 BlockWidth = 100
)

// Valid reports whether w is one of the four allowed widths.
func (w BlockWidth) Valid() bool {
	switch w {
	case Width25, Width50, Width75, Width100:
		return true
	}
	return false
}

// Template is a printable document definition owned by one editing session
// until it is persisted.
type Template struct {
	ID          string       `json:"id"`
	VenueID     string       `json:"venue_id,omitempty"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Type        TemplateType `json:"type"`
	Status      Status       `json:"status"`
	Tags        []string     `json:"tags,omitempty"`
	Layout
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Layout is the part of a template captured by a version snapshot.
type Layout struct {
	Blocks       []*Block     `json:"blocks"`
	PaperProfile PaperProfile `json:"paper_profile"`
}

// Clone returns a deep copy of the layout.
func (l Layout) Clone() Layout {
	out := Layout{PaperProfile: l.PaperProfile, Blocks: make([]*Block, len(l.Blocks))}
	for i, b := range l.Blocks {
		out.Blocks[i] = b.Clone()
	}
	return out
}

// Activate moves the template to the active state. Active templates stay active.
func (t *Template) Activate() { t.Status = StatusActive }

// IndexOf returns the sequence position of the block with the given id, or -1.
func (l Layout) IndexOf(id string) int {
	for i, b := range l.Blocks {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// PaperProfile describes the physical output format. Margins are in millimetres,
// CutFeed is the number of blank lines fed before the cutter.
type PaperProfile struct {
	WidthClass   string  `json:"width_class"`
	DPI          int     `json:"dpi"`
	MarginLeft   float64 `json:"margin_left"`
	MarginRight  float64 `json:"margin_right"`
	MarginTop    float64 `json:"margin_top"`
	MarginBottom float64 `json:"margin_bottom"`
	CutFeed      int     `json:"cut_feed"`
}

// Version is an immutable published snapshot of a template layout.
type Version struct {
	Version     int       `json:"version"`
	PublishedAt time.Time `json:"published_at"`
	PublishedBy string    `json:"published_by,omitempty"`
	Notes       string    `json:"notes"`
	Snapshot    Layout    `json:"snapshot"`
}

// AuditEntry is one append-only record written by the persistence side.
type AuditEntry struct {
	Action    string    `json:"action"`
	User      string    `json:"user"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail,omitempty"`
}

// Asset is an uploaded file (logo, image) referenced by URL from image blocks.
type Asset struct {
	Hash        string    `json:"hash"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	URL         string    `json:"url"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// TemplateSummary is the listing projection of a template.
type TemplateSummary struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Type      TemplateType `json:"type"`
	Status    Status       `json:"status"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// PublishRequest carries everything the persistence side needs to publish
// atomically: the template to store as latest, the notes and the publisher.
type PublishRequest struct {
	Template Template `json:"template"`
	Notes    string   `json:"notes"`
	User     string   `json:"user"`
}

// ExportDocument is the portable file format for a template.
type ExportDocument struct {
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	Type         TemplateType  `json:"type,omitempty"`
	Blocks       []*Block      `json:"blocks"`
	PaperProfile *PaperProfile `json:"paper_profile,omitempty"`
}
