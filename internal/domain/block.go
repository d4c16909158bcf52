/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"fmt"
)

// BlockType identifies a registry block definition, e.g. "logo" or "items_table".
type BlockType string

// Block is one typed content unit placed on a document. Blocks are treated as
// immutable values by the editor: every change produces a new *Block.
type Block struct {
	ID      string
	Type    BlockType
	Label   string
	Order   int
	Section Section
	Width   BlockWidth
	ShowIf  *ConditionalRule
	Props   Props
}

// Clone returns a deep copy of b.
func (b *Block) Clone() *Block {
	if b == nil {
		return nil
	}
	cp := *b
	if b.ShowIf != nil {
		r := *b.ShowIf
		cp.ShowIf = &r
	}
	if b.Props != nil {
		cp.Props = b.Props.Clone()
	}
	return &cp
}

// blockWire is the JSON shape of a block: the bag is stored under its own key.
type blockWire struct {
	ID      string           `json:"id"`
	Type    BlockType        `json:"type"`
	Label   string           `json:"label"`
	Order   int              `json:"order"`
	Section Section          `json:"section"`
	Width   BlockWidth       `json:"block_width"`
	ShowIf  *ConditionalRule `json:"show_if"`
	Text    *TextProps       `json:"text_props,omitempty"`
	Table   *TableProps      `json:"table_props,omitempty"`
	Divider *DividerProps    `json:"divider_props,omitempty"`
	Barcode *BarcodeProps    `json:"barcode_props,omitempty"`
	Image   *ImageProps      `json:"image_props,omitempty"`
	Fiscal  *FiscalProps     `json:"fiscal_props,omitempty"`
}

func (b Block) MarshalJSON() ([]byte, error) {
	w := blockWire{ID: b.ID, Type: b.Type, Label: b.Label, Order: b.Order, Section: b.Section, Width: b.Width, ShowIf: b.ShowIf}
	switch p := b.Props.(type) {
	case *TextProps:
		w.Text = p
	case *TableProps:
		w.Table = p
	case *DividerProps:
		w.Divider = p
	case *BarcodeProps:
		w.Barcode = p
	case *ImageProps:
		w.Image = p
	case *FiscalProps:
		w.Fiscal = p
	case nil:
		return nil, fmt.Errorf("block %s: no property bag", b.ID)
	}
	return json.Marshal(w)
}

// UnmarshalJSON requires exactly one property bag to be present.
func (b *Block) UnmarshalJSON(data []byte) error {
	var w blockWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var bags []Props
	if w.Text != nil {
		bags = append(bags, w.Text)
	}
	if w.Table != nil {
		bags = append(bags, w.Table)
	}
	if w.Divider != nil {
		bags = append(bags, w.Divider)
	}
	if w.Barcode != nil {
		bags = append(bags, w.Barcode)
	}
	if w.Image != nil {
		bags = append(bags, w.Image)
	}
	if w.Fiscal != nil {
		bags = append(bags, w.Fiscal)
	}
	if len(bags) != 1 {
		return fmt.Errorf("block %q: expected exactly one property bag, found %d", w.ID, len(bags))
	}
	*b = Block{ID: w.ID, Type: w.Type, Label: w.Label, Order: w.Order, Section: w.Section, Width: w.Width, ShowIf: w.ShowIf, Props: bags[0]}
	return nil
}
