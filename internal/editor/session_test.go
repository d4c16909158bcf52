/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"printdesigner/internal/domain"
	"printdesigner/internal/registry"
	"printdesigner/internal/undo"
)

func newTestSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	n := 0
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithIDGenerator(func() string { n++; return fmt.Sprintf("b%d", n) }),
	}
	return NewSession(NewTemplate("Receipt", domain.TypeReceipt), append(base, opts...)...)
}

func mustAdd(t *testing.T, s *Session, typ domain.BlockType) *domain.Block {
	t.Helper()
	b, err := s.Add(typ)
	if err != nil {
		t.Fatalf("add %s: %v", typ, err)
	}
	return b
}

func types(s *Session) []domain.BlockType {
	var out []domain.BlockType
	for _, b := range s.Blocks() {
		out = append(out, b.Type)
	}
	return out
}

func assertContiguous(t *testing.T, s *Session) {
	t.Helper()
	for i, b := range s.Blocks() {
		if b.Order != i {
			t.Fatalf("block %s at %d has order %d", b.ID, i, b.Order)
		}
	}
}

func TestAddMoveRemoveScenario(t *testing.T) {
	s := newTestSession(t)
	logo := mustAdd(t, s, "logo")
	mustAdd(t, s, "text")
	div := mustAdd(t, s, "divider")

	if s.Selected() != div.ID {
		t.Fatalf("new block should be selected")
	}
	if logo.Section != domain.SectionHeader || div.Section != domain.SectionBody || logo.ShowIf != nil {
		t.Fatalf("unexpected defaults: %+v %+v", logo, div)
	}

	if err := s.MoveBlock(div.ID, Up); err != nil {
		t.Fatalf("move: %v", err)
	}
	if got := fmt.Sprint(types(s)); got != "[logo divider text]" {
		t.Fatalf("after move: %s", got)
	}
	assertContiguous(t, s)

	if err := s.RemoveBlock(logo.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if got := fmt.Sprint(types(s)); got != "[divider text]" {
		t.Fatalf("after remove: %s", got)
	}
	assertContiguous(t, s)
}

func TestMoveAtBoundaryIsNoop(t *testing.T) {
	s := newTestSession(t)
	a := mustAdd(t, s, "text")
	b := mustAdd(t, s, "divider")
	rev := s.Revision()
	if err := s.MoveBlock(a.ID, Up); err != nil {
		t.Fatalf("move: %v", err)
	}
	if err := s.MoveBlock(b.ID, Down); err != nil {
		t.Fatalf("move: %v", err)
	}
	if s.Revision() != rev {
		t.Fatalf("boundary moves must not change the template")
	}
}

func TestRemoveClearsSelection(t *testing.T) {
	s := newTestSession(t)
	a := mustAdd(t, s, "text")
	mustAdd(t, s, "text")
	if err := s.Select(a.ID); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := s.RemoveBlock(a.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if s.Selected() != "" {
		t.Fatalf("selection should be cleared")
	}
	if err := s.RemoveBlock("nope"); !errors.Is(err, ErrUnknownBlock) {
		t.Fatalf("want ErrUnknownBlock, got %v", err)
	}
}

func TestOrderStaysContiguousUnderRandomEdits(t *testing.T) {
	s := newTestSession(t)
	rng := rand.New(rand.NewSource(7))
	all := []domain.BlockType{"logo", "text", "divider", "items_table", "qr_code", "thank_you"}
	for step := 0; step < 500; step++ {
		blocks := s.Blocks()
		switch op := rng.Intn(5); {
		case op == 0 || len(blocks) == 0:
			mustAdd(t, s, all[rng.Intn(len(all))])
		case op == 1:
			_ = s.MoveBlock(blocks[rng.Intn(len(blocks))].ID, Direction(rng.Intn(2)))
		case op == 2:
			_ = s.RemoveBlock(blocks[rng.Intn(len(blocks))].ID)
		case op == 3:
			_ = s.ReorderBlock(blocks[rng.Intn(len(blocks))].ID, rng.Intn(len(blocks)+3)-1)
		default:
			def, _ := registry.Lookup(all[rng.Intn(len(all))])
			if err := s.InsertBlockAt(s.NewBlock(def), rng.Intn(len(blocks)+3)-1); err != nil {
				t.Fatalf("insert: %v", err)
			}
		}
		assertContiguous(t, s)
	}
}

func TestInsertClampsAndSelects(t *testing.T) {
	s := newTestSession(t)
	mustAdd(t, s, "text")
	def, _ := registry.Lookup("divider")
	first := s.NewBlock(def)
	if err := s.InsertBlockAt(first, -5); err != nil {
		t.Fatalf("insert: %v", err)
	}
	last := s.NewBlock(def)
	if err := s.InsertBlockAt(last, 99); err != nil {
		t.Fatalf("insert: %v", err)
	}
	bs := s.Blocks()
	if bs[0].ID != first.ID || bs[2].ID != last.ID || s.Selected() != last.ID {
		t.Fatalf("unexpected placement")
	}
	if err := s.InsertBlockAt(first, 0); err == nil {
		t.Fatalf("duplicate id must be rejected")
	}
}

func TestReorder(t *testing.T) {
	s := newTestSession(t)
	a := mustAdd(t, s, "logo")
	mustAdd(t, s, "text")
	mustAdd(t, s, "divider")

	before := s.Blocks()
	rev := s.Revision()
	for _, target := range []int{0, 1} {
		if err := s.ReorderBlock(a.ID, target); err != nil {
			t.Fatalf("reorder: %v", err)
		}
	}
	if s.Revision() != rev {
		t.Fatalf("dropping onto own slot must be a no-op")
	}
	for i, b := range s.Blocks() {
		if b != before[i] {
			t.Fatalf("block %d changed identity", i)
		}
	}

	if err := s.ReorderBlock(a.ID, 3); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if got := fmt.Sprint(types(s)); got != "[text divider logo]" {
		t.Fatalf("after reorder to end: %s", got)
	}
	if err := s.ReorderBlock(a.ID, 1); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if got := fmt.Sprint(types(s)); got != "[text logo divider]" {
		t.Fatalf("after reorder to 1: %s", got)
	}
	assertContiguous(t, s)
}

func TestUpdatePropTouchesOneField(t *testing.T) {
	s := newTestSession(t)
	a := mustAdd(t, s, "text")
	b := mustAdd(t, s, "items_table")
	c := mustAdd(t, s, "divider")
	before := s.Blocks()
	oldBag := before[1].Props.(*domain.TableProps)

	if err := s.UpdateProp(b.ID, domain.KindTable, "show_totals", true); err != nil {
		t.Fatalf("update: %v", err)
	}
	after := s.Blocks()
	if after[0] != a || after[2] != c {
		t.Fatalf("other blocks must stay reference-equal")
	}
	if after[1] == before[1] {
		t.Fatalf("edited block must be a new value")
	}
	newBag := after[1].Props.(*domain.TableProps)
	if !newBag.ShowTotals || oldBag.ShowTotals {
		t.Fatalf("field not applied immutably")
	}
	if &newBag.Columns[0] != &oldBag.Columns[0] || newBag.DataSource != oldBag.DataSource {
		t.Fatalf("untouched fields should be shared")
	}
	if after[1].ShowIf != before[1].ShowIf || after[1].Label != before[1].Label {
		t.Fatalf("block metadata changed")
	}

	if err := s.UpdateProp(b.ID, domain.KindText, "bold", true); err == nil {
		t.Fatalf("wrong bag must be rejected")
	}
	if err := s.UpdateProp(c.ID, domain.KindDivider, "thickness", 40); err != nil {
		t.Fatalf("out-of-range values are accepted: %v", err)
	}
}

func TestBlockMetadataEdits(t *testing.T) {
	s := newTestSession(t)
	a := mustAdd(t, s, "text")
	if err := s.SetBlockWidth(a.ID, 33); err == nil {
		t.Fatalf("width 33 must be rejected")
	}
	if err := s.SetBlockWidth(a.ID, domain.Width50); err != nil {
		t.Fatalf("width: %v", err)
	}
	if err := s.SetShowIf(a.ID, domain.ConditionalRule{Field: "order.total", Operator: "gte", Value: 1}); err == nil {
		t.Fatalf("unknown operator must be rejected")
	}
	if err := s.SetShowIf(a.ID, domain.ConditionalRule{Field: "order.total", Operator: domain.OpGt, Value: 50}); err != nil {
		t.Fatalf("show_if: %v", err)
	}
	if err := s.SetLabel(a.ID, "Big total note"); err != nil {
		t.Fatalf("label: %v", err)
	}
	got, _ := s.Block(a.ID)
	if got.Width != domain.Width50 || got.ShowIf == nil || got.ShowIf.Operator != domain.OpGt || got.Label != "Big total note" {
		t.Fatalf("unexpected block %+v", got)
	}
	if v, ok := got.ShowIf.Value.(float64); !ok || v != 50 {
		t.Fatalf("rule value %#v, want float64(50)", got.ShowIf.Value)
	}
	if err := s.ClearShowIf(a.ID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got, _ := s.Block(a.ID); got.ShowIf != nil {
		t.Fatalf("rule not cleared")
	}
}

func TestPaperEdits(t *testing.T) {
	s := newTestSession(t)
	if err := s.SetMargins(5, 6, 7, 8); err != nil {
		t.Fatalf("margins: %v", err)
	}
	if err := s.SetPaperProfile("A4"); err != nil {
		t.Fatalf("paper: %v", err)
	}
	p := s.Layout().PaperProfile
	if p.WidthClass != "a4" || p.MarginLeft != 5 || p.MarginBottom != 8 {
		t.Fatalf("unexpected profile %+v", p)
	}
	if err := s.SetPaperProfile("Custom"); err != nil {
		t.Fatalf("paper: %v", err)
	}
	if p := s.Layout().PaperProfile; p.MarginLeft == 5 {
		t.Fatalf("custom must reset margins: %+v", p)
	}
	if err := s.SetCutFeed(-1); err == nil {
		t.Fatalf("negative cut feed must be rejected")
	}
	if z := s.SetZoom(333); z != 200 || s.Geometry().Zoom != 200 {
		t.Fatalf("zoom not clamped: %d", z)
	}
}

func TestDragMachine(t *testing.T) {
	s := newTestSession(t)
	a := mustAdd(t, s, "text")
	mustAdd(t, s, "divider")

	if _, ok := s.Drag().(Idle); !ok {
		t.Fatalf("sessions start idle")
	}
	if _, err := s.Drop(0); !errors.Is(err, ErrNoDrag) {
		t.Fatalf("drop while idle: %v", err)
	}

	def, _ := registry.Lookup("logo")
	s.BeginPaletteDrag(def)
	rev := s.Revision()
	s.CancelDrag()
	if _, ok := s.Drag().(Idle); !ok || s.Revision() != rev {
		t.Fatalf("cancel must not mutate")
	}

	s.BeginPaletteDrag(def)
	if err := s.BeginBlockDrag(a.ID); err != nil {
		t.Fatalf("block drag: %v", err)
	}
	if d, ok := s.Drag().(DraggingExisting); !ok || d.BlockID != a.ID {
		t.Fatalf("block drag should replace palette drag, got %T", s.Drag())
	}
	if _, err := s.Drop(2); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if got := fmt.Sprint(types(s)); got != "[divider text]" {
		t.Fatalf("after block drop: %s", got)
	}

	s.BeginPaletteDrag(def)
	nb, err := s.Drop(0)
	if err != nil {
		t.Fatalf("palette drop: %v", err)
	}
	if got := fmt.Sprint(types(s)); got != "[logo divider text]" || s.Selected() != nb.ID || nb.Order != 0 {
		t.Fatalf("after palette drop: %s", got)
	}
	if _, ok := s.Drag().(Idle); !ok {
		t.Fatalf("drop must end the drag")
	}
	assertContiguous(t, s)
}

func TestUndoRedo(t *testing.T) {
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newTestSession(t,
		WithUndo(undo.NewManager(undo.Config{MinInterval: time.Second})),
		WithClock(func() time.Time { return clock }),
	)
	a := mustAdd(t, s, "text")
	clock = clock.Add(5 * time.Second)
	for _, c := range []string{"H", "He", "Hel"} {
		if err := s.UpdateProp(a.ID, domain.KindText, "content", c); err != nil {
			t.Fatalf("update: %v", err)
		}
		clock = clock.Add(100 * time.Millisecond)
	}
	content := func() string {
		b, _ := s.Block(a.ID)
		return b.Props.(*domain.TextProps).Content
	}
	if content() != "Hel" {
		t.Fatalf("content %q", content())
	}

	if ok, err := s.Undo(); !ok || err != nil {
		t.Fatalf("undo: %v %v", ok, err)
	}
	if content() != "Text" {
		t.Fatalf("typing burst should undo at once, got %q", content())
	}
	if ok, _ := s.Undo(); !ok || len(s.Blocks()) != 0 {
		t.Fatalf("second undo should remove the block")
	}
	if ok, _ := s.Undo(); ok {
		t.Fatalf("history should be exhausted")
	}
	if ok, _ := s.Redo(); !ok || len(s.Blocks()) != 1 {
		t.Fatalf("redo should restore the block")
	}
	if ok, _ := s.Redo(); !ok || content() != "Hel" {
		t.Fatalf("redo should restore typing")
	}
	if s.CanRedo() {
		t.Fatalf("redo exhausted")
	}
}

func TestReplaceIfRevision(t *testing.T) {
	s := newTestSession(t)
	rev := s.Revision()
	server := s.Template()
	server.Name = "From server"

	mustAdd(t, s, "text")
	if s.ReplaceIfRevision(rev, server) {
		t.Fatalf("stale response must be dropped")
	}
	if s.Template().Name != "Receipt" || len(s.Blocks()) != 1 {
		t.Fatalf("local edit lost")
	}
	if !s.ReplaceIfRevision(s.Revision(), server) || s.Template().Name != "From server" {
		t.Fatalf("fresh response should apply")
	}
}

func TestApplyImport(t *testing.T) {
	s := newTestSession(t)
	mustAdd(t, s, "text")
	profile := s.Layout().PaperProfile
	def, _ := registry.Lookup("divider")
	doc := domain.ExportDocument{
		Name: "Kitchen", Type: domain.TypeKitchenOrder,
		Blocks: []*domain.Block{{ID: "x", Type: "divider", Order: 7, Section: domain.SectionBody, Width: domain.Width100, Props: def.NewProps()}},
	}
	if err := s.ApplyImport(doc); err != nil {
		t.Fatalf("import: %v", err)
	}
	got := s.Template()
	if got.Name != "Kitchen" || len(got.Blocks) != 1 || got.Blocks[0].Order != 0 || got.PaperProfile != profile {
		t.Fatalf("unexpected template %+v", got)
	}
	if doc.Blocks[0].Order != 7 {
		t.Fatalf("import must not modify the document")
	}
}
