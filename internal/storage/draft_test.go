/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"printdesigner/internal/domain"
)

func sampleTemplate(name string) domain.Template {
	return domain.Template{
		ID:     "tpl_1",
		Name:   name,
		Type:   domain.TypeReceipt,
		Status: domain.StatusDraft,
		Layout: domain.Layout{
			Blocks: []*domain.Block{
				{ID: "b1", Type: "venue_info", Order: 0, Section: domain.SectionHeader, Width: domain.Width100,
					Props: &domain.TextProps{Content: "Cafe", FontSize: 16, Alignment: "center", Bold: true}},
				{ID: "b2", Type: "divider", Order: 1, Section: domain.SectionBody, Width: domain.Width100,
					Props: &domain.DividerProps{Style: "dashed", Thickness: 1}},
			},
			PaperProfile: domain.PaperProfile{WidthClass: "80mm", DPI: 203},
		},
	}
}

func TestCreateOpenSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "receipt.pdt.json")

	h, err := Create(path, sampleTemplate("Receipt"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := Create(path, sampleTemplate("Other")); err == nil {
		t.Fatalf("expected Create to refuse an existing file")
	}

	h.Template.Name = "Receipt v2"
	if err := Save(h); err != nil {
		t.Fatalf("Save: %v", err)
	}
	backups, err := Backups(path)
	if err != nil {
		t.Fatalf("Backups: %v", err)
	}
	if len(backups) != 1 {
		t.Fatalf("expected 1 backup after second save, got %d", len(backups))
	}

	got, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got.Recovered {
		t.Fatalf("did not expect recovery")
	}
	if got.Template.Name != "Receipt v2" || len(got.Template.Blocks) != 2 {
		t.Fatalf("unexpected template: %+v", got.Template)
	}
	if p, ok := got.Template.Blocks[1].Props.(*domain.DividerProps); !ok || p.Style != "dashed" {
		t.Fatalf("divider bag not restored: %#v", got.Template.Blocks[1].Props)
	}
}

func TestOpenRecoversFromBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kitchen.pdt.json")
	h, err := Create(path, sampleTemplate("Kitchen"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	// second save produces a backup of the first content
	if err := Save(h); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !got.Recovered || got.Template.Name != "Kitchen" {
		t.Fatalf("expected recovery from backup, got %+v", got)
	}
}

func TestOpenMissingWithoutBackups(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "none.json")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSaveAsMovesHandle(t *testing.T) {
	dir := t.TempDir()
	h, err := Create(filepath.Join(dir, "a.json"), sampleTemplate("A"))
	if err != nil {
		t.Fatal(err)
	}
	np := filepath.Join(dir, "sub", "b.json")
	if err := SaveAs(h, np); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	if h.Path != np {
		t.Fatalf("handle path not updated: %s", h.Path)
	}
	if _, err := os.Stat(np); err != nil {
		t.Fatalf("new file missing: %v", err)
	}
}

func TestAutosaveCrashSnapshot(t *testing.T) {
	dir := t.TempDir()
	h, err := Create(filepath.Join(dir, "a.json"), sampleTemplate("A"))
	if err != nil {
		t.Fatal(err)
	}
	p, err := AutosaveCrashSnapshot(h)
	if err != nil {
		t.Fatalf("AutosaveCrashSnapshot: %v", err)
	}
	if filepath.Dir(p) != StateDir(h.Path) || !strings.Contains(filepath.Base(p), "autosave") {
		t.Fatalf("unexpected autosave path %s", p)
	}
	if _, err := AutosaveCrashSnapshot(nil); err == nil {
		t.Fatalf("expected error for nil handle")
	}
}
