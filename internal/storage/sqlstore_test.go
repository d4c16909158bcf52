/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"printdesigner/internal/domain"
)

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), StateDirName, StoreFileName))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRebind(t *testing.T) {
	q := `SELECT a FROM t WHERE x = ? AND y = ?`
	if got := rebind(DialectSQLite, q); got != q {
		t.Fatalf("sqlite query changed: %s", got)
	}
	if got := rebind(DialectPostgres, q); got != `SELECT a FROM t WHERE x = $1 AND y = $2` {
		t.Fatalf("postgres rebind: %s", got)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.sqlite")
	ctx := context.Background()
	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	v1, err := s.SchemaVersion(ctx)
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Close()
	s, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	v2, err := s.SchemaVersion(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v1 != 1 || v2 != 1 {
		t.Fatalf("schema versions %d %d", v1, v2)
	}
	for _, d := range []Dialect{DialectSQLite, DialectPostgres} {
		ms, err := Migrations(d)
		if err != nil || len(ms) == 0 {
			t.Fatalf("%s migrations: %v %d", d, err, len(ms))
		}
	}
}

func TestTemplateCRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tpl := sampleTemplate("Receipt")
	tpl.ID = ""
	tpl.VenueID = "v1"
	created, err := s.CreateTemplate(ctx, tpl)
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamps: %+v", created)
	}

	got, err := s.GetTemplate(ctx, "v1", created.ID)
	if err != nil {
		t.Fatalf("GetTemplate: %v", err)
	}
	if got.Name != "Receipt" || len(got.Blocks) != 2 || got.PaperProfile.WidthClass != "80mm" {
		t.Fatalf("unexpected template %+v", got)
	}
	if _, err := s.GetTemplate(ctx, "other-venue", created.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected venue scoping, got %v", err)
	}

	got.Name = "Receipt 2"
	got.Blocks = got.Blocks[:1]
	upd, err := s.UpdateTemplate(ctx, got)
	if err != nil {
		t.Fatalf("UpdateTemplate: %v", err)
	}
	if upd.Name != "Receipt 2" || len(upd.Blocks) != 1 {
		t.Fatalf("update not stored: %+v", upd)
	}

	list, err := s.ListTemplates(ctx, "v1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Name != "Receipt 2" {
		t.Fatalf("unexpected list %+v", list)
	}

	missing := got
	missing.ID = "tpl_missing"
	if _, err := s.UpdateTemplate(ctx, missing); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	bad := got
	bad.Type = "poster"
	var ve *domain.ValidationError
	if _, err := s.UpdateTemplate(ctx, bad); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestPublishVersionsAndAudit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	s.SetClock(func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Second) })

	tpl := sampleTemplate("Receipt")
	tpl.VenueID = "v1"
	created, err := s.CreateTemplate(ctx, tpl)
	if err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= 2; i++ {
		v, err := s.Publish(ctx, "v1", created.ID, domain.PublishRequest{Template: created, Notes: "release", User: "ana"})
		if err != nil {
			t.Fatalf("Publish %d: %v", i, err)
		}
		if v.Version != i {
			t.Fatalf("expected version %d, got %d", i, v.Version)
		}
		if len(v.Snapshot.Blocks) != 2 {
			t.Fatalf("snapshot blocks: %d", len(v.Snapshot.Blocks))
		}
	}

	got, err := s.GetTemplate(ctx, "v1", created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusActive {
		t.Fatalf("expected active, got %s", got.Status)
	}
	// a later draft save never demotes an active template
	got.Name = "edited"
	upd, err := s.UpdateTemplate(ctx, got)
	if err != nil {
		t.Fatal(err)
	}
	if upd.Status != domain.StatusActive {
		t.Fatalf("status regressed to %s", upd.Status)
	}

	vs, err := s.ListVersions(ctx, "v1", created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 2 || vs[0].Version != 1 || vs[1].Version != 2 || vs[1].PublishedBy != "ana" {
		t.Fatalf("unexpected versions %+v", vs)
	}

	audit, err := s.ListAudit(ctx, "v1", created.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"create", "publish", "publish", "update"}
	if len(audit) != len(want) {
		t.Fatalf("audit entries %+v", audit)
	}
	for i, a := range want {
		if audit[i].Action != a {
			t.Fatalf("audit[%d] = %s, want %s", i, audit[i].Action, a)
		}
	}

	if _, err := s.ListVersions(ctx, "v1", "tpl_nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPublishCreatesMissingTemplate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	v, err := s.Publish(ctx, "v1", "tpl_new", domain.PublishRequest{Template: sampleTemplate("Fresh"), User: "ana"})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if v.Version != 1 {
		t.Fatalf("version %d", v.Version)
	}
	got, err := s.GetTemplate(ctx, "v1", "tpl_new")
	if err != nil || got.Status != domain.StatusActive {
		t.Fatalf("template not stored active: %+v %v", got, err)
	}
}

func TestUploadAssetDeduplicates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	data := []byte("\x89PNG fake logo")
	a1, err := s.UploadAsset(ctx, "v1", "logo.png", "image/png", data)
	if err != nil {
		t.Fatalf("UploadAsset: %v", err)
	}
	a2, err := s.UploadAsset(ctx, "v1", "logo-again.png", "image/png", data)
	if err != nil {
		t.Fatal(err)
	}
	if a1.Hash != a2.Hash || a2.Name != "logo.png" {
		t.Fatalf("expected dedupe: %+v %+v", a1, a2)
	}
	if a1.URL != AssetPathPrefix+a1.Hash || a1.Size != int64(len(data)) {
		t.Fatalf("unexpected asset %+v", a1)
	}
	_, got, err := s.GetAsset(ctx, "v1", a1.Hash)
	if err != nil || string(got) != string(data) {
		t.Fatalf("GetAsset: %q %v", got, err)
	}
	if _, _, err := s.GetAsset(ctx, "v2", a1.Hash); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected venue scoping, got %v", err)
	}
	if _, err := s.UploadAsset(ctx, "v1", "empty", "", nil); err == nil {
		t.Fatalf("expected empty upload to fail")
	}
}

func TestCreateTemplateIsDraftAndRejectsDuplicates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tpl := sampleTemplate("Kitchen")
	tpl.VenueID = "v1"
	tpl.Status = domain.StatusActive
	created, err := s.CreateTemplate(ctx, tpl)
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	if created.Status != domain.StatusDraft {
		t.Fatalf("create kept status %q", created.Status)
	}

	again := tpl
	again.Name = "Kitchen copy"
	if _, err := s.CreateTemplate(ctx, again); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
	got, err := s.GetTemplate(ctx, "v1", tpl.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Kitchen" || got.Status != domain.StatusDraft {
		t.Fatalf("duplicate create changed the row: %+v", got)
	}
	audit, err := s.ListAudit(ctx, "v1", tpl.ID)
	if err != nil || len(audit) != 1 {
		t.Fatalf("audit %v %d", err, len(audit))
	}

	other := tpl
	other.VenueID = "v2"
	if _, err := s.CreateTemplate(ctx, other); err != nil {
		t.Fatalf("same id in another venue: %v", err)
	}
}
