/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"printdesigner/internal/backend"
	"printdesigner/internal/config"
	"printdesigner/internal/domain"
	"printdesigner/internal/editor"
	"printdesigner/internal/lifecycle"
	"printdesigner/internal/paper"
	"printdesigner/internal/proof"
	"printdesigner/internal/registry"
	"printdesigner/internal/schema"
	"printdesigner/internal/storage"
	"printdesigner/internal/undo"
	"printdesigner/internal/version"
	"printdesigner/internal/visibility"
)

type app struct {
	cfg    config.AppConfig
	token  string
	out    io.Writer
	log    *slog.Logger
	onOpen func(*storage.DraftHandle)
}

func (a *app) printf(format string, args ...any) { _, _ = fmt.Fprintf(a.out, format, args...) }

// need returns errUsage unless args has at least n entries.
func need(args []string, n int) error {
	if len(args) < n {
		return errUsage
	}
	return nil
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "version", "--version", "-v":
		a.printf("printdesigner %s\n", version.String())
		return nil
	case "palette":
		return a.palette()
	case "new":
		return a.newDraft(rest)
	case "show":
		if err := need(rest, 1); err != nil {
			return err
		}
		return a.show(rest[0])
	case "add", "move", "reorder", "remove", "set", "width", "when", "paper", "import":
		if err := need(rest, 1); err != nil {
			return err
		}
		return a.edit(rest[0], func(sess *editor.Session) error { return a.editCmd(cmd, sess, rest[1:]) })
	case "zoom":
		return a.zoom(rest)
	case "visible":
		return a.visible(rest)
	case "export":
		return a.export(rest)
	case "lint":
		if err := need(rest, 1); err != nil {
			return err
		}
		return a.lint(rest[0])
	case "proof", "thumb":
		return a.proof(cmd, rest)
	case "save", "publish", "versions", "audit", "preview":
		if err := need(rest, 1); err != nil {
			return err
		}
		return a.storeCmd(ctx, cmd, rest[0], rest[1:])
	case "list":
		return a.withService(ctx, "", func(svc *lifecycle.Service) error {
			list, err := svc.List(ctx)
			if err != nil {
				return err
			}
			for _, t := range list {
				a.printf("%s  %-14s %-6s %s  %s\n", t.ID, t.Type, t.Status, t.UpdatedAt.Format(time.RFC3339), t.Name)
			}
			return nil
		})
	case "upload":
		return a.upload(ctx, rest)
	case "token":
		return a.issueToken(rest)
	case "login":
		if err := need(rest, 1); err != nil {
			return err
		}
		if err := config.Save(a.cfg, rest[0]); err != nil {
			return err
		}
		a.printf("token stored in the OS keyring\n")
		return nil
	case "serve":
		return a.serve(ctx)
	}
	return errUsage
}

func (a *app) palette() error {
	for _, g := range registry.Catalog() {
		a.printf("%s\n", g.Label)
		for _, d := range g.Types {
			a.printf("  %-16s %-18s %s\n", d.Type, d.Label, d.Kind())
		}
	}
	return nil
}

func (a *app) newDraft(args []string) error {
	if err := need(args, 2); err != nil {
		return err
	}
	typ := domain.TypeReceipt
	if len(args) > 2 {
		typ = domain.TemplateType(args[2])
		if !typ.Valid() {
			return domain.Invalid("new", "unknown template type %q", args[2])
		}
	}
	tpl := editor.NewTemplate(args[1], typ)
	tpl.VenueID = a.cfg.General.VenueID
	if e, ok := paper.Lookup(a.cfg.Editor.DefaultPaper); ok {
		tpl.PaperProfile = e.Profile()
	}
	h, err := storage.Create(args[0], tpl)
	if err != nil {
		return err
	}
	a.track(h)
	a.printf("created %s (%s)\n", h.Path, tpl.ID)
	return nil
}

func (a *app) track(h *storage.DraftHandle) {
	if a.onOpen != nil {
		a.onOpen(h)
	}
}

func (a *app) open(path string) (*storage.DraftHandle, *editor.Session, error) {
	h, err := storage.Open(path)
	if err != nil {
		return nil, nil, err
	}
	if h.Recovered {
		a.log.Warn("draft recovered from backup", slog.String("path", path))
	}
	a.track(h)
	sess := editor.NewSession(h.Template,
		editor.WithUndo(undo.NewManager(a.cfg.Editor.UndoConfig())),
		editor.WithLogger(a.log),
	)
	sess.SetZoom(a.cfg.Editor.Zoom)
	return h, sess, nil
}

// edit opens the draft, applies fn and saves the result if anything changed.
func (a *app) edit(path string, fn func(*editor.Session) error) error {
	h, sess, err := a.open(path)
	if err != nil {
		return err
	}
	rev := sess.Revision()
	if err := fn(sess); err != nil {
		return err
	}
	if sess.Revision() == rev {
		a.printf("no change\n")
		return nil
	}
	return a.saveDraft(h, sess)
}

func (a *app) saveDraft(h *storage.DraftHandle, sess *editor.Session) error {
	h.Template = sess.Template()
	a.track(h)
	return storage.Save(h)
}

func (a *app) editCmd(cmd string, sess *editor.Session, args []string) error {
	switch cmd {
	case "add":
		if err := need(args, 1); err != nil {
			return err
		}
		def, ok := registry.Lookup(domain.BlockType(args[0]))
		if !ok {
			return domain.Invalid("add", "unknown block type %q", args[0])
		}
		if len(args) > 1 {
			idx, err := strconv.Atoi(args[1])
			if err != nil {
				return errUsage
			}
			b := sess.NewBlock(def)
			if err := sess.InsertBlockAt(b, idx); err != nil {
				return err
			}
			a.printf("added %s\n", b.ID)
			return nil
		}
		b := sess.AddBlock(def)
		a.printf("added %s\n", b.ID)
		return nil
	case "move":
		if err := need(args, 2); err != nil {
			return err
		}
		dir, err := editor.ParseDirection(args[1])
		if err != nil {
			return err
		}
		return sess.MoveBlock(args[0], dir)
	case "reorder":
		if err := need(args, 2); err != nil {
			return err
		}
		idx, err := strconv.Atoi(args[1])
		if err != nil {
			return errUsage
		}
		return sess.ReorderBlock(args[0], idx)
	case "remove":
		if err := need(args, 1); err != nil {
			return err
		}
		return sess.RemoveBlock(args[0])
	case "set":
		if err := need(args, 4); err != nil {
			return err
		}
		// "text" and "text_props" both name the text bag
		kind := domain.PropsKind(strings.TrimSuffix(args[1], "_props") + "_props")
		v, err := schema.ParseInput(kind, args[2], args[3])
		if err != nil {
			return err
		}
		return sess.UpdateProp(args[0], kind, args[2], v)
	case "width":
		if err := need(args, 2); err != nil {
			return err
		}
		w, err := strconv.Atoi(args[1])
		if err != nil {
			return errUsage
		}
		return sess.SetBlockWidth(args[0], domain.BlockWidth(w))
	case "when":
		if len(args) == 2 && args[1] == "off" {
			return sess.ClearShowIf(args[0])
		}
		if err := need(args, 3); err != nil {
			return err
		}
		rule := domain.ConditionalRule{Field: args[1], Operator: domain.Operator(args[2])}
		if len(args) > 3 {
			rule.Value = ruleValue(args[3])
		}
		return sess.SetShowIf(args[0], rule)
	case "paper":
		if err := need(args, 1); err != nil {
			return err
		}
		return sess.SetPaperProfile(strings.Join(args, " "))
	case "import":
		if err := need(args, 1); err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		doc, err := lifecycle.Import(sess, data)
		if err != nil {
			return err
		}
		a.printf("imported %d blocks\n", len(doc.Blocks))
		return nil
	}
	return errUsage
}

// ruleValue reads a JSON literal (number, bool, null, quoted string) and
// falls back to the raw text.
func ruleValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

func (a *app) show(path string) error {
	_, sess, err := a.open(path)
	if err != nil {
		return err
	}
	t := sess.Template()
	pp := t.PaperProfile
	a.printf("%s  %s  [%s, %s]\n", t.ID, t.Name, t.Type, t.Status)
	if t.Description != "" {
		a.printf("%s\n", t.Description)
	}
	a.printf("paper: %s %d dpi, margins %.1f/%.1f/%.1f/%.1f mm, cut feed %d\n",
		paper.ForProfile(pp).Label, pp.DPI, pp.MarginLeft, pp.MarginRight, pp.MarginTop, pp.MarginBottom, pp.CutFeed)
	for _, b := range t.Blocks {
		a.printf("%s\n", editor.Describe(b))
	}
	return nil
}

func (a *app) zoom(args []string) error {
	if err := need(args, 2); err != nil {
		return err
	}
	z, err := strconv.Atoi(args[1])
	if err != nil {
		return errUsage
	}
	_, sess, err := a.open(args[0])
	if err != nil {
		return err
	}
	sess.SetZoom(z)
	g := sess.Geometry()
	a.printf("%s at %d%%: canvas %.1fpx, content %.1fpx from %.1fpx, %.2f px/mm, font %dpx\n",
		g.Entry.Label, g.Zoom, g.CanvasWidthPx, g.ContentPx, g.ContentLeftPx, g.PxPerMM, g.FontPx)
	return nil
}

func readContext(path string) (domain.RenderContext, error) {
	var rc domain.RenderContext
	data, err := os.ReadFile(path)
	if err != nil {
		return rc, err
	}
	if err := json.Unmarshal(data, &rc); err != nil {
		return rc, domain.Invalid("read context", "%v", err)
	}
	return rc, nil
}

func (a *app) visible(args []string) error {
	if err := need(args, 2); err != nil {
		return err
	}
	gated := !(len(args) > 2 && args[2] == "--ungated")
	_, sess, err := a.open(args[0])
	if err != nil {
		return err
	}
	rc, err := readContext(args[1])
	if err != nil {
		return err
	}
	ctx := visibility.Context(rc.Map())
	for _, b := range sess.Blocks() {
		state := "hidden"
		if visibility.Visible(b, ctx, gated) {
			state = "shown"
		}
		a.printf("%-6s %s\n", state, editor.Describe(b))
	}
	return nil
}

func (a *app) export(args []string) error {
	if err := need(args, 2); err != nil {
		return err
	}
	_, sess, err := a.open(args[0])
	if err != nil {
		return err
	}
	f, err := os.Create(args[1])
	if err != nil {
		return err
	}
	if err := lifecycle.Encode(f, lifecycle.Export(sess.Template())); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (a *app) lint(path string) error {
	_, sess, err := a.open(path)
	if err != nil {
		return err
	}
	issues := schema.Lint(sess.Layout())
	for _, is := range issues {
		a.printf("%s\n", is)
	}
	if len(issues) == 0 {
		a.printf("ok\n")
	}
	return nil
}

func (a *app) proof(cmd string, args []string) error {
	if err := need(args, 2); err != nil {
		return err
	}
	opt := proof.Options{Zoom: a.cfg.Editor.Zoom}
	if len(args) > 2 {
		z, err := strconv.Atoi(args[2])
		if err != nil {
			return errUsage
		}
		opt.Zoom = paper.ClampZoom(z)
	}
	_, sess, err := a.open(args[0])
	if err != nil {
		return err
	}
	t := sess.Template()
	if cmd == "proof" {
		return proof.WritePDFFile(args[1], t, proof.PDFOptions{Options: opt, IncludeGuides: true})
	}
	f, err := os.Create(args[1])
	if err != nil {
		return err
	}
	if err := proof.WritePNG(f, t, opt); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (a *app) caller() lifecycle.Caller {
	g := a.cfg.General
	user := g.User
	if user == "" {
		user = os.Getenv("USER")
	}
	return lifecycle.Caller{User: user, Role: g.Role, VenueID: g.VenueID}
}

// withService builds a lifecycle service over the remote backend when one is
// configured, otherwise over the SQL store (defaulting to SQLite next to draftPath).
func (a *app) withService(ctx context.Context, draftPath string, fn func(*lifecycle.Service) error) error {
	b := a.cfg.Backend
	if b.BaseURL != "" {
		c := backend.NewClient(b.BaseURL, a.token, b.Timeout()).WithHTTPClient(b.HTTPClient())
		if b.RenderURL != "" {
			c.RenderURL = strings.TrimRight(b.RenderURL, "/")
		}
		return fn(lifecycle.NewService(c, c, a.caller()))
	}
	dsn := b.DSN
	if dsn == "" {
		if draftPath == "" {
			draftPath = filepath.Join(".", "draft")
		}
		dsn = storage.DefaultStorePath(draftPath)
	}
	st, err := storage.OpenStore(ctx, dsn)
	if err != nil {
		return err
	}
	defer st.Close()
	var render lifecycle.Renderer
	if b.RenderURL != "" {
		render = backend.NewClient(b.RenderURL, a.token, b.Timeout()).WithHTTPClient(b.HTTPClient())
	}
	return fn(lifecycle.NewService(st, render, a.caller()))
}

func (a *app) storeCmd(ctx context.Context, cmd, path string, args []string) error {
	h, sess, err := a.open(path)
	if err != nil {
		return err
	}
	return a.withService(ctx, path, func(svc *lifecycle.Service) error {
		id := sess.Template().ID
		switch cmd {
		case "save":
			saved, err := svc.SaveDraft(ctx, sess)
			if err != nil {
				return err
			}
			a.printf("saved %s at %s\n", saved.ID, saved.UpdatedAt.Format(time.RFC3339))
			return a.saveDraft(h, sess)
		case "publish":
			v, err := svc.Publish(ctx, sess, strings.Join(args, " "))
			if err != nil {
				return err
			}
			a.printf("published %s version %d\n", id, v.Version)
			return a.saveDraft(h, sess)
		case "versions":
			vs, err := svc.Versions(ctx, id)
			if err != nil {
				return err
			}
			for _, v := range vs {
				a.printf("v%-3d %s  %-12s %d blocks  %s\n", v.Version, v.PublishedAt.Format(time.RFC3339), v.PublishedBy, len(v.Snapshot.Blocks), v.Notes)
			}
			return nil
		case "audit":
			es, err := svc.Audit(ctx, id)
			if err != nil {
				return err
			}
			for _, e := range es {
				a.printf("%s  %-8s %-12s %s\n", e.Timestamp.Format(time.RFC3339), e.Action, e.User, e.Detail)
			}
			return nil
		case "preview":
			if err := need(args, 1); err != nil {
				return err
			}
			rc, err := readContext(args[0])
			if err != nil {
				return err
			}
			format := "html"
			if len(args) > 1 {
				format = args[1]
			}
			out, err := svc.Preview(ctx, sess, rc, format)
			if err != nil {
				return err
			}
			a.printf("%s\n", out.Body)
			return nil
		}
		return errUsage
	})
}

func (a *app) upload(ctx context.Context, args []string) error {
	if err := need(args, 1); err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	name := filepath.Base(args[0])
	return a.withService(ctx, "", func(svc *lifecycle.Service) error {
		asset, err := svc.UploadAsset(ctx, name, mime.TypeByExtension(filepath.Ext(name)), data)
		if err != nil {
			return err
		}
		a.printf("%s %s\n", asset.Hash, asset.URL)
		return nil
	})
}

func (a *app) issueToken(args []string) error {
	if err := need(args, 2); err != nil {
		return err
	}
	venue := a.cfg.General.VenueID
	if len(args) > 2 {
		venue = args[2]
	}
	tok, err := backend.IssueToken(config.AuthSecret(), args[0], args[1], venue, 30*24*time.Hour)
	if err != nil {
		return err
	}
	a.printf("%s\n", tok)
	return nil
}

const devSecret = "dev-secret-change-me"

func (a *app) serve(ctx context.Context) error {
	b := a.cfg.Backend
	dsn := b.DSN
	if dsn == "" {
		dsn = filepath.Join(storage.StateDirName, storage.StoreFileName)
	}
	st, err := storage.OpenStore(ctx, dsn)
	if err != nil {
		return err
	}
	defer st.Close()

	secret := config.AuthSecret()
	dev := false
	if len(secret) == 0 {
		secret = []byte(devSecret)
		dev = true
		a.log.Warn("PD_AUTH_SECRET not set; using insecure dev secret and enabling /api/auth/token")
	}
	opts := []backend.Option{backend.WithDevTokens(dev)}
	if b.RenderURL != "" {
		opts = append(opts, backend.WithRenderer(backend.NewClient(b.RenderURL, a.token, b.Timeout()).WithHTTPClient(b.HTTPClient())))
	}
	err = backend.NewServer(st, secret, opts...).ListenAndServe(ctx, b.Addr)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
