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
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"printdesigner/internal/domain"
	applog "printdesigner/internal/log"

	// Postgres driver registered as "pgx"
	_ "github.com/jackc/pgx/v5/stdlib"
	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL flavour a store talks.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// AssetPathPrefix is the URL path under which uploaded assets are served.
const AssetPathPrefix = "/api/assets/"

// SQLStore persists templates, versions, the audit trail and assets.
// It is safe for concurrent use.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	log     *slog.Logger
	now     func() time.Time
}

// OpenStore chooses the dialect from dsn: postgres:// and postgresql:// URLs use
// pgx, anything else is a SQLite file path (an optional sqlite: prefix is stripped).
func OpenStore(ctx context.Context, dsn string) (*SQLStore, error) {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return OpenPostgres(ctx, dsn)
	}
	return OpenSQLite(ctx, strings.TrimPrefix(dsn, "sqlite:"))
}

// OpenSQLite opens (creating if needed) a SQLite store at path, enables WAL
// mode and applies pending migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "open_sqlite").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		l.Error("create store dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single writer for an embedded database
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	return newStore(ctx, db, DialectSQLite, l)
}

// OpenPostgres connects through the pgx stdlib driver and applies pending migrations.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "open_postgres")
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		l.Error("ping failed", slog.Any("err", err))
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return newStore(ctx, db, DialectPostgres, l)
}

func newStore(ctx context.Context, db *sql.DB, d Dialect, l *slog.Logger) (*SQLStore, error) {
	if err := applyMigrations(ctx, db, d, l); err != nil {
		_ = db.Close()
		l.Error("migrate failed", slog.Any("err", err))
		return nil, fmt.Errorf("migrate: %w", err)
	}
	l.Info("store ready", slog.String("dialect", string(d)))
	return &SQLStore{db: db, dialect: d, log: applog.WithComponent("storage"), now: time.Now}, nil
}

// Close releases the database handle.
func (s *SQLStore) Close() error { return s.db.Close() }

// Dialect reports which database the store talks to.
func (s *SQLStore) Dialect() Dialect { return s.dialect }

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// SetClock replaces the time source used for timestamps.
func (s *SQLStore) SetClock(now func() time.Time) { s.now = now }

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// rebind rewrites ? placeholders to $n for Postgres.
func rebind(d Dialect, q string) string {
	if d != DialectPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) q(query string) string { return rebind(s.dialect, query) }

// timeLayout is fixed width so stored timestamps sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

const templateCols = `id, venue_id, name, description, type, status, tags, layout, created_at, updated_at`

func scanTemplate(row interface{ Scan(...any) error }) (domain.Template, error) {
	var (
		t                domain.Template
		typ, status      string
		tags, layout     string
		created, updated string
	)
	if err := row.Scan(&t.ID, &t.VenueID, &t.Name, &t.Description, &typ, &status, &tags, &layout, &created, &updated); err != nil {
		return domain.Template{}, err
	}
	t.Type = domain.TemplateType(typ)
	t.Status = domain.Status(status)
	if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
		return domain.Template{}, fmt.Errorf("decode tags: %w", err)
	}
	if err := json.Unmarshal([]byte(layout), &t.Layout); err != nil {
		return domain.Template{}, fmt.Errorf("decode layout: %w", err)
	}
	t.CreatedAt = parseTime(created)
	t.UpdatedAt = parseTime(updated)
	return t, nil
}

func encodeTemplate(t domain.Template) (tags, layout string, err error) {
	if t.Tags == nil {
		t.Tags = []string{}
	}
	tb, err := json.Marshal(t.Tags)
	if err != nil {
		return "", "", err
	}
	if t.Blocks == nil {
		t.Blocks = []*domain.Block{}
	}
	lb, err := json.Marshal(t.Layout)
	if err != nil {
		return "", "", err
	}
	return string(tb), string(lb), nil
}

func validateTemplate(op string, t domain.Template) error {
	if strings.TrimSpace(t.Name) == "" {
		return domain.Invalid(op, "name is required")
	}
	if !t.Type.Valid() {
		return domain.Invalid(op, "unknown template type %q", t.Type)
	}
	return nil
}

// ListTemplates returns the venue's templates, most recently updated first.
func (s *SQLStore) ListTemplates(ctx context.Context, venueID string) ([]domain.TemplateSummary, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT id, name, type, status, updated_at FROM templates WHERE venue_id = ? ORDER BY updated_at DESC, id`), venueID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()
	out := []domain.TemplateSummary{}
	for rows.Next() {
		var (
			sm          domain.TemplateSummary
			typ, status string
			updated     string
		)
		if err := rows.Scan(&sm.ID, &sm.Name, &typ, &status, &updated); err != nil {
			return nil, err
		}
		sm.Type = domain.TemplateType(typ)
		sm.Status = domain.Status(status)
		sm.UpdatedAt = parseTime(updated)
		out = append(out, sm)
	}
	return out, rows.Err()
}

// GetTemplate loads one template or returns domain.ErrNotFound.
func (s *SQLStore) GetTemplate(ctx context.Context, venueID, id string) (domain.Template, error) {
	return s.getTemplate(ctx, s.db, venueID, id)
}

func (s *SQLStore) getTemplate(ctx context.Context, qr querier, venueID, id string) (domain.Template, error) {
	row := qr.QueryRowContext(ctx, s.q(`SELECT `+templateCols+` FROM templates WHERE venue_id = ? AND id = ?`), venueID, id)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Template{}, fmt.Errorf("template %s: %w", id, domain.ErrNotFound)
	}
	return t, err
}

// CreateTemplate inserts a new draft. A missing id is generated. The stored
// status is always draft; only Publish makes a template active. An id that
// already exists in the venue yields domain.ErrConflict.
func (s *SQLStore) CreateTemplate(ctx context.Context, t domain.Template) (domain.Template, error) {
	if err := validateTemplate("create template", t); err != nil {
		return domain.Template{}, err
	}
	if t.ID == "" {
		t.ID = "tpl_" + uuid.Must(uuid.NewV7()).String()
	}
	now := s.now()
	t.CreatedAt, t.UpdatedAt = now, now
	t.Status = domain.StatusDraft
	tags, layout, err := encodeTemplate(t)
	if err != nil {
		return domain.Template{}, fmt.Errorf("encode template: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Template{}, err
	}
	defer func() { _ = tx.Rollback() }()
	res, err := tx.ExecContext(ctx, s.q(`INSERT INTO templates (`+templateCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (venue_id, id) DO NOTHING`),
		t.ID, t.VenueID, t.Name, t.Description, string(t.Type), string(t.Status), tags, layout, formatTime(now), formatTime(now))
	if err != nil {
		return domain.Template{}, fmt.Errorf("insert template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Template{}, fmt.Errorf("template %s: %w", t.ID, domain.ErrConflict)
	}
	if err := s.audit(ctx, tx, t.VenueID, t.ID, "create", "", ""); err != nil {
		return domain.Template{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Template{}, err
	}
	s.log.DebugContext(ctx, "template created", slog.String("id", t.ID), slog.String("venue", t.VenueID))
	return t, nil
}

// UpdateTemplate stores t as the latest draft content. Status never moves back
// from active to draft.
func (s *SQLStore) UpdateTemplate(ctx context.Context, t domain.Template) (domain.Template, error) {
	if err := validateTemplate("update template", t); err != nil {
		return domain.Template{}, err
	}
	tags, layout, err := encodeTemplate(t)
	if err != nil {
		return domain.Template{}, fmt.Errorf("encode template: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Template{}, err
	}
	defer func() { _ = tx.Rollback() }()
	res, err := tx.ExecContext(ctx, s.q(`UPDATE templates SET name = ?, description = ?, type = ?, tags = ?, layout = ?, updated_at = ?
		WHERE venue_id = ? AND id = ?`),
		t.Name, t.Description, string(t.Type), tags, layout, formatTime(s.now()), t.VenueID, t.ID)
	if err != nil {
		return domain.Template{}, fmt.Errorf("update template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Template{}, fmt.Errorf("template %s: %w", t.ID, domain.ErrNotFound)
	}
	if err := s.audit(ctx, tx, t.VenueID, t.ID, "update", "", ""); err != nil {
		return domain.Template{}, err
	}
	out, err := s.getTemplate(ctx, tx, t.VenueID, t.ID)
	if err != nil {
		return domain.Template{}, err
	}
	return out, tx.Commit()
}

// Publish stores req.Template as the latest content, appends the next version
// and marks the template active, all in one transaction. A template that does
// not exist yet is created.
func (s *SQLStore) Publish(ctx context.Context, venueID, id string, req domain.PublishRequest) (domain.Version, error) {
	t := req.Template
	t.ID, t.VenueID = id, venueID
	if err := validateTemplate("publish", t); err != nil {
		return domain.Version{}, err
	}
	tags, layout, err := encodeTemplate(t)
	if err != nil {
		return domain.Version{}, fmt.Errorf("encode template: %w", err)
	}
	snapshot, err := json.Marshal(t.Layout.Clone())
	if err != nil {
		return domain.Version{}, fmt.Errorf("encode snapshot: %w", err)
	}
	now := s.now()
	ts := formatTime(now)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Version{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.q(`INSERT INTO templates (`+templateCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (venue_id, id) DO UPDATE SET name = excluded.name, description = excluded.description,
		type = excluded.type, status = excluded.status, tags = excluded.tags, layout = excluded.layout,
		updated_at = excluded.updated_at`),
		t.ID, t.VenueID, t.Name, t.Description, string(t.Type), string(domain.StatusActive), tags, layout, ts, ts); err != nil {
		return domain.Version{}, fmt.Errorf("upsert template: %w", err)
	}
	var last sql.NullInt64
	if err := tx.QueryRowContext(ctx, s.q(`SELECT MAX(version) FROM template_versions WHERE venue_id = ? AND template_id = ?`), venueID, id).Scan(&last); err != nil {
		return domain.Version{}, fmt.Errorf("next version: %w", err)
	}
	v := domain.Version{
		Version:     int(last.Int64) + 1,
		PublishedAt: now,
		PublishedBy: req.User,
		Notes:       req.Notes,
	}
	if _, err := tx.ExecContext(ctx, s.q(`INSERT INTO template_versions (venue_id, template_id, version, published_at, published_by, notes, snapshot) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		venueID, id, v.Version, ts, v.PublishedBy, v.Notes, string(snapshot)); err != nil {
		return domain.Version{}, fmt.Errorf("insert version: %w", err)
	}
	if err := s.audit(ctx, tx, venueID, id, "publish", req.User, fmt.Sprintf("version %d", v.Version)); err != nil {
		return domain.Version{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Version{}, fmt.Errorf("commit publish: %w", err)
	}
	if err := json.Unmarshal(snapshot, &v.Snapshot); err != nil {
		return domain.Version{}, err
	}
	s.log.InfoContext(ctx, "template published", slog.String("id", id), slog.Int("version", v.Version), slog.String("user", req.User))
	return v, nil
}

func (s *SQLStore) exists(ctx context.Context, venueID, id string) error {
	var one int
	err := s.db.QueryRowContext(ctx, s.q(`SELECT 1 FROM templates WHERE venue_id = ? AND id = ?`), venueID, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("template %s: %w", id, domain.ErrNotFound)
	}
	return err
}

// ListVersions returns the published versions in ascending order.
func (s *SQLStore) ListVersions(ctx context.Context, venueID, id string) ([]domain.Version, error) {
	if err := s.exists(ctx, venueID, id); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT version, published_at, published_by, notes, snapshot FROM template_versions
		WHERE venue_id = ? AND template_id = ? ORDER BY version`), venueID, id)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()
	out := []domain.Version{}
	for rows.Next() {
		var (
			v            domain.Version
			ts, snapshot string
		)
		if err := rows.Scan(&v.Version, &ts, &v.PublishedBy, &v.Notes, &snapshot); err != nil {
			return nil, err
		}
		v.PublishedAt = parseTime(ts)
		if err := json.Unmarshal([]byte(snapshot), &v.Snapshot); err != nil {
			return nil, fmt.Errorf("decode version %d: %w", v.Version, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListAudit returns the audit trail of a template, oldest first.
func (s *SQLStore) ListAudit(ctx context.Context, venueID, id string) ([]domain.AuditEntry, error) {
	if err := s.exists(ctx, venueID, id); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT action, user_name, ts, detail FROM audit_log
		WHERE venue_id = ? AND template_id = ? ORDER BY id`), venueID, id)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()
	out := []domain.AuditEntry{}
	for rows.Next() {
		var (
			e  domain.AuditEntry
			ts string
		)
		if err := rows.Scan(&e.Action, &e.User, &ts, &e.Detail); err != nil {
			return nil, err
		}
		e.Timestamp = parseTime(ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

// audit appends one entry. Ids are UUIDv7 so ordering by id is ordering by time.
func (s *SQLStore) audit(ctx context.Context, qr querier, venueID, templateID, action, user, detail string) error {
	id := uuid.Must(uuid.NewV7()).String()
	if _, err := qr.ExecContext(ctx, s.q(`INSERT INTO audit_log (id, venue_id, template_id, action, user_name, ts, detail) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		id, venueID, templateID, action, user, formatTime(s.now()), detail); err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

// UploadAsset stores data addressed by its SHA-256. Uploading the same bytes
// twice returns the first record.
func (s *SQLStore) UploadAsset(ctx context.Context, venueID, name, contentType string, data []byte) (domain.Asset, error) {
	if len(data) == 0 {
		return domain.Asset{}, domain.Invalid("upload asset", "empty file")
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := s.db.ExecContext(ctx, s.q(`INSERT INTO assets (venue_id, hash, name, content_type, size, data, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (venue_id, hash) DO NOTHING`),
		venueID, hash, name, contentType, int64(len(data)), data, formatTime(s.now())); err != nil {
		return domain.Asset{}, fmt.Errorf("insert asset: %w", err)
	}
	a, _, err := s.GetAsset(ctx, venueID, hash)
	return a, err
}

// GetAsset returns an asset and its bytes, or domain.ErrNotFound.
func (s *SQLStore) GetAsset(ctx context.Context, venueID, hash string) (domain.Asset, []byte, error) {
	var (
		a       domain.Asset
		data    []byte
		created string
	)
	err := s.db.QueryRowContext(ctx, s.q(`SELECT hash, name, content_type, size, data, created_at FROM assets WHERE venue_id = ? AND hash = ?`), venueID, hash).
		Scan(&a.Hash, &a.Name, &a.ContentType, &a.Size, &data, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Asset{}, nil, fmt.Errorf("asset %s: %w", hash, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Asset{}, nil, err
	}
	a.CreatedAt = parseTime(created)
	a.URL = AssetPathPrefix + a.Hash
	return a, data, nil
}
