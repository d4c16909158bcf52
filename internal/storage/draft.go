/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"printdesigner/internal/domain"
)

const (
	// StateDirName holds backups, crash snapshots and the local store next to a draft.
	StateDirName   = ".pd"
	BackupsDirName = "backups"
	StoreFileName  = "store.sqlite"

	backupStamp = "20060102-150405.000"
)

// DraftHandle is a template loaded from or saved to a draft file.
type DraftHandle struct {
	Path     string
	Template domain.Template
	// Recovered is set when Open fell back to a backup.
	Recovered bool
}

// StateDir returns the state directory for the draft at path.
func StateDir(path string) string { return filepath.Join(filepath.Dir(path), StateDirName) }

// BackupsDir returns where backups of the draft at path are kept.
func BackupsDir(path string) string { return filepath.Join(StateDir(path), BackupsDirName) }

// DefaultStorePath is the SQLite store used next to the draft at path.
func DefaultStorePath(path string) string { return filepath.Join(StateDir(path), StoreFileName) }

// Create writes tpl to a new draft file. It fails if the file exists.
func Create(path string, tpl domain.Template) (*DraftHandle, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("draft path is required")
	}
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("create draft: %s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create draft dir: %w", err)
	}
	h := &DraftHandle{Path: path, Template: tpl}
	if err := Save(h); err != nil {
		return nil, err
	}
	return h, nil
}

// Open loads a draft. If the file cannot be read or parsed it falls back to
// the latest backup.
func Open(path string) (*DraftHandle, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		tpl, berr := openFromLatestBackup(path)
		if berr != nil {
			return nil, fmt.Errorf("open draft: %w; backup attempt: %v", err, berr)
		}
		return &DraftHandle{Path: path, Template: *tpl, Recovered: true}, nil
	}
	var tpl domain.Template
	if uerr := json.Unmarshal(b, &tpl); uerr != nil {
		t, berr := openFromLatestBackup(path)
		if berr != nil {
			return nil, fmt.Errorf("parse draft: %w; backup attempt: %v", uerr, berr)
		}
		return &DraftHandle{Path: path, Template: *t, Recovered: true}, nil
	}
	return &DraftHandle{Path: path, Template: tpl}, nil
}

// Save writes the handle's template with transactional semantics and a
// timestamped backup of the previous file (if present).
func Save(h *DraftHandle) error {
	if h == nil {
		return errors.New("nil DraftHandle")
	}
	if h.Path == "" {
		return errors.New("invalid DraftHandle: missing path")
	}
	data, err := json.MarshalIndent(h.Template, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	data = append(data, '\n')

	bdir := BackupsDir(h.Path)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(h.Path); statErr == nil {
		bname := fmt.Sprintf("%s.%s.bak", filepath.Base(h.Path), time.Now().Format(backupStamp))
		if cerr := copyFile(h.Path, filepath.Join(bdir, bname)); cerr != nil {
			return fmt.Errorf("backup current draft: %w", cerr)
		}
	}
	if err := replaceFile(h.Path, data); err != nil {
		return fmt.Errorf("replace draft: %w", err)
	}
	return nil
}

// SaveAs writes the draft to a new path and updates the handle.
func SaveAs(h *DraftHandle, newPath string) error {
	if h == nil {
		return errors.New("nil DraftHandle")
	}
	if newPath == "" {
		return errors.New("new path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	h.Path = newPath
	return Save(h)
}

// AutosaveCrashSnapshot writes the template to a timestamped file in the
// state directory without touching the draft or its backups.
func AutosaveCrashSnapshot(h *DraftHandle) (string, error) {
	if h == nil || h.Path == "" {
		return "", errors.New("no draft to autosave")
	}
	data, err := json.MarshalIndent(h.Template, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal autosave: %w", err)
	}
	dir := StateDir(h.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure state dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s.autosave-%s.json", filepath.Base(h.Path), time.Now().Format(backupStamp)))
	if err := replaceFile(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// replaceFile writes data to a temp file in the target directory and renames it over path.
func replaceFile(path string, data []byte) error {
	temp := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return err
	}
	return nil
}

// writeFileSync writes data to a file and flushes it to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

// Backups lists the backups of the draft at path, oldest first.
func Backups(path string) ([]string, error) {
	bdir := BackupsDir(path)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	prefix := filepath.Base(path) + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out, nil
}

func openFromLatestBackup(path string) (*domain.Template, error) {
	candidates, err := Backups(path)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	latest := candidates[len(candidates)-1]
	b, err := os.ReadFile(latest)
	if err != nil {
		return nil, fmt.Errorf("read latest backup: %w", err)
	}
	var t domain.Template
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("parse latest backup: %w", err)
	}
	return &t, nil
}
