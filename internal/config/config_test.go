/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/zalando/go-keyring"
)

type memTokens map[string]string

func (m memTokens) Get(service, key string) (string, error) {
	v, ok := m[service+"/"+key]
	if !ok {
		return "", keyring.ErrNotFound
	}
	return v, nil
}

func (m memTokens) Set(service, key, value string) error {
	m[service+"/"+key] = value
	return nil
}

func (m memTokens) Delete(service, key string) error {
	if _, ok := m[service+"/"+key]; !ok {
		return keyring.ErrNotFound
	}
	delete(m, service+"/"+key)
	return nil
}

// isolate points the config file at a temp dir and stubs the keyring.
func isolate(t *testing.T) memTokens {
	t.Helper()
	t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "config.yaml"))
	m := memTokens{}
	prev := SetTokenStore(m)
	t.Cleanup(func() { SetTokenStore(prev) })
	return m
}

func TestEnvOverridesBackendURL(t *testing.T) {
	isolate(t)
	t.Setenv(EnvBackendURL, "https://example.test:8443")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, want := cfg.Backend.BaseURL, "https://example.test:8443"; got != want {
		t.Fatalf("Backend.BaseURL = %q, want %q", got, want)
	}
	if env, ok := EnvOverrideFor("backend.base_url"); !ok || env != EnvBackendURL {
		t.Fatalf("EnvOverrideFor = %q %v", env, ok)
	}
	if _, ok := EnvOverrideFor("backend.dsn"); ok {
		t.Fatalf("dsn is not overridden")
	}
}

func TestEnvOverridesIdentityAndEditor(t *testing.T) {
	isolate(t)
	t.Setenv(EnvUser, "ana")
	t.Setenv(EnvRole, "Manager")
	t.Setenv(EnvVenue, "v1")
	t.Setenv(EnvZoom, "150")
	t.Setenv(EnvPaper, "A4")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	g := cfg.General
	if g.User != "ana" || g.Role != "manager" || g.VenueID != "v1" {
		t.Fatalf("identity overrides not applied: %#v", g)
	}
	if cfg.Editor.Zoom != 150 || cfg.Editor.DefaultPaper != "A4" {
		t.Fatalf("editor overrides not applied: %#v", cfg.Editor)
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "debug"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "C:/tmp/pd.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "C:/tmp/pd.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
	opts := dst.Logging.LogOptions()
	if opts.Level != "debug" || !opts.AddSource || opts.File != "C:/tmp/pd.log" {
		t.Fatalf("LogOptions: %#v", opts)
	}
}

func TestMergeKeepsDefaultsForZeroValues(t *testing.T) {
	dst := Defaults()
	var src AppConfig
	src.Backend.DSN = "postgres://db/pd"
	mergeInto(&dst, &src)
	if dst.Backend.DSN != "postgres://db/pd" || dst.Backend.Addr != ":8080" || dst.Editor.Zoom != 100 {
		t.Fatalf("unexpected merge result: %#v", dst)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "X:/pd.log")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "X:/pd.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

func TestSaveLoadRoundTripWithToken(t *testing.T) {
	tokens := isolate(t)
	cfg := Defaults()
	cfg.General.User = "mia"
	cfg.Backend.BaseURL = "https://pd.example"
	cfg.Editor.CoalesceMs = 400
	if err := Save(cfg, "tok-123"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, tok, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tok != "tok-123" || got.General.User != "mia" || got.Backend.BaseURL != "https://pd.example" {
		t.Fatalf("round trip mismatch: %q %#v", tok, got)
	}
	if u := got.Editor.UndoConfig(); u.MinInterval != 400*time.Millisecond || u.MaxBytes != 16<<20 {
		t.Fatalf("UndoConfig: %#v", u)
	}
	if err := ClearToken(); err != nil {
		t.Fatalf("ClearToken: %v", err)
	}
	if len(tokens) != 0 {
		t.Fatalf("token not cleared")
	}
	if err := ClearToken(); err != nil {
		t.Fatalf("clearing a missing token should be a no-op: %v", err)
	}
}

func TestBackendTimeout(t *testing.T) {
	if got := (BackendConfig{}).Timeout(); got != 15*time.Second {
		t.Fatalf("default timeout = %v", got)
	}
	b := BackendConfig{TimeoutMs: 500, TLSInsecure: true}
	c := b.HTTPClient()
	if c.Timeout != 500*time.Millisecond || c.Transport == nil {
		t.Fatalf("unexpected client %#v", c)
	}
}
