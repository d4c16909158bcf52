/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	applog "printdesigner/internal/log"
	"printdesigner/internal/paper"
	"printdesigner/internal/undo"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type GeneralConfig struct {
	User    string `yaml:"user"`
	Role    string `yaml:"role"`
	VenueID string `yaml:"venue_id"`
}

type BackendConfig struct {
	BaseURL     string `yaml:"base_url"`   // persistence service; empty means the local store
	RenderURL   string `yaml:"render_url"` // render service; defaults to base_url
	TimeoutMs   int    `yaml:"timeout_ms"`
	TLSInsecure bool   `yaml:"tls_insecure"`
	DSN         string `yaml:"dsn"`  // local or served store
	Addr        string `yaml:"addr"` // serve bind address
	// Token is not stored on disk; it lives in the OS keychain.
}

type EditorConfig struct {
	DefaultPaper string `yaml:"default_paper"`
	Zoom         int    `yaml:"zoom"`
	UndoMaxBytes int    `yaml:"undo_max_bytes"`
	UndoMaxDepth int    `yaml:"undo_max_depth"`
	CoalesceMs   int    `yaml:"coalesce_ms"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Backend       BackendConfig `yaml:"backend"`
	Editor        EditorConfig  `yaml:"editor"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Role: "staff"},
		Backend:       BackendConfig{TimeoutMs: 15000, Addr: ":8080"},
		Editor: EditorConfig{
			DefaultPaper: "80mm Thermal",
			Zoom:         paper.DefaultZoom,
			UndoMaxBytes: 16 << 20,
			UndoMaxDepth: 200,
			CoalesceMs:   250,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath       = "PD_CONFIG"
	EnvBackendURL       = "PD_BACKEND_URL"
	EnvRenderURL        = "PD_RENDER_URL"
	EnvBackendTimeoutMs = "PD_BACKEND_TIMEOUT_MS"
	EnvBackendTLSInsec  = "PD_TLS_INSECURE"
	EnvStoreDSN         = "PD_STORE_DSN"
	EnvListenAddr       = "PD_LISTEN_ADDR"
	EnvUser             = "PD_USER"
	EnvRole             = "PD_ROLE"
	EnvVenue            = "PD_VENUE"
	EnvPaper            = "PD_PAPER"
	EnvZoom             = "PD_ZOOM"
	// EnvAuthSecret signs backend tokens; it is never read from the file.
	EnvAuthSecret = "PD_AUTH_SECRET"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "PD_LOG_LEVEL"
	EnvLogFormat = "PD_LOG_FORMAT"
	EnvLogSource = "PD_LOG_SOURCE"
	EnvLogFile   = "PD_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService = "printdesigner"
	keyringToken   = "backend_token"
)

// TokenStore abstracts the keyring so tests can stub it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

var tokenStore TokenStore = osKeyring{}

// SetTokenStore replaces the keyring backend and returns the previous one.
func SetTokenStore(ts TokenStore) TokenStore {
	prev := tokenStore
	tokenStore = ts
	return prev
}

// ConfigPath returns the per-user config file path. PD_CONFIG overrides it.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "PrintDesigner")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "PrintDesigner")
	default: // linux and others
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "printdesigner")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "printdesigner")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads user config file (if present), applies defaults, and merges environment overrides.
// The backend token comes from the keyring and is returned separately; a
// missing keyring entry yields an empty token.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", err
		}
		mergeInto(&cfg, &fileCfg)
	}
	applyEnvOverrides(&cfg)
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into OS keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return err
		}
	}
	return nil
}

// ClearToken removes the stored backend token.
func ClearToken() error {
	err := tokenStore.Delete(keyringService, keyringToken)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if s := strings.TrimSpace(src.General.User); s != "" {
		dst.General.User = s
	}
	if s := strings.TrimSpace(src.General.Role); s != "" {
		dst.General.Role = strings.ToLower(s)
	}
	if s := strings.TrimSpace(src.General.VenueID); s != "" {
		dst.General.VenueID = s
	}
	if src.Backend.BaseURL != "" {
		dst.Backend.BaseURL = src.Backend.BaseURL
	}
	if src.Backend.RenderURL != "" {
		dst.Backend.RenderURL = src.Backend.RenderURL
	}
	if src.Backend.TimeoutMs != 0 {
		dst.Backend.TimeoutMs = src.Backend.TimeoutMs
	}
	dst.Backend.TLSInsecure = src.Backend.TLSInsecure
	if src.Backend.DSN != "" {
		dst.Backend.DSN = src.Backend.DSN
	}
	if src.Backend.Addr != "" {
		dst.Backend.Addr = src.Backend.Addr
	}
	// editor
	if src.Editor.DefaultPaper != "" {
		dst.Editor.DefaultPaper = src.Editor.DefaultPaper
	}
	if src.Editor.Zoom != 0 {
		dst.Editor.Zoom = src.Editor.Zoom
	}
	if src.Editor.UndoMaxBytes != 0 {
		dst.Editor.UndoMaxBytes = src.Editor.UndoMaxBytes
	}
	if src.Editor.UndoMaxDepth != 0 {
		dst.Editor.UndoMaxDepth = src.Editor.UndoMaxDepth
	}
	if src.Editor.CoalesceMs != 0 {
		dst.Editor.CoalesceMs = src.Editor.CoalesceMs
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	str := func(env string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*dst = v
		}
	}
	num := func(env string, dst *int) {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	str(EnvBackendURL, &cfg.Backend.BaseURL)
	str(EnvRenderURL, &cfg.Backend.RenderURL)
	num(EnvBackendTimeoutMs, &cfg.Backend.TimeoutMs)
	if v := strings.TrimSpace(os.Getenv(EnvBackendTLSInsec)); v != "" {
		cfg.Backend.TLSInsecure = truthy(v)
	}
	str(EnvStoreDSN, &cfg.Backend.DSN)
	str(EnvListenAddr, &cfg.Backend.Addr)
	str(EnvUser, &cfg.General.User)
	str(EnvRole, &cfg.General.Role)
	cfg.General.Role = strings.ToLower(cfg.General.Role)
	str(EnvVenue, &cfg.General.VenueID)
	str(EnvPaper, &cfg.Editor.DefaultPaper)
	num(EnvZoom, &cfg.Editor.Zoom)
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	str(EnvLogFile, &cfg.Logging.File)
}

var envByKey = map[string]string{
	"general.user":         EnvUser,
	"general.role":         EnvRole,
	"general.venue_id":     EnvVenue,
	"backend.base_url":     EnvBackendURL,
	"backend.render_url":   EnvRenderURL,
	"backend.timeout_ms":   EnvBackendTimeoutMs,
	"backend.tls_insecure": EnvBackendTLSInsec,
	"backend.dsn":          EnvStoreDSN,
	"backend.addr":         EnvListenAddr,
	"editor.default_paper": EnvPaper,
	"editor.zoom":          EnvZoom,
	"logging.level":        EnvLogLevel,
	"logging.format":       EnvLogFormat,
	"logging.source":       EnvLogSource,
	"logging.file":         EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := envByKey[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

// AuthSecret returns the token signing secret from the environment.
func AuthSecret() []byte { return []byte(os.Getenv(EnvAuthSecret)) }

// Timeout returns the backend timeout, falling back to the default.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutMs <= 0 {
		return time.Duration(Defaults().Backend.TimeoutMs) * time.Millisecond
	}
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

// HTTPClient builds the client used to reach the backend.
func (b BackendConfig) HTTPClient() *http.Client {
	c := &http.Client{Timeout: b.Timeout()}
	if b.TLSInsecure {
		c.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}} //nolint:gosec // opt-in for self-signed dev servers
	}
	return c
}

// UndoConfig maps the editor settings onto the undo manager.
func (e EditorConfig) UndoConfig() undo.Config {
	return undo.Config{
		MaxBytes:    e.UndoMaxBytes,
		MaxDepth:    e.UndoMaxDepth,
		MinInterval: time.Duration(e.CoalesceMs) * time.Millisecond,
	}
}

// LogOptions maps the logging section onto logger options.
func (l LoggingConfig) LogOptions() applog.Options {
	return applog.Options{Level: l.Level, Format: l.Format, AddSource: l.Source, File: l.File}
}
