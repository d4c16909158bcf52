/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"printdesigner/internal/domain"
	"printdesigner/internal/lifecycle"
)

// Client talks to the persistence service and, optionally, a render service.
// It implements lifecycle.Store and lifecycle.Renderer. Transport failures and
// unexpected statuses come back as *domain.NetworkError; 400, 403 and 404 map
// to *domain.ValidationError, *domain.AuthorizationError and domain.ErrNotFound;
// 409 maps to domain.ErrConflict.
type Client struct {
	BaseURL   string
	RenderURL string
	Token     string // bearer token
	client    *http.Client
}

var (
	_ lifecycle.Store    = (*Client)(nil)
	_ lifecycle.Renderer = (*Client)(nil)
)

// NewClient creates a new backend client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b := strings.TrimRight(baseURL, "/")
	return &Client{
		BaseURL:   b,
		RenderURL: b,
		Token:     token,
		client:    &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.client = hc
	return c
}

type request struct {
	op          string
	method      string
	base        string
	path        string
	venueID     string
	body        io.Reader
	contentType string
}

func (c *Client) do(ctx context.Context, rq request, dest any) error {
	base := rq.base
	if base == "" {
		base = c.BaseURL
	}
	u, err := url.Parse(base + rq.path)
	if err != nil {
		return &domain.NetworkError{Op: rq.op, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, rq.method, u.String(), rq.body)
	if err != nil {
		return &domain.NetworkError{Op: rq.op, Err: err}
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if rq.venueID != "" {
		req.Header.Set(VenueHeader, rq.venueID)
	}
	if rq.contentType != "" {
		req.Header.Set("Content-Type", rq.contentType)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return &domain.NetworkError{Op: rq.op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(rq.op, resp)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &domain.NetworkError{Op: rq.op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path, venueID string, in, dest any) error {
	rq := request{op: op, method: method, path: path, venueID: venueID}
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		rq.body = bytes.NewReader(b)
		rq.contentType = "application/json"
	}
	return c.do(ctx, rq, dest)
}

func statusError(op string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var body struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(b))
	if json.Unmarshal(b, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	switch resp.StatusCode {
	case http.StatusBadRequest:
		return &domain.ValidationError{Op: op, Msg: msg}
	case http.StatusForbidden:
		return &domain.AuthorizationError{Op: op}
	case http.StatusNotFound:
		return fmt.Errorf("%s: %s: %w", op, msg, domain.ErrNotFound)
	case http.StatusConflict:
		return fmt.Errorf("%s: %s: %w", op, msg, domain.ErrConflict)
	}
	return &domain.NetworkError{Op: op, Err: fmt.Errorf("server: %s: %s", resp.Status, msg)}
}

func templatePath(id string, rest ...string) string {
	p := "/api/templates/" + url.PathEscape(id)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

func (c *Client) ListTemplates(ctx context.Context, venueID string) ([]domain.TemplateSummary, error) {
	var list []domain.TemplateSummary
	if err := c.doJSON(ctx, "list templates", http.MethodGet, "/api/templates", venueID, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) GetTemplate(ctx context.Context, venueID, id string) (domain.Template, error) {
	var t domain.Template
	err := c.doJSON(ctx, "get template", http.MethodGet, templatePath(id), venueID, nil, &t)
	return t, err
}

func (c *Client) CreateTemplate(ctx context.Context, t domain.Template) (domain.Template, error) {
	var out domain.Template
	err := c.doJSON(ctx, "create template", http.MethodPost, "/api/templates", t.VenueID, t, &out)
	return out, err
}

func (c *Client) UpdateTemplate(ctx context.Context, t domain.Template) (domain.Template, error) {
	var out domain.Template
	err := c.doJSON(ctx, "update template", http.MethodPut, templatePath(t.ID), t.VenueID, t, &out)
	return out, err
}

func (c *Client) Publish(ctx context.Context, venueID, id string, req domain.PublishRequest) (domain.Version, error) {
	var v domain.Version
	err := c.doJSON(ctx, "publish", http.MethodPost, templatePath(id, "publish"), venueID, req, &v)
	return v, err
}

func (c *Client) ListVersions(ctx context.Context, venueID, id string) ([]domain.Version, error) {
	var vs []domain.Version
	if err := c.doJSON(ctx, "list versions", http.MethodGet, templatePath(id, "versions"), venueID, nil, &vs); err != nil {
		return nil, err
	}
	return vs, nil
}

func (c *Client) ListAudit(ctx context.Context, venueID, id string) ([]domain.AuditEntry, error) {
	var es []domain.AuditEntry
	if err := c.doJSON(ctx, "list audit", http.MethodGet, templatePath(id, "audit"), venueID, nil, &es); err != nil {
		return nil, err
	}
	return es, nil
}

func (c *Client) UploadAsset(ctx context.Context, venueID, name, contentType string, data []byte) (domain.Asset, error) {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	var a domain.Asset
	err := c.do(ctx, request{
		op:          "upload asset",
		method:      http.MethodPost,
		path:        "/api/assets?name=" + url.QueryEscape(name),
		venueID:     venueID,
		body:        bytes.NewReader(data),
		contentType: contentType,
	}, &a)
	if err == nil && strings.HasPrefix(a.URL, "/") {
		a.URL = c.BaseURL + a.URL
	}
	return a, err
}

// Render posts the request to the render service.
func (c *Client) Render(ctx context.Context, req domain.RenderRequest) (domain.RenderOutput, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return domain.RenderOutput{}, fmt.Errorf("render: encode request: %w", err)
	}
	var out domain.RenderOutput
	err = c.do(ctx, request{
		op:          "render",
		method:      http.MethodPost,
		base:        c.RenderURL,
		path:        "/api/render",
		venueID:     req.VenueID,
		body:        bytes.NewReader(b),
		contentType: "application/json",
	}, &out)
	return out, err
}

// RequestToken asks a server running with dev tokens enabled for a token.
func (c *Client) RequestToken(ctx context.Context, user, role, venueID string) (string, error) {
	in := map[string]any{"user": user, "role": role, "venue_id": venueID}
	var out struct {
		Token string `json:"token"`
	}
	if err := c.doJSON(ctx, "request token", http.MethodPost, "/api/auth/token", "", in, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", errors.New("request token: empty token")
	}
	return out.Token, nil
}
