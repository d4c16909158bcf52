/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package lifecycle moves templates between the local editing session and the
// persistence and render collaborators: draft save, publish with role check,
// version and audit listings, previews, asset upload, and the export/import
// file format.
package lifecycle

import (
	"context"
	"strings"

	"printdesigner/internal/domain"
)

// Roles known to the persistence side. Only the elevated ones may publish.
const (
	RoleOwner   = "owner"
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleStaff   = "staff"
)

// ElevatedRoles lists the roles allowed to publish.
func ElevatedRoles() []string { return []string{RoleOwner, RoleAdmin, RoleManager} }

// CanPublish reports whether role is elevated.
func CanPublish(role string) bool {
	role = strings.ToLower(strings.TrimSpace(role))
	for _, r := range ElevatedRoles() {
		if r == role {
			return true
		}
	}
	return false
}

// Caller identifies who drives a session.
type Caller struct {
	User    string
	Role    string
	VenueID string
}

// Store is the persistence collaborator. Templates are scoped by venue id.
// Publish must be atomic: store the template as latest, append the next
// version and mark the template active, or do none of it. CreateTemplate
// always stores a draft and returns domain.ErrConflict for an existing id.
type Store interface {
	ListTemplates(ctx context.Context, venueID string) ([]domain.TemplateSummary, error)
	GetTemplate(ctx context.Context, venueID, id string) (domain.Template, error)
	CreateTemplate(ctx context.Context, t domain.Template) (domain.Template, error)
	UpdateTemplate(ctx context.Context, t domain.Template) (domain.Template, error)
	Publish(ctx context.Context, venueID, id string, req domain.PublishRequest) (domain.Version, error)
	ListVersions(ctx context.Context, venueID, id string) ([]domain.Version, error)
	ListAudit(ctx context.Context, venueID, id string) ([]domain.AuditEntry, error)
	UploadAsset(ctx context.Context, venueID, name, contentType string, data []byte) (domain.Asset, error)
}

// Renderer is the render projection collaborator.
type Renderer interface {
	Render(ctx context.Context, req domain.RenderRequest) (domain.RenderOutput, error)
}
