/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// RenderContext is the data bundle a render collaborator projects a template
// against. Its Map form is also what visibility rules are evaluated on.
type RenderContext struct {
	Venue    map[string]any `json:"venue,omitempty"`
	Order    map[string]any `json:"order,omitempty"`
	Fiscal   map[string]any `json:"fiscal,omitempty"`
	Server   map[string]any `json:"server,omitempty"`
	DateTime string         `json:"datetime,omitempty"`
}

// Map returns the context as a nested map keyed by the top-level bundle names.
// Empty bundles are left out so that "exists" rules on them evaluate to false.
func (c RenderContext) Map() map[string]any {
	m := make(map[string]any, 5)
	if c.Venue != nil {
		m["venue"] = c.Venue
	}
	if c.Order != nil {
		m["order"] = c.Order
	}
	if c.Fiscal != nil {
		m["fiscal"] = c.Fiscal
	}
	if c.Server != nil {
		m["server"] = c.Server
	}
	if c.DateTime != "" {
		m["datetime"] = c.DateTime
	}
	return m
}

// RenderRequest is sent to the render collaborator. Either TemplateID or
// Layout is set; an inline layout previews unsaved edits.
type RenderRequest struct {
	TemplateID string        `json:"template_id,omitempty"`
	VenueID    string        `json:"venue_id,omitempty"`
	Layout     *Layout       `json:"layout,omitempty"`
	Format     string        `json:"format"` // "html" or "text"
	Context    RenderContext `json:"context"`
}

// RenderOutput is the projected document returned by the render collaborator.
type RenderOutput struct {
	ContentType string `json:"content_type"`
	Body        string `json:"body"`
}
