/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package lifecycle

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"printdesigner/internal/domain"
	"printdesigner/internal/editor"
	"printdesigner/internal/registry"
)

//go:embed export.schema.json
var exportSchemaJSON string

var exportSchema = func() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(exportSchemaJSON))
	if err != nil {
		panic(fmt.Sprintf("export schema: %v", err))
	}
	return s
}()

// ExportSchema returns the JSON Schema export files conform to.
func ExportSchema() string { return exportSchemaJSON }

// Export builds the portable document for t.
func Export(t domain.Template) domain.ExportDocument {
	p := t.PaperProfile
	return domain.ExportDocument{
		Name:         t.Name,
		Description:  t.Description,
		Type:         t.Type,
		Blocks:       append([]*domain.Block{}, t.Blocks...),
		PaperProfile: &p,
	}
}

// Encode writes doc as indented JSON.
func Encode(w io.Writer, doc domain.ExportDocument) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

// Decode parses and fully validates an export file. Block order follows the
// array position; widths default to 100 and sections to the type's section.
// Any problem yields a ValidationError and no document.
func Decode(data []byte) (domain.ExportDocument, error) {
	const op = "import"
	res, err := exportSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return domain.ExportDocument{}, &domain.ValidationError{Op: op, Msg: "not a JSON document", Err: err}
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return domain.ExportDocument{}, domain.Invalid(op, "%s", strings.Join(msgs, "; "))
	}
	var doc domain.ExportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.ExportDocument{}, &domain.ValidationError{Op: op, Msg: "malformed blocks", Err: err}
	}
	seen := make(map[string]bool, len(doc.Blocks))
	for i, b := range doc.Blocks {
		if b == nil {
			return domain.ExportDocument{}, domain.Invalid(op, "block %d is null", i)
		}
		def, ok := registry.Lookup(b.Type)
		if !ok {
			return domain.ExportDocument{}, domain.Invalid(op, "block %s: unknown type %q", b.ID, b.Type)
		}
		if b.Props.Kind() != def.Kind() {
			return domain.ExportDocument{}, domain.Invalid(op, "block %s: type %s needs %s, got %s", b.ID, b.Type, def.Kind(), b.Props.Kind())
		}
		if seen[b.ID] {
			return domain.ExportDocument{}, domain.Invalid(op, "duplicate block id %q", b.ID)
		}
		seen[b.ID] = true
		b.Order = i
		if b.Width == 0 {
			b.Width = domain.Width100
		}
		if b.Section == "" {
			b.Section = registry.SectionFor(b.Type)
		}
	}
	return doc, nil
}

// Import decodes data and replaces the session's document with it. Missing
// name, type or paper profile keep the session's values. When decoding
// fails the session is untouched.
func Import(sess *editor.Session, data []byte) (domain.ExportDocument, error) {
	doc, err := Decode(data)
	if err != nil {
		return domain.ExportDocument{}, err
	}
	cur := sess.Template()
	if doc.Name == "" {
		doc.Name = cur.Name
	}
	if doc.Type == "" {
		doc.Type = cur.Type
	}
	if err := sess.ApplyImport(doc); err != nil {
		return domain.ExportDocument{}, err
	}
	return doc, nil
}
