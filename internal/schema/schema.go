/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package schema describes the editable fields of every property bag and
// implements the single-field update used by the editor.
//
// Range clamping happens only at the input boundary (ParseInput/ClampInput,
// called by a UI or the CLI). Set itself accepts any value of the right Go
// type, so out-of-range values set programmatically or through import are
// stored unchanged. Lint reports them without rejecting anything.
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"printdesigner/internal/domain"
)

// FieldKind is the input control a field needs.
type FieldKind int

const (
	FieldString FieldKind = iota
	FieldNullableString
	FieldInt
	FieldBool
	FieldEnum
	FieldColumns
)

// Field describes one editable bag field. Min/Max apply to FieldInt only and
// are zero when the field has no range.
type Field struct {
	Name    string
	Kind    FieldKind
	Min     int
	Max     int
	Options []string
}

var alignments = []string{"left", "center", "right"}

var fields = map[domain.PropsKind][]Field{
	domain.KindText: {
		{Name: "content", Kind: FieldString},
		{Name: "font_size", Kind: FieldInt, Min: 6, Max: 48},
		{Name: "alignment", Kind: FieldEnum, Options: alignments},
		{Name: "bold", Kind: FieldBool},
		{Name: "italic", Kind: FieldBool},
		{Name: "underline", Kind: FieldBool},
		{Name: "variable", Kind: FieldNullableString},
	},
	domain.KindTable: {
		{Name: "columns", Kind: FieldColumns},
		{Name: "data_source", Kind: FieldString},
		{Name: "show_header", Kind: FieldBool},
		{Name: "show_totals", Kind: FieldBool},
		{Name: "group_by", Kind: FieldEnum, Options: []string{"none", "category", "course", "seat"}},
	},
	domain.KindDivider: {
		{Name: "style", Kind: FieldEnum, Options: []string{"solid", "dashed", "dotted", "double"}},
		{Name: "thickness", Kind: FieldInt, Min: 1, Max: 8},
	},
	domain.KindBarcode: {
		{Name: "data_source", Kind: FieldString},
		{Name: "format", Kind: FieldEnum, Options: []string{"CODE128", "QR", "EAN13", "UPC"}},
		{Name: "height", Kind: FieldInt, Min: 20, Max: 200},
		{Name: "width", Kind: FieldInt, Min: 1, Max: 5},
		{Name: "show_text", Kind: FieldBool},
	},
	domain.KindImage: {
		{Name: "url", Kind: FieldString},
		{Name: "width", Kind: FieldInt, Min: 20, Max: 576},
		{Name: "alignment", Kind: FieldEnum, Options: alignments},
	},
	domain.KindFiscal: {
		{Name: "fiscal_id_variable", Kind: FieldString},
		{Name: "fiscal_qr_variable", Kind: FieldString},
		{Name: "show_fiscal_id", Kind: FieldBool},
		{Name: "show_fiscal_qr", Kind: FieldBool},
	},
}

// Fields returns the editable fields of a bag kind in panel order.
func Fields(kind domain.PropsKind) []Field {
	return slices.Clone(fields[kind])
}

// Lookup returns the descriptor of one field.
func Lookup(kind domain.PropsKind, name string) (Field, bool) {
	for _, f := range fields[kind] {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Set returns a copy of p with one field replaced. p is not modified and the
// copy is shallow: every other field, slices included, is shared with p.
// value may be any Go value that JSON-encodes to the field's type.
func Set(p domain.Props, field string, value any) (domain.Props, error) {
	const op = "set property"
	if p == nil {
		return nil, domain.Invalid(op, "block has no property bag")
	}
	src := reflect.ValueOf(p)
	if src.Kind() != reflect.Pointer || src.IsNil() {
		return nil, domain.Invalid(op, "bag %s is not addressable", p.Kind())
	}
	elem := src.Elem()
	idx, ok := fieldIndex(elem.Type(), field)
	if !ok {
		return nil, domain.Invalid(op, "%s has no field %q", p.Kind(), field)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, &domain.ValidationError{Op: op, Msg: fmt.Sprintf("%s.%s", p.Kind(), field), Err: err}
	}
	target := elem.Field(idx)
	nv := reflect.New(target.Type())
	if err := json.Unmarshal(raw, nv.Interface()); err != nil {
		return nil, &domain.ValidationError{Op: op, Msg: fmt.Sprintf("%s.%s", p.Kind(), field), Err: err}
	}
	cp := reflect.New(elem.Type())
	cp.Elem().Set(elem)
	cp.Elem().Field(idx).Set(nv.Elem())
	return cp.Interface().(domain.Props), nil
}

// Get returns the current value of one field.
func Get(p domain.Props, field string) (any, bool) {
	if p == nil {
		return nil, false
	}
	elem := reflect.ValueOf(p).Elem()
	idx, ok := fieldIndex(elem.Type(), field)
	if !ok {
		return nil, false
	}
	return elem.Field(idx).Interface(), true
}

func fieldIndex(t reflect.Type, name string) (int, bool) {
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		if n, _, _ := strings.Cut(tag, ","); n == name {
			return i, true
		}
	}
	return 0, false
}

// ParseInput converts a raw text input (a form field, a CLI argument) into a
// value for Set, clamping numeric fields and rejecting unknown enum options.
func ParseInput(kind domain.PropsKind, field, raw string) (any, error) {
	const op = "parse input"
	f, ok := Lookup(kind, field)
	if !ok {
		return nil, domain.Invalid(op, "%s has no field %q", kind, field)
	}
	switch f.Kind {
	case FieldInt:
		n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, &domain.ValidationError{Op: op, Msg: field, Err: err}
		}
		return ClampInput(kind, field, n), nil
	case FieldBool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, &domain.ValidationError{Op: op, Msg: field, Err: err}
		}
		return b, nil
	case FieldEnum:
		if !slices.Contains(f.Options, raw) {
			return nil, domain.Invalid(op, "%s must be one of %s", field, strings.Join(f.Options, ", "))
		}
		return raw, nil
	case FieldNullableString:
		if raw == "" || raw == "null" {
			return nil, nil
		}
		return raw, nil
	case FieldColumns:
		var cols []domain.Column
		if err := json.Unmarshal([]byte(raw), &cols); err != nil {
			return nil, &domain.ValidationError{Op: op, Msg: field, Err: err}
		}
		return cols, nil
	default:
		return raw, nil
	}
}

// ClampInput clamps numeric input to the field's range and rounds it to an
// integer. Non-numeric fields and values are returned unchanged.
func ClampInput(kind domain.PropsKind, field string, value any) any {
	f, ok := Lookup(kind, field)
	if !ok || f.Kind != FieldInt {
		return value
	}
	var n float64
	switch v := value.(type) {
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case float64:
		n = v
	case json.Number:
		x, err := v.Float64()
		if err != nil {
			return value
		}
		n = x
	default:
		return value
	}
	i := int(math.Round(n))
	if f.Min != 0 || f.Max != 0 {
		i = max(f.Min, min(f.Max, i))
	}
	return i
}
