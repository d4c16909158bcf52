/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// Operator is a conditional visibility comparison.
type Operator string

const (
	OpEq     Operator = "eq"
	OpNe     Operator = "ne"
	OpGt     Operator = "gt"
	OpLt     Operator = "lt"
	OpExists Operator = "exists"
)

// Valid reports whether o is a known operator.
func (o Operator) Valid() bool {
	switch o {
	case OpEq, OpNe, OpGt, OpLt, OpExists:
		return true
	}
	return false
}

// ConditionalRule controls a block's visibility against the render context.
// Field is a dotted path such as "order.total". A nil Value means the rule
// compares against "undefined".
type ConditionalRule struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value,omitempty"`
}

// Canonical returns r with a numeric Value converted to float64, the form a
// decoded JSON rule carries, so rules compare equal after export and import.
func (r ConditionalRule) Canonical() ConditionalRule {
	switch v := r.Value.(type) {
	case int:
		r.Value = float64(v)
	case int8:
		r.Value = float64(v)
	case int16:
		r.Value = float64(v)
	case int32:
		r.Value = float64(v)
	case int64:
		r.Value = float64(v)
	case uint:
		r.Value = float64(v)
	case uint8:
		r.Value = float64(v)
	case uint16:
		r.Value = float64(v)
	case uint32:
		r.Value = float64(v)
	case uint64:
		r.Value = float64(v)
	case float32:
		r.Value = float64(v)
	}
	return r
}
