/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by stores when a template or asset does not exist
// within the requested venue.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when creating a template whose id already exists
// within the venue.
var ErrConflict = errors.New("already exists")

// ValidationError reports malformed input, e.g. an import file without blocks.
// The operation that returned it has not mutated anything.
type ValidationError struct {
	Op  string
	Msg string
	Err error
}

func (e *ValidationError) Error() string {
	s := "validation failed"
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *ValidationError) Unwrap() error { return e.Err }

// AuthorizationError is returned when the caller lacks the role an operation needs.
type AuthorizationError struct {
	Op   string
	User string
	Role string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("%s: user %q with role %q is not allowed", e.Op, e.User, e.Role)
}

// NetworkError wraps any failure talking to a collaborator (persistence, render).
// The local working state is left as it was.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *NetworkError) Unwrap() error { return e.Err }

// Invalid is a shorthand for building a ValidationError.
func Invalid(op, format string, args ...any) error {
	return &ValidationError{Op: op, Msg: fmt.Sprintf(format, args...)}
}
