/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLen is the shortest HMAC secret accepted for signing tokens.
const MinSecretLen = 16

// Claims identify the caller of the persistence service. The subject is the user.
type Claims struct {
	jwt.RegisteredClaims
	Role    string `json:"role"`
	VenueID string `json:"venue_id,omitempty"`
}

// User returns the subject.
func (c *Claims) User() string { return c.Subject }

// IssueToken signs an HS256 token for user with the given role and venue.
func IssueToken(secret []byte, user, role, venueID string, ttl time.Duration) (string, error) {
	if len(secret) < MinSecretLen {
		return "", fmt.Errorf("auth: secret shorter than %d bytes", MinSecretLen)
	}
	if user == "" {
		return "", errors.New("auth: user is required")
	}
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role:    role,
		VenueID: venueID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ValidateToken parses a token and returns its claims. Only HS256 is accepted.
func ValidateToken(secret []byte, token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if c, ok := parsed.Claims.(*Claims); ok && parsed.Valid && c.Subject != "" {
		return c, nil
	}
	return nil, errors.New("invalid token")
}

type claimsKey struct{}

// ClaimsFrom returns the claims stored by the auth middleware.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}

// requireAuth validates the bearer token and stores its claims on the request context.
func requireAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			const prefix = "bearer "
			if !strings.HasPrefix(strings.ToLower(auth), prefix) {
				writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
				return
			}
			c, err := ValidateToken(secret, strings.TrimSpace(auth[len(prefix):]))
			if err != nil {
				writeError(w, http.StatusUnauthorized, errors.New("invalid token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, c)))
		})
	}
}
