// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extensions

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
)

// ErrUnauthorized is returned when authentication fails. Implementations
// wrap it with context.
//
// Example:
//
//	if !valid {
//	    return nil, fmt.Errorf("token expired: %w", extensions.ErrUnauthorized)
//	}
var ErrUnauthorized = errors.New("unauthorized")

// AuthInfo identifies an authenticated caller.
type AuthInfo struct {
	// Subject names the caller. Never empty.
	Subject string

	// Roles lists the caller's roles. The API only requires "reader".
	Roles []string
}

// HasRole reports whether the caller has role.
func (a *AuthInfo) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AuthProvider validates a bearer token and returns the caller.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type AuthProvider interface {
	// Validate checks token. It returns ErrUnauthorized (possibly wrapped)
	// for a bad token and other errors for provider failures.
	Validate(ctx context.Context, token string) (*AuthInfo, error)
}

// NopAuthProvider accepts every request as a local reader.
type NopAuthProvider struct{}

// Validate ignores token and returns the local user.
func (p *NopAuthProvider) Validate(_ context.Context, _ string) (*AuthInfo, error) {
	return &AuthInfo{Subject: "local-user", Roles: []string{"reader"}}, nil
}

// TokenAuthProvider accepts a single shared token.
type TokenAuthProvider struct {
	digest [sha256.Size]byte
}

// NewTokenAuthProvider returns a provider accepting token. An empty token
// accepts nothing.
func NewTokenAuthProvider(token string) *TokenAuthProvider {
	p := &TokenAuthProvider{}
	if token != "" {
		p.digest = sha256.Sum256([]byte(token))
	}
	return p
}

// Validate compares token against the configured one in constant time.
func (p *TokenAuthProvider) Validate(ctx context.Context, token string) (*AuthInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if token == "" {
		return nil, fmt.Errorf("missing token: %w", ErrUnauthorized)
	}
	got := sha256.Sum256([]byte(token))
	if p.digest == ([sha256.Size]byte{}) || subtle.ConstantTimeCompare(got[:], p.digest[:]) != 1 {
		return nil, fmt.Errorf("invalid token: %w", ErrUnauthorized)
	}
	return &AuthInfo{Subject: "token", Roles: []string{"reader"}}, nil
}

// Compile-time interface compliance checks.
var (
	_ AuthProvider = (*NopAuthProvider)(nil)
	_ AuthProvider = (*TokenAuthProvider)(nil)
)
