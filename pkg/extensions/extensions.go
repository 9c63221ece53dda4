// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package extensions defines the pluggable hooks of the enginebench API
// server. The defaults are no-ops so a local "enginebench serve" works
// without any setup; a token or an external identity provider can be
// injected through ServiceOptions.
//
// # Usage
//
//	opts := extensions.DefaultOptions()
//	if token != "" {
//	    opts = opts.WithAuth(extensions.NewTokenAuthProvider(token))
//	}
//	router := api.NewRouter(store, metrics, logger, opts)
//
// # Thread Safety
//
// All interface implementations must be safe for concurrent use.
package extensions

// ServiceOptions groups the extension points of the API server.
//
// Nil fields are replaced with no-op defaults by Normalize.
type ServiceOptions struct {
	// AuthProvider authenticates API requests.
	AuthProvider AuthProvider
}

// DefaultOptions returns options with every extension set to its no-op.
func DefaultOptions() ServiceOptions {
	return ServiceOptions{AuthProvider: &NopAuthProvider{}}
}

// WithAuth returns a copy of opts using provider.
func (opts ServiceOptions) WithAuth(provider AuthProvider) ServiceOptions {
	opts.AuthProvider = provider
	return opts
}

// Normalize fills nil fields with their defaults.
func (opts ServiceOptions) Normalize() ServiceOptions {
	if opts.AuthProvider == nil {
		opts.AuthProvider = &NopAuthProvider{}
	}
	return opts
}
