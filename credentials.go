// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package credentials issues, caches, and refreshes the short-lived bearer
// tokens that authorize outbound API calls, and resolves which credential
// source to use in a given runtime environment.
//
// A [Credentials] value produces request-authorization metadata on demand,
// serving a cached access token while it is fresh and performing at most one
// concurrent network refresh when it is not. Concrete variants cover stored
// user grants ([UserCredentials]), service account keys
// ([ServiceAccountCredentials]), the hosting environment's metadata service
// ([ComputeCredentials]), and caller-supplied static tokens ([New]).
//
// [FromStream] and [FromJSON] build a variant from a serialized credential
// definition, dispatching on its "type" field. [DefaultCredentials] probes
// the environment for ambient credentials when none are supplied explicitly.
package credentials

import (
	"context"
	"sync"
	"time"
)

// Credentials mints request-authorization metadata for outbound API calls.
//
// Implementations cache the most recent access token and refresh it when its
// remaining lifetime drops below the configured margin. All methods are safe
// for concurrent use.
type Credentials interface {
	// RequestMetadata returns the headers that authorize a call to uri,
	// minimally an "Authorization: Bearer <token>" entry. It serves the
	// cached token when fresh and otherwise refreshes synchronously
	// before returning.
	RequestMetadata(ctx context.Context, uri string) (map[string][]string, error)

	// Refresh forces a new token fetch regardless of cache freshness. It
	// returns an error wrapping [ErrRefreshNotSupported] when the
	// credential holds no refresh material. On failure the cached token
	// is left unchanged.
	Refresh(ctx context.Context) error

	// Token returns the currently cached access token, or nil.
	Token() *AccessToken

	// ScopedRequired reports whether the credential must receive scopes
	// via Scoped before use.
	ScopedRequired() bool

	// Scoped returns a copy of the credential carrying the given scopes,
	// or the same instance when the variant does not support scoping.
	Scoped(scopes ...string) Credentials

	// Delegated returns a copy of the credential impersonating principal,
	// or the same instance when the variant does not support delegation.
	Delegated(principal string) Credentials
}

// TokenRefresher performs the network exchange that produces a new access
// token for one credential variant. Failures are reported as a
// [*TokenFetchError], except when the variant has no refresh material, which
// surfaces [ErrRefreshNotSupported].
//
// Refreshers carry no retry logic. Retrying is the caller's decision.
type TokenRefresher interface {
	FetchToken(ctx context.Context) (*AccessToken, error)
}

// Base is the token-cache core composed into every credential variant. It
// owns the cached access token, the refresh lock, and the staleness policy.
//
// The zero value is not usable; construct through [New] or a variant
// constructor.
type Base struct {
	refresher    TokenRefresher
	expiryMargin time.Duration
	now          func() time.Time

	// mu guards token and serializes the check-then-fetch-then-store
	// sequence, so concurrent callers trigger at most one network fetch.
	mu    sync.Mutex
	token *AccessToken
}

var _ Credentials = (*Base)(nil)

// New creates a credential around a fixed, caller-supplied access token.
// The resulting credential cannot refresh: once the token expires, every
// metadata request fails with [ErrRefreshNotSupported].
func New(token *AccessToken, opts ...Option) *Base {
	s := newSettings(opts...)
	s.initialToken = token
	return newBase(nil, s)
}

func newBase(refresher TokenRefresher, s settings) *Base {
	return &Base{
		refresher:    refresher,
		expiryMargin: s.expiryMargin,
		now:          s.now,
		token:        s.initialToken,
	}
}

// RequestMetadata implements [Credentials].
func (b *Base) RequestMetadata(ctx context.Context, uri string) (map[string][]string, error) {
	token, err := b.freshToken(ctx)
	if err != nil {
		return nil, err
	}
	return map[string][]string{
		"Authorization": {"Bearer " + token.Value()},
	}, nil
}

// Refresh implements [Credentials].
func (b *Base) Refresh(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := b.refreshLocked(ctx)
	return err
}

// Token implements [Credentials].
func (b *Base) Token() *AccessToken {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.token
}

// ScopedRequired implements [Credentials].
func (b *Base) ScopedRequired() bool { return false }

// Scoped implements [Credentials].
func (b *Base) Scoped(scopes ...string) Credentials { return b }

// Delegated implements [Credentials].
func (b *Base) Delegated(principal string) Credentials { return b }

// freshToken returns the cached token when still fresh, refreshing
// otherwise. A caller that blocked on an in-flight refresh re-checks
// freshness after acquiring the lock and serves the refreshed token without
// a second fetch.
func (b *Base) freshToken(ctx context.Context) (*AccessToken, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.freshLocked() {
		return b.token, nil
	}
	return b.refreshLocked(ctx)
}

func (b *Base) freshLocked() bool {
	if b.token == nil {
		return false
	}
	expiresAt := b.token.ExpiresAt()
	if expiresAt.IsZero() {
		return true
	}
	return b.now().Add(b.expiryMargin).Before(expiresAt)
}

// refreshLocked performs the network fetch and replaces the cached token.
// The cache is untouched when the fetch fails. Callers must hold mu.
func (b *Base) refreshLocked(ctx context.Context) (*AccessToken, error) {
	if b.refresher == nil {
		return nil, ErrRefreshNotSupported
	}
	token, err := b.refresher.FetchToken(ctx)
	if err != nil {
		return nil, err
	}
	b.token = token
	return token, nil
}
