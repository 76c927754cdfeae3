// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package credentials

import (
	"time"
)

// AccessToken is an OAuth2 bearer token paired with its expiration instant.
// A zero expiration means the token never expires, which is typical for
// caller-supplied static tokens.
//
// AccessToken values are immutable once constructed.
type AccessToken struct {
	value     string
	expiresAt time.Time
}

// NewAccessToken creates an [AccessToken] with the given value, expiring at
// expiresAt. Pass the zero [time.Time] for a non-expiring token.
func NewAccessToken(value string, expiresAt time.Time) *AccessToken {
	return &AccessToken{
		value:     value,
		expiresAt: expiresAt,
	}
}

// Value returns the raw bearer token.
func (t *AccessToken) Value() string {
	return t.value
}

// ExpiresAt returns the expiration instant, or the zero [time.Time] when the
// token never expires.
func (t *AccessToken) ExpiresAt() time.Time {
	return t.expiresAt
}

// Equal reports whether two tokens carry the same value and expiration.
func (t *AccessToken) Equal(other *AccessToken) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.value == other.value && t.expiresAt.Equal(other.expiresAt)
}
