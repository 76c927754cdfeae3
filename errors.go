// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package credentials

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedCredential is returned when credential data cannot be
	// parsed as a JSON object.
	ErrMalformedCredential = errors.New("credentials: malformed credential data")

	// ErrMissingType is returned when credential data has no "type" field.
	ErrMissingType = errors.New(`credentials: "type" field not specified`)

	// ErrRefreshNotSupported is returned when a credential is asked to
	// refresh but holds no material to do so, such as a static token
	// credential or a user credential built without a refresh token.
	ErrRefreshNotSupported = errors.New("credentials: refresh is not supported")

	// ErrNoDefaultCredentials is returned when every default-credential
	// probe has been exhausted without locating a credential.
	ErrNoDefaultCredentials = errors.New("credentials: default credentials not found in the current environment")
)

// MissingFieldError reports a required field absent from a credential
// definition.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("credentials: missing required field %q", e.Field)
}

// UnrecognizedTypeError reports a credential definition whose "type"
// discriminator names no known credential variant.
type UnrecognizedTypeError struct {
	Type string
}

func (e *UnrecognizedTypeError) Error() string {
	return fmt.Sprintf("credentials: credential type %q not recognized, expecting %q or %q", e.Type, userFileType, serviceAccountFileType)
}

// TokenFetchError reports a network or protocol failure while talking to a
// token endpoint. StatusCode is zero when the request never produced an HTTP
// response.
type TokenFetchError struct {
	StatusCode int
	Err        error
}

func (e *TokenFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("credentials: token fetch failed with status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("credentials: token fetch failed: %v", e.Err)
}

func (e *TokenFetchError) Unwrap() error { return e.Err }
