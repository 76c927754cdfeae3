// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package credentials

import (
	"errors"
	"fmt"
	"io"

	"github.com/bytedance/sonic"
)

const (
	userFileType           = "authorized_user"
	serviceAccountFileType = "service_account"
)

// FromStream reads a serialized credential definition from r and constructs
// the matching credential variant. The stream is fully consumed, and closed
// when r is an [io.Closer], on both success and failure.
func FromStream(r io.Reader, opts ...Option) (Credentials, error) {
	if r == nil {
		return nil, errors.New("credentials: nil credential stream")
	}
	if closer, ok := r.(io.Closer); ok {
		defer closer.Close()
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("credentials: read credential stream: %w", err)
	}
	return FromJSON(data, opts...)
}

// FromJSON constructs a credential variant from a JSON credential
// definition, dispatching on its "type" field: "authorized_user" yields a
// [*UserCredentials] and "service_account" a [*ServiceAccountCredentials].
// Unknown keys are ignored.
func FromJSON(data []byte, opts ...Option) (Credentials, error) {
	var fields map[string]any
	if err := sonic.ConfigFastest.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCredential, err)
	}

	fileType, ok := fields["type"].(string)
	if !ok || fileType == "" {
		return nil, ErrMissingType
	}

	switch fileType {
	case userFileType:
		return userCredentialsFromFields(fields, opts...)
	case serviceAccountFileType:
		return serviceAccountCredentialsFromFields(fields, opts...)
	default:
		return nil, &UnrecognizedTypeError{Type: fileType}
	}
}

// stringField extracts a required string field from a parsed credential
// definition.
func stringField(fields map[string]any, key string) (string, error) {
	value, ok := fields[key].(string)
	if !ok || value == "" {
		return "", &MissingFieldError{Field: key}
	}
	return value, nil
}
