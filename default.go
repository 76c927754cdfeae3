// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package credentials

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

const (
	// CredentialsEnvVar names an explicit credentials file that overrides
	// every other default-credential probe.
	CredentialsEnvVar = "A2A_APPLICATION_CREDENTIALS"

	// MetadataHostEnvVar overrides the metadata service address probed
	// for ambient compute credentials.
	MetadataHostEnvVar = "A2A_METADATA_HOST"

	configDirName            = "a2a"
	wellKnownCredentialsFile = "application_default_credentials.json"
)

// defaultCredentialsProvider lazily resolves the process-wide default
// credentials. Probe inputs are injectable so tests can run hermetically.
type defaultCredentialsProvider struct {
	getenv        func(string) string
	userConfigDir func() (string, error)
	reachable     func(ctx context.Context, host string, transport TransportFactory) bool

	// mu serializes resolution, so concurrent first callers block on one
	// probe pass, and guards creds afterwards.
	mu    sync.Mutex
	creds Credentials
}

func newDefaultCredentialsProvider() *defaultCredentialsProvider {
	return &defaultCredentialsProvider{
		getenv:        os.Getenv,
		userConfigDir: os.UserConfigDir,
		reachable:     metadataReachable,
	}
}

var defaultProvider = newDefaultCredentialsProvider()

// DefaultCredentials locates the ambient credentials of the current
// environment, trying in order:
//
//  1. the credentials file named by the A2A_APPLICATION_CREDENTIALS
//     environment variable,
//  2. the file the CLI login flow writes under the user config directory,
//  3. the hosting environment's metadata service.
//
// A file named by the environment variable that is unreadable or malformed
// fails resolution outright rather than falling through, so an explicit
// configuration error is never silently masked by a different ambient
// identity. When every probe misses, the error wraps
// [ErrNoDefaultCredentials].
//
// The resolved credentials are cached for the lifetime of the process.
func DefaultCredentials(ctx context.Context, opts ...Option) (Credentials, error) {
	return defaultProvider.credentials(ctx, opts...)
}

// ResetDefaultCredentials drops the process-wide cached default credentials
// so the next [DefaultCredentials] call probes again. Tests only.
func ResetDefaultCredentials() {
	defaultProvider.mu.Lock()
	defer defaultProvider.mu.Unlock()
	defaultProvider.creds = nil
}

func (p *defaultCredentialsProvider) credentials(ctx context.Context, opts ...Option) (Credentials, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.creds != nil {
		return p.creds, nil
	}

	creds, err := p.resolve(ctx, opts...)
	if err != nil {
		return nil, err
	}
	p.creds = creds
	return creds, nil
}

func (p *defaultCredentialsProvider) resolve(ctx context.Context, opts ...Option) (Credentials, error) {
	s := newSettings(opts...)
	logger := s.logger

	// Probe 1: explicit file from the environment. Errors here are final.
	if path := p.getenv(CredentialsEnvVar); path != "" {
		logger.DebugContext(ctx, "loading default credentials from environment variable", "env", CredentialsEnvVar, "path", path)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("credentials: reading credentials file named by %s: %w", CredentialsEnvVar, err)
		}
		creds, err := FromJSON(data, opts...)
		if err != nil {
			return nil, fmt.Errorf("credentials: loading credentials file %q named by %s: %w", path, CredentialsEnvVar, err)
		}
		return creds, nil
	}

	// Probe 2: the file written by the CLI login flow. Absence falls
	// through, an existing but broken file is loud.
	if path, ok := p.wellKnownFilePath(); ok {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			logger.DebugContext(ctx, "loading default credentials from well-known file", "path", path)
			creds, err := FromJSON(data, opts...)
			if err != nil {
				return nil, fmt.Errorf("credentials: loading well-known credentials file %q: %w", path, err)
			}
			return creds, nil
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("credentials: reading well-known credentials file %q: %w", path, err)
		}
	}

	// Probe 3: the compute environment's metadata service.
	host := s.metadataHost
	if host == "" {
		host = p.getenv(MetadataHostEnvVar)
	}
	if host == "" {
		host = DefaultMetadataHost
	}
	if p.reachable(ctx, host, s.transport) {
		logger.DebugContext(ctx, "using compute metadata service for default credentials", "host", host)
		return NewComputeCredentials(append(opts, WithMetadataHost(host))...), nil
	}

	return nil, fmt.Errorf("%w: %s is unset, no file at the well-known path, and no metadata service reachable", ErrNoDefaultCredentials, CredentialsEnvVar)
}

func (p *defaultCredentialsProvider) wellKnownFilePath() (string, bool) {
	dir, err := p.userConfigDir()
	if err != nil {
		return "", false
	}
	return filepath.Join(dir, configDirName, wellKnownCredentialsFile), true
}
