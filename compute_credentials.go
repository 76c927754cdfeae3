// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package credentials

import (
	"context"
	"net/http"
	"time"
)

const (
	// DefaultMetadataHost is the link-local address of the hosting
	// environment's metadata service.
	DefaultMetadataHost = "169.254.169.254"

	metadataTokenPath = "/computeMetadata/v1/instance/service-accounts/default/token"

	metadataFlavorHeader = "Metadata-Flavor"
	metadataFlavorValue  = "a2a"

	// metadataProbeTimeout bounds the reachability probe so hosts without
	// a metadata service do not stall default-credential resolution.
	metadataProbeTimeout = 500 * time.Millisecond
)

// ComputeCredentials authorizes calls with the ambient identity of the
// hosting compute environment, fetching tokens from its metadata service.
// It carries no user secrets.
type ComputeCredentials struct {
	*Base

	metadataHost string
	transport    TransportFactory
}

var _ Credentials = (*ComputeCredentials)(nil)

// NewComputeCredentials creates a [*ComputeCredentials] against the
// environment's metadata service. Use [WithMetadataHost] to override the
// address, e.g. for an emulator.
func NewComputeCredentials(opts ...Option) *ComputeCredentials {
	s := newSettings(opts...)
	if s.metadataHost == "" {
		s.metadataHost = DefaultMetadataHost
	}

	c := &ComputeCredentials{
		metadataHost: s.metadataHost,
		transport:    s.transport,
	}
	c.Base = newBase(&metadataTokenRefresher{creds: c, s: s}, s)
	return c
}

// MetadataHost returns the metadata service address tokens are fetched from.
func (c *ComputeCredentials) MetadataHost() string { return c.metadataHost }

// Equal reports whether two credentials target the same metadata service
// through the same transport factory and hold the same cached token.
func (c *ComputeCredentials) Equal(other *ComputeCredentials) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.hashKey() == other.hashKey()
}

func (c *ComputeCredentials) hashKey() string {
	return "compute|" + c.metadataHost + "|" + transportKey(c.transport) + "|" + tokenKey(c.Token())
}

func (c *ComputeCredentials) String() string {
	return "ComputeCredentials(metadataHost=" + c.metadataHost + ", transport=" + transportKey(c.transport) + ")"
}

// metadataTokenRefresher fetches tokens from the metadata service's token
// path.
type metadataTokenRefresher struct {
	creds *ComputeCredentials
	s     settings
}

var _ TokenRefresher = (*metadataTokenRefresher)(nil)

// FetchToken implements [TokenRefresher].
func (r *metadataTokenRefresher) FetchToken(ctx context.Context) (*AccessToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+r.creds.metadataHost+metadataTokenPath, nil)
	if err != nil {
		return nil, &TokenFetchError{Err: err}
	}
	req.Header.Set(metadataFlavorHeader, metadataFlavorValue)

	resp, err := r.creds.transport.Client().Do(req)
	if err != nil {
		return nil, &TokenFetchError{Err: err}
	}
	return parseTokenResponse(resp, r.s.now)
}

// metadataReachable probes the metadata service root with a short timeout,
// checking the identifying response header so an unrelated HTTP server on
// the same address is not mistaken for it.
func metadataReachable(ctx context.Context, host string, transport TransportFactory) bool {
	ctx, cancel := context.WithTimeout(ctx, metadataProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+host+"/", nil)
	if err != nil {
		return false
	}
	req.Header.Set(metadataFlavorHeader, metadataFlavorValue)

	resp, err := transport.Client().Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.Header.Get(metadataFlavorHeader) == metadataFlavorValue
}
