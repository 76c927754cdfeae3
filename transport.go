// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package credentials

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// TransportFactory creates the [*http.Client] used to reach token endpoints.
//
// Credentials compare transport factories by type identity, not content, so a
// factory should be a distinct named type per transport configuration.
type TransportFactory interface {
	Client() *http.Client
}

type defaultTransportFactory struct{}

func (defaultTransportFactory) Client() *http.Client {
	return http.DefaultClient
}

type staticTransportFactory struct {
	client *http.Client
}

func (f staticTransportFactory) Client() *http.Client {
	return f.client
}

// transportKey is the identity used for credential equality.
func transportKey(tf TransportFactory) string {
	return fmt.Sprintf("%T", tf)
}

// DefaultExpiryMargin is the remaining token lifetime below which a cached
// token is considered stale and refreshed before use.
const DefaultExpiryMargin = 1 * time.Minute

// settings carries the construction-time configuration shared by all
// credential variants.
type settings struct {
	transport      TransportFactory
	tokenServerURI string
	initialToken   *AccessToken
	expiryMargin   time.Duration
	metadataHost   string
	logger         *slog.Logger
	now            func() time.Time
}

func newSettings(opts ...Option) settings {
	s := settings{
		transport:    defaultTransportFactory{},
		expiryMargin: DefaultExpiryMargin,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt.apply(&s)
	}
	return s
}

// Option configures credential construction.
type Option interface {
	apply(*settings)
}

type optionFunc func(*settings)

func (o optionFunc) apply(s *settings) { o(s) }

// WithTransportFactory sets the factory for the HTTP client used on token
// endpoint calls.
func WithTransportFactory(tf TransportFactory) Option {
	return optionFunc(func(s *settings) {
		s.transport = tf
	})
}

// WithHTTPClient sets a fixed HTTP client for token endpoint calls.
func WithHTTPClient(client *http.Client) Option {
	return optionFunc(func(s *settings) {
		s.transport = staticTransportFactory{client: client}
	})
}

// WithTokenServerURI overrides the token endpoint a credential exchanges its
// refresh material against.
func WithTokenServerURI(uri string) Option {
	return optionFunc(func(s *settings) {
		s.tokenServerURI = uri
	})
}

// WithInitialToken seeds the credential with an already-minted access token.
func WithInitialToken(token *AccessToken) Option {
	return optionFunc(func(s *settings) {
		s.initialToken = token
	})
}

// WithExpiryMargin overrides [DefaultExpiryMargin].
func WithExpiryMargin(margin time.Duration) Option {
	return optionFunc(func(s *settings) {
		s.expiryMargin = margin
	})
}

// WithMetadataHost overrides the metadata service address used by compute
// credentials and the default-credential probe.
func WithMetadataHost(host string) Option {
	return optionFunc(func(s *settings) {
		s.metadataHost = host
	})
}

// WithLogger sets the logger for credential operations.
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(s *settings) {
		s.logger = logger
	})
}

// withClock substitutes the time source. Tests only.
func withClock(now func() time.Time) Option {
	return optionFunc(func(s *settings) {
		s.now = now
	})
}
