// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package credentials

import (
	"context"
	"crypto/rsa"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	deepcopy "github.com/tiendc/go-deepcopy"
)

const jwtBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// jwtAssertionLifetime is the validity window claimed by a self-signed
// assertion. The token endpoint rejects anything above one hour.
const jwtAssertionLifetime = 1 * time.Hour

// ServiceAccountCredentials authorizes calls as a service account: a
// self-signed JWT assertion is exchanged for an access token at the token
// endpoint.
//
// A service account credential built without scopes must be narrowed with
// [ServiceAccountCredentials.Scoped] before use.
type ServiceAccountCredentials struct {
	*Base

	clientEmail    string
	privateKeyPEM  string
	privateKey     *rsa.PrivateKey
	tokenServerURI string
	scopes         []string
	delegate       string
	transport      TransportFactory
}

var _ Credentials = (*ServiceAccountCredentials)(nil)

// NewServiceAccountCredentials creates a [*ServiceAccountCredentials] from a
// service account's email and PEM-encoded RSA private key.
func NewServiceAccountCredentials(clientEmail, privateKeyPEM string, scopes []string, opts ...Option) (*ServiceAccountCredentials, error) {
	s := newSettings(opts...)
	if s.tokenServerURI == "" {
		s.tokenServerURI = DefaultTokenServerURI
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("credentials: parse service account private key: %w", err)
	}

	c := &ServiceAccountCredentials{
		clientEmail:    clientEmail,
		privateKeyPEM:  privateKeyPEM,
		privateKey:     key,
		tokenServerURI: s.tokenServerURI,
		scopes:         scopes,
		transport:      s.transport,
	}
	c.Base = newBase(&jwtTokenRefresher{creds: c, s: s}, s)
	return c, nil
}

func serviceAccountCredentialsFromFields(fields map[string]any, opts ...Option) (*ServiceAccountCredentials, error) {
	clientEmail, err := stringField(fields, "client_email")
	if err != nil {
		return nil, err
	}
	privateKey, err := stringField(fields, "private_key")
	if err != nil {
		return nil, err
	}
	if tokenURI, ok := fields["token_uri"].(string); ok && tokenURI != "" {
		opts = append(opts, WithTokenServerURI(tokenURI))
	}
	return NewServiceAccountCredentials(clientEmail, privateKey, nil, opts...)
}

// ClientEmail returns the service account's email identity.
func (c *ServiceAccountCredentials) ClientEmail() string { return c.clientEmail }

// Scopes returns the scopes the credential requests, nil when unscoped.
func (c *ServiceAccountCredentials) Scopes() []string { return c.scopes }

// TokenServerURI returns the token endpoint this credential exchanges
// against.
func (c *ServiceAccountCredentials) TokenServerURI() string { return c.tokenServerURI }

// ScopedRequired implements [Credentials]. A service account credential is
// unusable until scopes are attached.
func (c *ServiceAccountCredentials) ScopedRequired() bool {
	return len(c.scopes) == 0
}

// Scoped implements [Credentials]. It returns a new instance carrying the
// given scopes and an empty token cache; the receiver is not mutated.
func (c *ServiceAccountCredentials) Scoped(scopes ...string) Credentials {
	clone := c.clone()
	var copied []string
	if err := deepcopy.Copy(&copied, scopes); err != nil {
		copied = append([]string(nil), scopes...)
	}
	clone.scopes = copied
	return clone
}

// Delegated implements [Credentials]. It returns a new instance that mints
// tokens impersonating principal; the receiver is not mutated.
func (c *ServiceAccountCredentials) Delegated(principal string) Credentials {
	clone := c.clone()
	clone.delegate = principal
	return clone
}

func (c *ServiceAccountCredentials) clone() *ServiceAccountCredentials {
	clone := &ServiceAccountCredentials{
		clientEmail:    c.clientEmail,
		privateKeyPEM:  c.privateKeyPEM,
		privateKey:     c.privateKey,
		tokenServerURI: c.tokenServerURI,
		scopes:         c.scopes,
		delegate:       c.delegate,
		transport:      c.transport,
	}
	s := newSettings()
	s.transport = c.transport
	s.expiryMargin = c.expiryMargin
	s.now = c.now
	clone.Base = newBase(&jwtTokenRefresher{creds: clone, s: s}, s)
	return clone
}

// Equal reports whether two credentials share identity fields, transport
// factory identity, and cached token.
func (c *ServiceAccountCredentials) Equal(other *ServiceAccountCredentials) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.hashKey() == other.hashKey()
}

func (c *ServiceAccountCredentials) hashKey() string {
	return fmt.Sprintf("serviceaccount|%s|%s|%s|%s|%s|%s|%s", c.clientEmail, c.privateKeyPEM, c.tokenServerURI, strings.Join(c.scopes, " "), c.delegate, transportKey(c.transport), tokenKey(c.Token()))
}

func (c *ServiceAccountCredentials) String() string {
	return fmt.Sprintf("ServiceAccountCredentials(clientEmail=%s, scopes=%v, tokenServerURI=%s, transport=%s)", c.clientEmail, c.scopes, c.tokenServerURI, transportKey(c.transport))
}

// jwtTokenRefresher signs a JWT assertion with the service account key and
// exchanges it for an access token.
type jwtTokenRefresher struct {
	creds *ServiceAccountCredentials
	s     settings
}

var _ TokenRefresher = (*jwtTokenRefresher)(nil)

// FetchToken implements [TokenRefresher].
func (r *jwtTokenRefresher) FetchToken(ctx context.Context) (*AccessToken, error) {
	if r.creds.ScopedRequired() {
		return nil, fmt.Errorf("%w: service account credentials need scopes, call Scoped first", ErrRefreshNotSupported)
	}

	now := r.s.now()
	claims := jwt.MapClaims{
		"iss":   r.creds.clientEmail,
		"aud":   r.creds.tokenServerURI,
		"scope": strings.Join(r.creds.scopes, " "),
		"iat":   now.Unix(),
		"exp":   now.Add(jwtAssertionLifetime).Unix(),
	}
	if r.creds.delegate != "" {
		claims["sub"] = r.creds.delegate
	}

	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(r.creds.privateKey)
	if err != nil {
		return nil, &TokenFetchError{Err: fmt.Errorf("sign assertion: %w", err)}
	}

	form := url.Values{
		"grant_type": {jwtBearerGrantType},
		"assertion":  {assertion},
	}
	return postTokenRequest(ctx, r.creds.transport.Client(), r.creds.tokenServerURI, form, r.s.now)
}
