// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

// DefaultTokenServerURI is the token endpoint used when a credential is
// built without [WithTokenServerURI].
const DefaultTokenServerURI = "https://auth.a2a.dev/oauth2/token"

// UserCredentials authorizes calls with a stored user grant: a long-lived
// refresh token obtained from an earlier interactive login, exchanged for
// short-lived access tokens on demand.
type UserCredentials struct {
	*Base

	clientID       string
	clientSecret   string
	refreshToken   string
	tokenServerURI string
	transport      TransportFactory
}

var _ Credentials = (*UserCredentials)(nil)

// NewUserCredentials creates a [*UserCredentials] from an OAuth2 client and
// its stored refresh token. At least one of the refresh token or an initial
// access token ([WithInitialToken]) must be present, otherwise the credential
// could never produce a token.
func NewUserCredentials(clientID, clientSecret, refreshToken string, opts ...Option) (*UserCredentials, error) {
	s := newSettings(opts...)
	if s.tokenServerURI == "" {
		s.tokenServerURI = DefaultTokenServerURI
	}
	if refreshToken == "" && s.initialToken == nil {
		return nil, errors.New("credentials: either a refresh token or an initial access token is required")
	}

	c := &UserCredentials{
		clientID:       clientID,
		clientSecret:   clientSecret,
		refreshToken:   refreshToken,
		tokenServerURI: s.tokenServerURI,
		transport:      s.transport,
	}
	c.Base = newBase(&userTokenRefresher{creds: c, s: s}, s)
	return c, nil
}

func userCredentialsFromFields(fields map[string]any, opts ...Option) (*UserCredentials, error) {
	clientID, err := stringField(fields, "client_id")
	if err != nil {
		return nil, err
	}
	clientSecret, err := stringField(fields, "client_secret")
	if err != nil {
		return nil, err
	}
	refreshToken, err := stringField(fields, "refresh_token")
	if err != nil {
		return nil, err
	}
	return NewUserCredentials(clientID, clientSecret, refreshToken, opts...)
}

// ClientID returns the OAuth2 client identifier.
func (c *UserCredentials) ClientID() string { return c.clientID }

// ClientSecret returns the OAuth2 client secret.
func (c *UserCredentials) ClientSecret() string { return c.clientSecret }

// RefreshToken returns the stored refresh token, or "" when the credential
// was built from an initial access token only.
func (c *UserCredentials) RefreshToken() string { return c.refreshToken }

// TokenServerURI returns the token endpoint this credential exchanges
// against.
func (c *UserCredentials) TokenServerURI() string { return c.tokenServerURI }

// Scoped implements [Credentials]. User credentials carry the scopes of the
// original grant and cannot be re-scoped, so the same instance is returned.
func (c *UserCredentials) Scoped(scopes ...string) Credentials { return c }

// Delegated implements [Credentials].
func (c *UserCredentials) Delegated(principal string) Credentials { return c }

// Equal reports whether two credentials share identity fields, transport
// factory identity, and cached token.
func (c *UserCredentials) Equal(other *UserCredentials) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.hashKey() == other.hashKey()
}

func (c *UserCredentials) hashKey() string {
	return fmt.Sprintf("user|%s|%s|%s|%s|%s|%s", c.clientID, c.clientSecret, c.refreshToken, c.tokenServerURI, transportKey(c.transport), tokenKey(c.Token()))
}

func (c *UserCredentials) String() string {
	return fmt.Sprintf("UserCredentials(clientID=%s, tokenServerURI=%s, transport=%s)", c.clientID, c.tokenServerURI, transportKey(c.transport))
}

// userCredentialsFile is the persisted form of a user credential. Tokens and
// expirations are deliberately not persisted: a restored credential starts
// cold and refreshes on first use.
type userCredentialsFile struct {
	Type         string `json:"type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RefreshToken string `json:"refresh_token"`
}

// Save writes the credential's identity fields to path in the same JSON form
// [FromStream] accepts. The write is atomic: the file is staged beside path
// and renamed into place.
func (c *UserCredentials) Save(path string) error {
	data, err := sonic.ConfigFastest.Marshal(&userCredentialsFile{
		Type:         userFileType,
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		RefreshToken: c.refreshToken,
	})
	if err != nil {
		return fmt.Errorf("credentials: encode user credentials: %w", err)
	}

	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("credentials: stage user credentials file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("credentials: save user credentials file: %w", err)
	}
	return nil
}

// userTokenRefresher exchanges the stored refresh token for a new access
// token.
type userTokenRefresher struct {
	creds *UserCredentials
	s     settings
}

var _ TokenRefresher = (*userTokenRefresher)(nil)

// FetchToken implements [TokenRefresher].
func (r *userTokenRefresher) FetchToken(ctx context.Context) (*AccessToken, error) {
	if r.creds.refreshToken == "" {
		return nil, fmt.Errorf("%w: user credentials have no refresh token", ErrRefreshNotSupported)
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {r.creds.clientID},
		"client_secret": {r.creds.clientSecret},
		"refresh_token": {r.creds.refreshToken},
	}
	return postTokenRequest(ctx, r.creds.transport.Client(), r.creds.tokenServerURI, form, r.s.now)
}

// tokenKey folds a cached token into a credential's equality key.
func tokenKey(token *AccessToken) string {
	if token == nil {
		return "<nil>"
	}
	return token.Value() + "@" + token.ExpiresAt().String()
}
