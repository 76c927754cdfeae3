// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package credentials

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const (
	testClientID     = "client-id-1"
	testClientSecret = "client-secret-1"
	testRefreshToken = "refresh-token-1"
)

// newTokenServer fakes a token endpoint that checks the submitted form and
// answers with accessToken.
func newTokenServer(t *testing.T, wantForm map[string]string, accessToken string, expiresIn int64) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		for key, want := range wantForm {
			if got := r.PostFormValue(key); got != want {
				t.Errorf("form[%s] = %q, want %q", key, got, want)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		if expiresIn > 0 {
			w.Write([]byte(`{"access_token":"` + accessToken + `","token_type":"Bearer","expires_in":` + strconv.FormatInt(expiresIn, 10) + `}`))
			return
		}
		w.Write([]byte(`{"access_token":"` + accessToken + `","token_type":"Bearer"}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNewUserCredentials_requiresRefreshMaterial(t *testing.T) {
	if _, err := NewUserCredentials(testClientID, testClientSecret, ""); err == nil {
		t.Error("construction without refresh token or initial token should fail")
	}

	creds, err := NewUserCredentials(testClientID, testClientSecret, "", WithInitialToken(NewAccessToken("initial", time.Time{})))
	if err != nil {
		t.Fatalf("construction with initial token failed: %v", err)
	}
	if got := creds.RefreshToken(); got != "" {
		t.Errorf("RefreshToken() = %q, want empty", got)
	}
}

func TestUserCredentials_requestMetadataFromRefreshToken(t *testing.T) {
	ctx := t.Context()

	server := newTokenServer(t, map[string]string{
		"grant_type":    "refresh_token",
		"client_id":     testClientID,
		"client_secret": testClientSecret,
		"refresh_token": testRefreshToken,
	}, "minted-token", 3600)

	creds, err := NewUserCredentials(testClientID, testClientSecret, testRefreshToken, WithTokenServerURI(server.URL))
	if err != nil {
		t.Fatalf("NewUserCredentials failed: %v", err)
	}

	metadata, err := creds.RequestMetadata(ctx, "https://example.com/api")
	if err != nil {
		t.Fatalf("RequestMetadata failed: %v", err)
	}
	want := map[string][]string{"Authorization": {"Bearer minted-token"}}
	if diff := cmp.Diff(want, metadata); diff != "" {
		t.Errorf("RequestMetadata mismatch (-want +got):\n%s", diff)
	}

	if got := creds.Token(); got.ExpiresAt().IsZero() {
		t.Error("token minted with expires_in should carry an expiration")
	}
}

func TestUserCredentials_initialTokenServedWithoutNetwork(t *testing.T) {
	ctx := t.Context()

	// No server: any network attempt fails loudly.
	creds, err := NewUserCredentials(testClientID, testClientSecret, testRefreshToken,
		WithTokenServerURI("http://127.0.0.1:0"),
		WithInitialToken(NewAccessToken("initial-token", time.Time{})))
	if err != nil {
		t.Fatalf("NewUserCredentials failed: %v", err)
	}

	metadata, err := creds.RequestMetadata(ctx, "")
	if err != nil {
		t.Fatalf("RequestMetadata failed: %v", err)
	}
	if got, want := metadata["Authorization"][0], "Bearer initial-token"; got != want {
		t.Errorf("Authorization = %q, want %q", got, want)
	}
}

func TestUserCredentials_expiredInitialTokenWithoutRefreshToken(t *testing.T) {
	ctx := t.Context()
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	creds, err := NewUserCredentials(testClientID, testClientSecret, "",
		WithInitialToken(NewAccessToken("expired", now.Add(-time.Hour))),
		withClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewUserCredentials failed: %v", err)
	}

	if _, err := creds.RequestMetadata(ctx, ""); !errors.Is(err, ErrRefreshNotSupported) {
		t.Errorf("RequestMetadata error = %v, want ErrRefreshNotSupported", err)
	}
}

func TestUserCredentials_tokenServerError(t *testing.T) {
	ctx := t.Context()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	t.Cleanup(server.Close)

	creds, err := NewUserCredentials(testClientID, testClientSecret, testRefreshToken, WithTokenServerURI(server.URL))
	if err != nil {
		t.Fatalf("NewUserCredentials failed: %v", err)
	}

	var fetchErr *TokenFetchError
	if _, err := creds.RequestMetadata(ctx, ""); !errors.As(err, &fetchErr) {
		t.Fatalf("RequestMetadata error = %v, want *TokenFetchError", err)
	}
	if fetchErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want %d", fetchErr.StatusCode, http.StatusBadRequest)
	}
	if got := creds.Token(); got != nil {
		t.Errorf("cache should stay empty after failed fetch, got %v", got)
	}
}

func TestUserCredentials_missingAccessTokenField(t *testing.T) {
	ctx := t.Context()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token_type":"Bearer","expires_in":3600}`))
	}))
	t.Cleanup(server.Close)

	creds, err := NewUserCredentials(testClientID, testClientSecret, testRefreshToken, WithTokenServerURI(server.URL))
	if err != nil {
		t.Fatalf("NewUserCredentials failed: %v", err)
	}

	var fetchErr *TokenFetchError
	if _, err := creds.RequestMetadata(ctx, ""); !errors.As(err, &fetchErr) {
		t.Errorf("RequestMetadata error = %v, want *TokenFetchError", err)
	}
}

func TestUserCredentials_equality(t *testing.T) {
	newCreds := func(t *testing.T, mutate func(*[]Option) (clientID, secret, refreshToken string)) *UserCredentials {
		t.Helper()

		opts := []Option{WithInitialToken(NewAccessToken("cached", time.Time{}))}
		clientID, secret, refreshToken := testClientID, testClientSecret, testRefreshToken
		if mutate != nil {
			clientID, secret, refreshToken = mutate(&opts)
		}
		creds, err := NewUserCredentials(clientID, secret, refreshToken, opts...)
		if err != nil {
			t.Fatalf("NewUserCredentials failed: %v", err)
		}
		return creds
	}

	base := newCreds(t, nil)
	if same := newCreds(t, nil); !base.Equal(same) {
		t.Error("identically built credentials should be equal")
	}
	if same := newCreds(t, nil); base.hashKey() != same.hashKey() {
		t.Error("identically built credentials should share a hash key")
	}

	tests := map[string]func(*[]Option) (string, string, string){
		"client id": func(opts *[]Option) (string, string, string) {
			return "other-client", testClientSecret, testRefreshToken
		},
		"client secret": func(opts *[]Option) (string, string, string) {
			return testClientID, "other-secret", testRefreshToken
		},
		"refresh token": func(opts *[]Option) (string, string, string) {
			return testClientID, testClientSecret, "other-refresh"
		},
		"cached token": func(opts *[]Option) (string, string, string) {
			(*opts)[0] = WithInitialToken(NewAccessToken("other-cached", time.Time{}))
			return testClientID, testClientSecret, testRefreshToken
		},
		"token server": func(opts *[]Option) (string, string, string) {
			*opts = append(*opts, WithTokenServerURI("https://other.example.com/token"))
			return testClientID, testClientSecret, testRefreshToken
		},
		"transport factory": func(opts *[]Option) (string, string, string) {
			*opts = append(*opts, WithHTTPClient(http.DefaultClient))
			return testClientID, testClientSecret, testRefreshToken
		},
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			if changed := newCreds(t, mutate); base.Equal(changed) {
				t.Errorf("credentials differing in %s should not be equal", name)
			}
		})
	}
}

func TestUserCredentials_saveAndRestore(t *testing.T) {
	creds, err := NewUserCredentials(testClientID, testClientSecret, testRefreshToken,
		WithInitialToken(NewAccessToken("cached", time.Time{})))
	if err != nil {
		t.Fatalf("NewUserCredentials failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "user_credentials.json")
	if err := creds.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open saved file: %v", err)
	}
	restored, err := FromStream(f)
	if err != nil {
		t.Fatalf("FromStream failed: %v", err)
	}

	restoredUser, ok := restored.(*UserCredentials)
	if !ok {
		t.Fatalf("restored credential is %T, want *UserCredentials", restored)
	}
	if got := restoredUser.ClientID(); got != testClientID {
		t.Errorf("ClientID = %q, want %q", got, testClientID)
	}
	if got := restoredUser.ClientSecret(); got != testClientSecret {
		t.Errorf("ClientSecret = %q, want %q", got, testClientSecret)
	}
	if got := restoredUser.RefreshToken(); got != testRefreshToken {
		t.Errorf("RefreshToken = %q, want %q", got, testRefreshToken)
	}
	if got := restoredUser.Token(); got != nil {
		t.Errorf("restored credential should start with no cached token, got %v", got)
	}
}
