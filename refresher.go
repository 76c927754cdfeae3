// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package credentials

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-json-experiment/json"

	"github.com/go-a2a/credentials/internal/pool"
	"github.com/go-a2a/credentials/pkg/logging"
)

// tokenResponse is the minimal wire contract every token endpoint shares.
// A missing expires_in means the token does not expire.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitzero"`
	ExpiresIn   int64  `json:"expires_in,omitzero"`
}

// postTokenRequest POSTs an x-www-form-urlencoded grant to tokenURI and
// decodes the JSON token response.
func postTokenRequest(ctx context.Context, client *http.Client, tokenURI string, form url.Values, now func() time.Time) (*AccessToken, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &TokenFetchError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	logging.FromContext(ctx).DebugContext(ctx, "requesting access token", "token_uri", tokenURI, "grant_type", form.Get("grant_type"))

	resp, err := client.Do(req)
	if err != nil {
		return nil, &TokenFetchError{Err: err}
	}
	return parseTokenResponse(resp, now)
}

// parseTokenResponse consumes and closes resp, converting it into an
// [*AccessToken].
func parseTokenResponse(resp *http.Response, now func() time.Time) (*AccessToken, error) {
	defer resp.Body.Close()

	buf := pool.Buffer.Get()
	defer func() {
		buf.Reset()
		pool.Buffer.Put(buf)
	}()

	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, &TokenFetchError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read token response: %w", err)}
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &TokenFetchError{StatusCode: resp.StatusCode, Err: fmt.Errorf("token endpoint returned %q: %s", resp.Status, strings.TrimSpace(buf.String()))}
	}

	var tr tokenResponse
	if err := json.Unmarshal(buf.Bytes(), &tr); err != nil {
		return nil, &TokenFetchError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode token response: %w", err)}
	}
	if tr.AccessToken == "" {
		return nil, &TokenFetchError{StatusCode: resp.StatusCode, Err: fmt.Errorf("token response has no access_token field")}
	}

	var expiresAt time.Time
	if tr.ExpiresIn > 0 {
		expiresAt = now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return NewAccessToken(tr.AccessToken, expiresAt), nil
}
