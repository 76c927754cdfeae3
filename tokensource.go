// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package credentials

import (
	"context"

	"golang.org/x/oauth2"
)

// TokenSource adapts creds into an [oauth2.TokenSource] so it can drive
// clients built on golang.org/x/oauth2, such as oauth2.NewClient.
//
// The returned source shares the credential's cache and refresh lock, so the
// at-most-one-refresh guarantee holds across both APIs.
func TokenSource(ctx context.Context, creds Credentials) oauth2.TokenSource {
	return &credentialsTokenSource{ctx: ctx, creds: creds}
}

type credentialsTokenSource struct {
	ctx   context.Context
	creds Credentials
}

var _ oauth2.TokenSource = (*credentialsTokenSource)(nil)

// Token implements [oauth2.TokenSource].
func (ts *credentialsTokenSource) Token() (*oauth2.Token, error) {
	if _, err := ts.creds.RequestMetadata(ts.ctx, ""); err != nil {
		return nil, err
	}
	token := ts.creds.Token()
	return &oauth2.Token{
		AccessToken: token.Value(),
		TokenType:   "Bearer",
		Expiry:      token.ExpiresAt(),
	}, nil
}
