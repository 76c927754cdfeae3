// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging carries a [*slog.Logger] through a [context.Context].
//
// Token refreshes happen deep inside credential internals, far from where a
// caller configures logging. Storing the logger in the context lets a caller
// observe token-endpoint traffic without threading a logger through every
// credential constructor:
//
//	ctx := logging.NewContext(ctx, slog.Default())
//	metadata, err := creds.RequestMetadata(ctx, uri)
//
// When the context carries no logger, [FromContext] returns a discard
// logger, so credential operations are silent by default.
package logging
