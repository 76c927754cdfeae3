// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package pool provides strongly-typed object pooling built on [sync.Pool],
// with a predefined [*bytes.Buffer] pool used when reading token-endpoint
// responses.
package pool
