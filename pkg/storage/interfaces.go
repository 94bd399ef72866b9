// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package storage holds the ephemeral issuance request store.
//
// Records live for a fixed TTL measured from their last write. The memory
// backend loses them on restart; the Redis and SQLite backends keep them
// until the TTL runs out.
package storage

import (
	"context"
	"time"
)

//go:generate mockgen -destination=mocks/mock_request_store.go -package=mocks -source=interfaces.go RequestStore

// RequestStore maps request ids to issuance records.
type RequestStore interface {
	// Put inserts or overwrites a record and restarts its TTL.
	Put(ctx context.Context, req *IssuanceRequest) error
	// Get returns the record, or ErrNotFound when it is unknown or expired.
	Get(ctx context.Context, requestID string) (*IssuanceRequest, error)
	// Delete removes a record. Deleting an unknown id is not an error.
	Delete(ctx context.Context, requestID string) error
	// List returns every live record in no particular order.
	List(ctx context.Context) ([]*IssuanceRequest, error)
	// DeleteOlderThan removes records created before cutoff and returns how many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
	// Health reports whether the backend is reachable.
	Health(ctx context.Context) error
	// Close releases any resources held by the store.
	Close() error
}
