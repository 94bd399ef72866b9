// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"errors"
	"time"
)

// MemoryStore implements RequestStore in process memory.
// Records are copied on the way in and out so callers never share state
// with the store.
type MemoryStore struct {
	records *TTLMap[*IssuanceRequest]
}

var _ RequestStore = (*MemoryStore)(nil)

// NewMemoryStore creates a MemoryStore whose records expire ttl after their last write.
func NewMemoryStore(ttl time.Duration, opts ...TTLMapOption) *MemoryStore {
	return &MemoryStore{records: NewTTLMap[*IssuanceRequest](ttl, opts...)}
}

// Put inserts or overwrites a record.
func (s *MemoryStore) Put(_ context.Context, req *IssuanceRequest) error {
	if req == nil || req.RequestID == "" {
		return errors.New("request id cannot be empty")
	}
	s.records.Set(req.RequestID, req.Clone())
	return nil
}

// Get returns a copy of the record.
func (s *MemoryStore) Get(_ context.Context, requestID string) (*IssuanceRequest, error) {
	rec, ok := s.records.Get(requestID)
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

// Delete removes a record.
func (s *MemoryStore) Delete(_ context.Context, requestID string) error {
	s.records.Delete(requestID)
	return nil
}

// List returns copies of every live record.
func (s *MemoryStore) List(_ context.Context) ([]*IssuanceRequest, error) {
	values := s.records.Values()
	out := make([]*IssuanceRequest, 0, len(values))
	for _, rec := range values {
		out = append(out, rec.Clone())
	}
	return out, nil
}

// DeleteOlderThan removes records with CreatedAt strictly before cutoff.
func (s *MemoryStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	return s.records.DeleteFunc(func(rec *IssuanceRequest) bool {
		return rec.CreatedAt.Before(cutoff)
	}), nil
}

// Health is a no-op for in-memory storage since it is always available.
func (*MemoryStore) Health(_ context.Context) error {
	return nil
}

// Close stops the background cleanup goroutine.
func (s *MemoryStore) Close() error {
	return s.records.Close()
}
