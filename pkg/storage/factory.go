// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"fmt"

	"github.com/YannMSFT/VID-Issuing-Tool/pkg/config"
	"github.com/YannMSFT/VID-Issuing-Tool/pkg/logger"
)

// NewRequestStore creates the RequestStore selected by cfg.
func NewRequestStore(ctx context.Context, cfg config.StoreConfig) (RequestStore, error) {
	switch cfg.Backend {
	case config.StoreBackendRedis:
		logger.Infow("using redis request store", "addr", cfg.RedisAddr, "ttl", cfg.TTL)
		return NewRedisStore(ctx, RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.TTL,
		})
	case config.StoreBackendSQLite:
		logger.Infow("using sqlite request store", "path", cfg.SQLitePath, "ttl", cfg.TTL)
		return NewSQLiteStore(ctx, cfg.SQLitePath, cfg.TTL)
	case config.StoreBackendMemory, "":
		logger.Infow("using in-memory request store", "ttl", cfg.TTL)
		return NewMemoryStore(cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Backend)
	}
}
