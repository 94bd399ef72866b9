package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YannMSFT/VID-Issuing-Tool/pkg/config"
)

func TestNewRequestStore(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)

	tests := []struct {
		name     string
		cfg      config.StoreConfig
		wantType any
		wantErr  bool
	}{
		{
			name:     "memory",
			cfg:      config.StoreConfig{Backend: config.StoreBackendMemory, TTL: time.Minute},
			wantType: &MemoryStore{},
		},
		{
			name:     "redis",
			cfg:      config.StoreConfig{Backend: config.StoreBackendRedis, TTL: time.Minute, RedisAddr: mr.Addr()},
			wantType: &RedisStore{},
		},
		{
			name: "sqlite",
			cfg: config.StoreConfig{
				Backend:    config.StoreBackendSQLite,
				TTL:        time.Minute,
				SQLitePath: filepath.Join(t.TempDir(), "requests.db"),
			},
			wantType: &SQLiteStore{},
		},
		{
			name:    "unknown",
			cfg:     config.StoreConfig{Backend: "etcd", TTL: time.Minute},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store, err := NewRequestStore(context.Background(), tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer store.Close()
			assert.IsType(t, tt.wantType, store)
		})
	}
}
