// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"

	"github.com/YannMSFT/VID-Issuing-Tool/pkg/logger"
)

//go:embed migrations/*.sql
var schemaFS embed.FS

// migrate applies any pending schema migrations to db.
func migrate(ctx context.Context, db *sql.DB) error {
	scripts, err := fs.Sub(schemaFS, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(database.DialectSQLite3, db, scripts)
	if err != nil {
		return fmt.Errorf("failed to load schema migrations: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to migrate issuance store: %w", err)
	}
	for _, r := range results {
		logger.Debugw("applied migration", "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}
