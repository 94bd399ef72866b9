package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	// registers the "sqlite" database/sql driver
	_ "modernc.org/sqlite"

	"github.com/YannMSFT/VID-Issuing-Tool/pkg/logger"
)

const sqliteBusyTimeoutMillis = 5000

// SQLiteStore implements RequestStore in a local SQLite file. Records keep
// the same TTL as the other backends but survive a restart of a single
// instance. Expired rows are purged on List and DeleteOlderThan.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

var _ RequestStore = (*SQLiteStore)(nil)

// SQLiteOption configures a SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithSQLiteClock overrides the time source used for expiry.
func WithSQLiteClock(now func() time.Time) SQLiteOption {
	return func(s *SQLiteStore) { s.now = now }
}

// NewSQLiteStore opens or creates the database at path and applies pending migrations.
func NewSQLiteStore(ctx context.Context, path string, ttl time.Duration, opts ...SQLiteOption) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}

	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One connection serializes writers.
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func sqliteDSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", sqliteBusyTimeoutMillis))
	q.Add("_pragma", "journal_mode(WAL)")
	return "file:" + path + "?" + q.Encode()
}

// Put inserts or overwrites a record and restarts its TTL.
func (s *SQLiteStore) Put(ctx context.Context, req *IssuanceRequest) error {
	if req == nil || req.RequestID == "" {
		return errors.New("request id cannot be empty")
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal issuance request: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO issuance_requests (request_id, created_at, expires_at, record)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (request_id) DO UPDATE SET
			created_at = excluded.created_at,
			expires_at = excluded.expires_at,
			record = excluded.record`,
		req.RequestID,
		req.CreatedAt.UnixNano(),
		s.now().Add(s.ttl).UnixNano(),
		data,
	)
	if err != nil {
		return fmt.Errorf("failed to store issuance request: %w", err)
	}
	return nil
}

// Get returns a live record.
func (s *SQLiteStore) Get(ctx context.Context, requestID string) (*IssuanceRequest, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM issuance_requests WHERE request_id = ? AND expires_at > ?`,
		requestID, s.now().UnixNano(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get issuance request: %w", err)
	}

	var req IssuanceRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal issuance request: %w", err)
	}
	return &req, nil
}

// Delete removes a record.
func (s *SQLiteStore) Delete(ctx context.Context, requestID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM issuance_requests WHERE request_id = ?`, requestID); err != nil {
		return fmt.Errorf("failed to delete issuance request: %w", err)
	}
	return nil
}

// List returns every live record.
func (s *SQLiteStore) List(ctx context.Context) ([]*IssuanceRequest, error) {
	if err := s.purgeExpired(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT request_id, record FROM issuance_requests`)
	if err != nil {
		return nil, fmt.Errorf("failed to list issuance requests: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*IssuanceRequest
	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan issuance request: %w", err)
		}
		var req IssuanceRequest
		if err := json.Unmarshal(data, &req); err != nil {
			logger.Warnf("skipping unreadable issuance request %s: %v", id, err)
			continue
		}
		out = append(out, &req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list issuance requests: %w", err)
	}
	return out, nil
}

// DeleteOlderThan removes live records created before cutoff.
func (s *SQLiteStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	if err := s.purgeExpired(ctx); err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM issuance_requests WHERE created_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to delete issuance requests: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted issuance requests: %w", err)
	}
	return int(n), nil
}

func (s *SQLiteStore) purgeExpired(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM issuance_requests WHERE expires_at <= ?`, s.now().UnixNano()); err != nil {
		return fmt.Errorf("failed to purge expired issuance requests: %w", err)
	}
	return nil
}

// Health pings the database.
func (s *SQLiteStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
