package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"gitlab.com/henri.philipps/showwatch"
	"gitlab.com/henri.philipps/showwatch/storage"
	"golang.org/x/exp/slog"

	_ "github.com/lib/pq"
)

var _ storage.DocumentStore = &DB{}

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	kind       TEXT PRIMARY KEY,
	document   JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

// DB is storing documents in the snapshots table, one row per document key.
type DB struct {
	conn   *sqlx.DB
	logger *slog.Logger
}

type document struct {
	Kind      string    `db:"kind"`
	Document  []byte    `db:"document"`
	UpdatedAt time.Time `db:"updated_at"`
}

// New is connecting to the database at uri and creating the snapshots table if needed.
func New(ctx context.Context, uri string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := sqlx.Open("postgres", uri)
	if err != nil {
		return nil, err
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("postgres.New() - creating schema: %w", err)
	}

	return &DB{conn: conn, logger: logger.With(slog.String("driver", "postgresql"))}, nil
}

func (db *DB) Get(ctx context.Context, key string) ([]byte, error) {
	doc := &document{}

	if err := db.conn.GetContext(ctx, doc, "SELECT kind, document, updated_at FROM snapshots WHERE kind=$1", key); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			db.logger.Error("query failed", "method", "Get", "kind", key, "error", err)
		}
		return nil, wrapError(err)
	}

	return doc.Document, nil
}

func (db *DB) Put(ctx context.Context, key string, doc []byte) error {
	query := `
	INSERT INTO snapshots (kind, document, updated_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (kind) DO UPDATE SET document = EXCLUDED.document, updated_at = EXCLUDED.updated_at`

	if _, err := db.conn.ExecContext(ctx, query, key, doc, time.Now().UTC()); err != nil {
		db.logger.Error("query failed", "method", "Put", "kind", key, "error", err)
		return wrapError(err)
	}

	return nil
}

// Close is closing the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

func wrapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", showwatch.ErrNotExist, err)
	}
	return fmt.Errorf("postgres: %w", err)
}
