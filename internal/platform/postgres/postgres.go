// Package postgres owns the connection pool, schema migrations, and the
// transaction helpers the postgres stores share.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"mandate/internal/platform/config"
	txcontext "mandate/pkg/platform/tx"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsTable = "mandate_schema_migrations"

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Open connects a pool sized from cfg and verifies it with a ping.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Migrate applies embedded migrations in file order, recording each version
// so reruns are no-ops. Each migration runs in its own transaction.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+migrationsTable+` (
  version TEXT PRIMARY KEY,
  applied_at TIMESTAMPTZ NOT NULL
)`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	files, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, file := range files {
		version := strings.TrimSuffix(path.Base(file), ".sql")
		contents, err := migrationsFS.ReadFile(file)
		if err != nil {
			return err
		}
		err = InTx(ctx, pool, func(ctx context.Context) error {
			tx, _ := txcontext.From(ctx)
			tag, err := tx.Exec(ctx,
				`INSERT INTO `+migrationsTable+` (version, applied_at) VALUES ($1, $2) ON CONFLICT (version) DO NOTHING`,
				version, time.Now().UTC())
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return nil
			}
			_, err = tx.Exec(ctx, string(contents))
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", version, err)
		}
	}
	return nil
}

// InTx runs fn inside a transaction carried in its context. Stores called
// with that context write through the same transaction. Nested calls join the
// outer transaction.
func InTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	if _, ok := txcontext.From(ctx); ok {
		return fn(ctx)
	}
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Conn returns the transaction in ctx, or the pool.
func Conn(ctx context.Context, pool *pgxpool.Pool) DBTX {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return pool
}

// IsUniqueViolation reports whether err is a unique or primary key violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Numeric encodes v for a NUMERIC(20,0) column; BIGINT cannot hold the
// upper half of uint64.
func Numeric(v uint64) pgtype.Numeric {
	return pgtype.Numeric{Int: new(big.Int).SetUint64(v), Valid: true}
}

// Uint64 decodes a NUMERIC(20,0) column written by Numeric.
func Uint64(n pgtype.Numeric) (uint64, error) {
	if !n.Valid || n.Int == nil {
		return 0, errors.New("numeric is null")
	}
	v := new(big.Int).Set(n.Int)
	ten := big.NewInt(10)
	for e := n.Exp; e > 0; e-- {
		v.Mul(v, ten)
	}
	for e := n.Exp; e < 0; e++ {
		var rem big.Int
		v.QuoRem(v, ten, &rem)
		if rem.Sign() != 0 {
			return 0, errors.New("numeric has a fractional part")
		}
	}
	if v.Sign() < 0 || !v.IsUint64() {
		return 0, fmt.Errorf("numeric %s out of uint64 range", v)
	}
	return v.Uint64(), nil
}
