// Package sqlite provides SQLite-based persistent storage for swarmpay.
// Uses WAL mode for concurrent reads and crash-safe writes. Every mutation
// goes through Atomic, which runs on the single writer connection.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)

	"github.com/tutu-network/swarmpay/internal/domain"
)

// DB wraps a SQLite connection with WAL mode and migrations.
type DB struct {
	db  *sql.DB
	now func() time.Time
}

var _ domain.Store = (*DB)(nil)

// Option configures a DB at Open.
type Option func(*DB)

// WithClock sets the time source used for ledger timestamps.
// The clock is fixed for the life of the DB.
func WithClock(now func() time.Time) Option {
	return func(d *DB) { d.now = now }
}

// Open creates or opens the SQLite database at dir/state.db.
// Enables WAL mode, foreign keys, 5-second busy timeout and immediate
// transactions so a writer never upgrades a read lock mid-transaction.
func Open(dir string, opts ...Option) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "state.db")
	dsn := "file:" + dbPath +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// SQLite is single-writer; one connection also serializes Atomic calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	d := &DB{db: db, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS pools (
			id             TEXT PRIMARY KEY,
			authority      TEXT NOT NULL,
			total_staked   INTEGER NOT NULL DEFAULT 0,
			reward_rate    INTEGER NOT NULL,
			min_stake      INTEGER NOT NULL,
			leader_bonus   INTEGER NOT NULL,
			referral_bonus INTEGER NOT NULL,
			created_at     INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS tasks (
			id                TEXT PRIMARY KEY,
			pool_id           TEXT NOT NULL REFERENCES pools(id),
			creator           TEXT NOT NULL,
			computation_units INTEGER NOT NULL,
			reward            INTEGER NOT NULL,
			status            TEXT NOT NULL,
			completion        TEXT,
			created_at        INTEGER NOT NULL,
			updated_at        INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_creator ON tasks(creator)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_created ON tasks(created_at)`,

		`CREATE TABLE IF NOT EXISTS swarms (
			id                TEXT PRIMARY KEY,
			leader            TEXT NOT NULL,
			members           TEXT NOT NULL,
			total_power       INTEGER NOT NULL,
			tasks_completed   INTEGER NOT NULL DEFAULT 0,
			performance_score INTEGER NOT NULL,
			created_at        INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_swarms_leader ON swarms(leader)`,

		`CREATE TABLE IF NOT EXISTS referrals (
			referrer         TEXT PRIMARY KEY,
			id               TEXT NOT NULL UNIQUE,
			total_rewards    INTEGER NOT NULL DEFAULT 0,
			active_referrals INTEGER NOT NULL DEFAULT 0,
			created_at       INTEGER NOT NULL
		)`,

		// Credit ledger (double-entry bookkeeping)
		`CREATE TABLE IF NOT EXISTS accounts (
			account TEXT PRIMARY KEY,
			balance INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS credit_ledger (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			type        TEXT NOT NULL,
			entry_type  TEXT NOT NULL,
			account     TEXT NOT NULL,
			amount      INTEGER NOT NULL,
			task_id     TEXT,
			description TEXT,
			balance     INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_credit_ts ON credit_ledger(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_credit_account ON credit_ledger(account)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Transactions ───────────────────────────────────────────────────────────

// Atomic runs fn inside one SQLite transaction. fn's error aborts the
// transaction and is returned unchanged.
func (d *DB) Atomic(ctx context.Context, fn func(tx domain.Tx) error) (err error) {
	sqlTx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	if err := fn(&txView{tx: sqlTx, now: d.now}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

// txView implements domain.Tx over an open transaction.
type txView struct {
	tx  *sql.Tx
	now func() time.Time
}

var _ domain.Tx = (*txView)(nil)

// ─── Helpers ────────────────────────────────────────────────────────────────

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnix(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
