package trustledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// advisoryLockKey serialises Append across registry instances sharing one
// database.
const advisoryLockKey = int64(1_402_118_007)

const selectEntryCols = `idx, timestamp, height, subject, action, actor, data_hash, prev_hash, hash`

// PostgresLedger persists the audit chain in the trust_ledger table.
type PostgresLedger struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresLedger creates a PostgresLedger backed by the given connection pool.
func NewPostgresLedger(pool *pgxpool.Pool, logger *zap.Logger) *PostgresLedger {
	return &PostgresLedger{pool: pool, logger: logger}
}

// Append implements Ledger. The tail read and insert run under a
// transaction-scoped advisory lock.
func (l *PostgresLedger) Append(ctx context.Context, subject, action, actor string, height uint64, payload any) (*Entry, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryLockKey); err != nil {
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	var prevIdx int
	var prevHash string
	if err := tx.QueryRow(ctx,
		"SELECT idx, hash FROM trust_ledger ORDER BY idx DESC LIMIT 1",
	).Scan(&prevIdx, &prevHash); err != nil {
		return nil, fmt.Errorf("read ledger tail: %w", err)
	}

	entry := &Entry{
		Index:     prevIdx + 1,
		Timestamp: time.Now().UTC(),
		Height:    height,
		Subject:   subject,
		Action:    action,
		Actor:     actor,
		DataHash:  sha256Sum(payloadJSON),
		PrevHash:  prevHash,
	}
	entry.Hash = hashEntry(entry)

	if _, err := tx.Exec(ctx,
		`INSERT INTO trust_ledger (`+selectEntryCols+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.Index, entry.Timestamp, int64(entry.Height), entry.Subject,
		entry.Action, entry.Actor, entry.DataHash,
		entry.PrevHash, entry.Hash,
	); err != nil {
		return nil, fmt.Errorf("insert ledger entry: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit ledger tx: %w", err)
	}

	l.logger.Debug("ledger entry appended",
		zap.Int("idx", entry.Index),
		zap.String("action", entry.Action),
		zap.String("subject", entry.Subject),
		zap.Uint64("height", entry.Height),
	)
	return entry, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	e := &Entry{}
	var height int64
	if err := row.Scan(
		&e.Index, &e.Timestamp, &height, &e.Subject,
		&e.Action, &e.Actor, &e.DataHash,
		&e.PrevHash, &e.Hash,
	); err != nil {
		return nil, err
	}
	e.Height = uint64(height)
	return e, nil
}

// Get implements Ledger.
func (l *PostgresLedger) Get(ctx context.Context, index int) (*Entry, error) {
	e, err := scanEntry(l.pool.QueryRow(ctx,
		`SELECT `+selectEntryCols+` FROM trust_ledger WHERE idx = $1`, index))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("index %d out of range", index)
	}
	if err != nil {
		return nil, fmt.Errorf("get ledger entry %d: %w", index, err)
	}
	return e, nil
}

// Len implements Ledger.
func (l *PostgresLedger) Len(ctx context.Context) (int, error) {
	var n int
	if err := l.pool.QueryRow(ctx, "SELECT COUNT(*) FROM trust_ledger").Scan(&n); err != nil {
		return 0, fmt.Errorf("count ledger entries: %w", err)
	}
	return n, nil
}

// Verify implements Ledger. It streams rows in index order; O(n) in ledger
// length.
func (l *PostgresLedger) Verify(ctx context.Context) error {
	rows, err := l.pool.Query(ctx,
		`SELECT `+selectEntryCols+` FROM trust_ledger ORDER BY idx ASC`)
	if err != nil {
		return fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var prev *Entry
	for rows.Next() {
		curr, err := scanEntry(rows)
		if err != nil {
			return fmt.Errorf("scan ledger row: %w", err)
		}
		if err := verifyLink(prev, curr); err != nil {
			return err
		}
		prev = curr
	}
	return rows.Err()
}

// Root implements Ledger.
func (l *PostgresLedger) Root(ctx context.Context) (string, error) {
	var hash string
	if err := l.pool.QueryRow(ctx,
		"SELECT hash FROM trust_ledger ORDER BY idx DESC LIMIT 1",
	).Scan(&hash); err != nil {
		return "", fmt.Errorf("get ledger root: %w", err)
	}
	return hash, nil
}
