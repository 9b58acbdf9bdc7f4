package compliance

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pestledger/registry/internal/registry/model"
)

// MemoryAdminRepo keeps the admin principal in memory.
type MemoryAdminRepo struct {
	mu    sync.Mutex
	admin model.Principal
}

// NewMemoryAdminRepo creates a MemoryAdminRepo seeded with admin.
func NewMemoryAdminRepo(admin model.Principal) *MemoryAdminRepo {
	return &MemoryAdminRepo{admin: admin}
}

// Get returns the current admin.
func (r *MemoryAdminRepo) Get(_ context.Context) (model.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.admin, nil
}

// Swap replaces prev with next.
func (r *MemoryAdminRepo) Swap(_ context.Context, prev, next model.Principal) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.admin != prev {
		return false, nil
	}
	r.admin = next
	return true, nil
}

// PostgresAdminRepo stores the admin in the single-row registry_admin table.
type PostgresAdminRepo struct {
	db *pgxpool.Pool
}

// NewPostgresAdminRepo creates a PostgresAdminRepo.
func NewPostgresAdminRepo(db *pgxpool.Pool) *PostgresAdminRepo {
	return &PostgresAdminRepo{db: db}
}

// Seed writes admin if no admin row exists yet. An existing row, possibly set
// by an earlier transfer, wins over configuration.
func (r *PostgresAdminRepo) Seed(ctx context.Context, admin model.Principal) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO registry_admin (singleton, principal) VALUES (TRUE, $1)
		 ON CONFLICT (singleton) DO NOTHING`, string(admin))
	return err
}

// Get returns the current admin, or "" if none is stored.
func (r *PostgresAdminRepo) Get(ctx context.Context) (model.Principal, error) {
	var p string
	err := r.db.QueryRow(ctx, `SELECT principal FROM registry_admin WHERE singleton`).Scan(&p)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return model.Principal(p), nil
}

// Swap replaces prev with next in one conditional update.
func (r *PostgresAdminRepo) Swap(ctx context.Context, prev, next model.Principal) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE registry_admin SET principal = $2, updated_at = NOW()
		 WHERE singleton AND principal = $1`, string(prev), string(next))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
