package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pestledger/registry/internal/registry/model"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// TechnicianRepository persists technicians and their account bindings to
// PostgreSQL. technician_accounts carries both directions of the binding:
// its primary key is the technician id and account has a unique index.
type TechnicianRepository struct {
	db *pgxpool.Pool
}

// NewTechnicianRepository creates a new TechnicianRepository.
func NewTechnicianRepository(db *pgxpool.Pool) *TechnicianRepository {
	return &TechnicianRepository{db: db}
}

// Create allocates the next id, inserts the technician and binds its account,
// all in one transaction. A duplicate account rolls back the counter too.
func (r *TechnicianRepository) Create(ctx context.Context, t *model.Technician) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var bound bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM technician_accounts WHERE account = $1)`, string(t.Account),
	).Scan(&bound); err != nil {
		return fmt.Errorf("check account binding: %w", err)
	}
	if bound {
		return ErrAccountBound
	}

	id, err := nextID(ctx, tx, counterTechnician)
	if err != nil {
		return err
	}

	specs := t.Specializations
	if specs == nil {
		specs = []string{}
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO technicians (
			id, name, license_number, specializations,
			certification_date, certification_expiry, active
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		int64(id), t.Name, t.LicenseNumber, specs,
		int64(t.CertificationDate), int64(t.CertificationExpiry), t.Active,
	); err != nil {
		return fmt.Errorf("insert technician: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO technician_accounts (technician_id, account) VALUES ($1, $2)`,
		int64(id), string(t.Account),
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrAccountBound
		}
		return fmt.Errorf("bind technician account: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit technician tx: %w", err)
	}
	t.ID = id
	return nil
}

const selectTechnician = `
	SELECT t.id, t.name, t.license_number, t.specializations,
	       t.certification_date, t.certification_expiry, t.active,
	       COALESCE(a.account, '')
	FROM technicians t
	LEFT JOIN technician_accounts a ON a.technician_id = t.id`

// Get retrieves a technician by id.
func (r *TechnicianRepository) Get(ctx context.Context, id uint64) (*model.Technician, error) {
	return r.scanOne(ctx, selectTechnician+` WHERE t.id = $1`, int64(id))
}

// GetByAccount resolves the account binding and returns the bound technician.
func (r *TechnicianRepository) GetByAccount(ctx context.Context, account model.Principal) (*model.Technician, error) {
	return r.scanOne(ctx, selectTechnician+` WHERE a.account = $1`, string(account))
}

// Account returns the account bound to the technician at id.
func (r *TechnicianRepository) Account(ctx context.Context, id uint64) (model.Principal, error) {
	var acct string
	err := r.db.QueryRow(ctx,
		`SELECT account FROM technician_accounts WHERE technician_id = $1`, int64(id),
	).Scan(&acct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get technician account %d: %w", id, err)
	}
	return model.Principal(acct), nil
}

// SetActive changes only the active flag.
func (r *TechnicianRepository) SetActive(ctx context.Context, id uint64, active bool) error {
	return r.exec(ctx, `UPDATE technicians SET active = $2, updated_at = NOW() WHERE id = $1`, int64(id), active)
}

// SetExpiry changes only the certification expiry.
func (r *TechnicianRepository) SetExpiry(ctx context.Context, id uint64, expiry uint64) error {
	return r.exec(ctx, `UPDATE technicians SET certification_expiry = $2, updated_at = NOW() WHERE id = $1`, int64(id), int64(expiry))
}

// LastID returns the technician counter.
func (r *TechnicianRepository) LastID(ctx context.Context) (uint64, error) {
	return lastID(ctx, r.db, counterTechnician)
}

func (r *TechnicianRepository) exec(ctx context.Context, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TechnicianRepository) scanOne(ctx context.Context, query string, args ...any) (*model.Technician, error) {
	var (
		t                  model.Technician
		id, since, expires int64
		acct               string
	)
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&id, &t.Name, &t.LicenseNumber, &t.Specializations,
		&since, &expires, &t.Active, &acct,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan technician: %w", err)
	}
	t.ID = uint64(id)
	t.CertificationDate = uint64(since)
	t.CertificationExpiry = uint64(expires)
	t.Account = model.Principal(acct)
	return &t, nil
}
