package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pestledger/registry/internal/registry/model"
)

const (
	counterFacility   = "facility"
	counterTechnician = "technician"
)

// FacilityRepository persists facilities and their owners to PostgreSQL.
type FacilityRepository struct {
	db *pgxpool.Pool
}

// NewFacilityRepository creates a new FacilityRepository.
func NewFacilityRepository(db *pgxpool.Pool) *FacilityRepository {
	return &FacilityRepository{db: db}
}

// Create allocates the next facility id and inserts the record and its owner
// row in one transaction. The counter bump rolls back with the insert.
func (r *FacilityRepository) Create(ctx context.Context, f *model.Facility) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	id, err := nextID(ctx, tx, counterFacility)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO facilities (
			id, name, address, square_footage, facility_type,
			contact_name, contact_info, registration_date
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		int64(id), f.Name, f.Address, int64(f.SquareFootage), f.FacilityType,
		f.ContactName, f.ContactInfo, int64(f.RegistrationDate),
	); err != nil {
		return fmt.Errorf("insert facility: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO facility_owners (facility_id, owner) VALUES ($1, $2)`,
		int64(id), string(f.Owner),
	); err != nil {
		return fmt.Errorf("insert facility owner: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit facility tx: %w", err)
	}
	f.ID = id
	return nil
}

// Get retrieves a facility by id. A record without an owner row comes back
// with an empty Owner.
func (r *FacilityRepository) Get(ctx context.Context, id uint64) (*model.Facility, error) {
	var (
		f                         model.Facility
		rowID, sqft, registeredAt int64
		owner                     string
	)
	err := r.db.QueryRow(ctx, `
		SELECT f.id, f.name, f.address, f.square_footage, f.facility_type,
		       f.contact_name, f.contact_info, f.registration_date,
		       COALESCE(o.owner, '')
		FROM facilities f
		LEFT JOIN facility_owners o ON o.facility_id = f.id
		WHERE f.id = $1`, int64(id),
	).Scan(
		&rowID, &f.Name, &f.Address, &sqft, &f.FacilityType,
		&f.ContactName, &f.ContactInfo, &registeredAt, &owner,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get facility %d: %w", id, err)
	}
	f.ID = uint64(rowID)
	f.SquareFootage = uint64(sqft)
	f.RegistrationDate = uint64(registeredAt)
	f.Owner = model.Principal(owner)
	return &f, nil
}

// Owner returns the owner row for a facility.
func (r *FacilityRepository) Owner(ctx context.Context, id uint64) (model.Principal, error) {
	var owner string
	err := r.db.QueryRow(ctx,
		`SELECT owner FROM facility_owners WHERE facility_id = $1`, int64(id),
	).Scan(&owner)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get facility owner %d: %w", id, err)
	}
	return model.Principal(owner), nil
}

// Update overwrites the mutable columns. registration_date is never touched.
func (r *FacilityRepository) Update(ctx context.Context, id uint64, d model.FacilityDetails) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE facilities SET
			name           = $2,
			address        = $3,
			square_footage = $4,
			facility_type  = $5,
			contact_name   = $6,
			contact_info   = $7,
			updated_at     = NOW()
		WHERE id = $1`,
		int64(id), d.Name, d.Address, int64(d.SquareFootage),
		d.FacilityType, d.ContactName, d.ContactInfo,
	)
	if err != nil {
		return fmt.Errorf("update facility %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// LastID returns the facility counter.
func (r *FacilityRepository) LastID(ctx context.Context) (uint64, error) {
	return lastID(ctx, r.db, counterFacility)
}

// nextID bumps the named counter inside tx and returns the new value.
func nextID(ctx context.Context, tx pgx.Tx, name string) (uint64, error) {
	var id int64
	if err := tx.QueryRow(ctx,
		`UPDATE registry_counters SET last_id = last_id + 1 WHERE name = $1 RETURNING last_id`, name,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("allocate %s id: %w", name, err)
	}
	return uint64(id), nil
}

func lastID(ctx context.Context, db *pgxpool.Pool, name string) (uint64, error) {
	var id int64
	if err := db.QueryRow(ctx,
		`SELECT last_id FROM registry_counters WHERE name = $1`, name,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("read %s counter: %w", name, err)
	}
	return uint64(id), nil
}
