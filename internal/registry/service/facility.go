package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/pestledger/registry/internal/events"
	"github.com/pestledger/registry/internal/registry/model"
	"github.com/pestledger/registry/internal/registry/repository"
	"go.uber.org/zap"
)

// facilityRepo is the persistence interface for FacilityRegistry.
// *repository.FacilityRepository and *repository.MemoryFacilityStore satisfy it.
type facilityRepo interface {
	Create(ctx context.Context, f *model.Facility) error
	Get(ctx context.Context, id uint64) (*model.Facility, error)
	Owner(ctx context.Context, id uint64) (model.Principal, error)
	Update(ctx context.Context, id uint64, d model.FacilityDetails) error
	LastID(ctx context.Context) (uint64, error)
}

// FacilityRegistry owns facility records and enforces owner-only mutation.
type FacilityRegistry struct {
	auditor
	repo facilityRepo
}

// NewFacilityRegistry creates a FacilityRegistry over repo.
func NewFacilityRegistry(repo facilityRepo, logger *zap.Logger) *FacilityRegistry {
	return &FacilityRegistry{
		auditor: auditor{logger: logger},
		repo:    repo,
	}
}

// Register stores a new facility owned by caller and returns its id.
// Ids are sequential from 1; the counter moves exactly once per call.
func (r *FacilityRegistry) Register(ctx context.Context, d model.FacilityDetails, caller model.Principal, height uint64) (uint64, error) {
	f := &model.Facility{
		FacilityDetails:  d,
		RegistrationDate: height,
		Owner:            caller,
	}
	if err := r.repo.Create(ctx, f); err != nil {
		r.logger.Error("failed to create facility", zap.Error(err))
		return 0, fmt.Errorf("create facility: %w", err)
	}

	r.logger.Info("facility registered",
		zap.Uint64("facility_id", f.ID),
		zap.String("owner", string(caller)),
		zap.Uint64("height", height),
	)
	r.record(ctx, f.SubjectURI(), "register", events.FacilityRegistered, string(caller), height, facilityPayload(f.FacilityDetails))
	return f.ID, nil
}

// GetFacility returns the facility at id, or nil when there is none.
func (r *FacilityRegistry) GetFacility(ctx context.Context, id uint64) (*model.Facility, error) {
	f, err := r.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// IsOwner reports whether a facility exists at id and is owned by candidate.
func (r *FacilityRegistry) IsOwner(ctx context.Context, id uint64, candidate model.Principal) (bool, error) {
	if _, err := r.repo.Get(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	owner, err := r.repo.Owner(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return owner == candidate, nil
}

// Update overwrites the mutable fields of the facility at id.
//
// Existence is checked strictly before ownership: a non-owner probing an
// unknown id gets ErrNotFound, never ErrForbidden.
func (r *FacilityRegistry) Update(ctx context.Context, id uint64, d model.FacilityDetails, caller model.Principal) error {
	if _, err := r.repo.Get(ctx, id); err != nil {
		return notFoundOr(err)
	}
	owner, err := r.repo.Owner(ctx, id)
	if err != nil {
		return notFoundOr(err)
	}
	if owner != caller {
		r.logger.Warn("facility update rejected",
			zap.Uint64("facility_id", id),
			zap.String("caller", string(caller)),
		)
		return model.ErrForbidden
	}

	if err := r.repo.Update(ctx, id, d); err != nil {
		return notFoundOr(err)
	}

	r.logger.Info("facility updated", zap.Uint64("facility_id", id))
	r.record(ctx, model.FacilitySubject(id), "update", events.FacilityUpdated, string(caller), r.stampHeight(ctx), facilityPayload(d))
	return nil
}

// LastID returns the most recently assigned facility id.
func (r *FacilityRegistry) LastID(ctx context.Context) (uint64, error) {
	return r.repo.LastID(ctx)
}

func facilityPayload(d model.FacilityDetails) map[string]string {
	return map[string]string{
		"name":           d.Name,
		"address":        d.Address,
		"square_footage": strconv.FormatUint(d.SquareFootage, 10),
		"facility_type":  d.FacilityType,
		"contact_name":   d.ContactName,
		"contact_info":   d.ContactInfo,
	}
}

// notFoundOr translates a repository miss into model.ErrNotFound and wraps
// anything else.
func notFoundOr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return model.ErrNotFound
	}
	return fmt.Errorf("storage: %w", err)
}
