package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pestledger/registry/internal/events"
	"github.com/pestledger/registry/internal/registry/model"
	"github.com/pestledger/registry/internal/registry/repository"
	"go.uber.org/zap"
)

// AdminOracle names the single administrator allowed to change technician
// status and renew certifications. *compliance.AdminStore satisfies it.
type AdminOracle interface {
	Admin(ctx context.Context) (model.Principal, error)
}

// technicianRepo is the persistence interface for TechnicianRegistry.
// *repository.TechnicianRepository and *repository.MemoryTechnicianStore satisfy it.
type technicianRepo interface {
	Create(ctx context.Context, t *model.Technician) error
	Get(ctx context.Context, id uint64) (*model.Technician, error)
	GetByAccount(ctx context.Context, account model.Principal) (*model.Technician, error)
	Account(ctx context.Context, id uint64) (model.Principal, error)
	SetActive(ctx context.Context, id uint64, active bool) error
	SetExpiry(ctx context.Context, id uint64, expiry uint64) error
	LastID(ctx context.Context) (uint64, error)
}

// TechnicianRegistry owns technician records, their account bindings and the
// derived verification gate.
type TechnicianRegistry struct {
	auditor
	repo   technicianRepo
	admins AdminOracle
}

// NewTechnicianRegistry creates a TechnicianRegistry. admins must not be nil.
func NewTechnicianRegistry(repo technicianRepo, admins AdminOracle, logger *zap.Logger) *TechnicianRegistry {
	return &TechnicianRegistry{
		auditor: auditor{logger: logger},
		repo:    repo,
		admins:  admins,
	}
}

// Register stores a new, active technician bound to req.Account and returns
// its id. An account that already has a binding is rejected with
// model.ErrAccountBound and nothing is written.
func (r *TechnicianRegistry) Register(ctx context.Context, req model.RegisterTechnicianRequest, height uint64) (uint64, error) {
	t := &model.Technician{
		Name:                req.Name,
		LicenseNumber:       req.LicenseNumber,
		Specializations:     req.Specializations,
		CertificationDate:   height,
		CertificationExpiry: req.CertificationExpiry,
		Active:              true,
		Account:             req.Account,
	}
	if err := r.repo.Create(ctx, t); err != nil {
		if errors.Is(err, repository.ErrAccountBound) {
			return 0, model.ErrAccountBound
		}
		r.logger.Error("failed to create technician", zap.Error(err))
		return 0, fmt.Errorf("create technician: %w", err)
	}

	r.logger.Info("technician registered",
		zap.Uint64("technician_id", t.ID),
		zap.String("account", string(t.Account)),
		zap.Uint64("expiry", t.CertificationExpiry),
	)
	r.record(ctx, t.SubjectURI(), "register", events.TechnicianRegistered, string(t.Account), height, map[string]string{
		"name":                 t.Name,
		"license_number":       t.LicenseNumber,
		"specializations":      strings.Join(t.Specializations, ","),
		"certification_expiry": strconv.FormatUint(t.CertificationExpiry, 10),
		"account":              string(t.Account),
	})
	return t.ID, nil
}

// GetTechnician returns the technician at id, or nil when there is none.
func (r *TechnicianRegistry) GetTechnician(ctx context.Context, id uint64) (*model.Technician, error) {
	t, err := r.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return t, err
}

// GetTechnicianByAccount follows the account binding to its technician, or
// returns nil when the account is unbound.
func (r *TechnicianRegistry) GetTechnicianByAccount(ctx context.Context, account model.Principal) (*model.Technician, error) {
	t, err := r.repo.GetByAccount(ctx, account)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return t, err
}

// UpdateStatus sets the active flag. Admin only; expiry is untouched.
func (r *TechnicianRegistry) UpdateStatus(ctx context.Context, id uint64, active bool, caller model.Principal) error {
	if err := r.requireAdmin(ctx, caller, "update_status", id); err != nil {
		return err
	}
	if err := r.repo.SetActive(ctx, id, active); err != nil {
		return notFoundOr(err)
	}

	r.logger.Info("technician status updated",
		zap.Uint64("technician_id", id),
		zap.Bool("active", active),
	)
	r.record(ctx, model.TechnicianSubject(id), "status", events.TechnicianStatusChanged, string(caller), r.stampHeight(ctx), map[string]string{
		"active": strconv.FormatBool(active),
	})
	return nil
}

// RenewCertification replaces the certification expiry. Admin only; it does
// not reactivate a deactivated technician.
func (r *TechnicianRegistry) RenewCertification(ctx context.Context, id uint64, newExpiry uint64, caller model.Principal) error {
	if err := r.requireAdmin(ctx, caller, "renew", id); err != nil {
		return err
	}
	if err := r.repo.SetExpiry(ctx, id, newExpiry); err != nil {
		return notFoundOr(err)
	}

	r.logger.Info("technician certification renewed",
		zap.Uint64("technician_id", id),
		zap.Uint64("expiry", newExpiry),
	)
	r.record(ctx, model.TechnicianSubject(id), "renew", events.TechnicianRenewed, string(caller), r.stampHeight(ctx), map[string]string{
		"certification_expiry": strconv.FormatUint(newExpiry, 10),
	})
	return nil
}

// IsVerified reports whether the technician at id is active, unexpired at
// height (strictly: expiry > height), and bound to caller. Missing records or
// bindings yield false; only storage failures return an error.
func (r *TechnicianRegistry) IsVerified(ctx context.Context, id uint64, caller model.Principal, height uint64) (bool, error) {
	t, err := r.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	acct, err := r.repo.Account(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return t.Active && t.ValidAt(height) && acct == caller, nil
}

// LastID returns the most recently assigned technician id.
func (r *TechnicianRegistry) LastID(ctx context.Context) (uint64, error) {
	return r.repo.LastID(ctx)
}

// requireAdmin runs before any lookup so a non-admin cannot probe which ids
// exist.
func (r *TechnicianRegistry) requireAdmin(ctx context.Context, caller model.Principal, op string, id uint64) error {
	admin, err := r.admins.Admin(ctx)
	if err != nil {
		return fmt.Errorf("resolve admin: %w", err)
	}
	if admin == "" || caller != admin {
		r.logger.Warn("technician admin operation rejected",
			zap.String("op", op),
			zap.Uint64("technician_id", id),
			zap.String("caller", string(caller)),
		)
		return model.ErrForbidden
	}
	return nil
}
