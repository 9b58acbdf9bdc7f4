package service_test

import (
	"context"
	"testing"

	"github.com/pestledger/registry/internal/compliance"
	"github.com/pestledger/registry/internal/events"
	"github.com/pestledger/registry/internal/registry/model"
	"github.com/pestledger/registry/internal/registry/repository"
	"github.com/pestledger/registry/internal/registry/service"
	"github.com/pestledger/registry/internal/trustledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const admin = model.Principal("compliance-office")

func newTechnicianRegistry() *service.TechnicianRegistry {
	admins := compliance.NewAdminStore(compliance.NewMemoryAdminRepo(admin), zap.NewNop())
	return service.NewTechnicianRegistry(repository.NewMemoryTechnicianStore(), admins, zap.NewNop())
}

func jane(account model.Principal) model.RegisterTechnicianRequest {
	return model.RegisterTechnicianRequest{
		Name:                "Jane Smith",
		LicenseNumber:       "PCO-12345",
		CertificationExpiry: 1000,
		Specializations:     []string{"general", "rodent", "termite"},
		Account:             account,
	}
}

func TestTechnicianScenario(t *testing.T) {
	r := newTechnicianRegistry()

	id, err := r.Register(ctx, jane("T"), 500)
	require.NoError(t, err)
	require.Equal(t, uint64(1), id)

	ok, err := r.IsVerified(ctx, 1, "T", 500)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, r.UpdateStatus(ctx, 1, false, admin))
	ok, _ = r.IsVerified(ctx, 1, "T", 500)
	assert.False(t, ok)
}

func TestTechnicianRegister_recordFields(t *testing.T) {
	r := newTechnicianRegistry()
	_, _ = r.Register(ctx, jane("T"), 500)

	tech, err := r.GetTechnician(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, tech)
	assert.Equal(t, uint64(500), tech.CertificationDate)
	assert.Equal(t, uint64(1000), tech.CertificationExpiry)
	assert.True(t, tech.Active)
	assert.Equal(t, []string{"general", "rodent", "termite"}, tech.Specializations)

	byAcct, err := r.GetTechnicianByAccount(ctx, "T")
	require.NoError(t, err)
	require.NotNil(t, byAcct)
	assert.Equal(t, uint64(1), byAcct.ID)
}

func TestTechnicianRegister_sequentialIDs(t *testing.T) {
	r := newTechnicianRegistry()
	for i, acct := range []model.Principal{"a", "b", "c"} {
		id, err := r.Register(ctx, jane(acct), 1)
		require.NoError(t, err)
		assert.Equal(t, uint64(i+1), id)
	}
}

func TestTechnicianRegister_boundAccountRejected(t *testing.T) {
	r := newTechnicianRegistry()
	_, err := r.Register(ctx, jane("T"), 1)
	require.NoError(t, err)

	_, err = r.Register(ctx, jane("T"), 2)
	assert.ErrorIs(t, err, model.ErrAccountBound)
	assert.Equal(t, model.CodeAccountBound, model.Code(err))

	last, _ := r.LastID(ctx)
	assert.Equal(t, uint64(1), last)

	id, err := r.Register(ctx, jane("U"), 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), id)
}

func TestTechnicianReads_absent(t *testing.T) {
	r := newTechnicianRegistry()

	tech, err := r.GetTechnician(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, tech)

	tech, err = r.GetTechnicianByAccount(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, tech)

	ok, err := r.IsVerified(ctx, 1, "T", 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsVerified_conjunctiveGate(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T, r *service.TechnicianRegistry)
		caller model.Principal
		height uint64
		want   bool
	}{
		{name: "all conditions hold", caller: "T", height: 999, want: true},
		{name: "wrong caller", caller: "U", height: 999, want: false},
		{name: "expiry equals height", caller: "T", height: 1000, want: false},
		{name: "expired", caller: "T", height: 5000, want: false},
		{
			name: "inactive",
			setup: func(t *testing.T, r *service.TechnicianRegistry) {
				require.NoError(t, r.UpdateStatus(ctx, 1, false, admin))
			},
			caller: "T", height: 999, want: false,
		},
		{
			name: "reactivated",
			setup: func(t *testing.T, r *service.TechnicianRegistry) {
				require.NoError(t, r.UpdateStatus(ctx, 1, false, admin))
				require.NoError(t, r.UpdateStatus(ctx, 1, true, admin))
			},
			caller: "T", height: 999, want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTechnicianRegistry()
			_, err := r.Register(ctx, jane("T"), 500)
			require.NoError(t, err)
			if tt.setup != nil {
				tt.setup(t, r)
			}
			got, err := r.IsVerified(ctx, 1, tt.caller, tt.height)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdminOperations_requireAdmin(t *testing.T) {
	r := newTechnicianRegistry()
	_, _ = r.Register(ctx, jane("T"), 500)

	assert.ErrorIs(t, r.UpdateStatus(ctx, 1, false, "T"), model.ErrForbidden)
	assert.ErrorIs(t, r.RenewCertification(ctx, 1, 2000, "T"), model.ErrForbidden)

	// Admin is checked before existence.
	assert.ErrorIs(t, r.UpdateStatus(ctx, 99, false, "T"), model.ErrForbidden)
	assert.ErrorIs(t, r.RenewCertification(ctx, 99, 2000, "T"), model.ErrForbidden)
	assert.ErrorIs(t, r.UpdateStatus(ctx, 99, false, admin), model.ErrNotFound)
	assert.ErrorIs(t, r.RenewCertification(ctx, 99, 2000, admin), model.ErrNotFound)

	tech, _ := r.GetTechnician(ctx, 1)
	assert.True(t, tech.Active)
	assert.Equal(t, uint64(1000), tech.CertificationExpiry)
}

func TestAdminOperations_noAdminConfigured(t *testing.T) {
	admins := compliance.NewAdminStore(compliance.NewMemoryAdminRepo(""), zap.NewNop())
	r := service.NewTechnicianRegistry(repository.NewMemoryTechnicianStore(), admins, zap.NewNop())
	_, _ = r.Register(ctx, jane("T"), 1)

	assert.ErrorIs(t, r.UpdateStatus(ctx, 1, false, ""), model.ErrForbidden)
}

func TestRenewCertification(t *testing.T) {
	r := newTechnicianRegistry()
	_, _ = r.Register(ctx, jane("T"), 500)

	ok, _ := r.IsVerified(ctx, 1, "T", 1500)
	require.False(t, ok)

	require.NoError(t, r.RenewCertification(ctx, 1, 2000, admin))
	ok, _ = r.IsVerified(ctx, 1, "T", 1500)
	assert.True(t, ok)

	// Renewal does not reactivate.
	require.NoError(t, r.UpdateStatus(ctx, 1, false, admin))
	require.NoError(t, r.RenewCertification(ctx, 1, 3000, admin))
	tech, _ := r.GetTechnician(ctx, 1)
	assert.False(t, tech.Active)
	assert.Equal(t, uint64(3000), tech.CertificationExpiry)
	assert.Equal(t, uint64(500), tech.CertificationDate)
}

func TestTechnician_auditTrail(t *testing.T) {
	ledger := trustledger.New()
	sink := &captured{}
	r := newTechnicianRegistry()
	r.SetLedger(ledger)
	r.SetDispatcher(sink)

	_, _ = r.Register(ctx, jane("T"), 500)
	_ = r.UpdateStatus(ctx, 1, false, admin)
	_ = r.RenewCertification(ctx, 1, 2000, admin)
	_ = r.UpdateStatus(ctx, 1, true, "T") // rejected

	n, _ := ledger.Len(ctx)
	assert.Equal(t, 4, n)
	assert.NoError(t, ledger.Verify(ctx))

	require.Len(t, sink.got, 3)
	assert.Equal(t, events.TechnicianRegistered, sink.got[0].Type)
	assert.Equal(t, events.TechnicianStatusChanged, sink.got[1].Type)
	assert.Equal(t, "false", sink.got[1].Payload["active"])
	assert.Equal(t, events.TechnicianRenewed, sink.got[2].Type)
}

// unboundTechnicianRepo has technician records but no account bindings.
type unboundTechnicianRepo struct {
	*repository.MemoryTechnicianStore
}

func (unboundTechnicianRepo) Account(context.Context, uint64) (model.Principal, error) {
	return "", repository.ErrNotFound
}

func TestIsVerified_danglingAccountIsFalse(t *testing.T) {
	admins := compliance.NewAdminStore(compliance.NewMemoryAdminRepo(admin), zap.NewNop())
	r := service.NewTechnicianRegistry(unboundTechnicianRepo{repository.NewMemoryTechnicianStore()}, admins, zap.NewNop())
	_, err := r.Register(ctx, jane("T"), 500)
	require.NoError(t, err)

	ok, err := r.IsVerified(ctx, 1, "T", 500)
	require.NoError(t, err)
	assert.False(t, ok)
}
