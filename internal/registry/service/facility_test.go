package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/pestledger/registry/internal/chain"
	"github.com/pestledger/registry/internal/events"
	"github.com/pestledger/registry/internal/registry/model"
	"github.com/pestledger/registry/internal/registry/repository"
	"github.com/pestledger/registry/internal/registry/service"
	"github.com/pestledger/registry/internal/trustledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var ctx = context.Background()

type captured struct{ got []events.Event }

func (c *captured) Dispatch(_ context.Context, e events.Event) { c.got = append(c.got, e) }

func warehouse(name string) model.FacilityDetails {
	return model.FacilityDetails{
		Name:          name,
		Address:       "1 Dock Rd",
		SquareFootage: 5000,
		FacilityType:  "warehouse",
		ContactName:   "Pat",
		ContactInfo:   "pat@example.com",
	}
}

func newFacilityRegistry() *service.FacilityRegistry {
	return service.NewFacilityRegistry(repository.NewMemoryFacilityStore(), zap.NewNop())
}

func TestFacilityRegister_sequentialIDs(t *testing.T) {
	r := newFacilityRegistry()

	for want := uint64(1); want <= 3; want++ {
		id, err := r.Register(ctx, warehouse("w"), "P", 10)
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}
	last, err := r.LastID(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), last)
}

func TestFacilityScenario(t *testing.T) {
	r := newFacilityRegistry()

	id, err := r.Register(ctx, warehouse("Warehouse A"), "P", 100)
	require.NoError(t, err)
	require.Equal(t, uint64(1), id)

	f, err := r.GetFacility(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, uint64(100), f.RegistrationDate)
	assert.Equal(t, model.Principal("P"), f.Owner)

	owner, _ := r.IsOwner(ctx, 1, "P")
	assert.True(t, owner)
	owner, _ = r.IsOwner(ctx, 1, "Q")
	assert.False(t, owner)

	assert.ErrorIs(t, r.Update(ctx, 1, warehouse("Hijacked"), "Q"), model.ErrForbidden)
	require.NoError(t, r.Update(ctx, 1, warehouse("Warehouse B"), "P"))

	f, _ = r.GetFacility(ctx, 1)
	assert.Equal(t, "Warehouse B", f.Name)
	assert.Equal(t, uint64(100), f.RegistrationDate)
	assert.Equal(t, model.Principal("P"), f.Owner)
}

func TestFacilityUpdate_unknownIDIsNotFoundForAnyone(t *testing.T) {
	r := newFacilityRegistry()
	_, _ = r.Register(ctx, warehouse("w"), "P", 1)

	assert.ErrorIs(t, r.Update(ctx, 2, warehouse("x"), "P"), model.ErrNotFound)
	assert.ErrorIs(t, r.Update(ctx, 2, warehouse("x"), "Q"), model.ErrNotFound)
	assert.ErrorIs(t, r.Update(ctx, 0, warehouse("x"), "Q"), model.ErrNotFound)
}

func TestFacilityUpdate_forbiddenLeavesRecord(t *testing.T) {
	r := newFacilityRegistry()
	_, _ = r.Register(ctx, warehouse("Original"), "P", 1)

	require.ErrorIs(t, r.Update(ctx, 1, warehouse("Changed"), "Q"), model.ErrForbidden)
	f, _ := r.GetFacility(ctx, 1)
	assert.Equal(t, "Original", f.Name)
}

func TestFacilityGet_absent(t *testing.T) {
	r := newFacilityRegistry()
	f, err := r.GetFacility(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestFacility_auditTrail(t *testing.T) {
	ledger := trustledger.New()
	sink := &captured{}
	r := newFacilityRegistry()
	r.SetLedger(ledger)
	r.SetDispatcher(sink)
	r.SetClock(chain.NewManualClock(120))

	_, err := r.Register(ctx, warehouse("w"), "P", 100)
	require.NoError(t, err)
	require.NoError(t, r.Update(ctx, 1, warehouse("w2"), "P"))
	_ = r.Update(ctx, 1, warehouse("w3"), "Q") // rejected: not the owner

	n, _ := ledger.Len(ctx)
	assert.Equal(t, 3, n)
	reg, _ := ledger.Get(ctx, 1)
	assert.Equal(t, "facility/1", reg.Subject)
	assert.Equal(t, uint64(100), reg.Height)
	upd, _ := ledger.Get(ctx, 2)
	assert.Equal(t, "update", upd.Action)
	assert.Equal(t, uint64(120), upd.Height)
	assert.NoError(t, ledger.Verify(ctx))

	require.Len(t, sink.got, 2)
	assert.Equal(t, events.FacilityRegistered, sink.got[0].Type)
	assert.Equal(t, events.FacilityUpdated, sink.got[1].Type)
}

type failingLedger struct{ trustledger.Ledger }

func (failingLedger) Append(context.Context, string, string, string, uint64, any) (*trustledger.Entry, error) {
	return nil, errors.New("disk full")
}

func TestFacility_ledgerFailureIsNonFatal(t *testing.T) {
	r := newFacilityRegistry()
	r.SetLedger(failingLedger{})

	id, err := r.Register(ctx, warehouse("w"), "P", 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)
}

// danglingFacilityRepo has a facility record but no owner entry.
type danglingFacilityRepo struct {
	*repository.MemoryFacilityStore
}

func (danglingFacilityRepo) Owner(context.Context, uint64) (model.Principal, error) {
	return "", repository.ErrNotFound
}

func TestFacility_danglingOwnerDegradesToNotFound(t *testing.T) {
	store := repository.NewMemoryFacilityStore()
	r := service.NewFacilityRegistry(danglingFacilityRepo{store}, zap.NewNop())
	_, err := r.Register(ctx, warehouse("w"), "P", 1)
	require.NoError(t, err)

	owner, err := r.IsOwner(ctx, 1, "P")
	require.NoError(t, err)
	assert.False(t, owner)
	assert.ErrorIs(t, r.Update(ctx, 1, warehouse("x"), "P"), model.ErrNotFound)
}

// orphanOwnerRepo has an owner entry for id 7 but no facility record.
type orphanOwnerRepo struct {
	*repository.MemoryFacilityStore
}

func (orphanOwnerRepo) Owner(_ context.Context, id uint64) (model.Principal, error) {
	if id == 7 {
		return "P", nil
	}
	return "", repository.ErrNotFound
}

func TestFacility_isOwnerRequiresRecord(t *testing.T) {
	r := service.NewFacilityRegistry(orphanOwnerRepo{repository.NewMemoryFacilityStore()}, zap.NewNop())

	owner, err := r.IsOwner(ctx, 7, "P")
	require.NoError(t, err)
	assert.False(t, owner)
}

type brokenFacilityRepo struct {
	*repository.MemoryFacilityStore
}

func (brokenFacilityRepo) Get(context.Context, uint64) (*model.Facility, error) {
	return nil, errors.New("connection reset")
}

func TestFacility_storageErrorIsInternal(t *testing.T) {
	r := service.NewFacilityRegistry(brokenFacilityRepo{repository.NewMemoryFacilityStore()}, zap.NewNop())

	_, err := r.GetFacility(ctx, 1)
	assert.Error(t, err)
	_, err = r.IsOwner(ctx, 1, "P")
	assert.Error(t, err)
	err = r.Update(ctx, 1, warehouse("x"), "P")
	assert.Equal(t, model.CodeInternalError, model.Code(err))
}
