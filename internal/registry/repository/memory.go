package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/pestledger/registry/internal/registry/model"
)

// MemoryFacilityStore is an in-memory facility store. Each method runs under a
// single mutex so that the record, its owner entry and the id counter change
// together.
type MemoryFacilityStore struct {
	mu         sync.RWMutex
	lastID     uint64
	facilities map[uint64]model.Facility
	owners     map[uint64]model.Principal
}

// NewMemoryFacilityStore creates an empty MemoryFacilityStore.
func NewMemoryFacilityStore() *MemoryFacilityStore {
	return &MemoryFacilityStore{
		facilities: make(map[uint64]model.Facility),
		owners:     make(map[uint64]model.Principal),
	}
}

// Create assigns the next id to f and stores it together with its owner.
func (s *MemoryFacilityStore) Create(_ context.Context, f *model.Facility) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	f.ID = s.lastID

	rec := *f
	rec.Owner = ""
	s.facilities[f.ID] = rec
	s.owners[f.ID] = f.Owner
	return nil
}

// Get returns the facility at id with its owner attached.
func (s *MemoryFacilityStore) Get(_ context.Context, id uint64) (*model.Facility, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.facilities[id]
	if !ok {
		return nil, ErrNotFound
	}
	rec.Owner = s.owners[id]
	return &rec, nil
}

// Owner returns the owner entry for id.
func (s *MemoryFacilityStore) Owner(_ context.Context, id uint64) (model.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owner, ok := s.owners[id]
	if !ok {
		return "", ErrNotFound
	}
	return owner, nil
}

// Update overwrites the mutable fields of the facility at id.
func (s *MemoryFacilityStore) Update(_ context.Context, id uint64, d model.FacilityDetails) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.facilities[id]
	if !ok {
		return ErrNotFound
	}
	rec.Apply(d)
	s.facilities[id] = rec
	return nil
}

// LastID returns the most recently assigned facility id (0 when empty).
func (s *MemoryFacilityStore) LastID(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastID, nil
}

// MemoryTechnicianStore is an in-memory technician store holding the forward
// map, the id -> account map and the account -> id reverse index.
type MemoryTechnicianStore struct {
	mu          sync.RWMutex
	lastID      uint64
	technicians map[uint64]model.Technician
	accounts    map[uint64]model.Principal
	byAccount   map[model.Principal]uint64
}

// NewMemoryTechnicianStore creates an empty MemoryTechnicianStore.
func NewMemoryTechnicianStore() *MemoryTechnicianStore {
	return &MemoryTechnicianStore{
		technicians: make(map[uint64]model.Technician),
		accounts:    make(map[uint64]model.Principal),
		byAccount:   make(map[model.Principal]uint64),
	}
}

// Create assigns the next id to t and writes the record and both account
// indices. Returns ErrAccountBound, without consuming an id, if t.Account
// already has a binding.
func (s *MemoryTechnicianStore) Create(_ context.Context, t *model.Technician) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, bound := s.byAccount[t.Account]; bound {
		return ErrAccountBound
	}

	s.lastID++
	t.ID = s.lastID

	rec := *t
	rec.Account = ""
	rec.Specializations = slices.Clone(t.Specializations)
	s.technicians[t.ID] = rec
	s.accounts[t.ID] = t.Account
	s.byAccount[t.Account] = t.ID
	return nil
}

// Get returns the technician at id with its bound account attached.
func (s *MemoryTechnicianStore) Get(_ context.Context, id uint64) (*model.Technician, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLocked(id)
}

func (s *MemoryTechnicianStore) getLocked(id uint64) (*model.Technician, error) {
	rec, ok := s.technicians[id]
	if !ok {
		return nil, ErrNotFound
	}
	rec.Account = s.accounts[id]
	rec.Specializations = slices.Clone(rec.Specializations)
	return &rec, nil
}

// Account returns the account bound to the technician at id.
func (s *MemoryTechnicianStore) Account(_ context.Context, id uint64) (model.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[id]
	if !ok {
		return "", ErrNotFound
	}
	return acct, nil
}

// GetByAccount resolves account -> id -> record.
func (s *MemoryTechnicianStore) GetByAccount(_ context.Context, account model.Principal) (*model.Technician, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byAccount[account]
	if !ok {
		return nil, ErrNotFound
	}
	return s.getLocked(id)
}

// SetActive overwrites the active flag of the technician at id.
func (s *MemoryTechnicianStore) SetActive(_ context.Context, id uint64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.technicians[id]
	if !ok {
		return ErrNotFound
	}
	rec.Active = active
	s.technicians[id] = rec
	return nil
}

// SetExpiry overwrites the certification expiry of the technician at id.
func (s *MemoryTechnicianStore) SetExpiry(_ context.Context, id uint64, expiry uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.technicians[id]
	if !ok {
		return ErrNotFound
	}
	rec.CertificationExpiry = expiry
	s.technicians[id] = rec
	return nil
}

// LastID returns the most recently assigned technician id (0 when empty).
func (s *MemoryTechnicianStore) LastID(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastID, nil
}
