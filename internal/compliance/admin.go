// Package compliance holds the compliance administrator: the single principal
// allowed to change technician status and renew certifications.
package compliance

import (
	"context"
	"fmt"

	"github.com/pestledger/registry/internal/chain"
	"github.com/pestledger/registry/internal/events"
	"github.com/pestledger/registry/internal/registry/model"
	"github.com/pestledger/registry/internal/trustledger"
	"go.uber.org/zap"
)

// AdminSubject is the ledger and event subject for admin changes.
const AdminSubject = "admin"

// adminRepo persists the current admin principal.
// *MemoryAdminRepo and *PostgresAdminRepo satisfy it.
type adminRepo interface {
	Get(ctx context.Context) (model.Principal, error)
	// Swap replaces the admin with next only if it is still prev.
	Swap(ctx context.Context, prev, next model.Principal) (bool, error)
}

// AdminStore answers who the admin is and handles hand-over.
type AdminStore struct {
	repo       adminRepo
	ledger     trustledger.Ledger
	dispatcher events.Dispatcher
	clock      chain.Clock
	logger     *zap.Logger
}

// NewAdminStore creates an AdminStore over repo.
func NewAdminStore(repo adminRepo, logger *zap.Logger) *AdminStore {
	return &AdminStore{repo: repo, logger: logger}
}

// SetLedger configures the trust ledger.
func (s *AdminStore) SetLedger(l trustledger.Ledger) { s.ledger = l }

// SetDispatcher configures the lifecycle event dispatcher.
func (s *AdminStore) SetDispatcher(d events.Dispatcher) { s.dispatcher = d }

// SetClock configures the clock used to stamp audit records.
func (s *AdminStore) SetClock(c chain.Clock) { s.clock = c }

// Admin returns the current administrator. An empty principal means no admin
// is configured and every admin-gated call is forbidden.
func (s *AdminStore) Admin(ctx context.Context) (model.Principal, error) {
	p, err := s.repo.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("read admin: %w", err)
	}
	return p, nil
}

// Transfer hands the admin role from caller to next. Only the current admin
// may do so.
func (s *AdminStore) Transfer(ctx context.Context, caller, next model.Principal) error {
	if next == "" {
		return model.ErrInvalidPrincipal
	}
	current, err := s.Admin(ctx)
	if err != nil {
		return err
	}
	if current == "" || current != caller {
		s.logger.Warn("admin transfer rejected", zap.String("caller", string(caller)))
		return model.ErrForbidden
	}

	ok, err := s.repo.Swap(ctx, current, next)
	if err != nil {
		return fmt.Errorf("write admin: %w", err)
	}
	if !ok {
		// Lost a race with another transfer.
		return model.ErrForbidden
	}

	s.logger.Info("admin transferred",
		zap.String("from", string(current)),
		zap.String("to", string(next)),
	)
	s.record(ctx, caller, next)
	return nil
}

func (s *AdminStore) record(ctx context.Context, caller, next model.Principal) {
	var height uint64
	if s.clock != nil {
		if h, err := s.clock.Height(ctx); err == nil {
			height = h
		}
	}
	payload := map[string]string{"from": string(caller), "to": string(next)}
	if s.ledger != nil {
		if _, err := s.ledger.Append(ctx, AdminSubject, "transfer", string(caller), height, payload); err != nil {
			s.logger.Error("ledger append failed (non-fatal)", zap.String("action", "transfer"), zap.Error(err))
		}
	}
	if s.dispatcher != nil {
		s.dispatcher.Dispatch(ctx, events.New(events.AdminTransferred, AdminSubject, string(caller), height, payload))
	}
}
