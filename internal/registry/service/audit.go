package service

import (
	"context"

	"github.com/pestledger/registry/internal/chain"
	"github.com/pestledger/registry/internal/events"
	"github.com/pestledger/registry/internal/trustledger"
	"go.uber.org/zap"
)

// auditor records successful mutations to the trust ledger and the event
// dispatcher. Both sinks are optional and failures never affect the result of
// the mutation that triggered them.
type auditor struct {
	ledger     trustledger.Ledger // nil = no ledger writes
	dispatcher events.Dispatcher  // nil = no lifecycle events
	clock      chain.Clock        // nil = entries carry the height passed in, or 0
	logger     *zap.Logger
}

// SetLedger configures the trust ledger.
func (a *auditor) SetLedger(l trustledger.Ledger) { a.ledger = l }

// SetDispatcher configures the lifecycle event dispatcher.
func (a *auditor) SetDispatcher(d events.Dispatcher) { a.dispatcher = d }

// SetClock configures the clock used to stamp audit records for operations
// that do not take a height. It is never consulted for authorization.
func (a *auditor) SetClock(c chain.Clock) { a.clock = c }

func (a *auditor) stampHeight(ctx context.Context) uint64 {
	if a.clock == nil {
		return 0
	}
	h, err := a.clock.Height(ctx)
	if err != nil {
		a.logger.Warn("audit height unavailable", zap.Error(err))
		return 0
	}
	return h
}

func (a *auditor) record(ctx context.Context, subject, action, eventType string, actor string, height uint64, payload map[string]string) {
	if a.ledger != nil {
		if _, err := a.ledger.Append(ctx, subject, action, actor, height, payload); err != nil {
			a.logger.Error("ledger append failed (non-fatal)",
				zap.String("action", action),
				zap.String("subject", subject),
				zap.Error(err),
			)
		}
	}
	if a.dispatcher != nil {
		a.dispatcher.Dispatch(ctx, events.New(eventType, subject, actor, height, payload))
	}
}
