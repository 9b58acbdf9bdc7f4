// Package chain supplies the logical height that the registries use in place
// of wall-clock time.
//
// Heights are monotonically non-decreasing. Two implementations are provided:
//   - BlockClock: derives height from a genesis time and a block interval.
//   - ManualClock: set or advanced explicitly, for tests and local development.
package chain

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Clock returns the current logical height.
type Clock interface {
	Height(ctx context.Context) (uint64, error)
}

// ErrBeforeGenesis is returned by BlockClock when the wall clock reads a time
// earlier than the configured genesis and no height has been observed yet.
var ErrBeforeGenesis = errors.New("current time is before chain genesis")

// BlockClock produces one block every Interval starting at Genesis, offset by
// StartHeight. If the wall clock steps backwards the last observed height is
// returned, so callers never see the height decrease.
type BlockClock struct {
	genesis     time.Time
	interval    time.Duration
	startHeight uint64
	now         func() time.Time

	mu   sync.Mutex
	last uint64
	seen bool
}

// NewBlockClock creates a BlockClock. interval must be positive.
func NewBlockClock(genesis time.Time, interval time.Duration, startHeight uint64) (*BlockClock, error) {
	if interval <= 0 {
		return nil, errors.New("block interval must be positive")
	}
	return &BlockClock{
		genesis:     genesis.UTC(),
		interval:    interval,
		startHeight: startHeight,
		now:         time.Now,
	}, nil
}

// Height implements Clock.
func (c *BlockClock) Height(_ context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := c.now().Sub(c.genesis)
	if elapsed < 0 {
		if c.seen {
			return c.last, nil
		}
		return 0, ErrBeforeGenesis
	}

	h := c.startHeight + uint64(elapsed/c.interval)
	if c.seen && h < c.last {
		return c.last, nil
	}
	c.last = h
	c.seen = true
	return h, nil
}

// ManualClock is a Clock whose height only moves when told to.
type ManualClock struct {
	mu     sync.RWMutex
	height uint64
}

// NewManualClock creates a ManualClock at height.
func NewManualClock(height uint64) *ManualClock {
	return &ManualClock{height: height}
}

// Height implements Clock.
func (c *ManualClock) Height(_ context.Context) (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.height, nil
}

// Set moves the clock to h. Attempts to move backwards are ignored.
func (c *ManualClock) Set(h uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if h > c.height {
		c.height = h
	}
}

// Advance moves the clock forward by n blocks and returns the new height.
func (c *ManualClock) Advance(n uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.height += n
	return c.height
}
