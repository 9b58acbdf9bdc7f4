// Package health tracks the readiness of the registry's backing services
// (Postgres, Redis) and serves it on /readyz.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Config holds health check configuration.
type Config struct {
	CheckInterval time.Duration
	ProbeTimeout  time.Duration
	FailThreshold int
}

// ProbeFunc checks one dependency. A nil error means healthy.
type ProbeFunc func(ctx context.Context) error

// MetricsRecordFunc is an optional callback for recording probe results.
type MetricsRecordFunc func(success bool)

// ProbeStatus is the last known state of one probe.
type ProbeStatus struct {
	Healthy   bool      `json:"healthy"`
	Failures  int       `json:"consecutive_failures"`
	LastError string    `json:"last_error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Checker runs named probes periodically and reports readiness.
type Checker struct {
	probes    map[string]ProbeFunc
	status    map[string]ProbeStatus
	mu        sync.RWMutex
	cfg       Config
	onMetrics MetricsRecordFunc
	logger    *zap.Logger
}

// New creates a Checker with no probes.
func New(cfg Config, logger *zap.Logger) *Checker {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 30 * time.Second
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}
	if cfg.FailThreshold == 0 {
		cfg.FailThreshold = 3
	}
	return &Checker{
		probes: make(map[string]ProbeFunc),
		status: make(map[string]ProbeStatus),
		cfg:    cfg,
		logger: logger,
	}
}

// Add registers a probe under name. Call before Start.
func (h *Checker) Add(name string, probe ProbeFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.probes[name] = probe
}

// SetMetricsRecord configures the metrics recording callback.
func (h *Checker) SetMetricsRecord(fn MetricsRecordFunc) {
	h.onMetrics = fn
}

// Start checks once immediately, then every CheckInterval until ctx is done.
func (h *Checker) Start(ctx context.Context) {
	h.CheckAll(ctx)

	ticker := time.NewTicker(h.cfg.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			h.CheckAll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// CheckAll runs every probe concurrently, each under ProbeTimeout.
func (h *Checker) CheckAll(ctx context.Context) {
	h.mu.RLock()
	probes := make(map[string]ProbeFunc, len(h.probes))
	for name, p := range h.probes {
		probes[name] = p
	}
	h.mu.RUnlock()

	var wg sync.WaitGroup
	for name, probe := range probes {
		wg.Add(1)
		go func(name string, probe ProbeFunc) {
			defer wg.Done()

			pctx, cancel := context.WithTimeout(ctx, h.cfg.ProbeTimeout)
			err := probe(pctx)
			cancel()

			if h.onMetrics != nil {
				h.onMetrics(err == nil)
			}
			h.record(name, err)
		}(name, probe)
	}
	wg.Wait()
}

func (h *Checker) record(name string, err error) {
	h.mu.Lock()
	prev := h.status[name]
	st := ProbeStatus{Healthy: true, CheckedAt: time.Now().UTC()}
	if err != nil {
		st.Failures = prev.Failures + 1
		st.LastError = err.Error()
		st.Healthy = st.Failures < h.cfg.FailThreshold
	}
	h.status[name] = st
	h.mu.Unlock()

	switch {
	case err == nil && prev.Failures >= h.cfg.FailThreshold:
		h.logger.Info("health: recovered", zap.String("probe", name))
	case err != nil && st.Failures == h.cfg.FailThreshold:
		h.logger.Warn("health: degraded",
			zap.String("probe", name),
			zap.Int("fail_count", st.Failures),
			zap.Error(err),
		)
	}
}

// Ready reports whether every probe has run and none is degraded.
func (h *Checker) Ready() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for name := range h.probes {
		st, seen := h.status[name]
		if !seen || !st.Healthy {
			return false
		}
	}
	return true
}

// Snapshot returns a copy of every probe's status.
func (h *Checker) Snapshot() map[string]ProbeStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]ProbeStatus, len(h.status))
	for k, v := range h.status {
		out[k] = v
	}
	return out
}

// Handler serves readiness: 200 when Ready, 503 otherwise.
func (h *Checker) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		code := http.StatusOK
		status := "ready"
		if !h.Ready() {
			code = http.StatusServiceUnavailable
			status = "not ready"
		}
		c.JSON(code, gin.H{"status": status, "probes": h.Snapshot()})
	}
}
