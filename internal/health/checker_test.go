package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestCheckAll_healthy(t *testing.T) {
	c := New(Config{FailThreshold: 2}, zap.NewNop())
	c.Add("postgres", func(context.Context) error { return nil })

	assert.False(t, c.Ready(), "not ready before first check")
	c.CheckAll(context.Background())
	assert.True(t, c.Ready())
	assert.True(t, c.Snapshot()["postgres"].Healthy)
}

func TestCheckAll_degradesAfterThreshold(t *testing.T) {
	var failing atomic.Bool
	failing.Store(true)

	c := New(Config{FailThreshold: 2}, zap.NewNop())
	c.Add("redis", func(context.Context) error {
		if failing.Load() {
			return errors.New("connection refused")
		}
		return nil
	})

	c.CheckAll(context.Background())
	assert.True(t, c.Ready(), "one failure is below threshold")

	c.CheckAll(context.Background())
	assert.False(t, c.Ready())
	st := c.Snapshot()["redis"]
	assert.Equal(t, 2, st.Failures)
	assert.Equal(t, "connection refused", st.LastError)

	failing.Store(false)
	c.CheckAll(context.Background())
	assert.True(t, c.Ready())
	assert.Equal(t, 0, c.Snapshot()["redis"].Failures)
}

func TestCheckAll_probeTimeout(t *testing.T) {
	c := New(Config{ProbeTimeout: 10 * time.Millisecond, FailThreshold: 1}, zap.NewNop())
	c.Add("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	c.CheckAll(context.Background())
	assert.False(t, c.Ready())
}

func TestCheckAll_metrics(t *testing.T) {
	var ok, bad atomic.Int32
	c := New(Config{}, zap.NewNop())
	c.SetMetricsRecord(func(success bool) {
		if success {
			ok.Add(1)
		} else {
			bad.Add(1)
		}
	})
	c.Add("a", func(context.Context) error { return nil })
	c.Add("b", func(context.Context) error { return errors.New("down") })

	c.CheckAll(context.Background())
	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(1), bad.Load())
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := New(Config{FailThreshold: 1}, zap.NewNop())
	c.Add("postgres", func(context.Context) error { return nil })

	r := gin.New()
	r.GET("/readyz", c.Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	c.CheckAll(context.Background())
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
