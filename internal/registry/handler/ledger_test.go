package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pestledger/registry/internal/registry/handler"
	"github.com/pestledger/registry/internal/trustledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupLedgerRouter(t *testing.T) (*gin.Engine, *trustledger.MemoryLedger) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	ledger := trustledger.New()
	h := handler.NewLedgerHandler(ledger, zap.NewNop())
	h.Register(r.Group("/api/v1"))
	return r, ledger
}

func TestLedgerOverview_200(t *testing.T) {
	router, _ := setupLedgerRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ledger", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode(t, w)
	value := resp["value"].(map[string]any)
	assert.Equal(t, float64(1), value["entries"]) // genesis
	assert.Equal(t, trustledger.GenesisHash, value["root"])
}

func TestLedgerVerify_200(t *testing.T) {
	router, ledger := setupLedgerRouter(t)
	_, err := ledger.Append(ctx, "facility/1", "register", "alice", 100, nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ledger/verify", nil))
	require.Equal(t, http.StatusOK, w.Code)

	value := decode(t, w)["value"].(map[string]any)
	assert.Equal(t, true, value["valid"])
}

func TestLedgerGetEntry_200_genesis(t *testing.T) {
	router, _ := setupLedgerRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ledger/entries/0", nil))
	require.Equal(t, http.StatusOK, w.Code)

	value := decode(t, w)["value"].(map[string]any)
	assert.Equal(t, "genesis", value["action"])
}

func TestLedgerGetEntry_404(t *testing.T) {
	router, _ := setupLedgerRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ledger/entries/999", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLedgerGetEntry_400_invalidIdx(t *testing.T) {
	router, _ := setupLedgerRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ledger/entries/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCountingLedger_delegates(t *testing.T) {
	inner := trustledger.New()
	l := handler.CountingLedger{Ledger: inner}

	_, err := l.Append(ctx, "technician/1", "register", "tech", 5, nil)
	require.NoError(t, err)

	n, _ := inner.Len(ctx)
	assert.Equal(t, 2, n)
}
