package handler_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pestledger/registry/internal/chain"
	"github.com/pestledger/registry/internal/compliance"
	"github.com/pestledger/registry/internal/identity"
	"github.com/pestledger/registry/internal/registry/handler"
	"github.com/pestledger/registry/internal/registry/repository"
	"github.com/pestledger/registry/internal/registry/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var ctx = context.Background()

const adminPrincipal = "compliance-office"

type testEnv struct {
	router *gin.Engine
	clock  *chain.ManualClock
	tokens *identity.CallerTokenIssuer
	keys   *identity.KeyStore
}

func newTestEnv(t *testing.T, height uint64) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tokens := identity.NewCallerTokenIssuer(key, "https://registry.test", time.Hour)
	keys, err := identity.NewKeyStore(nil)
	require.NoError(t, err)
	clock := chain.NewManualClock(height)

	admins := compliance.NewAdminStore(compliance.NewMemoryAdminRepo(adminPrincipal), logger)
	facilities := service.NewFacilityRegistry(repository.NewMemoryFacilityStore(), logger)
	technicians := service.NewTechnicianRegistry(repository.NewMemoryTechnicianStore(), admins, logger)

	r := gin.New()
	v1 := r.Group("/api/v1")
	handler.NewAuthHandler(keys, tokens, logger).Register(v1)
	handler.NewChainHandler(clock, logger).Register(v1)
	handler.NewFacilityHandler(facilities, clock, tokens, logger).Register(v1)
	handler.NewTechnicianHandler(technicians, clock, tokens, logger).Register(v1)
	handler.NewAdminHandler(admins, tokens, logger).Register(v1)

	return &testEnv{router: r, clock: clock, tokens: tokens, keys: keys}
}

func (e *testEnv) do(t *testing.T, method, path, principal string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if principal != "" {
		tok, err := e.tokens.Issue(principal)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func assertOK(t *testing.T, w *httptest.ResponseRecorder, status int, want any) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	resp := decode(t, w)
	assert.Equal(t, true, resp["ok"])
	assert.Equal(t, want, resp["value"])
}

func assertFail(t *testing.T, w *httptest.ResponseRecorder, code int) {
	t.Helper()
	require.Equal(t, code, w.Code, w.Body.String())
	resp := decode(t, w)
	assert.Equal(t, false, resp["ok"])
	assert.Equal(t, float64(code), resp["error"])
}

var warehouse = map[string]any{
	"name":           "Warehouse A",
	"address":        "1 Dock Rd",
	"square_footage": 5000,
	"facility_type":  "warehouse",
	"contact_name":   "Pat",
	"contact_info":   "pat@example.com",
}

func TestFacilityScenario(t *testing.T) {
	env := newTestEnv(t, 100)

	assertOK(t, env.do(t, http.MethodPost, "/api/v1/facilities", "P", warehouse), http.StatusCreated, float64(1))

	w := env.do(t, http.MethodGet, "/api/v1/facilities/1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	f := decode(t, w)["value"].(map[string]any)
	assert.Equal(t, float64(100), f["registration_date"])
	assert.Equal(t, "P", f["owner"])
	assert.Equal(t, "Warehouse A", f["name"])

	assertOK(t, env.do(t, http.MethodGet, "/api/v1/facilities/1/owner/P", "", nil), http.StatusOK, true)
	assertOK(t, env.do(t, http.MethodGet, "/api/v1/facilities/1/owner/Q", "", nil), http.StatusOK, false)

	updated := map[string]any{"name": "Warehouse B", "square_footage": 6000}
	assertFail(t, env.do(t, http.MethodPut, "/api/v1/facilities/1", "Q", updated), http.StatusForbidden)

	env.clock.Set(150)
	assertOK(t, env.do(t, http.MethodPut, "/api/v1/facilities/1", "P", updated), http.StatusOK, true)

	f = decode(t, env.do(t, http.MethodGet, "/api/v1/facilities/1", "", nil))["value"].(map[string]any)
	assert.Equal(t, "Warehouse B", f["name"])
	assert.Equal(t, float64(100), f["registration_date"])
	assert.Equal(t, "P", f["owner"])
}

func TestFacility_absentAndNotFound(t *testing.T) {
	env := newTestEnv(t, 1)

	assertOK(t, env.do(t, http.MethodGet, "/api/v1/facilities/7", "", nil), http.StatusOK, nil)
	assertOK(t, env.do(t, http.MethodGet, "/api/v1/facilities/7/owner/P", "", nil), http.StatusOK, false)
	assertFail(t, env.do(t, http.MethodPut, "/api/v1/facilities/7", "P", warehouse), http.StatusNotFound)
	assertOK(t, env.do(t, http.MethodGet, "/api/v1/facilities/stats", "", nil), http.StatusOK, float64(0))
}

func TestFacility_requiresToken(t *testing.T) {
	env := newTestEnv(t, 1)

	w := env.do(t, http.MethodPost, "/api/v1/facilities", "", warehouse)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assertOK(t, env.do(t, http.MethodGet, "/api/v1/facilities/stats", "", nil), http.StatusOK, float64(0))
}

func TestFacility_badID(t *testing.T) {
	env := newTestEnv(t, 1)
	w := env.do(t, http.MethodGet, "/api/v1/facilities/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

var jane = map[string]any{
	"name":                 "Jane Smith",
	"license_number":       "PCO-12345",
	"certification_expiry": 1000,
	"specializations":      []string{"general", "rodent", "termite"},
	"account":              "T",
}

func TestTechnicianScenario(t *testing.T) {
	env := newTestEnv(t, 500)

	assertOK(t, env.do(t, http.MethodPost, "/api/v1/technicians", "registrar", jane), http.StatusCreated, float64(1))
	assertOK(t, env.do(t, http.MethodGet, "/api/v1/technicians/1/verified", "T", nil), http.StatusOK, true)

	assertOK(t, env.do(t, http.MethodPost, "/api/v1/technicians/1/status", adminPrincipal,
		map[string]any{"active": false}), http.StatusOK, true)
	assertOK(t, env.do(t, http.MethodGet, "/api/v1/technicians/1/verified", "T", nil), http.StatusOK, false)
}

func TestTechnician_reads(t *testing.T) {
	env := newTestEnv(t, 500)
	env.do(t, http.MethodPost, "/api/v1/technicians", "registrar", jane)

	w := env.do(t, http.MethodGet, "/api/v1/technicians/1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tech := decode(t, w)["value"].(map[string]any)
	assert.Equal(t, float64(500), tech["certification_date"])
	assert.Equal(t, true, tech["active"])
	assert.Equal(t, "T", tech["account"])

	w = env.do(t, http.MethodGet, "/api/v1/technicians/by-account/T", "", nil)
	assert.Equal(t, float64(1), decode(t, w)["value"].(map[string]any)["id"])

	assertOK(t, env.do(t, http.MethodGet, "/api/v1/technicians/by-account/nobody", "", nil), http.StatusOK, nil)
	assertOK(t, env.do(t, http.MethodGet, "/api/v1/technicians/9", "", nil), http.StatusOK, nil)
	assertOK(t, env.do(t, http.MethodGet, "/api/v1/technicians/stats", "", nil), http.StatusOK, float64(1))
}

func TestTechnician_accountBound(t *testing.T) {
	env := newTestEnv(t, 500)
	env.do(t, http.MethodPost, "/api/v1/technicians", "registrar", jane)

	assertFail(t, env.do(t, http.MethodPost, "/api/v1/technicians", "registrar", jane), http.StatusConflict)
	assertOK(t, env.do(t, http.MethodGet, "/api/v1/technicians/stats", "", nil), http.StatusOK, float64(1))
}

func TestTechnician_adminGate(t *testing.T) {
	env := newTestEnv(t, 500)
	env.do(t, http.MethodPost, "/api/v1/technicians", "registrar", jane)

	assertFail(t, env.do(t, http.MethodPost, "/api/v1/technicians/1/status", "T",
		map[string]any{"active": false}), http.StatusForbidden)
	assertFail(t, env.do(t, http.MethodPost, "/api/v1/technicians/1/renew", "T",
		map[string]any{"new_expiry": 2000}), http.StatusForbidden)
	assertFail(t, env.do(t, http.MethodPost, "/api/v1/technicians/2/renew", adminPrincipal,
		map[string]any{"new_expiry": 2000}), http.StatusNotFound)

	w := env.do(t, http.MethodPost, "/api/v1/technicians/1/status", adminPrincipal, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTechnician_renewAndExpiry(t *testing.T) {
	env := newTestEnv(t, 500)
	env.do(t, http.MethodPost, "/api/v1/technicians", "registrar", jane)

	env.clock.Set(1000)
	assertOK(t, env.do(t, http.MethodGet, "/api/v1/technicians/1/verified", "T", nil), http.StatusOK, false)

	assertOK(t, env.do(t, http.MethodPost, "/api/v1/technicians/1/renew", adminPrincipal,
		map[string]any{"new_expiry": 2000}), http.StatusOK, true)
	assertOK(t, env.do(t, http.MethodGet, "/api/v1/technicians/1/verified", "T", nil), http.StatusOK, true)
	assertOK(t, env.do(t, http.MethodGet, "/api/v1/technicians/1/verified", "someone-else", nil), http.StatusOK, false)
}

func TestAdmin_transfer(t *testing.T) {
	env := newTestEnv(t, 1)

	assertOK(t, env.do(t, http.MethodGet, "/api/v1/admin", "", nil), http.StatusOK, adminPrincipal)
	assertFail(t, env.do(t, http.MethodPut, "/api/v1/admin", "mallory",
		map[string]any{"principal": "mallory"}), http.StatusForbidden)
	assertFail(t, env.do(t, http.MethodPut, "/api/v1/admin", adminPrincipal,
		map[string]any{"principal": ""}), http.StatusBadRequest)
	assertOK(t, env.do(t, http.MethodPut, "/api/v1/admin", adminPrincipal,
		map[string]any{"principal": "new-admin"}), http.StatusOK, true)
	assertOK(t, env.do(t, http.MethodGet, "/api/v1/admin", "", nil), http.StatusOK, "new-admin")
}

func TestAuth_issueToken(t *testing.T) {
	env := newTestEnv(t, 1)
	require.NoError(t, env.keys.Add("acme", "s3cret"))

	w := env.do(t, http.MethodPost, "/api/v1/auth/token", "", map[string]any{"principal": "acme", "api_key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/auth/token", "", map[string]any{"principal": "acme", "api_key": "s3cret"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	value := decode(t, w)["value"].(map[string]any)
	assert.Equal(t, "Bearer", value["token_type"])

	claims, err := env.tokens.Verify(value["access_token"].(string))
	require.NoError(t, err)
	assert.Equal(t, "acme", claims.Principal())
}

func TestChain_height(t *testing.T) {
	env := newTestEnv(t, 42)
	assertOK(t, env.do(t, http.MethodGet, "/api/v1/chain/height", "", nil), http.StatusOK, float64(42))
}
