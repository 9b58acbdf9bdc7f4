package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pestledger/registry/internal/chain"
	"github.com/pestledger/registry/internal/identity"
	"github.com/pestledger/registry/internal/registry/model"
	"github.com/pestledger/registry/internal/registry/service"
	"go.uber.org/zap"
)

// TechnicianHandler handles HTTP requests for the technician registry.
type TechnicianHandler struct {
	svc    *service.TechnicianRegistry
	clock  chain.Clock
	tokens *identity.CallerTokenIssuer
	logger *zap.Logger
}

// NewTechnicianHandler creates a TechnicianHandler.
func NewTechnicianHandler(svc *service.TechnicianRegistry, clock chain.Clock, tokens *identity.CallerTokenIssuer, logger *zap.Logger) *TechnicianHandler {
	return &TechnicianHandler{svc: svc, clock: clock, tokens: tokens, logger: logger}
}

// Register mounts the technician routes.
func (h *TechnicianHandler) Register(rg *gin.RouterGroup) {
	auth := identity.RequireCaller(h.tokens)
	t := rg.Group("/technicians")
	{
		t.POST("", auth, h.RegisterTechnician)
		t.GET("/stats", h.Stats)
		t.GET("/by-account/:account", h.GetByAccount)
		t.GET("/:id", h.GetTechnician)
		t.POST("/:id/status", auth, h.UpdateStatus)
		t.POST("/:id/renew", auth, h.Renew)
		t.GET("/:id/verified", auth, h.IsVerified)
	}
}

// RegisterTechnician handles POST /technicians.
func (h *TechnicianHandler) RegisterTechnician(c *gin.Context) {
	var req model.RegisterTechnicianRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		transportError(c, http.StatusBadRequest, err.Error())
		return
	}
	height, good := currentHeight(c, h.clock, h.logger)
	if !good {
		return
	}

	id, err := h.svc.Register(c.Request.Context(), req, height)
	if err != nil {
		fail(c, h.logger, "register technician", err)
		return
	}
	RecordRegistration("technician")
	ok(c, http.StatusCreated, id)
}

// GetTechnician handles GET /technicians/:id. An unknown id yields value null.
func (h *TechnicianHandler) GetTechnician(c *gin.Context) {
	id, good := parseID(c, "id")
	if !good {
		return
	}
	t, err := h.svc.GetTechnician(c.Request.Context(), id)
	if err != nil {
		fail(c, h.logger, "get technician", err)
		return
	}
	if t == nil {
		ok(c, http.StatusOK, nil)
		return
	}
	ok(c, http.StatusOK, t)
}

// GetByAccount handles GET /technicians/by-account/:account.
func (h *TechnicianHandler) GetByAccount(c *gin.Context) {
	t, err := h.svc.GetTechnicianByAccount(c.Request.Context(), model.Principal(c.Param("account")))
	if err != nil {
		fail(c, h.logger, "get technician by account", err)
		return
	}
	if t == nil {
		ok(c, http.StatusOK, nil)
		return
	}
	ok(c, http.StatusOK, t)
}

type statusRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// UpdateStatus handles POST /technicians/:id/status. Admin only.
func (h *TechnicianHandler) UpdateStatus(c *gin.Context) {
	id, good := parseID(c, "id")
	if !good {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		transportError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.UpdateStatus(c.Request.Context(), id, *req.Active, callerOf(c)); err != nil {
		fail(c, h.logger, "update technician status", err)
		return
	}
	ok(c, http.StatusOK, true)
}

type renewRequest struct {
	NewExpiry uint64 `json:"new_expiry"`
}

// Renew handles POST /technicians/:id/renew. Admin only.
func (h *TechnicianHandler) Renew(c *gin.Context) {
	id, good := parseID(c, "id")
	if !good {
		return
	}
	var req renewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		transportError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.RenewCertification(c.Request.Context(), id, req.NewExpiry, callerOf(c)); err != nil {
		fail(c, h.logger, "renew certification", err)
		return
	}
	ok(c, http.StatusOK, true)
}

// IsVerified handles GET /technicians/:id/verified for the calling principal
// at the current height.
func (h *TechnicianHandler) IsVerified(c *gin.Context) {
	id, good := parseID(c, "id")
	if !good {
		return
	}
	height, good := currentHeight(c, h.clock, h.logger)
	if !good {
		return
	}

	verified, err := h.svc.IsVerified(c.Request.Context(), id, callerOf(c), height)
	if err != nil {
		fail(c, h.logger, "verify technician", err)
		return
	}
	RecordVerification(verified)
	ok(c, http.StatusOK, verified)
}

// Stats handles GET /technicians/stats and returns the last issued id.
func (h *TechnicianHandler) Stats(c *gin.Context) {
	last, err := h.svc.LastID(c.Request.Context())
	if err != nil {
		fail(c, h.logger, "technician stats", err)
		return
	}
	SetRecordsGauge("technician", float64(last))
	ok(c, http.StatusOK, last)
}
