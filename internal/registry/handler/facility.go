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

// FacilityHandler handles HTTP requests for the facility registry.
type FacilityHandler struct {
	svc    *service.FacilityRegistry
	clock  chain.Clock
	tokens *identity.CallerTokenIssuer
	logger *zap.Logger
}

// NewFacilityHandler creates a FacilityHandler.
func NewFacilityHandler(svc *service.FacilityRegistry, clock chain.Clock, tokens *identity.CallerTokenIssuer, logger *zap.Logger) *FacilityHandler {
	return &FacilityHandler{svc: svc, clock: clock, tokens: tokens, logger: logger}
}

// Register mounts the facility routes.
func (h *FacilityHandler) Register(rg *gin.RouterGroup) {
	f := rg.Group("/facilities")
	{
		f.POST("", identity.RequireCaller(h.tokens), h.RegisterFacility)
		f.GET("/stats", h.Stats)
		f.GET("/:id", h.GetFacility)
		f.PUT("/:id", identity.RequireCaller(h.tokens), h.UpdateFacility)
		f.GET("/:id/owner/:principal", h.IsOwner)
	}
}

// RegisterFacility handles POST /facilities. The caller becomes the owner.
func (h *FacilityHandler) RegisterFacility(c *gin.Context) {
	var d model.FacilityDetails
	if err := c.ShouldBindJSON(&d); err != nil {
		transportError(c, http.StatusBadRequest, err.Error())
		return
	}
	height, good := currentHeight(c, h.clock, h.logger)
	if !good {
		return
	}

	id, err := h.svc.Register(c.Request.Context(), d, callerOf(c), height)
	if err != nil {
		fail(c, h.logger, "register facility", err)
		return
	}
	RecordRegistration("facility")
	ok(c, http.StatusCreated, id)
}

// GetFacility handles GET /facilities/:id. An unknown id yields value null.
func (h *FacilityHandler) GetFacility(c *gin.Context) {
	id, good := parseID(c, "id")
	if !good {
		return
	}
	f, err := h.svc.GetFacility(c.Request.Context(), id)
	if err != nil {
		fail(c, h.logger, "get facility", err)
		return
	}
	if f == nil {
		ok(c, http.StatusOK, nil)
		return
	}
	ok(c, http.StatusOK, f)
}

// UpdateFacility handles PUT /facilities/:id. Only the owner may update.
func (h *FacilityHandler) UpdateFacility(c *gin.Context) {
	id, good := parseID(c, "id")
	if !good {
		return
	}
	var d model.FacilityDetails
	if err := c.ShouldBindJSON(&d); err != nil {
		transportError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Update(c.Request.Context(), id, d, callerOf(c)); err != nil {
		fail(c, h.logger, "update facility", err)
		return
	}
	ok(c, http.StatusOK, true)
}

// IsOwner handles GET /facilities/:id/owner/:principal.
func (h *FacilityHandler) IsOwner(c *gin.Context) {
	id, good := parseID(c, "id")
	if !good {
		return
	}
	owner, err := h.svc.IsOwner(c.Request.Context(), id, model.Principal(c.Param("principal")))
	if err != nil {
		fail(c, h.logger, "check owner", err)
		return
	}
	ok(c, http.StatusOK, owner)
}

// Stats handles GET /facilities/stats and returns the last issued id.
func (h *FacilityHandler) Stats(c *gin.Context) {
	last, err := h.svc.LastID(c.Request.Context())
	if err != nil {
		fail(c, h.logger, "facility stats", err)
		return
	}
	SetRecordsGauge("facility", float64(last))
	ok(c, http.StatusOK, last)
}
