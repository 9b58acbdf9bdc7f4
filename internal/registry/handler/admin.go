package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pestledger/registry/internal/identity"
	"github.com/pestledger/registry/internal/registry/model"
	"go.uber.org/zap"
)

// adminStore is satisfied by *compliance.AdminStore.
type adminStore interface {
	Admin(ctx context.Context) (model.Principal, error)
	Transfer(ctx context.Context, caller, next model.Principal) error
}

// AdminHandler exposes the compliance administrator.
type AdminHandler struct {
	store  adminStore
	tokens *identity.CallerTokenIssuer
	logger *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(store adminStore, tokens *identity.CallerTokenIssuer, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{store: store, tokens: tokens, logger: logger}
}

// Register mounts the admin routes.
func (h *AdminHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/admin", h.GetAdmin)
	rg.PUT("/admin", identity.RequireCaller(h.tokens), h.Transfer)
}

// GetAdmin handles GET /admin.
func (h *AdminHandler) GetAdmin(c *gin.Context) {
	admin, err := h.store.Admin(c.Request.Context())
	if err != nil {
		fail(c, h.logger, "read admin", err)
		return
	}
	ok(c, http.StatusOK, admin)
}

type transferRequest struct {
	Principal model.Principal `json:"principal"`
}

// Transfer handles PUT /admin. Only the current admin may hand over the role.
func (h *AdminHandler) Transfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		transportError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.Transfer(c.Request.Context(), callerOf(c), req.Principal); err != nil {
		fail(c, h.logger, "transfer admin", err)
		return
	}
	ok(c, http.StatusOK, true)
}
