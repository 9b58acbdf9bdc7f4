package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pestledger/registry/internal/chain"
	"go.uber.org/zap"
)

// ChainHandler exposes the host height.
type ChainHandler struct {
	clock  chain.Clock
	logger *zap.Logger
}

// NewChainHandler creates a ChainHandler.
func NewChainHandler(clock chain.Clock, logger *zap.Logger) *ChainHandler {
	return &ChainHandler{clock: clock, logger: logger}
}

// Register mounts the chain routes.
func (h *ChainHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/chain/height", h.Height)
}

// Height handles GET /chain/height.
func (h *ChainHandler) Height(c *gin.Context) {
	height, good := currentHeight(c, h.clock, h.logger)
	if !good {
		return
	}
	ok(c, http.StatusOK, height)
}

// currentHeight reads the clock, writing a 503 if it is unavailable.
func currentHeight(c *gin.Context, clock chain.Clock, logger *zap.Logger) (uint64, bool) {
	height, err := clock.Height(c.Request.Context())
	if err != nil {
		logger.Error("read chain height", zap.Error(err))
		transportError(c, http.StatusServiceUnavailable, "chain height unavailable")
		return 0, false
	}
	return height, true
}
