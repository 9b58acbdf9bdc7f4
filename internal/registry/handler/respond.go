package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pestledger/registry/internal/identity"
	"github.com/pestledger/registry/internal/registry/model"
	"go.uber.org/zap"
)

// ok writes the success envelope.
func ok(c *gin.Context, status int, value any) {
	c.JSON(status, gin.H{"ok": true, "value": value})
}

// fail writes the failure envelope for a domain error. Unknown errors are
// logged and reported as 500 without detail.
func fail(c *gin.Context, logger *zap.Logger, op string, err error) {
	code := model.Code(err)
	if code == model.CodeInternalError {
		logger.Error(op, zap.Error(err))
		transportError(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(code, gin.H{"ok": false, "error": code})
}

// transportError writes a failure that did not come from the registries.
func transportError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"ok": false, "error": status, "message": msg})
}

// parseID reads a uint64 path parameter, writing a 400 on failure.
func parseID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		transportError(c, http.StatusBadRequest, name+" must be a non-negative integer")
		return 0, false
	}
	return id, true
}

// callerOf returns the principal authenticated by RequireCaller.
func callerOf(c *gin.Context) model.Principal {
	claims := identity.CallerFromCtx(c)
	if claims == nil {
		return ""
	}
	return model.Principal(claims.Principal())
}
