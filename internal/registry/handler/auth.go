package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pestledger/registry/internal/identity"
	"go.uber.org/zap"
)

// AuthHandler exchanges a principal's API key for a caller token.
type AuthHandler struct {
	keys   *identity.KeyStore
	tokens *identity.CallerTokenIssuer
	logger *zap.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(keys *identity.KeyStore, tokens *identity.CallerTokenIssuer, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{keys: keys, tokens: tokens, logger: logger}
}

// Register mounts the auth routes.
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/auth/token", h.IssueToken)
}

type tokenRequest struct {
	Principal string `json:"principal" binding:"required"`
	APIKey    string `json:"api_key"   binding:"required"`
}

// TokenResponse is the value returned by POST /auth/token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Principal   string `json:"principal"`
}

// IssueToken handles POST /auth/token.
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		transportError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.keys.Authenticate(req.Principal, req.APIKey); err != nil {
		h.logger.Warn("token request rejected", zap.String("principal", req.Principal))
		transportError(c, http.StatusUnauthorized, err.Error())
		return
	}

	token, err := h.tokens.Issue(req.Principal)
	if err != nil {
		h.logger.Error("issue token", zap.String("principal", req.Principal), zap.Error(err))
		transportError(c, http.StatusInternalServerError, "failed to issue token")
		return
	}

	h.logger.Info("token issued", zap.String("principal", req.Principal))
	ok(c, http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.tokens.TTL().Seconds()),
		Principal:   req.Principal,
	})
}
