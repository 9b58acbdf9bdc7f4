package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pestledger/registry/internal/trustledger"
	"go.uber.org/zap"
)

// LedgerHandler exposes read-only HTTP endpoints for the audit ledger.
type LedgerHandler struct {
	ledger trustledger.Ledger
	logger *zap.Logger
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledger trustledger.Ledger, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{ledger: ledger, logger: logger}
}

// Register mounts the ledger routes on the given router group.
func (h *LedgerHandler) Register(rg *gin.RouterGroup) {
	l := rg.Group("/ledger")
	{
		l.GET("", h.Overview)
		l.GET("/verify", h.Verify)
		l.GET("/entries/:idx", h.GetEntry)
	}
}

// LedgerOverview is the value returned by GET /ledger.
type LedgerOverview struct {
	Entries int    `json:"entries"`
	Root    string `json:"root"`
}

// LedgerVerification is the value returned by GET /ledger/verify.
type LedgerVerification struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Overview handles GET /ledger and returns the chain length and root hash.
func (h *LedgerHandler) Overview(c *gin.Context) {
	ctx := c.Request.Context()

	count, err := h.ledger.Len(ctx)
	if err != nil {
		h.logger.Error("ledger Len", zap.Error(err))
		transportError(c, http.StatusInternalServerError, "failed to query ledger")
		return
	}

	root, err := h.ledger.Root(ctx)
	if err != nil {
		h.logger.Error("ledger Root", zap.Error(err))
		transportError(c, http.StatusInternalServerError, "failed to query ledger root")
		return
	}

	ok(c, http.StatusOK, LedgerOverview{Entries: count, Root: root})
}

// Verify handles GET /ledger/verify and walks the full chain.
func (h *LedgerHandler) Verify(c *gin.Context) {
	if err := h.ledger.Verify(c.Request.Context()); err != nil {
		h.logger.Warn("ledger integrity check failed", zap.Error(err))
		ok(c, http.StatusOK, LedgerVerification{Valid: false, Reason: err.Error()})
		return
	}
	ok(c, http.StatusOK, LedgerVerification{Valid: true})
}

// GetEntry handles GET /ledger/entries/:idx.
func (h *LedgerHandler) GetEntry(c *gin.Context) {
	idx, err := strconv.Atoi(c.Param("idx"))
	if err != nil || idx < 0 {
		transportError(c, http.StatusBadRequest, "idx must be a non-negative integer")
		return
	}

	entry, err := h.ledger.Get(c.Request.Context(), idx)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": http.StatusNotFound})
		return
	}
	ok(c, http.StatusOK, entry)
}

// CountingLedger wraps a Ledger and counts successful appends in
// pest_ledger_entries_total.
type CountingLedger struct {
	trustledger.Ledger
}

// Append implements trustledger.Ledger.
func (l CountingLedger) Append(ctx context.Context, subject, action, actor string, height uint64, payload any) (*trustledger.Entry, error) {
	e, err := l.Ledger.Append(ctx, subject, action, actor, height, payload)
	if err == nil {
		RecordLedgerAppend()
	}
	return e, err
}
