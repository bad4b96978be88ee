package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/neuroforge/backend/internal/accounts"
	"github.com/neuroforge/backend/internal/apperr"
	"github.com/neuroforge/backend/internal/middleware"
)

// GetWallet returns the caller's balances, opening the wallet on first use.
func GetWallet(ledger *accounts.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		w, err := ledger.Wallet(c.Request.Context(), middleware.PlayerID(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, w)
	}
}

// TransferCredits sends credits from the caller to another player.
func TransferCredits(ledger *accounts.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ToPlayerID int64 `json:"to_player_id" binding:"required"`
			Amount     int64 `json:"amount" binding:"required"`
		}
		if !bindJSON(c, &req) {
			return
		}

		ctx := c.Request.Context()
		from := middleware.PlayerID(c)
		ok, err := ledger.TransferCredits(ctx, from, req.ToPlayerID, req.Amount)
		if err != nil {
			respondError(c, err)
			return
		}
		if !ok {
			respondError(c, apperr.Insufficient("not enough credits to transfer %d", req.Amount))
			return
		}

		w, err := ledger.Wallet(ctx, from)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "transferred", "wallet": w})
	}
}
