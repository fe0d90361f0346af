package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/atlasbank/ledger/internal/api/handler"
	"github.com/atlasbank/ledger/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	accountHandler *handler.AccountHandler,
	ledgerHandler *handler.LedgerHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	v1.Use(middleware.Identity())
	{
		// Account operations
		accounts := v1.Group("/accounts")
		{
			accounts.POST("", accountHandler.Open)
			accounts.GET("", accountHandler.List)
			accounts.GET("/:id", accountHandler.GetByID)
			accounts.PATCH("/:id", accountHandler.Rename)
			accounts.POST("/:id/close", accountHandler.Close)

			// Ledger operations
			accounts.POST("/:id/deposit", ledgerHandler.Deposit)
			accounts.POST("/:id/withdraw", ledgerHandler.Withdraw)
			accounts.POST("/:id/transfer", ledgerHandler.Transfer)
			accounts.POST("/:id/billpay", ledgerHandler.BillPay)
			accounts.GET("/:id/transactions", ledgerHandler.Transactions)
			accounts.GET("/:id/reconciliation", ledgerHandler.Reconciliation)
			accounts.GET("/:id/statement", ledgerHandler.Statement)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
