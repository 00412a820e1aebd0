package handler

import (
	"net/http"

	"github.com/everybank/ledger-service/shared/middleware"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the HTTP surface of the ledger. identity resolves the
// caller; production passes middleware.UserIdentity().
func NewRouter(ledger *LedgerHandler, accounts *AccountHandler, identity gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.LoggingMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1", identity)
	{
		v1.POST("/accounts/checking", ledger.OpenCheckingAccount)
		v1.POST("/accounts/checking/deposits", ledger.ExternalDeposit)
		v1.POST("/accounts/checking/withdrawals", ledger.ExternalWithdraw)

		v1.POST("/products/deposits", ledger.SubscribeDeposit)
		v1.POST("/products/savings", ledger.SubscribeSaving)

		v1.GET("/accounts", accounts.ListAccounts)
		v1.GET("/accounts/:accountId", accounts.GetAccount)
		v1.GET("/accounts/:accountId/transactions", accounts.ListTransactions)
		v1.GET("/accounts/:accountId/settlement", accounts.ComputeSettlement)
		v1.POST("/accounts/:accountId/payments", ledger.PayIntoProduct)
		v1.POST("/accounts/:accountId/funding", ledger.FundNewContractAccount)
		v1.POST("/accounts/:accountId/refund", ledger.RefundFromProduct)
	}
	return router
}
