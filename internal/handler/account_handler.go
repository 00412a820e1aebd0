package handler

import (
	"context"
	"net/http"

	"github.com/everybank/ledger-service/shared/cqrs"
	"github.com/everybank/ledger-service/shared/middleware"
	"github.com/everybank/ledger-service/shared/models"
	"github.com/gin-gonic/gin"
)

// AccountQuerier defines the read-side operations used by AccountHandler.
type AccountQuerier interface {
	GetAccount(context.Context, cqrs.GetAccountQuery) (*models.AccountView, error)
	ListAccounts(context.Context, cqrs.ListAccountsQuery) ([]models.AccountView, error)
	ListTransactions(context.Context, cqrs.ListTransactionsQuery) ([]models.TransactionView, error)
	ComputeSettlement(context.Context, cqrs.ComputeSettlementQuery) (*models.SettlementQuote, error)
}

// AccountHandler serves account, history and settlement reads.
type AccountHandler struct {
	queries AccountQuerier
}

type ListAccountsResponse struct {
	Accounts []models.AccountView `json:"accounts"`
}

type ListTransactionsResponse struct {
	Transactions []models.TransactionView `json:"transactions"`
}

func NewAccountHandler(queries AccountQuerier) *AccountHandler {
	return &AccountHandler{queries: queries}
}

func (h *AccountHandler) ListAccounts(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	views, err := h.queries.ListAccounts(c.Request.Context(), cqrs.ListAccountsQuery{UserID: userID})
	if err != nil {
		middleware.RespondWithLedgerError(c, err, "Failed to list accounts")
		return
	}
	if views == nil {
		views = []models.AccountView{}
	}

	c.JSON(http.StatusOK, ListAccountsResponse{Accounts: views})
}

func (h *AccountHandler) GetAccount(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	accountID, ok := accountIDParam(c)
	if !ok {
		return
	}

	view, err := h.queries.GetAccount(c.Request.Context(), cqrs.GetAccountQuery{
		AccountID:        accountID,
		RequestingUserID: userID,
	})
	if err != nil {
		middleware.RespondWithLedgerError(c, err, "Failed to get account")
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *AccountHandler) ListTransactions(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	accountID, ok := accountIDParam(c)
	if !ok {
		return
	}

	views, err := h.queries.ListTransactions(c.Request.Context(), cqrs.ListTransactionsQuery{
		AccountID: accountID,
		UserID:    userID,
	})
	if err != nil {
		middleware.RespondWithLedgerError(c, err, "Failed to list transactions")
		return
	}
	if views == nil {
		views = []models.TransactionView{}
	}

	c.JSON(http.StatusOK, ListTransactionsResponse{Transactions: views})
}

func (h *AccountHandler) ComputeSettlement(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	accountID, ok := accountIDParam(c)
	if !ok {
		return
	}

	quote, err := h.queries.ComputeSettlement(c.Request.Context(), cqrs.ComputeSettlementQuery{
		AccountID: accountID,
		UserID:    userID,
	})
	if err != nil {
		middleware.RespondWithLedgerError(c, err, "Failed to compute settlement")
		return
	}

	c.JSON(http.StatusOK, quote)
}
