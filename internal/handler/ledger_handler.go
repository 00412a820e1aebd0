package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/everybank/ledger-service/shared/cqrs"
	"github.com/everybank/ledger-service/shared/middleware"
	"github.com/everybank/ledger-service/shared/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// LedgerCommander defines the write-side operations used by LedgerHandler.
type LedgerCommander interface {
	OpenCheckingAccount(context.Context, cqrs.OpenCheckingAccountCommand) (*models.Account, error)
	ExternalDeposit(context.Context, cqrs.ExternalDepositCommand) (*models.Posting, error)
	ExternalWithdraw(context.Context, cqrs.ExternalWithdrawCommand) (*models.Posting, error)
	PayIntoProduct(context.Context, cqrs.PayIntoProductCommand) (*models.Posting, error)
	RefundFromProduct(context.Context, cqrs.RefundFromProductCommand) (*models.Posting, error)
	FundNewContractAccount(context.Context, cqrs.FundNewContractAccountCommand) (*models.Posting, error)
	SubscribeDeposit(context.Context, cqrs.SubscribeDepositCommand) (*models.Subscription, error)
	SubscribeSaving(context.Context, cqrs.SubscribeSavingCommand) (*models.Subscription, error)
}

// LedgerHandler handles money-moving HTTP requests.
type LedgerHandler struct {
	commands LedgerCommander
}

type OpenCheckingRequest struct {
	CompanyCode string `json:"companyCode" validate:"required,max=16"`
}

type AmountRequest struct {
	Amount int64 `json:"amount" validate:"gt=0"`
}

type FundRequest struct {
	Amount int64 `json:"amount" validate:"gte=0"`
}

type ContractOptionRequest struct {
	ProductCode      string          `json:"productCode" validate:"required"`
	CompanyCode      string          `json:"companyCode" validate:"required,max=16"`
	InterestRateType string          `json:"interestRateType" validate:"required,oneof=SIMPLE COMPOUND"`
	AnnualRate       decimal.Decimal `json:"annualRate" validate:"gte=0,lte=100"`
	AnnualRate2      decimal.Decimal `json:"annualRate2" validate:"gte=0,lte=100"`
	TermMonths       int             `json:"termMonths" validate:"gt=0,lte=600"`
}

func (r ContractOptionRequest) option() models.ContractOption {
	return models.ContractOption{
		InterestRateType: models.RateType(r.InterestRateType),
		AnnualRate:       r.AnnualRate,
		AnnualRate2:      r.AnnualRate2,
		TermMonths:       r.TermMonths,
	}
}

type SubscribeDepositRequest struct {
	ContractOptionRequest
	Amount int64 `json:"amount" validate:"gt=0"`
}

type SubscribeSavingRequest struct {
	ContractOptionRequest
	MonthlyPayment int64 `json:"monthlyPayment" validate:"gt=0"`
}

func NewLedgerHandler(commands LedgerCommander) *LedgerHandler {
	return &LedgerHandler{commands: commands}
}

// bind decodes and validates the JSON body, writing the 400 itself.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return false
	}
	return true
}

func accountIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("accountId"), 10, 64)
	if err != nil || id <= 0 {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid account id")
		return 0, false
	}
	return id, true
}

func (h *LedgerHandler) OpenCheckingAccount(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req OpenCheckingRequest
	if !bind(c, &req) {
		return
	}

	account, err := h.commands.OpenCheckingAccount(c.Request.Context(), cqrs.OpenCheckingAccountCommand{
		UserID:      userID,
		CompanyCode: req.CompanyCode,
	})
	if err != nil {
		middleware.RespondWithLedgerError(c, err, "Failed to open checking account")
		return
	}

	c.JSON(http.StatusCreated, account)
}

func (h *LedgerHandler) ExternalDeposit(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req AmountRequest
	if !bind(c, &req) {
		return
	}

	posting, err := h.commands.ExternalDeposit(c.Request.Context(), cqrs.ExternalDepositCommand{
		UserID: userID,
		Amount: req.Amount,
	})
	if err != nil {
		middleware.RespondWithLedgerError(c, err, "Failed to deposit")
		return
	}

	c.JSON(http.StatusCreated, posting)
}

func (h *LedgerHandler) ExternalWithdraw(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req AmountRequest
	if !bind(c, &req) {
		return
	}

	posting, err := h.commands.ExternalWithdraw(c.Request.Context(), cqrs.ExternalWithdrawCommand{
		UserID: userID,
		Amount: req.Amount,
	})
	if err != nil {
		middleware.RespondWithLedgerError(c, err, "Failed to withdraw")
		return
	}

	c.JSON(http.StatusCreated, posting)
}

func (h *LedgerHandler) PayIntoProduct(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	accountID, ok := accountIDParam(c)
	if !ok {
		return
	}

	var req AmountRequest
	if !bind(c, &req) {
		return
	}

	posting, err := h.commands.PayIntoProduct(c.Request.Context(), cqrs.PayIntoProductCommand{
		UserID:           userID,
		ProductAccountID: accountID,
		Amount:           req.Amount,
	})
	if err != nil {
		middleware.RespondWithLedgerError(c, err, "Failed to pay into account")
		return
	}

	c.JSON(http.StatusCreated, posting)
}

func (h *LedgerHandler) FundNewContractAccount(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	accountID, ok := accountIDParam(c)
	if !ok {
		return
	}

	var req FundRequest
	if !bind(c, &req) {
		return
	}

	posting, err := h.commands.FundNewContractAccount(c.Request.Context(), cqrs.FundNewContractAccountCommand{
		UserID:           userID,
		ProductAccountID: accountID,
		Amount:           req.Amount,
	})
	if err != nil {
		middleware.RespondWithLedgerError(c, err, "Failed to fund account")
		return
	}

	c.JSON(http.StatusOK, posting)
}

func (h *LedgerHandler) RefundFromProduct(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	accountID, ok := accountIDParam(c)
	if !ok {
		return
	}

	posting, err := h.commands.RefundFromProduct(c.Request.Context(), cqrs.RefundFromProductCommand{
		UserID:           userID,
		ProductAccountID: accountID,
	})
	if err != nil {
		middleware.RespondWithLedgerError(c, err, "Failed to refund account")
		return
	}

	c.JSON(http.StatusOK, posting)
}

func (h *LedgerHandler) SubscribeDeposit(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req SubscribeDepositRequest
	if !bind(c, &req) {
		return
	}

	sub, err := h.commands.SubscribeDeposit(c.Request.Context(), cqrs.SubscribeDepositCommand{
		UserID:      userID,
		ProductCode: req.ProductCode,
		CompanyCode: req.CompanyCode,
		Option:      req.option(),
		Amount:      req.Amount,
	})
	if err != nil {
		middleware.RespondWithLedgerError(c, err, "Failed to subscribe deposit")
		return
	}

	c.JSON(http.StatusCreated, sub)
}

func (h *LedgerHandler) SubscribeSaving(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req SubscribeSavingRequest
	if !bind(c, &req) {
		return
	}

	sub, err := h.commands.SubscribeSaving(c.Request.Context(), cqrs.SubscribeSavingCommand{
		UserID:         userID,
		ProductCode:    req.ProductCode,
		CompanyCode:    req.CompanyCode,
		Option:         req.option(),
		MonthlyPayment: req.MonthlyPayment,
	})
	if err != nil {
		middleware.RespondWithLedgerError(c, err, "Failed to subscribe saving")
		return
	}

	c.JSON(http.StatusCreated, sub)
}
