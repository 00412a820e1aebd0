package middleware

import (
	"errors"
	"log"
	"net/http"

	"github.com/everybank/ledger-service/shared/ledgererr"
	"github.com/gin-gonic/gin"
)

var statusByCode = map[ledgererr.Code]int{
	ledgererr.CodeInvalidAmount:           http.StatusBadRequest,
	ledgererr.CodeInvalidContractOption:   http.StatusBadRequest,
	ledgererr.CodeNotOwner:                http.StatusForbidden,
	ledgererr.CodeAccountNotFound:         http.StatusNotFound,
	ledgererr.CodeContractNotFound:        http.StatusNotFound,
	ledgererr.CodeNoActiveCheckingAccount: http.StatusNotFound,
	ledgererr.CodeInactiveAccount:         http.StatusConflict,
	ledgererr.CodeCheckingAccountExists:   http.StatusConflict,
	ledgererr.CodeAlreadyFunded:           http.StatusConflict,
	ledgererr.CodePaymentsComplete:        http.StatusConflict,
	ledgererr.CodeInsufficientFunds:       http.StatusUnprocessableEntity,
	ledgererr.CodeWrongAccountType:        http.StatusUnprocessableEntity,
}

// StatusFor maps a ledger failure to its HTTP status; anything else is 500.
func StatusFor(err error) int {
	var ledgerErr *ledgererr.Error
	if errors.As(err, &ledgerErr) {
		if status, ok := statusByCode[ledgerErr.Code]; ok {
			return status
		}
	}
	return http.StatusInternalServerError
}

// RespondWithLedgerError writes typed ledger failures with their code and
// hides everything else behind fallback.
func RespondWithLedgerError(c *gin.Context, err error, fallback string) {
	var ledgerErr *ledgererr.Error
	if !errors.As(err, &ledgerErr) {
		log.Printf("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		RespondWithError(c, http.StatusInternalServerError, fallback)
		return
	}
	c.JSON(StatusFor(err), gin.H{
		"message": ledgerErr.Message,
		"code":    ledgerErr.Code,
	})
}
