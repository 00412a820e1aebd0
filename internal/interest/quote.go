package interest

import (
	"time"

	"github.com/everybank/ledger-service/shared/models"
	"github.com/everybank/ledger-service/shared/utils"
)

func newQuote(c *models.Contract, today time.Time) models.SettlementQuote {
	return models.SettlementQuote{
		AccountID:      c.AccountID,
		ContractID:     c.ContractID,
		AccountType:    c.Kind,
		ProductCode:    c.ProductCode,
		RateType:       c.Option.InterestRateType,
		ContractRate:   c.Option.AnnualRate2,
		IsMatured:      !today.Before(c.MaturityDate),
		ContractDate:   c.ContractDate,
		MaturityDate:   c.MaturityDate,
		SettlementDate: utils.MinDate(today, c.MaturityDate),
		TermMonths:     c.Option.TermMonths,
	}
}

// QuoteDeposit settles a lump-sum deposit as of today. At or after maturity
// the full term accrues at the contract rate; before it only the days held
// accrue, at the early-termination rate.
func QuoteDeposit(c *models.Contract, today time.Time) models.SettlementQuote {
	today = utils.DateOf(today)
	q := newQuote(c, today)

	holdingDays := utils.DaysBetween(c.ContractDate, q.SettlementDate)
	if holdingDays < 0 {
		holdingDays = 0
	}
	q.HoldingDays = holdingDays

	if q.IsMatured {
		q.AppliedRate = q.ContractRate
		holdingDays = utils.DaysBetween(c.ContractDate, c.MaturityDate)
	} else {
		q.AppliedRate = AppliedRate(q.ContractRate, false, holdingDays)
	}

	q.Principal = c.Principal
	q.Interest = Accrue(c.Principal, q.AppliedRate, c.Option.InterestRateType, holdingDays)
	q.Payout = q.Principal + q.Interest
	return q
}

// QuoteSaving settles an installment saving as of today. Installment i is
// nominally paid on contractDate + i months and accrues only for the days
// between that date and the settlement date; installments dated on or after
// the settlement date contribute nothing. Every installment is rounded on
// its own, so the total can drift from a single whole-principal figure.
func QuoteSaving(c *models.Contract, today time.Time) models.SettlementQuote {
	today = utils.DateOf(today)
	q := newQuote(c, today)

	holdingDays := utils.DaysBetween(c.ContractDate, today)
	if holdingDays < 0 {
		holdingDays = 0
	}
	q.HoldingDays = holdingDays
	q.AppliedRate = AppliedRate(q.ContractRate, q.IsMatured, holdingDays)
	q.MonthlyPayment = c.MonthlyPayment
	q.PaymentCount = c.CurrentPaymentCount

	q.Installments = make([]models.InstallmentAccrual, 0, c.CurrentPaymentCount)
	var total int64
	for i := 1; i <= c.CurrentPaymentCount; i++ {
		paymentDate := utils.AddMonths(c.ContractDate, i)
		daysHeld := utils.DaysBetween(paymentDate, q.SettlementDate)
		accrual := models.InstallmentAccrual{Number: i, PaymentDate: paymentDate}
		if daysHeld > 0 {
			accrual.DaysHeld = daysHeld
			accrual.Interest = Accrue(c.MonthlyPayment, q.AppliedRate, c.Option.InterestRateType, daysHeld)
		}
		total += accrual.Interest
		q.Installments = append(q.Installments, accrual)
	}

	q.Principal = c.MonthlyPayment * int64(c.CurrentPaymentCount)
	q.Interest = total
	q.Payout = q.Principal + q.Interest
	return q
}

// Quote dispatches on the contract kind.
func Quote(c *models.Contract, today time.Time) models.SettlementQuote {
	if c.Kind == models.AccountTypeSaving {
		return QuoteSaving(c, today)
	}
	return QuoteDeposit(c, today)
}
