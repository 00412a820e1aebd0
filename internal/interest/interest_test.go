package interest

import (
	"math"
	"testing"
	"time"

	"github.com/everybank/ledger-service/shared/models"
	"github.com/everybank/ledger-service/shared/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rate(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSimple(t *testing.T) {
	assert.Equal(t, int64(1644), Simple(1_000_000, rate("1.0"), 60))
	assert.Equal(t, int64(0), Simple(1_000_000, rate("3.0"), 0))
	assert.Equal(t, int64(0), Simple(1_000_000, rate("3.0"), -5))
	assert.Equal(t, int64(0), Simple(0, rate("3.0"), 100))
}

func TestCompoundExceedsSimpleOverAYear(t *testing.T) {
	simple := Simple(10_000_000, rate("2.4"), 365)
	compound := Compound(10_000_000, rate("2.4"), 365)

	assert.Equal(t, int64(240000), simple)
	assert.Greater(t, compound, simple)
}

func TestAccrueDispatchesOnRateType(t *testing.T) {
	assert.Equal(t, Simple(500_000, rate("3.0"), 90), Accrue(500_000, rate("3.0"), models.RateTypeSimple, 90))
	assert.Equal(t, Compound(500_000, rate("3.0"), 90), Accrue(500_000, rate("3.0"), models.RateTypeCompound, 90))
}

func TestEarlyTerminationRate(t *testing.T) {
	tests := []struct {
		name        string
		contract    string
		holdingDays int
		want        string
	}{
		{"half of contract rate", "3.0", 180, "1.5"},
		{"floor under 30 days", "0.1", 10, "0.1"},
		{"tier boundary 29 days", "0.2", 29, "0.1"},
		{"tier boundary 30 days", "0.2", 30, "0.3"},
		{"tier boundary 89 days", "0.2", 89, "0.3"},
		{"tier boundary 90 days", "0.2", 90, "0.5"},
		{"half above the 90 day floor", "1.2", 100, "0.6"},
		{"half above the 30 day floor", "0.8", 45, "0.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EarlyTerminationRate(rate(tt.contract), tt.holdingDays)
			assert.True(t, got.Equal(rate(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestAppliedRate(t *testing.T) {
	assert.True(t, AppliedRate(rate("3.0"), true, 10).Equal(rate("3.0")))
	assert.True(t, AppliedRate(rate("3.0"), false, 10).Equal(rate("1.5")))
}

// Installments are rounded one by one, so three small payments can earn
// less than the same money accrued as a single principal.
func TestInstallmentRoundingDrift(t *testing.T) {
	perInstallment := 3 * Simple(100, rate("3.65"), 140)
	whole := Simple(300, rate("3.65"), 140)

	assert.Equal(t, int64(3), perInstallment)
	assert.Equal(t, int64(4), whole)
}

func savingContract(contractDate time.Time, monthly int64, count int, r string, rt models.RateType) *models.Contract {
	return &models.Contract{
		ContractID:  7,
		Kind:        models.AccountTypeSaving,
		UserID:      1,
		ProductCode: "SAV-12",
		Option: models.ContractOption{
			InterestRateType: rt,
			AnnualRate:       rate(r),
			AnnualRate2:      rate(r),
			TermMonths:       12,
		},
		ContractDate:        contractDate,
		MaturityDate:        utils.AddMonths(contractDate, 12),
		ContractCondition:   models.ContractInProgress,
		AccountID:           42,
		MonthlyPayment:      monthly,
		CurrentPaymentCount: count,
	}
}

func depositContract(contractDate time.Time, principal int64, r string, rt models.RateType) *models.Contract {
	return &models.Contract{
		ContractID:  3,
		Kind:        models.AccountTypeDeposit,
		UserID:      1,
		ProductCode: "DEP-12",
		Option: models.ContractOption{
			InterestRateType: rt,
			AnnualRate:       rate("2.0"),
			AnnualRate2:      rate(r),
			TermMonths:       12,
		},
		ContractDate:      contractDate,
		MaturityDate:      utils.AddMonths(contractDate, 12),
		ContractCondition: models.ContractInProgress,
		AccountID:         41,
		Principal:         principal,
	}
}

func TestQuoteSavingEarlyTermination(t *testing.T) {
	contractDate := utils.Date(2025, time.January, 1)
	today := contractDate.AddDate(0, 0, 180)
	c := savingContract(contractDate, 500_000, 6, "3.0", models.RateTypeSimple)

	q := QuoteSaving(c, today)

	require.False(t, q.IsMatured)
	assert.Equal(t, 180, q.HoldingDays)
	assert.True(t, q.AppliedRate.Equal(rate("1.5")), "applied rate %s", q.AppliedRate)
	require.Len(t, q.Installments, 6)

	var sum int64
	for i, inst := range q.Installments {
		paymentDate := utils.AddMonths(contractDate, i+1)
		days := utils.DaysBetween(paymentDate, today)
		want := int64(0)
		if days > 0 {
			want = Simple(500_000, rate("1.5"), days)
		}
		assert.Equal(t, want, inst.Interest, "installment %d", inst.Number)
		sum += inst.Interest
	}

	assert.Equal(t, sum, q.Interest)
	assert.Equal(t, int64(9226), q.Interest)
	assert.Equal(t, int64(0), q.Installments[5].Interest, "the sixth installment is dated after today")
	assert.Equal(t, int64(3_000_000), q.Principal)
	assert.Equal(t, q.Principal+q.Interest, q.Payout)
}

func TestQuoteSavingAtMaturity(t *testing.T) {
	contractDate := utils.Date(2025, time.January, 1)
	c := savingContract(contractDate, 100_000, 12, "4.0", models.RateTypeCompound)
	today := c.MaturityDate.AddDate(0, 0, 20)

	q := QuoteSaving(c, today)

	require.True(t, q.IsMatured)
	assert.True(t, q.AppliedRate.Equal(rate("4.0")))
	assert.True(t, q.SettlementDate.Equal(c.MaturityDate))
	require.Len(t, q.Installments, 12)
	assert.Equal(t, int64(0), q.Installments[11].Interest, "last installment lands on the maturity date")

	first := q.Installments[0]
	assert.Equal(t, utils.DaysBetween(utils.AddMonths(contractDate, 1), c.MaturityDate), first.DaysHeld)
	assert.Equal(t, Compound(100_000, rate("4.0"), first.DaysHeld), first.Interest)
}

func TestQuoteDepositAtMaturityUsesContractRate(t *testing.T) {
	contractDate := utils.Date(2025, time.January, 15)
	c := depositContract(contractDate, 10_000_000, "2.4", models.RateTypeCompound)

	q := QuoteDeposit(c, c.MaturityDate)

	require.True(t, q.IsMatured)
	assert.True(t, q.AppliedRate.Equal(rate("2.4")))
	assert.Equal(t, 365, q.HoldingDays)

	want := int64(math.Round(1e7 * (math.Pow(1+2.4/100/365, 365) - 1)))
	assert.Equal(t, want, q.Interest)
	assert.Equal(t, int64(10_000_000)+want, q.Payout)
}

func TestQuoteDepositAfterMaturityStopsAccruing(t *testing.T) {
	contractDate := utils.Date(2025, time.January, 15)
	c := depositContract(contractDate, 10_000_000, "2.4", models.RateTypeSimple)

	atMaturity := QuoteDeposit(c, c.MaturityDate)
	later := QuoteDeposit(c, c.MaturityDate.AddDate(0, 3, 0))

	assert.Equal(t, atMaturity.Interest, later.Interest)
	assert.Equal(t, int64(240000), later.Interest)
}

func TestQuoteDepositEarlyTermination(t *testing.T) {
	contractDate := utils.Date(2025, time.January, 1)
	c := depositContract(contractDate, 1_000_000, "2.0", models.RateTypeSimple)

	q := QuoteDeposit(c, contractDate.AddDate(0, 0, 60))

	require.False(t, q.IsMatured)
	assert.Equal(t, 60, q.HoldingDays)
	assert.True(t, q.AppliedRate.Equal(rate("1.0")))
	assert.Equal(t, int64(1644), q.Interest)
	assert.Equal(t, int64(1_001_644), q.Payout)
}

func TestQuoteDepositSameDayEarnsNothing(t *testing.T) {
	contractDate := utils.Date(2025, time.May, 20)
	c := depositContract(contractDate, 1_000_000, "3.0", models.RateTypeCompound)

	q := QuoteDeposit(c, contractDate)

	assert.False(t, q.IsMatured)
	assert.Equal(t, 0, q.HoldingDays)
	assert.Equal(t, int64(0), q.Interest)
	assert.Equal(t, int64(1_000_000), q.Payout)
}

func TestQuoteIsDeterministic(t *testing.T) {
	contractDate := utils.Date(2025, time.January, 1)
	c := savingContract(contractDate, 250_000, 4, "3.3", models.RateTypeCompound)
	today := contractDate.AddDate(0, 0, 140)

	assert.Equal(t, Quote(c, today), Quote(c, today))
}
