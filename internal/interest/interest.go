// Package interest computes accrued interest and early-termination rates.
// All functions are pure: amounts are minor currency units, rates are annual
// percentages, and periods are actual days on a 365-day year. Each call
// rounds its own result to the nearest unit, half away from zero.
package interest

import (
	"math"

	"github.com/everybank/ledger-service/shared/models"
	"github.com/shopspring/decimal"
)

const daysPerYear = 365

var (
	earlyTerminationFactor = decimal.RequireFromString("0.5")

	floorUnder30Days = decimal.RequireFromString("0.1")
	floorUnder90Days = decimal.RequireFromString("0.3")
	floorOtherwise   = decimal.RequireFromString("0.5")
)

func dailyRate(annualRatePercent decimal.Decimal) float64 {
	return annualRatePercent.InexactFloat64() / 100 / daysPerYear
}

// Simple returns round(principal × (rate/100/365) × days).
func Simple(principal int64, annualRatePercent decimal.Decimal, days int) int64 {
	if days <= 0 || principal == 0 {
		return 0
	}
	return int64(math.Round(float64(principal) * dailyRate(annualRatePercent) * float64(days)))
}

// Compound returns round(principal × ((1 + rate/100/365)^days − 1)).
func Compound(principal int64, annualRatePercent decimal.Decimal, days int) int64 {
	if days <= 0 || principal == 0 {
		return 0
	}
	factor := math.Pow(1+dailyRate(annualRatePercent), float64(days))
	return int64(math.Round(float64(principal) * (factor - 1)))
}

// Accrue dispatches on the contract's rate type.
func Accrue(principal int64, annualRatePercent decimal.Decimal, rateType models.RateType, days int) int64 {
	if rateType == models.RateTypeSimple {
		return Simple(principal, annualRatePercent, days)
	}
	return Compound(principal, annualRatePercent, days)
}

// EarlyTerminationRate halves the contract rate but never goes below the
// holding-period floor: 0.1% under 30 days, 0.3% under 90, 0.5% otherwise.
func EarlyTerminationRate(contractRate decimal.Decimal, holdingDays int) decimal.Decimal {
	base := contractRate.Mul(earlyTerminationFactor)
	var floor decimal.Decimal
	switch {
	case holdingDays < 30:
		floor = floorUnder30Days
	case holdingDays < 90:
		floor = floorUnder90Days
	default:
		floor = floorOtherwise
	}
	return decimal.Max(base, floor)
}

// AppliedRate is the contract rate at maturity and the early-termination
// rate before it.
func AppliedRate(contractRate decimal.Decimal, isMatured bool, holdingDays int) decimal.Decimal {
	if isMatured {
		return contractRate
	}
	return EarlyTerminationRate(contractRate, holdingDays)
}
