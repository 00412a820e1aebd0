package main

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/everybank/ledger-service/internal/interest"
	"github.com/everybank/ledger-service/shared/models"
	"github.com/everybank/ledger-service/shared/utils"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	quoteKind         string
	quoteRateType     string
	quoteRate         string
	quoteTerm         int
	quoteContractDate string
	quoteAsOf         string
	quotePrincipal    int64
	quoteMonthly      int64
	quotePayments     int
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Price a settlement without touching any account",
	Long: `Compute the payout a deposit or saving contract would settle for on a
given date, using the same interest rules the service applies on refund.

Examples:
  ledger quote --kind deposit --principal 10000000 --rate 2.4 --term 12 \
      --contract-date 2025-01-01 --as-of 2026-01-01
  ledger quote --kind saving --monthly 500000 --payments 6 --rate 3.0 \
      --term 12 --contract-date 2025-01-01 --as-of 2025-06-30`,
	RunE: func(cmd *cobra.Command, args []string) error {
		contract, asOf, err := quoteContract()
		if err != nil {
			return err
		}
		quote := interest.Quote(contract, asOf)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(quote)
	},
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	quoteCmd.Flags().StringVar(&quoteKind, "kind", "deposit", "Contract kind: deposit or saving")
	quoteCmd.Flags().StringVar(&quoteRateType, "rate-type", string(models.RateTypeSimple), "SIMPLE or COMPOUND")
	quoteCmd.Flags().StringVar(&quoteRate, "rate", "", "Annual contract rate in percent, e.g. 2.4")
	quoteCmd.Flags().IntVar(&quoteTerm, "term", 12, "Term in months")
	quoteCmd.Flags().StringVar(&quoteContractDate, "contract-date", "", "Contract date, YYYY-MM-DD")
	quoteCmd.Flags().StringVar(&quoteAsOf, "as-of", "", "Settlement date, YYYY-MM-DD (default today)")
	quoteCmd.Flags().Int64Var(&quotePrincipal, "principal", 0, "Deposit principal in minor units")
	quoteCmd.Flags().Int64Var(&quoteMonthly, "monthly", 0, "Saving monthly payment in minor units")
	quoteCmd.Flags().IntVar(&quotePayments, "payments", 0, "Saving installments paid so far")

	_ = quoteCmd.MarkFlagRequired("rate")
	_ = quoteCmd.MarkFlagRequired("contract-date")
}

func quoteContract() (*models.Contract, time.Time, error) {
	rate, err := decimal.NewFromString(quoteRate)
	if err != nil || rate.IsNegative() {
		return nil, time.Time{}, fmt.Errorf("invalid --rate %q", quoteRate)
	}
	if quoteTerm <= 0 {
		return nil, time.Time{}, fmt.Errorf("--term must be positive")
	}
	rateType := models.RateType(strings.ToUpper(quoteRateType))
	if rateType != models.RateTypeSimple && rateType != models.RateTypeCompound {
		return nil, time.Time{}, fmt.Errorf("invalid --rate-type %q", quoteRateType)
	}

	contractDate, err := parseDate("--contract-date", quoteContractDate)
	if err != nil {
		return nil, time.Time{}, err
	}
	asOf := utils.Today(utils.SystemClock{Location: time.Local})
	if quoteAsOf != "" {
		if asOf, err = parseDate("--as-of", quoteAsOf); err != nil {
			return nil, time.Time{}, err
		}
	}

	contract := &models.Contract{
		ProductCode: "QUOTE",
		Option: models.ContractOption{
			InterestRateType: rateType,
			AnnualRate:       rate,
			AnnualRate2:      rate,
			TermMonths:       quoteTerm,
		},
		ContractDate:      contractDate,
		MaturityDate:      utils.AddMonths(contractDate, quoteTerm),
		ContractCondition: models.ContractInProgress,
	}

	switch strings.ToLower(quoteKind) {
	case "deposit":
		if quotePrincipal <= 0 {
			return nil, time.Time{}, fmt.Errorf("--principal must be positive for a deposit")
		}
		contract.Kind = models.AccountTypeDeposit
		contract.Principal = quotePrincipal
	case "saving":
		if quoteMonthly <= 0 {
			return nil, time.Time{}, fmt.Errorf("--monthly must be positive for a saving")
		}
		if quoteMonthly > math.MaxInt64/int64(quoteTerm) {
			return nil, time.Time{}, fmt.Errorf("--monthly %d over %d months overflows a balance", quoteMonthly, quoteTerm)
		}
		if quotePayments < 0 || quotePayments > quoteTerm {
			return nil, time.Time{}, fmt.Errorf("--payments must be between 0 and --term")
		}
		contract.Kind = models.AccountTypeSaving
		contract.MonthlyPayment = quoteMonthly
		contract.CurrentPaymentCount = quotePayments
	default:
		return nil, time.Time{}, fmt.Errorf("invalid --kind %q", quoteKind)
	}
	return contract, asOf, nil
}

func parseDate(flag, value string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: want YYYY-MM-DD", flag, value)
	}
	return utils.DateOf(t), nil
}
