package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Account ledger and interest settlement service",
	Long: `Ledger keeps checking, deposit and saving account balances, records every
money movement as an append-only ledger row, and quotes maturity and
early-termination payouts for deposit and saving contracts.

Configuration is read from the environment or a .env file in the working
directory (SERVER_PORT, DATABASE_URL, REDIS_ADDR, BUSINESS_TIMEZONE, ...).`,
	SilenceUsage: true,
}

// Execute runs the root command. SIGINT and SIGTERM cancel its context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
