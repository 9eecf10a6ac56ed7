package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "callbacks",
	Short: "Payment callbacks microservice",
	Long:  "A microservice that ingests payment gateway callbacks, drives the payment state machine, and retries failed deliveries.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
