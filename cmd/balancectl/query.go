package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/chainbadge/internal/app"
	"github.com/example/chainbadge/internal/query"
	"github.com/example/chainbadge/internal/types"
)

var queryCmd = &cobra.Command{
	Use:     "query <path>",
	Short:   "Fetch a balance, e.g. evm/1/balance/0x...",
	Example: "  balancectl query bitcoin/mainnet/balance/bc1q...",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return runQuery(cmd, a, args[0])
	},
}

var scannerCmd = &cobra.Command{
	Use:   "scanner <path>",
	Short: "Print the block explorer link for a query path.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return runScanner(cmd, a, args[0])
	},
}

func runQuery(cmd *cobra.Command, a *app.App, path string) error {
	q, err := query.Parse(path)
	if err != nil {
		return err
	}
	resp, src, err := a.Cache.GetOrFetch(cmd.Context(), q)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), types.NewQueryResponse(resp, src, time.Now()))
}

func runScanner(cmd *cobra.Command, a *app.App, path string) error {
	q, err := query.Parse(path)
	if err != nil {
		return err
	}
	link, err := a.Source.ScannerLink(cmd.Context(), q)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), link)
	return err
}

func init() {
	rootCmd.AddCommand(queryCmd, scannerCmd)
}
