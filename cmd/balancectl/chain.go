package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/chainbadge/internal/app"
	"github.com/example/chainbadge/internal/endpoint"
	"github.com/example/chainbadge/internal/query"
)

var chainCmd = &cobra.Command{
	Use:   "chain [chain-id]",
	Short: "Show a chain's directory record and usable RPC endpoints, or list all chains.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if len(args) == 0 {
			return runChains(cmd, a)
		}
		return runChain(cmd, a, args[0])
	},
}

func runChain(cmd *cobra.Command, a *app.App, id string) error {
	chainID, err := query.ParseUint256(id)
	if err != nil {
		return fmt.Errorf("chain id %q: %w", id, err)
	}
	c, err := a.Directory.Chain(cmd.Context(), chainID)
	if err != nil {
		return err
	}
	out := map[string]interface{}{
		"name":      c.Name,
		"chain_id":  c.Key(),
		"symbol":    c.NativeCurrency.Symbol,
		"decimals":  c.NativeCurrency.Decimals,
		"endpoints": a.Selector.Candidates(c),
	}
	if ex, ok := c.Explorer(); ok {
		out["explorer"] = ex.URL
	}
	if u, ok := a.Selector.Sticky(chainID); ok {
		out["sticky"] = u
	}
	return printJSON(cmd.OutOrStdout(), out)
}

func runChains(cmd *cobra.Command, a *app.App) error {
	chains, err := a.Directory.Chains(cmd.Context())
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSYMBOL\tENDPOINTS")
	for _, c := range chains {
		usable := 0
		for _, u := range c.RPC {
			if endpoint.Usable(u) {
				usable++
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", c.Key(), c.Name, c.NativeCurrency.Symbol, usable)
	}
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(chainCmd)
}
