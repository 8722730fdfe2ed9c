// Command balancectl runs one-off balance, scanner and chain lookups against
// the same stack the server uses.
package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/chainbadge/internal/app"
	"github.com/example/chainbadge/internal/config"
	"github.com/example/chainbadge/internal/logger"
)

var (
	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "balancectl",
	Short:         "Query on-chain balances from the command line.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "optional config file (toml, yaml or json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr while running")
}

// newApp loads configuration the same way the server does.
func newApp() (*app.App, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	log, err := cliLogger(cfg.Log, verbose)
	if err != nil {
		return nil, err
	}
	return app.New(cfg, log, app.Options{}), nil
}

// cliLogger keeps stdout for command output: logging is off unless verbose,
// and then goes to stderr.
func cliLogger(c logger.Conf, verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	c.Output = "stderr"
	return logger.SetUp(c)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
