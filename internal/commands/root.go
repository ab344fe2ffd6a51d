// Package commands defines the mt940merger CLI.
package commands

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/archeus/mt940-merger/internal/config"
	"github.com/archeus/mt940-merger/internal/logging"
)

var cfgFile string

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mt940merger",
		Short: "Merge MT940 bank statement files into a deduplicated CSV",
		Long: `mt940merger ingests MT940 bank statement files, removes duplicate
transactions across overlapping exports of the same account, and produces
a single flat CSV table.

Run 'serve' for the browser upload service or 'convert' for one-shot
conversion of local files.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")

	root.AddCommand(newServeCmd())
	root.AddCommand(newConvertCmd())
	return root
}

func loadRuntime() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.New(cfg), nil
}
