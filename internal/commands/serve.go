package commands

import (
	"github.com/spf13/cobra"

	"github.com/archeus/mt940-merger/internal/api"
	"github.com/archeus/mt940-merger/internal/config"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP upload and export service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadRuntime()
			if err != nil {
				return err
			}
			applyAddrOverride(cfg, addr)
			return api.New(cfg, log).Listen()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

// applyAddrOverride lets the --addr flag win over the configured address.
func applyAddrOverride(cfg *config.Config, addr string) {
	if addr != "" {
		cfg.ListenAddr = addr
	}
}
