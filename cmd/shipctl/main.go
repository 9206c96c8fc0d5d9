package main

import (
	"fmt"
	"os"

	"github.com/BearBump/ShipLedger/config"
	"github.com/BearBump/ShipLedger/internal/logger"
	"github.com/spf13/cobra"
)

var (
	cfg     *config.Config
	cfgPath string
)

var rootCmd = &cobra.Command{
	Use:   "shipctl",
	Short: "Operator tool for the shipment ledger",
	Long:  "Applies the schema, imports carrier spreadsheets without the HTTP API and inspects history and upload batches.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgPath == "" {
			cfgPath = os.Getenv("configPath")
		}
		if cfgPath == "" {
			return fmt.Errorf("config path is required (--config or configPath env)")
		}
		c, err := config.LoadConfig(cfgPath)
		if err != nil {
			return err
		}
		cfg = c

		if err := logger.Init(cfg.ShipLedger.LogEnv, cfg.ShipLedger.LogLevel); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config.yaml (default: $configPath)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
