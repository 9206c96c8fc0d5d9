package main

import (
	"github.com/BearBump/ShipLedger/internal/logger"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create shipment, history and batch tables",
	Long:  "Runs the idempotent CREATE IF NOT EXISTS statements for all carrier tables, shipment_history and upload_batches.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStorage(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.InitSchema(ctx); err != nil {
			return errors.Wrap(err, "migrate")
		}
		logger.Named("shipctl").Info("schema is up to date")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
