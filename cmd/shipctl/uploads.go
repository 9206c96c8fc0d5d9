package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/BearBump/ShipLedger/internal/models"
	"github.com/BearBump/ShipLedger/internal/services/ledger"
	"github.com/spf13/cobra"
)

var uploadsLimit int

var uploadsCmd = &cobra.Command{
	Use:   "uploads",
	Short: "List recent upload batches",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStorage(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		batches, err := ledger.New(st).List(ctx, uploadsLimit)
		if err != nil {
			return err
		}
		formatBatches(cmd.OutOrStdout(), batches)
		return nil
	},
}

func init() {
	uploadsCmd.Flags().IntVar(&uploadsLimit, "limit", 20, "max batches to show")
	rootCmd.AddCommand(uploadsCmd)
}

func formatBatches(out io.Writer, batches []models.UploadBatch) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tFILE\tCARRIER\tSTATUS\tUPLOADED\tROWS\tINS\tUPD\tDUP\tERR")
	for _, b := range batches {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			b.ID,
			truncate(b.Filename, 40),
			b.Carrier,
			b.Status,
			b.UploadedAt.Format("2006-01-02 15:04"),
			b.TotalRows,
			b.InsertedRows,
			b.UpdatedRows,
			b.DuplicateRows,
			b.ErrorRows,
		)
	}
	_ = w.Flush()
}
