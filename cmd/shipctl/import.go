package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BearBump/ShipLedger/internal/carriers"
	"github.com/BearBump/ShipLedger/internal/services/ingest"
	"github.com/BearBump/ShipLedger/internal/services/ledger"
	"github.com/BearBump/ShipLedger/internal/services/reconciler"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	importClient     string
	importUploadedBy string
	importChunkSize  int
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a carrier spreadsheet",
	Long:  "Reads a CSV/XLSX file and reconciles it into the carrier table exactly like an HTTP upload, including the batch ledger.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		v, err := carriers.Lookup(importClient)
		if err != nil {
			return err
		}
		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrap(err, "read file")
		}

		st, err := openStorage(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		history, closeHistory := historyWriter(st)
		defer closeHistory()

		chunk := importChunkSize
		if chunk <= 0 {
			chunk = cfg.ShipLedger.ChunkSize
		}
		tracking, closeTracking := trackingCache()
		defer closeTracking()

		svc := ingest.New(reconciler.New(st, history), ledger.New(st), chunk)
		if tracking != nil {
			svc.WithTrackingCache(tracking)
		}

		out, err := svc.Upload(ctx, ingest.Upload{
			Filename:   filepath.Base(path),
			Data:       data,
			UploadedBy: importUploadedBy,
			Client:     importClient,
			Variant:    v,
		})
		if out != nil {
			formatOutcome(cmd.OutOrStdout(), out)
		}
		return err
	},
}

func init() {
	importCmd.Flags().StringVar(&importClient, "client", "Natura", "client/carrier name (Natura, Oriflame, OFFCORS)")
	importCmd.Flags().StringVar(&importUploadedBy, "uploaded-by", "shipctl", "name recorded in the batch ledger")
	importCmd.Flags().IntVar(&importChunkSize, "chunk-size", 0, "rows per transaction (default: config chunk_size or 500)")
	rootCmd.AddCommand(importCmd)
}

func formatOutcome(w io.Writer, out *ingest.Outcome) {
	s := out.Summary
	_, _ = fmt.Fprintf(w, "batch %d: %s\n", out.BatchID, out.Status)
	_, _ = fmt.Fprintf(w, "  total=%d inserted=%d updated=%d duplicate=%d errors=%d\n",
		s.TotalRows, s.InsertedRows, s.UpdatedRows, s.DuplicateRows, s.ErrorRows)
	if len(s.DetectedHeaders) > 0 {
		_, _ = fmt.Fprintf(w, "  headers: %s\n", strings.Join(s.DetectedHeaders, ", "))
	}
	for _, e := range s.Errors {
		_, _ = fmt.Fprintf(w, "  - %s\n", e)
	}
}
