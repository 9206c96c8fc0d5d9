package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/BearBump/ShipLedger/internal/models"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history <guia>",
	Short: "Print the status history of a tracking number",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStorage(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		history, closeHistory := historyWriter(st)
		defer closeHistory()

		entries, err := history.GetHistory(ctx, args[0])
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "no history for %s\n", args[0])
			return nil
		}
		formatHistory(cmd.OutOrStdout(), entries)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func formatHistory(out io.Writer, entries []models.HistoryEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tFECHA\tESTADO\tTRANSPORTADORA\tUBICACION\tNOVEDAD")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			e.ID,
			e.CreatedAt.Format("2006-01-02 15:04"),
			e.Estado,
			e.Transportadora,
			deref(e.Ubicacion),
			truncate(deref(e.Novedad), 60),
		)
	}
	_ = w.Flush()
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
