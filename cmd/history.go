package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/schema-audit/internal/ledger"
	"github.com/sells-group/schema-audit/internal/model"
	"github.com/sells-group/schema-audit/internal/monitoring"
	"github.com/sells-group/schema-audit/internal/quality"
)

var (
	historyDataset  string
	historyFormat   string
	statsFormat     string
	historyOut      string
	historyLookback int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the audit history ledger",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded reports, oldest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadHistory(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tDATASET\tSCHEMA\tVERSION\tROWS\tERRORS\tFILE")
		for _, r := range snap.Records(historyDataset) {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
				r.Date, r.DatasetID, r.SchemaSlug, r.SchemaVersion, r.RowCount, r.ErrorCount, r.FileURL)
		}
		return w.Flush()
	},
}

var historyCheckCmd = &cobra.Command{
	Use:   "check <file_url>",
	Short: "Report whether a file URL has already been audited",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadHistory(cmd.Context())
		if err != nil {
			return err
		}
		if snap.IsNew(args[0]) {
			fmt.Fprintln(cmd.OutOrStdout(), "new")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "seen")
		}
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the history as csv, json or xlsx",
	RunE: func(cmd *cobra.Command, args []string) error {
		write, ok := exportFormats[historyFormat]
		if !ok {
			return eris.Errorf("unknown format %q", historyFormat)
		}
		snap, err := loadHistory(cmd.Context())
		if err != nil {
			return err
		}

		records := snap.Records(historyDataset)
		if historyOut == "" {
			return write(cmd.OutOrStdout(), records)
		}
		return exportFile(historyOut, write, records)
	},
}

var createExport = func(path string) (io.WriteCloser, error) { return os.Create(path) }

// exportFile writes records to path. A failed close is reported since it
// may be the write that reaches the disk.
func exportFile(path string, write func(io.Writer, []model.DatasetReportRecord) error, records []model.DatasetReportRecord) (err error) {
	f, err := createExport(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = eris.Wrapf(cerr, "close %s", path)
		}
	}()
	return write(f, records)
}

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise quality by status and per-dataset trend",
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := loadHistory(cmd.Context())
		if err != nil {
			return err
		}
		stats := monitoring.Collect(snap.Records(historyDataset), historyLookback, time.Now())
		return printStats(cmd.OutOrStdout(), stats, statsFormat)
	},
}

func loadHistory(ctx context.Context) (*ledger.Snapshot, error) {
	if err := cfg.Validate("history"); err != nil {
		return nil, err
	}
	l, err := ledger.Open(ctx, cfg.Ledger)
	if err != nil {
		return nil, eris.Wrap(err, "open ledger")
	}
	defer l.Close() //nolint:errcheck

	return ledger.LoadSnapshot(ctx, l)
}

func printStats(w io.Writer, s *monitoring.QualitySnapshot, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	fmt.Fprintf(w, "%d records across %d datasets\n", s.Records, s.Datasets)
	statuses := make([]string, 0, len(s.ByStatus))
	for st := range s.ByStatus {
		statuses = append(statuses, string(st))
	}
	slices.Sort(statuses)
	for _, st := range statuses {
		fmt.Fprintf(w, "  %-8s %d\n", st, s.ByStatus[quality.Status(st)])
	}

	degraded := s.Degraded()
	if len(degraded) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DEGRADED\tDATE\tERRORS\tPREVIOUS")
	for _, t := range degraded {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", t.DatasetID, t.Date, t.ErrorCount, t.PreviousErrors)
	}
	return tw.Flush()
}

func init() {
	historyCmd.PersistentFlags().StringVar(&historyDataset, "dataset", "", "restrict to one dataset id")
	historyExportCmd.Flags().StringVar(&historyFormat, "format", "csv", "output format: csv, json or xlsx")
	historyExportCmd.Flags().StringVarP(&historyOut, "out", "o", "", "output file (default stdout)")
	historyStatsCmd.Flags().StringVar(&statsFormat, "format", "text", "output format: text or json")
	historyStatsCmd.Flags().IntVar(&historyLookback, "lookback", 0, "only consider the last N days (0 for all)")

	historyCmd.AddCommand(historyListCmd, historyCheckCmd, historyExportCmd, historyStatsCmd)
	rootCmd.AddCommand(historyCmd)
}
