package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	ingestFile   string
	ingestFormat string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Merge a raw-row export into the record log",
	RunE: func(cmd *cobra.Command, args []string) error {
		if ingestFile == "" {
			return fmt.Errorf("--file is required")
		}
		data, err := os.ReadFile(ingestFile)
		if err != nil {
			return err
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Service.IngestData(cmd.Context(), data, ingestFormat)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Run %s\n", res.RunID)
		fmt.Fprintf(out, "  rows seen:   %d\n", res.RowsSeen)
		fmt.Fprintf(out, "  new records: %d\n", res.RecordsIngested)
		fmt.Fprintf(out, "  duplicates:  %d\n", res.DuplicatesSkipped)
		fmt.Fprintf(out, "  rejected:    %d\n", len(res.Rejected))
		for _, rej := range res.Rejected {
			fmt.Fprintf(out, "    row %d (id=%q): %s\n", rej.Index, rej.RowID, rej.Reason)
		}
		fmt.Fprintf(out, "  log size:    %d\n", res.TotalRecords)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "raw-row export to ingest")
	ingestCmd.Flags().StringVar(&ingestFormat, "format", "json", "export format: json, rows or csv")
	rootCmd.AddCommand(ingestCmd)
}
