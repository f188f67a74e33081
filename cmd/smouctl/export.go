package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/msanchezt/smou-parking-ha/internal/aggregate"
	"github.com/msanchezt/smou-parking-ha/internal/export"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a savings statement as XLSX or PDF",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		stmt := export.NewStatement(aggregate.New(a.Service.Snapshot(), a.Rates), time.Now())
		data, _, err := export.Render(stmt, exportFormat)
		if err != nil {
			return err
		}

		path := exportOut
		if path == "" {
			path = "smou-statement." + exportFormat
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d entries)\n", path, stmt.Entries)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", export.FormatXLSX, "statement format: xlsx or pdf")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default smou-statement.<format>)")
	rootCmd.AddCommand(exportCmd)
}
