package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/msanchezt/smou-parking-ha/internal/aggregate"
	"github.com/msanchezt/smou-parking-ha/internal/domain"
)

var (
	reportZone string
	reportJSON bool
)

var reportCmd = &cobra.Command{
	Use:   "report [metric]",
	Short: "Print one metric, or every named metric when none is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		agg := aggregate.New(a.Service.Snapshot(), a.Rates)
		out := cmd.OutOrStdout()

		var results []aggregate.Result
		if len(args) == 1 {
			res, err := agg.Query(args[0], domain.Zone(strings.ToLower(reportZone)))
			if err != nil {
				return err
			}
			results = append(results, res)
		} else {
			summary := agg.Summary()
			for _, name := range aggregate.Names {
				results = append(results, summary[name])
			}
		}

		if reportJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}
		return printResults(out, results)
	},
}

func printResults(out io.Writer, results []aggregate.Result) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "METRIC\tZONE\tVALUE")
	for _, res := range results {
		zone := string(res.Zone)
		if zone == "" {
			zone = "all"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", res.Metric, zone, formatResult(res))
	}
	return tw.Flush()
}

func formatResult(res aggregate.Result) string {
	switch {
	case res.Amount != nil:
		return res.Amount.StringFixed(aggregate.MoneyPlaces) + " EUR"
	case res.Count != nil:
		years := make([]int, 0, len(res.ByYear))
		for y := range res.ByYear {
			years = append(years, y)
		}
		sort.Ints(years)
		parts := make([]string, 0, len(years))
		for _, y := range years {
			parts = append(parts, fmt.Sprintf("%d:%d", y, res.ByYear[y]))
		}
		if len(parts) == 0 {
			return fmt.Sprintf("%d", *res.Count)
		}
		return fmt.Sprintf("%d (%s)", *res.Count, strings.Join(parts, " "))
	case res.Time != nil:
		return res.Time.Format(time.RFC3339)
	default:
		return "no data"
	}
}

func init() {
	reportCmd.Flags().StringVar(&reportZone, "zone", "", "zone filter for generic metrics: blue or green")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "print results as JSON")
	rootCmd.AddCommand(reportCmd)
}
