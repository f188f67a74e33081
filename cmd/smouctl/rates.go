package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/msanchezt/smou-parking-ha/internal/domain"
)

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Print the effective hourly rate table",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		table, err := cfg.RateTable()
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "YEAR\tZONE\tREGULAR\tECO\tZERO")
		for _, year := range table.Years() {
			for _, zone := range domain.Zones {
				fmt.Fprintf(tw, "%d\t%s", year, zone)
				for _, label := range domain.Labels {
					rate, err := table.Rate(year, zone, label)
					if err != nil {
						fmt.Fprint(tw, "\t-")
						continue
					}
					fmt.Fprintf(tw, "\t%s", rate.StringFixed(2))
				}
				fmt.Fprintln(tw)
			}
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(ratesCmd)
}
