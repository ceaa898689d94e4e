package cmd

import (
	"github.com/spf13/cobra"

	"web-scraper-app/services"
)

var summaryRanges []string

var summaryCmd = &cobra.Command{
	Use:   "summary <category>",
	Short: "Print the dashboard of a category to the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		cat, err := a.category(args[0])
		if err != nil {
			return err
		}
		ranges, err := parseRanges(summaryRanges)
		if err != nil {
			return err
		}

		report, err := a.report(cat, ranges)
		if err != nil {
			return err
		}
		services.NewInsightService(a.logger).Print(cmd.OutOrStdout(), report)
		return nil
	},
}

func init() {
	summaryCmd.Flags().StringArrayVarP(&summaryRanges, "range", "r", nil, "filter as Column=lower:upper (repeatable)")
	rootCmd.AddCommand(summaryCmd)
}
