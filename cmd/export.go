package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"web-scraper-app/models"
	"web-scraper-app/storage"
)

var (
	exportStage  string
	exportOutput string
	exportRanges []string
)

var exportCmd = &cobra.Command{
	Use:   "export <category>",
	Short: "Write a category table as CSV",
	Long: `Exports the raw, cleaned, or filtered table of a category. The filtered
stage applies the --range filters, or the default 10th to 90th percentile
ranges when none are given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup()
		if err != nil {
			return err
		}
		cat, err := a.category(args[0])
		if err != nil {
			return err
		}

		var table *models.Table
		switch exportStage {
		case "raw":
			table, err = a.store.Load(cat.RawPath)
		case "cleaned":
			table, err = a.store.Load(cat.CleanedPath)
		case "filtered":
			var ranges map[string]models.Range
			if ranges, err = parseRanges(exportRanges); err != nil {
				return err
			}
			var report *models.DashboardReport
			if report, err = a.report(cat, ranges); err == nil {
				table = report.Filtered
			}
		default:
			return fmt.Errorf("unknown stage %q (want raw, cleaned or filtered)", exportStage)
		}
		if err != nil {
			return err
		}

		if exportOutput == "" || exportOutput == "-" {
			return storage.EncodeCSV(cmd.OutOrStdout(), table)
		}
		if err := storage.WriteCSV(exportOutput, table); err != nil {
			return err
		}
		a.logger.Info("[export] %d row(s) written to %s", table.Len(), exportOutput)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportStage, "stage", "s", "filtered", "raw, cleaned or filtered")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "-", "output file, - for stdout")
	exportCmd.Flags().StringArrayVarP(&exportRanges, "range", "r", nil, "filter as Column=lower:upper (repeatable)")
	rootCmd.AddCommand(exportCmd)
}
