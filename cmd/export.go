package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/adintel-cli/internal/export"
	"github.com/sells-group/adintel-cli/internal/store"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export a run's competitors and ads to a spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		runID := args[0]

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		competitors, err := st.ListCompetitors(ctx, runID)
		if err != nil {
			return eris.Wrap(err, "export: list competitors")
		}
		ads, err := st.ListAds(ctx, runID, store.AdFilter{})
		if err != nil {
			return eris.Wrap(err, "export: list ads")
		}

		if len(competitors) == 0 && len(ads) == 0 {
			fmt.Fprintln(os.Stderr, "Nothing to export for run.")
			return nil
		}

		if err := export.WriteWorkbook(exportOut, competitors, ads); err != nil {
			return eris.Wrap(err, "export: write workbook")
		}

		zap.L().Info("export written",
			zap.String("run_id", runID),
			zap.String("path", exportOut),
			zap.Int("competitors", len(competitors)),
			zap.Int("ads", len(ads)),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "ads.xlsx", "output workbook path")
	rootCmd.AddCommand(exportCmd)
}
