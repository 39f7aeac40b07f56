package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var resetStage string

var resetCmd = &cobra.Command{
	Use:   "reset <run-id>",
	Short: "Clear stored checkpoints for a run",
	Long:  "Deletes checkpoints so the next run re-executes from scratch. With --stage, only that stage's checkpoint is cleared.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.ClearCheckpoints(ctx, args[0], resetStage); err != nil {
			return eris.Wrap(err, "reset")
		}

		if resetStage != "" {
			fmt.Fprintf(os.Stderr, "Cleared checkpoint %s for run %s.\n", resetStage, args[0])
		} else {
			fmt.Fprintf(os.Stderr, "Cleared all checkpoints for run %s.\n", args[0])
		}
		return nil
	},
}

func init() {
	resetCmd.Flags().StringVar(&resetStage, "stage", "", "clear only this stage's checkpoint")
	rootCmd.AddCommand(resetCmd)
}
