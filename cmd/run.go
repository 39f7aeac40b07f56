package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/adintel-cli/internal/ingest"
	"github.com/sells-group/adintel-cli/internal/pipeline"
	"github.com/sells-group/adintel-cli/internal/resilience"
	"github.com/sells-group/adintel-cli/internal/seeds"
	"github.com/sells-group/adintel-cli/pkg/adarchive"
	"github.com/sells-group/adintel-cli/pkg/scoring"
)

var (
	runBrand    string
	runVertical string
	runRunID    string
	runForce    []string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full ad intelligence pipeline for a brand",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		// Init clients
		scorer := scoring.NewClient(cfg.Scoring.Key)
		archiveClient := adarchive.NewClient(cfg.Archive.Key,
			adarchive.WithBaseURL(cfg.Archive.BaseURL),
			adarchive.WithPageSize(cfg.Archive.PageSize),
		)

		retryCfg := resilience.DefaultRetryConfig()
		retryCfg.MaxAttempts = cfg.Ingest.RetryMaxAttempts
		retryCfg.OnRetry = resilience.RetryLogger("adarchive", "fetch_page")
		collector := ingest.NewCollector(archiveClient, cfg.Ingest.RequestDelay(), retryCfg)

		seedList, err := seeds.Load(cfg.Pipeline.SeedFile, runVertical)
		if err != nil {
			return eris.Wrap(err, "load seed file")
		}
		if len(seedList) > 0 {
			zap.L().Info("seed competitors loaded",
				zap.Int("count", len(seedList)),
				zap.String("file", cfg.Pipeline.SeedFile),
			)
		}

		stages := pipeline.DefaultStages(cfg, pipeline.Deps{
			Scorer:    scorer,
			Ads:       st,
			Collector: collector,
			Seeds:     seedList,
		})

		rc := pipeline.NewRunContext(runBrand, runVertical)
		if runRunID != "" {
			rc = rc.WithRunID(runRunID)
		}
		rc.Verbose = verbose

		force := make(map[string]bool, len(runForce))
		for _, name := range runForce {
			force[name] = true
		}

		orch := pipeline.NewOrchestrator(st, nil)
		report, err := orch.Run(ctx, rc, stages, force)
		if err != nil {
			// The report carries partial stage results even on failure.
			if report != nil {
				printReport(report)
			}
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("run complete",
			zap.String("run_id", rc.RunID),
			zap.String("brand", rc.Brand),
			zap.Int("stages", len(report.Stages)),
		)

		return printReport(report)
	},
}

func printReport(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	runCmd.Flags().StringVar(&runBrand, "brand", "", "brand under analysis (required)")
	runCmd.Flags().StringVar(&runVertical, "vertical", "", "market vertical (required)")
	runCmd.Flags().StringVar(&runRunID, "run-id", "", "resume an existing run by id")
	runCmd.Flags().StringSliceVar(&runForce, "force", nil, "stage names to re-run even when a checkpoint exists")
	_ = runCmd.MarkFlagRequired("brand")
	_ = runCmd.MarkFlagRequired("vertical")
	rootCmd.AddCommand(runCmd)
}
