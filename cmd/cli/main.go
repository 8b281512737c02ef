package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"geoanomaly/adapters/events"
	"geoanomaly/adapters/excel"
	"geoanomaly/adapters/postgres"
	"geoanomaly/adapters/postgres/migrations"
	"geoanomaly/adapters/rng"
	"geoanomaly/app"
	"geoanomaly/domain/core"
	"geoanomaly/internal"
	auditengine "geoanomaly/internal/audit"
	"geoanomaly/internal/config"
	cooccurengine "geoanomaly/internal/cooccur"
	gridbuilder "geoanomaly/internal/grid"
	"geoanomaly/internal/lifecycle"
	"geoanomaly/internal/report"
)

var (
	flagResolution float64
	flagShuffles   int
	flagStratify   bool
	flagWorkbook   string
	flagMarkdown   bool
)

var rootCmd = &cobra.Command{
	Use:   "geoanomaly",
	Short: "Batch operations for the anomaly statistics core",
	Long: `geoanomaly runs the offline half of the platform: grid rebuilds,
co-occurrence analysis, multi-resolution sweeps and prediction
status recomputation against the shared database.`,
	SilenceUsage: true,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := connect()
		if err != nil {
			return err
		}
		defer db.Close()
		return migrations.NewMigrator(db.DB).Up(cmd.Context())
	},
}

var rebuildGridCmd = &cobra.Command{
	Use:   "rebuild-grid",
	Short: "Rebuild the spatial grid from geolocated observations",
	RunE: func(cmd *cobra.Command, args []string) error {
		svcs, closeFn, err := wire()
		if err != nil {
			return err
		}
		defer closeFn()

		snap, err := svcs.analysis.RebuildGrid(cmd.Context(), flagResolution)
		if err != nil {
			return err
		}
		fmt.Printf("grid rebuilt: run=%s resolution=%g cells=%d\n",
			snap.RunID, snap.Resolution, len(snap.Cells))
		return nil
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the co-occurrence shuffle test against the current grid",
	RunE: func(cmd *cobra.Command, args []string) error {
		svcs, closeFn, err := wire()
		if err != nil {
			return err
		}
		defer closeFn()

		result, err := svcs.analysis.AnalyzeCooccurrence(cmd.Context(), flagResolution, flagShuffles, flagStratify)
		if err != nil {
			return err
		}

		if flagMarkdown {
			fmt.Print(report.NewNarrative().Markdown(result))
		} else {
			fmt.Printf("run=%s pairings=%d window_effect=%t\n",
				result.RunID, len(result.Pairings), result.WindowEffectDetected)
		}
		if flagWorkbook != "" {
			if err := excel.NewResultWriter().Write(result, flagWorkbook); err != nil {
				return err
			}
			fmt.Printf("workbook written to %s\n", flagWorkbook)
		}
		return nil
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the co-occurrence analysis across all configured resolutions",
	RunE: func(cmd *cobra.Command, args []string) error {
		svcs, closeFn, err := wire()
		if err != nil {
			return err
		}
		defer closeFn()

		result, err := svcs.analysis.AnalyzeMultiResolution(cmd.Context(), flagShuffles)
		if err != nil {
			return err
		}
		if flagMarkdown {
			fmt.Print(report.NewNarrative().MultiResolutionMarkdown(result))
		} else {
			fmt.Printf("run=%s points=%d correlation=%.3f\n",
				result.RunID, len(result.Points), result.ResolutionCorrelation)
		}
		return nil
	},
}

var recomputeCmd = &cobra.Command{
	Use:   "recompute-prediction [prediction-id]",
	Short: "Recompute a prediction's lifecycle status from its result set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := core.ParsePredictionID(args[0])
		if err != nil {
			return err
		}

		svcs, closeFn, err := wire()
		if err != nil {
			return err
		}
		defer closeFn()

		status, err := svcs.predictions.RecomputeStatus(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Printf("prediction %s: %s\n", id, status)
		return nil
	},
}

type services struct {
	analysis    *app.AnalysisService
	scoring     *app.ScoringService
	predictions *app.PredictionService
}

func connect() (*sqlx.DB, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	return db, cfg, nil
}

func wire() (*services, func(), error) {
	db, cfg, err := connect()
	if err != nil {
		return nil, nil, err
	}
	logger := internal.NewDefaultLogger()
	publisher := events.NewLogPublisher(logger)

	analysis := app.NewAnalysisService(
		postgres.NewObservationRepository(db),
		postgres.NewGridRepository(db),
		postgres.NewCooccurrenceRepository(db),
		gridbuilder.NewBuilder(cfg.Grid),
		cooccurengine.NewEngine(cfg.Analysis, rng.NewSeededAdapter()),
		publisher, cfg.Grid, logger,
	)
	scoring := app.NewScoringService(
		postgres.NewAuditRepository(db),
		auditengine.NewAuditor(cfg.Audit),
		publisher, logger,
	)
	predictions := app.NewPredictionService(
		postgres.NewPredictionRepository(db),
		lifecycle.NewMachine(cfg.Lifecycle),
		publisher, logger,
	)

	return &services{
		analysis:    analysis,
		scoring:     scoring,
		predictions: predictions,
	}, func() { db.Close() }, nil
}

func init() {
	for _, c := range []*cobra.Command{rebuildGridCmd, analyzeCmd} {
		c.Flags().Float64Var(&flagResolution, "resolution", 0, "grid resolution in degrees (0 uses the configured default)")
	}
	for _, c := range []*cobra.Command{analyzeCmd, sweepCmd} {
		c.Flags().IntVar(&flagShuffles, "shuffles", 0, "shuffle simulation count (0 uses the configured default)")
		c.Flags().BoolVar(&flagMarkdown, "markdown", false, "print the narrative report instead of the one-line summary")
	}
	analyzeCmd.Flags().BoolVar(&flagStratify, "stratify", false, "also analyze within population quartiles")
	analyzeCmd.Flags().StringVar(&flagWorkbook, "workbook", "", "write the result as an Excel workbook to this path")

	rootCmd.AddCommand(migrateCmd, rebuildGridCmd, analyzeCmd, sweepCmd, recomputeCmd)
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
