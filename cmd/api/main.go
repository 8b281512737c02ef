package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"geoanomaly/adapters/api"
	"geoanomaly/adapters/events"
	"geoanomaly/adapters/postgres"
	"geoanomaly/adapters/rng"
	"geoanomaly/app"
	"geoanomaly/internal"
	auditengine "geoanomaly/internal/audit"
	"geoanomaly/internal/config"
	cooccurengine "geoanomaly/internal/cooccur"
	gridbuilder "geoanomaly/internal/grid"
	"geoanomaly/internal/lifecycle"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := internal.NewDefaultLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration: %v", err)
		os.Exit(1)
	}
	gin.SetMode(cfg.Server.GinMode)

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		logger.Error("database connection: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	obsRepo := postgres.NewObservationRepository(db)
	gridRepo := postgres.NewGridRepository(db)
	cooccurRepo := postgres.NewCooccurrenceRepository(db)
	auditRepo := postgres.NewAuditRepository(db)
	predRepo := postgres.NewPredictionRepository(db)

	publisher := events.NewLogPublisher(logger)

	analysis := app.NewAnalysisService(
		obsRepo, gridRepo, cooccurRepo,
		gridbuilder.NewBuilder(cfg.Grid),
		cooccurengine.NewEngine(cfg.Analysis, rng.NewSeededAdapter()),
		publisher, cfg.Grid, logger,
	)
	scoring := app.NewScoringService(auditRepo, auditengine.NewAuditor(cfg.Audit), publisher, logger)
	predictions := app.NewPredictionService(predRepo, lifecycle.NewMachine(cfg.Lifecycle), publisher, logger)

	server := api.NewServer(analysis, scoring, predictions)
	logger.Info("listening on :%s", cfg.Server.Port)
	if err := server.Run(":" + cfg.Server.Port); err != nil {
		logger.Error("server: %v", err)
		os.Exit(1)
	}
}
