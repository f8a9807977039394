package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardiopredict/web/internal/config"
	"github.com/cardiopredict/web/internal/delivery/http"
	"github.com/cardiopredict/web/internal/metrics"
	"github.com/cardiopredict/web/internal/repository/postgres"
	"github.com/cardiopredict/web/internal/service"
	"github.com/cardiopredict/web/pkg/logger"
)

const (
	insightsWindow = 24 * time.Hour
	settleWait     = 1500 * time.Millisecond
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Configuration is resolved once and injected below
	cfg, err := config.Load(ctx)
	if err != nil {
		bootLog := logger.New("main")
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Init(cfg.LogLevel, cfg.LogPretty)
	log := logger.New("main")

	// Dependency Injection: Repositories
	audit, closeAudit := openAuditRepository(ctx, cfg)
	defer closeAudit()

	// Dependency Injection: Services
	rec := metrics.New()
	predictor := service.NewPredictionClient(cfg.BackendURL, cfg.BackendHealthPath, cfg.RequestTimeout)
	assessments := service.NewAssessmentService(predictor, audit, rec, cfg.SessionTTL)
	insights := service.NewInsightsService(predictor, audit, insightsWindow)

	go assessments.RunSweeper(ctx, time.Minute)

	app := http.NewApp(http.Deps{
		Assessments:     assessments,
		Insights:        insights,
		Backend:         predictor,
		Audit:           audit,
		Metrics:         rec,
		SessionTTL:      cfg.SessionTTL,
		SettleWait:      settleWait,
		ShowErrorDetail: cfg.Env != "production",
		AccessLog:       true,
	})

	// Graceful shutdown
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("backend", cfg.BackendURL).Msg("server starting")
		if err := app.Listen(cfg.Addr); err != nil {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()

	log.Info().Msg("shutting down server")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	assessments.WaitBackground()
	log.Info().Msg("server exited gracefully")
}

// openAuditRepository connects to PostgreSQL when configured and falls back
// to the in-memory log otherwise.
func openAuditRepository(ctx context.Context, cfg *config.Config) (service.AuditRepository, func()) {
	log := logger.New("main")
	if cfg.DatabaseURL == "" {
		log.Info().Msg("no database configured, keeping assessment log in memory")
		return postgres.NewMemoryRepository(cfg.AuditCapacity), func() {}
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(connectCtx, cfg.DatabaseURL)
	if err == nil {
		err = pool.Ping(connectCtx)
	}
	if err != nil {
		log.Warn().Err(err).Msg("could not connect to database, keeping assessment log in memory")
		if pool != nil {
			pool.Close()
		}
		return postgres.NewMemoryRepository(cfg.AuditCapacity), func() {}
	}

	repo := postgres.NewPostgresRepository(pool)
	if err := repo.Migrate(connectCtx); err != nil {
		log.Warn().Err(err).Msg("could not migrate database, keeping assessment log in memory")
		pool.Close()
		return postgres.NewMemoryRepository(cfg.AuditCapacity), func() {}
	}
	log.Info().Msg("connected to PostgreSQL")
	return repo, pool.Close
}
