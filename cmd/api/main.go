package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/davidleathers/zero-trust-scoring-backend/internal/api/rest"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/infrastructure/cache"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/infrastructure/config"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/infrastructure/database"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/infrastructure/repository"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/infrastructure/telemetry"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/metrics"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/ml"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/service/evaluation"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/service/scoring"
	"github.com/davidleathers/zero-trust-scoring-backend/internal/service/training"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		migrateOnly = flag.Bool("migrate", false, "Run database migrations and exit")
		migrations  = flag.String("migrations", "migrations", "Path to migration files")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	logger := telemetry.SetupLogger(cfg.LogLevel, cfg.Environment)

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("creating zap logger: %v", err)
	}
	defer zapLogger.Sync()

	if *migrateOnly {
		if err := database.Migrate(cfg.Database.URL, *migrations, zapLogger); err != nil {
			zapLogger.Fatal("migrations failed", zap.Error(err))
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telCfg := telemetry.DefaultConfig()
	telCfg.ServiceVersion = cfg.Version
	telCfg.Environment = cfg.Environment
	provider, err := telemetry.Initialize(ctx, telCfg)
	if err != nil {
		zapLogger.Fatal("initializing telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown failed", "error", err)
		}
	}()

	reg, err := metrics.NewRegistry("zero-trust-scoring-backend")
	if err != nil {
		zapLogger.Fatal("creating metrics registry", zap.Error(err))
	}

	pool, err := database.Connect(ctx, &cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("connecting to database", zap.Error(err))
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		zapLogger.Fatal("connecting to redis", zap.Error(err))
	}
	defer redisClient.Close()

	users := repository.NewUserRepository(pool)
	devices := repository.NewDeviceRepository(pool)
	events := repository.NewEventRepository(pool)
	history := repository.NewHistoryRepository(pool)
	modelStore := repository.NewFileModelStore(cfg.Model.Path)
	scoreCache := cache.NewScoreCache(redisClient, cfg.Redis.ScoreTTL, zapLogger)

	newForest := func() ml.Model {
		return ml.NewForest(ml.ForestConfig{
			NumTrees: cfg.Model.Trees,
			Seed:     cfg.Model.Seed,
		})
	}
	forest := ml.NewForest(ml.ForestConfig{
		NumTrees: cfg.Model.Trees,
		Seed:     cfg.Model.Seed,
	})

	trainingSvc := training.NewService(forest, modelStore, logger, reg)
	evaluationSvc := evaluation.NewService(forest, newForest, logger, reg)
	scoringSvc := scoring.NewService(users, devices, events, history, scoreCache, forest, logger, reg,
		scoring.WithEventLookback(cfg.Scoring.EventLookback),
		scoring.WithParallelism(cfg.Scoring.Parallelism),
	)

	if err := bootstrapModel(ctx, cfg, trainingSvc, logger); err != nil {
		zapLogger.Fatal("bootstrapping model", zap.Error(err))
	}

	scheduler := scoring.NewScheduler(scoringSvc, cfg.Scoring.BatchInterval, logger)
	go scheduler.Run(ctx)

	handler := rest.NewHandler(trainingSvc, evaluationSvc, scoringSvc, users, logger)
	server := rest.NewServer(&cfg.Server, handler, provider.PromRegistry, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			zapLogger.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}
}

// bootstrapModel restores the persisted model when an artifact exists,
// otherwise trains a fresh one when configured to do so.
func bootstrapModel(ctx context.Context, cfg *config.Config, svc *training.Service, logger *slog.Logger) error {
	err := svc.Restore(ctx)
	if err == nil {
		logger.Info("model restored from artifact", "path", cfg.Model.Path)
		return nil
	}
	if !errors.Is(err, training.ErrNoArtifact) {
		return err
	}
	if !cfg.Model.TrainOnStart {
		logger.Info("no model artifact found, starting untrained")
		return nil
	}

	logger.Info("no model artifact found, training", "samples", cfg.Model.TrainingSamples)
	_, err = svc.Train(ctx, cfg.Model.TrainingSamples)
	return err
}
