package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/DRSN-tech/food-rating/internal/cfg"
	v1Http "github.com/DRSN-tech/food-rating/internal/delivery/v1/http"
	"github.com/DRSN-tech/food-rating/internal/infrastructure/artifacts"
	"github.com/DRSN-tech/food-rating/internal/infrastructure/inference"
	"github.com/DRSN-tech/food-rating/internal/infrastructure/kafka"
	"github.com/DRSN-tech/food-rating/internal/infrastructure/textgen"
	s3Repo "github.com/DRSN-tech/food-rating/internal/repository/minio"
	"github.com/DRSN-tech/food-rating/internal/repository/pgdb"
	pgdbConv "github.com/DRSN-tech/food-rating/internal/repository/pgdb/converter"
	qdrantRepo "github.com/DRSN-tech/food-rating/internal/repository/qdrant"
	"github.com/DRSN-tech/food-rating/internal/repository/redis"
	redisConv "github.com/DRSN-tech/food-rating/internal/repository/redis/converter"
	"github.com/DRSN-tech/food-rating/internal/usecase"
	"github.com/DRSN-tech/food-rating/pkg/clients"
	"github.com/DRSN-tech/food-rating/pkg/closer"
	"github.com/DRSN-tech/food-rating/pkg/e"
	"github.com/DRSN-tech/food-rating/pkg/logger"
	"github.com/DRSN-tech/food-rating/pkg/postgres"
	"github.com/DRSN-tech/food-rating/pkg/tr"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
)

const (
	initTimeout  = 10 * time.Second
	topicTimeout = 10 * time.Second
)

type App struct {
	cfg     *config.Config
	logger  logger.Logger
	closer  *closer.Closer
	httpSrv *v1Http.Server

	// ctx отменяется при остановке и завершает фоновые воркеры
	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp поднимает все включённые в конфигурации зависимости.
// Ошибка загрузки артефактов модели останавливает запуск.
func NewApp(cfg *config.Config, log logger.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		cfg:    cfg,
		logger: log,
		closer: closer.NewCloser(cfg.Shutdown / 2),
		ctx:    ctx,
		cancel: cancel,
	}

	ratingUC, err := a.initRatingUC()
	if err != nil {
		a.shutdown()
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	r := chi.NewRouter()
	router := v1Http.NewRouter(r, log)
	router.Init(ratingUC, cfg.Http.MaxRequestSize)

	a.httpSrv = v1Http.NewServer(r, cfg.Http)
	return a, nil
}

// Run блокируется до сигнала остановки или ошибки HTTP-сервера.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server started on port %s", a.cfg.Http.Port)
		if err := a.httpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	// === Ожидание сигнала или ошибки ===
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	var appErr error
	select {
	case appErr = <-errCh:
		a.logger.Errorf(appErr, "HTTP server fatal error")
	case <-shutdown:
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	// === Graceful shutdown ===
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.Shutdown)
	defer shutdownCancel()

	if err := a.httpSrv.Stop(shutdownCtx); err != nil {
		a.logger.Errorf(err, "HTTP server shutdown error")
	} else {
		a.logger.Infof("HTTP server stopped")
	}

	if err := a.closeResources(shutdownCtx); err != nil {
		appErr = errors.Join(appErr, err)
	}

	a.logger.Infof("Application shutdown complete")
	return appErr
}

func (a *App) initRatingUC() (*usecase.RatingUseCase, error) {
	pipeline, err := a.loadPipeline()
	if err != nil {
		a.logger.Errorf(err, "failed to load rating model")
		return nil, err
	}

	var (
		txManager      usecase.TxManager
		comparisonRepo usecase.ComparisonRepository
		outboxRepo     usecase.OutboxRepository
		encoder        usecase.EventEncoder
		cacheRepo      usecase.CacheRepository
		vectorRepo     usecase.VectorRepository
	)

	if a.cfg.Db != nil {
		db, err := a.initPGDB()
		if err != nil {
			return nil, err
		}

		txManager = tr.NewManager(db.Pool)
		comparisonRepo = pgdb.NewComparisonRepo(db.Pool, pgdbConv.NewComparisonConverterImpl())

		if a.cfg.Kafka != nil {
			repo := pgdb.NewOutboxEventRepo(
				db.Pool,
				pgdbConv.NewOutboxEventConverterImpl(),
				a.cfg.Kafka.OutboxMaxAttempts,
				a.cfg.Kafka.OutboxProcessingTimeout,
			)
			if err := a.initOutbox(repo, db.Dsn); err != nil {
				return nil, err
			}
			outboxRepo = repo
			encoder = kafka.NewEventEncoder()
		}
	} else {
		a.logger.Infof("Comparison history disabled: POSTGRES_DB is not set")
		if a.cfg.Kafka != nil {
			a.logger.Warnf("KAFKA_BROKERS is set but events are published only through the outbox; enable POSTGRES_DB")
		}
	}

	if a.cfg.Redis != nil {
		repo, err := a.initRedis()
		if err != nil {
			return nil, err
		}
		cacheRepo = repo
	}

	if a.cfg.Qdrant != nil {
		repo, err := a.initQdrant()
		if err != nil {
			return nil, err
		}
		vectorRepo = repo
	}

	return usecase.NewRatingUC(
		pipeline,
		textgen.New(a.cfg.TextGen.Seed),
		a.logger,
		txManager,
		comparisonRepo,
		outboxRepo,
		encoder,
		cacheRepo,
		vectorRepo,
	), nil
}

func (a *App) loadPipeline() (*inference.Pipeline, error) {
	var source artifacts.Source = artifacts.NewFileSource()

	if a.cfg.Artifacts.Source == config.ArtifactSourceMinio {
		minioClient, err := clients.NewMinIOClient(a.cfg.Minio)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		ctx, cancel := context.WithTimeout(a.ctx, initTimeout)
		defer cancel()
		if err := clients.CheckBucket(ctx, minioClient, a.cfg.Minio.BucketName); err != nil {
			return nil, e.Wrap("bucket "+a.cfg.Minio.BucketName, err)
		}

		store := s3Repo.NewArtifactRepo(minioClient, a.cfg.Minio)
		source = artifacts.NewObjectSource(store, a.cfg.Artifacts.LoadRetries, a.logger)
	}

	return artifacts.NewLoader(source, a.cfg.Artifacts, a.logger).Load(a.ctx)
}

func (a *App) initPGDB() (*postgres.PgDatabase, error) {
	ctx, cancel := context.WithTimeout(a.ctx, initTimeout)
	defer cancel()

	db, err := postgres.Connect(ctx, a.cfg.Db)
	if err != nil {
		a.logger.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	a.closer.AddSimple("postgres", db.Close)

	if err := db.RunMigrations(a.logger); err != nil {
		a.logger.Errorf(err, "failed to run migrations")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return db, nil
}

// initOutbox поднимает producer и воркер outbox. Воркер останавливается раньше producer.
func (a *App) initOutbox(repo usecase.OutboxRepository, dsn string) error {
	producer := kafka.NewProducer(a.logger, a.cfg.Kafka)
	a.closer.Add("kafka producer", func(context.Context) error {
		return producer.Close()
	})

	if err := producer.EnsureTopic(topicTimeout); err != nil {
		// топик может создать сам брокер при первой записи
		a.logger.Warnf("Failed to ensure kafka topic: %v", err)
	}

	worker := kafka.NewOutboxWorker(
		repo,
		a.logger,
		producer,
		a.cfg.Kafka.OutboxBatchSize,
		a.cfg.Kafka.OutboxPoll,
		pgdb.OutboxNotifyChannel,
		dsn,
	)
	worker.Start(a.ctx)

	a.closer.Add("outbox worker", func(ctx context.Context) error {
		a.cancel()
		done := make(chan struct{})
		go func() {
			worker.Wait()
			close(done)
		}()

		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	return nil
}

func (a *App) initRedis() (*redis.CacheRepo, error) {
	redisClient, err := clients.NewRedisClient(a.cfg.Redis)
	if err != nil {
		a.logger.Errorf(err, "failed to initialize redis")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	a.closer.Add("redis", func(context.Context) error {
		return redisClient.Close()
	})

	ctx, cancel := context.WithTimeout(a.ctx, initTimeout)
	defer cancel()
	if err := redisClient.Ping(ctx); err != nil {
		a.logger.Errorf(err, "failed to connect to redis")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return redis.NewCacheRepo(redisClient, redisConv.NewComparisonConverterImpl(), a.cfg.Redis, a.logger), nil
}

func (a *App) initQdrant() (*qdrantRepo.ProductVectorRepo, error) {
	qdrantClient, err := clients.NewQdrantClient(a.cfg.Qdrant)
	if err != nil {
		a.logger.Errorf(err, "failed to initialize qdrant")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	a.closer.Add("qdrant", func(context.Context) error {
		return qdrantClient.Close()
	})

	ctx, cancel := context.WithTimeout(a.ctx, initTimeout)
	defer cancel()
	if err := clients.EnsureCollection(ctx, qdrantClient); err != nil {
		a.logger.Errorf(err, "failed to initialize qdrant")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return qdrantRepo.NewProductVectorRepo(qdrantClient), nil
}

func (a *App) closeResources(ctx context.Context) error {
	a.cancel()
	if err := a.closer.Close(ctx); err != nil {
		a.logger.Errorf(err, "failed to close resources")
		return err
	}
	return nil
}

// shutdown освобождает то, что успело подняться до ошибки в NewApp.
func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Shutdown)
	defer cancel()
	_ = a.closeResources(ctx)
}
