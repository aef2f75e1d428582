package internal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"compraser-api/config"
	"compraser-api/internal/application/ports"
	"compraser-api/internal/application/services"
	domain "compraser-api/internal/domain/file_record"
	"compraser-api/internal/infrastructure/db/postgres"
	"compraser-api/internal/infrastructure/db/postgres/file_record"
	"compraser-api/internal/infrastructure/imagecodec"
	"compraser-api/internal/infrastructure/jwt"
	"compraser-api/internal/infrastructure/logger"
	"compraser-api/internal/infrastructure/metrics"
	"compraser-api/internal/infrastructure/mq"
	"compraser-api/internal/infrastructure/s3"
	"compraser-api/internal/infrastructure/scheduler"
	"compraser-api/internal/interface/api/rest"
	"compraser-api/internal/interface/api/rest/middleware"
	"compraser-api/pkg/rmqconsumer"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	logger       *zap.Logger
	cfg          config.Config
	db           *pgxpool.Pool
	repo         domain.Repository
	assets       ports.AssetStore
	encoder      ports.ImageEncoder
	httpSrv      *http.Server
	router       *gin.Engine
	mCounter     *prometheus.CounterVec
	savedPercent prometheus.Histogram
	mq           ports.RabbitMQ
	mqConsumer   ports.RMQConsumer
	events       ports.EventPublisher
	jwt          *jwt.Service
	sweeper      ports.SweepService
	scheduler    *scheduler.Scheduler
}

// Bootstrap loads the optional .env file and the config, then builds the logger for its environment.
func Bootstrap() (config.Config, *zap.Logger, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return config.Config{}, nil, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}

	l, err := logger.New(cfg.IsDev())
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("cannot initialize zap logger: %w", err)
	}

	return cfg, l, nil
}

// NewApp connects the stores. With events=false lifecycle events are discarded and no broker is dialled.
func NewApp(ctx context.Context, cfg config.Config, logger *zap.Logger, events bool) (*App, error) {
	a := &App{
		logger:       logger,
		cfg:          cfg,
		mCounter:     metrics.NewCounter(),
		savedPercent: metrics.NewSavedPercent(),
		jwt:          jwt.New(cfg.Cleanup.Secret),
		events:       mq.Nop{},
	}

	// router
	switch cfg.App.Env {
	case gin.ReleaseMode, "prod", "production":
		gin.SetMode(gin.ReleaseMode)
	case gin.TestMode:
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}
	a.router = gin.New()
	a.router.Use(gin.Recovery())
	a.router.Use(cors.New(corsConfig(cfg.HTTP)))
	a.router.Use(middleware.RequestLogGin(logger, a.mCounter))

	// httpServer
	a.httpSrv = &http.Server{
		Addr:              cfg.App.Host + ":" + cfg.App.Port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// db
	dbDsn, err := cfg.DBDSN()
	if err != nil {
		return nil, fmt.Errorf("DB config error: %w", err)
	}
	if cfg.DB.AutoMigrate {
		migrateDsn, err := cfg.MigrateDSN()
		if err != nil {
			return nil, fmt.Errorf("DB config error: %w", err)
		}
		if err = postgres.Migrate(logger, migrateDsn); err != nil {
			return nil, err
		}
	}
	a.db, err = postgres.New(ctx, logger, dbDsn)
	if err != nil {
		return nil, err
	}
	a.repo = file_record.NewRepository(a.db)

	// s3
	a.assets, err = s3.New(ctx, logger, cfg.S3)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to configure asset store: %w", err)
	}
	a.encoder = imagecodec.New()

	// rabbitMQ
	if events && cfg.MQEnabled() {
		if err = a.connectMQ(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.sweeper = services.NewSweepService(logger, a.assets, a.repo, a.events, a.mCounter)

	// scheduler
	if cfg.Lifecycle.SweepSchedule != "" {
		a.scheduler, err = scheduler.New(logger, a.sweeper, cfg.Lifecycle.SweepSchedule)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	return a, nil
}

func (a *App) connectMQ(ctx context.Context) error {
	rabbitDsn, err := a.cfg.AMQPDSN()
	if err != nil {
		return fmt.Errorf("RabbitMQ config error: %w", err)
	}

	rbMQ := mq.New(a.cfg.MQ, a.logger, a.mCounter)
	if err = rbMQ.Connect(ctx, rabbitDsn); err != nil {
		return fmt.Errorf("failed to connect to rabbitMQ: %w", err)
	}
	a.mq = rbMQ
	if err = rbMQ.Init(); err != nil {
		return fmt.Errorf("failed init rabbitMQ: %w", err)
	}

	// rmqConsumer
	consumer := rmqconsumer.New(a.cfg.MQ, a.logger)
	if err = consumer.Connect(rbMQ.GetConn()); err != nil {
		return fmt.Errorf("failed to connect rabbitMQ consumer: %w", err)
	}
	if err = consumer.Init(); err != nil {
		return fmt.Errorf("failed to init rabbitMQ consumer: %w", err)
	}

	a.mqConsumer = consumer
	a.events = rbMQ

	return nil
}

func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.mq != nil && a.mq.GetConn() != nil {
		_ = a.mq.GetConn().Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// Run - The central place to launch and manage our application and
// parallel processes through a single context.
func (a *App) Run(ctx context.Context) error {
	// context with os signals cancel chan
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("starting "+a.cfg.App.Name, zap.String("addr", a.httpSrv.Addr))
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server "+a.cfg.App.Name+" error: %w", err)
		}

		return nil
	})

	if a.mq != nil {
		g.Go(func() error {
			a.mq.PublisherWorker(ctx)
			return nil
		})
	}

	if a.mqConsumer != nil {
		g.Go(func() error {
			a.mqConsumer.DeliveryWorker(ctx)
			return nil
		})
	}

	if a.scheduler != nil {
		g.Go(func() error {
			a.scheduler.Run(ctx)
			return nil
		})
	}

	<-ctx.Done()

	a.logger.Info("shutting down " + a.cfg.App.Name + " gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := a.httpSrv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown "+a.cfg.App.Name+" error", zap.Error(err))
		return err
	}

	if err := g.Wait(); err != nil {
		a.logger.Error(a.cfg.App.Name+" returning an error", zap.Error(err))
		return err
	}

	a.logger.Info(a.cfg.App.Name + " gracefully stopped")

	return nil
}

func (a *App) InitControllers() {
	// services
	gate := services.NewGate(
		a.cfg.Lifecycle.AllowedMimeTypes,
		a.cfg.Lifecycle.BlockedExtensions,
		a.cfg.Lifecycle.MaxFileSize,
	)
	fileService := services.NewFileService(
		a.logger,
		a.assets,
		a.repo,
		a.encoder,
		a.events,
		gate,
		services.FileServiceConfig{
			Retention:    a.cfg.Lifecycle.Retention,
			SignedURLTTL: a.cfg.S3.SignedURLTTL,
		},
		a.mCounter,
		a.savedPercent,
	)

	// controllers
	rest.NewFileController(a.router, fileService, a.logger, gate.MaxSize())
	rest.NewCleanupController(a.router, a.sweeper, a.logger, a.cfg.Cleanup.Secret, a.jwt)

	// ops
	a.router.GET(rest.RouteHealth, func(c *gin.Context) { c.Status(http.StatusOK) })
	a.router.GET(rest.RouteReady, a.readyHandler)
	a.router.GET(rest.RouteMetrics, gin.WrapH(promhttp.Handler()))
}

func (a *App) readyHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := a.repo.Ping(ctx); err != nil {
		a.logger.Warn("Ping() error", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "database unavailable"})
		return
	}
	c.Status(http.StatusOK)
}

// Sweep runs one expiry sweep outside the HTTP surface.
func (a *App) Sweep(ctx context.Context) (*ports.SweepResult, error) {
	return a.sweeper.Sweep(ctx, time.Now())
}

func (a *App) Logger() *zap.Logger { return a.logger }

func corsConfig(cfg config.HTTP) cors.Config {
	c := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowedOrigins
	}
	c.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	c.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	c.ExposeHeaders = []string{"Content-Disposition"}
	return c
}
