package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/welllog/welllog-api/internal/auth"
	"github.com/welllog/welllog-api/internal/config"
	"github.com/welllog/welllog-api/internal/database"
	"github.com/welllog/welllog-api/internal/handler"
	"github.com/welllog/welllog-api/internal/logger"
	"github.com/welllog/welllog-api/internal/metrics"
	"github.com/welllog/welllog-api/internal/middleware"
	"github.com/welllog/welllog-api/internal/queue"
	"github.com/welllog/welllog-api/internal/repository"
	"github.com/welllog/welllog-api/internal/router"
	"github.com/welllog/welllog-api/internal/service"
)

func main() {
	config.LoadDotenv()
	logger.Setup(config.LogSettings())
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg config.Config) error {
	db, err := database.Open(ctx, cfg.DSN(), database.Pool{
		MaxOpen:     cfg.DBMaxOpenConns,
		MaxIdle:     cfg.DBMaxIdleConns,
		MaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}
	metrics.Init()

	users := repository.NewUserRepo(db)
	audits := repository.NewAuditRepo(db)

	codec, err := auth.NewCodec(cfg.JWTSecret, cfg.AccessTTL, cfg.RefreshTTL, auth.WithLeeway(cfg.TokenLeeway))
	if err != nil {
		return err
	}
	var opts []auth.ServiceOption
	if rdb != nil {
		opts = append(opts, auth.WithDenylist(repository.NewRevocationRepo(rdb, "")))
	} else {
		log.Warn().Msg("redis unavailable: logout revocation, rate limiting and caching disabled")
	}
	if cfg.AMQPURL != "" {
		pub := service.NewAuditPublisher(cfg.AMQPURL, cfg.AuditQueue)
		defer pub.Close()
		opts = append(opts, auth.WithEvents(pub))

		consumer := &queue.Consumer{URL: cfg.AMQPURL, Queue: cfg.AuditQueue, Sink: audits}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("audit consumer stopped")
			}
		}()
	}
	sessions := auth.NewService(users, auth.NewHasher(cfg.BcryptCost), codec, opts...)

	cacheCfg := config.LoadCacheConfig()
	paging := handler.Paging{Default: cfg.PageSize, Max: cfg.MaxPageSize}
	projects := repository.NewProjectRepo(db)
	logs := repository.NewWellLogRepo(db)
	models := repository.NewModelRepo(db)

	e := echo.New()
	e.HideBanner = true
	router.Setup(e, cfg.AllowedOrigins)

	guards := router.Guards{
		Authenticate: middleware.Authenticate(auth.NewResolver(codec), sessions),
		Throttle:     middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		Cache:        middleware.NewRedisCache(cacheCfg, rdb),
	}
	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(sessions, users), guards)
	router.RegisterResources(e, router.Resources{
		Projects:    handler.NewProjectHandler(projects, paging),
		Logs:        handler.NewWellLogHandler(logs, projects, paging),
		Predictions: handler.NewPredictionHandler(repository.NewPredictionRepo(db), logs, models, paging),
		Models: handler.NewModelHandler(models, func(ctx context.Context) error {
			return middleware.InvalidateCache(ctx, rdb, cacheCfg.Prefix)
		}),
	}, guards)
	router.RegisterAdmin(e, handler.NewAdminHandler(users, audits, sessions, paging), guards)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
