package main // Entry point package

import (
	"context"   // shutdown and startup deadlines
	"errors"    // server closed detection
	"log"       // fatal startup errors before zap exists
	"net/http"  // http.ErrServerClosed
	"os"        // signals
	"os/signal" // graceful shutdown
	"syscall"   // SIGTERM
	"time"      // timeouts

	"github.com/labstack/echo/v4" // Echo web framework
	"go.uber.org/zap"             // structured logging

	"github.com/iliyamo/hotel-reservation/internal/config"     // Internal config loader
	"github.com/iliyamo/hotel-reservation/internal/database"   // MySQL connection and schema
	"github.com/iliyamo/hotel-reservation/internal/handler"    // HTTP handlers
	"github.com/iliyamo/hotel-reservation/internal/logger"     // zap + lumberjack
	"github.com/iliyamo/hotel-reservation/internal/middleware" // auth, rate limit, cache
	"github.com/iliyamo/hotel-reservation/internal/repository" // SQL repositories
	"github.com/iliyamo/hotel-reservation/internal/router"     // Internal router setup
	"github.com/iliyamo/hotel-reservation/internal/service"    // booking lifecycle
)

func main() {
	cfg := config.Load() // Load environment config
	logg := logger.New(cfg.LogFile, cfg.IsProd())
	defer func() { _ = logg.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	defer db.Close()

	if cfg.DBAutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.Migrate(ctx, db)
		cancel()
		if err != nil {
			logg.Fatal("schema migration failed", zap.Error(err))
		}
		logg.Info("schema applied")
	}

	tokens := repository.NewTokenRepo(db)
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		n, err := tokens.DeleteExpired(ctx, time.Now().UTC())
		cancel()
		if err != nil {
			logg.Warn("expired refresh token cleanup failed", zap.Error(err))
		} else if n > 0 {
			logg.Info("expired refresh tokens removed", zap.Int64("count", n))
		}
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		logg.Warn("redis unavailable: rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}
	rl := config.LoadRateLimitConfig()
	cacheCfg := config.LoadCacheConfig()
	purge := func(ctx context.Context) error {
		return middleware.PurgeCache(ctx, rdb, cacheCfg.Prefix)
	}

	var pub service.EventPublisher = service.NopPublisher{}
	if cfg.EventsEnabled {
		pub = service.NewAMQPPublisher(cfg.AMQPURL, logg)
	}

	store := repository.NewStore(db)
	deny := middleware.NewDenylist()
	svc := service.NewBookingService(store, pub, logg)

	e := echo.New() // Create Echo instance
	router.Configure(e, logg)
	e.Use(middleware.NewTokenBucket(rl, rdb, logg))

	jwt := middleware.JWTAuth(cfg.JWTSecret, deny)
	authLimit := middleware.NewTokenBucket(rl.WithCapacity(rl.AuthCapacity, rl.Prefix+":auth"), rdb, logg)

	router.RegisterRoutes(e, handler.NewHealthHandler(db, cfg.Version, cfg.Env))
	router.RegisterAuth(e, handler.NewAuthHandler(cfg,
		repository.NewUserRepo(db), tokens, deny, logg), jwt, authLimit)
	router.RegisterRooms(e, handler.NewRoomHandler(store.Rooms, purge, logg), jwt,
		middleware.NewRedisCache(cacheCfg, rdb))
	router.RegisterBookings(e, handler.NewBookingHandler(svc, purge, logg), jwt)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Port
	go func() {
		logg.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env),
			zap.Bool("events", cfg.EventsEnabled))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logg.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logg.Error("graceful shutdown failed", zap.Error(err))
	}
}
