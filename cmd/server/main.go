package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/uniride/uniride-api/internal/config"
	"github.com/uniride/uniride-api/internal/database"
	"github.com/uniride/uniride-api/internal/handler"
	"github.com/uniride/uniride-api/internal/lifecycle"
	"github.com/uniride/uniride-api/internal/logger"
	"github.com/uniride/uniride-api/internal/middleware"
	"github.com/uniride/uniride-api/internal/notify"
	"github.com/uniride/uniride-api/internal/queue"
	"github.com/uniride/uniride-api/internal/repository"
	"github.com/uniride/uniride-api/internal/router"
	queue_publisher "github.com/uniride/uniride-api/internal/service"
	"github.com/uniride/uniride-api/internal/storage"
	"github.com/uniride/uniride-api/internal/validator"
)

// relayDedupeTTL bounds how long a relayed notification id is remembered.
const relayDedupeTTL = 10 * time.Minute

func main() {
	cfg := config.Load()
	log := logger.Must("uniride-api", cfg.IsProd())
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("database unavailable", zap.Error(err))
	}
	defer db.Close()
	if cfg.DBAutoMigrate {
		mctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := database.Migrate(mctx, db)
		cancel()
		if err != nil {
			log.Fatal("schema migration failed", zap.Error(err))
		}
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable: rate limiting and browse cache disabled, relay dedupe in memory")
	} else {
		defer rdb.Close()
	}

	// repositories
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	schedules := repository.NewScheduleRepo(db)
	requests := repository.NewTripRequestRepo(db)
	notifications := repository.NewNotificationRepo(db)
	vehicles := repository.NewVehicleRepo(db)
	favorites := repository.NewFavoriteRepo(db)

	// notification fan-out
	hub := notify.NewHub(notify.DefaultBuffer, log.Named("hub"))

	var dedup notify.Deduper = notify.NewMemoryDeduper(relayDedupeTTL)
	if rdb != nil {
		dedup = notify.NewRedisDeduper(rdb, "notify:seen:", relayDedupeTTL)
	}
	relay := notify.NewRelay(hub, dedup, log.Named("relay"))

	var pub notify.Publisher
	consumerDone := make(chan struct{})
	if cfg.RabbitURL != "" {
		pub = queue_publisher.NewNotificationPublisher(cfg.RabbitURL, log)
		go func() {
			defer close(consumerDone)
			if err := queue.StartNotificationConsumer(ctx, cfg.RabbitURL, relay, log); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("notification consumer stopped", zap.Error(err))
			}
		}()
	} else {
		close(consumerDone)
		log.Info("rabbitmq disabled: notifications are pushed to this instance only")
	}
	dispatcher := notify.NewDispatcher(notifications, hub, pub, log.Named("dispatcher"))

	trips := lifecycle.New(schedules, requests, dispatcher, users, log.Named("lifecycle"),
		lifecycle.Options{NotifyOnReject: cfg.NotifyOnReject})

	files, err := storage.NewLocalStorage(storage.Config{BasePath: cfg.UploadDir, BaseURL: cfg.UploadBaseURL})
	if err != nil {
		log.Fatal("upload directory unavailable", zap.Error(err))
	}
	documents := storage.NewDocuments(files, cfg.MaxUploadBytes)

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.BodyLimit("16M"))

	router.Register(e, router.Handlers{
		Health:        handler.Health(db, rdb),
		Auth:          handler.NewAuthHandler(cfg, users, tokens, log),
		Schedules:     handler.NewScheduleHandler(schedules, schedules, log),
		Requests:      handler.NewRequestHandler(trips, log),
		Notifications: handler.NewNotificationHandler(notifications, hub, log),
		Vehicles:      handler.NewVehicleHandler(vehicles, documents, log),
		Favorites:     handler.NewFavoriteHandler(favorites, log),
	}, router.Options{
		JWTSecret:     cfg.JWTSecret,
		RateLimit:     middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
		AuthRateLimit: middleware.NewTokenBucket(config.LoadAuthRateLimitConfig(), rdb, log),
		BrowseCache:   middleware.NewRedisCache(config.LoadCacheConfig(), rdb, log),
		UploadDir:     files.BasePath(),
		UploadBaseURL: cfg.UploadBaseURL,

		DocumentAccess: trips.SharesAcceptedTrip,
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	hub.Shutdown() // closes WebSocket streams so Shutdown does not wait on them
	if err := e.Shutdown(sctx); err != nil {
		log.Warn("graceful shutdown failed", zap.Error(err))
	}
	<-consumerDone
}
