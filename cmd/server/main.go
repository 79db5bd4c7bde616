package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/PremHer/appdelivery-sub000/internal/config"
	"github.com/PremHer/appdelivery-sub000/internal/db"
	"github.com/PremHer/appdelivery-sub000/internal/events"
	"github.com/PremHer/appdelivery-sub000/internal/handlers"
	"github.com/PremHer/appdelivery-sub000/internal/logger"
	"github.com/PremHer/appdelivery-sub000/internal/notify"
	"github.com/PremHer/appdelivery-sub000/internal/realtime"
	"github.com/PremHer/appdelivery-sub000/internal/service"
	"github.com/PremHer/appdelivery-sub000/internal/session"
	"github.com/PremHer/appdelivery-sub000/internal/storage"
	"github.com/PremHer/appdelivery-sub000/repository"
)

func main() {
	log := logger.New()
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}
	log.Info("starting", zap.String("config", cfg.String()))

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer func() { _ = database.Close() }()

	var sessions *session.Store
	if cfg.Redis.URL != "" {
		sessions, err = session.Initialize(cfg.Redis.URL, time.Hour)
		if err != nil {
			log.Warn("redis unavailable, sessions disabled", zap.Error(err))
		}
	}

	blobs, err := storage.NewFileStore(cfg.Storage.Dir, cfg.Storage.PublicBaseURL)
	if err != nil {
		log.Fatal("open blob store", zap.Error(err))
	}

	var notifier notify.Notifier = notify.NopNotifier{}
	if cfg.Push.BaseURL != "" {
		notifier = notify.NewClient(cfg.Push.BaseURL, cfg.Push.APIKey)
	}

	var producer events.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = events.NewKafkaProducer(cfg.Kafka.Brokers)
	} else {
		producer = events.NewConsoleProducer(log)
	}

	orders := repository.NewOrderRepository(database)
	drivers := repository.NewDriverRepository(database)
	users := repository.NewUserRepository(database)
	restaurants := repository.NewRestaurantRepository(database)
	products := repository.NewProductRepository(database)
	coupons := repository.NewCouponRepository(database)
	outbox := repository.NewOutboxRepository(database)

	hub := realtime.NewHub()

	svc := service.NewOrderService(service.Deps{
		Orders:      orders,
		Drivers:     drivers,
		Restaurants: restaurants,
		Products:    products,
		Coupons:     coupons,
		Ratings:     repository.NewRatingRepository(database),
		Messages:    repository.NewMessageRepository(database),
		Outbox:      outbox,
		Notifier:    notifier,
		Hub:         hub,
		Blobs:       blobs,
		EventTopic:  cfg.Kafka.Topic,
		Log:         log,
	})

	publisher := events.NewPublisher(outbox, producer, events.PublisherConfig{}, log)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go publisher.Run(ctx)

	h := handlers.New(handlers.HandlerDeps{
		Service:     svc,
		Orders:      orders,
		Drivers:     drivers,
		Users:       users,
		Restaurants: restaurants,
		Products:    products,
		Coupons:     coupons,
		Sessions:    sessions,
		Log:         log,
	})
	router := h.NewRouter(cfg.Auth.JWTSecret, hub)
	router.Static("/blobs", cfg.Storage.Dir)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info("listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	publisher.Shutdown()
	log.Info("bye")
}
