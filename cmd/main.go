package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"randomcall/backend/internal/api/handler"
	"randomcall/backend/internal/callhub"
	"randomcall/backend/internal/config"
	"randomcall/backend/internal/localization"
	"randomcall/backend/internal/observability"
	"randomcall/backend/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func setupDependencies(cfg config.Config) (*gorm.DB, *redis.Client) {
	// 1. PostgreSQL
	db, err := storage.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	// 2. Міграції (Створення таблиць)
	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// 3. Redis (необов'язковий: без нього події доставляються лише локально)
	if cfg.RedisAddr == "" {
		log.Println("WARNING: REDIS_ADDR is not set, running as a single instance")
		return db, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	// Перевірка з'єднання Redis
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

func main() {
	log.Println("Starting RandomCall Backend...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// 1. Ініціалізація залежностей
	db, rdb := setupDependencies(cfg)
	s := storage.NewStorageService(db, rdb)

	var bus storage.EventBus
	if rdb != nil {
		bus = s
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(cfg.MetricsNamespace, reg)

	localizer, err := localization.NewLocalizer(cfg.LocalesDir)
	if err != nil {
		log.Fatalf("Failed to load translations: %v", err)
	}

	// 2. Хаб, координатор і транспорт дзвінків
	hub := callhub.NewManagerService(bus, metrics)
	coordinator := callhub.NewCoordinator(s, cfg.Matchmaking, metrics)
	transport := callhub.NewSignalingTransport()

	coordinator.SetTransport(transport)
	coordinator.SetNotifier(hub)
	hub.SetMessageHandler(coordinator)
	hub.SetDisconnectHook(transport.Disconnect)
	hub.SetEventHook(coordinator.ObserveEvent)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Запуск основних Goroutines
	go hub.Run(ctx)               // Головний диспетчер
	coordinator.StartSweeper(ctx) // Прибирання застарілих записів

	// 4. Налаштування Gin та роутингу
	h := handler.NewHandler(coordinator, hub, s, localizer, handler.AuthConfig{
		Secret:   []byte(cfg.JWTSecret),
		TokenTTL: cfg.TokenTTL,
	})
	r := handler.NewRouter(h, observability.MetricsHandler(reg))

	server := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		log.Printf("INFO: Listening on %s", cfg.BindAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("INFO: Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: HTTP server shutdown: %v", err)
	}
	coordinator.Shutdown()

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Printf("WARNING: Failed to close Redis: %v", err)
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
