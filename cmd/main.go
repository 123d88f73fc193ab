// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/evalverde/event-reservation-service/internal/cache"
	"github.com/evalverde/event-reservation-service/internal/config"
	"github.com/evalverde/event-reservation-service/internal/database"
	"github.com/evalverde/event-reservation-service/internal/handler"
	"github.com/evalverde/event-reservation-service/internal/migrations"
	"github.com/evalverde/event-reservation-service/internal/repository"
	"github.com/evalverde/event-reservation-service/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ── 1. Connect to PostgreSQL and apply the schema ────────────────────
	pool, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()
	log.Println("connected to PostgreSQL")

	if err := migrations.Apply(ctx, pool); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	// ── 2. Optional Redis cache for the event listing ────────────────────
	var eventCache cache.EventCache = cache.NewNoop()
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer client.Close()
		eventCache = cache.NewRedis(client, cfg.Redis.TTL)
		log.Println("connected to Redis")
	}

	// ── 3. Wire up layers ────────────────────────────────────────────────
	eventRepo := repository.NewEventRepository(pool)
	reservationRepo := repository.NewReservationRepository(pool)
	svc := service.NewEventService(eventRepo, reservationRepo, eventCache,
		service.WithReserveAttempts(cfg.ReserveAttempts))
	eventHandler := handler.NewEventHandler(svc)

	// ── 4. Build the router ──────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(handler.Logger)
	r.Use(handler.CORS)

	r.Get("/health", handler.HealthCheck)
	r.Get("/wsdl", eventHandler.WSDL)
	r.Post("/wsdl", eventHandler.SOAP)

	// ── 5. Start server with graceful shutdown ───────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
	log.Println("server stopped")
}
