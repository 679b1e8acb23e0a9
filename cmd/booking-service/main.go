package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/alpacafarm/booking-service/internal/api"
	"github.com/alpacafarm/booking-service/internal/api/handlers"
	"github.com/alpacafarm/booking-service/internal/api/middleware"
	"github.com/alpacafarm/booking-service/internal/cache"
	"github.com/alpacafarm/booking-service/internal/client"
	"github.com/alpacafarm/booking-service/internal/config"
	"github.com/alpacafarm/booking-service/internal/repository"
	"github.com/alpacafarm/booking-service/internal/service"
	"github.com/alpacafarm/booking-service/pkg/db"
	"github.com/alpacafarm/booking-service/pkg/logging"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		panic("load config: " + err.Error())
	}

	logger := logging.NewSugaredLogger(cfg.Env)
	defer logger.Sync()

	conn, err := db.NewPostgresConnection(cfg.Postgres)
	if err != nil {
		logger.Fatalw("db connect", "error", err)
	}
	defer conn.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// collaborator clients
	payments := client.NewPaymentsClient(cfg.Payments.BaseURL, cfg.Payments.APIKey, logger)
	documents := client.NewDocumentsClient(cfg.Documents.BaseURL, cfg.Documents.APIKey, logger)
	mailer := client.NewMailerClient(cfg.Mailer.BaseURL, cfg.Mailer.APIKey, cfg.ContactInbox, logger)
	calendar := client.NewCalendarClient(cfg.Calendar.BaseURL, cfg.Calendar.APIKey, logger)

	repo := repository.NewVoucherRepo(conn)
	svc := service.NewVoucherService(repo, logger)

	router := api.NewRouter(api.Deps{
		Vouchers:    handlers.NewVoucherHandler(svc, payments, logger),
		Webhooks:    handlers.NewWebhookHandler(svc, documents, mailer, cfg.WebhookSecret, logger),
		Booking:     handlers.NewBookingHandler(calendar, cache.NewAvailabilityCache(2*time.Minute), logger),
		Contact:     handlers.NewContactHandler(mailer, logger),
		RateLimiter: middleware.NewRateLimiter(redisClient, logger),
	})

	r := chi.NewRouter()
	r.Use(middleware.Logger(logger))
	r.Mount("/", router)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// graceful shutdown
	idleConnsClosed := make(chan struct{})
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt)
		<-c
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Errorw("HTTP server shutdown", "error", err)
		}
		close(idleConnsClosed)
	}()

	logger.Infow("starting booking-service", "addr", cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalw("listen", "error", err)
	}

	<-idleConnsClosed
	logger.Infow("server stopped")
}
