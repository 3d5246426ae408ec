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

	"storefront-service/config"
	"storefront-service/internal/api"
	"storefront-service/internal/apiclient"
	"storefront-service/internal/broker"
	"storefront-service/internal/models"
	"storefront-service/internal/notify"
	"storefront-service/internal/persist"
	"storefront-service/internal/store"
	"storefront-service/internal/util"
	"storefront-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront service")

	tp, err := util.InitTracer("storefront-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	backend, err := newStorageBackend(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage backend: %v", err)
	}
	log.Printf("Storage backend ready: %s", cfg.Persistence.Driver)

	adapter := persist.NewAdapter(backend)

	tokens := apiclient.StaticTokenSource(cfg.Backend.AccessToken)
	apiClient := apiclient.New(
		cfg.Backend.BaseURL,
		time.Duration(cfg.Backend.TimeoutSeconds)*time.Second,
		tokens,
	)
	log.Printf("Commerce backend client ready: %s", cfg.Backend.BaseURL)

	notifier := notify.NewLogNotifier()

	var eventPublisher *broker.EventPublisher
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		eventPublisher = broker.NewEventPublisher(producer)
		log.Println("Kafka producer initialized")
	}

	payment := func(ctx context.Context, form store.CheckoutForm, items []models.CartItem, totals store.CartTotals, accessToken string) error {
		body := map[string]interface{}{
			"form":  form,
			"items": items,
			"total": totals.Subtotal,
		}
		return apiClient.Post(ctx, "/payments", body, nil, apiclient.Options{RequiresAuth: true})
	}

	st := store.New(apiClient, adapter, notifier, eventPublisher, payment, tokens, store.Config{
		UserPageSize:    cfg.Pagination.UserPageSize,
		BackendPageSize: cfg.Pagination.BackendPageSize,
		SessionID:       cfg.Server.SessionID,
	})

	ctx := context.Background()
	if err := st.Hydrate(ctx); err != nil {
		log.Printf("Failed to hydrate persisted state: %v", err)
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var syncWorker *worker.SyncWorker
	if cfg.Kafka.Enabled {
		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.ConsumerGroup)
		syncWorker = worker.NewSyncWorker(consumer, st)
		go func() {
			if err := syncWorker.Start(workerCtx); err != nil {
				log.Printf("Sync worker error: %v", err)
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(st)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	if syncWorker != nil {
		syncWorker.Stop()
	}

	log.Println("Server exited")
}

// newStorageBackend selects the persistence driver.
func newStorageBackend(cfg *config.Config) (persist.Backend, error) {
	switch cfg.Persistence.Driver {
	case "redis":
		return persist.NewRedisBackend(
			cfg.Persistence.RedisAddr,
			cfg.Persistence.RedisPassword,
			cfg.Persistence.RedisDB,
			cfg.Persistence.MaxEnvelopeBytes,
		)
	case "postgres":
		return persist.NewSQLBackend(cfg.Persistence.DatabaseURL, cfg.Persistence.MaxEnvelopeBytes)
	case "memory":
		return persist.NewMemoryBackend(cfg.Persistence.MaxEnvelopeBytes), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Persistence.Driver)
	}
}
