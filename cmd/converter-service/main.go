package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/phenobridge/platform/pkg/common/config"
	"github.com/phenobridge/platform/pkg/common/database"
	"github.com/phenobridge/platform/pkg/common/kafka"
	"github.com/phenobridge/platform/pkg/common/logger"
	"github.com/phenobridge/platform/pkg/observability/metrics"
	"github.com/phenobridge/platform/pkg/omop"
	"github.com/phenobridge/platform/pkg/pipeline"
	"github.com/phenobridge/platform/pkg/terminology"
)

func main() {
	logger.Init()
	metrics.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to connect to Postgres")
	}

	store := omop.NewStore(db, cfg.CDMSchema, cfg.VocabSchema)

	features := terminology.ConceptSet{}
	if cfg.SemanticMappingPath != "" {
		features, err = terminology.LoadConceptSet(cfg.SemanticMappingPath)
		if err != nil {
			logger.Log.WithError(err).Fatal("Failed to load semantic mapping")
		}
	} else {
		logger.Log.Warn("No semantic mapping configured; all conditions will map to diseases")
	}

	catalog, err := terminology.LoadCatalog(cfg.ResourceCatalogPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load resource catalog")
	}

	repo := pipeline.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("Failed to migrate document store")
	}

	cache := pipeline.NewDocumentCache(database.GetRedis(), cfg.DocumentCacheTTL)

	producer := kafka.NewProducer("phenopacket-events")
	defer producer.Close()
	dlq := kafka.NewProducer("phenopacket-events-dlq")
	defer dlq.Close()

	service := pipeline.NewService(store, features, catalog, cfg.CreatedBy, cfg.WorkerCount, repo, cache, producer, dlq)

	consumer := kafka.NewConsumer("conversion-requests", "converter-service")
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := consumer.Consume(ctx, service.HandleEvent); err != nil {
			logger.Log.WithError(err).Fatal("Consumer error")
		}
	}()

	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods("GET")

	handler := pipeline.NewHTTPHandler(service, cfg.MaxRequestBody)
	handler.Register(router.PathPrefix("/api/v1").Subrouter())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ServerPort,
		}).Info("Converter Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Converter Service...")
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}

	if err := database.ClosePostgres(); err != nil {
		logger.Log.WithError(err).Error("Failed to close Postgres")
	}
	if err := database.CloseRedis(); err != nil {
		logger.Log.WithError(err).Error("Failed to close Redis")
	}

	logger.Log.Info("Converter Service stopped")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
