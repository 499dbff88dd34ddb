package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"storefront-catalog/internal/api"
	"storefront-catalog/internal/assets"
	"storefront-catalog/internal/config"
	"storefront-catalog/internal/logger"
	"storefront-catalog/internal/scheduler"
	"storefront-catalog/internal/store"
)

const (
	defaultAppName = "StorefrontCatalog" // App name for logger
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("INFO: No .env file found or failed to load, relying on system environment")
	}

	// --- Configuration Loading ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Error loading configuration: %v", err)
	}

	zl, err := logger.New(cfg.AppEnv, cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("FATAL: Error building logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck
	zl = zl.With(zap.String("service", defaultAppName))
	zl.Info("starting service", zap.String("app_env", cfg.AppEnv), zap.String("log_level", cfg.LogLevel))

	// --- Assets ---
	var qr assets.QREncoder
	if cfg.QR.Enabled {
		enc, err := assets.NewWebPQREncoder(cfg.QR.RecoveryLevel, cfg.QR.ModulePixels)
		if err != nil {
			zl.Warn("QR generation disabled", zap.Error(err))
		} else {
			qr = enc
		}
	}
	assetManager := assets.NewManager(cfg.Catalog.DataDir, cfg.Catalog.AssetDirName, qr, zl)
	zl.Info("asset directory ready", zap.String("dir", assetManager.Dir()), zap.Bool("qr_available", assetManager.QRAvailable()))

	// --- Optional Replica Database ---
	var replicator *store.PostgresReplicator
	if cfg.Postgres.Enabled() {
		replicator = openReplicator(zl, cfg)
	}

	// --- Stores ---
	var catalogOpts []store.CatalogOption
	var featuredOpts []store.FeaturedOption
	if replicator != nil {
		catalogOpts = append(catalogOpts, store.WithCatalogReplicator(replicator))
		featuredOpts = append(featuredOpts, store.WithFeaturedReplicator(replicator))
	}
	catalogStore, err := store.NewCatalogStore(store.CatalogDocument(cfg.Catalog.DataDir), assetManager, zl, catalogOpts...)
	if err != nil {
		zl.Fatal("failed to load catalog", zap.Error(err))
	}
	featuredStore, err := store.NewFeaturedStore(store.FeaturedDocument(cfg.Catalog.DataDir), catalogStore, zl, featuredOpts...)
	if err != nil {
		zl.Fatal("failed to load featured products", zap.Error(err))
	}

	// --- Maintenance Jobs ---
	jobs := scheduler.New(zl)
	if cfg.Scheduler.MirrorResync != "" {
		err := jobs.AddMirrorResync(cfg.Scheduler.MirrorResync,
			scheduler.Target{Name: "catalog", Mirror: catalogStore},
			scheduler.Target{Name: "featured", Mirror: featuredStore},
		)
		if err != nil {
			zl.Fatal("failed to schedule mirror resync", zap.Error(err))
		}
	}
	jobs.Start()

	// --- Initialize API Handlers ---
	httpAPIHandler := api.NewHTTPHandler(catalogStore, featuredStore, zl)
	grpcAPIHandler := api.NewGRPCHandler(zl)

	// --- Setup & Start HTTP Server ---
	httpRouter := chi.NewRouter()
	setupBaseMiddleware(httpRouter, zl)
	registerHealthCheck(httpRouter, zl, catalogStore, assetManager, replicator)
	httpAPIHandler.RegisterRoutes(httpRouter)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HttpServer.Port,
		Handler:      httpRouter,
		ReadTimeout:  cfg.HttpServer.TimeoutRead,
		WriteTimeout: cfg.HttpServer.TimeoutWrite,
		IdleTimeout:  cfg.HttpServer.TimeoutIdle,
	}

	go func() {
		zl.Info("HTTP server listening", zap.String("port", cfg.HttpServer.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("HTTP server ListenAndServe error", zap.Error(err))
		}
		zl.Info("HTTP server has stopped")
	}()

	// --- Setup & Start gRPC Server ---
	grpcListener, err := net.Listen("tcp", ":"+cfg.GrpcServer.Port)
	if err != nil {
		zl.Fatal("failed to listen for gRPC", zap.String("port", cfg.GrpcServer.Port), zap.Error(err))
	}

	go func() {
		zl.Info("gRPC server listening", zap.String("port", cfg.GrpcServer.Port))
		if err := grpcAPIHandler.Server().Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			zl.Fatal("gRPC server Serve error", zap.Error(err))
		}
		zl.Info("gRPC server has stopped")
	}()
	grpcAPIHandler.MarkServing()

	// --- Graceful Shutdown ---
	shutdownComplete := make(chan struct{})
	go waitForShutdown(zl, httpServer, grpcAPIHandler, jobs, replicator, shutdownComplete)

	<-shutdownComplete // Block until graceful shutdown is complete
	zl.Info("service shutdown sequence finished")
}

func openReplicator(logger *zap.Logger, cfg *config.Config) *store.PostgresReplicator {
	db, err := sql.Open("postgres", cfg.Postgres.DSN())
	if err != nil {
		logger.Fatal("failed to initialize database connection", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil { // Ping DB to ensure connection is live
		logger.Fatal("failed to ping database", zap.Error(err))
	}

	replicator := store.NewPostgresReplicator(db)
	if err := replicator.EnsureSchema(ctx); err != nil {
		logger.Fatal("failed to prepare replica schema", zap.Error(err))
	}
	logger.Info("replica database connected", zap.String("host", cfg.Postgres.Host), zap.String("db", cfg.Postgres.DBName))
	return replicator
}

func setupBaseMiddleware(router *chi.Mux, logger *zap.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger) // Chi's request logger
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second)) // Default timeout for requests
	logger.Info("base HTTP middleware registered")
}

func registerHealthCheck(router *chi.Mux, logger *zap.Logger, catalog *store.CatalogStore, am *assets.Manager, replicator *store.PostgresReplicator) {
	healthPath := "/api/v1/healthz"
	router.Get(healthPath, func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]interface{}{
			"status":       "healthy",
			"serviceName":  defaultAppName,
			"timestamp":    time.Now().UTC().Format(time.RFC3339),
			"products":     catalog.Len(),
			"qrAvailable":  am.QRAvailable(),
			"replicaStore": "disabled",
		}
		if replicator != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			payload["replicaStore"] = "healthy"
			if err := replicator.Ping(ctx); err != nil {
				payload["replicaStore"] = "unhealthy"
				logger.Warn("health check replica ping failed", zap.Error(err))
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK) // Always 200, but payload indicates detailed status
		json.NewEncoder(w).Encode(payload)
	})
	logger.Info("HTTP health check registered", zap.String("path", healthPath))
}

func waitForShutdown(
	logger *zap.Logger,
	httpServer *http.Server,
	grpcHandler *api.GRPCHandler,
	jobs *scheduler.Scheduler,
	replicator *store.PostgresReplicator,
	shutdownComplete chan struct{},
) {
	defer close(shutdownComplete)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-sigChan
	logger.Info("received signal, starting graceful shutdown", zap.String("signal", receivedSignal.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	grpcHandler.Shutdown()
	grpcServer := grpcHandler.Server()
	stoppedGrpc := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stoppedGrpc)
	}()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("HTTP server gracefully shut down")
	}

	select {
	case <-stoppedGrpc:
		logger.Info("gRPC server gracefully shut down")
	case <-shutdownCtx.Done():
		logger.Warn("gRPC server graceful shutdown timed out, forcing stop", zap.Error(shutdownCtx.Err()))
		grpcServer.Stop()
	}

	select {
	case <-jobs.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn("maintenance jobs did not finish before shutdown timeout")
	}

	if replicator != nil {
		if err := replicator.Close(); err != nil {
			logger.Warn("error closing database connection", zap.Error(err))
		}
	}

	logger.Info("graceful shutdown sequence completed")
}
