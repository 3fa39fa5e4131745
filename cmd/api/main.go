package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	fbapp "firebase.google.com/go/v4"

	"tradeloop/internal/adapter/api"
	"tradeloop/internal/adapter/api/handler"
	apimiddleware "tradeloop/internal/adapter/api/middleware"
	"tradeloop/internal/adapter/api/router"
	"tradeloop/internal/adapter/repository"
	domainrepo "tradeloop/internal/domain/repository"
	"tradeloop/internal/domain/service"
	"tradeloop/internal/infrastructure/firebase"
	"tradeloop/internal/infrastructure/ratelimit"
	"tradeloop/internal/infrastructure/storage"
	"tradeloop/internal/infrastructure/websocket"
	"tradeloop/internal/usecase"
	"tradeloop/pkg/config"
	"tradeloop/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.IsDevelopment()})
	logger.SetDefault(appLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []option.ClientOption
	if cfg.ServiceAccountJSON != "" {
		logger.Info("Using service account from environment variable")
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON)))
	} else if cfg.ServiceAccountPath != "" {
		if _, err := os.Stat(cfg.ServiceAccountPath); os.IsNotExist(err) {
			log.Fatalf("Service account file does not exist: %s", cfg.ServiceAccountPath)
		}
		logger.Info("Using service account from file: %s", cfg.ServiceAccountPath)
		opts = append(opts, option.WithCredentialsFile(cfg.ServiceAccountPath))
	} else {
		logger.Info("Using application default credentials")
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opts...)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase Auth: %v", err)
	}

	var store domainrepo.DataStore
	switch cfg.DataBackend {
	case config.BackendFirestore:
		firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
		if err != nil {
			log.Fatalf("Failed to create Firestore client: %v", err)
		}
		defer firestoreClient.Close()
		store = repository.NewFirestoreDataStore(firestoreClient)
	default:
		store = repository.NewRestDataStore(cfg.BackendURL, cfg.BackendAPIKey, cfg.BackendTimeout)
	}
	logger.Info("Data backend: %s", cfg.DataBackend)

	storageClient, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, opts...)
	if err != nil {
		log.Fatalf("Failed to initialize Cloud Storage: %v", err)
	}
	defer storageClient.Close()

	features := service.NewFeatureRegistry()
	sequencer := usecase.NewRefreshSequencer()
	names := usecase.NewNameResolver(store)

	wsManager := websocket.NewManager(appLogger)

	tradeHistoryUseCase := usecase.NewTradeHistoryUseCase(store, features, names, sequencer, appLogger)
	listingUseCase := usecase.NewListingUseCase(store, features, sequencer, wsManager, appLogger)
	impactPropagator := usecase.NewImpactPropagator(store, appLogger)
	completionUseCase := usecase.NewCompletionUseCase(store, impactPropagator, wsManager, appLogger)
	proofUseCase := usecase.NewProofUseCase(store, storageClient, features, wsManager, appLogger, cfg.ProofMaxBytes)
	reviewUseCase := usecase.NewReviewUseCase(store, wsManager, appLogger)

	wsManager.SetRefreshers(tradeHistoryUseCase, listingUseCase)
	wsManager.Start(ctx)

	limiter := ratelimit.NewRateLimiter()
	limiter.StartCleanupRoutine(ctx.Done())

	handler.Setup(tradeHistoryUseCase, completionUseCase, proofUseCase, listingUseCase, impactPropagator, reviewUseCase)
	handler.SetupHealthHandler(features)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit("16M"))

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(firebase.NewFirebaseAuthClient(authClient))
	wsHandler := handler.NewWebSocketHandler(wsManager)

	router.Setup(e, authMiddleware, limiter, wsHandler)

	go func() {
		logger.Info("Starting server on port %s...", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed: %v", err)
	}
}
