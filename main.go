package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "mailsense-backend/cmd/api"
	actiondomain "mailsense-backend/internal/action/domain"
	actionRepo "mailsense-backend/internal/action/repository"
	actionScheduler "mailsense-backend/internal/action/scheduler"
	actionUsecase "mailsense-backend/internal/action/usecase"
	authdomain "mailsense-backend/internal/auth/domain"
	authRepo "mailsense-backend/internal/auth/repository"
	authUsecase "mailsense-backend/internal/auth/usecase"
	emaildomain "mailsense-backend/internal/email/domain"
	emailRepo "mailsense-backend/internal/email/repository"
	emailUsecase "mailsense-backend/internal/email/usecase"
	"mailsense-backend/internal/notification"
	pipelineDelivery "mailsense-backend/internal/pipeline/delivery"
	pipelinedomain "mailsense-backend/internal/pipeline/domain"
	"mailsense-backend/internal/pipeline/queue"
	pipelineRepo "mailsense-backend/internal/pipeline/repository"
	pipelineUsecase "mailsense-backend/internal/pipeline/usecase"
	subscriptionScheduler "mailsense-backend/internal/subscription/scheduler"
	subscriptionUsecase "mailsense-backend/internal/subscription/usecase"
	"mailsense-backend/pkg/ai"
	"mailsense-backend/pkg/cache"
	"mailsense-backend/pkg/chroma"
	"mailsense-backend/pkg/config"
	"mailsense-backend/pkg/database"
	"mailsense-backend/pkg/fcm"
	"mailsense-backend/pkg/graph"
	"mailsense-backend/pkg/metrics"
	"mailsense-backend/pkg/msauth"
	"mailsense-backend/pkg/notifier"
	"mailsense-backend/pkg/statestore"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(
		&authdomain.User{},
		&authdomain.RefreshToken{},
		&authdomain.FCMToken{},
		&emaildomain.EmailRecord{},
		&actiondomain.ActionItem{},
		&pipelinedomain.FailedTask{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	m := metrics.New()

	// Badger-backed cache shared by the Graph client and the enrichment
	// pipeline.
	cacheStore, err := cache.Open(cfg.CacheDir, cfg.CacheInMemory)
	if err != nil {
		log.Fatal("Failed to open cache:", err)
	}
	cacheStore.OnLookup(m.CacheHook())

	// Microsoft identity + Graph client
	msAuth := msauth.NewService(cfg.MicrosoftClientID, cfg.MicrosoftClientSecret, cfg.MicrosoftRedirectURL, cfg.MicrosoftTenantID)
	graphClient := graph.NewClient(msAuth, cacheStore, cfg.GraphBaseURL, cfg.GraphTimeout, cfg.APICacheTTL)

	// AI enrichment chains. The Ollama tier reads its settings through
	// the runtime config so the settings API can retune it live.
	api.InitRuntimeConfig(cfg.OllamaBaseURL, cfg.OllamaModel)
	aiService := ai.NewService(ai.Config{
		GeminiAPIKey:    cfg.GeminiAPIKey,
		SummaryModel:    cfg.SummaryModel,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		ActionsModel:    cfg.ActionsModel,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		ClaudeModel:     cfg.ClaudeModel,
		OllamaBaseURL:   api.GetRuntimeOllamaBaseURL,
		OllamaModel:     api.GetRuntimeOllamaModel,
		OllamaEnabled:   api.RuntimeOllamaEnabled,
		CallTimeout:     cfg.AITimeout,
		CallsPerSecond:  cfg.AIRateLimit,
	})
	aiService.OnProviderCall(m.ProviderHook())

	// Initialize repositories (dependency injection)
	userRepository := authRepo.NewUserRepository(db)
	fcmTokenRepo := authRepo.NewFCMTokenRepository(db)
	emailRepository := emailRepo.NewEmailRepository(db)
	actionRepository := actionRepo.NewGormActionRepository(db)
	failedTaskRepo := pipelineRepo.NewFailedTaskRepository(db)

	// One-time OAuth state tokens for the Microsoft link flow.
	states := statestore.New(10 * time.Minute)

	authUsecaseInstance := authUsecase.NewAuthUsecase(userRepository, fcmTokenRepo, cfg, msAuth, graphClient, states)

	// Push notifications (optional)
	var fcmClient *fcm.Client
	if cfg.FirebaseCredentials != "" {
		fcmClient, err = fcm.NewClient(cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("[FCM] Client disabled: %v", err)
			fcmClient = nil
		}
	}
	deviceTokens := func(_ context.Context, userID string) ([]string, error) {
		records, err := fcmTokenRepo.GetTokensByUserID(userID)
		if err != nil {
			return nil, err
		}
		tokens := make([]string, 0, len(records))
		for _, record := range records {
			tokens = append(tokens, record.Token)
		}
		return tokens, nil
	}
	pruneToken := func(_ context.Context, token string) error {
		return fcmTokenRepo.DeleteToken(token)
	}
	notify := notifier.New(cfg, fcmClient, deviceTokens, pruneToken)

	// Vector index (optional)
	var chromaClient *chroma.Client
	if cfg.ChromaURL != "" || cfg.ChromaAPIKey != "" {
		chromaClient, err = chroma.NewClient(cfg)
		if err != nil {
			log.Printf("[Chroma] Semantic search disabled: %v", err)
			chromaClient = nil
		}
	} else {
		log.Println("[Chroma] Not configured, semantic search disabled")
	}
	var vectorUpserter pipelineUsecase.VectorUpserter
	var vectorIndex emailUsecase.VectorIndex
	if chromaClient != nil {
		vectorUpserter = chromaClient
		vectorIndex = chromaClient
	}

	// Enrichment queue with metric hooks
	taskQueue := queue.New(cfg.QueueCapacity)
	onEnqueued, onDropped := m.QueueHooks()
	onProcessed, onDepth := m.WorkerHooks()
	taskQueue.SetHooks(onEnqueued, onDropped, onDepth)

	// Initialize use cases (dependency injection)
	emailUsecaseInstance, err := emailUsecase.NewEmailUsecase(emailRepository, authUsecaseInstance, graphClient, vectorIndex, taskQueue, cfg)
	if err != nil {
		log.Fatal("Failed to initialize email usecase:", err)
	}
	actionUsecaseInstance := actionUsecase.NewActionUsecase(actionRepository)
	subscriptionUsecaseInstance := subscriptionUsecase.NewSubscriptionUsecase(userRepository, authUsecaseInstance, graphClient, cfg)

	// Enrichment pipeline
	processor := pipelineUsecase.NewProcessor(
		userRepository,
		authUsecaseInstance,
		graphClient,
		emailRepository,
		aiService,
		actionUsecaseInstance,
		vectorUpserter,
		notify,
		cacheStore,
		cfg.AICacheTTL,
	)
	pool := pipelineUsecase.NewWorkerPool(taskQueue, processor, failedTaskRepo, cfg.WorkerCount, cfg.MaxAttempts, cfg.TaskHardLimit, cfg.TaskSoftLimit)
	pool.OnProcessed(onProcessed)
	pool.Start()

	// Background schedulers
	reminderScheduler := actionScheduler.NewActionReminderScheduler(actionRepository, notify, cfg.ReminderInterval, cfg.ReminderHorizon)
	reminderScheduler.Start()

	renewalScheduler := subscriptionScheduler.NewRenewalScheduler(userRepository, subscriptionUsecaseInstance, cfg.RenewalInterval, cfg.RenewalHorizon)
	renewalScheduler.OnRenewal(m.RenewalHook())
	renewalScheduler.Start()

	// Pub/Sub ingress (optional). Deployments without a public webhook
	// endpoint relay Graph notifications through a topic instead.
	var bridge *notification.Bridge
	var stopBridge context.CancelFunc
	if cfg.PubSubProjectID != "" {
		bridge, err = notification.NewBridge(cfg.PubSubProjectID, cfg.PubSubTopic, cfg.PubSubSubscription, taskQueue, cfg.PubSubCredentials)
		if err != nil {
			log.Printf("[PubSub] Bridge disabled: %v", err)
		} else {
			var bridgeCtx context.Context
			bridgeCtx, stopBridge = context.WithCancel(context.Background())
			go bridge.Start(bridgeCtx)
		}
	}

	// HTTP server
	handler := api.NewHandler(
		authUsecaseInstance,
		emailUsecaseInstance,
		actionUsecaseInstance,
		subscriptionUsecaseInstance,
		pipelineDelivery.NewWebhookHandler(taskQueue),
		m.Registry(),
		cfg,
	)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler.Engine(),
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Forced server shutdown: %v", err)
	}

	// Stop intake first, then drain the workers.
	if stopBridge != nil {
		stopBridge()
		if err := bridge.Close(); err != nil {
			log.Printf("[PubSub] Close: %v", err)
		}
	}
	renewalScheduler.Stop()
	reminderScheduler.Stop()
	pool.Stop()
	emailUsecaseInstance.Release()
	if err := cacheStore.Close(); err != nil {
		log.Printf("[Cache] Close: %v", err)
	}
	log.Println("Shutdown complete")
}
