package bootstrap

import (
	"context"
	"log"

	"chatgpt-clone-be/internal/config"
	"chatgpt-clone-be/internal/constant"
	"chatgpt-clone-be/internal/controller"
	"chatgpt-clone-be/internal/handler"
	"chatgpt-clone-be/internal/pkg/logger"
	"chatgpt-clone-be/internal/repository/contract"
	"chatgpt-clone-be/internal/repository/implementation"
	"chatgpt-clone-be/internal/repository/memory"
	"chatgpt-clone-be/internal/service"
	"chatgpt-clone-be/internal/websocket"
	"chatgpt-clone-be/pkg/llm"
	"chatgpt-clone-be/pkg/stream"

	pktNats "chatgpt-clone-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController        controller.IChatController
	LLMSettingsController controller.ILLMSettingsController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets
	WsHandler    *handler.WsHandler
	WebSocketHub *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	var sessionRepo contract.ChatSessionRepository
	if db != nil {
		sessionRepo = implementation.NewChatSessionRepository(db)
	} else {
		// No database configured: sessions live for the process lifetime only.
		sessionRepo = memory.NewChatSessionRepository()
		log.Println("[WARN] No database configured, using in-memory session store")
	}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	// NATS (optional audit bus; a nil publisher is a no-op)
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		rdb = nil
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/websocket.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 3. Services
	llmSettingsService, err := service.NewLLMSettingsService(llm.Config{
		Provider:         cfg.Ai.LLMProvider,
		Model:            cfg.Ai.LLMModel,
		OpenRouterAPIKey: cfg.Ai.OpenRouterAPIKey,
		OpenAIAPIKey:     cfg.Ai.OpenAIAPIKey,
		OllamaBaseURL:    cfg.Ai.OllamaBaseURL,
	}, sysLogger)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM gateway: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	reconciler := stream.NewReconciler(sessionRepo, sysLogger)

	publisherService := service.NewPublisherService(pubSub, constant.TurnCommittedTopic)
	consumerService := service.NewConsumerService(
		pubSub,
		constant.TurnCommittedTopic,
		sessionRepo,
		wsHub,
		sysLogger,
	)

	chatService := service.NewChatService(
		sessionRepo,
		reconciler,
		llmSettingsService,
		publisherService,
		natsPub,
		wsHub,
		sysLogger,
	)

	// 4. Controllers
	return &Container{
		ChatController:        controller.NewChatController(chatService),
		LLMSettingsController: controller.NewLLMSettingsController(llmSettingsService),

		ConsumerService: consumerService,
		WsHandler:       handler.NewWsHandler(wsHub, wsLogger),
		WebSocketHub:    wsHub,
	}
}
