package bootstrap

import (
	"context"
	"log"

	"shop-assistant-be/internal/config"
	"shop-assistant-be/internal/controller"
	"shop-assistant-be/internal/handler"
	"shop-assistant-be/internal/pkg/logger"
	"shop-assistant-be/internal/pkg/mailer"
	"shop-assistant-be/internal/repository/implementation"
	"shop-assistant-be/internal/repository/memory"
	"shop-assistant-be/internal/repository/unitofwork"
	"shop-assistant-be/internal/service"
	"shop-assistant-be/internal/websocket"
	"shop-assistant-be/pkg/embedding"
	"shop-assistant-be/pkg/llm/factory"

	pktNats "shop-assistant-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AssistantController controller.IAssistantController
	CatalogController   controller.ICatalogController

	// Background Services (Exposed for main.go to run)
	ConsumerService  service.IConsumerService
	AnalyticsService service.IAnalyticsService

	// WebSockets
	StreamHandler *handler.StreamHandler
	WebSocketHub  *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	productRepo := implementation.NewProductRepository(db)

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
	)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Keys.HuggingFace,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// Initialize In-Memory Refinement Session Storage
	sessionRepo := memory.NewSessionRepository()

	// 3.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
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
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/websocket.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 4. Services
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Assistant.TurnTopic,
		natsPub,
	)

	analyticsLogger := logger.NewIsolatedLogger("logs/analytics.log")
	analyticsService := service.NewAnalyticsService(natsSub, analyticsLogger)

	assistantService := service.NewAssistantService(
		uowFactory,
		productRepo,
		embeddingProvider,
		llmProvider,
		sessionRepo,
		pubSub,
		cfg.Assistant.TurnTopic,
		wsHub,
		emailService,
		cfg.Assistant.AlertEmail,
	)

	catalogService := service.NewCatalogService(uowFactory)

	// 5. Controllers
	return &Container{
		StreamHandler:       handler.NewStreamHandler(wsHub, wsLogger),
		WebSocketHub:        wsHub,
		AssistantController: controller.NewAssistantController(assistantService),
		CatalogController:   controller.NewCatalogController(catalogService),

		ConsumerService:  consumerService,
		AnalyticsService: analyticsService,
	}
}
