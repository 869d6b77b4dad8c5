package bootstrap

import (
	"context"
	"log"
	"time"

	"pdf-qa-be/internal/config"
	"pdf-qa-be/internal/controller"
	"pdf-qa-be/internal/handler"
	"pdf-qa-be/internal/pkg/logger"
	"pdf-qa-be/internal/pkg/serverutils"
	"pdf-qa-be/internal/repository/contract"
	"pdf-qa-be/internal/repository/memory"
	"pdf-qa-be/internal/repository/redisstore"
	"pdf-qa-be/internal/repository/unitofwork"
	"pdf-qa-be/internal/service"
	"pdf-qa-be/internal/websocket"
	"pdf-qa-be/pkg/embedding"
	"pdf-qa-be/pkg/events"
	"pdf-qa-be/pkg/filestore"
	"pdf-qa-be/pkg/llm/factory"
	pktNats "pdf-qa-be/pkg/nats"
	"pdf-qa-be/pkg/pdfextract"
	"pdf-qa-be/pkg/rag/confidence"
	"pdf-qa-be/pkg/vectorindex"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	DocumentController controller.IDocumentController
	HealthController   controller.IHealthController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// Realtime
	QAHandler    *handler.QAHandler
	WebSocketHub *websocket.Hub

	Logger logger.ILogger

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	c := &Container{}

	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	wsLogger := logger.NewIsolatedLogger(cfg.App.RealtimeLogFilePath)
	c.Logger = sysLogger

	contentStore, err := filestore.NewContentStore(cfg.Storage.UploadDir, cfg.Storage.ExtractedTextDir)
	if err != nil {
		log.Fatalf("[FATAL] Failed to prepare storage directories: %v", err)
	}

	// 2. Extraction queue
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. AI providers
	embeddingProvider := embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel)
	log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.EmbeddingModel)

	llmBaseURL := cfg.Ai.LLMBaseURL
	if llmBaseURL == "" && cfg.Ai.LLMProvider == "ollama" {
		llmBaseURL = cfg.Ai.OllamaBaseURL
	}
	llmProvider, err := factory.NewLLMProvider(factory.Options{
		Provider: cfg.Ai.LLMProvider,
		Model:    cfg.Ai.LLMModel,
		BaseURL:  llmBaseURL,
		APIKey:   cfg.Ai.LLMAPIKey,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Vector index
	var indexStore vectorindex.Store
	switch cfg.Index.Backend {
	case "pgvector":
		indexStore = vectorindex.NewPgvectorStore(db)
	default:
		fileStore, err := vectorindex.NewFileStore(cfg.Storage.VectorStoreDir)
		if err != nil {
			log.Fatalf("[FATAL] Failed to prepare vector store directory: %v", err)
		}
		indexStore = fileStore
	}
	log.Printf("[INFO] Using Index Backend: %s", cfg.Index.Backend)
	engine := vectorindex.NewEngine(indexStore, embeddingProvider, cfg.Index.CacheTTL, sysLogger)

	// 5. Conversation history
	conversations := newConversationRepository(cfg, c)

	// 6. Realtime hub. The message handler is bound once the QA service exists,
	// since the hub is also the document event publisher the QA service depends on.
	var qaHandler *handler.QAHandler
	wsHub := websocket.NewHub(func(ctx context.Context, clientID string, payload []byte) interface{} {
		return qaHandler.HandleMessage(ctx, clientID, payload)
	}, websocket.Options{
		MaxMessages: cfg.Realtime.MaxMessages,
		Window:      cfg.Realtime.Window,
	}, wsLogger)

	// 7. Document events: NATS when configured (every instance relays to its hub), hub otherwise
	eventPublisher := newEventPublisher(cfg, wsHub, sysLogger, c)

	// 8. Services
	publisherService := service.NewPublisherService(cfg.Storage.ExtractionTopic, pubSub)
	documentService := service.NewDocumentService(
		uowFactory,
		contentStore,
		publisherService,
		engine,
		eventPublisher,
		sysLogger,
	)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Storage.ExtractionTopic,
		cfg.Storage.ExtractionWorkers,
		documentService,
		contentStore,
		pdfextract.NewPDFExtractor(),
		sysLogger,
	)
	qaService := service.NewQAService(
		documentService,
		contentStore,
		engine,
		llmProvider,
		conversations,
		confidence.MeanSimilarity{},
		service.QAOptions{
			ChunkSize:     cfg.Index.ChunkSize,
			ChunkOverlap:  cfg.Index.ChunkOverlap,
			TopK:          cfg.Index.TopK,
			PromptHistory: cfg.Conversation.PromptHistory,
			MaxTurns:      cfg.Conversation.MaxTurns,
		},
		sysLogger,
	)
	qaHandler = handler.NewQAHandler(qaService, wsHub, wsLogger)

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("[FATAL] Failed to access database handle: %v", err)
	}

	// 9. Controllers
	c.DocumentController = controller.NewDocumentController(documentService, serverutils.NewIPRateLimiter(cfg.App.UploadRatePerMinute))
	c.HealthController = controller.NewHealthController(sqlDB)
	c.ConsumerService = consumerService
	c.QAHandler = qaHandler
	c.WebSocketHub = wsHub
	c.closers = append(c.closers, func() { _ = wsLogger.Sync() }, func() { _ = sysLogger.Sync() })

	return c
}

// Close releases connections opened by NewContainer, in reverse order.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func newConversationRepository(cfg *config.Config, c *Container) contract.ConversationRepository {
	if cfg.Conversation.Backend != "redis" {
		return memory.NewConversationRepository(cfg.Conversation.TTL, cfg.Conversation.MaxEntries)
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Falling back to in-memory history", err)
		_ = rdb.Close()
		return memory.NewConversationRepository(cfg.Conversation.TTL, cfg.Conversation.MaxEntries)
	}
	c.closers = append(c.closers, func() { _ = rdb.Close() })
	log.Printf("[INFO] Using Conversation Backend: REDIS")
	return redisstore.NewConversationRepository(rdb, cfg.Conversation.TTL)
}

func newEventPublisher(cfg *config.Config, hub *websocket.Hub, log logger.ILogger, c *Container) events.Publisher {
	if cfg.App.NatsURL == "" {
		return hub
	}

	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Warn("Bootstrap", "Failed to connect to NATS Publisher, events stay local", map[string]interface{}{"error": err.Error()})
		return hub
	}
	c.closers = append(c.closers, natsPub.Close)

	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Warn("Bootstrap", "Failed to connect to NATS Subscriber, broadcasting locally", map[string]interface{}{"error": err.Error()})
		return events.MultiPublisher{hub, natsPub}
	}

	ctx, cancel := context.WithCancel(context.Background())
	consumer, err := natsSub.Subscribe(ctx, pktNats.SubjectPrefix+".>", "", func(ctx context.Context, event events.Event) error {
		return hub.Publish(ctx, event)
	})
	if err != nil {
		log.Warn("Bootstrap", "Failed to subscribe to document events, broadcasting locally", map[string]interface{}{"error": err.Error()})
		cancel()
		natsSub.Close()
		return events.MultiPublisher{hub, natsPub}
	}

	c.closers = append(c.closers, func() {
		consumer.Stop()
		cancel()
		natsSub.Close()
	})
	log.Info("Bootstrap", "Document events relayed through NATS", map[string]interface{}{"url": cfg.App.NatsURL})
	return natsPub
}
