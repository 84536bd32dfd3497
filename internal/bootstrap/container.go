package bootstrap

import (
	"context"
	"log"

	"agent-chat-be/internal/chat"
	"agent-chat-be/internal/config"
	"agent-chat-be/internal/controller"
	"agent-chat-be/internal/handler"
	"agent-chat-be/internal/pkg/logger"
	"agent-chat-be/internal/repository/unitofwork"
	"agent-chat-be/internal/service"
	"agent-chat-be/internal/websocket"
	"agent-chat-be/pkg/bus"
	"agent-chat-be/pkg/events"
	pktNats "agent-chat-be/pkg/nats"
	"agent-chat-be/pkg/workflow/factory"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController   controller.IAuthController
	ThreadController controller.IThreadController
	AgentController  controller.IAgentController

	// WebSocket
	ChatHandler     *handler.ChatHandler
	SessionRegistry *websocket.Registry

	// Background services (exposed for main.go to run)
	ConsumerService service.IConsumerService

	// Held for shutdown
	LocalBus       *bus.LocalBus
	NatsPublisher  *pktNats.Publisher
	NatsSubscriber *pktNats.Subscriber
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event bus. NATS when configured, the in-process channel bus
	// otherwise. The local bus always runs; the consumer feeds off it.
	localBus := bus.NewLocalBus()
	var dispatcher events.Dispatcher = localBus

	var natsPub *pktNats.Publisher
	var natsSub *pktNats.Subscriber
	if cfg.App.NatsURL != "" {
		var err error
		natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			// The local consumer still needs its copy.
			dispatcher = events.MultiDispatcher{natsPub, localBus}
		}

		natsSub, err = pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		} else if err := natsSub.Subscribe("chat.events.>", "chat-audit", func(ctx context.Context, event events.Event) error {
			sysLogger.Info("NatsAudit", "chat event delivered", map[string]interface{}{
				"event_type": event.EventType(),
				"payload":    event.Payload(),
			})
			return nil
		}); err != nil {
			log.Printf("[WARN] Failed to subscribe to chat events: %v", err)
		}
	}

	// 3. Redis for cross-instance session fan-out. Optional.
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: cfg.App.RedisURL}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
	}

	// 4. Chat core
	wsLogger := logger.NewIsolatedLogger("logs/chat_ws.log")
	jobRegistry := chat.NewJobRegistry(wsLogger)
	sessionRegistry := websocket.NewRegistry(jobRegistry, wsLogger, rdb)

	engine, err := factory.NewEngine(cfg.Workflow.Provider, cfg.Workflow.Model, cfg.Workflow.BaseURL)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize workflow engine: %v", err)
	}
	log.Printf("[INFO] Using workflow engine: %s (%s)", cfg.Workflow.Provider, cfg.Workflow.Model)

	driver := chat.NewDriver(jobRegistry, sessionRegistry, uowFactory, engine, dispatcher, sysLogger)
	driver.SetQueueSize(cfg.Chat.QueueSize)

	// 5. Services
	authService := service.NewAuthService(uowFactory)
	chatService := service.NewChatService(uowFactory)
	threadService := service.NewThreadService(uowFactory)
	agentService := service.NewAgentService(uowFactory)
	consumerService := service.NewConsumerService(localBus, uowFactory, sysLogger)

	// 6. Controllers and handlers
	return &Container{
		AuthController:   controller.NewAuthController(authService),
		ThreadController: controller.NewThreadController(threadService, chatService),
		AgentController:  controller.NewAgentController(agentService),
		ChatHandler:      handler.NewChatHandler(authService, chatService, driver, sessionRegistry, jobRegistry, wsLogger),
		SessionRegistry:  sessionRegistry,
		ConsumerService:  consumerService,
		LocalBus:         localBus,
		NatsPublisher:    natsPub,
		NatsSubscriber:   natsSub,
	}
}
