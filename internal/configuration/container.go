package configuration

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/OxyHQ/mention-api/internal/auth"
	"github.com/OxyHQ/mention-api/internal/db"
	"github.com/OxyHQ/mention-api/internal/handler"
	"github.com/OxyHQ/mention-api/internal/hub"
	"github.com/OxyHQ/mention-api/internal/model"
	"github.com/OxyHQ/mention-api/internal/repo"
	"github.com/OxyHQ/mention-api/internal/service"
)

const sweepInterval = time.Minute

type Container struct {
	Config  Config
	Logger  *zap.Logger
	Hub     *hub.Hub
	Gateway *hub.Gateway

	Verifier auth.Verifier

	ConversationHandler handler.ConversationHandler
	NotificationHandler handler.NotificationHandler
	InteractionHandler  handler.InteractionHandler
	PresenceHandler     handler.PresenceHandler

	// private - for cleanup
	mongoDB   *mongo.Database
	backplane *hub.Backplane
	scheduler *service.Scheduler
}

func BuildContainer() (*Container, error) {
	config, err := LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}

	verifier, err := auth.NewVerifier(auth.Options{
		Secret: []byte(config.Auth.Secret),
		Alg:    config.Auth.Alg,
	})
	if err != nil {
		return nil, err
	}

	con, err := db.OpenConnection(config.Mongo.Uri, config.Mongo.Database)
	if err != nil {
		return nil, err
	}

	conversationRepo := repo.NewConversationRepository(
		db.NewRepository[model.Conversation](con, config.Mongo.ConversationsCollection), logger)
	messageRepo := repo.NewMessageRepository(
		db.NewRepository[model.Message](con, config.Mongo.MessagesCollection), logger)
	notificationRepo := repo.NewNotificationRepository(
		db.NewRepository[model.Notification](con, config.Mongo.NotificationsCollection), logger)
	interactionRepo := repo.NewInteractionRepository(
		db.NewRepository[model.Interaction](con, config.Mongo.InteractionsCollection), logger)
	postRepo := repo.NewPostRepository(
		db.NewRepository[model.Post](con, config.Mongo.PostsCollection), logger)
	reportRepo := repo.NewReportRepository(
		db.NewRepository[model.Report](con, config.Mongo.ReportsCollection), logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := interactionRepo.EnsureIndexes(ctx); err != nil {
		return nil, err
	}

	h := hub.NewHub()

	var backplane *hub.Backplane
	if config.Redis.Addr != "" {
		backplane, err = hub.NewBackplane(
			config.Redis.Addr,
			config.Redis.Password,
			config.Redis.DB,
			config.Redis.Channel,
			uuid.New().String(),
		)
		if err != nil {
			return nil, err
		}
		h.AttachBackplane(backplane)
		h.OnDisconnect = func(userID string) {
			dctx, dcancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer dcancel()
			if err := backplane.PresenceOffline(dctx, userID); err != nil {
				logger.Warn("presence offline failed", zap.String("user_id", userID), zap.Error(err))
			}
		}
	}

	scheduler := service.NewScheduler(logger)

	notificationService := service.NewNotificationService(notificationRepo, h, logger)
	chatService := service.NewChatService(
		conversationRepo, messageRepo, reportRepo,
		notificationService, h, scheduler, logger,
	)
	counterService := service.NewCounterService(
		interactionRepo, postRepo, notificationService, h, logger,
	)

	h.SetHandler(hub.NamespaceChat, hub.NewChatHandler(h, chatService))
	h.SetHandler(hub.NamespaceNotifications, hub.NewNotificationHandler(h, notificationService))
	h.SetHandler(hub.NamespaceInteractions, hub.NewInteractionHandler(h))

	chatService.StartSweeper(sweepInterval)

	// assign through the interface only when a backplane exists, so the
	// handler's nil check sees a truly nil source in single-instance mode
	var presenceSource handler.PresenceSource
	if backplane != nil {
		presenceSource = backplane
	}

	return &Container{
		Config:              *config,
		Logger:              logger,
		Hub:                 h,
		Gateway:             hub.NewGateway(h, verifier, backplane, logger),
		Verifier:            verifier,
		ConversationHandler: handler.NewConversationHandler(chatService),
		NotificationHandler: handler.NewNotificationHandler(notificationService),
		InteractionHandler:  handler.NewInteractionHandler(counterService),
		PresenceHandler:     handler.NewPresenceHandler(h, presenceSource),
		mongoDB:             con,
		backplane:           backplane,
		scheduler:           scheduler,
	}, nil
}

// Close gracefully shuts down all connections.
func (c *Container) Close() error {
	if c.scheduler != nil {
		c.scheduler.Stop()
	}

	if c.Hub != nil {
		c.Hub.Stop()
	}

	if c.backplane != nil {
		_ = c.backplane.Close()
	}

	if c.Logger != nil {
		_ = c.Logger.Sync()
	}

	if c.mongoDB != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.mongoDB.Client().Disconnect(ctx); err != nil {
			return err
		}
	}

	return nil
}
