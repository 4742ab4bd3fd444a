package main

import (
	"context"
	"log"

	"carworld-backend/cmd/api"
	"carworld-backend/internal/notification"
	notifdomain "carworld-backend/internal/notification/domain"
	"carworld-backend/internal/notification/processor"
	notifrepo "carworld-backend/internal/notification/repository"
	userdomain "carworld-backend/internal/user/domain"
	userrepo "carworld-backend/internal/user/repository"
	"carworld-backend/pkg/config"
	"carworld-backend/pkg/database"
	"carworld-backend/pkg/fcm"
	"carworld-backend/pkg/idempotency"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
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
	if err := db.AutoMigrate(&userdomain.User{}, &notifdomain.DeviceToken{}, &notifdomain.NotificationQueue{}); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	userRepository := userrepo.NewUserRepository(db)
	tokenRepository := notifrepo.NewDeviceTokenRepository(db)
	queueRepository := notifrepo.NewNotificationQueueRepository(db)

	// Idempotency lock: redis when configured, process-local otherwise.
	// The in-memory lock only holds for a single-instance deployment.
	var locker idempotency.Locker
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal("Failed to parse redis URL:", err)
		}
		redisClient := redis.NewClient(opts)
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("[WARN] Redis unreachable, using in-memory idempotency lock: %v", err)
			locker = idempotency.NewMemoryLocker(0)
		} else {
			locker = idempotency.NewRedisLocker(redisClient)
		}
	} else {
		log.Println("[WARN] No redis configured, using in-memory idempotency lock")
		locker = idempotency.NewMemoryLocker(0)
	}

	// Initialize FCM client (optional, queueing works without it)
	var sender notification.PushSender
	if cfg.FirebaseCredentials != "" {
		fcmClient, err := fcm.NewClient(cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("[WARN] Failed to initialize FCM client (push delivery disabled): %v", err)
		} else {
			sender = fcmClient
		}
	} else {
		log.Println("[WARN] No Firebase credentials configured, push delivery disabled")
	}

	notificationService := notification.NewService(userRepository, tokenRepository, queueRepository, locker, sender)

	// Start the queue processor
	if sender != nil {
		proc := processor.New(queueRepository, notificationService, cfg.ProcessorInterval, cfg.ProcessorBatchSize, cfg.ProcessorMaxRetries)
		proc.Start(context.Background())
		defer proc.Stop()
	} else {
		log.Println("[WARN] Push delivery disabled, notification processor not started")
	}

	// Setup HTTP server
	r := gin.Default()
	handler := api.NewHandler(notificationService, queueRepository)
	api.SetupRoutes(r, handler)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
