package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"alum-messaging/internal/config"
	"alum-messaging/internal/db"
	apihttp "alum-messaging/internal/http"
	"alum-messaging/internal/repository"
	"alum-messaging/internal/service"
	"alum-messaging/internal/ws"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	conversationRepo := repository.NewPgConversationRepository(pool)
	messageRepo := repository.NewPgMessageRepository(pool)
	userRepo := repository.NewPgUserRepository(pool)

	var (
		notifier    service.Notifier
		redisClient *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
			redisClient = nil
		} else {
			notifier = service.NewRedisNotifier(redisClient)
		}
		cancel()
	}
	hub := ws.NewHub(logger, redisClient)
	if notifier == nil {
		// Sin redis las instancias no se ven entre sí, pero las conexiones
		// de este proceso siguen recibiendo los eventos en vivo.
		logger.Warn("redis not configured, delivering live events in-process only")
		notifier = ws.NewLocalNotifier(hub)
	}

	messagingSvc := service.NewMessagingService(logger, conversationRepo, messageRepo, notifier, cfg.MessagePageSize)
	profileSvc := service.NewProfileService(logger, userRepo)
	tokenSvc := service.NewSessionTokenService(
		cfg.SessionSecret,
		time.Duration(cfg.SessionTTLMinutes)*time.Minute,
	)
	limiter := service.NewRedisSendRateLimiter(redisClient, time.Minute, cfg.SendRatePerMinute)

	messageHandler := apihttp.NewMessageHandler(logger, messagingSvc, limiter)
	router := apihttp.NewRouter(logger, tokenSvc, messagingSvc, profileSvc, hub, messageHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
