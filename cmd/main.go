package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"quotedesk/backend/internal/api/handler"
	"quotedesk/backend/internal/auth"
	"quotedesk/backend/internal/chathub"
	"quotedesk/backend/internal/config"
	"quotedesk/backend/internal/events"
	"quotedesk/backend/internal/logger"
	"quotedesk/backend/internal/models"
	"quotedesk/backend/internal/storage"
)

func setupDependencies(ctx context.Context, cfg *config.Config, log *zap.Logger) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect postgres", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("failed to connect redis", zap.Error(err))
	}

	// Messages and rooms are owned here; the RFQ table is owned by the CRUD
	// side and only migrated so a standalone deployment boots.
	if err := db.AutoMigrate(
		&models.Room{},
		&models.Message{},
		&models.RFQ{},
	); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	log.Info("database and redis connections established")
	return db, rdb
}

func main() {
	// .env is optional outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Dev)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, rdb := setupDependencies(ctx, cfg, log)
	store := storage.NewService(db, rdb, log)
	verifier := auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer)

	hub := chathub.NewHub(store, verifier, log, cfg.TypingTTL, cfg.AuthGrace)
	bridge := chathub.NewBridge(hub, store, log)
	consumer := events.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, bridge, log)

	go hub.Run(ctx)
	go hub.RunPubSub(ctx)
	go consumer.Start(ctx)

	if !cfg.Dev {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	h := handler.NewHandler(hub, verifier, bridge, log)

	r.GET("/ws", h.ServeWebSocket)
	r.POST("/internal/events/rfq-updated", h.RFQUpdated)
	r.POST("/internal/events/quote-submitted", h.QuoteSubmitted)
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if cfg.Dev {
		r.POST("/token", h.IssueToken)
	}

	server := &http.Server{
		Addr:           cfg.Addr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Info("messaging core listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown error", zap.Error(err))
	}
	if err := consumer.Close(); err != nil {
		log.Warn("kafka close error", zap.Error(err))
	}
}
