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

	"github.com/BloggingApp/notification-lifecycle/internal/config"
	"github.com/BloggingApp/notification-lifecycle/internal/handler"
	"github.com/BloggingApp/notification-lifecycle/internal/rabbitmq"
	"github.com/BloggingApp/notification-lifecycle/internal/repository"
	"github.com/BloggingApp/notification-lifecycle/internal/repository/memory"
	"github.com/BloggingApp/notification-lifecycle/internal/repository/postgres"
	"github.com/BloggingApp/notification-lifecycle/internal/service"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := loadEnv(); err != nil {
		log.Printf("no .env file loaded: %s", err.Error())
	}

	if err := initConfig(); err != nil {
		log.Fatalf("failed to initialize config: %s", err.Error())
	}

	engineConfig, err := config.LoadEngineConfig(viper.GetViper())
	if err != nil {
		log.Fatalf("invalid notifications config: %s", err.Error())
	}

	logger, err := newLogger()
	if err != nil {
		log.Fatalf("failed to create zap logger: %s", err.Error())
	}
	defer logger.Sync()

	store, closeStore := newStore(ctx)
	defer closeStore()

	rdb := redis.NewClient(&redis.Options{
		Addr: os.Getenv("REDIS_ADDR"),
	})
	pong, err := rdb.Ping(ctx).Result()
	if err != nil {
		log.Panicf("failed to ping redis: %s", err.Error())
	}
	log.Printf("Successfully connected to Redis: %s\n", pong)

	mq, err := rabbitmq.New(os.Getenv("RABBITMQ_CONN_STRING"))
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %s", err.Error())
	}
	defer mq.Close()

	services, err := service.New(service.Deps{
		Logger:   logger,
		Repo:     repository.New(store),
		Redis:    rdb,
		RabbitMQ: mq,
		Config:   engineConfig,
	})
	if err != nil {
		log.Fatalf("failed to create services: %s", err.Error())
	}
	handlers := handler.New(logger, services, []byte(os.Getenv("ACCESS_SECRET")))

	go services.Notification.StartProcessingCreateNotifications(ctx)
	go services.Notification.StartProcessingFollows(ctx)

	if err := services.Sweeper.StartJobs(); err != nil {
		log.Fatalf("failed to start jobs: %s", err.Error())
	}

	srv := &http.Server{
		Addr:    viper.GetString("app.port"),
		Handler: handlers.SetupRoutes(),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Sugar().Fatalf("http server error: %s", err.Error())
		}
	}()

	log.Println("Notification service started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	log.Println("Notification service shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Errorf("failed to shutdown http server: %s", err.Error())
	}
	if err := services.Sweeper.Shutdown(); err != nil {
		logger.Sugar().Errorf("failed to shutdown scheduler: %s", err.Error())
	}
}

func newStore(ctx context.Context) (repository.Notification, func()) {
	if os.Getenv("STORE_DRIVER") == "memory" {
		log.Println("Using in-memory notification store")
		return memory.NewNotificationRepo(), func() {}
	}

	db, err := postgres.Connect(ctx, config.DBConfigFromEnv())
	if err != nil {
		log.Panicf("db connection error: %s", err.Error())
	}
	if err := db.Ping(ctx); err != nil {
		log.Panicf("couldn't ping postgres db: %s", err.Error())
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Panicf("failed to migrate postgres db: %s", err.Error())
	}
	log.Println("Successfully connected to PostgreSQL")

	return postgres.NewNotificationRepo(db), db.Close
}

func loadEnv() error {
	return godotenv.Load(".env")
}

func initConfig() error {
	config.SetDefaults(viper.GetViper())
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")
	viper.SetConfigName("app")
	return viper.ReadInConfig()
}

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{
		"./app.log",
	}
	return cfg.Build()
}
