package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"runtoyou.app/runtoyou/internal/bootstrap"
	"runtoyou.app/runtoyou/internal/config"
	"runtoyou.app/runtoyou/internal/server"
	"runtoyou.app/runtoyou/pkg/database"
	"runtoyou.app/runtoyou/pkg/logger"
	"runtoyou.app/runtoyou/pkg/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	l, err := logger.Init(logger.Options{
		Level:      cfg.LogLevel,
		Path:       cfg.LogPath,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
		Compress:   true,
	})
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer l.Sync()

	if err := run(cfg); err != nil {
		l.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	dsn := cfg.DatabaseURL
	if cfg.DBDriver == database.DriverSQLite {
		dsn = cfg.SQLitePath
	}
	db, err := database.Open(database.Options{
		Driver:   cfg.DBDriver,
		DSN:      dsn,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPass,
		Name:     cfg.DBName,
	})
	if err != nil {
		return err
	}

	if err := bootstrap.Migrate(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	if err := bootstrap.SeedRoles(db); err != nil {
		return fmt.Errorf("failed to seed roles: %w", err)
	}
	if err := bootstrap.SeedAchievements(db); err != nil {
		return fmt.Errorf("failed to seed achievements: %w", err)
	}
	if cfg.IsDevelopment() {
		if err := bootstrap.SeedAdminUser(db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return fmt.Errorf("failed to seed admin user: %w", err)
		}
	}

	redisClient, err := connectRedis(cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var imageStorage storage.ImageStorage
	if cfg.CloudinaryCloudName != "" || os.Getenv("CLOUDINARY_URL") != "" {
		imageStorage, err = storage.NewCloudinaryStorage(storage.CloudinaryConfig{
			CloudName:  cfg.CloudinaryCloudName,
			APIKey:     cfg.CloudinaryAPIKey,
			APISecret:  cfg.CloudinaryAPISecret,
			RootFolder: cfg.CloudinaryUploadFolder,
		})
		if err != nil {
			return err
		}
	} else {
		logger.L().Warn("cloudinary not configured, image uploads disabled")
	}

	srv, err := server.NewServer(server.Deps{
		Config:       cfg,
		DB:           db,
		Redis:        redisClient,
		Meili:        newMeiliClient(cfg.MeiliSearchHost, cfg.MeiliMasterKey),
		ImageStorage: imageStorage,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}

// connectRedis returns nil when no URL is configured.
func connectRedis(url string) (*redis.Client, error) {
	if url == "" {
		logger.L().Warn("REDIS_URL not set, running without cache and realtime updates")
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.L().Info("connected to redis", zap.String("addr", opts.Addr))
	return client, nil
}

func newMeiliClient(host, key string) meilisearch.ServiceManager {
	if host == "" {
		logger.L().Warn("MEILISEARCH_HOST not set, search indexing disabled")
		return nil
	}
	if !strings.HasPrefix(host, "http") {
		host = "http://" + host + ":7700"
	}
	return meilisearch.New(host, meilisearch.WithAPIKey(key))
}
