package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"tabletop-core/internal/scenestore"
	"tabletop-core/services/regionservice"
)

func main() {
	// Конфигурация из окружения
	cfg := regionservice.Config{
		KafkaBrokers: getEnvBrokers("KAFKA_BROKERS", []string{"redpanda:9092"}),
		HTTPAddr:     getEnv("HTTP_ADDR", ":8080"),
		Minio: scenestore.Config{
			Endpoint:  getEnv("MINIO_ENDPOINT", "minio:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
			Secure:    getEnv("MINIO_SECURE", "") == "true",
		},
		SceneID:       getEnv("SCENE_ID", "default"),
		UserID:        getEnv("USER_ID", "gamemaster"),
		ProfileBucket: getEnv("PROFILE_BUCKET", "scene-config"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Shutting down RegionService...")
		cancel()
	}()

	// Запуск сервиса
	service := regionservice.NewService(cfg)
	service.Start(ctx)
	<-ctx.Done()
	service.Stop()
	log.Println("RegionService stopped.")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBrokers(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		brokers := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				brokers = append(brokers, trimmed)
			}
		}
		if len(brokers) > 0 {
			return brokers
		}
	}
	return fallback
}
