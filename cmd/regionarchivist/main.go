package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"tabletop-core/services/regionarchivist"
)

func main() {
	cfg := regionarchivist.Config{
		KafkaBrokers: getEnvBrokers("KAFKA_BROKERS", []string{"redpanda:9092"}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Shutting down RegionArchivist...")
		cancel()
	}()

	service, err := regionarchivist.NewService(cfg)
	if err != nil {
		log.Fatalf("Failed to start RegionArchivist: %v", err)
	}
	service.Start(ctx)
	<-ctx.Done()
	service.Stop()
	log.Println("RegionArchivist stopped.")
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
