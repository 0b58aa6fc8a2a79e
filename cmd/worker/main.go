// Worker consumes activity entries from Kafka and pushes them to Loki.
// Set KAFKA_BROKERS, KAFKA_ACTIVITY_TOPIC, KAFKA_GROUP_ID and LOKI_URL. The server config is still
// validated, so DATABASE_URL and a session key must be set even though the worker does not use them.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"saasgate/backend/internal/activity/publisher"
	"saasgate/backend/internal/config"
	"saasgate/backend/internal/telemetry/logging"
	"saasgate/backend/internal/telemetry/loki"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(os.Stderr, logging.ParseLevel(cfg.LogLevel), cfg.OTelService+"-worker", nil)
	slog.SetDefault(logger)

	if cfg.LokiURL == "" {
		log.Fatal("worker: LOKI_URL is required")
	}
	consumer, err := publisher.NewConsumer(cfg.KafkaBrokersList(), cfg.KafkaActivityTopic, cfg.KafkaGroupID)
	if err != nil {
		log.Fatalf("worker: %v", err)
	}
	defer consumer.Close()

	client := loki.NewClient(cfg.LokiURL, cfg.OTelService, nil)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("worker: consuming", "topic", cfg.KafkaActivityTopic, "group", cfg.KafkaGroupID, "loki", cfg.LokiURL)

	// A failed push is logged and the message committed; Loki is a best-effort sink.
	err = consumer.Consume(ctx, func(ctx context.Context, _, value []byte) error {
		pushCtx, pushCancel := context.WithTimeout(ctx, 10*time.Second)
		defer pushCancel()
		if err := client.PushEntryJSON(pushCtx, value); err != nil {
			logger.Warn("worker: loki push failed", "error", err)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("worker: consume: %v", err)
	}
	logger.Info("worker: stopped")
}
