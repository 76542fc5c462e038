package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-payout-engine/internal/payout/producer"
	"github.com/radieske/coinflip-payout-engine/internal/payout/queue"
	"github.com/radieske/coinflip-payout-engine/internal/payout/retrier"
	"github.com/radieske/coinflip-payout-engine/internal/shared/cache"
	"github.com/radieske/coinflip-payout-engine/internal/shared/config"
	"github.com/radieske/coinflip-payout-engine/internal/shared/kafka"
	"github.com/radieske/coinflip-payout-engine/internal/shared/logger"
	"github.com/radieske/coinflip-payout-engine/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "payout-retry-worker"
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, logger.WithLevel(cfg.LogLevel))
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	// a fila em memória vive dentro do payout-service; aqui só Redis faz sentido
	if cfg.QueueBackend == "memory" {
		log.Fatal("retry worker requires PAYOUT_QUEUE_BACKEND=redis")
	}

	redisClient, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicPayoutCommands)
	defer writer.Close()

	m := metrics.NewPayout(prometheus.DefaultRegisterer)

	r := &retrier.Retrier{
		Log:         log,
		Queue:       queue.NewRedis(redisClient, cfg.QueuePrefix),
		Publisher:   producer.NewKafkaPublisher(writer),
		Interval:    cfg.RetryInterval,
		OnPublished: func() { m.RetriesPublished.Inc() },
		OnDepth:     func(n int) { m.QueueDepth.Set(float64(n)) },
		OnError:     func(stage string) { m.ConsumerErrors.WithLabelValues(stage).Inc() },
	}

	// Servidor HTTP para métricas e health check
	metrics.StartMetricsServer(log, cfg.MetricsPort, func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("payout-retry-worker started", zap.Duration("interval", cfg.RetryInterval))
	if err := r.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("retry worker stopped with error", zap.Error(err))
	}
	log.Info("payout-retry-worker stopped")
}
