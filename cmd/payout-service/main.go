package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-payout-engine/internal/payout/chain"
	"github.com/radieske/coinflip-payout-engine/internal/payout/consumer"
	"github.com/radieske/coinflip-payout-engine/internal/payout/coordinator"
	"github.com/radieske/coinflip-payout-engine/internal/payout/executor"
	"github.com/radieske/coinflip-payout-engine/internal/payout/fee"
	httpapi "github.com/radieske/coinflip-payout-engine/internal/payout/http"
	"github.com/radieske/coinflip-payout-engine/internal/payout/model"
	"github.com/radieske/coinflip-payout-engine/internal/payout/producer"
	"github.com/radieske/coinflip-payout-engine/internal/payout/queue"
	"github.com/radieske/coinflip-payout-engine/internal/payout/repo"
	"github.com/radieske/coinflip-payout-engine/internal/payout/settle"
	"github.com/radieske/coinflip-payout-engine/internal/payout/ws"
	"github.com/radieske/coinflip-payout-engine/internal/shared/cache"
	"github.com/radieske/coinflip-payout-engine/internal/shared/config"
	"github.com/radieske/coinflip-payout-engine/internal/shared/db"
	"github.com/radieske/coinflip-payout-engine/internal/shared/kafka"
	"github.com/radieske/coinflip-payout-engine/internal/shared/logger"
	"github.com/radieske/coinflip-payout-engine/internal/shared/metrics"
	"github.com/radieske/coinflip-payout-engine/pkg/contracts/events"
)

func main() {
	// carrega config
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "payout-service"
	}

	// inicia logger
	log, err := logger.New(cfg.ServiceName, cfg.Env, logger.WithLevel(cfg.LogLevel))
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	log.Info("starting service", zap.String("service", cfg.ServiceName), zap.String("env", cfg.Env))

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// conecta com db Postgres e aplica migrations do ledger
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	if err := db.Migrate(pg); err != nil {
		log.Fatal("failed to migrate postgres", zap.Error(err))
	}
	log.Info("postgres connected")

	// conecta com Redis (fila de adiados + pub/sub do WS)
	redisClient, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("failed to connect redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("redis connected")

	// chain
	keys, err := chain.ParseKeyRing(cfg.PayoutSignerKey)
	if err != nil {
		log.Fatal("invalid PAYOUT_SIGNER_KEY", zap.Error(err))
	}
	chainClient, err := chain.Dial(ctx, log.Named("chain"), cfg.EthRPCURL, keys, chain.Options{
		ConfirmTimeout: cfg.ConfirmTimeout,
	})
	if err != nil {
		log.Fatal("failed to connect chain rpc", zap.Error(err))
	}
	if hot, err := chainClient.HotWallet(); err != nil {
		log.Fatal("hot wallet not configured", zap.Error(err))
	} else {
		log.Info("chain connected", zap.String("hot_wallet", hot.Hex()))
	}

	// Métricas Prometheus
	m := metrics.NewPayout(prometheus.DefaultRegisterer)

	dq := newQueue(cfg, redisClient)

	// Kafka: comandos (entrada, saída da API) e outcomes
	outcomesWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicPayoutOutcomes)
	defer outcomesWriter.Close()
	commandsWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicPayoutCommands)
	defer commandsWriter.Close()
	dlqWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicPayoutCommandsDLQ)
	defer dlqWriter.Close()
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicPayoutCommands, "payout-service")
	defer reader.Close()

	emitter := producer.Multi{
		producer.NewKafkaPublisher(outcomesWriter),
		producer.NewRedisBroadcaster(redisClient, cfg.RedisPubSubChannel),
	}

	// Núcleo: estimador -> política -> executor, conduzidos pelo coordenador
	estimator := fee.NewEstimator(chainClient)
	exec := executor.New(log.Named("executor"), chainClient, estimator, dq).WithSettlements(newSettlements(cfg, redisClient))
	coord := coordinator.New(log.Named("coordinator"), estimator, exec, emitter, coordinator.Options{
		DefaultThreshold:  cfg.DefaultThreshold,
		DefaultCredential: chain.DefaultCredential,
		Recorder:          repo.NewPostgres(pg),
		OnTransition:      func(to coordinator.State) { m.Transitions.WithLabelValues(string(to)).Inc() },
		OnOutcome: func(kind model.OutcomeKind, reason model.Reason) {
			m.Outcomes.WithLabelValues(string(kind), string(reason)).Inc()
			lctx, lcancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer lcancel()
			if n, err := dq.Len(lctx); err == nil {
				m.QueueDepth.Set(float64(n))
			}
		},
	})

	proc := &consumer.Processor{
		Log:        log.Named("consumer"),
		Reader:     reader,
		DLQ:        dlqWriter,
		OnConsumed: func(t string) { m.CommandsConsumed.WithLabelValues(t).Inc() },
		OnError:    func(stage string) { m.ConsumerErrors.WithLabelValues(stage).Inc() },
	}

	// WS: outcomes chegam pelo Redis Pub/Sub (qualquer réplica publica, todas entregam)
	hub := ws.NewHub(log.Named("ws"), func(*http.Request) bool { return true })
	ws.StartRedisSubscriber(ctx, log.Named("ws"), redisClient, cfg.RedisPubSubChannel, hub)

	api := &httpapi.API{
		Log:      log.Named("http"),
		Commands: producer.NewKafkaPublisher(commandsWriter),
		Deferred: dq,
		Wallet:   chainClient,
		Ledger:   repo.NewPostgres(pg),
		WS:       hub.HandleWS,
	}
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("http listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	// sobe servidor de métricas e health
	msrv := metrics.StartMetricsServer(log, cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	})

	go chainClient.WatchBalance(ctx, time.Minute, func(wei *big.Int) {
		f, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e18)).Float64()
		m.HotWalletBalance.Set(f)
	})

	cmds := make(chan events.Command, 64)
	go func() {
		if err := proc.Run(ctx, cmds); err != nil && ctx.Err() == nil {
			log.Error("consumer stopped with error", zap.Error(err))
		}
	}()

	log.Info("payout-service started")
	runErr := coord.Run(ctx, cmds)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	_ = msrv.Shutdown(shutdownCtx)

	if runErr != nil && ctx.Err() == nil {
		log.Fatal("coordinator stopped with error", zap.Error(runErr))
	}
	log.Info("payout-service stopped")
}

func newSettlements(cfg config.Config, rdb *redis.Client) settle.Store {
	if cfg.QueueBackend == "memory" {
		return settle.NewMemory()
	}
	return settle.NewRedis(rdb, cfg.QueuePrefix)
}

func newQueue(cfg config.Config, rdb *redis.Client) queue.Deferred {
	if cfg.QueueBackend == "memory" {
		return queue.NewMemory()
	}
	return queue.NewRedis(rdb, cfg.QueuePrefix)
}
