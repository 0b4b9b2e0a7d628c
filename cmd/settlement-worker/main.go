package main

import (
	"context"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/p2p-wager-platform/internal/audit"
	"github.com/radieske/p2p-wager-platform/internal/contest"
	"github.com/radieske/p2p-wager-platform/internal/notify"
	"github.com/radieske/p2p-wager-platform/internal/settlement"
	"github.com/radieske/p2p-wager-platform/internal/shared/cache"
	"github.com/radieske/p2p-wager-platform/internal/shared/config"
	"github.com/radieske/p2p-wager-platform/internal/shared/db"
	sharedkafka "github.com/radieske/p2p-wager-platform/internal/shared/kafka"
	"github.com/radieske/p2p-wager-platform/internal/shared/logger"
	"github.com/radieske/p2p-wager-platform/internal/shared/metrics"
	"github.com/radieske/p2p-wager-platform/internal/wager/repo"
	"github.com/radieske/p2p-wager-platform/internal/wager/service"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()
	if err := db.Migrate(context.Background(), pg); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	// Redis (cache de confrontos, usado no cancelamento de PENDING)
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}

	// Kafka: consome resultados validados, publica notificações/auditoria
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  strings.Split(cfg.KafkaBrokers, ","),
		GroupID:  "settlement-worker",
		Topic:    cfg.TopicContestResults,
		MinBytes: 1e3,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	notifWriter := sharedkafka.NewWriter(cfg.KafkaBrokers, cfg.TopicNotifications)
	defer notifWriter.Close()
	auditWriter := sharedkafka.NewWriter(cfg.KafkaBrokers, cfg.TopicAudit)
	defer auditWriter.Close()

	var dlqWriter *kafkago.Writer
	if cfg.TopicContestResultsDLQ != "" {
		dlqWriter = sharedkafka.NewWriter(cfg.KafkaBrokers, cfg.TopicContestResultsDLQ)
		defer dlqWriter.Close()
	}

	// deps
	store := repo.NewPostgres(pg)
	contests := contest.NewProvider(pg, rdb, cfg.ContestCacheTTL)
	notifier := notify.NewKafka(log, notifWriter)
	auditSink := audit.NewKafka(log, auditWriter)

	params := service.Params{
		PreLockWindow: cfg.PreLockWindow,
		CancelWindow:  cfg.CancelWindow,
		CommissionBps: cfg.CommissionBps,
		DrawRefundBps: cfg.DrawRefundBps,
		MaxRetries:    1,
	}
	svc := service.New(log, store, contests, notifier, auditSink, params)
	engine := settlement.New(log, store, svc, notifier, auditSink, params)

	// Métricas Prometheus do worker
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_messages_consumed_total", Help: "mensagens consumidas"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, errorsBy)

	consumer := &settlement.Consumer{
		Log:        log,
		Reader:     reader,
		Engine:     engine,
		DLQ:        dlqWriter,
		OnConsumed: func() { consumed.Inc() },
		OnSettled:  func() { metrics.SettlementsTotal.Inc() },
		OnError:    func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	// Servidor HTTP para métricas e health check
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("settlement-worker started", zap.String("consume", cfg.TopicContestResults))
	if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("consumer stopped with error", zap.Error(err))
	}
	log.Info("settlement-worker stopped")
}
