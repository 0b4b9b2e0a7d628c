package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/p2p-wager-platform/internal/audit"
	"github.com/radieske/p2p-wager-platform/internal/contest"
	"github.com/radieske/p2p-wager-platform/internal/notify"
	"github.com/radieske/p2p-wager-platform/internal/shared/cache"
	"github.com/radieske/p2p-wager-platform/internal/shared/config"
	"github.com/radieske/p2p-wager-platform/internal/shared/db"
	sharedkafka "github.com/radieske/p2p-wager-platform/internal/shared/kafka"
	"github.com/radieske/p2p-wager-platform/internal/shared/logger"
	"github.com/radieske/p2p-wager-platform/internal/shared/metrics"
	"github.com/radieske/p2p-wager-platform/internal/sweeper"
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

	// Redis (cache de confrontos)
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}

	// Kafka writers: cancelamentos do sweeper também notificam e auditam
	notifWriter := sharedkafka.NewWriter(cfg.KafkaBrokers, cfg.TopicNotifications)
	defer notifWriter.Close()
	auditWriter := sharedkafka.NewWriter(cfg.KafkaBrokers, cfg.TopicAudit)
	defer auditWriter.Close()

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

	// Métricas Prometheus da varredura
	cleared := prometheus.NewCounter(prometheus.CounterOpts{Name: "sweeper_deadlines_cleared_total", Help: "prazos de cancelamento limpos"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "sweeper_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(cleared, errorsBy)

	sw := &sweeper.Sweeper{
		Log:           log,
		Bets:          svc,
		Contests:      contests,
		PreLockWindow: cfg.PreLockWindow,
		Interval:      cfg.SweepInterval,
		OnCancelled:   func() { metrics.BetsCancelledTotal.WithLabelValues("sweeper").Inc() },
		OnCleared:     func() { cleared.Inc() },
		OnError:       func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
	}

	// Servidor HTTP para métricas e health check
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("expiry-sweeper started", zap.Duration("interval", cfg.SweepInterval))
	if err := sw.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("sweeper stopped with error", zap.Error(err))
	}
	log.Info("expiry-sweeper stopped")
}
