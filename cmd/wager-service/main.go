package main

import (
	"context"
	"fmt"
	"net/http"

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
	whttp "github.com/radieske/p2p-wager-platform/internal/wager/http"
	"github.com/radieske/p2p-wager-platform/internal/wager/repo"
	"github.com/radieske/p2p-wager-platform/internal/wager/service"
)

func main() {
	cfg := config.Load()
	log, _ := logger.New(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg", zap.Error(err))
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

	// Kafka writers (notificações e auditoria, pós-commit)
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

	// HTTP público
	api := whttp.NewServer(log, svc)
	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: api.Router(),
	}

	// metrics/health
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})

	log.Info("wager-service listening", zap.String("addr", fmt.Sprintf(":%s", cfg.HTTPPort)))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}
