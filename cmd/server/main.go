// Command server runs the evidence custody ledger API.
//
// Backends are optional: with no Postgres, Redis, or Kafka configured the
// process runs entirely in memory, which is what tests and single-node dev
// use. Production configures all three.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"custodia/internal/evidence"
	evidencehandler "custodia/internal/evidence/handler"
	"custodia/internal/jwttoken"
	"custodia/internal/ledger"
	ledgerhandler "custodia/internal/ledger/handler"
	"custodia/internal/ledger/lock"
	"custodia/internal/platform/config"
	"custodia/internal/platform/httpserver"
	"custodia/internal/platform/logger"
	"custodia/internal/platform/metrics"
	"custodia/internal/platform/postgres"
	redisplatform "custodia/internal/platform/redis"
	"custodia/internal/receipt"
	httptransport "custodia/internal/transport/http"
	audit "custodia/pkg/platform/audit"
	auditpub "custodia/pkg/platform/audit/publisher"
	auditkafka "custodia/pkg/platform/audit/store/kafka"
	auditmemory "custodia/pkg/platform/audit/store/memory"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: postgres when configured, memory otherwise.
	var (
		evidenceStore evidence.Store
		ledgerStore   ledger.Store
		txRunner      ledger.TxRunner = ledger.NopTxRunner{}
		health                        = map[string]httptransport.HealthChecker{}
	)
	if cfg.PostgresURL != "" {
		db, err := postgres.Open(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("postgres unavailable", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		evidenceStore = evidence.NewPostgresStore(db)
		ledgerStore = ledger.NewPostgresStore(db)
		txRunner = newLedgerPostgresTx(db)
		health["postgres"] = pingChecker{ping: db.PingContext}
	} else {
		evidenceStore = evidence.NewInMemoryStore()
		ledgerStore = ledger.NewInMemoryStore()
	}

	// Per-item locking: shared via Redis when running replicated.
	var locker lock.Keyed = lock.NewKeyedMutex(cfg.LockWait)
	redisClient, err := redisplatform.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		locker = lock.NewRedisLock(redisClient.Client, cfg.LockWait)
		health["redis"] = redisClient
	}

	// Audit sink: kafka when configured, in-memory otherwise.
	var auditStore audit.Store
	if len(cfg.KafkaBrokers) > 0 {
		kafkaStore, err := auditkafka.New(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Error("kafka unavailable", "error", err)
			os.Exit(1)
		}
		defer kafkaStore.Close()
		auditStore = kafkaStore
	} else {
		auditStore = auditmemory.NewInMemoryStore()
	}
	publisher := auditpub.NewPublisher(auditStore,
		auditpub.WithAsyncBuffer(1024),
		auditpub.WithLogger(log),
	)
	defer publisher.Close()

	met := metrics.New(prometheus.DefaultRegisterer)

	signer, err := receipt.NewSigner(cfg.ServiceSecret)
	if err != nil {
		log.Error("failed to derive receipt signing key", "error", err)
		os.Exit(1)
	}

	evidenceSvc := evidence.NewService(evidenceStore, publisher, log)
	ledgerSvc := ledger.NewService(ledgerStore, evidenceStore, locker, publisher, met, log)
	gate := ledger.NewGate(ledgerStore, txRunner, evidenceSvc, locker, publisher, met, log)
	receiptSvc := receipt.NewService(ledgerStore, evidenceStore, signer, publisher, met, log)

	jwtSvc := jwttoken.NewJWTService(cfg.JWTSigningKey, "custodia", "custodia-api")

	router := httptransport.NewRouter(httptransport.Deps{
		Evidence:  evidencehandler.New(evidenceSvc, log),
		Ledger:    ledgerhandler.New(ledgerSvc, gate, receiptSvc, log),
		Validator: jwtSvc,
		Logger:    log,
		Health:    health,
	})
	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("custodia listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// pingChecker adapts a PingContext func to the health interface.
type pingChecker struct {
	ping func(ctx context.Context) error
}

func (p pingChecker) Health(ctx context.Context) error { return p.ping(ctx) }
