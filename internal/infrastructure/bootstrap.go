package infrastructure

import (
	"context"

	"coinpay/internal/config"
	"coinpay/internal/payment"
	"coinpay/internal/repository"
	"coinpay/internal/service"
	transportHTTP "coinpay/internal/transport/http"
	transportNATS "coinpay/internal/transport/nats"
	"coinpay/internal/worker"
)

// Bootstrap initialises all dependencies from config and wires up the
// application. Returns the App, a cleanup function, or an error.
func Bootstrap(ctx context.Context) (*App, func(), error) {
	cfg, err := config.New()
	if err != nil {
		return nil, nil, err
	}

	db, err := connectPostgres(cfg.DSN())
	if err != nil {
		return nil, nil, err
	}

	rdb, err := connectRedis(cfg.RedisAddr())
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	var cleanupFns []func()
	cleanupFns = append(cleanupFns, func() {
		db.Close()
		_ = rdb.Close()
	})

	nc, err := connectNats(cfg.NatsAddr())
	if err != nil {
		return nil, runCleanup(cleanupFns), err
	}
	cleanupFns = append(cleanupFns, nc.Close)

	js, err := setupJetStream(nc)
	if err != nil {
		return nil, runCleanup(cleanupFns), err
	}

	// One authenticated Stripe session, reused across requests.
	processor := payment.NewStripeProcessor(cfg.StripeSecretKey, cfg.StripeWebhookSecret)

	repo := repository.NewWalletRepo(rdb, db)
	bus := transportNATS.NewBus(js)
	var svc service.WalletService = service.New(processor, repo, bus)

	servers := []Server{
		worker.NewCreditWorker(svc, js),
		transportHTTP.NewServer(cfg.ApiAddr(), svc),
	}

	return NewApp(servers), runCleanup(cleanupFns), nil
}

// runCleanup returns a single function that calls all cleanup functions in reverse order.
func runCleanup(fns []func()) func() {
	return func() {
		for i := len(fns) - 1; i >= 0; i-- {
			fns[i]()
		}
	}
}
