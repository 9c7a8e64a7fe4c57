package infrastructure

import (
	"context"
	"log/slog"

	"chillcoin/internal/config"
	"chillcoin/internal/repository"
	"chillcoin/internal/service"
	"chillcoin/internal/transport/http"
	transportNATS "chillcoin/internal/transport/nats"
	"chillcoin/internal/transport/telegram"
	"chillcoin/internal/worker"
)

// Bootstrap initialises all dependencies from config and wires up the
// application. Returns the App, a cleanup function, or an error.
func Bootstrap(ctx context.Context, logger *slog.Logger) (*App, func(), error) {
	cfg, err := config.New()
	if err != nil {
		return nil, nil, err
	}

	db, err := connectPostgres(ctx, cfg.DSN())
	if err != nil {
		return nil, nil, err
	}

	var cleanupFns []func()
	cleanupFns = append(cleanupFns, db.Close)

	rdb, err := connectRedis(ctx, cfg.RedisAddr())
	if err != nil {
		return nil, runCleanup(cleanupFns), err
	}
	cleanupFns = append(cleanupFns, func() { _ = rdb.Close() })

	nc, err := connectNats(ctx, cfg.NatsAddr())
	if err != nil {
		return nil, runCleanup(cleanupFns), err
	}
	cleanupFns = append(cleanupFns, nc.Close)

	store := repository.NewPostgresStore(db)
	cache := repository.NewLeaderboardCache(rdb, cfg.LeaderboardTTL, logger)
	bus := transportNATS.NewBus(nc)

	ledger := service.NewCoinLedger(store, cache, bus, service.Options{
		MineAmount:    cfg.MineAmount,
		Cooldown:      cfg.Cooldown(),
		ReferralBonus: cfg.ReferralBonus,
		AdminIDs:      cfg.AdminSet(),
	}, logger)

	bot, err := telegram.New(cfg, ledger, logger)
	if err != nil {
		return nil, runCleanup(cleanupFns), err
	}

	servers := []Server{
		bot,
		worker.NewClaimWorker(ledger, nc, logger),
	}
	if addr, apiErr := cfg.ApiAddr(); apiErr == nil {
		servers = append(servers, http.NewServer(addr, ledger, cfg.LeaderboardSize))
	}

	return NewApp(servers), runCleanup(cleanupFns), nil
}

// runCleanup returns a single function that calls all cleanup functions in
// reverse order.
func runCleanup(fns []func()) func() {
	return func() {
		for i := len(fns) - 1; i >= 0; i-- {
			fns[i]()
		}
	}
}
