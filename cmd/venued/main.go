package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dhkim0428/simple-dex/params"
	"github.com/dhkim0428/simple-dex/pkg/api"
	"github.com/dhkim0428/simple-dex/pkg/ledger"
	"github.com/dhkim0428/simple-dex/pkg/scheduler"
	"github.com/dhkim0428/simple-dex/pkg/store"
	"github.com/dhkim0428/simple-dex/pkg/util"
	"github.com/dhkim0428/simple-dex/pkg/venue"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")

	logger, err := util.NewLoggerWithFile(cfg.Node.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Node.LogFile)

	// ---- Persistence ----
	db, err := store.Open(cfg.Node.DBPath)
	if err != nil {
		sugar.Fatalw("db_open_failed", "path", cfg.Node.DBPath, "err", err)
	}
	defer db.Close()
	orders := store.NewOrders(db)
	balanceStore := store.NewBalances(db)

	// ---- Settlement contract ----
	if !common.IsHexAddress(cfg.Ledger.ContractAddress) {
		sugar.Fatalw("invalid_contract_address", "address", cfg.Ledger.ContractAddress)
	}
	chain, err := ledger.DialEVM(ledger.EVMConfig{
		RPCURL:          cfg.Ledger.RPCURL,
		ContractAddress: common.HexToAddress(cfg.Ledger.ContractAddress),
		PrivateKey:      cfg.Ledger.PrivateKey,
		ChainID:         cfg.Ledger.ChainID,
	}, sugar)
	if err != nil {
		sugar.Fatalw("ledger_dial_failed", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if deployed, err := chain.Deployed(ctx); err != nil {
		sugar.Warnw("contract_probe_failed", "err", err)
	} else if !deployed {
		sugar.Warnw("contract_not_deployed", "address", cfg.Ledger.ContractAddress)
	}

	// ---- Core ----
	clock := util.RealClock{}
	balances := venue.NewBalanceCache(balanceStore, chain, clock, cfg.Venue.BalanceMaxAge, sugar)
	settler := venue.NewCoordinator(orders, balances, chain, clock, cfg.Venue.SettleTimeout, sugar)
	engine := venue.NewEngine(orders, settler, nil, sugar)
	svc := venue.NewService(orders, balances, clock, sugar)

	// ---- API ----
	server := api.NewServer(svc, balances, sugar)
	go func() {
		if err := server.Start(cfg.Node.APIAddr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	// ---- Sweep scheduler ----
	driver := scheduler.New(engine, server, cfg.Venue.SweepInterval, sugar)
	driver.Start()
	sugar.Infow("venue_started",
		"api", cfg.Node.APIAddr,
		"sweep_interval", cfg.Venue.SweepInterval.String(),
		"contract", cfg.Ledger.ContractAddress)

	<-ctx.Done()
	sugar.Infow("shutting_down")
	if err := driver.Stop(); err != nil {
		sugar.Errorw("scheduler_stop_failed", "err", err)
	}
}
