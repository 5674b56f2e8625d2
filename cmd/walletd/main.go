// Package main runs the custodial wallet service: key custody, lazy account
// deployment and transfer/swap/bridge execution behind a small HTTP API.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"stark-wallet/internal/aggregator"
	"stark-wallet/internal/bridge"
	"stark-wallet/internal/config"
	"stark-wallet/internal/custody"
	"stark-wallet/internal/deploy"
	"stark-wallet/internal/domain"
	"stark-wallet/internal/intent"
	"stark-wallet/internal/starkcurve"
	"stark-wallet/internal/starknet"
	"stark-wallet/internal/storage"
	chstore "stark-wallet/internal/storage/clickhouse"
	"stark-wallet/internal/storage/memory"
	"stark-wallet/internal/storage/migrations"
	pgstore "stark-wallet/internal/storage/postgres"
	"stark-wallet/internal/wallet"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cipher, err := custody.NewCipher(cfg.CustodyKey(), cfg.CustodyIV())
	if err != nil {
		logger.Fatal().Err(err).Msg("init custody cipher")
	}

	classHash, err := starkcurve.FromHex(cfg.AccountClassHash)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse account class hash")
	}

	// Chain clients. The WebSocket subscriber is optional; confirmation
	// waits fall back to receipt polling without it.
	var rpcOpts []starknet.ClientOption
	if cfg.WSEndpoint != "" {
		ws, err := starknet.NewWSClient(ctx, cfg.WSEndpoint, nil)
		if err != nil {
			logger.Warn().Err(err).Msg("websocket unavailable, using receipt polling")
		} else {
			defer ws.Close()
			rpcOpts = append(rpcOpts, starknet.WithStatusSubscriber(ws))
		}
	}
	rpc := starknet.NewHTTPClient(cfg.RPCEndpoint, rpcOpts...)

	chainID, err := rpc.ChainID(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("query chain id")
	}
	logger.Info().Str("chain_id", starkcurve.ToHex(chainID)).Msg("connected to node")

	// Storage. Empty Postgres DSN selects the in-memory store.
	var store storage.WalletStore
	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect postgres")
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("run postgres migrations")
		}
		store = pgstore.NewWalletStore(pool)
	} else {
		logger.Warn().Msg("POSTGRES_DSN not set, wallets are held in memory")
		store = memory.NewWalletStore()
	}

	var audit storage.AuditStore
	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("run clickhouse migrations")
		}
		defer conn.Close()
		audit = chstore.NewAuditStore(conn)
	} else {
		audit = memory.NewAuditStore()
	}

	var parser intent.Parser
	if cfg.OpenAIKey != "" {
		parser = intent.NewOpenAIParser(cfg.OpenAIKey, cfg.OpenAIModel, logger)
	}

	svc := wallet.NewService(wallet.Config{
		Store:          store,
		Audit:          audit,
		Cipher:         cipher,
		RPC:            rpc,
		Gatekeeper:     deploy.NewGatekeeper(rpc, cfg.DeployFeeMultiplier, cfg.ConfirmTimeout, logger),
		Aggregator:     aggregator.NewHTTPAggregator(cfg.AggregatorURL, logger),
		Router:         bridge.NewHTTPRouter(cfg.BridgeURL, logger),
		Parser:         parser,
		Assets:         domain.NewAssetRegistry(domain.DefaultAssets()),
		ChainID:        chainID,
		ClassHash:      classHash,
		ConfirmTimeout: cfg.ConfirmTimeout,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      newAPI(svc, logger).routes(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.ConfirmTimeout + 30*time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	logger.Info().Msg("shutdown complete")
}
