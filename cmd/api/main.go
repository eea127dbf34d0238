package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"MerchantCheckout/internal/bridge"
	"MerchantCheckout/internal/checkout"
	"MerchantCheckout/internal/config"
	"MerchantCheckout/internal/credentials"
	"MerchantCheckout/internal/db"
	"MerchantCheckout/internal/devices"
	"MerchantCheckout/internal/gateway"
	"MerchantCheckout/internal/httpapi"
	"MerchantCheckout/internal/invoke"
	"MerchantCheckout/internal/settings"
	"MerchantCheckout/internal/store"

	"github.com/facebookgo/clock"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("config load failed")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DB.DSN, cfg.DB.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("db connect failed")
	}
	defer pool.Close()

	st := store.New(pool)
	clk := clock.New()
	invoker := invoke.NewHTTPInvoker(cfg.Functions.BaseURL, cfg.Functions.APIKey)

	merchantID := cfg.Checkout.MerchantID

	credSvc := credentials.NewService(st, logger)
	if _, err := credSvc.Load(ctx, merchantID); err != nil {
		logger.Warn().Err(err).Msg("initial credential load failed")
	}

	settingsCache := settings.NewCache(merchantID, st, settings.NewMemoryCache(), logger)
	if err := settingsCache.LoadFromRemote(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial flag load failed")
	}

	registry := devices.NewRegistry(
		merchantID, st, invoker, clk,
		time.Duration(cfg.Devices.FreshnessMinutes)*time.Minute,
		time.Duration(cfg.Devices.PollIntervalSeconds)*time.Second,
		logger,
	)
	go registry.Run(ctx)

	terminal := bridge.NewTerminalBridge(cfg.Bridge.TerminalEndpoint)
	defer terminal.Close()

	bridgeGW := gateway.NewBridgeGateway(terminal, registry, st, logger)
	if settingsCache.IsBridgeEnabled() {
		if err := bridgeGW.Initialize(ctx, merchantID); err != nil {
			logger.Warn().Err(err).Msg("bridge initialization failed, will retry on the first bridge payment")
		}
	}

	legacyGW := gateway.NewLegacyGateway(
		invoker, st, clk,
		time.Duration(cfg.Checkout.PendingTimeoutSeconds)*time.Second,
		logger,
	)
	cbdcGW := gateway.NewCBDCGateway(invoker, st, logger)

	notify := &gateway.NotifyListener{
		Endpoint: cfg.Notify.WSEndpoint,
		Legacy:   legacyGW,
		Clock:    clk,
		Logger:   logger,
	}
	go notify.Run(ctx)

	orchestrator := checkout.NewOrchestrator(
		settingsCache, bridgeGW, legacyGW, cbdcGW,
		cfg.Checkout.DefaultCurrency, logger,
	)

	handler := &httpapi.Handler{
		MerchantID:   merchantID,
		Orchestrator: orchestrator,
		Legacy:       legacyGW,
		CBDC:         cbdcGW,
		Settings:     settingsCache,
		Credentials:  credSvc,
		Registry:     registry,
		Capabilities: checkout.CredentialCapabilities{Credentials: credSvc},
		Logger:       logger,
	}
	srv := httpapi.NewServer(handler)

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Router,
	}

	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Msg("api listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(ctxShutdown)
}
