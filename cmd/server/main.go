package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/terzinodays/arbiter-go/internal/api"
	"github.com/terzinodays/arbiter-go/internal/config"
	"github.com/terzinodays/arbiter-go/internal/database"
	"github.com/terzinodays/arbiter-go/internal/engine"
	"github.com/terzinodays/arbiter-go/internal/exchange"
	"github.com/terzinodays/arbiter-go/internal/logging"
	"github.com/terzinodays/arbiter-go/internal/recorder"
	"github.com/terzinodays/arbiter-go/internal/services"
	"github.com/terzinodays/arbiter-go/internal/telemetry"
)

const version = "1.0.0"

func main() {
	// Optional .env for local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.NewStandardLogger(cfg.LogLevel, cfg.Environment)
	serviceLogger := logging.NewLogrusLogger(cfg.LogLevel)

	shutdownTracing, err := telemetry.Setup(context.Background())
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redis, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	// The simulator always executes fills; in http mode it trades on live
	// quotes from the sidecar instead of its own simulated market.
	simulator := exchange.NewSimulator(exchange.SimulatorConfig{
		FeeRate:         cfg.Engine.FeeRate,
		MaxSlippagePct:  cfg.Engine.MaxSlippagePct,
		StartingBalance: cfg.Engine.StartingBalance,
	}, serviceLogger)

	var base exchange.Gateway = simulator
	if cfg.Gateway.Mode == "http" {
		base = exchange.NewHTTPGateway(cfg.Gateway, serviceLogger)
	}
	gateway := exchange.NewCachedGateway(base, redis.Client, cfg.Gateway.CacheTTL(), serviceLogger)

	store := recorder.NewTradeStore(db.Pool, serviceLogger)
	notifier := recorder.NewTelegramNotifier(cfg.Telegram, serviceLogger)
	sink := recorder.NewSink(store, notifier)

	riskGate := engine.NewRiskGate(cfg.Engine, serviceLogger)
	scanner := engine.NewScanner(gateway, cfg.Engine.MinTradeAmount, serviceLogger)
	book := engine.NewPositionBook(gateway, simulator, sink, riskGate, cfg.Engine, serviceLogger)
	tradingEngine := engine.New(cfg.Engine, scanner, riskGate, book, simulator, sink, serviceLogger)
	signalScanner := engine.NewSignalScanner(simulator, cfg.Engine.Symbols, serviceLogger)

	if err := tradingEngine.Start(); err != nil {
		log.Fatalf("Failed to start trading engine: %v", err)
	}

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	api.SetupRoutes(router, api.Dependencies{
		DB:      db,
		Redis:   redis,
		Engine:  tradingEngine,
		Signals: signalScanner,
		Store:   store,
		Monitor: services.NewMonitorService(serviceLogger),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.LogStartup(telemetry.ServiceName, version, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.LogShutdown(telemetry.ServiceName, "signal received")

	tradingEngine.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	if err := shutdownTracing(ctx); err != nil {
		log.Printf("Trace exporter shutdown: %v", err)
	}

	logger.Logger().Info("Server exited")
}
