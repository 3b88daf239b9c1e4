package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/terzinodays/arbiter-go/internal/api/handlers"
	"github.com/terzinodays/arbiter-go/internal/database"
	"github.com/terzinodays/arbiter-go/internal/engine"
	"github.com/terzinodays/arbiter-go/internal/recorder"
	"github.com/terzinodays/arbiter-go/internal/services"
	"github.com/terzinodays/arbiter-go/internal/telemetry"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Services  Services  `json:"services"`
}

type Services struct {
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// Dependencies carries everything the route handlers need.
type Dependencies struct {
	DB      *database.PostgresDB
	Redis   *database.RedisClient
	Engine  *engine.Engine
	Signals *engine.SignalScanner
	Store   *recorder.TradeStore
	Monitor *services.MonitorService
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	router.Use(otelgin.Middleware(telemetry.ServiceName))

	router.GET("/health", healthCheck(deps.DB, deps.Redis))

	engineHandler := handlers.NewEngineHandler(deps.Engine, deps.Signals)
	tradeHandler := handlers.NewTradeHandler(deps.Store)
	systemHandler := handlers.NewSystemHandler(deps.Monitor)
	streamHandler := handlers.NewStreamHandler(deps.Engine)

	v1 := router.Group("/api/v1")
	{
		eng := v1.Group("/engine")
		{
			eng.POST("/start", engineHandler.Start)
			eng.POST("/stop", engineHandler.Stop)
			eng.GET("/status", engineHandler.Status)
			eng.GET("/positions", engineHandler.Positions)
		}

		arbitrage := v1.Group("/arbitrage")
		{
			arbitrage.GET("/opportunities", engineHandler.Opportunities)
			arbitrage.GET("/signals", engineHandler.Signals)
		}

		trades := v1.Group("/trades")
		{
			trades.GET("", tradeHandler.RecentTrades)
			trades.GET("/stats", tradeHandler.DailyStats)
		}

		v1.GET("/alerts", tradeHandler.RecentAlerts)
		v1.GET("/system/status", systemHandler.Status)
	}

	router.GET("/ws", streamHandler.Stream)
}

func healthCheck(db *database.PostgresDB, redis *database.RedisClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		response := HealthResponse{
			Status:    "ok",
			Timestamp: time.Now(),
			Version:   "1.0.0",
			Services: Services{
				Database: "ok",
				Redis:    "ok",
			},
		}

		if err := db.HealthCheck(c.Request.Context()); err != nil {
			response.Services.Database = "error"
			response.Status = "degraded"
		}

		if err := redis.HealthCheck(c.Request.Context()); err != nil {
			response.Services.Redis = "error"
			response.Status = "degraded"
		}

		status := http.StatusOK
		if response.Status != "ok" {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, response)
	}
}
