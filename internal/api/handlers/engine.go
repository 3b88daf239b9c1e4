package handlers

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/terzinodays/arbiter-go/internal/engine"
	"github.com/terzinodays/arbiter-go/internal/models"
)

// EngineHandler exposes the engine control surface and scan results.
type EngineHandler struct {
	engine  *engine.Engine
	signals *engine.SignalScanner
}

// OpportunityResponse is an opportunity with percentages rendered as
// decimal percentage units for API consumers.
type OpportunityResponse struct {
	Symbol          string          `json:"symbol"`
	BuyExchange     string          `json:"buy_exchange"`
	SellExchange    string          `json:"sell_exchange"`
	BuyPrice        decimal.Decimal `json:"buy_price"`
	SellPrice       decimal.Decimal `json:"sell_price"`
	SpreadPercent   decimal.Decimal `json:"spread_percent"`
	EstimatedProfit decimal.Decimal `json:"estimated_profit"`
	DetectedAt      time.Time       `json:"detected_at"`
}

type OpportunitiesResponse struct {
	Opportunities []OpportunityResponse `json:"opportunities"`
	Count         int                   `json:"count"`
	Timestamp     time.Time             `json:"timestamp"`
}

func NewEngineHandler(eng *engine.Engine, signals *engine.SignalScanner) *EngineHandler {
	return &EngineHandler{engine: eng, signals: signals}
}

// Start launches the trading loop. Starting an already-running engine is a
// conflict, not a server error.
func (h *EngineHandler) Start(c *gin.Context) {
	if err := h.engine.Start(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "started"})
}

func (h *EngineHandler) Stop(c *gin.Context) {
	h.engine.Stop()
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

func (h *EngineHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.GetStatus())
}

func (h *EngineHandler) Positions(c *gin.Context) {
	positions := h.engine.Positions()
	c.JSON(http.StatusOK, gin.H{
		"positions": positions,
		"count":     len(positions),
	})
}

// Opportunities returns the latest scan results, optionally re-filtered by
// a stricter min_spread query parameter (percentage units).
func (h *EngineHandler) Opportunities(c *gin.Context) {
	minSpreadStr := c.DefaultQuery("min_spread", "0")
	limitStr := c.DefaultQuery("limit", "50")

	minSpreadPercent, err := strconv.ParseFloat(minSpreadStr, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid min_spread parameter"})
		return
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
		return
	}

	minSpread := minSpreadPercent / 100

	opportunities := h.engine.Opportunities()
	responses := make([]OpportunityResponse, 0, len(opportunities))
	for _, opp := range opportunities {
		if opp.Spread < minSpread {
			continue
		}
		responses = append(responses, toOpportunityResponse(opp))
		if len(responses) >= limit {
			break
		}
	}

	c.JSON(http.StatusOK, OpportunitiesResponse{
		Opportunities: responses,
		Count:         len(responses),
		Timestamp:     time.Now(),
	})
}

// Signals runs the momentum scan and returns the readings sorted by
// volatility, most active symbols first.
func (h *EngineHandler) Signals(c *gin.Context) {
	signals := h.signals.Scan()
	sort.Slice(signals, func(i, j int) bool {
		return signals[i].Volatility > signals[j].Volatility
	})

	c.JSON(http.StatusOK, gin.H{
		"signals":   signals,
		"count":     len(signals),
		"timestamp": time.Now(),
	})
}

func toOpportunityResponse(opp models.Opportunity) OpportunityResponse {
	return OpportunityResponse{
		Symbol:          opp.Symbol,
		BuyExchange:     opp.BuyExchange,
		SellExchange:    opp.SellExchange,
		BuyPrice:        decimal.NewFromFloat(opp.BuyPrice),
		SellPrice:       decimal.NewFromFloat(opp.SellPrice),
		SpreadPercent:   decimal.NewFromFloat(opp.Spread * 100),
		EstimatedProfit: decimal.NewFromFloat(opp.EstimatedProfit),
		DetectedAt:      opp.DetectedAt,
	}
}
