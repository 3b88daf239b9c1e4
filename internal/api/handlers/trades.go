package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/terzinodays/arbiter-go/internal/recorder"
)

// TradeHandler serves recorded trade legs, alerts and daily aggregates.
type TradeHandler struct {
	store *recorder.TradeStore
}

func NewTradeHandler(store *recorder.TradeStore) *TradeHandler {
	return &TradeHandler{store: store}
}

func (h *TradeHandler) RecentTrades(c *gin.Context) {
	limit, ok := parseLimit(c, "limit", 50)
	if !ok {
		return
	}

	trades, err := h.store.RecentTrades(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch trades"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"trades":    trades,
		"count":     len(trades),
		"timestamp": time.Now(),
	})
}

func (h *TradeHandler) RecentAlerts(c *gin.Context) {
	limit, ok := parseLimit(c, "limit", 50)
	if !ok {
		return
	}

	alerts, err := h.store.RecentAlerts(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch alerts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts":    alerts,
		"count":     len(alerts),
		"timestamp": time.Now(),
	})
}

func (h *TradeHandler) DailyStats(c *gin.Context) {
	days, ok := parseLimit(c, "days", 7)
	if !ok {
		return
	}

	stats, err := h.store.DailyStats(c.Request.Context(), days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch daily stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":     stats,
		"count":     len(stats),
		"timestamp": time.Now(),
	})
}

func parseLimit(c *gin.Context, name string, fallback int) (int, bool) {
	value, err := strconv.Atoi(c.DefaultQuery(name, strconv.Itoa(fallback)))
	if err != nil || value <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name + " parameter"})
		return 0, false
	}
	return value, true
}
