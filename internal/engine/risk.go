package engine

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/terzinodays/arbiter-go/internal/config"
)

// Rejection reasons reported in Decision.Reason. The first failing check
// short-circuits and becomes the reported reason.
const (
	ReasonInsufficientBalance = "insufficient_balance"
	ReasonHourlyLimit         = "hourly_limit"
	ReasonDailyLossLimit      = "daily_loss_limit"
	ReasonPositionLimit       = "position_limit"
	ReasonPositionSizeLimit   = "position_size_limit"
)

// Decision is the outcome of a risk-gate evaluation. A rejection is a normal
// negative decision, not an error.
type Decision struct {
	Approved bool    `json:"approved"`
	Amount   float64 `json:"amount"`
	Reason   string  `json:"reason,omitempty"`
}

// RiskMetrics is a point-in-time snapshot of risk-state utilization.
type RiskMetrics struct {
	OpenPositions    int     `json:"open_positions"`
	MaxOpenPositions int     `json:"max_open_positions"`
	RecentTrades1h   int     `json:"recent_trades_1h"`
	MaxTradesPerHour int     `json:"max_trades_per_hour"`
	DailyLoss        float64 `json:"daily_loss"`
	MaxDailyLoss     float64 `json:"max_daily_loss"`
}

// RiskGate sizes candidate trades and enforces frequency, loss and exposure
// limits before a position may open. Day boundaries for the loss accumulator
// are UTC calendar days.
type RiskGate struct {
	cfg    config.EngineConfig
	logger *logrus.Logger

	mu          sync.Mutex
	tradeTimes  map[string][]time.Time
	dailyLosses map[time.Time]float64
	openSymbols map[string]int

	now func() time.Time
}

// NewRiskGate creates a gate with empty state.
func NewRiskGate(cfg config.EngineConfig, logger *logrus.Logger) *RiskGate {
	if logger == nil {
		logger = logrus.New()
	}
	return &RiskGate{
		cfg:         cfg,
		logger:      logger,
		tradeTimes:  make(map[string][]time.Time),
		dailyLosses: make(map[time.Time]float64),
		openSymbols: make(map[string]int),
		now:         time.Now,
	}
}

// TryOpen sizes the candidate trade and runs the risk checks in order.
// On approval the intended symbol is reserved in the open set; actual
// position creation is the caller's responsibility, and the caller must
// call ReleaseOpen if the buy fails so the reservation is not leaked.
func (g *RiskGate) TryOpen(symbol string, availableBalance float64) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	if availableBalance < g.cfg.MinTradeAmount {
		return Decision{Reason: ReasonInsufficientBalance}
	}

	amount := clamp(availableBalance*g.cfg.SizeFraction, g.cfg.MinTradeAmount, g.cfg.MaxTradeAmount)

	if g.recentTradesLocked(symbol, time.Hour) >= g.cfg.MaxTradesPerHour {
		return Decision{Amount: amount, Reason: ReasonHourlyLimit}
	}
	if g.dailyLosses[utcDay(g.now())] >= g.cfg.MaxDailyLoss {
		return Decision{Amount: amount, Reason: ReasonDailyLossLimit}
	}
	if g.openCountLocked() >= g.cfg.MaxOpenPositions {
		return Decision{Amount: amount, Reason: ReasonPositionLimit}
	}
	if amount > g.cfg.MaxPositionSize {
		return Decision{Amount: amount, Reason: ReasonPositionSizeLimit}
	}

	g.openSymbols[symbol]++
	return Decision{Approved: true, Amount: amount}
}

// RecordOpen registers an executed buy for trade-frequency tracking.
func (g *RiskGate) RecordOpen(symbol string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.appendTradeLocked(symbol)
}

// ReleaseOpen undoes the reservation made by an approving TryOpen when the
// buy did not execute.
func (g *RiskGate) ReleaseOpen(symbol string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.openSymbols[symbol] == 0 {
		g.logger.WithField("symbol", symbol).Error("ReleaseOpen without matching reservation")
		return
	}
	g.openSymbols[symbol]--
	if g.openSymbols[symbol] == 0 {
		delete(g.openSymbols, symbol)
	}
}

// RecordClose registers an executed sell. A negative profitLoss feeds the
// UTC-day loss accumulator; entries older than 7 days are dropped.
func (g *RiskGate) RecordClose(symbol string, profitLoss float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.appendTradeLocked(symbol)

	if g.openSymbols[symbol] == 0 {
		g.logger.WithField("symbol", symbol).Error("RecordClose for symbol with no open reservation")
	} else {
		g.openSymbols[symbol]--
		if g.openSymbols[symbol] == 0 {
			delete(g.openSymbols, symbol)
		}
	}

	if profitLoss < 0 {
		day := utcDay(g.now())
		g.dailyLosses[day] += -profitLoss

		weekAgo := day.AddDate(0, 0, -7)
		for d := range g.dailyLosses {
			if d.Before(weekAgo) {
				delete(g.dailyLosses, d)
			}
		}
	}
}

// Metrics returns current risk utilization for the status API.
func (g *RiskGate) Metrics() RiskMetrics {
	g.mu.Lock()
	defer g.mu.Unlock()

	recent := 0
	cutoff := g.now().Add(-time.Hour)
	for _, times := range g.tradeTimes {
		for _, t := range times {
			if t.After(cutoff) {
				recent++
			}
		}
	}

	return RiskMetrics{
		OpenPositions:    g.openCountLocked(),
		MaxOpenPositions: g.cfg.MaxOpenPositions,
		RecentTrades1h:   recent,
		MaxTradesPerHour: g.cfg.MaxTradesPerHour,
		DailyLoss:        g.dailyLosses[utcDay(g.now())],
		MaxDailyLoss:     g.cfg.MaxDailyLoss,
	}
}

func (g *RiskGate) appendTradeLocked(symbol string) {
	now := g.now()
	cutoff := now.Add(-24 * time.Hour)

	kept := g.tradeTimes[symbol][:0]
	for _, t := range g.tradeTimes[symbol] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	g.tradeTimes[symbol] = append(kept, now)
}

func (g *RiskGate) recentTradesLocked(symbol string, window time.Duration) int {
	cutoff := g.now().Add(-window)
	count := 0
	for _, t := range g.tradeTimes[symbol] {
		if t.After(cutoff) {
			count++
		}
	}
	return count
}

func (g *RiskGate) openCountLocked() int {
	total := 0
	for _, n := range g.openSymbols {
		total += n
	}
	return total
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func utcDay(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}
