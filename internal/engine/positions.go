package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/terzinodays/arbiter-go/internal/config"
	"github.com/terzinodays/arbiter-go/internal/exchange"
	"github.com/terzinodays/arbiter-go/internal/models"
)

const strategyTag = "arbitrage"

// PositionBook owns the set of open positions. Positions transition
// OPEN -> CLOSED in a single evaluation tick; fields are fixed at open and
// a position is removed from the set exactly once.
type PositionBook struct {
	gateway  exchange.Gateway
	executor exchange.OrderExecutor
	recorder Recorder
	risk     *RiskGate
	cfg      config.EngineConfig
	logger   *logrus.Logger

	mu   sync.RWMutex
	open map[string]*models.Position

	now func() time.Time
}

// NewPositionBook creates an empty book.
func NewPositionBook(
	gateway exchange.Gateway,
	executor exchange.OrderExecutor,
	recorder Recorder,
	risk *RiskGate,
	cfg config.EngineConfig,
	logger *logrus.Logger,
) *PositionBook {
	if logger == nil {
		logger = logrus.New()
	}
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &PositionBook{
		gateway:  gateway,
		executor: executor,
		recorder: recorder,
		risk:     risk,
		cfg:      cfg,
		logger:   logger,
		open:     make(map[string]*models.Position),
		now:      time.Now,
	}
}

// Open executes a simulated buy for an approved opportunity, records the
// BUY leg and adds the position to the open set. The risk reservation made
// by TryOpen is released if the buy fails.
func (b *PositionBook) Open(ctx context.Context, opp models.Opportunity, amount float64) (*models.Position, error) {
	fill, err := b.executor.MarketBuy(ctx, opp.BuyExchange, opp.Symbol, amount)
	if err != nil {
		b.risk.ReleaseOpen(opp.Symbol)
		return nil, fmt.Errorf("buy on %s failed: %w", opp.BuyExchange, err)
	}

	recordTrade(ctx, b.recorder, b.logger, models.TradeRecord{
		ID:         uuid.New().String(),
		Symbol:     opp.Symbol,
		Side:       models.SideBuy,
		Quantity:   fill.Quantity,
		Price:      fill.Price,
		TotalValue: amount,
		Fee:        fill.Fee,
		Strategy:   strategyTag,
		Exchange:   opp.BuyExchange,
		OrderID:    fill.OrderID,
		ExecutedAt: fill.ExecutedAt,
	})

	position := &models.Position{
		ID:           uuid.New().String(),
		Symbol:       opp.Symbol,
		Quantity:     fill.Quantity,
		BuyPrice:     fill.Price,
		BuyFee:       fill.Fee,
		BuyExchange:  opp.BuyExchange,
		SellExchange: opp.SellExchange,
		StopLoss:     fill.Price * (1 - b.cfg.StopLossPct),
		TakeProfit:   fill.Price * (1 + b.cfg.TakeProfitPct),
		OpenedAt:     fill.ExecutedAt,
	}

	b.mu.Lock()
	b.open[position.ID] = position
	b.mu.Unlock()

	b.risk.RecordOpen(opp.Symbol)

	b.logger.WithFields(logrus.Fields{
		"symbol":      position.Symbol,
		"exchange":    position.BuyExchange,
		"price":       position.BuyPrice,
		"quantity":    position.Quantity,
		"stop_loss":   position.StopLoss,
		"take_profit": position.TakeProfit,
	}).Info("Position opened")

	return position, nil
}

// EvaluateAll re-quotes the sell side of every open position and applies
// the close rules in fixed priority: stop loss, profit target, time exit.
// A failure on one position is logged and skipped so the remaining
// positions are still evaluated; the next tick retries with a fresh quote.
// Returns the number of positions closed.
func (b *PositionBook) EvaluateAll(ctx context.Context) int {
	closed := 0

	for _, position := range b.Snapshot() {
		reason, quote, ok := b.evaluate(ctx, position)
		if !ok || reason == "" {
			continue
		}
		if err := b.close(ctx, position, quote.Bid, reason); err != nil {
			b.logger.WithError(err).WithFields(logrus.Fields{
				"position": position.ID,
				"symbol":   position.Symbol,
			}).Error("Failed to close position, will retry next tick")
			continue
		}
		closed++
	}

	return closed
}

// evaluate decides whether a position should close. The boundary checks are
// inclusive: a bid exactly at take_profit closes with PROFIT_TARGET and an
// elapsed time exactly at the max hold closes with TIME_EXIT.
func (b *PositionBook) evaluate(ctx context.Context, position models.Position) (models.CloseReason, *models.Quote, bool) {
	quote, err := b.gateway.GetQuote(ctx, position.SellExchange, position.Symbol)
	if err != nil {
		b.logger.WithError(err).WithFields(logrus.Fields{
			"position": position.ID,
			"symbol":   position.Symbol,
			"exchange": position.SellExchange,
		}).Warn("Sell-side quote unavailable, skipping position this tick")
		return "", nil, false
	}
	if quote == nil {
		return "", nil, false
	}

	switch {
	case quote.Bid <= position.StopLoss:
		return models.CloseStopLoss, quote, true
	case quote.Bid >= position.TakeProfit:
		return models.CloseProfitTarget, quote, true
	case b.now().Sub(position.OpenedAt) >= b.cfg.MaxHold():
		return models.CloseTimeExit, quote, true
	}

	return "", quote, true
}

// close executes the simulated sell, records the SELL leg with realized
// profit/loss, removes the position from the open set and feeds any loss
// back into the risk state.
func (b *PositionBook) close(ctx context.Context, position models.Position, bid float64, reason models.CloseReason) error {
	b.mu.Lock()
	if _, ok := b.open[position.ID]; !ok {
		b.mu.Unlock()
		// Invariant violation: a position is closed exactly once.
		b.logger.WithFields(logrus.Fields{
			"position": position.ID,
			"symbol":   position.Symbol,
			"reason":   reason,
		}).Error("Close requested for position not in open set, skipping")
		return nil
	}
	b.mu.Unlock()

	fill, err := b.executor.MarketSell(ctx, position.SellExchange, position.Symbol, position.Quantity)
	if err != nil {
		return fmt.Errorf("sell on %s failed: %w", position.SellExchange, err)
	}

	profitLoss := fill.Price*position.Quantity - position.BuyPrice*position.Quantity - position.BuyFee - fill.Fee

	recordTrade(ctx, b.recorder, b.logger, models.TradeRecord{
		ID:         uuid.New().String(),
		Symbol:     position.Symbol,
		Side:       models.SideSell,
		Quantity:   position.Quantity,
		Price:      fill.Price,
		TotalValue: fill.Price * position.Quantity,
		Fee:        fill.Fee,
		Strategy:   strategyTag,
		ProfitLoss: &profitLoss,
		Reason:     string(reason),
		Exchange:   position.SellExchange,
		OrderID:    fill.OrderID,
		ExecutedAt: fill.ExecutedAt,
	})

	b.mu.Lock()
	delete(b.open, position.ID)
	b.mu.Unlock()

	b.risk.RecordClose(position.Symbol, profitLoss)

	severity := models.AlertSuccess
	if profitLoss < 0 {
		severity = models.AlertWarning
	}
	recordAlert(ctx, b.recorder, b.logger, models.Alert{
		Title:    "Position closed",
		Message:  fmt.Sprintf("%s closed (%s): P/L $%.4f", position.Symbol, reason, profitLoss),
		Severity: severity,
	})

	b.logger.WithFields(logrus.Fields{
		"symbol":      position.Symbol,
		"reason":      reason,
		"profit_loss": profitLoss,
		"sell_price":  fill.Price,
		"quoted_bid":  bid,
	}).Info("Position closed")

	return nil
}

// Snapshot returns a copy of the open positions ordered by open time.
func (b *PositionBook) Snapshot() []models.Position {
	b.mu.RLock()
	defer b.mu.RUnlock()

	positions := make([]models.Position, 0, len(b.open))
	for _, p := range b.open {
		positions = append(positions, *p)
	}
	sort.Slice(positions, func(i, j int) bool {
		if positions[i].OpenedAt.Equal(positions[j].OpenedAt) {
			return positions[i].ID < positions[j].ID
		}
		return positions[i].OpenedAt.Before(positions[j].OpenedAt)
	})
	return positions
}

// Count returns the number of open positions.
func (b *PositionBook) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.open)
}
