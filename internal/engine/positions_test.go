package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terzinodays/arbiter-go/internal/config"
	"github.com/terzinodays/arbiter-go/internal/exchange"
	"github.com/terzinodays/arbiter-go/internal/models"
)

// stubExecutor fills orders at a fixed price with a fixed fee.
type stubExecutor struct {
	buyPrice  float64
	sellPrice float64
	fee       float64
	buyErr    error
	sellErr   error

	buys  int
	sells int
}

func (e *stubExecutor) MarketBuy(_ context.Context, exchangeID, symbol string, quoteAmount float64) (*exchange.Fill, error) {
	e.buys++
	if e.buyErr != nil {
		return nil, e.buyErr
	}
	return &exchange.Fill{
		Exchange:   exchangeID,
		Symbol:     symbol,
		Price:      e.buyPrice,
		Quantity:   (quoteAmount - e.fee) / e.buyPrice,
		Fee:        e.fee,
		OrderID:    "buy-order",
		ExecutedAt: time.Now(),
	}, nil
}

func (e *stubExecutor) MarketSell(_ context.Context, exchangeID, symbol string, quantity float64) (*exchange.Fill, error) {
	e.sells++
	if e.sellErr != nil {
		return nil, e.sellErr
	}
	return &exchange.Fill{
		Exchange:   exchangeID,
		Symbol:     symbol,
		Price:      e.sellPrice,
		Quantity:   quantity,
		Fee:        e.fee,
		OrderID:    "sell-order",
		ExecutedAt: time.Now(),
	}, nil
}

// captureRecorder collects everything recorded through it.
type captureRecorder struct {
	trades   []models.TradeRecord
	alerts   []models.Alert
	tradeErr error
}

func (r *captureRecorder) RecordTrade(_ context.Context, trade models.TradeRecord) error {
	if r.tradeErr != nil {
		return r.tradeErr
	}
	r.trades = append(r.trades, trade)
	return nil
}

func (r *captureRecorder) RecordAlert(_ context.Context, alert models.Alert) error {
	r.alerts = append(r.alerts, alert)
	return nil
}

func bookConfig() config.EngineConfig {
	return config.EngineConfig{
		SizeFraction:     0.1,
		MinTradeAmount:   5.0,
		MaxTradeAmount:   15.0,
		MaxPositionSize:  15.0,
		MaxTradesPerHour: 10,
		MaxDailyLoss:     5.0,
		MaxOpenPositions: 3,
		StopLossPct:      0.02,
		TakeProfitPct:    0.008,
		MaxHoldSeconds:   300,
	}
}

func testOpportunity() models.Opportunity {
	return models.Opportunity{
		Symbol:       "BTC/USDT",
		BuyExchange:  "binance",
		SellExchange: "kraken",
		BuyPrice:     100.0,
		SellPrice:    100.5,
		Spread:       0.005,
		DetectedAt:   time.Now(),
	}
}

func newTestBook(executor *stubExecutor, gateway *stubGateway, recorder Recorder) (*PositionBook, *RiskGate) {
	cfg := bookConfig()
	risk := NewRiskGate(cfg, quietLogger())
	book := NewPositionBook(gateway, executor, recorder, risk, cfg, quietLogger())
	return book, risk
}

func TestOpenCreatesPositionWithExitLevels(t *testing.T) {
	executor := &stubExecutor{buyPrice: 100.0, fee: 0.01}
	recorder := &captureRecorder{}
	book, risk := newTestBook(executor, &stubGateway{}, recorder)

	require.True(t, risk.TryOpen("BTC/USDT", 100.0).Approved)
	position, err := book.Open(context.Background(), testOpportunity(), 10.0)
	require.NoError(t, err)

	assert.InDelta(t, 98.0, position.StopLoss, 1e-9)
	assert.InDelta(t, 100.8, position.TakeProfit, 1e-9)
	assert.InDelta(t, (10.0-0.01)/100.0, position.Quantity, 1e-9)
	assert.Equal(t, "binance", position.BuyExchange)
	assert.Equal(t, "kraken", position.SellExchange)
	assert.Equal(t, 1, book.Count())

	require.Len(t, recorder.trades, 1)
	assert.Equal(t, models.SideBuy, recorder.trades[0].Side)
	assert.Equal(t, "buy-order", recorder.trades[0].OrderID)
	assert.Nil(t, recorder.trades[0].ProfitLoss)
}

func TestOpenReleasesRiskReservationOnBuyFailure(t *testing.T) {
	executor := &stubExecutor{buyErr: errors.New("exchange rejected order")}
	book, risk := newTestBook(executor, &stubGateway{}, &captureRecorder{})

	require.True(t, risk.TryOpen("BTC/USDT", 100.0).Approved)
	_, err := book.Open(context.Background(), testOpportunity(), 10.0)
	require.Error(t, err)

	assert.Equal(t, 0, book.Count())
	assert.Equal(t, 0, risk.Metrics().OpenPositions)
}

func TestEvaluateClosesOnStopLoss(t *testing.T) {
	executor := &stubExecutor{buyPrice: 100.0, sellPrice: 97.9, fee: 0.01}
	gateway := &stubGateway{quotes: map[string]map[string]*models.Quote{
		"kraken": {"BTC/USDT": quoteFor("kraken", "BTC/USDT", 97.9, 98.0, 50)},
	}}
	recorder := &captureRecorder{}
	book, risk := newTestBook(executor, gateway, recorder)

	require.True(t, risk.TryOpen("BTC/USDT", 100.0).Approved)
	position, err := book.Open(context.Background(), testOpportunity(), 10.0)
	require.NoError(t, err)

	closed := book.EvaluateAll(context.Background())

	assert.Equal(t, 1, closed)
	assert.Equal(t, 0, book.Count())
	assert.Equal(t, 0, risk.Metrics().OpenPositions)

	require.Len(t, recorder.trades, 2)
	sell := recorder.trades[1]
	assert.Equal(t, models.SideSell, sell.Side)
	assert.Equal(t, string(models.CloseStopLoss), sell.Reason)
	require.NotNil(t, sell.ProfitLoss)
	wantPL := 97.9*position.Quantity - 100.0*position.Quantity - 0.01 - 0.01
	assert.InDelta(t, wantPL, *sell.ProfitLoss, 1e-9)
	assert.Negative(t, *sell.ProfitLoss)

	require.Len(t, recorder.alerts, 1)
	assert.Equal(t, models.AlertWarning, recorder.alerts[0].Severity)
}

func TestEvaluateClosesAtTakeProfitBoundary(t *testing.T) {
	// Bid exactly at the take-profit level closes the position.
	executor := &stubExecutor{buyPrice: 100.0, sellPrice: 100.8, fee: 0.01}
	gateway := &stubGateway{quotes: map[string]map[string]*models.Quote{
		"kraken": {"BTC/USDT": quoteFor("kraken", "BTC/USDT", 100.8, 100.9, 50)},
	}}
	recorder := &captureRecorder{}
	book, risk := newTestBook(executor, gateway, recorder)

	require.True(t, risk.TryOpen("BTC/USDT", 100.0).Approved)
	_, err := book.Open(context.Background(), testOpportunity(), 10.0)
	require.NoError(t, err)

	assert.Equal(t, 1, book.EvaluateAll(context.Background()))
	require.Len(t, recorder.trades, 2)
	assert.Equal(t, string(models.CloseProfitTarget), recorder.trades[1].Reason)
	require.Len(t, recorder.alerts, 1)
	assert.Equal(t, models.AlertSuccess, recorder.alerts[0].Severity)
}

func TestEvaluateClosesOnTimeExit(t *testing.T) {
	executor := &stubExecutor{buyPrice: 100.0, sellPrice: 100.1, fee: 0.01}
	gateway := &stubGateway{quotes: map[string]map[string]*models.Quote{
		"kraken": {"BTC/USDT": quoteFor("kraken", "BTC/USDT", 100.1, 100.2, 50)},
	}}
	recorder := &captureRecorder{}
	book, risk := newTestBook(executor, gateway, recorder)

	require.True(t, risk.TryOpen("BTC/USDT", 100.0).Approved)
	position, err := book.Open(context.Background(), testOpportunity(), 10.0)
	require.NoError(t, err)

	// Holding time exactly at the limit triggers the exit.
	book.now = func() time.Time { return position.OpenedAt.Add(300 * time.Second) }

	assert.Equal(t, 1, book.EvaluateAll(context.Background()))
	require.Len(t, recorder.trades, 2)
	assert.Equal(t, string(models.CloseTimeExit), recorder.trades[1].Reason)
}

func TestEvaluateHoldsInsideExitBand(t *testing.T) {
	executor := &stubExecutor{buyPrice: 100.0, sellPrice: 100.1, fee: 0.01}
	gateway := &stubGateway{quotes: map[string]map[string]*models.Quote{
		"kraken": {"BTC/USDT": quoteFor("kraken", "BTC/USDT", 100.1, 100.2, 50)},
	}}
	book, risk := newTestBook(executor, gateway, &captureRecorder{})

	require.True(t, risk.TryOpen("BTC/USDT", 100.0).Approved)
	_, err := book.Open(context.Background(), testOpportunity(), 10.0)
	require.NoError(t, err)

	assert.Equal(t, 0, book.EvaluateAll(context.Background()))
	assert.Equal(t, 1, book.Count())
}

func TestEvaluateSkipsPositionWithoutQuote(t *testing.T) {
	executor := &stubExecutor{buyPrice: 100.0, sellPrice: 100.1, fee: 0.01}
	gateway := &stubGateway{}
	book, risk := newTestBook(executor, gateway, &captureRecorder{})

	require.True(t, risk.TryOpen("BTC/USDT", 100.0).Approved)
	_, err := book.Open(context.Background(), testOpportunity(), 10.0)
	require.NoError(t, err)

	assert.Equal(t, 0, book.EvaluateAll(context.Background()))
	assert.Equal(t, 1, book.Count())
}

func TestEvaluateRetainsPositionWhenSellFails(t *testing.T) {
	executor := &stubExecutor{buyPrice: 100.0, fee: 0.01}
	gateway := &stubGateway{quotes: map[string]map[string]*models.Quote{
		"kraken": {"BTC/USDT": quoteFor("kraken", "BTC/USDT", 97.0, 97.1, 50)},
	}}
	book, risk := newTestBook(executor, gateway, &captureRecorder{})

	require.True(t, risk.TryOpen("BTC/USDT", 100.0).Approved)
	_, err := book.Open(context.Background(), testOpportunity(), 10.0)
	require.NoError(t, err)

	executor.sellErr = errors.New("order book gone")
	assert.Equal(t, 0, book.EvaluateAll(context.Background()))
	assert.Equal(t, 1, book.Count())
	assert.Equal(t, 1, risk.Metrics().OpenPositions)

	// Next tick with a working executor closes it.
	executor.sellErr = nil
	executor.sellPrice = 97.0
	assert.Equal(t, 1, book.EvaluateAll(context.Background()))
	assert.Equal(t, 0, book.Count())
}

func TestRoundTripLosesOnlyFeesAtFlatPrice(t *testing.T) {
	executor := &stubExecutor{buyPrice: 100.0, sellPrice: 100.0, fee: 0.01}
	gateway := &stubGateway{quotes: map[string]map[string]*models.Quote{
		"kraken": {"BTC/USDT": quoteFor("kraken", "BTC/USDT", 100.0, 100.1, 50)},
	}}
	recorder := &captureRecorder{}
	book, risk := newTestBook(executor, gateway, recorder)

	require.True(t, risk.TryOpen("BTC/USDT", 100.0).Approved)
	position, err := book.Open(context.Background(), testOpportunity(), 10.0)
	require.NoError(t, err)

	book.now = func() time.Time { return position.OpenedAt.Add(time.Hour) }
	require.Equal(t, 1, book.EvaluateAll(context.Background()))

	sell := recorder.trades[1]
	require.NotNil(t, sell.ProfitLoss)
	assert.InDelta(t, -0.02, *sell.ProfitLoss, 1e-9)
}

func TestRecorderFailureDoesNotBlockClose(t *testing.T) {
	executor := &stubExecutor{buyPrice: 100.0, sellPrice: 97.0, fee: 0.01}
	gateway := &stubGateway{quotes: map[string]map[string]*models.Quote{
		"kraken": {"BTC/USDT": quoteFor("kraken", "BTC/USDT", 97.0, 97.1, 50)},
	}}
	recorder := &captureRecorder{tradeErr: errors.New("database unavailable")}
	book, risk := newTestBook(executor, gateway, recorder)

	require.True(t, risk.TryOpen("BTC/USDT", 100.0).Approved)
	_, err := book.Open(context.Background(), testOpportunity(), 10.0)
	require.NoError(t, err)

	assert.Equal(t, 1, book.EvaluateAll(context.Background()))
	assert.Equal(t, 0, book.Count())
	assert.Empty(t, recorder.trades)
}

func TestSnapshotOrdersByOpenTime(t *testing.T) {
	executor := &stubExecutor{buyPrice: 100.0, fee: 0.01}
	book, risk := newTestBook(executor, &stubGateway{}, &captureRecorder{})

	for _, symbol := range []string{"BTC/USDT", "ETH/USDT", "SOL/USDT"} {
		opp := testOpportunity()
		opp.Symbol = symbol
		require.True(t, risk.TryOpen(symbol, 100.0).Approved)
		_, err := book.Open(context.Background(), opp, 10.0)
		require.NoError(t, err)
	}

	snapshot := book.Snapshot()
	require.Len(t, snapshot, 3)
	for i := 1; i < len(snapshot); i++ {
		assert.False(t, snapshot[i].OpenedAt.Before(snapshot[i-1].OpenedAt))
	}
}
