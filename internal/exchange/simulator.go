package exchange

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/terzinodays/arbiter-go/internal/models"
)

// defaultBasePrices seeds the simulated market. Prices drift around these
// anchors with small random fluctuations per quote.
var defaultBasePrices = map[string]float64{
	"BTCUSDT":  43500.0,
	"ETHUSDT":  2650.0,
	"ADAUSDT":  0.485,
	"DOTUSDT":  7.32,
	"LINKUSDT": 14.85,
	"LTCUSDT":  72.50,
	"XLMUSDT":  0.125,
	"VETUSDT":  0.0285,
	"TRXUSDT":  0.095,
	"EOSUSDT":  0.875,
	"XRPUSDT":  0.545,
	"SOLUSDT":  98.50,
	"AVAXUSDT": 38.50,
	"ATOMUSDT": 9.85,
	"NEARUSDT": 3.45,
}

// SimulatorConfig tunes fill behavior of the simulated venue.
type SimulatorConfig struct {
	FeeRate         float64
	MaxSlippagePct  float64
	StartingBalance float64
	Seed            int64
}

// Simulator is an in-memory exchange venue. It serves quotes for any number
// of exchange names, fills market orders with bounded slippage and a taker
// fee, and tracks a single shared quote-asset balance pool.
type Simulator struct {
	cfg        SimulatorConfig
	basePrices map[string]float64
	balances   map[string]float64

	mu     sync.Mutex
	rng    *rand.Rand
	logger *logrus.Logger
}

var _ Gateway = (*Simulator)(nil)
var _ OrderExecutor = (*Simulator)(nil)
var _ CandleSource = (*Simulator)(nil)

// NewSimulator creates a simulator with the default symbol universe.
func NewSimulator(cfg SimulatorConfig, logger *logrus.Logger) *Simulator {
	if logger == nil {
		logger = logrus.New()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	prices := make(map[string]float64, len(defaultBasePrices))
	for symbol, price := range defaultBasePrices {
		prices[symbol] = price
	}

	return &Simulator{
		cfg:        cfg,
		basePrices: prices,
		balances:   map[string]float64{"USDT": cfg.StartingBalance},
		rng:        rand.New(rand.NewSource(seed)),
		logger:     logger,
	}
}

func (s *Simulator) Name() string { return "simulator" }

// SetBasePrice pins the anchor price for a symbol. Used by tests and demo
// setups to force specific market shapes.
func (s *Simulator) SetBasePrice(symbol string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.basePrices[symbol] = price
}

// GetQuote returns a fresh quote for the symbol on the named exchange, or
// (nil, nil) when the symbol is not listed.
func (s *Simulator) GetQuote(_ context.Context, exchangeID, symbol string) (*models.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	base, ok := s.basePrices[symbol]
	if !ok {
		return nil, nil
	}

	// ±0.1% fluctuation around the anchor, then a 0.05%-0.3% book spread.
	price := base * (1 + s.uniform(-0.001, 0.001))
	spread := price * s.uniform(0.0005, 0.003)

	return &models.Quote{
		Exchange:  exchangeID,
		Symbol:    symbol,
		Bid:       price - spread/2,
		Ask:       price + spread/2,
		Last:      price,
		Volume:    s.uniform(0.1, 10.0),
		Timestamp: time.Now(),
	}, nil
}

// MarketBuy fills a buy order spending quoteAmount USDT.
func (s *Simulator) MarketBuy(_ context.Context, exchangeID, symbol string, quoteAmount float64) (*Fill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	base, ok := s.basePrices[symbol]
	if !ok {
		return nil, fmt.Errorf("symbol %s not listed on %s", symbol, exchangeID)
	}
	if s.balances["USDT"] < quoteAmount {
		return nil, fmt.Errorf("insufficient USDT balance: have %.2f, need %.2f", s.balances["USDT"], quoteAmount)
	}

	price := base * (1 + s.uniform(-0.001, 0.001))
	executed := price * (1 + s.uniform(0, s.cfg.MaxSlippagePct))
	quantity := quoteAmount / executed
	fee := quoteAmount * s.cfg.FeeRate

	s.balances["USDT"] -= quoteAmount
	asset := baseAsset(symbol)
	s.balances[asset] += quantity

	s.logger.WithFields(logrus.Fields{
		"exchange": exchangeID,
		"symbol":   symbol,
		"price":    executed,
		"quantity": quantity,
	}).Debug("Simulated buy filled")

	return &Fill{
		Exchange:   exchangeID,
		Symbol:     symbol,
		Price:      executed,
		Quantity:   quantity,
		Fee:        fee,
		OrderID:    uuid.New().String(),
		ExecutedAt: time.Now(),
	}, nil
}

// MarketSell fills a sell order for quantity units of the base asset.
func (s *Simulator) MarketSell(_ context.Context, exchangeID, symbol string, quantity float64) (*Fill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	base, ok := s.basePrices[symbol]
	if !ok {
		return nil, fmt.Errorf("symbol %s not listed on %s", symbol, exchangeID)
	}
	asset := baseAsset(symbol)
	if s.balances[asset] < quantity {
		return nil, fmt.Errorf("insufficient %s balance: have %.8f, need %.8f", asset, s.balances[asset], quantity)
	}

	price := base * (1 + s.uniform(-0.001, 0.001))
	executed := price * (1 - s.uniform(0, s.cfg.MaxSlippagePct))
	gross := quantity * executed
	fee := gross * s.cfg.FeeRate

	s.balances[asset] -= quantity
	s.balances["USDT"] += gross - fee

	s.logger.WithFields(logrus.Fields{
		"exchange": exchangeID,
		"symbol":   symbol,
		"price":    executed,
		"quantity": quantity,
	}).Debug("Simulated sell filled")

	return &Fill{
		Exchange:   exchangeID,
		Symbol:     symbol,
		Price:      executed,
		Quantity:   quantity,
		Fee:        fee,
		OrderID:    uuid.New().String(),
		ExecutedAt: time.Now(),
	}, nil
}

// QuoteBalance returns the free USDT balance.
func (s *Simulator) QuoteBalance() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances["USDT"]
}

// Balance returns the free balance for one asset.
func (s *Simulator) Balance(asset string) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[asset]
}

// Candles generates n one-minute bars of simulated history for the symbol.
// The most recent bar is last.
func (s *Simulator) Candles(symbol string, n int) []models.Candle {
	s.mu.Lock()
	defer s.mu.Unlock()

	base, ok := s.basePrices[symbol]
	if !ok {
		return nil
	}

	candles := make([]models.Candle, 0, n)
	now := time.Now()
	price := base

	for i := n - 1; i >= 0; i-- {
		open := price
		close := open * (1 + s.uniform(-0.002, 0.002))
		high := maxFloat(open, close) * (1 + s.uniform(0, 0.005))
		low := minFloat(open, close) * (1 - s.uniform(0, 0.005))

		candles = append(candles, models.Candle{
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    s.uniform(100, 1000),
			Timestamp: now.Add(-time.Duration(i) * time.Minute),
		})
		price = close
	}

	return candles
}

func (s *Simulator) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

func baseAsset(symbol string) string {
	return strings.TrimSuffix(symbol, "USDT")
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
