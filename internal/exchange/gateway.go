package exchange

import (
	"context"
	"time"

	"github.com/terzinodays/arbiter-go/internal/models"
)

// Gateway answers "what is the market for (exchange, symbol) right now".
// A (nil, nil) return means the symbol is unknown to that exchange or the
// upstream source is unreachable; callers exclude the exchange from the
// current scan cycle and never treat it as fatal.
type Gateway interface {
	Name() string
	GetQuote(ctx context.Context, exchange, symbol string) (*models.Quote, error)
}

// Fill describes the outcome of one simulated market order.
type Fill struct {
	Exchange   string
	Symbol     string
	Price      float64
	Quantity   float64
	Fee        float64
	OrderID    string
	ExecutedAt time.Time
}

// OrderExecutor fills simulated market orders. MarketBuy spends quoteAmount
// of the quote asset; MarketSell liquidates quantity of the base asset.
type OrderExecutor interface {
	MarketBuy(ctx context.Context, exchange, symbol string, quoteAmount float64) (*Fill, error)
	MarketSell(ctx context.Context, exchange, symbol string, quantity float64) (*Fill, error)
}

// CandleSource provides recent OHLCV history for the momentum signal scan.
type CandleSource interface {
	Candles(symbol string, n int) []models.Candle
}
