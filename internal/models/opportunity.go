package models

import "time"

// Opportunity is a profitable cross-exchange spread detected during a scan.
// Spread and estimated profit are fractions internally; they are converted
// to percentage units only at formatting and recording boundaries.
type Opportunity struct {
	Symbol          string    `json:"symbol"`
	BuyExchange     string    `json:"buy_exchange"`
	SellExchange    string    `json:"sell_exchange"`
	BuyPrice        float64   `json:"buy_price"`
	SellPrice       float64   `json:"sell_price"`
	Spread          float64   `json:"spread"`
	EstimatedProfit float64   `json:"estimated_profit"`
	DetectedAt      time.Time `json:"detected_at"`
}

// Signal is a momentum reading for a single symbol produced by the
// signal scanner. Action is one of BUY, SELL or HOLD.
type Signal struct {
	Symbol     string    `json:"symbol"`
	Action     string    `json:"action"`
	Price      float64   `json:"price"`
	RSI        float64   `json:"rsi"`
	Volatility float64   `json:"volatility"`
	Timestamp  time.Time `json:"timestamp"`
}
