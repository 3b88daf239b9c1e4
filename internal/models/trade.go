package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeSide is the direction of a trade leg.
type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

// TradeRecord is one executed leg of a simulated trade. Every position open
// produces exactly one BUY record and every close exactly one SELL record
// carrying the realized profit/loss and the close reason.
type TradeRecord struct {
	ID         string    `json:"id" db:"id"`
	Symbol     string    `json:"symbol" db:"symbol"`
	Side       TradeSide `json:"side" db:"side"`
	Quantity   float64   `json:"quantity" db:"quantity"`
	Price      float64   `json:"price" db:"price"`
	TotalValue float64   `json:"total_value" db:"total_value"`
	Fee        float64   `json:"fee" db:"fee"`
	Strategy   string    `json:"strategy" db:"strategy"`
	ProfitLoss *float64  `json:"profit_loss,omitempty" db:"profit_loss"`
	Reason     string    `json:"reason,omitempty" db:"reason"`
	Exchange   string    `json:"exchange" db:"exchange"`
	OrderID    string    `json:"order_id" db:"order_id"`
	ExecutedAt time.Time `json:"executed_at" db:"executed_at"`
}

// TradeResponse is the API representation of a trade record. Monetary
// fields are rendered as decimals at this boundary.
type TradeResponse struct {
	ID         string           `json:"id"`
	Symbol     string           `json:"symbol"`
	Side       TradeSide        `json:"side"`
	Quantity   decimal.Decimal  `json:"quantity"`
	Price      decimal.Decimal  `json:"price"`
	TotalValue decimal.Decimal  `json:"total_value"`
	Fee        decimal.Decimal  `json:"fee"`
	Strategy   string           `json:"strategy"`
	ProfitLoss *decimal.Decimal `json:"profit_loss,omitempty"`
	Reason     string           `json:"reason,omitempty"`
	Exchange   string           `json:"exchange"`
	ExecutedAt time.Time        `json:"executed_at"`
}

// ToResponse converts a trade record into its API representation.
func (t TradeRecord) ToResponse() TradeResponse {
	resp := TradeResponse{
		ID:         t.ID,
		Symbol:     t.Symbol,
		Side:       t.Side,
		Quantity:   decimal.NewFromFloat(t.Quantity),
		Price:      decimal.NewFromFloat(t.Price),
		TotalValue: decimal.NewFromFloat(t.TotalValue),
		Fee:        decimal.NewFromFloat(t.Fee),
		Strategy:   t.Strategy,
		Reason:     t.Reason,
		Exchange:   t.Exchange,
		ExecutedAt: t.ExecutedAt,
	}
	if t.ProfitLoss != nil {
		pl := decimal.NewFromFloat(*t.ProfitLoss)
		resp.ProfitLoss = &pl
	}
	return resp
}

// DailyStats aggregates one UTC day of trading activity.
type DailyStats struct {
	Date             time.Time       `json:"date"`
	TotalTrades      int             `json:"total_trades"`
	SuccessfulTrades int             `json:"successful_trades"`
	TotalProfit      decimal.Decimal `json:"total_profit"`
	TotalFees        decimal.Decimal `json:"total_fees"`
}
