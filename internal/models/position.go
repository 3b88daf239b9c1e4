package models

import "time"

// CloseReason identifies which rule closed a position.
type CloseReason string

const (
	CloseStopLoss     CloseReason = "STOP_LOSS"
	CloseProfitTarget CloseReason = "PROFIT_TARGET"
	CloseTimeExit     CloseReason = "TIME_EXIT"
)

// Position is an open, unmatched buy leg awaiting a closing sell leg.
// All fields are fixed at open; the position is removed from the open set
// exactly once when a close rule fires.
type Position struct {
	ID           string    `json:"id"`
	Symbol       string    `json:"symbol"`
	Quantity     float64   `json:"quantity"`
	BuyPrice     float64   `json:"buy_price"`
	BuyFee       float64   `json:"buy_fee"`
	BuyExchange  string    `json:"buy_exchange"`
	SellExchange string    `json:"sell_exchange"`
	StopLoss     float64   `json:"stop_loss"`
	TakeProfit   float64   `json:"take_profit"`
	OpenedAt     time.Time `json:"opened_at"`
}
