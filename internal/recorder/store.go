package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/terzinodays/arbiter-go/internal/database"
	"github.com/terzinodays/arbiter-go/internal/models"
)

// TradeStore persists trade legs and alerts to Postgres. It is a write-only
// mirror of the engine's in-memory state and is never read back to
// reconstruct it.
type TradeStore struct {
	pool   database.Pool
	logger *logrus.Logger
}

// NewTradeStore creates a store over the given pool.
func NewTradeStore(pool database.Pool, logger *logrus.Logger) *TradeStore {
	if logger == nil {
		logger = logrus.New()
	}
	return &TradeStore{pool: pool, logger: logger}
}

// RecordTrade appends one trade leg. Monetary fields are converted to
// decimals at this boundary for storage.
func (s *TradeStore) RecordTrade(ctx context.Context, trade models.TradeRecord) error {
	if trade.ID == "" {
		trade.ID = uuid.New().String()
	}
	if trade.ExecutedAt.IsZero() {
		trade.ExecutedAt = time.Now()
	}

	query := `
		INSERT INTO trades (
			id, symbol, side, quantity, price, total_value, fee,
			strategy, profit_loss, reason, exchange, order_id, executed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	var profitLoss *decimal.Decimal
	if trade.ProfitLoss != nil {
		pl := decimal.NewFromFloat(*trade.ProfitLoss)
		profitLoss = &pl
	}

	_, err := s.pool.Exec(ctx, query,
		trade.ID, trade.Symbol, string(trade.Side),
		decimal.NewFromFloat(trade.Quantity),
		decimal.NewFromFloat(trade.Price),
		decimal.NewFromFloat(trade.TotalValue),
		decimal.NewFromFloat(trade.Fee),
		trade.Strategy, profitLoss, trade.Reason,
		trade.Exchange, trade.OrderID, trade.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}

	return nil
}

// RecordAlert appends one alert row.
func (s *TradeStore) RecordAlert(ctx context.Context, alert models.Alert) error {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO alerts (id, title, message, severity, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query,
		alert.ID, alert.Title, alert.Message, string(alert.Severity), alert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}

	return nil
}

// RecentTrades returns the newest trade legs, most recent first.
func (s *TradeStore) RecentTrades(ctx context.Context, limit int) ([]models.TradeResponse, error) {
	query := `
		SELECT id, symbol, side, quantity, price, total_value, fee,
		       strategy, profit_loss, reason, exchange, executed_at
		FROM trades
		ORDER BY executed_at DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []models.TradeResponse
	for rows.Next() {
		var t models.TradeResponse
		var side, reason string
		var profitLoss *decimal.Decimal

		err := rows.Scan(
			&t.ID, &t.Symbol, &side, &t.Quantity, &t.Price, &t.TotalValue,
			&t.Fee, &t.Strategy, &profitLoss, &reason, &t.Exchange, &t.ExecutedAt,
		)
		if err != nil {
			s.logger.WithError(err).Error("Failed to scan trade row")
			continue
		}

		t.Side = models.TradeSide(side)
		t.Reason = reason
		t.ProfitLoss = profitLoss
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %w", err)
	}

	return trades, nil
}

// RecentAlerts returns the newest alerts, most recent first.
func (s *TradeStore) RecentAlerts(ctx context.Context, limit int) ([]models.Alert, error) {
	query := `
		SELECT id, title, message, severity, created_at
		FROM alerts
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var a models.Alert
		var severity string

		if err := rows.Scan(&a.ID, &a.Title, &a.Message, &severity, &a.CreatedAt); err != nil {
			s.logger.WithError(err).Error("Failed to scan alert row")
			continue
		}

		a.Severity = models.AlertSeverity(severity)
		alerts = append(alerts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alert rows: %w", err)
	}

	return alerts, nil
}

// DailyStats aggregates trades per UTC day over the last `days` days.
func (s *TradeStore) DailyStats(ctx context.Context, days int) ([]models.DailyStats, error) {
	query := `
		SELECT date_trunc('day', executed_at AT TIME ZONE 'UTC') AS day,
		       COUNT(*) AS total_trades,
		       COUNT(*) FILTER (WHERE profit_loss > 0) AS successful_trades,
		       COALESCE(SUM(profit_loss), 0) AS total_profit,
		       COALESCE(SUM(fee), 0) AS total_fees
		FROM trades
		WHERE executed_at >= NOW() - make_interval(days => $1)
		GROUP BY day
		ORDER BY day DESC
	`

	rows, err := s.pool.Query(ctx, query, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer rows.Close()

	var stats []models.DailyStats
	for rows.Next() {
		var d models.DailyStats
		if err := rows.Scan(&d.Date, &d.TotalTrades, &d.SuccessfulTrades, &d.TotalProfit, &d.TotalFees); err != nil {
			s.logger.WithError(err).Error("Failed to scan daily stats row")
			continue
		}
		stats = append(stats, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily stats rows: %w", err)
	}

	return stats, nil
}
