package engine

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/terzinodays/arbiter-go/internal/models"
)

// Recorder is the persistence sink for trade legs and alerts. Write failures
// never steer engine control flow; callers log and continue, and in-memory
// state stays authoritative.
type Recorder interface {
	RecordTrade(ctx context.Context, trade models.TradeRecord) error
	RecordAlert(ctx context.Context, alert models.Alert) error
}

// BalanceSource reports the free quote-asset balance available for sizing.
type BalanceSource interface {
	QuoteBalance() float64
}

// NopRecorder discards everything. Used when no persistence is wired.
type NopRecorder struct{}

func (NopRecorder) RecordTrade(context.Context, models.TradeRecord) error { return nil }
func (NopRecorder) RecordAlert(context.Context, models.Alert) error      { return nil }

func recordTrade(ctx context.Context, rec Recorder, logger *logrus.Logger, trade models.TradeRecord) {
	if err := rec.RecordTrade(ctx, trade); err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"symbol": trade.Symbol,
			"side":   trade.Side,
		}).Error("Failed to record trade, continuing")
	}
}

func recordAlert(ctx context.Context, rec Recorder, logger *logrus.Logger, alert models.Alert) {
	if err := rec.RecordAlert(ctx, alert); err != nil {
		logger.WithError(err).WithField("title", alert.Title).Error("Failed to record alert, continuing")
	}
}
