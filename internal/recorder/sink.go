package recorder

import (
	"context"

	"github.com/terzinodays/arbiter-go/internal/models"
)

// Sink combines the persistence store with alert delivery. Trades go to the
// store only; alerts are persisted and then pushed to the notifier.
type Sink struct {
	store    *TradeStore
	notifier *TelegramNotifier
}

// NewSink creates the combined recorder. The notifier may be nil.
func NewSink(store *TradeStore, notifier *TelegramNotifier) *Sink {
	return &Sink{store: store, notifier: notifier}
}

func (s *Sink) RecordTrade(ctx context.Context, trade models.TradeRecord) error {
	return s.store.RecordTrade(ctx, trade)
}

func (s *Sink) RecordAlert(ctx context.Context, alert models.Alert) error {
	err := s.store.RecordAlert(ctx, alert)
	if s.notifier != nil {
		s.notifier.Notify(ctx, alert)
	}
	return err
}
