package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terzinodays/arbiter-go/internal/config"
)

func riskConfig() config.EngineConfig {
	return config.EngineConfig{
		SizeFraction:     0.1,
		MinTradeAmount:   5.0,
		MaxTradeAmount:   15.0,
		MaxPositionSize:  15.0,
		MaxTradesPerHour: 10,
		MaxDailyLoss:     5.0,
		MaxOpenPositions: 3,
	}
}

func TestTryOpenSizingStaysWithinBounds(t *testing.T) {
	tests := []struct {
		name       string
		balance    float64
		wantAmount float64
	}{
		{"small balance clamps to minimum", 30.0, 5.0},
		{"mid balance uses size fraction", 100.0, 10.0},
		{"large balance clamps to maximum", 1000.0, 15.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewRiskGate(riskConfig(), quietLogger())
			decision := gate.TryOpen("BTC/USDT", tt.balance)

			require.True(t, decision.Approved)
			assert.Equal(t, tt.wantAmount, decision.Amount)
			assert.GreaterOrEqual(t, decision.Amount, 5.0)
			assert.LessOrEqual(t, decision.Amount, 15.0)
		})
	}
}

func TestTryOpenRejectsInsufficientBalance(t *testing.T) {
	gate := NewRiskGate(riskConfig(), quietLogger())

	decision := gate.TryOpen("BTC/USDT", 4.99)

	assert.False(t, decision.Approved)
	assert.Equal(t, ReasonInsufficientBalance, decision.Reason)
}

func TestTryOpenRejectsAfterHourlyLimit(t *testing.T) {
	gate := NewRiskGate(riskConfig(), quietLogger())

	// 10 recorded trades for the symbol within the trailing hour.
	for i := 0; i < 10; i++ {
		gate.RecordOpen("ETH/USDT")
	}

	decision := gate.TryOpen("ETH/USDT", 100.0)
	assert.False(t, decision.Approved)
	assert.Equal(t, ReasonHourlyLimit, decision.Reason)

	// Another symbol is unaffected.
	other := gate.TryOpen("BTC/USDT", 100.0)
	assert.True(t, other.Approved)
}

func TestTryOpenRejectsAfterDailyLossLimit(t *testing.T) {
	gate := NewRiskGate(riskConfig(), quietLogger())
	gate.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }

	gate.TryOpen("BTC/USDT", 100.0)
	gate.RecordClose("BTC/USDT", -5.0)

	decision := gate.TryOpen("BTC/USDT", 100.0)
	assert.False(t, decision.Approved)
	assert.Equal(t, ReasonDailyLossLimit, decision.Reason)
}

func TestTryOpenRejectsAtPositionLimit(t *testing.T) {
	gate := NewRiskGate(riskConfig(), quietLogger())

	for _, symbol := range []string{"BTC/USDT", "ETH/USDT", "SOL/USDT"} {
		decision := gate.TryOpen(symbol, 100.0)
		require.True(t, decision.Approved)
	}

	decision := gate.TryOpen("ADA/USDT", 100.0)
	assert.False(t, decision.Approved)
	assert.Equal(t, ReasonPositionLimit, decision.Reason)
}

func TestTryOpenRejectsOversizedPosition(t *testing.T) {
	cfg := riskConfig()
	cfg.MaxTradeAmount = 25.0
	cfg.MaxPositionSize = 15.0
	gate := NewRiskGate(cfg, quietLogger())

	// 10% of 2000 clamps to 25, above the 15 position cap.
	decision := gate.TryOpen("BTC/USDT", 2000.0)
	assert.False(t, decision.Approved)
	assert.Equal(t, ReasonPositionSizeLimit, decision.Reason)
}

func TestReleaseOpenFreesReservation(t *testing.T) {
	cfg := riskConfig()
	cfg.MaxOpenPositions = 1
	gate := NewRiskGate(cfg, quietLogger())

	require.True(t, gate.TryOpen("BTC/USDT", 100.0).Approved)
	assert.Equal(t, ReasonPositionLimit, gate.TryOpen("ETH/USDT", 100.0).Reason)

	gate.ReleaseOpen("BTC/USDT")
	assert.True(t, gate.TryOpen("ETH/USDT", 100.0).Approved)
}

func TestRecordCloseFreesPositionSlot(t *testing.T) {
	cfg := riskConfig()
	cfg.MaxOpenPositions = 1
	gate := NewRiskGate(cfg, quietLogger())

	require.True(t, gate.TryOpen("BTC/USDT", 100.0).Approved)
	gate.RecordClose("BTC/USDT", 0.5)

	assert.True(t, gate.TryOpen("ETH/USDT", 100.0).Approved)
}

func TestDailyLossResetsAtUTCDayBoundary(t *testing.T) {
	gate := NewRiskGate(riskConfig(), quietLogger())

	now := time.Date(2025, 3, 10, 23, 50, 0, 0, time.UTC)
	gate.now = func() time.Time { return now }

	gate.TryOpen("BTC/USDT", 100.0)
	gate.RecordClose("BTC/USDT", -5.0)
	assert.Equal(t, ReasonDailyLossLimit, gate.TryOpen("BTC/USDT", 100.0).Reason)

	// 20 minutes later it is a new UTC day and the accumulator is fresh.
	now = time.Date(2025, 3, 11, 0, 10, 0, 0, time.UTC)
	assert.True(t, gate.TryOpen("BTC/USDT", 100.0).Approved)
}

func TestHourlyWindowSlides(t *testing.T) {
	gate := NewRiskGate(riskConfig(), quietLogger())

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	gate.now = func() time.Time { return now }

	for i := 0; i < 10; i++ {
		gate.RecordOpen("ETH/USDT")
	}
	assert.Equal(t, ReasonHourlyLimit, gate.TryOpen("ETH/USDT", 100.0).Reason)

	now = now.Add(61 * time.Minute)
	assert.True(t, gate.TryOpen("ETH/USDT", 100.0).Approved)
}

func TestMetricsReflectState(t *testing.T) {
	gate := NewRiskGate(riskConfig(), quietLogger())

	gate.TryOpen("BTC/USDT", 100.0)
	gate.RecordOpen("BTC/USDT")
	gate.TryOpen("ETH/USDT", 100.0)
	gate.RecordOpen("ETH/USDT")
	gate.RecordClose("ETH/USDT", -1.25)

	metrics := gate.Metrics()
	assert.Equal(t, 1, metrics.OpenPositions)
	assert.Equal(t, 3, metrics.RecentTrades1h)
	assert.Equal(t, 1.25, metrics.DailyLoss)
	assert.Equal(t, 3, metrics.MaxOpenPositions)
	assert.Equal(t, 10, metrics.MaxTradesPerHour)
}
