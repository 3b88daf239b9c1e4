package engine

import (
	"math"
	"time"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/sirupsen/logrus"

	"github.com/terzinodays/arbiter-go/internal/exchange"
	"github.com/terzinodays/arbiter-go/internal/models"
)

const (
	signalHistoryBars = 30
	rsiPeriod         = 14
	smaFastPeriod     = 5
	smaSlowPeriod     = 15

	// Symbols quieter than this are not worth scalping.
	minSignalVolatility = 0.003

	rsiOverbought = 70.0
	rsiOversold   = 30.0
)

// SignalScanner produces momentum readings over recent price history.
// It is a read-only companion to the arbitrage scan; nothing trades on
// these signals.
type SignalScanner struct {
	source  exchange.CandleSource
	symbols []string
	logger  *logrus.Logger
}

// NewSignalScanner creates a scanner over the given symbols.
func NewSignalScanner(source exchange.CandleSource, symbols []string, logger *logrus.Logger) *SignalScanner {
	if logger == nil {
		logger = logrus.New()
	}
	return &SignalScanner{
		source:  source,
		symbols: symbols,
		logger:  logger,
	}
}

// Scan computes a signal for every symbol with enough history and enough
// recent movement. Quiet symbols are omitted.
func (s *SignalScanner) Scan() []models.Signal {
	var signals []models.Signal

	for _, symbol := range s.symbols {
		candles := s.source.Candles(symbol, signalHistoryBars)
		if len(candles) < smaSlowPeriod+1 {
			continue
		}

		closes := make([]float64, len(candles))
		for i, c := range candles {
			closes[i] = c.Close
		}

		volatility := averageAbsChange(closes)
		if volatility < minSignalVolatility {
			continue
		}

		signals = append(signals, models.Signal{
			Symbol:     symbol,
			Action:     momentumAction(closes),
			Price:      closes[len(closes)-1],
			RSI:        lastRSI(closes),
			Volatility: volatility,
			Timestamp:  time.Now(),
		})
	}

	return signals
}

// momentumAction compares a fast and slow moving average, vetoed by RSI
// extremes so the signal never chases an already-stretched move.
func momentumAction(closes []float64) string {
	fast := lastValue(trend.NewSmaWithPeriod[float64](smaFastPeriod), closes)
	slow := lastValue(trend.NewSmaWithPeriod[float64](smaSlowPeriod), closes)
	rsi := lastRSI(closes)

	switch {
	case fast > slow && rsi < rsiOverbought:
		return "BUY"
	case fast < slow && rsi > rsiOversold:
		return "SELL"
	default:
		return "HOLD"
	}
}

func lastRSI(closes []float64) float64 {
	rsi := momentum.NewRsiWithPeriod[float64](rsiPeriod)
	values := helper.ChanToSlice(rsi.Compute(helper.SliceToChan(closes)))
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}

func lastValue(sma *trend.Sma[float64], closes []float64) float64 {
	values := helper.ChanToSlice(sma.Compute(helper.SliceToChan(closes)))
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}

func averageAbsChange(closes []float64) float64 {
	if len(closes) < 2 {
		return 0
	}
	sum := 0.0
	for i := 1; i < len(closes); i++ {
		sum += math.Abs((closes[i] - closes[i-1]) / closes[i-1])
	}
	return sum / float64(len(closes)-1)
}
