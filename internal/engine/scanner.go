package engine

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/terzinodays/arbiter-go/internal/exchange"
	"github.com/terzinodays/arbiter-go/internal/models"
)

// Scanner finds cross-exchange arbitrage opportunities. A scan is pure over
// the quotes it fetches: no state is kept between calls and every call
// recomputes from scratch.
type Scanner struct {
	gateway   exchange.Gateway
	refAmount float64
	logger    *logrus.Logger
}

// NewScanner creates a scanner. refAmount is the reference trade size used
// for the estimated-profit figure on each opportunity.
func NewScanner(gateway exchange.Gateway, refAmount float64, logger *logrus.Logger) *Scanner {
	if logger == nil {
		logger = logrus.New()
	}
	return &Scanner{
		gateway:   gateway,
		refAmount: refAmount,
		logger:    logger,
	}
}

// Scan fetches a quote for every (exchange, symbol) and returns every
// cross-exchange pairing whose spread strictly exceeds minSpread and whose
// thinner side carries at least minVolume of quote-asset liquidity. Results
// are sorted by spread descending, estimated profit descending, then symbol
// ascending so "best opportunity" selection is deterministic.
func (s *Scanner) Scan(ctx context.Context, symbols, exchanges []string, minSpread, minVolume float64) []models.Opportunity {
	var opportunities []models.Opportunity
	now := time.Now()

	for _, symbol := range symbols {
		quotes := s.collectQuotes(ctx, symbol, exchanges)
		if len(quotes) < 2 {
			continue
		}

		for _, buy := range quotes {
			for _, sell := range quotes {
				if buy.Exchange == sell.Exchange {
					continue
				}

				spread := (sell.Bid - buy.Ask) / buy.Ask
				if spread <= minSpread {
					continue
				}
				if minFloat(buy.Volume, sell.Volume)*buy.Ask < minVolume {
					continue
				}

				opportunities = append(opportunities, models.Opportunity{
					Symbol:          symbol,
					BuyExchange:     buy.Exchange,
					SellExchange:    sell.Exchange,
					BuyPrice:        buy.Ask,
					SellPrice:       sell.Bid,
					Spread:          spread,
					EstimatedProfit: s.refAmount * spread,
					DetectedAt:      now,
				})
			}
		}
	}

	sort.Slice(opportunities, func(i, j int) bool {
		a, b := opportunities[i], opportunities[j]
		if a.Spread != b.Spread {
			return a.Spread > b.Spread
		}
		if a.EstimatedProfit != b.EstimatedProfit {
			return a.EstimatedProfit > b.EstimatedProfit
		}
		return a.Symbol < b.Symbol
	})

	return opportunities
}

// collectQuotes gathers available quotes for one symbol. Missing quotes are
// skipped, never treated as zero.
func (s *Scanner) collectQuotes(ctx context.Context, symbol string, exchanges []string) []*models.Quote {
	quotes := make([]*models.Quote, 0, len(exchanges))

	for _, exchangeID := range exchanges {
		quote, err := s.gateway.GetQuote(ctx, exchangeID, symbol)
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"exchange": exchangeID,
				"symbol":   symbol,
			}).Debug("Quote unavailable, excluding exchange for this cycle")
			continue
		}
		if quote == nil || quote.Bid <= 0 || quote.Ask <= 0 {
			continue
		}
		quotes = append(quotes, quote)
	}

	return quotes
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
