package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/terzinodays/arbiter-go/internal/config"
	"github.com/terzinodays/arbiter-go/internal/models"
)

// HTTPGateway fetches tickers from a ccxt-style sidecar service. It is the
// swap-in replacement for the simulator when running against live markets.
type HTTPGateway struct {
	httpClient *http.Client
	baseURL    string
	logger     *logrus.Logger
}

var _ Gateway = (*HTTPGateway)(nil)

type tickerResponse struct {
	Exchange  string  `json:"exchange"`
	Symbol    string  `json:"symbol"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Last      float64 `json:"last"`
	Volume    float64 `json:"volume"`
	Timestamp int64   `json:"timestamp"` // unix milliseconds
}

// NewHTTPGateway creates a gateway against the configured ticker service.
func NewHTTPGateway(cfg config.GatewayConfig, logger *logrus.Logger) *HTTPGateway {
	if logger == nil {
		logger = logrus.New()
	}
	timeout := cfg.Timeout()
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &HTTPGateway{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(cfg.ServiceURL, "/"),
		logger:     logger,
	}
}

func (g *HTTPGateway) Name() string { return "http" }

// GetQuote fetches a ticker. A 404 from the service means the symbol is not
// listed on that exchange and maps to (nil, nil); transport errors are
// returned so callers can log and skip the exchange for this cycle.
func (g *HTTPGateway) GetQuote(ctx context.Context, exchangeID, symbol string) (*models.Quote, error) {
	url := fmt.Sprintf("%s/api/ticker/%s/%s", g.baseURL, exchangeID, symbol)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticker request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ticker request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			g.logger.WithError(err).Debug("Failed to close ticker response body")
		}
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ticker request returned status %d", resp.StatusCode)
	}

	var ticker tickerResponse
	if err := json.NewDecoder(resp.Body).Decode(&ticker); err != nil {
		return nil, fmt.Errorf("failed to decode ticker response: %w", err)
	}

	return &models.Quote{
		Exchange:  exchangeID,
		Symbol:    symbol,
		Bid:       ticker.Bid,
		Ask:       ticker.Ask,
		Last:      ticker.Last,
		Volume:    ticker.Volume,
		Timestamp: time.UnixMilli(ticker.Timestamp),
	}, nil
}
