package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/terzinodays/arbiter-go/internal/config"
	"github.com/terzinodays/arbiter-go/internal/models"
)

// Status is the minimal control surface the surrounding HTTP layer reads.
type Status struct {
	Running            bool        `json:"running"`
	OpenPositions      int         `json:"open_positions"`
	Balance            float64     `json:"balance"`
	LastScan           *time.Time  `json:"last_scan"`
	OpportunitiesFound int         `json:"opportunities_found"`
	Risk               RiskMetrics `json:"risk"`
}

// Engine runs the scan -> risk-gate -> open -> evaluate loop on one
// dedicated goroutine. It is the single owner of position and risk state;
// overlapping Start calls are rejected so no two iterations ever run
// concurrently.
type Engine struct {
	cfg      config.EngineConfig
	scanner  *Scanner
	risk     *RiskGate
	book     *PositionBook
	balance  BalanceSource
	recorder Recorder
	logger   *logrus.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu                 sync.RWMutex
	isRunning          bool
	lastScan           time.Time
	lastOpportunities  []models.Opportunity
	opportunitiesFound int
}

// New creates an engine wired to its collaborators.
func New(
	cfg config.EngineConfig,
	scanner *Scanner,
	risk *RiskGate,
	book *PositionBook,
	balance BalanceSource,
	recorder Recorder,
	logger *logrus.Logger,
) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	if recorder == nil {
		recorder = NopRecorder{}
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Engine{
		cfg:      cfg,
		scanner:  scanner,
		risk:     risk,
		book:     book,
		balance:  balance,
		recorder: recorder,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the trading loop. A second Start while running is rejected.
func (e *Engine) Start() error {
	e.mu.Lock()
	if e.isRunning {
		e.mu.Unlock()
		return fmt.Errorf("engine is already running")
	}
	e.isRunning = true
	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.mu.Unlock()

	e.logger.WithFields(logrus.Fields{
		"symbols":        len(e.cfg.Symbols),
		"exchanges":      e.cfg.Exchanges,
		"min_spread_pct": e.cfg.MinSpreadPct,
		"scan_interval":  e.cfg.ScanInterval().String(),
	}).Info("Starting trading engine")

	recordAlert(e.ctx, e.recorder, e.logger, models.Alert{
		Title:    "Engine started",
		Message:  fmt.Sprintf("Scanning %d symbols across %d exchanges", len(e.cfg.Symbols), len(e.cfg.Exchanges)),
		Severity: models.AlertInfo,
	})

	e.wg.Add(1)
	go e.loop()

	return nil
}

// Stop cancels the loop and waits for the in-flight tick to finish.
// In-flight quote fetches are not aborted; the stop flag takes effect at
// the top of the next iteration.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.isRunning {
		e.mu.Unlock()
		return
	}
	e.isRunning = false
	e.mu.Unlock()

	e.logger.Info("Stopping trading engine")
	e.cancel()
	e.wg.Wait()
	e.logger.Info("Trading engine stopped")
}

// IsRunning reports whether the loop is active.
func (e *Engine) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.isRunning
}

// GetStatus returns the current engine status.
func (e *Engine) GetStatus() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()

	status := Status{
		Running:            e.isRunning,
		OpenPositions:      e.book.Count(),
		Balance:            e.balance.QuoteBalance(),
		OpportunitiesFound: e.opportunitiesFound,
		Risk:               e.risk.Metrics(),
	}
	if !e.lastScan.IsZero() {
		scan := e.lastScan
		status.LastScan = &scan
	}
	return status
}

// Opportunities returns a copy of the most recent scan's results.
func (e *Engine) Opportunities() []models.Opportunity {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]models.Opportunity, len(e.lastOpportunities))
	copy(out, e.lastOpportunities)
	return out
}

// Positions returns the current open positions.
func (e *Engine) Positions() []models.Position {
	return e.book.Snapshot()
}

func (e *Engine) loop() {
	defer e.wg.Done()

	e.tick()

	ticker := time.NewTicker(e.cfg.ScanInterval())
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.tick()
		}
	}
}

// tick is one full loop iteration: scan, gate and open new positions, then
// re-evaluate every open position.
func (e *Engine) tick() {
	opportunities := e.scanner.Scan(e.ctx, e.cfg.Symbols, e.cfg.Exchanges, e.cfg.MinSpreadPct, e.cfg.MinVolume)

	e.mu.Lock()
	e.lastScan = time.Now()
	e.lastOpportunities = opportunities
	e.opportunitiesFound = len(opportunities)
	e.mu.Unlock()

	for _, opp := range opportunities {
		decision := e.risk.TryOpen(opp.Symbol, e.balance.QuoteBalance())
		if !decision.Approved {
			e.logger.WithFields(logrus.Fields{
				"symbol": opp.Symbol,
				"spread": opp.Spread,
				"reason": decision.Reason,
			}).Debug("Opportunity rejected by risk gate")
			continue
		}

		if _, err := e.book.Open(e.ctx, opp, decision.Amount); err != nil {
			e.logger.WithError(err).WithFields(logrus.Fields{
				"symbol":   opp.Symbol,
				"exchange": opp.BuyExchange,
			}).Error("Failed to open position")
		}
	}

	closed := e.book.EvaluateAll(e.ctx)
	if closed > 0 || len(opportunities) > 0 {
		e.logger.WithFields(logrus.Fields{
			"opportunities": len(opportunities),
			"closed":        closed,
			"open":          e.book.Count(),
		}).Info("Tick completed")
	}
}
