package scanner

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	appconfig "spreadscan/config"
	"spreadscan/logger"
	"spreadscan/models"
)

// Fetcher provides the upstream market data capabilities the scanner
// consumes. Implementations handle retries and rate-limit pacing
// internally.
type Fetcher interface {
	GetOrderBook(ctx context.Context, productID string) (*models.OrderBook, error)
	GetStats(ctx context.Context, productID string) (models.VolumeStats, error)
}

// SnapshotStore persists the working set between scan cycles and supplies
// the trading-pair universe for full scans.
type SnapshotStore interface {
	LoadWorkingSet() ([]models.SpreadRecord, error)
	SaveWorkingSet(records []models.SpreadRecord) error
	LoadTradingPairs() ([]string, error)
}

// Scanner runs the two-tier scan loop: full scans of the entire pair
// universe alternating with faster rescans of the active working set. A
// single goroutine performs all evaluations sequentially; pacing toward the
// upstream API is owned by the Fetcher.
type Scanner struct {
	config    *appconfig.Config
	client    Fetcher
	store     SnapshotStore
	evaluator *Evaluator
	working   WorkingSet
	cycles    int
	log       *logger.Log

	// sleep is replaced in tests to elapse wait intervals without real
	// delays.
	sleep func(ctx context.Context, d time.Duration) error

	// now is replaced in tests for deterministic record timestamps.
	now func() time.Time
}

// New creates a Scanner. products may be nil when no metadata is available.
func New(cfg *appconfig.Config, client Fetcher, store SnapshotStore, products models.ProductIndex) *Scanner {
	return &Scanner{
		config:    cfg,
		client:    client,
		store:     store,
		evaluator: NewEvaluator(cfg.Scan, products),
		working:   make(WorkingSet),
		log:       logger.GetLogger(),
		sleep:     sleepCtx,
		now:       time.Now,
	}
}

// Run executes the scan loop until ctx is cancelled. The persisted working
// set is loaded first; it is saved again after every scan cycle and once
// more, best effort, on shutdown. In scan-once mode a single full scan is
// performed and the loop never starts.
func (s *Scanner) Run(ctx context.Context) error {
	log := s.log.WithComponent("scanner")

	records, err := s.store.LoadWorkingSet()
	if err != nil {
		log.WithError(err).Warn("failed to load working set, starting empty")
	}
	s.working = NewWorkingSet(records)
	s.cycles = 0

	if len(s.working) > 0 {
		log.WithFields(logger.Fields{
			"pairs": strings.Join(s.working.BaseSymbols(), ","),
		}).Info("loaded active spread pairs")
	}

	if s.config.Scan.ScanOnce {
		log.Info("scan-once mode: performing a single full scan")
		s.fullScan(ctx)
		s.persist()
		log.Info("scan-once mode: scan complete")
		return nil
	}

	log.Info("starting scan loop")
	for {
		if ctx.Err() != nil {
			break
		}

		var wait time.Duration
		if s.cycles == 0 || s.cycles >= s.config.Scan.ActiveScanCycles || len(s.working) == 0 {
			log.WithFields(logger.Fields{
				"cycle":     s.cycles,
				"max_cycle": s.config.Scan.ActiveScanCycles,
			}).Info("performing full scan of all trading pairs")
			s.fullScan(ctx)
			s.cycles = 1
			wait = s.config.Scan.FullScanWait
		} else {
			log.WithFields(logger.Fields{
				"cycle":     s.cycles,
				"max_cycle": s.config.Scan.ActiveScanCycles,
			}).Info("scanning only active spread pairs")
			s.activeScan(ctx)
			s.cycles++
			wait = s.config.Scan.ActiveScanWait
		}
		s.persist()

		if err := s.sleep(ctx, wait); err != nil {
			break
		}
	}

	// Final persistence so an interrupt cannot lose the latest state.
	s.persist()
	log.Info("scanner stopped")
	return nil
}

// WorkingSet exposes the current working set, primarily for tests and the
// scan-once summary.
func (s *Scanner) WorkingSet() WorkingSet {
	return s.working
}

// fullScan evaluates the entire pair universe and rebuilds the working set
// from the pairs that are alert-worthy this cycle.
func (s *Scanner) fullScan(ctx context.Context) {
	cycleID := uuid.NewString()
	log := s.log.WithComponent("full_scan").WithFields(logger.Fields{"cycle_id": cycleID})

	pairs, err := s.store.LoadTradingPairs()
	if err != nil {
		log.WithError(err).Warn("failed to load trading pairs")
	}
	if len(pairs) == 0 {
		log.Warn("no trading pairs to scan")
		s.working = Reconcile(s.working, true, nil)
		return
	}

	log.WithFields(logger.Fields{"pairs": len(pairs)}).Info("scanning trading pairs")

	display := s.config.Display
	var qualifying []models.SpreadRecord
	validPairs := 0
	skippedPairs := 0

	for _, pairID := range pairs {
		if ctx.Err() != nil {
			log.Info("full scan interrupted by cancellation")
			return
		}

		plog := log.WithFields(logger.Fields{"pair": pairID})

		stats, err := s.client.GetStats(ctx, pairID)
		if err != nil {
			plog.WithError(err).Debug("failed to get volume data")
			skippedPairs++
			continue
		}

		usdVolume, normalized, err := USDVolume(stats)
		if err != nil {
			plog.WithError(err).Debug("failed to derive usd volume")
			skippedPairs++
			continue
		}
		if normalized {
			plog.WithFields(logger.Fields{"usd_volume": usdVolume}).Debug("volume normalized by unit heuristic")
		}

		if usdVolume < s.config.Scan.MinVolume24h && !(display.ShowScanResults && display.ShowBelowThreshold) {
			continue
		}
		if usdVolume >= s.config.Scan.MinVolume24h {
			validPairs++
		}

		book, err := s.client.GetOrderBook(ctx, pairID)
		if err != nil {
			plog.WithError(err).Debug("failed to get orderbook")
			skippedPairs++
			continue
		}

		impact, err := CalcPriceImpact(book, s.config.Scan.OrderbookValue)
		if err != nil {
			plog.WithError(err).Debug("failed to calculate price impact")
			skippedPairs++
			continue
		}

		rec := s.evaluator.BuildRecord(pairID, impact, usdVolume, s.now())
		decimals := s.evaluator.Decimals(pairID)

		if s.evaluator.AlertWorthy(rec) {
			qualifying = append(qualifying, rec)
		}

		if display.ShowScanResults {
			if !s.evaluator.BelowMinVolume(rec) || display.ShowBelowThreshold {
				log.Info(s.evaluator.FormatResultLine(rec, decimals))
			}
		} else if s.evaluator.AboveSpreadThreshold(rec) {
			logger.IncrementAlertRaised()
			log.Info(s.evaluator.FormatAlertLine(rec, decimals))
		}
	}

	s.working = Reconcile(s.working, true, qualifying)

	log.WithFields(logger.Fields{
		"valid_pairs":   validPairs,
		"total_pairs":   len(pairs),
		"skipped_pairs": skippedPairs,
	}).Info("completed full scan cycle")

	if len(s.working) > 0 {
		log.WithFields(logger.Fields{
			"count": len(s.working),
			"pairs": strings.Join(s.working.BaseSymbols(), ","),
			"alert": s.config.Scan.SpreadAlert,
		}).Info("found active spread pairs exceeding spread threshold")
	}
}

// activeScan re-evaluates only the pairs in the working set. Records are
// replaced even when the spread has fallen below the threshold; pairs whose
// data is unavailable this cycle keep their previous record.
func (s *Scanner) activeScan(ctx context.Context) {
	cycleID := uuid.NewString()
	log := s.log.WithComponent("active_scan").WithFields(logger.Fields{"cycle_id": cycleID})

	members := s.working.Records()
	if len(members) == 0 {
		log.Info("no active spread pairs to scan")
		return
	}

	log.WithFields(logger.Fields{"pairs": len(members)}).Info("scanning active spread pairs")

	display := s.config.Display
	var updated []models.SpreadRecord
	validPairs := 0
	skippedPairs := 0

	for _, prev := range members {
		if ctx.Err() != nil {
			log.Info("active scan interrupted by cancellation")
			return
		}

		plog := log.WithFields(logger.Fields{"pair": prev.ID})

		book, err := s.client.GetOrderBook(ctx, prev.ID)
		if err != nil {
			plog.WithError(err).Warn("failed to get orderbook, keeping pair in active set")
			skippedPairs++
			continue
		}

		impact, err := CalcPriceImpact(book, s.config.Scan.OrderbookValue)
		if err != nil {
			plog.WithError(err).Warn("failed to calculate price impact, keeping pair in active set")
			skippedPairs++
			continue
		}

		usdVolume, usedStored, err := s.rescanVolume(ctx, plog, prev)
		if err != nil {
			plog.Warn("no volume data, keeping pair in active set")
			skippedPairs++
			continue
		}
		validPairs++

		if !usedStored {
			if ratio, anomalous := VolumeAnomaly(prev.USDVolume, usdVolume); anomalous {
				plog.WithFields(logger.Fields{
					"previous_volume": prev.USDVolume,
					"current_volume":  usdVolume,
					"ratio":           ratio,
				}).Warn("volume changed dramatically between scans")
			}
		}

		rec := s.evaluator.BuildRecord(prev.ID, impact, usdVolume, s.now())
		decimals := s.evaluator.Decimals(prev.ID)
		updated = append(updated, rec)

		if display.ShowScanResults {
			if !s.evaluator.BelowMinVolume(rec) || display.ShowBelowThreshold {
				log.Info(s.evaluator.FormatResultLine(rec, decimals))
			}
		} else if s.evaluator.AboveSpreadThreshold(rec) {
			logger.IncrementAlertRaised()
			log.Info(s.evaluator.FormatAlertLine(rec, decimals))
		}
	}

	s.working = Reconcile(s.working, false, updated)

	belowThreshold := 0
	for _, rec := range s.working {
		if !s.evaluator.AboveSpreadThreshold(rec) {
			belowThreshold++
		}
	}

	log.WithFields(logger.Fields{
		"valid_pairs":   validPairs,
		"total_pairs":   len(members),
		"skipped_pairs": skippedPairs,
	}).Info("completed active spread pairs scan")
	if belowThreshold > 0 {
		log.WithFields(logger.Fields{"count": belowThreshold}).Info("pairs now below spread threshold but kept for continued monitoring")
	}
}

// rescanVolume resolves the USD volume for an active-set member. A failed
// stats fetch falls back to the previously stored volume; usedStored
// reports that fallback so the anomaly check can be skipped.
func (s *Scanner) rescanVolume(ctx context.Context, plog *logger.Entry, prev models.SpreadRecord) (usdVolume float64, usedStored bool, err error) {
	stats, fetchErr := s.client.GetStats(ctx, prev.ID)
	if fetchErr != nil {
		if prev.USDVolume > 0 {
			plog.WithError(fetchErr).Debug("using previously stored volume")
			return prev.USDVolume, true, nil
		}
		return 0, false, ErrDataUnavailable
	}

	volume, normalized, normErr := NormalizeVolume(stats)
	if normErr != nil {
		if prev.USDVolume > 0 {
			plog.WithError(normErr).Debug("using previously stored volume")
			return prev.USDVolume, true, nil
		}
		return 0, false, ErrDataUnavailable
	}
	if normalized {
		plog.WithFields(logger.Fields{"usd_volume": volume}).Debug("volume normalized by unit heuristic")
	}
	return volume, false, nil
}

// persist writes the working set through the snapshot store. Failures are
// logged and the process continues with in-memory state; the next cycle
// retries the write.
func (s *Scanner) persist() {
	if err := s.store.SaveWorkingSet(s.working.Records()); err != nil {
		s.log.WithComponent("scanner").WithError(err).Error("failed to save active spread pairs")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
