package application

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"betledger/config"
	"betledger/domain/entities"
	"betledger/domain/events"
	"betledger/domain/interfaces"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// WorkerOptions tunes retries, fan-out and dead-lettering
type WorkerOptions struct {
	MaxRetries          int
	DeadLetterThreshold int
	DeadLetterCooldown  time.Duration
	FanOut              int

	// RetryInitialInterval is the first backoff step between provider retries
	RetryInitialInterval time.Duration
}

// WorkerOptionsFromConfig builds the options from the application config
func WorkerOptionsFromConfig(cfg *config.Config) WorkerOptions {
	return WorkerOptions{
		MaxRetries:           cfg.MaxSettlementRetries,
		DeadLetterThreshold:  cfg.DeadLetterThreshold,
		DeadLetterCooldown:   cfg.DeadLetterCooldown,
		FanOut:               cfg.SettlementFanOut,
		RetryInitialInterval: 2 * time.Second,
	}
}

type matchKey struct {
	matchID int64
	family  entities.MarketFamily
}

// SettlementWorker periodically settles every tracked match of each enabled
// market family
type SettlementWorker struct {
	settlement  interfaces.SettlementService
	deadLetters interfaces.DeadLetterRepository
	alerter     interfaces.Alerter
	bus         *events.Bus
	schedule    *config.Schedule
	opts        WorkerOptions
	now         func() time.Time

	running map[entities.MarketFamily]*atomic.Bool

	mu           sync.Mutex
	failures     map[matchKey]int
	parkedUntil  map[matchKey]time.Time
	deadLettered map[matchKey]bool
}

// NewSettlementWorker creates a new settlement worker. bus may be nil.
func NewSettlementWorker(
	settlement interfaces.SettlementService,
	deadLetters interfaces.DeadLetterRepository,
	alerter interfaces.Alerter,
	bus *events.Bus,
	schedule *config.Schedule,
	opts WorkerOptions,
) *SettlementWorker {
	if opts.FanOut < 1 {
		opts.FanOut = 1
	}
	if opts.DeadLetterThreshold < 1 {
		opts.DeadLetterThreshold = 1
	}
	if opts.RetryInitialInterval <= 0 {
		opts.RetryInitialInterval = time.Second
	}

	running := make(map[entities.MarketFamily]*atomic.Bool, len(entities.AllFamilies))
	for _, family := range entities.AllFamilies {
		running[family] = new(atomic.Bool)
	}

	return &SettlementWorker{
		settlement:   settlement,
		deadLetters:  deadLetters,
		alerter:      alerter,
		bus:          bus,
		schedule:     schedule,
		opts:         opts,
		now:          time.Now,
		running:      running,
		failures:     make(map[matchKey]int),
		parkedUntil:  make(map[matchKey]time.Time),
		deadLettered: make(map[matchKey]bool),
	}
}

// Start launches one loop per enabled family and returns the cleanup function
func (w *SettlementWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})

	w.restoreDeadLetters(ctx)

	for name, fs := range w.schedule.Families {
		family := entities.MarketFamily(name)
		if !fs.Enabled {
			log.WithField("family", family).Info("Settlement disabled for family")
			continue
		}
		if !family.IsValid() {
			log.WithField("family", name).Warn("Ignoring unknown family in schedule")
			continue
		}
		go w.loop(ctx, stopChan, family, fs.Interval)
	}

	return func() {
		close(stopChan)
	}
}

func (w *SettlementWorker) loop(ctx context.Context, stopChan <-chan struct{}, family entities.MarketFamily, interval time.Duration) {
	log.WithFields(log.Fields{
		"family":   family,
		"interval": interval,
	}).Info("Settlement worker started")

	for {
		if err := w.Tick(ctx, family); err != nil {
			log.WithError(err).WithField("family", family).Error("Settlement tick failed")
		}

		select {
		case <-ctx.Done():
			log.WithField("family", family).Info("Settlement worker shutting down (context cancelled)...")
			return
		case <-stopChan:
			log.WithField("family", family).Info("Settlement worker shutting down (stop requested)...")
			return
		case <-time.After(interval):
		}
	}
}

// Tick settles every tracked match of family once. A tick still running for
// the family makes this call a no-op.
func (w *SettlementWorker) Tick(ctx context.Context, family entities.MarketFamily) error {
	flag, ok := w.running[family]
	if !ok {
		return entities.ValidationErrorf("unknown market family %q", family)
	}
	if !flag.CompareAndSwap(false, true) {
		log.WithField("family", family).Warn("Previous settlement tick still running, skipping")
		return nil
	}
	defer flag.Store(false)

	matches, err := w.trackedMatches(ctx, family)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		log.WithField("family", family).Debug("No tracked matches")
		return nil
	}

	var g errgroup.Group
	g.SetLimit(w.opts.FanOut)
	for _, matchID := range matches {
		key := matchKey{matchID: matchID, family: family}
		if w.isParked(key) {
			log.WithFields(log.Fields{
				"matchID": matchID,
				"family":  family,
			}).Debug("Match parked, skipping")
			continue
		}
		g.Go(func() error {
			w.settleMatch(ctx, key)
			return nil
		})
	}
	return g.Wait()
}

// trackedMatches merges the schedule's fixtures with matches holding pending wagers
func (w *SettlementWorker) trackedMatches(ctx context.Context, family entities.MarketFamily) ([]int64, error) {
	var matches []int64
	if fs, ok := w.schedule.Families[string(family)]; ok {
		matches = append(matches, fs.Fixtures...)
	}

	pending, err := w.settlement.TrackedMatches(ctx, family)
	if err != nil {
		if len(matches) == 0 {
			return nil, fmt.Errorf("failed to get tracked matches: %w", err)
		}
		log.WithError(err).WithField("family", family).Warn("Failed to get matches with pending wagers, using schedule fixtures only")
	}
	matches = append(matches, pending...)

	slices.Sort(matches)
	return slices.Compact(matches), nil
}

func (w *SettlementWorker) settleMatch(ctx context.Context, key matchKey) {
	fields := log.Fields{
		"matchID": key.matchID,
		"family":  key.family,
	}

	summary, err := w.settleWithRetry(ctx, key)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.WithError(err).WithFields(fields).Error("Settlement failed")
		w.recordFailure(ctx, key, err)
		return
	}

	if summary.Settled > 0 || summary.Failed > 0 {
		log.WithFields(fields).WithFields(log.Fields{
			"settled": summary.Settled,
			"failed":  summary.Failed,
		}).Info("Settled match")
	}

	// Wagers that fail every pass stay pending; they escalate like a failing provider
	if summary.Failed > 0 {
		w.recordFailure(ctx, key, failedWagers(summary))
		return
	}
	w.recordSuccess(ctx, key)
}

// failedWagers describes the wagers a pass could not settle
func failedWagers(summary *entities.SettlementSummary) error {
	var errs []error
	for _, result := range summary.Results {
		if result.Status == entities.SettlementStatusFailed {
			errs = append(errs, fmt.Errorf("wager %d: %s", result.WagerID, result.Error))
		}
	}
	return fmt.Errorf("%d of %d wagers failed to settle: %w", summary.Failed, summary.Examined, errors.Join(errs...))
}

// settleWithRetry retries temporary provider failures with exponential backoff
func (w *SettlementWorker) settleWithRetry(ctx context.Context, key matchKey) (*entities.SettlementSummary, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = w.opts.RetryInitialInterval
	policy.MaxElapsedTime = 0

	var summary *entities.SettlementSummary
	operation := func() error {
		var err error
		summary, err = w.settlement.Settle(ctx, key.matchID, key.family)
		if err != nil && !entities.IsTemporary(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		log.WithError(err).WithFields(log.Fields{
			"matchID": key.matchID,
			"family":  key.family,
			"retryIn": next,
		}).Warn("Temporary provider failure, retrying")
	}

	retries := uint64(max(w.opts.MaxRetries, 0))
	err := backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(policy, retries), ctx), notify)
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (w *SettlementWorker) isParked(key matchKey) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	until, ok := w.parkedUntil[key]
	if !ok {
		return false
	}
	if w.now().Before(until) {
		return true
	}
	delete(w.parkedUntil, key)
	return false
}

func (w *SettlementWorker) recordFailure(ctx context.Context, key matchKey, cause error) {
	w.mu.Lock()
	w.failures[key]++
	failures := w.failures[key]
	if failures < w.opts.DeadLetterThreshold {
		w.mu.Unlock()
		return
	}
	w.parkedUntil[key] = w.now().Add(w.opts.DeadLetterCooldown)
	w.deadLettered[key] = true
	w.mu.Unlock()

	fields := log.Fields{
		"matchID":  key.matchID,
		"family":   key.family,
		"failures": failures,
		"cooldown": w.opts.DeadLetterCooldown,
	}
	log.WithFields(fields).Error("Parking match after repeated settlement failures")

	if _, err := w.deadLetters.Open(ctx, key.matchID, key.family, failures, cause.Error()); err != nil {
		log.WithError(err).WithFields(fields).Error("Failed to record dead letter")
	}

	message := fmt.Sprintf("Settlement of match %d (%s) parked after %d consecutive failures: %v",
		key.matchID, key.family, failures, cause)
	if err := w.alerter.Alert(ctx, message); err != nil {
		log.WithError(err).WithFields(fields).Error("Failed to send dead letter alert")
	}

	if w.bus != nil {
		w.bus.Emit(context.WithoutCancel(ctx), events.SettlementDeadLetteredEvent{
			MatchID:             key.matchID,
			Family:              key.family,
			ConsecutiveFailures: failures,
			LastError:           cause.Error(),
		})
	}
}

func (w *SettlementWorker) recordSuccess(ctx context.Context, key matchKey) {
	w.mu.Lock()
	delete(w.failures, key)
	wasDeadLettered := w.deadLettered[key]
	delete(w.deadLettered, key)
	w.mu.Unlock()

	if !wasDeadLettered {
		return
	}

	resolved, err := w.deadLetters.Resolve(ctx, key.matchID, key.family)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"matchID": key.matchID,
			"family":  key.family,
		}).Error("Failed to resolve dead letter")
		return
	}
	if resolved {
		log.WithFields(log.Fields{
			"matchID": key.matchID,
			"family":  key.family,
		}).Info("Resolved dead letter after successful settlement")
	}
}

// restoreDeadLetters carries open dead letters over a restart so the next
// success resolves them
func (w *SettlementWorker) restoreDeadLetters(ctx context.Context) {
	open, err := w.deadLetters.ListOpen(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to load open dead letters")
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, dl := range open {
		key := matchKey{matchID: dl.MatchID, family: dl.Family}
		w.failures[key] = dl.ConsecutiveFailures
		w.deadLettered[key] = true
	}
	if len(open) > 0 {
		log.WithField("count", len(open)).Info("Restored open dead letters")
	}
}
