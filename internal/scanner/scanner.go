// Package scanner implements the Scanner Engine: cursor bootstrap,
// bounded-concurrency block fetch, and monotonic progress commit despite
// out-of-order completions.
package scanner

import (
	"context"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/ljtgentle/solana-scan/internal/chain"
	"github.com/ljtgentle/solana-scan/internal/classify"
	"github.com/ljtgentle/solana-scan/internal/dispatch"
	"github.com/ljtgentle/solana-scan/internal/errs"
	"github.com/ljtgentle/solana-scan/internal/models"
	"github.com/ljtgentle/solana-scan/internal/store"
	"github.com/ljtgentle/solana-scan/pkg/logger"
	"github.com/ljtgentle/solana-scan/pkg/validation"
)

// ChainClient is the subset of the Chain Client Adapter the Scanner Engine
// needs. *chain.Client satisfies it; tests supply a fake.
type ChainClient interface {
	GetSlot(ctx context.Context) (uint64, error)
	GetParsedBlock(ctx context.Context, slot uint64) (*chain.ParsedBlock, bool, error)
}

// Scanner owns the cursor, the concurrency budget, and the watched-address
// set. It is the only writer of ScanStatus.
type Scanner struct {
	chain      ChainClient
	store      store.Store
	dispatcher *dispatch.Dispatcher
	log        *logger.Logger

	tick             time.Duration
	concurrency      int
	bootstrapWindow  uint64
	maxAddresses     int

	watchedMu sync.RWMutex
	watched   map[string]struct{}

	cursorMu sync.Mutex
	cursor   uint64
	total    uint64
}

// Config bundles the tunables the Scanner Engine needs at construction.
type Config struct {
	Tick                  time.Duration
	MaxConcurrentRequests int
	BootstrapWindow       uint64
	MaxAddresses          int
}

// New builds a Scanner. Per the resolved wiring question (spec §9), the
// scanner takes the registry-backed Dispatcher at construction and
// invokes it for every classified transaction.
func New(chainClient ChainClient, st store.Store, dispatcher *dispatch.Dispatcher, log *logger.Logger, cfg Config) *Scanner {
	concurrency := cfg.MaxConcurrentRequests
	if concurrency < 1 {
		concurrency = 1
	}
	return &Scanner{
		chain:           chainClient,
		store:           st,
		dispatcher:      dispatcher,
		log:             log,
		tick:            cfg.Tick,
		concurrency:     concurrency,
		bootstrapWindow: cfg.BootstrapWindow,
		maxAddresses:    cfg.MaxAddresses,
		watched:         make(map[string]struct{}),
	}
}

// Contains implements classify.WatchedSet.
func (s *Scanner) Contains(address string) bool {
	s.watchedMu.RLock()
	defer s.watchedMu.RUnlock()
	_, ok := s.watched[address]
	return ok
}

// bootstrap loads prior ScanStatus, or computes the bootstrap cursor from
// current chain head when none exists (spec §4.1).
func (s *Scanner) bootstrap(ctx context.Context) error {
	status, err := s.store.GetScanStatus()
	if err != nil {
		return err
	}
	if status != nil {
		s.cursor = status.LastScannedBlock + 1
		s.total = status.TotalTransactionsScanned
		s.log.Info("resuming scan", "cursor", s.cursor)
		return nil
	}

	head, err := s.chain.GetSlot(ctx)
	if err != nil {
		return err
	}
	start := uint64(0)
	if head > s.bootstrapWindow {
		start = head - s.bootstrapWindow
	}
	s.cursor = start
	s.log.Info("no prior scan status, bootstrapping", "head", head, "cursor", s.cursor)
	return nil
}

// loadWatchedAddresses seeds the in-memory set from the store.
func (s *Scanner) loadWatchedAddresses() error {
	addrs, err := s.store.GetActiveAddresses()
	if err != nil {
		return err
	}
	s.watchedMu.Lock()
	defer s.watchedMu.Unlock()
	for _, a := range addrs {
		s.watched[a.Address] = struct{}{}
	}
	return nil
}

// Start runs the main scan loop until ctx is cancelled. It never returns
// early on a per-slot error; only cancellation stops it.
func (s *Scanner) Start(ctx context.Context) error {
	if err := s.loadWatchedAddresses(); err != nil {
		return err
	}
	if err := s.bootstrap(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.markStopped()
			s.log.Info("scanner stopped")
			return nil
		case <-ticker.C:
			s.runTick(ctx)
		}
	}
}

// runTick fetches and classifies every slot in [cursor, head] with bounded
// concurrency, then advances the committed cursor through the longest
// contiguous completed prefix.
func (s *Scanner) runTick(ctx context.Context) {
	head, err := s.chain.GetSlot(ctx)
	if err != nil {
		s.log.Error("failed to get chain head", "error", err)
		return
	}

	s.cursorMu.Lock()
	cursor := s.cursor
	s.cursorMu.Unlock()

	if cursor > head {
		return
	}

	slots := make([]uint64, 0, head-cursor+1)
	for slot := cursor; slot <= head; slot++ {
		slots = append(slots, slot)
	}

	results := s.fetchAndClassify(ctx, slots)
	s.commit(cursor, head, results)
}

// slotResult records whether a slot completed (success or skip) and how
// many transactions it produced.
type slotResult struct {
	slot      uint64
	completed bool
	txCount   int
}

// fetchAndClassify runs block fetch+classify for every slot with bounded
// concurrency C. Completion order is non-deterministic; the caller
// reconciles ordering during commit.
func (s *Scanner) fetchAndClassify(ctx context.Context, slots []uint64) map[uint64]slotResult {
	results := make(map[uint64]slotResult, len(slots))
	var mu sync.Mutex

	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup

	for _, slot := range slots {
		slot := slot
		wg.Add(1)
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Done()
			continue
		}

		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("panic while processing slot", "slot", slot, "panic", r, "stack", string(debug.Stack()))
				}
			}()

			res := s.processSlot(ctx, slot)

			mu.Lock()
			results[slot] = res
			mu.Unlock()
		}()
	}

	wg.Wait()
	return results
}

// processSlot fetches and classifies a single slot. A missing block counts
// as a completed skip; a transport error counts as incomplete.
func (s *Scanner) processSlot(ctx context.Context, slot uint64) slotResult {
	block, ok, err := s.chain.GetParsedBlock(ctx, slot)
	if err != nil {
		s.log.Error("failed to fetch block", "slot", slot, "error", err)
		return slotResult{slot: slot, completed: false}
	}
	if !ok {
		return slotResult{slot: slot, completed: true}
	}

	count := 0
	for _, tx := range block.Transactions {
		// Hold the watched-set read lock for the whole envelope so its
		// classification sees one consistent snapshot.
		txs := func() []models.Transaction {
			s.watchedMu.RLock()
			defer s.watchedMu.RUnlock()
			return classify.Classify(tx, slot, watchedView(s.watched))
		}()
		for _, record := range txs {
			s.dispatcher.Dispatch(record)
			count++
		}
	}
	return slotResult{slot: slot, completed: true, txCount: count}
}

// watchedView is a lock-free classify.WatchedSet over the watched map; the
// caller holds watchedMu while it is in use.
type watchedView map[string]struct{}

func (w watchedView) Contains(address string) bool {
	_, ok := w[address]
	return ok
}

// commit advances the persisted cursor through the longest contiguous run
// of completed slots starting at the prior cursor. Slots that failed
// transiently fall back into range on the next tick since the cursor
// never advances past them.
func (s *Scanner) commit(prevCursor, head uint64, results map[uint64]slotResult) {
	sorted := make([]uint64, 0, len(results))
	for slot := range results {
		sorted = append(sorted, slot)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	newCursor := prevCursor
	txTotal := uint64(0)
	advanced := false

	for _, slot := range sorted {
		res := results[slot]
		if slot != newCursor || !res.completed {
			break
		}
		newCursor = slot + 1
		txTotal += uint64(res.txCount)
		advanced = true
	}

	if !advanced {
		return
	}

	s.cursorMu.Lock()
	s.cursor = newCursor
	s.total += txTotal
	cursor := s.cursor
	total := s.total
	s.cursorMu.Unlock()

	status := store.NewScanStatus(cursor-1, total, true)
	if err := s.store.UpsertScanStatus(status); err != nil {
		s.log.Error("failed to persist scan status", "error", err)
	}
}

// markStopped flips the persisted ScanStatus.IsScanning to false on
// cancellation, so the singleton row reflects that no scan is in flight.
func (s *Scanner) markStopped() {
	s.cursorMu.Lock()
	cursor := s.cursor
	total := s.total
	s.cursorMu.Unlock()

	if cursor == 0 {
		return
	}
	status := store.NewScanStatus(cursor-1, total, false)
	if err := s.store.UpsertScanStatus(status); err != nil {
		s.log.Error("failed to persist scan status on stop", "error", err)
	}
}

// AddWatched registers address for scanning, updating both the persisted
// record and the in-memory set.
func (s *Scanner) AddWatched(address, label string) error {
	if err := validation.ValidateAddress(address); err != nil {
		return errs.ErrInvalidAddress
	}

	s.watchedMu.RLock()
	n := len(s.watched)
	s.watchedMu.RUnlock()
	if n >= s.maxAddresses {
		return errs.ErrMaxAddresses
	}

	if err := s.store.InsertAddress(address, label); err != nil {
		return err
	}

	s.watchedMu.Lock()
	s.watched[address] = struct{}{}
	s.watchedMu.Unlock()
	return nil
}

// RemoveWatched deactivates address, removing it from the in-memory set.
func (s *Scanner) RemoveWatched(address string) error {
	if err := s.store.Deactivate(address); err != nil {
		return err
	}
	s.watchedMu.Lock()
	delete(s.watched, address)
	s.watchedMu.Unlock()
	return nil
}

// WatchedAddresses returns a snapshot of the currently watched set.
func (s *Scanner) WatchedAddresses() []string {
	s.watchedMu.RLock()
	defer s.watchedMu.RUnlock()
	out := make([]string, 0, len(s.watched))
	for a := range s.watched {
		out = append(out, a)
	}
	return out
}

// GetTransactions is a thin pass-through to the Store Adapter. Unlike the
// source system, it returns the store's result rather than discarding it
// (spec §9 — treated as a defect there and fixed here).
func (s *Scanner) GetTransactions(q models.Query) ([]models.Transaction, error) {
	return s.store.QueryTransactions(q)
}
