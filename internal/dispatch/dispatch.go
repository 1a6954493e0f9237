// Package dispatch implements the Dispatcher: the three-sink fan-out
// (store, bus, subscribers) with independent failure isolation and a
// duplicate-suppression gate ahead of publish/notify.
package dispatch

import (
	"errors"

	"github.com/ljtgentle/solana-scan/internal/bus"
	"github.com/ljtgentle/solana-scan/internal/errs"
	"github.com/ljtgentle/solana-scan/internal/models"
	"github.com/ljtgentle/solana-scan/internal/registry"
	"github.com/ljtgentle/solana-scan/internal/store"
	"github.com/ljtgentle/solana-scan/pkg/logger"
)

// Dispatcher fans a classified transaction out to its three sinks.
type Dispatcher struct {
	store     store.Store
	publisher bus.Publisher
	registry  *registry.Registry
	log       *logger.Logger
}

// New builds a Dispatcher over the given sinks.
func New(s store.Store, p bus.Publisher, r *registry.Registry, log *logger.Logger) *Dispatcher {
	return &Dispatcher{store: s, publisher: p, registry: r, log: log}
}

// Dispatch persists tx, then (unless it was a duplicate) publishes and
// notifies concurrently. Sink 1 is awaited first to enforce the dedup
// gate; sinks 2 and 3 proceed independently of each other's failures.
func (d *Dispatcher) Dispatch(tx models.Transaction) {
	if errors.Is(d.persist(&tx), errs.ErrDuplicateTransaction) {
		d.log.Debug("duplicate transaction suppressed", "signature", tx.Signature)
		return
	}

	done := make(chan struct{}, 2)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("panic in bus publish", "signature", tx.Signature, "panic", r)
			}
			done <- struct{}{}
		}()
		if err := d.publisher.Send(tx); err != nil {
			d.log.Error("failed to publish transaction", "signature", tx.Signature, "error", err)
		}
	}()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("panic in subscriber notify", "signature", tx.Signature, "panic", r)
			}
			done <- struct{}{}
		}()
		d.registry.Notify(tx)
	}()

	<-done
	<-done
}

// persist inserts tx into the store. A duplicate-signature violation is
// reported via errs.ErrDuplicateTransaction; any other persist error is
// logged but does not block publish/notify (at-least-once bus delivery is
// preferred over silent loss).
func (d *Dispatcher) persist(tx *models.Transaction) error {
	err := d.store.InsertTransaction(tx)
	if err == nil {
		return nil
	}
	if errors.Is(err, errs.ErrDuplicateTransaction) {
		return errs.ErrDuplicateTransaction
	}
	d.log.Error("failed to persist transaction", "signature", tx.Signature, "error", err)
	return nil
}
