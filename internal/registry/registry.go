// Package registry implements the Subscription Registry: an in-memory,
// dual-indexed map of live push-channel connections and the addresses
// they subscribe to, with O(1) lookup in both directions.
package registry

import (
	"encoding/json"
	"sync"

	"github.com/ljtgentle/solana-scan/internal/errs"
	"github.com/ljtgentle/solana-scan/internal/models"
)

// SendQueueCapacity bounds each connection's outbound buffer. A slow
// consumer causes notify to drop frames for that connection rather than
// grow memory without bound (spec §9 open question, resolved: bounded
// with drop-on-full).
const SendQueueCapacity = 256

type connection struct {
	send        chan []byte
	subscribed  map[string]struct{}
}

// Registry guards its two indices with a single lock; subscribe and
// unsubscribe mutate both maps under the same critical section so no
// observer ever sees a half-applied change.
type Registry struct {
	mu                 sync.RWMutex
	connections        map[string]*connection
	addressSubscribers map[string]map[string]struct{}
}

// New builds an empty registry.
func New() *Registry {
	return &Registry{
		connections:        make(map[string]*connection),
		addressSubscribers: make(map[string]map[string]struct{}),
	}
}

// AddConnection registers a new connection id and returns its send
// channel. The caller's write-pump goroutine drains this channel.
func (r *Registry) AddConnection(connID string) <-chan []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn := &connection{
		send:       make(chan []byte, SendQueueCapacity),
		subscribed: make(map[string]struct{}),
	}
	r.connections[connID] = conn
	return conn.send
}

// RemoveConnection drops the connection and prunes it from every address
// subscriber set it belonged to, removing any set left empty.
func (r *Registry) RemoveConnection(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[connID]
	if !ok {
		return
	}
	for addr := range conn.subscribed {
		subs := r.addressSubscribers[addr]
		delete(subs, connID)
		if len(subs) == 0 {
			delete(r.addressSubscribers, addr)
		}
	}
	close(conn.send)
	delete(r.connections, connID)
}

// Subscribe adds address to connID's subscription set. Errors if connID
// is unknown.
func (r *Registry) Subscribe(connID, address string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[connID]
	if !ok {
		return errs.ErrSocketClosed
	}

	conn.subscribed[address] = struct{}{}
	subs, ok := r.addressSubscribers[address]
	if !ok {
		subs = make(map[string]struct{})
		r.addressSubscribers[address] = subs
	}
	subs[connID] = struct{}{}
	return nil
}

// Unsubscribe removes address from connID's subscription set, pruning an
// empty address entry.
func (r *Registry) Unsubscribe(connID, address string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[connID]
	if !ok {
		return errs.ErrSocketClosed
	}

	delete(conn.subscribed, address)
	if subs, ok := r.addressSubscribers[address]; ok {
		delete(subs, connID)
		if len(subs) == 0 {
			delete(r.addressSubscribers, address)
		}
	}
	return nil
}

// SubscribedAddresses returns a snapshot of connID's subscriptions.
func (r *Registry) SubscribedAddresses(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.connections[connID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(conn.subscribed))
	for addr := range conn.subscribed {
		out = append(out, addr)
	}
	return out
}

// Notify fans a transaction out to every connection subscribed to its
// from- or to-address. The payload is serialized once. Enqueue is
// non-blocking: a full or closed channel silently drops that delivery,
// leaving cleanup to the owning connection's lifecycle.
func (r *Registry) Notify(tx models.Transaction) {
	payload, err := json.Marshal(tx)
	if err != nil {
		return
	}

	r.mu.RLock()
	targets := make(map[string]struct{})
	for _, addr := range []string{tx.FromAddress, tx.ToAddress} {
		if addr == "" {
			continue
		}
		for connID := range r.addressSubscribers[addr] {
			targets[connID] = struct{}{}
		}
	}
	conns := make([]*connection, 0, len(targets))
	for connID := range targets {
		if conn, ok := r.connections[connID]; ok {
			conns = append(conns, conn)
		}
	}
	r.mu.RUnlock()

	for _, conn := range conns {
		deliver(conn, payload)
	}
}

// deliver enqueues payload on conn's send channel, recovering from a
// send-on-closed-channel panic if the connection was removed between the
// read lock release and this point.
func deliver(conn *connection, payload []byte) {
	defer func() { _ = recover() }()
	select {
	case conn.send <- payload:
	default:
	}
}
