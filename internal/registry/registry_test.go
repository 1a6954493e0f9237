package registry

import (
	"testing"

	"github.com/ljtgentle/solana-scan/internal/models"
)

func TestRegistry_SubscribeCloseInspect_YieldsEmptyMaps(t *testing.T) {
	r := New()
	r.AddConnection("conn1")

	if err := r.Subscribe("conn1", "A"); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	if addrs := r.SubscribedAddresses("conn1"); len(addrs) != 1 {
		t.Fatalf("expected 1 subscription, got %d", len(addrs))
	}

	r.RemoveConnection("conn1")

	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.connections) != 0 {
		t.Errorf("expected connections map empty, got %d entries", len(r.connections))
	}
	if len(r.addressSubscribers) != 0 {
		t.Errorf("expected addressSubscribers map empty, got %d entries", len(r.addressSubscribers))
	}
}

func TestRegistry_SubscribeUnknownConnection_Errors(t *testing.T) {
	r := New()
	if err := r.Subscribe("ghost", "A"); err == nil {
		t.Fatal("expected error subscribing unknown connection")
	}
}

func TestRegistry_Notify_FanOut(t *testing.T) {
	r := New()
	c1 := r.AddConnection("c1")
	c2 := r.AddConnection("c2")
	c3 := r.AddConnection("c3")

	if err := r.Subscribe("c1", "A"); err != nil {
		t.Fatal(err)
	}
	if err := r.Subscribe("c2", "B"); err != nil {
		t.Fatal(err)
	}
	if err := r.Subscribe("c3", "C"); err != nil {
		t.Fatal(err)
	}

	r.Notify(models.Transaction{FromAddress: "A", ToAddress: "B", Signature: "sig1"})

	select {
	case <-c1:
	default:
		t.Error("expected c1 to receive a frame")
	}
	select {
	case <-c2:
	default:
		t.Error("expected c2 to receive a frame")
	}
	select {
	case <-c3:
		t.Error("expected c3 to receive nothing")
	default:
	}
}

func TestRegistry_DualIndexConsistency(t *testing.T) {
	r := New()
	r.AddConnection("c1")
	if err := r.Subscribe("c1", "A"); err != nil {
		t.Fatal(err)
	}

	r.mu.RLock()
	_, inAddrIndex := r.addressSubscribers["A"]["c1"]
	_, inConnIndex := r.connections["c1"].subscribed["A"]
	r.mu.RUnlock()

	if inAddrIndex != inConnIndex {
		t.Fatalf("dual-index inconsistency: addrIndex=%v connIndex=%v", inAddrIndex, inConnIndex)
	}
	if !inAddrIndex {
		t.Fatal("expected both indices to reflect the subscription")
	}
}
