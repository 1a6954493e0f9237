package dispatch

import (
	"sync"
	"testing"

	"github.com/ljtgentle/solana-scan/internal/errs"
	"github.com/ljtgentle/solana-scan/internal/models"
	"github.com/ljtgentle/solana-scan/internal/registry"
	"github.com/ljtgentle/solana-scan/pkg/logger"
)

// fakeStore persists by signature, reporting a duplicate on a second
// insert of the same signature, matching the unique-index behavior of
// PostgresStore.
type fakeStore struct {
	mu   sync.Mutex
	rows map[string]models.Transaction
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]models.Transaction)}
}

func (f *fakeStore) InsertAddress(address, label string) error { return nil }
func (f *fakeStore) GetActiveAddresses() ([]models.WalletAddress, error) {
	return nil, nil
}
func (f *fakeStore) Deactivate(address string) error { return nil }

func (f *fakeStore) InsertTransaction(tx *models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[tx.Signature]; ok {
		return errs.ErrDuplicateTransaction
	}
	f.rows[tx.Signature] = *tx
	return nil
}
func (f *fakeStore) FindTransaction(signature string) (*models.Transaction, error) {
	return nil, nil
}
func (f *fakeStore) QueryTransactions(q models.Query) ([]models.Transaction, error) {
	return nil, nil
}
func (f *fakeStore) GetScanStatus() (*models.ScanStatus, error)       { return nil, nil }
func (f *fakeStore) UpsertScanStatus(status *models.ScanStatus) error { return nil }
func (f *fakeStore) Close() error                                    { return nil }

func (f *fakeStore) rowCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

// countingPublisher counts how many times Send is called.
type countingPublisher struct {
	mu    sync.Mutex
	sends int
}

func (p *countingPublisher) Send(tx models.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sends++
	return nil
}
func (p *countingPublisher) PublishRaw(topic, key string, payload []byte) error { return nil }
func (p *countingPublisher) Close() error                                      { return nil }

func (p *countingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sends
}

func TestDispatch_DuplicateReplay_SuppressesPublishAndNotify(t *testing.T) {
	st := newFakeStore()
	pub := &countingPublisher{}
	reg := registry.New()
	conn := reg.AddConnection("c1")
	if err := reg.Subscribe("c1", "A"); err != nil {
		t.Fatal(err)
	}

	log, err := logger.NewLogger(false)
	if err != nil {
		t.Fatal(err)
	}
	d := New(st, pub, reg, log)

	tx := models.Transaction{Signature: "sig1", FromAddress: "A", ToAddress: "B"}

	d.Dispatch(tx)
	d.Dispatch(tx) // replay of the same envelope

	if got := st.rowCount(); got != 1 {
		t.Fatalf("expected exactly 1 persisted row, got %d", got)
	}
	if got := pub.count(); got != 1 {
		t.Fatalf("expected exactly 1 publish, got %d", got)
	}

	received := 0
	for {
		select {
		case <-conn:
			received++
			continue
		default:
		}
		break
	}
	if received != 1 {
		t.Fatalf("expected exactly 1 notify frame, got %d", received)
	}
}

func TestDispatch_NonDuplicatePersistFailure_StillPublishesAndNotifies(t *testing.T) {
	st := &alwaysFailStore{fakeStore: newFakeStore()}
	pub := &countingPublisher{}
	reg := registry.New()
	conn := reg.AddConnection("c1")
	if err := reg.Subscribe("c1", "A"); err != nil {
		t.Fatal(err)
	}

	log, err := logger.NewLogger(false)
	if err != nil {
		t.Fatal(err)
	}
	d := New(st, pub, reg, log)

	d.Dispatch(models.Transaction{Signature: "sig1", FromAddress: "A", ToAddress: "B"})

	if got := pub.count(); got != 1 {
		t.Fatalf("expected publish to still occur despite persist failure, got %d sends", got)
	}
	select {
	case <-conn:
	default:
		t.Fatal("expected notify to still occur despite persist failure")
	}
}

// alwaysFailStore reports a non-duplicate error from InsertTransaction,
// exercising the "log and still attempt publish/notify" path.
type alwaysFailStore struct {
	*fakeStore
}

func (a *alwaysFailStore) InsertTransaction(tx *models.Transaction) error {
	return errUnavailable
}

var errUnavailable = &storeUnavailableError{}

type storeUnavailableError struct{}

func (*storeUnavailableError) Error() string { return "store unavailable" }
