// Package store implements the Store Adapter contract: typed persistence
// for watched addresses, transactions, and the scan cursor.
package store

import (
	"time"

	"github.com/ljtgentle/solana-scan/internal/models"
)

// Store is the persistence contract consumed by the Scanner Engine,
// Dispatcher, and Control Plane.
type Store interface {
	InsertAddress(address, label string) error
	GetActiveAddresses() ([]models.WalletAddress, error)
	Deactivate(address string) error

	InsertTransaction(tx *models.Transaction) error
	FindTransaction(signature string) (*models.Transaction, error)
	QueryTransactions(q models.Query) ([]models.Transaction, error)

	GetScanStatus() (*models.ScanStatus, error)
	UpsertScanStatus(status *models.ScanStatus) error

	Close() error
}

// NewScanStatus is a convenience constructor used by the scanner to
// build the record it upserts each commit.
func NewScanStatus(lastScannedBlock uint64, totalScanned uint64, scanning bool) *models.ScanStatus {
	return &models.ScanStatus{
		ID:                       models.ScanStatusID,
		LastScannedBlock:         lastScannedBlock,
		LastScanTime:             time.Now().UTC(),
		TotalTransactionsScanned: totalScanned,
		IsScanning:               scanning,
	}
}
