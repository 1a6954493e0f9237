package models

import "time"

// ScanStatus is the singleton progress record the Scanner Engine owns.
// LastScannedBlock is gap-free: every slot at or below it has completed.
type ScanStatus struct {
	ID                      string    `gorm:"primarykey;size:32" json:"id"`
	LastScannedBlock        uint64    `gorm:"not null" json:"last_scanned_block"`
	LastScanTime            time.Time `json:"last_scan_time"`
	TotalTransactionsScanned uint64   `gorm:"not null;default:0" json:"total_transactions_scanned"`
	IsScanning              bool      `json:"is_scanning"`
}

// TableName pins the gorm table name independent of struct renames.
func (ScanStatus) TableName() string {
	return "scan_status"
}

// ScanStatusID is the fixed singleton row identifier.
const ScanStatusID = "scan_status"
