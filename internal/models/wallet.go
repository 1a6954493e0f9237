package models

import "time"

// WalletAddress is a watched Solana public key. At most one active record
// exists per address; deactivation is a soft delete.
type WalletAddress struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Address   string    `gorm:"uniqueIndex:idx_wallet_address;size:64;not null" json:"address"`
	Label     string    `gorm:"size:255" json:"label,omitempty"`
	IsActive  bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName pins the gorm table name independent of struct renames.
func (WalletAddress) TableName() string {
	return "wallet_addresses"
}
