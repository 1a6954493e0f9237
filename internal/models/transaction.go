package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a matched transfer.
type TransactionType string

const (
	TransactionTypeNative TransactionType = "native"
	TransactionTypeToken  TransactionType = "token"
	TransactionTypeNFT    TransactionType = "nft"
)

// TransactionStatus mirrors the chain's reported execution outcome.
type TransactionStatus string

const (
	StatusConfirmed TransactionStatus = "confirmed"
	StatusFailed    TransactionStatus = "failed"
	StatusPending   TransactionStatus = "pending"
)

// Transaction is a normalized record of a transfer touching a watched
// address. Signature is the unique identity; once persisted a record is
// never mutated.
type Transaction struct {
	ID              uint            `gorm:"primarykey" json:"id"`
	Signature       string          `gorm:"uniqueIndex:idx_tx_signature;size:128;not null" json:"signature"`
	BlockNumber     uint64          `gorm:"index;not null" json:"block_number"`
	TransactionType TransactionType `gorm:"size:16;not null" json:"transaction_type"`
	FromAddress     string          `gorm:"size:64;index:idx_tx_from_ts,priority:1" json:"from_address"`
	ToAddress       string          `gorm:"size:64;index:idx_tx_to_ts,priority:1" json:"to_address,omitempty"`
	Amount          decimal.Decimal `gorm:"type:numeric(38,18);not null" json:"amount"`
	TokenMint       string          `gorm:"size:64" json:"token_mint,omitempty"`
	TokenSymbol     string          `gorm:"size:32" json:"token_symbol,omitempty"`
	Fee             decimal.Decimal `gorm:"type:numeric(38,18);not null" json:"fee"`
	Timestamp       time.Time       `gorm:"index:idx_tx_from_ts,priority:2,sort:desc;index:idx_tx_to_ts,priority:2,sort:desc;not null" json:"timestamp"`
	Status          TransactionStatus `gorm:"size:16;not null" json:"status"`
	RawData         json.RawMessage `gorm:"type:jsonb" json:"raw_data,omitempty"`
}

// TableName pins the gorm table name independent of struct renames.
func (Transaction) TableName() string {
	return "transactions"
}

// Query filters query_transactions results. Address matches either
// FromAddress or ToAddress. TransactionType and the time range are
// supplemental filters not present in the distilled contract but
// supported by the Store Adapter for richer lookups.
type Query struct {
	Address         string
	TransactionType TransactionType
	StartTime       *time.Time
	EndTime         *time.Time
	Limit           int
	Offset          int
}
