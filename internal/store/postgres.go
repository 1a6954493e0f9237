package store

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormLogger "gorm.io/gorm/logger"

	"github.com/ljtgentle/solana-scan/internal/errs"
	"github.com/ljtgentle/solana-scan/internal/models"
	"github.com/ljtgentle/solana-scan/pkg/logger"
)

// PostgresStore is the gorm/postgres-backed Store Adapter.
type PostgresStore struct {
	log  *logger.Logger
	Conn *gorm.DB
}

// NewPostgresStore opens a connection pool against dsn, auto-migrates the
// three collections, and returns a ready Store.
func NewPostgresStore(dsn string, log *logger.Logger) (*PostgresStore, error) {
	gl := gormLogger.New(
		log2Writer(),
		gormLogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gl})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := db.AutoMigrate(&models.WalletAddress{}, &models.Transaction{}, &models.ScanStatus{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate models: %w", err)
	}

	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_tx_from_ts ON transactions (from_address, timestamp DESC)`).Error; err != nil {
		log.Warn("failed to ensure from_address/timestamp index", "error", err)
	}
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_tx_to_ts ON transactions (to_address, timestamp DESC)`).Error; err != nil {
		log.Warn("failed to ensure to_address/timestamp index", "error", err)
	}

	log.Info("connected to postgres with connection pool configured")
	return &PostgresStore{Conn: db, log: log}, nil
}

func log2Writer() *log.Logger {
	return log.New(os.Stdout, "\r\n", log.LstdFlags)
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.Conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}
	return sqlDB.Close()
}

func (s *PostgresStore) InsertAddress(address, label string) error {
	wallet := &models.WalletAddress{Address: address, Label: label, IsActive: true}
	if err := s.Conn.Create(wallet).Error; err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", errs.ErrDuplicateAddress, address)
		}
		return fmt.Errorf("failed to insert address: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetActiveAddresses() ([]models.WalletAddress, error) {
	var wallets []models.WalletAddress
	if err := s.Conn.Where("is_active = ?", true).Find(&wallets).Error; err != nil {
		return nil, fmt.Errorf("failed to list active addresses: %w", err)
	}
	return wallets, nil
}

func (s *PostgresStore) Deactivate(address string) error {
	result := s.Conn.Model(&models.WalletAddress{}).Where("address = ? AND is_active = ?", address, true).Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("failed to deactivate address: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("address not found: %w", errs.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) InsertTransaction(tx *models.Transaction) error {
	if err := s.Conn.Create(tx).Error; err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("duplicate signature %s: %w", tx.Signature, errs.ErrDuplicateTransaction)
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindTransaction(signature string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := s.Conn.Where("signature = ?", signature).First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}
	return &tx, nil
}

func (s *PostgresStore) QueryTransactions(q models.Query) ([]models.Transaction, error) {
	query := s.Conn.Model(&models.Transaction{})

	if q.Address != "" {
		query = query.Where("from_address = ? OR to_address = ?", q.Address, q.Address)
	}
	if q.TransactionType != "" {
		query = query.Where("transaction_type = ?", q.TransactionType)
	}
	if q.StartTime != nil {
		query = query.Where("timestamp >= ?", *q.StartTime)
	}
	if q.EndTime != nil {
		query = query.Where("timestamp <= ?", *q.EndTime)
	}

	query = query.Order("timestamp DESC")

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	query = query.Limit(limit)

	if q.Offset > 0 {
		query = query.Offset(q.Offset)
	}

	var txs []models.Transaction
	if err := query.Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	return txs, nil
}

func (s *PostgresStore) GetScanStatus() (*models.ScanStatus, error) {
	var status models.ScanStatus
	if err := s.Conn.Where("id = ?", models.ScanStatusID).First(&status).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get scan status: %w", err)
	}
	return &status, nil
}

func (s *PostgresStore) UpsertScanStatus(status *models.ScanStatus) error {
	status.ID = models.ScanStatusID
	err := s.Conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(status).Error
	if err != nil {
		return fmt.Errorf("failed to upsert scan status: %w", err)
	}
	return nil
}

// isDuplicateKeyError detects a unique-constraint violation by message
// matching, the same technique the lock machinery this adapter's dedup
// gate was adapted from used.
func isDuplicateKeyError(err error) bool {
	return strings.Contains(err.Error(), "duplicate key") ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}
