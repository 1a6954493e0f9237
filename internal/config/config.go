package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/ljtgentle/solana-scan/internal/errs"
)

// Config holds all runtime configuration loaded from the environment.
type Config struct {
	Development bool

	// Chain RPC configuration
	SolanaRPCURL string

	// Persistent store configuration. MongoDBURI is retained as the
	// env var name for interface compatibility with the source system,
	// but its value is used as a Postgres DSN (see DESIGN.md).
	MongoDBURI string

	// Message bus configuration
	KafkaBrokers         string
	KafkaTransactionTopic string
	KafkaClientID        string

	// Server configuration
	RPCPort       int
	WebsocketPort int

	// Scanner configuration
	ScanIntervalSecs int
	ScanTick         time.Duration
	MaxAddresses     int
	MaxConcurrentRequests int
	BootstrapWindow  uint64
}

const (
	// scanTick is the fixed main-loop tick; SCAN_INTERVAL_SECS is
	// retained for interface compatibility but the engine always ticks
	// at this resolution (spec §6).
	scanTick = 200 * time.Millisecond

	// bootstrapWindow is the number of slots behind chain head the
	// cursor starts at when no prior ScanStatus exists (spec §4.1).
	bootstrapWindow = 300
)

// Load reads configuration from the environment (after loading a .env
// file if present) and validates required fields.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Development:           getEnvAsBool("DEVELOPMENT", false),
		SolanaRPCURL:          getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		MongoDBURI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		KafkaBrokers:          getEnv("KAFKA_BROKERS", "localhost:9092"),
		KafkaTransactionTopic: getEnv("KAFKA_TRANSACTION_TOPIC", "solana_transactions"),
		KafkaClientID:         getEnv("KAFKA_CLIENT_ID", "solana_scanner"),
		RPCPort:               getEnvAsInt("RPC_PORT", 8080),
		WebsocketPort:         getEnvAsInt("WEBSOCKET_PORT", 8081),
		ScanIntervalSecs:      getEnvAsInt("SCAN_INTERVAL_SECS", 5),
		ScanTick:              scanTick,
		MaxAddresses:          getEnvAsInt("MAX_ADDRESSES", 100000),
		MaxConcurrentRequests: getEnvAsInt("MAX_CONCURRENT_REQUESTS", 16),
		BootstrapWindow:       bootstrapWindow,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are properly set.
func (c *Config) Validate() error {
	if c.SolanaRPCURL == "" {
		return fmt.Errorf("%w: SOLANA_RPC_URL is required", errs.ErrConfiguration)
	}

	if c.MongoDBURI == "" {
		return fmt.Errorf("%w: MONGODB_URI is required", errs.ErrConfiguration)
	}

	if c.KafkaBrokers == "" {
		return fmt.Errorf("%w: KAFKA_BROKERS is required", errs.ErrConfiguration)
	}

	if c.KafkaTransactionTopic == "" {
		return fmt.Errorf("%w: KAFKA_TRANSACTION_TOPIC is required", errs.ErrConfiguration)
	}

	if c.RPCPort <= 0 || c.RPCPort > 65535 {
		return fmt.Errorf("%w: RPC_PORT must be a valid port, got %d", errs.ErrConfiguration, c.RPCPort)
	}

	if c.WebsocketPort <= 0 || c.WebsocketPort > 65535 {
		return fmt.Errorf("%w: WEBSOCKET_PORT must be a valid port, got %d", errs.ErrConfiguration, c.WebsocketPort)
	}

	if c.MaxAddresses <= 0 {
		return fmt.Errorf("%w: MAX_ADDRESSES must be greater than 0, got %d", errs.ErrConfiguration, c.MaxAddresses)
	}

	if c.MaxConcurrentRequests <= 0 {
		return fmt.Errorf("%w: MAX_CONCURRENT_REQUESTS must be greater than 0, got %d", errs.ErrConfiguration, c.MaxConcurrentRequests)
	}

	return nil
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(name string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(name); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return defaultValue
}
