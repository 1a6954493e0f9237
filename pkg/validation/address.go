package validation

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// pubkeyLen is the byte length of a Solana ed25519 public key.
const pubkeyLen = 32

// ValidateAddress validates that addr is a well-formed Solana base58
// public key (32 raw bytes once decoded).
func ValidateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("address cannot be empty")
	}

	decoded, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("invalid base58 address: %w", err)
	}

	if len(decoded) != pubkeyLen {
		return fmt.Errorf("invalid address length: expected %d bytes, got %d", pubkeyLen, len(decoded))
	}

	return nil
}

// NormalizeAddress returns addr unchanged. Solana addresses are
// case-sensitive base58, unlike hex addresses elsewhere in the corpus, so
// there is no canonicalization to perform beyond validation.
func NormalizeAddress(addr string) string {
	return addr
}

// ValidateAndNormalizeAddress validates an address and returns its
// normalized form.
func ValidateAndNormalizeAddress(addr string) (string, error) {
	if err := ValidateAddress(addr); err != nil {
		return "", err
	}
	return NormalizeAddress(addr), nil
}
