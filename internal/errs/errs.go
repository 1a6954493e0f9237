// Package errs defines the sentinel error values used for errors.Is
// matching at package boundaries. Everywhere else errors are wrapped with
// fmt.Errorf("...: %w", err) in the usual Go idiom.
package errs

import "errors"

var (
	// ErrNotFound indicates a requested wallet, transaction or scan status
	// row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateTransaction indicates a transaction with the same
	// signature has already been persisted.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrDuplicateAddress indicates a wallet address is already registered
	// for watching.
	ErrDuplicateAddress = errors.New("address already registered")

	// ErrInvalidAddress indicates a string failed Solana base58 pubkey
	// validation.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrRateLimited indicates the upstream chain RPC node rejected a
	// request with a rate-limit response.
	ErrRateLimited = errors.New("rate limited")

	// ErrConfiguration indicates a required configuration value was
	// missing or malformed at startup.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrChainUnavailable indicates the chain RPC node could not be
	// reached or returned a transport-level failure.
	ErrChainUnavailable = errors.New("chain rpc unavailable")

	// ErrBusUnavailable indicates the message bus producer could not
	// deliver a message within its timeout.
	ErrBusUnavailable = errors.New("bus unavailable")

	// ErrSocketClosed indicates an operation was attempted against a
	// push-channel connection that has already been removed from the
	// registry.
	ErrSocketClosed = errors.New("socket closed")

	// ErrMaxAddresses indicates the watched-address set is already at its
	// configured capacity.
	ErrMaxAddresses = errors.New("max watched addresses reached")
)
