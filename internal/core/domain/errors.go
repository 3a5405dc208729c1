package domain

import (
	"errors"
	"fmt"
)

const (
	// HashLockTimeoutMessage is the error reported when the hash lock is not
	// confirmed within the configured bound.
	HashLockTimeoutMessage = "The hashlock transaction confirmation timed out"
)

var (
	ErrMissingAddress            = NewValidationError("address", "missing address")
	ErrInvalidAddressLength      = NewValidationError("address", "invalid address length")
	ErrInvalidAddressChecksum    = NewValidationError("address", "invalid address checksum")
	ErrInvalidAddressEncoding    = NewValidationError("address", "address must be base32 or hex encoded")
	ErrInvalidNetwork            = NewValidationError("network", "network must be one of mainnet | testnet")
	ErrMissingPayload            = NewValidationError("payload", "missing signed transaction payload")
	ErrInvalidPayload            = NewValidationError("payload", "signed transaction payload must be hex encoded")
	ErrInvalidHash               = NewValidationError("hash", "transaction hash must be 32 bytes in hex format")
	ErrInvalidPublicKey          = NewValidationError("publicKey", "public key must be 32 bytes in hex format")
	ErrInvalidTimeout            = NewValidationError("timeout", "timeout must be greater than zero")
	ErrBroadcasterAlreadyStarted = NewValidationError("broadcaster", "broadcaster can be started only once")
	ErrMissingSigner             = NewValidationError("signer", "missing cosignature signer")

	// ErrConnectionFailed is surfaced by a listener once every reconnection
	// attempt has been exhausted.
	ErrConnectionFailed = errors.New("listener connection failed")

	ErrAccountNotFound = errors.New("account not found")
)

// ValidationError is returned synchronously for malformed inputs, always
// before any resource is acquired.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{field, reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NetworkError means the node rejected or failed to acknowledge a request.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ListenerError is a push channel failure: socket error, dropped connection
// or a status error notified for a watched transaction.
type ListenerError struct {
	Err error
}

func (e *ListenerError) Error() string {
	return fmt.Sprintf("listener: %s", e.Err)
}

func (e *ListenerError) Unwrap() error {
	return e.Err
}

// TimeoutError means the awaited confirmation did not arrive in time.
type TimeoutError struct {
	Hash string
}

func (e *TimeoutError) Error() string {
	return HashLockTimeoutMessage
}

// IsValidationError returns whether err is, or wraps, a *ValidationError.
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}
