package domain

import "errors"

var (
	// ErrAccountNotFound is thrown when looking up an account that is not in
	// the storage.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAddressNotFound is thrown when an account does not own the requested
	// address.
	ErrAddressNotFound = errors.New("address not found")
	// ErrMessageNotFound is thrown when an account history does not contain
	// the requested message.
	ErrMessageNotFound = errors.New("message not found")
	// ErrInvalidIdentifier is thrown when an identifier variant does not match
	// the one required by the operation, or the id is not a 32-byte hex string.
	ErrInvalidIdentifier = errors.New("invalid account identifier")
	// ErrLatestAccountEmpty is thrown when creating an account while the most
	// recent one still has no history.
	ErrLatestAccountEmpty = errors.New("latest account is empty, use it before creating a new one")
	// ErrAddressRequired ...
	ErrAddressRequired = errors.New("the address value is required")
)
