package domain

import "context"

// AccountRepository is the persistent storage boundary of the engine. The
// implementation must be atomic per account record: a concurrent save/load
// pair never observes a partial write.
type AccountRepository interface {
	// GetAllAccounts returns every stored account in creation order.
	GetAllAccounts(ctx context.Context) ([]*Account, error)
	// GetAccount returns the account matching the identifier, resolving both
	// the record id and the index variant. It fails with ErrAccountNotFound
	// on a lookup miss.
	GetAccount(ctx context.Context, id AccountIdentifier) (*Account, error)
	// SaveAccount persists the whole account record.
	SaveAccount(ctx context.Context, account *Account) error
}
