package ports

import "github.com/tanglenet/wallet-daemon/internal/core/domain"

// Signer is the opaque signing capability owning the account keys. Key
// material never crosses this boundary.
type Signer interface {
	// InitAccount registers the account with the signing backend, optionally
	// importing a mnemonic, and returns the hex encoded 32-byte record id.
	InitAccount(account *domain.Account, mnemonic string) (string, error)
	// DeriveAddress derives the address at the given key index.
	DeriveAddress(id domain.AccountIdentifier, keyIndex int, internal bool) (string, error)
}
