package inmemory

import (
	"context"
	"sync"

	"github.com/tanglenet/wallet-daemon/internal/core/domain"
)

// AccountRepositoryImpl represents an in memory account storage. Accounts
// are stored and returned by copy, so callers only observe mutations that
// went through SaveAccount, like with the on-disk storage.
type AccountRepositoryImpl struct {
	accounts []*domain.Account
	lock     *sync.RWMutex
}

// NewAccountRepositoryImpl returns a new empty AccountRepositoryImpl.
func NewAccountRepositoryImpl() *AccountRepositoryImpl {
	return &AccountRepositoryImpl{
		accounts: make([]*domain.Account, 0),
		lock:     &sync.RWMutex{},
	}
}

func (r *AccountRepositoryImpl) GetAllAccounts(
	ctx context.Context,
) ([]*domain.Account, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	accounts := make([]*domain.Account, 0, len(r.accounts))
	for _, account := range r.accounts {
		accounts = append(accounts, cloneAccount(account))
	}
	return accounts, nil
}

func (r *AccountRepositoryImpl) GetAccount(
	ctx context.Context, id domain.AccountIdentifier,
) (*domain.Account, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	account, _ := r.findAccount(id)
	if account == nil {
		return nil, domain.ErrAccountNotFound
	}
	return cloneAccount(account), nil
}

func (r *AccountRepositoryImpl) SaveAccount(
	ctx context.Context, account *domain.Account,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, index := r.findAccount(account.ID); index >= 0 {
		r.accounts[index] = cloneAccount(account)
		return nil
	}
	r.accounts = append(r.accounts, cloneAccount(account))
	return nil
}

func (r *AccountRepositoryImpl) findAccount(
	id domain.AccountIdentifier,
) (*domain.Account, int) {
	if index, ok := id.AccountIndex(); ok {
		if index < 0 || index >= len(r.accounts) {
			return nil, -1
		}
		return r.accounts[index], index
	}
	for i, account := range r.accounts {
		if account.ID == id {
			return account, i
		}
	}
	return nil, -1
}

func cloneAccount(account *domain.Account) *domain.Account {
	clone := *account

	clone.Messages = make([]*domain.Message, 0, len(account.Messages))
	for _, message := range account.Messages {
		messageCopy := *message
		if message.Confirmed != nil {
			confirmed := *message.Confirmed
			messageCopy.Confirmed = &confirmed
		}
		clone.Messages = append(clone.Messages, &messageCopy)
	}

	clone.Addresses = make([]domain.Address, 0, len(account.Addresses))
	for _, address := range account.Addresses {
		addressCopy := address
		if address.Outputs != nil {
			addressCopy.Outputs = make(map[string]domain.Output, len(address.Outputs))
			for key, output := range address.Outputs {
				addressCopy.Outputs[key] = output
			}
		}
		clone.Addresses = append(clone.Addresses, addressCopy)
	}

	return &clone
}
