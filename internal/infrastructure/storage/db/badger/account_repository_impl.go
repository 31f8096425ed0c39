package dbbadger

import (
	"context"
	"fmt"

	"github.com/timshannon/badgerhold/v4"

	"github.com/tanglenet/wallet-daemon/internal/core/domain"
)

type accountRepositoryImpl struct {
	db *DbManager
}

// NewAccountRepositoryImpl returns a badger backed AccountRepository.
func NewAccountRepositoryImpl(db *DbManager) domain.AccountRepository {
	return accountRepositoryImpl{
		db: db,
	}
}

func (r accountRepositoryImpl) GetAllAccounts(
	ctx context.Context,
) ([]*domain.Account, error) {
	var accounts []domain.Account
	if err := r.db.Store.Find(
		&accounts,
		badgerhold.Where("Index").Ge(0).SortBy("Index"),
	); err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}

	list := make([]*domain.Account, 0, len(accounts))
	for i := range accounts {
		account := accounts[i]
		list = append(list, &account)
	}
	return list, nil
}

func (r accountRepositoryImpl) GetAccount(
	ctx context.Context, id domain.AccountIdentifier,
) (*domain.Account, error) {
	if index, ok := id.AccountIndex(); ok {
		return r.getAccountByIndex(index)
	}

	var account domain.Account
	if err := r.db.Store.Get(id.String(), &account); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("getting account %s: %w", id, err)
	}
	return &account, nil
}

func (r accountRepositoryImpl) SaveAccount(
	ctx context.Context, account *domain.Account,
) error {
	if err := r.db.Store.Upsert(account.ID.String(), *account); err != nil {
		return fmt.Errorf("saving account %s: %w", account.ID, err)
	}
	return nil
}

func (r accountRepositoryImpl) getAccountByIndex(index int) (*domain.Account, error) {
	var accounts []domain.Account
	if err := r.db.Store.Find(
		&accounts,
		badgerhold.Where("Index").Eq(index),
	); err != nil {
		return nil, fmt.Errorf("getting account at index %d: %w", index, err)
	}
	if len(accounts) <= 0 {
		return nil, domain.ErrAccountNotFound
	}
	return &accounts[0], nil
}
