package dbbadger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/thanhpk/randstr"
	"github.com/tanglenet/wallet-daemon/internal/core/domain"
	dbbadger "github.com/tanglenet/wallet-daemon/internal/infrastructure/storage/db/badger"
)

func TestAccountRepository(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	id := domain.NewIDIdentifier(randstr.Hex(32))
	address, err := domain.NewAddress("addr0", 25, 0, false)
	require.NoError(t, err)

	account := &domain.Account{
		ID:    id,
		Index: 0,
		Alias: "Account 0",
	}
	account.AppendAddresses(address)
	account.AppendMessages(&domain.Message{
		ID:          randstr.Hex(32),
		Payload:     randstr.Hex(16),
		Broadcasted: true,
	})
	require.NoError(t, repo.SaveAccount(ctx, account))

	stored, err := repo.GetAccount(ctx, id)
	require.NoError(t, err)
	require.Equal(t, id, stored.ID)
	require.Equal(t, "Account 0", stored.Alias)
	require.Len(t, stored.Addresses, 1)
	require.Equal(t, uint64(25), stored.Addresses[0].Balance)
	require.Len(t, stored.Messages, 1)

	t.Run("lookup_by_index", func(t *testing.T) {
		stored, err := repo.GetAccount(ctx, domain.NewIndexIdentifier(0))
		require.NoError(t, err)
		require.Equal(t, id, stored.ID)
	})

	t.Run("upsert_replaces", func(t *testing.T) {
		account.SetAlias("renamed")
		require.NoError(t, repo.SaveAccount(ctx, account))

		stored, err := repo.GetAccount(ctx, id)
		require.NoError(t, err)
		require.Equal(t, "renamed", stored.Alias)

		accounts, err := repo.GetAllAccounts(ctx)
		require.NoError(t, err)
		require.Len(t, accounts, 1)
	})

	t.Run("not_found", func(t *testing.T) {
		_, err := repo.GetAccount(ctx, domain.NewIDIdentifier(randstr.Hex(32)))
		require.ErrorIs(t, err, domain.ErrAccountNotFound)

		_, err = repo.GetAccount(ctx, domain.NewIndexIdentifier(12))
		require.ErrorIs(t, err, domain.ErrAccountNotFound)
	})
}

func TestGetAllAccountsSortedByIndex(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	for _, index := range []int{2, 0, 1} {
		account := &domain.Account{
			ID:    domain.NewIDIdentifier(randstr.Hex(32)),
			Index: index,
			Alias: "test account",
		}
		require.NoError(t, repo.SaveAccount(ctx, account))
	}

	accounts, err := repo.GetAllAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	for i, account := range accounts {
		require.Equal(t, i, account.Index)
	}
}

func newTestRepository(t *testing.T) domain.AccountRepository {
	dbManager, err := dbbadger.NewDbManager(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, dbManager.Close())
	})
	return dbbadger.NewAccountRepositoryImpl(dbManager)
}
