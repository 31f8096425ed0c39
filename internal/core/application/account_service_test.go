package application_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/thanhpk/randstr"
	"github.com/tanglenet/wallet-daemon/internal/core/application"
	"github.com/tanglenet/wallet-daemon/internal/core/domain"
)

func TestCreateAccount(t *testing.T) {
	f := newMonitorFixture(t)
	signer := &mockSigner{recordID: randstr.Hex(32)}
	svc := application.NewAccountService(
		f.repo, signer, f.node, f.locker, f.monitor,
	)
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx, application.CreateAccountOpts{
		ClientOptions: domain.ClientOptions{
			NodeURL: "https://node.example.com",
			Network: "mainnet",
		},
	})
	require.NoError(t, err)
	require.Equal(t, "Account 0", account.Alias)
	require.Equal(t, 0, account.Index)
	require.Equal(t, domain.NewIDIdentifier(signer.recordID), account.ID)
	require.False(t, account.CreatedAt.IsZero())

	stored, err := f.repo.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, account.Alias, stored.Alias)

	t.Run("latest_account_still_empty", func(t *testing.T) {
		_, err := svc.CreateAccount(ctx, application.CreateAccountOpts{})
		require.ErrorIs(t, err, domain.ErrLatestAccountEmpty)
	})

	t.Run("latest_account_with_history", func(t *testing.T) {
		account.AppendMessages(&domain.Message{
			ID:          randstr.Hex(32),
			Payload:     randstr.Hex(16),
			Broadcasted: true,
		})
		require.NoError(t, f.repo.SaveAccount(ctx, account))

		signer.recordID = randstr.Hex(32)
		second, err := svc.CreateAccount(ctx, application.CreateAccountOpts{})
		require.NoError(t, err)
		require.Equal(t, "Account 1", second.Alias)
		require.Equal(t, 1, second.Index)
	})
}

func TestGenerateAddress(t *testing.T) {
	f := newMonitorFixture(t)
	signer := &mockSigner{recordID: randstr.Hex(32)}
	svc := application.NewAccountService(
		f.repo, signer, f.node, f.locker, f.monitor,
	)
	ctx := context.Background()

	account := f.newStoredAccount(t)
	f.node.balances["addr0"] = 40

	address, err := svc.GenerateAddress(ctx, account)
	require.NoError(t, err)
	require.Equal(t, "addr0", address.Address)
	require.Equal(t, 0, address.KeyIndex)
	require.Equal(t, uint64(40), address.Balance)
	require.Len(t, account.Addresses, 1)

	stored, err := f.repo.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	require.Len(t, stored.Addresses, 1)
	require.Equal(t, "addr0", stored.Addresses[0].Address)

	require.Contains(t, f.node.subscribedTopics(), "addresses/addr0/outputs")

	t.Run("next_key_index", func(t *testing.T) {
		address, err := svc.GenerateAddress(ctx, account)
		require.NoError(t, err)
		require.Equal(t, "addr1", address.Address)
		require.Equal(t, 1, address.KeyIndex)
	})
}

func TestRelease(t *testing.T) {
	f := newMonitorFixture(t)
	signer := &mockSigner{recordID: randstr.Hex(32)}
	svc := application.NewAccountService(
		f.repo, signer, f.node, f.locker, f.monitor,
	)
	ctx := context.Background()

	account := f.newStoredAccount(t)
	require.NoError(t, svc.Release(ctx, account))

	account.SetAlias("renamed")
	require.True(t, account.HasPendingChanges())

	require.NoError(t, svc.Release(ctx, account))
	require.False(t, account.HasPendingChanges())

	stored, err := f.repo.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	require.Equal(t, "renamed", stored.Alias)
}

func TestGenerateAddressConcurrentWithReconciliation(t *testing.T) {
	f := newMonitorFixture(t)
	signer := &mockSigner{recordID: randstr.Hex(32)}
	svc := application.NewAccountService(
		f.repo, signer, f.node, f.locker, f.monitor,
	)
	ctx := context.Background()

	account := f.newStoredAccount(t, "addr0")
	messageID := randstr.Hex(32)
	f.node.messages[messageID] = &domain.Message{
		Payload:     randstr.Hex(16),
		Value:       150,
		Incoming:    true,
		Broadcasted: true,
		Address:     "addr0",
	}

	require.NoError(t, f.monitor.MonitorAddressBalance(account, account.Addresses[0]))

	wg := &sync.WaitGroup{}
	wg.Add(2)
	var generateErr error
	go func() {
		defer wg.Done()
		_, generateErr = svc.GenerateAddress(ctx, account)
	}()
	go func() {
		defer wg.Done()
		f.node.trigger(
			t, "addresses/addr0/outputs",
			outputPayload(messageID, randstr.Hex(32), 0, 150, false),
		)
	}()
	wg.Wait()
	require.NoError(t, generateErr)

	// both the derived address and the reconciled output must survive,
	// whichever order the two locked mutations ran in
	require.Eventually(t, func() bool {
		stored, err := f.repo.GetAccount(ctx, account.ID)
		if err != nil {
			return false
		}
		return len(stored.Addresses) == 2 &&
			stored.Addresses[0].Balance == 150 &&
			stored.GetMessage(messageID) != nil
	}, 2*time.Second, 10*time.Millisecond)
}

type mockSigner struct {
	recordID  string
	deriveErr error
}

func (s *mockSigner) InitAccount(
	account *domain.Account, mnemonic string,
) (string, error) {
	return s.recordID, nil
}

func (s *mockSigner) DeriveAddress(
	id domain.AccountIdentifier, keyIndex int, internal bool,
) (string, error) {
	if s.deriveErr != nil {
		return "", s.deriveErr
	}
	return fmt.Sprintf("addr%d", keyIndex), nil
}
