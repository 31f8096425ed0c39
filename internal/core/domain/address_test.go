package domain_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/thanhpk/randstr"
	"github.com/tanglenet/wallet-daemon/internal/core/domain"
)

func TestNewAddress(t *testing.T) {
	address, err := domain.NewAddress("addr0", 100, 0, false)
	require.NoError(t, err)
	require.Equal(t, "addr0", address.Address)
	require.Equal(t, uint64(100), address.Balance)
	require.Len(t, address.Checksum, 8)

	same, err := domain.NewAddress("addr0", 0, 1, true)
	require.NoError(t, err)
	require.Equal(t, address.Checksum, same.Checksum)

	t.Run("missing_value", func(t *testing.T) {
		_, err := domain.NewAddress("", 0, 0, false)
		require.ErrorIs(t, err, domain.ErrAddressRequired)
	})
}

func TestApplyOutput(t *testing.T) {
	address := newTestAddress("addr0", 0, 0, false)
	output := domain.Output{
		MessageID:     randstr.Hex(32),
		TransactionID: randstr.Hex(32),
		Index:         0,
		Amount:        150,
	}

	address.ApplyOutput(output)
	require.Equal(t, uint64(150), address.Balance)

	t.Run("replay_is_noop", func(t *testing.T) {
		address.ApplyOutput(output)
		require.Equal(t, uint64(150), address.Balance)
	})

	t.Run("spend_of_known_output", func(t *testing.T) {
		spent := output
		spent.Spent = true
		address.ApplyOutput(spent)
		require.Equal(t, uint64(0), address.Balance)

		// spending it twice must not underflow
		address.ApplyOutput(spent)
		require.Equal(t, uint64(0), address.Balance)
	})

	t.Run("spend_of_unknown_output", func(t *testing.T) {
		address := newTestAddress("addr1", 70, 1, false)
		address.ApplyOutput(domain.Output{
			MessageID:     randstr.Hex(32),
			TransactionID: randstr.Hex(32),
			Index:         1,
			Amount:        25,
			Spent:         true,
		})
		require.Equal(t, uint64(70), address.Balance)
	})
}
