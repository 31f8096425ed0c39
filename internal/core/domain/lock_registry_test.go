package domain_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/thanhpk/randstr"
	"github.com/tanglenet/wallet-daemon/internal/core/domain"
)

func TestAddressLocker(t *testing.T) {
	locker := domain.NewAddressLocker()
	id := domain.NewIDIdentifier(randstr.Hex(32))
	other := domain.NewIndexIdentifier(0)

	require.Same(t, locker.Get(id), locker.Get(id))
	require.NotSame(t, locker.Get(id), locker.Get(other))
}

func TestAddressLockerConcurrentFirstAccess(t *testing.T) {
	locker := domain.NewAddressLocker()
	id := domain.NewIDIdentifier(randstr.Hex(32))

	const goroutines = 32
	locks := make(chan *sync.Mutex, goroutines)
	wg := &sync.WaitGroup{}
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			locks <- locker.Get(id)
		}()
	}
	wg.Wait()
	close(locks)

	expected := locker.Get(id)
	for lock := range locks {
		require.Same(t, expected, lock)
	}
}
