package coinselect_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tanglenet/wallet-daemon/pkg/coinselect"
)

func TestSelectExactMatch(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		candidates := generateRandomInputs(rng, 30)
		target := sumOfRandomSubset(rng, candidates)

		selected, err := coinselect.Select(target, candidates)
		require.NoError(t, err)
		require.Equal(t, target, sumInputs(selected))
	}
}

func TestSelectInsufficientFunds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	candidates := generateRandomInputs(rng, 30)
	target := sumInputs(candidates) + 1

	_, err := coinselect.Select(target, candidates)
	require.ErrorIs(t, err, coinselect.ErrInsufficientFunds)
}

func TestSelectRandomTarget(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		candidates := generateRandomInputs(rng, 30)
		total := sumInputs(candidates)
		target := total/2 + uint64(rng.Int63n(int64(total)))
		if target > total {
			_, err := coinselect.Select(target, candidates)
			require.ErrorIs(t, err, coinselect.ErrInsufficientFunds)
			continue
		}

		selected, err := coinselect.Select(target, candidates)
		require.NoError(t, err)
		require.GreaterOrEqual(t, sumInputs(selected), target)
	}
}

func TestSelectDoesNotChangeCandidateSet(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	candidates := generateRandomInputs(rng, 10)
	totalBefore := sumInputs(candidates)

	_, err := coinselect.Select(totalBefore/2, candidates)
	require.NoError(t, err)
	require.Len(t, candidates, 10)
	require.Equal(t, totalBefore, sumInputs(candidates))
}

func generateRandomInputs(rng *rand.Rand, count int) []coinselect.Input {
	candidates := make([]coinselect.Input, 0, count)
	for i := 0; i < count; i++ {
		candidates = append(candidates, coinselect.Input{
			Address: fmt.Sprintf("addr%d", i),
			Balance: uint64(rng.Int63n(2000)) + 1,
		})
	}
	return candidates
}

// sumOfRandomSubset returns the total of a random subset of the candidates,
// so that an exact matching selection is known to exist.
func sumOfRandomSubset(rng *rand.Rand, candidates []coinselect.Input) uint64 {
	picked := 2 + rng.Intn(len(candidates)/2-2)
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	return sumInputs(candidates[:picked])
}

func sumInputs(inputs []coinselect.Input) uint64 {
	var total uint64
	for _, input := range inputs {
		total += input.Balance
	}
	return total
}
