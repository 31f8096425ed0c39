// Package coinselect picks the unspent outputs funding a transfer.
//
// It first runs a bounded branch-and-bound search for a subset matching the
// target amount exactly, then falls back to a single random draw: candidates
// are shuffled and accumulated until the target is covered. The fallback
// trades minimality for termination and for not always leaking the same
// "optimal" spending pattern.
package coinselect

import (
	"errors"
	"math"
	"math/rand"
	"sort"
)

// ErrInsufficientFunds is returned when the target amount exceeds the sum of
// all candidate balances.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Input is one spendable output's contribution: the address owning it and
// the amount it provides.
type Input struct {
	Address string
	Balance uint64
}

// Select returns a subset of candidates whose total is greater than or equal
// to target, preferring an exact match when one is discoverable within the
// trial budget. Candidates are reordered in place, nothing else is mutated.
func Select(target uint64, candidates []Input) ([]Input, error) {
	var total uint64
	for _, input := range candidates {
		total += input.Balance
	}
	if target > total {
		return nil, ErrInsufficientFunds
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Balance > candidates[j].Balance
	})

	tries := trialBudget(len(candidates))
	selected := make([]Input, 0, len(candidates))
	if branchAndBound(target, candidates, 0, &selected, 0, &tries) {
		return selected, nil
	}

	return singleRandomDraw(target, candidates), nil
}

// trialBudget bounds the total branch explorations at min(2^n, MaxInt64).
func trialBudget(n int) int64 {
	if n >= 63 {
		return math.MaxInt64
	}
	return int64(1) << uint(n)
}

func branchAndBound(
	target uint64, candidates []Input,
	depth int, selected *[]Input, value uint64, tries *int64,
) bool {
	if value > target {
		return false
	}
	if value == target {
		return true
	}
	if *tries <= 0 || depth >= len(candidates) {
		return false
	}
	*tries--

	// inclusion branch first, then omission
	current := candidates[depth]
	*selected = append(*selected, current)
	if branchAndBound(target, candidates, depth+1, selected, value+current.Balance, tries) {
		return true
	}
	*selected = (*selected)[:len(*selected)-1]

	return branchAndBound(target, candidates, depth+1, selected, value, tries)
}

func singleRandomDraw(target uint64, candidates []Input) []Input {
	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	selected := make([]Input, 0, len(candidates))
	var sum uint64
	for _, input := range candidates {
		if sum >= target {
			break
		}
		selected = append(selected, input)
		sum += input.Balance
	}
	return selected
}
