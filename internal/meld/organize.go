// internal/meld/organize.go
package meld

import (
	"math/bits"

	"github.com/tablerummy/rummy-service/internal/deck"
)

// Organized is the result of auto-grouping an opponent's hand for scoring.
type Organized struct {
	Melds    [][]deck.Card
	Leftover []deck.Card
}

// AutoOrganize greedily groups a hand into melds for scoring an opponent
// after someone else declares: all extractable pure sequences first, then
// joker sequences, then sets, each phase taking the largest meld it can
// find over the remaining pool. Hands are at most 14 cards, so exhaustive
// subset search per phase stays small. The result is a best-effort
// grouping, not a guaranteed minimum-deadwood partition.
func AutoOrganize(hand []deck.Card, wildRank string, wildRevealed bool) Organized {
	pool := append([]deck.Card(nil), hand...)
	var melds [][]deck.Card

	phases := []struct {
		maxSize int
		match   func([]deck.Card) bool
	}{
		{len(pool), func(cs []deck.Card) bool { return IsPureSequence(cs, wildRank, wildRevealed) }},
		{len(pool), func(cs []deck.Card) bool { return IsSequence(cs, wildRank, wildRevealed) }},
		{4, func(cs []deck.Card) bool { return IsSet(cs, wildRank, wildRevealed) }},
	}

	for _, phase := range phases {
		for {
			best := largestMatchingSubset(pool, phase.maxSize, phase.match)
			if best == 0 {
				break
			}
			meld, rest := splitByMask(pool, best)
			melds = append(melds, meld)
			pool = rest
		}
	}

	return Organized{Melds: melds, Leftover: pool}
}

// largestMatchingSubset enumerates all subsets of the pool (bounded by the
// 14-card hand limit) and returns the bitmask of the largest one the
// predicate accepts, or 0 if none of size >= 3 does.
func largestMatchingSubset(pool []deck.Card, maxSize int, match func([]deck.Card) bool) uint {
	n := len(pool)
	if n < 3 {
		return 0
	}
	var best uint
	bestSize := 0
	for mask := uint(1); mask < uint(1)<<n; mask++ {
		size := bits.OnesCount(mask)
		if size < 3 || size > maxSize || size <= bestSize {
			continue
		}
		subset, _ := splitByMask(pool, mask)
		if match(subset) {
			best = mask
			bestSize = size
		}
	}
	return best
}

// splitByMask divides the pool into the cards selected by mask and the rest.
func splitByMask(pool []deck.Card, mask uint) (in, out []deck.Card) {
	for i, c := range pool {
		if mask&(1<<uint(i)) != 0 {
			in = append(in, c)
		} else {
			out = append(out, c)
		}
	}
	return in, out
}
