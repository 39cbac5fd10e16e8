// internal/meld/meld.go

// Package meld classifies card groups into the melds 13-card rummy scores
// against: pure sequences, sequences with jokers, and sets. All functions
// are pure; the round-level wild-joker rule is passed in as context rather
// than stored on cards.
package meld

import (
	"sort"
	"strings"

	"github.com/tablerummy/rummy-service/internal/deck"
)

// IsJoker reports whether the card acts as a joker under the round context:
// printed jokers always do, and cards of the wild rank do once the wild
// joker has been revealed. Rank match is all that counts; a wild-rank card
// used in its natural run position is still a joker for classification.
func IsJoker(c deck.Card, wildRank string, wildRevealed bool) bool {
	if c.PrintedJoker {
		return true
	}
	return wildRevealed && wildRank != "" && c.Rank == wildRank
}

// splitJokers partitions cards into naturals and a joker count.
func splitJokers(cards []deck.Card, wildRank string, wildRevealed bool) ([]deck.Card, int) {
	naturals := make([]deck.Card, 0, len(cards))
	jokers := 0
	for _, c := range cards {
		if IsJoker(c, wildRank, wildRevealed) {
			jokers++
		} else {
			naturals = append(naturals, c)
		}
	}
	return naturals, jokers
}

// spanFits checks whether the given rank positions, with jokers filling
// gaps, fit a run of the given total length. Duplicate positions can never
// form a run.
func spanFits(positions []int, total int) bool {
	sort.Ints(positions)
	for i := 1; i < len(positions); i++ {
		if positions[i] == positions[i-1] {
			return false
		}
	}
	span := positions[len(positions)-1] - positions[0] + 1
	return span <= total
}

// aceHigh maps an Ace-low rank position to its Ace-high equivalent, so that
// Q-K-A runs classify. Only the Ace moves; 2 can never sit above a King.
func aceHigh(positions []int) []int {
	out := make([]int, len(positions))
	for i, p := range positions {
		if p == 0 {
			out[i] = 13
		} else {
			out[i] = p
		}
	}
	return out
}

// IsSequence reports whether cards form a run: at least three cards, all
// non-joker cards of one suit, and the natural ranks fitting a consecutive
// span once jokers plug the holes. Both Ace-low and Ace-high orderings are
// tried.
func IsSequence(cards []deck.Card, wildRank string, wildRevealed bool) bool {
	if len(cards) < 3 {
		return false
	}
	naturals, _ := splitJokers(cards, wildRank, wildRevealed)
	if len(naturals) == 0 {
		return true
	}

	suit := naturals[0].Suit
	positions := make([]int, len(naturals))
	hasAce := false
	for i, c := range naturals {
		if c.Suit != suit {
			return false
		}
		p := deck.RankIndex(c.Rank)
		if p < 0 {
			return false
		}
		if p == 0 {
			hasAce = true
		}
		positions[i] = p
	}

	if spanFits(append([]int(nil), positions...), len(cards)) {
		return true
	}
	if hasAce {
		return spanFits(aceHigh(positions), len(cards))
	}
	return false
}

// IsPureSequence reports whether cards form a run with no joker of any kind
// and strictly consecutive natural ranks. Note that once a closed wild
// joker is revealed, a run containing a wild-rank card stops being pure
// even if the card sits in its natural position.
func IsPureSequence(cards []deck.Card, wildRank string, wildRevealed bool) bool {
	if len(cards) < 3 {
		return false
	}
	naturals, jokers := splitJokers(cards, wildRank, wildRevealed)
	if jokers > 0 {
		return false
	}
	return IsSequence(naturals, wildRank, wildRevealed)
}

// IsSet reports whether cards form a set: three or four cards of one rank
// with pairwise-distinct suits, jokers substituting freely.
func IsSet(cards []deck.Card, wildRank string, wildRevealed bool) bool {
	if len(cards) < 3 || len(cards) > 4 {
		return false
	}
	naturals, _ := splitJokers(cards, wildRank, wildRevealed)
	if len(naturals) == 0 {
		return true
	}
	rank := naturals[0].Rank
	seenSuits := map[string]bool{}
	for _, c := range naturals {
		if c.Rank != rank {
			return false
		}
		if seenSuits[c.Suit] {
			return false
		}
		seenSuits[c.Suit] = true
	}
	return true
}

// CardPoints scores a single card: jokers zero, face cards and tens ten,
// Aces at the table-configured value, everything else at face value.
func CardPoints(c deck.Card, aceValue int) int {
	if c.PrintedJoker {
		return 0
	}
	switch c.Rank {
	case "A":
		return aceValue
	case "10", "J", "Q", "K":
		return 10
	default:
		return deck.RankIndex(c.Rank) + 1
	}
}

// DeadwoodCap is the most a losing hand can cost.
const DeadwoodCap = 80

// DeadwoodPoints sums CardPoints over unmelded cards, capped at DeadwoodCap.
func DeadwoodPoints(cards []deck.Card, aceValue int) int {
	total := 0
	for _, c := range cards {
		total += CardPoints(c, aceValue)
	}
	if total > DeadwoodCap {
		return DeadwoodCap
	}
	return total
}

// Validation is the outcome of checking a declared hand.
type Validation struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// ValidateDeclaration checks a declared grouping of exactly 13 cards:
// every meld a valid sequence or set of at least three cards, at least two
// melds overall, and at least one pure sequence among them. The first
// failing meld's contents are reported for player feedback.
func ValidateDeclaration(melds [][]deck.Card, aceValue int, wildRank string, wildRevealed bool) Validation {
	total := 0
	for _, m := range melds {
		total += len(m)
	}
	if total != 13 {
		return Validation{Reason: "declaration must contain exactly 13 cards"}
	}
	if len(melds) < 2 {
		return Validation{Reason: "declaration must contain at least 2 melds"}
	}

	pureFound := false
	for _, m := range melds {
		if len(m) < 3 {
			return Validation{Reason: "meld too small: " + strings.Join(deck.Tokens(m), ",")}
		}
		if !IsSequence(m, wildRank, wildRevealed) && !IsSet(m, wildRank, wildRevealed) {
			return Validation{Reason: "invalid meld: " + strings.Join(deck.Tokens(m), ",")}
		}
		if IsPureSequence(m, wildRank, wildRevealed) {
			pureFound = true
		}
	}
	if !pureFound {
		return Validation{Reason: "declaration requires at least one pure sequence"}
	}
	return Validation{Valid: true}
}
