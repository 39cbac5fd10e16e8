// internal/deck/deck.go
package deck

import (
	"math/rand"
	"time"
)

// CardsPerDeck is one 52-card pack plus its two printed jokers.
const CardsPerDeck = 54

// CountForPlayers returns how many packs a round needs: one for heads-up,
// two for 3-4 players, three for 5-6.
func CountForPlayers(players int) int {
	switch {
	case players <= 2:
		return 1
	case players <= 4:
		return 2
	default:
		return 3
	}
}

// Build composes deckCount packs in a fixed, deterministic order. No
// randomness happens here; callers shuffle separately.
func Build(deckCount int, includePrintedJokers bool) []Card {
	size := deckCount * 52
	if includePrintedJokers {
		size = deckCount * CardsPerDeck
	}
	cards := make([]Card, 0, size)
	for d := 0; d < deckCount; d++ {
		for _, suit := range Suits {
			for _, rank := range Ranks {
				cards = append(cards, Card{Rank: rank, Suit: suit})
			}
		}
		if includePrintedJokers {
			cards = append(cards, Card{Rank: RankJoker, PrintedJoker: true})
			cards = append(cards, Card{Rank: RankJoker, PrintedJoker: true})
		}
	}
	return cards
}

// NewRand returns the shuffle RNG. A non-nil seed yields a fully
// deterministic deal for replay and testing; otherwise the source is
// time-seeded.
func NewRand(seed *int64) *rand.Rand {
	if seed != nil {
		return rand.New(rand.NewSource(*seed))
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// Shuffle permutes cards in place with a Fisher-Yates pass over r.
func Shuffle(cards []Card, r *rand.Rand) {
	for i := len(cards) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}
}
