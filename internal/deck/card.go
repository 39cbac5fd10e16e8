// internal/deck/card.go
package deck

import (
	"fmt"
	"strings"
)

// Suits are the four standard suits, single-letter encoded.
var Suits = []string{"H", "D", "S", "C"}

// Ranks are the thirteen natural ranks in Ace-low order. Index into this
// slice is the canonical rank position used by the meld classifier.
var Ranks = []string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}

// RankJoker is the rank carried by printed jokers.
const RankJoker = "JOKER"

// Card is an immutable card value. Two cards are equal iff rank, suit and
// the printed-joker flag all match. Wild-joker status is a round-level rule
// and is never stored on the card itself.
type Card struct {
	Rank         string `json:"rank"`
	Suit         string `json:"suit,omitempty"`
	PrintedJoker bool   `json:"printedJoker,omitempty"`
}

// RankIndex returns the Ace-low position (0..12) of a natural rank, or -1
// for jokers and unknown ranks.
func RankIndex(rank string) int {
	for i, r := range Ranks {
		if r == rank {
			return i
		}
	}
	return -1
}

// Token encodes the card as its canonical wire/log string: "JOKER" for a
// printed joker, otherwise rank immediately followed by suit, e.g. "10H".
func (c Card) Token() string {
	if c.PrintedJoker {
		return RankJoker
	}
	return c.Rank + c.Suit
}

// ParseToken decodes a canonical card token. It round-trips exactly with
// Token for every card a deck can contain.
func ParseToken(token string) (Card, error) {
	if token == RankJoker {
		return Card{Rank: RankJoker, PrintedJoker: true}, nil
	}
	if len(token) < 2 {
		return Card{}, fmt.Errorf("card token %q too short", token)
	}
	rank := token[:len(token)-1]
	suit := token[len(token)-1:]
	if RankIndex(rank) < 0 {
		return Card{}, fmt.Errorf("card token %q has unknown rank %q", token, rank)
	}
	if !strings.Contains("HDSC", suit) {
		return Card{}, fmt.Errorf("card token %q has unknown suit %q", token, suit)
	}
	return Card{Rank: rank, Suit: suit}, nil
}

// Tokens encodes a slice of cards for logging and wire transfer.
func Tokens(cards []Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.Token()
	}
	return out
}

// ParseTokens decodes a slice of card tokens, failing on the first bad one.
func ParseTokens(tokens []string) ([]Card, error) {
	out := make([]Card, len(tokens))
	for i, t := range tokens {
		c, err := ParseToken(t)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}
