// internal/meld/meld_test.go
package meld

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tablerummy/rummy-service/internal/deck"
)

// cards is a test helper building a hand from canonical tokens.
func cards(t *testing.T, tokens ...string) []deck.Card {
	t.Helper()
	out, err := deck.ParseTokens(tokens)
	require.NoError(t, err)
	return out
}

func TestIsJoker(t *testing.T) {
	printed := deck.Card{Rank: deck.RankJoker, PrintedJoker: true}
	sixH := deck.Card{Rank: "6", Suit: "H"}

	assert.True(t, IsJoker(printed, "", false))
	assert.False(t, IsJoker(sixH, "6", false), "wild rank hidden is not a joker yet")
	assert.True(t, IsJoker(sixH, "6", true))
	assert.False(t, IsJoker(sixH, "7", true))
}

func TestIsPureSequence(t *testing.T) {
	assert.True(t, IsPureSequence(cards(t, "5H", "6H", "7H"), "", false))
	assert.True(t, IsPureSequence(cards(t, "7H", "5H", "6H"), "", false), "order must not matter")
	assert.False(t, IsPureSequence(cards(t, "5H", "6H", "JOKER"), "", false))
	assert.False(t, IsPureSequence(cards(t, "5H", "6H", "8H"), "", false), "gap breaks purity")
	assert.False(t, IsPureSequence(cards(t, "5H", "6D", "7H"), "", false), "mixed suit")
	assert.False(t, IsPureSequence(cards(t, "5H", "6H"), "", false), "too short")
}

func TestPureSequenceAceOrdering(t *testing.T) {
	assert.True(t, IsPureSequence(cards(t, "AH", "2H", "3H"), "", false), "ace low")
	assert.True(t, IsPureSequence(cards(t, "QH", "KH", "AH"), "", false), "ace high")
	assert.False(t, IsPureSequence(cards(t, "KH", "AH", "2H"), "", false), "ace cannot wrap")
}

func TestWildRankPoisonsPurity(t *testing.T) {
	run := cards(t, "5H", "6H", "7H")

	// Hidden wild: still a pure sequence.
	assert.True(t, IsPureSequence(run, "6", false))

	// Revealed wild of rank 6: the 6H counts as a joker even in its natural
	// slot, so the run is a sequence but no longer pure.
	assert.True(t, IsSequence(run, "6", true))
	assert.False(t, IsPureSequence(run, "6", true))
}

func TestIsSequenceWithJokers(t *testing.T) {
	assert.True(t, IsSequence(cards(t, "5H", "7H", "JOKER"), "", false), "joker fills the gap")
	assert.True(t, IsSequence(cards(t, "5H", "6H", "JOKER"), "", false), "joker extends the run")
	assert.False(t, IsSequence(cards(t, "5H", "8H", "JOKER"), "", false), "one joker cannot span two gaps")
	assert.True(t, IsSequence(cards(t, "5H", "8H", "JOKER", "JOKER"), "", false))
	assert.False(t, IsSequence(cards(t, "5H", "5H", "JOKER"), "", false), "duplicate rank never runs")
	assert.True(t, IsSequence(cards(t, "JOKER", "JOKER", "JOKER"), "", false))
}

func TestSequenceWithWildJoker(t *testing.T) {
	// 9C is wild; it substitutes for the missing 6H.
	assert.True(t, IsSequence(cards(t, "5H", "7H", "9C"), "9", true))
	assert.False(t, IsSequence(cards(t, "5H", "7H", "9C"), "9", false), "unrevealed wild is just an off-suit card")
}

func TestIsSet(t *testing.T) {
	assert.True(t, IsSet(cards(t, "5H", "5D", "5S"), "", false))
	assert.True(t, IsSet(cards(t, "5H", "5D", "5S", "5C"), "", false))
	assert.False(t, IsSet(cards(t, "5H", "5D", "5H"), "", false), "duplicate suit")
	assert.False(t, IsSet(cards(t, "5H", "5D", "6S"), "", false), "mixed rank")
	assert.False(t, IsSet(cards(t, "5H", "5D"), "", false), "too small")
	assert.False(t, IsSet(cards(t, "5H", "5D", "5S", "5C", "JOKER"), "", false), "too large")
	assert.True(t, IsSet(cards(t, "5H", "5D", "JOKER"), "", false))
}

func TestCardPoints(t *testing.T) {
	assert.Equal(t, 0, CardPoints(deck.Card{Rank: deck.RankJoker, PrintedJoker: true}, 10))
	assert.Equal(t, 10, CardPoints(deck.Card{Rank: "K", Suit: "S"}, 10))
	assert.Equal(t, 10, CardPoints(deck.Card{Rank: "10", Suit: "H"}, 10))
	assert.Equal(t, 7, CardPoints(deck.Card{Rank: "7", Suit: "D"}, 10))
	assert.Equal(t, 10, CardPoints(deck.Card{Rank: "A", Suit: "C"}, 10))
	assert.Equal(t, 1, CardPoints(deck.Card{Rank: "A", Suit: "C"}, 1))
}

func TestDeadwoodCap(t *testing.T) {
	// Ten face cards would be 100 raw points; the cap clamps to 80.
	hand := cards(t, "KH", "KD", "KS", "KC", "QH", "QD", "QS", "QC", "JH", "JD")
	assert.Equal(t, 80, DeadwoodPoints(hand, 10))

	small := cards(t, "2H", "3D")
	assert.Equal(t, 5, DeadwoodPoints(small, 10))
}

func TestValidateDeclarationValid(t *testing.T) {
	melds := [][]deck.Card{
		cards(t, "5H", "6H", "7H"),          // pure sequence
		cards(t, "9S", "10S", "JS", "QS"),   // pure sequence
		cards(t, "2D", "2S", "2C"),          // set
		cards(t, "KH", "KD", "KS"),          // set
	}
	v := ValidateDeclaration(melds, 10, "", false)
	assert.True(t, v.Valid, v.Reason)
}

func TestValidateDeclarationNoPureSequence(t *testing.T) {
	melds := [][]deck.Card{
		cards(t, "5H", "6H", "JOKER"),
		cards(t, "9S", "10S", "JS", "QS"),
		cards(t, "2D", "2S", "2C"),
		cards(t, "KH", "KD", "KS"),
	}
	// Wild rank Q revealed makes the QS a joker, so no meld is pure.
	v := ValidateDeclaration(melds, 10, "Q", true)
	require.False(t, v.Valid)
	assert.Contains(t, v.Reason, "pure sequence")
}

func TestValidateDeclarationWrongCount(t *testing.T) {
	melds := [][]deck.Card{
		cards(t, "5H", "6H", "7H"),
		cards(t, "2D", "2S", "2C"),
	}
	v := ValidateDeclaration(melds, 10, "", false)
	require.False(t, v.Valid)
	assert.Contains(t, v.Reason, "13")
}

func TestValidateDeclarationReportsBadMeld(t *testing.T) {
	melds := [][]deck.Card{
		cards(t, "5H", "6H", "7H"),
		cards(t, "9S", "10S", "JS", "QS"),
		cards(t, "2D", "2S", "2C"),
		cards(t, "KH", "KD", "3S"), // not a set, not a run
	}
	v := ValidateDeclaration(melds, 10, "", false)
	require.False(t, v.Valid)
	assert.Contains(t, v.Reason, "KH")
	assert.Contains(t, v.Reason, "3S")
}

func TestAutoOrganizePrefersPureSequences(t *testing.T) {
	hand := cards(t, "5H", "6H", "7H", "2D", "2S", "2C", "KH", "QD")
	org := AutoOrganize(hand, "", false)

	require.Len(t, org.Melds, 2)
	assert.True(t, IsPureSequence(org.Melds[0], "", false), "first extracted meld should be the pure run")
	assert.True(t, IsSet(org.Melds[1], "", false))
	assert.Len(t, org.Leftover, 2)
	assert.Equal(t, 20, DeadwoodPoints(org.Leftover, 10))
}

func TestAutoOrganizeUsesJokersForSequences(t *testing.T) {
	hand := cards(t, "5H", "7H", "JOKER", "9D", "4C")
	org := AutoOrganize(hand, "", false)

	require.Len(t, org.Melds, 1)
	assert.True(t, IsSequence(org.Melds[0], "", false))
	assert.Len(t, org.Leftover, 2)
}

func TestAutoOrganizeFullHandNoLeftover(t *testing.T) {
	hand := cards(t,
		"5H", "6H", "7H",
		"9S", "10S", "JS", "QS",
		"2D", "2S", "2C",
		"8D", "8C", "8H",
	)
	org := AutoOrganize(hand, "", false)
	assert.Empty(t, org.Leftover)
	assert.Equal(t, 0, DeadwoodPoints(org.Leftover, 10))
}

// The pure-run phase takes the longest run it can find, even when that
// steals a card from a would-be set. Here KS extends the spade run to five,
// stranding KH and KD as deadwood.
func TestAutoOrganizeGreedyRunStealsSetCard(t *testing.T) {
	hand := cards(t,
		"5H", "6H", "7H",
		"9S", "10S", "JS", "QS",
		"2D", "2S", "2C",
		"KH", "KD", "KS",
	)
	org := AutoOrganize(hand, "", false)
	require.NotEmpty(t, org.Melds)
	assert.Len(t, org.Melds[0], 5, "spade run absorbs KS")
	assert.Len(t, org.Leftover, 2)
	assert.Equal(t, 20, DeadwoodPoints(org.Leftover, 10))
}

func TestAutoOrganizeEmptyAndTinyHands(t *testing.T) {
	org := AutoOrganize(nil, "", false)
	assert.Empty(t, org.Melds)
	assert.Empty(t, org.Leftover)

	org = AutoOrganize(cards(t, "5H", "6H"), "", false)
	assert.Empty(t, org.Melds)
	assert.Len(t, org.Leftover, 2)
}
