// internal/round/round_test.go
package round

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablerummy/rummy-service/internal/deck"
	"github.com/tablerummy/rummy-service/internal/models"
)

// eventRecorder captures broadcasts for assertions. The round fires events
// under its own lock and from timer goroutines, so access is synchronized.
type eventRecorder struct {
	mu      sync.Mutex
	public  []Event
	private map[uuid.UUID][]Event
}

func newEventRecorder() *eventRecorder {
	return &eventRecorder{private: make(map[uuid.UUID][]Event)}
}

func (er *eventRecorder) broadcast(ev Event) {
	er.mu.Lock()
	defer er.mu.Unlock()
	er.public = append(er.public, ev)
}

func (er *eventRecorder) broadcastTo(playerID uuid.UUID, ev Event) {
	er.mu.Lock()
	defer er.mu.Unlock()
	er.private[playerID] = append(er.private[playerID], ev)
}

func (er *eventRecorder) publicTypes() []EventType {
	er.mu.Lock()
	defer er.mu.Unlock()
	types := make([]EventType, len(er.public))
	for i, ev := range er.public {
		types[i] = ev.Type
	}
	return types
}

func (er *eventRecorder) hasPublic(t EventType) bool {
	for _, have := range er.publicTypes() {
		if have == t {
			return true
		}
	}
	return false
}

func testPlayers(n int) []*models.Player {
	players := make([]*models.Player, n)
	for i := range players {
		players[i] = &models.Player{ID: uuid.New(), DisplayName: string(rune('A' + i)), Seat: i}
	}
	return players
}

// startTestRound deals a deterministic 3-player round with seed 42.
func startTestRound(t *testing.T, cfg Config) (*Round, []*models.Player, *eventRecorder) {
	t.Helper()
	players := testPlayers(3)
	r := New(uuid.New(), 1, cfg)
	er := newEventRecorder()
	r.BroadcastFn = er.broadcast
	r.BroadcastToPlayerFn = er.broadcastTo

	seed := int64(42)
	require.NoError(t, r.Start(players, 0, &seed))
	return r, players, er
}

func totalCards(r *Round) int {
	total := len(r.Stock) + len(r.Discard)
	for _, p := range r.Players {
		total += len(p.Hand)
	}
	return total
}

func TestStartDealsThirteenEach(t *testing.T) {
	r, players, er := startTestRound(t, Config{WildJokerMode: models.WildJokerClosed, AceValue: 10})

	assert.Equal(t, StatusPlaying, r.CurrentStatus())
	assert.Equal(t, 2, r.DeckCount, "three players play with two decks")
	for _, p := range r.Players {
		assert.Len(t, p.Hand, 13)
	}
	assert.Len(t, r.Discard, 1)
	assert.False(t, r.Discard[0].PrintedJoker, "opening discard must be a natural card")
	assert.Equal(t, 108, totalCards(r))
	assert.Equal(t, players[0].ID, r.ActivePlayerID())

	assert.NotEmpty(t, r.WildJokerRank)
	assert.False(t, r.WildJokerRevealed, "closed mode keeps the wild rank hidden at deal time")

	require.True(t, er.hasPublic(EventRoundStart))
	for _, p := range players {
		er.mu.Lock()
		evs := er.private[p.ID]
		er.mu.Unlock()
		require.NotEmpty(t, evs)
		assert.Equal(t, EventPrivateHand, evs[0].Type)
		assert.Len(t, evs[0].Cards, 13)
	}
}

func TestStartIsDeterministicForSeed(t *testing.T) {
	r1, _, _ := startTestRound(t, Config{AceValue: 10})
	r2, _, _ := startTestRound(t, Config{AceValue: 10})

	require.Equal(t, len(r1.Players), len(r2.Players))
	for i := range r1.Players {
		assert.Equal(t, deck.Tokens(r1.Players[i].Hand), deck.Tokens(r2.Players[i].Hand))
	}
	assert.Equal(t, deck.Tokens(r1.Stock), deck.Tokens(r2.Stock))
	assert.Equal(t, r1.WildJokerRank, r2.WildJokerRank)
}

func TestStartRejectsLoneliness(t *testing.T) {
	r := New(uuid.New(), 1, Config{AceValue: 10})
	err := r.Start(testPlayers(1), 0, nil)
	assert.ErrorIs(t, err, ErrInsufficientPlayers)
}

func TestDrawDiscardCycle(t *testing.T) {
	r, players, _ := startTestRound(t, Config{AceValue: 10})
	active := players[0].ID

	card, err := r.DrawFromStock(active)
	require.NoError(t, err)
	assert.Len(t, r.playerState(t, active).Hand, 14)

	_, err = r.DrawFromStock(active)
	assert.ErrorIs(t, err, ErrAlreadyDrawn)
	_, err = r.DrawFromDiscard(active)
	assert.ErrorIs(t, err, ErrAlreadyDrawn)

	require.NoError(t, r.DiscardCard(active, card))
	assert.Len(t, r.playerState(t, active).Hand, 13)
	assert.Equal(t, card.Token(), r.Discard[len(r.Discard)-1].Token())
	assert.Equal(t, players[1].ID, r.ActivePlayerID(), "turn passes clockwise")
	assert.Equal(t, 2, r.TurnID)
	assert.Equal(t, 108, totalCards(r))
}

func TestDrawFromDiscardTakesTop(t *testing.T) {
	r, players, _ := startTestRound(t, Config{AceValue: 10})
	top := r.Discard[len(r.Discard)-1]

	card, err := r.DrawFromDiscard(players[0].ID)
	require.NoError(t, err)
	assert.Equal(t, top, card)
	assert.Empty(t, r.Discard)

	_, err = r.DrawFromDiscard(players[1].ID)
	assert.ErrorIs(t, err, ErrNotYourTurn, "still player 0's turn until discard")
}

func TestTurnGuards(t *testing.T) {
	r, players, _ := startTestRound(t, Config{AceValue: 10})
	active, waiting := players[0].ID, players[1].ID

	_, err := r.DrawFromStock(waiting)
	assert.ErrorIs(t, err, ErrNotYourTurn)

	err = r.DiscardCard(active, r.playerState(t, active).Hand[0])
	assert.ErrorIs(t, err, ErrMustDrawFirst)

	_, err = r.DrawFromStock(active)
	require.NoError(t, err)

	err = r.DiscardCard(active, missingCard(t, r.playerState(t, active).Hand))
	assert.ErrorIs(t, err, ErrCardNotInHand)

	_, err = r.DrawFromStock(uuid.New())
	assert.ErrorIs(t, err, ErrUnknownPlayer)
}

func TestDropPenalties(t *testing.T) {
	r, players, er := startTestRound(t, Config{AceValue: 10})

	// Seat 1 never drew: drop costs 20 and their turn never comes.
	require.NoError(t, r.Drop(players[1].ID))
	ps1 := r.playerState(t, players[1].ID)
	assert.True(t, ps1.Dropped)
	assert.Equal(t, 20, ps1.DropPenalty)
	assert.ErrorIs(t, r.Drop(players[1].ID), ErrAlreadyDropped)

	// Seat 0 drew this round: middle drop costs 40 and advances the turn,
	// skipping the dropped seat 1.
	_, err := r.DrawFromStock(players[0].ID)
	require.NoError(t, err)
	require.NoError(t, r.Drop(players[0].ID))
	assert.Equal(t, 40, r.playerState(t, players[0].ID).DropPenalty)

	// Only seat 2 is left: the round settles immediately in their favor.
	assert.Equal(t, StatusComplete, r.CurrentStatus())
	res := r.Result()
	require.NotNil(t, res)
	assert.Equal(t, players[2].ID, res.WinnerID)
	assert.Equal(t, 0, res.Scores[players[2].ID])
	assert.Equal(t, 20, res.Scores[players[1].ID])
	assert.Equal(t, 40, res.Scores[players[0].ID])
	assert.True(t, er.hasPublic(EventRoundComplete))

	_, err = r.DrawFromStock(players[2].ID)
	assert.ErrorIs(t, err, ErrRoundNotActive)
}

func TestDropSkipsTurnToNextLiveSeat(t *testing.T) {
	r, players, _ := startTestRound(t, Config{AceValue: 10})

	card, err := r.DrawFromStock(players[0].ID)
	require.NoError(t, err)
	require.NoError(t, r.DiscardCard(players[0].ID, card))
	require.Equal(t, players[1].ID, r.ActivePlayerID())

	// The active player drops mid-turn; play continues with seat 2.
	require.NoError(t, r.Drop(players[1].ID))
	assert.Equal(t, StatusPlaying, r.CurrentStatus())
	assert.Equal(t, players[2].ID, r.ActivePlayerID())
}

func TestTimerAutoDrop(t *testing.T) {
	r, players, er := startTestRound(t, Config{AceValue: 10, TurnTimerSec: 1})

	require.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.Players[0].Dropped
	}, 3*time.Second, 50*time.Millisecond, "timed-out active player should auto-drop")

	assert.Equal(t, 20, r.playerState(t, players[0].ID).DropPenalty)
	assert.Equal(t, players[1].ID, r.ActivePlayerID())
	assert.True(t, er.hasPublic(EventPlayerDropped))
}

func TestDiscardCancelsPendingTimer(t *testing.T) {
	r, players, _ := startTestRound(t, Config{AceValue: 10, TurnTimerSec: 60})

	card, err := r.DrawFromStock(players[0].ID)
	require.NoError(t, err)
	require.NoError(t, r.DiscardCard(players[0].ID, card))

	// The stale deadline for turn 1 must not fire against turn 2's player.
	r.expireTurn(players[0].ID, 1)
	assert.False(t, r.playerState(t, players[0].ID).Dropped)
	assert.False(t, r.playerState(t, players[1].ID).Dropped)
	assert.Equal(t, StatusPlaying, r.CurrentStatus())
}

// playerState fetches a seat's state for assertions.
func (r *Round) playerState(t *testing.T, id uuid.UUID) *PlayerState {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	ps := r.playerByID(id)
	require.NotNil(t, ps)
	return ps
}

// missingCard finds a card guaranteed absent from the hand.
func missingCard(t *testing.T, hand []deck.Card) deck.Card {
	t.Helper()
	for _, suit := range deck.Suits {
		for _, rank := range deck.Ranks {
			c := deck.Card{Rank: rank, Suit: suit}
			if !handContains(hand, []deck.Card{c}) {
				return c
			}
		}
	}
	t.Fatal("hand somehow contains all 52 distinct cards")
	return deck.Card{}
}
