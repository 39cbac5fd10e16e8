// internal/round/round.go

// Package round owns the authoritative state of one rummy round: hands,
// stock, discard, turn order, wild-joker visibility, and settlement. All
// mutation goes through the action API; every action either fully applies
// or rejects without touching state.
package round

import (
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tablerummy/rummy-service/internal/deck"
	"github.com/tablerummy/rummy-service/internal/meld"
	"github.com/tablerummy/rummy-service/internal/models"
)

// Status is the round lifecycle state. Complete is terminal; a new round is
// a new Round value.
type Status string

const (
	StatusDealing  Status = "dealing"
	StatusPlaying  Status = "playing"
	StatusComplete Status = "complete"
)

// Config is the per-round slice of the table configuration.
type Config struct {
	WildJokerMode models.WildJokerMode `json:"wildJokerMode"`
	AceValue      int                  `json:"aceValue"`
	TurnTimerSec  int                  `json:"turnTimerSec"`
}

// PlayerState is one seat's in-round state.
type PlayerState struct {
	ID          uuid.UUID
	DisplayName string
	Hand        []deck.Card

	HasDrawn    bool // drew this turn; cleared on every turn change
	EverDrew    bool // drew at least once this round; decides the drop penalty
	Dropped     bool
	DropPenalty int
	LockedPure  bool // revealed a first pure sequence via LockSequence
}

// Result is the settled outcome of a round.
type Result struct {
	DeclarerID uuid.UUID                `json:"declarerId,omitempty"`
	WinnerID   uuid.UUID                `json:"winnerId"`
	Valid      bool                     `json:"valid"`
	Reason     string                   `json:"reason,omitempty"`
	Scores     map[uuid.UUID]int        `json:"scores"`
	Melds      map[uuid.UUID][][]string `json:"melds,omitempty"`
}

// Round holds the entire state for a single round in memory. Action methods
// serialize on the internal mutex; broadcast callbacks are invoked with the
// lock held and must not call back into the round.
type Round struct {
	ID      uuid.UUID
	TableID uuid.UUID
	Number  int
	Config  Config

	Players           []*PlayerState
	Stock             []deck.Card
	Discard           []deck.Card
	DeckCount         int
	WildJokerRank     string
	WildJokerRevealed bool
	ActivePlayerIndex int
	Status            Status
	TurnID            int

	mu          sync.Mutex
	turnTimer   *time.Timer
	actionIndex int
	rng         *rand.Rand

	// BroadcastFn sends an event to every seat; BroadcastToPlayerFn to one.
	// Nil callbacks are skipped, which keeps the engine transport-free.
	BroadcastFn         func(ev Event)
	BroadcastToPlayerFn func(playerID uuid.UUID, ev Event)

	// OnComplete is invoked (in its own goroutine) once the round settles.
	OnComplete func(res Result)

	result *Result
}

// New creates a round in the dealing state. Start deals and begins play.
func New(tableID uuid.UUID, number int, cfg Config) *Round {
	return &Round{
		ID:      uuid.New(),
		TableID: tableID,
		Number:  number,
		Config:  cfg,
		Status:  StatusDealing,
	}
}

// Start builds and shuffles the deck for the seated players, deals 13 cards
// round-robin, flips the first non-joker discard top, picks the wild joker
// per the table's mode, and begins play with the given starter seat. A
// non-nil seed makes the whole deal deterministic, wild rank included.
func (r *Round) Start(players []*models.Player, starterIndex int, seed *int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Status != StatusDealing {
		return ErrRoundNotActive
	}
	if len(players) < 2 {
		return ErrInsufficientPlayers
	}

	r.Players = make([]*PlayerState, len(players))
	for i, p := range players {
		r.Players[i] = &PlayerState{ID: p.ID, DisplayName: p.DisplayName}
	}

	r.DeckCount = deck.CountForPlayers(len(players))
	cards := deck.Build(r.DeckCount, true)
	r.rng = deck.NewRand(seed)
	deck.Shuffle(cards, r.rng)

	// Deal one card at a time around the table so a seeded deal lands the
	// same hands regardless of how the slice was built.
	for n := 0; n < 13; n++ {
		for _, ps := range r.Players {
			cards, ps.Hand = dealTop(cards, ps.Hand)
		}
	}
	r.Stock = cards

	// Flip the opening discard, burying printed jokers at the bottom of the
	// stock until a natural card shows.
	for len(r.Stock) > 0 {
		var top deck.Card
		r.Stock, top = popTop(r.Stock)
		if top.PrintedJoker {
			r.Stock = append([]deck.Card{top}, r.Stock...)
			continue
		}
		r.Discard = append(r.Discard, top)
		break
	}

	if r.Config.WildJokerMode != models.WildJokerNone {
		r.WildJokerRank = deck.Ranks[r.rng.Intn(len(deck.Ranks))]
		r.WildJokerRevealed = r.Config.WildJokerMode == models.WildJokerOpen
	}

	r.ActivePlayerIndex = starterIndex % len(r.Players)
	r.TurnID = 1
	r.Status = StatusPlaying

	startPayload := map[string]interface{}{
		"round":          r.Number,
		"stockSize":      len(r.Stock),
		"discardTop":     r.discardTopToken(),
		"activePlayerId": r.Players[r.ActivePlayerIndex].ID.String(),
		"deckCount":      r.DeckCount,
	}
	if r.WildJokerRevealed {
		startPayload["wildJokerRank"] = r.WildJokerRank
	}
	r.fireEvent(Event{Type: EventRoundStart, Payload: startPayload})
	for _, ps := range r.Players {
		r.fireEventToPlayer(ps.ID, Event{Type: EventPrivateHand, Cards: deck.Tokens(ps.Hand)})
	}

	r.armTurnTimer()
	r.logAction(uuid.Nil, string(EventRoundStart), startPayload)
	r.persistSnapshot()
	return nil
}

// DrawFromStock moves the top stock card into the active player's hand.
func (r *Round) DrawFromStock(playerID uuid.UUID) (deck.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ps, err := r.guardDraw(playerID)
	if err != nil {
		return deck.Card{}, err
	}
	if len(r.Stock) == 0 {
		return deck.Card{}, ErrEmptyPile
	}

	var card deck.Card
	r.Stock, card = popTop(r.Stock)
	ps.Hand = append(ps.Hand, card)
	ps.HasDrawn = true
	ps.EverDrew = true

	r.fireDrawEvents(ps.ID, card, "stock")
	r.logAction(ps.ID, string(EventPlayerDraw), map[string]interface{}{"source": "stock", "stockSize": len(r.Stock)})
	return card, nil
}

// DrawFromDiscard moves the top discard card into the active player's hand.
func (r *Round) DrawFromDiscard(playerID uuid.UUID) (deck.Card, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ps, err := r.guardDraw(playerID)
	if err != nil {
		return deck.Card{}, err
	}
	if len(r.Discard) == 0 {
		return deck.Card{}, ErrEmptyPile
	}

	var card deck.Card
	r.Discard, card = popTop(r.Discard)
	ps.Hand = append(ps.Hand, card)
	ps.HasDrawn = true
	ps.EverDrew = true

	r.fireDrawEvents(ps.ID, card, "discard")
	r.logAction(ps.ID, string(EventPlayerDraw), map[string]interface{}{"source": "discard", "discardSize": len(r.Discard)})
	return card, nil
}

// DiscardCard removes the exact card from the player's hand, pushes it onto
// the discard pile, and advances the turn to the next non-dropped seat.
func (r *Round) DiscardCard(playerID uuid.UUID, card deck.Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Status != StatusPlaying {
		return ErrRoundNotActive
	}
	ps := r.playerByID(playerID)
	if ps == nil {
		return ErrUnknownPlayer
	}
	if ps.Dropped || r.Players[r.ActivePlayerIndex].ID != playerID {
		return ErrNotYourTurn
	}
	if !ps.HasDrawn {
		return ErrMustDrawFirst
	}
	if !removeCard(&ps.Hand, card) {
		return ErrCardNotInHand
	}

	r.Discard = append(r.Discard, card)
	r.fireEvent(Event{
		Type:    EventPlayerDiscard,
		User:    &EventUser{ID: playerID},
		Card:    card.Token(),
		Payload: map[string]interface{}{"discardSize": len(r.Discard)},
	})
	r.logAction(playerID, string(EventPlayerDiscard), map[string]interface{}{"card": card.Token()})

	r.advanceTurn()
	r.checkConservation()
	return nil
}

// LockSequence records that the player revealed a first pure sequence. In
// closed wild-joker mode the first successful lock reveals the wild rank
// table-wide; in open mode the reveal is a no-op and in no_joker mode there
// is no wild rank at all.
func (r *Round) LockSequence(playerID uuid.UUID, cards []deck.Card) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Status != StatusPlaying {
		return ErrRoundNotActive
	}
	ps := r.playerByID(playerID)
	if ps == nil {
		return ErrUnknownPlayer
	}
	if ps.Dropped {
		return ErrAlreadyDropped
	}
	if len(cards) < 3 {
		return ErrInvalidMeldShape
	}
	if !handContains(ps.Hand, cards) {
		return ErrCardNotInHand
	}
	if !meld.IsPureSequence(cards, r.WildJokerRank, r.WildJokerRevealed) {
		return ErrInvalidDeclaration
	}

	ps.LockedPure = true
	if r.Config.WildJokerMode == models.WildJokerClosed && !r.WildJokerRevealed {
		r.WildJokerRevealed = true
		r.fireEvent(Event{
			Type:    EventWildReveal,
			Payload: map[string]interface{}{"wildJokerRank": r.WildJokerRank},
		})
	}
	r.fireEvent(Event{
		Type:  EventSequenceLocked,
		User:  &EventUser{ID: playerID},
		Cards: deck.Tokens(cards),
	})
	r.logAction(playerID, string(EventSequenceLocked), map[string]interface{}{"cards": deck.Tokens(cards)})
	return nil
}

// Declare settles the round from a 14-card hand: 13 declared cards grouped
// into melds, the 14th implicitly discarded. A valid declaration scores the
// declarer zero, every live opponent their auto-organized deadwood, and
// dropped players their recorded penalty; an invalid one penalizes the
// declarer with their own capped deadwood and scores everyone else zero.
func (r *Round) Declare(playerID uuid.UUID, melds [][]deck.Card) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Status != StatusPlaying {
		return nil, ErrRoundNotActive
	}
	ps := r.playerByID(playerID)
	if ps == nil {
		return nil, ErrUnknownPlayer
	}
	if ps.Dropped || r.Players[r.ActivePlayerIndex].ID != playerID {
		return nil, ErrNotYourTurn
	}
	if !ps.HasDrawn {
		return nil, ErrMustDrawFirst
	}
	if len(ps.Hand) != 14 {
		log.Printf("round %s: declarer %s holds %d cards post-draw, expected 14", r.ID, playerID, len(ps.Hand))
		return nil, ErrInvalidMeldShape
	}

	declared := flatten(melds)
	if len(declared) != 13 {
		return nil, ErrInvalidMeldShape
	}
	// Every declared card must be backed by a distinct physical card in the
	// hand; duplicate-looking cards consume separate copies.
	remainder := append([]deck.Card(nil), ps.Hand...)
	for _, c := range declared {
		if !removeCard(&remainder, c) {
			return nil, ErrInvalidMeldShape
		}
	}

	v := meld.ValidateDeclaration(melds, r.Config.AceValue, r.WildJokerRank, r.WildJokerRevealed)

	res := Result{
		DeclarerID: playerID,
		Valid:      v.Valid,
		Reason:     v.Reason,
		Scores:     make(map[uuid.UUID]int),
		Melds:      make(map[uuid.UUID][][]string),
	}
	res.Melds[playerID] = meldTokens(melds)

	if v.Valid {
		res.WinnerID = playerID
		res.Scores[playerID] = 0
		for _, other := range r.Players {
			if other.ID == playerID {
				continue
			}
			if other.Dropped {
				res.Scores[other.ID] = other.DropPenalty
				continue
			}
			org := meld.AutoOrganize(other.Hand, r.WildJokerRank, r.WildJokerRevealed)
			res.Scores[other.ID] = meld.DeadwoodPoints(org.Leftover, r.Config.AceValue)
			res.Melds[other.ID] = meldTokens(org.Melds)
		}
	} else {
		// Wrong-show policy: the declarer eats their own organized deadwood
		// (capped) and everyone else walks away clean.
		org := meld.AutoOrganize(ps.Hand, r.WildJokerRank, r.WildJokerRevealed)
		res.Scores[playerID] = meld.DeadwoodPoints(org.Leftover, r.Config.AceValue)
		for _, other := range r.Players {
			if other.ID != playerID {
				res.Scores[other.ID] = 0
			}
		}
	}

	r.complete(res)
	return r.result, nil
}

// Drop removes the player from the rest of the round for a fixed penalty:
// 20 before their first draw of the round, 40 after. If only one live
// player remains the round settles immediately in their favor.
func (r *Round) Drop(playerID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.drop(playerID)
}

// drop is the lock-held body of Drop, shared with the turn-timer expiry.
func (r *Round) drop(playerID uuid.UUID) error {
	if r.Status != StatusPlaying {
		return ErrRoundNotActive
	}
	ps := r.playerByID(playerID)
	if ps == nil {
		return ErrUnknownPlayer
	}
	if ps.Dropped {
		return ErrAlreadyDropped
	}

	penalty := 20
	if ps.EverDrew {
		penalty = 40
	}
	wasActive := r.Players[r.ActivePlayerIndex].ID == playerID
	ps.Dropped = true
	ps.DropPenalty = penalty

	r.fireEvent(Event{
		Type:    EventPlayerDropped,
		User:    &EventUser{ID: playerID},
		Payload: map[string]interface{}{"penalty": penalty},
	})
	r.logAction(playerID, string(EventPlayerDropped), map[string]interface{}{"penalty": penalty})

	live := r.livePlayers()
	if len(live) == 1 {
		res := Result{
			WinnerID: live[0].ID,
			Valid:    true,
			Reason:   "all opponents dropped",
			Scores:   make(map[uuid.UUID]int),
		}
		for _, p := range r.Players {
			switch {
			case p.ID == live[0].ID:
				res.Scores[p.ID] = 0
			case p.Dropped:
				res.Scores[p.ID] = p.DropPenalty
			default:
				res.Scores[p.ID] = 40
			}
		}
		r.complete(res)
		return nil
	}

	if wasActive {
		r.advanceTurn()
	}
	r.checkConservation()
	return nil
}

// complete transitions to the terminal state, records the result, stops the
// timer, and notifies. Assumes lock is held.
func (r *Round) complete(res Result) {
	r.Status = StatusComplete
	r.result = &res
	r.stopTurnTimer()

	payload := map[string]interface{}{
		"valid":  res.Valid,
		"winner": res.WinnerID.String(),
		"scores": stringScores(res.Scores),
	}
	if res.Reason != "" {
		payload["reason"] = res.Reason
	}
	if len(res.Melds) > 0 {
		payload["melds"] = stringMelds(res.Melds)
	}
	r.fireEvent(Event{Type: EventRoundComplete, Payload: payload})
	r.logAction(res.DeclarerID, string(EventRoundComplete), payload)
	r.persistSnapshot()
	r.persistResult(res)

	if r.OnComplete != nil {
		// Run the hook outside the lock so it can reach back into the table.
		go r.OnComplete(res)
	}
}

// advanceTurn moves to the next non-dropped seat, clears per-turn draw
// flags, and re-arms the turn deadline. Assumes lock is held.
func (r *Round) advanceTurn() {
	if r.Status != StatusPlaying {
		return
	}
	for _, p := range r.Players {
		p.HasDrawn = false
	}

	n := len(r.Players)
	idx := (r.ActivePlayerIndex + 1) % n
	for skipped := 0; r.Players[idx].Dropped; skipped++ {
		if skipped >= n {
			log.Printf("round %s: no live players to advance to", r.ID)
			return
		}
		idx = (idx + 1) % n
	}

	r.ActivePlayerIndex = idx
	r.TurnID++
	r.armTurnTimer()
	r.fireEvent(Event{
		Type:    EventTurnChange,
		User:    &EventUser{ID: r.Players[idx].ID},
		Payload: map[string]interface{}{"turn": r.TurnID},
	})
}

// guardDraw runs the common draw preconditions. Assumes lock is held.
func (r *Round) guardDraw(playerID uuid.UUID) (*PlayerState, error) {
	if r.Status != StatusPlaying {
		return nil, ErrRoundNotActive
	}
	ps := r.playerByID(playerID)
	if ps == nil {
		return nil, ErrUnknownPlayer
	}
	if ps.Dropped || r.Players[r.ActivePlayerIndex].ID != playerID {
		return nil, ErrNotYourTurn
	}
	if ps.HasDrawn {
		return nil, ErrAlreadyDrawn
	}
	return ps, nil
}

// fireDrawEvents emits the public pile-size notification and the private
// card detail for a draw. Assumes lock is held.
func (r *Round) fireDrawEvents(playerID uuid.UUID, card deck.Card, source string) {
	r.fireEvent(Event{
		Type: EventPlayerDraw,
		User: &EventUser{ID: playerID},
		Payload: map[string]interface{}{
			"source":      source,
			"stockSize":   len(r.Stock),
			"discardSize": len(r.Discard),
		},
	})
	r.fireEventToPlayer(playerID, Event{
		Type:    EventPrivateDraw,
		Card:    card.Token(),
		Payload: map[string]interface{}{"source": source},
	})
}

// Result returns the settled outcome, or nil while the round is live.
func (r *Round) Result() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

// CurrentStatus returns the lifecycle state under the round lock.
func (r *Round) CurrentStatus() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Status
}

// ActivePlayerID returns the player whose turn it is.
func (r *Round) ActivePlayerID() uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Players) == 0 {
		return uuid.Nil
	}
	return r.Players[r.ActivePlayerIndex].ID
}

// playerByID finds a seat's state. Assumes lock is held.
func (r *Round) playerByID(playerID uuid.UUID) *PlayerState {
	for _, p := range r.Players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

// livePlayers returns the non-dropped seats. Assumes lock is held.
func (r *Round) livePlayers() []*PlayerState {
	var live []*PlayerState
	for _, p := range r.Players {
		if !p.Dropped {
			live = append(live, p)
		}
	}
	return live
}

// discardTopToken returns the visible discard top. Assumes lock is held.
func (r *Round) discardTopToken() string {
	if len(r.Discard) == 0 {
		return ""
	}
	return r.Discard[len(r.Discard)-1].Token()
}

// checkConservation asserts the pile/hand card total. A mismatch is a
// programming defect, surfaced in the log rather than to players.
func (r *Round) checkConservation() {
	total := len(r.Stock) + len(r.Discard)
	for _, p := range r.Players {
		total += len(p.Hand)
	}
	if want := r.DeckCount * deck.CardsPerDeck; total != want {
		log.Printf("round %s: card conservation violated: have %d, want %d", r.ID, total, want)
	}
}

// popTop removes the top (last) card of a pile.
func popTop(pile []deck.Card) ([]deck.Card, deck.Card) {
	top := pile[len(pile)-1]
	return pile[:len(pile)-1], top
}

// dealTop moves the top card of the pile into a hand.
func dealTop(pile, hand []deck.Card) ([]deck.Card, []deck.Card) {
	rest, top := popTop(pile)
	return rest, append(hand, top)
}

// removeCard removes the first card equal to c, reporting whether it was
// present. Exact match: rank, suit, and printed-joker flag.
func removeCard(hand *[]deck.Card, c deck.Card) bool {
	for i, have := range *hand {
		if have == c {
			*hand = append((*hand)[:i], (*hand)[i+1:]...)
			return true
		}
	}
	return false
}

// handContains checks multiset containment without mutating the hand.
func handContains(hand, cards []deck.Card) bool {
	remainder := append([]deck.Card(nil), hand...)
	for _, c := range cards {
		if !removeCard(&remainder, c) {
			return false
		}
	}
	return true
}

func flatten(melds [][]deck.Card) []deck.Card {
	var out []deck.Card
	for _, m := range melds {
		out = append(out, m...)
	}
	return out
}

func meldTokens(melds [][]deck.Card) [][]string {
	out := make([][]string, len(melds))
	for i, m := range melds {
		out[i] = deck.Tokens(m)
	}
	return out
}

func stringScores(scores map[uuid.UUID]int) map[string]int {
	out := make(map[string]int, len(scores))
	for id, s := range scores {
		out[id.String()] = s
	}
	return out
}

func stringMelds(melds map[uuid.UUID][][]string) map[string][][]string {
	out := make(map[string][][]string, len(melds))
	for id, m := range melds {
		out[id.String()] = m
	}
	return out
}
