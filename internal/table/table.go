// internal/table/table.go

// Package table owns the long-lived session wrapped around individual
// rounds: seating, round lifecycle, cumulative scoring, and
// disqualification. A table serializes everything on its own mutex; the
// rounds it spawns serialize on theirs. Lock order is always table before
// round.
package table

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tablerummy/rummy-service/internal/models"
	"github.com/tablerummy/rummy-service/internal/round"
)

// Status is the table lifecycle state.
type Status string

const (
	StatusLobby    Status = "lobby"    // seating open, no live round
	StatusPlaying  Status = "playing"  // a round is in progress
	StatusFinished Status = "finished" // fewer than two eligible players remain
)

// RoundRecord is one settled round in the table history.
type RoundRecord struct {
	Number int          `json:"number"`
	Result round.Result `json:"result"`
}

// Table is one rummy table: its seats, its current round, and the running
// score totals that eventually disqualify players.
type Table struct {
	ID        uuid.UUID
	HostID    uuid.UUID
	Config    models.TableConfig
	CreatedAt time.Time

	mu          sync.Mutex
	players     []*models.Player
	status      Status
	roundNumber int
	current     *round.Round
	history     []RoundRecord
	totals      map[uuid.UUID]int

	// Pass-through broadcast callbacks handed to every round this table
	// starts. Set once by the transport layer before play begins.
	BroadcastFn         func(ev round.Event)
	BroadcastToPlayerFn func(playerID uuid.UUID, ev round.Event)
}

// NewTable creates an empty table owned by hostID. The config is
// normalized so zero values fall back to house defaults.
func NewTable(cfg models.TableConfig, hostID uuid.UUID) *Table {
	cfg.Normalize()
	return &Table{
		ID:        uuid.New(),
		HostID:    hostID,
		Config:    cfg,
		CreatedAt: time.Now().UTC(),
		status:    StatusLobby,
		totals:    make(map[uuid.UUID]int),
	}
}

// AddPlayer seats a player at the lowest free seat number. Seating is only
// open while no round is live.
func (t *Table) AddPlayer(p *models.Player) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.status {
	case StatusPlaying:
		return ErrRoundInProgress
	case StatusFinished:
		return ErrTableFinished
	}
	// A seated player re-adding themselves is a duplicate, not a capacity
	// problem, even at a full table.
	for _, seated := range t.players {
		if seated.ID == p.ID {
			return ErrAlreadySeated
		}
	}
	if len(t.players) >= t.Config.MaxPlayers {
		return ErrTableFull
	}

	p.Seat = t.lowestFreeSeat()
	t.players = append(t.players, p)
	sort.Slice(t.players, func(i, j int) bool { return t.players[i].Seat < t.players[j].Seat })
	return nil
}

// RemovePlayer reclaims a seat between rounds.
func (t *Table) RemovePlayer(playerID uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status == StatusPlaying {
		return ErrRoundInProgress
	}
	for i, p := range t.players {
		if p.ID == playerID {
			t.players = append(t.players[:i], t.players[i+1:]...)
			return nil
		}
	}
	return ErrNotSeated
}

// StartRound deals the first round, or a fresh one after PrepareNextRound.
// A non-nil seed makes the deal deterministic.
func (t *Table) StartRound(seed *int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.startRound(seed)
}

// startRound is the lock-held body of StartRound.
func (t *Table) startRound(seed *int64) error {
	switch t.status {
	case StatusPlaying:
		return ErrRoundInProgress
	case StatusFinished:
		return ErrTableFinished
	}

	eligible := t.eligiblePlayers()
	if len(eligible) < 2 {
		return round.ErrInsufficientPlayers
	}

	t.roundNumber++
	r := round.New(t.ID, t.roundNumber, round.Config{
		WildJokerMode: t.Config.WildJokerMode,
		AceValue:      t.Config.AceValue,
		TurnTimerSec:  t.Config.TurnTimerSec,
	})
	r.BroadcastFn = t.BroadcastFn
	r.BroadcastToPlayerFn = t.BroadcastToPlayerFn

	// The deal rotates: round N starts with eligible seat (N-1) mod count.
	starter := (t.roundNumber - 1) % len(eligible)
	if err := r.Start(eligible, starter, seed); err != nil {
		t.roundNumber--
		return err
	}

	t.current = r
	t.status = StatusPlaying
	return nil
}

// PrepareNextRound settles the finished round into the table history,
// disqualifies any player whose running total reached the configured
// threshold, and either starts the next round or finishes the table when
// fewer than two eligible players remain.
func (t *Table) PrepareNextRound(seed *int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status == StatusFinished {
		return ErrTableFinished
	}
	if t.current == nil || t.current.CurrentStatus() != round.StatusComplete {
		return round.ErrRoundNotComplete
	}

	res := t.current.Result()
	t.history = append(t.history, RoundRecord{Number: t.current.Number, Result: *res})
	for pid, score := range res.Scores {
		t.totals[pid] += score
	}
	for _, p := range t.players {
		if !p.Disqualified && t.totals[p.ID] >= t.Config.DisqualifyScore {
			p.Disqualified = true
		}
	}

	t.current = nil
	t.status = StatusLobby

	if len(t.eligiblePlayers()) < 2 {
		t.status = StatusFinished
		return nil
	}
	return t.startRound(seed)
}

// CurrentRound returns the live (or just-settled, not yet prepared) round.
func (t *Table) CurrentRound() *round.Round {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Status returns the table lifecycle state.
func (t *Table) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// RoundNumber returns how many rounds have been started.
func (t *Table) RoundNumber() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.roundNumber
}

// Players returns a copy of the seat list in seat order.
func (t *Table) Players() []*models.Player {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*models.Player(nil), t.players...)
}

// MarkConnected updates a seat's connection flag. Unknown players are
// ignored; a stale disconnect for a removed seat is not an error.
func (t *Table) MarkConnected(playerID uuid.UUID, connected bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range t.players {
		if p.ID == playerID {
			p.Connected = connected
			return
		}
	}
}

// HasPlayer reports whether the player holds a seat here.
func (t *Table) HasPlayer(playerID uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range t.players {
		if p.ID == playerID {
			return true
		}
	}
	return false
}

// Totals returns a copy of the cumulative scores across settled rounds.
func (t *Table) Totals() map[uuid.UUID]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[uuid.UUID]int, len(t.totals))
	for pid, s := range t.totals {
		out[pid] = s
	}
	return out
}

// History returns a copy of the settled round records.
func (t *Table) History() []RoundRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]RoundRecord(nil), t.history...)
}

// eligiblePlayers returns seated, non-disqualified players in seat order.
// Assumes lock is held.
func (t *Table) eligiblePlayers() []*models.Player {
	var eligible []*models.Player
	for _, p := range t.players {
		if !p.Disqualified {
			eligible = append(eligible, p)
		}
	}
	return eligible
}

// lowestFreeSeat finds the smallest unused seat number. Assumes lock is
// held and players sorted by seat.
func (t *Table) lowestFreeSeat() int {
	seat := 0
	for _, p := range t.players {
		if p.Seat == seat {
			seat++
		}
	}
	return seat
}
