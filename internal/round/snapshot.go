// internal/round/snapshot.go
package round

import (
	"time"

	"github.com/google/uuid"

	"github.com/tablerummy/rummy-service/internal/cache"
	"github.com/tablerummy/rummy-service/internal/database"
	"github.com/tablerummy/rummy-service/internal/deck"
)

// Snapshot is the full round state as persisted. It contains every hand and
// the hidden wild rank, so it must never be sent to a player.
type Snapshot struct {
	RoundID           uuid.UUID           `json:"roundId"`
	TableID           uuid.UUID           `json:"tableId"`
	Number            int                 `json:"number"`
	Status            Status              `json:"status"`
	Stock             []string            `json:"stock"`
	Discard           []string            `json:"discard"`
	Hands             map[string][]string `json:"hands"`
	ActivePlayerID    uuid.UUID           `json:"activePlayerId"`
	TurnID            int                 `json:"turnId"`
	WildJokerRank     string              `json:"wildJokerRank,omitempty"`
	WildJokerRevealed bool                `json:"wildJokerRevealed"`
	DeckCount         int                 `json:"deckCount"`
	Config            Config              `json:"config"`
}

// SyncPlayer is one seat as visible to a specific viewer. Hand is populated
// only for the viewer's own seat.
type SyncPlayer struct {
	PlayerID   uuid.UUID `json:"playerId"`
	HandSize   int       `json:"handSize"`
	Dropped    bool      `json:"dropped"`
	LockedPure bool      `json:"lockedPure"`
	Hand       []string  `json:"hand,omitempty"`
}

// SyncState is the obfuscated round view sent to a reconnecting player:
// their own cards in full, everyone else reduced to counts and flags, and
// the wild rank only once revealed.
type SyncState struct {
	RoundID           uuid.UUID    `json:"roundId"`
	Number            int          `json:"number"`
	Status            Status       `json:"status"`
	StockSize         int          `json:"stockSize"`
	DiscardSize       int          `json:"discardSize"`
	DiscardTop        string       `json:"discardTop,omitempty"`
	ActivePlayerID    uuid.UUID    `json:"activePlayerId"`
	TurnID            int          `json:"turnId"`
	WildJokerRank     string       `json:"wildJokerRank,omitempty"`
	WildJokerRevealed bool         `json:"wildJokerRevealed"`
	Players           []SyncPlayer `json:"players"`
}

// Snapshot captures the full authoritative state under the round lock.
func (r *Round) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

// snapshot is the lock-held body of Snapshot.
func (r *Round) snapshot() Snapshot {
	hands := make(map[string][]string, len(r.Players))
	for _, p := range r.Players {
		hands[p.ID.String()] = deck.Tokens(p.Hand)
	}
	var activeID uuid.UUID
	if len(r.Players) > 0 {
		activeID = r.Players[r.ActivePlayerIndex].ID
	}
	return Snapshot{
		RoundID:           r.ID,
		TableID:           r.TableID,
		Number:            r.Number,
		Status:            r.Status,
		Stock:             deck.Tokens(r.Stock),
		Discard:           deck.Tokens(r.Discard),
		Hands:             hands,
		ActivePlayerID:    activeID,
		TurnID:            r.TurnID,
		WildJokerRank:     r.WildJokerRank,
		WildJokerRevealed: r.WildJokerRevealed,
		DeckCount:         r.DeckCount,
		Config:            r.Config,
	}
}

// SyncStateFor builds the obfuscated view for one viewer. Used on reconnect
// and on demand via the sync action.
func (r *Round) SyncStateFor(viewerID uuid.UUID) SyncState {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := SyncState{
		RoundID:           r.ID,
		Number:            r.Number,
		Status:            r.Status,
		StockSize:         len(r.Stock),
		DiscardSize:       len(r.Discard),
		DiscardTop:        r.discardTopToken(),
		TurnID:            r.TurnID,
		WildJokerRevealed: r.WildJokerRevealed,
	}
	if r.WildJokerRevealed {
		st.WildJokerRank = r.WildJokerRank
	}
	if len(r.Players) > 0 {
		st.ActivePlayerID = r.Players[r.ActivePlayerIndex].ID
	}
	for _, p := range r.Players {
		sp := SyncPlayer{
			PlayerID:   p.ID,
			HandSize:   len(p.Hand),
			Dropped:    p.Dropped,
			LockedPure: p.LockedPure,
		}
		if p.ID == viewerID {
			sp.Hand = deck.Tokens(p.Hand)
		}
		st.Players = append(st.Players, sp)
	}
	return st
}

// persistSnapshot writes the current state behind the request path. The
// database layer no-ops when Postgres is not configured. Assumes lock is
// held; the write itself runs on a fresh goroutine off a copied snapshot.
func (r *Round) persistSnapshot() {
	snap := r.snapshot()
	go database.UpsertRoundSnapshot(snap.RoundID, snap.TableID, snap.Number, snap)
}

// persistResult records the settled scores. Assumes lock is held.
func (r *Round) persistResult(res Result) {
	rows := make([]database.RoundResultRow, 0, len(res.Scores))
	for pid, score := range res.Scores {
		rows = append(rows, database.RoundResultRow{
			PlayerID: pid,
			Score:    score,
			Winner:   pid == res.WinnerID,
		})
	}
	go database.RecordRoundResults(r.ID, r.TableID, r.Number, rows)
}

// logAction appends one entry to the append-only action ledger in redis.
// Publishing is fire-and-forget and never blocks the action path. Assumes
// lock is held.
func (r *Round) logAction(playerID uuid.UUID, actionType string, payload map[string]interface{}) {
	r.actionIndex++
	rec := cache.RoundActionRecord{
		RoundID:    r.ID,
		TableID:    r.TableID,
		Index:      r.actionIndex,
		PlayerID:   playerID,
		ActionType: actionType,
		Payload:    payload,
		Timestamp:  time.Now().UTC(),
	}
	go cache.PublishRoundAction(rec)
}
