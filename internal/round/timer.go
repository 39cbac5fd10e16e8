// internal/round/timer.go
package round

import (
	"log"
	"time"

	"github.com/google/uuid"
)

// armTurnTimer schedules an auto-drop for the active player when the table
// runs a turn clock. TurnTimerSec <= 0 disables the clock entirely.
// Assumes lock is held.
func (r *Round) armTurnTimer() {
	r.stopTurnTimer()
	if r.Config.TurnTimerSec <= 0 || r.Status != StatusPlaying {
		return
	}

	playerID := r.Players[r.ActivePlayerIndex].ID
	turnID := r.TurnID
	r.turnTimer = time.AfterFunc(time.Duration(r.Config.TurnTimerSec)*time.Second, func() {
		r.expireTurn(playerID, turnID)
	})
}

// stopTurnTimer cancels any pending turn deadline. Assumes lock is held.
func (r *Round) stopTurnTimer() {
	if r.turnTimer != nil {
		r.turnTimer.Stop()
		r.turnTimer = nil
	}
}

// expireTurn fires when a turn clock runs out. The TurnID captured when the
// timer was armed guards against a stale expiry racing a discard that
// already advanced the turn: if the round moved on, the expiry is a no-op.
func (r *Round) expireTurn(playerID uuid.UUID, turnID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Status != StatusPlaying || r.TurnID != turnID {
		return
	}
	if r.Players[r.ActivePlayerIndex].ID != playerID {
		return
	}

	log.Printf("round %s: turn %d timed out, auto-dropping player %s", r.ID, turnID, playerID)
	if err := r.drop(playerID); err != nil {
		log.Printf("round %s: auto-drop failed for %s: %v", r.ID, playerID, err)
	}
}
