// internal/round/events.go
package round

import "github.com/google/uuid"

// EventType is an enum-like type for broadcasting round events.
type EventType string

// Public events go to every seat at the table; private events carry hand
// contents and go only to their owner. The split is enforced by which
// broadcast callback an event is emitted through.
const (
	EventRoundStart     EventType = "round_start"       // public: counts, discard top, wild rank if open
	EventPlayerDraw     EventType = "player_draw"       // public: drawer + source + pile sizes only
	EventPlayerDiscard  EventType = "player_discard"    // public: card revealed
	EventTurnChange     EventType = "turn_change"       // public: new active player
	EventSequenceLocked EventType = "sequence_locked"   // public: who locked a pure sequence
	EventWildReveal     EventType = "wild_joker_reveal" // public: wild rank now visible
	EventPlayerDropped  EventType = "player_dropped"    // public: who dropped and the penalty
	EventRoundComplete  EventType = "round_complete"    // public: scores, melds, outcome

	EventPrivateHand       EventType = "private_hand"        // private: the 13 dealt cards
	EventPrivateDraw       EventType = "private_draw"        // private: the drawn card detail
	EventPrivateSyncState  EventType = "private_sync_state"  // private: obfuscated state snapshot
	EventPrivateActionFail EventType = "private_action_fail" // private: rejection reason
)

// EventUser identifies the acting player inside an event payload.
type EventUser struct {
	ID uuid.UUID `json:"id"`
}

// Event is the single wire shape for everything the round broadcasts.
// Cards travel as canonical tokens.
type Event struct {
	Type  EventType  `json:"type"`
	User  *EventUser `json:"user,omitempty"`
	Card  string     `json:"card,omitempty"`
	Cards []string   `json:"cards,omitempty"`

	Payload map[string]interface{} `json:"payload,omitempty"`

	State *SyncState `json:"state,omitempty"`
}

// fireEvent broadcasts an event to every seat. Assumes lock is held.
func (r *Round) fireEvent(ev Event) {
	if r.BroadcastFn != nil {
		r.BroadcastFn(ev)
	}
}

// fireEventToPlayer sends a player-private event. Assumes lock is held.
func (r *Round) fireEventToPlayer(playerID uuid.UUID, ev Event) {
	if r.BroadcastToPlayerFn != nil {
		r.BroadcastToPlayerFn(playerID, ev)
	}
}
