package models

import (
	"github.com/google/uuid"
)

// Player is a seat at a table. The engine treats ID and DisplayName as
// opaque values supplied by the identity layer.
type Player struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"displayName"`
	Seat        int       `json:"seat"`
	Connected   bool      `json:"connected"`

	// Disqualified is set once the player's cumulative score reaches the
	// table's disqualify threshold. Evaluated only between rounds.
	Disqualified bool `json:"disqualified"`

	User *User `json:"-"`
}
