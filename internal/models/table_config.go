// internal/models/table_config.go
package models

// WildJokerMode controls how a round's wild joker is chosen and revealed.
// Fixed for the table's lifetime.
type WildJokerMode string

const (
	// WildJokerNone plays with printed jokers only.
	WildJokerNone WildJokerMode = "no_joker"
	// WildJokerOpen picks a random wild rank and reveals it at deal time.
	WildJokerOpen WildJokerMode = "open"
	// WildJokerClosed picks a random wild rank that stays hidden until a
	// player locks a pure sequence.
	WildJokerClosed WildJokerMode = "closed"
)

// TableConfig captures the game-time configuration a table is created with.
type TableConfig struct {
	MaxPlayers      int           `json:"maxPlayers"`      // seats, 2..6
	DisqualifyScore int           `json:"disqualifyScore"` // cumulative score that removes a player
	WildJokerMode   WildJokerMode `json:"wildJokerMode"`
	AceValue        int           `json:"aceValue"`     // 1 or 10
	TurnTimerSec    int           `json:"turnTimerSec"` // 0 disables the turn deadline
}

// Normalize fills unset fields with table defaults and clamps bad values.
func (c *TableConfig) Normalize() {
	if c.MaxPlayers < 2 || c.MaxPlayers > 6 {
		c.MaxPlayers = 6
	}
	if c.DisqualifyScore <= 0 {
		c.DisqualifyScore = 200
	}
	switch c.WildJokerMode {
	case WildJokerNone, WildJokerOpen, WildJokerClosed:
	default:
		c.WildJokerMode = WildJokerClosed
	}
	if c.AceValue != 1 {
		c.AceValue = 10
	}
	if c.TurnTimerSec < 0 {
		c.TurnTimerSec = 0
	}
}
