// internal/round/errors.go
package round

import "errors"

// Action rejections. All of these are recoverable, caller-visible errors
// surfaced to the transport as {ok:false, reason}; none of them leaves the
// round in a partially-mutated state.
var (
	ErrNotYourTurn         = errors.New("not your turn")
	ErrAlreadyDrawn        = errors.New("already drew this turn")
	ErrMustDrawFirst       = errors.New("must draw before discarding or declaring")
	ErrCardNotInHand       = errors.New("card not in hand")
	ErrInvalidMeldShape    = errors.New("invalid meld shape")
	ErrInvalidDeclaration  = errors.New("invalid declaration")
	ErrEmptyPile           = errors.New("pile is empty")
	ErrRoundNotActive      = errors.New("round is not active")
	ErrRoundNotComplete    = errors.New("round is not complete")
	ErrInsufficientPlayers = errors.New("not enough players")
	ErrAlreadyDropped      = errors.New("player already dropped")
	ErrUnknownPlayer       = errors.New("player is not in this round")
)
