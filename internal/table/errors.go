// internal/table/errors.go
package table

import "errors"

var (
	ErrTableFull       = errors.New("table is full")
	ErrAlreadySeated   = errors.New("player already seated")
	ErrNotSeated       = errors.New("player is not seated at this table")
	ErrRoundInProgress = errors.New("a round is in progress")
	ErrTableFinished   = errors.New("table is finished")
)
