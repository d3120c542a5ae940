package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrIllegalMove is the parent of every rejected-move error
	ErrIllegalMove       = errors.New("illegal move")
	ErrOutOfBounds       = fmt.Errorf("%w: out of bounds", ErrIllegalMove)
	ErrCellOccupied      = fmt.Errorf("%w: cell occupied", ErrIllegalMove)
	ErrNotYourTurn       = fmt.Errorf("%w: not your turn", ErrIllegalMove)
	ErrGameNotInProgress = fmt.Errorf("%w: game not in progress", ErrIllegalMove)

	ErrReplayPoolFull  = errors.New("replay pool full")
	ErrReplayExhausted = errors.New("replay exhausted")
	ErrGameNotFinished = errors.New("game not finished")
	ErrModeNotPlayable = errors.New("mode not playable")
	ErrInvalidSymbols  = errors.New("invalid symbols")
	ErrBoardFull       = errors.New("board full")
)
