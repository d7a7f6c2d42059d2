package core

import "errors"

var (
	ErrInvalidCoordinates   = errors.New("invalid coordinates")
	ErrFieldOutOfRange      = errors.New("action field out of packable range")
	ErrInvalidAction        = errors.New("invalid action")
	ErrUnitNotFound         = errors.New("unit not found")
	ErrCellOccupied         = errors.New("cell occupied")
	ErrGameOver             = errors.New("game is over")
	ErrInvalidTeam          = errors.New("invalid team")
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrTooManyUnits         = errors.New("too many units for compact ids")
	ErrBoardTooLarge        = errors.New("board too large for compact coordinates")
	ErrHistoryOverflow      = errors.New("history capacity exceeded")
	ErrHistoryUnderflow     = errors.New("undo with empty history")
	ErrStaleReachMap        = errors.New("reach map queried outside its turn slice")
	ErrMapNotPrepared       = errors.New("reach map not prepared")
)
