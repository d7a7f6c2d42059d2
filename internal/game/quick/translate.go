package quick

import (
	"fmt"

	"github.com/mitchelldurbincs/TacticalSearch/internal/game/core"
)

// TranslateAction converts an action in compact ids into the canonical
// board's ids. Coordinates are shared between the two boards.
func (b *Board) TranslateAction(a core.Action) (core.ActionFields, error) {
	f := a.Decode()
	switch f.Kind {
	case core.ActTurnEnd, core.ActSurrender:
		f.Team = b.phase
		return f, nil
	case core.ActMove, core.ActMoveAttack:
	default:
		return f, fmt.Errorf("translate %s: %w", a, core.ErrInvalidAction)
	}
	u, ok := b.Unit(f.ActingID)
	if !ok {
		return f, fmt.Errorf("translate %s: acting unit: %w", a, core.ErrUnitNotFound)
	}
	f.ActingID = u.canonID
	if f.Kind == core.ActMoveAttack {
		t, ok := b.Unit(f.TargetID)
		if !ok {
			return f, fmt.Errorf("translate %s: target unit: %w", a, core.ErrUnitNotFound)
		}
		f.TargetID = t.canonID
	}
	return f, nil
}

// compactID returns the episode id of the canonical unit canonID.
func (b *Board) compactID(canonID int) (int, bool) {
	for _, u := range b.units {
		if u.canonID == canonID {
			return u.id, true
		}
	}
	return 0, false
}

// Clone is not supported: build another Board from a copy of the canonical
// board instead.
func (b *Board) Clone() (*Board, error) {
	return nil, fmt.Errorf("clone episode board: %w", core.ErrUnsupportedOperation)
}

// LoadMapFile is not supported on an episode board.
func (b *Board) LoadMapFile(path string) error {
	return fmt.Errorf("load %s into episode board: %w", path, core.ErrUnsupportedOperation)
}

// SaveMapFile is not supported on an episode board.
func (b *Board) SaveMapFile(path string) error {
	return fmt.Errorf("save episode board to %s: %w", path, core.ErrUnsupportedOperation)
}

// ApplyCanonical is not supported: translate the action and apply it to the
// canonical board.
func (b *Board) ApplyCanonical(core.ActionFields) error {
	return fmt.Errorf("apply canonical action to episode board: %w", core.ErrUnsupportedOperation)
}
