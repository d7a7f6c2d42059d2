package rules

import (
	"fmt"

	"github.com/mitchelldurbincs/TacticalSearch/internal/game/core"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/reach"
)

// UnitEnv is the reach.Env of one unit on a BoardOps: terrain costs come
// from the unit type and living opponents block.
type UnitEnv struct {
	Board  core.BoardOps
	Tables *Tables
	Type   core.UnitType
	Team   core.Team
}

func (e UnitEnv) Cost(idx int) int {
	c := core.FromIndex(idx, e.Board.Width())
	return e.Tables.MoveCost(e.Type, e.Board.TerrainAt(c))
}

func (e UnitEnv) Enemy(idx int) bool {
	u, ok := e.Board.UnitAt(core.FromIndex(idx, e.Board.Width()))
	return ok && u.Team() != e.Team
}

// ReachOf builds the reachability of u on b from scratch.
func ReachOf(eng *reach.Engine, b core.BoardOps, tb *Tables, u core.UnitOps) *reach.Map {
	m := reach.NewMap(b.Width(), b.Height())
	env := UnitEnv{Board: b, Tables: tb, Type: u.Type(), Team: u.Team()}
	eng.BuildFresh(m, env, u.Position(), tb.Spec(u.Type()).Step+1)
	return m
}

// InAttackRange reports whether a unit of type t standing on from can hit a
// target on to without moving further.
func (tb *Tables) InAttackRange(t core.UnitType, from, to core.Coordinate) bool {
	d := from.DistanceTo(to)
	s := tb.Spec(t)
	return d >= s.MinRange && d <= s.MaxRange
}

// ValidateAction checks an unpacked action against the canonical board. Ids
// are canonical unit ids. It never mutates b.
func ValidateAction(eng *reach.Engine, b *core.Board, tb *Tables, a core.ActionFields) error {
	switch a.Kind {
	case core.ActTurnEnd, core.ActSurrender:
		return nil
	case core.ActMove, core.ActMoveAttack:
	default:
		return fmt.Errorf("%s: %w", a, core.ErrInvalidAction)
	}

	if a.Team != b.Phase() {
		return fmt.Errorf("%s: not %s's phase: %w", a, a.Team, core.ErrInvalidAction)
	}
	u, ok := b.Unit(a.ActingID)
	if !ok || u.IsDead() {
		return fmt.Errorf("acting unit %d: %w", a.ActingID, core.ErrUnitNotFound)
	}
	if u.Team() != a.Team || u.Position() != a.Origin {
		return fmt.Errorf("%s: acting unit is %s: %w", a, u, core.ErrInvalidAction)
	}
	if u.ActionFinished() {
		return fmt.Errorf("%s: unit already acted: %w", a, core.ErrInvalidAction)
	}

	dest := a.Dest
	if !dest.IsPlayable(b.W, b.H) {
		return fmt.Errorf("%s: destination off board: %w", a, core.ErrInvalidAction)
	}
	if dest != u.Position() {
		if _, taken := b.Occupant(dest); taken {
			return fmt.Errorf("%s: destination occupied: %w", a, core.ErrCellOccupied)
		}
		if a.Kind == core.ActMoveAttack && !tb.Spec(u.Type()).Direct() {
			return fmt.Errorf("%s: indirect units cannot move and attack: %w", a, core.ErrInvalidAction)
		}
		if !ReachOf(eng, b, tb, u).CanStop(dest) {
			return fmt.Errorf("%s: destination out of reach: %w", a, core.ErrInvalidAction)
		}
	}
	if a.Kind == core.ActMove {
		return nil
	}

	tgt, ok := b.Unit(a.TargetID)
	if !ok || tgt.IsDead() {
		return fmt.Errorf("target unit %d: %w", a.TargetID, core.ErrUnitNotFound)
	}
	if tgt.Team() == u.Team() {
		return fmt.Errorf("%s: target is friendly: %w", a, core.ErrInvalidAction)
	}
	if tb.AttackPower(u.Type(), tgt.Type()) == 0 {
		return fmt.Errorf("%s: %s cannot damage %s: %w", a, u.Type(), tgt.Type(), core.ErrInvalidAction)
	}
	if !tb.InAttackRange(u.Type(), dest, tgt.Position()) {
		return fmt.Errorf("%s: target out of range: %w", a, core.ErrInvalidAction)
	}
	return nil
}
