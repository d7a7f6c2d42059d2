// Package movegen enumerates and suggests unit actions on an episode board.
// Every function appends to dst so the search can reuse one buffer per ply.
package movegen

import (
	"github.com/mitchelldurbincs/TacticalSearch/internal/common"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/core"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/quick"
)

// AppendAttacks appends every attack u can make this turn. Direct units
// attack from each free neighbour of a reachable enemy; indirect units fire
// from where they stand.
func AppendAttacks(dst []core.Action, b *quick.Board, u *quick.Unit) []core.Action {
	tb := b.Tables()
	enemies := b.Team(u.Team().Opponent())
	if !u.Spec().Direct() {
		for _, e := range enemies {
			if e.IsDead() || tb.AttackPower(u.Type(), e.Type()) == 0 {
				continue
			}
			if tb.InAttackRange(u.Type(), u.Position(), e.Position()) {
				dst = append(dst, core.MustAttack(u, u.Position(), e))
			}
		}
		return dst
	}

	m := b.Reach(u)
	for _, e := range enemies {
		if e.IsDead() || !m.CanAttack(e.Position()) || tb.AttackPower(u.Type(), e.Type()) == 0 {
			continue
		}
		for _, n := range e.Position().Neighbors() {
			if !m.CanStop(n) {
				continue
			}
			if n != u.Position() {
				if _, taken := b.Occupant(n); taken {
					continue
				}
			}
			dst = append(dst, core.MustAttack(u, n, e))
		}
	}
	return dst
}

// AppendMoves appends staying in place followed by every free cell u can
// stop on.
func AppendMoves(dst []core.Action, b *quick.Board, u *quick.Unit) []core.Action {
	dst = append(dst, core.MustMove(u, u.Position()))
	m := b.Reach(u)
	for i, s := range m.Step {
		if s <= 0 {
			continue
		}
		c := core.FromIndex(i, m.W)
		if c == u.Position() {
			continue
		}
		if _, taken := b.Occupant(c); taken {
			continue
		}
		dst = append(dst, core.MustMove(u, c))
	}
	return dst
}

// AttackActionsFor returns every attack u can make this turn.
func AttackActionsFor(b *quick.Board, u *quick.Unit) []core.Action {
	return AppendAttacks(nil, b, u)
}

// MoveActionsFor returns every move of u, staying in place first.
func MoveActionsFor(b *quick.Board, u *quick.Unit) []core.Action {
	return AppendMoves(nil, b, u)
}

// EnemyCentroid is the mean position of t's opponents that are alive and
// still to act, or the board center when there are none.
func EnemyCentroid(b *quick.Board, t core.Team) core.Coordinate {
	var pts []core.Coordinate
	for _, e := range b.Team(t.Opponent()) {
		if !e.IsDead() && !e.ActionFinished() {
			pts = append(pts, e.Position())
		}
	}
	return common.Centroid(pts, common.BoardCenter(b.Width(), b.Height()))
}
