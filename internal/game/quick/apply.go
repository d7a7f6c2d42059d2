package quick

import (
	"fmt"

	"github.com/mitchelldurbincs/TacticalSearch/internal/game/core"
)

// Apply executes a on the board. An action that fails validation returns an
// error wrapping core.ErrInvalidAction and leaves the board untouched.
// Running out of history capacity panics.
func (b *Board) Apply(a core.Action) error {
	switch a.Kind() {
	case core.ActTurnEnd:
		b.checkCapacity(a)
		b.endTurn()
		return nil
	case core.ActMove, core.ActMoveAttack:
	case core.ActSurrender:
		return fmt.Errorf("%s: %w", a, core.ErrUnsupportedOperation)
	default:
		return fmt.Errorf("%s: %w", a, core.ErrInvalidAction)
	}

	u, tgt, err := b.validate(a)
	if err != nil {
		return err
	}
	b.checkCapacity(a)

	k := b.moves
	b.histKind[k] = a.Kind()
	b.histActing[k] = int8(u.id)
	b.histTarget[k] = -1
	b.histUnacted[k] = int8(b.unacted)
	b.histJournal[k] = int32(len(b.journal.entries))
	u.save(k)

	from, dest := u.pos, a.Dest()
	enemy := u.team.Opponent()
	if dest != from {
		b.grid[b.idx(from)] = -1
		b.grid[b.idx(dest)] = int8(u.id)
		u.pos = dest
		b.patchTeam(enemy, true, dest)
		b.patchTeam(enemy, false, from)
	}
	u.finished = true
	b.unacted--

	if tgt != nil {
		b.histTarget[k] = int8(tgt.id)
		tgt.save(k)
		dealt, taken := b.tables.Damages(u.utype, u.hp, tgt.utype, tgt.hp,
			b.tables.DefenseStars(b.terrain[b.idx(dest)]),
			b.tables.DefenseStars(b.terrain[b.idx(tgt.pos)]))
		tgt.hp -= dealt
		if tgt.hp <= 0 {
			b.kill(tgt)
		} else if taken > 0 {
			u.hp -= taken
			if u.hp <= 0 {
				b.kill(u)
			}
		}
	}

	b.moves++
	return nil
}

func (b *Board) checkCapacity(a core.Action) {
	if b.moves >= len(b.histKind) {
		panic(fmt.Errorf("apply %s at move %d: %w", a, b.moves, core.ErrHistoryOverflow))
	}
}

// validate checks a move or attack against the live board.
func (b *Board) validate(a core.Action) (u, tgt *Unit, err error) {
	if a.Team() != b.phase {
		return nil, nil, fmt.Errorf("%s: not %s's phase: %w", a, a.Team(), core.ErrInvalidAction)
	}
	u, ok := b.Unit(a.ActingID())
	if !ok || u.dead || u.team != b.phase || u.pos != a.Origin() {
		return nil, nil, fmt.Errorf("%s: no such acting unit: %w", a, core.ErrInvalidAction)
	}
	if u.finished {
		return nil, nil, fmt.Errorf("%s: unit already acted: %w", a, core.ErrInvalidAction)
	}
	dest := a.Dest()
	if dest != u.pos {
		if !dest.IsPlayable(b.w, b.h) || b.grid[b.idx(dest)] >= 0 || !b.Reach(u).CanStop(dest) {
			return nil, nil, fmt.Errorf("%s: destination not reachable: %w", a, core.ErrInvalidAction)
		}
		if a.Kind() == core.ActMoveAttack && !u.spec.Direct() {
			return nil, nil, fmt.Errorf("%s: indirect unit cannot move and attack: %w", a, core.ErrInvalidAction)
		}
	}
	if a.Kind() == core.ActMove {
		return u, nil, nil
	}
	tgt, ok = b.Unit(a.TargetID())
	if !ok || tgt.dead || tgt.team == u.team {
		return nil, nil, fmt.Errorf("%s: no such target: %w", a, core.ErrInvalidAction)
	}
	if b.tables.AttackPower(u.utype, tgt.utype) == 0 || !b.tables.InAttackRange(u.utype, dest, tgt.pos) {
		return nil, nil, fmt.Errorf("%s: target cannot be hit: %w", a, core.ErrInvalidAction)
	}
	return u, tgt, nil
}

// kill removes u from the grid. Its opponents' maps are patched for the
// vacated cell.
func (b *Board) kill(u *Unit) {
	u.hp = 0
	u.dead = true
	b.grid[b.idx(u.pos)] = -1
	b.alive[u.team]--
	b.patchTeam(u.team.Opponent(), false, u.pos)
}

// patchTeam updates the current-turn maps of t's units after an enemy
// entered or left c. Units of the side to move that already acted are
// skipped; their maps are rebuilt at the next turn end.
func (b *Board) patchTeam(t core.Team, enter bool, c core.Coordinate) {
	for _, v := range b.teams[t] {
		if v.dead || (t == b.phase && v.finished) {
			continue
		}
		m := v.slice[b.turn]
		b.journal.cur = m
		if enter {
			b.eng.PatchOnEnemyEnter(m, v.env, c, &b.journal)
		} else {
			b.eng.PatchOnEnemyLeave(m, v.env, c, &b.journal)
		}
	}
	b.journal.cur = nil
}

// endTurn passes the turn. The side that just moved gets fresh maps for the
// next slice since its units changed position; the side coming in carries
// its current maps forward.
func (b *Board) endTurn() {
	next := b.turn + 1
	if next >= b.slices {
		panic(fmt.Errorf("turn end into turn %d of %d: %w", next, b.slices, core.ErrHistoryOverflow))
	}
	k := b.moves
	b.histKind[k] = core.ActTurnEnd
	b.histActing[k] = -1
	b.histTarget[k] = -1
	b.histUnacted[k] = int8(b.unacted)
	b.histJournal[k] = int32(len(b.journal.entries))

	ended := b.phase
	for _, u := range b.teams[ended] {
		u.save(k)
		if u.dead {
			continue
		}
		u.finished = false
		b.eng.BuildFresh(u.slice[next], u.env, u.pos, u.spec.Step+1)
	}
	for _, u := range b.teams[ended.Opponent()] {
		if !u.dead {
			u.slice[next].CopyFrom(u.slice[b.turn])
		}
	}

	b.turn = next
	b.phase = ended.Opponent()
	b.unacted = b.countUnacted(b.phase)
	b.moves++
}

// Undo reverts the most recent Apply. Calling it with nothing to undo
// panics.
func (b *Board) Undo() {
	if b.moves == 0 {
		panic(fmt.Errorf("undo at move 0: %w", core.ErrHistoryUnderflow))
	}
	b.moves--
	k := b.moves
	b.journal.rewind(int(b.histJournal[k]))
	b.unacted = int(b.histUnacted[k])

	if b.histKind[k] == core.ActTurnEnd {
		prev := b.turn
		b.turn--
		b.phase = b.phase.Opponent()
		for _, u := range b.units {
			u.slice[prev].Reset()
		}
		for _, u := range b.teams[b.phase] {
			u.finished = u.hist[k].finished
		}
		return
	}

	if id := b.histTarget[k]; id >= 0 {
		b.restore(b.units[id], k)
	}
	b.restore(b.units[b.histActing[k]], k)
}

// restore puts u back to its status before move k.
func (b *Board) restore(u *Unit, k int) {
	e := u.hist[k]
	if u.dead {
		if !e.dead {
			b.alive[u.team]++
		}
	} else if b.grid[b.idx(u.pos)] == int8(u.id) {
		b.grid[b.idx(u.pos)] = -1
	}
	u.pos, u.hp, u.finished, u.dead = e.pos, e.hp, e.finished, e.dead
	if !u.dead {
		b.grid[b.idx(u.pos)] = int8(u.id)
	}
}
