package movegen

import (
	"golang.org/x/exp/rand"

	"github.com/mitchelldurbincs/TacticalSearch/internal/game/core"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/quick"
)

// Weak is the attack power at or below which an enemy is not counted as a
// threat when ranking moves.
const Weak = 10

// threatCount is the number of living enemies that can reach c this turn.
func threatCount(b *quick.Board, t core.Team, c core.Coordinate) int {
	n := 0
	for _, e := range b.Team(t.Opponent()) {
		if !e.IsDead() && b.Reach(e).CanAttack(c) {
			n++
		}
	}
	return n
}

// SuggestOneAttackPerEnemy keeps, for each target, the attack whose origin
// is exposed to the fewest enemies. Ties go to a coin flip when rng is set
// and to the first candidate otherwise.
func SuggestOneAttackPerEnemy(dst []core.Action, b *quick.Board, u *quick.Unit, rng *rand.Rand) []core.Action {
	var best [quick.MaxUnits]core.Action
	var score [quick.MaxUnits]int
	var found [quick.MaxUnits]bool
	var buf [32]core.Action
	for _, a := range AppendAttacks(buf[:0], b, u) {
		id := a.TargetID()
		s := -threatCount(b, u.Team(), a.Dest())
		switch {
		case !found[id] || s > score[id]:
			best[id], score[id], found[id] = a, s, true
		case s == score[id] && rng != nil && rng.Intn(2) == 1:
			best[id] = a
		}
	}
	for id := range best {
		if found[id] {
			dst = append(dst, best[id])
		}
	}
	return dst
}

// SuggestTwoAttacksPerEnemy keeps, for each target, the least exposed attack
// and the attack from the best defensive terrain when they differ.
func SuggestTwoAttacksPerEnemy(dst []core.Action, b *quick.Board, u *quick.Unit) []core.Action {
	tb := b.Tables()
	var apart, cover [quick.MaxUnits]core.Action
	var apartScore, coverScore [quick.MaxUnits]int
	var found [quick.MaxUnits]bool
	var buf [32]core.Action
	for _, a := range AppendAttacks(buf[:0], b, u) {
		id := a.TargetID()
		stars := -1
		if !u.Spec().Air {
			stars = tb.DefenseStars(b.TerrainAt(a.Dest()))
		}
		s := -threatCount(b, u.Team(), a.Dest())
		if !found[id] {
			apart[id], apartScore[id] = a, s
			cover[id], coverScore[id] = a, stars
			found[id] = true
			continue
		}
		if s > apartScore[id] {
			apart[id], apartScore[id] = a, s
		}
		if stars > coverScore[id] {
			cover[id], coverScore[id] = a, stars
		}
	}
	for id := range apart {
		if !found[id] {
			continue
		}
		dst = append(dst, apart[id])
		if cover[id] != apart[id] {
			dst = append(dst, cover[id])
		}
	}
	return dst
}

// threatMask has bit i set when enemy i is a real threat to u and can reach c.
func threatMask(b *quick.Board, u *quick.Unit, c core.Coordinate) uint32 {
	tb := b.Tables()
	var mask uint32
	for _, e := range b.Team(u.Team().Opponent()) {
		if e.IsDead() || tb.AttackPower(e.Type(), u.Type()) <= Weak {
			continue
		}
		if b.Reach(e).CanAttack(c) {
			mask |= 1 << uint(e.ID())
		}
	}
	return mask
}

// MoveValue scores a destination: defensive terrain for ground units,
// closeness to the enemy centroid, and for indirect units a penalty per
// adjacent enemy.
func MoveValue(b *quick.Board, u *quick.Unit, c, centroid core.Coordinate) int {
	v := 0
	if !u.Spec().Air {
		v += 10 * b.Tables().DefenseStars(b.TerrainAt(c))
	}
	v += 9 - c.DistanceTo(centroid)
	if !u.Spec().Direct() {
		for _, n := range c.Neighbors() {
			if o, ok := b.Occupant(n); ok && o.Team() != u.Team() {
				v -= 50
			}
		}
	}
	return v
}

type moveBucket struct {
	mask  uint32
	act   core.Action
	value int
}

// SuggestMeaningfulMoves groups u's destinations by which enemies threaten
// them and keeps the best-valued move of each group. Staying in place seeds
// the first group; a better-valued cell with the same threats replaces it.
func SuggestMeaningfulMoves(dst []core.Action, b *quick.Board, u *quick.Unit, centroid core.Coordinate) []core.Action {
	var buckets []moveBucket
	add := func(c core.Coordinate) {
		mask := threatMask(b, u, c)
		v := MoveValue(b, u, c, centroid)
		for i := range buckets {
			if buckets[i].mask == mask {
				if v > buckets[i].value {
					buckets[i].act, buckets[i].value = core.MustMove(u, c), v
				}
				return
			}
		}
		buckets = append(buckets, moveBucket{mask: mask, act: core.MustMove(u, c), value: v})
	}

	add(u.Position())
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
		add(c)
	}
	for _, bk := range buckets {
		dst = append(dst, bk.act)
	}
	return dst
}

// SuggestApproachMove walks u greedily toward the enemy centroid through
// free cells it can stop on, trying the diagonal first and then each axis.
func SuggestApproachMove(b *quick.Board, u *quick.Unit) core.Action {
	target := EnemyCentroid(b, u.Team())
	m := b.Reach(u)
	open := func(c core.Coordinate) bool {
		if !m.CanStop(c) {
			return false
		}
		_, taken := b.Occupant(c)
		return !taken
	}

	cur := u.Position()
	for {
		dx, dy := sign(target.X-cur.X), sign(target.Y-cur.Y)
		if dx == 0 && dy == 0 {
			break
		}
		if diag := (core.Coordinate{X: cur.X + dx, Y: cur.Y + dy}); open(diag) {
			cur = diag
			continue
		}
		if h := (core.Coordinate{X: cur.X + dx, Y: cur.Y}); dx != 0 && open(h) {
			cur = h
			continue
		}
		if v := (core.Coordinate{X: cur.X, Y: cur.Y + dy}); dy != 0 && open(v) {
			cur = v
			continue
		}
		break
	}
	return core.MustMove(u, cur)
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
