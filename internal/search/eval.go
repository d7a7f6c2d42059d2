package search

import (
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/core"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/quick"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/reach"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/rules"
)

// UnitWeight is how much one HP of a non-infantry unit is worth relative to
// one HP of infantry.
const UnitWeight = 4

// benefitFloor is the exchange value an attack must beat to be simulated.
const benefitFloor = -8

func weight(t core.UnitType) int {
	if t == core.Infantry {
		return 1
	}
	return UnitWeight
}

// hpScore is t's weighted HP minus its opponent's.
func hpScore(b *quick.Board, t core.Team) int {
	score := 0
	for _, u := range b.Units() {
		if u.IsDead() {
			continue
		}
		v := weight(u.Type()) * u.HP()
		if u.Team() == t {
			score += v
		} else {
			score -= v
		}
	}
	return score
}

// terrainEnv sees terrain only; it backs the static range table.
type terrainEnv struct {
	b    *quick.Board
	cost *[core.NumTerrains]int
}

func (e terrainEnv) Cost(idx int) int {
	return e.cost[e.b.TerrainAt(core.FromIndex(idx, e.b.Width()))]
}

func (e terrainEnv) Enemy(int) bool { return false }

// Evaluator scores a board for the side to move by letting each of its
// units make its most profitable attack from where it stands, then
// comparing weighted HP. It keeps scratch state and belongs to one board.
type Evaluator struct {
	tables *rules.Tables
	eng    *reach.Engine
	ranges [core.NumUnitTypes][]*reach.Map
	hp     [quick.MaxUnits]int
}

// NewEvaluator creates an evaluator for boards shaped like b.
func NewEvaluator(b *quick.Board) *Evaluator {
	tb := b.Tables()
	return &Evaluator{
		tables: tb,
		eng:    reach.NewEngine(b.Width(), b.Height(), tb.MaxBudget()),
	}
}

// rangeMap returns the occupancy-free reach of type t from c, built on
// first use.
func (e *Evaluator) rangeMap(b *quick.Board, t core.UnitType, c core.Coordinate) *reach.Map {
	if e.ranges[t] == nil {
		e.ranges[t] = make([]*reach.Map, b.Width()*b.Height())
	}
	i := c.ToIndex(b.Width())
	m := e.ranges[t][i]
	if m == nil {
		spec := e.tables.Spec(t)
		m = reach.NewMap(b.Width(), b.Height())
		e.eng.BuildFresh(m, terrainEnv{b: b, cost: &spec.MoveCost}, c, spec.Step+1)
		e.ranges[t][i] = m
	}
	return m
}

// InRange estimates whether atk could attack def next turn. Indirect units
// use their firing range, air units and infantry their move allowance as a
// distance, and other ground units a terrain-only flood.
func (e *Evaluator) InRange(b *quick.Board, atk, def *quick.Unit) bool {
	spec := atk.Spec()
	switch {
	case !spec.Direct():
		return e.tables.InAttackRange(atk.Type(), atk.Position(), def.Position())
	case spec.Air || atk.IsInfantry():
		return atk.Position().DistanceTo(def.Position()) <= spec.Step+1
	default:
		return e.rangeMap(b, atk.Type(), atk.Position()).CanAttack(def.Position())
	}
}

// Evaluate returns the attack-simulation score of b for the side to move.
// The board is not modified.
func (e *Evaluator) Evaluate(b *quick.Board) int {
	me := b.Phase()
	for _, u := range b.Units() {
		e.hp[u.ID()] = u.HP()
	}

	tb := e.tables
	delta := 0
	for _, mu := range b.Team(me) {
		if mu.IsDead() {
			continue
		}
		w := weight(mu.Type())
		myStars := tb.DefenseStars(b.TerrainAt(mu.Position()))
		var target *quick.Unit
		best, give, back := benefitFloor, 0, 0
		for _, en := range b.Team(me.Opponent()) {
			if en.IsDead() || e.hp[en.ID()] <= 0 {
				continue
			}
			if tb.AttackPower(mu.Type(), en.Type()) == 0 || !e.InRange(b, mu, en) {
				continue
			}
			dealt, taken := tb.Damages(mu.Type(), e.hp[mu.ID()], en.Type(), e.hp[en.ID()],
				myStars, tb.DefenseStars(b.TerrainAt(en.Position())))
			if v := w*dealt - w*taken; v > best {
				best, give, back, target = v, dealt, taken, en
			}
		}
		if target != nil {
			e.hp[target.ID()] -= give
			e.hp[mu.ID()] -= back
			delta += weight(target.Type())*give - w*back
		}
	}
	return hpScore(b, me) + delta
}
