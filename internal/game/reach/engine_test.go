package reach

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/mitchelldurbincs/TacticalSearch/internal/game/core"
)

// gridEnv is a plain cost grid with a set of enemy cells.
type gridEnv struct {
	w, h  int
	cost  []int
	enemy []bool
}

func newGridEnv(w, h int) *gridEnv {
	g := &gridEnv{w: w, h: h, cost: make([]int, w*h), enemy: make([]bool, w*h)}
	for i := range g.cost {
		g.cost[i] = 1
	}
	return g
}

func (g *gridEnv) Cost(idx int) int   { return g.cost[idx] }
func (g *gridEnv) Enemy(idx int) bool { return g.enemy[idx] }

func (g *gridEnv) at(x, y int) int { return y*g.w + x }

func randomEnv(rng *rand.Rand, w, h int) *gridEnv {
	g := newGridEnv(w, h)
	costs := []int{1, 1, 1, 2, 2, 3, 99}
	for i := range g.cost {
		g.cost[i] = costs[rng.Intn(len(costs))]
	}
	return g
}

func freeCell(rng *rand.Rand, g *gridEnv, origin core.Coordinate) core.Coordinate {
	for {
		c := core.Coordinate{X: 1 + rng.Intn(g.w-2), Y: 1 + rng.Intn(g.h-2)}
		if c != origin && !g.enemy[c.ToIndex(g.w)] {
			return c
		}
	}
}

func TestBuildFresh_Corridor(t *testing.T) {
	// One-row corridor of plains: a 6-step tank at x=1 has budget 7.
	g := newGridEnv(11, 3)
	e := NewEngine(11, 3, 10)
	m := NewMap(11, 3)

	e.BuildFresh(m, g, core.Coordinate{X: 1, Y: 1}, 7)

	row := make([]int8, 11)
	copy(row, m.Step[11:22])
	assert.Equal(t, []int8{-1, 7, 6, 5, 4, 3, 2, 1, 0, -1, -1}, row)
	assert.NoError(t, m.VerifyArrival(g))
}

func TestBuildFresh_ForestCorridor(t *testing.T) {
	g := newGridEnv(11, 3)
	for x := 0; x < 11; x++ {
		g.cost[g.at(x, 1)] = 2
	}
	e := NewEngine(11, 3, 10)
	m := NewMap(11, 3)

	e.BuildFresh(m, g, core.Coordinate{X: 1, Y: 1}, 7)

	row := make([]int8, 11)
	copy(row, m.Step[11:22])
	assert.Equal(t, []int8{-1, 7, 5, 3, 1, 0, -1, -1, -1, -1, -1}, row)
}

func TestBuildFresh_EnemyBlocks(t *testing.T) {
	g := newGridEnv(9, 3)
	g.enemy[g.at(3, 1)] = true
	e := NewEngine(9, 3, 10)
	m := NewMap(9, 3)

	e.BuildFresh(m, g, core.Coordinate{X: 1, Y: 1}, 7)

	assert.Equal(t, 6, m.StepAt(core.Coordinate{X: 2, Y: 1}))
	assert.Equal(t, 0, m.StepAt(core.Coordinate{X: 3, Y: 1}))
	assert.Equal(t, -1, m.StepAt(core.Coordinate{X: 4, Y: 1}))
	assert.False(t, m.CanStop(core.Coordinate{X: 3, Y: 1}))
	assert.True(t, m.CanAttack(core.Coordinate{X: 3, Y: 1}))
}

func TestBuildFresh_MatchesReference(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		w, h := 5+rng.Intn(8), 5+rng.Intn(8)
		g := randomEnv(rng, w, h)
		origin := core.Coordinate{X: 1 + rng.Intn(w-2), Y: 1 + rng.Intn(h-2)}
		g.cost[origin.ToIndex(w)] = 1
		for k := rng.Intn(6); k > 0; k-- {
			g.enemy[freeCell(rng, g, origin).ToIndex(w)] = true
		}
		budget := 2 + rng.Intn(9)

		e := NewEngine(w, h, 10)
		m := NewMap(w, h)
		e.BuildFresh(m, g, origin, budget)

		require.Equal(t, Reference(w, h, g, origin, budget), m.Step, "case %d", i)
		require.NoError(t, m.VerifyArrival(g), "case %d", i)
	}
}

type journal struct {
	idx  []int
	step []int8
	dir  []core.Direction
}

func (j *journal) Record(idx int, oldStep int8, oldDir core.Direction) {
	j.idx = append(j.idx, idx)
	j.step = append(j.step, oldStep)
	j.dir = append(j.dir, oldDir)
}

func (j *journal) rewind(m *Map) {
	for k := len(j.idx) - 1; k >= 0; k-- {
		m.Step[j.idx[k]] = j.step[k]
		m.Dir[j.idx[k]] = j.dir[k]
	}
}

func TestPatches_MatchFreshBuild(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 300; i++ {
		w, h := 6+rng.Intn(7), 6+rng.Intn(7)
		g := randomEnv(rng, w, h)
		origin := core.Coordinate{X: 1 + rng.Intn(w-2), Y: 1 + rng.Intn(h-2)}
		g.cost[origin.ToIndex(w)] = 1
		for k := rng.Intn(5); k > 0; k-- {
			g.enemy[freeCell(rng, g, origin).ToIndex(w)] = true
		}
		budget := 3 + rng.Intn(8)
		e := NewEngine(w, h, 10)
		m := NewMap(w, h)
		e.BuildFresh(m, g, origin, budget)

		before := NewMap(w, h)
		before.CopyFrom(m)
		j := &journal{}

		switch rng.Intn(3) {
		case 0: // an enemy arrives
			c := freeCell(rng, g, origin)
			g.enemy[c.ToIndex(w)] = true
			e.PatchOnEnemyEnter(m, g, c, j)
		case 1: // an enemy leaves, if there is one
			var cells []core.Coordinate
			for k, en := range g.enemy {
				if en {
					cells = append(cells, core.FromIndex(k, w))
				}
			}
			if len(cells) == 0 {
				continue
			}
			c := cells[rng.Intn(len(cells))]
			g.enemy[c.ToIndex(w)] = false
			e.PatchOnEnemyLeave(m, g, c, j)
		case 2: // an enemy moves: enter the destination, then leave the origin
			var cells []core.Coordinate
			for k, en := range g.enemy {
				if en {
					cells = append(cells, core.FromIndex(k, w))
				}
			}
			if len(cells) == 0 {
				continue
			}
			from := cells[rng.Intn(len(cells))]
			to := freeCell(rng, g, origin)
			g.enemy[from.ToIndex(w)] = false
			g.enemy[to.ToIndex(w)] = true
			e.PatchOnEnemyEnter(m, g, to, j)
			e.PatchOnEnemyLeave(m, g, from, j)
		}

		require.Equal(t, Reference(w, h, g, origin, budget), m.Step, "case %d", i)
		require.NoError(t, m.VerifyArrival(g), "case %d", i)

		j.rewind(m)
		require.True(t, m.Equal(before), "case %d: journal rewind", i)
	}
}

func TestPatch_UnpreparedPanics(t *testing.T) {
	g := newGridEnv(5, 5)
	e := NewEngine(5, 5, 10)
	m := NewMap(5, 5)
	assert.Panics(t, func() { e.PatchOnEnemyEnter(m, g, core.Coordinate{X: 2, Y: 2}, nil) })
	assert.Panics(t, func() { e.PatchOnEnemyLeave(m, g, core.Coordinate{X: 2, Y: 2}, nil) })
}

func TestMap_CopyFromDoesNotAlias(t *testing.T) {
	g := newGridEnv(6, 6)
	e := NewEngine(6, 6, 10)
	a := NewMap(6, 6)
	e.BuildFresh(a, g, core.Coordinate{X: 2, Y: 2}, 4)

	b := NewMap(6, 6)
	b.CopyFrom(a)
	require.True(t, a.Equal(b))

	b.Step[0] = 5
	assert.Equal(t, Unreachable, a.Step[0])
	b.Reset()
	assert.False(t, b.Prepared())
	assert.True(t, a.Prepared())
}
