package quick

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/mitchelldurbincs/TacticalSearch/internal/game/core"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/reach"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/rules"
	"github.com/mitchelldurbincs/TacticalSearch/internal/testutil"
)

// snapshot copies every piece of board state Undo must restore.
type snapshot struct {
	units   []unitEntry
	grid    []int8
	alive   [core.NumTeams]int
	turn    int
	phase   core.Team
	unacted int
	moves   int
	journal int
	maps    [][]*reach.Map
}

func takeSnapshot(b *Board) snapshot {
	s := snapshot{
		grid:    append([]int8(nil), b.grid...),
		alive:   b.alive,
		turn:    b.turn,
		phase:   b.phase,
		unacted: b.unacted,
		moves:   b.moves,
		journal: len(b.journal.entries),
	}
	for _, u := range b.units {
		s.units = append(s.units, unitEntry{pos: u.pos, hp: u.hp, finished: u.finished, dead: u.dead})
		var maps []*reach.Map
		for _, m := range u.slice {
			c := reach.NewMap(b.w, b.h)
			c.CopyFrom(m)
			maps = append(maps, c)
		}
		s.maps = append(s.maps, maps)
	}
	return s
}

func assertSameState(t *testing.T, want snapshot, b *Board) {
	t.Helper()
	got := takeSnapshot(b)
	assert.Equal(t, want.units, got.units, "units")
	assert.Equal(t, want.grid, got.grid, "grid")
	assert.Equal(t, want.alive, got.alive, "alive")
	assert.Equal(t, want.turn, got.turn, "turn")
	assert.Equal(t, want.phase, got.phase, "phase")
	assert.Equal(t, want.unacted, got.unacted, "unacted")
	assert.Equal(t, want.moves, got.moves, "moves")
	assert.Equal(t, want.journal, got.journal, "journal")
	for i := range want.maps {
		for s := range want.maps[i] {
			assert.True(t, want.maps[i][s].Equal(got.maps[i][s]), "unit %d slice %d", i, s)
		}
	}
}

// legalActions enumerates every move and attack of the side to move.
func legalActions(b *Board) []core.Action {
	var out []core.Action
	for _, u := range b.teams[b.phase] {
		if u.dead || u.finished {
			continue
		}
		m := b.Reach(u)
		for i := range m.Step {
			c := core.FromIndex(i, b.w)
			if c != u.pos && (!m.CanStop(c) || b.grid[i] >= 0) {
				continue
			}
			out = append(out, core.MustMove(u, c))
			if c != u.pos && !u.spec.Direct() {
				continue
			}
			for _, e := range b.teams[u.team.Opponent()] {
				if e.dead || b.tables.AttackPower(u.utype, e.utype) == 0 || !b.tables.InAttackRange(u.utype, c, e.pos) {
					continue
				}
				out = append(out, core.MustAttack(u, c, e))
			}
		}
	}
	return out
}

// assertMapsFresh checks every map the board keeps current against a fresh
// build on the same board.
func assertMapsFresh(t *testing.T, b *Board) {
	t.Helper()
	eng := reach.NewEngine(b.w, b.h, b.tables.MaxBudget())
	for _, u := range b.units {
		if u.dead || (u.team == b.phase && u.finished) {
			continue
		}
		fresh := reach.NewMap(b.w, b.h)
		eng.BuildFresh(fresh, u.env, u.pos, u.spec.Step+1)
		live := b.Reach(u)
		if !assert.Equal(t, fresh.Step, live.Step, "unit %s after %d moves", u, b.moves) {
			t.Logf("board:\n%s\nfresh:\n%s\nlive:\n%s", b, fresh, live)
		}
		assert.NoError(t, live.VerifyArrival(u.env))
	}
}

var scenarioTerrain = []core.Terrain{
	core.Plain, core.Plain, core.Plain, core.Forest, core.Mountain, core.Road, core.Sea, core.Castle,
}

func randomCanon(t *testing.T, rng *rand.Rand, w, h, perTeam int) *core.Board {
	t.Helper()
	canon := testutil.PlainBoard(t, w, h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			c := core.Coordinate{X: x, Y: y}
			require.NoError(t, canon.SetTerrain(c, scenarioTerrain[rng.Intn(len(scenarioTerrain))]))
		}
	}
	id := 0
	for _, team := range []core.Team{core.Red, core.Blue} {
		for n := 0; n < perTeam; {
			c := core.Coordinate{X: 1 + rng.Intn(w-2), Y: 1 + rng.Intn(h-2)}
			if _, taken := canon.Occupant(c); taken {
				continue
			}
			u := core.NewUnit(id, team, core.UnitType(rng.Intn(core.NumUnitTypes)), c, 1+rng.Intn(10))
			require.NoError(t, canon.AddUnit(u))
			id++
			n++
		}
	}
	return canon
}

func TestApply_TankAttacksInfantry(t *testing.T) {
	b, err := New(testutil.TankVsInfantry(t), rules.DefaultTables(), Options{})
	require.NoError(t, err)
	tank, inf := b.units[0], b.units[1]

	before := takeSnapshot(b)
	a := core.MustAttack(tank, tank.Position(), inf)
	require.NoError(t, b.Apply(a))

	assert.Equal(t, 3, inf.HP())
	assert.Equal(t, 10, tank.HP())
	assert.True(t, tank.ActionFinished())
	assert.Equal(t, 0, b.Unacted())
	assert.Equal(t, 1, b.Moves())

	b.Undo()
	assertSameState(t, before, b)
	assert.False(t, tank.ActionFinished())
}

func TestApply_KillAndUndo(t *testing.T) {
	canon := testutil.PlainBoard(t, 8, 8)
	testutil.Place(t, canon,
		testutil.UnitSpec{ID: 0, Team: core.Red, Type: core.Panzer, X: 1, Y: 3},
		testutil.UnitSpec{ID: 1, Team: core.Blue, Type: core.Infantry, X: 4, Y: 3, HP: 2},
		testutil.UnitSpec{ID: 2, Team: core.Blue, Type: core.Panzer, X: 5, Y: 5},
	)
	b, err := New(canon, rules.DefaultTables(), Options{})
	require.NoError(t, err)
	tank, inf, enemyTank := b.units[0], b.units[1], b.units[2]
	before := takeSnapshot(b)

	require.NoError(t, b.Apply(core.MustAttack(tank, core.Coordinate{X: 3, Y: 3}, inf)))
	assert.True(t, inf.IsDead())
	assert.Equal(t, 1, b.Alive(core.Blue))
	_, occupied := b.Occupant(core.Coordinate{X: 4, Y: 3})
	assert.False(t, occupied)
	assert.Equal(t, int(reach.AttackOnly), b.Reach(enemyTank).StepAt(core.Coordinate{X: 3, Y: 3}))
	assertMapsFresh(t, b)

	b.Undo()
	assertSameState(t, before, b)
	got, ok := b.Occupant(core.Coordinate{X: 4, Y: 3})
	require.True(t, ok)
	assert.Same(t, inf, got)
}

func TestApply_CounterAttackKillsAttacker(t *testing.T) {
	canon := testutil.PlainBoard(t, 7, 7)
	testutil.Place(t, canon,
		testutil.UnitSpec{ID: 0, Team: core.Red, Type: core.Infantry, X: 2, Y: 3, HP: 1},
		testutil.UnitSpec{ID: 1, Team: core.Blue, Type: core.Infantry, X: 3, Y: 3},
	)
	b, err := New(canon, rules.DefaultTables(), Options{})
	require.NoError(t, err)
	atk, def := b.units[0], b.units[1]
	before := takeSnapshot(b)

	require.NoError(t, b.Apply(core.MustAttack(atk, core.Coordinate{X: 3, Y: 2}, def)))
	assert.True(t, atk.IsDead())
	assert.Equal(t, 0, b.Alive(core.Red))
	assert.Equal(t, 9, def.HP())
	_, occupied := b.Occupant(core.Coordinate{X: 3, Y: 2})
	assert.False(t, occupied)
	assertMapsFresh(t, b)

	b.Undo()
	assertSameState(t, before, b)
}

func TestApply_RejectsIllegalActions(t *testing.T) {
	b, err := New(testutil.TankVsInfantry(t), rules.DefaultTables(), Options{})
	require.NoError(t, err)
	tank, inf := b.units[0], b.units[1]

	tests := []struct {
		name   string
		action core.Action
	}{
		{"enemy unit on red's phase", core.MustMove(inf, core.Coordinate{X: 4, Y: 3})},
		{"occupied destination", core.MustMove(tank, inf.Position())},
		{"out of reach", core.MustMove(tank, core.Coordinate{X: 0, Y: 0})},
		{"attack from too far", core.MustAttack(tank, core.Coordinate{X: 1, Y: 3}, inf)},
		{"attack own side", core.MustAttack(tank, tank.Position(), tank)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := takeSnapshot(b)
			assert.ErrorIs(t, b.Apply(tt.action), core.ErrInvalidAction)
			assertSameState(t, before, b)
		})
	}

	require.NoError(t, b.Apply(core.MustMove(tank, tank.Position())))
	assert.ErrorIs(t, b.Apply(core.MustMove(tank, tank.Position())), core.ErrInvalidAction)
}

func TestApply_TurnEnd(t *testing.T) {
	b, err := New(testutil.TankVsInfantry(t), rules.DefaultTables(), Options{})
	require.NoError(t, err)
	tank, inf := b.units[0], b.units[1]

	require.NoError(t, b.Apply(core.MustMove(tank, core.Coordinate{X: 2, Y: 5})))
	before := takeSnapshot(b)
	require.NoError(t, b.Apply(core.TurnEndAction()))

	assert.Equal(t, 1, b.TurnCount())
	assert.Equal(t, core.Blue, b.Phase())
	assert.Equal(t, 1, b.Unacted())
	assert.False(t, tank.ActionFinished())
	assert.Equal(t, core.Coordinate{X: 2, Y: 5}, b.Reach(tank).Origin)
	assert.True(t, b.Reach(inf).Prepared())
	assertMapsFresh(t, b)

	b.Undo()
	assertSameState(t, before, b)
	assert.True(t, tank.ActionFinished())
	assert.False(t, tank.slice[1].Prepared())
}

func TestApply_CapacityPanics(t *testing.T) {
	t.Run("history overflow", func(t *testing.T) {
		b, err := New(testutil.TankVsInfantry(t), rules.DefaultTables(), Options{HistoryCapacity: 1})
		require.NoError(t, err)
		tank := b.units[0]
		require.NoError(t, b.Apply(core.MustMove(tank, tank.Position())))
		testutil.AssertPanicIs(t, func() { _ = b.Apply(core.TurnEndAction()) }, core.ErrHistoryOverflow)
	})

	t.Run("turn slices exhausted", func(t *testing.T) {
		b, err := New(testutil.TankVsInfantry(t), rules.DefaultTables(), Options{TurnSlices: 2})
		require.NoError(t, err)
		require.NoError(t, b.Apply(core.TurnEndAction()))
		testutil.AssertPanicIs(t, func() { _ = b.Apply(core.TurnEndAction()) }, core.ErrHistoryOverflow)
	})

	t.Run("undo underflow", func(t *testing.T) {
		b, err := New(testutil.TankVsInfantry(t), rules.DefaultTables(), Options{})
		require.NoError(t, err)
		testutil.AssertPanicIs(t, b.Undo, core.ErrHistoryUnderflow)
	})
}

func TestApply_RandomSequencesUndoExactly(t *testing.T) {
	rng := testutil.NewTestRNG(42)
	tb := rules.DefaultTables()

	for game := 0; game < 40; game++ {
		canon := randomCanon(t, rng, 9+rng.Intn(4), 8+rng.Intn(4), 2+rng.Intn(3))
		b, err := New(canon, tb, Options{TurnSlices: 6, RNG: rng})
		require.NoError(t, err)

		var history []snapshot
		for step := 0; step < 30; step++ {
			if b.Alive(core.Red) == 0 || b.Alive(core.Blue) == 0 {
				break
			}
			history = append(history, takeSnapshot(b))
			actions := legalActions(b)
			if len(actions) == 0 || rng.Intn(6) == 0 {
				if b.TurnCount()+1 >= b.TurnSlices() {
					history = history[:len(history)-1]
					break
				}
				require.NoError(t, b.Apply(core.TurnEndAction()))
			} else {
				a := actions[rng.Intn(len(actions))]
				require.NoError(t, b.Apply(a), "action %s", a)
			}
			assertMapsFresh(t, b)
			if t.Failed() {
				t.FailNow()
			}
		}

		for i := len(history) - 1; i >= 0; i-- {
			b.Undo()
			assertSameState(t, history[i], b)
		}
		assert.Equal(t, 0, b.Moves())
		if t.Failed() {
			t.FailNow()
		}
	}
}
