package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/mitchelldurbincs/TacticalSearch/internal/game/core"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/movegen"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/quick"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/rules"
	"github.com/mitchelldurbincs/TacticalSearch/internal/testutil"
)

// smallBattle places perTeam random units per side on a w×h plain board.
func smallBattle(t *testing.T, rng *rand.Rand, w, h, perTeam int) *core.Board {
	t.Helper()
	canon := testutil.PlainBoard(t, w, h)
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

// minimax is the search without pruning.
func minimax(s *Searcher, d, moved, turn int, order Order) int {
	if v, ok := s.terminal(turn); ok {
		return v
	}
	waiting := s.waiting(d)
	if len(waiting) == 0 {
		return s.leaf()
	}
	b := s.b
	best := -inf
	for i, o := range s.cfg.Orders {
		if i > 0 && (moved > 0 || len(waiting) == 1) {
			break
		}
		if moved == 0 {
			order = o
		}
		u := order.pick(waiting, moved)
		for _, a := range s.generate(d, u, turn) {
			if err := b.Apply(a); err != nil {
				panic(err)
			}
			var v int
			if b.Unacted() == 0 {
				if err := b.Apply(core.TurnEndAction()); err != nil {
					panic(err)
				}
				v = -minimax(s, d+1, 0, turn+1, order)
				b.Undo()
			} else {
				v = minimax(s, d+1, moved+1, turn, order)
			}
			b.Undo()
			if v > best {
				best = v
			}
		}
	}
	return best
}

func TestSearch_MatchesMinimax(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		perTeam int
		seeds   int
	}{
		{"own turn only", Config{MaxDepth: 0, Orders: []Order{Forward, Reverse}}, 3, 6},
		{"with reply", Config{MaxDepth: 1, Orders: []Order{Forward, Reverse}}, 2, 4},
		{"pruned own turn", Config{MaxDepth: 0, Orders: []Order{CutForward, Reverse}, AttackPrune: true, MovePrune: true}, 3, 6},
		{"pruned with reply", Config{MaxDepth: 1, Orders: []Order{CutForward, Reverse}, AttackPrune: true, MovePrune: true}, 3, 6},
		{"pruned two replies", Config{MaxDepth: 2, Orders: []Order{Forward}, AttackPrune: true, MovePrune: true}, 3, 4},
		{"wide prune approaching", Config{MaxDepth: 1, Orders: []Order{Forward}, AttackPrune: true, TwoAttacks: true, MovePrune: true, Approach: true}, 3, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := testutil.NewTestRNG(42)
			for i := 0; i < tt.seeds; i++ {
				canon := smallBattle(t, rng, 7, 6, tt.perTeam)
				b, err := quick.New(canon, rules.DefaultTables(), quick.Options{TurnSlices: tt.cfg.MaxDepth + 2})
				require.NoError(t, err)

				s := NewSearcher(tt.cfg, testutil.NopLogger(), nil)
				res, err := s.Search(context.Background(), b)
				require.NoError(t, err)
				assert.True(t, res.Complete)
				assert.Equal(t, 0, b.Moves(), "board restored")

				s.begin(context.Background(), b)
				want := minimax(s, 0, 0, 0, tt.cfg.Orders[0])
				assert.Equal(t, want, res.Value, "battle %d", i)
				assert.NotEmpty(t, res.Plan, "battle %d", i)
			}
		})
	}
}

func TestSearcher_Generate(t *testing.T) {
	// Red infantry far from the blue panzer has nothing to attack, while the
	// red tank next to the blue infantry does.
	canon := testutil.PlainBoard(t, 10, 10)
	testutil.Place(t, canon,
		testutil.UnitSpec{ID: 0, Team: core.Red, Type: core.Infantry, X: 0, Y: 0, HP: 10},
		testutil.UnitSpec{ID: 1, Team: core.Red, Type: core.Panzer, X: 6, Y: 7, HP: 10},
		testutil.UnitSpec{ID: 2, Team: core.Blue, Type: core.Infantry, X: 7, Y: 7, HP: 10},
		testutil.UnitSpec{ID: 3, Team: core.Blue, Type: core.Panzer, X: 9, Y: 9, HP: 10},
	)
	b := episode(t, canon)
	far, _ := b.Unit(0)
	tank, _ := b.Unit(1)
	require.NotEmpty(t, movegen.AppendAttacks(nil, b, tank))

	tests := []struct {
		name string
		cfg  Config
		u    *quick.Unit
		turn int
		want []core.Action
	}{
		{
			name: "later turn stays without an attack",
			cfg:  Config{},
			u:    far,
			turn: 1,
			want: []core.Action{core.MustMove(far, far.Position())},
		},
		{
			name: "later turn approaches without an attack",
			cfg:  Config{Approach: true},
			u:    far,
			turn: 1,
			want: []core.Action{movegen.SuggestApproachMove(b, far)},
		},
		{
			name: "later turn attacks",
			cfg:  Config{Approach: true},
			u:    tank,
			turn: 1,
			want: movegen.SuggestOneAttackPerEnemy(nil, b, tank, nil),
		},
		{
			name: "first turn keeps two attacks per enemy",
			cfg:  Config{AttackPrune: true, TwoAttacks: true},
			u:    tank,
			want: movegen.AppendMoves(movegen.SuggestTwoAttacksPerEnemy(nil, b, tank), b, tank),
		},
		{
			name: "first turn keeps one attack per enemy",
			cfg:  Config{AttackPrune: true},
			u:    tank,
			want: movegen.AppendMoves(movegen.SuggestOneAttackPerEnemy(nil, b, tank, nil), b, tank),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSearcher(tt.cfg, testutil.NopLogger(), nil)
			s.begin(context.Background(), b)
			assert.Equal(t, tt.want, s.generate(0, tt.u, tt.turn))
		})
	}

	assert.NotEqual(t, far.Position(), movegen.SuggestApproachMove(b, far).Dest(), "infantry has room to advance")
}

func TestSearch_PlanReplaysToValue(t *testing.T) {
	rng := testutil.NewTestRNG(7)
	for i := 0; i < 4; i++ {
		canon := smallBattle(t, rng, 7, 6, 2)
		b, err := quick.New(canon, rules.DefaultTables(), quick.Options{})
		require.NoError(t, err)

		s := NewSearcher(Config{MaxDepth: 0, Orders: []Order{Forward, Reverse}}, testutil.NopLogger(), nil)
		res, err := s.Search(context.Background(), b)
		require.NoError(t, err)
		require.NotEmpty(t, res.Plan)

		// With no reply searched, playing the plan and ending the turn
		// reaches a leaf worth exactly the returned value.
		me := b.Phase()
		for _, a := range res.Plan {
			require.NoError(t, b.Apply(a))
			if b.Alive(me.Opponent()) == 0 {
				break
			}
		}
		if b.Alive(me.Opponent()) == 0 {
			assert.Equal(t, WinScore, res.Value)
			continue
		}
		require.Equal(t, 0, b.Unacted(), "plan covers every unit")
		require.NoError(t, b.Apply(core.TurnEndAction()))
		if b.Alive(me) == 0 {
			assert.Equal(t, -WinScore, res.Value)
			continue
		}
		assert.Equal(t, res.Value, -NewEvaluator(b).Evaluate(b), "battle %d", i)
	}
}

func TestSearch_EliminationIsTerminal(t *testing.T) {
	canon := testutil.TankVsInfantry(t)
	prey, _ := canon.Unit(1)
	prey.SetHP(1)
	b := episode(t, canon)
	tank, _ := b.Unit(0)
	target, _ := b.Unit(1)

	s := NewSearcher(DefaultConfig(), testutil.NopLogger(), nil)
	res, err := s.Search(context.Background(), b)
	require.NoError(t, err)
	assert.Equal(t, WinScore, res.Value)
	require.Len(t, res.Plan, 1)
	assert.Equal(t, core.ActMoveAttack, res.Plan[0].Kind())
	assert.Equal(t, target.ID(), res.Plan[0].TargetID())

	require.NoError(t, b.Apply(core.MustAttack(tank, tank.Position(), target)))
	require.Equal(t, 0, b.Alive(core.Blue))

	s.begin(context.Background(), b)
	assert.Equal(t, WinScore, s.dfs(0, 1, 0, -inf, inf, Forward))
	assert.Zero(t, s.nodes, "no leaf evaluated")

	require.NoError(t, b.Apply(core.TurnEndAction()))
	s.begin(context.Background(), b)
	assert.Equal(t, -WinScore, s.dfs(0, 0, 1, -inf, inf, Forward), "loser's view after the turn ends")
	assert.Zero(t, s.nodes)
}

func TestSearch_TurnLimitUsesDrawRule(t *testing.T) {
	tests := []struct {
		name      string
		threshold int
		want      int
	}{
		{"attack decides the game", 5, WinScore},
		{"margin too small is a draw", 8, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			canon := testutil.TankVsInfantry(t)
			canon.SetLimits(1, tt.threshold)
			b := episode(t, canon)

			s := NewSearcher(DefaultConfig(), testutil.NopLogger(), nil)
			res, err := s.Search(context.Background(), b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Value)
		})
	}
}

func TestSearch_NodeLimitKeepsBestSoFar(t *testing.T) {
	b := episode(t, testutil.TankVsInfantry(t))
	cfg := DefaultConfig()
	cfg.NodeLimit = 5

	res, err := NewSearcher(cfg, testutil.NopLogger(), nil).Search(context.Background(), b)
	require.NoError(t, err)
	assert.False(t, res.Complete)
	assert.NotEmpty(t, res.Plan)
	assert.Equal(t, 0, b.Moves())
}

func TestSearch_CancelledContext(t *testing.T) {
	b := episode(t, testutil.TankVsInfantry(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewSearcher(DefaultConfig(), testutil.NopLogger(), nil).Search(ctx, b)
	require.NoError(t, err)
	assert.False(t, res.Complete)
	assert.Empty(t, res.Plan)
	assert.Equal(t, int64(1), res.Nodes)
}

func TestParallelSearch_MatchesSequential(t *testing.T) {
	rng := testutil.NewTestRNG(99)
	tb := rules.DefaultTables()
	cfg := Config{MaxDepth: 1, Orders: []Order{Forward, Reverse}, AttackPrune: true, MovePrune: true}

	for i := 0; i < 4; i++ {
		canon := smallBattle(t, rng, 8, 7, 2)
		build := func() *quick.Board {
			b, err := quick.New(canon.Clone(), tb, quick.Options{RNG: testutil.NewTestRNG(5)})
			require.NoError(t, err)
			return b
		}

		seq, err := NewSearcher(cfg, testutil.NopLogger(), nil).Search(context.Background(), build())
		require.NoError(t, err)

		boards := []*quick.Board{build(), build(), build()}
		par, err := NewParallelSearcher(cfg, testutil.NopLogger(), 1).Search(context.Background(), boards)
		require.NoError(t, err)

		assert.Equal(t, seq.Value, par.Value, "battle %d", i)
		assert.Equal(t, seq.Plan, par.Plan, "battle %d", i)
		assert.True(t, par.Complete)
		for _, b := range boards {
			assert.Equal(t, 0, b.Moves())
		}
	}
}

func TestParallelSearch_RandomTiesMatchSequential(t *testing.T) {
	rng := testutil.NewTestRNG(13)
	tb := rules.DefaultTables()
	cfg := Config{MaxDepth: 0, Orders: []Order{Forward}, AttackPrune: true, RandomTies: true}

	for i := 0; i < 8; i++ {
		canon := smallBattle(t, rng, 8, 7, 1)
		build := func() *quick.Board {
			b, err := quick.New(canon.Clone(), tb, quick.Options{RNG: testutil.NewTestRNG(5)})
			require.NoError(t, err)
			return b
		}
		seed := uint64(100 + i)

		seq, err := NewSearcher(cfg, testutil.NopLogger(), rand.New(rand.NewSource(seed))).Search(context.Background(), build())
		require.NoError(t, err)

		boards := []*quick.Board{build(), build(), build()}
		par, err := NewParallelSearcher(cfg, testutil.NopLogger(), seed).Search(context.Background(), boards)
		require.NoError(t, err)

		assert.Equal(t, seq.Value, par.Value, "battle %d", i)
		assert.Equal(t, seq.Plan, par.Plan, "battle %d", i)
	}
}

func TestSearcher_RootCandidatesIgnoreWorkerRNG(t *testing.T) {
	cfg := Config{MaxDepth: 1, Orders: []Order{Forward}, AttackPrune: true, RandomTies: true}
	rng := testutil.NewTestRNG(21)

	for i := 0; i < 10; i++ {
		canon := smallBattle(t, rng, 8, 7, 2)
		b := episode(t, canon)
		u := b.Team(b.Phase())[0]

		var lists [][]core.Action
		for w := uint64(0); w < 3; w++ {
			s := NewSearcher(cfg, testutil.NopLogger(), rand.New(rand.NewSource(w)))
			s.rootSeed = 77
			s.rootRNG = rand.New(rand.NewSource(s.rootSeed))
			s.begin(context.Background(), b)
			// Deeper draws from the worker RNG must not leak into the root.
			s.generate(1, u, 1)
			s.begin(context.Background(), b)
			lists = append(lists, append([]core.Action(nil), s.generate(0, u, 0)...))
		}
		assert.Equal(t, lists[0], lists[1], "battle %d", i)
		assert.Equal(t, lists[0], lists[2], "battle %d", i)
	}
}

func TestParallelSearch_NeedsBoards(t *testing.T) {
	_, err := NewParallelSearcher(DefaultConfig(), testutil.NopLogger(), 1).Search(context.Background(), nil)
	assert.Error(t, err)
}
