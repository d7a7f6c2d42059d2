package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/TacticalSearch/internal/config"
	"github.com/mitchelldurbincs/TacticalSearch/internal/experience"
	"github.com/mitchelldurbincs/TacticalSearch/internal/search"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Search: config.SearchConfig{
			MaxDepth:         0,
			MaxActiveFriends: 5,
			MaxActiveEnemies: 20,
			UnitOrders:       []string{"forward"},
			Workers:          1,
			Seed:             3,
		},
		Board: config.BoardConfig{TurnSlices: 4},
		Game: config.GameConfig{
			Width:           8,
			Height:          6,
			UnitsPerTeam:    2,
			TurnLimit:       4,
			DrawHPThreshold: 10,
			Seed:            11,
			Games:           2,
		},
		Storage: config.StorageConfig{Enabled: true, InMemory: true},
		Experience: config.ExperienceConfig{
			Enabled:    true,
			Dir:        t.TempDir(),
			BufferSize: 4,
		},
		Logging: config.LoggingConfig{Level: "info", Format: "console"},
	}
	require.NoError(t, config.Validate(cfg))
	return cfg
}

func TestAgentConfigFrom(t *testing.T) {
	sc := config.SearchConfig{
		MaxDepth:    2,
		NodeLimit:   500,
		TimeLimitMS: 250,
		UnitOrders:  []string{"forward", "reverse"},
		AttackPrune: true,
		TwoAttacks:  true,
		Approach:    true,
		Workers:     3,
		Seed:        9,
		ShuffleIDs:  true,
	}
	ac, err := AgentConfigFrom(sc, config.BoardConfig{TurnSlices: 6, HistoryCapacity: 32})
	require.NoError(t, err)

	assert.Equal(t, 2, ac.Search.MaxDepth)
	assert.Equal(t, int64(500), ac.Search.NodeLimit)
	assert.Equal(t, 250*time.Millisecond, ac.Search.TimeLimit)
	assert.Equal(t, []search.Order{search.Forward, search.Reverse}, ac.Search.Orders)
	assert.True(t, ac.Search.AttackPrune)
	assert.True(t, ac.Search.TwoAttacks)
	assert.True(t, ac.Search.Approach)
	assert.Equal(t, 3, ac.Workers)
	assert.Equal(t, 6, ac.TurnSlices)
	assert.Equal(t, 32, ac.HistoryCapacity)
	assert.Equal(t, uint64(9), ac.Seed)

	_, err = AgentConfigFrom(config.SearchConfig{UnitOrders: []string{"sideways"}}, config.BoardConfig{})
	assert.Error(t, err)
}

func TestRunner_Run(t *testing.T) {
	cfg := testConfig(t)
	r, err := NewRunner(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer r.Close()

	var out bytes.Buffer
	r.Render, r.Out = true, &out

	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Played)
	assert.Equal(t, sum.Played, sum.Wins[0]+sum.Wins[1]+sum.Draws)
	require.Len(t, sum.GameIDs, 2)
	assert.Contains(t, out.String(), "to move")
	assert.Equal(t, 2, r.Monitor().GetMetrics().Checks)
	assert.Equal(t, 0, sum.LeakAlerts)

	for _, id := range sum.GameIDs {
		res, err := r.Store().LoadResult(id)
		require.NoError(t, err)
		assert.LessOrEqual(t, res.FinalTurn, cfg.Game.TurnLimit)

		eps, err := r.Store().GameEpisodes(id)
		require.NoError(t, err)
		require.NotEmpty(t, eps)
		assert.Equal(t, res.Episodes, len(eps))
		for i := 1; i < len(eps); i++ {
			assert.LessOrEqual(t, eps[i-1].Turn, eps[i].Turn)
		}

		recs, err := r.Traces().Read(context.Background(), id, 0)
		require.NoError(t, err)
		require.Len(t, recs, len(eps)+1, "one record per episode plus the result")
		assert.Equal(t, experience.KindResult, experience.KindOf(recs[len(recs)-1]))
	}
}

func TestRunner_Cancelled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Enabled = false
	cfg.Experience.Enabled = false

	r, err := NewRunner(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer r.Close()
	assert.Nil(t, r.Store())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum, err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, sum.Played)
}

func TestRunner_SetAgentConfig(t *testing.T) {
	r, err := NewRunner(testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	defer r.Close()

	ac := search.DefaultAgentConfig()
	ac.Search.MaxDepth = 3
	r.SetAgentConfig(ac)
	for _, a := range r.agents {
		assert.Equal(t, 3, a.Config().Search.MaxDepth)
	}
}
