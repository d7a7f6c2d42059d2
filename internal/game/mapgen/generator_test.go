package mapgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/TacticalSearch/internal/game/core"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/rules"
	"github.com/mitchelldurbincs/TacticalSearch/internal/testutil"
)

func TestDefaultMapConfig(t *testing.T) {
	config := DefaultMapConfig(14, 10, 4)

	assert.Equal(t, 14, config.Width)
	assert.Equal(t, 10, config.Height)
	assert.Equal(t, 4, config.UnitsPerTeam)
	assert.Equal(t, 8, config.ForestRatio)
	assert.Equal(t, 2, config.NumMountainVeins)
	assert.Equal(t, 3, config.MaxVeinLength)
	assert.True(t, config.Road)
	assert.Equal(t, 20, config.TurnLimit)
}

func TestNewGenerator(t *testing.T) {
	config := DefaultMapConfig(10, 10, 2)
	rng := testutil.NewTestRNG(12345)
	tb := rules.DefaultTables()
	generator := NewGenerator(config, tb, rng)

	require.NotNil(t, generator)
	assert.Equal(t, config, generator.config)
	assert.Same(t, rng, generator.rng)
	assert.Same(t, tb, generator.tables)
}

func TestGenerate(t *testing.T) {
	tb := rules.DefaultTables()
	for seed := uint64(1); seed <= 20; seed++ {
		config := DefaultMapConfig(12, 9, 4)
		b, err := NewGenerator(config, tb, testutil.NewTestRNG(seed)).Generate()
		require.NoError(t, err)

		assert.Equal(t, core.Red, b.Phase())
		assert.Equal(t, 20, b.TurnLimit())
		assert.Equal(t, 10, b.DrawHPThreshold())

		for i, terrain := range b.T {
			c := core.FromIndex(i, b.W)
			if !c.IsPlayable(b.W, b.H) {
				assert.Equal(t, core.NoEntry, terrain, "border %s", c)
			}
		}

		for _, team := range []core.Team{core.Red, core.Blue} {
			units := b.LivingUnits(team)
			require.Len(t, units, 4)
			for _, u := range units {
				assert.Equal(t, tb.MaxHP, u.HP())
				assert.Less(t, tb.MoveCost(u.Type(), b.TerrainAt(u.Position())), rules.Impassable,
					"%s deployed on %s", u, b.TerrainAt(u.Position()))
				if team == core.Red {
					assert.LessOrEqual(t, u.Position().X, 3)
				} else {
					assert.GreaterOrEqual(t, u.Position().X, 8)
				}
			}
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	config := DefaultMapConfig(12, 9, 3)
	tb := rules.DefaultTables()
	a, err := NewGenerator(config, tb, testutil.NewTestRNG(7)).Generate()
	require.NoError(t, err)
	b, err := NewGenerator(config, tb, testutil.NewTestRNG(7)).Generate()
	require.NoError(t, err)

	assert.Equal(t, a.T, b.T)
	for id := 0; id < 6; id++ {
		ua, ok := a.Unit(id)
		require.True(t, ok)
		ub, ok := b.Unit(id)
		require.True(t, ok)
		assert.Equal(t, ua.Position(), ub.Position())
		assert.Equal(t, ua.Type(), ub.Type())
	}
}

func TestGenerate_UnitTypes(t *testing.T) {
	config := DefaultMapConfig(10, 8, 3)
	config.Types = []core.UnitType{core.Infantry}
	b, err := NewGenerator(config, rules.DefaultTables(), testutil.NewTestRNG(3)).Generate()
	require.NoError(t, err)
	for _, u := range b.Units() {
		assert.Equal(t, core.Infantry, u.Type())
	}
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		config MapConfig
	}{
		{"board too small", DefaultMapConfig(3, 3, 1)},
		{"no units", DefaultMapConfig(10, 8, 0)},
		{"no room", func() MapConfig {
			c := DefaultMapConfig(6, 4, 5)
			c.NumMountainVeins = 0
			c.ForestRatio = 0
			c.Castles = 0
			return c
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGenerator(tt.config, rules.DefaultTables(), testutil.NewTestRNG(1)).Generate()
			assert.Error(t, err)
		})
	}
}
