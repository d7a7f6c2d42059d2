package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/TacticalSearch/internal/game/core"
)

// PlainBoard creates a w×h board whose interior is all plain.
func PlainBoard(t testing.TB, w, h int) *core.Board {
	t.Helper()
	b := core.NewBoard(w, h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			require.NoError(t, b.SetTerrain(core.Coordinate{X: x, Y: y}, core.Plain))
		}
	}
	return b
}

// UnitSpec places one unit in a fixture.
type UnitSpec struct {
	ID   int
	Team core.Team
	Type core.UnitType
	X, Y int
	HP   int
}

// Place adds every unit to b.
func Place(t testing.TB, b *core.Board, units ...UnitSpec) {
	t.Helper()
	for _, u := range units {
		hp := u.HP
		if hp == 0 {
			hp = 10
		}
		require.NoError(t, b.AddUnit(core.NewUnit(u.ID, u.Team, u.Type, core.Coordinate{X: u.X, Y: u.Y}, hp)))
	}
}

// TankVsInfantry is a 7×7 plain board with a red panzer at (2,3) next to a
// blue infantry at (3,3), both at full HP, red to move.
func TankVsInfantry(t testing.TB) *core.Board {
	t.Helper()
	b := PlainBoard(t, 7, 7)
	Place(t, b,
		UnitSpec{ID: 0, Team: core.Red, Type: core.Panzer, X: 2, Y: 3},
		UnitSpec{ID: 1, Team: core.Blue, Type: core.Infantry, X: 3, Y: 3},
	)
	return b
}

// TankVsInfantryCorridor is a one-cell-high corridor where a red panzer at
// (1,1) faces a blue infantry at (2,1) with nowhere else to stand.
func TankVsInfantryCorridor(t testing.TB) *core.Board {
	t.Helper()
	b := PlainBoard(t, 6, 3)
	Place(t, b,
		UnitSpec{ID: 0, Team: core.Red, Type: core.Panzer, X: 1, Y: 1},
		UnitSpec{ID: 1, Team: core.Blue, Type: core.Infantry, X: 2, Y: 1},
	)
	return b
}
