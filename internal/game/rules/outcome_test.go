package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mitchelldurbincs/TacticalSearch/internal/game/core"
	"github.com/mitchelldurbincs/TacticalSearch/internal/testutil"
)

func TestTimeoutResult(t *testing.T) {
	tests := []struct {
		name       string
		red, blue  int
		threshold  int
		wantWinner core.Team
		wantDraw   bool
	}{
		{"red ahead", 20, 10, 5, core.Red, false},
		{"blue ahead", 8, 18, 5, core.Blue, false},
		{"exactly threshold", 15, 10, 5, core.Red, false},
		{"within threshold", 14, 10, 5, core.Red, true},
		{"equal", 10, 10, 0, core.Red, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			winner, draw := TimeoutResult(tt.red, tt.blue, tt.threshold)
			assert.Equal(t, tt.wantDraw, draw)
			if !draw {
				assert.Equal(t, tt.wantWinner, winner)
			}
		})
	}
}

func TestOutcomeChecker_Check(t *testing.T) {
	oc := NewOutcomeChecker(testutil.NopLogger())

	t.Run("battle continues", func(t *testing.T) {
		b := testutil.TankVsInfantry(t)
		assert.False(t, oc.Check(b).Over)
	})

	t.Run("elimination", func(t *testing.T) {
		b := testutil.TankVsInfantry(t)
		inf, _ := b.Unit(1)
		b.Kill(inf)
		out := oc.Check(b)
		assert.True(t, out.Over)
		assert.False(t, out.Draw)
		assert.Equal(t, core.Red, out.Winner)
		assert.Equal(t, ReasonEliminated, out.Reason)
	})

	t.Run("turn limit decided by hp", func(t *testing.T) {
		b := testutil.TankVsInfantry(t)
		inf, _ := b.Unit(1)
		inf.SetHP(3)
		b.SetLimits(1, 5)
		b.EndTurn()
		out := oc.Check(b)
		assert.True(t, out.Over)
		assert.Equal(t, core.Red, out.Winner)
		assert.Equal(t, ReasonTurnLimit, out.Reason)
	})

	t.Run("turn limit draw", func(t *testing.T) {
		b := testutil.TankVsInfantry(t)
		b.SetLimits(1, 5)
		b.EndTurn()
		out := oc.Check(b)
		assert.True(t, out.Over)
		assert.True(t, out.Draw)
	})
}
