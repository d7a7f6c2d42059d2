package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mitchelldurbincs/TacticalSearch/internal/game/core"
)

func TestDamages(t *testing.T) {
	tb := DefaultTables()
	plain := tb.DefenseStars(core.Plain)
	forest := tb.DefenseStars(core.Forest)

	tests := []struct {
		name      string
		atk       core.UnitType
		atkHP     int
		tgt       core.UnitType
		tgtHP     int
		atkStars  int
		tgtStars  int
		wantDealt int
		wantTaken int
	}{
		{"panzer hits infantry on plain", core.Panzer, 10, core.Infantry, 10, plain, plain, 7, 0},
		{"infantry hits infantry on plain", core.Infantry, 10, core.Infantry, 10, plain, plain, 5, 3},
		{"forest cover", core.Panzer, 10, core.Infantry, 10, plain, forest, 6, 0},
		{"cannon takes no counter", core.Cannon, 10, core.Panzer, 10, plain, plain, 6, 0},
		{"air target ignores terrain", core.Fighter, 10, core.Attacker, 10, plain, forest, 7, 0},
		{"damage capped at target hp", core.Attacker, 10, core.Infantry, 2, plain, plain, 2, 0},
		{"zero power", core.Infantry, 10, core.Fighter, 10, plain, plain, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dealt, taken := tb.Damages(tt.atk, tt.atkHP, tt.tgt, tt.tgtHP, tt.atkStars, tt.tgtStars)
			assert.Equal(t, tt.wantDealt, dealt, "dealt")
			assert.Equal(t, tt.wantTaken, taken, "taken")
		})
	}
}
