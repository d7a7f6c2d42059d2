package rules

import "github.com/mitchelldurbincs/TacticalSearch/internal/game/core"

// Damage returns the HP an attacker of type a at atkHP removes from a target
// of type t at tgtHP standing on terrain worth tgtStars. Air targets ignore
// terrain. The result never exceeds tgtHP.
func (tb *Tables) Damage(a core.UnitType, atkHP int, t core.UnitType, tgtHP, tgtStars int) int {
	if tb.Units[t].Air {
		tgtStars = 0
	}
	raw := (tb.AttackPower(a, t)*atkHP + 70) / (100 + tgtStars*tgtHP)
	if raw > tgtHP {
		raw = tgtHP
	}
	return raw
}

// Damages returns the damage dealt by the attack and the counter-damage taken.
// There is no counter when the target is destroyed or either side attacks
// from range.
func (tb *Tables) Damages(a core.UnitType, atkHP int, t core.UnitType, tgtHP, atkStars, tgtStars int) (dealt, taken int) {
	dealt = tb.Damage(a, atkHP, t, tgtHP, tgtStars)
	if tgtHP-dealt > 0 && tb.Units[a].Direct() && tb.Units[t].Direct() {
		taken = tb.Damage(t, tgtHP-dealt, a, atkHP, atkStars)
	}
	return dealt, taken
}
