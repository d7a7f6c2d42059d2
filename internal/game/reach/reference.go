package reach

import "github.com/mitchelldurbincs/TacticalSearch/internal/game/core"

// Reference computes step values by iterating the reachability rule to a
// fixed point over every cell. It is slow and exists to check the engine.
func Reference(w, h int, env Env, origin core.Coordinate, budget int) []int8 {
	step := make([]int8, w*h)
	for i := range step {
		step[i] = Unreachable
	}
	o := origin.ToIndex(w)
	step[o] = int8(budget)

	for changed := true; changed; {
		changed = false
		for i := range step {
			c := core.FromIndex(i, w)
			if i == o || !c.IsPlayable(w, h) {
				continue
			}
			best := int(Unreachable)
			for _, q := range c.Neighbors() {
				if !q.IsPlayable(w, h) {
					continue
				}
				qi := q.ToIndex(w)
				if step[qi] <= 0 || (qi != o && env.Enemy(qi)) {
					continue
				}
				v := int(step[qi]) - env.Cost(i)
				if v <= 0 || env.Enemy(i) {
					v = int(AttackOnly)
				}
				if v > best {
					best = v
				}
			}
			if best > int(step[i]) {
				step[i] = int8(best)
				changed = true
			}
		}
	}
	return step
}
