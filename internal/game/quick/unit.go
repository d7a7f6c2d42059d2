package quick

import (
	"fmt"

	"github.com/mitchelldurbincs/TacticalSearch/internal/game/core"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/reach"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/rules"
)

// unitEntry is a unit's status before the action at one move counter.
type unitEntry struct {
	pos      core.Coordinate
	hp       int
	finished bool
	dead     bool
}

// Unit is a unit's battle state inside one search episode. Its history is
// indexed by the board's move counter and its reachability by turn.
type Unit struct {
	id       int
	canonID  int
	team     core.Team
	utype    core.UnitType
	spec     *rules.UnitSpec
	pos      core.Coordinate
	hp       int
	finished bool
	dead     bool

	hist  []unitEntry
	slice []*reach.Map
	env   *unitEnv
}

func (u *Unit) ID() int                   { return u.id }
func (u *Unit) CanonicalID() int          { return u.canonID }
func (u *Unit) Team() core.Team           { return u.team }
func (u *Unit) Type() core.UnitType       { return u.utype }
func (u *Unit) Spec() *rules.UnitSpec     { return u.spec }
func (u *Unit) Position() core.Coordinate { return u.pos }
func (u *Unit) HP() int                   { return u.hp }
func (u *Unit) ActionFinished() bool      { return u.finished }
func (u *Unit) IsDead() bool              { return u.dead }
func (u *Unit) IsInfantry() bool          { return u.utype == core.Infantry }

// Env is the unit's view of the live board for reachability.
func (u *Unit) Env() reach.Env { return u.env }

func (u *Unit) save(k int) {
	u.hist[k] = unitEntry{pos: u.pos, hp: u.hp, finished: u.finished, dead: u.dead}
}

func (u *Unit) String() string {
	state := "ready"
	switch {
	case u.dead:
		state = "dead"
	case u.finished:
		state = "done"
	}
	return fmt.Sprintf("%s#%d(%s) hp=%d at %s %s", u.utype, u.id, u.team, u.hp, u.pos, state)
}

// unitEnv reads terrain and occupancy straight from the board arrays.
type unitEnv struct {
	b    *Board
	cost *[core.NumTerrains]int
	team core.Team
}

func (e *unitEnv) Cost(idx int) int {
	return e.cost[e.b.terrain[idx]]
}

func (e *unitEnv) Enemy(idx int) bool {
	id := e.b.grid[idx]
	return id >= 0 && e.b.units[id].team != e.team
}
