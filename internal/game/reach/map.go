package reach

import (
	"fmt"

	"github.com/mitchelldurbincs/TacticalSearch/internal/game/core"
)

const (
	// Unreachable marks a cell the unit can neither enter nor attack.
	Unreachable int8 = -1
	// AttackOnly marks a cell the unit can attack but not stop on.
	AttackOnly int8 = 0
)

// Map is one unit's reachability for one turn slice. Step holds the movement
// budget left on arrival; Dir points from each reached cell to the neighbour
// it was reached from.
type Map struct {
	W, H     int
	Origin   core.Coordinate
	Budget   int8
	Step     []int8
	Dir      []core.Direction
	prepared bool
}

// NewMap allocates an unprepared w×h map.
func NewMap(w, h int) *Map {
	m := &Map{
		W:    w,
		H:    h,
		Step: make([]int8, w*h),
		Dir:  make([]core.Direction, w*h),
	}
	m.Reset()
	return m
}

// Reset marks every cell unreachable and the map unprepared.
func (m *Map) Reset() {
	for i := range m.Step {
		m.Step[i] = Unreachable
		m.Dir[i] = core.NoDirection
	}
	m.Origin = core.Coordinate{}
	m.Budget = 0
	m.prepared = false
}

// Prepared reports whether the map has been built.
func (m *Map) Prepared() bool { return m.prepared }

// CopyFrom overwrites m with src without sharing storage.
func (m *Map) CopyFrom(src *Map) {
	copy(m.Step, src.Step)
	copy(m.Dir, src.Dir)
	m.Origin = src.Origin
	m.Budget = src.Budget
	m.prepared = src.prepared
}

// StepAt returns the step value at c, Unreachable outside the board.
func (m *Map) StepAt(c core.Coordinate) int {
	if !c.IsValid(m.W, m.H) {
		return int(Unreachable)
	}
	return int(m.Step[c.ToIndex(m.W)])
}

// DirAt returns the arrival direction at c.
func (m *Map) DirAt(c core.Coordinate) core.Direction {
	if !c.IsValid(m.W, m.H) {
		return core.NoDirection
	}
	return m.Dir[c.ToIndex(m.W)]
}

// CanStop reports whether the unit can end its move on c.
func (m *Map) CanStop(c core.Coordinate) bool {
	return m.StepAt(c) > 0
}

// CanAttack reports whether c is within attack reach.
func (m *Map) CanAttack(c core.Coordinate) bool {
	return m.StepAt(c) >= 0
}

// Equal compares every field, arrival directions included.
func (m *Map) Equal(o *Map) bool {
	if m.W != o.W || m.H != o.H || m.Origin != o.Origin || m.Budget != o.Budget || m.prepared != o.prepared {
		return false
	}
	for i := range m.Step {
		if m.Step[i] != o.Step[i] || m.Dir[i] != o.Dir[i] {
			return false
		}
	}
	return true
}

// VerifyArrival checks that every reached cell's direction certifies its
// step value against env: positive cells point at a neighbour whose step pays
// exactly for the entry cost, attack-only cells point at a neighbour the unit
// can keep moving from.
func (m *Map) VerifyArrival(env Env) error {
	o := m.Origin.ToIndex(m.W)
	for i, s := range m.Step {
		if i == o || s < 0 {
			continue
		}
		c := core.FromIndex(i, m.W)
		d := m.Dir[i]
		if d == core.NoDirection {
			return fmt.Errorf("cell %s: step %d without arrival direction", c, s)
		}
		p := c.Move(d)
		pi := p.ToIndex(m.W)
		if m.Step[pi] <= 0 || (pi != o && env.Enemy(pi)) {
			return fmt.Errorf("cell %s: parent %s cannot be moved through", c, p)
		}
		if s == AttackOnly {
			continue
		}
		if int(m.Step[pi])-env.Cost(i) != int(s) || env.Enemy(i) {
			return fmt.Errorf("cell %s: step %d not paid by parent %s (%d)", c, s, p, m.Step[pi])
		}
	}
	return nil
}

func (m *Map) String() string {
	out := make([]byte, 0, (m.W*3+1)*m.H)
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			out = fmt.Appendf(out, "%3d", m.Step[y*m.W+x])
		}
		out = append(out, '\n')
	}
	return string(out)
}
