package reach

import (
	"fmt"

	"github.com/mitchelldurbincs/TacticalSearch/internal/game/core"
)

// Env is the board as one unit sees it.
type Env interface {
	// Cost returns the movement cost of entering cell idx.
	Cost(idx int) int
	// Enemy reports whether a unit hostile to the map owner stands on idx.
	Enemy(idx int) bool
}

// Recorder is told about every cell a patch overwrites, before the write.
type Recorder interface {
	Record(idx int, oldStep int8, oldDir core.Direction)
}

// Engine builds and patches maps for one board size. It keeps scratch
// buffers between calls and must not be shared between goroutines.
type Engine struct {
	w, h    int
	border  []bool
	offset  [4]int
	buckets [][]int32
	work    []int32
	mark    []bool
}

// NewEngine creates an engine for w×h boards and budgets up to maxBudget.
func NewEngine(w, h, maxBudget int) *Engine {
	e := &Engine{
		w:       w,
		h:       h,
		border:  make([]bool, w*h),
		mark:    make([]bool, w*h),
		buckets: make([][]int32, maxBudget+1),
		work:    make([]int32, 0, w*h),
	}
	for i := range e.border {
		e.border[i] = !core.FromIndex(i, w).IsPlayable(w, h)
	}
	for _, d := range core.Directions {
		off := d.Offset()
		e.offset[d] = off.Y*w + off.X
	}
	return e
}

func (e *Engine) checkShape(m *Map) {
	if m.W != e.w || m.H != e.h {
		panic(fmt.Sprintf("reach: map %dx%d used with engine %dx%d", m.W, m.H, e.w, e.h))
	}
}

func (e *Engine) push(level int, idx int) {
	if level >= len(e.buckets) {
		panic(fmt.Sprintf("reach: level %d exceeds engine budget %d", level, len(e.buckets)-1))
	}
	e.buckets[level] = append(e.buckets[level], int32(idx))
}

func set(m *Map, idx int, step int8, dir core.Direction, rec Recorder) {
	if rec != nil {
		rec.Record(idx, m.Step[idx], m.Dir[idx])
	}
	m.Step[idx] = step
	m.Dir[idx] = dir
}

// BuildFresh floods m from origin with the given budget. The budget is the
// unit's move allowance plus one, so cells one step past the move range
// become attack-only.
func (e *Engine) BuildFresh(m *Map, env Env, origin core.Coordinate, budget int) {
	e.checkShape(m)
	m.Reset()
	m.Origin = origin
	m.Budget = int8(budget)
	m.prepared = true

	o := origin.ToIndex(m.W)
	m.Step[o] = int8(budget)
	e.push(budget, o)
	e.relax(m, env, budget, nil)
}

// relax expands queued cells from the highest level down. A cell is expanded
// only at the level it currently holds.
func (e *Engine) relax(m *Map, env Env, top int, rec Recorder) {
	for level := top; level > 0; level-- {
		for i := 0; i < len(e.buckets[level]); i++ {
			p := int(e.buckets[level][i])
			if int(m.Step[p]) != level {
				continue
			}
			e.expand(m, env, p, level, rec)
		}
		e.buckets[level] = e.buckets[level][:0]
	}
	e.buckets[0] = e.buckets[0][:0]
}

func (e *Engine) expand(m *Map, env Env, p, level int, rec Recorder) {
	for _, d := range core.Directions {
		n := p + e.offset[d]
		if e.border[n] {
			continue
		}
		from := d.Opposite()
		rest := level - env.Cost(n)
		if rest <= 0 || env.Enemy(n) {
			if m.Step[n] < 0 {
				set(m, n, AttackOnly, from, rec)
			}
			continue
		}
		if rest > int(m.Step[n]) {
			set(m, n, int8(rest), from, rec)
			e.push(rest, n)
		}
	}
}

// expandable reports whether movement can continue out of idx.
func expandable(m *Map, env Env, idx, origin int) bool {
	return m.Step[idx] > 0 && (idx == origin || !env.Enemy(idx))
}

// bestEntry returns the best step value idx can receive from its neighbours
// and the direction it comes from.
func (e *Engine) bestEntry(m *Map, env Env, idx, origin int) (int, core.Direction) {
	best, dir := int(Unreachable), core.NoDirection
	cost := env.Cost(idx)
	enemy := env.Enemy(idx)
	for _, d := range core.Directions {
		q := idx + e.offset[d]
		if e.border[q] || !expandable(m, env, q, origin) {
			continue
		}
		v := int(m.Step[q]) - cost
		if v <= 0 || enemy {
			v = int(AttackOnly)
		}
		if v > best {
			best, dir = v, d
		}
	}
	return best, dir
}

// PatchOnEnemyEnter updates m after an enemy of its owner stepped onto c.
// Every cell whose arrival chain ran through c is invalidated, reseeded from
// its still-valid neighbours, and re-flooded.
func (e *Engine) PatchOnEnemyEnter(m *Map, env Env, c core.Coordinate, rec Recorder) {
	e.checkShape(m)
	if !m.prepared {
		panic(fmt.Errorf("enter patch at %s: %w", c, core.ErrMapNotPrepared))
	}
	ci := c.ToIndex(m.W)
	o := m.Origin.ToIndex(m.W)
	if ci == o || m.Step[ci] <= 0 {
		return
	}

	sub := append(e.work[:0], int32(ci))
	e.mark[ci] = true
	for i := 0; i < len(sub); i++ {
		p := int(sub[i])
		for _, d := range core.Directions {
			n := p + e.offset[d]
			if e.border[n] || e.mark[n] || m.Step[n] < 0 {
				continue
			}
			if m.Dir[n] == d.Opposite() {
				e.mark[n] = true
				sub = append(sub, int32(n))
			}
		}
	}

	for _, s := range sub {
		set(m, int(s), Unreachable, core.NoDirection, rec)
	}
	top := 0
	for _, s := range sub {
		si := int(s)
		e.mark[si] = false
		best, dir := e.bestEntry(m, env, si, o)
		if best < 0 {
			continue
		}
		set(m, si, int8(best), dir, rec)
		if best > 0 {
			e.push(best, si)
			if best > top {
				top = best
			}
		}
	}
	e.work = sub[:0]
	e.relax(m, env, top, rec)
}

// PatchOnEnemyLeave updates m after an enemy of its owner left c. Step values
// can only grow, so c is re-evaluated from its neighbours and any gain is
// flooded outward.
func (e *Engine) PatchOnEnemyLeave(m *Map, env Env, c core.Coordinate, rec Recorder) {
	e.checkShape(m)
	if !m.prepared {
		panic(fmt.Errorf("leave patch at %s: %w", c, core.ErrMapNotPrepared))
	}
	ci := c.ToIndex(m.W)
	o := m.Origin.ToIndex(m.W)
	if ci == o || m.Step[ci] < 0 {
		return
	}
	best, dir := e.bestEntry(m, env, ci, o)
	if best <= int(m.Step[ci]) {
		return
	}
	set(m, ci, int8(best), dir, rec)
	if best > 0 {
		e.push(best, ci)
		e.relax(m, env, best, rec)
	}
}
