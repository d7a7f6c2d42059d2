package quick

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/mitchelldurbincs/TacticalSearch/internal/game/core"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/reach"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/rules"
)

// MaxUnits is the number of living units an episode can hold; ids must fit
// an Action field.
const MaxUnits = core.FieldBase

// DefaultTurnSlices is the number of turns a board can advance past its
// starting position.
const DefaultTurnSlices = 4

// Options control how a Board is built from a canonical board.
type Options struct {
	// TurnSlices bounds how many turns the episode may advance.
	TurnSlices int
	// HistoryCapacity bounds the move counter. Zero derives it from the
	// unit count and TurnSlices.
	HistoryCapacity int
	// Mask lists canonical unit ids that sit the episode out.
	Mask map[int]bool
	// RNG shuffles compact ids within each team. Nil keeps id order.
	RNG *rand.Rand
}

// Board is the fast, reversible battle state searched in place. It is built
// from a canonical board once per episode and must not be shared between
// goroutines.
type Board struct {
	w, h    int
	terrain []core.Terrain
	grid    []int8
	units   []*Unit
	teams   [core.NumTeams][]*Unit
	alive   [core.NumTeams]int

	turn            int
	turnLimit       int
	drawHPThreshold int
	phase           core.Team
	unacted         int

	moves       int
	histKind    []core.ActionKind
	histActing  []int8
	histTarget  []int8
	histUnacted []int8
	histJournal []int32
	journal     journal

	tables *rules.Tables
	eng    *reach.Engine
	slices int
	masked bool
}

// New builds an episode board from canon. Living units get compact ids, red
// first, optionally shuffled within each team. The turn counter starts at
// zero and the turn limit becomes the number of turns canon has left.
func New(canon core.BoardOps, tb *rules.Tables, opts Options) (*Board, error) {
	w, h := canon.Width(), canon.Height()
	if w > core.FieldBase || h > core.FieldBase {
		return nil, fmt.Errorf("board %dx%d: %w", w, h, core.ErrBoardTooLarge)
	}

	var living [core.NumTeams][]core.UnitOps
	total := 0
	for _, t := range []core.Team{core.Red, core.Blue} {
		for _, u := range canon.TeamUnits(t) {
			if !u.IsDead() {
				living[t] = append(living[t], u)
				total++
			}
		}
	}
	if total > MaxUnits {
		return nil, fmt.Errorf("%d living units: %w", total, core.ErrTooManyUnits)
	}

	slices := opts.TurnSlices
	if slices <= 0 {
		slices = DefaultTurnSlices
	}
	capacity := opts.HistoryCapacity
	if capacity <= 0 {
		capacity = (total + 1) * (slices + 1)
	}

	b := &Board{
		w:               w,
		h:               h,
		terrain:         make([]core.Terrain, w*h),
		grid:            make([]int8, w*h),
		units:           make([]*Unit, 0, total),
		phase:           canon.Phase(),
		drawHPThreshold: canon.DrawHPThreshold(),
		histKind:        make([]core.ActionKind, capacity),
		histActing:      make([]int8, capacity),
		histTarget:      make([]int8, capacity),
		histUnacted:     make([]int8, capacity),
		histJournal:     make([]int32, capacity),
		tables:          tb,
		eng:             reach.NewEngine(w, h, tb.MaxBudget()),
		slices:          slices,
		masked:          len(opts.Mask) > 0,
	}
	if canon.TurnLimit() > 0 {
		b.turnLimit = canon.TurnLimit() - canon.TurnCount()
	}
	for i := range b.terrain {
		b.terrain[i] = canon.TerrainAt(core.FromIndex(i, w))
		b.grid[i] = -1
	}

	for _, t := range []core.Team{core.Red, core.Blue} {
		ids := make([]int, len(living[t]))
		for i := range ids {
			ids[i] = len(b.units) + i
		}
		if opts.RNG != nil {
			opts.RNG.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
		}
		team := make([]*Unit, len(ids))
		for i, cu := range living[t] {
			spec := tb.Spec(cu.Type())
			u := &Unit{
				id:       ids[i],
				canonID:  cu.ID(),
				team:     t,
				utype:    cu.Type(),
				spec:     spec,
				pos:      cu.Position(),
				hp:       cu.HP(),
				finished: cu.ActionFinished() || opts.Mask[cu.ID()],
				hist:     make([]unitEntry, capacity),
				slice:    make([]*reach.Map, slices),
			}
			u.env = &unitEnv{b: b, cost: &spec.MoveCost, team: t}
			for s := range u.slice {
				u.slice[s] = reach.NewMap(w, h)
			}
			team[ids[i]-len(b.units)] = u
		}
		b.units = append(b.units, team...)
		b.teams[t] = team
		b.alive[t] = len(team)
	}

	for _, u := range b.units {
		b.grid[b.idx(u.pos)] = int8(u.id)
	}
	for _, u := range b.units {
		b.eng.BuildFresh(u.slice[0], u.env, u.pos, u.spec.Step+1)
	}
	b.unacted = b.countUnacted(b.phase)
	return b, nil
}

func (b *Board) idx(c core.Coordinate) int { return c.Y*b.w + c.X }

func (b *Board) Width() int               { return b.w }
func (b *Board) Height() int              { return b.h }
func (b *Board) Phase() core.Team         { return b.phase }
func (b *Board) TurnCount() int           { return b.turn }
func (b *Board) TurnLimit() int           { return b.turnLimit }
func (b *Board) DrawHPThreshold() int     { return b.drawHPThreshold }
func (b *Board) Tables() *rules.Tables    { return b.tables }
func (b *Board) Alive(t core.Team) int    { return b.alive[t] }
func (b *Board) Unacted() int             { return b.unacted }
func (b *Board) Moves() int               { return b.moves }
func (b *Board) HistoryCapacity() int     { return len(b.histKind) }
func (b *Board) TurnSlices() int          { return b.slices }
func (b *Board) Masked() bool             { return b.masked }
func (b *Board) Team(t core.Team) []*Unit { return b.teams[t] }
func (b *Board) Units() []*Unit           { return b.units }
func (b *Board) TerrainAt(c core.Coordinate) core.Terrain {
	if !c.IsValid(b.w, b.h) {
		return core.NoEntry
	}
	return b.terrain[b.idx(c)]
}

// Unit returns the unit with compact id id, dead or alive.
func (b *Board) Unit(id int) (*Unit, bool) {
	if id < 0 || id >= len(b.units) {
		return nil, false
	}
	return b.units[id], true
}

// Occupant returns the living unit on c.
func (b *Board) Occupant(c core.Coordinate) (*Unit, bool) {
	if !c.IsValid(b.w, b.h) {
		return nil, false
	}
	id := b.grid[b.idx(c)]
	if id < 0 {
		return nil, false
	}
	return b.units[id], true
}

func (b *Board) UnitAt(c core.Coordinate) (core.UnitOps, bool) {
	u, ok := b.Occupant(c)
	if !ok {
		return nil, false
	}
	return u, true
}

func (b *Board) TeamUnits(t core.Team) []core.UnitOps {
	out := make([]core.UnitOps, 0, len(b.teams[t]))
	for _, u := range b.teams[t] {
		out = append(out, u)
	}
	return out
}

// TotalHP sums the HP of t's living units.
func (b *Board) TotalHP(t core.Team) int {
	sum := 0
	for _, u := range b.teams[t] {
		if !u.dead {
			sum += u.hp
		}
	}
	return sum
}

// Reach returns u's reachability for the current turn.
func (b *Board) Reach(u *Unit) *reach.Map {
	return u.slice[b.turn]
}

// ReachAt returns u's reachability for turn. Only the current turn is
// valid; asking for any other panics.
func (b *Board) ReachAt(u *Unit, turn int) *reach.Map {
	if turn != b.turn {
		panic(fmt.Errorf("unit %d reach for turn %d at turn %d: %w", u.id, turn, b.turn, core.ErrStaleReachMap))
	}
	return u.slice[turn]
}

func (b *Board) countUnacted(t core.Team) int {
	n := 0
	for _, u := range b.teams[t] {
		if !u.dead && !u.finished {
			n++
		}
	}
	return n
}

func (b *Board) String() string {
	out := make([]byte, 0, (b.w*2+1)*b.h+64)
	out = fmt.Appendf(out, "turn %d phase %s moves %d\n", b.turn, b.phase, b.moves)
	for y := 0; y < b.h; y++ {
		for x := 0; x < b.w; x++ {
			i := y*b.w + x
			switch {
			case b.grid[i] >= 0:
				u := b.units[b.grid[i]]
				ch := u.utype.String()[0]
				if u.team == core.Blue {
					ch += 'a' - 'A'
				}
				out = append(out, ' ', ch)
			case b.terrain[i] == core.NoEntry:
				out = append(out, ' ', '#')
			default:
				out = append(out, ' ', '.')
			}
		}
		out = append(out, '\n')
	}
	return string(out)
}
