package core

import (
	"fmt"
	"sort"
)

// Unit is a unit on the canonical board.
type Unit struct {
	id       int
	team     Team
	utype    UnitType
	pos      Coordinate
	hp       int
	finished bool
	dead     bool
}

// NewUnit creates a living, unacted unit.
func NewUnit(id int, team Team, t UnitType, pos Coordinate, hp int) *Unit {
	return &Unit{id: id, team: team, utype: t, pos: pos, hp: hp}
}

func (u *Unit) ID() int                  { return u.id }
func (u *Unit) Team() Team               { return u.team }
func (u *Unit) Type() UnitType           { return u.utype }
func (u *Unit) Position() Coordinate     { return u.pos }
func (u *Unit) HP() int                  { return u.hp }
func (u *Unit) ActionFinished() bool     { return u.finished }
func (u *Unit) IsDead() bool             { return u.dead }
func (u *Unit) SetHP(hp int)             { u.hp = hp }
func (u *Unit) SetActionFinished(b bool) { u.finished = b }

func (u *Unit) String() string {
	return fmt.Sprintf("%s#%d %s hp=%d at %s", u.utype, u.id, u.team, u.hp, u.pos)
}

// Board is the canonical, general-purpose battle representation. It is
// mutable, deep-clonable, and the source every fast search board is built from.
type Board struct {
	W, H int
	T    []Terrain // length = W*H (row-major)

	units []*Unit // indexed by id, nil for unused ids
	grid  []*Unit // row-major occupancy of living units

	turn            int
	turnLimit       int
	drawHPThreshold int
	phase           Team
}

// NewBoard creates a w×h board of no-entry terrain.
func NewBoard(w, h int) *Board {
	return &Board{
		W:    w,
		H:    h,
		T:    make([]Terrain, w*h),
		grid: make([]*Unit, w*h),
	}
}

func (b *Board) Idx(c Coordinate) int       { return c.ToIndex(b.W) }
func (b *Board) InBounds(c Coordinate) bool { return c.IsValid(b.W, b.H) }

func (b *Board) Width() int           { return b.W }
func (b *Board) Height() int          { return b.H }
func (b *Board) Phase() Team          { return b.phase }
func (b *Board) TurnCount() int       { return b.turn }
func (b *Board) TurnLimit() int       { return b.turnLimit }
func (b *Board) DrawHPThreshold() int { return b.drawHPThreshold }

// SetLimits sets the turn limit and the HP margin below which a timed-out
// battle is a draw.
func (b *Board) SetLimits(turnLimit, drawHPThreshold int) {
	b.turnLimit = turnLimit
	b.drawHPThreshold = drawHPThreshold
}

// SetPhase sets the side to move.
func (b *Board) SetPhase(t Team) { b.phase = t }

// TerrainAt returns NoEntry outside the board.
func (b *Board) TerrainAt(c Coordinate) Terrain {
	if !b.InBounds(c) {
		return NoEntry
	}
	return b.T[b.Idx(c)]
}

// SetTerrain sets the terrain of c.
func (b *Board) SetTerrain(c Coordinate, t Terrain) error {
	if !b.InBounds(c) {
		return ErrInvalidCoordinates
	}
	b.T[b.Idx(c)] = t
	return nil
}

// AddUnit places u on an empty playable cell.
func (b *Board) AddUnit(u *Unit) error {
	if !u.pos.IsPlayable(b.W, b.H) {
		return fmt.Errorf("unit %d at %s: %w", u.id, u.pos, ErrInvalidCoordinates)
	}
	if !u.team.IsValid() {
		return fmt.Errorf("unit %d: %w", u.id, ErrInvalidTeam)
	}
	if b.grid[b.Idx(u.pos)] != nil {
		return fmt.Errorf("unit %d at %s: %w", u.id, u.pos, ErrCellOccupied)
	}
	for u.id >= len(b.units) {
		b.units = append(b.units, nil)
	}
	if b.units[u.id] != nil {
		return fmt.Errorf("unit id %d already in use", u.id)
	}
	b.units[u.id] = u
	b.grid[b.Idx(u.pos)] = u
	return nil
}

// Unit returns the unit with the given id, dead or alive.
func (b *Board) Unit(id int) (*Unit, bool) {
	if id < 0 || id >= len(b.units) || b.units[id] == nil {
		return nil, false
	}
	return b.units[id], true
}

// Units returns every unit in id order.
func (b *Board) Units() []*Unit {
	out := make([]*Unit, 0, len(b.units))
	for _, u := range b.units {
		if u != nil {
			out = append(out, u)
		}
	}
	return out
}

// LivingUnits returns the living units of t in id order.
func (b *Board) LivingUnits(t Team) []*Unit {
	var out []*Unit
	for _, u := range b.units {
		if u != nil && u.team == t && !u.dead {
			out = append(out, u)
		}
	}
	return out
}

// AliveCount returns the number of living units of t.
func (b *Board) AliveCount(t Team) int {
	return len(b.LivingUnits(t))
}

// Occupant returns the living unit on c.
func (b *Board) Occupant(c Coordinate) (*Unit, bool) {
	if !b.InBounds(c) {
		return nil, false
	}
	u := b.grid[b.Idx(c)]
	return u, u != nil
}

func (b *Board) UnitAt(c Coordinate) (UnitOps, bool) {
	u, ok := b.Occupant(c)
	if !ok {
		return nil, false
	}
	return u, true
}

func (b *Board) TeamUnits(t Team) []UnitOps {
	var out []UnitOps
	for _, u := range b.units {
		if u != nil && u.team == t {
			out = append(out, u)
		}
	}
	return out
}

// MoveUnit relocates a living unit to an empty cell (or its own).
func (b *Board) MoveUnit(u *Unit, to Coordinate) error {
	if u.dead {
		return fmt.Errorf("unit %d is dead: %w", u.id, ErrInvalidAction)
	}
	if !b.InBounds(to) {
		return ErrInvalidCoordinates
	}
	if occ := b.grid[b.Idx(to)]; occ != nil && occ != u {
		return fmt.Errorf("move to %s: %w", to, ErrCellOccupied)
	}
	b.grid[b.Idx(u.pos)] = nil
	u.pos = to
	b.grid[b.Idx(to)] = u
	return nil
}

// Kill marks u dead and clears its cell.
func (b *Board) Kill(u *Unit) {
	if u.dead {
		return
	}
	if b.grid[b.Idx(u.pos)] == u {
		b.grid[b.Idx(u.pos)] = nil
	}
	u.hp = 0
	u.dead = true
}

// EndTurn resets the finished flags of the side to move and passes the turn.
func (b *Board) EndTurn() {
	for _, u := range b.units {
		if u != nil && u.team == b.phase {
			u.finished = false
		}
	}
	b.turn++
	b.phase = b.phase.Opponent()
}

// Clone returns a deep copy.
func (b *Board) Clone() *Board {
	c := &Board{
		W:               b.W,
		H:               b.H,
		T:               append([]Terrain(nil), b.T...),
		units:           make([]*Unit, len(b.units)),
		grid:            make([]*Unit, len(b.grid)),
		turn:            b.turn,
		turnLimit:       b.turnLimit,
		drawHPThreshold: b.drawHPThreshold,
		phase:           b.phase,
	}
	for i, u := range b.units {
		if u == nil {
			continue
		}
		cp := *u
		c.units[i] = &cp
		if !cp.dead {
			c.grid[c.Idx(cp.pos)] = &cp
		}
	}
	return c
}

// SortedByID sorts units in place by id.
func SortedByID[U UnitOps](units []U) []U {
	sort.Slice(units, func(i, j int) bool { return units[i].ID() < units[j].ID() })
	return units
}
