package core

import "fmt"

// ActionKind is the kind nibble of a packed Action.
type ActionKind int

const (
	ActSurrender ActionKind = iota
	ActMove
	ActMoveAttack
	ActTurnEnd
)

func (k ActionKind) String() string {
	switch k {
	case ActSurrender:
		return "surrender"
	case ActMove:
		return "move"
	case ActMoveAttack:
		return "attack"
	case ActTurnEnd:
		return "turn_end"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Action is a unit action packed into base-16 fields, low to high:
// acting id, target id, dest x, dest y, origin x, origin y, kind, team.
// The zero value is a Surrender by red.
type Action uint32

const (
	// FieldBase bounds every id and coordinate stored in an Action.
	FieldBase = 16

	placeActing  = 1
	placeTarget  = placeActing * FieldBase
	placeDestX   = placeTarget * FieldBase
	placeDestY   = placeDestX * FieldBase
	placeOriginX = placeDestY * FieldBase
	placeOriginY = placeOriginX * FieldBase
	placeKind    = placeOriginY * FieldBase
	placeTeam    = placeKind * FieldBase
)

// ActionFields is the unpacked form of an Action.
type ActionFields struct {
	Kind     ActionKind
	Team     Team
	ActingID int
	TargetID int
	Origin   Coordinate
	Dest     Coordinate
}

func inField(v int) bool {
	return v >= 0 && v < FieldBase
}

// Encode packs f, rejecting any field that does not fit its nibble.
func Encode(f ActionFields) (Action, error) {
	if !inField(int(f.Kind)) || f.Kind > ActTurnEnd {
		return 0, fmt.Errorf("kind %d: %w", f.Kind, ErrFieldOutOfRange)
	}
	if !f.Team.IsValid() {
		return 0, fmt.Errorf("team %d: %w", f.Team, ErrFieldOutOfRange)
	}
	for _, v := range [...]struct {
		name string
		val  int
	}{
		{"acting id", f.ActingID},
		{"target id", f.TargetID},
		{"dest x", f.Dest.X},
		{"dest y", f.Dest.Y},
		{"origin x", f.Origin.X},
		{"origin y", f.Origin.Y},
	} {
		if !inField(v.val) {
			return 0, fmt.Errorf("%s %d: %w", v.name, v.val, ErrFieldOutOfRange)
		}
	}
	return Action(f.ActingID*placeActing +
		f.TargetID*placeTarget +
		f.Dest.X*placeDestX +
		f.Dest.Y*placeDestY +
		f.Origin.X*placeOriginX +
		f.Origin.Y*placeOriginY +
		int(f.Kind)*placeKind +
		int(f.Team)*placeTeam), nil
}

// Decode unpacks every field of a.
func (a Action) Decode() ActionFields {
	return ActionFields{
		Kind:     a.Kind(),
		Team:     a.Team(),
		ActingID: a.ActingID(),
		TargetID: a.TargetID(),
		Origin:   a.Origin(),
		Dest:     a.Dest(),
	}
}

func (a Action) field(place int) int {
	return int(a) / place % FieldBase
}

func (a Action) Kind() ActionKind { return ActionKind(a.field(placeKind)) }
func (a Action) Team() Team       { return Team(int(a) / placeTeam) }
func (a Action) ActingID() int    { return a.field(placeActing) }
func (a Action) TargetID() int    { return a.field(placeTarget) }
func (a Action) DestX() int       { return a.field(placeDestX) }
func (a Action) DestY() int       { return a.field(placeDestY) }
func (a Action) OriginX() int     { return a.field(placeOriginX) }
func (a Action) OriginY() int     { return a.field(placeOriginY) }

func (a Action) Dest() Coordinate   { return Coordinate{X: a.DestX(), Y: a.DestY()} }
func (a Action) Origin() Coordinate { return Coordinate{X: a.OriginX(), Y: a.OriginY()} }

// NewMove encodes u moving to dest without attacking.
func NewMove(u UnitOps, dest Coordinate) (Action, error) {
	return Encode(ActionFields{
		Kind:     ActMove,
		Team:     u.Team(),
		ActingID: u.ID(),
		Origin:   u.Position(),
		Dest:     dest,
	})
}

// NewAttack encodes u moving to dest and attacking target.
func NewAttack(u UnitOps, dest Coordinate, target UnitOps) (Action, error) {
	return Encode(ActionFields{
		Kind:     ActMoveAttack,
		Team:     u.Team(),
		ActingID: u.ID(),
		TargetID: target.ID(),
		Origin:   u.Position(),
		Dest:     dest,
	})
}

// MustMove is NewMove for callers whose inputs are already bounded.
func MustMove(u UnitOps, dest Coordinate) Action {
	a, err := NewMove(u, dest)
	if err != nil {
		panic(err)
	}
	return a
}

// MustAttack is NewAttack for callers whose inputs are already bounded.
func MustAttack(u UnitOps, dest Coordinate, target UnitOps) Action {
	a, err := NewAttack(u, dest, target)
	if err != nil {
		panic(err)
	}
	return a
}

// TurnEndAction returns the packed turn end.
func TurnEndAction() Action {
	return Action(int(ActTurnEnd) * placeKind)
}

// SurrenderAction returns the packed surrender.
func SurrenderAction() Action {
	return Action(int(ActSurrender) * placeKind)
}

func (a Action) String() string {
	return a.Decode().String()
}

func (f ActionFields) String() string {
	switch f.Kind {
	case ActMove:
		return fmt.Sprintf("%s unit %d %s->%s", f.Team, f.ActingID, f.Origin, f.Dest)
	case ActMoveAttack:
		return fmt.Sprintf("%s unit %d %s->%s attacks %d", f.Team, f.ActingID, f.Origin, f.Dest, f.TargetID)
	default:
		return f.Kind.String()
	}
}
