package core

// UnitOps is the read-only view of a unit shared by the canonical board and
// the fast in-search board.
type UnitOps interface {
	ID() int
	Team() Team
	Type() UnitType
	Position() Coordinate
	HP() int
	ActionFinished() bool
	IsDead() bool
}

// BoardOps is the read-only view of a battle shared by the canonical board and
// the fast in-search board. Neither implementation substitutes for the other.
type BoardOps interface {
	Width() int
	Height() int
	TerrainAt(c Coordinate) Terrain
	// UnitAt returns the living unit on c, if any.
	UnitAt(c Coordinate) (UnitOps, bool)
	// TeamUnits returns every unit of t, dead ones included, in id order.
	TeamUnits(t Team) []UnitOps
	Phase() Team
	TurnCount() int
	TurnLimit() int
	DrawHPThreshold() int
}
