package core

import "fmt"

// Coordinate is a cell position on the board.
type Coordinate struct {
	X, Y int
}

// NewCoordinate creates a new coordinate with the given x and y values
func NewCoordinate(x, y int) Coordinate {
	return Coordinate{X: x, Y: y}
}

// FromIndex creates a coordinate from a board array index using row-major ordering
func FromIndex(idx, width int) Coordinate {
	return Coordinate{X: idx % width, Y: idx / width}
}

// IsValid checks if the coordinate is within the given bounds
func (c Coordinate) IsValid(width, height int) bool {
	return c.X >= 0 && c.X < width && c.Y >= 0 && c.Y < height
}

// IsPlayable reports whether c lies strictly inside the border ring.
// Border cells are never entered nor attacked from.
func (c Coordinate) IsPlayable(width, height int) bool {
	return c.X > 0 && c.X < width-1 && c.Y > 0 && c.Y < height-1
}

// ToIndex converts the coordinate to a board array index using row-major ordering
func (c Coordinate) ToIndex(width int) int {
	return c.Y*width + c.X
}

// DistanceTo calculates the Manhattan distance to another coordinate
func (c Coordinate) DistanceTo(other Coordinate) int {
	dx := c.X - other.X
	dy := c.Y - other.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// IsAdjacentTo checks if this coordinate is orthogonally adjacent to another
func (c Coordinate) IsAdjacentTo(other Coordinate) bool {
	return c.DistanceTo(other) == 1
}

// Neighbors returns the four orthogonal neighbors in Direction order.
func (c Coordinate) Neighbors() [4]Coordinate {
	return [4]Coordinate{
		c.Move(North),
		c.Move(East),
		c.Move(South),
		c.Move(West),
	}
}

// Add returns a new coordinate that is the sum of this coordinate and another
func (c Coordinate) Add(other Coordinate) Coordinate {
	return Coordinate{X: c.X + other.X, Y: c.Y + other.Y}
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Direction is a cardinal direction. NoDirection marks a cell without an
// arrival direction.
type Direction int8

const (
	NoDirection Direction = -1
	North       Direction = 0
	East        Direction = 1
	South       Direction = 2
	West        Direction = 3
)

// Directions lists the cardinal directions in expansion order.
var Directions = [4]Direction{North, East, South, West}

var directionOffsets = [4]Coordinate{
	North: {X: 0, Y: -1},
	East:  {X: 1, Y: 0},
	South: {X: 0, Y: 1},
	West:  {X: -1, Y: 0},
}

// Offset returns the coordinate delta of one step in d.
func (d Direction) Offset() Coordinate {
	if d < North || d > West {
		return Coordinate{}
	}
	return directionOffsets[d]
}

// Opposite returns the reverse direction.
func (d Direction) Opposite() Direction {
	if d == NoDirection {
		return NoDirection
	}
	return (d + 2) % 4
}

func (d Direction) String() string {
	switch d {
	case North:
		return "N"
	case East:
		return "E"
	case South:
		return "S"
	case West:
		return "W"
	default:
		return "-"
	}
}

// Move returns a new coordinate moved one step in the given direction
func (c Coordinate) Move(d Direction) Coordinate {
	return c.Add(d.Offset())
}

// DirectionTo returns the direction from c to an adjacent coordinate, or
// NoDirection if the two are not adjacent.
func (c Coordinate) DirectionTo(other Coordinate) Direction {
	for _, d := range Directions {
		if c.Move(d) == other {
			return d
		}
	}
	return NoDirection
}
