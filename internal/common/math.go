package common

import "github.com/mitchelldurbincs/TacticalSearch/internal/game/core"

// Abs returns the absolute value of an integer
func Abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Centroid returns the integer mean of points, or fallback when there are
// none.
func Centroid(points []core.Coordinate, fallback core.Coordinate) core.Coordinate {
	if len(points) == 0 {
		return fallback
	}
	var sx, sy int
	for _, p := range points {
		sx += p.X
		sy += p.Y
	}
	return core.Coordinate{X: sx / len(points), Y: sy / len(points)}
}

// Midpoint returns the integer midpoint of a and b.
func Midpoint(a, b core.Coordinate) core.Coordinate {
	return core.Coordinate{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// BoardCenter returns the fallback centroid of a w×h board.
func BoardCenter(w, h int) core.Coordinate {
	return core.Coordinate{X: w / 2, Y: h / 2}
}
