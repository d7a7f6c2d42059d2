package core

import "fmt"

// Team identifies one of the two sides.
type Team int

const (
	Red  Team = 0
	Blue Team = 1

	// NumTeams is the number of sides in a battle.
	NumTeams = 2
)

// Opponent returns the other side.
func (t Team) Opponent() Team {
	return 1 - t
}

// IsValid reports whether t names a side.
func (t Team) IsValid() bool {
	return t == Red || t == Blue
}

func (t Team) String() string {
	switch t {
	case Red:
		return "red"
	case Blue:
		return "blue"
	default:
		return fmt.Sprintf("team(%d)", int(t))
	}
}

// UnitType indexes the rule tables.
type UnitType int

const (
	Fighter UnitType = iota
	Attacker
	Panzer
	Cannon
	AntiAir
	Infantry

	NumUnitTypes = 6
)

var unitTypeNames = [NumUnitTypes]string{"F", "A", "P", "U", "R", "I"}

func (u UnitType) String() string {
	if u < 0 || int(u) >= NumUnitTypes {
		return "?"
	}
	return unitTypeNames[u]
}

// ParseUnitType accepts the one-letter names used in rule files.
func ParseUnitType(s string) (UnitType, error) {
	for i, n := range unitTypeNames {
		if n == s {
			return UnitType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown unit type %q", s)
}

// Terrain indexes the movement cost and defense tables.
type Terrain int

const (
	NoEntry Terrain = iota
	Plain
	Sea
	Forest
	Mountain
	Road
	Castle

	NumTerrains = 7
)

var terrainNames = [NumTerrains]string{"noentry", "plain", "sea", "forest", "mountain", "road", "castle"}

func (t Terrain) String() string {
	if t < 0 || int(t) >= NumTerrains {
		return "?"
	}
	return terrainNames[t]
}

// ParseTerrain accepts the lower-case names used in rule files.
func ParseTerrain(s string) (Terrain, error) {
	for i, n := range terrainNames {
		if n == s {
			return Terrain(i), nil
		}
	}
	return 0, fmt.Errorf("unknown terrain %q", s)
}
