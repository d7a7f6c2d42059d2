package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mitchelldurbincs/TacticalSearch/internal/game/core"
)

// Impassable is the movement cost of terrain a unit cannot enter.
const Impassable = 99

// UnitSpec holds the static stats of one unit type.
type UnitSpec struct {
	Type     core.UnitType
	Step     int
	MinRange int
	MaxRange int
	Air      bool
	Attack   [core.NumUnitTypes]int
	MoveCost [core.NumTerrains]int
}

// Direct reports whether the type attacks from an adjacent cell after moving.
func (s *UnitSpec) Direct() bool {
	return s.MaxRange <= 1
}

// Tables are the read-only attack, movement, and defense tables.
type Tables struct {
	MaxHP   int
	Units   [core.NumUnitTypes]UnitSpec
	Defense [core.NumTerrains]int
}

// DefaultTables returns the standard six-type rule set.
func DefaultTables() *Tables {
	t := &Tables{
		MaxHP:   10,
		Defense: [core.NumTerrains]int{0, 1, 0, 3, 4, 0, 4},
	}
	air := [core.NumTerrains]int{Impassable, 1, 1, 1, 1, 1, 1}
	tracked := [core.NumTerrains]int{Impassable, 1, Impassable, 2, Impassable, 1, 1}
	foot := [core.NumTerrains]int{Impassable, 1, Impassable, 1, 2, 1, 1}

	//                         F    A    P    U    R    I
	attack := [core.NumUnitTypes][core.NumUnitTypes]int{
		core.Fighter:  {55, 65, 0, 0, 0, 0},
		core.Attacker: {0, 0, 105, 105, 85, 115},
		core.Panzer:   {0, 0, 55, 70, 75, 75},
		core.Cannon:   {0, 0, 60, 75, 65, 90},
		core.AntiAir:  {70, 70, 15, 50, 45, 105},
		core.Infantry: {0, 0, 5, 10, 3, 55},
	}
	specs := []struct {
		typ   core.UnitType
		step  int
		rng   [2]int
		air   bool
		costs [core.NumTerrains]int
	}{
		{core.Fighter, 9, [2]int{1, 1}, true, air},
		{core.Attacker, 7, [2]int{1, 1}, true, air},
		{core.Panzer, 6, [2]int{1, 1}, false, tracked},
		{core.Cannon, 5, [2]int{2, 3}, false, tracked},
		{core.AntiAir, 6, [2]int{1, 1}, false, tracked},
		{core.Infantry, 3, [2]int{1, 1}, false, foot},
	}
	for _, s := range specs {
		t.Units[s.typ] = UnitSpec{
			Type:     s.typ,
			Step:     s.step,
			MinRange: s.rng[0],
			MaxRange: s.rng[1],
			Air:      s.air,
			Attack:   attack[s.typ],
			MoveCost: s.costs,
		}
	}
	return t
}

// Spec returns the stats of t.
func (tb *Tables) Spec(t core.UnitType) *UnitSpec {
	return &tb.Units[t]
}

// AttackPower returns the attack coefficient of a against t.
func (tb *Tables) AttackPower(a, t core.UnitType) int {
	return tb.Units[a].Attack[t]
}

// MoveCost returns the cost for t to enter terrain.
func (tb *Tables) MoveCost(t core.UnitType, terrain core.Terrain) int {
	return tb.Units[t].MoveCost[terrain]
}

// DefenseStars returns the defensive bonus of terrain.
func (tb *Tables) DefenseStars(terrain core.Terrain) int {
	return tb.Defense[terrain]
}

// MaxBudget is the largest reachability budget any unit type needs.
func (tb *Tables) MaxBudget() int {
	m := 0
	for i := range tb.Units {
		if tb.Units[i].Step+1 > m {
			m = tb.Units[i].Step + 1
		}
	}
	return m
}

// Validate checks the tables for values the engine cannot work with.
func (tb *Tables) Validate() error {
	if tb.MaxHP <= 0 {
		return fmt.Errorf("max_hp must be positive")
	}
	for i := range tb.Units {
		s := &tb.Units[i]
		if s.Step < 1 || s.Step > 100 {
			return fmt.Errorf("unit %s: step must be between 1 and 100", s.Type)
		}
		if s.MinRange < 1 || s.MaxRange < s.MinRange {
			return fmt.Errorf("unit %s: range must satisfy 1 <= min <= max", s.Type)
		}
		for terrain, c := range s.MoveCost {
			if c < 1 {
				return fmt.Errorf("unit %s: move cost on %s must be at least 1", s.Type, core.Terrain(terrain))
			}
		}
		for target, p := range s.Attack {
			if p < 0 {
				return fmt.Errorf("unit %s: attack against %s must be non-negative", s.Type, core.UnitType(target))
			}
		}
	}
	for terrain, d := range tb.Defense {
		if d < 0 {
			return fmt.Errorf("defense on %s must be non-negative", core.Terrain(terrain))
		}
	}
	return nil
}

type tablesFile struct {
	MaxHP   int            `yaml:"max_hp,omitempty"`
	Defense map[string]int `yaml:"defense,omitempty"`
	Units   []unitFile     `yaml:"units,omitempty"`
}

type unitFile struct {
	Type     string         `yaml:"type"`
	Step     int            `yaml:"step,omitempty"`
	Range    []int          `yaml:"range,omitempty,flow"`
	Air      *bool          `yaml:"air,omitempty"`
	Attack   map[string]int `yaml:"attack,omitempty"`
	MoveCost map[string]int `yaml:"move_cost,omitempty"`
}

// ParseTables overlays a YAML document on the default tables. Fields the
// document leaves out keep their default values.
func ParseTables(data []byte) (*Tables, error) {
	var f tablesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode rule tables: %w", err)
	}

	tb := DefaultTables()
	if f.MaxHP != 0 {
		tb.MaxHP = f.MaxHP
	}
	for name, d := range f.Defense {
		terrain, err := core.ParseTerrain(name)
		if err != nil {
			return nil, err
		}
		tb.Defense[terrain] = d
	}
	for _, u := range f.Units {
		typ, err := core.ParseUnitType(u.Type)
		if err != nil {
			return nil, err
		}
		s := &tb.Units[typ]
		if u.Step != 0 {
			s.Step = u.Step
		}
		switch len(u.Range) {
		case 0:
		case 2:
			s.MinRange, s.MaxRange = u.Range[0], u.Range[1]
		default:
			return nil, fmt.Errorf("unit %s: range needs [min, max]", typ)
		}
		if u.Air != nil {
			s.Air = *u.Air
		}
		for name, p := range u.Attack {
			target, err := core.ParseUnitType(name)
			if err != nil {
				return nil, err
			}
			s.Attack[target] = p
		}
		for name, c := range u.MoveCost {
			terrain, err := core.ParseTerrain(name)
			if err != nil {
				return nil, err
			}
			s.MoveCost[terrain] = c
		}
	}

	if err := tb.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rule tables: %w", err)
	}
	return tb, nil
}

// LoadTables reads a YAML rule file. An empty path yields the defaults.
func LoadTables(path string) (*Tables, error) {
	if path == "" {
		return DefaultTables(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule tables: %w", err)
	}
	return ParseTables(data)
}

// MarshalYAML writes the complete tables in the format ParseTables reads.
func (tb *Tables) MarshalYAML() (interface{}, error) {
	f := tablesFile{
		MaxHP:   tb.MaxHP,
		Defense: make(map[string]int, core.NumTerrains),
	}
	for terrain, d := range tb.Defense {
		f.Defense[core.Terrain(terrain).String()] = d
	}
	for i := range tb.Units {
		s := &tb.Units[i]
		air := s.Air
		u := unitFile{
			Type:     s.Type.String(),
			Step:     s.Step,
			Range:    []int{s.MinRange, s.MaxRange},
			Air:      &air,
			Attack:   make(map[string]int, core.NumUnitTypes),
			MoveCost: make(map[string]int, core.NumTerrains),
		}
		for target, p := range s.Attack {
			u.Attack[core.UnitType(target).String()] = p
		}
		for terrain, c := range s.MoveCost {
			u.MoveCost[core.Terrain(terrain).String()] = c
		}
		f.Units = append(f.Units, u)
	}
	return f, nil
}
