package mapgen

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/mitchelldurbincs/TacticalSearch/internal/game/core"
	"github.com/mitchelldurbincs/TacticalSearch/internal/game/rules"
)

// MapConfig holds configuration for scenario generation
type MapConfig struct {
	Width        int
	Height       int
	UnitsPerTeam int
	// ForestRatio places one forest per N interior cells. Zero disables.
	ForestRatio      int
	NumMountainVeins int
	MinVeinLength    int
	MaxVeinLength    int
	Castles          int
	// Road runs a road along the middle row.
	Road bool
	// DeployColumns is how many columns from each edge a side deploys in.
	DeployColumns   int
	TurnLimit       int
	DrawHPThreshold int
	// Types are the unit types drawn from; empty means all of them.
	Types []core.UnitType
}

// DefaultMapConfig returns a sensible default configuration
func DefaultMapConfig(w, h, perTeam int) MapConfig {
	return MapConfig{
		Width:            w,
		Height:           h,
		UnitsPerTeam:     perTeam,
		ForestRatio:      8,
		NumMountainVeins: (w * h) / 60,
		MinVeinLength:    2,
		MaxVeinLength:    w / 4,
		Castles:          2,
		Road:             true,
		DeployColumns:    3,
		TurnLimit:        20,
		DrawHPThreshold:  10,
	}
}

// Generator builds battles with a deterministic RNG
type Generator struct {
	config MapConfig
	tables *rules.Tables
	rng    *rand.Rand
}

// NewGenerator creates a new scenario generator
func NewGenerator(config MapConfig, tb *rules.Tables, rng *rand.Rand) *Generator {
	return &Generator{
		config: config,
		tables: tb,
		rng:    rng,
	}
}

// Generate creates a board with terrain and both sides deployed, red to move.
func (g *Generator) Generate() (*core.Board, error) {
	cfg := g.config
	if cfg.Width < 4 || cfg.Height < 3 {
		return nil, fmt.Errorf("board %dx%d too small", cfg.Width, cfg.Height)
	}
	if cfg.UnitsPerTeam <= 0 {
		return nil, fmt.Errorf("units per team must be positive, got %d", cfg.UnitsPerTeam)
	}

	b := core.NewBoard(cfg.Width, cfg.Height)
	g.placeTerrain(b)
	if err := g.deploy(b); err != nil {
		return nil, err
	}
	b.SetLimits(cfg.TurnLimit, cfg.DrawHPThreshold)
	return b, nil
}

func (g *Generator) interior(b *core.Board) core.Coordinate {
	return core.Coordinate{X: 1 + g.rng.Intn(b.W-2), Y: 1 + g.rng.Intn(b.H-2)}
}

func (g *Generator) placeTerrain(b *core.Board) {
	for y := 1; y < b.H-1; y++ {
		for x := 1; x < b.W-1; x++ {
			_ = b.SetTerrain(core.Coordinate{X: x, Y: y}, core.Plain)
		}
	}
	if g.config.Road {
		y := b.H / 2
		for x := 1; x < b.W-1; x++ {
			_ = b.SetTerrain(core.Coordinate{X: x, Y: y}, core.Road)
		}
	}
	g.placeMountains(b)
	if r := g.config.ForestRatio; r > 0 {
		want := (b.W - 2) * (b.H - 2) / r
		for i := 0; i < want; i++ {
			c := g.interior(b)
			if b.TerrainAt(c) == core.Plain {
				_ = b.SetTerrain(c, core.Forest)
			}
		}
	}
	for i := 0; i < g.config.Castles; i++ {
		_ = b.SetTerrain(g.interior(b), core.Castle)
	}
}

// placeMountains lays random straight-ish veins of mountain.
func (g *Generator) placeMountains(b *core.Board) {
	cfg := g.config
	if cfg.NumMountainVeins <= 0 || cfg.MaxVeinLength < cfg.MinVeinLength || cfg.MinVeinLength <= 0 {
		return
	}
	for v := 0; v < cfg.NumMountainVeins; v++ {
		c := g.interior(b)
		d := core.Directions[g.rng.Intn(len(core.Directions))]
		length := cfg.MinVeinLength + g.rng.Intn(cfg.MaxVeinLength-cfg.MinVeinLength+1)
		for i := 0; i < length && c.IsPlayable(b.W, b.H); i++ {
			_ = b.SetTerrain(c, core.Mountain)
			c = c.Move(d)
		}
	}
}

func (g *Generator) unitType() core.UnitType {
	if types := g.config.Types; len(types) > 0 {
		return types[g.rng.Intn(len(types))]
	}
	return core.UnitType(g.rng.Intn(core.NumUnitTypes))
}

// deploy places each side in its own band of columns, red on the left.
func (g *Generator) deploy(b *core.Board) error {
	cfg := g.config
	cols := cfg.DeployColumns
	if cols <= 0 || cols > (b.W-2)/2 {
		cols = (b.W - 2) / 2
	}
	id := 0
	for _, team := range []core.Team{core.Red, core.Blue} {
		minX := 1
		if team == core.Blue {
			minX = b.W - 1 - cols
		}
		for n := 0; n < cfg.UnitsPerTeam; n++ {
			t := g.unitType()
			c, ok := g.findSpot(b, t, minX, cols)
			if !ok {
				return fmt.Errorf("no room to deploy %s unit %d of %s", t, n, team)
			}
			if err := b.AddUnit(core.NewUnit(id, team, t, c, g.tables.MaxHP)); err != nil {
				return err
			}
			id++
		}
	}
	return nil
}

// findSpot picks a free cell in the band that type t can stand on.
func (g *Generator) findSpot(b *core.Board, t core.UnitType, minX, cols int) (core.Coordinate, bool) {
	ok := func(c core.Coordinate) bool {
		if _, taken := b.Occupant(c); taken {
			return false
		}
		return g.tables.MoveCost(t, b.TerrainAt(c)) < rules.Impassable
	}
	maxAttempts := cols * (b.H - 2) * 4
	for attempts := 0; attempts < maxAttempts; attempts++ {
		c := core.Coordinate{X: minX + g.rng.Intn(cols), Y: 1 + g.rng.Intn(b.H-2)}
		if ok(c) {
			return c, true
		}
	}
	// Fallback: scan the band in order.
	for x := minX; x < minX+cols; x++ {
		for y := 1; y < b.H-1; y++ {
			if c := (core.Coordinate{X: x, Y: y}); ok(c) {
				return c, true
			}
		}
	}
	return core.Coordinate{}, false
}
