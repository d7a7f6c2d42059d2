package game

import (
	"fmt"
	"strings"

	"github.com/mitchelldurbincs/TacticalSearch/internal/game/core"
)

// ANSI color codes
const (
	ColorReset = "\033[0m"
	ColorRed   = "\033[31m"
	ColorGreen = "\033[32m"
	ColorBlue  = "\033[34m"
	ColorCyan  = "\033[36m"
	ColorWhite = "\033[37m"
	ColorGray  = "\033[90m"
)

var teamColors = [core.NumTeams]string{ColorRed, ColorBlue}

var terrainSymbols = [core.NumTerrains]struct {
	symbol string
	color  string
}{
	core.NoEntry:  {"#", ColorGray},
	core.Plain:    {"·", ColorGray},
	core.Sea:      {"~", ColorCyan},
	core.Forest:   {"♣", ColorGreen},
	core.Mountain: {"▲", ColorWhite},
	core.Road:     {"=", ColorGray},
	core.Castle:   {"⬢", ColorWhite},
}

// Render returns the board as colored text: each cell is two characters, a
// unit's type letter and HP digit ("+" at ten or more) or a terrain symbol.
func (e *Engine) Render() string {
	return RenderBoard(e.board)
}

// RenderBoard renders any canonical board the way Render does.
func RenderBoard(b *core.Board) string {
	var sb strings.Builder
	sb.Grow((b.W*12 + 4) * (b.H + 3))

	sb.WriteString("   ")
	for x := 0; x < b.W; x++ {
		fmt.Fprintf(&sb, "%2d", x)
	}
	sb.WriteString("\n")

	for y := 0; y < b.H; y++ {
		fmt.Fprintf(&sb, "%2d ", y)
		for x := 0; x < b.W; x++ {
			c := core.Coordinate{X: x, Y: y}
			if u, ok := b.Occupant(c); ok {
				sb.WriteString(teamColors[u.Team()])
				sb.WriteString(u.Type().String())
				if u.HP() >= 10 {
					sb.WriteString("+")
				} else {
					fmt.Fprintf(&sb, "%d", u.HP())
				}
			} else {
				t := b.TerrainAt(c)
				sym := terrainSymbols[core.NoEntry]
				if t >= 0 && int(t) < core.NumTerrains {
					sym = terrainSymbols[t]
				}
				sb.WriteString(sym.color)
				sb.WriteString(" ")
				sb.WriteString(sym.symbol)
			}
			sb.WriteString(ColorReset)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "\nturn %d, %s to move\n", b.TurnCount(), b.Phase())
	sb.WriteString("·=plain ~=sea ♣=forest ▲=mountain ==road ⬢=castle #=no entry\n")
	return sb.String()
}
