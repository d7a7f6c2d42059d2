package rules

import (
	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/TacticalSearch/internal/game/core"
)

// Outcome reasons.
const (
	ReasonNone       = ""
	ReasonEliminated = "eliminated"
	ReasonTurnLimit  = "turn_limit"
	ReasonSurrender  = "surrender"
)

// Outcome describes whether a battle has ended and how.
type Outcome struct {
	Over   bool
	Draw   bool
	Winner core.Team
	Reason string
}

// TimeoutResult decides a battle that hit its turn limit: a side wins when its
// total HP exceeds the other's by at least threshold.
func TimeoutResult(redHP, blueHP, threshold int) (winner core.Team, draw bool) {
	switch {
	case redHP-blueHP >= threshold:
		return core.Red, false
	case blueHP-redHP >= threshold:
		return core.Blue, false
	default:
		return core.Red, true
	}
}

// OutcomeChecker handles game over detection and winner determination
type OutcomeChecker struct {
	logger zerolog.Logger
}

// NewOutcomeChecker creates a new outcome checker
func NewOutcomeChecker(logger zerolog.Logger) *OutcomeChecker {
	return &OutcomeChecker{
		logger: logger.With().Str("component", "OutcomeChecker").Logger(),
	}
}

// Check determines if the battle on b is over.
func (oc *OutcomeChecker) Check(b core.BoardOps) Outcome {
	var alive, hp [core.NumTeams]int
	for _, t := range []core.Team{core.Red, core.Blue} {
		for _, u := range b.TeamUnits(t) {
			if u.IsDead() {
				continue
			}
			alive[t]++
			hp[t] += u.HP()
		}
	}

	var out Outcome
	switch {
	case alive[core.Red] == 0 && alive[core.Blue] == 0:
		out = Outcome{Over: true, Draw: true, Reason: ReasonEliminated}
	case alive[core.Red] == 0:
		out = Outcome{Over: true, Winner: core.Blue, Reason: ReasonEliminated}
	case alive[core.Blue] == 0:
		out = Outcome{Over: true, Winner: core.Red, Reason: ReasonEliminated}
	case b.TurnLimit() > 0 && b.TurnCount() >= b.TurnLimit():
		winner, draw := TimeoutResult(hp[core.Red], hp[core.Blue], b.DrawHPThreshold())
		out = Outcome{Over: true, Draw: draw, Winner: winner, Reason: ReasonTurnLimit}
	}

	oc.logger.Debug().
		Bool("is_game_over", out.Over).
		Int("red_alive", alive[core.Red]).
		Int("blue_alive", alive[core.Blue]).
		Int("red_hp", hp[core.Red]).
		Int("blue_hp", hp[core.Blue]).
		Msg("Outcome check complete")
	if out.Over {
		oc.logger.Info().
			Str("reason", out.Reason).
			Bool("draw", out.Draw).
			Stringer("winner", out.Winner).
			Msg("Battle over")
	}
	return out
}
